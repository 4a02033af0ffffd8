package httpserver

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"

	"github.com/Skotchmaster/storefront/internal/metrics"
	authmw "github.com/Skotchmaster/storefront/internal/middleware/auth"
	"github.com/Skotchmaster/storefront/internal/middleware/csrf"
	loggingmw "github.com/Skotchmaster/storefront/internal/middleware/logging"
	"github.com/Skotchmaster/storefront/internal/transport"
	"github.com/Skotchmaster/storefront/internal/view"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type Deps struct {
	Shop  *ShopHTTP
	Admin *AdminHTTP
	Auth  *AuthHTTP
	Authn *authmw.Authenticator

	Renderer *view.Renderer
	Logger   *slog.Logger
	CSRF     csrf.Config
	// Checks are pinged by /health/ready, keyed by dependency name.
	Checks map[string]Pinger

	PublicDir         string
	AuthRatePerMinute int
}

// New builds the echo instance with the full middleware chain. Metrics wrap
// the request logger so both see the status produced by ErrorHandler.
func New(d *Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Renderer = d.Renderer
	e.Validator = transport.NewValidator()
	e.HTTPErrorHandler = ErrorHandler

	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(metrics.Middleware())
	e.Use(loggingmw.RequestLogger(d.Logger))

	csrfCfg := d.CSRF
	csrfCfg.Skipper = infraPath
	e.Use(csrf.Middleware(csrfCfg))
	e.Use(skip(infraPath, d.Authn.LoadUser))

	Register(e, d)
	return e
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", ready(d.Checks))
	e.GET("/metrics", echo.WrapHandler(metrics.Handler()))
	if d.PublicDir != "" {
		e.Static("/public", d.PublicDir)
	}

	limit := authLimiter(d.AuthRatePerMinute)

	e.GET("/", d.Shop.GetIndex)
	e.GET("/products", d.Shop.GetProducts)
	e.GET("/products/:id", d.Shop.GetProduct)
	e.GET("/search", d.Shop.GetSearch)
	e.GET("/500", GetServerError)

	e.GET("/login", d.Auth.GetLogin)
	e.POST("/login", d.Auth.PostLogin, limit)
	e.GET("/signup", d.Auth.GetSignup)
	e.POST("/signup", d.Auth.PostSignup, limit)
	e.POST("/logout", d.Auth.PostLogout)
	e.GET("/reset", d.Auth.GetReset)
	e.POST("/reset", d.Auth.PostReset, limit)
	e.GET("/reset/:token", d.Auth.GetNewPassword)
	e.POST("/new-password", d.Auth.PostNewPassword)

	// RequireAuth stays per route so unknown paths still reach the 404 page.
	e.GET("/cart", d.Shop.GetCart, authmw.RequireAuth)
	e.POST("/cart", d.Shop.PostCart, authmw.RequireAuth)
	e.POST("/cart-delete-item", d.Shop.PostCartDeleteProduct, authmw.RequireAuth)
	e.POST("/create-order", d.Shop.PostOrder, authmw.RequireAuth)
	e.GET("/orders", d.Shop.GetOrders, authmw.RequireAuth)
	e.GET("/orders/:id/invoice", d.Shop.GetInvoice, authmw.RequireAuth)

	admin := e.Group("/admin", authmw.RequireAuth)
	admin.GET("/products", d.Admin.GetProducts)
	admin.GET("/add-product", d.Admin.GetAddProduct)
	admin.POST("/add-product", d.Admin.PostAddProduct)
	admin.GET("/edit-product/:id", d.Admin.GetEditProduct)
	admin.POST("/edit-product", d.Admin.PostEditProduct)
	admin.POST("/delete-product", d.Admin.PostDeleteProduct)
	admin.DELETE("/product/:id", d.Admin.DeleteProduct)
}

func ready(checks map[string]Pinger) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()

		failed := map[string]string{}
		for name, p := range checks {
			if err := p.Ping(ctx); err != nil {
				failed[name] = err.Error()
			}
		}
		if len(failed) > 0 {
			return c.JSON(http.StatusServiceUnavailable, map[string]any{"status": "unavailable", "failed": failed})
		}
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	}
}

func authLimiter(perMinute int) echo.MiddlewareFunc {
	if perMinute <= 0 {
		perMinute = 10
	}
	store := middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(float64(perMinute) / 60),
		Burst:     perMinute,
		ExpiresIn: 3 * time.Minute,
	})
	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: store,
		DenyHandler: func(c echo.Context, _ string, _ error) error {
			return echo.NewHTTPError(http.StatusTooManyRequests, "Too many attempts, please try again later.")
		},
	})
}

func infraPath(c echo.Context) bool {
	p := c.Request().URL.Path
	return p == "/metrics" || strings.HasPrefix(p, "/health/") || strings.HasPrefix(p, "/public/")
}

func skip(when func(echo.Context) bool, mw echo.MiddlewareFunc) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		wrapped := mw(next)
		return func(c echo.Context) error {
			if when(c) {
				return next(c)
			}
			return wrapped(c)
		}
	}
}
