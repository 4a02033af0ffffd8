package auth

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/internal/tokens"
)

const (
	userKey      = "current_user"
	userIDKey    = "user_id"
	sessionIDKey = "session_id"
)

// Resolver turns request cookies into an authenticated user.
type Resolver interface {
	Resolve(ctx context.Context, accessToken, refreshToken string, client service.Client) (*service.Resolution, error)
}

type Authenticator struct {
	Svc    Resolver
	Secure bool
}

// LoadUser identifies the requester from the session cookies. It never
// rejects a request: anonymous visitors simply carry no user.
func (a *Authenticator) LoadUser(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		access := cookieValue(c, tokens.AccessCookie)
		refresh := cookieValue(c, tokens.RefreshCookie)
		if access == "" && refresh == "" {
			return next(c)
		}

		ctx := c.Request().Context()
		l := logging.FromContext(ctx).With("middleware", "load_user")

		res, err := a.Svc.Resolve(ctx, access, refresh, service.Client{
			UserAgent: c.Request().UserAgent(),
			IP:        c.RealIP(),
		})
		if err != nil {
			if !errors.Is(err, service.ErrUnauthorized) {
				l.Error("load_user_failed", "error", err)
			}
			a.ClearCookies(c)
			return next(c)
		}

		if res.Tokens != nil {
			a.SetCookies(c, res.Tokens)
		}
		SetCurrentUser(c, res.User, res.SessionID)
		return next(c)
	}
}

// RequireAuth sends anonymous visitors to the login page.
func RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if CurrentUser(c) == nil {
			logging.FromContext(c.Request().Context()).Info("auth_required", "path", c.Request().URL.Path)
			return c.Redirect(http.StatusFound, "/login")
		}
		return next(c)
	}
}

func (a *Authenticator) SetCookies(c echo.Context, res *service.LoginResult) {
	c.SetCookie(tokens.CreateCookie(tokens.AccessCookie, res.AccessToken, "/", res.AccessExp, a.Secure))
	c.SetCookie(tokens.CreateCookie(tokens.RefreshCookie, res.RefreshToken, "/", res.RefreshExp, a.Secure))
}

func (a *Authenticator) ClearCookies(c echo.Context) {
	c.SetCookie(tokens.DeleteCookie(tokens.AccessCookie, "/", a.Secure))
	c.SetCookie(tokens.DeleteCookie(tokens.RefreshCookie, "/", a.Secure))
}

func SetCurrentUser(c echo.Context, u *models.User, sessionID string) {
	c.Set(userKey, u)
	c.Set(userIDKey, u.ID)
	c.Set(sessionIDKey, sessionID)
}

func CurrentUser(c echo.Context) *models.User {
	u, _ := c.Get(userKey).(*models.User)
	return u
}

func SessionID(c echo.Context) string {
	sid, _ := c.Get(sessionIDKey).(string)
	return sid
}

func cookieValue(c echo.Context, name string) string {
	ck, err := c.Cookie(name)
	if err != nil {
		return ""
	}
	return ck.Value
}
