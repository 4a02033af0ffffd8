package httpserver

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/logging"
	authmw "github.com/Skotchmaster/storefront/internal/middleware/auth"
	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/internal/transport"
)

type AuthHTTP struct {
	Svc   *service.AuthService
	Authn *authmw.Authenticator
}

func (h *AuthHTTP) GetLogin(c echo.Context) error {
	d := page(c, "Login", "/login")
	d["Form"] = &transport.LoginForm{}
	return c.Render(http.StatusOK, "auth/login", d)
}

func (h *AuthHTTP) PostLogin(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.login")

	f := &transport.LoginForm{}
	d := page(c, "Login", "/login")
	d["Form"] = f
	if err := c.Bind(f); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	f.Normalize()
	if err := c.Validate(f); err != nil {
		return c.Render(http.StatusUnprocessableEntity, "auth/login", invalid(d, err))
	}

	res, err := h.Svc.Login(ctx, f.Email, f.Password, service.Client{
		UserAgent: c.Request().UserAgent(),
		IP:        c.RealIP(),
	})
	if err != nil {
		if errors.Is(err, service.ErrUnauthorized) {
			d["ErrorMessage"] = "Invalid email or password."
			return c.Render(http.StatusUnprocessableEntity, "auth/login", d)
		}
		l.Error("login_failed", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "login failed")
	}

	h.Authn.SetCookies(c, res)
	l.Info("login_success", "user_id", res.User.ID)
	return redirect(c, "/")
}

func (h *AuthHTTP) GetSignup(c echo.Context) error {
	d := page(c, "Signup", "/signup")
	d["Form"] = &transport.SignupForm{}
	return c.Render(http.StatusOK, "auth/signup", d)
}

func (h *AuthHTTP) PostSignup(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.signup")

	f := &transport.SignupForm{}
	d := page(c, "Signup", "/signup")
	d["Form"] = f
	if err := c.Bind(f); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	f.Normalize()
	if err := c.Validate(f); err != nil {
		return c.Render(http.StatusUnprocessableEntity, "auth/signup", invalid(d, err))
	}

	if _, err := h.Svc.Signup(ctx, f.Email, f.Password); err != nil {
		if errors.Is(err, service.ErrValidation) {
			return c.Render(http.StatusUnprocessableEntity, "auth/signup", invalid(d, err))
		}
		l.Error("signup_failed", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "signup failed")
	}
	return redirect(c, "/login")
}

func (h *AuthHTTP) PostLogout(c echo.Context) error {
	ctx := c.Request().Context()
	if err := h.Svc.Logout(ctx, authmw.SessionID(c)); err != nil {
		logging.FromContext(ctx).Error("logout_failed", "error", err)
	}
	h.Authn.ClearCookies(c)
	return redirect(c, "/")
}

func (h *AuthHTTP) GetReset(c echo.Context) error {
	d := page(c, "Reset Password", "/reset")
	d["Form"] = &transport.ResetForm{}
	return c.Render(http.StatusOK, "auth/reset", d)
}

func (h *AuthHTTP) PostReset(c echo.Context) error {
	ctx := c.Request().Context()

	f := &transport.ResetForm{}
	d := page(c, "Reset Password", "/reset")
	d["Form"] = f
	if err := c.Bind(f); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	f.Normalize()
	if err := c.Validate(f); err != nil {
		return c.Render(http.StatusUnprocessableEntity, "auth/reset", invalid(d, err))
	}

	if err := h.Svc.RequestReset(ctx, f.Email); err != nil {
		if errors.Is(err, service.ErrNotFound) {
			d["ErrorMessage"] = "No account with that email found."
			return c.Render(http.StatusUnprocessableEntity, "auth/reset", d)
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "reset failed")
	}

	d["Sent"] = true
	return c.Render(http.StatusOK, "auth/reset", d)
}

func (h *AuthHTTP) GetNewPassword(c echo.Context) error {
	ctx := c.Request().Context()
	token := c.Param("token")

	user, err := h.Svc.ResetUser(ctx, token)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			logging.FromContext(ctx).Warn("new_password_failed", "status", 404, "reason", "unknown or expired token")
			return echo.NewHTTPError(http.StatusNotFound)
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot check reset token")
	}

	d := page(c, "New Password", "/new-password")
	d["UserID"] = idKey(user.ID)
	d["PasswordToken"] = token
	return c.Render(http.StatusOK, "auth/new-password", d)
}

func (h *AuthHTTP) PostNewPassword(c echo.Context) error {
	ctx := c.Request().Context()

	f := &transport.NewPasswordForm{}
	if err := c.Bind(f); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	d := page(c, "New Password", "/new-password")
	d["UserID"] = f.UserID
	d["PasswordToken"] = f.PasswordToken
	if err := c.Validate(f); err != nil {
		return c.Render(http.StatusUnprocessableEntity, "auth/new-password", invalid(d, err))
	}
	userID, ok := parseID(f.UserID)
	if !ok {
		return redirect(c, "/reset")
	}

	if err := h.Svc.SetNewPassword(ctx, userID, f.PasswordToken, f.Password); err != nil {
		if errors.Is(err, service.ErrNotFound) {
			return redirect(c, "/reset")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot set password")
	}
	return redirect(c, "/login")
}
