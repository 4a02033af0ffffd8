package httpserver

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/logging"
)

// ErrorHandler turns handler errors into pages. Script callers (DELETE or an
// explicit JSON Accept) get {"message": ...} instead; server errors send
// browsers to /500.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	msg := http.StatusText(code)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		if he.Message != nil {
			msg = fmt.Sprint(he.Message)
		}
	}

	var werr error
	switch {
	case wantsJSON(c):
		werr = c.JSON(code, map[string]string{"message": msg})
	case code == http.StatusNotFound:
		werr = c.Render(code, "404", page(c, "Page Not Found", ""))
	case code >= http.StatusInternalServerError:
		werr = c.Redirect(http.StatusFound, "/500")
	default:
		d := page(c, http.StatusText(code), "")
		d["ErrorMessage"] = msg
		werr = c.Render(code, "error", d)
	}
	if werr != nil {
		logging.FromContext(c.Request().Context()).Error("error_handler_failed", "status", code, "error", werr)
	}
}

func wantsJSON(c echo.Context) bool {
	req := c.Request()
	return req.Method == http.MethodDelete || strings.Contains(req.Header.Get(echo.HeaderAccept), echo.MIMEApplicationJSON)
}
