package httpserver

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	authmw "github.com/Skotchmaster/storefront/internal/middleware/auth"
	"github.com/Skotchmaster/storefront/internal/middleware/csrf"
	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/internal/view"
)

// page builds the fields every template reads.
func page(c echo.Context, title, path string) view.Data {
	return view.Data{
		"PageTitle":        title,
		"Path":             path,
		"IsAuthenticated":  authmw.CurrentUser(c) != nil,
		"CSRFToken":        csrf.Token(c),
		"Query":            "",
		"ErrorMessage":     "",
		"ValidationErrors": map[string]string{},
	}
}

// invalid fills the re-render fields for a rejected form.
func invalid(d view.Data, err error) view.Data {
	var verr *service.ValidationError
	if errors.As(err, &verr) {
		d["ErrorMessage"] = verr.First()
		d["ValidationErrors"] = verr.ByField()
	}
	return d
}

func parseID(raw string) (uint, bool) {
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

func idKey(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

func redirect(c echo.Context, to string) error {
	return c.Redirect(http.StatusFound, to)
}
