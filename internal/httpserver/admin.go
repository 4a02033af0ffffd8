package httpserver

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/logging"
	authmw "github.com/Skotchmaster/storefront/internal/middleware/auth"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/internal/transport"
	"github.com/Skotchmaster/storefront/internal/view"
)

type AdminHTTP struct {
	Svc *service.AdminService
}

func productForm(p *models.Product) *transport.ProductForm {
	return &transport.ProductForm{
		ProductID:   idKey(p.ID),
		Title:       p.Title,
		ImageURL:    p.ImageURL,
		Price:       p.Price.StringFixed(2),
		Description: p.Description,
	}
}

func (h *AdminHTTP) editPage(c echo.Context, editing bool, f *transport.ProductForm) view.Data {
	title, path := "Add Product", "/admin/add-product"
	if editing {
		title, path = "Edit Product", "/admin/edit-product"
	}
	d := page(c, title, path)
	d["Editing"] = editing
	d["Form"] = f
	return d
}

func (h *AdminHTTP) GetProducts(c echo.Context) error {
	ctx := c.Request().Context()
	user := authmw.CurrentUser(c)

	items, err := h.Svc.Products(ctx, user.ID)
	if err != nil {
		logging.FromContext(ctx).Error("admin_products_failed", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot list products")
	}

	d := page(c, "Admin Products", "/admin/products")
	d["Products"] = items
	return c.Render(http.StatusOK, "admin/products", d)
}

func (h *AdminHTTP) GetAddProduct(c echo.Context) error {
	return c.Render(http.StatusOK, "admin/edit-product", h.editPage(c, false, &transport.ProductForm{}))
}

func (h *AdminHTTP) PostAddProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.add_product")
	user := authmw.CurrentUser(c)

	f, in, err := h.bindProduct(c)
	if err != nil {
		l.Warn("add_product_failed", "status", 422, "error", err)
		return c.Render(http.StatusUnprocessableEntity, "admin/edit-product", invalid(h.editPage(c, false, f), err))
	}

	if _, err := h.Svc.Create(ctx, user.ID, in); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot create product")
	}
	return redirect(c, "/admin/products")
}

func (h *AdminHTTP) GetEditProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.get_edit_product")
	user := authmw.CurrentUser(c)

	if c.QueryParam("edit") == "" {
		return redirect(c, "/")
	}
	id, ok := parseID(c.Param("id"))
	if !ok {
		l.Warn("edit_product_failed", "reason", "malformed id")
		return redirect(c, "/")
	}

	p, err := h.Svc.Owned(ctx, id, user.ID)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) || errors.Is(err, service.ErrForbidden) {
			l.Warn("edit_product_failed", "error", err)
			return redirect(c, "/")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot load product")
	}
	return c.Render(http.StatusOK, "admin/edit-product", h.editPage(c, true, productForm(p)))
}

func (h *AdminHTTP) PostEditProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.post_edit_product")
	user := authmw.CurrentUser(c)

	f, in, err := h.bindProduct(c)
	if err != nil {
		l.Warn("edit_product_failed", "status", 422, "error", err)
		return c.Render(http.StatusUnprocessableEntity, "admin/edit-product", invalid(h.editPage(c, true, f), err))
	}
	id, ok := parseID(f.ProductID)
	if !ok {
		l.Warn("edit_product_failed", "reason", "malformed id")
		return redirect(c, "/")
	}

	if _, err := h.Svc.Update(ctx, id, user.ID, in); err != nil {
		if errors.Is(err, service.ErrNotFound) || errors.Is(err, service.ErrForbidden) {
			return redirect(c, "/")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot update product")
	}
	return redirect(c, "/admin/products")
}

func (h *AdminHTTP) PostDeleteProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.post_delete_product")
	user := authmw.CurrentUser(c)

	var f transport.ProductIDForm
	if err := c.Bind(&f); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	id, ok := parseID(f.ProductID)
	if !ok {
		l.Warn("delete_product_failed", "reason", "malformed id")
		return redirect(c, "/")
	}

	if err := h.Svc.Delete(ctx, id, user.ID); err != nil {
		if errors.Is(err, service.ErrNotFound) || errors.Is(err, service.ErrForbidden) {
			return redirect(c, "/")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot delete product")
	}
	return redirect(c, "/admin/products")
}

// DeleteProduct serves the script-driven delete on the admin listing.
func (h *AdminHTTP) DeleteProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.delete_product")
	user := authmw.CurrentUser(c)

	id, ok := parseID(c.Param("id"))
	if !ok {
		l.Warn("delete_product_failed", "status", 404, "reason", "malformed id")
		return c.JSON(http.StatusNotFound, map[string]string{"message": "Product not found."})
	}

	err := h.Svc.Delete(ctx, id, user.ID)
	switch {
	case err == nil:
		return c.JSON(http.StatusOK, map[string]string{"message": "Success!"})
	case errors.Is(err, service.ErrNotFound):
		return c.JSON(http.StatusNotFound, map[string]string{"message": "Product not found."})
	case errors.Is(err, service.ErrForbidden):
		return c.JSON(http.StatusForbidden, map[string]string{"message": "Not allowed to delete this product."})
	default:
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Deleting product failed."})
	}
}

func (h *AdminHTTP) bindProduct(c echo.Context) (*transport.ProductForm, service.ProductInput, error) {
	f := &transport.ProductForm{}
	if err := c.Bind(f); err != nil {
		return f, service.ProductInput{}, service.NewValidationError("title", "Invalid form submission.")
	}
	f.Normalize()
	if err := c.Validate(f); err != nil {
		return f, service.ProductInput{}, err
	}
	in, err := f.Input()
	return f, in, err
}
