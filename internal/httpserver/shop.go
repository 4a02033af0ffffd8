package httpserver

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/logging"
	authmw "github.com/Skotchmaster/storefront/internal/middleware/auth"
	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/internal/transport"
	"github.com/Skotchmaster/storefront/internal/util"
)

type ShopHTTP struct {
	Catalog  *service.CatalogService
	Cart     *service.CartService
	Orders   *service.OrderService
	Invoices *service.InvoiceService
}

func (h *ShopHTTP) GetIndex(c echo.Context) error {
	return h.listing(c, "shop/index", "Shop", "/")
}

func (h *ShopHTTP) GetProducts(c echo.Context) error {
	return h.listing(c, "shop/product-list", "All Products", "/products")
}

func (h *ShopHTTP) listing(c echo.Context, view, title, path string) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "shop.listing", "view", view)

	pageNo := util.ParsePage(c.QueryParam("page"))
	res, err := h.Catalog.Page(ctx, pageNo)
	if err != nil {
		l.Error("get_products_failed", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot list products")
	}

	d := page(c, title, path)
	d["Products"] = res.Products
	d["Pagination"] = res.Page
	return c.Render(http.StatusOK, view, d)
}

func (h *ShopHTTP) GetProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "shop.get_product")

	id, ok := parseID(c.Param("id"))
	if !ok {
		l.Warn("get_product_failed", "status", 404, "reason", "malformed id", "id", c.Param("id"))
		return echo.NewHTTPError(http.StatusNotFound)
	}

	p, err := h.Catalog.Product(ctx, id)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			l.Warn("get_product_failed", "status", 404, "reason", "product not found", "id", id)
			return echo.NewHTTPError(http.StatusNotFound)
		}
		l.Error("get_product_failed", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot get product")
	}

	d := page(c, p.Title, "/products")
	d["Product"] = p
	return c.Render(http.StatusOK, "shop/product-detail", d)
}

func (h *ShopHTTP) GetSearch(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "shop.search")

	q := c.QueryParam("q")
	res, err := h.Catalog.SearchProducts(ctx, q, util.ParsePage(c.QueryParam("page")))
	if err != nil {
		l.Error("search_failed", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "search failed")
	}

	d := page(c, "Search", "/search")
	d["Query"] = q
	d["Products"] = res.Products
	d["Pagination"] = res.Page
	return c.Render(http.StatusOK, "shop/search", d)
}

func (h *ShopHTTP) GetCart(c echo.Context) error {
	ctx := c.Request().Context()
	user := authmw.CurrentUser(c)

	items, err := h.Cart.Cart(ctx, user.ID)
	if err != nil {
		logging.FromContext(ctx).Error("get_cart_failed", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot load cart")
	}

	d := page(c, "Your Cart", "/cart")
	d["Items"] = items
	return c.Render(http.StatusOK, "shop/cart", d)
}

func (h *ShopHTTP) PostCart(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "shop.post_cart")
	user := authmw.CurrentUser(c)

	var f transport.ProductIDForm
	if err := c.Bind(&f); err != nil {
		l.Warn("add_to_cart_failed", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	id, ok := parseID(f.ProductID)
	if !ok {
		l.Warn("add_to_cart_failed", "status", 404, "reason", "malformed product id")
		return echo.NewHTTPError(http.StatusNotFound)
	}

	if _, err := h.Cart.AddToCart(ctx, user.ID, id); err != nil {
		if errors.Is(err, service.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound)
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot add to cart")
	}
	return redirect(c, "/cart")
}

// PostCartDeleteProduct treats an unknown or malformed id as already removed.
func (h *ShopHTTP) PostCartDeleteProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "shop.cart_delete")
	user := authmw.CurrentUser(c)

	var f transport.ProductIDForm
	if err := c.Bind(&f); err != nil {
		l.Warn("remove_from_cart_failed", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	id, ok := parseID(f.ProductID)
	if !ok {
		l.Info("remove_from_cart_skipped", "reason", "malformed product id")
		return redirect(c, "/cart")
	}

	if err := h.Cart.RemoveFromCart(ctx, user.ID, id); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot remove from cart")
	}
	return redirect(c, "/cart")
}

func (h *ShopHTTP) PostOrder(c echo.Context) error {
	ctx := c.Request().Context()
	user := authmw.CurrentUser(c)

	if _, err := h.Orders.Checkout(ctx, user); err != nil {
		if errors.Is(err, service.ErrEmptyCart) {
			return redirect(c, "/cart")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot create order")
	}
	return redirect(c, "/orders")
}

func (h *ShopHTTP) GetOrders(c echo.Context) error {
	ctx := c.Request().Context()
	user := authmw.CurrentUser(c)

	orders, err := h.Orders.Orders(ctx, user.ID)
	if err != nil {
		logging.FromContext(ctx).Error("get_orders_failed", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot load orders")
	}

	d := page(c, "Your Orders", "/orders")
	d["Orders"] = orders
	return c.Render(http.StatusOK, "shop/orders", d)
}

func (h *ShopHTTP) GetInvoice(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "shop.get_invoice")
	user := authmw.CurrentUser(c)

	id, ok := parseID(c.Param("id"))
	if !ok {
		l.Warn("get_invoice_failed", "status", 404, "reason", "malformed id")
		return echo.NewHTTPError(http.StatusNotFound)
	}

	inv, err := h.Invoices.Render(ctx, id, user.ID)
	switch {
	case errors.Is(err, service.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound)
	case errors.Is(err, service.ErrForbidden):
		return echo.NewHTTPError(http.StatusForbidden, "Unauthorized")
	case err != nil:
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot render invoice")
	}

	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf(`inline; filename="%s"`, inv.Name))
	return c.Blob(http.StatusOK, "application/pdf", inv.Data)
}

func GetServerError(c echo.Context) error {
	return c.Render(http.StatusInternalServerError, "500", page(c, "Error!", "/500"))
}
