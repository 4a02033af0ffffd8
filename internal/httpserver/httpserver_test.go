package httpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/storefront/internal/invoice"
	"github.com/Skotchmaster/storefront/internal/logging"
	authmw "github.com/Skotchmaster/storefront/internal/middleware/auth"
	"github.com/Skotchmaster/storefront/internal/middleware/csrf"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/search"
	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/internal/session"
	"github.com/Skotchmaster/storefront/internal/testutil"
	"github.com/Skotchmaster/storefront/internal/tokens"
	"github.com/Skotchmaster/storefront/internal/view"
)

const csrfToken = "test-csrf-token"

type harness struct {
	e          *echo.Echo
	repo       *repo.GormRepo
	auth       *service.AuthService
	invoiceDir string
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	r := &repo.GormRepo{DB: testutil.DB(t)}
	rdb, _ := testutil.Redis(t)
	renderer, err := view.New()
	require.NoError(t, err)

	dir := t.TempDir()
	store, err := invoice.NewFileStore(dir)
	require.NoError(t, err)

	sessions := session.NewStore(rdb, "session")
	authSvc := &service.AuthService{
		Repo:     r,
		Sessions: sessions,
		Tokens: tokens.Issuer{
			AccessSecret:  []byte("access"),
			RefreshSecret: []byte("refresh"),
			AccessTTL:     15 * time.Minute,
			RefreshTTL:    time.Hour,
		},
		ResetTTL: time.Hour,
	}
	authn := &authmw.Authenticator{Svc: authSvc}

	e := New(&Deps{
		Shop: &ShopHTTP{
			Catalog:  &service.CatalogService{Repo: r, Search: &search.Database{Repo: r}, PageSize: 3},
			Cart:     &service.CartService{Repo: r},
			Orders:   &service.OrderService{Repo: r},
			Invoices: &service.InvoiceService{Repo: r, Store: store},
		},
		Admin:    &AdminHTTP{Svc: &service.AdminService{Repo: r}},
		Auth:     &AuthHTTP{Svc: authSvc, Authn: authn},
		Authn:    authn,
		Renderer: renderer,
		Logger:   logging.NewWithWriter(io.Discard, "error"),
		CSRF:     csrf.Config{EnforceSameOrigin: true},
		Checks:   map[string]Pinger{"db": r, "redis": sessions},
	})
	return &harness{e: e, repo: r, auth: authSvc, invoiceDir: dir}
}

// login signs the user up and returns the session cookies.
func (h *harness) login(t *testing.T, email string) (*models.User, []*http.Cookie) {
	t.Helper()
	ctx := context.Background()
	u, err := h.auth.Signup(ctx, email, "secret1")
	require.NoError(t, err)
	res, err := h.auth.Login(ctx, email, "secret1", service.Client{})
	require.NoError(t, err)
	return u, []*http.Cookie{
		{Name: tokens.AccessCookie, Value: res.AccessToken},
		{Name: tokens.RefreshCookie, Value: res.RefreshToken},
	}
}

func (h *harness) product(t *testing.T, owner uint, title, price string) *models.Product {
	t.Helper()
	p := &models.Product{
		Title:       title,
		Price:       decimal.RequireFromString(price),
		Description: "about " + title,
		ImageURL:    "http://img.test/" + title,
		UserID:      owner,
	}
	require.NoError(t, h.repo.CreateProduct(context.Background(), p))
	return p
}

func (h *harness) do(method, target string, form url.Values, cookies []*http.Cookie) *httptest.ResponseRecorder {
	var body io.Reader
	if form != nil {
		form.Set("_csrf", csrfToken)
		body = strings.NewReader(form.Encode())
	}
	req := httptest.NewRequest(method, target, body)
	if form != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	}
	if method != http.MethodGet {
		req.Header.Set("Origin", "http://example.com")
		req.Header.Set("csrf-token", csrfToken)
	}
	req.AddCookie(&http.Cookie{Name: "_csrf", Value: csrfToken})
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	h.e.ServeHTTP(rec, req)
	return rec
}

func location(rec *httptest.ResponseRecorder) string {
	return rec.Header().Get(echo.HeaderLocation)
}

func TestHealth(t *testing.T) {
	h := newHarness(t)

	assert.Equal(t, http.StatusOK, h.do(http.MethodGet, "/health/live", nil, nil).Code)
	rec := h.do(http.MethodGet, "/health/ready", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestIndexPaginates(t *testing.T) {
	h := newHarness(t)
	owner, _ := h.login(t, "owner@test.io")
	for i := 1; i <= 7; i++ {
		h.product(t, owner.ID, fmt.Sprintf("Item%02d", i), "3")
	}

	rec := h.do(http.MethodGet, "/?page=3", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Item07")
	assert.NotContains(t, rec.Body.String(), "Item01")

	rec = h.do(http.MethodGet, "/?page=6148914691236517206", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "Item01")
	assert.Contains(t, rec.Body.String(), "No Products Found!")

	for _, target := range []string{"/", "/?page=abc", "/?page=0", "/products?page=-4"} {
		rec = h.do(http.MethodGet, target, nil, nil)
		require.Equal(t, http.StatusOK, rec.Code, target)
		assert.Contains(t, rec.Body.String(), "Item01", target)
		assert.NotContains(t, rec.Body.String(), "Item04", target)
	}
}

func TestProductDetail(t *testing.T) {
	h := newHarness(t)
	owner, _ := h.login(t, "owner@test.io")
	p := h.product(t, owner.ID, "Kettle", "19.5")

	rec := h.do(http.MethodGet, fmt.Sprintf("/products/%d", p.ID), nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "$19.50")

	for _, target := range []string{"/products/999", "/products/abc", "/no/such/route"} {
		rec = h.do(http.MethodGet, target, nil, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code, target)
		assert.Contains(t, rec.Body.String(), "Page Not Found!", target)
	}
}

func TestSearch(t *testing.T) {
	h := newHarness(t)
	owner, _ := h.login(t, "owner@test.io")
	h.product(t, owner.ID, "Green Teapot", "10")
	h.product(t, owner.ID, "Desk", "90")

	rec := h.do(http.MethodGet, "/search?q=teapot", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Green Teapot")
	assert.NotContains(t, rec.Body.String(), "Desk</h1>")
}

func TestCartRequiresLogin(t *testing.T) {
	h := newHarness(t)

	rec := h.do(http.MethodGet, "/cart", nil, nil)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/login", location(rec))
}

func TestCartCheckoutAndInvoice(t *testing.T) {
	h := newHarness(t)
	buyer, cookies := h.login(t, "buyer@test.io")
	_, otherCookies := h.login(t, "other@test.io")
	a := h.product(t, buyer.ID, "Alpha", "10")
	id := fmt.Sprint(a.ID)

	for i := 0; i < 2; i++ {
		rec := h.do(http.MethodPost, "/cart", url.Values{"productId": {id}}, cookies)
		require.Equal(t, http.StatusFound, rec.Code)
		require.Equal(t, "/cart", location(rec))
	}

	rec := h.do(http.MethodGet, "/cart", nil, cookies)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Quantity: 2")

	rec = h.do(http.MethodPost, "/cart", url.Values{"productId": {"4040"}}, cookies)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = h.do(http.MethodPost, "/create-order", url.Values{}, cookies)
	require.Equal(t, http.StatusFound, rec.Code)
	require.Equal(t, "/orders", location(rec))

	rec = h.do(http.MethodPost, "/create-order", url.Values{}, cookies)
	assert.Equal(t, "/cart", location(rec))

	rec = h.do(http.MethodGet, "/orders", nil, cookies)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Total: $20.00")

	orders, err := h.repo.ListOrders(context.Background(), buyer.ID)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	invoiceURL := fmt.Sprintf("/orders/%d/invoice", orders[0].ID)
	stored := filepath.Join(h.invoiceDir, invoice.Name(orders[0].ID))

	rec = h.do(http.MethodGet, invoiceURL, nil, otherCookies)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.NotContains(t, rec.Header().Get(echo.HeaderContentType), "application/pdf")
	_, statErr := os.Stat(stored)
	assert.True(t, os.IsNotExist(statErr))

	rec = h.do(http.MethodGet, invoiceURL, nil, cookies)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get(echo.HeaderContentType))
	assert.Equal(t, fmt.Sprintf(`inline; filename="invoice-%d.pdf"`, orders[0].ID), rec.Header().Get(echo.HeaderContentDisposition))
	assert.True(t, strings.HasPrefix(rec.Body.String(), "%PDF"))
	_, statErr = os.Stat(stored)
	assert.NoError(t, statErr)

	rec = h.do(http.MethodGet, "/orders/999/invoice", nil, cookies)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCartDeleteItem(t *testing.T) {
	h := newHarness(t)
	buyer, cookies := h.login(t, "buyer@test.io")
	a := h.product(t, buyer.ID, "Alpha", "10")

	h.do(http.MethodPost, "/cart", url.Values{"productId": {fmt.Sprint(a.ID)}}, cookies)

	for _, id := range []string{"777", "junk", fmt.Sprint(a.ID)} {
		rec := h.do(http.MethodPost, "/cart-delete-item", url.Values{"productId": {id}}, cookies)
		require.Equal(t, http.StatusFound, rec.Code, id)
		assert.Equal(t, "/cart", location(rec), id)
	}

	rec := h.do(http.MethodGet, "/cart", nil, cookies)
	assert.Contains(t, rec.Body.String(), "No Products in Cart!")
}

func TestAdminAddProductValidation(t *testing.T) {
	h := newHarness(t)
	owner, cookies := h.login(t, "owner@test.io")

	form := url.Values{
		"title":       {"Lamp"},
		"imageUrl":    {"http://img.test/lamp"},
		"price":       {"cheap"},
		"description": {"A bright lamp"},
	}
	rec := h.do(http.MethodPost, "/admin/add-product", form, cookies)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "Please enter a valid Price.")
	assert.Contains(t, rec.Body.String(), `value="Lamp"`)

	for _, price := range []string{"0.004", "1e20"} {
		form.Set("price", price)
		rec = h.do(http.MethodPost, "/admin/add-product", form, cookies)
		require.Equal(t, http.StatusUnprocessableEntity, rec.Code, price)
		assert.Contains(t, rec.Body.String(), "Please enter a valid Price.", price)
	}

	items, err := h.repo.ListProductsByOwner(context.Background(), owner.ID)
	require.NoError(t, err)
	assert.Empty(t, items)

	form.Set("price", "12.99")
	rec = h.do(http.MethodPost, "/admin/add-product", form, cookies)
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/admin/products", location(rec))

	items, err = h.repo.ListProductsByOwner(context.Background(), owner.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.True(t, decimal.RequireFromString("12.99").Equal(items[0].Price))

	rec = h.do(http.MethodGet, "/admin/products", nil, cookies)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Lamp")
}

func TestAdminEditOwnership(t *testing.T) {
	h := newHarness(t)
	owner, ownerCookies := h.login(t, "owner@test.io")
	_, intruderCookies := h.login(t, "intruder@test.io")
	p := h.product(t, owner.ID, "Chair", "40")
	id := fmt.Sprint(p.ID)

	rec := h.do(http.MethodGet, "/admin/edit-product/"+id, nil, ownerCookies)
	assert.Equal(t, "/", location(rec))

	rec = h.do(http.MethodGet, "/admin/edit-product/"+id+"?edit=true", nil, intruderCookies)
	assert.Equal(t, "/", location(rec))

	rec = h.do(http.MethodGet, "/admin/edit-product/"+id+"?edit=true", nil, ownerCookies)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `value="40.00"`)

	form := url.Values{
		"productId":   {id},
		"title":       {"Hacked"},
		"imageUrl":    {"http://img.test/x"},
		"price":       {"1"},
		"description": {"hacked product"},
	}
	rec = h.do(http.MethodPost, "/admin/edit-product", form, intruderCookies)
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/", location(rec))

	got, err := h.repo.GetProduct(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Chair", got.Title)

	form.Set("title", "ab")
	rec = h.do(http.MethodPost, "/admin/edit-product", form, ownerCookies)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), `name="productId"`)

	form.Set("title", "Armchair")
	rec = h.do(http.MethodPost, "/admin/edit-product", form, ownerCookies)
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/admin/products", location(rec))

	rec = h.do(http.MethodPost, "/admin/delete-product", url.Values{"productId": {id}}, intruderCookies)
	assert.Equal(t, "/", location(rec))
	rec = h.do(http.MethodPost, "/admin/delete-product", url.Values{"productId": {id}}, ownerCookies)
	assert.Equal(t, "/admin/products", location(rec))
	rec = h.do(http.MethodPost, "/admin/delete-product", url.Values{"productId": {id}}, ownerCookies)
	assert.Equal(t, "/", location(rec))
}

func TestAdminDeleteAPI(t *testing.T) {
	h := newHarness(t)
	owner, ownerCookies := h.login(t, "owner@test.io")
	_, intruderCookies := h.login(t, "intruder@test.io")
	p := h.product(t, owner.ID, "Stool", "25")
	target := fmt.Sprintf("/admin/product/%d", p.ID)

	message := func(rec *httptest.ResponseRecorder) string {
		var body map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		return body["message"]
	}

	rec := h.do(http.MethodDelete, target, nil, intruderCookies)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = h.do(http.MethodDelete, target, nil, ownerCookies)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Success!", message(rec))

	rec = h.do(http.MethodDelete, target, nil, ownerCookies)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCSRFRequired(t *testing.T) {
	h := newHarness(t)
	_, cookies := h.login(t, "buyer@test.io")

	req := httptest.NewRequest(http.MethodPost, "/create-order", nil)
	req.Header.Set("Origin", "http://example.com")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	h.e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestLoginFlow(t *testing.T) {
	h := newHarness(t)
	_, err := h.auth.Signup(context.Background(), "a@test.io", "secret1")
	require.NoError(t, err)

	rec := h.do(http.MethodPost, "/login", url.Values{"email": {"a@test.io"}, "password": {"badpass"}}, nil)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid email or password.")

	rec = h.do(http.MethodPost, "/login", url.Values{"email": {"A@test.io"}, "password": {"secret1"}}, nil)
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/", location(rec))

	var session []*http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == tokens.AccessCookie || c.Name == tokens.RefreshCookie {
			session = append(session, c)
		}
	}
	require.Len(t, session, 2)

	rec = h.do(http.MethodGet, "/cart", nil, session)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = h.do(http.MethodPost, "/logout", url.Values{}, session)
	assert.Equal(t, "/", location(rec))
	rec = h.do(http.MethodGet, "/cart", nil, session)
	assert.Equal(t, "/login", location(rec))
}

func TestSignupDuplicateEmail(t *testing.T) {
	h := newHarness(t)

	form := url.Values{"email": {"new@test.io"}, "password": {"secret1"}, "confirmPassword": {"secret1"}}
	rec := h.do(http.MethodPost, "/signup", form, nil)
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/login", location(rec))

	rec = h.do(http.MethodPost, "/signup", form, nil)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "E-Mail exists already, please pick a different one.")
}

func TestPasswordResetFlow(t *testing.T) {
	h := newHarness(t)
	u, _ := h.login(t, "a@test.io")

	rec := h.do(http.MethodPost, "/reset", url.Values{"email": {"ghost@test.io"}}, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = h.do(http.MethodPost, "/reset", url.Values{"email": {"a@test.io"}}, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	stored, err := h.repo.GetUser(context.Background(), u.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.ResetToken)

	rec = h.do(http.MethodGet, "/reset/"+*stored.ResetToken, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `name="passwordToken"`)

	rec = h.do(http.MethodPost, "/new-password", url.Values{
		"userId": {fmt.Sprint(u.ID)}, "passwordToken": {*stored.ResetToken}, "password": {"fresh123"},
	}, nil)
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/login", location(rec))

	_, err = h.auth.Login(context.Background(), "a@test.io", "fresh123", service.Client{})
	assert.NoError(t, err)

	rec = h.do(http.MethodGet, "/reset/"+*stored.ResetToken, nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServerErrorPage(t *testing.T) {
	h := newHarness(t)

	rec := h.do(http.MethodGet, "/500", nil, nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "Some error occurred!")
}
