package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jmoiron/sqlx"
	"github.com/sekkot/portal/internal/ctxkeys"
	"github.com/sekkot/portal/internal/db/dbtest"
	"github.com/sekkot/portal/internal/model"
	"github.com/sekkot/portal/internal/realtime"
	"github.com/sekkot/portal/internal/repository"
	"github.com/sekkot/portal/internal/service"
	"github.com/sekkot/portal/internal/storage/storagetest"
)

// countingProducts counts catalog reads.
type countingProducts struct {
	repository.ProductRepository
	reads atomic.Int32
}

func (c *countingProducts) ByID(ctx context.Context, id string) (*model.Product, error) {
	c.reads.Add(1)
	return c.ProductRepository.ByID(ctx, id)
}

func (c *countingProducts) Products(ctx context.Context, filter repository.ProductFilter) ([]*model.Product, error) {
	c.reads.Add(1)
	return c.ProductRepository.Products(ctx, filter)
}

func newProductHandler(t *testing.T) (*ProductHandler, *sqlx.DB, *model.Product) {
	h, database, product, _ := newCountingProductHandler(t)
	return h, database, product
}

func newCountingProductHandler(t *testing.T) (*ProductHandler, *sqlx.DB, *model.Product, *countingProducts) {
	t.Helper()

	database := dbtest.New(t)
	products := &countingProducts{ProductRepository: repository.NewProductRepository(database)}
	product := &model.Product{
		ID:        uuid.New().String(),
		Name:      "Ball valve",
		Category:  "Valves",
		Status:    model.ProductStatusActive,
		CreatedAt: time.Now().UTC(),
	}
	if err := products.Create(context.Background(), product); err != nil {
		t.Fatal(err)
	}

	email := service.NewEmailService("", "noreply@example.com", "http://localhost", "Test", true)
	files := service.NewFileService(storagetest.NewMemoryStorage("http://localhost/files"), time.Hour)
	products.reads.Store(0)
	return NewProductHandler(service.NewProductService(products, files, email, "admin@example.com")), database, product, products
}

func quoteRequest(productID string, form url.Values, htmx bool) *http.Request {
	r := httptest.NewRequest(http.MethodPost, "/products/"+productID+"/quote", strings.NewReader(form.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if htmx {
		r.Header.Set("HX-Request", "true")
	}
	r.SetPathValue("id", productID)
	return r
}

func TestRequestQuoteZeroQuantity(t *testing.T) {
	h, database, product := newProductHandler(t)

	form := url.Values{"name": {"Asha"}, "email": {"asha@example.com"}, "quantity": {"0"}}
	w := httptest.NewRecorder()
	h.RequestQuote(w, quoteRequest(product.ID, form, false))

	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", w.Code)
	}
	if !strings.Contains(w.Body.String(), "Quantity must be at least 1") {
		t.Fatal("quantity message not rendered")
	}

	var n int
	if err := database.Get(&n, "SELECT COUNT(*) FROM product_requirements"); err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Fatalf("stored %d quote requests, want 0", n)
	}
}

func TestRequestQuoteInvalidSkipsCatalog(t *testing.T) {
	h, _, product, products := newCountingProductHandler(t)

	form := url.Values{"product_name": {product.Name}, "name": {"Asha"}, "email": {"not-an-email"}, "quantity": {"3"}}
	w := httptest.NewRecorder()
	h.RequestQuote(w, quoteRequest(product.ID, form, true))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, "Request a quote for Ball valve") {
		t.Fatal("product name not carried from the form")
	}
	if !strings.Contains(body, `action="/products/`+product.ID+`/quote"`) {
		t.Fatal("form action lost the product id")
	}
	if n := products.reads.Load(); n != 0 {
		t.Fatalf("invalid quote read the catalog %d times, want 0", n)
	}
}

func TestRequestQuoteHTMX(t *testing.T) {
	h, database, product := newProductHandler(t)

	form := url.Values{"name": {"Asha"}, "email": {"asha@example.com"}, "quantity": {"12"}, "notes": {"Stainless"}}
	w := httptest.NewRecorder()
	h.RequestQuote(w, quoteRequest(product.ID, form, true))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	body := w.Body.String()
	if strings.Contains(body, "<html") {
		t.Fatal("htmx response should be the bare form")
	}
	if !strings.Contains(body, "Thank you") {
		t.Fatal("confirmation not rendered")
	}

	var quantity int
	if err := database.Get(&quantity, "SELECT quantity FROM product_requirements WHERE product_id = $1", product.ID); err != nil {
		t.Fatal(err)
	}
	if quantity != 12 {
		t.Fatalf("quantity = %d, want 12", quantity)
	}
}

func TestRequestQuoteUnknownProduct(t *testing.T) {
	h, _, _ := newProductHandler(t)

	form := url.Values{"name": {"Asha"}, "email": {"asha@example.com"}, "quantity": {"1"}}
	w := httptest.NewRecorder()
	h.RequestQuote(w, quoteRequest(uuid.New().String(), form, false))

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

func TestMarkReadRefetches(t *testing.T) {
	database := dbtest.New(t)
	broker := realtime.NewMemoryBroker()
	t.Cleanup(func() { _ = broker.Close() })

	now := time.Now().UTC()
	user := &model.User{ID: uuid.New().String(), Email: "buyer@example.com", EmailConfirmedAt: &now, CreatedAt: now}
	if err := repository.NewUserRepository(database).Create(context.Background(), user); err != nil {
		t.Fatal(err)
	}

	notifications := service.NewNotificationService(repository.NewNotificationRepository(database), broker)
	first, err := notifications.Create(context.Background(), user.ID, "Requirement Completed", "Done", model.NotificationTypeResponse)
	if err != nil {
		t.Fatal(err)
	}
	second, err := notifications.Create(context.Background(), user.ID, "Requirement Pending", "Working on it", model.NotificationTypeResponse)
	if err != nil {
		t.Fatal(err)
	}

	h := NewDashboardHandler(notifications, nil)

	r := httptest.NewRequest(http.MethodPost, "/dashboard/notifications/"+first.ID+"/read", nil)
	r.Header.Set("HX-Request", "true")
	r.SetPathValue("id", first.ID)
	r = r.WithContext(ctxkeys.WithUser(r.Context(), user))

	w := httptest.NewRecorder()
	h.MarkRead(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	body := w.Body.String()
	if strings.Contains(body, "/dashboard/notifications/"+first.ID+"/read") {
		t.Error("read notification still offers mark as read")
	}
	if !strings.Contains(body, "/dashboard/notifications/"+second.ID+"/read") {
		t.Error("unread notification lost its action")
	}
	if !strings.Contains(body, "1 unread") {
		t.Error("unread count not refreshed")
	}

	// Another user's notification is not found.
	r = httptest.NewRequest(http.MethodPost, "/dashboard/notifications/"+second.ID+"/read", nil)
	r.SetPathValue("id", second.ID)
	r = r.WithContext(ctxkeys.WithUser(r.Context(), &model.User{ID: uuid.New().String()}))
	w = httptest.NewRecorder()
	h.MarkRead(w, r)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

func TestRobots(t *testing.T) {
	h := NewSEOHandler(nil, "https://example.com")

	w := httptest.NewRecorder()
	h.Robots(w, httptest.NewRequest(http.MethodGet, "/robots.txt", nil))

	body := w.Body.String()
	for _, want := range []string{"Disallow: /admin", "Disallow: /dashboard", "Sitemap: https://example.com/sitemap.xml"} {
		if !strings.Contains(body, want) {
			t.Errorf("robots.txt missing %q", want)
		}
	}
}

func TestSafeNext(t *testing.T) {
	tests := map[string]string{
		"":                  "/dashboard",
		"/admin":            "/admin",
		"/products?q=valve": "/products?q=valve",
		"//evil.example":    "/dashboard",
		"/\\evil.example":   "/dashboard",
		"https://evil.test": "/dashboard",
	}
	for in, want := range tests {
		if got := safeNext(in); got != want {
			t.Errorf("safeNext(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestRedirectHTMX(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/logout", nil)
	r.Header.Set("HX-Request", "true")
	w := httptest.NewRecorder()
	redirect(w, r, "/")

	if w.Code != http.StatusOK || w.Header().Get("HX-Redirect") != "/" {
		t.Fatalf("got %d %q, want 200 with HX-Redirect", w.Code, w.Header().Get("HX-Redirect"))
	}
}

func TestNotificationsWSReleasesSubscription(t *testing.T) {
	ctx := context.Background()
	database := dbtest.New(t)
	broker := realtime.NewMemoryBroker()
	t.Cleanup(func() { _ = broker.Close() })

	now := time.Now().UTC()
	user := &model.User{ID: uuid.New().String(), Email: "buyer@example.com", EmailConfirmedAt: &now, CreatedAt: now}
	if err := repository.NewUserRepository(database).Create(ctx, user); err != nil {
		t.Fatal(err)
	}

	notifications := service.NewNotificationService(repository.NewNotificationRepository(database), broker)
	h := NewDashboardHandler(notifications, nil)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.NotificationsWS(w, r.WithContext(ctxkeys.WithUser(r.Context(), user)))
	}))
	defer srv.Close()

	c, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer func() { _ = c.Close() }()

	readFrame := func() string {
		t.Helper()
		_ = c.SetReadDeadline(time.Now().Add(5 * time.Second))
		_, msg, err := c.ReadMessage()
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		return string(msg)
	}

	first := readFrame()
	if !strings.Contains(first, `hx-swap-oob="true"`) || !strings.Contains(first, "No notifications yet.") {
		t.Fatalf("initial frame = %s", first)
	}
	if n := broker.Subscribers(user.ID); n != 1 {
		t.Fatalf("subscribers while connected = %d, want 1", n)
	}

	_, err = notifications.Create(ctx, user.ID, "Requirement Completed", "Your flanges are ready", model.NotificationTypeResponse)
	if err != nil {
		t.Fatal(err)
	}

	pushed := readFrame()
	for _, want := range []string{`<section id="notifications" hx-swap-oob="true"`, "Requirement Completed", "1 unread"} {
		if !strings.Contains(pushed, want) {
			t.Errorf("pushed frame missing %q", want)
		}
	}

	if err := c.Close(); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for broker.Subscribers(user.ID) != 0 {
		if time.Now().After(deadline) {
			t.Fatal("subscription not released after the client closed")
		}
		time.Sleep(10 * time.Millisecond)
	}
}
