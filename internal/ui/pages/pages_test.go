package pages

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/a-h/templ"
	"github.com/sekkot/portal/internal/authctx"
	"github.com/sekkot/portal/internal/config"
	"github.com/sekkot/portal/internal/ctxkeys"
	"github.com/sekkot/portal/internal/model"
	"github.com/sekkot/portal/internal/service"
	"github.com/sekkot/portal/internal/ui/components/toast"
	"github.com/sekkot/portal/internal/validation"
)

func renderCtx(state authctx.State) context.Context {
	ctx := ctxkeys.WithConfig(context.Background(), &config.Config{
		AppName:      "Sekkot Engineering",
		ContactEmail: "sales@example.com",
	})
	ctx = ctxkeys.WithCSRFToken(ctx, "csrf-123")
	ctx = ctxkeys.WithURLPath(ctx, "/dashboard")
	ctx = templ.WithNonce(ctx, "nonce-abc")
	return ctxkeys.WithAuth(ctx, state)
}

func render(t *testing.T, ctx context.Context, c templ.Component) string {
	t.Helper()

	var buf bytes.Buffer
	if err := c.Render(ctx, &buf); err != nil {
		t.Fatalf("render: %v", err)
	}
	return buf.String()
}

func TestPagesRender(t *testing.T) {
	now := time.Now()
	user := &model.User{ID: "u1", Email: "buyer@example.com"}
	product := &model.Product{ID: "p1", Name: "Ball valve", Category: "Valves", Status: model.ProductStatusActive, CreatedAt: now}
	req := &model.Requirement{ID: "r1", UserID: "u1", Description: "Flanges", FileName: "drawing.pdf", Status: model.RequirementStatusNew, Email: user.Email, CreatedAt: now}
	note := &model.Notification{ID: "n1", UserID: "u1", Title: "Requirement Completed", Message: "Done", Type: "completed", CreatedAt: now}
	catalog := &service.Catalog{Products: []*model.Product{product}, Categories: []string{service.CategoryAll, "Valves"}, Category: service.CategoryAll}

	components := map[string]templ.Component{
		"home":               Home([]*model.Product{product}),
		"content":            ContentPage(&service.Page{Title: "About", Slug: "about", Content: "<p>We export.</p>", LastUpdated: "2025-01-01"}),
		"not found":          NotFound(),
		"error":              Error("Something went wrong"),
		"loading":            Loading("/admin"),
		"login":              Login(AuthForm{Email: "buyer@example.com", Next: "/admin", Error: "Invalid email or password"}),
		"signup":             Signup(AuthForm{}),
		"check email":        CheckEmail("buyer@example.com", "Check your inbox"),
		"forgot password":    ForgotPassword(AuthForm{}),
		"reset password":     ResetPassword("tok", ""),
		"products":           Products(catalog),
		"product grid":       ProductGrid(catalog),
		"quote":              Quote(QuoteFormData{ProductID: product.ID, ProductName: product.Name}),
		"dashboard":          Dashboard(DashboardData{Notifications: NotificationsData{Items: []*model.Notification{note}, Unread: 1}, Requirements: []*model.Requirement{req}}),
		"notifications":      Notifications(NotificationsData{Items: []*model.Notification{note}, Unread: 1, OOB: true}),
		"submit requirement": SubmitRequirement(SubmitRequirementData{Errors: validation.Errors{validation.FieldFile: "Please select a file to upload"}}),
		"admin": Admin(AdminData{
			Requirements: []*model.Requirement{req},
			Products:     []*model.Product{product},
			Quotes:       []QuoteRow{{ProductRequirement: &model.ProductRequirement{ID: "q1", ProductID: "p1", CustomerName: "Asha", Email: "asha@example.com", Quantity: 4, CreatedAt: now}, ProductName: "Ball valve"}},
			Import:       &service.ImportResult{Created: 1, Skipped: []string{"row 3: category: Category is required"}},
		}),
		"admin requirements": AdminRequirements([]*model.Requirement{req}),
		"admin products":     AdminProducts([]*model.Product{product}),
		"new product":        ProductForm(ProductFormData{}),
		"edit product":       ProductForm(ProductFormData{Product: product, Input: validation.ProductInput{Name: "Ball valve", Category: "Valves", Status: "active"}}),
		"toast":              toast.Success("Saved", "Product updated"),
	}

	ctx := renderCtx(authctx.State{User: user, IsAdmin: true})
	for name, c := range components {
		t.Run(name, func(t *testing.T) {
			if out := render(t, ctx, c); strings.TrimSpace(out) == "" {
				t.Fatal("empty output")
			}
		})
	}
}

func TestLayout(t *testing.T) {
	out := render(t, renderCtx(authctx.State{}), Home(nil))

	for _, want := range []string{
		`mailto:sales@example.com`,
		`csrf-123`,
		`nonce-abc`,
		`href="/products"`,
		`href="/login"`,
		`id="toast-container"`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("layout missing %q", want)
		}
	}
	if strings.Contains(out, `href="/admin"`) {
		t.Error("anonymous layout links to admin")
	}

	out = render(t, renderCtx(authctx.State{User: &model.User{ID: "u1", Email: "ops@example.com"}, IsAdmin: true}), Home(nil))
	if !strings.Contains(out, `href="/admin"`) {
		t.Error("admin layout should link to admin")
	}
}

func TestQuoteFormErrors(t *testing.T) {
	in := validation.QuoteInput{Name: "Asha", Email: "asha@example.com"}

	out := render(t, renderCtx(authctx.State{}), QuoteForm(QuoteFormData{
		ProductID:   "p1",
		ProductName: "Ball valve",
		Input:       in,
		Errors:      validation.ValidateQuote(in),
	}))
	for _, want := range []string{
		"Quantity must be at least 1",
		`action="/products/p1/quote"`,
		`name="product_name" value="Ball valve"`,
		"Request a quote for Ball valve",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("quote form missing %q", want)
		}
	}
}

func TestNotificationsMarkRead(t *testing.T) {
	unread := &model.Notification{ID: "n1", Title: "New", CreatedAt: time.Now()}
	read := &model.Notification{ID: "n2", Title: "Old", Read: true, CreatedAt: time.Now()}

	out := render(t, renderCtx(authctx.State{}), Notifications(NotificationsData{Items: []*model.Notification{unread, read}, Unread: 1}))
	if !strings.Contains(out, "/dashboard/notifications/n1/read") {
		t.Fatal("unread notification has no mark read action")
	}
	if strings.Contains(out, "/dashboard/notifications/n2/read") {
		t.Fatal("read notification should not offer mark read")
	}
	if strings.Contains(out, "hx-swap-oob") {
		t.Fatal("inline panel should not be out of band")
	}

	out = render(t, renderCtx(authctx.State{}), Notifications(NotificationsData{OOB: true}))
	if !strings.Contains(out, `<section id="notifications" hx-swap-oob="true"`) {
		t.Fatalf("pushed panel is not out of band: %s", out)
	}
}

func TestAdminStatusButtons(t *testing.T) {
	req := &model.Requirement{ID: "r1", Status: model.RequirementStatusPending, CreatedAt: time.Now()}

	out := render(t, renderCtx(authctx.State{}), AdminRequirements([]*model.Requirement{req}))
	for _, status := range []string{"pending", "completed", "rejected"} {
		want := `hx-vals="{&#34;status&#34;:&#34;` + status + `&#34;}"`
		if !strings.Contains(out, want) {
			t.Errorf("missing status button %q", want)
		}
	}
}
