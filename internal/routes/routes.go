package routes

import (
	"context"
	"io/fs"
	"net/http"
	"time"

	"github.com/sekkot/portal/assets"
	"github.com/sekkot/portal/internal/app"
	"github.com/sekkot/portal/internal/handler"
	"github.com/sekkot/portal/internal/middleware"
)

const (
	authRateLimit  = 10
	authRateWindow = time.Minute
)

// SetupRoutes builds the router. The rate limiter cleanup runs until ctx
// is done.
func SetupRoutes(ctx context.Context, app *app.App) http.Handler {
	// Handlers
	home := handler.NewHomeHandler(app.ProductService, app.PageService)
	seo := handler.NewSEOHandler(app.SitemapService, app.Cfg.AppURL)
	auth := handler.NewAuthHandler(app.Auth, app.Sessions)
	oauth := handler.NewOAuthHandler(auth, app.Cfg)
	products := handler.NewProductHandler(app.ProductService)
	dashboard := handler.NewDashboardHandler(app.NotificationService, app.RequirementService)
	requirement := handler.NewRequirementHandler(app.RequirementService)
	admin := handler.NewAdminHandler(app.RequirementService, app.ProductService, app.CatalogService)

	mux := http.NewServeMux()

	// ============================================================================
	// PUBLIC ROUTES
	// ============================================================================

	// Static files
	sub, _ := fs.Sub(assets.AssetsFS, ".")
	mux.Handle("GET /assets/", http.StripPrefix("/assets/", http.FileServer(http.FS(sub))))

	// SEO
	mux.HandleFunc("GET /robots.txt", seo.Robots)
	mux.HandleFunc("GET /sitemap.xml", seo.Sitemap)

	// Home and content
	mux.HandleFunc("GET /{$}", home.HomePage)
	mux.HandleFunc("GET /pages/{slug}", home.ContentPage)

	// Products
	mux.HandleFunc("GET /products", products.ProductsPage)
	mux.HandleFunc("GET /products/{id}/quote", products.QuotePage)
	mux.HandleFunc("POST /products/{id}/quote", products.RequestQuote)

	// Auth (rate limited)
	limiter := middleware.NewRateLimiter(authRateLimit, authRateWindow)
	go limiter.Run(ctx)

	mux.HandleFunc("GET /login", middleware.RequireGuest(auth.LoginPage))
	mux.HandleFunc("POST /login", limiter.Limit(middleware.RequireGuest(auth.Login)))
	mux.HandleFunc("GET /signup", middleware.RequireGuest(auth.SignupPage))
	mux.HandleFunc("POST /signup", limiter.Limit(middleware.RequireGuest(auth.Signup)))
	mux.HandleFunc("GET /reset-password", middleware.RequireGuest(auth.ForgotPasswordPage))
	mux.HandleFunc("POST /reset-password", limiter.Limit(middleware.RequireGuest(auth.ForgotPassword)))
	mux.HandleFunc("POST /logout", auth.Logout)

	// Token links
	mux.HandleFunc("GET /auth/confirm/{token}", auth.ConfirmEmail)
	mux.HandleFunc("GET /auth/reset-password/{token}", auth.ResetPasswordPage)
	mux.HandleFunc("POST /auth/reset-password/{token}", limiter.Limit(auth.ResetPassword))

	// OAuth
	mux.HandleFunc("GET /auth/{provider}", limiter.Limit(middleware.RequireGuest(oauth.Start)))
	mux.HandleFunc("GET /auth/google/callback", limiter.Limit(oauth.Callback("google")))
	mux.HandleFunc("GET /auth/github/callback", limiter.Limit(oauth.Callback("github")))

	// ============================================================================
	// PROTECTED ROUTES
	// ============================================================================

	mux.HandleFunc("GET /dashboard", middleware.RequireUser(dashboard.DashboardPage))
	mux.HandleFunc("POST /dashboard/notifications/{id}/read", middleware.RequireUser(dashboard.MarkRead))
	mux.HandleFunc("GET /dashboard/notifications/ws", middleware.RequireUser(dashboard.NotificationsWS))

	mux.HandleFunc("GET /submit-requirement", middleware.RequireUser(requirement.SubmitPage))
	mux.HandleFunc("POST /submit-requirement", middleware.RequireUser(requirement.Submit))

	// ============================================================================
	// ADMIN ROUTES
	// ============================================================================

	mux.HandleFunc("GET /admin", middleware.RequireAdmin(admin.AdminPage))

	// Requirements
	mux.HandleFunc("POST /admin/requirements/{id}/status", middleware.RequireAdmin(admin.UpdateStatus))
	mux.HandleFunc("POST /admin/requirements/{id}/respond", middleware.RequireAdmin(admin.Respond))
	mux.HandleFunc("GET /admin/requirements/{id}/download", middleware.RequireAdmin(admin.Download))
	mux.HandleFunc("GET /admin/requirements/export", middleware.RequireAdmin(admin.ExportRequirements))

	// Products
	mux.HandleFunc("GET /admin/products/new", middleware.RequireAdmin(admin.NewProductPage))
	mux.HandleFunc("GET /admin/products/{id}/edit", middleware.RequireAdmin(admin.EditProductPage))
	mux.HandleFunc("POST /admin/products", middleware.RequireAdmin(admin.CreateProduct))
	mux.HandleFunc("POST /admin/products/import", middleware.RequireAdmin(admin.ImportProducts))
	mux.HandleFunc("POST /admin/products/{id}", middleware.RequireAdmin(admin.UpdateProduct))
	mux.HandleFunc("DELETE /admin/products/{id}", middleware.RequireAdmin(admin.DeleteProduct))

	// ============================================================================
	// FALLBACK
	// ============================================================================

	// 404
	mux.HandleFunc("/{path...}", home.NotFoundPage)

	// Global middleware - executed in order (top to bottom)
	return middleware.Chain(
		mux,
		middleware.Config(app.Cfg), // Config must be first (needed by SecurityHeaders for S3 endpoint)
		middleware.Nonce,           // CSP nonce, before SecurityHeaders
		middleware.SecurityHeaders,
		middleware.RequestLogging,
		middleware.CSRFProtection,
		middleware.Auth(app.Sessions, app.Auth),
		middleware.WithURLPath,
	)
}
