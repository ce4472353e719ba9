package handler

import (
	"log/slog"
	"net/http"

	"github.com/sekkot/portal/internal/service"
)

type SEOHandler struct {
	sitemapService *service.SitemapService
	baseURL        string
}

func NewSEOHandler(sitemapService *service.SitemapService, baseURL string) *SEOHandler {
	return &SEOHandler{
		sitemapService: sitemapService,
		baseURL:        baseURL,
	}
}

// Robots keeps crawlers out of the portal and points them at the sitemap.
func (h *SEOHandler) Robots(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, err := w.Write([]byte("User-agent: *\n" +
		"Allow: /\n" +
		"Disallow: /dashboard\n" +
		"Disallow: /admin\n" +
		"Disallow: /auth/\n" +
		"Sitemap: " + h.baseURL + "/sitemap.xml\n"))
	if err != nil {
		slog.Error("failed to write robots.txt", "error", err)
	}
}

func (h *SEOHandler) Sitemap(w http.ResponseWriter, r *http.Request) {
	sitemap, err := h.sitemapService.GenerateSitemap(r.Context())
	if err != nil {
		slog.Error("failed to generate sitemap", "error", err)
		http.Error(w, "Failed to generate sitemap", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	_, err = w.Write(sitemap)
	if err != nil {
		slog.Error("failed to write sitemap", "error", err)
	}
}
