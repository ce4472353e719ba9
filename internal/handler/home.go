package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/sekkot/portal/internal/model"
	"github.com/sekkot/portal/internal/service"
	"github.com/sekkot/portal/internal/ui"
	"github.com/sekkot/portal/internal/ui/pages"
)

const featuredProducts = 6

type HomeHandler struct {
	productService *service.ProductService
	pageService    *service.PageService
}

func NewHomeHandler(productService *service.ProductService, pageService *service.PageService) *HomeHandler {
	return &HomeHandler{
		productService: productService,
		pageService:    pageService,
	}
}

// HomePage shows the landing page. A catalog outage only hides the
// featured products.
func (h *HomeHandler) HomePage(w http.ResponseWriter, r *http.Request) {
	featured, err := h.productService.Featured(r.Context(), featuredProducts)
	if err != nil {
		slog.Error("failed to load featured products", "error", err)
		featured = []*model.Product{}
	}

	ui.Render(w, r, pages.Home(featured))
}

func (h *HomeHandler) ContentPage(w http.ResponseWriter, r *http.Request) {
	page, err := h.pageService.Page(r.PathValue("slug"))
	if err != nil {
		if errors.Is(err, service.ErrPageNotFound) {
			notFound(w, r)
			return
		}
		fail(w, r, err)
		return
	}

	ui.Render(w, r, pages.ContentPage(page))
}

func (h *HomeHandler) NotFoundPage(w http.ResponseWriter, r *http.Request) {
	notFound(w, r)
}
