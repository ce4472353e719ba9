package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/sekkot/portal/internal/repository"
	"github.com/sekkot/portal/internal/service"
	"github.com/sekkot/portal/internal/ui"
	"github.com/sekkot/portal/internal/ui/pages"
	"github.com/sekkot/portal/internal/validation"
)

type ProductHandler struct {
	productService *service.ProductService
}

func NewProductHandler(productService *service.ProductService) *ProductHandler {
	return &ProductHandler{productService: productService}
}

// ProductsPage lists the catalog. The filter form swaps only the grid.
func (h *ProductHandler) ProductsPage(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	catalog, err := h.productService.Catalog(r.Context(), q.Get("category"), q.Get("q"))
	if err != nil {
		fail(w, r, err)
		return
	}

	if isHTMX(r) && r.Header.Get("HX-Target") == "product-grid" {
		ui.Render(w, r, pages.ProductGrid(catalog))
		return
	}
	ui.Render(w, r, pages.Products(catalog))
}

func (h *ProductHandler) QuotePage(w http.ResponseWriter, r *http.Request) {
	product, err := h.productService.ByID(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			notFound(w, r)
			return
		}
		fail(w, r, err)
		return
	}
	if !product.IsActive() {
		notFound(w, r)
		return
	}

	data := pages.QuoteFormData{
		ProductID:   product.ID,
		ProductName: product.Name,
		Input:       validation.QuoteInput{Quantity: 1},
	}
	if isHTMX(r) {
		ui.Render(w, r, pages.QuoteForm(data))
		return
	}
	ui.Render(w, r, pages.Quote(data))
}

// RequestQuote records a quote request. Invalid input re-renders the form
// with field messages from the posted values and touches no storage.
func (h *ProductHandler) RequestQuote(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	data := pages.QuoteFormData{ProductID: id, ProductName: r.FormValue("product_name")}

	quantity, err := strconv.Atoi(strings.TrimSpace(r.FormValue("quantity")))
	if err != nil {
		quantity = 0
	}
	in := validation.QuoteInput{
		Name:     r.FormValue("name"),
		Email:    r.FormValue("email"),
		Quantity: quantity,
		Notes:    r.FormValue("notes"),
	}

	_, err = h.productService.RequestQuote(r.Context(), id, in)

	var errs validation.Errors
	switch {
	case errors.As(err, &errs):
		data.Input, data.Errors = in, errs
		h.renderQuote(w, r, http.StatusUnprocessableEntity, data)
	case errors.Is(err, repository.ErrProductNotFound):
		notFound(w, r)
	case err != nil:
		fail(w, r, err, "product_id", id)
	default:
		data.Sent = true
		h.renderQuote(w, r, http.StatusOK, data)
	}
}

// renderQuote answers htmx with the bare form and 200, since htmx does not
// swap error responses.
func (h *ProductHandler) renderQuote(w http.ResponseWriter, r *http.Request, status int, data pages.QuoteFormData) {
	if isHTMX(r) {
		ui.Render(w, r, pages.QuoteForm(data))
		return
	}
	ui.RenderStatus(w, r, status, pages.Quote(data))
}
