package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/a-h/templ"
	"github.com/sekkot/portal/internal/model"
	"github.com/sekkot/portal/internal/repository"
	"github.com/sekkot/portal/internal/service"
	"github.com/sekkot/portal/internal/ui"
	"github.com/sekkot/portal/internal/ui/components/toast"
	"github.com/sekkot/portal/internal/ui/pages"
	"github.com/sekkot/portal/internal/validation"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const adminQuoteLimit = 50

type AdminHandler struct {
	requirementService *service.RequirementService
	productService     *service.ProductService
	catalogService     *service.CatalogService
}

func NewAdminHandler(requirementService *service.RequirementService, productService *service.ProductService, catalogService *service.CatalogService) *AdminHandler {
	return &AdminHandler{
		requirementService: requirementService,
		productService:     productService,
		catalogService:     catalogService,
	}
}

func (h *AdminHandler) AdminPage(w http.ResponseWriter, r *http.Request) {
	h.renderAdmin(w, r, nil)
}

func (h *AdminHandler) renderAdmin(w http.ResponseWriter, r *http.Request, imported *service.ImportResult) {
	reqs, err := h.requirementService.All(r.Context())
	if err != nil {
		fail(w, r, err)
		return
	}

	products, err := h.productService.All(r.Context())
	if err != nil {
		fail(w, r, err)
		return
	}

	quotes, err := h.productService.Quotes(r.Context(), adminQuoteLimit)
	if err != nil {
		fail(w, r, err)
		return
	}

	ui.Render(w, r, pages.Admin(pages.AdminData{
		Requirements: reqs,
		Products:     products,
		Quotes:       quoteRows(quotes, products),
		Import:       imported,
	}))
}

func quoteRows(quotes []*model.ProductRequirement, products []*model.Product) []pages.QuoteRow {
	names := make(map[string]string, len(products))
	for _, p := range products {
		names[p.ID] = p.Name
	}

	rows := make([]pages.QuoteRow, 0, len(quotes))
	for _, q := range quotes {
		rows = append(rows, pages.QuoteRow{ProductRequirement: q, ProductName: names[q.ProductID]})
	}
	return rows
}

// UpdateStatus sets a requirement's status, notifies the submitter and
// re-renders the table from the datastore.
func (h *AdminHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	status := r.FormValue("status")

	err := h.requirementService.UpdateStatus(r.Context(), id, status)
	switch {
	case errors.Is(err, service.ErrInvalidStatus):
		http.Error(w, "invalid status", http.StatusBadRequest)
		return
	case errors.Is(err, repository.ErrRequirementNotFound):
		notFound(w, r)
		return
	case err != nil:
		toastError(w, r, err, "requirement_id", id)
		return
	}

	h.renderRequirements(w, r, toast.Success("Status updated", "Requirement marked as "+cases.Title(language.English).String(status)))
}

// Respond sends the submitter a message about their requirement.
func (h *AdminHandler) Respond(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	err := h.requirementService.Respond(r.Context(), id, r.FormValue("message"))

	var errs validation.Errors
	switch {
	case errors.As(err, &errs):
		w.Header().Set("HX-Reswap", "none")
		ui.RenderOOB(w, r, toast.Error(errs[validation.FieldMessage], ""), "beforeend:#toast-container")
		return
	case errors.Is(err, repository.ErrRequirementNotFound):
		notFound(w, r)
		return
	case err != nil:
		toastError(w, r, err, "requirement_id", id)
		return
	}

	h.renderRequirements(w, r, toast.Success("Response sent", "The customer will see it on their dashboard"))
}

func (h *AdminHandler) renderRequirements(w http.ResponseWriter, r *http.Request, notice templ.Component) {
	reqs, err := h.requirementService.All(r.Context())
	if err != nil {
		toastError(w, r, err)
		return
	}

	ui.Render(w, r, pages.AdminRequirements(reqs))
	ui.RenderOOB(w, r, notice, "beforeend:#toast-container")
}

// Download redirects to a short-lived link to the requirement's attachment.
func (h *AdminHandler) Download(w http.ResponseWriter, r *http.Request) {
	req, err := h.requirementService.ByID(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, repository.ErrRequirementNotFound) {
			notFound(w, r)
			return
		}
		fail(w, r, err)
		return
	}

	url, err := h.requirementService.DownloadURL(r.Context(), req)
	if err != nil {
		fail(w, r, err, "requirement_id", req.ID)
		return
	}

	http.Redirect(w, r, url, http.StatusFound)
}

func (h *AdminHandler) ExportRequirements(w http.ResponseWriter, r *http.Request) {
	filename := fmt.Sprintf("requirements-%s.xlsx", time.Now().Format("20060102"))

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))

	err := h.catalogService.ExportRequirements(r.Context(), w)
	if err != nil {
		slog.Error("failed to export requirements", "error", err)
		w.Header().Del("Content-Disposition")
		http.Error(w, "Failed to export requirements", http.StatusInternalServerError)
	}
}

func (h *AdminHandler) NewProductPage(w http.ResponseWriter, r *http.Request) {
	ui.Render(w, r, pages.ProductForm(pages.ProductFormData{
		Input: validation.ProductInput{Status: model.ProductStatusActive},
	}))
}

func (h *AdminHandler) EditProductPage(w http.ResponseWriter, r *http.Request) {
	product, ok := h.product(w, r)
	if !ok {
		return
	}

	ui.Render(w, r, pages.ProductForm(pages.ProductFormData{
		Product: product,
		Input: validation.ProductInput{
			Name:        product.Name,
			Category:    product.Category,
			Description: product.Description,
			Status:      product.Status,
		},
	}))
}

func (h *AdminHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	in, image, err := productForm(r)
	if err != nil {
		slog.Warn("failed to read product image", "error", err)
	}

	_, err = h.productService.Create(r.Context(), in, image)
	if err != nil {
		h.productFormError(w, r, nil, in, err)
		return
	}

	http.Redirect(w, r, "/admin", http.StatusSeeOther)
}

func (h *AdminHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	product, ok := h.product(w, r)
	if !ok {
		return
	}

	in, image, err := productForm(r)
	if err != nil {
		slog.Warn("failed to read product image", "error", err, "product_id", product.ID)
	}

	_, err = h.productService.Update(r.Context(), product.ID, in, image)
	if err != nil {
		h.productFormError(w, r, product, in, err)
		return
	}

	http.Redirect(w, r, "/admin", http.StatusSeeOther)
}

// DeleteProduct removes a product and re-renders the product table.
func (h *AdminHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	err := h.productService.Delete(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			notFound(w, r)
			return
		}
		toastError(w, r, err, "product_id", id)
		return
	}

	products, err := h.productService.All(r.Context())
	if err != nil {
		toastError(w, r, err)
		return
	}

	ui.Render(w, r, pages.AdminProducts(products))
	ui.RenderOOB(w, r, toast.Success("Product deleted", ""), "beforeend:#toast-container")
}

// ImportProducts loads products from an uploaded .xlsx sheet and shows the
// dashboard with the outcome.
func (h *AdminHandler) ImportProducts(w http.ResponseWriter, r *http.Request) {
	header, err := formFile(r, "file")
	if err != nil || header == nil {
		ui.RenderStatus(w, r, http.StatusBadRequest, pages.Error("Please select an .xlsx file to import."))
		return
	}

	err = validation.ValidateFile(header, validation.SpreadsheetConstraints)
	if err != nil {
		ui.RenderStatus(w, r, http.StatusBadRequest, pages.Error(err.Error()))
		return
	}

	file, err := header.Open()
	if err != nil {
		fail(w, r, err)
		return
	}
	defer func() { _ = file.Close() }()

	result, err := h.catalogService.ImportProducts(r.Context(), file)
	if err != nil {
		slog.Warn("product import failed", "error", err, "file", header.Filename)
		ui.RenderStatus(w, r, http.StatusBadRequest, pages.Error(err.Error()))
		return
	}

	slog.Info("products imported", "created", result.Created, "skipped", len(result.Skipped))
	h.renderAdmin(w, r, result)
}

func (h *AdminHandler) product(w http.ResponseWriter, r *http.Request) (*model.Product, bool) {
	product, err := h.productService.ByID(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			notFound(w, r)
			return nil, false
		}
		fail(w, r, err)
		return nil, false
	}
	return product, true
}

func (h *AdminHandler) productFormError(w http.ResponseWriter, r *http.Request, product *model.Product, in validation.ProductInput, err error) {
	data := pages.ProductFormData{Product: product, Input: in}

	var errs validation.Errors
	switch {
	case errors.As(err, &errs):
		data.Errors = errs
		ui.RenderStatus(w, r, http.StatusUnprocessableEntity, pages.ProductForm(data))
	case errors.Is(err, repository.ErrProductNotFound):
		notFound(w, r)
	default:
		slog.Error("product save failed", "error", err)
		data.Error = failMessage(err) + ". Please try again."
		ui.RenderStatus(w, r, http.StatusBadGateway, pages.ProductForm(data))
	}
}

func productForm(r *http.Request) (validation.ProductInput, *multipart.FileHeader, error) {
	in := validation.ProductInput{
		Name:        r.FormValue("name"),
		Category:    r.FormValue("category"),
		Description: r.FormValue("description"),
		Status:      strings.TrimSpace(r.FormValue("status")),
	}
	image, err := formFile(r, "image")
	return in, image, err
}
