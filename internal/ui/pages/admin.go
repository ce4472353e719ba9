package pages

import (
	"encoding/json"

	"github.com/sekkot/portal/internal/model"
	"github.com/sekkot/portal/internal/service"
	"github.com/sekkot/portal/internal/validation"
)

// QuoteRow is a quote request with the name of the product it is for.
type QuoteRow struct {
	*model.ProductRequirement
	ProductName string
}

type AdminData struct {
	Requirements []*model.Requirement
	Products     []*model.Product
	Quotes       []QuoteRow
	Import       *service.ImportResult
}

type ProductFormData struct {
	Product *model.Product
	Input   validation.ProductInput
	Errors  validation.Errors
	Error   string
}

func (d ProductFormData) title() string {
	if d.Product != nil {
		return "Edit product"
	}
	return "New product"
}

func (d ProductFormData) action() string {
	if d.Product != nil {
		return "/admin/products/" + d.Product.ID
	}
	return "/admin/products"
}

// statusVals is the hx-vals payload for a status button.
func statusVals(status string) string {
	b, _ := json.Marshal(map[string]string{"status": status})
	return string(b)
}
