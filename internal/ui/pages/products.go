package pages

import "github.com/sekkot/portal/internal/validation"

// QuoteFormData carries the product by id and name only, so a rejected
// submission re-renders from the form values alone.
type QuoteFormData struct {
	ProductID   string
	ProductName string
	Input       validation.QuoteInput
	Errors      validation.Errors
	Sent        bool
}

func quoteURL(productID string) string {
	return "/products/" + productID + "/quote"
}
