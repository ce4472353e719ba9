package validation

import (
	"mime/multipart"
	"strings"
)

const (
	FieldName        = "name"
	FieldEmail       = "email"
	FieldQuantity    = "quantity"
	FieldDescription = "description"
	FieldFile        = "file"
	FieldCategory    = "category"
	FieldStatus      = "status"
	FieldImage       = "image"
	FieldMessage     = "message"
)

// QuoteInput is the product quote request form.
type QuoteInput struct {
	Name     string
	Email    string
	Quantity int
	Notes    string
}

func ValidateQuote(in QuoteInput) Errors {
	errs := Errors{}

	if err := ValidateName(in.Name); err != nil {
		errs.Add(FieldName, err.Error())
	}

	email := strings.TrimSpace(in.Email)
	switch {
	case email == "":
		errs.Add(FieldEmail, "Email is required")
	case !IsEmail(email):
		errs.Add(FieldEmail, "Invalid email format")
	}

	if in.Quantity < 1 {
		errs.Add(FieldQuantity, "Quantity must be at least 1")
	}

	return errs
}

// ValidateRequirement checks the submit-requirement form. header may be nil.
func ValidateRequirement(description string, header *multipart.FileHeader) Errors {
	errs := Errors{}

	if strings.TrimSpace(description) == "" {
		errs.Add(FieldDescription, "Description is required")
	}

	if header == nil {
		errs.Add(FieldFile, "Please select a file to upload")
	} else if err := ValidateFile(header, RequirementConstraints); err != nil {
		errs.Add(FieldFile, err.Error())
	}

	return errs
}

// ProductInput is the admin product form.
type ProductInput struct {
	Name        string
	Category    string
	Description string
	Status      string
}

func ValidateProduct(in ProductInput, image *multipart.FileHeader) Errors {
	errs := Errors{}

	if err := ValidateName(in.Name); err != nil {
		errs.Add(FieldName, err.Error())
	}
	if strings.TrimSpace(in.Category) == "" {
		errs.Add(FieldCategory, "Category is required")
	}
	if in.Status != "active" && in.Status != "inactive" {
		errs.Add(FieldStatus, "Status must be active or inactive")
	}
	if image != nil {
		if err := ValidateFile(image, ImageConstraints); err != nil {
			errs.Add(FieldImage, err.Error())
		}
	}

	return errs
}
