package toast

import (
	"github.com/a-h/templ"
)

type Variant string

const (
	VariantDefault Variant = "default"
	VariantSuccess Variant = "success"
	VariantError   Variant = "error"
	VariantWarning Variant = "warning"
)

type Props struct {
	Title       string
	Description string
	Variant     Variant
	Dismissible bool
	Duration    int // milliseconds, 0 keeps the toast until dismissed
}

func Toast(p Props) templ.Component {
	if p.Variant == "" {
		p.Variant = VariantDefault
	}
	return toast(p)
}

// Success is the common short confirmation toast.
func Success(title, description string) templ.Component {
	return Toast(Props{
		Title:       title,
		Description: description,
		Variant:     VariantSuccess,
		Dismissible: true,
		Duration:    5000,
	})
}

// Error reports a failed operation without blocking the page.
func Error(title, description string) templ.Component {
	return Toast(Props{
		Title:       title,
		Description: description,
		Variant:     VariantError,
		Dismissible: true,
		Duration:    8000,
	})
}

func variantClass(v Variant) string {
	switch v {
	case VariantSuccess:
		return "border-green-200 bg-green-50 text-green-900"
	case VariantError:
		return "border-red-200 bg-red-50 text-red-900"
	case VariantWarning:
		return "border-yellow-200 bg-yellow-50 text-yellow-900"
	}
	return "border-gray-200 bg-white text-gray-900"
}
