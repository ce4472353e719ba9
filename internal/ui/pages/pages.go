package pages

import (
	"github.com/sekkot/portal/internal/ui/layouts"
)

func meta(title string) layouts.Meta {
	return layouts.Meta{Title: title}
}
