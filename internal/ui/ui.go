//go:generate go tool templ generate

package ui

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	twmerge "github.com/Oudwins/tailwind-merge-go"
	"github.com/sekkot/portal/internal/config"
	"github.com/sekkot/portal/internal/ctxkeys"
	"github.com/sekkot/portal/internal/model"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Cx merges tailwind classes, later classes winning over earlier ones.
func Cx(classes ...string) string {
	return twmerge.Merge(classes...)
}

// AppConfig returns the request's config, or an empty one outside a request.
func AppConfig(ctx context.Context) *config.Config {
	if cfg := ctxkeys.Config(ctx); cfg != nil {
		return cfg
	}
	return &config.Config{}
}

// Title builds the document title for a page.
func Title(ctx context.Context, page string) string {
	name := AppConfig(ctx).AppName
	if page == "" {
		return name
	}
	if name == "" {
		return page
	}
	return page + " | " + name
}

// CSRFHeaders is the hx-headers value that makes htmx send the CSRF token.
func CSRFHeaders(ctx context.Context) string {
	b, _ := json.Marshal(map[string]string{"X-CSRF-Token": ctxkeys.CSRFToken(ctx)})
	return string(b)
}

type NavLink struct {
	Label string
	Href  string
}

var navLinks = []NavLink{
	{Label: "Home", Href: "/"},
	{Label: "Products", Href: "/products"},
	{Label: "About", Href: "/pages/about"},
	{Label: "Submit Requirement", Href: "/submit-requirement"},
}

func NavLinks() []NavLink {
	return navLinks
}

func IsActive(current, href string) bool {
	if href == "/" {
		return current == "/"
	}
	return current == href || strings.HasPrefix(current, href+"/")
}

// NavClass is the class for a nav link, highlighted when href is current.
func NavClass(ctx context.Context, href string) string {
	if IsActive(ctxkeys.URLPath(ctx), href) {
		return Cx("text-gray-600 hover:text-gray-900", "font-semibold text-gray-900")
	}
	return "text-gray-600 hover:text-gray-900"
}

func Date(t time.Time) string {
	return t.Format("Jan 2, 2006")
}

func DateTime(t time.Time) string {
	return t.Format("Jan 2, 2006 15:04")
}

var titleCaser = cases.Title(language.English)

// Label turns a stored status like "in_review" into "In Review".
func Label(s string) string {
	return titleCaser.String(strings.ReplaceAll(s, "_", " "))
}

func StatusClass(status string) string {
	switch status {
	case model.RequirementStatusCompleted, model.ProductStatusActive:
		return "bg-green-100 text-green-800"
	case model.RequirementStatusRejected, model.ProductStatusInactive:
		return "bg-red-100 text-red-800"
	case model.RequirementStatusPending:
		return "bg-yellow-100 text-yellow-800"
	}
	return "bg-blue-100 text-blue-800"
}

// RequirementStatuses are the statuses an admin can move a requirement to.
func RequirementStatuses() []string {
	return []string{model.RequirementStatusPending, model.RequirementStatusCompleted, model.RequirementStatusRejected}
}
