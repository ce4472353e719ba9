package service

import (
	"context"
	"encoding/xml"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/sekkot/portal/internal/repository"
)

// publicRoutes are the static pages listed in the sitemap.
var publicRoutes = []struct {
	Path       string
	Priority   string
	ChangeFreq string
}{
	{"/", "1.0", "weekly"},
	{"/products", "0.9", "daily"},
	{"/login", "0.3", "monthly"},
	{"/signup", "0.3", "monthly"},
}

type Sitemap struct {
	XMLName xml.Name     `xml:"urlset"`
	XMLNS   string       `xml:"xmlns,attr"`
	URLs    []SitemapURL `xml:"url"`
}

type SitemapURL struct {
	Loc        string `xml:"loc"`
	LastMod    string `xml:"lastmod,omitempty"`
	ChangeFreq string `xml:"changefreq,omitempty"`
	Priority   string `xml:"priority,omitempty"`
}

type SitemapService struct {
	pageService *PageService
	products    repository.ProductRepository
	baseURL     string
}

func NewSitemapService(pageService *PageService, products repository.ProductRepository, baseURL string) *SitemapService {
	return &SitemapService{
		pageService: pageService,
		products:    products,
		baseURL:     strings.TrimSuffix(baseURL, "/"),
	}
}

// GenerateSitemap lists static routes, markdown pages and the catalog
// filtered by category.
func (s *SitemapService) GenerateSitemap(ctx context.Context) ([]byte, error) {
	today := time.Now().Format("2006-01-02")
	sitemap := Sitemap{XMLNS: "http://www.sitemaps.org/schemas/sitemap/0.9"}

	for _, route := range publicRoutes {
		sitemap.URLs = append(sitemap.URLs, SitemapURL{
			Loc:        s.baseURL + route.Path,
			LastMod:    today,
			ChangeFreq: route.ChangeFreq,
			Priority:   route.Priority,
		})
	}

	for _, page := range s.pageService.Pages() {
		if page.Slug == "home" {
			continue
		}
		sitemap.URLs = append(sitemap.URLs, SitemapURL{
			Loc:        s.baseURL + "/pages/" + page.Slug,
			ChangeFreq: "monthly",
			Priority:   "0.6",
		})
	}

	categories, err := s.products.Categories(ctx, true)
	if err != nil {
		slog.Warn("failed to get product categories for sitemap", "error", err)
	}
	for _, category := range categories {
		sitemap.URLs = append(sitemap.URLs, SitemapURL{
			Loc:        s.baseURL + "/products?category=" + url.QueryEscape(category),
			LastMod:    today,
			ChangeFreq: "weekly",
			Priority:   "0.7",
		})
	}

	output, err := xml.MarshalIndent(sitemap, "", "  ")
	if err != nil {
		return nil, err
	}

	return []byte(xml.Header + string(output)), nil
}
