package service

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sekkot/portal/internal/markdown"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var ErrPageNotFound = errors.New("page not found")

// Page is a marketing page written in markdown under content/pages.
type Page struct {
	Title       string
	Slug        string
	Description string
	Content     string
	Order       int
	LastUpdated string
}

type pageMeta struct {
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	Order       int    `yaml:"order"`
	LastUpdated string `yaml:"lastUpdated"`
}

type PageService struct {
	contentDir string
	reload     bool
	parser     *markdown.Parser

	mu    sync.RWMutex
	pages map[string]*Page
}

// NewPageService reads pages from contentDir/pages. With reload set every
// lookup rereads the directory, for editing copy in development.
func NewPageService(contentDir string, reload bool) *PageService {
	return &PageService{
		contentDir: filepath.Join(contentDir, "pages"),
		reload:     reload,
		parser:     markdown.NewParser(),
		pages:      make(map[string]*Page),
	}
}

func (s *PageService) Load() error {
	files, err := os.ReadDir(s.contentDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read pages directory: %w", err)
	}

	pages := make(map[string]*Page, len(files))
	for _, file := range files {
		if file.IsDir() || !strings.HasSuffix(file.Name(), ".md") {
			continue
		}

		slug := strings.TrimSuffix(file.Name(), ".md")
		page, err := s.loadPage(slug)
		if err != nil {
			return fmt.Errorf("failed to load page %s: %w", slug, err)
		}
		pages[slug] = page
	}

	s.mu.Lock()
	s.pages = pages
	s.mu.Unlock()
	return nil
}

func (s *PageService) loadPage(slug string) (*Page, error) {
	filePath := filepath.Join(s.contentDir, slug+".md")
	content, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var meta pageMeta
	html, err := s.parser.ParseWithFrontmatter(content, &meta)
	if err != nil {
		return nil, fmt.Errorf("failed to parse markdown: %w", err)
	}

	title := meta.Title
	if title == "" {
		title = cases.Title(language.English).String(strings.ReplaceAll(slug, "-", " "))
	}

	lastUpdated := formatDate(meta.LastUpdated)
	if lastUpdated == "" {
		info, err := os.Stat(filePath)
		if err != nil {
			return nil, fmt.Errorf("failed to get file info: %w", err)
		}
		lastUpdated = info.ModTime().Format("January 2, 2006")
	}

	return &Page{
		Title:       title,
		Slug:        slug,
		Description: meta.Description,
		Content:     string(html),
		Order:       meta.Order,
		LastUpdated: lastUpdated,
	}, nil
}

func (s *PageService) Page(slug string) (*Page, error) {
	if s.reload {
		if err := s.Load(); err != nil {
			return nil, err
		}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	page, ok := s.pages[slug]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPageNotFound, slug)
	}
	return page, nil
}

// Pages returns all pages ordered by their order field, then title.
func (s *PageService) Pages() []*Page {
	s.mu.RLock()
	defer s.mu.RUnlock()

	pages := make([]*Page, 0, len(s.pages))
	for _, p := range s.pages {
		pages = append(pages, p)
	}
	sort.Slice(pages, func(i, j int) bool {
		if pages[i].Order != pages[j].Order {
			return pages[i].Order < pages[j].Order
		}
		return pages[i].Title < pages[j].Title
	})
	return pages
}

func formatDate(value string) string {
	if value == "" {
		return ""
	}

	formats := []string{
		"2006-01-02",
		"2006/01/02",
		"January 2, 2006",
		time.RFC3339,
	}
	for _, format := range formats {
		t, err := time.Parse(format, value)
		if err == nil {
			return t.Format("January 2, 2006")
		}
	}

	return value
}
