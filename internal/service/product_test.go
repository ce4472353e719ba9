package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sekkot/portal/internal/model"
	"github.com/sekkot/portal/internal/repository"
	"github.com/sekkot/portal/internal/service"
	"github.com/sekkot/portal/internal/storage/storagetest"
	"github.com/sekkot/portal/internal/validation"
)

// countingProducts fails the test on any datastore call.
type countingProducts struct {
	repository.ProductRepository
	t     *testing.T
	calls int
}

func (c *countingProducts) ByID(ctx context.Context, id string) (*model.Product, error) {
	c.calls++
	c.t.Errorf("unexpected ByID(%q)", id)
	return nil, repository.ErrProductNotFound
}

func (c *countingProducts) CreateRequirement(ctx context.Context, req *model.ProductRequirement) error {
	c.calls++
	c.t.Error("unexpected CreateRequirement")
	return nil
}

func TestRequestQuoteZeroQuantity(t *testing.T) {
	repo := &countingProducts{t: t}
	email := service.NewEmailService("", "noreply@example.com", "http://localhost", "Test", true)
	files := service.NewFileService(storagetest.NewMemoryStorage("http://files.test"), time.Hour)
	products := service.NewProductService(repo, files, email, adminEmail)

	_, err := products.RequestQuote(context.Background(), "p1", validation.QuoteInput{
		Name:     "Asha",
		Email:    "asha@example.com",
		Quantity: 0,
	})

	var errs validation.Errors
	if !errors.As(err, &errs) {
		t.Fatalf("err = %v, want validation.Errors", err)
	}
	if errs[validation.FieldQuantity] != "Quantity must be at least 1" {
		t.Fatalf("quantity message = %q", errs[validation.FieldQuantity])
	}
	if repo.calls != 0 {
		t.Fatalf("datastore calls = %d, want 0", repo.calls)
	}
}

var png = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func TestProductLifecycle(t *testing.T) {
	ctx := context.Background()
	store := storagetest.NewMemoryStorage("http://files.test")
	f := newFixture(t, store)

	valve, err := f.products.Create(ctx, validation.ProductInput{
		Name:     "Ball valve",
		Category: "Valves",
		Status:   model.ProductStatusActive,
	}, upload(t, "valve.png", png))
	if err != nil {
		t.Fatal(err)
	}
	if store.Len() != 1 || valve.Image == "" {
		t.Fatalf("image not stored: len=%d image=%q", store.Len(), valve.Image)
	}

	_, err = f.products.Create(ctx, validation.ProductInput{
		Name:        "Pipe flange",
		Category:    "Flanges",
		Description: "Forged steel",
		Status:      model.ProductStatusActive,
	}, nil)
	if err != nil {
		t.Fatal(err)
	}
	_, err = f.products.Create(ctx, validation.ProductInput{
		Name:     "Old gasket",
		Category: "Seals",
		Status:   model.ProductStatusInactive,
	}, nil)
	if err != nil {
		t.Fatal(err)
	}

	catalog, err := f.products.Catalog(ctx, service.CategoryAll, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(catalog.Products) != 2 {
		t.Fatalf("active products = %d, want 2", len(catalog.Products))
	}
	if catalog.Categories[0] != service.CategoryAll {
		t.Fatalf("categories = %v", catalog.Categories)
	}

	catalog, err = f.products.Catalog(ctx, "", "forged")
	if err != nil {
		t.Fatal(err)
	}
	if len(catalog.Products) != 1 || catalog.Products[0].Name != "Pipe flange" {
		t.Fatalf("search results = %+v", catalog.Products)
	}

	updated, err := f.products.Update(ctx, valve.ID, validation.ProductInput{
		Name:     "Ball valve DN50",
		Category: "Valves",
		Status:   model.ProductStatusActive,
	}, upload(t, "valve2.png", png))
	if err != nil {
		t.Fatal(err)
	}
	if updated.Image == valve.Image || store.Len() != 1 {
		t.Fatalf("old image not replaced: len=%d", store.Len())
	}

	if err := f.products.Delete(ctx, valve.ID); err != nil {
		t.Fatal(err)
	}
	if store.Len() != 0 {
		t.Fatalf("image left after delete: %d", store.Len())
	}
	if _, err := f.products.ByID(ctx, valve.ID); !errors.Is(err, repository.ErrProductNotFound) {
		t.Fatalf("deleted product lookup: %v", err)
	}
}

func TestRequestQuote(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, storagetest.NewMemoryStorage("http://files.test"))

	product, err := f.products.Create(ctx, validation.ProductInput{
		Name:     "Ball valve",
		Category: "Valves",
		Status:   model.ProductStatusActive,
	}, nil)
	if err != nil {
		t.Fatal(err)
	}

	quote, err := f.products.RequestQuote(ctx, product.ID, validation.QuoteInput{
		Name:     "Asha",
		Email:    "Asha@Example.com",
		Quantity: 40,
		Notes:    "PN16",
	})
	if err != nil {
		t.Fatal(err)
	}
	if quote.Email != "asha@example.com" || quote.Quantity != 40 {
		t.Fatalf("quote = %+v", quote)
	}

	quotes, err := f.products.Quotes(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(quotes) != 1 || quotes[0].ProductID != product.ID {
		t.Fatalf("quotes = %+v", quotes)
	}

	_, err = f.products.RequestQuote(ctx, "missing", validation.QuoteInput{Name: "Asha", Email: "asha@example.com", Quantity: 1})
	if !errors.Is(err, repository.ErrProductNotFound) {
		t.Fatalf("missing product: %v", err)
	}
}
