package service

import (
	"context"
	"errors"
	"log/slog"
	"mime/multipart"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sekkot/portal/internal/model"
	"github.com/sekkot/portal/internal/repository"
	"github.com/sekkot/portal/internal/validation"
)

// CategoryAll is the catalog filter that shows every category.
const CategoryAll = "All"

// Catalog is the public product listing.
type Catalog struct {
	Products   []*model.Product
	Categories []string
	Category   string
	Search     string
}

type ProductService struct {
	productRepository repository.ProductRepository
	fileService       *FileService
	emailService      *EmailService
	adminEmail        string
}

func NewProductService(productRepository repository.ProductRepository, fileService *FileService, emailService *EmailService, adminEmail string) *ProductService {
	return &ProductService{
		productRepository: productRepository,
		fileService:       fileService,
		emailService:      emailService,
		adminEmail:        adminEmail,
	}
}

// Catalog lists active products, optionally narrowed to one category and a
// search term matched against name and description.
func (s *ProductService) Catalog(ctx context.Context, category, search string) (*Catalog, error) {
	if category == CategoryAll {
		category = ""
	}

	products, err := s.productRepository.Products(ctx, repository.ProductFilter{
		ActiveOnly: true,
		Category:   category,
		Search:     search,
	})
	if err != nil {
		return nil, remote("load products", err)
	}

	categories, err := s.productRepository.Categories(ctx, true)
	if err != nil {
		return nil, remote("load categories", err)
	}

	if category == "" {
		category = CategoryAll
	}

	return &Catalog{
		Products:   products,
		Categories: append([]string{CategoryAll}, categories...),
		Category:   category,
		Search:     strings.TrimSpace(search),
	}, nil
}

// Featured returns up to n active products, newest first.
func (s *ProductService) Featured(ctx context.Context, n int) ([]*model.Product, error) {
	products, err := s.productRepository.Products(ctx, repository.ProductFilter{ActiveOnly: true})
	if err != nil {
		return nil, remote("load products", err)
	}
	if len(products) > n {
		products = products[:n]
	}
	return products, nil
}

// All lists every product for the admin dashboard.
func (s *ProductService) All(ctx context.Context) ([]*model.Product, error) {
	products, err := s.productRepository.Products(ctx, repository.ProductFilter{})
	if err != nil {
		return nil, remote("load products", err)
	}
	return products, nil
}

func (s *ProductService) ByID(ctx context.Context, id string) (*model.Product, error) {
	product, err := s.productRepository.ByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return nil, err
		}
		return nil, remote("load product", err)
	}
	return product, nil
}

// Create adds a product. An image, when given, is uploaded first and
// removed again if the insert fails.
func (s *ProductService) Create(ctx context.Context, in validation.ProductInput, image *multipart.FileHeader) (*model.Product, error) {
	if errs := validation.ValidateProduct(in, image); len(errs) > 0 {
		return nil, errs
	}

	product := &model.Product{
		ID:          uuid.New().String(),
		Name:        strings.TrimSpace(in.Name),
		Category:    strings.TrimSpace(in.Category),
		Description: strings.TrimSpace(in.Description),
		Status:      in.Status,
		CreatedAt:   time.Now().UTC(),
	}

	var key string
	if image != nil {
		var err error
		key, err = s.fileService.Put(ctx, FolderProducts, image)
		if err != nil {
			return nil, remote("upload image", err)
		}
		product.Image = s.fileService.PublicURL(key)
	}

	err := s.productRepository.Create(ctx, product)
	if err != nil {
		s.fileService.Remove(ctx, key)
		return nil, remote("create product", err)
	}

	slog.Info("product created", "product_id", product.ID, "name", product.Name)
	return product, nil
}

// Update edits a product. A new image replaces the stored one.
func (s *ProductService) Update(ctx context.Context, id string, in validation.ProductInput, image *multipart.FileHeader) (*model.Product, error) {
	if errs := validation.ValidateProduct(in, image); len(errs) > 0 {
		return nil, errs
	}

	product, err := s.ByID(ctx, id)
	if err != nil {
		return nil, err
	}

	oldImage := product.Image
	product.Name = strings.TrimSpace(in.Name)
	product.Category = strings.TrimSpace(in.Category)
	product.Description = strings.TrimSpace(in.Description)
	product.Status = in.Status

	var key string
	if image != nil {
		key, err = s.fileService.Put(ctx, FolderProducts, image)
		if err != nil {
			return nil, remote("upload image", err)
		}
		product.Image = s.fileService.PublicURL(key)
	}

	err = s.productRepository.Update(ctx, product)
	if err != nil {
		s.fileService.Remove(ctx, key)
		return nil, remote("update product", err)
	}

	if key != "" {
		if oldKey, ok := s.fileService.KeyFromURL(oldImage); ok {
			s.fileService.Remove(ctx, oldKey)
		}
	}

	return product, nil
}

func (s *ProductService) Delete(ctx context.Context, id string) error {
	product, err := s.ByID(ctx, id)
	if err != nil {
		return err
	}

	err = s.productRepository.Delete(ctx, id)
	if err != nil {
		return remote("delete product", err)
	}

	if key, ok := s.fileService.KeyFromURL(product.Image); ok {
		s.fileService.Remove(ctx, key)
	}

	slog.Info("product deleted", "product_id", id)
	return nil
}

// RequestQuote records a quote request for an active product. Invalid input
// is rejected before anything is read or written.
func (s *ProductService) RequestQuote(ctx context.Context, productID string, in validation.QuoteInput) (*model.ProductRequirement, error) {
	if errs := validation.ValidateQuote(in); len(errs) > 0 {
		return nil, errs
	}

	product, err := s.ByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if !product.IsActive() {
		return nil, repository.ErrProductNotFound
	}

	req := &model.ProductRequirement{
		ID:                 uuid.New().String(),
		ProductID:          product.ID,
		CustomerName:       strings.TrimSpace(in.Name),
		Email:              strings.TrimSpace(strings.ToLower(in.Email)),
		Quantity:           in.Quantity,
		CustomizationNotes: strings.TrimSpace(in.Notes),
		CreatedAt:          time.Now().UTC(),
	}

	err = s.productRepository.CreateRequirement(ctx, req)
	if err != nil {
		return nil, remote("submit requirement", err)
	}

	err = s.emailService.SendQuoteRequestEmail(ctx, s.adminEmail, product.Name, req.CustomerName, req.Quantity)
	if err != nil {
		slog.Warn("failed to email admin about quote request", "error", err, "product_id", product.ID)
	}

	return req, nil
}

// Quotes returns recent quote requests for the admin dashboard.
func (s *ProductService) Quotes(ctx context.Context, limit int) ([]*model.ProductRequirement, error) {
	reqs, err := s.productRepository.Requirements(ctx, limit)
	if err != nil {
		return nil, remote("load quote requests", err)
	}
	return reqs, nil
}
