package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/sekkot/portal/internal/model"
)

var (
	ErrProductNotFound = errors.New("product not found")
)

// ProductFilter narrows a product listing. Zero value lists everything.
type ProductFilter struct {
	ActiveOnly bool
	Category   string
	Search     string
}

type ProductRepository interface {
	Create(ctx context.Context, product *model.Product) error
	ByID(ctx context.Context, id string) (*model.Product, error)
	Products(ctx context.Context, filter ProductFilter) ([]*model.Product, error)
	Categories(ctx context.Context, activeOnly bool) ([]string, error)
	Update(ctx context.Context, product *model.Product) error
	Delete(ctx context.Context, id string) error

	CreateRequirement(ctx context.Context, req *model.ProductRequirement) error
	Requirements(ctx context.Context, limit int) ([]*model.ProductRequirement, error)
}

type productRepository struct {
	db *sqlx.DB
}

func NewProductRepository(db *sqlx.DB) ProductRepository {
	return &productRepository{db: db}
}

func (r *productRepository) Create(ctx context.Context, product *model.Product) error {
	query := `INSERT INTO products (id, name, category, description, image, status, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.db.ExecContext(ctx, query,
		product.ID,
		product.Name,
		product.Category,
		product.Description,
		product.Image,
		product.Status,
		product.CreatedAt,
	)
	return err
}

func (r *productRepository) ByID(ctx context.Context, id string) (*model.Product, error) {
	product := &model.Product{}
	query := `SELECT * FROM products WHERE id = $1`

	err := r.db.GetContext(ctx, product, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, err
	}

	return product, nil
}

// Products lists products newest first.
func (r *productRepository) Products(ctx context.Context, filter ProductFilter) ([]*model.Product, error) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.ActiveOnly {
		where = append(where, "status = "+arg(model.ProductStatusActive))
	}
	if filter.Category != "" {
		where = append(where, "category = "+arg(filter.Category))
	}
	if term := strings.TrimSpace(filter.Search); term != "" {
		p := arg("%" + strings.ToLower(term) + "%")
		where = append(where, "(LOWER(name) LIKE "+p+" OR LOWER(description) LIKE "+p+")")
	}

	query := `SELECT * FROM products`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY created_at DESC`

	var products []*model.Product
	err := r.db.SelectContext(ctx, &products, query, args...)
	return products, err
}

func (r *productRepository) Categories(ctx context.Context, activeOnly bool) ([]string, error) {
	query := `SELECT DISTINCT category FROM products ORDER BY category`
	args := []any{}
	if activeOnly {
		query = `SELECT DISTINCT category FROM products WHERE status = $1 ORDER BY category`
		args = append(args, model.ProductStatusActive)
	}

	var categories []string
	err := r.db.SelectContext(ctx, &categories, query, args...)
	return categories, err
}

func (r *productRepository) Update(ctx context.Context, product *model.Product) error {
	query := `UPDATE products SET name = $1, category = $2, description = $3, image = $4, status = $5 WHERE id = $6`

	result, err := r.db.ExecContext(ctx, query,
		product.Name,
		product.Category,
		product.Description,
		product.Image,
		product.Status,
		product.ID,
	)
	if err != nil {
		return err
	}

	return expectOneRow(result, ErrProductNotFound)
}

func (r *productRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return err
	}

	return expectOneRow(result, ErrProductNotFound)
}

func (r *productRepository) CreateRequirement(ctx context.Context, req *model.ProductRequirement) error {
	query := `INSERT INTO product_requirements (id, product_id, customer_name, email, quantity, customization_notes, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.db.ExecContext(ctx, query,
		req.ID,
		req.ProductID,
		req.CustomerName,
		req.Email,
		req.Quantity,
		req.CustomizationNotes,
		req.CreatedAt,
	)
	return err
}

// Requirements returns the most recent quote requests.
func (r *productRepository) Requirements(ctx context.Context, limit int) ([]*model.ProductRequirement, error) {
	var reqs []*model.ProductRequirement
	query := `SELECT * FROM product_requirements ORDER BY created_at DESC LIMIT $1`

	err := r.db.SelectContext(ctx, &reqs, query, limit)
	return reqs, err
}
