package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/sekkot/portal/internal/model"
)

var (
	ErrRequirementNotFound = errors.New("requirement not found")
)

type RequirementRepository interface {
	Create(ctx context.Context, req *model.Requirement) error
	ByID(ctx context.Context, id string) (*model.Requirement, error)
	ByUser(ctx context.Context, userID string) ([]*model.Requirement, error)
	All(ctx context.Context) ([]*model.Requirement, error)
	UpdateStatus(ctx context.Context, id, status string) error
}

type requirementRepository struct {
	db *sqlx.DB
}

func NewRequirementRepository(db *sqlx.DB) RequirementRepository {
	return &requirementRepository{db: db}
}

func (r *requirementRepository) Create(ctx context.Context, req *model.Requirement) error {
	query := `INSERT INTO requirements (id, user_id, description, file_path, file_name, status, email, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.db.ExecContext(ctx, query,
		req.ID,
		req.UserID,
		req.Description,
		req.FilePath,
		req.FileName,
		req.Status,
		req.Email,
		req.CreatedAt,
	)
	return err
}

func (r *requirementRepository) ByID(ctx context.Context, id string) (*model.Requirement, error) {
	req := &model.Requirement{}
	query := `SELECT * FROM requirements WHERE id = $1`

	err := r.db.GetContext(ctx, req, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRequirementNotFound
	}
	if err != nil {
		return nil, err
	}

	return req, nil
}

func (r *requirementRepository) ByUser(ctx context.Context, userID string) ([]*model.Requirement, error) {
	var reqs []*model.Requirement
	query := `SELECT * FROM requirements WHERE user_id = $1 ORDER BY created_at DESC`

	err := r.db.SelectContext(ctx, &reqs, query, userID)
	return reqs, err
}

func (r *requirementRepository) All(ctx context.Context) ([]*model.Requirement, error) {
	var reqs []*model.Requirement
	query := `SELECT * FROM requirements ORDER BY created_at DESC`

	err := r.db.SelectContext(ctx, &reqs, query)
	return reqs, err
}

func (r *requirementRepository) UpdateStatus(ctx context.Context, id, status string) error {
	query := `UPDATE requirements SET status = $1 WHERE id = $2`

	result, err := r.db.ExecContext(ctx, query, status, id)
	if err != nil {
		return err
	}

	return expectOneRow(result, ErrRequirementNotFound)
}
