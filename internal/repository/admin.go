package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/sekkot/portal/internal/model"
)

var (
	ErrAdminFlagNotFound = errors.New("admin flag not found")
)

// AdminEntry is an admin flag joined with the account email.
type AdminEntry struct {
	UserID    string    `db:"user_id"`
	Email     string    `db:"email"`
	CreatedAt time.Time `db:"created_at"`
}

type AdminRepository interface {
	Flag(ctx context.Context, userID string) (*model.AdminFlag, error)
	Set(ctx context.Context, userID string, isAdmin bool) error
	Admins(ctx context.Context) ([]*AdminEntry, error)
}

type adminRepository struct {
	db *sqlx.DB
}

func NewAdminRepository(db *sqlx.DB) AdminRepository {
	return &adminRepository{db: db}
}

func (r *adminRepository) Flag(ctx context.Context, userID string) (*model.AdminFlag, error) {
	flag := &model.AdminFlag{}
	query := `SELECT * FROM admins WHERE user_id = $1`

	err := r.db.GetContext(ctx, flag, query, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAdminFlagNotFound
	}
	if err != nil {
		return nil, err
	}

	return flag, nil
}

// Set upserts the flag, keeping one row per user.
func (r *adminRepository) Set(ctx context.Context, userID string, isAdmin bool) error {
	query := `
		INSERT INTO admins (user_id, is_admin, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE SET is_admin = excluded.is_admin
	`
	_, err := r.db.ExecContext(ctx, query, userID, isAdmin, time.Now().UTC())
	return err
}

func (r *adminRepository) Admins(ctx context.Context) ([]*AdminEntry, error) {
	var entries []*AdminEntry
	query := `
		SELECT a.user_id, u.email, a.created_at
		FROM admins a
		JOIN users u ON u.id = a.user_id
		WHERE a.is_admin = TRUE
		ORDER BY u.email
	`
	err := r.db.SelectContext(ctx, &entries, query)
	return entries, err
}
