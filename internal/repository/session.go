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
	ErrSessionNotFound = errors.New("session not found")
)

type SessionRepository interface {
	Create(ctx context.Context, session *model.Session) error
	ByID(ctx context.Context, id string) (*model.Session, error)
	Rotate(ctx context.Context, id, oldHash, newHash string, rotatedAt, expiresAt time.Time) error
	Revoke(ctx context.Context, id string) error
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

type sessionRepository struct {
	db *sqlx.DB
}

func NewSessionRepository(db *sqlx.DB) SessionRepository {
	return &sessionRepository{db: db}
}

func (r *sessionRepository) Create(ctx context.Context, session *model.Session) error {
	query := `INSERT INTO sessions (id, user_id, token_hash, created_at, expires_at) VALUES ($1, $2, $3, $4, $5)`

	_, err := r.db.ExecContext(ctx, query,
		session.ID,
		session.UserID,
		session.TokenHash,
		session.CreatedAt,
		session.ExpiresAt,
	)
	return err
}

func (r *sessionRepository) ByID(ctx context.Context, id string) (*model.Session, error) {
	session := &model.Session{}
	query := `SELECT * FROM sessions WHERE id = $1`

	err := r.db.GetContext(ctx, session, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}

	return session, nil
}

// Rotate replaces the refresh secret hash of a live session, keeping the
// old one as previous_token_hash. It only applies while the stored hash is
// still oldHash, so of two concurrent rotations one gets ErrSessionNotFound.
func (r *sessionRepository) Rotate(ctx context.Context, id, oldHash, newHash string, rotatedAt, expiresAt time.Time) error {
	query := `UPDATE sessions
		SET token_hash = $1, previous_token_hash = token_hash, rotated_at = $2, expires_at = $3
		WHERE id = $4 AND token_hash = $5 AND revoked_at IS NULL`

	result, err := r.db.ExecContext(ctx, query, newHash, rotatedAt, expiresAt, id, oldHash)
	if err != nil {
		return err
	}

	return expectOneRow(result, ErrSessionNotFound)
}

func (r *sessionRepository) Revoke(ctx context.Context, id string) error {
	query := `UPDATE sessions SET revoked_at = $1 WHERE id = $2 AND revoked_at IS NULL`

	result, err := r.db.ExecContext(ctx, query, time.Now().UTC(), id)
	if err != nil {
		return err
	}

	return expectOneRow(result, ErrSessionNotFound)
}

func (r *sessionRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	query := `DELETE FROM sessions WHERE expires_at < $1 OR revoked_at < $1`

	result, err := r.db.ExecContext(ctx, query, before)
	if err != nil {
		return 0, err
	}

	return result.RowsAffected()
}
