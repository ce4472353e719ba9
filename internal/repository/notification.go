package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/sekkot/portal/internal/model"
)

var (
	ErrNotificationNotFound = errors.New("notification not found")
)

type NotificationRepository interface {
	Create(ctx context.Context, n *model.Notification) error
	ByUser(ctx context.Context, userID string) ([]*model.Notification, error)
	MarkRead(ctx context.Context, userID, id string) (bool, error)
	CountUnread(ctx context.Context, userID string) (int, error)
}

type notificationRepository struct {
	db *sqlx.DB
}

func NewNotificationRepository(db *sqlx.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) Create(ctx context.Context, n *model.Notification) error {
	query := `INSERT INTO notifications (id, user_id, title, message, type, read, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.db.ExecContext(ctx, query,
		n.ID,
		n.UserID,
		n.Title,
		n.Message,
		n.Type,
		n.Read,
		n.CreatedAt,
	)
	return err
}

// ByUser returns the user's notifications, newest first.
func (r *notificationRepository) ByUser(ctx context.Context, userID string) ([]*model.Notification, error) {
	var ns []*model.Notification
	query := `SELECT * FROM notifications WHERE user_id = $1 ORDER BY created_at DESC`

	err := r.db.SelectContext(ctx, &ns, query, userID)
	return ns, err
}

// MarkRead sets read on a notification owned by userID. It reports whether
// the row changed; an already read notification returns false and no error.
func (r *notificationRepository) MarkRead(ctx context.Context, userID, id string) (bool, error) {
	query := `UPDATE notifications SET read = TRUE WHERE id = $1 AND user_id = $2 AND read = FALSE`

	result, err := r.db.ExecContext(ctx, query, id, userID)
	if err != nil {
		return false, err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	if rows > 0 {
		return true, nil
	}

	var exists int
	err = r.db.GetContext(ctx, &exists, `SELECT COUNT(*) FROM notifications WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return false, err
	}
	if exists == 0 {
		return false, ErrNotificationNotFound
	}

	return false, nil
}

func (r *notificationRepository) CountUnread(ctx context.Context, userID string) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND read = FALSE`

	err := r.db.GetContext(ctx, &count, query, userID)
	return count, err
}
