package model

import "time"

// AdminFlag marks a user as admin. At most one row per user.
type AdminFlag struct {
	UserID    string    `db:"user_id"`
	IsAdmin   bool      `db:"is_admin"`
	CreatedAt time.Time `db:"created_at"`
}
