package model

import (
	"time"
)

// Session is a signed-in browser session. AccessToken and RefreshToken are
// only populated when the session is issued or refreshed; the stored row
// keeps a hash of the refresh secret.
type Session struct {
	ID        string     `db:"id"`
	UserID    string     `db:"user_id"`
	TokenHash string     `db:"token_hash"`
	CreatedAt time.Time  `db:"created_at"`
	ExpiresAt time.Time  `db:"expires_at"`
	RevokedAt *time.Time `db:"revoked_at"`

	// The secret replaced by the last rotation, honoured for a short grace
	// window so concurrent refreshes from one browser do not sign it out.
	PreviousTokenHash *string    `db:"previous_token_hash"`
	RotatedAt         *time.Time `db:"rotated_at"`

	Email        string    `db:"-"`
	AccessToken  string    `db:"-"`
	RefreshToken string    `db:"-"`
	AccessExpiry time.Time `db:"-"`
}

func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}

func (s *Session) IsActive() bool {
	return s.RevokedAt == nil && !s.IsExpired()
}
