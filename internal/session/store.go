package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sekkot/portal/internal/model"
	"github.com/sekkot/portal/internal/repository"
)

// Provider is the identity provider behind the store.
type Provider interface {
	User(ctx context.Context, id string) (*model.User, error)
	Authenticate(ctx context.Context, email, password string) (*model.User, error)
	Register(ctx context.Context, email, password string, autoConfirm bool) (*model.User, error)
	ConfirmEmail(ctx context.Context, token string) (*model.User, error)
	SendPasswordReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, newPassword string) (*model.User, error)
	AuthenticateOAuth(ctx context.Context, email, provider string) (*model.User, error)
}

type Options struct {
	JWTSecret     string
	AccessExpiry  time.Duration
	SessionExpiry time.Duration
	AutoConfirm   bool
	Secure        bool // cookies over HTTPS only

	// RefreshGrace is how long the refresh secret replaced by a rotation
	// still gets a new access token. Zero disables reuse.
	RefreshGrace time.Duration
}

// Store issues, restores, refreshes and revokes sessions, and publishes
// every change on its event stream.
type Store struct {
	provider Provider
	sessions repository.SessionRepository
	opts     Options
	now      func() time.Time

	mu        sync.RWMutex
	listeners map[uint64]func(Event)
	nextID    uint64
}

func NewStore(provider Provider, sessions repository.SessionRepository, opts Options) *Store {
	return &Store{
		provider:  provider,
		sessions:  sessions,
		opts:      opts,
		now:       time.Now,
		listeners: make(map[uint64]func(Event)),
	}
}

func (s *Store) SignIn(ctx context.Context, email, password string) (*model.Session, error) {
	user, err := s.provider.Authenticate(ctx, email, password)
	if err != nil {
		return nil, newAuthError(err)
	}
	return s.start(ctx, user)
}

// SignUp registers an account. The session is nil while the address
// still needs confirming.
func (s *Store) SignUp(ctx context.Context, email, password string) (*model.Session, error) {
	user, err := s.provider.Register(ctx, email, password, s.opts.AutoConfirm)
	if err != nil {
		return nil, newAuthError(err)
	}
	if !user.IsConfirmed() {
		return nil, nil
	}
	return s.start(ctx, user)
}

func (s *Store) SignOut(ctx context.Context, sess *model.Session) error {
	if sess == nil {
		return nil
	}

	err := s.sessions.Revoke(ctx, sess.ID)
	if err != nil && !errors.Is(err, repository.ErrSessionNotFound) {
		return newAuthError(fmt.Errorf("failed to revoke session: %w", err))
	}

	slog.Info("user signed out", "user_id", sess.UserID, "session_id", sess.ID)
	s.emit(Event{Type: EventSignedOut, Session: sess})
	return nil
}

// ResetPassword sends a reset link. The current session is unchanged.
func (s *Store) ResetPassword(ctx context.Context, email string) error {
	err := s.provider.SendPasswordReset(ctx, email)
	if err != nil {
		return newAuthError(err)
	}
	return nil
}

// CompletePasswordReset sets the new password and signs the user in.
func (s *Store) CompletePasswordReset(ctx context.Context, token, newPassword string) (*model.Session, error) {
	user, err := s.provider.ResetPassword(ctx, token, newPassword)
	if err != nil {
		return nil, newAuthError(err)
	}
	return s.start(ctx, user)
}

// ConfirmEmail consumes a confirmation link and signs the user in.
func (s *Store) ConfirmEmail(ctx context.Context, token string) (*model.Session, error) {
	user, err := s.provider.ConfirmEmail(ctx, token)
	if err != nil {
		return nil, newAuthError(err)
	}
	return s.start(ctx, user)
}

func (s *Store) SignInWithOAuth(ctx context.Context, email, provider string) (*model.Session, error) {
	user, err := s.provider.AuthenticateOAuth(ctx, email, provider)
	if err != nil {
		return nil, newAuthError(err)
	}
	return s.start(ctx, user)
}

// Restore rebuilds the session persisted in the browser. An expired access
// token is refreshed with the refresh token.
func (s *Store) Restore(ctx context.Context, accessToken, refreshToken string) (*model.Session, error) {
	if accessToken != "" {
		claims, err := s.parseAccess(accessToken)
		if err == nil {
			row, err := s.sessions.ByID(ctx, claims.SessionID)
			if err != nil {
				if errors.Is(err, repository.ErrSessionNotFound) {
					return nil, ErrNoSession
				}
				return nil, fmt.Errorf("failed to load session: %w", err)
			}
			if !row.IsActive() {
				return nil, ErrNoSession
			}

			row.Email = claims.Email
			row.AccessToken = accessToken
			row.AccessExpiry = claims.ExpiresAt.Time
			return row, nil
		}
	}

	if refreshToken == "" {
		return nil, ErrNoSession
	}
	return s.Refresh(ctx, refreshToken)
}

// Refresh rotates the refresh secret and issues a new access token. Only
// one of several concurrent refreshes with the same secret rotates; the
// others, and any reuse of the replaced secret within RefreshGrace, get an
// access token with an empty RefreshToken.
func (s *Store) Refresh(ctx context.Context, refreshToken string) (*model.Session, error) {
	id, secret, err := splitRefresh(refreshToken)
	if err != nil {
		return nil, ErrNoSession
	}

	row, err := s.loadSession(ctx, id)
	if err != nil {
		return nil, err
	}

	if !checkRefresh(secret, row.TokenHash) {
		if !s.inGrace(row, secret) {
			return nil, ErrNoSession
		}
		return s.reissue(ctx, row)
	}

	user, err := s.provider.User(ctx, row.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	cookie, hash, err := newRefreshSecret(row.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	now := s.now().UTC()
	expiresAt := now.Add(s.opts.SessionExpiry)
	err = s.sessions.Rotate(ctx, row.ID, row.TokenHash, hash, now, expiresAt)
	if errors.Is(err, repository.ErrSessionNotFound) {
		// Lost the race to another refresh, or the session was revoked.
		row, err = s.loadSession(ctx, id)
		if err != nil {
			return nil, err
		}
		if !s.inGrace(row, secret) {
			return nil, ErrNoSession
		}
		return s.reissue(ctx, row)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to rotate session: %w", err)
	}

	access, accessExpiry, err := s.signAccess(user.ID, user.Email, row.ID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to sign access token: %w", err)
	}

	previous := row.TokenHash
	row.PreviousTokenHash = &previous
	row.RotatedAt = &now
	row.TokenHash = hash
	row.ExpiresAt = expiresAt
	row.Email = user.Email
	row.AccessToken = access
	row.AccessExpiry = accessExpiry
	row.RefreshToken = cookie

	slog.Debug("session refreshed", "user_id", user.ID, "session_id", row.ID)
	s.emit(Event{Type: EventTokenRefreshed, Session: row, User: user})
	return row, nil
}

// loadSession returns the live session with id, or ErrNoSession.
func (s *Store) loadSession(ctx context.Context, id string) (*model.Session, error) {
	row, err := s.sessions.ByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return nil, ErrNoSession
		}
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if !row.IsActive() {
		return nil, ErrNoSession
	}
	return row, nil
}

// inGrace reports whether secret is the one replaced by the last rotation
// and that rotation is recent enough to honour it.
func (s *Store) inGrace(row *model.Session, secret string) bool {
	if s.opts.RefreshGrace <= 0 || row.PreviousTokenHash == nil || row.RotatedAt == nil {
		return false
	}
	if s.now().Sub(*row.RotatedAt) > s.opts.RefreshGrace {
		return false
	}
	return checkRefresh(secret, *row.PreviousTokenHash)
}

// reissue signs a new access token for row without rotating its secret.
func (s *Store) reissue(ctx context.Context, row *model.Session) (*model.Session, error) {
	user, err := s.provider.User(ctx, row.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	access, accessExpiry, err := s.signAccess(user.ID, user.Email, row.ID, s.now().UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to sign access token: %w", err)
	}

	row.Email = user.Email
	row.AccessToken = access
	row.AccessExpiry = accessExpiry

	slog.Debug("access token reissued within refresh grace", "user_id", user.ID, "session_id", row.ID)
	return row, nil
}

// NotifyUserUpdated republishes a user whose account data changed.
func (s *Store) NotifyUserUpdated(user *model.User) {
	s.emit(Event{Type: EventUserUpdated, User: user})
}

// User loads the account behind a session.
func (s *Store) User(ctx context.Context, sess *model.Session) (*model.User, error) {
	return s.provider.User(ctx, sess.UserID)
}

// PurgeExpired deletes sessions that expired or were revoked before cutoff.
func (s *Store) PurgeExpired(ctx context.Context, olderThan time.Duration) (int64, error) {
	return s.sessions.DeleteExpired(ctx, s.now().UTC().Add(-olderThan))
}

func (s *Store) start(ctx context.Context, user *model.User) (*model.Session, error) {
	now := s.now().UTC()
	id := uuid.New().String()

	cookie, hash, err := newRefreshSecret(id)
	if err != nil {
		return nil, newAuthError(fmt.Errorf("failed to generate refresh token: %w", err))
	}

	access, accessExpiry, err := s.signAccess(user.ID, user.Email, id, now)
	if err != nil {
		return nil, newAuthError(fmt.Errorf("failed to sign access token: %w", err))
	}

	sess := &model.Session{
		ID:           id,
		UserID:       user.ID,
		TokenHash:    hash,
		CreatedAt:    now,
		ExpiresAt:    now.Add(s.opts.SessionExpiry),
		Email:        user.Email,
		AccessToken:  access,
		AccessExpiry: accessExpiry,
		RefreshToken: cookie,
	}

	err = s.sessions.Create(ctx, sess)
	if err != nil {
		return nil, newAuthError(fmt.Errorf("failed to create session: %w", err))
	}

	slog.Info("user signed in", "user_id", user.ID, "session_id", id)
	s.emit(Event{Type: EventSignedIn, Session: sess, User: user})
	return sess, nil
}
