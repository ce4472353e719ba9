package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sekkot/portal/internal/model"
	"github.com/sekkot/portal/internal/repository"
	"github.com/sekkot/portal/internal/validation"
	"golang.org/x/crypto/bcrypt"
)

// Provider errors. Their messages are shown to users as-is when no better
// wording exists, so they read like the messages of a hosted auth service.
var (
	ErrInvalidCredentials = errors.New("Invalid login credentials")
	ErrEmailNotConfirmed  = errors.New("Email not confirmed")
	ErrEmailAlreadyExists = errors.New("User already registered")
	ErrInvalidEmail       = errors.New("Unable to validate email address: invalid format")
	ErrInvalidLink        = errors.New("Email link is invalid or has expired")
	ErrPasswordlessUser   = errors.New("This account signs in with Google or GitHub")
)

// AuthService is the identity provider: accounts, passwords, and the
// one-time email links used to confirm addresses and reset passwords.
type AuthService struct {
	userRepository           repository.UserRepository
	tokenRepository          repository.TokenRepository
	emailService             *EmailService
	tokenEmailConfirmExpiry  time.Duration
	tokenPasswordResetExpiry time.Duration
}

func NewAuthService(
	userRepository repository.UserRepository,
	tokenRepository repository.TokenRepository,
	emailService *EmailService,
	tokenEmailConfirmExpiry time.Duration,
	tokenPasswordResetExpiry time.Duration,
) *AuthService {
	return &AuthService{
		userRepository:           userRepository,
		tokenRepository:          tokenRepository,
		emailService:             emailService,
		tokenEmailConfirmExpiry:  tokenEmailConfirmExpiry,
		tokenPasswordResetExpiry: tokenPasswordResetExpiry,
	}
}

func (s *AuthService) User(ctx context.Context, id string) (*model.User, error) {
	return s.userRepository.ByID(ctx, id)
}

func (s *AuthService) UserByEmail(ctx context.Context, email string) (*model.User, error) {
	return s.userRepository.ByEmail(ctx, normalizeEmail(email))
}

// Authenticate checks a password sign-in.
func (s *AuthService) Authenticate(ctx context.Context, email, password string) (*model.User, error) {
	user, err := s.userRepository.ByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if !user.HasPassword() {
		return nil, ErrPasswordlessUser
	}

	err = s.ComparePassword(password, *user.PasswordHash)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	if !user.IsConfirmed() {
		return nil, ErrEmailNotConfirmed
	}

	return user, nil
}

// Register creates a password account. Unless autoConfirm is set the
// account stays unconfirmed until the emailed link is opened.
func (s *AuthService) Register(ctx context.Context, email, password string, autoConfirm bool) (*model.User, error) {
	email = normalizeEmail(email)

	if err := validation.ValidateEmail(email); err != nil {
		return nil, ErrInvalidEmail
	}
	if err := validation.ValidatePassword(password); err != nil {
		return nil, err
	}

	hash, err := s.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now().UTC()
	user := &model.User{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: &hash,
		CreatedAt:    now,
	}
	if autoConfirm {
		user.EmailConfirmedAt = &now
	}

	err = s.userRepository.Create(ctx, user)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, ErrEmailAlreadyExists
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	slog.Info("user registered", "user_id", user.ID, "email", email, "confirmed", autoConfirm)

	if autoConfirm {
		return user, nil
	}

	err = s.issueLink(ctx, user, model.TokenTypeEmailConfirm, s.tokenEmailConfirmExpiry, s.emailService.SendConfirmationEmail)
	if err != nil {
		// Without the link the account could never be confirmed and its
		// email could not register again.
		delErr := s.userRepository.Delete(ctx, user.ID)
		if delErr != nil {
			slog.Error("failed to remove unconfirmed user", "error", delErr, "user_id", user.ID)
		}
		return nil, err
	}

	return user, nil
}

// ConfirmEmail consumes an email confirmation link.
func (s *AuthService) ConfirmEmail(ctx context.Context, token string) (*model.User, error) {
	t, err := s.tokenRepository.Consume(ctx, token, model.TokenTypeEmailConfirm)
	if err != nil {
		if errors.Is(err, repository.ErrTokenNotFound) {
			return nil, ErrInvalidLink
		}
		return nil, fmt.Errorf("failed to consume token: %w", err)
	}

	user, err := s.userRepository.ByID(ctx, t.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if !user.IsConfirmed() {
		now := time.Now().UTC()
		user.EmailConfirmedAt = &now
		err = s.userRepository.Update(ctx, user)
		if err != nil {
			return nil, fmt.Errorf("failed to confirm email: %w", err)
		}
	}

	slog.Info("email confirmed", "user_id", user.ID)
	return user, nil
}

// SendPasswordReset emails a reset link. Unknown addresses succeed silently
// so the form does not reveal which accounts exist.
func (s *AuthService) SendPasswordReset(ctx context.Context, email string) error {
	email = normalizeEmail(email)

	if err := validation.ValidateEmail(email); err != nil {
		return ErrInvalidEmail
	}

	user, err := s.userRepository.ByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			slog.Info("password reset requested for unknown email", "email", email)
			return nil
		}
		return fmt.Errorf("failed to get user: %w", err)
	}

	return s.issueLink(ctx, user, model.TokenTypePasswordReset, s.tokenPasswordResetExpiry, s.emailService.SendPasswordResetEmail)
}

// ResetPassword consumes a reset link and sets a new password. Opening the
// link proves ownership of the address, so it also confirms the email.
func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string) (*model.User, error) {
	if err := validation.ValidatePassword(newPassword); err != nil {
		return nil, err
	}

	t, err := s.tokenRepository.Consume(ctx, token, model.TokenTypePasswordReset)
	if err != nil {
		if errors.Is(err, repository.ErrTokenNotFound) {
			return nil, ErrInvalidLink
		}
		return nil, fmt.Errorf("failed to consume token: %w", err)
	}

	user, err := s.userRepository.ByID(ctx, t.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	hash, err := s.HashPassword(newPassword)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user.PasswordHash = &hash
	if !user.IsConfirmed() {
		now := time.Now().UTC()
		user.EmailConfirmedAt = &now
	}

	err = s.userRepository.Update(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("failed to update password: %w", err)
	}

	slog.Info("password reset", "user_id", user.ID)
	return user, nil
}

// AuthenticateOAuth signs in a user verified by an OAuth provider,
// creating the account on first use.
func (s *AuthService) AuthenticateOAuth(ctx context.Context, email, provider string) (*model.User, error) {
	email = normalizeEmail(email)

	if err := validation.ValidateEmail(email); err != nil {
		return nil, ErrInvalidEmail
	}

	now := time.Now().UTC()

	user, err := s.userRepository.ByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, repository.ErrUserNotFound) {
			return nil, fmt.Errorf("failed to lookup user: %w", err)
		}

		user = &model.User{
			ID:               uuid.New().String(),
			Email:            email,
			EmailConfirmedAt: &now,
			CreatedAt:        now,
		}
		err = s.userRepository.Create(ctx, user)
		if err != nil {
			return nil, fmt.Errorf("failed to create user: %w", err)
		}

		slog.Info("new OAuth user created", "email", email, "user_id", user.ID, "provider", provider)
		return user, nil
	}

	if !user.IsConfirmed() {
		user.EmailConfirmedAt = &now
		err = s.userRepository.Update(ctx, user)
		if err != nil {
			slog.Warn("failed to mark email as confirmed", "error", err, "user_id", user.ID)
		}
	}

	slog.Info("user authenticated via OAuth", "user_id", user.ID, "provider", provider)
	return user, nil
}

func (s *AuthService) issueLink(
	ctx context.Context,
	user *model.User,
	tokenType string,
	expiry time.Duration,
	send func(ctx context.Context, email, token string) error,
) error {
	err := s.tokenRepository.DeleteByUserAndType(ctx, user.ID, tokenType)
	if err != nil {
		slog.Warn("failed to delete old tokens", "error", err, "user_id", user.ID, "type", tokenType)
	}

	value, err := GenerateToken()
	if err != nil {
		return fmt.Errorf("failed to generate token: %w", err)
	}

	err = s.tokenRepository.Create(ctx, &model.Token{
		UserID:    user.ID,
		Type:      tokenType,
		Token:     value,
		ExpiresAt: time.Now().UTC().Add(expiry),
	})
	if err != nil {
		return fmt.Errorf("failed to create token: %w", err)
	}

	err = send(ctx, user.Email, value)
	if err != nil {
		slog.Error("failed to send email", "error", err, "type", tokenType, "email", user.Email)
		return fmt.Errorf("failed to send email: %w", err)
	}

	return nil
}

func (s *AuthService) HashPassword(password string) (string, error) {
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashedBytes), nil
}

func (s *AuthService) ComparePassword(password, hash string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}

// GenerateToken returns 32 random bytes, hex encoded.
func GenerateToken() (string, error) {
	bytes := make([]byte, 32)
	_, err := rand.Read(bytes)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

func normalizeEmail(email string) string {
	return strings.TrimSpace(strings.ToLower(email))
}
