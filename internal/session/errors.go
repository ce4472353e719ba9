package session

import (
	"errors"

	"github.com/sekkot/portal/internal/service"
)

// ErrNoSession means no valid persisted session could be restored.
var ErrNoSession = errors.New("no session")

// Kind classifies provider failures for display.
type Kind int

const (
	KindUnknown Kind = iota
	KindEmailNotConfirmed
	KindInvalidCredentials
	KindAlreadyRegistered
)

func (k Kind) String() string {
	switch k {
	case KindEmailNotConfirmed:
		return "email-not-confirmed"
	case KindInvalidCredentials:
		return "invalid-credentials"
	case KindAlreadyRegistered:
		return "already-registered"
	default:
		return "unknown"
	}
}

// AuthError is returned by every Store operation that reaches the provider.
// Message is the provider's own message.
type AuthError struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *AuthError) Error() string {
	return e.Message
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// UserMessage is the text shown on the sign-in and sign-up forms.
func (e *AuthError) UserMessage() string {
	switch e.Kind {
	case KindEmailNotConfirmed:
		return "Please check your email to confirm your account before signing in"
	case KindInvalidCredentials:
		return "Invalid email or password"
	case KindAlreadyRegistered:
		return "An account with this email already exists"
	}
	if e.Message != "" {
		return e.Message
	}
	return "Authentication failed"
}

func newAuthError(err error) *AuthError {
	var authErr *AuthError
	if errors.As(err, &authErr) {
		return authErr
	}

	kind := KindUnknown
	switch {
	case errors.Is(err, service.ErrEmailNotConfirmed):
		kind = KindEmailNotConfirmed
	case errors.Is(err, service.ErrInvalidCredentials):
		kind = KindInvalidCredentials
	case errors.Is(err, service.ErrEmailAlreadyExists):
		kind = KindAlreadyRegistered
	}

	return &AuthError{Kind: kind, Message: err.Error(), Err: err}
}
