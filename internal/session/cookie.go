package session

import (
	"net/http"
	"time"

	"github.com/sekkot/portal/internal/model"
)

const (
	AccessCookie  = "auth_token"
	RefreshCookie = "refresh_token"
)

// SetCookies persists sess in the browser. The refresh cookie is left
// alone when sess carries no new refresh token.
func (s *Store) SetCookies(w http.ResponseWriter, sess *model.Session) {
	s.setCookie(w, AccessCookie, sess.AccessToken, sess.ExpiresAt)
	if sess.RefreshToken != "" {
		s.setCookie(w, RefreshCookie, sess.RefreshToken, sess.ExpiresAt)
	}
}

func (s *Store) ClearCookies(w http.ResponseWriter) {
	s.setCookie(w, AccessCookie, "", time.Unix(0, 0))
	s.setCookie(w, RefreshCookie, "", time.Unix(0, 0))
}

// FromRequest returns the persisted tokens, empty when absent.
func FromRequest(r *http.Request) (access, refresh string) {
	if c, err := r.Cookie(AccessCookie); err == nil {
		access = c.Value
	}
	if c, err := r.Cookie(RefreshCookie); err == nil {
		refresh = c.Value
	}
	return access, refresh
}

func (s *Store) setCookie(w http.ResponseWriter, name, value string, expiry time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Expires:  expiry,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.opts.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}
