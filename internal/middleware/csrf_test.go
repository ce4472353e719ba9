package middleware

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/sekkot/portal/internal/ctxkeys"
)

func csrfHandler(seen *string) http.Handler {
	return CSRFProtection(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*seen = ctxkeys.CSRFToken(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))
}

func issuedToken(t *testing.T) *http.Cookie {
	t.Helper()

	var seen string
	rec := httptest.NewRecorder()
	csrfHandler(&seen).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	for _, c := range rec.Result().Cookies() {
		if c.Name == csrfCookieName {
			if c.Value != seen {
				t.Fatalf("context token %q does not match cookie %q", seen, c.Value)
			}
			return c
		}
	}
	t.Fatal("no csrf cookie issued")
	return nil
}

func TestCSRFProtection(t *testing.T) {
	cookie := issuedToken(t)
	var seen string
	h := csrfHandler(&seen)

	tests := []struct {
		name string
		req  func() *http.Request
		want int
	}{
		{"missing token", func() *http.Request {
			r := httptest.NewRequest(http.MethodPost, "/login", nil)
			r.AddCookie(cookie)
			return r
		}, http.StatusForbidden},
		{"wrong header", func() *http.Request {
			r := httptest.NewRequest(http.MethodPost, "/login", nil)
			r.AddCookie(cookie)
			r.Header.Set(csrfHeader, "nope")
			return r
		}, http.StatusForbidden},
		{"header", func() *http.Request {
			r := httptest.NewRequest(http.MethodDelete, "/admin/products/1", nil)
			r.AddCookie(cookie)
			r.Header.Set(csrfHeader, cookie.Value)
			return r
		}, http.StatusNoContent},
		{"form field", func() *http.Request {
			form := url.Values{csrfFormField: {cookie.Value}}
			r := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
			r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			r.AddCookie(cookie)
			return r
		}, http.StatusNoContent},
		{"no cookie", func() *http.Request {
			r := httptest.NewRequest(http.MethodPost, "/login", nil)
			r.Header.Set(csrfHeader, cookie.Value)
			return r
		}, http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, tt.req())
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}
