package middleware

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/sekkot/portal/internal/authctx"
	"github.com/sekkot/portal/internal/ctxkeys"
	"github.com/sekkot/portal/internal/session"
)

// Auth restores the browser session from its cookies and puts the
// visitor's auth state in the context. Refreshed tokens are written back.
func Auth(store *session.Store, provider *authctx.Provider) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			access, refresh := session.FromRequest(r)
			if access == "" && refresh == "" {
				next.ServeHTTP(w, r)
				return
			}

			sess, err := store.Restore(r.Context(), access, refresh)
			if err != nil {
				if !errors.Is(err, session.ErrNoSession) {
					slog.Error("failed to restore session", "error", err, "path", r.URL.Path)
				}
				store.ClearCookies(w)
				next.ServeHTTP(w, r)
				return
			}

			if sess.AccessToken != access {
				store.SetCookies(w, sess)
			}

			state := provider.State(r.Context(), sess)

			ctx := ctxkeys.WithAuth(r.Context(), state)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// redirect sends the browser to target. htmx requests get HX-Redirect with
// a 200, since XHR follows 3xx responses before htmx sees them.
func redirect(w http.ResponseWriter, r *http.Request, target string) {
	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Redirect", target)
		w.WriteHeader(http.StatusOK)
		return
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// RequireGuest keeps signed-in users away from the sign-in pages.
func RequireGuest(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if ctxkeys.Auth(r.Context()).SignedIn() {
			redirect(w, r, "/dashboard")
			return
		}
		next.ServeHTTP(w, r)
	}
}

