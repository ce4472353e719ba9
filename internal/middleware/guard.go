package middleware

import (
	"net/http"
	"net/url"

	"github.com/sekkot/portal/internal/authctx"
	"github.com/sekkot/portal/internal/ctxkeys"
	"github.com/sekkot/portal/internal/ui"
	"github.com/sekkot/portal/internal/ui/pages"
)

type Outcome int

const (
	Allow Outcome = iota
	Wait
	Redirect
)

// Decision is what a guard does with a request. Target is set for Redirect.
type Decision struct {
	Outcome Outcome
	Target  string
}

// DecideUser admits signed-in visitors. Anonymous visitors are sent to the
// login page with a way back to path.
func DecideUser(st authctx.State, path string) Decision {
	if st.Loading {
		return Decision{Outcome: Wait}
	}
	if st.User == nil {
		return Decision{Outcome: Redirect, Target: loginURL(path)}
	}
	return Decision{Outcome: Allow}
}

// DecideAdmin admits admins only. Signed-in non-admins land on their
// dashboard.
func DecideAdmin(st authctx.State, path string) Decision {
	d := DecideUser(st, path)
	if d.Outcome != Allow {
		return d
	}
	if !st.IsAdmin {
		return Decision{Outcome: Redirect, Target: "/dashboard"}
	}
	return Decision{Outcome: Allow}
}

func loginURL(path string) string {
	if path == "" || path == "/" {
		return "/login"
	}
	return "/login?next=" + url.QueryEscape(path)
}

// RequireUser guards customer pages.
func RequireUser(next http.HandlerFunc) http.HandlerFunc {
	return guard(DecideUser, next)
}

// RequireAdmin guards the admin dashboard.
func RequireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return guard(DecideAdmin, next)
}

func guard(decide func(authctx.State, string) Decision, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d := decide(ctxkeys.Auth(r.Context()), r.URL.RequestURI())

		switch d.Outcome {
		case Wait:
			w.Header().Set("Cache-Control", "no-store")
			ui.Render(w, r, pages.Loading(r.URL.RequestURI()))
		case Redirect:
			redirect(w, r, d.Target)
		default:
			next.ServeHTTP(w, r)
		}
	}
}
