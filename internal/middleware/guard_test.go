package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sekkot/portal/internal/authctx"
	"github.com/sekkot/portal/internal/ctxkeys"
	"github.com/sekkot/portal/internal/model"
)

var customer = &model.User{ID: "u1", Email: "buyer@example.com"}

func TestDecideUser(t *testing.T) {
	tests := []struct {
		name  string
		state authctx.State
		path  string
		want  Decision
	}{
		{"loading", authctx.State{Loading: true}, "/dashboard", Decision{Outcome: Wait}},
		{"anonymous", authctx.State{}, "/dashboard", Decision{Outcome: Redirect, Target: "/login?next=%2Fdashboard"}},
		{"anonymous root", authctx.State{}, "/", Decision{Outcome: Redirect, Target: "/login"}},
		{"signed in", authctx.State{User: customer}, "/dashboard", Decision{Outcome: Allow}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DecideUser(tt.state, tt.path); got != tt.want {
				t.Fatalf("DecideUser = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestDecideAdmin(t *testing.T) {
	tests := []struct {
		name  string
		state authctx.State
		want  Decision
	}{
		{"loading", authctx.State{Loading: true}, Decision{Outcome: Wait}},
		{"loading with user", authctx.State{User: customer, Loading: true}, Decision{Outcome: Wait}},
		{"anonymous", authctx.State{}, Decision{Outcome: Redirect, Target: "/login?next=%2Fadmin"}},
		{"not admin", authctx.State{User: customer}, Decision{Outcome: Redirect, Target: "/dashboard"}},
		{"admin", authctx.State{User: customer, IsAdmin: true}, Decision{Outcome: Allow}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DecideAdmin(tt.state, "/admin"); got != tt.want {
				t.Fatalf("DecideAdmin = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func serveGuarded(t *testing.T, guard func(http.HandlerFunc) http.HandlerFunc, state authctx.State, htmx bool) (*httptest.ResponseRecorder, bool) {
	t.Helper()

	called := false
	h := guard(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	if htmx {
		req.Header.Set("HX-Request", "true")
	}
	req = req.WithContext(ctxkeys.WithAuth(req.Context(), state))

	rec := httptest.NewRecorder()
	h(rec, req)
	return rec, called
}

func TestRequireAdminRedirectsNonAdmin(t *testing.T) {
	rec, called := serveGuarded(t, RequireAdmin, authctx.State{User: customer}, false)
	if called {
		t.Fatal("admin handler ran for a non-admin")
	}
	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/dashboard" {
		t.Fatalf("got %d to %q, want 303 to /dashboard", rec.Code, rec.Header().Get("Location"))
	}

	rec, _ = serveGuarded(t, RequireAdmin, authctx.State{User: customer}, true)
	if rec.Code != http.StatusOK || rec.Header().Get("HX-Redirect") != "/dashboard" {
		t.Fatalf("htmx: got %d HX-Redirect %q", rec.Code, rec.Header().Get("HX-Redirect"))
	}
}

func TestRequireAdminWaitsWhileLoading(t *testing.T) {
	rec, called := serveGuarded(t, RequireAdmin, authctx.State{Loading: true}, false)
	if called {
		t.Fatal("admin handler ran while loading")
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "" {
		t.Fatalf("loading state redirected to %q", loc)
	}
	if !strings.Contains(rec.Body.String(), `http-equiv="refresh"`) {
		t.Fatal("loading page should re-poll")
	}
}

func TestRequireAdminAllowsAdmin(t *testing.T) {
	rec, called := serveGuarded(t, RequireAdmin, authctx.State{User: customer, IsAdmin: true}, false)
	if !called || rec.Code != http.StatusNoContent {
		t.Fatalf("admin was not let through: called=%v code=%d", called, rec.Code)
	}
}

func TestRequireGuest(t *testing.T) {
	rec, called := serveGuarded(t, RequireGuest, authctx.State{User: customer}, false)
	if called || rec.Header().Get("Location") != "/dashboard" {
		t.Fatalf("signed-in user reached a guest page: called=%v", called)
	}

	_, called = serveGuarded(t, RequireGuest, authctx.State{}, false)
	if !called {
		t.Fatal("anonymous visitor was turned away from a guest page")
	}
}
