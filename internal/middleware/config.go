package middleware

import (
	"net/http"

	"github.com/sekkot/portal/internal/config"
	"github.com/sekkot/portal/internal/ctxkeys"
)

// Config puts the sanitized configuration in the request context for
// templates and the other middlewares.
func Config(cfg *config.Config) func(http.Handler) http.Handler {
	safe := cfg.Sanitized()
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(ctxkeys.WithConfig(r.Context(), safe)))
		})
	}
}
