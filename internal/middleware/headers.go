package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/sekkot/portal/internal/ctxkeys"
)

// SecurityHeaders sets the response security headers. The CSP admits
// scripts carrying the request nonce plus the htmx CDN. Images may also come
// from the object store.
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		h.Set("Content-Security-Policy", contentSecurityPolicy(r))

		cfg := ctxkeys.Config(r.Context())
		if cfg != nil && cfg.IsProduction() {
			h.Set("Strict-Transport-Security", "max-age=63072000; includeSubDomains")
		}

		next.ServeHTTP(w, r)
	})
}

func contentSecurityPolicy(r *http.Request) string {
	scripts := []string{"'self'", "https://unpkg.com"}
	if nonce := GetNonce(r.Context()); nonce != "" {
		scripts = append(scripts, fmt.Sprintf("'nonce-%s'", nonce))
	}

	images := []string{"'self'", "data:"}
	if cfg := ctxkeys.Config(r.Context()); cfg != nil {
		for _, src := range []string{cfg.S3PublicURL, cfg.S3Endpoint} {
			if src != "" {
				images = append(images, src)
			}
		}
	}

	return strings.Join([]string{
		"default-src 'self'",
		"script-src " + strings.Join(scripts, " "),
		"style-src 'self' 'unsafe-inline'",
		"img-src " + strings.Join(images, " "),
		"connect-src 'self'",
		"frame-ancestors 'none'",
		"form-action 'self' https://accounts.google.com https://github.com",
	}, "; ")
}
