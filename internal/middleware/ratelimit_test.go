package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRateLimiterWindow(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(2, time.Minute)
	rl.now = func() time.Time { return now }

	if !rl.Allow("a") || !rl.Allow("a") {
		t.Fatal("first two requests should pass")
	}
	if rl.Allow("a") {
		t.Fatal("third request inside the window should be limited")
	}
	if !rl.Allow("b") {
		t.Fatal("keys are limited independently")
	}

	now = now.Add(time.Minute + time.Second)
	if !rl.Allow("a") {
		t.Fatal("request after the window should pass")
	}

	now = now.Add(3 * time.Minute)
	rl.cleanup()
	if len(rl.requests) != 0 {
		t.Fatalf("cleanup kept %d idle keys", len(rl.requests))
	}
}

func TestLimitHandler(t *testing.T) {
	rl := NewRateLimiter(1, time.Minute)
	h := rl.Limit(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	serve := func(path, ip string) int {
		req := httptest.NewRequest(http.MethodPost, path, nil)
		req.Header.Set("X-Forwarded-For", ip+", 10.0.0.1")
		rec := httptest.NewRecorder()
		h(rec, req)
		return rec.Code
	}

	if code := serve("/login", "203.0.113.9"); code != http.StatusNoContent {
		t.Fatalf("first request: %d", code)
	}
	if code := serve("/login", "203.0.113.9"); code != http.StatusTooManyRequests {
		t.Fatalf("second request: %d, want 429", code)
	}
	if code := serve("/signup", "203.0.113.9"); code != http.StatusNoContent {
		t.Fatalf("other path: %d", code)
	}
	if code := serve("/login", "198.51.100.4"); code != http.StatusNoContent {
		t.Fatalf("other client: %d", code)
	}
}
