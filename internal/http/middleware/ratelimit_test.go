package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRateLimiterPerIP(t *testing.T) {
	now := time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(1, 2)
	rl.now = func() time.Time { return now }

	if !rl.Allow("10.0.0.1") || !rl.Allow("10.0.0.1") {
		t.Fatalf("expected burst of 2 to be allowed")
	}
	ok, wait := rl.Reserve("10.0.0.1")
	if ok {
		t.Fatalf("expected third request to be limited")
	}
	if wait <= 0 || wait > time.Second {
		t.Fatalf("expected wait within one second, got %v", wait)
	}
	if !rl.Allow("10.0.0.2") {
		t.Fatalf("expected a different IP to have its own bucket")
	}

	now = now.Add(time.Second)
	if !rl.Allow("10.0.0.1") {
		t.Fatalf("expected a token after one second")
	}
}

func TestRateLimiterEvict(t *testing.T) {
	now := time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(5, 5)
	rl.now = func() time.Time { return now }
	rl.Allow("10.0.0.1")

	now = now.Add(limiterIdleTTL / 2)
	rl.Allow("10.0.0.2")
	now = now.Add(limiterIdleTTL/2 + time.Second)

	if n := rl.Evict(); n != 1 {
		t.Fatalf("expected one idle bucket evicted, got %d", n)
	}
	if len(rl.clients) != 1 {
		t.Fatalf("expected one bucket left, got %d", len(rl.clients))
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	rl := NewRateLimiter(0.5, 1)
	handler := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/sessions", nil)
		req.RemoteAddr = "192.0.2.7:51234"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	if rec := send(); rec.Code != http.StatusOK {
		t.Fatalf("expected first request to pass, got %d", rec.Code)
	}
	rec := send()
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	if got := rec.Header().Get("Retry-After"); got != "2" {
		t.Fatalf("expected Retry-After 2, got %q", got)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("expected JSON envelope, got %q", ct)
	}
}
