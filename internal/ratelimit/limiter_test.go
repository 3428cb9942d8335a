package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestAllowPerKey(t *testing.T) {
	l := New(60, 2)
	base := time.Date(2026, 1, 4, 9, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return base }

	if !l.Allow("a") || !l.Allow("a") {
		t.Fatal("burst of 2 should be allowed")
	}
	if l.Allow("a") {
		t.Fatal("third request should be limited")
	}
	if !l.Allow("b") {
		t.Fatal("other keys have their own bucket")
	}

	l.now = func() time.Time { return base.Add(time.Second) }
	if !l.Allow("a") {
		t.Fatal("token should refill after a second")
	}
}

func TestDisabledLimiter(t *testing.T) {
	l := New(0, 1)
	for i := 0; i < 100; i++ {
		if !l.Allow("a") {
			t.Fatalf("request %d limited with limiting disabled", i)
		}
	}
	if l.Len() != 0 {
		t.Fatalf("disabled limiter tracked %d clients", l.Len())
	}
}

func TestSweep(t *testing.T) {
	l := New(10, 1)
	base := time.Date(2026, 1, 4, 9, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return base }
	l.Allow("old")
	l.now = func() time.Time { return base.Add(IdleTTL - time.Minute) }
	l.Allow("fresh")

	l.now = func() time.Time { return base.Add(IdleTTL + time.Second) }
	if removed := l.Sweep(); removed != 1 {
		t.Fatalf("Sweep removed %d, want 1", removed)
	}
	if l.Len() != 1 {
		t.Fatalf("Len = %d, want 1", l.Len())
	}
}

func TestMiddleware(t *testing.T) {
	l := New(1, 1)
	h := l.Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	req := httptest.NewRequest(http.MethodPost, "/contact", nil)
	req.RemoteAddr = "203.0.113.9:5555"

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("first request status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second request status = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Fatal("missing Retry-After")
	}
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "198.51.100.1:1234"
	if got := ClientIP(req); got != "198.51.100.1" {
		t.Fatalf("ClientIP = %q", got)
	}
	req.RemoteAddr = "198.51.100.2"
	if got := ClientIP(req); got != "198.51.100.2" {
		t.Fatalf("ClientIP without port = %q", got)
	}
}
