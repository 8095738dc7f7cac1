package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func newTestLimiter(rate float64, burst int) (*RateLimiter, *fakeClock) {
	clk := &fakeClock{t: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	rl := NewRateLimiter(rate, burst)
	rl.now = clk.now
	return rl, clk
}

func hit(h http.Handler, ip string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/ai/organize-todos", http.NoBody)
	req.RemoteAddr = ip + ":5555"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRateLimiterAllowsBurst(t *testing.T) {
	rl, _ := newTestLimiter(1, 3)
	h := rl.Handler(okHandler())

	for i := range 3 {
		if rec := hit(h, "192.168.1.1"); rec.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i+1, rec.Code)
		}
	}
	rec := hit(h, "192.168.1.1")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 after burst, got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") != "1" {
		t.Errorf("Retry-After = %q, want 1", rec.Header().Get("Retry-After"))
	}
}

func TestRateLimiterRefills(t *testing.T) {
	rl, clk := newTestLimiter(2, 1)

	if _, _, ok := rl.Allow("a"); !ok {
		t.Fatal("first call refused")
	}
	if _, wait, ok := rl.Allow("a"); ok || wait != 500*time.Millisecond {
		t.Fatalf("expected refusal with 500ms wait, got ok=%v wait=%v", ok, wait)
	}

	clk.t = clk.t.Add(500 * time.Millisecond)
	if _, _, ok := rl.Allow("a"); !ok {
		t.Fatal("expected token after refill")
	}
}

func TestRateLimiterPerClient(t *testing.T) {
	rl, _ := newTestLimiter(1, 1)
	h := rl.Handler(okHandler())

	hit(h, "10.0.0.1")
	if rec := hit(h, "10.0.0.1"); rec.Code != http.StatusTooManyRequests {
		t.Errorf("10.0.0.1: expected 429, got %d", rec.Code)
	}
	if rec := hit(h, "10.0.0.2"); rec.Code != http.StatusOK {
		t.Errorf("10.0.0.2: expected 200, got %d", rec.Code)
	}
}

func TestRateLimiterCleanup(t *testing.T) {
	rl, clk := newTestLimiter(1, 1)
	rl.Allow("old")
	clk.t = clk.t.Add(time.Hour)
	rl.Allow("fresh")

	rl.cleanup(10 * time.Minute)

	if rl.Len() != 1 {
		t.Fatalf("expected 1 bucket after cleanup, got %d", rl.Len())
	}
}
