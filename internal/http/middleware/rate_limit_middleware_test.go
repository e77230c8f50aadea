package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

type mockLimiter struct {
	allow bool
	retry time.Duration
	err   error
}

func (m mockLimiter) Allow(context.Context, string, int, time.Duration) (bool, time.Duration, error) {
	return m.allow, m.retry, m.err
}

type recordingLimiter struct {
	lastKey string
}

func (r *recordingLimiter) Allow(_ context.Context, key string, _ int, _ time.Duration) (bool, time.Duration, error) {
	r.lastKey = key
	return true, 0, nil
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestDistributedRateLimiterFailOpenOnBackendError(t *testing.T) {
	rl := NewDistributedRateLimiter(
		mockLimiter{err: errors.New("redis down")},
		10,
		time.Minute,
		FailOpen,
		"api",
	)
	h := rl.Middleware()(okHandler())
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.RemoteAddr = "10.0.0.1:1111"
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected fail-open to allow request, got %d", rr.Code)
	}
}

func TestDistributedRateLimiterFailClosedOnBackendError(t *testing.T) {
	rl := NewDistributedRateLimiter(
		mockLimiter{err: errors.New("redis down")},
		10,
		time.Minute,
		FailClosed,
		"auth",
	)
	h := rl.Middleware()(okHandler())
	req := httptest.NewRequest(http.MethodPost, "/auth", nil)
	req.RemoteAddr = "10.0.0.1:1111"
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected fail-closed to reject request, got %d", rr.Code)
	}
	if got := rr.Header().Get("Retry-After"); got == "" {
		t.Fatal("expected Retry-After header on fail-closed rejection")
	}
}

func TestDistributedRateLimiterDeniedSetsRetryAfter(t *testing.T) {
	rl := NewDistributedRateLimiter(
		mockLimiter{allow: false, retry: 5 * time.Second},
		1,
		time.Minute,
		FailClosed,
		"api",
	)
	h := rl.Middleware()(okHandler())
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.RemoteAddr = "10.0.0.1:1111"
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rr.Code)
	}
	if got := rr.Header().Get("Retry-After"); got != "5" {
		t.Fatalf("expected Retry-After=5, got %q", got)
	}
}

func TestRateLimiterKeysOnClientIP(t *testing.T) {
	limiter := &recordingLimiter{}
	rl := NewDistributedRateLimiter(limiter, 10, time.Minute, FailClosed, "api")
	h := rl.Middleware()(okHandler())
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.RemoteAddr = "10.0.0.1:1111"
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected request to pass, got %d", rr.Code)
	}
	if limiter.lastKey != "10.0.0.1" {
		t.Fatalf("expected IP key, got %q", limiter.lastKey)
	}
}

func TestLocalFixedWindowLimiterEnforcesLimit(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute)
	h := rl.Middleware()(okHandler())

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		req.RemoteAddr = "10.0.0.2:2222"
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		if rr.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i+1, rr.Code)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.RemoteAddr = "10.0.0.2:2222"
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected third request to be limited, got %d", rr.Code)
	}

	other := httptest.NewRequest(http.MethodGet, "/x", nil)
	other.RemoteAddr = "10.0.0.3:3333"
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, other)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected other client to be unaffected, got %d", rr.Code)
	}
}
