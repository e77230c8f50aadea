package middleware

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/toolvault/toolvault/internal/http/response"
)

// Limiter answers whether key may make another request within the window.
// The returned duration is how long a denied caller should wait.
type Limiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, time.Duration, error)
}

// FailureMode decides what happens when the limiter backend itself errors.
type FailureMode string

const (
	FailOpen   FailureMode = "fail_open"
	FailClosed FailureMode = "fail_closed"
)

// RateLimiter gates requests per client IP through a Limiter.
type RateLimiter struct {
	limiter Limiter
	limit   int
	window  time.Duration
	mode    FailureMode
	scope   string
}

// NewRateLimiter builds an in-process limiter; single-instance deployments
// and tests use this, production uses the redis-backed variant.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return NewDistributedRateLimiter(NewLocalFixedWindowLimiter(), limit, window, FailClosed, "local")
}

func NewDistributedRateLimiter(limiter Limiter, limit int, window time.Duration, mode FailureMode, scope string) *RateLimiter {
	if scope == "" {
		scope = "api"
	}
	return &RateLimiter{limiter: limiter, limit: limit, window: window, mode: mode, scope: scope}
}

func (rl *RateLimiter) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			allowed, retryAfter, err := rl.limiter.Allow(r.Context(), clientIPKey(r), rl.limit, rl.window)
			switch {
			case err != nil && rl.mode == FailOpen:
				slog.Warn("rate limiter backend unavailable, allowing request",
					"scope", rl.scope, "mode", string(rl.mode), "error", err.Error())
			case err != nil:
				rl.deny(w, r, rl.window)
				return
			case !allowed:
				rl.deny(w, r, retryAfter)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (rl *RateLimiter) deny(w http.ResponseWriter, r *http.Request, retryAfter time.Duration) {
	w.Header().Set("Retry-After", retryAfterHeader(retryAfter))
	response.Error(w, r, http.StatusTooManyRequests, "RATE_LIMITED", "too many requests", nil)
}

type windowEntry struct {
	count   int
	started time.Time
}

// localFixedWindowLimiter keeps counters in process memory. Stale entries are
// swept opportunistically on the next Allow call past the cleanup mark.
type localFixedWindowLimiter struct {
	mu      sync.Mutex
	entries map[string]*windowEntry
	sweepAt time.Time
}

func NewLocalFixedWindowLimiter() Limiter {
	return &localFixedWindowLimiter{
		entries: make(map[string]*windowEntry),
		sweepAt: time.Now().Add(time.Minute),
	}
}

func (l *localFixedWindowLimiter) Allow(_ context.Context, key string, limit int, window time.Duration) (bool, time.Duration, error) {
	now := time.Now()
	l.mu.Lock()
	defer l.mu.Unlock()

	if now.After(l.sweepAt) {
		for k, e := range l.entries {
			if now.Sub(e.started) > 2*window {
				delete(l.entries, k)
			}
		}
		l.sweepAt = now.Add(window)
	}

	entry, ok := l.entries[key]
	if !ok || now.Sub(entry.started) >= window {
		l.entries[key] = &windowEntry{count: 1, started: now}
		return true, 0, nil
	}
	if entry.count >= limit {
		remaining := window - now.Sub(entry.started)
		if remaining < 0 {
			remaining = 0
		}
		return false, remaining, nil
	}
	entry.count++
	return true, 0, nil
}

func clientIPKey(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}

func retryAfterHeader(d time.Duration) string {
	seconds := int(d.Round(time.Second).Seconds())
	if seconds <= 0 {
		seconds = 1
	}
	return strconv.Itoa(seconds)
}
