package middleware

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newRedisLimiterForTest(t *testing.T) (*miniredis.Miniredis, *RedisFixedWindowLimiter) {
	t.Helper()
	m := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: m.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
		m.Close()
	})
	return m, NewRedisFixedWindowLimiter(client, "rl_test")
}

func TestRedisFixedWindowLimiterAllowThenDeny(t *testing.T) {
	_, limiter := newRedisLimiterForTest(t)
	ctx := context.Background()

	allowed, _, err := limiter.Allow(ctx, "client-a", 1, time.Minute)
	if err != nil {
		t.Fatalf("allow first request: %v", err)
	}
	if !allowed {
		t.Fatal("expected first request to be allowed")
	}

	allowed, retryAfter, err := limiter.Allow(ctx, "client-a", 1, time.Minute)
	if err != nil {
		t.Fatalf("allow second request: %v", err)
	}
	if allowed {
		t.Fatal("expected second request to be denied")
	}
	if retryAfter <= 0 {
		t.Fatalf("expected positive retry-after, got %v", retryAfter)
	}
}

func TestRedisFixedWindowLimiterIsolatesKeys(t *testing.T) {
	_, limiter := newRedisLimiterForTest(t)
	ctx := context.Background()

	if allowed, _, _ := limiter.Allow(ctx, "client-a", 1, time.Minute); !allowed {
		t.Fatal("expected client-a first request allowed")
	}
	if allowed, _, _ := limiter.Allow(ctx, "client-b", 1, time.Minute); !allowed {
		t.Fatal("expected client-b to have its own window")
	}
}

func TestRedisFixedWindowLimiterResetsAfterWindow(t *testing.T) {
	m, limiter := newRedisLimiterForTest(t)
	ctx := context.Background()

	if allowed, _, _ := limiter.Allow(ctx, "client-a", 1, time.Second); !allowed {
		t.Fatal("expected first request allowed")
	}
	if allowed, _, _ := limiter.Allow(ctx, "client-a", 1, time.Second); allowed {
		t.Fatal("expected second request denied within the window")
	}

	m.FastForward(2 * time.Second)

	if allowed, _, _ := limiter.Allow(ctx, "client-a", 1, time.Second); !allowed {
		t.Fatal("expected request allowed after the window expired")
	}
}

func TestRedisFixedWindowLimiterBackendAndNilClientErrors(t *testing.T) {
	limiter := NewRedisFixedWindowLimiter(nil, "")
	if _, _, err := limiter.Allow(context.Background(), "k", 10, time.Minute); err == nil {
		t.Fatal("expected nil client error")
	}

	badClient := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 20 * time.Millisecond, ReadTimeout: 20 * time.Millisecond, WriteTimeout: 20 * time.Millisecond})
	t.Cleanup(func() { _ = badClient.Close() })
	limiter = NewRedisFixedWindowLimiter(badClient, "")
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, _, err := limiter.Allow(ctx, "k", 10, time.Minute); err == nil {
		t.Fatal("expected backend error")
	}
}

func TestParseRedisInt64Branches(t *testing.T) {
	if v, err := parseRedisInt64(int64(4)); err != nil || v != 4 {
		t.Fatalf("int64 parse mismatch v=%d err=%v", v, err)
	}
	if v, err := parseRedisInt64(int(3)); err != nil || v != 3 {
		t.Fatalf("int parse mismatch v=%d err=%v", v, err)
	}
	if _, err := parseRedisInt64("1"); err == nil {
		t.Fatal("expected string type error")
	}
	if _, err := parseRedisInt64(errors.New("x")); err == nil {
		t.Fatal("expected unexpected type error")
	}
}
