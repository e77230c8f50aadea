package middleware

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// One atomic round trip: bump the counter, start the window on first hit,
// report the remaining window so denials can carry Retry-After.
var fixedWindowScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("PTTL", KEYS[1])
return {current, ttl}
`)

// RedisFixedWindowLimiter shares one fixed window per key across instances.
type RedisFixedWindowLimiter struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisFixedWindowLimiter(client redis.UniversalClient, prefix string) *RedisFixedWindowLimiter {
	if prefix == "" {
		prefix = "rl"
	}
	return &RedisFixedWindowLimiter{client: client, prefix: prefix}
}

func (l *RedisFixedWindowLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, time.Duration, error) {
	if l.client == nil {
		return false, window, fmt.Errorf("redis client is nil")
	}
	if key == "" {
		key = "unknown"
	}
	windowMS := int64(window / time.Millisecond)
	if windowMS <= 0 {
		windowMS = 1000
	}

	raw, err := fixedWindowScript.Run(ctx, l.client, []string{l.prefix + ":" + key}, windowMS).Result()
	if err != nil {
		return false, window, err
	}
	pair, ok := raw.([]interface{})
	if !ok || len(pair) != 2 {
		return false, window, fmt.Errorf("unexpected redis script response type")
	}
	count, err := parseRedisInt64(pair[0])
	if err != nil {
		return false, window, err
	}
	ttlMS, err := parseRedisInt64(pair[1])
	if err != nil {
		return false, window, err
	}

	// PTTL can report -1/-2 when the expiry raced; fall back to the window.
	if ttlMS <= 0 {
		ttlMS = windowMS
	}
	return count <= int64(limit), time.Duration(ttlMS) * time.Millisecond, nil
}

func parseRedisInt64(v interface{}) (int64, error) {
	switch n := v.(type) {
	case int64:
		return n, nil
	case uint64:
		return int64(n), nil
	case int:
		return int64(n), nil
	default:
		return 0, fmt.Errorf("unexpected redis response type %T", v)
	}
}
