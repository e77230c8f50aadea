package service

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisListCacheStore shares its backend with unrelated consumers, so every
// key is namespaced under a fixed prefix.
type RedisListCacheStore struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisListCacheStore(client redis.UniversalClient, prefix string) *RedisListCacheStore {
	if prefix == "" {
		prefix = "toolvault_cache"
	}
	return &RedisListCacheStore{client: client, prefix: prefix}
}

func (s *RedisListCacheStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	value, err := s.client.Get(ctx, s.namespaced(key)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

func (s *RedisListCacheStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return s.client.Set(ctx, s.namespaced(key), value, ttl).Err()
}

func (s *RedisListCacheStore) Delete(ctx context.Context, key string) (bool, error) {
	removed, err := s.client.Del(ctx, s.namespaced(key)).Result()
	if err != nil {
		return false, err
	}
	return removed > 0, nil
}

func (s *RedisListCacheStore) namespaced(key string) string {
	return s.prefix + ":" + key
}
