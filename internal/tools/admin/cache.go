package admin

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/toolvault/toolvault/internal/config"
	"github.com/toolvault/toolvault/internal/service"
)

// clearListCache evicts the cached type listing directly against redis.
// With redis disabled the cache is process-local and restarts empty, so
// there is nothing to clear from outside.
func clearListCache(cfg *config.Config) ([]string, error) {
	if !cfg.CacheRedisEnabled {
		return []string{"redis cache disabled, nothing to clear"}, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer func() { _ = client.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	store := service.NewRedisListCacheStore(client, cfg.CachePrefix)
	removed, err := store.Delete(ctx, service.TypesWithCountsCacheKey)
	if err != nil {
		return nil, err
	}
	return []string{fmt.Sprintf("type listing cache cleared: %t", removed)}, nil
}
