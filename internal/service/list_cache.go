package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/toolvault/toolvault/internal/observability"
)

// ListCacheStore is the injected cache capability: a keyed byte store with
// TTL eviction. Implementations must be safe for concurrent use.
type ListCacheStore interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Delete reports whether an entry was actually removed.
	Delete(ctx context.Context, key string) (bool, error)
}

// ListCache implements the cache-aside contract over a store. A failing
// store never fails the caller: Remember falls back to the producer and
// Forget reports nothing removed.
type ListCache struct {
	store  ListCacheStore
	logger *slog.Logger
}

func NewListCache(store ListCacheStore, logger *slog.Logger) *ListCache {
	return &ListCache{store: store, logger: logger}
}

// Remember returns the cached payload for key if present and unexpired;
// otherwise it invokes producer, stores the result under key with ttl, and
// returns it.
func (c *ListCache) Remember(ctx context.Context, key string, ttl time.Duration, producer func(context.Context) ([]byte, error)) ([]byte, error) {
	payload, ok, err := c.store.Get(ctx, key)
	if err != nil {
		c.logger.WarnContext(ctx, "cache unavailable, serving uncached", "key", key, "error", err)
		observability.RecordCacheLookup(ctx, key, "error")
		return producer(ctx)
	}
	if ok {
		observability.RecordCacheLookup(ctx, key, "hit")
		return payload, nil
	}

	observability.RecordCacheLookup(ctx, key, "miss")
	c.logger.InfoContext(ctx, "cache miss", "key", key)
	fresh, err := producer(ctx)
	if err != nil {
		return nil, err
	}
	if err := c.store.Set(ctx, key, fresh, ttl); err != nil {
		c.logger.WarnContext(ctx, "cache store failed, result served uncached", "key", key, "error", err)
	}
	return fresh, nil
}

// Forget evicts one key and reports whether anything was removed.
func (c *ListCache) Forget(ctx context.Context, key string) bool {
	removed, err := c.store.Delete(ctx, key)
	if err != nil {
		c.logger.WarnContext(ctx, "cache eviction failed", "key", key, "error", err)
		return false
	}
	c.logger.InfoContext(ctx, "cache invalidated", "key", key)
	return removed
}

type memoryListCacheEntry struct {
	payload   []byte
	expiresAt time.Time
}

// InMemoryListCacheStore backs single-process deployments and tests.
type InMemoryListCacheStore struct {
	mu      sync.RWMutex
	entries map[string]memoryListCacheEntry
}

func NewInMemoryListCacheStore() *InMemoryListCacheStore {
	return &InMemoryListCacheStore{entries: make(map[string]memoryListCacheEntry)}
}

func (s *InMemoryListCacheStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	now := time.Now()
	s.mu.RLock()
	entry, ok := s.entries[key]
	s.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	if now.After(entry.expiresAt) {
		s.mu.Lock()
		delete(s.entries, key)
		s.mu.Unlock()
		return nil, false, nil
	}
	return append([]byte(nil), entry.payload...), true, nil
}

func (s *InMemoryListCacheStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = memoryListCacheEntry{
		payload:   append([]byte(nil), value...),
		expiresAt: time.Now().Add(ttl),
	}
	return nil
}

func (s *InMemoryListCacheStore) Delete(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.entries[key]
	delete(s.entries, key)
	return ok, nil
}
