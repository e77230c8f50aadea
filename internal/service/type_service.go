package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/toolvault/toolvault/internal/domain"
	"github.com/toolvault/toolvault/internal/repository"
)

// TypesWithCountsCacheKey caches the type listing with tool counts. Every
// tool or type write invalidates it.
const TypesWithCountsCacheKey = "types:with_counts"

var ErrToolTypeNotFound = errors.New("ai tool type not found")

// TypeInput is the write payload for a tool type.
type TypeInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type TypeService struct {
	typeRepo repository.TypeRepository
	cache    *ListCache
	cacheTTL time.Duration
	logger   *slog.Logger
}

func NewTypeService(typeRepo repository.TypeRepository, cache *ListCache, cacheTTL time.Duration, logger *slog.Logger) *TypeService {
	return &TypeService{
		typeRepo: typeRepo,
		cache:    cache,
		cacheTTL: cacheTTL,
		logger:   logger,
	}
}

// ListWithCounts returns every type with its tool count, served read-through
// from the list cache. A cache fault degrades to a direct database read.
func (s *TypeService) ListWithCounts(ctx context.Context) ([]domain.AiToolTypeWithCount, error) {
	payload, err := s.cache.Remember(ctx, TypesWithCountsCacheKey, s.cacheTTL, func(context.Context) ([]byte, error) {
		types, err := s.typeRepo.ListWithCounts()
		if err != nil {
			return nil, err
		}
		return json.Marshal(types)
	})
	if err != nil {
		return nil, err
	}
	var types []domain.AiToolTypeWithCount
	if err := json.Unmarshal(payload, &types); err != nil {
		return nil, fmt.Errorf("decode cached type listing: %w", err)
	}
	return types, nil
}

func (s *TypeService) Get(_ context.Context, id uint) (*domain.AiToolType, error) {
	toolType, err := s.typeRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, repository.ErrToolTypeNotFound) {
			return nil, ErrToolTypeNotFound
		}
		return nil, err
	}
	return toolType, nil
}

// Create persists a new type and invalidates the cached listing so the next
// read reflects it.
func (s *TypeService) Create(ctx context.Context, in TypeInput) (*domain.AiToolType, error) {
	verr := &ValidationError{}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		verr.add("name", "name is required")
	}
	if !verr.ok() {
		return nil, fmt.Errorf("ai tool type payload rejected: %w", verr)
	}
	toolType := &domain.AiToolType{Name: name, Description: in.Description}
	if err := s.typeRepo.Create(toolType); err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "ai tool type created", "type_id", toolType.ID, "name", toolType.Name)
	s.cache.Forget(ctx, TypesWithCountsCacheKey)
	return toolType, nil
}

// ClearCache drops the cached type listing on demand.
func (s *TypeService) ClearCache(ctx context.Context) bool {
	return s.cache.Forget(ctx, TypesWithCountsCacheKey)
}
