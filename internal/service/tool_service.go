package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/toolvault/toolvault/internal/domain"
	"github.com/toolvault/toolvault/internal/observability"
	"github.com/toolvault/toolvault/internal/repository"
)

var ErrToolNotFound = errors.New("ai tool not found")

// ValidationError carries per-field messages for a rejected write. No
// database mutation happens once validation fails.
type ValidationError struct {
	Fields map[string][]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return "validation failed: " + strings.Join(keys, ", ")
}

func (e *ValidationError) add(field, msg string) {
	if e.Fields == nil {
		e.Fields = map[string][]string{}
	}
	e.Fields[field] = append(e.Fields[field], msg)
}

func (e *ValidationError) ok() bool { return len(e.Fields) == 0 }

// ToolInput is the write payload shared by create and update.
type ToolInput struct {
	Name          string  `json:"name"`
	Link          string  `json:"link"`
	Documentation *string `json:"documentation"`
	Description   string  `json:"description"`
	Usage         string  `json:"usage"`
	TypeIDs       []uint  `json:"type_ids"`
	RoleIDs       []uint  `json:"role_ids"`
}

type ToolService struct {
	toolRepo repository.ToolRepository
	typeRepo repository.TypeRepository
	roleRepo repository.RoleRepository
	userRepo repository.UserRepository
	cache    *ListCache
	logger   *slog.Logger
}

func NewToolService(toolRepo repository.ToolRepository, typeRepo repository.TypeRepository, roleRepo repository.RoleRepository, userRepo repository.UserRepository, cache *ListCache, logger *slog.Logger) *ToolService {
	return &ToolService{
		toolRepo: toolRepo,
		typeRepo: typeRepo,
		roleRepo: roleRepo,
		userRepo: userRepo,
		cache:    cache,
		logger:   logger,
	}
}

// ListForUser returns every tool for owners and the role-filtered subset for
// everyone else. The filter is the tool-role assignment table: a non-owner
// sees a tool only when it is assigned to at least one of their roles.
func (s *ToolService) ListForUser(ctx context.Context, userID uint) ([]domain.AiTool, error) {
	user, err := s.userRepo.FindByID(userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	for _, name := range user.RoleNames() {
		if name == domain.RoleOwner {
			return s.toolRepo.ListAll()
		}
	}
	roleIDs := make([]uint, 0, len(user.Roles))
	for _, role := range user.Roles {
		roleIDs = append(roleIDs, role.ID)
	}
	if user.RoleID != nil {
		roleIDs = appendUnique(roleIDs, *user.RoleID)
	}
	return s.toolRepo.ListByRoleIDs(roleIDs)
}

func (s *ToolService) Get(_ context.Context, id uint) (*domain.AiTool, error) {
	tool, err := s.toolRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, repository.ErrToolNotFound) {
			return nil, ErrToolNotFound
		}
		return nil, err
	}
	return tool, nil
}

// Create validates the payload, persists the tool with its type and role
// assignments, and invalidates the cached type listing.
func (s *ToolService) Create(ctx context.Context, in ToolInput) (*domain.AiTool, error) {
	if err := s.validate(in); err != nil {
		return nil, err
	}
	tool := &domain.AiTool{
		Name:          strings.TrimSpace(in.Name),
		Link:          strings.TrimSpace(in.Link),
		Documentation: in.Documentation,
		Description:   in.Description,
		UsageNotes:    in.Usage,
	}
	if err := s.toolRepo.Create(tool, in.TypeIDs, in.RoleIDs); err != nil {
		return nil, err
	}
	observability.RecordToolMutation(ctx, "create")
	s.logger.InfoContext(ctx, "ai tool created", "tool_id", tool.ID, "name", tool.Name)
	s.cache.Forget(ctx, TypesWithCountsCacheKey)
	return s.Get(ctx, tool.ID)
}

// Update validates, replaces the tool's scalars and full assignment sets,
// and invalidates the cached type listing.
func (s *ToolService) Update(ctx context.Context, id uint, in ToolInput) (*domain.AiTool, error) {
	tool, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.validate(in); err != nil {
		return nil, err
	}
	tool.Name = strings.TrimSpace(in.Name)
	tool.Link = strings.TrimSpace(in.Link)
	tool.Documentation = in.Documentation
	tool.Description = in.Description
	tool.UsageNotes = in.Usage
	if err := s.toolRepo.Update(tool, in.TypeIDs, in.RoleIDs); err != nil {
		return nil, err
	}
	observability.RecordToolMutation(ctx, "update")
	s.logger.InfoContext(ctx, "ai tool updated", "tool_id", tool.ID)
	s.cache.Forget(ctx, TypesWithCountsCacheKey)
	return s.Get(ctx, tool.ID)
}

// Delete removes the tool and its assignment rows.
func (s *ToolService) Delete(ctx context.Context, id uint) error {
	if err := s.toolRepo.Delete(id); err != nil {
		if errors.Is(err, repository.ErrToolNotFound) {
			return ErrToolNotFound
		}
		return err
	}
	observability.RecordToolMutation(ctx, "delete")
	s.logger.InfoContext(ctx, "ai tool deleted", "tool_id", id)
	s.cache.Forget(ctx, TypesWithCountsCacheKey)
	return nil
}

func (s *ToolService) validate(in ToolInput) error {
	verr := &ValidationError{}
	if strings.TrimSpace(in.Name) == "" {
		verr.add("name", "name is required")
	}
	if strings.TrimSpace(in.Link) == "" {
		verr.add("link", "link is required")
	}
	if len(in.TypeIDs) == 0 {
		verr.add("type_ids", "at least one type is required")
	} else {
		n, err := s.typeRepo.CountByIDs(in.TypeIDs)
		if err != nil {
			return err
		}
		if n != int64(len(dedupe(in.TypeIDs))) {
			verr.add("type_ids", "one or more types do not exist")
		}
	}
	if len(in.RoleIDs) == 0 {
		verr.add("role_ids", "at least one role is required")
	} else {
		n, err := s.roleRepo.CountByIDs(in.RoleIDs)
		if err != nil {
			return err
		}
		if n != int64(len(dedupe(in.RoleIDs))) {
			verr.add("role_ids", "one or more roles do not exist")
		}
	}
	if !verr.ok() {
		return fmt.Errorf("ai tool payload rejected: %w", verr)
	}
	return nil
}

func dedupe(ids []uint) []uint {
	seen := make(map[uint]struct{}, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func appendUnique(ids []uint, id uint) []uint {
	for _, existing := range ids {
		if existing == id {
			return ids
		}
	}
	return append(ids, id)
}
