package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/toolvault/toolvault/internal/domain"
	"github.com/toolvault/toolvault/internal/repository"
)

var ErrRoleExists = errors.New("role already exists")

// RoleInput is the write payload for a role.
type RoleInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type RoleService struct {
	roleRepo repository.RoleRepository
	logger   *slog.Logger
}

func NewRoleService(roleRepo repository.RoleRepository, logger *slog.Logger) *RoleService {
	return &RoleService{roleRepo: roleRepo, logger: logger}
}

func (s *RoleService) List(_ context.Context) ([]domain.Role, error) {
	return s.roleRepo.List()
}

// Create adds a role. Names are lower-cased so role checks stay
// case-insensitive at the edges.
func (s *RoleService) Create(ctx context.Context, in RoleInput) (*domain.Role, error) {
	verr := &ValidationError{}
	name := strings.ToLower(strings.TrimSpace(in.Name))
	if name == "" {
		verr.add("name", "name is required")
	}
	if !verr.ok() {
		return nil, fmt.Errorf("role payload rejected: %w", verr)
	}
	if _, err := s.roleRepo.FindByName(name); err == nil {
		return nil, ErrRoleExists
	} else if !errors.Is(err, repository.ErrRoleNotFound) {
		return nil, err
	}
	role := &domain.Role{Name: name, Description: in.Description}
	if err := s.roleRepo.Create(role); err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "role created", "role_id", role.ID, "name", role.Name)
	return role, nil
}
