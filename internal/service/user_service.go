package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/toolvault/toolvault/internal/domain"
	"github.com/toolvault/toolvault/internal/repository"
	"github.com/toolvault/toolvault/internal/security"
)

var ErrEmailTaken = errors.New("email is already registered")

// UserInput is the administrative create payload. The password is hashed
// before it reaches the repository.
type UserInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	RoleIDs  []uint `json:"role_ids"`
}

type UserService struct {
	userRepo repository.UserRepository
	roleRepo repository.RoleRepository
	logger   *slog.Logger
}

func NewUserService(userRepo repository.UserRepository, roleRepo repository.RoleRepository, logger *slog.Logger) *UserService {
	return &UserService{userRepo: userRepo, roleRepo: roleRepo, logger: logger}
}

func (s *UserService) List(_ context.Context) ([]domain.User, error) {
	return s.userRepo.List()
}

// Create registers a new account with its role set. The first role id also
// populates the legacy single-role column.
func (s *UserService) Create(ctx context.Context, in UserInput) (*domain.User, error) {
	verr := &ValidationError{}
	name := strings.TrimSpace(in.Name)
	email := strings.TrimSpace(strings.ToLower(in.Email))
	if name == "" {
		verr.add("name", "name is required")
	}
	if email == "" || !strings.Contains(email, "@") {
		verr.add("email", "a valid email is required")
	}
	if len(in.Password) < 8 {
		verr.add("password", "password must be at least 8 characters")
	}
	if len(in.RoleIDs) == 0 {
		verr.add("role_ids", "at least one role is required")
	} else {
		n, err := s.roleRepo.CountByIDs(in.RoleIDs)
		if err != nil {
			return nil, err
		}
		if n != int64(len(dedupe(in.RoleIDs))) {
			verr.add("role_ids", "one or more roles do not exist")
		}
	}
	if !verr.ok() {
		return nil, fmt.Errorf("user payload rejected: %w", verr)
	}

	if _, err := s.userRepo.FindByEmail(email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, repository.ErrUserNotFound) {
		return nil, err
	}

	hash, err := security.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	user := &domain.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Active:       true,
	}
	if err := s.userRepo.Create(user, in.RoleIDs); err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "user created", "user_id", user.ID, "email", user.Email)
	return s.userRepo.FindByID(user.ID)
}

// SetActive toggles the account flag. Deactivation does not revoke existing
// sessions; it blocks the next login attempt.
func (s *UserService) SetActive(ctx context.Context, userID uint, active bool) (*domain.User, error) {
	if err := s.userRepo.SetActive(userID, active); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	s.logger.InfoContext(ctx, "user status changed", "user_id", userID, "active", active)
	return s.userRepo.FindByID(userID)
}

// SetRoles replaces the user's full role set.
func (s *UserService) SetRoles(ctx context.Context, userID uint, roleIDs []uint) (*domain.User, error) {
	if _, err := s.userRepo.FindByID(userID); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	if len(roleIDs) > 0 {
		n, err := s.roleRepo.CountByIDs(roleIDs)
		if err != nil {
			return nil, err
		}
		if n != int64(len(dedupe(roleIDs))) {
			verr := &ValidationError{}
			verr.add("role_ids", "one or more roles do not exist")
			return nil, fmt.Errorf("user payload rejected: %w", verr)
		}
	}
	if err := s.userRepo.SetRoles(userID, roleIDs); err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "user roles replaced", "user_id", userID)
	return s.userRepo.FindByID(userID)
}
