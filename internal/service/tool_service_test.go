package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/toolvault/toolvault/internal/domain"
	"github.com/toolvault/toolvault/internal/repository"
)

type catalogFixture struct {
	db       *gorm.DB
	store    *InMemoryListCacheStore
	cache    *ListCache
	userRepo repository.UserRepository
	tools    *ToolService
	types    *TypeService
}

func newCatalogFixture(t *testing.T) *catalogFixture {
	t.Helper()
	db := newServiceDBForTest(t)
	store := NewInMemoryListCacheStore()
	cache := NewListCache(store, discardLogger())
	typeRepo := repository.NewTypeRepository(db)
	roleRepo := repository.NewRoleRepository(db)
	userRepo := repository.NewUserRepository(db)
	toolRepo := repository.NewToolRepository(db)
	return &catalogFixture{
		db:       db,
		store:    store,
		cache:    cache,
		userRepo: userRepo,
		tools:    NewToolService(toolRepo, typeRepo, roleRepo, userRepo, cache, discardLogger()),
		types:    NewTypeService(typeRepo, cache, time.Minute, discardLogger()),
	}
}

func (fx *catalogFixture) seedRole(t *testing.T, name string) domain.Role {
	t.Helper()
	role := domain.Role{Name: name}
	if err := fx.db.Create(&role).Error; err != nil {
		t.Fatalf("seed role %q: %v", name, err)
	}
	return role
}

func (fx *catalogFixture) seedType(t *testing.T, name string) domain.AiToolType {
	t.Helper()
	toolType := domain.AiToolType{Name: name}
	if err := fx.db.Create(&toolType).Error; err != nil {
		t.Fatalf("seed type %q: %v", name, err)
	}
	return toolType
}

func (fx *catalogFixture) seedUser(t *testing.T, email string, roleIDs ...uint) *domain.User {
	t.Helper()
	user := &domain.User{Name: "User", Email: email, PasswordHash: "x", Active: true}
	if err := fx.userRepo.Create(user, roleIDs); err != nil {
		t.Fatalf("seed user %q: %v", email, err)
	}
	loaded, err := fx.userRepo.FindByEmail(email)
	if err != nil {
		t.Fatalf("reload user: %v", err)
	}
	return loaded
}

func validToolInput(typeID, roleID uint) ToolInput {
	return ToolInput{
		Name:        "Helper",
		Link:        "https://helper.example.com",
		Description: "desc",
		Usage:       "usage",
		TypeIDs:     []uint{typeID},
		RoleIDs:     []uint{roleID},
	}
}

func fieldsOf(t *testing.T, err error) map[string][]string {
	t.Helper()
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	return verr.Fields
}

func TestToolServiceCreateValidation(t *testing.T) {
	ctx := context.Background()
	fx := newCatalogFixture(t)
	chat := fx.seedType(t, "Chat")
	backend := fx.seedRole(t, "backend")

	t.Run("empty payload collects all field errors", func(t *testing.T) {
		_, err := fx.tools.Create(ctx, ToolInput{})
		fields := fieldsOf(t, err)
		for _, key := range []string{"name", "link", "type_ids", "role_ids"} {
			if len(fields[key]) == 0 {
				t.Fatalf("expected error for %q, got %v", key, fields)
			}
		}
	})

	t.Run("dangling references rejected", func(t *testing.T) {
		in := validToolInput(chat.ID, backend.ID)
		in.TypeIDs = []uint{chat.ID, 999}
		in.RoleIDs = []uint{backend.ID, 998}
		_, err := fx.tools.Create(ctx, in)
		fields := fieldsOf(t, err)
		if len(fields["type_ids"]) == 0 || len(fields["role_ids"]) == 0 {
			t.Fatalf("expected dangling id errors, got %v", fields)
		}
	})

	t.Run("nothing persisted on validation failure", func(t *testing.T) {
		var count int64
		if err := fx.db.Model(&domain.AiTool{}).Count(&count).Error; err != nil {
			t.Fatalf("count tools: %v", err)
		}
		if count != 0 {
			t.Fatalf("expected no tools after rejected writes, got %d", count)
		}
	})
}

func TestToolServiceCreateInvalidatesTypeCache(t *testing.T) {
	ctx := context.Background()
	fx := newCatalogFixture(t)
	chat := fx.seedType(t, "Chat")
	backend := fx.seedRole(t, "backend")

	counts, err := fx.types.ListWithCounts(ctx)
	if err != nil {
		t.Fatalf("prime cache: %v", err)
	}
	if counts[0].ToolsCount != 0 {
		t.Fatalf("expected empty type, got %d", counts[0].ToolsCount)
	}

	if _, err := fx.tools.Create(ctx, validToolInput(chat.ID, backend.ID)); err != nil {
		t.Fatalf("create tool: %v", err)
	}

	counts, err = fx.types.ListWithCounts(ctx)
	if err != nil {
		t.Fatalf("list after create: %v", err)
	}
	if counts[0].ToolsCount != 1 {
		t.Fatalf("expected count 1 after invalidation, got %d", counts[0].ToolsCount)
	}
}

func TestToolServiceUpdateAndDelete(t *testing.T) {
	ctx := context.Background()
	fx := newCatalogFixture(t)
	chat := fx.seedType(t, "Chat")
	coding := fx.seedType(t, "Code Assistant")
	backend := fx.seedRole(t, "backend")
	frontend := fx.seedRole(t, "frontend")

	created, err := fx.tools.Create(ctx, validToolInput(chat.ID, backend.ID))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	doc := "https://docs.example.com"
	updated, err := fx.tools.Update(ctx, created.ID, ToolInput{
		Name:          "Helper v2",
		Link:          "https://v2.example.com",
		Documentation: &doc,
		Description:   "new desc",
		Usage:         "new usage",
		TypeIDs:       []uint{coding.ID},
		RoleIDs:       []uint{frontend.ID},
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Name != "Helper v2" || updated.Documentation == nil || *updated.Documentation != doc {
		t.Fatalf("unexpected updated tool %+v", updated)
	}
	if len(updated.Types) != 1 || updated.Types[0].ID != coding.ID {
		t.Fatalf("expected type assignment replaced, got %+v", updated.Types)
	}
	if len(updated.Roles) != 1 || updated.Roles[0].ID != frontend.ID {
		t.Fatalf("expected role assignment replaced, got %+v", updated.Roles)
	}

	if _, err := fx.tools.Update(ctx, 999, validToolInput(chat.ID, backend.ID)); !errors.Is(err, ErrToolNotFound) {
		t.Fatalf("expected ErrToolNotFound on update miss, got %v", err)
	}

	if err := fx.tools.Delete(ctx, created.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := fx.tools.Delete(ctx, created.ID); !errors.Is(err, ErrToolNotFound) {
		t.Fatalf("expected ErrToolNotFound on double delete, got %v", err)
	}
}

func TestToolServiceListForUser(t *testing.T) {
	ctx := context.Background()
	fx := newCatalogFixture(t)
	chat := fx.seedType(t, "Chat")
	owner := fx.seedRole(t, domain.RoleOwner)
	backend := fx.seedRole(t, "backend")
	frontend := fx.seedRole(t, "frontend")

	mkTool := func(name string, roleIDs ...uint) {
		in := validToolInput(chat.ID, roleIDs[0])
		in.Name = name
		in.Link = "https://" + name + ".example.com"
		in.RoleIDs = roleIDs
		if _, err := fx.tools.Create(ctx, in); err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
	}
	mkTool("backend-only", backend.ID)
	mkTool("frontend-only", frontend.ID)
	mkTool("shared", backend.ID, frontend.ID)

	t.Run("owner sees everything", func(t *testing.T) {
		user := fx.seedUser(t, "owner@example.com", owner.ID)
		tools, err := fx.tools.ListForUser(ctx, user.ID)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(tools) != 3 {
			t.Fatalf("expected 3 tools for owner, got %d", len(tools))
		}
	})

	t.Run("member sees role-assigned tools only", func(t *testing.T) {
		user := fx.seedUser(t, "backend@example.com", backend.ID)
		tools, err := fx.tools.ListForUser(ctx, user.ID)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(tools) != 2 {
			t.Fatalf("expected 2 backend-visible tools, got %d", len(tools))
		}
	})

	t.Run("legacy single-role column still grants visibility", func(t *testing.T) {
		// A pre-migration account: legacy column set, no pivot rows.
		user := &domain.User{Name: "Legacy", Email: "legacy@example.com", PasswordHash: "x", Active: true, RoleID: &frontend.ID}
		if err := fx.db.Create(user).Error; err != nil {
			t.Fatalf("insert legacy user: %v", err)
		}
		tools, err := fx.tools.ListForUser(ctx, user.ID)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(tools) != 2 {
			t.Fatalf("expected legacy role to see frontend tools, got %d", len(tools))
		}
	})

	t.Run("roleless user sees nothing", func(t *testing.T) {
		user := fx.seedUser(t, "none@example.com")
		tools, err := fx.tools.ListForUser(ctx, user.ID)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(tools) != 0 {
			t.Fatalf("expected empty list, got %d", len(tools))
		}
	})

	t.Run("unknown user", func(t *testing.T) {
		if _, err := fx.tools.ListForUser(ctx, 999); !errors.Is(err, ErrUserNotFound) {
			t.Fatalf("expected ErrUserNotFound, got %v", err)
		}
	})
}
