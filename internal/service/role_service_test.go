package service

import (
	"context"
	"errors"
	"testing"

	"github.com/toolvault/toolvault/internal/repository"
)

func TestRoleServiceCreate(t *testing.T) {
	ctx := context.Background()
	fx := newCatalogFixture(t)
	svc := NewRoleService(repository.NewRoleRepository(fx.db), discardLogger())

	role, err := svc.Create(ctx, RoleInput{Name: " QA ", Description: "quality"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if role.Name != "qa" {
		t.Fatalf("expected lower-cased name, got %q", role.Name)
	}

	if _, err := svc.Create(ctx, RoleInput{Name: "qa"}); !errors.Is(err, ErrRoleExists) {
		t.Fatalf("expected ErrRoleExists, got %v", err)
	}
	// Duplicate detection is case-insensitive through normalization.
	if _, err := svc.Create(ctx, RoleInput{Name: "QA"}); !errors.Is(err, ErrRoleExists) {
		t.Fatalf("expected ErrRoleExists for different casing, got %v", err)
	}

	_, err = svc.Create(ctx, RoleInput{Name: "   "})
	fields := fieldsOf(t, err)
	if len(fields["name"]) == 0 {
		t.Fatalf("expected name error, got %v", fields)
	}
}

func TestRoleServiceList(t *testing.T) {
	ctx := context.Background()
	fx := newCatalogFixture(t)
	svc := NewRoleService(repository.NewRoleRepository(fx.db), discardLogger())
	fx.seedRole(t, "backend")
	fx.seedRole(t, "frontend")

	roles, err := svc.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(roles) != 2 {
		t.Fatalf("expected 2 roles, got %d", len(roles))
	}
}
