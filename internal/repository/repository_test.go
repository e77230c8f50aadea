package repository

import (
	"fmt"
	"strings"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/toolvault/toolvault/internal/domain"
)

func newRepositoryDBForTest(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(
		&domain.Role{},
		&domain.User{},
		&domain.AiToolType{},
		&domain.AiTool{},
		&domain.VerificationCode{},
		&domain.Session{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func domainUser(name, email string) *domain.User {
	return &domain.User{
		Name:         name,
		Email:        email,
		PasswordHash: "x",
		Active:       true,
	}
}

func seedRole(t *testing.T, db *gorm.DB, name string) domain.Role {
	t.Helper()
	role := domain.Role{Name: name}
	if err := db.Create(&role).Error; err != nil {
		t.Fatalf("seed role %q: %v", name, err)
	}
	return role
}

func seedType(t *testing.T, db *gorm.DB, name string) domain.AiToolType {
	t.Helper()
	tt := domain.AiToolType{Name: name}
	if err := db.Create(&tt).Error; err != nil {
		t.Fatalf("seed type %q: %v", name, err)
	}
	return tt
}
