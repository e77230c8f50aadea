package database

import (
	"github.com/toolvault/toolvault/internal/domain"

	"gorm.io/gorm"
)

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&domain.Role{},
		&domain.User{},
		&domain.AiToolType{},
		&domain.AiTool{},
		&domain.VerificationCode{},
		&domain.Session{},
	)
}
