package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/toolvault/toolvault/internal/domain"
	"github.com/toolvault/toolvault/internal/observability"
	"github.com/toolvault/toolvault/internal/security"

	"gorm.io/gorm"
)

var defaultRoles = []domain.Role{
	{Name: domain.RoleOwner, Description: "Full catalog and account administration"},
	{Name: domain.RoleFrontend, Description: "Frontend engineering"},
	{Name: domain.RoleBackend, Description: "Backend engineering"},
	{Name: domain.RoleDesigner, Description: "Design"},
}

var defaultToolTypes = []domain.AiToolType{
	{Name: "Code Assistant", Description: "Editor and IDE coding assistants"},
	{Name: "Image Generation", Description: "Text-to-image and image editing"},
	{Name: "Chat", Description: "General-purpose conversational assistants"},
	{Name: "Productivity", Description: "Writing, meeting and planning aids"},
}

type SeedReport struct {
	CreatedRoles int  `json:"created_roles"`
	CreatedTypes int  `json:"created_types"`
	CreatedOwner bool `json:"created_owner"`
	Noop         bool `json:"noop"`
}

func Seed(db *gorm.DB, ownerEmail, ownerPassword string) error {
	_, err := SeedSync(db, ownerEmail, ownerPassword)
	return err
}

// SeedSync inserts the default roles and tool types and, when configured,
// a bootstrap owner account. It is idempotent: rerunning against a seeded
// database reports a noop.
func SeedSync(db *gorm.DB, ownerEmail, ownerPassword string) (*SeedReport, error) {
	start := time.Now()
	defer func() {
		observability.RecordDatabaseStartupDuration(context.Background(), "seed", time.Since(start))
	}()

	report := &SeedReport{}

	for _, role := range defaultRoles {
		res := db.Where("name = ?", role.Name).FirstOrCreate(&role)
		if res.Error != nil {
			observability.RecordDatabaseStartupEvent(context.Background(), "seed", "error")
			return nil, res.Error
		}
		if res.RowsAffected > 0 {
			report.CreatedRoles++
		}
	}

	for _, toolType := range defaultToolTypes {
		res := db.Where("name = ?", toolType.Name).FirstOrCreate(&toolType)
		if res.Error != nil {
			observability.RecordDatabaseStartupEvent(context.Background(), "seed", "error")
			return nil, res.Error
		}
		if res.RowsAffected > 0 {
			report.CreatedTypes++
		}
	}

	email := strings.TrimSpace(strings.ToLower(ownerEmail))
	if email != "" && ownerPassword != "" {
		created, err := ensureOwner(db, email, ownerPassword)
		if err != nil {
			observability.RecordDatabaseStartupEvent(context.Background(), "seed", "error")
			return nil, err
		}
		report.CreatedOwner = created
	}

	report.Noop = report.CreatedRoles == 0 && report.CreatedTypes == 0 && !report.CreatedOwner
	observability.RecordDatabaseStartupEvent(context.Background(), "seed", "success")
	return report, nil
}

func ensureOwner(db *gorm.DB, email, password string) (bool, error) {
	var ownerRole domain.Role
	if err := db.Where("name = ?", domain.RoleOwner).First(&ownerRole).Error; err != nil {
		return false, fmt.Errorf("owner role missing: %w", err)
	}

	var existing domain.User
	err := db.Where("email = ?", email).First(&existing).Error
	if err == nil {
		var count int64
		if err := db.Table("user_roles").Where("user_id = ? AND role_id = ?", existing.ID, ownerRole.ID).Count(&count).Error; err != nil {
			return false, err
		}
		if count == 0 {
			if err := db.Model(&existing).Association("Roles").Append(&ownerRole); err != nil {
				return false, fmt.Errorf("assign bootstrap owner role: %w", err)
			}
		}
		return false, nil
	}
	if err != gorm.ErrRecordNotFound {
		return false, err
	}

	hash, err := security.HashPassword(password)
	if err != nil {
		return false, err
	}
	owner := domain.User{
		Name:         "Owner",
		Email:        email,
		PasswordHash: hash,
		Active:       true,
		RoleID:       &ownerRole.ID,
	}
	return true, db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&owner).Error; err != nil {
			return err
		}
		return tx.Model(&owner).Association("Roles").Append(&ownerRole)
	})
}
