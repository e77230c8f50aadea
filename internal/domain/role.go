package domain

import "time"

// Well-known role names. Owner bypasses the tool visibility filter.
const (
	RoleOwner    = "owner"
	RoleFrontend = "frontend"
	RoleBackend  = "backend"
	RoleDesigner = "designer"
)

type Role struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"uniqueIndex;size:64;not null" json:"name"`
	Description string    `gorm:"size:500" json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
