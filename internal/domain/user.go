package domain

import "time"

type User struct {
	ID           uint   `gorm:"primaryKey" json:"id"`
	Name         string `gorm:"size:255;not null" json:"name"`
	Email        string `gorm:"uniqueIndex;size:255;not null" json:"email"`
	PasswordHash string `gorm:"size:1024;not null" json:"-"`
	Active       bool   `gorm:"not null;default:true" json:"active"`

	// RoleID is the legacy single-role column kept alive during the
	// many-to-many migration. It is never the source of truth.
	RoleID *uint `json:"role_id,omitempty"`
	Role   *Role `gorm:"foreignKey:RoleID" json:"role,omitempty"`

	Roles []Role `gorm:"many2many:user_roles" json:"roles,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RoleNames flattens the many-to-many role set for claims and responses.
func (u *User) RoleNames() []string {
	names := make([]string, 0, len(u.Roles))
	for _, r := range u.Roles {
		names = append(names, r.Name)
	}
	return names
}

// LegacyRoleName returns the legacy single-role name, or nil when unset.
func (u *User) LegacyRoleName() *string {
	if u.Role == nil {
		return nil
	}
	return &u.Role.Name
}
