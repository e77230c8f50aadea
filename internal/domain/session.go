package domain

import "time"

// Session is one issued bearer token. TokenHash is sha256(token + pepper);
// the raw token is never stored. Logout revokes exactly one row.
type Session struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	UserID    uint       `gorm:"index;not null" json:"user_id"`
	TokenHash string     `gorm:"uniqueIndex;size:64;not null" json:"-"`
	UserAgent string     `gorm:"size:512" json:"user_agent"`
	IP        string     `gorm:"size:64" json:"ip"`
	ExpiresAt time.Time  `gorm:"not null" json:"expires_at"`
	RevokedAt *time.Time `json:"revoked_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}
