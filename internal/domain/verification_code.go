package domain

import "time"

// PurposeLogin is the only code purpose issued today; the column exists so
// future flows (password reset, email change) can share the table.
const PurposeLogin = "login"

type VerificationCode struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"index:idx_verification_codes_user_purpose;not null" json:"user_id"`
	Code      string    `gorm:"size:6;not null" json:"-"`
	Purpose   string    `gorm:"size:32;index:idx_verification_codes_user_purpose;not null" json:"purpose"`
	ExpiresAt time.Time `gorm:"not null" json:"expires_at"`
	Used      bool      `gorm:"not null;default:false" json:"used"`
	IPAddress string    `gorm:"size:64" json:"ip_address"`
	UserAgent string    `gorm:"size:512" json:"user_agent"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Valid reports whether the code is still redeemable at the given instant.
func (c *VerificationCode) Valid(now time.Time) bool {
	return !c.Used && now.Before(c.ExpiresAt)
}
