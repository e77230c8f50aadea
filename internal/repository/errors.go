package repository

import "errors"

var (
	ErrUserNotFound             = errors.New("user not found")
	ErrRoleNotFound             = errors.New("role not found")
	ErrToolNotFound             = errors.New("ai tool not found")
	ErrToolTypeNotFound         = errors.New("ai tool type not found")
	ErrVerificationCodeNotFound = errors.New("verification code not found")
	ErrSessionNotFound          = errors.New("session not found")
)
