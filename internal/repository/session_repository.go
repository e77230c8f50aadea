package repository

import (
	"errors"
	"time"

	"github.com/toolvault/toolvault/internal/domain"

	"gorm.io/gorm"
)

type SessionRepository interface {
	Create(s *domain.Session) error
	FindValidByHash(hash string, now time.Time) (*domain.Session, error)
	RevokeByHash(hash string, now time.Time) error
	CleanupExpired(now time.Time) (int64, error)
}

type GormSessionRepository struct{ db *gorm.DB }

func NewSessionRepository(db *gorm.DB) SessionRepository { return &GormSessionRepository{db: db} }

func (r *GormSessionRepository) Create(s *domain.Session) error { return r.db.Create(s).Error }

func (r *GormSessionRepository) FindValidByHash(hash string, now time.Time) (*domain.Session, error) {
	var s domain.Session
	err := r.db.Where("token_hash = ? AND revoked_at IS NULL AND expires_at > ?", hash, now).First(&s).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return &s, nil
}

// RevokeByHash retires exactly one session. Revoking an already-revoked or
// unknown hash is not an error; logout is idempotent.
func (r *GormSessionRepository) RevokeByHash(hash string, now time.Time) error {
	return r.db.Model(&domain.Session{}).
		Where("token_hash = ? AND revoked_at IS NULL", hash).
		Update("revoked_at", now).Error
}

func (r *GormSessionRepository) CleanupExpired(now time.Time) (int64, error) {
	res := r.db.Where("expires_at <= ?", now).Delete(&domain.Session{})
	return res.RowsAffected, res.Error
}
