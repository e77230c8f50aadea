package repository

import (
	"errors"
	"time"

	"github.com/toolvault/toolvault/internal/domain"

	"gorm.io/gorm"
)

type VerificationCodeRepository interface {
	// Create deletes any unused codes for the same (user, purpose) before
	// inserting, so only the most recently issued code is ever redeemable.
	Create(code *domain.VerificationCode) error
	FindUnused(userID uint, code, purpose string) (*domain.VerificationCode, error)
	FindLatestUnused(userID uint, purpose string) (*domain.VerificationCode, error)
	MarkUsed(codeID uint) error
	PurgeExpired(now time.Time) (int64, error)
}

type GormVerificationCodeRepository struct{ db *gorm.DB }

func NewVerificationCodeRepository(db *gorm.DB) VerificationCodeRepository {
	return &GormVerificationCodeRepository{db: db}
}

func (r *GormVerificationCodeRepository) Create(code *domain.VerificationCode) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		// Ordering matters: the delete must land before the insert or two
		// codes could be live for the same purpose.
		if err := tx.Where("user_id = ? AND purpose = ? AND used = ?", code.UserID, code.Purpose, false).
			Delete(&domain.VerificationCode{}).Error; err != nil {
			return err
		}
		return tx.Create(code).Error
	})
}

func (r *GormVerificationCodeRepository) FindUnused(userID uint, code, purpose string) (*domain.VerificationCode, error) {
	var record domain.VerificationCode
	err := r.db.Where("user_id = ? AND code = ? AND purpose = ? AND used = ?", userID, code, purpose, false).
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrVerificationCodeNotFound
		}
		return nil, err
	}
	return &record, nil
}

func (r *GormVerificationCodeRepository) FindLatestUnused(userID uint, purpose string) (*domain.VerificationCode, error) {
	var record domain.VerificationCode
	err := r.db.Where("user_id = ? AND purpose = ? AND used = ?", userID, purpose, false).
		Order("created_at DESC").First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrVerificationCodeNotFound
		}
		return nil, err
	}
	return &record, nil
}

func (r *GormVerificationCodeRepository) MarkUsed(codeID uint) error {
	res := r.db.Model(&domain.VerificationCode{}).
		Where("id = ? AND used = ?", codeID, false).
		Update("used", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrVerificationCodeNotFound
	}
	return nil
}

// PurgeExpired removes every expired row regardless of used state.
func (r *GormVerificationCodeRepository) PurgeExpired(now time.Time) (int64, error) {
	res := r.db.Where("expires_at < ?", now).Delete(&domain.VerificationCode{})
	return res.RowsAffected, res.Error
}
