package repository

import (
	"errors"

	"github.com/toolvault/toolvault/internal/domain"

	"gorm.io/gorm"
)

type UserRepository interface {
	FindByID(id uint) (*domain.User, error)
	FindByEmail(email string) (*domain.User, error)
	Create(user *domain.User, roleIDs []uint) error
	List() ([]domain.User, error)
	SetActive(userID uint, active bool) error
	SetRoles(userID uint, roleIDs []uint) error
}

type GormUserRepository struct{ db *gorm.DB }

func NewUserRepository(db *gorm.DB) UserRepository { return &GormUserRepository{db: db} }

func (r *GormUserRepository) FindByID(id uint) (*domain.User, error) {
	var u domain.User
	err := r.db.Preload("Role").Preload("Roles").First(&u, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (r *GormUserRepository) FindByEmail(email string) (*domain.User, error) {
	var u domain.User
	err := r.db.Preload("Role").Preload("Roles").Where("email = ?", email).First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

// Create inserts the user row, mirrors the first role id into the legacy
// column and attaches the full role set.
func (r *GormUserRepository) Create(user *domain.User, roleIDs []uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if len(roleIDs) > 0 {
			user.RoleID = &roleIDs[0]
		}
		if err := tx.Create(user).Error; err != nil {
			return err
		}
		if len(roleIDs) == 0 {
			return nil
		}
		var roles []domain.Role
		if err := tx.Where("id IN ?", roleIDs).Find(&roles).Error; err != nil {
			return err
		}
		return tx.Model(user).Association("Roles").Append(&roles)
	})
}

func (r *GormUserRepository) List() ([]domain.User, error) {
	var users []domain.User
	err := r.db.Preload("Role").Preload("Roles").Order("id").Find(&users).Error
	return users, err
}

func (r *GormUserRepository) SetActive(userID uint, active bool) error {
	res := r.db.Model(&domain.User{}).Where("id = ?", userID).Update("active", active)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

// SetRoles replaces the many-to-many role set and recomputes the legacy
// role_id column from the first element of the new set on every write.
func (r *GormUserRepository) SetRoles(userID uint, roleIDs []uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var roles []domain.Role
		if len(roleIDs) > 0 {
			if err := tx.Where("id IN ?", roleIDs).Find(&roles).Error; err != nil {
				return err
			}
		}
		var legacy *uint
		if len(roleIDs) > 0 {
			legacy = &roleIDs[0]
		}
		if err := tx.Model(&domain.User{}).Where("id = ?", userID).Update("role_id", legacy).Error; err != nil {
			return err
		}
		u := domain.User{ID: userID}
		return tx.Model(&u).Association("Roles").Replace(roles)
	})
}
