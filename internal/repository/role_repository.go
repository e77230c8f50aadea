package repository

import (
	"errors"

	"github.com/toolvault/toolvault/internal/domain"

	"gorm.io/gorm"
)

type RoleRepository interface {
	FindByName(name string) (*domain.Role, error)
	List() ([]domain.Role, error)
	Create(role *domain.Role) error
	CountByIDs(ids []uint) (int64, error)
}

type GormRoleRepository struct{ db *gorm.DB }

func NewRoleRepository(db *gorm.DB) RoleRepository { return &GormRoleRepository{db: db} }

func (r *GormRoleRepository) FindByName(name string) (*domain.Role, error) {
	var role domain.Role
	err := r.db.Where("name = ?", name).First(&role).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRoleNotFound
		}
		return nil, err
	}
	return &role, nil
}

func (r *GormRoleRepository) List() ([]domain.Role, error) {
	var roles []domain.Role
	err := r.db.Order("id").Find(&roles).Error
	return roles, err
}

func (r *GormRoleRepository) Create(role *domain.Role) error {
	return r.db.Create(role).Error
}

// CountByIDs counts distinct existing roles among ids; callers compare the
// result against the requested set to reject dangling references.
func (r *GormRoleRepository) CountByIDs(ids []uint) (int64, error) {
	var count int64
	err := r.db.Model(&domain.Role{}).Where("id IN ?", ids).Count(&count).Error
	return count, err
}
