package repository

import (
	"errors"

	"github.com/toolvault/toolvault/internal/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ToolRepository interface {
	FindByID(id uint) (*domain.AiTool, error)
	ListAll() ([]domain.AiTool, error)
	ListByRoleIDs(roleIDs []uint) ([]domain.AiTool, error)
	// Create attaches: every requested association is inserted, nothing is
	// reconciled against prior state.
	Create(tool *domain.AiTool, typeIDs, roleIDs []uint) error
	// Update syncs: scalar fields are saved and both association sets are
	// replaced with the requested ones.
	Update(tool *domain.AiTool, typeIDs, roleIDs []uint) error
	// Delete removes the tool row together with its join rows.
	Delete(id uint) error
}

type GormToolRepository struct{ db *gorm.DB }

func NewToolRepository(db *gorm.DB) ToolRepository { return &GormToolRepository{db: db} }

func (r *GormToolRepository) FindByID(id uint) (*domain.AiTool, error) {
	var tool domain.AiTool
	err := r.db.Preload("Types").Preload("Roles").Preload("AiToolType").First(&tool, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrToolNotFound
		}
		return nil, err
	}
	return &tool, nil
}

func (r *GormToolRepository) ListAll() ([]domain.AiTool, error) {
	var tools []domain.AiTool
	err := r.db.Preload("Types").Preload("Roles").Preload("AiToolType").Order("id").Find(&tools).Error
	return tools, err
}

func (r *GormToolRepository) ListByRoleIDs(roleIDs []uint) ([]domain.AiTool, error) {
	if len(roleIDs) == 0 {
		return []domain.AiTool{}, nil
	}
	var tools []domain.AiTool
	err := r.db.Preload("Types").Preload("Roles").Preload("AiToolType").
		Where("id IN (?)", r.db.Table("ai_tool_role_assignments").
			Select("ai_tool_id").Where("role_id IN ?", roleIDs)).
		Order("id").Find(&tools).Error
	return tools, err
}

func (r *GormToolRepository) Create(tool *domain.AiTool, typeIDs, roleIDs []uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		tool.AiToolTypeID = typeIDs[0]
		if err := tx.Omit(clause.Associations).Create(tool).Error; err != nil {
			return err
		}
		types, roles, err := loadAssociations(tx, typeIDs, roleIDs)
		if err != nil {
			return err
		}
		if err := tx.Model(tool).Association("Types").Append(&types); err != nil {
			return err
		}
		return tx.Model(tool).Association("Roles").Append(&roles)
	})
}

func (r *GormToolRepository) Update(tool *domain.AiTool, typeIDs, roleIDs []uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		tool.AiToolTypeID = typeIDs[0]
		if err := tx.Omit(clause.Associations).Save(tool).Error; err != nil {
			return err
		}
		types, roles, err := loadAssociations(tx, typeIDs, roleIDs)
		if err != nil {
			return err
		}
		if err := tx.Model(tool).Association("Types").Replace(&types); err != nil {
			return err
		}
		return tx.Model(tool).Association("Roles").Replace(&roles)
	})
}

func (r *GormToolRepository) Delete(id uint) error {
	res := r.db.Select(clause.Associations).Delete(&domain.AiTool{ID: id})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrToolNotFound
	}
	return nil
}

func loadAssociations(tx *gorm.DB, typeIDs, roleIDs []uint) ([]domain.AiToolType, []domain.Role, error) {
	var types []domain.AiToolType
	if err := tx.Where("id IN ?", typeIDs).Find(&types).Error; err != nil {
		return nil, nil, err
	}
	var roles []domain.Role
	if err := tx.Where("id IN ?", roleIDs).Find(&roles).Error; err != nil {
		return nil, nil, err
	}
	return types, roles, nil
}
