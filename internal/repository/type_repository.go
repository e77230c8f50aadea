package repository

import (
	"errors"

	"github.com/toolvault/toolvault/internal/domain"

	"gorm.io/gorm"
)

type TypeRepository interface {
	FindByID(id uint) (*domain.AiToolType, error)
	List() ([]domain.AiToolType, error)
	Create(t *domain.AiToolType) error
	CountByIDs(ids []uint) (int64, error)
	// ListWithCounts computes the per-type tool count from BOTH relationship
	// shapes and reports the larger of the two. The legacy one-to-many column
	// and the join table coexist mid-migration; until the backfill has run,
	// either may undercount on its own.
	ListWithCounts() ([]domain.AiToolTypeWithCount, error)
}

type GormTypeRepository struct{ db *gorm.DB }

func NewTypeRepository(db *gorm.DB) TypeRepository { return &GormTypeRepository{db: db} }

func (r *GormTypeRepository) FindByID(id uint) (*domain.AiToolType, error) {
	var t domain.AiToolType
	err := r.db.First(&t, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrToolTypeNotFound
		}
		return nil, err
	}
	return &t, nil
}

func (r *GormTypeRepository) List() ([]domain.AiToolType, error) {
	var types []domain.AiToolType
	err := r.db.Order("id").Find(&types).Error
	return types, err
}

func (r *GormTypeRepository) Create(t *domain.AiToolType) error {
	return r.db.Create(t).Error
}

func (r *GormTypeRepository) CountByIDs(ids []uint) (int64, error) {
	var count int64
	err := r.db.Model(&domain.AiToolType{}).Where("id IN ?", ids).Count(&count).Error
	return count, err
}

type typeCountRow struct {
	TypeID uint
	N      int64
}

func (r *GormTypeRepository) ListWithCounts() ([]domain.AiToolTypeWithCount, error) {
	types, err := r.List()
	if err != nil {
		return nil, err
	}

	var legacy []typeCountRow
	if err := r.db.Model(&domain.AiTool{}).
		Select("ai_tool_type_id AS type_id, COUNT(*) AS n").
		Group("ai_tool_type_id").Scan(&legacy).Error; err != nil {
		return nil, err
	}
	var pivot []typeCountRow
	if err := r.db.Table("ai_tool_type_assignments").
		Select("ai_tool_type_id AS type_id, COUNT(*) AS n").
		Group("ai_tool_type_id").Scan(&pivot).Error; err != nil {
		return nil, err
	}

	legacyByID := make(map[uint]int64, len(legacy))
	for _, row := range legacy {
		legacyByID[row.TypeID] = row.N
	}
	pivotByID := make(map[uint]int64, len(pivot))
	for _, row := range pivot {
		pivotByID[row.TypeID] = row.N
	}

	out := make([]domain.AiToolTypeWithCount, 0, len(types))
	for _, t := range types {
		count := legacyByID[t.ID]
		if pivotByID[t.ID] > count {
			count = pivotByID[t.ID]
		}
		out = append(out, domain.AiToolTypeWithCount{
			ID:          t.ID,
			Name:        t.Name,
			Description: t.Description,
			ToolsCount:  count,
			CreatedAt:   t.CreatedAt,
			UpdatedAt:   t.UpdatedAt,
		})
	}
	return out, nil
}
