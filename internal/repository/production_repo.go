package repository

import (
	"restaurant-pos/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ProductionRepository interface {
	// Create appends a record on the caller's transaction; the model hook credits the recipe.
	Create(tx *gorm.DB, record *model.ProductionRecord) error
	FindByRecipe(recipeID uuid.UUID, q ListQuery) ([]model.ProductionRecord, int64, error)
}

type productionRepo struct {
	db *gorm.DB
}

func NewProductionRepo(db *gorm.DB) ProductionRepository {
	return &productionRepo{db}
}

func (r *productionRepo) Create(tx *gorm.DB, record *model.ProductionRecord) error {
	return tx.Omit("Recipe").Create(record).Error
}

func (r *productionRepo) FindByRecipe(recipeID uuid.UUID, q ListQuery) ([]model.ProductionRecord, int64, error) {
	q = q.normalized()
	query := r.db.Model(&model.ProductionRecord{}).Where("recipe_id = ?", recipeID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var records []model.ProductionRecord
	err := query.Order("created_at DESC").
		Offset(q.Offset()).Limit(q.Limit).
		Find(&records).Error
	return records, total, err
}
