package repository

import (
	"restaurant-pos/internal/apperr"
	"restaurant-pos/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type ProductFilter struct {
	ListQuery
	// Nil lists every product regardless of its flag.
	IsActive *bool
}

type ProductRepository interface {
	Create(product *model.Product) error
	FindAll(filter ProductFilter) ([]model.Product, int64, error)
	FindActive() ([]model.Product, error)
	FindByID(id uuid.UUID) (*model.Product, error)
	Update(product *model.Product) error
	UpdatePrice(tx *gorm.DB, id uuid.UUID, price decimal.Decimal, updatedBy string) error
	SetActive(id uuid.UUID, active bool, updatedBy string) error
	Delete(id uuid.UUID, deletedBy string) error
}

var productSortColumns = map[string]string{
	"name":      "name",
	"price":     numeric("price"),
	"isActive":  "is_active",
	"createdAt": "created_at",
	"updatedAt": "updated_at",
}

type productRepo struct {
	db *gorm.DB
}

func NewProductRepo(db *gorm.DB) ProductRepository {
	return &productRepo{db}
}

// withRecipe preloads the recipe with its lines so cost and prepared quantity can be derived.
func withRecipe(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Recipe").
		Preload("Recipe.Ingredients", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Preload("Recipe.Ingredients.Ingredient")
}

func (r *productRepo) Create(product *model.Product) error {
	return r.db.Omit("Recipe").Create(product).Error
}

func (r *productRepo) FindAll(filter ProductFilter) ([]model.Product, int64, error) {
	q := filter.normalized()
	query := r.db.Model(&model.Product{})
	if q.Search != "" {
		query = query.Where("LOWER(name) LIKE ?", searchPattern(q.Search))
	}
	if filter.IsActive != nil {
		query = query.Where("is_active = ?", *filter.IsActive)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var products []model.Product
	err := withRecipe(query).
		Order(orderBy(q, productSortColumns, "created_at", true)).
		Offset(q.Offset()).Limit(q.Limit).
		Find(&products).Error
	return products, total, err
}

func (r *productRepo) FindActive() ([]model.Product, error) {
	var products []model.Product
	err := withRecipe(r.db).Where("is_active = ?", true).Order("name ASC").Find(&products).Error
	return products, err
}

func (r *productRepo) FindByID(id uuid.UUID) (*model.Product, error) {
	var product model.Product
	if err := withRecipe(r.db).First(&product, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "product %s not found", id)
	}
	return &product, nil
}

func (r *productRepo) Update(product *model.Product) error {
	res := r.db.Model(product).Omit("Recipe").
		Select("recipe_id", "name", "price", "is_active", "updated_by", "updated_at").
		Updates(product)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("product %s not found", product.ID)
	}
	return nil
}

// UpdatePrice takes a *gorm.DB so bulk runs can share one connection or transaction per item.
func (r *productRepo) UpdatePrice(tx *gorm.DB, id uuid.UUID, price decimal.Decimal, updatedBy string) error {
	res := tx.Model(&model.Product{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"price":      price,
			"updated_by": updatedBy,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("product %s not found", id)
	}
	return nil
}

func (r *productRepo) SetActive(id uuid.UUID, active bool, updatedBy string) error {
	res := r.db.Model(&model.Product{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"is_active":  active,
			"updated_by": updatedBy,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("product %s not found", id)
	}
	return nil
}

func (r *productRepo) Delete(id uuid.UUID, deletedBy string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.Product{}).Where("id = ?", id).
			UpdateColumn("deleted_by", deletedBy).Error; err != nil {
			return err
		}
		res := tx.Delete(&model.Product{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.NotFound("product %s not found", id)
		}
		return nil
	})
}
