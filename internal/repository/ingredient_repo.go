package repository

import (
	"errors"

	"restaurant-pos/internal/apperr"
	"restaurant-pos/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type IngredientFilter struct {
	ListQuery
	LowStock bool
}

type IngredientRepository interface {
	Create(ingredient *model.Ingredient) error
	FindAll(filter IngredientFilter) ([]model.Ingredient, int64, error)
	FindByID(id uuid.UUID) (*model.Ingredient, error)
	FindByIDs(tx *gorm.DB, ids []uuid.UUID) ([]model.Ingredient, error)
	FindLowStock() ([]model.Ingredient, error)
	NameTaken(name string, exclude uuid.UUID) (bool, error)
	IsReferenced(id uuid.UUID) (bool, error)
	Update(ingredient *model.Ingredient) error
	Delete(id uuid.UUID, deletedBy string) error

	// Stock movements. Both run on the caller's transaction and compute the new stock in Go.
	LockByIDs(tx *gorm.DB, ids []uuid.UUID) ([]model.Ingredient, error)
	Restock(tx *gorm.DB, id uuid.UUID, amount decimal.Decimal, updatedBy string) error
	Consume(tx *gorm.DB, id uuid.UUID, amount decimal.Decimal, updatedBy string) error
}

var lowStock = numeric("quantity") + " <= " + numeric("min_threshold")

var ingredientSortColumns = map[string]string{
	"name":         "name",
	"quantity":     numeric("quantity"),
	"unit":         "unit",
	"minThreshold": numeric("min_threshold"),
	"costPerUnit":  numeric("cost_per_unit"),
	"createdAt":    "created_at",
	"updatedAt":    "updated_at",
}

type ingredientRepo struct {
	db *gorm.DB
}

func NewIngredientRepo(db *gorm.DB) IngredientRepository {
	return &ingredientRepo{db}
}

func (r *ingredientRepo) Create(ingredient *model.Ingredient) error {
	err := r.db.Create(ingredient).Error
	return duplicate(err, "ingredient %q already exists", ingredient.Name)
}

func (r *ingredientRepo) FindAll(filter IngredientFilter) ([]model.Ingredient, int64, error) {
	q := filter.normalized()
	query := r.db.Model(&model.Ingredient{})
	if q.Search != "" {
		pattern := searchPattern(q.Search)
		query = query.Where("LOWER(name) LIKE ? OR LOWER(unit) LIKE ?", pattern, pattern)
	}
	if filter.LowStock {
		query = query.Where(lowStock)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var ingredients []model.Ingredient
	err := query.Order(orderBy(q, ingredientSortColumns, "name", false)).
		Offset(q.Offset()).Limit(q.Limit).
		Find(&ingredients).Error
	return ingredients, total, err
}

func (r *ingredientRepo) FindByID(id uuid.UUID) (*model.Ingredient, error) {
	var ingredient model.Ingredient
	if err := r.db.First(&ingredient, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "ingredient %s not found", id)
	}
	return &ingredient, nil
}

func (r *ingredientRepo) FindByIDs(tx *gorm.DB, ids []uuid.UUID) ([]model.Ingredient, error) {
	var ingredients []model.Ingredient
	if len(ids) == 0 {
		return ingredients, nil
	}
	err := tx.Where("id IN ?", ids).Find(&ingredients).Error
	return ingredients, err
}

func (r *ingredientRepo) FindLowStock() ([]model.Ingredient, error) {
	var ingredients []model.Ingredient
	err := r.db.Where(lowStock).Order(numeric("quantity") + " ASC").Find(&ingredients).Error
	return ingredients, err
}

// NameTaken compares names case-insensitively among live ingredients other than exclude.
func (r *ingredientRepo) NameTaken(name string, exclude uuid.UUID) (bool, error) {
	var count int64
	err := r.db.Model(&model.Ingredient{}).
		Where("LOWER(name) = LOWER(?) AND id <> ?", name, exclude).
		Count(&count).Error
	return count > 0, err
}

// IsReferenced reports whether a live recipe still lists the ingredient.
func (r *ingredientRepo) IsReferenced(id uuid.UUID) (bool, error) {
	var count int64
	err := r.db.Model(&model.RecipeIngredient{}).
		Joins("JOIN recipes ON recipes.id = recipe_ingredients.recipe_id AND recipes.deleted_at IS NULL").
		Where("recipe_ingredients.ingredient_id = ?", id).
		Count(&count).Error
	return count > 0, err
}

// Update writes the descriptive fields only. Quantity moves through Restock and Consume.
func (r *ingredientRepo) Update(ingredient *model.Ingredient) error {
	res := r.db.Model(ingredient).
		Select("name", "unit", "min_threshold", "cost_per_unit", "updated_by", "updated_at").
		Updates(ingredient)
	if res.Error != nil {
		return duplicate(res.Error, "ingredient %q already exists", ingredient.Name)
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("ingredient %s not found", ingredient.ID)
	}
	return nil
}

func (r *ingredientRepo) Delete(id uuid.UUID, deletedBy string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.Ingredient{}).Where("id = ?", id).
			UpdateColumn("deleted_by", deletedBy).Error; err != nil {
			return err
		}
		res := tx.Delete(&model.Ingredient{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.NotFound("ingredient %s not found", id)
		}
		return nil
	})
}

// LockByIDs loads and row-locks the ingredients in id order so concurrent ledgers lock in the same order.
func (r *ingredientRepo) LockByIDs(tx *gorm.DB, ids []uuid.UUID) ([]model.Ingredient, error) {
	var ingredients []model.Ingredient
	if len(ids) == 0 {
		return ingredients, nil
	}
	err := tx.Clauses(forUpdate()).
		Where("id IN ?", ids).
		Order("id").
		Find(&ingredients).Error
	return ingredients, err
}

func (r *ingredientRepo) Restock(tx *gorm.DB, id uuid.UUID, amount decimal.Decimal, updatedBy string) error {
	stock, err := r.lockStock(tx, id)
	if err != nil {
		return notFound(err, "ingredient %s not found", id)
	}
	return r.writeStock(tx, id, stock, stock.Add(amount), updatedBy)
}

// Consume deducts amount only while the stock still covers it. A miss means the row
// changed or vanished after the caller validated it.
func (r *ingredientRepo) Consume(tx *gorm.DB, id uuid.UUID, amount decimal.Decimal, updatedBy string) error {
	stock, err := r.lockStock(tx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.TransactionFailure(nil, "ingredient %s disappeared during production", id)
	}
	if err != nil {
		return err
	}
	if stock.LessThan(amount) {
		return apperr.TransactionFailure(nil, "stock of ingredient %s changed during production", id)
	}
	return r.writeStock(tx, id, stock, stock.Sub(amount), updatedBy)
}

func (r *ingredientRepo) lockStock(tx *gorm.DB, id uuid.UUID) (decimal.Decimal, error) {
	var ingredient model.Ingredient
	err := tx.Clauses(forUpdate()).Select("id", "quantity").First(&ingredient, "id = ?", id).Error
	return ingredient.Quantity, err
}

// writeStock stores next computed in Go and only while the row still holds prev.
func (r *ingredientRepo) writeStock(tx *gorm.DB, id uuid.UUID, prev, next decimal.Decimal, updatedBy string) error {
	res := tx.Model(&model.Ingredient{}).
		Where("id = ? AND quantity = ?", id, prev).
		UpdateColumns(map[string]interface{}{
			"quantity":   next,
			"updated_by": updatedBy,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected != 1 {
		return apperr.TransactionFailure(nil, "stock of ingredient %s changed concurrently", id)
	}
	return nil
}
