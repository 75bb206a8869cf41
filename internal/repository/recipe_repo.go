package repository

import (
	"restaurant-pos/internal/apperr"
	"restaurant-pos/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type RecipeRepository interface {
	Create(tx *gorm.DB, recipe *model.Recipe) error
	FindAll(q ListQuery) ([]model.Recipe, int64, error)
	Search(q ListQuery) ([]model.Recipe, error)
	FindByID(id uuid.UUID) (*model.Recipe, error)
	NameTaken(name string, exclude uuid.UUID) (bool, error)
	IsReferenced(id uuid.UUID) (bool, error)
	Update(tx *gorm.DB, recipe *model.Recipe) error
	Delete(id uuid.UUID, deletedBy string) error

	// LockByID row-locks the recipe and loads its lines without their ingredients.
	LockByID(tx *gorm.DB, id uuid.UUID) (*model.Recipe, error)
}

var recipeSortColumns = map[string]string{
	"name":             "name",
	"preparationTime":  "preparation_time",
	"preparedQuantity": numeric("prepared_quantity"),
	"createdAt":        "created_at",
	"updatedAt":        "updated_at",
}

type recipeRepo struct {
	db *gorm.DB
}

func NewRecipeRepo(db *gorm.DB) RecipeRepository {
	return &recipeRepo{db}
}

// withLines preloads ordered ingredient lines and their live ingredients.
// A line whose ingredient was deleted keeps a nil Ingredient.
func withLines(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Ingredients", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Preload("Ingredients.Ingredient")
}

// Create inserts the recipe and its lines. Prepared quantity always starts at zero.
func (r *recipeRepo) Create(tx *gorm.DB, recipe *model.Recipe) error {
	recipe.PreparedQuantity = decimal.Zero
	err := tx.Create(recipe).Error
	return duplicate(err, "recipe %q already exists", recipe.Name)
}

func (r *recipeRepo) filtered(q ListQuery) *gorm.DB {
	query := r.db.Model(&model.Recipe{})
	if q.Search != "" {
		pattern := searchPattern(q.Search)
		query = query.Where("LOWER(name) LIKE ? OR LOWER(instructions) LIKE ?", pattern, pattern)
	}
	return query
}

func (r *recipeRepo) FindAll(q ListQuery) ([]model.Recipe, int64, error) {
	q = q.normalized()
	query := r.filtered(q)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var recipes []model.Recipe
	err := withLines(query).
		Order(orderBy(q, recipeSortColumns, "created_at", true)).
		Offset(q.Offset()).Limit(q.Limit).
		Find(&recipes).Error
	return recipes, total, err
}

// Search returns every matching recipe, sorted but not paged, for filters computed in memory.
func (r *recipeRepo) Search(q ListQuery) ([]model.Recipe, error) {
	q = q.normalized()
	var recipes []model.Recipe
	err := withLines(r.filtered(q)).
		Order(orderBy(q, recipeSortColumns, "created_at", true)).
		Find(&recipes).Error
	return recipes, err
}

func (r *recipeRepo) FindByID(id uuid.UUID) (*model.Recipe, error) {
	var recipe model.Recipe
	if err := withLines(r.db).First(&recipe, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "recipe %s not found", id)
	}
	return &recipe, nil
}

func (r *recipeRepo) NameTaken(name string, exclude uuid.UUID) (bool, error) {
	var count int64
	err := r.db.Model(&model.Recipe{}).
		Where("LOWER(name) = LOWER(?) AND id <> ?", name, exclude).
		Count(&count).Error
	return count > 0, err
}

// IsReferenced reports whether a live product is built on the recipe.
func (r *recipeRepo) IsReferenced(id uuid.UUID) (bool, error) {
	var count int64
	err := r.db.Model(&model.Product{}).Where("recipe_id = ?", id).Count(&count).Error
	return count > 0, err
}

// Update writes the descriptive fields and replaces the ingredient lines wholesale.
// Prepared quantity is owned by the ledgers and never written here.
func (r *recipeRepo) Update(tx *gorm.DB, recipe *model.Recipe) error {
	res := tx.Model(recipe).Omit("Ingredients").
		Select("name", "instructions", "preparation_time", "image", "updated_by", "updated_at").
		Updates(recipe)
	if res.Error != nil {
		return duplicate(res.Error, "recipe %q already exists", recipe.Name)
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("recipe %s not found", recipe.ID)
	}

	if err := tx.Where("recipe_id = ?", recipe.ID).Delete(&model.RecipeIngredient{}).Error; err != nil {
		return err
	}
	if len(recipe.Ingredients) == 0 {
		return nil
	}
	for i := range recipe.Ingredients {
		recipe.Ingredients[i].ID = 0
		recipe.Ingredients[i].RecipeID = recipe.ID
	}
	return tx.Omit("Ingredient").Create(&recipe.Ingredients).Error
}

func (r *recipeRepo) Delete(id uuid.UUID, deletedBy string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.Recipe{}).Where("id = ?", id).
			UpdateColumn("deleted_by", deletedBy).Error; err != nil {
			return err
		}
		res := tx.Delete(&model.Recipe{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.NotFound("recipe %s not found", id)
		}
		return nil
	})
}

func (r *recipeRepo) LockByID(tx *gorm.DB, id uuid.UUID) (*model.Recipe, error) {
	var recipe model.Recipe
	err := tx.Clauses(forUpdate()).
		Preload("Ingredients", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		First(&recipe, "id = ?", id).Error
	if err != nil {
		return nil, notFound(err, "recipe %s not found", id)
	}
	return &recipe, nil
}
