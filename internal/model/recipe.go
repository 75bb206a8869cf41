package model

import (
	"errors"

	"restaurant-pos/internal/apperr"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Recipe struct {
	BaseModel
	Name            string  `gorm:"type:varchar(100);not null;index" json:"name"`
	Instructions    string  `gorm:"type:text" json:"instructions"`
	PreparationTime int     `gorm:"not null;default:0" json:"preparation_time"`
	Image           *string `gorm:"type:varchar(500)" json:"image,omitempty"`

	// Ordered by Position. Quantity on each line is the amount for one portion.
	Ingredients []RecipeIngredient `gorm:"foreignKey:RecipeID;constraint:OnDelete:CASCADE" json:"ingredients"`

	// Portions ready for sale. Written only by ProductionRecord and Sale hooks.
	PreparedQuantity decimal.Decimal `gorm:"type:decimal(20,6);not null" json:"prepared_quantity"`
}

type RecipeIngredient struct {
	ID           uint            `gorm:"primaryKey" json:"-"`
	RecipeID     uuid.UUID       `gorm:"type:uuid;not null;index" json:"-"`
	Position     int             `gorm:"not null" json:"position"`
	IngredientID uuid.UUID       `gorm:"type:uuid;not null;index" json:"ingredient_id"`
	Ingredient   *Ingredient     `gorm:"foreignKey:IngredientID" json:"ingredient,omitempty"`
	Quantity     decimal.Decimal `gorm:"type:decimal(20,6);not null" json:"quantity"`
}

// RecipeResponse carries the derived costing fields next to the stored recipe.
type RecipeResponse struct {
	Recipe
	CanMake     bool            `json:"can_make"`
	MaxPortions decimal.Decimal `json:"max_portions"`
	Cost        decimal.Decimal `json:"cost"`
}

// lockPrepared reads the recipe's prepared quantity with a row lock held until tx ends.
func lockPrepared(tx *gorm.DB, recipeID uuid.UUID) (decimal.Decimal, error) {
	var recipe Recipe
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Select("id", "prepared_quantity").
		First(&recipe, "id = ?", recipeID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return decimal.Zero, apperr.NotFound("recipe %s not found", recipeID)
	}
	return recipe.PreparedQuantity, err
}

// setPrepared stores next only while the row still holds prev. The arithmetic is
// done in Go so it stays exact whatever column type the driver uses.
func setPrepared(tx *gorm.DB, recipeID uuid.UUID, prev, next decimal.Decimal) error {
	res := tx.Model(&Recipe{}).
		Where("id = ? AND prepared_quantity = ?", recipeID, prev).
		UpdateColumn("prepared_quantity", next)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected != 1 {
		return apperr.TransactionFailure(nil, "prepared quantity of recipe %s changed concurrently", recipeID)
	}
	return nil
}
