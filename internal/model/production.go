package model

import (
	"errors"

	"restaurant-pos/internal/apperr"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ProductionRecord is the immutable log entry of one prepare operation.
type ProductionRecord struct {
	BaseModel
	RecipeID uuid.UUID       `gorm:"type:uuid;not null;index" json:"recipe_id"`
	Recipe   *Recipe         `gorm:"foreignKey:RecipeID" json:"recipe,omitempty"`
	Quantity decimal.Decimal `gorm:"type:decimal(20,6);not null" json:"quantity"`
	Notes    string          `gorm:"type:text" json:"notes"`
}

// AfterCreate moves the produced portions into the recipe's prepared quantity.
// It runs inside the caller's transaction, so a failure here rolls back the stock deduction too.
func (p *ProductionRecord) AfterCreate(tx *gorm.DB) error {
	if !p.Quantity.IsPositive() {
		return apperr.InvalidState("production quantity must be greater than zero")
	}

	prepared, err := lockPrepared(tx, p.RecipeID)
	if errors.Is(err, apperr.ErrNotFound) {
		return apperr.TransactionFailure(nil, "recipe %s disappeared during production", p.RecipeID)
	}
	if err != nil {
		return err
	}
	return setPrepared(tx, p.RecipeID, prepared, prepared.Add(p.Quantity))
}
