package model

import (
	"errors"
	"time"

	"restaurant-pos/internal/apperr"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Sale consumes prepared portions of the product's recipe. A refunded sale is soft deleted.
type Sale struct {
	BaseModel
	ProductID uuid.UUID       `gorm:"type:uuid;not null;index" json:"product_id"`
	Product   *Product        `gorm:"foreignKey:ProductID" json:"product,omitempty"`
	Quantity  int             `gorm:"not null" json:"quantity"`
	UnitPrice decimal.Decimal `gorm:"type:decimal(20,6);not null" json:"unit_price"`
	Timestamp time.Time       `gorm:"index;not null" json:"timestamp"`
	Notes     string          `gorm:"type:text" json:"notes"`
}

func (s *Sale) TotalPrice() decimal.Decimal {
	return s.UnitPrice.Mul(decimal.NewFromInt(int64(s.Quantity)))
}

type SaleResponse struct {
	Sale
	TotalPrice decimal.Decimal `json:"total_price"`
	Profit     decimal.Decimal `json:"profit"`
}

func (s *Sale) recipeID(tx *gorm.DB) (uuid.UUID, error) {
	var product Product
	err := tx.Unscoped().Select("id", "recipe_id").First(&product, "id = ?", s.ProductID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return uuid.Nil, apperr.NotFound("product %s not found", s.ProductID)
	}
	if err != nil {
		return uuid.Nil, err
	}
	return product.RecipeID, nil
}

// AfterCreate takes the sold portions out of the recipe's prepared quantity.
// Prepared quantity can never go negative.
func (s *Sale) AfterCreate(tx *gorm.DB) error {
	if s.Quantity < 1 {
		return apperr.InvalidState("sale quantity must be at least 1")
	}
	recipeID, err := s.recipeID(tx)
	if err != nil {
		return err
	}
	prepared, err := lockPrepared(tx, recipeID)
	if err != nil {
		return err
	}

	qty := decimal.NewFromInt(int64(s.Quantity))
	if prepared.LessThan(qty) {
		return apperr.InsufficientStock(prepared, "cannot sell %d, only %s prepared", s.Quantity, prepared.String())
	}
	return setPrepared(tx, recipeID, prepared, prepared.Sub(qty))
}

// AfterDelete gives a refunded sale's portions back to the recipe. Ingredient stock is untouched.
func (s *Sale) AfterDelete(tx *gorm.DB) error {
	recipeID, err := s.recipeID(tx)
	if err != nil {
		return err
	}
	prepared, err := lockPrepared(tx, recipeID)
	if errors.Is(err, apperr.ErrNotFound) {
		return apperr.InvalidState("recipe %s no longer exists, cannot restore prepared quantity", recipeID)
	}
	if err != nil {
		return err
	}
	return setPrepared(tx, recipeID, prepared, prepared.Add(decimal.NewFromInt(int64(s.Quantity))))
}
