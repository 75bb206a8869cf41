package model

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product offers a recipe for sale. Cost, profit and margin are derived, never stored.
type Product struct {
	BaseModel
	RecipeID uuid.UUID       `gorm:"type:uuid;not null;index" json:"recipe_id"`
	Recipe   *Recipe         `gorm:"foreignKey:RecipeID" json:"recipe,omitempty"`
	Name     string          `gorm:"type:varchar(100);not null;index" json:"name"`
	Price    decimal.Decimal `gorm:"type:decimal(20,6);not null" json:"price"`
	IsActive bool            `gorm:"not null" json:"is_active"`
}

type ProductResponse struct {
	Product
	Cost             decimal.Decimal `json:"cost"`
	Profit           decimal.Decimal `json:"profit"`
	ProfitMargin     decimal.Decimal `json:"profit_margin"`
	PreparedQuantity decimal.Decimal `json:"prepared_quantity"`
	CanSell          bool            `json:"can_sell"`
}
