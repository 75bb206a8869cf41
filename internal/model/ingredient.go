package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Ingredient is a raw stocked material. Quantity only moves through restock and production.
type Ingredient struct {
	BaseModel
	Name         string          `gorm:"type:varchar(100);not null;index" json:"name"`
	Quantity     decimal.Decimal `gorm:"type:decimal(20,6);not null" json:"quantity"`
	Unit         string          `gorm:"type:varchar(20);not null" json:"unit"`
	MinThreshold decimal.Decimal `gorm:"type:decimal(20,6);not null" json:"min_threshold"`
	CostPerUnit  decimal.Decimal `gorm:"type:decimal(20,6);not null" json:"cost_per_unit"`
}

func (i *Ingredient) IsLowStock() bool {
	return i.Quantity.LessThanOrEqual(i.MinThreshold)
}

type IngredientResponse struct {
	ID           uuid.UUID       `json:"id"`
	Name         string          `json:"name"`
	Quantity     decimal.Decimal `json:"quantity"`
	Unit         string          `json:"unit"`
	MinThreshold decimal.Decimal `json:"min_threshold"`
	CostPerUnit  decimal.Decimal `json:"cost_per_unit"`
	IsLowStock   bool            `json:"is_low_stock"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

func (i *Ingredient) ToResponse() IngredientResponse {
	return IngredientResponse{
		ID:           i.ID,
		Name:         i.Name,
		Quantity:     i.Quantity,
		Unit:         i.Unit,
		MinThreshold: i.MinThreshold,
		CostPerUnit:  i.CostPerUnit,
		IsLowStock:   i.IsLowStock(),
		CreatedAt:    i.CreatedAt,
		UpdatedAt:    i.UpdatedAt,
	}
}
