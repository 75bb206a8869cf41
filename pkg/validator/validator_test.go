package validator

import (
	"errors"
	"testing"

	"restaurant-pos/internal/apperr"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type restockRequest struct {
	IngredientID uuid.UUID        `json:"ingredient_id" validate:"uuid_required"`
	Amount       decimal.Decimal  `json:"amount" validate:"dgt0"`
	Threshold    *decimal.Decimal `json:"min_threshold" validate:"omitempty,dgte0"`
	Unit         string           `json:"unit" validate:"required,max=20"`
}

func TestValidateStruct(t *testing.T) {
	neg := decimal.NewFromInt(-1)
	zero := decimal.Zero

	tests := []struct {
		name   string
		req    restockRequest
		failed []string
	}{
		{"valid", restockRequest{IngredientID: uuid.New(), Amount: decimal.NewFromInt(5), Unit: "g"}, nil},
		{"zero threshold ok", restockRequest{IngredientID: uuid.New(), Amount: decimal.NewFromInt(5), Threshold: &zero, Unit: "g"}, nil},
		{"nil id", restockRequest{Amount: decimal.NewFromInt(5), Unit: "g"}, []string{"ingredient_id"}},
		{"zero amount", restockRequest{IngredientID: uuid.New(), Unit: "g"}, []string{"amount"}},
		{"negative threshold", restockRequest{IngredientID: uuid.New(), Amount: decimal.NewFromInt(1), Threshold: &neg, Unit: "g"}, []string{"min_threshold"}},
		{"missing unit", restockRequest{IngredientID: uuid.New(), Amount: decimal.NewFromInt(1)}, []string{"unit"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := ValidateStruct(tt.req)
			if len(errs) != len(tt.failed) {
				t.Fatalf("got %d errors, want %d", len(errs), len(tt.failed))
			}
			for i, f := range tt.failed {
				if errs[i].FailedField != f {
					t.Errorf("error %d: got field %s, want %s", i, errs[i].FailedField, f)
				}
			}
		})
	}
}

func TestValidateReturnsValidationKind(t *testing.T) {
	err := Validate(restockRequest{})
	if !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("got %v, want validation error", err)
	}
	var appErr *apperr.Error
	if !errors.As(err, &appErr) || len(appErr.Fields) != 3 {
		t.Fatalf("fields: %+v", appErr)
	}
	if Validate(restockRequest{IngredientID: uuid.New(), Amount: decimal.NewFromInt(1), Unit: "kg"}) != nil {
		t.Error("valid request rejected")
	}
}
