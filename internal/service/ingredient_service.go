package service

import (
	"context"
	"fmt"
	"strings"

	"restaurant-pos/internal/apperr"
	"restaurant-pos/internal/model"
	"restaurant-pos/internal/repository"
	"restaurant-pos/pkg/logger"
	"restaurant-pos/pkg/validator"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const ingredientModule = "IngredientService"

type IngredientInput struct {
	Name         string          `json:"name" validate:"required,max=100"`
	Quantity     decimal.Decimal `json:"quantity" validate:"dgte0"`
	Unit         string          `json:"unit" validate:"required,max=20"`
	MinThreshold decimal.Decimal `json:"min_threshold" validate:"dgte0"`
	CostPerUnit  decimal.Decimal `json:"cost_per_unit" validate:"dgte0"`
}

// IngredientUpdate is a partial update. Quantity is accepted only to reject it:
// stock changes through restock and production.
type IngredientUpdate struct {
	Name         *string          `json:"name" validate:"omitempty,min=1,max=100"`
	Unit         *string          `json:"unit" validate:"omitempty,min=1,max=20"`
	MinThreshold *decimal.Decimal `json:"min_threshold" validate:"omitempty,dgte0"`
	CostPerUnit  *decimal.Decimal `json:"cost_per_unit" validate:"omitempty,dgte0"`
	Quantity     *decimal.Decimal `json:"quantity"`
}

type BulkIngredientItem struct {
	ID   uuid.UUID        `json:"id"`
	Data IngredientUpdate `json:"data"`
}

type IngredientPage struct {
	Ingredients []model.IngredientResponse `json:"ingredients"`
	Pagination  repository.Pagination      `json:"pagination"`
}

type LowStockReport struct {
	Count       int                        `json:"count"`
	Ingredients []model.IngredientResponse `json:"ingredients"`
}

type IngredientService interface {
	List(filter repository.IngredientFilter) (*IngredientPage, error)
	Get(id uuid.UUID) (*model.IngredientResponse, error)
	Create(req IngredientInput, by string) (*model.IngredientResponse, error)
	Update(id uuid.UUID, req IngredientUpdate, by string) (*model.IngredientResponse, error)
	Delete(id uuid.UUID, by string) error
	Restock(ctx context.Context, id uuid.UUID, amount decimal.Decimal, by string) (*model.IngredientResponse, error)
	LowStock() (*LowStockReport, error)
	BulkUpdate(items []BulkIngredientItem, by string) []BulkResult[model.IngredientResponse]
}

type ingredientService struct {
	repo repository.IngredientRepository
	db   *gorm.DB
	deps Deps
}

func NewIngredientService(repo repository.IngredientRepository, db *gorm.DB, deps Deps) IngredientService {
	return &ingredientService{repo: repo, db: db, deps: deps}
}

func toIngredientResponses(list []model.Ingredient) []model.IngredientResponse {
	out := make([]model.IngredientResponse, 0, len(list))
	for i := range list {
		out = append(out, list[i].ToResponse())
	}
	return out
}

func (s *ingredientService) List(filter repository.IngredientFilter) (*IngredientPage, error) {
	list, total, err := s.repo.FindAll(filter)
	if err != nil {
		return nil, err
	}
	return &IngredientPage{
		Ingredients: toIngredientResponses(list),
		Pagination:  repository.NewPagination(filter.ListQuery, total),
	}, nil
}

func (s *ingredientService) Get(id uuid.UUID) (*model.IngredientResponse, error) {
	ing, err := s.repo.FindByID(id)
	if err != nil {
		return nil, err
	}
	resp := ing.ToResponse()
	return &resp, nil
}

func (s *ingredientService) checkName(name string, exclude uuid.UUID) error {
	taken, err := s.repo.NameTaken(name, exclude)
	if err != nil {
		return err
	}
	if taken {
		return apperr.Conflict("ingredient %q already exists", name)
	}
	return nil
}

func (s *ingredientService) Create(req IngredientInput, by string) (*model.IngredientResponse, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Unit = strings.TrimSpace(req.Unit)
	if err := validator.Validate(req); err != nil {
		return nil, err
	}
	if err := s.checkName(req.Name, uuid.Nil); err != nil {
		return nil, err
	}

	ing := &model.Ingredient{
		Name:         req.Name,
		Quantity:     req.Quantity,
		Unit:         req.Unit,
		MinThreshold: req.MinThreshold,
		CostPerUnit:  req.CostPerUnit,
	}
	ing.CreatedBy = by
	ing.UpdatedBy = by

	if err := s.repo.Create(ing); err != nil {
		if apperr.KindOf(err) == "" {
			logger.LogError(s.deps.logger(), ingredientModule, "Create", "insert ingredient", req, err)
		}
		return nil, err
	}
	resp := ing.ToResponse()
	return &resp, nil
}

func (s *ingredientService) Update(id uuid.UUID, req IngredientUpdate, by string) (*model.IngredientResponse, error) {
	if req.Quantity != nil {
		return nil, apperr.ValidationFields("quantity cannot be edited, use restock or production", []string{"quantity"})
	}
	if req.Name != nil {
		trimmed := strings.TrimSpace(*req.Name)
		req.Name = &trimmed
	}
	if req.Unit != nil {
		trimmed := strings.TrimSpace(*req.Unit)
		req.Unit = &trimmed
	}
	if err := validator.Validate(req); err != nil {
		return nil, err
	}

	ing, err := s.repo.FindByID(id)
	if err != nil {
		return nil, err
	}
	if req.Name != nil && !strings.EqualFold(*req.Name, ing.Name) {
		if err := s.checkName(*req.Name, id); err != nil {
			return nil, err
		}
	}

	if req.Name != nil {
		ing.Name = *req.Name
	}
	if req.Unit != nil {
		ing.Unit = *req.Unit
	}
	if req.MinThreshold != nil {
		ing.MinThreshold = *req.MinThreshold
	}
	if req.CostPerUnit != nil {
		ing.CostPerUnit = *req.CostPerUnit
	}
	ing.UpdatedBy = by

	if err := s.repo.Update(ing); err != nil {
		return nil, err
	}
	if req.CostPerUnit != nil {
		s.deps.invalidateDashboard(context.Background(), ingredientModule, "Update")
	}
	resp := ing.ToResponse()
	return &resp, nil
}

func (s *ingredientService) Delete(id uuid.UUID, by string) error {
	if _, err := s.repo.FindByID(id); err != nil {
		return err
	}
	referenced, err := s.repo.IsReferenced(id)
	if err != nil {
		return err
	}
	if referenced {
		return apperr.Conflict("ingredient %s is used by a recipe", id)
	}
	return s.repo.Delete(id, by)
}

func (s *ingredientService) Restock(ctx context.Context, id uuid.UUID, amount decimal.Decimal, by string) (*model.IngredientResponse, error) {
	if !amount.IsPositive() {
		return nil, apperr.Validation("restock amount must be greater than zero")
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.repo.Restock(tx, id, amount, by)
	})
	if err != nil {
		if apperr.KindOf(err) == "" {
			logger.LogError(s.deps.logger(), ingredientModule, "Restock", "restock transaction", id, err)
		}
		return nil, err
	}

	ing, err := s.repo.FindByID(id)
	if err != nil {
		return nil, err
	}
	resp := ing.ToResponse()

	s.deps.logger().WithFields(logrus.Fields{
		"ingredient_id": id,
		"amount":        amount.String(),
		"quantity":      ing.Quantity.String(),
		"by":            by,
	}).Info("ingredient restocked")
	s.deps.publish("ingredient_restocked", by,
		fmt.Sprintf("%s restocked %s %s of '%s'", by, amount.String(), ing.Unit, ing.Name), resp)
	return &resp, nil
}

func (s *ingredientService) LowStock() (*LowStockReport, error) {
	list, err := s.repo.FindLowStock()
	if err != nil {
		return nil, err
	}
	return &LowStockReport{Count: len(list), Ingredients: toIngredientResponses(list)}, nil
}

func (s *ingredientService) BulkUpdate(items []BulkIngredientItem, by string) []BulkResult[model.IngredientResponse] {
	results := make([]BulkResult[model.IngredientResponse], 0, len(items))
	for _, item := range items {
		resp, err := s.Update(item.ID, item.Data, by)
		if err != nil {
			results = append(results, BulkResult[model.IngredientResponse]{ID: item.ID.String(), Error: err.Error()})
			continue
		}
		results = append(results, BulkResult[model.IngredientResponse]{ID: item.ID.String(), Success: true, Item: resp})
	}
	return results
}
