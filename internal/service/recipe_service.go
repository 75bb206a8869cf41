package service

import (
	"context"
	"fmt"
	"strings"

	"restaurant-pos/internal/apperr"
	"restaurant-pos/internal/costing"
	"restaurant-pos/internal/model"
	"restaurant-pos/internal/repository"
	"restaurant-pos/pkg/logger"
	"restaurant-pos/pkg/validator"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const recipeModule = "RecipeService"

type RecipeLineInput struct {
	IngredientID uuid.UUID       `json:"ingredient_id" validate:"uuid_required"`
	Quantity     decimal.Decimal `json:"quantity" validate:"dgt0"`
}

type RecipeInput struct {
	Name            string            `json:"name" validate:"required,max=100"`
	Instructions    string            `json:"instructions"`
	PreparationTime int               `json:"preparation_time" validate:"gte=0"`
	Image           *string           `json:"image" validate:"omitempty,max=500"`
	Ingredients     []RecipeLineInput `json:"ingredients" validate:"dive"`
}

type RecipeFilter struct {
	repository.ListQuery
	// CanMake keeps only recipes whose feasibility matches. Nil keeps all.
	CanMake *bool
}

type RecipePage struct {
	Recipes    []model.RecipeResponse `json:"recipes"`
	Pagination repository.Pagination  `json:"pagination"`
}

// PrepareInput defaults to one portion when Quantity is omitted.
type PrepareInput struct {
	Quantity *decimal.Decimal `json:"quantity"`
	Notes    string           `json:"notes" validate:"max=500"`
}

type PrepareResult struct {
	Message    string                 `json:"message"`
	Recipe     model.RecipeResponse   `json:"recipe"`
	Production model.ProductionRecord `json:"production"`
}

type ProductionPage struct {
	Records    []model.ProductionRecord `json:"records"`
	Pagination repository.Pagination    `json:"pagination"`
}

type RecipeService interface {
	List(filter RecipeFilter) (*RecipePage, error)
	Get(id uuid.UUID) (*model.RecipeResponse, error)
	Create(ctx context.Context, req RecipeInput, by string) (*model.RecipeResponse, error)
	Update(ctx context.Context, id uuid.UUID, req RecipeInput, by string) (*model.RecipeResponse, error)
	Delete(id uuid.UUID, by string) error
	Duplicate(ctx context.Context, id uuid.UUID, by string) (*model.RecipeResponse, error)
	Available() ([]model.RecipeResponse, error)

	// Prepare is the production ledger: it consumes ingredient stock and credits prepared portions.
	Prepare(ctx context.Context, id uuid.UUID, req PrepareInput, by string) (*PrepareResult, error)
	ProductionHistory(id uuid.UUID, q repository.ListQuery) (*ProductionPage, error)
}

type recipeService struct {
	recipes     repository.RecipeRepository
	ingredients repository.IngredientRepository
	production  repository.ProductionRepository
	db          *gorm.DB
	deps        Deps
}

func NewRecipeService(
	recipes repository.RecipeRepository,
	ingredients repository.IngredientRepository,
	production repository.ProductionRepository,
	db *gorm.DB,
	deps Deps,
) RecipeService {
	return &recipeService{
		recipes:     recipes,
		ingredients: ingredients,
		production:  production,
		db:          db,
		deps:        deps,
	}
}

func describeRecipes(list []model.Recipe) []model.RecipeResponse {
	out := make([]model.RecipeResponse, 0, len(list))
	for i := range list {
		out = append(out, costing.Describe(&list[i]))
	}
	return out
}

func (s *recipeService) List(filter RecipeFilter) (*RecipePage, error) {
	if filter.CanMake == nil {
		list, total, err := s.recipes.FindAll(filter.ListQuery)
		if err != nil {
			return nil, err
		}
		return &RecipePage{
			Recipes:    describeRecipes(list),
			Pagination: repository.NewPagination(filter.ListQuery, total),
		}, nil
	}

	// Feasibility depends on live stock, so the filter runs in memory before paging.
	list, err := s.recipes.Search(filter.ListQuery)
	if err != nil {
		return nil, err
	}
	matched := make([]model.RecipeResponse, 0, len(list))
	for _, resp := range describeRecipes(list) {
		if resp.CanMake == *filter.CanMake {
			matched = append(matched, resp)
		}
	}
	return &RecipePage{
		Recipes:    repository.Paginate(matched, filter.ListQuery),
		Pagination: repository.NewPagination(filter.ListQuery, int64(len(matched))),
	}, nil
}

func (s *recipeService) Get(id uuid.UUID) (*model.RecipeResponse, error) {
	recipe, err := s.recipes.FindByID(id)
	if err != nil {
		return nil, err
	}
	resp := costing.Describe(recipe)
	return &resp, nil
}

func (s *recipeService) checkName(name string, exclude uuid.UUID) error {
	taken, err := s.recipes.NameTaken(name, exclude)
	if err != nil {
		return err
	}
	if taken {
		return apperr.Conflict("recipe %q already exists", name)
	}
	return nil
}

// buildLines enforces referential integrity at write time: every ingredient must exist
// and appear once.
func (s *recipeService) buildLines(tx *gorm.DB, input []RecipeLineInput) ([]model.RecipeIngredient, error) {
	ids := make([]uuid.UUID, 0, len(input))
	seen := make(map[uuid.UUID]bool, len(input))
	for _, line := range input {
		if seen[line.IngredientID] {
			return nil, apperr.ValidationFields(
				fmt.Sprintf("ingredient %s is listed more than once", line.IngredientID), []string{"ingredients"})
		}
		seen[line.IngredientID] = true
		ids = append(ids, line.IngredientID)
	}

	found, err := s.ingredients.FindByIDs(tx, ids)
	if err != nil {
		return nil, err
	}
	exists := make(map[uuid.UUID]bool, len(found))
	for _, ing := range found {
		exists[ing.ID] = true
	}

	lines := make([]model.RecipeIngredient, 0, len(input))
	for i, line := range input {
		if !exists[line.IngredientID] {
			return nil, apperr.ValidationFields(
				fmt.Sprintf("ingredient %s does not exist", line.IngredientID), []string{"ingredients"})
		}
		lines = append(lines, model.RecipeIngredient{
			Position:     i,
			IngredientID: line.IngredientID,
			Quantity:     line.Quantity,
		})
	}
	return lines, nil
}

func normalizeRecipeInput(req *RecipeInput) error {
	req.Name = strings.TrimSpace(req.Name)
	return validator.Validate(req)
}

func (s *recipeService) Create(ctx context.Context, req RecipeInput, by string) (*model.RecipeResponse, error) {
	if err := normalizeRecipeInput(&req); err != nil {
		return nil, err
	}
	if err := s.checkName(req.Name, uuid.Nil); err != nil {
		return nil, err
	}

	recipe := &model.Recipe{
		Name:            req.Name,
		Instructions:    req.Instructions,
		PreparationTime: req.PreparationTime,
		Image:           req.Image,
	}
	recipe.CreatedBy = by
	recipe.UpdatedBy = by

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		lines, err := s.buildLines(tx, req.Ingredients)
		if err != nil {
			return err
		}
		recipe.Ingredients = lines
		return s.recipes.Create(tx, recipe)
	})
	if err != nil {
		if apperr.KindOf(err) == "" {
			logger.LogError(s.deps.logger(), recipeModule, "Create", "insert recipe", req, err)
		}
		return nil, err
	}
	return s.Get(recipe.ID)
}

func (s *recipeService) Update(ctx context.Context, id uuid.UUID, req RecipeInput, by string) (*model.RecipeResponse, error) {
	if err := normalizeRecipeInput(&req); err != nil {
		return nil, err
	}
	existing, err := s.recipes.FindByID(id)
	if err != nil {
		return nil, err
	}
	if !strings.EqualFold(existing.Name, req.Name) {
		if err := s.checkName(req.Name, id); err != nil {
			return nil, err
		}
	}

	recipe := &model.Recipe{
		Name:            req.Name,
		Instructions:    req.Instructions,
		PreparationTime: req.PreparationTime,
		Image:           req.Image,
	}
	recipe.ID = id
	recipe.UpdatedBy = by

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		lines, err := s.buildLines(tx, req.Ingredients)
		if err != nil {
			return err
		}
		recipe.Ingredients = lines
		return s.recipes.Update(tx, recipe)
	})
	if err != nil {
		if apperr.KindOf(err) == "" {
			logger.LogError(s.deps.logger(), recipeModule, "Update", "update recipe", id, err)
		}
		return nil, err
	}
	s.deps.invalidateDashboard(ctx, recipeModule, "Update")
	return s.Get(id)
}

func (s *recipeService) Delete(id uuid.UUID, by string) error {
	if _, err := s.recipes.FindByID(id); err != nil {
		return err
	}
	referenced, err := s.recipes.IsReferenced(id)
	if err != nil {
		return err
	}
	if referenced {
		return apperr.Conflict("recipe %s is used by a product", id)
	}
	return s.recipes.Delete(id, by)
}

// Duplicate copies the recipe and its lines as "<name> (Copy)" with nothing prepared.
func (s *recipeService) Duplicate(ctx context.Context, id uuid.UUID, by string) (*model.RecipeResponse, error) {
	original, err := s.recipes.FindByID(id)
	if err != nil {
		return nil, err
	}

	req := RecipeInput{
		Name:            fmt.Sprintf("%s (Copy)", original.Name),
		Instructions:    original.Instructions,
		PreparationTime: original.PreparationTime,
		Image:           original.Image,
	}
	for _, line := range original.Ingredients {
		req.Ingredients = append(req.Ingredients, RecipeLineInput{
			IngredientID: line.IngredientID,
			Quantity:     line.Quantity,
		})
	}
	return s.Create(ctx, req, by)
}

func (s *recipeService) Available() ([]model.RecipeResponse, error) {
	list, err := s.recipes.Search(repository.ListQuery{SortBy: "name", SortOrder: "asc"})
	if err != nil {
		return nil, err
	}
	available := make([]model.RecipeResponse, 0, len(list))
	for _, resp := range describeRecipes(list) {
		if resp.CanMake {
			available = append(available, resp)
		}
	}
	return available, nil
}

// Prepare locks the recipe and its ingredients, re-checks feasibility on the locked rows,
// deducts every line with a guarded update and appends the production record.
// All of it commits or none of it does.
func (s *recipeService) Prepare(ctx context.Context, id uuid.UUID, req PrepareInput, by string) (*PrepareResult, error) {
	quantity := decimal.NewFromInt(1)
	if req.Quantity != nil {
		quantity = *req.Quantity
	}
	if !quantity.IsPositive() {
		return nil, apperr.InvalidState("quantity must be greater than zero")
	}
	if err := validator.Validate(req); err != nil {
		return nil, err
	}

	var (
		record     model.ProductionRecord
		recipeName string
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		recipe, err := s.recipes.LockByID(tx, id)
		if err != nil {
			return err
		}
		recipeName = recipe.Name

		ids := make([]uuid.UUID, 0, len(recipe.Ingredients))
		for _, line := range recipe.Ingredients {
			ids = append(ids, line.IngredientID)
		}

		locked, err := s.ingredients.LockByIDs(tx, ids)
		if err != nil {
			return err
		}
		byID := make(map[uuid.UUID]*model.Ingredient, len(locked))
		for i := range locked {
			byID[locked[i].ID] = &locked[i]
		}
		for i := range recipe.Ingredients {
			recipe.Ingredients[i].Ingredient = byID[recipe.Ingredients[i].IngredientID]
		}

		portions := costing.MaxPortions(recipe)
		if quantity.GreaterThan(portions) {
			return apperr.InsufficientStock(portions, "Cannot make %s %s(s). Maximum available: %s",
				quantity.String(), recipe.Name, portions.StringFixed(2))
		}

		needs := costing.Requirements(recipe, quantity)
		for i, line := range recipe.Ingredients {
			if err := s.ingredients.Consume(tx, line.IngredientID, needs[i], by); err != nil {
				return err
			}
		}

		record = model.ProductionRecord{RecipeID: recipe.ID, Quantity: quantity, Notes: req.Notes}
		record.CreatedBy = by
		record.UpdatedBy = by
		return s.production.Create(tx, &record)
	})
	if err != nil {
		if apperr.KindOf(err) == "" || apperr.KindOf(err) == apperr.KindTransactionFailure {
			logger.LogError(s.deps.logger(), recipeModule, "Prepare", "production transaction",
				logrus.Fields{"recipe_id": id, "quantity": quantity.String()}, err)
		}
		return nil, err
	}

	resp, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	s.deps.logger().WithFields(logrus.Fields{
		"recipe_id":         id,
		"quantity":          quantity.String(),
		"prepared_quantity": resp.PreparedQuantity.String(),
		"by":                by,
	}).Info("recipe prepared")

	message := fmt.Sprintf("Successfully prepared %s %s(s)", quantity.String(), recipeName)
	s.deps.invalidateDashboard(ctx, recipeModule, "Prepare")
	s.deps.publish("recipe_prepared", by, message, map[string]any{"recipe": resp, "production": record})

	return &PrepareResult{Message: message, Recipe: *resp, Production: record}, nil
}

func (s *recipeService) ProductionHistory(id uuid.UUID, q repository.ListQuery) (*ProductionPage, error) {
	if _, err := s.recipes.FindByID(id); err != nil {
		return nil, err
	}
	records, total, err := s.production.FindByRecipe(id, q)
	if err != nil {
		return nil, err
	}
	return &ProductionPage{Records: records, Pagination: repository.NewPagination(q, total)}, nil
}
