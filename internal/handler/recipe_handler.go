package handler

import (
	"restaurant-pos/internal/middleware"
	"restaurant-pos/internal/service"

	"github.com/gofiber/fiber/v2"
)

type RecipeHandler struct {
	service service.RecipeService
}

func NewRecipeHandler(s service.RecipeService) *RecipeHandler {
	return &RecipeHandler{service: s}
}

// GetRecipes lists recipes with their derived cost and feasibility
// GET /api/v1/recipes?page&limit&search&sortBy&sortOrder&canMake
func (h *RecipeHandler) GetRecipes(c *fiber.Ctx) error {
	page, err := h.service.List(service.RecipeFilter{
		ListQuery: listQuery(c),
		CanMake:   optionalBool(c, "canMake"),
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(page)
}

// GET /api/v1/recipes/available
func (h *RecipeHandler) GetAvailable(c *fiber.Ctx) error {
	recipes, err := h.service.Available()
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"recipes": recipes, "count": len(recipes)})
}

// GET /api/v1/recipes/:id
func (h *RecipeHandler) GetRecipe(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return respondError(c, err)
	}
	recipe, err := h.service.Get(id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(recipe)
}

// POST /api/v1/recipes
func (h *RecipeHandler) CreateRecipe(c *fiber.Ctx) error {
	var req service.RecipeInput
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}
	recipe, err := h.service.Create(c.UserContext(), req, middleware.Operator(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Recipe created", "data": recipe})
}

// UpdateRecipe replaces the recipe details and its ingredient lines
// PUT /api/v1/recipes/:id
func (h *RecipeHandler) UpdateRecipe(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return respondError(c, err)
	}
	var req service.RecipeInput
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}
	recipe, err := h.service.Update(c.UserContext(), id, req, middleware.Operator(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Recipe updated", "data": recipe})
}

// DELETE /api/v1/recipes/:id
func (h *RecipeHandler) DeleteRecipe(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return respondError(c, err)
	}
	if err := h.service.Delete(id, middleware.Operator(c)); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Recipe deleted"})
}

// POST /api/v1/recipes/:id/duplicate
func (h *RecipeHandler) DuplicateRecipe(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return respondError(c, err)
	}
	recipe, err := h.service.Duplicate(c.UserContext(), id, middleware.Operator(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Recipe duplicated", "data": recipe})
}

// PrepareRecipe turns ingredient stock into prepared portions
// POST /api/v1/recipes/:id/prepare
func (h *RecipeHandler) PrepareRecipe(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return respondError(c, err)
	}
	var req service.PrepareInput
	if len(c.Body()) > 0 {
		if err := parseBody(c, &req); err != nil {
			return respondError(c, err)
		}
	}
	result, err := h.service.Prepare(c.UserContext(), id, req, middleware.Operator(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(result)
}

// GET /api/v1/recipes/:id/production-history?page&limit
func (h *RecipeHandler) GetProductionHistory(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return respondError(c, err)
	}
	history, err := h.service.ProductionHistory(id, listQuery(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(history)
}
