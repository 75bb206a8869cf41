package handler

import (
	"restaurant-pos/internal/middleware"
	"restaurant-pos/internal/repository"
	"restaurant-pos/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

type IngredientHandler struct {
	service service.IngredientService
}

func NewIngredientHandler(s service.IngredientService) *IngredientHandler {
	return &IngredientHandler{service: s}
}

// GetIngredients lists ingredients
// GET /api/v1/ingredients?page&limit&search&sortBy&sortOrder&lowStock
func (h *IngredientHandler) GetIngredients(c *fiber.Ctx) error {
	filter := repository.IngredientFilter{ListQuery: listQuery(c)}
	if low := optionalBool(c, "lowStock"); low != nil {
		filter.LowStock = *low
	}

	page, err := h.service.List(filter)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(page)
}

// GET /api/v1/ingredients/:id
func (h *IngredientHandler) GetIngredient(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return respondError(c, err)
	}
	ing, err := h.service.Get(id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(ing)
}

// POST /api/v1/ingredients
func (h *IngredientHandler) CreateIngredient(c *fiber.Ctx) error {
	var req service.IngredientInput
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}
	ing, err := h.service.Create(req, middleware.Operator(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Ingredient created", "data": ing})
}

// PUT /api/v1/ingredients/:id
func (h *IngredientHandler) UpdateIngredient(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return respondError(c, err)
	}
	var req service.IngredientUpdate
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}
	ing, err := h.service.Update(id, req, middleware.Operator(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Ingredient updated", "data": ing})
}

// DELETE /api/v1/ingredients/:id
func (h *IngredientHandler) DeleteIngredient(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return respondError(c, err)
	}
	if err := h.service.Delete(id, middleware.Operator(c)); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Ingredient deleted"})
}

type restockRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

// RestockIngredient adds stock in one atomic increment
// POST /api/v1/ingredients/:id/restock
func (h *IngredientHandler) RestockIngredient(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return respondError(c, err)
	}
	var req restockRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}
	ing, err := h.service.Restock(c.UserContext(), id, req.Amount, middleware.Operator(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Ingredient restocked", "data": ing})
}

// GET /api/v1/ingredients/low-stock
func (h *IngredientHandler) GetLowStock(c *fiber.Ctx) error {
	report, err := h.service.LowStock()
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(report)
}

type bulkIngredientRequest struct {
	Updates []service.BulkIngredientItem `json:"updates"`
}

// BulkUpdateIngredients applies every item independently
// PUT /api/v1/ingredients/bulk
func (h *IngredientHandler) BulkUpdateIngredients(c *fiber.Ctx) error {
	var req bulkIngredientRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}
	if len(req.Updates) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "updates must be a non-empty list"})
	}
	results := h.service.BulkUpdate(req.Updates, middleware.Operator(c))
	return c.JSON(fiber.Map{"results": results})
}
