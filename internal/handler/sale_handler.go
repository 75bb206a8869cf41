package handler

import (
	"restaurant-pos/internal/middleware"
	"restaurant-pos/internal/repository"
	"restaurant-pos/internal/service"

	"github.com/gofiber/fiber/v2"
)

type SaleHandler struct {
	service service.SaleService
}

func NewSaleHandler(s service.SaleService) *SaleHandler {
	return &SaleHandler{service: s}
}

// GetSales lists sales with a revenue and profit summary of the page
// GET /api/v1/sales?page&limit&startDate&endDate&productId&sortBy&sortOrder
func (h *SaleHandler) GetSales(c *fiber.Ctx) error {
	from, to, err := dateRange(c)
	if err != nil {
		return respondError(c, err)
	}
	productID, err := optionalUUID(c, "productId")
	if err != nil {
		return respondError(c, err)
	}

	page, err := h.service.List(repository.SaleFilter{
		ListQuery: listQuery(c),
		From:      from,
		To:        to,
		ProductID: productID,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(page)
}

// GET /api/v1/sales/:id
func (h *SaleHandler) GetSale(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return respondError(c, err)
	}
	sale, err := h.service.Get(id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(sale)
}

// CreateSale sells prepared portions of the product's recipe
// POST /api/v1/sales
func (h *SaleHandler) CreateSale(c *fiber.Ctx) error {
	var req service.SaleInput
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}
	sale, err := h.service.Sell(c.UserContext(), req, middleware.Operator(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Sale recorded", "data": sale})
}

// UpdateSale edits notes and timestamp only
// PUT /api/v1/sales/:id
func (h *SaleHandler) UpdateSale(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return respondError(c, err)
	}
	var req service.SaleUpdate
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}
	sale, err := h.service.UpdateDetails(id, req, middleware.Operator(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Sale updated", "data": sale})
}

// RefundSale voids the sale and returns its portions to the recipe
// DELETE /api/v1/sales/:id
func (h *SaleHandler) RefundSale(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return respondError(c, err)
	}
	result, err := h.service.Refund(c.UserContext(), id, middleware.Operator(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(result)
}
