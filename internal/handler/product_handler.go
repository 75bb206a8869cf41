package handler

import (
	"restaurant-pos/internal/middleware"
	"restaurant-pos/internal/repository"
	"restaurant-pos/internal/service"

	"github.com/gofiber/fiber/v2"
)

const defaultAnalyticsDays = 30

type ProductHandler struct {
	service service.ProductService
}

func NewProductHandler(s service.ProductService) *ProductHandler {
	return &ProductHandler{service: s}
}

// GetProducts lists active products unless isActive or includeInactive says otherwise
// GET /api/v1/products?page&limit&search&sortBy&sortOrder&isActive&includeInactive
func (h *ProductHandler) GetProducts(c *fiber.Ctx) error {
	filter := repository.ProductFilter{ListQuery: listQuery(c), IsActive: optionalBool(c, "isActive")}
	if filter.IsActive == nil && !c.QueryBool("includeInactive", false) {
		active := true
		filter.IsActive = &active
	}

	page, err := h.service.List(filter)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(page)
}

// GET /api/v1/products/available
func (h *ProductHandler) GetAvailable(c *fiber.Ctx) error {
	products, err := h.service.Available()
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"products": products, "count": len(products)})
}

// GET /api/v1/products/production-capacity
func (h *ProductHandler) GetProductionCapacity(c *fiber.Ctx) error {
	report, err := h.service.ProductionCapacity()
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"products": report})
}

// GET /api/v1/products/:id
func (h *ProductHandler) GetProduct(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return respondError(c, err)
	}
	product, err := h.service.Get(id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(product)
}

// GET /api/v1/products/:id/analytics?days
func (h *ProductHandler) GetAnalytics(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return respondError(c, err)
	}
	report, err := h.service.Analytics(id, c.QueryInt("days", defaultAnalyticsDays))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(report)
}

// POST /api/v1/products
func (h *ProductHandler) CreateProduct(c *fiber.Ctx) error {
	var req service.ProductInput
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}
	product, err := h.service.Create(req, middleware.Operator(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Product created", "data": product})
}

// PUT /api/v1/products/:id
func (h *ProductHandler) UpdateProduct(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return respondError(c, err)
	}
	var req service.ProductUpdate
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}
	product, err := h.service.Update(id, req, middleware.Operator(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Product updated", "data": product})
}

// PATCH /api/v1/products/:id/toggle-active
func (h *ProductHandler) ToggleActive(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return respondError(c, err)
	}
	product, err := h.service.ToggleActive(id, middleware.Operator(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Product status updated", "data": product})
}

// DELETE /api/v1/products/:id
func (h *ProductHandler) DeleteProduct(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return respondError(c, err)
	}
	if err := h.service.Delete(id, middleware.Operator(c)); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Product deleted"})
}

// BulkUpdatePrices sets explicit prices or adjusts every active product
// PUT /api/v1/products/bulk-price
func (h *ProductHandler) BulkUpdatePrices(c *fiber.Ctx) error {
	var req service.BulkPriceInput
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}
	results, err := h.service.BulkUpdatePrices(c.UserContext(), req, middleware.Operator(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"results": results})
}
