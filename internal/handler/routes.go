package handler

import (
	"restaurant-pos/internal/middleware"
	"restaurant-pos/internal/model"

	"github.com/gofiber/fiber/v2"
)

type Handlers struct {
	Auth        *AuthHandler
	Ingredients *IngredientHandler
	Recipes     *RecipeHandler
	Products    *ProductHandler
	Sales       *SaleHandler
	Reports     *ReportHandler
}

// RegisterRoutes mounts the v1 API on router. Reads need any role, catalog writes need
// manager, deletes and bulk pricing need admin.
func RegisterRoutes(router fiber.Router, h Handlers, auth fiber.Handler) {
	api := router.Group("/api/v1")

	// ============ PUBLIC ROUTES ============
	api.Post("/auth/token", h.Auth.IssueToken)

	// ============ PROTECTED ROUTES ============
	protected := api.Group("", auth)
	staff := middleware.RequireRole(model.RoleStaff)
	manager := middleware.RequireRole(model.RoleManager)
	admin := middleware.RequireRole(model.RoleAdmin)

	protected.Get("/auth/me", staff, h.Auth.Me)

	// Ingredients
	protected.Get("/ingredients", staff, h.Ingredients.GetIngredients)
	protected.Get("/ingredients/low-stock", staff, h.Ingredients.GetLowStock)
	protected.Get("/ingredients/:id", staff, h.Ingredients.GetIngredient)
	protected.Post("/ingredients", manager, h.Ingredients.CreateIngredient)
	protected.Put("/ingredients/bulk", manager, h.Ingredients.BulkUpdateIngredients)
	protected.Put("/ingredients/:id", manager, h.Ingredients.UpdateIngredient)
	protected.Post("/ingredients/:id/restock", manager, h.Ingredients.RestockIngredient)
	protected.Delete("/ingredients/:id", admin, h.Ingredients.DeleteIngredient)

	// Recipes and the production ledger
	protected.Get("/recipes", staff, h.Recipes.GetRecipes)
	protected.Get("/recipes/available", staff, h.Recipes.GetAvailable)
	protected.Get("/recipes/:id", staff, h.Recipes.GetRecipe)
	protected.Get("/recipes/:id/production-history", staff, h.Recipes.GetProductionHistory)
	protected.Post("/recipes", manager, h.Recipes.CreateRecipe)
	protected.Put("/recipes/:id", manager, h.Recipes.UpdateRecipe)
	protected.Post("/recipes/:id/duplicate", manager, h.Recipes.DuplicateRecipe)
	protected.Post("/recipes/:id/prepare", staff, h.Recipes.PrepareRecipe)
	protected.Delete("/recipes/:id", admin, h.Recipes.DeleteRecipe)

	// Products
	protected.Get("/products", staff, h.Products.GetProducts)
	protected.Get("/products/available", staff, h.Products.GetAvailable)
	protected.Get("/products/production-capacity", staff, h.Products.GetProductionCapacity)
	protected.Get("/products/:id", staff, h.Products.GetProduct)
	protected.Get("/products/:id/analytics", staff, h.Products.GetAnalytics)
	protected.Post("/products", manager, h.Products.CreateProduct)
	protected.Put("/products/bulk-price", admin, h.Products.BulkUpdatePrices)
	protected.Put("/products/:id", manager, h.Products.UpdateProduct)
	protected.Patch("/products/:id/toggle-active", manager, h.Products.ToggleActive)
	protected.Delete("/products/:id", admin, h.Products.DeleteProduct)

	// Sales ledger
	protected.Get("/sales", staff, h.Sales.GetSales)
	protected.Get("/sales/:id", staff, h.Sales.GetSale)
	protected.Post("/sales", staff, h.Sales.CreateSale)
	protected.Put("/sales/:id", manager, h.Sales.UpdateSale)
	protected.Delete("/sales/:id", manager, h.Sales.RefundSale)

	// Reports
	protected.Get("/reports/dashboard", staff, h.Reports.GetDashboard)
	protected.Get("/reports/sales", staff, h.Reports.GetReport)
	protected.Get("/reports/sales/export", staff, h.Reports.ExportReport)
	protected.Get("/reports/best-sellers", staff, h.Reports.GetBestSellers)
}
