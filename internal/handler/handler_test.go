package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"restaurant-pos/internal/middleware"
	"restaurant-pos/internal/model"
	"restaurant-pos/internal/repository"
	"restaurant-pos/internal/service"
	"restaurant-pos/pkg/database"
	"restaurant-pos/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var testSecret = []byte("handler-test-secret")

const (
	managerKey = "manager-key"
	staffKey   = "staff-key"
)

func newTestApp(t *testing.T, authDisabled bool) *fiber.App {
	t.Helper()
	log := logger.New(io.Discard, "error")
	db, err := database.OpenMemory(t.Name(), log)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	deps := service.Deps{Log: log}
	ingredients := repository.NewIngredientRepo(db)
	recipes := repository.NewRecipeRepo(db)
	production := repository.NewProductionRepo(db)
	products := repository.NewProductRepo(db)
	sales := repository.NewSaleRepo(db)

	var accounts []model.Account
	if !authDisabled {
		for name, acct := range map[string][2]string{
			"mia": {model.RoleManager, managerKey},
			"sam": {model.RoleStaff, staffKey},
		} {
			hash, err := model.HashKey(acct[1])
			if err != nil {
				t.Fatalf("hash key: %v", err)
			}
			accounts = append(accounts, model.Account{Name: name, Role: acct[0], KeyHash: hash})
		}
	}

	app := fiber.New()
	RegisterRoutes(app, Handlers{
		Auth:        NewAuthHandler(service.NewAuthService(accounts, testSecret, time.Hour, log)),
		Ingredients: NewIngredientHandler(service.NewIngredientService(ingredients, db, deps)),
		Recipes:     NewRecipeHandler(service.NewRecipeService(recipes, ingredients, production, db, deps)),
		Products:    NewProductHandler(service.NewProductService(products, recipes, sales, db, deps)),
		Sales:       NewSaleHandler(service.NewSaleService(sales, products, recipes, db, deps)),
		Reports:     NewReportHandler(service.NewReportService(sales, deps)),
	}, middleware.RequireAuth(testSecret, authDisabled))
	return app
}

// call sends body as JSON and decodes the response into out when out is not nil.
func call(t *testing.T, app *fiber.App, method, path, token string, body, out any) int {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("%s %s: decode response: %v", method, path, err)
		}
	}
	return resp.StatusCode
}

type created[T any] struct {
	Message string `json:"message"`
	Data    T      `json:"data"`
}

type errorBody struct {
	Error     string           `json:"error"`
	Kind      string           `json:"kind"`
	Available *decimal.Decimal `json:"available"`
	Fields    []string         `json:"fields"`
}

func TestLedgerOverHTTP(t *testing.T) {
	app := newTestApp(t, true)

	var flour created[model.IngredientResponse]
	status := call(t, app, "POST", "/api/v1/ingredients", "", map[string]any{
		"name": "Flour", "quantity": 1000, "unit": "g", "cost_per_unit": 0.002,
	}, &flour)
	if status != fiber.StatusCreated {
		t.Fatalf("create ingredient: status %d", status)
	}

	var bread created[model.RecipeResponse]
	status = call(t, app, "POST", "/api/v1/recipes", "", map[string]any{
		"name":        "Bread",
		"ingredients": []map[string]any{{"ingredient_id": flour.Data.ID, "quantity": 500}},
	}, &bread)
	if status != fiber.StatusCreated || !bread.Data.MaxPortions.Equal(decimal.NewFromInt(2)) {
		t.Fatalf("create recipe: status %d max %s", status, bread.Data.MaxPortions)
	}

	var prepared service.PrepareResult
	status = call(t, app, "POST", "/api/v1/recipes/"+bread.Data.ID.String()+"/prepare", "", map[string]any{"quantity": 2}, &prepared)
	if status != fiber.StatusOK || !prepared.Recipe.PreparedQuantity.Equal(decimal.NewFromInt(2)) {
		t.Fatalf("prepare: status %d prepared %s", status, prepared.Recipe.PreparedQuantity)
	}

	var tooMuch errorBody
	status = call(t, app, "POST", "/api/v1/recipes/"+bread.Data.ID.String()+"/prepare", "", map[string]any{"quantity": 1}, &tooMuch)
	if status != fiber.StatusUnprocessableEntity || tooMuch.Available == nil || !tooMuch.Available.IsZero() {
		t.Errorf("prepare without stock: status %d body %+v", status, tooMuch)
	}

	var loaf created[model.ProductResponse]
	status = call(t, app, "POST", "/api/v1/products", "", map[string]any{
		"recipe_id": bread.Data.ID, "name": "Loaf", "price": 5,
	}, &loaf)
	if status != fiber.StatusCreated {
		t.Fatalf("create product: status %d", status)
	}

	var sale created[model.SaleResponse]
	status = call(t, app, "POST", "/api/v1/sales", "", map[string]any{"product_id": loaf.Data.ID, "quantity": 2}, &sale)
	if status != fiber.StatusCreated || !sale.Data.Profit.Equal(decimal.NewFromInt(8)) {
		t.Fatalf("sell: status %d profit %s", status, sale.Data.Profit)
	}
	if sale.Data.CreatedBy != middleware.DevOperator {
		t.Errorf("created_by: got %q", sale.Data.CreatedBy)
	}

	var soldOut errorBody
	status = call(t, app, "POST", "/api/v1/sales", "", map[string]any{"product_id": loaf.Data.ID, "quantity": 1}, &soldOut)
	if status != fiber.StatusUnprocessableEntity || soldOut.Kind != "insufficient_stock" {
		t.Errorf("oversell: status %d body %+v", status, soldOut)
	}

	var refund service.RefundResult
	status = call(t, app, "DELETE", "/api/v1/sales/"+sale.Data.ID.String(), "", nil, &refund)
	if status != fiber.StatusOK || refund.RestoredQuantity != 2 || !refund.PreparedQuantity.Equal(decimal.NewFromInt(2)) {
		t.Errorf("refund: status %d body %+v", status, refund)
	}
	if status := call(t, app, "DELETE", "/api/v1/sales/"+sale.Data.ID.String(), "", nil, nil); status != fiber.StatusNotFound {
		t.Errorf("second refund: status %d", status)
	}
}

func TestErrorStatuses(t *testing.T) {
	app := newTestApp(t, true)
	ingredient := map[string]any{"name": "Salt", "quantity": 10, "unit": "g", "cost_per_unit": 0.01}
	if status := call(t, app, "POST", "/api/v1/ingredients", "", ingredient, nil); status != fiber.StatusCreated {
		t.Fatalf("create: status %d", status)
	}

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		want   int
	}{
		{"malformed id", "GET", "/api/v1/ingredients/not-a-uuid", nil, fiber.StatusBadRequest},
		{"unknown id", "GET", "/api/v1/ingredients/" + uuid.NewString(), nil, fiber.StatusNotFound},
		{"duplicate name", "POST", "/api/v1/ingredients", ingredient, fiber.StatusConflict},
		{"invalid body", "POST", "/api/v1/ingredients", map[string]any{"name": "", "unit": "g"}, fiber.StatusBadRequest},
		{"quantity not editable", "PUT", "/api/v1/ingredients/" + uuid.NewString(), map[string]any{"quantity": 5}, fiber.StatusBadRequest},
		{"zero sale quantity", "POST", "/api/v1/sales", map[string]any{"product_id": uuid.NewString(), "quantity": 0}, fiber.StatusBadRequest},
		{"report without dates", "GET", "/api/v1/reports/sales", nil, fiber.StatusBadRequest},
		{"bad period", "GET", "/api/v1/reports/sales?startDate=2026-01-01&endDate=2026-01-31&period=year", nil, fiber.StatusBadRequest},
		{"bad product filter", "GET", "/api/v1/sales?productId=nope", nil, fiber.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body errorBody
			if status := call(t, app, tt.method, tt.path, "", tt.body, &body); status != tt.want {
				t.Errorf("status: got %d, want %d (%+v)", status, tt.want, body)
			}
			if body.Error == "" {
				t.Error("missing error message")
			}
		})
	}
}

func TestRolesEnforced(t *testing.T) {
	app := newTestApp(t, false)

	if status := call(t, app, "GET", "/api/v1/ingredients", "", nil, nil); status != fiber.StatusUnauthorized {
		t.Errorf("no token: status %d", status)
	}
	if status := call(t, app, "POST", "/api/v1/auth/token", "", service.TokenRequest{Name: "sam", Key: "wrong"}, nil); status != fiber.StatusUnauthorized {
		t.Errorf("wrong key: status %d", status)
	}

	var staff, manager service.TokenResponse
	if status := call(t, app, "POST", "/api/v1/auth/token", "", service.TokenRequest{Name: "sam", Key: staffKey}, &staff); status != fiber.StatusOK {
		t.Fatalf("staff token: status %d", status)
	}
	if status := call(t, app, "POST", "/api/v1/auth/token", "", service.TokenRequest{Name: "mia", Key: managerKey}, &manager); status != fiber.StatusOK {
		t.Fatalf("manager token: status %d", status)
	}
	if staff.Role != model.RoleStaff || manager.Role != model.RoleManager {
		t.Fatalf("roles: staff=%q manager=%q", staff.Role, manager.Role)
	}

	body := map[string]any{"name": "Flour", "quantity": 1000, "unit": "g", "cost_per_unit": 0.002}
	if status := call(t, app, "POST", "/api/v1/ingredients", staff.Token, body, nil); status != fiber.StatusForbidden {
		t.Errorf("staff create: status %d", status)
	}
	var flour created[model.IngredientResponse]
	if status := call(t, app, "POST", "/api/v1/ingredients", manager.Token, body, &flour); status != fiber.StatusCreated {
		t.Fatalf("manager create: status %d", status)
	}
	if flour.Data.ID == uuid.Nil {
		t.Fatal("manager create returned no id")
	}
	if status := call(t, app, "GET", "/api/v1/ingredients", staff.Token, nil, nil); status != fiber.StatusOK {
		t.Errorf("staff read: status %d", status)
	}
	if status := call(t, app, "DELETE", "/api/v1/ingredients/"+flour.Data.ID.String(), manager.Token, nil, nil); status != fiber.StatusForbidden {
		t.Errorf("manager delete: status %d", status)
	}

	var me map[string]string
	if status := call(t, app, "GET", "/api/v1/auth/me", staff.Token, nil, &me); status != fiber.StatusOK || me["name"] != "sam" {
		t.Errorf("me: status %d body %v", status, me)
	}
}

func TestProductListDefaultsToActive(t *testing.T) {
	app := newTestApp(t, true)

	var recipe created[model.RecipeResponse]
	if status := call(t, app, "POST", "/api/v1/recipes", "", map[string]any{"name": "Soup"}, &recipe); status != fiber.StatusCreated {
		t.Fatalf("create recipe: status %d", status)
	}
	for _, p := range []map[string]any{
		{"recipe_id": recipe.Data.ID, "name": "Soup Bowl", "price": 4},
		{"recipe_id": recipe.Data.ID, "name": "Old Soup", "price": 3, "is_active": false},
	} {
		if status := call(t, app, "POST", "/api/v1/products", "", p, nil); status != fiber.StatusCreated {
			t.Fatalf("create product: status %d", status)
		}
	}

	tests := []struct {
		query string
		want  int64
	}{
		{"", 1},
		{"?includeInactive=true", 2},
		{"?isActive=false", 1},
	}
	for _, tt := range tests {
		var page service.ProductPage
		if status := call(t, app, "GET", "/api/v1/products"+tt.query, "", nil, &page); status != fiber.StatusOK {
			t.Fatalf("list %q: status %d", tt.query, status)
		}
		if page.Pagination.TotalItems != tt.want {
			t.Errorf("list %q: got %d, want %d", tt.query, page.Pagination.TotalItems, tt.want)
		}
	}
}

func TestExportReportDownload(t *testing.T) {
	app := newTestApp(t, true)

	req := httptest.NewRequest("GET", "/api/v1/reports/sales/export?startDate=2026-01-01&endDate=2026-01-31&period=week", nil)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status: got %d", resp.StatusCode)
	}
	if got := resp.Header.Get(fiber.HeaderContentType); got != xlsxContentType {
		t.Errorf("content type: got %q", got)
	}
	if got := resp.Header.Get(fiber.HeaderContentDisposition); got != `attachment; filename="sales-report-2026-01-01-2026-01-31.xlsx"` {
		t.Errorf("disposition: got %q", got)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil || len(data) == 0 {
		t.Errorf("body: %d bytes, err %v", len(data), err)
	}
}

func TestDateRange(t *testing.T) {
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		from, to, err := dateRange(c)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"from": from, "to": to})
	})

	var got struct {
		From *time.Time `json:"from"`
		To   *time.Time `json:"to"`
	}
	if status := call(t, app, "GET", "/?startDate=2026-03-01&endDate=2026-03-02", "", nil, &got); status != fiber.StatusOK {
		t.Fatalf("status %d", status)
	}
	wantTo := time.Date(2026, time.March, 3, 0, 0, 0, 0, time.Local)
	if got.To == nil || !got.To.Equal(wantTo) {
		t.Errorf("end date should be inclusive: got %v, want %v", got.To, wantTo)
	}

	if status := call(t, app, "GET", "/?startDate=03-01-2026", "", nil, nil); status != fiber.StatusBadRequest {
		t.Errorf("invalid date: status %d", status)
	}
}
