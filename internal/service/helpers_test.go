package service

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"testing"

	"restaurant-pos/internal/apperr"
	"restaurant-pos/internal/model"
	"restaurant-pos/internal/repository"
	"restaurant-pos/pkg/database"
	"restaurant-pos/pkg/logger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const tester = "tester"

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func dp(s string) *decimal.Decimal {
	v := d(s)
	return &v
}

type fakeNotifier struct {
	mu      sync.Mutex
	actions []string
}

func (n *fakeNotifier) Publish(action, actor, message string, data any) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.actions = append(n.actions, action)
}

func (n *fakeNotifier) has(action string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, a := range n.actions {
		if a == action {
			return true
		}
	}
	return false
}

type memoryCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func (c *memoryCache) Get(_ context.Context, key string, dest any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	raw, ok := c.data[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dest)
}

func (c *memoryCache) Set(_ context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = raw
	return nil
}

func (c *memoryCache) Delete(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.data, k)
	}
	return nil
}

func (c *memoryCache) has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.data[key]
	return ok
}

type env struct {
	db          *gorm.DB
	ingredients IngredientService
	recipes     RecipeService
	products    ProductService
	sales       SaleService
	reports     ReportService
	notifier    *fakeNotifier
	cache       *memoryCache
}

func newEnv(t *testing.T) *env {
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
	return newEnvOn(db, log)
}

func newEnvOn(db *gorm.DB, log *logrus.Logger) *env {
	notifier := &fakeNotifier{}
	cache := &memoryCache{data: map[string][]byte{}}
	deps := Deps{Log: log, Notifier: notifier, Cache: cache}

	ingredientRepo := repository.NewIngredientRepo(db)
	recipeRepo := repository.NewRecipeRepo(db)
	productionRepo := repository.NewProductionRepo(db)
	productRepo := repository.NewProductRepo(db)
	saleRepo := repository.NewSaleRepo(db)

	return &env{
		db:          db,
		ingredients: NewIngredientService(ingredientRepo, db, deps),
		recipes:     NewRecipeService(recipeRepo, ingredientRepo, productionRepo, db, deps),
		products:    NewProductService(productRepo, recipeRepo, saleRepo, db, deps),
		sales:       NewSaleService(saleRepo, productRepo, recipeRepo, db, deps),
		reports:     NewReportService(saleRepo, deps),
		notifier:    notifier,
		cache:       cache,
	}
}

func (e *env) ingredient(t *testing.T, name, qty, cost string) *model.IngredientResponse {
	t.Helper()
	ing, err := e.ingredients.Create(IngredientInput{Name: name, Quantity: d(qty), Unit: "g", CostPerUnit: d(cost)}, tester)
	if err != nil {
		t.Fatalf("create ingredient %s: %v", name, err)
	}
	return ing
}

func line(id uuid.UUID, qty string) RecipeLineInput {
	return RecipeLineInput{IngredientID: id, Quantity: d(qty)}
}

func (e *env) recipe(t *testing.T, name string, lines ...RecipeLineInput) *model.RecipeResponse {
	t.Helper()
	r, err := e.recipes.Create(context.Background(), RecipeInput{Name: name, Ingredients: lines}, tester)
	if err != nil {
		t.Fatalf("create recipe %s: %v", name, err)
	}
	return r
}

func (e *env) product(t *testing.T, name string, recipeID uuid.UUID, price string) *model.ProductResponse {
	t.Helper()
	p, err := e.products.Create(ProductInput{RecipeID: recipeID, Name: name, Price: d(price)}, tester)
	if err != nil {
		t.Fatalf("create product %s: %v", name, err)
	}
	return p
}

func (e *env) prepare(t *testing.T, recipeID uuid.UUID, qty string) *PrepareResult {
	t.Helper()
	res, err := e.recipes.Prepare(context.Background(), recipeID, PrepareInput{Quantity: dp(qty)}, tester)
	if err != nil {
		t.Fatalf("prepare %s: %v", qty, err)
	}
	return res
}

func (e *env) stock(t *testing.T, id uuid.UUID) decimal.Decimal {
	t.Helper()
	ing, err := e.ingredients.Get(id)
	if err != nil {
		t.Fatalf("get ingredient: %v", err)
	}
	return ing.Quantity
}

func (e *env) prepared(t *testing.T, recipeID uuid.UUID) decimal.Decimal {
	t.Helper()
	r, err := e.recipes.Get(recipeID)
	if err != nil {
		t.Fatalf("get recipe: %v", err)
	}
	return r.PreparedQuantity
}

func wantKind(t *testing.T, err error, kind apperr.Kind) *apperr.Error {
	t.Helper()
	var appErr *apperr.Error
	if !errors.As(err, &appErr) {
		t.Fatalf("got %v, want %s error", err, kind)
	}
	if appErr.Kind != kind {
		t.Fatalf("got %s (%v), want %s", appErr.Kind, err, kind)
	}
	return appErr
}
