package service

import (
	"context"
	"testing"

	"restaurant-pos/internal/apperr"
	"restaurant-pos/internal/repository"

	"github.com/google/uuid"
)

func TestIngredientCreateRejectsDuplicateName(t *testing.T) {
	e := newEnv(t)
	e.ingredient(t, "Flour", "1000", "0.002")

	_, err := e.ingredients.Create(IngredientInput{Name: "  flour ", Quantity: d("1"), Unit: "g", CostPerUnit: d("1")}, tester)
	wantKind(t, err, apperr.KindConflict)
}

func TestIngredientCreateValidates(t *testing.T) {
	e := newEnv(t)

	_, err := e.ingredients.Create(IngredientInput{Name: "Salt", Quantity: d("-1"), Unit: "g", CostPerUnit: d("1")}, tester)
	appErr := wantKind(t, err, apperr.KindValidation)
	if len(appErr.Fields) != 1 || appErr.Fields[0] != "quantity" {
		t.Errorf("fields: got %v, want [quantity]", appErr.Fields)
	}
}

func TestIngredientUpdateRejectsQuantity(t *testing.T) {
	e := newEnv(t)
	flour := e.ingredient(t, "Flour", "1000", "0.002")

	_, err := e.ingredients.Update(flour.ID, IngredientUpdate{Quantity: dp("5")}, tester)
	wantKind(t, err, apperr.KindValidation)
	if got := e.stock(t, flour.ID); !got.Equal(d("1000")) {
		t.Errorf("quantity changed: got %s", got)
	}

	cost := d("0.003")
	updated, err := e.ingredients.Update(flour.ID, IngredientUpdate{CostPerUnit: &cost}, tester)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if !updated.CostPerUnit.Equal(cost) || !updated.Quantity.Equal(d("1000")) {
		t.Errorf("updated: cost=%s qty=%s", updated.CostPerUnit, updated.Quantity)
	}
}

func TestIngredientRestock(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	flour := e.ingredient(t, "Flour", "100", "0.002")

	got, err := e.ingredients.Restock(ctx, flour.ID, d("250.5"), tester)
	if err != nil {
		t.Fatalf("restock: %v", err)
	}
	if !got.Quantity.Equal(d("350.5")) {
		t.Errorf("quantity: got %s, want 350.5", got.Quantity)
	}
	if !e.notifier.has("ingredient_restocked") {
		t.Error("expected an ingredient_restocked event")
	}

	_, err = e.ingredients.Restock(ctx, flour.ID, d("0"), tester)
	wantKind(t, err, apperr.KindValidation)
	_, err = e.ingredients.Restock(ctx, uuid.New(), d("1"), tester)
	wantKind(t, err, apperr.KindNotFound)
}

func TestIngredientDeleteWhileReferenced(t *testing.T) {
	e := newEnv(t)
	flour := e.ingredient(t, "Flour", "1000", "0.002")
	salt := e.ingredient(t, "Salt", "50", "0.01")
	e.recipe(t, "Bread", line(flour.ID, "500"))

	wantKind(t, e.ingredients.Delete(flour.ID, tester), apperr.KindConflict)
	if _, err := e.ingredients.Get(flour.ID); err != nil {
		t.Fatalf("referenced ingredient was removed: %v", err)
	}

	if err := e.ingredients.Delete(salt.ID, tester); err != nil {
		t.Fatalf("delete unreferenced: %v", err)
	}
	_, err := e.ingredients.Get(salt.ID)
	wantKind(t, err, apperr.KindNotFound)
}

func TestIngredientLowStock(t *testing.T) {
	e := newEnv(t)
	if _, err := e.ingredients.Create(IngredientInput{Name: "Yeast", Quantity: d("5"), Unit: "g", MinThreshold: d("10"), CostPerUnit: d("0.1")}, tester); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := e.ingredients.Create(IngredientInput{Name: "Water", Quantity: d("10"), Unit: "ml", MinThreshold: d("10"), CostPerUnit: d("0")}, tester); err != nil {
		t.Fatalf("create: %v", err)
	}
	e.ingredient(t, "Flour", "1000", "0.002")

	report, err := e.ingredients.LowStock()
	if err != nil {
		t.Fatalf("low stock: %v", err)
	}
	if report.Count != 2 {
		t.Errorf("count: got %d, want 2", report.Count)
	}
	for _, ing := range report.Ingredients {
		if !ing.IsLowStock {
			t.Errorf("%s listed but not low", ing.Name)
		}
	}
}

func TestIngredientBulkUpdateIsolatesFailures(t *testing.T) {
	e := newEnv(t)
	flour := e.ingredient(t, "Flour", "1000", "0.002")
	e.ingredient(t, "Sugar", "500", "0.004")
	rename := "Bread Flour"
	clash := "Sugar"

	results := e.ingredients.BulkUpdate([]BulkIngredientItem{
		{ID: flour.ID, Data: IngredientUpdate{Name: &rename}},
		{ID: uuid.New(), Data: IngredientUpdate{Name: &rename}},
		{ID: flour.ID, Data: IngredientUpdate{Name: &clash}},
	}, tester)

	if len(results) != 3 {
		t.Fatalf("results: got %d, want 3", len(results))
	}
	if !results[0].Success || results[0].Item.Name != rename {
		t.Errorf("first item: %+v", results[0])
	}
	if results[1].Success || results[1].Error == "" {
		t.Errorf("missing ingredient should fail: %+v", results[1])
	}
	if results[2].Success {
		t.Errorf("name clash should fail: %+v", results[2])
	}
	got, err := e.ingredients.Get(flour.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Name != rename {
		t.Errorf("name: got %q, want %q", got.Name, rename)
	}
}

func TestRecipeWriteIntegrity(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	flour := e.ingredient(t, "Flour", "1000", "0.002")
	e.recipe(t, "Bread", line(flour.ID, "500"))

	tests := []struct {
		name string
		req  RecipeInput
		kind apperr.Kind
	}{
		{"unknown ingredient", RecipeInput{Name: "Cake", Ingredients: []RecipeLineInput{line(uuid.New(), "1")}}, apperr.KindValidation},
		{"duplicate ingredient", RecipeInput{Name: "Cake", Ingredients: []RecipeLineInput{line(flour.ID, "1"), line(flour.ID, "2")}}, apperr.KindValidation},
		{"zero line quantity", RecipeInput{Name: "Cake", Ingredients: []RecipeLineInput{line(flour.ID, "0")}}, apperr.KindValidation},
		{"missing name", RecipeInput{Ingredients: []RecipeLineInput{line(flour.ID, "1")}}, apperr.KindValidation},
		{"name clash", RecipeInput{Name: "bread", Ingredients: []RecipeLineInput{line(flour.ID, "1")}}, apperr.KindConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.recipes.Create(ctx, tt.req, tester)
			wantKind(t, err, tt.kind)
		})
	}

	page, err := e.recipes.List(RecipeFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.Pagination.TotalItems != 1 {
		t.Errorf("rejected recipes were stored: %d recipes", page.Pagination.TotalItems)
	}
}

func TestRecipeUpdateKeepsPreparedQuantity(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	flour := e.ingredient(t, "Flour", "1000", "0.002")
	butter := e.ingredient(t, "Butter", "200", "0.01")
	bread := e.recipe(t, "Bread", line(flour.ID, "500"))
	e.prepare(t, bread.ID, "1")

	updated, err := e.recipes.Update(ctx, bread.ID, RecipeInput{
		Name:        "Butter Bread",
		Ingredients: []RecipeLineInput{line(butter.ID, "20"), line(flour.ID, "250")},
	}, tester)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Name != "Butter Bread" || len(updated.Ingredients) != 2 {
		t.Fatalf("updated: name=%q lines=%d", updated.Name, len(updated.Ingredients))
	}
	if updated.Ingredients[0].IngredientID != butter.ID || updated.Ingredients[1].IngredientID != flour.ID {
		t.Errorf("line order not kept")
	}
	if !updated.PreparedQuantity.Equal(d("1")) {
		t.Errorf("prepared: got %s, want 1", updated.PreparedQuantity)
	}
	// 500 flour left / 250 = 2, 200 butter / 20 = 10.
	if !updated.MaxPortions.Equal(d("2")) || !updated.Cost.Equal(d("0.7")) {
		t.Errorf("max=%s cost=%s", updated.MaxPortions, updated.Cost)
	}
}

func TestRecipeDuplicate(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	flour := e.ingredient(t, "Flour", "1000", "0.002")
	bread := e.recipe(t, "Bread", line(flour.ID, "500"))
	e.prepare(t, bread.ID, "1")

	dup, err := e.recipes.Duplicate(ctx, bread.ID, tester)
	if err != nil {
		t.Fatalf("duplicate: %v", err)
	}
	if dup.Name != "Bread (Copy)" || dup.ID == bread.ID {
		t.Errorf("duplicate: id=%s name=%q", dup.ID, dup.Name)
	}
	if !dup.PreparedQuantity.IsZero() || len(dup.Ingredients) != 1 {
		t.Errorf("duplicate: prepared=%s lines=%d", dup.PreparedQuantity, len(dup.Ingredients))
	}

	_, err = e.recipes.Duplicate(ctx, bread.ID, tester)
	wantKind(t, err, apperr.KindConflict)
}

func TestRecipeDeleteWhileReferenced(t *testing.T) {
	e := newEnv(t)
	flour := e.ingredient(t, "Flour", "1000", "0.002")
	bread := e.recipe(t, "Bread", line(flour.ID, "500"))
	roll := e.recipe(t, "Roll", line(flour.ID, "50"))
	e.product(t, "Loaf", bread.ID, "5")

	wantKind(t, e.recipes.Delete(bread.ID, tester), apperr.KindConflict)
	if err := e.recipes.Delete(roll.ID, tester); err != nil {
		t.Fatalf("delete: %v", err)
	}
	wantKind(t, e.recipes.Delete(roll.ID, tester), apperr.KindNotFound)
}

func TestRecipeListCanMakeFilter(t *testing.T) {
	e := newEnv(t)
	flour := e.ingredient(t, "Flour", "1000", "0.002")
	saffron := e.ingredient(t, "Saffron", "0", "5")
	e.recipe(t, "Bread", line(flour.ID, "500"))
	e.recipe(t, "Roll", line(flour.ID, "50"))
	e.recipe(t, "Paella", line(saffron.ID, "1"))

	yes, no := true, false
	tests := []struct {
		name    string
		canMake *bool
		limit   int
		want    int64
		onPage  int
	}{
		{"all", nil, 10, 3, 3},
		{"makeable", &yes, 10, 2, 2},
		{"not makeable", &no, 10, 1, 1},
		{"makeable paged", &yes, 1, 2, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := e.recipes.List(RecipeFilter{ListQuery: repository.ListQuery{Limit: tt.limit}, CanMake: tt.canMake})
			if err != nil {
				t.Fatalf("list: %v", err)
			}
			if page.Pagination.TotalItems != tt.want || len(page.Recipes) != tt.onPage {
				t.Errorf("total=%d onPage=%d, want %d/%d", page.Pagination.TotalItems, len(page.Recipes), tt.want, tt.onPage)
			}
		})
	}

	available, err := e.recipes.Available()
	if err != nil {
		t.Fatalf("available: %v", err)
	}
	if len(available) != 2 || available[0].Name != "Bread" {
		t.Errorf("available: %d recipes", len(available))
	}
}

func TestProductCreateRequiresRecipe(t *testing.T) {
	e := newEnv(t)

	_, err := e.products.Create(ProductInput{RecipeID: uuid.New(), Name: "Ghost", Price: d("1")}, tester)
	appErr := wantKind(t, err, apperr.KindValidation)
	if len(appErr.Fields) != 1 || appErr.Fields[0] != "recipe_id" {
		t.Errorf("fields: got %v", appErr.Fields)
	}
}

func TestProductDerivedFields(t *testing.T) {
	e := newEnv(t)
	flour := e.ingredient(t, "Flour", "1000", "0.002")
	bread := e.recipe(t, "Bread", line(flour.ID, "500"))
	loaf := e.product(t, "Loaf", bread.ID, "5")

	if !loaf.Cost.Equal(d("1")) || !loaf.Profit.Equal(d("4")) || !loaf.ProfitMargin.Equal(d("80")) {
		t.Errorf("loaf: cost=%s profit=%s margin=%s", loaf.Cost, loaf.Profit, loaf.ProfitMargin)
	}
	if loaf.CanSell || !loaf.IsActive {
		t.Errorf("loaf: canSell=%v active=%v", loaf.CanSell, loaf.IsActive)
	}

	e.prepare(t, bread.ID, "1")
	got, err := e.products.Get(loaf.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !got.CanSell || !got.PreparedQuantity.Equal(d("1")) {
		t.Errorf("after prepare: canSell=%v prepared=%s", got.CanSell, got.PreparedQuantity)
	}
}

func TestProductToggleAndAvailable(t *testing.T) {
	e := newEnv(t)
	flour := e.ingredient(t, "Flour", "1000", "0.002")
	bread := e.recipe(t, "Bread", line(flour.ID, "500"))
	roll := e.recipe(t, "Roll", line(flour.ID, "50"))
	e.prepare(t, bread.ID, "1")
	loaf := e.product(t, "Loaf", bread.ID, "5")
	e.product(t, "Roll", roll.ID, "1")

	available, err := e.products.Available()
	if err != nil {
		t.Fatalf("available: %v", err)
	}
	if len(available) != 1 || available[0].ID != loaf.ID {
		t.Fatalf("available: got %d products", len(available))
	}

	toggled, err := e.products.ToggleActive(loaf.ID, tester)
	if err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if toggled.IsActive {
		t.Error("toggle should deactivate")
	}
	available, err = e.products.Available()
	if err != nil {
		t.Fatalf("available: %v", err)
	}
	if len(available) != 0 {
		t.Errorf("inactive product still available")
	}

	active := true
	page, err := e.products.List(repository.ProductFilter{IsActive: &active})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.Pagination.TotalItems != 1 || page.Products[0].Name != "Roll" {
		t.Errorf("active filter: %d products", page.Pagination.TotalItems)
	}
}

func TestProductionCapacity(t *testing.T) {
	e := newEnv(t)
	flour := e.ingredient(t, "Flour", "1000", "0.002")
	bread := e.recipe(t, "Bread", line(flour.ID, "300"))
	e.prepare(t, bread.ID, "1")
	e.product(t, "Loaf", bread.ID, "5")

	report, err := e.products.ProductionCapacity()
	if err != nil {
		t.Fatalf("capacity: %v", err)
	}
	if len(report) != 1 {
		t.Fatalf("rows: got %d, want 1", len(report))
	}
	row := report[0]
	// 700 flour left / 300 = 2.33, floored.
	if !row.MaxPortions.Equal(d("2")) || !row.PreparedQuantity.Equal(d("1")) || !row.CanMake || row.RecipeName != "Bread" {
		t.Errorf("row: %+v", row)
	}
}

func TestBulkPriceIsolatesFailures(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	flour := e.ingredient(t, "Flour", "1000", "0.002")
	bread := e.recipe(t, "Bread", line(flour.ID, "500"))
	cheap := e.product(t, "Roll", bread.ID, "5")
	dear := e.product(t, "Loaf", bread.ID, "10")

	results, err := e.products.BulkUpdatePrices(ctx, BulkPriceInput{AdjustmentType: AdjustFixed, AdjustmentValue: dp("-6")}, tester)
	if err != nil {
		t.Fatalf("bulk: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("results: got %d, want 2", len(results))
	}
	for _, r := range results {
		switch r.ID {
		case cheap.ID.String():
			if r.Success {
				t.Error("negative price should fail")
			}
		case dear.ID.String():
			if !r.Success || !r.Item.Price.Equal(d("4")) {
				t.Errorf("loaf: %+v", r)
			}
		}
	}

	got, err := e.products.Get(cheap.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !got.Price.Equal(d("5")) {
		t.Errorf("failed item changed: got %s", got.Price)
	}
}

func TestBulkPriceExplicitAndPercentage(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	flour := e.ingredient(t, "Flour", "1000", "0.002")
	bread := e.recipe(t, "Bread", line(flour.ID, "500"))
	loaf := e.product(t, "Loaf", bread.ID, "10")
	roll := e.product(t, "Roll", bread.ID, "3.33")

	results, err := e.products.BulkUpdatePrices(ctx, BulkPriceInput{Updates: []PriceUpdate{
		{ID: loaf.ID, Price: d("12")},
		{ID: uuid.New(), Price: d("1")},
		{ID: roll.ID, Price: d("-1")},
	}}, tester)
	if err != nil {
		t.Fatalf("bulk: %v", err)
	}
	if !results[0].Success || results[1].Success || results[2].Success {
		t.Errorf("results: %+v", results)
	}

	if _, err := e.products.BulkUpdatePrices(ctx, BulkPriceInput{AdjustmentType: AdjustPercentage, AdjustmentValue: dp("10")}, tester); err != nil {
		t.Fatalf("percentage: %v", err)
	}
	tests := []struct {
		id   uuid.UUID
		want string
	}{
		{loaf.ID, "13.2"},
		{roll.ID, "3.66"},
	}
	for _, tt := range tests {
		got, err := e.products.Get(tt.id)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if !got.Price.Equal(d(tt.want)) {
			t.Errorf("%s: got %s, want %s", got.Name, got.Price, tt.want)
		}
	}

	_, err = e.products.BulkUpdatePrices(ctx, BulkPriceInput{AdjustmentType: "double", AdjustmentValue: dp("1")}, tester)
	wantKind(t, err, apperr.KindValidation)
	_, err = e.products.BulkUpdatePrices(ctx, BulkPriceInput{}, tester)
	wantKind(t, err, apperr.KindValidation)
}
