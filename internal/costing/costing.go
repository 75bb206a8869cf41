// Package costing derives feasibility, portion capacity, cost and margin from recipes and products.
// Every function is pure: it reads preloaded entities and never touches storage.
package costing

import (
	"restaurant-pos/internal/model"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// CanMake reports whether current stock covers at least one portion of every line.
// A line whose ingredient is missing is never satisfiable.
func CanMake(r *model.Recipe) bool {
	for _, line := range r.Ingredients {
		if line.Ingredient == nil {
			return false
		}
		if line.Ingredient.Quantity.LessThan(line.Quantity) {
			return false
		}
	}
	return true
}

// MaxPortions is the fractional number of portions current stock allows:
// the minimum of stock/quantity over lines with a positive quantity, or zero when there are none.
func MaxPortions(r *model.Recipe) decimal.Decimal {
	var (
		min   decimal.Decimal
		found bool
	)
	for _, line := range r.Ingredients {
		if !line.Quantity.IsPositive() {
			continue
		}
		portions := decimal.Zero
		if line.Ingredient != nil {
			portions = line.Ingredient.Quantity.Div(line.Quantity)
		}
		if !found || portions.LessThan(min) {
			min = portions
			found = true
		}
	}
	if !found || min.IsNegative() {
		return decimal.Zero
	}
	return min
}

// Cost of producing one portion. Missing ingredients contribute nothing.
func Cost(r *model.Recipe) decimal.Decimal {
	total := decimal.Zero
	for _, line := range r.Ingredients {
		if line.Ingredient == nil {
			continue
		}
		total = total.Add(line.Quantity.Mul(line.Ingredient.CostPerUnit))
	}
	return total
}

// Requirements returns the stock each line consumes when preparing quantity portions, in line order.
func Requirements(r *model.Recipe, quantity decimal.Decimal) []decimal.Decimal {
	needs := make([]decimal.Decimal, len(r.Ingredients))
	for i, line := range r.Ingredients {
		needs[i] = line.Quantity.Mul(quantity)
	}
	return needs
}

// ProductCost is the per-unit cost of a product, zero when its recipe is not loaded.
func ProductCost(p *model.Product) decimal.Decimal {
	if p.Recipe == nil {
		return decimal.Zero
	}
	return Cost(p.Recipe)
}

func Profit(price, cost decimal.Decimal) decimal.Decimal {
	return price.Sub(cost)
}

// Margin in percent of price. Zero cost is 100; a free product with a cost is -100.
func Margin(price, cost decimal.Decimal) decimal.Decimal {
	if cost.IsZero() {
		return hundred
	}
	if price.IsZero() {
		return hundred.Neg()
	}
	return price.Sub(cost).Div(price).Mul(hundred)
}

// RevenueMargin is profit as a percent of revenue, zero when there is no revenue.
func RevenueMargin(revenue, profit decimal.Decimal) decimal.Decimal {
	if revenue.IsZero() {
		return decimal.Zero
	}
	return profit.Div(revenue).Mul(hundred)
}

// SaleProfit is (product price - product cost) x quantity.
func SaleProfit(p *model.Product, quantity int) decimal.Decimal {
	return Profit(p.Price, ProductCost(p)).Mul(decimal.NewFromInt(int64(quantity)))
}

// Describe bundles the derived recipe fields for responses.
func Describe(r *model.Recipe) model.RecipeResponse {
	return model.RecipeResponse{
		Recipe:      *r,
		CanMake:     CanMake(r),
		MaxPortions: MaxPortions(r),
		Cost:        Cost(r),
	}
}

// DescribeProduct bundles the derived product fields for responses.
func DescribeProduct(p *model.Product) model.ProductResponse {
	cost := ProductCost(p)
	resp := model.ProductResponse{
		Product:      *p,
		Cost:         cost,
		Profit:       Profit(p.Price, cost),
		ProfitMargin: Margin(p.Price, cost),
	}
	if p.Recipe != nil {
		resp.PreparedQuantity = p.Recipe.PreparedQuantity
		resp.CanSell = p.Recipe.PreparedQuantity.IsPositive()
	}
	return resp
}

// DescribeSale bundles total price and profit for a sale with its product preloaded.
func DescribeSale(s *model.Sale) model.SaleResponse {
	resp := model.SaleResponse{Sale: *s, TotalPrice: s.TotalPrice(), Profit: decimal.Zero}
	if s.Product != nil {
		resp.Profit = SaleProfit(s.Product, s.Quantity)
	}
	return resp
}
