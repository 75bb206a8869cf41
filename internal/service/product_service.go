package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"restaurant-pos/internal/analytics"
	"restaurant-pos/internal/apperr"
	"restaurant-pos/internal/costing"
	"restaurant-pos/internal/lock"
	"restaurant-pos/internal/model"
	"restaurant-pos/internal/repository"
	"restaurant-pos/pkg/logger"
	"restaurant-pos/pkg/validator"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const (
	productModule = "ProductService"

	AdjustPercentage = "percentage"
	AdjustFixed      = "fixed"

	bulkPriceLockTTL = 2 * time.Minute
)

type ProductInput struct {
	RecipeID uuid.UUID       `json:"recipe_id" validate:"uuid_required"`
	Name     string          `json:"name" validate:"required,max=100"`
	Price    decimal.Decimal `json:"price" validate:"dgte0"`
	IsActive *bool           `json:"is_active"`
}

type ProductUpdate struct {
	RecipeID *uuid.UUID       `json:"recipe_id"`
	Name     *string          `json:"name" validate:"omitempty,min=1,max=100"`
	Price    *decimal.Decimal `json:"price" validate:"omitempty,dgte0"`
	IsActive *bool            `json:"is_active"`
}

type ProductPage struct {
	Products   []model.ProductResponse `json:"products"`
	Pagination repository.Pagination   `json:"pagination"`
}

type ProductCapacity struct {
	ProductID        uuid.UUID       `json:"product_id"`
	ProductName      string          `json:"product_name"`
	Price            decimal.Decimal `json:"price"`
	RecipeID         uuid.UUID       `json:"recipe_id"`
	RecipeName       string          `json:"recipe_name"`
	CanMake          bool            `json:"can_make"`
	MaxPortions      decimal.Decimal `json:"max_portions"`
	PreparedQuantity decimal.Decimal `json:"available_for_sale"`
}

type AnalyticsPeriod struct {
	Days      int    `json:"days"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

type ProductAnalytics struct {
	Product   model.ProductResponse    `json:"product"`
	Period    AnalyticsPeriod          `json:"period"`
	Summary   analytics.ProductSummary `json:"summary"`
	ChartData []analytics.DailyPoint   `json:"chart_data"`
}

type PriceUpdate struct {
	ID    uuid.UUID       `json:"id"`
	Price decimal.Decimal `json:"price"`
}

// BulkPriceInput either lists explicit prices or adjusts every active product.
type BulkPriceInput struct {
	Updates         []PriceUpdate    `json:"updates"`
	AdjustmentType  string           `json:"adjustment_type"`
	AdjustmentValue *decimal.Decimal `json:"adjustment_value"`
}

type ProductService interface {
	List(filter repository.ProductFilter) (*ProductPage, error)
	Get(id uuid.UUID) (*model.ProductResponse, error)
	Create(req ProductInput, by string) (*model.ProductResponse, error)
	Update(id uuid.UUID, req ProductUpdate, by string) (*model.ProductResponse, error)
	Delete(id uuid.UUID, by string) error
	ToggleActive(id uuid.UUID, by string) (*model.ProductResponse, error)
	Available() ([]model.ProductResponse, error)
	ProductionCapacity() ([]ProductCapacity, error)
	Analytics(id uuid.UUID, days int) (*ProductAnalytics, error)
	BulkUpdatePrices(ctx context.Context, req BulkPriceInput, by string) ([]BulkResult[model.ProductResponse], error)
}

type productService struct {
	products repository.ProductRepository
	recipes  repository.RecipeRepository
	sales    repository.SaleRepository
	db       *gorm.DB
	deps     Deps
	now      func() time.Time
}

func NewProductService(
	products repository.ProductRepository,
	recipes repository.RecipeRepository,
	sales repository.SaleRepository,
	db *gorm.DB,
	deps Deps,
) ProductService {
	return &productService{
		products: products,
		recipes:  recipes,
		sales:    sales,
		db:       db,
		deps:     deps,
		now:      time.Now,
	}
}

func describeProducts(list []model.Product) []model.ProductResponse {
	out := make([]model.ProductResponse, 0, len(list))
	for i := range list {
		out = append(out, costing.DescribeProduct(&list[i]))
	}
	return out
}

func (s *productService) List(filter repository.ProductFilter) (*ProductPage, error) {
	list, total, err := s.products.FindAll(filter)
	if err != nil {
		return nil, err
	}
	return &ProductPage{
		Products:   describeProducts(list),
		Pagination: repository.NewPagination(filter.ListQuery, total),
	}, nil
}

func (s *productService) Get(id uuid.UUID) (*model.ProductResponse, error) {
	product, err := s.products.FindByID(id)
	if err != nil {
		return nil, err
	}
	resp := costing.DescribeProduct(product)
	return &resp, nil
}

func (s *productService) requireRecipe(id uuid.UUID) error {
	if _, err := s.recipes.FindByID(id); err != nil {
		if apperr.KindOf(err) == apperr.KindNotFound {
			return apperr.ValidationFields(fmt.Sprintf("recipe %s does not exist", id), []string{"recipe_id"})
		}
		return err
	}
	return nil
}

func (s *productService) Create(req ProductInput, by string) (*model.ProductResponse, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := validator.Validate(req); err != nil {
		return nil, err
	}
	if err := s.requireRecipe(req.RecipeID); err != nil {
		return nil, err
	}

	product := &model.Product{
		RecipeID: req.RecipeID,
		Name:     req.Name,
		Price:    req.Price,
		IsActive: true,
	}
	if req.IsActive != nil {
		product.IsActive = *req.IsActive
	}
	product.CreatedBy = by
	product.UpdatedBy = by

	if err := s.products.Create(product); err != nil {
		logger.LogError(s.deps.logger(), productModule, "Create", "insert product", req, err)
		return nil, err
	}
	return s.Get(product.ID)
}

func (s *productService) Update(id uuid.UUID, req ProductUpdate, by string) (*model.ProductResponse, error) {
	if req.Name != nil {
		trimmed := strings.TrimSpace(*req.Name)
		req.Name = &trimmed
	}
	if err := validator.Validate(req); err != nil {
		return nil, err
	}

	product, err := s.products.FindByID(id)
	if err != nil {
		return nil, err
	}
	if req.RecipeID != nil && *req.RecipeID != product.RecipeID {
		if err := s.requireRecipe(*req.RecipeID); err != nil {
			return nil, err
		}
		product.RecipeID = *req.RecipeID
	}
	if req.Name != nil {
		product.Name = *req.Name
	}
	if req.Price != nil {
		product.Price = *req.Price
	}
	if req.IsActive != nil {
		product.IsActive = *req.IsActive
	}
	product.UpdatedBy = by

	if err := s.products.Update(product); err != nil {
		return nil, err
	}
	if req.Price != nil || req.RecipeID != nil {
		s.deps.invalidateDashboard(context.Background(), productModule, "Update")
	}
	return s.Get(id)
}

func (s *productService) Delete(id uuid.UUID, by string) error {
	return s.products.Delete(id, by)
}

func (s *productService) ToggleActive(id uuid.UUID, by string) (*model.ProductResponse, error) {
	product, err := s.products.FindByID(id)
	if err != nil {
		return nil, err
	}
	if err := s.products.SetActive(id, !product.IsActive, by); err != nil {
		return nil, err
	}
	return s.Get(id)
}

// Available lists active products with prepared portions left to sell.
func (s *productService) Available() ([]model.ProductResponse, error) {
	list, err := s.products.FindActive()
	if err != nil {
		return nil, err
	}
	available := make([]model.ProductResponse, 0, len(list))
	for _, resp := range describeProducts(list) {
		if resp.CanSell {
			available = append(available, resp)
		}
	}
	return available, nil
}

func (s *productService) ProductionCapacity() ([]ProductCapacity, error) {
	list, err := s.products.FindActive()
	if err != nil {
		return nil, err
	}
	report := make([]ProductCapacity, 0, len(list))
	for _, p := range list {
		row := ProductCapacity{
			ProductID:        p.ID,
			ProductName:      p.Name,
			Price:            p.Price,
			RecipeID:         p.RecipeID,
			MaxPortions:      decimal.Zero,
			PreparedQuantity: decimal.Zero,
		}
		if p.Recipe != nil {
			row.RecipeName = p.Recipe.Name
			row.CanMake = costing.CanMake(p.Recipe)
			row.MaxPortions = costing.MaxPortions(p.Recipe).Floor()
			row.PreparedQuantity = p.Recipe.PreparedQuantity
		}
		report = append(report, row)
	}
	return report, nil
}

// Analytics summarises the product's sales over the trailing days, priced at today's cost.
func (s *productService) Analytics(id uuid.UUID, days int) (*ProductAnalytics, error) {
	if days <= 0 {
		return nil, apperr.Validation("days must be greater than zero")
	}
	product, err := s.products.FindByID(id)
	if err != nil {
		return nil, err
	}

	now := s.now()
	start := now.AddDate(0, 0, -days)
	sales, err := s.sales.FindRange(start, now.Add(time.Nanosecond), &id)
	if err != nil {
		return nil, err
	}
	lines := make([]analytics.SaleLine, 0, len(sales))
	for i := range sales {
		lines = append(lines, analytics.LineFromSale(&sales[i]))
	}

	summary, chart := analytics.ProductPerformance(lines, costing.ProductCost(product), days)
	return &ProductAnalytics{
		Product: costing.DescribeProduct(product),
		Period: AnalyticsPeriod{
			Days:      days,
			StartDate: start.Format("2006-01-02"),
			EndDate:   now.Format("2006-01-02"),
		},
		Summary:   summary,
		ChartData: chart,
	}, nil
}

func adjustPrice(price decimal.Decimal, kind string, value decimal.Decimal) (decimal.Decimal, error) {
	var next decimal.Decimal
	switch kind {
	case AdjustPercentage:
		next = price.Mul(decimal.NewFromInt(1).Add(value.Div(decimal.NewFromInt(100))))
	case AdjustFixed:
		next = price.Add(value)
	default:
		return decimal.Zero, apperr.Validation("invalid adjustment type %q, choose from: percentage, fixed", kind)
	}
	if next.IsNegative() {
		return decimal.Zero, apperr.Validation("price cannot be negative")
	}
	return next.Round(2), nil
}

// BulkUpdatePrices applies each price change on its own; one failing item never stops the rest.
// Adjustment runs over all active products and hold the bulk-price lock while they work.
func (s *productService) BulkUpdatePrices(ctx context.Context, req BulkPriceInput, by string) ([]BulkResult[model.ProductResponse], error) {
	switch {
	case len(req.Updates) > 0:
		results := make([]BulkResult[model.ProductResponse], 0, len(req.Updates))
		for _, u := range req.Updates {
			results = append(results, s.setPrice(ctx, u.ID, u.Price, by))
		}
		return results, nil

	case req.AdjustmentType != "" && req.AdjustmentValue != nil:
		if req.AdjustmentType != AdjustPercentage && req.AdjustmentType != AdjustFixed {
			return nil, apperr.Validation("invalid adjustment type %q, choose from: percentage, fixed", req.AdjustmentType)
		}
		release, err := s.obtainBulkLock(ctx)
		if err != nil {
			return nil, err
		}
		defer release()

		active, err := s.products.FindActive()
		if err != nil {
			return nil, err
		}
		results := make([]BulkResult[model.ProductResponse], 0, len(active))
		for _, p := range active {
			price, err := adjustPrice(p.Price, req.AdjustmentType, *req.AdjustmentValue)
			if err != nil {
				results = append(results, BulkResult[model.ProductResponse]{ID: p.ID.String(), Error: err.Error()})
				continue
			}
			results = append(results, s.setPrice(ctx, p.ID, price, by))
		}

		s.deps.logger().WithFields(logrus.Fields{
			"adjustment_type":  req.AdjustmentType,
			"adjustment_value": req.AdjustmentValue.String(),
			"products":         len(active),
			"by":               by,
		}).Info("bulk price adjustment applied")
		return results, nil

	default:
		return nil, apperr.Validation("Invalid bulk update parameters")
	}
}

func (s *productService) obtainBulkLock(ctx context.Context) (func(), error) {
	if s.deps.Locker == nil {
		s.deps.logger().WithField("key", lock.KeyBulkPrice).Warn("no distributed lock configured, bulk price adjustment runs unguarded")
		return func() {}, nil
	}
	release, err := s.deps.Locker.Obtain(ctx, lock.KeyBulkPrice, bulkPriceLockTTL)
	if err != nil {
		logger.LogError(s.deps.logger(), productModule, "BulkUpdatePrices", "obtain bulk price lock", nil, err)
		return nil, err
	}
	return release, nil
}

func (s *productService) setPrice(ctx context.Context, id uuid.UUID, price decimal.Decimal, by string) BulkResult[model.ProductResponse] {
	result := BulkResult[model.ProductResponse]{ID: id.String()}
	if price.IsNegative() {
		result.Error = "price cannot be negative"
		return result
	}
	if err := s.products.UpdatePrice(s.db.WithContext(ctx), id, price, by); err != nil {
		result.Error = err.Error()
		return result
	}
	s.deps.invalidateDashboard(ctx, productModule, "BulkUpdatePrices")
	resp, err := s.Get(id)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	result.Success = true
	result.Item = resp
	return result
}
