package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"restaurant-pos/internal/apperr"
	"restaurant-pos/internal/costing"
	"restaurant-pos/internal/model"
	"restaurant-pos/internal/repository"
	"restaurant-pos/pkg/logger"
	"restaurant-pos/pkg/validator"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const saleModule = "SaleService"

// SaleInput sells Quantity units. UnitPrice defaults to the product price, Timestamp to now.
type SaleInput struct {
	ProductID uuid.UUID        `json:"product_id" validate:"uuid_required"`
	Quantity  int              `json:"quantity"`
	UnitPrice *decimal.Decimal `json:"unit_price" validate:"omitempty,dgte0"`
	Timestamp *time.Time       `json:"timestamp"`
	Notes     string           `json:"notes" validate:"max=500"`
}

type SaleUpdate struct {
	Notes     *string    `json:"notes" validate:"omitempty,max=500"`
	Timestamp *time.Time `json:"timestamp"`
}

type PageSummary struct {
	PageRevenue      decimal.Decimal `json:"page_revenue"`
	PageProfit       decimal.Decimal `json:"page_profit"`
	PageTransactions int             `json:"page_transactions"`
}

type SalePage struct {
	Sales      []model.SaleResponse  `json:"sales"`
	Pagination repository.Pagination `json:"pagination"`
	Summary    PageSummary           `json:"summary"`
}

type RefundResult struct {
	Message          string             `json:"message"`
	Sale             model.SaleResponse `json:"sale"`
	RestoredQuantity int                `json:"restored_quantity"`
	PreparedQuantity decimal.Decimal    `json:"prepared_quantity"`
}

type SaleService interface {
	List(filter repository.SaleFilter) (*SalePage, error)
	Get(id uuid.UUID) (*model.SaleResponse, error)
	UpdateDetails(id uuid.UUID, req SaleUpdate, by string) (*model.SaleResponse, error)

	// Sell and Refund are the sale ledger: exact inverses on the recipe's prepared quantity.
	Sell(ctx context.Context, req SaleInput, by string) (*model.SaleResponse, error)
	Refund(ctx context.Context, id uuid.UUID, by string) (*RefundResult, error)
}

type saleService struct {
	sales    repository.SaleRepository
	products repository.ProductRepository
	recipes  repository.RecipeRepository
	db       *gorm.DB
	deps     Deps
	now      func() time.Time
}

func NewSaleService(
	sales repository.SaleRepository,
	products repository.ProductRepository,
	recipes repository.RecipeRepository,
	db *gorm.DB,
	deps Deps,
) SaleService {
	return &saleService{
		sales:    sales,
		products: products,
		recipes:  recipes,
		db:       db,
		deps:     deps,
		now:      time.Now,
	}
}

func (s *saleService) List(filter repository.SaleFilter) (*SalePage, error) {
	list, total, err := s.sales.FindAll(filter)
	if err != nil {
		return nil, err
	}

	page := &SalePage{
		Sales:      make([]model.SaleResponse, 0, len(list)),
		Pagination: repository.NewPagination(filter.ListQuery, total),
		Summary:    PageSummary{PageRevenue: decimal.Zero, PageProfit: decimal.Zero},
	}
	for i := range list {
		resp := costing.DescribeSale(&list[i])
		page.Sales = append(page.Sales, resp)
		page.Summary.PageRevenue = page.Summary.PageRevenue.Add(resp.TotalPrice)
		page.Summary.PageProfit = page.Summary.PageProfit.Add(resp.Profit)
		page.Summary.PageTransactions++
	}
	return page, nil
}

func (s *saleService) Get(id uuid.UUID) (*model.SaleResponse, error) {
	sale, err := s.sales.FindByID(id)
	if err != nil {
		return nil, err
	}
	resp := costing.DescribeSale(sale)
	return &resp, nil
}

func (s *saleService) UpdateDetails(id uuid.UUID, req SaleUpdate, by string) (*model.SaleResponse, error) {
	if err := validator.Validate(req); err != nil {
		return nil, err
	}
	sale, err := s.sales.FindByID(id)
	if err != nil {
		return nil, err
	}
	if req.Notes != nil {
		sale.Notes = *req.Notes
	}
	if req.Timestamp != nil {
		sale.Timestamp = *req.Timestamp
	}
	sale.UpdatedBy = by

	if err := s.sales.UpdateDetails(sale); err != nil {
		return nil, err
	}
	return s.Get(id)
}

// Sell checks the product and its prepared portions on a locked recipe row, then
// persists the sale; the sale's create hook takes the portions with a guarded update.
func (s *saleService) Sell(ctx context.Context, req SaleInput, by string) (*model.SaleResponse, error) {
	if req.Quantity < 1 {
		return nil, apperr.InvalidState("quantity must be at least 1")
	}
	if err := validator.Validate(req); err != nil {
		return nil, err
	}

	var sale model.Sale
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var product model.Product
		err := tx.First(&product, "id = ?", req.ProductID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.InvalidState("product %s not found or inactive", req.ProductID)
		}
		if err != nil {
			return err
		}
		if !product.IsActive {
			return apperr.InvalidState("product '%s' is inactive", product.Name)
		}

		recipe, err := s.recipes.LockByID(tx, product.RecipeID)
		if err != nil {
			return err
		}
		qty := decimal.NewFromInt(int64(req.Quantity))
		if recipe.PreparedQuantity.LessThan(qty) {
			return apperr.InsufficientStock(recipe.PreparedQuantity,
				"Cannot sell %d %s, only %s prepared", req.Quantity, product.Name, recipe.PreparedQuantity.String())
		}

		sale = model.Sale{
			ProductID: product.ID,
			Quantity:  req.Quantity,
			UnitPrice: product.Price,
			Timestamp: s.now(),
			Notes:     req.Notes,
		}
		if req.UnitPrice != nil {
			sale.UnitPrice = *req.UnitPrice
		}
		if req.Timestamp != nil {
			sale.Timestamp = *req.Timestamp
		}
		sale.CreatedBy = by
		sale.UpdatedBy = by
		return s.sales.Create(tx, &sale)
	})
	if err != nil {
		if apperr.KindOf(err) == "" || apperr.KindOf(err) == apperr.KindTransactionFailure {
			logger.LogError(s.deps.logger(), saleModule, "Sell", "sale transaction", req, err)
		}
		return nil, err
	}

	resp, err := s.Get(sale.ID)
	if err != nil {
		return nil, err
	}

	s.deps.logger().WithFields(logrus.Fields{
		"sale_id":    sale.ID,
		"product_id": sale.ProductID,
		"quantity":   sale.Quantity,
		"by":         by,
	}).Info("sale recorded")

	s.deps.invalidateDashboard(ctx, saleModule, "Sell")
	name := sale.ProductID.String()
	if resp.Product != nil {
		name = resp.Product.Name
	}
	s.deps.publish("sale_created", by, fmt.Sprintf("%s sold %d x %s", by, sale.Quantity, name), resp)
	return resp, nil
}

// Refund voids the sale and returns its portions to the recipe. Ingredient stock is untouched:
// ingredients were consumed when the portions were prepared.
func (s *saleService) Refund(ctx context.Context, id uuid.UUID, by string) (*RefundResult, error) {
	before, err := s.sales.FindByID(id)
	if err != nil {
		return nil, err
	}

	var prepared decimal.Decimal
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sale, err := s.sales.LockByID(tx, id)
		if err != nil {
			return err
		}
		if err := s.sales.Void(tx, sale, by); err != nil {
			return err
		}

		var product model.Product
		if err := tx.Unscoped().Select("id", "recipe_id").First(&product, "id = ?", sale.ProductID).Error; err != nil {
			return err
		}
		var recipe model.Recipe
		if err := tx.Select("id", "prepared_quantity").First(&recipe, "id = ?", product.RecipeID).Error; err != nil {
			return err
		}
		prepared = recipe.PreparedQuantity
		return nil
	})
	if err != nil {
		if apperr.KindOf(err) == "" || apperr.KindOf(err) == apperr.KindTransactionFailure {
			logger.LogError(s.deps.logger(), saleModule, "Refund", "refund transaction", id, err)
		}
		return nil, err
	}

	resp := costing.DescribeSale(before)
	s.deps.logger().WithFields(logrus.Fields{
		"sale_id":           id,
		"restored_quantity": before.Quantity,
		"prepared_quantity": prepared.String(),
		"by":                by,
	}).Info("sale refunded")

	message := fmt.Sprintf("Refunded %d unit(s), prepared quantity restored", before.Quantity)
	s.deps.invalidateDashboard(ctx, saleModule, "Refund")
	s.deps.publish("sale_refunded", by, message, resp)

	return &RefundResult{
		Message:          message,
		Sale:             resp,
		RestoredQuantity: before.Quantity,
		PreparedQuantity: prepared,
	}, nil
}
