package repository

import (
	"time"

	"restaurant-pos/internal/apperr"
	"restaurant-pos/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type SaleFilter struct {
	ListQuery
	From      *time.Time
	To        *time.Time // exclusive
	ProductID *uuid.UUID
}

type SaleRepository interface {
	// Create persists a sale on the caller's transaction; the model hook takes the portions.
	Create(tx *gorm.DB, sale *model.Sale) error
	FindAll(filter SaleFilter) ([]model.Sale, int64, error)
	// FindRange returns every live sale in [from, to), oldest first, for analytics.
	FindRange(from, to time.Time, productID *uuid.UUID) ([]model.Sale, error)
	FindByID(id uuid.UUID) (*model.Sale, error)
	LockByID(tx *gorm.DB, id uuid.UUID) (*model.Sale, error)
	UpdateDetails(sale *model.Sale) error
	// Void soft deletes the sale on the caller's transaction; the model hook restores the portions.
	Void(tx *gorm.DB, sale *model.Sale, deletedBy string) error
}

var saleSortColumns = map[string]string{
	"timestamp": "timestamp",
	"quantity":  "quantity",
	"unitPrice": numeric("unit_price"),
	"createdAt": "created_at",
}

type saleRepo struct {
	db *gorm.DB
}

func NewSaleRepo(db *gorm.DB) SaleRepository {
	return &saleRepo{db}
}

// withProduct preloads the product and its recipe even when they were deleted later,
// so historic sales still price their cost.
func withProduct(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Product", func(db *gorm.DB) *gorm.DB {
			return db.Unscoped()
		}).
		Preload("Product.Recipe", func(db *gorm.DB) *gorm.DB {
			return db.Unscoped()
		}).
		Preload("Product.Recipe.Ingredients", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Preload("Product.Recipe.Ingredients.Ingredient")
}

func (r *saleRepo) Create(tx *gorm.DB, sale *model.Sale) error {
	return tx.Omit("Product").Create(sale).Error
}

func (r *saleRepo) filtered(filter SaleFilter) *gorm.DB {
	query := r.db.Model(&model.Sale{})
	if filter.From != nil {
		query = query.Where("timestamp >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("timestamp < ?", *filter.To)
	}
	if filter.ProductID != nil {
		query = query.Where("product_id = ?", *filter.ProductID)
	}
	if filter.Search != "" {
		query = query.Where("LOWER(notes) LIKE ?", searchPattern(filter.Search))
	}
	return query
}

func (r *saleRepo) FindAll(filter SaleFilter) ([]model.Sale, int64, error) {
	filter.ListQuery = filter.normalized()
	query := r.filtered(filter)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var sales []model.Sale
	err := withProduct(query).
		Order(orderBy(filter.ListQuery, saleSortColumns, "timestamp", true)).
		Offset(filter.Offset()).Limit(filter.Limit).
		Find(&sales).Error
	return sales, total, err
}

func (r *saleRepo) FindRange(from, to time.Time, productID *uuid.UUID) ([]model.Sale, error) {
	var sales []model.Sale
	err := withProduct(r.filtered(SaleFilter{From: &from, To: &to, ProductID: productID})).
		Order("timestamp ASC").
		Find(&sales).Error
	return sales, err
}

func (r *saleRepo) FindByID(id uuid.UUID) (*model.Sale, error) {
	var sale model.Sale
	if err := withProduct(r.db).First(&sale, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "sale %s not found", id)
	}
	return &sale, nil
}

func (r *saleRepo) LockByID(tx *gorm.DB, id uuid.UUID) (*model.Sale, error) {
	var sale model.Sale
	if err := tx.Clauses(forUpdate()).First(&sale, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "sale %s not found", id)
	}
	return &sale, nil
}

// UpdateDetails writes notes and timestamp only; quantity and price are fixed once sold.
func (r *saleRepo) UpdateDetails(sale *model.Sale) error {
	res := r.db.Model(sale).Omit("Product").
		Select("notes", "timestamp", "updated_by", "updated_at").
		Updates(sale)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("sale %s not found", sale.ID)
	}
	return nil
}

func (r *saleRepo) Void(tx *gorm.DB, sale *model.Sale, deletedBy string) error {
	if err := tx.Model(sale).UpdateColumn("deleted_by", deletedBy).Error; err != nil {
		return err
	}
	sale.DeletedBy = deletedBy

	res := tx.Delete(sale)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected != 1 {
		return apperr.TransactionFailure(nil, "sale %s was refunded concurrently", sale.ID)
	}
	return nil
}
