package repository

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"ghee-storefront/internal/model"
)

type ProductRepository interface {
	Seed(ctx context.Context) error
	FindBySKU(ctx context.Context, sku string) (*model.ProductVariant, error)
	FindMany(ctx context.Context, skus []string) ([]*model.ProductVariant, error)
	List(ctx context.Context) ([]*model.ProductVariant, error)
}

type productRepoImpl struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) ProductRepository {
	return &productRepoImpl{
		db: db,
	}
}

func strPtr(s string) *string { return &s }

func (r *productRepoImpl) Seed(ctx context.Context) error {
	variants := []model.ProductVariant{
		{SKU: "GSR-GHEE-250", ProductName: "Pure Ghee", Size: "250ml", Price: decimal.RequireFromString("170.00"), Currency: "INR", StockQuantity: 100, ImageURL: "/images/ghee-250ml.jpg"},
		{SKU: "GSR-GHEE-500", ProductName: "Pure Ghee", Size: "500ml", Price: decimal.RequireFromString("325.00"), Currency: "INR", StockQuantity: 100, ImageURL: "/images/ghee-500ml.jpg", BestValueBadge: strPtr("Best Value")},
		{SKU: "GSR-GHEE-1000", ProductName: "Pure Ghee", Size: "1000ml", Price: decimal.RequireFromString("650.00"), Currency: "INR", StockQuantity: 50, ImageURL: "/images/ghee-1000ml.jpg", BestValueBadge: strPtr("Family Pack")},
	}

	return r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&variants).Error
}

func (r *productRepoImpl) FindBySKU(ctx context.Context, sku string) (*model.ProductVariant, error) {
	var variant model.ProductVariant
	err := r.db.WithContext(ctx).
		Where("sku = ?", sku).
		First(&variant).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrVariantNotFound
		}
		return nil, err
	}

	return &variant, nil
}

func (r *productRepoImpl) FindMany(ctx context.Context, skus []string) ([]*model.ProductVariant, error) {
	var variants []*model.ProductVariant
	err := r.db.WithContext(ctx).
		Where("sku IN ?", skus).
		Find(&variants).
		Error

	if err != nil {
		return nil, err
	}

	return variants, nil
}

func (r *productRepoImpl) List(ctx context.Context) ([]*model.ProductVariant, error) {
	var variants []*model.ProductVariant
	err := r.db.WithContext(ctx).
		Order("price ASC").
		Find(&variants).
		Error

	if err != nil {
		return nil, err
	}

	return variants, nil
}
