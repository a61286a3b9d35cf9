package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"ghee-storefront/internal/model"
)

type InventoryRepository interface {
	SetStock(ctx context.Context, sku string, quantity int32) (*model.ProductVariant, error)
	Get(ctx context.Context) ([]*model.ProductVariant, error)
}

type inventoryRepoImpl struct {
	db *gorm.DB
}

func NewInventoryRepository(db *gorm.DB) InventoryRepository {
	return &inventoryRepoImpl{
		db: db,
	}
}

func (r *inventoryRepoImpl) SetStock(ctx context.Context, sku string, quantity int32) (*model.ProductVariant, error) {
	var variant model.ProductVariant
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&model.ProductVariant{}).
			Where("sku = ?", sku).
			Updates(map[string]interface{}{
				"stock_quantity": quantity,
				"updated_at":     time.Now(),
			})

		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrVariantNotFound
		}

		return tx.Where("sku = ?", sku).First(&variant).Error
	})
	if err != nil {
		return nil, err
	}

	return &variant, nil
}

func (r *inventoryRepoImpl) Get(ctx context.Context) ([]*model.ProductVariant, error) {
	var variants []*model.ProductVariant

	err := r.db.WithContext(ctx).Order("sku ASC").Find(&variants).Error
	if err != nil {
		return nil, err
	}

	return variants, nil
}
