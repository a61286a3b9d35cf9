package service

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"ghee-storefront/internal/logger"
	"ghee-storefront/internal/model"
	"ghee-storefront/internal/repository"
)

type InventoryService interface {
	ListStock(ctx context.Context) ([]*model.ProductVariant, error)
	SetStock(ctx context.Context, sku string, quantity int32) (*model.ProductVariant, error)
}

type inventoryServiceImpl struct {
	inventoryRepo repository.InventoryRepository
	log           *log.Entry
}

func NewInventoryService(inventoryRepo repository.InventoryRepository, baseLogger log.FieldLogger) InventoryService {
	return &inventoryServiceImpl{
		inventoryRepo: inventoryRepo,
		log:           logger.Component(baseLogger, "inventory"),
	}
}

func (s *inventoryServiceImpl) ListStock(ctx context.Context) ([]*model.ProductVariant, error) {
	variants, err := s.inventoryRepo.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("list stock: %w", err)
	}
	return variants, nil
}

func (s *inventoryServiceImpl) SetStock(ctx context.Context, sku string, quantity int32) (*model.ProductVariant, error) {
	if quantity < 0 {
		return nil, &ValidationError{Fields: map[string]string{"stockQuantity": "must not be negative"}}
	}

	variant, err := s.inventoryRepo.SetStock(ctx, sku, quantity)
	if err != nil {
		return nil, err
	}

	s.log.WithFields(log.Fields{"sku": sku, "stock": quantity}).Info("stock updated")
	return variant, nil
}
