package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"ghee-storefront/internal/model"
)

// StatusUpdate is applied atomically. Non-empty Expect* fields turn the write
// into a compare-and-set against the current row.
type StatusUpdate struct {
	Status            model.OrderStatus
	PaymentStatus     model.PaymentStatus
	ProviderPaymentID *string

	ExpectStatus        model.OrderStatus
	ExpectPaymentStatus model.PaymentStatus
}

type OrderRepository interface {
	Create(ctx context.Context, order *model.Order) error
	FindByID(ctx context.Context, id uint) (*model.Order, error)
	FindBySessionID(ctx context.Context, sessionID string) (*model.Order, error)
	UpdateStatus(ctx context.Context, id uint, update StatusUpdate) (*model.Order, error)
	List(ctx context.Context, limit, offset int) ([]*model.Order, int64, error)
	NormalizeStatuses(ctx context.Context) (int64, int64, error)
}

type orderRepoImpl struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepoImpl{
		db: db,
	}
}

func preloadItems(db *gorm.DB) *gorm.DB {
	return db.Order("order_items.id ASC")
}

// Create stores the order and its items in one transaction. A second order for
// the same payment session fails with ErrDuplicateSession.
func (r *orderRepoImpl) Create(ctx context.Context, order *model.Order) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		items := order.Items

		if err := tx.Omit(clause.Associations).Create(order).Error; err != nil {
			if order.ExternalPaymentSessionID != nil && isUniqueViolation(err) {
				return ErrDuplicateSession
			}
			return fmt.Errorf("insert order: %w", err)
		}

		if len(items) > 0 {
			for i := range items {
				items[i].OrderID = order.ID
			}
			if err := tx.Create(&items).Error; err != nil {
				return fmt.Errorf("insert order items: %w", err)
			}
		}
		order.Items = items

		return nil
	})
}

func (r *orderRepoImpl) FindByID(ctx context.Context, id uint) (*model.Order, error) {
	var order model.Order
	err := r.db.WithContext(ctx).
		Preload("Items", preloadItems).
		Where("id = ?", id).
		First(&order).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}

	return &order, nil
}

func (r *orderRepoImpl) FindBySessionID(ctx context.Context, sessionID string) (*model.Order, error) {
	var order model.Order
	err := r.db.WithContext(ctx).
		Preload("Items", preloadItems).
		Where("external_payment_session_id = ?", sessionID).
		First(&order).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}

	return &order, nil
}

func (r *orderRepoImpl) UpdateStatus(ctx context.Context, id uint, update StatusUpdate) (*model.Order, error) {
	var order model.Order
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		query := tx.Model(&model.Order{}).Where("id = ?", id)
		if update.ExpectStatus != "" {
			query = query.Where("status = ?", update.ExpectStatus)
		}
		if update.ExpectPaymentStatus != "" {
			query = query.Where("payment_status = ?", update.ExpectPaymentStatus)
		}

		values := map[string]interface{}{
			"status":         update.Status,
			"payment_status": update.PaymentStatus,
			"updated_at":     time.Now(),
		}
		if update.ProviderPaymentID != nil {
			values["provider_payment_id"] = *update.ProviderPaymentID
		}

		result := query.Updates(values)
		if result.Error != nil {
			return result.Error
		}

		if result.RowsAffected == 0 {
			var count int64
			if err := tx.Model(&model.Order{}).Where("id = ?", id).Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				return ErrOrderNotFound
			}
			return ErrStaleStatus
		}

		// Fetch the updated record within the same transaction
		return tx.Preload("Items", preloadItems).Where("id = ?", id).First(&order).Error
	})
	if err != nil {
		return nil, err
	}

	return &order, nil
}

func (r *orderRepoImpl) List(ctx context.Context, limit, offset int) ([]*model.Order, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&model.Order{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var orders []*model.Order
	err := r.db.WithContext(ctx).
		Preload("Items", preloadItems).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Offset(offset).
		Find(&orders).Error

	if err != nil {
		return nil, 0, err
	}

	return orders, total, nil
}

// NormalizeStatuses resets rows whose status or payment status is outside the
// known sets back to pending. Returns the number of rows fixed for each column.
func (r *orderRepoImpl) NormalizeStatuses(ctx context.Context) (int64, int64, error) {
	var statusFixed, paymentFixed int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&model.Order{}).
			Where("payment_status NOT IN ?", []model.PaymentStatus{
				model.PaymentStatusPending,
				model.PaymentStatusCompleted,
				model.PaymentStatusFailed,
				model.PaymentStatusCOD,
				model.PaymentStatusPendingWebhook,
			}).
			Updates(map[string]interface{}{
				"payment_status": model.PaymentStatusPending,
				"updated_at":     time.Now(),
			})
		if result.Error != nil {
			return result.Error
		}
		paymentFixed = result.RowsAffected

		result = tx.Model(&model.Order{}).
			Where("status NOT IN ?", []model.OrderStatus{
				model.OrderStatusPending,
				model.OrderStatusPaid,
				model.OrderStatusFailed,
				model.OrderStatusCancelled,
				model.OrderStatusConfirmed,
				model.OrderStatusShipped,
				model.OrderStatusDelivered,
			}).
			Updates(map[string]interface{}{
				"status":     model.OrderStatusPending,
				"updated_at": time.Now(),
			})
		if result.Error != nil {
			return result.Error
		}
		statusFixed = result.RowsAffected
		return nil
	})

	return statusFixed, paymentFixed, err
}
