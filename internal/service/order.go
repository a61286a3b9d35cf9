package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"

	"ghee-storefront/internal/logger"
	"ghee-storefront/internal/model"
	"ghee-storefront/internal/repository"
)

const (
	DefaultOrderPageSize = 20
	MaxOrderPageSize     = 100
)

type OrderPage struct {
	Orders []*model.Order
	Total  int64
	Limit  int
	Offset int
}

type OrderService interface {
	ListOrders(ctx context.Context, limit, offset int) (*OrderPage, error)
	GetOrder(ctx context.Context, id uint) (*model.Order, error)
	GetCustomerOrder(ctx context.Context, id uint, email string) (*model.Order, error)
	UpdateFulfillmentStatus(ctx context.Context, id uint, status model.OrderStatus, actor string) (*model.Order, error)
}

type orderServiceImpl struct {
	orderRepo repository.OrderRepository
	log       *log.Entry
}

func NewOrderService(orderRepo repository.OrderRepository, baseLogger log.FieldLogger) OrderService {
	return &orderServiceImpl{
		orderRepo: orderRepo,
		log:       logger.Component(baseLogger, "orders"),
	}
}

func (s *orderServiceImpl) ListOrders(ctx context.Context, limit, offset int) (*OrderPage, error) {
	if limit <= 0 {
		limit = DefaultOrderPageSize
	}
	if limit > MaxOrderPageSize {
		limit = MaxOrderPageSize
	}
	if offset < 0 {
		offset = 0
	}

	orders, total, err := s.orderRepo.List(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}

	return &OrderPage{
		Orders: orders,
		Total:  total,
		Limit:  limit,
		Offset: offset,
	}, nil
}

func (s *orderServiceImpl) GetOrder(ctx context.Context, id uint) (*model.Order, error) {
	return s.orderRepo.FindByID(ctx, id)
}

// GetCustomerOrder only returns the order to someone who knows the email it
// was placed with. A wrong email looks exactly like a missing order.
func (s *orderServiceImpl) GetCustomerOrder(ctx context.Context, id uint, email string) (*model.Order, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, &ValidationError{Fields: map[string]string{"email": "is required"}}
	}

	order, err := s.orderRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !strings.EqualFold(order.CustomerEmail, email) {
		return nil, repository.ErrOrderNotFound
	}
	return order, nil
}

// UpdateFulfillmentStatus applies an admin transition. The write is a
// compare-and-set on the status that was checked, so a webhook landing in
// between turns into ErrInvalidTransition instead of being overwritten.
func (s *orderServiceImpl) UpdateFulfillmentStatus(ctx context.Context, id uint, status model.OrderStatus, actor string) (*model.Order, error) {
	if !status.Valid() {
		return nil, &ValidationError{Fields: map[string]string{"status": fmt.Sprintf("unknown status %q", status)}}
	}

	order, err := s.orderRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if order.Status == status {
		return order, nil
	}
	if !order.Status.CanTransitionTo(status, order.PaymentStatus) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, order.Status, status)
	}

	updated, err := s.orderRepo.UpdateStatus(ctx, id, repository.StatusUpdate{
		Status:              status,
		PaymentStatus:       order.PaymentStatus,
		ExpectStatus:        order.Status,
		ExpectPaymentStatus: order.PaymentStatus,
	})
	if err != nil {
		if errors.Is(err, repository.ErrStaleStatus) {
			return nil, fmt.Errorf("%w: order %d changed concurrently", ErrInvalidTransition, id)
		}
		return nil, fmt.Errorf("update order %d status: %w", id, err)
	}

	s.log.WithFields(log.Fields{
		"order_id": id,
		"from":     order.Status,
		"to":       status,
		"actor":    actor,
	}).Info("order status changed by admin")

	return updated, nil
}
