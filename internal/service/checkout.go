package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"ghee-storefront/internal/client"
	"ghee-storefront/internal/config"
	"ghee-storefront/internal/logger"
	"ghee-storefront/internal/model"
	"ghee-storefront/internal/repository"
)

type CreatePaymentSessionRequest struct {
	Amount   decimal.Decimal
	Currency string
	Customer model.Customer
	Items    []model.LineItem
}

type PaymentSession struct {
	ExternalSessionID    string
	ProviderSessionToken string
	Amount               decimal.Decimal
	Currency             string
}

type CashOnDeliveryRequest struct {
	Customer model.Customer
	Items    []model.LineItem
	Total    decimal.Decimal
}

type CheckoutService interface {
	CreatePaymentSession(ctx context.Context, req *CreatePaymentSessionRequest) (*PaymentSession, error)
	PlaceCashOnDeliveryOrder(ctx context.Context, req *CashOnDeliveryRequest) (*model.Order, error)
	ListProducts(ctx context.Context) ([]*model.ProductVariant, error)
	GetProduct(ctx context.Context, sku string) (*model.ProductVariant, error)
}

type checkoutServiceImpl struct {
	cashfree    client.CashfreeClient
	productRepo repository.ProductRepository
	orderRepo   repository.OrderRepository
	pendingRepo repository.PendingSessionRepository
	baseURL     string
	currency    string
	sessionTTL  time.Duration
	now         func() time.Time
	newID       func() string
	log         *log.Entry
}

func NewCheckoutService(
	cfg *config.Config,
	cashfree client.CashfreeClient,
	productRepo repository.ProductRepository,
	orderRepo repository.OrderRepository,
	pendingRepo repository.PendingSessionRepository,
	baseLogger log.FieldLogger,
) CheckoutService {
	return &checkoutServiceImpl{
		cashfree:    cashfree,
		productRepo: productRepo,
		orderRepo:   orderRepo,
		pendingRepo: pendingRepo,
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		currency:    cfg.Cashfree.Currency,
		sessionTTL:  cfg.PendingSession.TTL,
		now:         time.Now,
		newID: func() string {
			return "order_" + uuid.NewString()
		},
		log: logger.Component(baseLogger, "checkout"),
	}
}

func (s *checkoutServiceImpl) CreatePaymentSession(ctx context.Context, req *CreatePaymentSessionRequest) (*PaymentSession, error) {
	currency := req.Currency
	if currency == "" {
		currency = s.currency
	}

	verr := &ValidationError{}
	if currency != s.currency {
		verr.add("currency", fmt.Sprintf("only %s is supported", s.currency))
	}
	validateCustomer(verr, req.Customer)

	items, err := s.priceItems(ctx, verr, req.Items)
	if err != nil {
		return nil, err
	}
	if len(verr.Fields) == 0 && !model.SameAmount(req.Amount, model.SumItems(items)) {
		verr.add("amount", fmt.Sprintf("must equal the item total %s", model.SumItems(items).StringFixed(2)))
	}
	if err := verr.orNil(); err != nil {
		return nil, err
	}

	total := model.SumItems(items)
	sessionID := s.newID()
	entry := s.log.WithFields(log.Fields{
		"session_id": sessionID,
		"amount":     total.StringFixed(2),
	})

	resp, err := s.cashfree.CreateSession(ctx, &client.CreateSessionRequest{
		SessionID: sessionID,
		Amount:    total,
		Currency:  currency,
		Customer:  req.Customer,
		ReturnURL: s.baseURL + "/payment-success?order_id={order_id}",
		NotifyURL: s.baseURL + "/api/payment-webhook",
	})
	if err != nil {
		entry.WithError(err).Error("create payment session")
		return nil, fmt.Errorf("create payment session: %w", err)
	}

	now := s.now()
	pending := &model.PendingSession{
		ExternalPaymentSessionID: resp.ExternalSessionID,
		ProviderSessionToken:     resp.ProviderSessionToken,
		CustomerName:             req.Customer.Name,
		CustomerEmail:            req.Customer.Email,
		CustomerPhone:            req.Customer.Phone,
		Total:                    total,
		Currency:                 currency,
		CreatedAt:                now,
		ExpiresAt:                now.Add(s.sessionTTL),
	}
	if err := pending.SetItems(items); err != nil {
		return nil, err
	}
	if err := s.pendingRepo.Put(ctx, pending); err != nil {
		return nil, fmt.Errorf("store pending session: %w", err)
	}

	entry.WithField("state", model.SessionStateCreated).Info("payment session created")

	return &PaymentSession{
		ExternalSessionID:    resp.ExternalSessionID,
		ProviderSessionToken: resp.ProviderSessionToken,
		Amount:               total,
		Currency:             currency,
	}, nil
}

func (s *checkoutServiceImpl) PlaceCashOnDeliveryOrder(ctx context.Context, req *CashOnDeliveryRequest) (*model.Order, error) {
	verr := &ValidationError{}
	validateCustomer(verr, req.Customer)

	items, err := s.priceItems(ctx, verr, req.Items)
	if err != nil {
		return nil, err
	}
	if len(verr.Fields) == 0 && !model.SameAmount(req.Total, model.SumItems(items)) {
		verr.add("total", fmt.Sprintf("must equal the item total %s", model.SumItems(items).StringFixed(2)))
	}
	if err := verr.orNil(); err != nil {
		return nil, err
	}

	order := &model.Order{
		CustomerName:  req.Customer.Name,
		CustomerEmail: req.Customer.Email,
		CustomerPhone: req.Customer.Phone,
		Items:         model.NewOrderItems(items),
		Total:         model.SumItems(items),
		Currency:      s.currency,
		Status:        model.OrderStatusPending,
		PaymentStatus: model.PaymentStatusCOD,
		PaymentMethod: model.PaymentMethodCOD,
	}
	if err := s.orderRepo.Create(ctx, order); err != nil {
		return nil, fmt.Errorf("create cash on delivery order: %w", err)
	}

	s.log.WithFields(log.Fields{
		"order_id": order.ID,
		"total":    order.Total.StringFixed(2),
	}).Info("cash on delivery order placed")

	return order, nil
}

func (s *checkoutServiceImpl) ListProducts(ctx context.Context) ([]*model.ProductVariant, error) {
	return s.productRepo.List(ctx)
}

func (s *checkoutServiceImpl) GetProduct(ctx context.Context, sku string) (*model.ProductVariant, error) {
	return s.productRepo.FindBySKU(ctx, sku)
}

// priceItems checks the cart against the catalog and returns the lines with
// catalog names and prices. Field problems go to verr; err is for store failures.
func (s *checkoutServiceImpl) priceItems(ctx context.Context, verr *ValidationError, items []model.LineItem) ([]model.LineItem, error) {
	if len(items) == 0 {
		verr.add("items", "at least one item is required")
		return nil, nil
	}

	skus := make([]string, 0, len(items))
	for _, item := range items {
		skus = append(skus, item.ProductID)
	}
	variants, err := s.productRepo.FindMany(ctx, skus)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	bySKU := make(map[string]*model.ProductVariant, len(variants))
	for _, v := range variants {
		bySKU[v.SKU] = v
	}

	priced := make([]model.LineItem, 0, len(items))
	for i, item := range items {
		field := fmt.Sprintf("items[%d]", i)

		variant, ok := bySKU[item.ProductID]
		if !ok {
			verr.add(field+".productId", "unknown product "+item.ProductID)
			continue
		}
		if item.Quantity <= 0 {
			verr.add(field+".quantity", "must be positive")
			continue
		}
		if item.Quantity > variant.StockQuantity {
			verr.add(field+".quantity", fmt.Sprintf("only %d in stock", variant.StockQuantity))
			continue
		}
		if !model.SameAmount(item.UnitPrice, variant.Price) {
			verr.add(field+".unitPrice", fmt.Sprintf("price is %s", variant.Price.StringFixed(2)))
			continue
		}

		priced = append(priced, model.LineItem{
			ProductID:   variant.SKU,
			ProductName: variant.ProductName + " " + variant.Size,
			Quantity:    item.Quantity,
			UnitPrice:   variant.Price,
		})
	}

	return priced, nil
}

func validateCustomer(verr *ValidationError, c model.Customer) {
	if strings.TrimSpace(c.Name) == "" {
		verr.add("customerName", "is required")
	}
	if strings.TrimSpace(c.Email) == "" {
		verr.add("customerEmail", "is required")
	}
	if strings.TrimSpace(c.Phone) == "" {
		verr.add("customerPhone", "is required")
	}
}
