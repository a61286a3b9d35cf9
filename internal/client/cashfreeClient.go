package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"

	"ghee-storefront/internal/config"
	"ghee-storefront/internal/model"
)

var (
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")
	ErrInvalidRequest     = errors.New("payment gateway rejected request")
	ErrSessionNotFound    = errors.New("payment session not found at provider")
)

type CashfreeClient interface {
	CreateSession(ctx context.Context, req *CreateSessionRequest) (*CreateSessionResponse, error)
	FetchSessionStatus(ctx context.Context, sessionID string) (*SessionStatus, error)
}

type CreateSessionRequest struct {
	SessionID string
	Amount    decimal.Decimal
	Currency  string
	Customer  model.Customer
	ReturnURL string
	NotifyURL string
}

type CreateSessionResponse struct {
	ExternalSessionID    string
	ProviderSessionToken string
	Amount               decimal.Decimal
	Currency             string
}

type SessionStatus struct {
	ProviderStatus    model.ProviderStatus
	Amount            decimal.Decimal
	ProviderPaymentID string
	// raw provider order status, e.g. ACTIVE, PAID, EXPIRED
	OrderStatus string
}

// --- wire types ---

type cfCustomerDetails struct {
	CustomerID    string `json:"customer_id"`
	CustomerName  string `json:"customer_name"`
	CustomerEmail string `json:"customer_email"`
	CustomerPhone string `json:"customer_phone"`
}

type cfOrderMeta struct {
	ReturnURL string `json:"return_url,omitempty"`
	NotifyURL string `json:"notify_url,omitempty"`
}

type cfCreateOrderRequest struct {
	OrderID         string            `json:"order_id"`
	OrderAmount     json.Number       `json:"order_amount"`
	OrderCurrency   string            `json:"order_currency"`
	CustomerDetails cfCustomerDetails `json:"customer_details"`
	OrderMeta       cfOrderMeta       `json:"order_meta"`
}

type cfOrder struct {
	CFOrderID        json.Number `json:"cf_order_id"`
	OrderID          string      `json:"order_id"`
	OrderAmount      json.Number `json:"order_amount"`
	OrderCurrency    string      `json:"order_currency"`
	OrderStatus      string      `json:"order_status"`
	PaymentSessionID string      `json:"payment_session_id"`
}

type cfPayment struct {
	CFPaymentID   json.Number `json:"cf_payment_id"`
	PaymentStatus string      `json:"payment_status"`
	PaymentAmount json.Number `json:"payment_amount"`
	PaymentTime   string      `json:"payment_time"`
}

type cfError struct {
	Message string `json:"message"`
	Code    string `json:"code"`
	Type    string `json:"type"`
}

type cashfreeClientImpl struct {
	http *resty.Client
}

func NewCashfreeClient(cfg *config.Cashfree) CashfreeClient {
	httpClient := resty.New().
		SetBaseURL(strings.TrimRight(cfg.APIBaseURL(), "/")).
		SetTimeout(cfg.Timeout).
		SetHeader("x-api-version", cfg.APIVersion).
		SetHeader("x-client-id", cfg.AppID).
		SetHeader("x-client-secret", cfg.SecretKey).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &cashfreeClientImpl{
		http: httpClient,
	}
}

func (c *cashfreeClientImpl) CreateSession(ctx context.Context, req *CreateSessionRequest) (*CreateSessionResponse, error) {
	if !req.Amount.IsPositive() {
		return nil, fmt.Errorf("%w: amount must be positive", ErrInvalidRequest)
	}

	payload := &cfCreateOrderRequest{
		OrderID:       req.SessionID,
		OrderAmount:   json.Number(req.Amount.StringFixed(2)),
		OrderCurrency: req.Currency,
		CustomerDetails: cfCustomerDetails{
			CustomerID:    customerID(req.Customer),
			CustomerName:  req.Customer.Name,
			CustomerEmail: req.Customer.Email,
			CustomerPhone: req.Customer.Phone,
		},
		OrderMeta: cfOrderMeta{
			ReturnURL: req.ReturnURL,
			NotifyURL: req.NotifyURL,
		},
	}

	var result cfOrder
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(payload).
		SetResult(&result).
		SetError(&cfError{}).
		Post("/pg/orders")
	if err != nil {
		return nil, fmt.Errorf("%w: create order: %v", ErrGatewayUnavailable, err)
	}
	if err := classify(resp, false); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	amount, err := decimal.NewFromString(result.OrderAmount.String())
	if err != nil {
		return nil, fmt.Errorf("%w: decode order amount %q: %v", ErrGatewayUnavailable, result.OrderAmount, err)
	}

	return &CreateSessionResponse{
		ExternalSessionID:    result.OrderID,
		ProviderSessionToken: result.PaymentSessionID,
		Amount:               amount,
		Currency:             result.OrderCurrency,
	}, nil
}

func (c *cashfreeClientImpl) FetchSessionStatus(ctx context.Context, sessionID string) (*SessionStatus, error) {
	var order cfOrder
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("orderID", sessionID).
		SetResult(&order).
		SetError(&cfError{}).
		Get("/pg/orders/{orderID}")
	if err != nil {
		return nil, fmt.Errorf("%w: get order: %v", ErrGatewayUnavailable, err)
	}
	if err := classify(resp, true); err != nil {
		return nil, fmt.Errorf("get order %s: %w", sessionID, err)
	}

	amount, err := decimal.NewFromString(order.OrderAmount.String())
	if err != nil {
		return nil, fmt.Errorf("%w: decode order amount %q: %v", ErrGatewayUnavailable, order.OrderAmount, err)
	}

	status := &SessionStatus{
		ProviderStatus: mapOrderStatus(order.OrderStatus),
		Amount:         amount,
		OrderStatus:    order.OrderStatus,
	}

	// payment attempts carry the payment id and why an active order has not been paid
	if status.ProviderStatus == model.ProviderStatusPaid || status.ProviderStatus == model.ProviderStatusPending {
		payments, err := c.listPayments(ctx, sessionID)
		if err != nil {
			return nil, err
		}
		applyPayments(status, payments, order.CFOrderID.String())
	}

	return status, nil
}

func (c *cashfreeClientImpl) listPayments(ctx context.Context, sessionID string) ([]cfPayment, error) {
	var payments []cfPayment
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("orderID", sessionID).
		SetResult(&payments).
		SetError(&cfError{}).
		Get("/pg/orders/{orderID}/payments")
	if err != nil {
		return nil, fmt.Errorf("%w: list payments: %v", ErrGatewayUnavailable, err)
	}
	if err := classify(resp, true); err != nil {
		return nil, fmt.Errorf("list payments for %s: %w", sessionID, err)
	}
	return payments, nil
}

func applyPayments(status *SessionStatus, payments []cfPayment, cfOrderID string) {
	if status.ProviderStatus == model.ProviderStatusPaid {
		for _, p := range payments {
			if p.PaymentStatus == "SUCCESS" {
				status.ProviderPaymentID = p.CFPaymentID.String()
				return
			}
		}
		status.ProviderPaymentID = cfOrderID
		return
	}

	// latest attempt decides for an order that is still active
	if len(payments) == 0 {
		return
	}
	latest := payments[0]
	for _, p := range payments[1:] {
		if p.PaymentTime > latest.PaymentTime {
			latest = p
		}
	}
	switch latest.PaymentStatus {
	case "FAILED", "CANCELLED", "VOID":
		status.ProviderStatus = model.ProviderStatusFailed
	case "USER_DROPPED":
		status.ProviderStatus = model.ProviderStatusUserDropped
	}
	status.ProviderPaymentID = latest.CFPaymentID.String()
}

func mapOrderStatus(orderStatus string) model.ProviderStatus {
	switch orderStatus {
	case "PAID":
		return model.ProviderStatusPaid
	case "EXPIRED", "TERMINATED", "TERMINATION_REQUESTED":
		return model.ProviderStatusFailed
	default:
		return model.ProviderStatusPending
	}
}

func classify(resp *resty.Response, notFoundIsSession bool) error {
	code := resp.StatusCode()
	if code >= 200 && code < 300 {
		return nil
	}

	msg := strings.TrimSpace(resp.String())
	if e, ok := resp.Error().(*cfError); ok && e.Message != "" {
		msg = e.Message
	}

	switch {
	case code == http.StatusNotFound && notFoundIsSession:
		return fmt.Errorf("%w: %s", ErrSessionNotFound, msg)
	case code == http.StatusTooManyRequests || code >= 500:
		return fmt.Errorf("%w: status=%d body=%s", ErrGatewayUnavailable, code, msg)
	default:
		return fmt.Errorf("%w: status=%d body=%s", ErrInvalidRequest, code, msg)
	}
}

// customerID derives a stable provider customer id from the email (or phone).
// The provider allows at most 50 characters from [A-Za-z0-9_-].
func customerID(c model.Customer) string {
	source := c.Email
	if source == "" {
		source = c.Phone
	}
	id := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			return r
		}
		return '_'
	}, source)

	const prefix = "customer_"
	if len(id) > 50-len(prefix) {
		id = id[:50-len(prefix)]
	}
	return prefix + id
}
