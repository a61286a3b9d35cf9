package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"ghee-storefront/internal/client"
	"ghee-storefront/internal/config"
	"ghee-storefront/internal/logger"
	"ghee-storefront/internal/model"
	"ghee-storefront/internal/repository"
	"ghee-storefront/internal/testutil"
	"ghee-storefront/internal/webhook"
)

const testWebhookSecret = "whsec_test"

// mockCashfreeClient implements client.CashfreeClient for testing
type mockCashfreeClient struct {
	CreateSessionFunc      func(ctx context.Context, req *client.CreateSessionRequest) (*client.CreateSessionResponse, error)
	FetchSessionStatusFunc func(ctx context.Context, sessionID string) (*client.SessionStatus, error)

	createCalls atomic.Int32
	fetchCalls  atomic.Int32
}

func (m *mockCashfreeClient) CreateSession(ctx context.Context, req *client.CreateSessionRequest) (*client.CreateSessionResponse, error) {
	m.createCalls.Add(1)
	if m.CreateSessionFunc != nil {
		return m.CreateSessionFunc(ctx, req)
	}
	return &client.CreateSessionResponse{
		ExternalSessionID:    req.SessionID,
		ProviderSessionToken: "session_" + req.SessionID,
		Amount:               req.Amount,
		Currency:             req.Currency,
	}, nil
}

func (m *mockCashfreeClient) FetchSessionStatus(ctx context.Context, sessionID string) (*client.SessionStatus, error) {
	m.fetchCalls.Add(1)
	if m.FetchSessionStatusFunc != nil {
		return m.FetchSessionStatusFunc(ctx, sessionID)
	}
	return nil, client.ErrSessionNotFound
}

func providerReports(status model.ProviderStatus, amount string) func(context.Context, string) (*client.SessionStatus, error) {
	return func(_ context.Context, _ string) (*client.SessionStatus, error) {
		return &client.SessionStatus{
			ProviderStatus:    status,
			Amount:            decimal.RequireFromString(amount),
			ProviderPaymentID: "cf_pay_1",
		}, nil
	}
}

type harness struct {
	db       *gorm.DB
	cashfree *mockCashfreeClient
	orders   repository.OrderRepository
	pending  repository.PendingSessionRepository
	events   repository.WebhookEventRepository
	checkout *checkoutServiceImpl
	recon    ReconciliationService
	admin    OrderService
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	ctx := context.Background()

	db := testutil.NewDB(t)
	products := repository.NewProductRepository(db)
	require.NoError(t, products.Seed(ctx))

	h := &harness{
		db:       db,
		cashfree: &mockCashfreeClient{},
		orders:   repository.NewOrderRepository(db),
		pending:  repository.NewPendingSessionRepository(db),
		events:   repository.NewWebhookEventRepository(db),
	}

	cfg := &config.Config{
		BaseURL:        "https://shop.example.com/",
		Cashfree:       config.Cashfree{Currency: "INR"},
		PendingSession: config.PendingSession{TTL: 30 * time.Minute},
	}

	var seq atomic.Int32
	checkout := NewCheckoutService(cfg, h.cashfree, products, h.orders, h.pending, logger.Discard()).(*checkoutServiceImpl)
	checkout.newID = func() string {
		return fmt.Sprintf("order_test_%d", seq.Add(1))
	}
	h.checkout = checkout

	h.recon = NewReconciliationService(h.cashfree, webhook.NewTimestampScheme(testWebhookSecret), h.orders, h.pending, h.events, logger.Discard())
	h.admin = NewOrderService(h.orders, logger.Discard())
	return h
}

var testCustomer = model.Customer{Name: "Asha", Email: "asha@example.com", Phone: "9999999999"}

func twoSmallJars() []model.LineItem {
	return []model.LineItem{
		{ProductID: "GSR-GHEE-250", Quantity: 2, UnitPrice: decimal.RequireFromString("170.00")},
	}
}

// startSession runs checkout for two 250ml jars (340.00) and returns the session id.
func (h *harness) startSession(t *testing.T) string {
	t.Helper()
	session, err := h.checkout.CreatePaymentSession(context.Background(), &CreatePaymentSessionRequest{
		Amount:   decimal.RequireFromString("340.00"),
		Currency: "INR",
		Customer: testCustomer,
		Items:    twoSmallJars(),
	})
	require.NoError(t, err)
	return session.ExternalSessionID
}

func (h *harness) countOrders(t *testing.T, sessionID string) int64 {
	t.Helper()
	var n int64
	require.NoError(t, h.db.Model(&model.Order{}).
		Where("external_payment_session_id = ?", sessionID).
		Count(&n).Error)
	return n
}

func signedHeader(body []byte, secret string) http.Header {
	const ts = "1700000000"
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(ts))
	mac.Write(body)

	h := http.Header{}
	h.Set(webhook.HeaderTimestamp, ts)
	h.Set(webhook.HeaderSignature, base64.StdEncoding.EncodeToString(mac.Sum(nil)))
	return h
}

func paymentWebhookBody(eventType webhook.EventType, sessionID, amount, paymentID string) []byte {
	return []byte(`{"type":"` + string(eventType) + `","event_time":"2024-01-01T10:05:00+05:30","data":{` +
		`"order":{"order_id":"` + sessionID + `","order_amount":` + amount + `,"order_currency":"INR"},` +
		`"payment":{"cf_payment_id":` + paymentID + `,"payment_status":"X"}}}`)
}
