package repository_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"ghee-storefront/internal/model"
	"ghee-storefront/internal/repository"
	"ghee-storefront/internal/testutil"
)

func strPtr(s string) *string { return &s }

func newPaidOrder(sessionID string) *model.Order {
	return &model.Order{
		CustomerName:  "Asha",
		CustomerEmail: "asha@example.com",
		CustomerPhone: "9999999999",
		Items: model.NewOrderItems([]model.LineItem{
			{ProductID: "GSR-GHEE-250", ProductName: "Pure Ghee 250ml", Quantity: 2, UnitPrice: decimal.RequireFromString("170.00")},
		}),
		Total:                    decimal.RequireFromString("340.00"),
		Currency:                 "INR",
		Status:                   model.OrderStatusPaid,
		PaymentStatus:            model.PaymentStatusCompleted,
		PaymentMethod:            model.PaymentMethodOnline,
		ExternalPaymentSessionID: strPtr(sessionID),
	}
}

func countSessionOrders(t *testing.T, db *gorm.DB, sessionID string) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(&model.Order{}).
		Where("external_payment_session_id = ?", sessionID).
		Count(&n).Error)
	return n
}

func TestOrderRepository_CreateAndFind(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewOrderRepository(testutil.NewDB(t))

	order := newPaidOrder("order_1")
	require.NoError(t, repo.Create(ctx, order))
	require.NotZero(t, order.ID)

	byID, err := repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, "Asha", byID.CustomerName)
	require.Len(t, byID.Items, 1)
	assert.Equal(t, int32(2), byID.Items[0].Quantity)
	assert.True(t, byID.Total.Equal(decimal.RequireFromString("340")))

	bySession, err := repo.FindBySessionID(ctx, "order_1")
	require.NoError(t, err)
	assert.Equal(t, order.ID, bySession.ID)
}

func TestOrderRepository_FindMissing(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewOrderRepository(testutil.NewDB(t))

	_, err := repo.FindByID(ctx, 42)
	assert.ErrorIs(t, err, repository.ErrOrderNotFound)

	_, err = repo.FindBySessionID(ctx, "order_missing")
	assert.ErrorIs(t, err, repository.ErrOrderNotFound)
}

func TestOrderRepository_DuplicateSessionRejected(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t)
	repo := repository.NewOrderRepository(db)

	require.NoError(t, repo.Create(ctx, newPaidOrder("order_dup")))
	err := repo.Create(ctx, newPaidOrder("order_dup"))
	assert.ErrorIs(t, err, repository.ErrDuplicateSession)

	assert.Equal(t, int64(1), countSessionOrders(t, db, "order_dup"))
}

func TestOrderRepository_ConcurrentCreateKeepsOneRow(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t)
	repo := repository.NewOrderRepository(db)

	const workers = 8
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = repo.Create(ctx, newPaidOrder("order_race"))
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, repository.ErrDuplicateSession)
	}
	assert.Equal(t, 1, succeeded)

	assert.Equal(t, int64(1), countSessionOrders(t, db, "order_race"))
}

func TestOrderRepository_CashOnDeliveryOrdersHaveNoSession(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewOrderRepository(testutil.NewDB(t))

	for i := 0; i < 2; i++ {
		order := newPaidOrder("")
		order.ExternalPaymentSessionID = nil
		order.Status = model.OrderStatusPending
		order.PaymentStatus = model.PaymentStatusCOD
		order.PaymentMethod = model.PaymentMethodCOD
		require.NoError(t, repo.Create(ctx, order))
	}

	orders, total, err := repo.List(ctx, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, orders, 2)
}

func TestOrderRepository_UpdateStatus(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewOrderRepository(testutil.NewDB(t))

	order := newPaidOrder("order_upd")
	require.NoError(t, repo.Create(ctx, order))

	updated, err := repo.UpdateStatus(ctx, order.ID, repository.StatusUpdate{
		Status:              model.OrderStatusFailed,
		PaymentStatus:       model.PaymentStatusFailed,
		ProviderPaymentID:   strPtr("cf_pay_9"),
		ExpectStatus:        model.OrderStatusPaid,
		ExpectPaymentStatus: model.PaymentStatusCompleted,
	})
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusFailed, updated.Status)
	assert.Equal(t, model.PaymentStatusFailed, updated.PaymentStatus)
	require.NotNil(t, updated.ProviderPaymentID)
	assert.Equal(t, "cf_pay_9", *updated.ProviderPaymentID)
	assert.Len(t, updated.Items, 1)
}

func TestOrderRepository_UpdateStatusCompareAndSet(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewOrderRepository(testutil.NewDB(t))

	order := newPaidOrder("order_cas")
	require.NoError(t, repo.Create(ctx, order))

	_, err := repo.UpdateStatus(ctx, order.ID, repository.StatusUpdate{
		Status:        model.OrderStatusConfirmed,
		PaymentStatus: model.PaymentStatusCompleted,
		ExpectStatus:  model.OrderStatusPending,
	})
	assert.ErrorIs(t, err, repository.ErrStaleStatus)

	_, err = repo.UpdateStatus(ctx, 999, repository.StatusUpdate{
		Status:        model.OrderStatusConfirmed,
		PaymentStatus: model.PaymentStatusCompleted,
	})
	assert.ErrorIs(t, err, repository.ErrOrderNotFound)
}

func TestOrderRepository_ListPagination(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewOrderRepository(testutil.NewDB(t))

	for _, id := range []string{"order_a", "order_b", "order_c"} {
		require.NoError(t, repo.Create(ctx, newPaidOrder(id)))
		time.Sleep(time.Millisecond)
	}

	page, total, err := repo.List(ctx, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, page, 2)
	assert.Equal(t, "order_c", *page[0].ExternalPaymentSessionID)

	rest, _, err := repo.List(ctx, 2, 2)
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.Equal(t, "order_a", *rest[0].ExternalPaymentSessionID)
}

func TestOrderRepository_NormalizeStatuses(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t)
	repo := repository.NewOrderRepository(db)

	order := newPaidOrder("order_legacy")
	require.NoError(t, repo.Create(ctx, order))
	require.NoError(t, db.Model(&model.Order{}).Where("id = ?", order.ID).
		Updates(map[string]interface{}{"status": "processing", "payment_status": "success"}).Error)

	statusFixed, paymentFixed, err := repo.NormalizeStatuses(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), statusFixed)
	assert.Equal(t, int64(1), paymentFixed)

	fixed, err := repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusPending, fixed.Status)
	assert.Equal(t, model.PaymentStatusPending, fixed.PaymentStatus)
}
