package repository_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"ghee-storefront/internal/model"
	"ghee-storefront/internal/repository"
	"ghee-storefront/internal/testutil"
)

func TestProductRepository_SeedIsIdempotent(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewProductRepository(testutil.NewDB(t))

	require.NoError(t, repo.Seed(ctx))
	require.NoError(t, repo.Seed(ctx))

	variants, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, variants, 3)
	assert.Equal(t, "GSR-GHEE-250", variants[0].SKU)
	assert.True(t, variants[0].Price.Equal(decimal.RequireFromString("170.00")))

	many, err := repo.FindMany(ctx, []string{"GSR-GHEE-500", "GSR-GHEE-1000", "NOPE"})
	require.NoError(t, err)
	assert.Len(t, many, 2)

	_, err = repo.FindBySKU(ctx, "NOPE")
	assert.ErrorIs(t, err, repository.ErrVariantNotFound)
}

func TestInventoryRepository_SetStock(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t)
	require.NoError(t, repository.NewProductRepository(db).Seed(ctx))
	repo := repository.NewInventoryRepository(db)

	variant, err := repo.SetStock(ctx, "GSR-GHEE-500", 7)
	require.NoError(t, err)
	assert.Equal(t, int32(7), variant.StockQuantity)

	_, err = repo.SetStock(ctx, "NOPE", 1)
	assert.ErrorIs(t, err, repository.ErrVariantNotFound)

	stock, err := repo.Get(ctx)
	require.NoError(t, err)
	assert.Len(t, stock, 3)
}

func TestWebhookEventRepository_MarkProcessedTwice(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewWebhookEventRepository(testutil.NewDB(t))

	exists, err := repo.Exists(ctx, "evt_1")
	require.NoError(t, err)
	assert.False(t, exists)

	event := func() *model.WebhookEvent {
		return &model.WebhookEvent{
			EventID:   "evt_1",
			EventType: "PAYMENT_SUCCESS_WEBHOOK",
			SessionID: "order_1",
			Payload:   datatypes.JSON(`{"type":"PAYMENT_SUCCESS_WEBHOOK"}`),
		}
	}
	require.NoError(t, repo.MarkProcessed(ctx, event()))
	require.NoError(t, repo.MarkProcessed(ctx, event()))

	exists, err = repo.Exists(ctx, "evt_1")
	require.NoError(t, err)
	assert.True(t, exists)
}
