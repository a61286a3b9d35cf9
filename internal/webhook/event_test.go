package webhook

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ghee-storefront/internal/model"
)

func TestParse_PaymentEvents(t *testing.T) {
	tests := []struct {
		name       string
		eventType  EventType
		wantStatus model.ProviderStatus
	}{
		{name: "success", eventType: EventPaymentSuccess, wantStatus: model.ProviderStatusPaid},
		{name: "failed", eventType: EventPaymentFailed, wantStatus: model.ProviderStatusFailed},
		{name: "user dropped", eventType: EventPaymentUserDropped, wantStatus: model.ProviderStatusUserDropped},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := []byte(`{"type":"` + string(tt.eventType) + `","event_time":"2024-01-01T10:05:00+05:30",` +
				`"data":{"order":{"order_id":"order_abc","order_amount":340.00,"order_currency":"INR"},` +
				`"payment":{"cf_payment_id":5114911,"payment_status":"SUCCESS","payment_amount":340}}}`)

			event, err := Parse(body)
			require.NoError(t, err)

			assert.Equal(t, tt.eventType, event.Type)
			assert.Equal(t, "order_abc", event.SessionID)
			assert.Equal(t, "5114911", event.ProviderPaymentID)
			assert.Equal(t, tt.wantStatus, event.ProviderStatus)
			require.True(t, event.Amount.Valid)
			assert.True(t, event.Amount.Decimal.Equal(decimal.RequireFromString("340")))
			assert.Equal(t, EventID(body), event.ID)
			assert.JSONEq(t, string(body), string(event.Raw))
		})
	}
}

func TestParse_UnknownTypeIsUnsupported(t *testing.T) {
	_, err := Parse([]byte(`{"type":"REFUND_STATUS_WEBHOOK","data":{"refund":{}}}`))
	assert.ErrorIs(t, err, ErrUnsupportedEvent)
}

func TestParse_Malformed(t *testing.T) {
	bodies := map[string]string{
		"empty":            ``,
		"broken json":      `{"type":`,
		"no type":          `{"data":{"order":{"order_id":"order_abc"}}}`,
		"missing data":     `{"type":"PAYMENT_SUCCESS_WEBHOOK"}`,
		"missing order id": `{"type":"PAYMENT_SUCCESS_WEBHOOK","data":{"order":{},"payment":{}}}`,
		"bad amount":       `{"type":"PAYMENT_SUCCESS_WEBHOOK","data":{"order":{"order_id":"order_abc","order_amount":"abc"}}}`,
	}

	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(body))
			assert.ErrorIs(t, err, ErrMalformedEvent)
		})
	}
}

func TestParse_AmountOptional(t *testing.T) {
	event, err := Parse([]byte(`{"type":"PAYMENT_FAILED_WEBHOOK","data":{"order":{"order_id":"order_abc"},"payment":{}}}`))
	require.NoError(t, err)
	assert.False(t, event.Amount.Valid)
	assert.Empty(t, event.ProviderPaymentID)
}

func TestParse_LegacyJSON(t *testing.T) {
	body := []byte(`{"order_id":"order_abc","order_amount":"340.00","order_status":"PAID","cf_payment_id":"77","signature":"x"}`)

	event, err := Parse(body)
	require.NoError(t, err)

	assert.Equal(t, EventLegacyOrderStatus, event.Type)
	assert.Equal(t, "order_abc", event.SessionID)
	assert.Equal(t, "77", event.ProviderPaymentID)
	assert.Equal(t, model.ProviderStatusPaid, event.ProviderStatus)
	assert.True(t, event.Amount.Decimal.Equal(decimal.RequireFromString("340")))
}

func TestParse_LegacyForm(t *testing.T) {
	event, err := Parse([]byte("orderId=order_abc&orderAmount=170.00&txStatus=USER_DROPPED&referenceId=9&signature=x"))
	require.NoError(t, err)

	assert.Equal(t, EventLegacyOrderStatus, event.Type)
	assert.Equal(t, "order_abc", event.SessionID)
	assert.Equal(t, "9", event.ProviderPaymentID)
	assert.Equal(t, model.ProviderStatusUserDropped, event.ProviderStatus)
	// form bodies are kept as a JSON string so the raw column stays valid JSON
	assert.Equal(t, byte('"'), event.Raw[0])
}

func TestParse_LegacyClosedSessionsAreFailures(t *testing.T) {
	for _, status := range []string{"EXPIRED", "TERMINATED", "TERMINATION_REQUESTED"} {
		t.Run(status, func(t *testing.T) {
			event, err := Parse([]byte(`{"order_id":"order_abc","order_status":"` + status + `"}`))
			require.NoError(t, err)
			assert.Equal(t, model.ProviderStatusFailed, event.ProviderStatus)
		})
	}
}

func TestParse_LegacyUnknownStatus(t *testing.T) {
	_, err := Parse([]byte(`{"order_id":"order_abc","order_status":"REFUNDED"}`))
	assert.ErrorIs(t, err, ErrUnsupportedEvent)
}

func TestEventID_ContentAddressed(t *testing.T) {
	a := EventID([]byte(`{"a":1}`))
	assert.Len(t, a, 64)
	assert.Equal(t, a, EventID([]byte(`{"a":1}`)))
	assert.NotEqual(t, a, EventID([]byte(`{"a":2}`)))
}
