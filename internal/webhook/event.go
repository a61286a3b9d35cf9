package webhook

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"ghee-storefront/internal/model"
)

var (
	ErrMalformedEvent   = errors.New("malformed webhook payload")
	ErrUnsupportedEvent = errors.New("unsupported webhook event type")
)

type EventType string

const (
	EventPaymentSuccess     EventType = "PAYMENT_SUCCESS_WEBHOOK"
	EventPaymentFailed      EventType = "PAYMENT_FAILED_WEBHOOK"
	EventPaymentUserDropped EventType = "PAYMENT_USER_DROPPED_WEBHOOK"
	// flat payload of the sorted-fields scheme
	EventLegacyOrderStatus EventType = "LEGACY_ORDER_STATUS"
)

// Event is the provider-neutral result of parsing a callback.
type Event struct {
	ID                string
	Type              EventType
	SessionID         string
	ProviderPaymentID string
	ProviderStatus    model.ProviderStatus
	Amount            decimal.NullDecimal
	Raw               json.RawMessage
}

type envelope struct {
	Type      EventType       `json:"type"`
	EventTime string          `json:"event_time"`
	Data      json.RawMessage `json:"data"`
}

type paymentData struct {
	Order struct {
		OrderID     string      `json:"order_id"`
		OrderAmount json.Number `json:"order_amount"`
	} `json:"order"`
	Payment struct {
		CFPaymentID   json.Number `json:"cf_payment_id"`
		PaymentStatus string      `json:"payment_status"`
		PaymentAmount json.Number `json:"payment_amount"`
	} `json:"payment"`
}

type eventParser func(data json.RawMessage) (*Event, error)

var parsers = map[EventType]eventParser{
	EventPaymentSuccess:     paymentParser(model.ProviderStatusPaid),
	EventPaymentFailed:      paymentParser(model.ProviderStatusFailed),
	EventPaymentUserDropped: paymentParser(model.ProviderStatusUserDropped),
}

// Parse decodes a verified callback body. Envelopes with a type are routed to
// the parser registered for that type; flat bodies are legacy order status
// notifications. Unknown types return ErrUnsupportedEvent.
func Parse(body []byte) (*Event, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("%w: empty body", ErrMalformedEvent)
	}

	var event *Event
	var err error
	if trimmed[0] == '{' && !isLegacyJSON(trimmed) {
		event, err = parseEnvelope(trimmed)
	} else {
		event, err = parseLegacy(trimmed)
	}
	if err != nil {
		return nil, err
	}

	event.ID = EventID(trimmed)
	if json.Valid(trimmed) {
		event.Raw = json.RawMessage(trimmed)
	} else {
		// form bodies are stored as a JSON string
		raw, _ := json.Marshal(string(trimmed))
		event.Raw = raw
	}
	return event, nil
}

// EventID identifies a delivery by its content so redeliveries collapse.
func EventID(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}

func isLegacyJSON(body []byte) bool {
	var probe struct {
		Type        *string `json:"type"`
		OrderStatus *string `json:"order_status"`
		TxStatus    *string `json:"txStatus"`
	}
	if err := json.Unmarshal(body, &probe); err != nil {
		return false
	}
	return probe.Type == nil && (probe.OrderStatus != nil || probe.TxStatus != nil)
}

func parseEnvelope(body []byte) (*Event, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	if env.Type == "" {
		return nil, fmt.Errorf("%w: missing event type", ErrMalformedEvent)
	}

	parse, ok := parsers[env.Type]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedEvent, env.Type)
	}

	event, err := parse(env.Data)
	if err != nil {
		return nil, err
	}
	event.Type = env.Type
	return event, nil
}

func paymentParser(status model.ProviderStatus) eventParser {
	return func(data json.RawMessage) (*Event, error) {
		if len(data) == 0 {
			return nil, fmt.Errorf("%w: missing data", ErrMalformedEvent)
		}

		var payload paymentData
		if err := json.Unmarshal(data, &payload); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
		}
		if payload.Order.OrderID == "" {
			return nil, fmt.Errorf("%w: missing order id", ErrMalformedEvent)
		}

		amount, err := optionalAmount(payload.Order.OrderAmount.String())
		if err != nil {
			return nil, err
		}

		return &Event{
			SessionID:         payload.Order.OrderID,
			ProviderPaymentID: payload.Payment.CFPaymentID.String(),
			ProviderStatus:    status,
			Amount:            amount,
		}, nil
	}
}

// legacy payloads have used both snake_case and camelCase keys
var legacyKeys = struct {
	orderID, paymentID, status, amount []string
}{
	orderID:   []string{"order_id", "orderId"},
	paymentID: []string{"cf_payment_id", "referenceId"},
	status:    []string{"order_status", "txStatus"},
	amount:    []string{"order_amount", "orderAmount"},
}

func parseLegacy(body []byte) (*Event, error) {
	fields, err := flatFields(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}

	sessionID := firstOf(fields, legacyKeys.orderID)
	rawStatus := firstOf(fields, legacyKeys.status)
	if sessionID == "" || rawStatus == "" {
		return nil, fmt.Errorf("%w: legacy payload needs order id and status", ErrMalformedEvent)
	}

	status, ok := legacyStatus(rawStatus)
	if !ok {
		return nil, fmt.Errorf("%w: legacy status %s", ErrUnsupportedEvent, rawStatus)
	}

	amount, err := optionalAmount(firstOf(fields, legacyKeys.amount))
	if err != nil {
		return nil, err
	}

	return &Event{
		Type:              EventLegacyOrderStatus,
		SessionID:         sessionID,
		ProviderPaymentID: firstOf(fields, legacyKeys.paymentID),
		ProviderStatus:    status,
		Amount:            amount,
	}, nil
}

func legacyStatus(s string) (model.ProviderStatus, bool) {
	switch s {
	case "PAID", "SUCCESS":
		return model.ProviderStatusPaid, true
	case "FAILED", "CANCELLED", "FLAGGED", "EXPIRED", "TERMINATED", "TERMINATION_REQUESTED":
		return model.ProviderStatusFailed, true
	case "USER_DROPPED":
		return model.ProviderStatusUserDropped, true
	case "PENDING", "ACTIVE":
		return model.ProviderStatusPending, true
	}
	return "", false
}

func firstOf(fields map[string]string, keys []string) string {
	for _, k := range keys {
		if v := fields[k]; v != "" {
			return v
		}
	}
	return ""
}

func optionalAmount(s string) (decimal.NullDecimal, error) {
	if s == "" {
		return decimal.NullDecimal{}, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.NullDecimal{}, fmt.Errorf("%w: amount %q: %v", ErrMalformedEvent, s, err)
	}
	return decimal.NewNullDecimal(d), nil
}
