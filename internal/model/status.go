package model

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusPaid      OrderStatus = "paid"
	OrderStatusFailed    OrderStatus = "failed"
	OrderStatusCancelled OrderStatus = "cancelled"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusShipped   OrderStatus = "shipped"
	OrderStatusDelivered OrderStatus = "delivered"
)

var orderStatuses = map[OrderStatus]struct{}{
	OrderStatusPending:   {},
	OrderStatusPaid:      {},
	OrderStatusFailed:    {},
	OrderStatusCancelled: {},
	OrderStatusConfirmed: {},
	OrderStatusShipped:   {},
	OrderStatusDelivered: {},
}

func (s OrderStatus) Valid() bool {
	_, ok := orderStatuses[s]
	return ok
}

// ReconciliationOwned reports whether the payment provider may still move the
// order between pending, paid and failed. Fulfillment statuses belong to admins.
func (s OrderStatus) ReconciliationOwned() bool {
	return s == OrderStatusPending || s == OrderStatusPaid || s == OrderStatusFailed
}

// admin driven forward transitions; any status except cancelled can be cancelled
var fulfillmentTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:   {OrderStatusConfirmed, OrderStatusCancelled},
	OrderStatusPaid:      {OrderStatusConfirmed, OrderStatusCancelled},
	OrderStatusFailed:    {OrderStatusCancelled},
	OrderStatusConfirmed: {OrderStatusShipped, OrderStatusCancelled},
	OrderStatusShipped:   {OrderStatusDelivered, OrderStatusCancelled},
	OrderStatusDelivered: {OrderStatusCancelled},
}

// CanTransitionTo reports whether an admin may move an order from s to next.
// An unpaid online order cannot be confirmed; only cash-on-delivery orders skip payment.
func (s OrderStatus) CanTransitionTo(next OrderStatus, paymentStatus PaymentStatus) bool {
	if s == OrderStatusPending && next == OrderStatusConfirmed && paymentStatus != PaymentStatusCOD {
		return false
	}
	for _, allowed := range fulfillmentTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type PaymentStatus string

const (
	PaymentStatusPending        PaymentStatus = "pending"
	PaymentStatusCompleted      PaymentStatus = "completed"
	PaymentStatusFailed         PaymentStatus = "failed"
	PaymentStatusCOD            PaymentStatus = "cod"
	PaymentStatusPendingWebhook PaymentStatus = "pending_webhook"
)

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusCompleted, PaymentStatusFailed, PaymentStatusCOD, PaymentStatusPendingWebhook:
		return true
	}
	return false
}

func (s PaymentStatus) Settled() bool {
	return s == PaymentStatusCompleted || s == PaymentStatusFailed
}

type PaymentMethod string

const (
	PaymentMethodOnline PaymentMethod = "online"
	PaymentMethodCOD    PaymentMethod = "cod"
)

// ProviderStatus is the payment provider's view of a session.
type ProviderStatus string

const (
	ProviderStatusPaid        ProviderStatus = "PAID"
	ProviderStatusFailed      ProviderStatus = "FAILED"
	ProviderStatusPending     ProviderStatus = "PENDING"
	ProviderStatusUserDropped ProviderStatus = "USER_DROPPED"
)

// SessionState tracks a payment session through reconciliation.
// Confirmed and rejected are terminal for a session id.
type SessionState string

const (
	SessionStateCreated   SessionState = "created"
	SessionStateVerifying SessionState = "verifying"
	SessionStateConfirmed SessionState = "confirmed"
	SessionStateRejected  SessionState = "rejected"
)
