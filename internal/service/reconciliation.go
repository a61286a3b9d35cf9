package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"ghee-storefront/internal/client"
	"ghee-storefront/internal/logger"
	"ghee-storefront/internal/model"
	"ghee-storefront/internal/repository"
	"ghee-storefront/internal/webhook"
)

// how many times a webhook re-reads the order after losing a compare-and-set race
const maxStatusUpdateAttempts = 3

type VerifyRequest struct {
	SessionID string
	// optional total the client believes it paid; the pending session is authoritative
	Total decimal.NullDecimal
}

type VerifyResult struct {
	Order   *model.Order
	Created bool
}

type WebhookOutcome string

const (
	WebhookApplied         WebhookOutcome = "applied"
	WebhookNoop            WebhookOutcome = "noop"
	WebhookDuplicate       WebhookOutcome = "duplicate"
	WebhookNotMaterialized WebhookOutcome = "not_materialized"
	WebhookIgnored         WebhookOutcome = "ignored"
	WebhookRejected        WebhookOutcome = "rejected"
)

type WebhookResult struct {
	Outcome WebhookOutcome
	OrderID uint
}

type ReconciliationService interface {
	VerifySession(ctx context.Context, req VerifyRequest) (*VerifyResult, error)
	HandleWebhook(ctx context.Context, header http.Header, body []byte) (*WebhookResult, error)
}

type reconciliationServiceImpl struct {
	cashfree         client.CashfreeClient
	scheme           webhook.SignatureScheme
	orderRepo        repository.OrderRepository
	pendingRepo      repository.PendingSessionRepository
	webhookEventRepo repository.WebhookEventRepository
	log              *log.Entry
}

func NewReconciliationService(
	cashfree client.CashfreeClient,
	scheme webhook.SignatureScheme,
	orderRepo repository.OrderRepository,
	pendingRepo repository.PendingSessionRepository,
	webhookEventRepo repository.WebhookEventRepository,
	baseLogger log.FieldLogger,
) ReconciliationService {
	return &reconciliationServiceImpl{
		cashfree:         cashfree,
		scheme:           scheme,
		orderRepo:        orderRepo,
		pendingRepo:      pendingRepo,
		webhookEventRepo: webhookEventRepo,
		log:              logger.Component(baseLogger, "reconciliation"),
	}
}

func (s *reconciliationServiceImpl) VerifySession(ctx context.Context, req VerifyRequest) (*VerifyResult, error) {
	entry := s.log.WithField("session_id", req.SessionID)

	existing, err := s.orderRepo.FindBySessionID(ctx, req.SessionID)
	if err == nil {
		return &VerifyResult{Order: existing}, nil
	}
	if !errors.Is(err, repository.ErrOrderNotFound) {
		return nil, fmt.Errorf("find order by session: %w", err)
	}

	pending, err := s.pendingRepo.Get(ctx, req.SessionID)
	if err != nil {
		if !errors.Is(err, repository.ErrPendingSessionNotFound) {
			return nil, fmt.Errorf("load pending session: %w", err)
		}
		// a concurrent verify may have created the order and dropped the entry
		if existing, findErr := s.orderRepo.FindBySessionID(ctx, req.SessionID); findErr == nil {
			return &VerifyResult{Order: existing}, nil
		}
		return nil, ErrSessionExpired
	}

	if req.Total.Valid && !model.SameAmount(req.Total.Decimal, pending.Total) {
		entry.WithFields(log.Fields{
			"submitted_total": req.Total.Decimal.StringFixed(2),
			"pending_total":   pending.Total.StringFixed(2),
		}).Warn("submitted total differs from checkout total")
		return nil, ErrAmountMismatch
	}

	entry.WithField("state", model.SessionStateVerifying).Debug("fetching session status")
	status, err := s.cashfree.FetchSessionStatus(ctx, req.SessionID)
	if err != nil {
		// the payment may still succeed; nothing is written on gateway errors
		return nil, fmt.Errorf("fetch session status: %w", err)
	}

	if status.ProviderStatus != model.ProviderStatusPaid {
		if status.ProviderStatus != model.ProviderStatusPending {
			s.dropPending(ctx, entry, req.SessionID)
		}
		entry.WithFields(log.Fields{
			"state":           model.SessionStateRejected,
			"provider_status": status.ProviderStatus,
		}).Info("payment not completed")
		return nil, &PaymentRejectedError{
			Status:    status.ProviderStatus,
			SessionID: req.SessionID,
			Message:   rejectionMessage(status.ProviderStatus),
		}
	}

	if !model.SameAmount(status.Amount, pending.Total) {
		entry.WithFields(log.Fields{
			"state":           model.SessionStateRejected,
			"provider_amount": status.Amount.StringFixed(2),
			"expected_amount": pending.Total.StringFixed(2),
		}).Warn("provider amount does not match checkout total")
		s.dropPending(ctx, entry, req.SessionID)
		return nil, ErrAmountMismatch
	}

	items, err := pending.LineItems()
	if err != nil {
		return nil, err
	}

	sessionID := req.SessionID
	customer := pending.Customer()
	order := &model.Order{
		CustomerName:             customer.Name,
		CustomerEmail:            customer.Email,
		CustomerPhone:            customer.Phone,
		Items:                    model.NewOrderItems(items),
		Total:                    pending.Total.Round(2),
		Currency:                 pending.Currency,
		Status:                   model.OrderStatusPaid,
		PaymentStatus:            model.PaymentStatusCompleted,
		PaymentMethod:            model.PaymentMethodOnline,
		ExternalPaymentSessionID: &sessionID,
	}
	if status.ProviderPaymentID != "" {
		paymentID := status.ProviderPaymentID
		order.ProviderPaymentID = &paymentID
	}

	created := true
	if err := s.orderRepo.Create(ctx, order); err != nil {
		if !errors.Is(err, repository.ErrDuplicateSession) {
			return nil, fmt.Errorf("create order: %w", err)
		}
		// the other completion path won the race
		order, err = s.orderRepo.FindBySessionID(ctx, req.SessionID)
		if err != nil {
			return nil, fmt.Errorf("load reconciled order: %w", err)
		}
		created = false
	}

	s.dropPending(ctx, entry, req.SessionID)

	entry.WithFields(log.Fields{
		"state":    model.SessionStateConfirmed,
		"order_id": order.ID,
		"created":  created,
	}).Info("payment session reconciled")

	return &VerifyResult{Order: order, Created: created}, nil
}

func (s *reconciliationServiceImpl) dropPending(ctx context.Context, entry *log.Entry, sessionID string) {
	if err := s.pendingRepo.Delete(ctx, sessionID); err != nil {
		// expiry and the janitor clean it up eventually
		entry.WithError(err).Warn("delete pending session")
	}
}

func (s *reconciliationServiceImpl) HandleWebhook(ctx context.Context, header http.Header, body []byte) (*WebhookResult, error) {
	if err := s.scheme.Verify(header, body); err != nil {
		s.log.WithField("scheme", s.scheme.Name()).WithError(err).Warn("webhook signature rejected")
		return nil, err
	}

	event, err := webhook.Parse(body)
	if err != nil {
		if errors.Is(err, webhook.ErrUnsupportedEvent) {
			s.log.WithError(err).Info("ignoring webhook event")
			return &WebhookResult{Outcome: WebhookIgnored}, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrMalformedWebhook, err)
	}

	entry := s.log.WithFields(log.Fields{
		"event_id":        event.ID,
		"event_type":      event.Type,
		"session_id":      event.SessionID,
		"provider_status": event.ProviderStatus,
	})

	seen, err := s.webhookEventRepo.Exists(ctx, event.ID)
	if err != nil {
		return nil, fmt.Errorf("check webhook event: %w", err)
	}
	if seen {
		entry.Debug("duplicate webhook delivery")
		return &WebhookResult{Outcome: WebhookDuplicate}, nil
	}

	result, err := s.applyEvent(ctx, entry, event)
	if err != nil {
		return nil, err
	}
	if result.Outcome == WebhookNotMaterialized {
		// not recorded so a redelivery after the redirect can still apply
		return result, nil
	}

	if err := s.webhookEventRepo.MarkProcessed(ctx, &model.WebhookEvent{
		EventID:   event.ID,
		EventType: string(event.Type),
		SessionID: event.SessionID,
		Payload:   []byte(event.Raw),
	}); err != nil {
		return nil, fmt.Errorf("record webhook event: %w", err)
	}

	return result, nil
}

func (s *reconciliationServiceImpl) applyEvent(ctx context.Context, entry *log.Entry, event *webhook.Event) (*WebhookResult, error) {
	for attempt := 1; ; attempt++ {
		order, err := s.orderRepo.FindBySessionID(ctx, event.SessionID)
		if err != nil {
			if errors.Is(err, repository.ErrOrderNotFound) {
				entry.Info("order not yet materialized for webhook")
				return &WebhookResult{Outcome: WebhookNotMaterialized}, nil
			}
			return nil, fmt.Errorf("find order by session: %w", err)
		}

		if event.Amount.Valid && !model.SameAmount(event.Amount.Decimal, order.Total) {
			entry.WithFields(log.Fields{
				"order_id":        order.ID,
				"provider_amount": event.Amount.Decimal.StringFixed(2),
				"order_total":     order.Total.StringFixed(2),
			}).Warn("webhook amount does not match order total")
			return &WebhookResult{Outcome: WebhookRejected, OrderID: order.ID}, nil
		}

		status, paymentStatus, changed := webhookTarget(order, event.ProviderStatus)
		if !changed {
			return &WebhookResult{Outcome: WebhookNoop, OrderID: order.ID}, nil
		}

		update := repository.StatusUpdate{
			Status:              status,
			PaymentStatus:       paymentStatus,
			ExpectStatus:        order.Status,
			ExpectPaymentStatus: order.PaymentStatus,
		}
		if event.ProviderPaymentID != "" {
			paymentID := event.ProviderPaymentID
			update.ProviderPaymentID = &paymentID
		}

		updated, err := s.orderRepo.UpdateStatus(ctx, order.ID, update)
		if err == nil {
			entry.WithFields(log.Fields{
				"order_id":       updated.ID,
				"status":         updated.Status,
				"payment_status": updated.PaymentStatus,
			}).Info("order status updated from webhook")
			return &WebhookResult{Outcome: WebhookApplied, OrderID: updated.ID}, nil
		}
		if !errors.Is(err, repository.ErrStaleStatus) || attempt >= maxStatusUpdateAttempts {
			return nil, fmt.Errorf("update order %d status: %w", order.ID, err)
		}
		entry.WithField("attempt", attempt).Debug("order changed concurrently, re-evaluating")
	}
}

// webhookTarget maps a provider status onto the order. Fulfillment statuses
// belong to admins, so only the payment status follows the provider there.
// PENDING never overrides a settled payment.
func webhookTarget(order *model.Order, providerStatus model.ProviderStatus) (model.OrderStatus, model.PaymentStatus, bool) {
	status, paymentStatus := order.Status, order.PaymentStatus

	switch providerStatus {
	case model.ProviderStatusPaid:
		status, paymentStatus = model.OrderStatusPaid, model.PaymentStatusCompleted
	case model.ProviderStatusFailed, model.ProviderStatusUserDropped:
		status, paymentStatus = model.OrderStatusFailed, model.PaymentStatusFailed
	case model.ProviderStatusPending:
		if !order.PaymentStatus.Settled() {
			paymentStatus = model.PaymentStatusPendingWebhook
		}
	}

	if !order.Status.ReconciliationOwned() {
		status = order.Status
	}

	changed := status != order.Status || paymentStatus != order.PaymentStatus
	return status, paymentStatus, changed
}
