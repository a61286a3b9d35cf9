package service

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"ghee-storefront/internal/model"
)

var (
	ErrAmountMismatch    = errors.New("payment amount does not match order total")
	ErrSessionExpired    = errors.New("payment session expired or unknown")
	ErrInvalidTransition = errors.New("order status transition not allowed")
	ErrMalformedWebhook  = errors.New("webhook payload could not be processed")
)

// ValidationError lists the request fields that failed validation.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + ": " + e.Fields[k]
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) add(field, msg string) {
	if e.Fields == nil {
		e.Fields = map[string]string{}
	}
	if _, ok := e.Fields[field]; !ok {
		e.Fields[field] = msg
	}
}

func (e *ValidationError) orNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

// PaymentRejectedError is returned when the provider did not report the
// session as paid. SessionID is quoted back to the customer as a support reference.
type PaymentRejectedError struct {
	Status    model.ProviderStatus
	SessionID string
	Message   string
}

func (e *PaymentRejectedError) Error() string {
	return fmt.Sprintf("payment %s not completed: provider status %s", e.SessionID, e.Status)
}

func rejectionMessage(status model.ProviderStatus) string {
	switch status {
	case model.ProviderStatusFailed:
		return "Your payment failed. No money was taken; please try again."
	case model.ProviderStatusUserDropped:
		return "The payment was cancelled before it completed."
	default:
		return "Your payment is still being processed. Please check again in a moment."
	}
}
