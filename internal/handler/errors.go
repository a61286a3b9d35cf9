package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"ghee-storefront/internal/client"
	"ghee-storefront/internal/dto"
	"ghee-storefront/internal/middleware"
	"ghee-storefront/internal/repository"
	"ghee-storefront/internal/service"
	"ghee-storefront/internal/webhook"
)

// ErrorResponse maps an error returned by a handler to a status code and body.
func ErrorResponse(err error) (int, *dto.ErrorResponse) {
	var validationErr *service.ValidationError
	var rejected *service.PaymentRejectedError
	var httpErr *echo.HTTPError

	if fields, ok := middleware.FieldErrors(err); ok {
		return http.StatusBadRequest, &dto.ErrorResponse{Error: "validation failed", Fields: fields}
	}

	switch {
	case errors.As(err, &validationErr):
		return http.StatusBadRequest, &dto.ErrorResponse{Error: "validation failed", Fields: validationErr.Fields}
	case errors.As(err, &rejected):
		return http.StatusBadRequest, &dto.ErrorResponse{Error: rejected.Message, Reference: rejected.SessionID}
	case errors.Is(err, service.ErrAmountMismatch):
		return http.StatusBadRequest, &dto.ErrorResponse{Error: "payment amount mismatch"}
	case errors.Is(err, webhook.ErrSignatureMissing):
		return http.StatusBadRequest, &dto.ErrorResponse{Error: "missing webhook signature"}
	case errors.Is(err, webhook.ErrSignatureInvalid):
		return http.StatusUnauthorized, &dto.ErrorResponse{Error: "invalid webhook signature"}
	case errors.Is(err, service.ErrSessionExpired), errors.Is(err, client.ErrSessionNotFound):
		return http.StatusNotFound, &dto.ErrorResponse{Error: "payment session not found or expired"}
	case errors.Is(err, repository.ErrOrderNotFound):
		return http.StatusNotFound, &dto.ErrorResponse{Error: "order not found"}
	case errors.Is(err, repository.ErrVariantNotFound):
		return http.StatusNotFound, &dto.ErrorResponse{Error: "product not found"}
	case errors.Is(err, service.ErrInvalidTransition):
		return http.StatusConflict, &dto.ErrorResponse{Error: err.Error()}
	case errors.Is(err, client.ErrGatewayUnavailable):
		return http.StatusBadGateway, &dto.ErrorResponse{Error: "payment gateway unavailable, please retry"}
	case errors.Is(err, client.ErrInvalidRequest):
		return http.StatusBadGateway, &dto.ErrorResponse{Error: err.Error()}
	case errors.Is(err, service.ErrMalformedWebhook):
		return http.StatusInternalServerError, &dto.ErrorResponse{Error: "webhook could not be processed"}
	case errors.As(err, &httpErr):
		return httpErr.Code, &dto.ErrorResponse{Error: fmt.Sprint(httpErr.Message)}
	default:
		return http.StatusInternalServerError, &dto.ErrorResponse{Error: "internal server error"}
	}
}
