package handler

import (
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"ghee-storefront/internal/dto"
	"ghee-storefront/internal/service"
)

// webhook bodies are small; anything larger is not from the provider
const maxWebhookBody = 1 << 20

type PaymentHandler struct {
	checkoutService       service.CheckoutService
	reconciliationService service.ReconciliationService
}

func NewPaymentHandler(checkoutService service.CheckoutService, reconciliationService service.ReconciliationService) *PaymentHandler {
	return &PaymentHandler{
		checkoutService:       checkoutService,
		reconciliationService: reconciliationService,
	}
}

func (h *PaymentHandler) CreatePaymentSession(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.CreatePaymentSessionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	session, err := h.checkoutService.CreatePaymentSession(ctx, &service.CreatePaymentSessionRequest{
		Amount:   req.Amount,
		Currency: req.Currency,
		Customer: req.Customer.Customer(),
		Items:    dto.LineItems(req.Items),
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, &dto.PaymentSessionResponse{
		ExternalSessionID:    session.ExternalSessionID,
		ProviderSessionToken: session.ProviderSessionToken,
		Amount:               session.Amount.StringFixed(2),
		Currency:             session.Currency,
	})
}

func (h *PaymentHandler) VerifyPayment(c echo.Context) error {
	ctx := c.Request().Context()

	sessionID := c.Param("id")
	if sessionID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "missing session id")
	}

	var req dto.VerifyPaymentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	result, err := h.reconciliationService.VerifySession(ctx, service.VerifyRequest{
		SessionID: sessionID,
		Total:     req.Total,
	})
	if err != nil {
		return err
	}

	status := http.StatusOK
	if result.Created {
		status = http.StatusCreated
	}
	return c.JSON(status, &dto.OrderResponse{Order: dto.NewOrder(result.Order)})
}

// PaymentWebhook needs the raw body: the signature covers the exact bytes.
func (h *PaymentHandler) PaymentWebhook(c echo.Context) error {
	ctx := c.Request().Context()

	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxWebhookBody))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "unreadable body")
	}

	result, err := h.reconciliationService.HandleWebhook(ctx, c.Request().Header, body)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, &dto.WebhookAck{Status: string(result.Outcome)})
}
