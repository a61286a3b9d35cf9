package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"ghee-storefront/internal/dto"
	"ghee-storefront/internal/middleware"
	"ghee-storefront/internal/model"
	"ghee-storefront/internal/service"
)

type OrderHandler struct {
	checkoutService service.CheckoutService
	orderService    service.OrderService
}

func NewOrderHandler(checkoutService service.CheckoutService, orderService service.OrderService) *OrderHandler {
	return &OrderHandler{
		checkoutService: checkoutService,
		orderService:    orderService,
	}
}

func orderIDParam(c echo.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid order id")
	}
	return uint(id), nil
}

func (h *OrderHandler) PlaceCashOnDeliveryOrder(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.CashOnDeliveryRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	order, err := h.checkoutService.PlaceCashOnDeliveryOrder(ctx, &service.CashOnDeliveryRequest{
		Customer: req.Customer.Customer(),
		Items:    dto.LineItems(req.Items),
		Total:    req.Total,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, &dto.OrderResponse{Order: dto.NewOrder(order)})
}

// GetCustomerOrder is the public order lookup; the caller proves ownership
// with the email the order was placed with.
func (h *OrderHandler) GetCustomerOrder(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := orderIDParam(c)
	if err != nil {
		return err
	}

	order, err := h.orderService.GetCustomerOrder(ctx, id, c.QueryParam("email"))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, &dto.OrderResponse{Order: dto.NewOrder(order)})
}

func (h *OrderHandler) GetOrder(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := orderIDParam(c)
	if err != nil {
		return err
	}

	order, err := h.orderService.GetOrder(ctx, id)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, &dto.OrderResponse{Order: dto.NewOrder(order)})
}

func (h *OrderHandler) ListOrders(c echo.Context) error {
	ctx := c.Request().Context()

	limit, err := intQueryParam(c, "limit")
	if err != nil {
		return err
	}
	offset, err := intQueryParam(c, "offset")
	if err != nil {
		return err
	}

	page, err := h.orderService.ListOrders(ctx, limit, offset)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, &dto.OrderListResponse{
		Orders: dto.NewOrders(page.Orders),
		Total:  page.Total,
		Limit:  page.Limit,
		Offset: page.Offset,
	})
}

func (h *OrderHandler) UpdateOrderStatus(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := orderIDParam(c)
	if err != nil {
		return err
	}

	var req dto.UpdateOrderStatusRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	order, err := h.orderService.UpdateFulfillmentStatus(ctx, id, model.OrderStatus(req.Status), middleware.AdminSubject(c))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, &dto.OrderResponse{Order: dto.NewOrder(order)})
}

func intQueryParam(c echo.Context, name string) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid "+name)
	}
	return n, nil
}
