package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"ghee-storefront/internal/dto"
	"ghee-storefront/internal/service"
)

type InventoryHandler struct {
	checkoutService  service.CheckoutService
	inventoryService service.InventoryService
}

func NewInventoryHandler(checkoutService service.CheckoutService, inventoryService service.InventoryService) *InventoryHandler {
	return &InventoryHandler{
		checkoutService:  checkoutService,
		inventoryService: inventoryService,
	}
}

func (h *InventoryHandler) ListProducts(c echo.Context) error {
	variants, err := h.checkoutService.ListProducts(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, dto.NewProductVariants(variants))
}

func (h *InventoryHandler) GetProduct(c echo.Context) error {
	variant, err := h.checkoutService.GetProduct(c.Request().Context(), c.Param("sku"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, dto.NewProductVariant(variant))
}

func (h *InventoryHandler) ListInventory(c echo.Context) error {
	variants, err := h.inventoryService.ListStock(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, dto.NewProductVariants(variants))
}

func (h *InventoryHandler) UpdateStock(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.UpdateStockRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	variant, err := h.inventoryService.SetStock(ctx, c.Param("sku"), *req.StockQuantity)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, dto.NewProductVariant(variant))
}
