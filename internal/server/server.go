package server

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	log "github.com/sirupsen/logrus"

	"ghee-storefront/internal/config"
	"ghee-storefront/internal/handler"
	"ghee-storefront/internal/logger"
	"ghee-storefront/internal/middleware"
	"ghee-storefront/internal/service"
)

type Services struct {
	Checkout       service.CheckoutService
	Reconciliation service.ReconciliationService
	Orders         service.OrderService
	Inventory      service.InventoryService
}

type Server struct {
	echo             *echo.Echo
	cfg              *config.Config
	log              *log.Entry
	paymentHandler   *handler.PaymentHandler
	orderHandler     *handler.OrderHandler
	inventoryHandler *handler.InventoryHandler
}

func NewServer(cfg *config.Config, services Services, baseLogger log.FieldLogger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = middleware.NewRequestValidator()

	s := &Server{
		echo:             e,
		cfg:              cfg,
		log:              logger.Component(baseLogger, "http"),
		paymentHandler:   handler.NewPaymentHandler(services.Checkout, services.Reconciliation),
		orderHandler:     handler.NewOrderHandler(services.Checkout, services.Orders),
		inventoryHandler: handler.NewInventoryHandler(services.Checkout, services.Inventory),
	}

	e.HTTPErrorHandler = s.handleError
	e.Use(echomw.RequestID())
	e.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogStatus:    true,
		LogURI:       true,
		LogMethod:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			entry := s.log.WithFields(log.Fields{
				"method":     v.Method,
				"uri":        v.URI,
				"status":     v.Status,
				"latency":    v.Latency.String(),
				"request_id": v.RequestID,
			})
			if v.Error != nil {
				entry = entry.WithError(v.Error)
			}
			entry.Info("request")
			return nil
		},
	}))
	e.Use(echomw.Recover())
	e.Use(echomw.CORS())

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	api := s.echo.Group("/api")

	api.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	api.GET("/products", s.inventoryHandler.ListProducts)
	api.GET("/products/:sku", s.inventoryHandler.GetProduct)

	// -------- checkout --------
	api.POST("/payment-sessions", s.paymentHandler.CreatePaymentSession)
	api.POST("/payment-sessions/:id/verify", s.paymentHandler.VerifyPayment)
	api.POST("/orders", s.orderHandler.PlaceCashOnDeliveryOrder)
	api.GET("/orders/:id", s.orderHandler.GetCustomerOrder)

	// -------- provider callbacks --------
	api.POST("/payment-webhook", s.paymentHandler.PaymentWebhook)

	// -------- admin --------
	admin := api.Group("/admin", middleware.AdminAuth(s.cfg.Admin.JWTSecret))
	admin.GET("/orders", s.orderHandler.ListOrders)
	admin.GET("/orders/:id", s.orderHandler.GetOrder)
	admin.PATCH("/orders/:id/status", s.orderHandler.UpdateOrderStatus)
	admin.GET("/inventory", s.inventoryHandler.ListInventory)
	admin.PATCH("/inventory/:sku", s.inventoryHandler.UpdateStock)
}

func (s *Server) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status, body := handler.ErrorResponse(err)
	if status >= http.StatusInternalServerError {
		s.log.WithError(err).WithFields(log.Fields{
			"method":     c.Request().Method,
			"path":       c.Path(),
			"request_id": c.Response().Header().Get(echo.HeaderXRequestID),
		}).Error("request failed")
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(status)
	} else {
		err = c.JSON(status, body)
	}
	if err != nil {
		s.log.WithError(err).Warn("write error response")
	}
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

func (s *Server) Start(address string) error {
	return s.echo.Start(address)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
