package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"ghee-storefront/internal/client"
	"ghee-storefront/internal/config"
	"ghee-storefront/internal/logger"
	"ghee-storefront/internal/repository"
	"ghee-storefront/internal/server"
	"ghee-storefront/internal/service"
	"ghee-storefront/internal/webhook"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("failed to load config")
	}

	baseLogger := logger.New(cfg.Log, cfg.Environment.Name)

	db, err := client.InitDatabaseClient(&cfg.Database, baseLogger)
	if err != nil {
		baseLogger.WithError(err).Fatal("failed to connect database")
	}
	if err := client.Migrate(db); err != nil {
		baseLogger.WithError(err).Fatal("failed to migrate database")
	}

	productRepo := repository.NewProductRepository(db)
	if err := productRepo.Seed(context.Background()); err != nil {
		baseLogger.WithError(err).Fatal("failed to seed catalog")
	}
	orderRepo := repository.NewOrderRepository(db)
	pendingRepo := repository.NewPendingSessionRepository(db)
	webhookEventRepo := repository.NewWebhookEventRepository(db)
	inventoryRepo := repository.NewInventoryRepository(db)

	cashfreeClient := client.NewCashfreeClient(&cfg.Cashfree)
	scheme, err := webhook.NewScheme(cfg.Cashfree.WebhookScheme, cfg.Cashfree.SecretKey)
	if err != nil {
		baseLogger.WithError(err).Fatal("invalid webhook scheme")
	}

	services := server.Services{
		Checkout: service.NewCheckoutService(cfg, cashfreeClient, productRepo, orderRepo, pendingRepo, baseLogger),
		Reconciliation: service.NewReconciliationService(
			cashfreeClient, scheme,
			orderRepo,
			pendingRepo,
			webhookEventRepo,
			baseLogger,
		),
		Orders:    service.NewOrderService(orderRepo, baseLogger),
		Inventory: service.NewInventoryService(inventoryRepo, baseLogger),
	}
	janitor := service.NewSessionJanitor(pendingRepo, cfg.PendingSession.PurgeInterval, baseLogger)

	srv := server.NewServer(cfg, services, baseLogger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		baseLogger.WithFields(log.Fields{
			"addr":        cfg.HTTP.Addr(),
			"webhook":     scheme.Name(),
			"environment": cfg.Cashfree.Environment,
		}).Info("starting HTTP server")
		if err := srv.Start(cfg.HTTP.Addr()); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		return janitor.Run(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		baseLogger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		baseLogger.WithError(err).Error("server stopped with error")
		os.Exit(1)
	}
	baseLogger.Info("server stopped")
}
