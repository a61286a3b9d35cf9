package main

import (
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
	"gorm.io/gorm"

	"ghee-storefront/internal/client"
	"ghee-storefront/internal/config"
	"ghee-storefront/internal/logger"
	"ghee-storefront/internal/middleware"
	"ghee-storefront/internal/repository"
	"ghee-storefront/internal/service"
)

func main() {
	app := &cli.App{
		Name:  "storectl",
		Usage: "maintenance commands for the storefront database",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "log-level", Value: "info", EnvVars: []string{"LOG_LEVEL"}},
		},
		Commands: []*cli.Command{
			{
				Name:   "migrate",
				Usage:  "create or update tables",
				Action: migrate,
			},
			{
				Name:   "seed",
				Usage:  "insert the default ghee catalog if it is empty",
				Action: seed,
			},
			{
				Name:   "purge-sessions",
				Usage:  "delete expired pending payment sessions",
				Action: purgeSessions,
			},
			{
				Name:   "fix-statuses",
				Usage:  "reset orders with unknown status values to pending",
				Action: fixStatuses,
			},
			{
				Name:  "admin-token",
				Usage: "mint an admin bearer token for local testing",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "secret", EnvVars: []string{"ADMIN_JWT_SECRET"}, Required: true},
					&cli.StringFlag{Name: "subject", Value: "storectl"},
					&cli.DurationFlag{Name: "ttl", Value: time.Hour},
				},
				Action: adminToken,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newLogger(c *cli.Context) *log.Logger {
	return logger.New(config.Log{Level: c.String("log-level"), Format: "text"}, "storectl")
}

func openDB(c *cli.Context) (*gorm.DB, *log.Logger, error) {
	baseLogger := newLogger(c)
	cfg, err := config.LoadDatabase()
	if err != nil {
		return nil, nil, err
	}
	db, err := client.InitDatabaseClient(cfg, baseLogger)
	if err != nil {
		return nil, nil, err
	}
	return db, baseLogger, nil
}

func migrate(c *cli.Context) error {
	db, baseLogger, err := openDB(c)
	if err != nil {
		return err
	}
	if err := client.Migrate(db); err != nil {
		return err
	}
	baseLogger.Info("migration complete")
	return nil
}

func seed(c *cli.Context) error {
	db, baseLogger, err := openDB(c)
	if err != nil {
		return err
	}
	if err := repository.NewProductRepository(db).Seed(c.Context); err != nil {
		return err
	}
	baseLogger.Info("catalog seeded")
	return nil
}

func purgeSessions(c *cli.Context) error {
	db, baseLogger, err := openDB(c)
	if err != nil {
		return err
	}
	janitor := service.NewSessionJanitor(repository.NewPendingSessionRepository(db), 0, baseLogger)
	purged := janitor.PurgeOnce(c.Context)
	baseLogger.WithField("purged", purged).Info("purge complete")
	return nil
}

func fixStatuses(c *cli.Context) error {
	db, baseLogger, err := openDB(c)
	if err != nil {
		return err
	}
	statusFixed, paymentFixed, err := repository.NewOrderRepository(db).NormalizeStatuses(c.Context)
	if err != nil {
		return err
	}
	baseLogger.WithFields(log.Fields{
		"status_fixed":         statusFixed,
		"payment_status_fixed": paymentFixed,
	}).Info("order statuses normalized")
	return nil
}

func adminToken(c *cli.Context) error {
	token, err := middleware.SignAdminToken(c.String("secret"), c.String("subject"), jwt.RegisteredClaims{
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(c.Duration("ttl"))),
	})
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, token)
	return nil
}
