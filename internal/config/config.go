package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	Environment Environment
	Log         Log
	HTTP        HTTPServer
	BaseURL     string `env:"BASE_URL" envDefault:"http://localhost:8080"`

	Database       Database       `envPrefix:"DB_"`
	Cashfree       Cashfree       `envPrefix:"CASHFREE_"`
	PendingSession PendingSession `envPrefix:"PENDING_SESSION_"`
	Admin          Admin          `envPrefix:"ADMIN_"`
}

type Cashfree struct {
	AppID       string `env:"APP_ID,required,notEmpty"`
	SecretKey   string `env:"SECRET_KEY,required,notEmpty"`
	Environment string `env:"ENVIRONMENT,required,notEmpty"` // sandbox | production
	APIVersion  string `env:"API_VERSION" envDefault:"2023-08-01"`
	// BaseApiURL overrides the environment derived URL, mostly for tests
	BaseApiURL    string        `env:"BASE_API_URL"`
	Timeout       time.Duration `env:"TIMEOUT" envDefault:"15s"`
	WebhookScheme string        `env:"WEBHOOK_SCHEME" envDefault:"timestamp"` // timestamp | sorted-fields
	Currency      string        `env:"CURRENCY" envDefault:"INR"`
}

const (
	CashfreeSandbox    = "sandbox"
	CashfreeProduction = "production"

	WebhookSchemeTimestamp    = "timestamp"
	WebhookSchemeSortedFields = "sorted-fields"
)

func (c Cashfree) APIBaseURL() string {
	if c.BaseApiURL != "" {
		return c.BaseApiURL
	}
	if c.Environment == CashfreeProduction {
		return "https://api.cashfree.com"
	}
	return "https://sandbox.cashfree.com"
}

type Database struct {
	Driver          string        `env:"DRIVER" envDefault:"sqlite"` // mysql | postgres | sqlite
	URL             string        `env:"URL" envDefault:"storefront.db"`
	MaxIdleConns    int           `env:"MAX_IDLE_CONNS" envDefault:"10"`
	MaxOpenConns    int           `env:"MAX_OPEN_CONNS" envDefault:"50"`
	ConnMaxLifetime time.Duration `env:"CONN_MAX_LIFETIME" envDefault:"1h"`
}

type PendingSession struct {
	TTL           time.Duration `env:"TTL" envDefault:"30m"`
	PurgeInterval time.Duration `env:"PURGE_INTERVAL" envDefault:"5m"`
}

type Admin struct {
	JWTSecret string `env:"JWT_SECRET,required,notEmpty"`
}

type Environment struct {
	Name string `env:"ENVIRONMENT" envDefault:"development"`
}

type Log struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"json"`
}

type HTTPServer struct {
	Host            string        `env:"HTTP_HOST" envDefault:"0.0.0.0"`
	Port            string        `env:"HTTP_PORT" envDefault:"8080"`
	ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"30s"`
}

func (h HTTPServer) Addr() string {
	return h.Host + ":" + h.Port
}

// Load reads .env (if present) into the environment and parses the full config.
// Missing provider credentials or admin secret are fatal.
func Load() (*Config, error) {
	// missing .env is fine in prod
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDatabase parses only the database section, for tooling that never talks
// to the payment provider.
func LoadDatabase() (*Database, error) {
	_ = godotenv.Load()

	db := &Database{}
	if err := env.ParseWithOptions(db, env.Options{Prefix: "DB_"}); err != nil {
		return nil, fmt.Errorf("parse database config: %w", err)
	}
	return db, nil
}

func (c *Config) Validate() error {
	switch c.Cashfree.Environment {
	case CashfreeSandbox, CashfreeProduction:
	default:
		return fmt.Errorf("CASHFREE_ENVIRONMENT must be %q or %q, got %q", CashfreeSandbox, CashfreeProduction, c.Cashfree.Environment)
	}

	switch c.Cashfree.WebhookScheme {
	case WebhookSchemeTimestamp, WebhookSchemeSortedFields:
	default:
		return fmt.Errorf("unknown CASHFREE_WEBHOOK_SCHEME %q", c.Cashfree.WebhookScheme)
	}

	switch c.Database.Driver {
	case "mysql", "postgres", "sqlite":
	default:
		return fmt.Errorf("unknown DB_DRIVER %q", c.Database.Driver)
	}

	if c.Cashfree.Timeout <= 0 {
		return fmt.Errorf("CASHFREE_TIMEOUT must be positive")
	}
	if c.PendingSession.TTL <= 0 {
		return fmt.Errorf("PENDING_SESSION_TTL must be positive")
	}
	return nil
}
