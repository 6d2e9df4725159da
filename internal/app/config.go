// Package app holds process-level configuration.
package app

import (
	"errors"
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"

	"pheezes/internal/core/types"
	"pheezes/internal/domain/cash"
)

// Storage drivers.
const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config holds runtime configuration for the application.
type Config struct {
	AppEnv           string        `envconfig:"APP_ENV" default:"development"`
	AppPort          string        `envconfig:"APP_PORT" default:"8080"`
	HTTPReadTimeout  time.Duration `envconfig:"HTTP_READ_TIMEOUT" default:"15s"`
	HTTPWriteTimeout time.Duration `envconfig:"HTTP_WRITE_TIMEOUT" default:"15s"`
	ShutdownTimeout  time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`

	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	StorageDriver      string        `envconfig:"STORAGE_DRIVER" default:"postgres"`
	DatabaseURL        string        `envconfig:"DATABASE_URL"`
	DBMaxConns         int32         `envconfig:"DB_MAX_CONNS" default:"20"`
	DBStatementTimeout time.Duration `envconfig:"DB_STATEMENT_TIMEOUT" default:"30s"`

	// Empty RedisAddr disables response caching.
	RedisAddr string        `envconfig:"REDIS_ADDR"`
	CacheTTL  time.Duration `envconfig:"CACHE_TTL" default:"5m"`

	LedgerInitialCapital string `envconfig:"LEDGER_INITIAL_CAPITAL" default:"8000"`
	LedgerShareholders   int    `envconfig:"LEDGER_SHAREHOLDERS" default:"4"`

	OrderNumberPrefix string `envconfig:"ORDER_NUMBER_PREFIX" default:"ORD"`

	// IdempotencyTTL is how long a settled Idempotency-Key is replayed.
	IdempotencyTTL time.Duration `envconfig:"IDEMPOTENCY_TTL" default:"24h"`
}

// LoadConfig reads configuration from environment variables.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	switch c.StorageDriver {
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return errors.New("DATABASE_URL must be provided for the postgres driver")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q", c.StorageDriver)
	}

	if c.OrderNumberPrefix == "" {
		return errors.New("ORDER_NUMBER_PREFIX must not be empty")
	}

	if _, err := c.CashConfig(); err != nil {
		return err
	}
	return nil
}

// CashConfig returns the equity parameters of the cash ledger.
func (c *Config) CashConfig() (cash.Config, error) {
	capital, err := types.NewMoneyFromString(c.LedgerInitialCapital)
	if err != nil {
		return cash.Config{}, fmt.Errorf("LEDGER_INITIAL_CAPITAL: %w", err)
	}
	cfg := cash.Config{
		InitialCapital:   capital,
		ShareholderCount: c.LedgerShareholders,
	}
	if err := cfg.Validate(); err != nil {
		return cash.Config{}, fmt.Errorf("ledger config: %w", err)
	}
	return cfg, nil
}

// IsProduction returns true when the application runs in production.
func (c *Config) IsProduction() bool {
	return c != nil && c.AppEnv == "production"
}

// Addr is the HTTP listen address.
func (c *Config) Addr() string {
	return ":" + c.AppPort
}
