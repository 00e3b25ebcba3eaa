package config

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/juancollazo-ch/order-print-relay/internal/errors"
	"github.com/juancollazo-ch/order-print-relay/internal/filter"
	"github.com/juancollazo-ch/order-print-relay/internal/models"
	"github.com/juancollazo-ch/order-print-relay/internal/validator"
	"github.com/shopspring/decimal"
	"go.uber.org/zap/zapcore"
)

// Backends del ledger.
const (
	LedgerSQLite   = "sqlite"
	LedgerPostgres = "postgres"
	LedgerMemory   = "memory"
)

type Config struct {
	RunAddress string
	LogLevel   string

	PollingEnabled bool
	PollInterval   time.Duration
	Lookback       time.Duration
	MaxOrders      int

	StorefrontBaseURL string
	StorefrontAPIKey  string
	StorefrontSiteID  string

	PrintPipelineURL string
	DispatchTimeout  time.Duration

	LedgerDriver string
	LedgerDSN    string

	Criteria          filter.Criteria
	RoutingCategories []models.ItemCategory
}

// LookupFunc es la firma de os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// FromEnvironment lee los flags del proceso y luego el entorno.
func FromEnvironment() (*Config, error) {
	return Load(os.Args[1:], os.LookupEnv)
}

// Load lee flags y después variables de entorno; el entorno gana.
func Load(args []string, lookup LookupFunc) (*Config, error) {
	cfg := &Config{
		PollingEnabled:  true,
		PollInterval:    30 * time.Second,
		Lookback:        2 * time.Hour,
		MaxOrders:       100,
		DispatchTimeout: 10 * time.Second,
	}

	fs := flag.NewFlagSet("order-print-relay", flag.ContinueOnError)
	fs.StringVar(&cfg.RunAddress, "a", ":8080", "ops server address and port")
	fs.StringVar(&cfg.StorefrontBaseURL, "s", "https://www.wixapis.com", "storefront API base URL")
	fs.StringVar(&cfg.PrintPipelineURL, "p", "http://localhost:5000/print", "print pipeline endpoint")
	fs.StringVar(&cfg.LedgerDriver, "ledger", LedgerSQLite, "ledger backend: sqlite, postgres or memory")
	fs.StringVar(&cfg.LedgerDSN, "d", "orders.db", "ledger DSN")
	fs.StringVar(&cfg.LogLevel, "l", "info", "log level")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	env := envReader{lookup: lookup}

	if port, ok := lookup("PORT"); ok && port != "" {
		// Cloud Run
		cfg.RunAddress = ":" + port
	}
	cfg.RunAddress = env.str("RUN_ADDRESS", cfg.RunAddress)
	cfg.LogLevel = env.str("LOG_LEVEL", cfg.LogLevel)

	cfg.PollingEnabled = env.boolean("POLLING_ENABLED", cfg.PollingEnabled)
	cfg.PollInterval = env.seconds("POLL_INTERVAL_SECONDS", cfg.PollInterval)
	cfg.Lookback = env.hours("LOOKBACK_HOURS", cfg.Lookback)
	cfg.MaxOrders = env.integer("MAX_ORDERS", cfg.MaxOrders)

	cfg.StorefrontBaseURL = env.str("STOREFRONT_BASE_URL", cfg.StorefrontBaseURL)
	cfg.StorefrontAPIKey = env.str("STOREFRONT_API_KEY", cfg.StorefrontAPIKey)
	cfg.StorefrontSiteID = env.str("STOREFRONT_SITE_ID", cfg.StorefrontSiteID)

	cfg.PrintPipelineURL = env.str("PRINT_PIPELINE_URL", cfg.PrintPipelineURL)
	cfg.DispatchTimeout = env.seconds("DISPATCH_TIMEOUT_SECONDS", cfg.DispatchTimeout)

	cfg.LedgerDriver = strings.ToLower(env.str("LEDGER_DRIVER", cfg.LedgerDriver))
	cfg.LedgerDSN = env.str("LEDGER_DSN", cfg.LedgerDSN)

	cfg.Criteria = env.criteria()
	cfg.RoutingCategories = env.categories("ROUTING_CATEGORIES")

	if err := validator.Collect(append(env.errs, cfg.validate()...)...); err != nil {
		return nil, apperrors.ErrValidation("invalid configuration", err)
	}
	return cfg, nil
}

func (c *Config) validate() []error {
	errs := []error{
		validator.ValidateEndpoint("STOREFRONT_BASE_URL", c.StorefrontBaseURL),
		validator.ValidateEndpoint("PRINT_PIPELINE_URL", c.PrintPipelineURL),
		validator.ValidateSiteID(c.StorefrontSiteID),
		validator.ValidatePositiveDuration("POLL_INTERVAL_SECONDS", c.PollInterval),
		validator.ValidatePositiveDuration("LOOKBACK_HOURS", c.Lookback),
		validator.ValidatePositiveDuration("DISPATCH_TIMEOUT_SECONDS", c.DispatchTimeout),
		validator.ValidatePositiveInt("MAX_ORDERS", c.MaxOrders),
	}
	if c.StorefrontAPIKey == "" {
		errs = append(errs, fmt.Errorf("STOREFRONT_API_KEY is required"))
	}
	switch c.LedgerDriver {
	case LedgerSQLite, LedgerPostgres, LedgerMemory:
	default:
		errs = append(errs, fmt.Errorf("LEDGER_DRIVER %q is not supported", c.LedgerDriver))
	}
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("LOG_LEVEL: %w", err))
	}
	return errs
}

// envReader acumula los errores de parseo para reportarlos juntos.
type envReader struct {
	lookup LookupFunc
	errs   []error
}

func (e *envReader) str(key, fallback string) string {
	if value, ok := e.lookup(key); ok {
		return strings.TrimSpace(value)
	}
	return fallback
}

func (e *envReader) boolean(key string, fallback bool) bool {
	raw, ok := e.lookup(key)
	if !ok || raw == "" {
		return fallback
	}
	v, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return v
}

func (e *envReader) integer(key string, fallback int) int {
	raw, ok := e.lookup(key)
	if !ok || raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return v
}

func (e *envReader) seconds(key string, fallback time.Duration) time.Duration {
	return e.duration(key, time.Second, fallback)
}

func (e *envReader) hours(key string, fallback time.Duration) time.Duration {
	return e.duration(key, time.Hour, fallback)
}

// duration acepta fracciones ("1.5" horas).
func (e *envReader) duration(key string, unit time.Duration, fallback time.Duration) time.Duration {
	raw, ok := e.lookup(key)
	if !ok || raw == "" {
		return fallback
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return time.Duration(v * float64(unit))
}

func (e *envReader) criteria() filter.Criteria {
	var c filter.Criteria
	c.OrderStatuses = parseList(e, "ORDER_STATUSES", models.ParseOrderStatus)
	c.PaymentStatuses = parseList(e, "PAYMENT_STATUSES", models.ParsePaymentStatus)
	c.FulfillmentStatuses = parseList(e, "FULFILLMENT_STATUSES", models.ParseFulfillmentStatus)

	if raw, ok := e.lookup("MIN_ORDER_VALUE"); ok && strings.TrimSpace(raw) != "" {
		d, err := decimal.NewFromString(strings.TrimSpace(raw))
		if err != nil {
			e.errs = append(e.errs, fmt.Errorf("MIN_ORDER_VALUE: %w", err))
		} else {
			c.MinimumOrderValue = filter.Decimal(d)
		}
	}
	return c
}

func (e *envReader) categories(key string) []models.ItemCategory {
	return parseList(e, key, func(raw string) (models.ItemCategory, error) {
		cat, ok := models.ParseItemCategory(raw)
		if !ok {
			return "", fmt.Errorf("unknown category %q", raw)
		}
		return cat, nil
	})
}

// parseList lee una lista separada por comas; vacía o ausente = nil.
func parseList[T any](e *envReader, key string, parse func(string) (T, error)) []T {
	raw, ok := e.lookup(key)
	if !ok {
		return nil
	}
	var out []T
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		v, err := parse(part)
		if err != nil {
			e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
			continue
		}
		out = append(out, v)
	}
	return out
}
