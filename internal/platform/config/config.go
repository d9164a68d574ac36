package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	defaultEnvFile              = ".env"
	defaultPort                 = "8080"
	defaultReadTimeout          = 15 * time.Second
	defaultWriteTimeout         = 30 * time.Second
	defaultIdleTimeout          = 120 * time.Second
	defaultCommerceTimeout      = 10 * time.Second
	defaultDeliveryTimeout      = 10 * time.Second
	defaultCurrency             = "GBP"
	defaultTaxRateBasisPoints   = 1000
	defaultFreeShippingMinor    = 5000
	defaultShippingFlatFeeMinor = 1000
	defaultRateLimitDefault     = 120
	defaultRateLimitContact     = 10
	defaultIdempotencyHeader    = "Idempotency-Key"
	defaultIdempotencyTTL       = 24 * time.Hour
	defaultIdempotencyInterval  = time.Hour
	defaultIdempotencyBatchSize = 200
)

// Config captures all runtime configuration organised by concern.
type Config struct {
	Server      ServerConfig
	Commerce    CommerceConfig
	Delivery    DeliveryConfig
	PSP         PSPConfig
	Pricing     PricingConfig
	Session     SessionConfig
	RateLimits  RateLimitConfig
	Features    FeatureFlags
	Promotions  PromotionConfig
	Idempotency IdempotencyConfig
}

// ServerConfig configures HTTP server parameters.
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// CommerceConfig points at the upstream commerce REST backend.
type CommerceConfig struct {
	BaseURL string
	Token   string
	Timeout time.Duration
}

// DeliveryConfig holds courier integration settings. The pickup fields
// describe the warehouse jobs are collected from.
type DeliveryConfig struct {
	BaseURL          string
	APIKey           string
	Enabled          bool
	Timeout          time.Duration
	PickupAddress    string
	PickupPostalCode string
	PickupCity       string
	PickupCountry    string
	PickupName       string
	PickupPhone      string
}

// PSPConfig collects secrets for payment providers.
type PSPConfig struct {
	StripeAPIKey string
}

// PricingConfig drives order total calculations. Monetary values are in
// minor units of the configured currency.
type PricingConfig struct {
	Currency              string
	TaxRateBasisPoints    int64
	FreeShippingThreshold int64
	ShippingFlatFee       int64
}

// SessionConfig controls how shopper sessions are recognised.
type SessionConfig struct {
	JWTSecret string
}

// RateLimitConfig controls request throttling.
type RateLimitConfig struct {
	DefaultPerMinute int
	ContactPerMinute int
}

// FeatureFlags toggle optional behaviour without redeploying.
type FeatureFlags struct {
	EnablePromotions bool
	EnableDelivery   bool
}

// PromotionConfig locates the promotion rule pack.
type PromotionConfig struct {
	RulesFile string
}

// IdempotencyConfig controls idempotency middleware behaviour.
type IdempotencyConfig struct {
	Header           string
	TTL              time.Duration
	CleanupInterval  time.Duration
	CleanupBatchSize int
}

// ValidationError is returned when required configuration fields are missing or invalid.
type ValidationError struct {
	fields []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed: missing or invalid fields [%s]", strings.Join(e.fields, ", "))
}

// Fields returns a copy of the missing/invalid field list.
func (e *ValidationError) Fields() []string {
	out := make([]string, len(e.fields))
	copy(out, e.fields)
	return out
}

// Option customises Load behaviour.
type Option func(*loaderOptions)

type loaderOptions struct {
	envFile      string
	envMap       map[string]string
	useSystemEnv bool
}

// WithEnvFile overrides the .env file path used for local overrides.
func WithEnvFile(path string) Option {
	return func(o *loaderOptions) {
		o.envFile = path
	}
}

// WithEnvMap injects an explicit key/value map for environment lookups. Values in the map
// take precedence over system environment variables.
func WithEnvMap(values map[string]string) Option {
	return func(o *loaderOptions) {
		o.envMap = values
	}
}

// WithoutSystemEnv disables reading from os.Getenv, relying only on provided maps and .env files.
func WithoutSystemEnv() Option {
	return func(o *loaderOptions) {
		o.useSystemEnv = false
	}
}

// Load assembles the application configuration by combining defaults, .env overrides,
// and environment variables.
func Load(opts ...Option) (Config, error) {
	options := loaderOptions{
		envFile:      defaultEnvFile,
		useSystemEnv: true,
	}

	for _, opt := range opts {
		opt(&options)
	}

	dotEnvValues, err := loadDotEnv(options.envFile)
	if err != nil {
		return Config{}, err
	}

	lookup := func(key string) (string, bool) {
		if options.envMap != nil {
			if value, ok := options.envMap[key]; ok {
				return value, true
			}
		}
		if options.useSystemEnv {
			if value, ok := os.LookupEnv(key); ok {
				return value, true
			}
		}
		if dotEnvValues != nil {
			if value, ok := dotEnvValues[key]; ok {
				return value, true
			}
		}
		return "", false
	}

	cfg := Config{
		Server: ServerConfig{
			Port:         stringWithDefault(lookup, "API_SERVER_PORT", defaultPort),
			ReadTimeout:  durationWithDefault(lookup, "API_SERVER_READ_TIMEOUT", defaultReadTimeout),
			WriteTimeout: durationWithDefault(lookup, "API_SERVER_WRITE_TIMEOUT", defaultWriteTimeout),
			IdleTimeout:  durationWithDefault(lookup, "API_SERVER_IDLE_TIMEOUT", defaultIdleTimeout),
		},
		Commerce: CommerceConfig{
			BaseURL: stringWithDefault(lookup, "API_COMMERCE_BASE_URL", ""),
			Token:   stringWithDefault(lookup, "API_COMMERCE_TOKEN", ""),
			Timeout: durationWithDefault(lookup, "API_COMMERCE_TIMEOUT", defaultCommerceTimeout),
		},
		Delivery: DeliveryConfig{
			BaseURL:          stringWithDefault(lookup, "API_DELIVERY_BASE_URL", ""),
			APIKey:           stringWithDefault(lookup, "API_DELIVERY_API_KEY", ""),
			Enabled:          boolWithDefault(lookup, "API_DELIVERY_ENABLED", false),
			Timeout:          durationWithDefault(lookup, "API_DELIVERY_TIMEOUT", defaultDeliveryTimeout),
			PickupAddress:    stringWithDefault(lookup, "API_DELIVERY_PICKUP_ADDRESS", ""),
			PickupPostalCode: stringWithDefault(lookup, "API_DELIVERY_PICKUP_POSTAL_CODE", ""),
			PickupCity:       stringWithDefault(lookup, "API_DELIVERY_PICKUP_CITY", ""),
			PickupCountry:    stringWithDefault(lookup, "API_DELIVERY_PICKUP_COUNTRY", ""),
			PickupName:       stringWithDefault(lookup, "API_DELIVERY_PICKUP_NAME", ""),
			PickupPhone:      stringWithDefault(lookup, "API_DELIVERY_PICKUP_PHONE", ""),
		},
		PSP: PSPConfig{
			StripeAPIKey: stringWithDefault(lookup, "API_PSP_STRIPE_API_KEY", ""),
		},
		Pricing: PricingConfig{
			Currency:              strings.ToUpper(stringWithDefault(lookup, "API_PRICING_CURRENCY", defaultCurrency)),
			TaxRateBasisPoints:    int64WithDefault(lookup, "API_PRICING_TAX_RATE_BPS", defaultTaxRateBasisPoints),
			FreeShippingThreshold: int64WithDefault(lookup, "API_PRICING_FREE_SHIPPING_THRESHOLD", defaultFreeShippingMinor),
			ShippingFlatFee:       int64WithDefault(lookup, "API_PRICING_SHIPPING_FLAT_FEE", defaultShippingFlatFeeMinor),
		},
		Session: SessionConfig{
			JWTSecret: stringWithDefault(lookup, "API_SESSION_JWT_SECRET", ""),
		},
		RateLimits: RateLimitConfig{
			DefaultPerMinute: intWithDefault(lookup, "API_RATELIMIT_DEFAULT_PER_MIN", defaultRateLimitDefault),
			ContactPerMinute: intWithDefault(lookup, "API_RATELIMIT_CONTACT_PER_MIN", defaultRateLimitContact),
		},
		Features: FeatureFlags{
			EnablePromotions: boolWithDefault(lookup, "API_FEATURE_PROMOTIONS", false),
			EnableDelivery:   boolWithDefault(lookup, "API_FEATURE_DELIVERY", false),
		},
		Promotions: PromotionConfig{
			RulesFile: stringWithDefault(lookup, "API_PROMOTIONS_RULES_FILE", ""),
		},
		Idempotency: IdempotencyConfig{
			Header:           stringWithDefault(lookup, "API_IDEMPOTENCY_HEADER", defaultIdempotencyHeader),
			TTL:              durationWithDefault(lookup, "API_IDEMPOTENCY_TTL", defaultIdempotencyTTL),
			CleanupInterval:  durationWithDefault(lookup, "API_IDEMPOTENCY_CLEANUP_INTERVAL", defaultIdempotencyInterval),
			CleanupBatchSize: intWithDefault(lookup, "API_IDEMPOTENCY_CLEANUP_BATCH", defaultIdempotencyBatchSize),
		},
	}

	// Delivery booking stays off unless both the flag and credentials are present.
	if cfg.Features.EnableDelivery && (cfg.Delivery.BaseURL == "" || cfg.Delivery.APIKey == "") {
		cfg.Features.EnableDelivery = false
	}
	cfg.Delivery.Enabled = cfg.Features.EnableDelivery

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func validateConfig(cfg Config) error {
	var missing []string

	if cfg.Server.Port == "" {
		missing = append(missing, "Server.Port")
	}
	if cfg.Commerce.BaseURL == "" {
		missing = append(missing, "Commerce.BaseURL")
	}
	if cfg.Commerce.Timeout <= 0 {
		missing = append(missing, "Commerce.Timeout")
	}
	if len(cfg.Pricing.Currency) != 3 {
		missing = append(missing, "Pricing.Currency")
	}
	if cfg.Pricing.TaxRateBasisPoints < 0 {
		missing = append(missing, "Pricing.TaxRateBasisPoints")
	}
	if cfg.Pricing.FreeShippingThreshold < 0 {
		missing = append(missing, "Pricing.FreeShippingThreshold")
	}
	if cfg.Pricing.ShippingFlatFee < 0 {
		missing = append(missing, "Pricing.ShippingFlatFee")
	}
	if cfg.Features.EnablePromotions && strings.TrimSpace(cfg.Promotions.RulesFile) == "" {
		missing = append(missing, "Promotions.RulesFile")
	}
	if strings.TrimSpace(cfg.Idempotency.Header) == "" {
		missing = append(missing, "Idempotency.Header")
	}
	if cfg.Idempotency.TTL <= 0 {
		missing = append(missing, "Idempotency.TTL")
	}
	if cfg.Idempotency.CleanupInterval <= 0 {
		missing = append(missing, "Idempotency.CleanupInterval")
	}
	if cfg.Idempotency.CleanupBatchSize <= 0 {
		missing = append(missing, "Idempotency.CleanupBatchSize")
	}

	if len(missing) > 0 {
		return &ValidationError{fields: missing}
	}
	return nil
}

func loadDotEnv(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		absPath = path
	}

	file, err := os.Open(absPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: unable to read %s: %w", absPath, err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	values := make(map[string]string)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, "export ") {
			line = strings.TrimSpace(strings.TrimPrefix(line, "export "))
		}
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		if key == "" {
			continue
		}
		value = strings.Trim(value, "\"'")
		values[key] = value
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("config: failed parsing %s: %w", absPath, err)
	}
	return values, nil
}

func stringWithDefault(lookup func(string) (string, bool), key, fallback string) string {
	if value, ok := lookup(key); ok && value != "" {
		return value
	}
	return fallback
}

func durationWithDefault(lookup func(string) (string, bool), key string, fallback time.Duration) time.Duration {
	if value, ok := lookup(key); ok && value != "" {
		d, err := time.ParseDuration(value)
		if err == nil {
			return d
		}
	}
	return fallback
}

func intWithDefault(lookup func(string) (string, bool), key string, fallback int) int {
	if value, ok := lookup(key); ok && value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func int64WithDefault(lookup func(string) (string, bool), key string, fallback int64) int64 {
	if value, ok := lookup(key); ok && value != "" {
		if parsed, err := strconv.ParseInt(value, 10, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func boolWithDefault(lookup func(string) (string, bool), key string, fallback bool) bool {
	if value, ok := lookup(key); ok && value != "" {
		switch strings.ToLower(value) {
		case "true", "1", "yes", "on":
			return true
		case "false", "0", "no", "off":
			return false
		}
	}
	return fallback
}
