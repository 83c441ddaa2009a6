package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/utafrali/storefront-cart/internal/domain"
	pkgconfig "github.com/utafrali/storefront-cart/pkg/config"
)

// Config holds all configuration for the cart service.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	// InstanceID identifies this process as the origin of storage events.
	// Empty means a random ID is generated at startup.
	InstanceID string `env:"INSTANCE_ID"`

	// HTTP server
	HTTPPort          int           `env:"CART_HTTP_PORT" envDefault:"8003"`
	RequestTimeout    time.Duration `env:"HTTP_REQUEST_TIMEOUT" envDefault:"30s"`
	SSEHeartbeat      time.Duration `env:"SSE_HEARTBEAT" envDefault:"25s"`
	CORSOrigins       []string      `env:"CORS_ALLOWED_ORIGINS" envSeparator:","`
	PprofAllowedCIDRs []string      `env:"PPROF_ALLOWED_CIDRS" envDefault:"10.0.0.0/8,172.16.0.0/12,192.168.0.0/16,127.0.0.0/8,::1/128" envSeparator:","`
	// Per-session request rate on /api/v1; 0 disables limiting.
	RateLimitRPS   float64 `env:"RATE_LIMIT_RPS" envDefault:"20"`
	RateLimitBurst int     `env:"RATE_LIMIT_BURST" envDefault:"40"`

	// Redis
	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPass     string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`
	RedisPoolSize int    `env:"REDIS_POOL_SIZE" envDefault:"20"`

	// Store
	StoreKeyPrefix string `env:"STORE_KEY_PREFIX" envDefault:"storefront:"`
	// CartTTL in hours; 0 keeps carts until overwritten.
	CartTTL       int    `env:"CART_TTL_HOURS" envDefault:"0"`
	NotifyChannel string `env:"NOTIFY_CHANNEL" envDefault:"storefront:cart:changes"`

	// Pricing
	FreeShippingThreshold decimal.Decimal `env:"FREE_SHIPPING_THRESHOLD" envDefault:"999"`
	ShippingFee           decimal.Decimal `env:"SHIPPING_FEE" envDefault:"99"`
	DefaultMaxQuantity    int             `env:"DEFAULT_MAX_QUANTITY" envDefault:"99"`

	// Kafka
	EventsEnabled bool     `env:"EVENTS_ENABLED" envDefault:"false"`
	KafkaBrokers  []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`

	// OpenTelemetry tracing
	OTELEnabled    bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTELEndpoint   string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4318"`
	OTELSampleRate float64 `env:"OTEL_SAMPLE_RATE" envDefault:"1.0"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load cart config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// CartTTLDuration returns the store TTL.
func (c *Config) CartTTLDuration() time.Duration {
	return time.Duration(c.CartTTL) * time.Hour
}

// PricingPolicy returns the shipping rules from configuration.
func (c *Config) PricingPolicy() domain.PricingPolicy {
	return domain.PricingPolicy{
		FreeShippingThreshold: c.FreeShippingThreshold,
		ShippingFee:           c.ShippingFee,
	}
}

// validate checks configuration invariants.
func (c *Config) validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	if c.RateLimitRPS < 0 {
		return fmt.Errorf("RATE_LIMIT_RPS must not be negative, got %f", c.RateLimitRPS)
	}
	if c.RateLimitRPS > 0 && c.RateLimitBurst < 1 {
		return fmt.Errorf("RATE_LIMIT_BURST must be at least 1 when limiting is enabled, got %d", c.RateLimitBurst)
	}
	if strings.TrimSpace(c.RedisAddr) == "" {
		return fmt.Errorf("REDIS_ADDR is required")
	}
	if c.CartTTL < 0 {
		return fmt.Errorf("CART_TTL_HOURS must not be negative, got %d", c.CartTTL)
	}
	if strings.TrimSpace(c.NotifyChannel) == "" {
		return fmt.Errorf("NOTIFY_CHANNEL is required")
	}
	if c.FreeShippingThreshold.IsNegative() {
		return fmt.Errorf("FREE_SHIPPING_THRESHOLD must not be negative, got %s", c.FreeShippingThreshold)
	}
	if c.ShippingFee.IsNegative() {
		return fmt.Errorf("SHIPPING_FEE must not be negative, got %s", c.ShippingFee)
	}
	if c.DefaultMaxQuantity < 1 {
		return fmt.Errorf("DEFAULT_MAX_QUANTITY must be at least 1, got %d", c.DefaultMaxQuantity)
	}
	if c.EventsEnabled && len(c.KafkaBrokers) == 0 {
		return fmt.Errorf("KAFKA_BROKERS is required when EVENTS_ENABLED is set")
	}
	if c.OTELSampleRate < 0 || c.OTELSampleRate > 1.0 {
		return fmt.Errorf("OTEL_SAMPLE_RATE must be between 0.0 and 1.0, got %f", c.OTELSampleRate)
	}
	return nil
}
