package config

import (
	"fmt"

	"github.com/caarlos0/env/v10"
)

// Load parses environment variables into the provided struct.
// The struct should use `env` tags to define mappings. Field types that
// implement encoding.TextUnmarshaler (decimal.Decimal, for one) are parsed
// through it.
//
// Example:
//
//	type Config struct {
//	    Port      int             `env:"CART_HTTP_PORT" envDefault:"8003"`
//	    Threshold decimal.Decimal `env:"FREE_SHIPPING_THRESHOLD" envDefault:"999"`
//	}
func Load(cfg any) error {
	return LoadWithPrefix(cfg, "")
}

// LoadWithPrefix is Load with every variable name prefixed, so two
// instances of the same config struct can be read side by side.
func LoadWithPrefix(cfg any, prefix string) error {
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: prefix}); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}
