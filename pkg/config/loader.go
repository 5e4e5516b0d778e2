package config

import (
	"fmt"

	"github.com/caarlos0/env/v10"
)

// Load parses process environment variables into the provided struct.
// The struct uses `env` and `envDefault` tags to define mappings:
//
//	type Config struct {
//	    Port     int    `env:"REVIEW_HTTP_PORT" envDefault:"8011"`
//	    LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
//	}
func Load(cfg any) error {
	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}

// LoadFrom parses the given key/value set instead of the process environment.
// Keys missing from vars take their envDefault.
func LoadFrom(cfg any, vars map[string]string) error {
	if err := env.ParseWithOptions(cfg, env.Options{Environment: vars}); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}
