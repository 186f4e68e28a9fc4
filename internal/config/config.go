package config

import (
	"fmt"
	"strings"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Environment string `envconfig:"ENVIRONMENT" default:"local"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	Port        string `envconfig:"PORT" default:"8080"`

	DatabaseURL string `envconfig:"DATABASE_URL" default:""`
	DBMinConns  int32  `envconfig:"VC_DB_MIN_CONNS" default:"1"`
	DBMaxConns  int32  `envconfig:"VC_DB_MAX_CONNS" default:"8"`

	// SigSecret keys the per-result URL signature. Rotating it invalidates
	// previously issued signatures.
	SigSecret string `envconfig:"URL_SIG_SECRET" default:""`

	GeocoderURL     string `envconfig:"GEOCODER_URL" default:""`
	SearchPageLimit int    `envconfig:"SEARCH_PAGE_LIMIT" default:"20"`
	AdminToken      string `envconfig:"ADMIN_TOKEN" default:""`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.Port) == "" {
		return fmt.Errorf("PORT is required")
	}
	if c.DBMinConns < 0 {
		return fmt.Errorf("VC_DB_MIN_CONNS must be >= 0")
	}
	if c.DBMaxConns < 1 {
		return fmt.Errorf("VC_DB_MAX_CONNS must be >= 1")
	}
	if c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("VC_DB_MIN_CONNS (%d) cannot exceed VC_DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
	}
	if c.SearchPageLimit < 1 {
		return fmt.Errorf("SEARCH_PAGE_LIMIT must be >= 1")
	}
	return nil
}
