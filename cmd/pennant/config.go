package main

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/OrlandoBitencourt/pennant/internal/fetcher"
)

const envPrefix = "PENNANT_"

// Config is read from PENNANT_* environment variables.
type Config struct {
	SDKKey         string        `env:"SDK_KEY,required"`
	BaseURL        string        `env:"BASE_URL"`
	DataGovernance string        `env:"DATA_GOVERNANCE" envDefault:"global"`
	HTTPTimeout    time.Duration `env:"HTTP_TIMEOUT" envDefault:"30s"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"warn"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`

	// At most one of the caches is used; redis wins.
	CacheDir    string `env:"CACHE_DIR"`
	RedisAddr   string `env:"REDIS_ADDR"`
	RedisPrefix string `env:"REDIS_PREFIX" envDefault:"pennant:"`
}

// LoadConfig parses environ, or the process environment when environ is
// nil.
func LoadConfig(environ map[string]string) (Config, error) {
	var cfg Config
	opts := env.Options{Prefix: envPrefix}
	if environ != nil {
		opts.Environment = environ
	}
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return cfg, fmt.Errorf("failed to load configuration: %w", err)
	}
	if _, err := fetcher.ParseDataGovernance(cfg.DataGovernance); err != nil {
		return cfg, fmt.Errorf("invalid %sDATA_GOVERNANCE: %w", envPrefix, err)
	}
	return cfg, nil
}
