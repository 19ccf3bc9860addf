package poller

import (
	"fmt"
)

// Config holds service configuration
type Config struct {
	Mode Mode

	// CacheKey is the key snapshots are stored under, see
	// storage.KeyForSDKKey.
	CacheKey string

	// Offline starts the service without network access.
	Offline bool
}

// DefaultConfig returns default configuration
func DefaultConfig() Config {
	return Config{
		Mode: AutoPoll(DefaultPollInterval, DefaultMaxInitWait),
	}
}

// Validate validates the configuration
func (c Config) Validate() error {
	if err := c.Mode.Validate(); err != nil {
		return fmt.Errorf("invalid polling mode: %w", err)
	}

	if c.CacheKey == "" {
		return fmt.Errorf("cache key is required")
	}

	return nil
}
