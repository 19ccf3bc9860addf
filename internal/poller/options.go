package poller

import (
	"log/slog"
	"time"

	"github.com/OrlandoBitencourt/pennant/internal/hooks"
	"github.com/OrlandoBitencourt/pennant/internal/storage"
	"github.com/OrlandoBitencourt/pennant/internal/telemetry"
)

// Option is a functional option for configuring Service
type Option func(*Service)

// WithFetcher sets the config source
func WithFetcher(f Fetcher) Option {
	return func(s *Service) {
		s.fetcher = f
	}
}

// WithCache sets the snapshot cache
func WithCache(c storage.Cache) Option {
	return func(s *Service) {
		s.cache = c
	}
}

// WithConfig sets the configuration
func WithConfig(config Config) Option {
	return func(s *Service) {
		s.config = config
	}
}

func WithHooks(h *hooks.Hooks) Option {
	return func(s *Service) {
		s.hooks = h
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		s.logger = l
	}
}

func WithTelemetry(p telemetry.Provider) Option {
	return func(s *Service) {
		s.tel = p
	}
}

// withClock replaces time.Now in tests.
func withClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}
