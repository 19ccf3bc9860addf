package pennant

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/OrlandoBitencourt/pennant/internal/poller"
	"github.com/OrlandoBitencourt/pennant/internal/telemetry"
)

// Option configures a pennant client.
type Option func(*clientConfig) error

// WithPollingMode sets the polling mode.
//
// Example:
//
//	client, err := pennant.New(sdkKey,
//	    pennant.WithPollingMode(pennant.LazyLoad(5 * time.Minute)),
//	)
func WithPollingMode(mode PollingMode) Option {
	return func(c *clientConfig) error {
		if err := mode.Validate(); err != nil {
			return &ConfigError{Field: "PollingMode", Message: err.Error()}
		}
		c.mode = mode
		return nil
	}
}

// WithAutoPoll fetches every interval in the background.
func WithAutoPoll(interval, maxInitWait time.Duration) Option {
	return WithPollingMode(poller.AutoPoll(interval, maxInitWait))
}

// WithLazyLoad fetches on evaluation once the cached config is older than ttl.
func WithLazyLoad(ttl time.Duration) Option {
	return WithPollingMode(poller.LazyLoad(ttl))
}

// WithManualPoll disables automatic fetching; call Refresh instead.
func WithManualPoll() Option {
	return WithPollingMode(poller.ManualPoll())
}

// WithBaseURL points the client at a custom CDN or proxy. A custom URL
// disables data governance redirects unless the config forces them.
func WithBaseURL(baseURL string) Option {
	return func(c *clientConfig) error {
		u, err := url.Parse(baseURL)
		if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
			return &ConfigError{Field: "BaseURL", Message: fmt.Sprintf("invalid URL %q", baseURL)}
		}
		c.baseURL = baseURL
		return nil
	}
}

// WithDataGovernance selects the default CDN region.
func WithDataGovernance(dg DataGovernance) Option {
	return func(c *clientConfig) error {
		if dg != Global && dg != EUOnly {
			return &ConfigError{Field: "DataGovernance", Message: fmt.Sprintf("unknown value %d", dg)}
		}
		c.dataGovernance = dg
		return nil
	}
}

// WithHTTPTimeout bounds each config download.
func WithHTTPTimeout(timeout time.Duration) Option {
	return func(c *clientConfig) error {
		if timeout <= 0 {
			return &ConfigError{Field: "HTTPTimeout", Message: "must be positive"}
		}
		c.httpTimeout = timeout
		return nil
	}
}

// WithHTTPClient replaces the built-in HTTP client. The client's own
// Timeout applies.
func WithHTTPClient(client *http.Client) Option {
	return func(c *clientConfig) error {
		if client == nil {
			return &ConfigError{Field: "HTTPClient", Message: "cannot be nil"}
		}
		c.httpClient = client
		return nil
	}
}

// WithCache stores config snapshots in an external cache so that several
// clients or processes can share them.
func WithCache(cache ExternalCache) Option {
	return func(c *clientConfig) error {
		if cache == nil {
			return &ConfigError{Field: "Cache", Message: "cannot be nil"}
		}
		c.cache = cache
		return nil
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *clientConfig) error {
		if logger == nil {
			return &ConfigError{Field: "Logger", Message: "cannot be nil"}
		}
		c.logger = logger
		return nil
	}
}

// WithLogLevel builds a text logger on stderr at the given level. Ignored
// when WithLogger is also used.
func WithLogLevel(level slog.Level) Option {
	return func(c *clientConfig) error {
		c.logLevel = &level
		return nil
	}
}

// WithTelemetry sets the telemetry provider.
func WithTelemetry(p Telemetry) Option {
	return func(c *clientConfig) error {
		if p == nil {
			return &ConfigError{Field: "Telemetry", Message: "cannot be nil"}
		}
		c.telemetry = p
		return nil
	}
}

// WithOpenTelemetry records spans and metrics with the given providers.
// A nil provider selects the global one.
func WithOpenTelemetry(tp trace.TracerProvider, mp metric.MeterProvider) Option {
	return func(c *clientConfig) error {
		if tp == nil {
			tp = otel.GetTracerProvider()
		}
		if mp == nil {
			mp = otel.GetMeterProvider()
		}
		p, err := telemetry.NewOTelWith(tp, mp)
		if err != nil {
			return fmt.Errorf("failed to set up telemetry: %w", err)
		}
		c.telemetry = p
		return nil
	}
}

// WithOffline starts the client without network access. Use SetOnline to
// start fetching.
func WithOffline(offline bool) Option {
	return func(c *clientConfig) error {
		c.offline = offline
		return nil
	}
}

// WithDefaultUser sets the user evaluations use when none is passed.
func WithDefaultUser(user *User) Option {
	return func(c *clientConfig) error {
		c.defaultUser = user
		return nil
	}
}

// WithHooks subscribes to client events before the client starts, so
// that ClientReady is not missed.
func WithHooks(setup func(*Hooks)) Option {
	return func(c *clientConfig) error {
		if setup == nil {
			return &ConfigError{Field: "Hooks", Message: "cannot be nil"}
		}
		c.hookSetup = append(c.hookSetup, setup)
		return nil
	}
}

// WithAdminServer starts an HTTP server on addr exposing health, admin and
// webhook endpoints. When secret is set, webhook calls must carry a valid
// HMAC-SHA256 signature.
func WithAdminServer(addr, secret string) Option {
	return func(c *clientConfig) error {
		if addr == "" {
			return &ConfigError{Field: "AdminServer", Message: "address is required"}
		}
		c.adminAddr = addr
		c.webhookSecret = secret
		return nil
	}
}
