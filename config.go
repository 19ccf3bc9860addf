package pennant

import (
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/OrlandoBitencourt/pennant/internal/logging"
	"github.com/OrlandoBitencourt/pennant/internal/poller"
)

// clientConfig holds internal configuration.
type clientConfig struct {
	mode poller.Mode

	baseURL        string
	dataGovernance DataGovernance
	httpTimeout    time.Duration
	httpClient     *http.Client

	cache ExternalCache

	logger   *slog.Logger
	logLevel *slog.Level

	telemetry Telemetry

	offline     bool
	defaultUser *User
	hookSetup   []func(*Hooks)

	// Server options
	adminAddr     string
	webhookSecret string
}

// DefaultHTTPTimeout bounds a single config download.
const DefaultHTTPTimeout = 30 * time.Second

func defaultClientConfig() *clientConfig {
	return &clientConfig{
		mode:        poller.AutoPoll(poller.DefaultPollInterval, poller.DefaultMaxInitWait),
		httpTimeout: DefaultHTTPTimeout,
	}
}

func (c *clientConfig) buildLogger() *slog.Logger {
	if c.logger != nil {
		return c.logger
	}
	if c.logLevel != nil {
		return logging.New(c.logLevel.String(), "text", os.Stderr)
	}
	return slog.Default()
}
