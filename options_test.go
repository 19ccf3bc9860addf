package pennant

import (
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OrlandoBitencourt/pennant/internal/poller"
	"github.com/OrlandoBitencourt/pennant/internal/telemetry"
)

// TestWithPollingMode tests polling mode validation
func TestWithPollingMode(t *testing.T) {
	tests := []struct {
		name    string
		opt     Option
		want    poller.Kind
		wantErr bool
	}{
		{"auto poll", WithAutoPoll(30*time.Second, time.Second), poller.KindAutoPoll, false},
		{"auto poll without init wait", WithAutoPoll(time.Minute, 0), poller.KindAutoPoll, false},
		{"auto poll interval too short", WithAutoPoll(500*time.Millisecond, time.Second), 0, true},
		{"auto poll negative init wait", WithAutoPoll(time.Minute, -time.Second), 0, true},
		{"lazy load", WithLazyLoad(time.Minute), poller.KindLazyLoad, false},
		{"lazy load ttl too short", WithLazyLoad(0), 0, true},
		{"manual", WithManualPoll(), poller.KindManualPoll, false},
		{"explicit mode", WithPollingMode(LazyLoad(2 * time.Minute)), poller.KindLazyLoad, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultClientConfig()
			err := tt.opt(cfg)

			if tt.wantErr {
				var cfgErr *ConfigError
				require.ErrorAs(t, err, &cfgErr)
				assert.Equal(t, "PollingMode", cfgErr.Field)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, cfg.mode.Kind())
		})
	}
}

// TestDefaultClientConfig tests the defaults
func TestDefaultClientConfig(t *testing.T) {
	cfg := defaultClientConfig()

	assert.Equal(t, poller.KindAutoPoll, cfg.mode.Kind())
	assert.Equal(t, 60*time.Second, cfg.mode.PollInterval)
	assert.Equal(t, 5*time.Second, cfg.mode.MaxInitWait)
	assert.Equal(t, DefaultHTTPTimeout, cfg.httpTimeout)
	assert.Equal(t, Global, cfg.dataGovernance)
	assert.Same(t, slog.Default(), cfg.buildLogger())
}

// TestWithBaseURL tests URL validation
func TestWithBaseURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{"https", "https://cdn.example.com", false},
		{"http with port", "http://localhost:8080", false},
		{"empty", "", true},
		{"no scheme", "cdn.example.com", true},
		{"unsupported scheme", "ftp://cdn.example.com", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultClientConfig()
			err := WithBaseURL(tt.url)(cfg)

			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.url, cfg.baseURL)
			}
		})
	}
}

// TestOptions_Validation tests options rejecting empty values
func TestOptions_Validation(t *testing.T) {
	tests := []struct {
		name  string
		opt   Option
		field string
	}{
		{"data governance", WithDataGovernance(DataGovernance(7)), "DataGovernance"},
		{"http timeout", WithHTTPTimeout(-time.Second), "HTTPTimeout"},
		{"http client", WithHTTPClient(nil), "HTTPClient"},
		{"cache", WithCache(nil), "Cache"},
		{"logger", WithLogger(nil), "Logger"},
		{"telemetry", WithTelemetry(nil), "Telemetry"},
		{"hooks", WithHooks(nil), "Hooks"},
		{"admin server", WithAdminServer("", "secret"), "AdminServer"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.opt(defaultClientConfig())
			var cfgErr *ConfigError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tt.field, cfgErr.Field)
		})
	}
}

// TestOptions_Apply tests options storing their values
func TestOptions_Apply(t *testing.T) {
	cfg := defaultClientConfig()
	client := &http.Client{}
	user := NewUser("u1")
	tel := telemetry.NewNoOp()

	for _, opt := range []Option{
		WithDataGovernance(EUOnly),
		WithHTTPTimeout(3 * time.Second),
		WithHTTPClient(client),
		WithTelemetry(tel),
		WithOffline(true),
		WithDefaultUser(user),
		WithHooks(func(*Hooks) {}),
		WithAdminServer(":9090", "s3cret"),
		WithLogLevel(slog.LevelDebug),
	} {
		require.NoError(t, opt(cfg))
	}

	assert.Equal(t, EUOnly, cfg.dataGovernance)
	assert.Equal(t, 3*time.Second, cfg.httpTimeout)
	assert.Same(t, client, cfg.httpClient)
	assert.Equal(t, tel, cfg.telemetry)
	assert.True(t, cfg.offline)
	assert.Same(t, user, cfg.defaultUser)
	assert.Len(t, cfg.hookSetup, 1)
	assert.Equal(t, ":9090", cfg.adminAddr)
	assert.Equal(t, "s3cret", cfg.webhookSecret)

	logger := cfg.buildLogger()
	assert.True(t, logger.Enabled(t.Context(), slog.LevelDebug))
}

// TestWithOpenTelemetry tests building the OTel provider from globals
func TestWithOpenTelemetry(t *testing.T) {
	cfg := defaultClientConfig()
	require.NoError(t, WithOpenTelemetry(nil, nil)(cfg))
	assert.IsType(t, &telemetry.OTelProvider{}, cfg.telemetry)
}
