// Package pennant is a feature flag and remote configuration client. It
// downloads a versioned config document from a CDN, keeps it fresh in the
// background and evaluates settings against user attributes locally.
package pennant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/OrlandoBitencourt/pennant/internal/evaluator"
	"github.com/OrlandoBitencourt/pennant/internal/fetcher"
	"github.com/OrlandoBitencourt/pennant/internal/hooks"
	"github.com/OrlandoBitencourt/pennant/internal/logging"
	"github.com/OrlandoBitencourt/pennant/internal/poller"
	"github.com/OrlandoBitencourt/pennant/internal/server"
	"github.com/OrlandoBitencourt/pennant/internal/storage"
	"github.com/OrlandoBitencourt/pennant/internal/telemetry"
)

// Version is reported to the CDN in the user agent header.
const Version = "1.0.0"

const serverShutdownTimeout = 5 * time.Second

// Client is the main entry point for pennant.
// It is safe for concurrent use.
type Client struct {
	service *poller.Service
	eval    *evaluator.Evaluator
	hooks   *hooks.Hooks
	logger  *slog.Logger
	tel     telemetry.Provider
	server  *server.Server

	defaultUser *User
	closeOnce   sync.Once
	closeErr    error
}

// New creates a client for sdkKey and starts it according to the polling
// mode.
//
// Example:
//
//	client, err := pennant.New("your-sdk-key",
//	    pennant.WithAutoPoll(30*time.Second, 5*time.Second),
//	)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	enabled := client.Bool(ctx, "new-feature", false, pennant.NewUser("user-123"))
func New(sdkKey string, opts ...Option) (*Client, error) {
	if sdkKey == "" {
		return nil, &ConfigError{Field: "SDKKey", Message: "cannot be empty"}
	}

	cfg := defaultClientConfig()
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	logger := cfg.buildLogger()
	tel := telemetry.OrNoOp(cfg.telemetry)

	h := hooks.New(logger)
	for _, setup := range cfg.hookSetup {
		setup(h)
	}

	f := fetcher.New(fetcher.Config{
		SDKKey:         sdkKey,
		BaseURL:        cfg.baseURL,
		DataGovernance: cfg.dataGovernance,
		Mode:           cfg.mode.Identifier(),
		Version:        Version,
		Timeout:        cfg.httpTimeout,
		HTTPClient:     cfg.httpClient,
		Logger:         logger,
		Telemetry:      tel,
	})

	var cache storage.Cache = storage.NewInMemory()
	if cfg.cache != nil {
		cache = storage.NewExternal(cfg.cache, logger, storage.WithErrorObserver(tel.RecordCacheError))
	}

	svc, err := poller.New(
		poller.WithFetcher(f),
		poller.WithCache(cache),
		poller.WithConfig(poller.Config{
			Mode:     cfg.mode,
			CacheKey: storage.KeyForSDKKey(sdkKey),
			Offline:  cfg.offline,
		}),
		poller.WithHooks(h),
		poller.WithLogger(logger),
		poller.WithTelemetry(tel),
	)
	if err != nil {
		return nil, err
	}

	c := &Client{
		service:     svc,
		eval:        evaluator.New(logger),
		hooks:       h,
		logger:      logger,
		tel:         tel,
		defaultUser: cfg.defaultUser,
	}

	if cfg.adminAddr != "" {
		c.server = server.New(c, server.Config{
			Addr:          cfg.adminAddr,
			WebhookSecret: cfg.webhookSecret,
		}, logger)
		if err := c.server.Start(); err != nil {
			svc.Close()
			return nil, fmt.Errorf("failed to start admin server: %w", err)
		}
	}

	svc.Start()
	logger.Debug("client created", "mode", cfg.mode.String(), "offline", cfg.offline)
	return c, nil
}

func (c *Client) user(user *User) *User {
	if user != nil {
		return user
	}
	return c.defaultUser
}

// Details evaluates key for user and reports how the value was chosen. A
// nil user selects the default user. On any failure defaultValue is
// returned and the error is described in the details.
func (c *Client) Details(ctx context.Context, key string, defaultValue any, user *User) EvaluationDetails {
	pc := c.service.GetConfig(ctx)
	details := c.eval.Details(pc.Config, key, defaultValue, c.user(user), pc.FetchTime)
	c.evaluated(ctx, details)
	return details
}

func (c *Client) evaluated(ctx context.Context, details EvaluationDetails) {
	c.tel.RecordEvaluation(ctx, details.Key, details.IsDefaultValue)
	if details.Err != nil {
		c.hooks.RaiseError(details.ErrorMessage, details.Err)
	}
	if c.hooks.HasFlagEvaluated() {
		c.hooks.RaiseFlagEvaluated(details)
	}
}

// Value evaluates key without a type constraint. A non-nil defaultValue
// must match the setting type (bool, string, int or float64).
func (c *Client) Value(ctx context.Context, key string, defaultValue any, user *User) any {
	return c.Details(ctx, key, defaultValue, user).Value
}

// Bool evaluates a boolean setting.
// Returns defaultValue if the setting is missing or evaluation fails.
//
// Example:
//
//	enabled := client.Bool(ctx, "new-feature", false, &pennant.User{
//	    Identifier: "user-123",
//	    Country:    "BR",
//	})
func (c *Client) Bool(ctx context.Context, key string, defaultValue bool, user *User) bool {
	return Get(ctx, c, key, defaultValue, user)
}

// String evaluates a text setting.
func (c *Client) String(ctx context.Context, key string, defaultValue string, user *User) string {
	return Get(ctx, c, key, defaultValue, user)
}

// Int evaluates a whole number setting.
func (c *Client) Int(ctx context.Context, key string, defaultValue int, user *User) int {
	return Get(ctx, c, key, defaultValue, user)
}

// Float evaluates a decimal number setting.
func (c *Client) Float(ctx context.Context, key string, defaultValue float64, user *User) float64 {
	return Get(ctx, c, key, defaultValue, user)
}

// SettingType is the set of Go types a setting value can have.
type SettingType interface {
	bool | string | int | float64
}

// Get evaluates key as T and returns defaultValue on any failure.
func Get[T SettingType](ctx context.Context, c *Client, key string, defaultValue T, user *User) T {
	v, ok := c.Details(ctx, key, defaultValue, user).Value.(T)
	if !ok {
		return defaultValue
	}
	return v
}

// AllKeys returns the setting keys of the current config in sorted order.
func (c *Client) AllKeys(ctx context.Context) []string {
	pc := c.service.GetConfig(ctx)
	if pc.Config == nil {
		c.logger.Error("config JSON is not present, returning empty key list",
			logging.Event(logging.EventConfigJSONNotAvailable))
		return nil
	}
	return pc.Config.Keys()
}

// AllDetails evaluates every setting for user. A failing setting does not
// stop the others; their errors are joined.
func (c *Client) AllDetails(ctx context.Context, user *User) ([]EvaluationDetails, error) {
	pc := c.service.GetConfig(ctx)
	all, err := c.eval.All(pc.Config, c.user(user), pc.FetchTime)
	for _, d := range all {
		c.evaluated(ctx, d)
	}
	return all, err
}

// AllValues evaluates every setting for user and returns the values by key.
// Settings that fail to evaluate are left out.
func (c *Client) AllValues(ctx context.Context, user *User) map[string]any {
	all, _ := c.AllDetails(ctx, user)
	values := make(map[string]any, len(all))
	for _, d := range all {
		if d.Err != nil {
			continue
		}
		values[d.Key] = d.Value
	}
	return values
}

// KeyAndValue finds the setting key and value that belong to variationID.
func (c *Client) KeyAndValue(ctx context.Context, variationID string) (key string, value any, ok bool) {
	pc := c.service.GetConfig(ctx)
	return c.eval.KeyAndValue(pc.Config, variationID)
}

// KeyAndValueOf is KeyAndValue with the value converted to T. ok is false
// when the variation is unknown or has a different type.
func KeyAndValueOf[T SettingType](ctx context.Context, c *Client, variationID string) (key string, value T, ok bool) {
	k, v, found := c.KeyAndValue(ctx, variationID)
	if !found {
		return "", value, false
	}
	typed, ok := v.(T)
	if !ok {
		c.logger.Error(fmt.Sprintf("the type of the value of setting '%s' does not match the requested type", k),
			logging.Event(logging.EventVariationTypeMismatch),
			"key", k, "variation_id", variationID,
			"expected_type", fmt.Sprintf("%T", value), "actual_type", fmt.Sprintf("%T", v))
		return "", value, false
	}
	return k, typed, true
}

// Refresh downloads the latest config now. Concurrent calls share one
// download. In offline mode it returns a RefreshError with code
// RefreshErrorOfflineClient without any network activity.
func (c *Client) Refresh(ctx context.Context) error {
	res := c.service.RefreshConfig(ctx)
	if res.Success() {
		return nil
	}
	return res.Err
}

// WaitForReady blocks until the client signalled ClientReady or ctx is done.
func (c *Client) WaitForReady(ctx context.Context) (CacheState, error) {
	return c.service.WaitForReady(ctx)
}

// CacheState classifies the config the client currently holds.
func (c *Client) CacheState() CacheState {
	return c.service.CacheState()
}

// Snapshot returns the current config snapshot without any I/O.
func (c *Client) Snapshot() *ProjectConfig {
	return c.service.Snapshot()
}

// SetOffline stops all network activity.
func (c *Client) SetOffline() {
	c.service.SetOffline()
}

// SetOnline resumes network activity.
func (c *Client) SetOnline() {
	c.service.SetOnline()
}

// IsOffline reports whether the client is in offline mode.
func (c *Client) IsOffline() bool {
	return c.service.IsOffline()
}

// Hooks returns the event registry. Subscribe to ClientReady with WithHooks
// instead, it may fire before New returns.
func (c *Client) Hooks() *Hooks {
	return c.hooks
}

// AdminAddr returns the address the admin server listens on, or "" when
// it is not enabled.
func (c *Client) AdminAddr() string {
	if c.server == nil {
		return ""
	}
	return c.server.Addr()
}

// Close raises BeforeClose, stops the admin server and the background
// polling and cancels any download in flight. It is safe to call more than
// once.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		c.hooks.RaiseBeforeClose()

		var errs []error
		if c.server != nil {
			ctx, cancel := context.WithTimeout(context.Background(), serverShutdownTimeout)
			if err := c.server.Shutdown(ctx); err != nil {
				errs = append(errs, fmt.Errorf("admin server shutdown: %w", err))
			}
			cancel()
		}
		if err := c.service.Close(); err != nil {
			errs = append(errs, err)
		}

		c.closeErr = errors.Join(errs...)
		c.logger.Info("client closed", logging.Event(logging.EventClosed))
	})
	return c.closeErr
}

var _ server.Controller = (*Client)(nil)
