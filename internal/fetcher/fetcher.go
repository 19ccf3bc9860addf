// Package fetcher downloads config snapshots from the CDN, handling entity
// tags, data governance redirects and transport failures.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-cleanhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/OrlandoBitencourt/pennant/internal/domain"
	"github.com/OrlandoBitencourt/pennant/internal/logging"
	"github.com/OrlandoBitencourt/pennant/internal/telemetry"
)

const (
	GlobalBaseURL = "https://cdn-global.pennant.dev"
	EUBaseURL     = "https://cdn-eu.pennant.dev"

	configPath      = "/configuration-files/%s/config_v6.json"
	userAgentHeader = "X-Pennant-UserAgent"

	// maxRedirects bounds forced redirects within one fetch.
	maxRedirects = 3
)

// DataGovernance selects the default CDN region.
type DataGovernance int

const (
	Global DataGovernance = iota
	EUOnly
)

func (d DataGovernance) String() string {
	if d == EUOnly {
		return "eu"
	}
	return "global"
}

// ParseDataGovernance accepts "global" and "eu" (case-insensitive).
func ParseDataGovernance(s string) (DataGovernance, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "global":
		return Global, nil
	case "eu", "euonly", "eu_only":
		return EUOnly, nil
	default:
		return Global, fmt.Errorf("unknown data governance %q", s)
	}
}

// Config holds fetcher configuration
type Config struct {
	SDKKey string

	// BaseURL overrides the data governance default.
	BaseURL        string
	DataGovernance DataGovernance

	// Mode is the polling mode identifier sent in the user agent header.
	Mode    string
	Version string

	Timeout time.Duration

	// HTTPClient replaces the built-in client. Its transport is used as is.
	HTTPClient *http.Client

	Logger    *slog.Logger
	Telemetry telemetry.Provider
}

// Fetcher performs conditional GETs against the config CDN.
// It is safe for concurrent use.
type Fetcher struct {
	sdkKey    string
	userAgent string
	customURL bool
	timeout   time.Duration
	logger    *slog.Logger
	tel       telemetry.Provider

	mu      sync.Mutex
	baseURL string
	client  *http.Client
	// base is the pooled transport under otelhttp, nil for caller-owned clients
	base *http.Transport
}

// New creates a fetcher.
func New(cfg Config) *Fetcher {
	f := &Fetcher{
		sdkKey:    cfg.SDKKey,
		userAgent: fmt.Sprintf("pennant-go/%s-%s", cfg.Mode, cfg.Version),
		customURL: cfg.BaseURL != "",
		timeout:   cfg.Timeout,
		logger:    logging.OrDefault(cfg.Logger),
		tel:       telemetry.OrNoOp(cfg.Telemetry),
		baseURL:   cfg.BaseURL,
	}

	if !f.customURL {
		f.baseURL = GlobalBaseURL
		if cfg.DataGovernance == EUOnly {
			f.baseURL = EUBaseURL
		}
	}

	if cfg.HTTPClient != nil {
		f.client = cfg.HTTPClient
	} else {
		f.base = cleanhttp.DefaultPooledTransport()
		f.client = &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(f.base),
		}
	}

	return f
}

// BaseURL returns the URL the next fetch goes to.
func (f *Fetcher) BaseURL() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.baseURL
}

func (f *Fetcher) setBaseURL(u string) {
	f.mu.Lock()
	f.baseURL = u
	f.mu.Unlock()
}

func (f *Fetcher) httpClient() *http.Client {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.client
}

// resetTransport swaps in a fresh connection pool after a transport failure.
func (f *Fetcher) resetTransport() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.base == nil {
		f.client.CloseIdleConnections()
		return
	}

	old := f.base
	f.base = cleanhttp.DefaultPooledTransport()
	f.client = &http.Client{
		Timeout:   f.client.Timeout,
		Transport: otelhttp.NewTransport(f.base),
	}
	old.CloseIdleConnections()
}

// Fetch downloads the config, sending last's entity tag. It never panics
// and reports every failure through the Result.
func (f *Fetcher) Fetch(ctx context.Context, last *domain.ProjectConfig) (res Result) {
	if last == nil {
		last = domain.EmptyProjectConfig
	}

	start := time.Now()
	ctx, span := f.tel.StartSpan(ctx, "pennant.fetch")
	defer func() {
		if r := recover(); r != nil {
			res = failed(last, domain.RefreshErrorUnexpected, "unexpected error occurred while fetching config", fmt.Errorf("panic: %v", r))
			f.logger.Error(res.Message, "error", res.Err)
		}
		span.SetAttributes(telemetry.String("status", res.Label()))
		if res.Err != nil && !res.Canceled() {
			span.RecordError(res.Err)
		}
		span.End()
		f.tel.RecordFetch(ctx, res.Label(), time.Since(start))
	}()

	return f.fetchFollowingRedirects(ctx, last)
}

func (f *Fetcher) fetchFollowingRedirects(ctx context.Context, last *domain.ProjectConfig) Result {
	baseURL := f.BaseURL()

	for hops := 0; ; {
		res := f.fetchOnce(ctx, baseURL, last)
		if res.Status != Fetched {
			return res
		}

		prefs := res.Config.Config.Preferences
		if prefs == nil || prefs.BaseURL == "" || sameURL(prefs.BaseURL, baseURL) {
			return res
		}

		if f.customURL && prefs.RedirectMode != domain.RedirectForce {
			return res
		}

		baseURL = prefs.BaseURL
		f.setBaseURL(baseURL)

		switch prefs.RedirectMode {
		case domain.RedirectNo:
			return res
		case domain.RedirectShould:
			f.logger.Warn("the data governance parameter does not match your dashboard setting; "+
				"check the data governance option of the client",
				logging.Event(logging.EventDataGovernanceOutOfSync), "base_url", baseURL)
			return res
		}

		hops++
		if hops > maxRedirects {
			f.logger.Error("redirection loop encountered while trying to fetch config JSON",
				logging.Event(logging.EventRedirectLoop), "base_url", baseURL)
			return res
		}
	}
}

func (f *Fetcher) fetchOnce(ctx context.Context, baseURL string, last *domain.ProjectConfig) Result {
	url := strings.TrimRight(baseURL, "/") + fmt.Sprintf(configPath, f.sdkKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		res := failed(last, domain.RefreshErrorUnexpected, "failed to create request", err)
		f.logger.Error(res.Message, "url", url, "error", err)
		return res
	}
	req.Header.Set(userAgentHeader, f.userAgent)
	if last.ETag != "" {
		req.Header.Set("If-None-Match", last.ETag)
	}

	resp, err := f.httpClient().Do(req)
	if err != nil {
		return f.transportFailure(ctx, last, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return f.transportFailure(ctx, last, err)
		}

		cfg, err := domain.ParseConfig(body)
		if err != nil {
			res := failed(last, domain.RefreshErrorInvalidResponseContent,
				"fetching config JSON was successful but the HTTP response content was invalid", err)
			f.logger.Error(res.Message, logging.Event(logging.EventInvalidResponseContent), "error", err)
			return res
		}

		f.logger.Debug("config fetched", "etag", resp.Header.Get("ETag"))
		return Result{
			Status: Fetched,
			Config: domain.NewProjectConfig(string(body), cfg, domain.Now(), resp.Header.Get("ETag")),
		}

	case http.StatusNotModified:
		drain(resp.Body)
		if last.IsEmpty() {
			res := failed(last, domain.RefreshErrorNotModifiedWithEmptyCache,
				"unexpected HTTP response was received when no config JSON was cached locally: 304 Not Modified", nil)
			f.logger.Error(res.Message, logging.Event(logging.EventNotModifiedWithEmptyCache))
			return res
		}
		f.logger.Debug("config not modified", "etag", last.ETag)
		return Result{Status: NotModified, Config: last.WithFetchTime(domain.Now())}

	case http.StatusForbidden, http.StatusNotFound:
		drain(resp.Body)
		res := failed(last.WithFetchTime(domain.Now()), domain.RefreshErrorInvalidCredentials,
			fmt.Sprintf("your SDK key seems to be wrong, received %d %s", resp.StatusCode, http.StatusText(resp.StatusCode)), nil)
		f.logger.Error(res.Message, logging.Event(logging.EventInvalidCredentials), "status", resp.StatusCode)
		return res

	default:
		drain(resp.Body)
		res := failed(last, domain.RefreshErrorUnexpectedHTTPResponse,
			fmt.Sprintf("unexpected HTTP response was received while trying to fetch config JSON: %d %s",
				resp.StatusCode, http.StatusText(resp.StatusCode)), nil)
		f.logger.Error(res.Message, logging.Event(logging.EventUnexpectedHTTPResponse), "status", resp.StatusCode)
		return res
	}
}

func (f *Fetcher) transportFailure(ctx context.Context, last *domain.ProjectConfig, err error) Result {
	if ctx.Err() != nil && errors.Is(ctx.Err(), context.Canceled) {
		return failed(last, domain.RefreshErrorUnexpected, "config fetch cancelled", context.Canceled)
	}

	if isTimeout(err) {
		res := failed(last, domain.RefreshErrorHTTPTimeout,
			fmt.Sprintf("request timed out while trying to fetch config JSON, timeout value: %s", f.timeout), err)
		f.logger.Error(res.Message, logging.Event(logging.EventHTTPTimeout), "error", err)
		return res
	}

	res := failed(last, domain.RefreshErrorHTTPTransportFailure,
		"unexpected error occurred while trying to fetch config JSON; check your internet connection", err)
	f.logger.Error(res.Message, logging.Event(logging.EventHTTPTransportFailure), "error", err)
	f.resetTransport()
	return res
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func sameURL(a, b string) bool {
	return strings.EqualFold(strings.TrimRight(a, "/"), strings.TrimRight(b, "/"))
}

func drain(body io.Reader) {
	_, _ = io.Copy(io.Discard, io.LimitReader(body, 64<<10))
}
