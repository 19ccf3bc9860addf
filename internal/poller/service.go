// Package poller keeps the cached config snapshot fresh according to the
// polling mode and raises the lifecycle hooks.
package poller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/OrlandoBitencourt/pennant/internal/domain"
	"github.com/OrlandoBitencourt/pennant/internal/fetcher"
	"github.com/OrlandoBitencourt/pennant/internal/hooks"
	"github.com/OrlandoBitencourt/pennant/internal/logging"
	"github.com/OrlandoBitencourt/pennant/internal/storage"
	"github.com/OrlandoBitencourt/pennant/internal/telemetry"
)

// Fetcher is the config source the service refreshes from.
type Fetcher interface {
	Fetch(ctx context.Context, last *domain.ProjectConfig) fetcher.Result
}

// RefreshResult reports the outcome of RefreshConfig.
type RefreshResult struct {
	ErrorCode    domain.RefreshErrorCode
	ErrorMessage string
	Err          error
}

// Success reports whether the refresh completed without error.
func (r RefreshResult) Success() bool {
	return r.ErrorCode == domain.RefreshErrorNone
}

// Service orchestrates fetcher and cache.
type Service struct {
	// Dependencies (injected)
	fetcher Fetcher
	cache   storage.Cache
	hooks   *hooks.Hooks
	logger  *slog.Logger
	tel     telemetry.Provider

	config Config
	now    func() time.Time

	// State management
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	startOnce sync.Once
	closeOnce sync.Once

	group   singleflight.Group
	offline atomic.Bool
	wake    chan struct{}

	readyOnce sync.Once
	ready     chan struct{}
}

// New creates a service. Call Start to begin polling.
func New(opts ...Option) (*Service, error) {
	s := &Service{
		config: DefaultConfig(),
		now:    time.Now,
		wake:   make(chan struct{}, 1),
		ready:  make(chan struct{}),
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.fetcher == nil {
		return nil, fmt.Errorf("fetcher is required")
	}
	if s.cache == nil {
		return nil, fmt.Errorf("cache is required")
	}
	if err := s.config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	s.logger = logging.OrDefault(s.logger)
	s.tel = telemetry.OrNoOp(s.tel)
	if s.hooks == nil {
		s.hooks = hooks.New(s.logger)
	}
	s.offline.Store(s.config.Offline)
	s.ctx, s.cancel = context.WithCancel(context.Background())

	return s, nil
}

// Start begins background work for the configured mode. Calling it more
// than once has no effect.
func (s *Service) Start() {
	s.startOnce.Do(func() {
		mode := s.config.Mode
		if mode.Kind() != KindAutoPoll {
			s.signalReady()
			return
		}

		if s.offline.Load() || mode.MaxInitWait == 0 {
			s.signalReady()
		} else {
			s.wg.Add(1)
			go s.initWaitTimer(mode.MaxInitWait)
		}

		s.wg.Add(1)
		go s.pollLoop()
	})
}

func (s *Service) initWaitTimer(d time.Duration) {
	defer s.wg.Done()

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		s.logger.Warn("max init wait elapsed before the first config fetch completed",
			"max_init_wait", d)
		s.signalReady()
	case <-s.ready:
	case <-s.ctx.Done():
	}
}

// pollLoop runs the periodic refresh in background
func (s *Service) pollLoop() {
	defer s.wg.Done()

	interval := s.config.Mode.PollInterval

	cached := s.cache.Get(s.ctx, s.config.CacheKey)
	if !cached.IsExpired(interval, s.now()) {
		// someone sharing the external cache fetched recently
		s.signalReady()
	} else if !s.offline.Load() {
		s.refreshShared(s.ctx)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return

		case <-ticker.C:
			if s.offline.Load() {
				continue
			}
			s.refreshShared(s.ctx)

		case <-s.wake:
			ticker.Reset(interval)
			if !s.offline.Load() {
				s.refreshShared(s.ctx)
			}
		}
	}
}

// GetConfig returns the snapshot to evaluate against, fetching first when
// the mode calls for it.
func (s *Service) GetConfig(ctx context.Context) *domain.ProjectConfig {
	switch s.config.Mode.Kind() {
	case KindAutoPoll:
		select {
		case <-s.ready:
		case <-ctx.Done():
		case <-s.ctx.Done():
		}
		return s.cache.Get(ctx, s.config.CacheKey)

	case KindLazyLoad:
		pc := s.cache.Get(ctx, s.config.CacheKey)
		if s.offline.Load() || s.closed() || !pc.IsExpired(s.config.Mode.CacheTTL, s.now()) {
			return pc
		}
		s.refreshShared(ctx)
		return s.cache.Get(ctx, s.config.CacheKey)

	default:
		return s.cache.Get(ctx, s.config.CacheKey)
	}
}

// RefreshConfig fetches now. Concurrent callers share a single fetch and
// its result.
func (s *Service) RefreshConfig(ctx context.Context) RefreshResult {
	if s.offline.Load() {
		msg := "client is in offline mode, it cannot initiate HTTP calls"
		s.logger.Warn(msg, logging.Event(logging.EventOfflineRefresh))
		return RefreshResult{
			ErrorCode:    domain.RefreshErrorOfflineClient,
			ErrorMessage: msg,
			Err:          domain.NewRefreshError(domain.RefreshErrorOfflineClient, msg, nil),
		}
	}
	return s.refreshShared(ctx)
}

// refreshShared joins or starts the single in-flight refresh. The fetch
// itself runs on the service lifetime so a caller giving up does not abort
// it for the others.
func (s *Service) refreshShared(ctx context.Context) RefreshResult {
	ch := s.group.DoChan("refresh", func() (any, error) {
		return s.refresh(s.ctx), nil
	})

	select {
	case r := <-ch:
		return r.Val.(RefreshResult)
	case <-ctx.Done():
		return cancelled(ctx.Err())
	}
}

func cancelled(err error) RefreshResult {
	msg := "config refresh cancelled"
	return RefreshResult{
		ErrorCode:    domain.RefreshErrorUnexpected,
		ErrorMessage: msg,
		Err:          domain.NewRefreshError(domain.RefreshErrorUnexpected, msg, err),
	}
}

func (s *Service) refresh(ctx context.Context) RefreshResult {
	start := s.now()
	ctx, span := s.tel.StartSpan(ctx, "pennant.refresh",
		telemetry.WithAttributes(telemetry.String("mode", s.config.Mode.Kind().String())))
	defer span.End()

	last := s.cache.Get(ctx, s.config.CacheKey)
	res := s.fetcher.Fetch(ctx, last)

	if res.Canceled() {
		return cancelled(context.Canceled)
	}

	switch res.Status {
	case fetcher.Fetched:
		s.cache.Set(ctx, s.config.CacheKey, res.Config)
		if res.Config.ConfigJSON != last.ConfigJSON {
			s.logger.Info("config changed", logging.Event(logging.EventConfigChanged),
				"etag", res.Config.ETag)
			s.hooks.RaiseConfigChanged(res.Config.Config)
		}

	case fetcher.NotModified:
		s.cache.Set(ctx, s.config.CacheKey, res.Config)

	case fetcher.Failed:
		if res.Config != nil && res.Config != last {
			s.cache.Set(ctx, s.config.CacheKey, res.Config)
		}
		span.RecordError(res.Err)
		s.hooks.RaiseError(res.Message, res.Err)
	}

	current := s.cache.Local()
	s.tel.RecordRefresh(ctx, res.Status != fetcher.Failed, s.now().Sub(start), settingCount(current))
	s.tel.RecordConfigFetchTime(ctx, current.FetchTime)
	s.signalReady()

	if res.Status == fetcher.Failed {
		return RefreshResult{ErrorCode: res.ErrorCode, ErrorMessage: res.Message, Err: res.Err}
	}
	return RefreshResult{}
}

func settingCount(pc *domain.ProjectConfig) int {
	if pc.IsEmpty() {
		return 0
	}
	return len(pc.Config.Settings)
}

func (s *Service) signalReady() {
	s.readyOnce.Do(func() {
		close(s.ready)
		state := s.CacheState()
		s.logger.Debug("client ready", logging.Event(logging.EventClientReady), "cache_state", state.String())
		s.hooks.RaiseClientReady(state)
	})
}

// WaitForReady blocks until the service is ready or ctx is done.
func (s *Service) WaitForReady(ctx context.Context) (domain.CacheState, error) {
	select {
	case <-s.ready:
		return s.CacheState(), nil
	case <-ctx.Done():
		return s.CacheState(), ctx.Err()
	}
}

// CacheState classifies the locally cached snapshot.
func (s *Service) CacheState() domain.CacheState {
	pc := s.cache.Local()
	if pc.IsEmpty() {
		return domain.NoFlagData
	}
	if s.offline.Load() {
		return domain.HasCachedFlagDataOnly
	}

	mode := s.config.Mode
	switch mode.Kind() {
	case KindAutoPoll:
		if pc.IsExpired(mode.PollInterval, s.now()) {
			return domain.HasCachedFlagDataOnly
		}
	case KindLazyLoad:
		if pc.IsExpired(mode.CacheTTL, s.now()) {
			return domain.HasCachedFlagDataOnly
		}
	default:
		return domain.HasCachedFlagDataOnly
	}
	return domain.HasUpToDateFlagData
}

// Snapshot returns the local snapshot without any I/O.
func (s *Service) Snapshot() *domain.ProjectConfig {
	return s.cache.Local()
}

// SetOffline stops all network activity until SetOnline.
func (s *Service) SetOffline() {
	if s.offline.CompareAndSwap(false, true) {
		s.logger.Info("switched to offline mode")
	}
}

// SetOnline resumes network activity. In auto poll mode a fetch starts
// right away.
func (s *Service) SetOnline() {
	if s.closed() {
		return
	}
	if !s.offline.CompareAndSwap(true, false) {
		return
	}
	s.logger.Info("switched to online mode")

	if s.config.Mode.Kind() == KindAutoPoll {
		select {
		case s.wake <- struct{}{}:
		default:
		}
	}
}

func (s *Service) IsOffline() bool {
	return s.offline.Load()
}

func (s *Service) closed() bool {
	return s.ctx.Err() != nil
}

// Close cancels in-flight fetches and stops the poll loop. It is safe to
// call more than once.
func (s *Service) Close() error {
	s.closeOnce.Do(func() {
		s.cancel()
		s.wg.Wait()
	})
	return nil
}

// IsCancelled reports whether err comes from a refresh aborted by Close or
// by the caller's context.
func IsCancelled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
