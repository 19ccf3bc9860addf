package storage

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/OrlandoBitencourt/pennant/internal/domain"
	"github.com/OrlandoBitencourt/pennant/internal/logging"
)

// External layers a user-supplied ExternalCache over an InMemory shadow.
// Store failures are logged and never propagated: reads fall back to the
// shadow, writes keep the shadow up to date.
type External struct {
	store  ExternalCache
	local  *InMemory
	logger *slog.Logger

	onError func(ctx context.Context, op string)

	mu             sync.Mutex
	lastSerialized string
}

// ExternalOption configures an External cache.
type ExternalOption func(*External)

// WithErrorObserver registers fn to be called with "read" or "write" for
// every swallowed store failure.
func WithErrorObserver(fn func(ctx context.Context, op string)) ExternalOption {
	return func(e *External) {
		e.onError = fn
	}
}

// NewExternal wraps store. A nil logger falls back to slog.Default().
func NewExternal(store ExternalCache, logger *slog.Logger, opts ...ExternalOption) *External {
	e := &External{
		store:  store,
		local:  NewInMemory(),
		logger: logging.OrDefault(logger),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *External) failed(ctx context.Context, op string) {
	if e.onError != nil {
		e.onError(ctx, op)
	}
}

func (e *External) Get(ctx context.Context, key string) *domain.ProjectConfig {
	value, err := e.store.Get(ctx, key)
	if errors.Is(err, context.Canceled) {
		return e.local.Local()
	}
	if err != nil {
		e.logger.Error("error occurred while reading the cache", logging.Event(logging.EventCacheReadFailed),
			"key", key, "error", err)
		e.failed(ctx, "read")
		return e.local.Local()
	}
	if value == "" {
		return e.local.Local()
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if value == e.lastSerialized {
		return e.local.Local()
	}

	pc, err := Deserialize(value)
	if err != nil {
		e.logger.Error("error occurred while reading the cache", logging.Event(logging.EventCacheReadFailed),
			"key", key, "error", err)
		e.failed(ctx, "read")
		return e.local.Local()
	}

	e.local.store(pc)
	e.lastSerialized = value
	return e.local.Local()
}

func (e *External) Set(ctx context.Context, key string, pc *domain.ProjectConfig) {
	if !e.local.store(pc) || pc.IsEmpty() {
		return
	}

	value := Serialize(pc)

	e.mu.Lock()
	e.lastSerialized = value
	e.mu.Unlock()

	err := e.store.Set(ctx, key, value)
	if errors.Is(err, context.Canceled) {
		return
	}
	if err != nil {
		e.logger.Error("error occurred while writing the cache", logging.Event(logging.EventCacheWriteFailed),
			"key", key, "error", err)
		e.failed(ctx, "write")
	}
}

func (e *External) Local() *domain.ProjectConfig {
	return e.local.Local()
}
