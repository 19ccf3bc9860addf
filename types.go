package pennant

import (
	"time"

	"github.com/OrlandoBitencourt/pennant/internal/domain"
	"github.com/OrlandoBitencourt/pennant/internal/fetcher"
	"github.com/OrlandoBitencourt/pennant/internal/hooks"
	"github.com/OrlandoBitencourt/pennant/internal/poller"
	"github.com/OrlandoBitencourt/pennant/internal/storage"
	"github.com/OrlandoBitencourt/pennant/internal/telemetry"
)

// User holds the attributes targeting rules are evaluated against.
// Identifier, Email and Country are well-known attributes; anything else
// goes into Custom. Custom values may be strings, any numeric type,
// time.Time or []string.
type User = domain.User

// EvaluationDetails describes the outcome of a single evaluation.
type EvaluationDetails = domain.EvaluationDetails

// Config is a parsed config document, as passed to ConfigChanged
// subscribers.
type Config = domain.Config

// ProjectConfig is an immutable config snapshot.
type ProjectConfig = domain.ProjectConfig

// CacheState describes how fresh the data was when the client became ready.
type CacheState = domain.CacheState

const (
	NoFlagData            = domain.NoFlagData
	HasCachedFlagDataOnly = domain.HasCachedFlagDataOnly
	HasUpToDateFlagData   = domain.HasUpToDateFlagData
)

// PollingMode selects how the client keeps its config fresh.
type PollingMode = poller.Mode

// AutoPoll fetches every interval in the background. Evaluations wait up
// to maxInitWait for the first fetch.
func AutoPoll(interval, maxInitWait time.Duration) PollingMode {
	return poller.AutoPoll(interval, maxInitWait)
}

// LazyLoad fetches on evaluation when the cached config is older than ttl.
func LazyLoad(ttl time.Duration) PollingMode {
	return poller.LazyLoad(ttl)
}

// ManualPoll only fetches when Refresh is called.
func ManualPoll() PollingMode {
	return poller.ManualPoll()
}

// DataGovernance picks the CDN region used when no base URL is set.
type DataGovernance = fetcher.DataGovernance

const (
	Global = fetcher.Global
	EUOnly = fetcher.EUOnly
)

// ExternalCache is a pluggable store for serialized config snapshots,
// shared between clients or processes.
type ExternalCache = storage.ExternalCache

// Hooks is the client's event registry.
type Hooks = hooks.Hooks

// Telemetry records spans and metrics for fetches, refreshes and
// evaluations.
type Telemetry = telemetry.Provider

// NewUser creates a user with the given identifier.
func NewUser(identifier string) *User {
	return &User{Identifier: identifier}
}

// WithAttribute returns a copy of u with a custom attribute set.
func WithAttribute(u *User, name string, value any) *User {
	out := &User{}
	if u != nil {
		*out = *u
	}
	custom := make(map[string]any, len(out.Custom)+1)
	for k, v := range out.Custom {
		custom[k] = v
	}
	custom[name] = value
	out.Custom = custom
	return out
}
