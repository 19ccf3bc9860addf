package poller

import (
	"fmt"
	"time"
)

// Kind identifies a polling mode.
type Kind int

const (
	KindAutoPoll Kind = iota
	KindLazyLoad
	KindManualPoll
)

func (k Kind) String() string {
	switch k {
	case KindAutoPoll:
		return "auto"
	case KindLazyLoad:
		return "lazy"
	case KindManualPoll:
		return "manual"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Mode decides when the service talks to the CDN.
//
//   - auto poll fetches on a timer and makes callers wait for the first
//     fetch, at most MaxInitWait.
//   - lazy load fetches on read when the cached config is older than
//     CacheTTL.
//   - manual poll only fetches on RefreshConfig.
type Mode struct {
	kind         Kind
	PollInterval time.Duration
	MaxInitWait  time.Duration
	CacheTTL     time.Duration
}

const (
	DefaultPollInterval = 60 * time.Second
	DefaultMaxInitWait  = 5 * time.Second
	DefaultCacheTTL     = 60 * time.Second
)

// AutoPoll polls every interval. A zero maxInitWait makes the client ready
// immediately.
func AutoPoll(interval, maxInitWait time.Duration) Mode {
	return Mode{kind: KindAutoPoll, PollInterval: interval, MaxInitWait: maxInitWait}
}

// LazyLoad refreshes on read once the cached config is ttl old.
func LazyLoad(ttl time.Duration) Mode {
	return Mode{kind: KindLazyLoad, CacheTTL: ttl}
}

// ManualPoll never fetches on its own.
func ManualPoll() Mode {
	return Mode{kind: KindManualPoll}
}

func (m Mode) Kind() Kind { return m.kind }

// Identifier is the short mode id sent in the user agent header.
func (m Mode) Identifier() string {
	switch m.kind {
	case KindLazyLoad:
		return "l"
	case KindManualPoll:
		return "m"
	default:
		return "a"
	}
}

func (m Mode) String() string {
	switch m.kind {
	case KindAutoPoll:
		return fmt.Sprintf("auto(interval=%s, max_init_wait=%s)", m.PollInterval, m.MaxInitWait)
	case KindLazyLoad:
		return fmt.Sprintf("lazy(ttl=%s)", m.CacheTTL)
	default:
		return m.kind.String()
	}
}

// Validate validates the mode
func (m Mode) Validate() error {
	switch m.kind {
	case KindAutoPoll:
		if m.PollInterval < time.Second {
			return fmt.Errorf("poll interval must be at least 1s, got %s", m.PollInterval)
		}
		if m.MaxInitWait < 0 {
			return fmt.Errorf("max init wait must not be negative")
		}
	case KindLazyLoad:
		if m.CacheTTL < time.Second {
			return fmt.Errorf("cache TTL must be at least 1s, got %s", m.CacheTTL)
		}
	case KindManualPoll:
	default:
		return fmt.Errorf("unknown polling mode %d", int(m.kind))
	}
	return nil
}
