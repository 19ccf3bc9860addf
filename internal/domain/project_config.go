package domain

import (
	"time"
)

// ProjectConfig is an immutable snapshot of the last known configuration.
// Never mutate a ProjectConfig; derive a new one with WithFetchTime.
type ProjectConfig struct {
	ConfigJSON string
	Config     *Config
	FetchTime  time.Time
	ETag       string
}

// EmptyProjectConfig stands for "no configuration yet". Its fetch time is
// the zero time so it is always expired.
var EmptyProjectConfig = &ProjectConfig{}

// NewProjectConfig builds a snapshot. When configJSON is empty the parsed
// config is dropped so that raw and parsed content are always both present
// or both absent.
func NewProjectConfig(configJSON string, cfg *Config, fetchTime time.Time, etag string) *ProjectConfig {
	if configJSON == "" || cfg == nil {
		configJSON, cfg = "", nil
	}
	return &ProjectConfig{
		ConfigJSON: configJSON,
		Config:     cfg,
		FetchTime:  fetchTime.UTC(),
		ETag:       etag,
	}
}

// Now returns the current time at the precision snapshots are stored with.
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

// IsEmpty reports whether the snapshot carries no configuration.
func (p *ProjectConfig) IsEmpty() bool {
	return p == nil || p.Config == nil
}

// WithFetchTime returns a copy of p stamped with t.
func (p *ProjectConfig) WithFetchTime(t time.Time) *ProjectConfig {
	if p == nil {
		p = EmptyProjectConfig
	}
	cp := *p
	cp.FetchTime = t.UTC()
	return &cp
}

// IsExpired reports whether the snapshot is at least ttl old at now.
func (p *ProjectConfig) IsExpired(ttl time.Duration, now time.Time) bool {
	if p == nil || p.FetchTime.IsZero() {
		return true
	}
	return !p.FetchTime.Add(ttl).After(now)
}

// Equal compares raw content, entity tag and fetch time.
func (p *ProjectConfig) Equal(o *ProjectConfig) bool {
	if p == nil || o == nil {
		return p == o
	}
	return p.ConfigJSON == o.ConfigJSON &&
		p.ETag == o.ETag &&
		p.FetchTime.Equal(o.FetchTime)
}
