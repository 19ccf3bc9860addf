// Package storage holds the config cache the polling service reads and
// writes, the snapshot serialization format and the pluggable external
// stores (ristretto, disk, redis).
package storage

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"time"

	"github.com/OrlandoBitencourt/pennant/internal/domain"
)

// Cache is the snapshot cache used by the config service. Implementations
// never return nil from Get or Local; EmptyProjectConfig stands for
// "nothing cached".
type Cache interface {
	// Get returns the freshest snapshot known for key.
	Get(ctx context.Context, key string) *domain.ProjectConfig

	// Set stores pc under key.
	Set(ctx context.Context, key string, pc *domain.ProjectConfig)

	// Local returns the in-process copy without touching any external store.
	Local() *domain.ProjectConfig
}

// ExternalCache is a user-pluggable store for serialized snapshots.
type ExternalCache interface {
	// Get returns the stored value, or "" when nothing is stored.
	Get(ctx context.Context, key string) (string, error)

	// Set stores value under key.
	Set(ctx context.Context, key, value string) error
}

const (
	configFileName      = "config_v6.json"
	serializationFormat = "v2"
)

// KeyForSDKKey derives the cache key for an SDK key.
func KeyForSDKKey(sdkKey string) string {
	sum := sha1.Sum([]byte(sdkKey + "_" + configFileName + "_" + serializationFormat))
	return hex.EncodeToString(sum[:])
}

// Config holds configuration for the bundled external stores.
type Config struct {
	// Ristretto sizing
	MaxCost     int64
	NumCounters int64
	BufferItems int64

	// TTL applied by stores that support expiry; zero keeps entries forever.
	TTL time.Duration

	// Prefix prepended to keys by shared stores.
	KeyPrefix string
}

// DefaultConfig returns default storage configuration.
func DefaultConfig() Config {
	return Config{
		MaxCost:     64 << 20, // 64MB
		NumCounters: 1e4,
		BufferItems: 64,
		KeyPrefix:   "pennant:",
	}
}
