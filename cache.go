package pennant

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/OrlandoBitencourt/pennant/internal/storage"
)

// CacheOptions tunes the bundled external caches.
type CacheOptions struct {
	// MaxCost bounds the in-process cache in bytes.
	MaxCost int64

	// TTL expires entries in stores that support it. Zero keeps them
	// until overwritten.
	TTL time.Duration

	// KeyPrefix is prepended to keys in shared stores.
	KeyPrefix string
}

func (o CacheOptions) toStorageConfig() storage.Config {
	cfg := storage.DefaultConfig()
	if o.MaxCost > 0 {
		cfg.MaxCost = o.MaxCost
	}
	if o.KeyPrefix != "" {
		cfg.KeyPrefix = o.KeyPrefix
	}
	cfg.TTL = o.TTL
	return cfg
}

// NewInProcessCache returns a ristretto backed cache. Pass the same value
// to several clients with the same SDK key to share one download.
func NewInProcessCache(opts CacheOptions) (*storage.RistrettoStore, error) {
	return storage.NewRistrettoStore(opts.toStorageConfig())
}

// NewDiskCache returns a cache keeping one file per SDK key under dir, so
// that a restarted process can evaluate before its first download.
func NewDiskCache(dir string) (*storage.DiskStore, error) {
	return storage.NewDiskStore(dir)
}

// NewRedisCache returns a cache shared through an existing redis client.
func NewRedisCache(client redis.Cmdable, opts CacheOptions) *storage.RedisStore {
	return storage.NewRedisStore(client, opts.toStorageConfig())
}

// DialRedisCache connects to redis at addr and returns a cache backed by it.
// Close the returned client when done.
func DialRedisCache(ctx context.Context, addr string, opts CacheOptions) (*storage.RedisStore, *redis.Client, error) {
	return storage.NewRedisStoreFromAddr(ctx, addr, opts.toStorageConfig())
}
