package storage

import (
	"context"
	"fmt"

	"github.com/dgraph-io/ristretto"
)

// RistrettoStore is an in-process ExternalCache. Clients created in the
// same process can share one instance and with it one copy of the config.
type RistrettoStore struct {
	cache *ristretto.Cache
	cfg   Config
}

// NewRistrettoStore creates a ristretto-backed store.
func NewRistrettoStore(cfg Config) (*RistrettoStore, error) {
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: cfg.NumCounters,
		MaxCost:     cfg.MaxCost,
		BufferItems: cfg.BufferItems,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create ristretto cache: %w", err)
	}
	return &RistrettoStore{cache: cache, cfg: cfg}, nil
}

func (r *RistrettoStore) Get(ctx context.Context, key string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	value, found := r.cache.Get(key)
	if !found {
		return "", nil
	}
	s, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("unexpected value type %T for key %s", value, key)
	}
	return s, nil
}

// Set stores value with its byte length as cost and waits until the write
// is visible to readers.
func (r *RistrettoStore) Set(ctx context.Context, key, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var ok bool
	if r.cfg.TTL > 0 {
		ok = r.cache.SetWithTTL(key, value, int64(len(value)), r.cfg.TTL)
	} else {
		ok = r.cache.Set(key, value, int64(len(value)))
	}
	if !ok {
		return fmt.Errorf("ristretto rejected write for key %s", key)
	}
	r.cache.Wait()
	return nil
}

// Close releases the cache's background goroutines.
func (r *RistrettoStore) Close() error {
	r.cache.Close()
	return nil
}
