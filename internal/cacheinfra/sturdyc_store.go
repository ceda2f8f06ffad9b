package cacheinfra

import (
	"time"

	"github.com/viccon/sturdyc"
)

// sturdycBackend stores entries in a sturdyc client. The client TTL is the
// outer ceiling; per-entry deadlines are enforced by expiringStore.
type sturdycBackend struct {
	client *sturdyc.Client[any]
}

func (b *sturdycBackend) get(key string) (any, bool) {
	return b.client.Get(key)
}

// set ignores cost and ttl: sturdyc bounds by entry count and uses one TTL.
func (b *sturdycBackend) set(key string, value any, cost int64, ttl time.Duration) {
	b.client.Set(key, value)
}

func (b *sturdycBackend) del(key string) {
	b.client.Delete(key)
}

func (b *sturdycBackend) keys() []string {
	return b.client.ScanKeys()
}

func (b *sturdycBackend) close() {}

// ToSturdycOptions converts the Config to sturdyc options. Capacity, shard
// count, TTL and eviction percentage go to sturdyc.New directly.
func (c Config) ToSturdycOptions() []sturdyc.Option {
	var options []sturdyc.Option
	if c.EvictionInterval > 0 {
		options = append(options, sturdyc.WithEvictionInterval(c.EvictionInterval))
	}
	return options
}

// ceilingTTL is the backend-level TTL. With an absolute expiration it matches
// it; otherwise entries may live as long as they keep being read, capped at a day.
func (c Config) ceilingTTL() time.Duration {
	if c.AbsoluteExpiration > 0 {
		return c.AbsoluteExpiration
	}
	return 24 * time.Hour
}

// NewSturdycStore creates an expiring store backed by sturdyc.
func NewSturdycStore(cfg Config) (*expiringStore, error) {
	cfg.Backend = BackendSturdyc
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client := sturdyc.New[any](
		cfg.Capacity,
		cfg.NumShards,
		cfg.ceilingTTL(),
		cfg.EvictionPercentage,
		cfg.ToSturdycOptions()...,
	)
	store := newExpiringStore(&sturdycBackend{client: client}, cfg.clock())
	store.ceiling = cfg.ceilingTTL()
	return store, nil
}
