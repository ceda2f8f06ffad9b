package cacheinfra

import (
	"time"

	"github.com/dgraph-io/ristretto"
)

// ristrettoBackend charges each entry its size against MaxCost. Writes are
// flushed with Wait so a value is readable as soon as Insert returns.
type ristrettoBackend struct {
	cache *ristretto.Cache
}

func (b *ristrettoBackend) get(key string) (any, bool) {
	return b.cache.Get(key)
}

func (b *ristrettoBackend) set(key string, value any, cost int64, ttl time.Duration) {
	if cost <= 0 {
		cost = 1
	}
	b.cache.SetWithTTL(key, value, cost, ttl)
	b.cache.Wait()
}

func (b *ristrettoBackend) del(key string) {
	b.cache.Del(key)
}

func (b *ristrettoBackend) close() {
	b.cache.Close()
}

// NewRistrettoStore creates an expiring store backed by ristretto.
func NewRistrettoStore(cfg Config) (*expiringStore, error) {
	cfg.Backend = BackendRistretto
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	size := cfg.EntrySize
	if size <= 0 {
		size = 1
	}
	counters := 10 * (cfg.MaxCost / size)
	if counters < 1000 {
		counters = 1000
	}

	c, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: counters,
		MaxCost:     cfg.MaxCost,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return newExpiringStore(&ristrettoBackend{cache: c}, cfg.clock()), nil
}
