package cache

import (
	"time"

	"github.com/goliatone/go-bankcache/internal/cacheinfra"
)

// Backend names a store implementation.
type Backend string

const (
	BackendSturdyc   Backend = cacheinfra.BackendSturdyc
	BackendRistretto Backend = cacheinfra.BackendRistretto
	BackendRedis     Backend = cacheinfra.BackendRedis
)

// Config exposes cache configuration options for consumers of the cache package.
type Config struct {
	Backend            Backend
	Capacity           int
	NumShards          int
	EvictionPercentage int
	EvictionInterval   time.Duration
	MaxCost            int64
	SlidingExpiration  time.Duration
	AbsoluteExpiration time.Duration
	EntrySize          int64
	Redis              RedisConfig
	Clock              Clock
}

// RedisConfig addresses the redis backend.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// ConfigError reports an invalid configuration field.
type ConfigError = cacheinfra.ConfigError

// DefaultConfig returns a Config populated with sensible defaults.
func DefaultConfig() Config {
	return convertFromInternal(cacheinfra.DefaultConfig())
}

// Validate checks whether the configuration values are valid.
func (c Config) Validate() error {
	return c.toInternal().Validate()
}

// EntryOptions returns the per-entry settings derived from the config.
func (c Config) EntryOptions() EntryOptions {
	return c.toInternal().EntryOptions()
}

// NewStore constructs the store selected by cfg.Backend.
func NewStore(cfg Config) (Store, error) {
	internal := cfg.toInternal()
	if err := internal.Validate(); err != nil {
		return nil, err
	}

	var (
		store Store
		err   error
	)
	switch cfg.Backend {
	case BackendRistretto:
		store, err = cacheinfra.NewRistrettoStore(internal)
	case BackendRedis:
		store, err = cacheinfra.NewRedisStore(internal)
	default:
		store, err = cacheinfra.NewSturdycStore(internal)
	}
	if err != nil {
		return nil, err
	}
	return store, nil
}

func (c Config) toInternal() cacheinfra.Config {
	return cacheinfra.Config{
		Backend:            string(c.Backend),
		Capacity:           c.Capacity,
		NumShards:          c.NumShards,
		EvictionPercentage: c.EvictionPercentage,
		EvictionInterval:   c.EvictionInterval,
		MaxCost:            c.MaxCost,
		SlidingExpiration:  c.SlidingExpiration,
		AbsoluteExpiration: c.AbsoluteExpiration,
		EntrySize:          c.EntrySize,
		Redis: cacheinfra.RedisConfig{
			Addr:     c.Redis.Addr,
			Password: c.Redis.Password,
			DB:       c.Redis.DB,
			Prefix:   c.Redis.Prefix,
		},
		Clock: c.Clock,
	}
}

func convertFromInternal(cfg cacheinfra.Config) Config {
	return Config{
		Backend:            Backend(cfg.Backend),
		Capacity:           cfg.Capacity,
		NumShards:          cfg.NumShards,
		EvictionPercentage: cfg.EvictionPercentage,
		EvictionInterval:   cfg.EvictionInterval,
		MaxCost:            cfg.MaxCost,
		SlidingExpiration:  cfg.SlidingExpiration,
		AbsoluteExpiration: cfg.AbsoluteExpiration,
		EntrySize:          cfg.EntrySize,
		Redis: RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Prefix:   cfg.Redis.Prefix,
		},
		Clock: cfg.Clock,
	}
}
