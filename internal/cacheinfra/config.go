package cacheinfra

import (
	"time"
)

const (
	BackendSturdyc   = "sturdyc"
	BackendRistretto = "ristretto"
	BackendRedis     = "redis"
)

// Config holds the settings shared by every store backend.
type Config struct {
	// Backend selects the store implementation: sturdyc, ristretto or redis.
	Backend string

	// Capacity defines the maximum number of entries a sturdyc store keeps.
	// Must be greater than 0 for the sturdyc backend.
	Capacity int

	// NumShards determines the number of sturdyc shards for concurrent access.
	// Default: 256
	NumShards int

	// EvictionPercentage specifies what percentage of entries sturdyc evicts
	// when it reaches capacity. Must be between 1-100.
	EvictionPercentage int

	// EvictionInterval sets how often sturdyc sweeps expired entries.
	// Zero value uses the library default.
	EvictionInterval time.Duration

	// MaxCost bounds the summed entry sizes held by the ristretto backend.
	MaxCost int64

	// SlidingExpiration evicts an entry that has not been read for this long.
	SlidingExpiration time.Duration

	// AbsoluteExpiration evicts an entry this long after it was written,
	// however often it is read.
	AbsoluteExpiration time.Duration

	// EntrySize is the weight charged for each entry against MaxCost.
	EntrySize int64

	Redis RedisConfig

	// Clock drives expiration. Nil means the system clock.
	Clock Clock
}

// RedisConfig points the redis backend at a server.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	// Prefix is prepended to every key written by this store.
	Prefix string
}

// DefaultConfig returns a Config with the defaults used by the cache-aside
// services: 30s sliding, 30s absolute and a size weight of 1024.
func DefaultConfig() Config {
	return Config{
		Backend:            BackendSturdyc,
		Capacity:           10000,
		NumShards:          256,
		EvictionPercentage: 10,
		MaxCost:            64 << 20,
		SlidingExpiration:  30 * time.Second,
		AbsoluteExpiration: 30 * time.Second,
		EntrySize:          1024,
		Redis: RedisConfig{
			Addr:   "localhost:6379",
			Prefix: "bankcache:",
		},
	}
}

// EntryOptions returns the per-entry expiration settings carried by the config.
func (c Config) EntryOptions() EntryOptions {
	return EntryOptions{
		Sliding:  c.SlidingExpiration,
		Absolute: c.AbsoluteExpiration,
		Size:     c.EntrySize,
	}
}

// Validate checks if the configuration values are valid for the selected backend.
func (c Config) Validate() error {
	if c.SlidingExpiration < 0 {
		return &ConfigError{Field: "SlidingExpiration", Message: "must be non-negative"}
	}
	if c.AbsoluteExpiration < 0 {
		return &ConfigError{Field: "AbsoluteExpiration", Message: "must be non-negative"}
	}
	if c.EntrySize < 0 {
		return &ConfigError{Field: "EntrySize", Message: "must be non-negative"}
	}

	switch c.Backend {
	case BackendSturdyc:
		if c.Capacity <= 0 {
			return &ConfigError{Field: "Capacity", Message: "must be greater than 0"}
		}
		if c.NumShards <= 0 {
			return &ConfigError{Field: "NumShards", Message: "must be greater than 0"}
		}
		if c.EvictionPercentage < 1 || c.EvictionPercentage > 100 {
			return &ConfigError{Field: "EvictionPercentage", Message: "must be between 1 and 100"}
		}
		if c.EvictionInterval < 0 {
			return &ConfigError{Field: "EvictionInterval", Message: "must be non-negative"}
		}
	case BackendRistretto:
		if c.MaxCost <= 0 {
			return &ConfigError{Field: "MaxCost", Message: "must be greater than 0"}
		}
	case BackendRedis:
		if c.Redis.Addr == "" {
			return &ConfigError{Field: "Redis.Addr", Message: "is required"}
		}
		if c.Redis.DB < 0 {
			return &ConfigError{Field: "Redis.DB", Message: "must be non-negative"}
		}
	default:
		return &ConfigError{Field: "Backend", Message: "must be one of sturdyc, ristretto, redis"}
	}

	return nil
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field " + e.Field + ": " + e.Message
}

func (c Config) clock() Clock {
	if c.Clock == nil {
		return SystemClock{}
	}
	return c.Clock
}
