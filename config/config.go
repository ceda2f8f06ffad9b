// Package config loads the bankcache configuration from defaults, an optional
// YAML or TOML file, a .env file and BANKCACHE_* environment variables, in
// that order of precedence from lowest to highest.
package config

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/goliatone/go-bankcache/cache"
	"github.com/goliatone/go-bankcache/persistence/bunstore"
)

// Duration is a time.Duration read from text such as "30s" or "1m30s".
type Duration time.Duration

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	*d = Duration(parsed)
	return nil
}

// Config is the full application configuration.
type Config struct {
	Database DatabaseConfig `yaml:"database" toml:"database"`
	Cache    CacheConfig    `yaml:"cache" toml:"cache"`
	Access   AccessConfig   `yaml:"access" toml:"access"`
	Log      LogConfig      `yaml:"log" toml:"log"`
}

// DatabaseConfig selects the SQL backend.
type DatabaseConfig struct {
	Driver       string `yaml:"driver" toml:"driver"`
	DSN          string `yaml:"dsn" toml:"dsn"`
	MaxOpenConns int    `yaml:"max_open_conns" toml:"max_open_conns"`
}

// CacheConfig mirrors cache.Config with file friendly types.
type CacheConfig struct {
	Backend            string      `yaml:"backend" toml:"backend"`
	Capacity           int         `yaml:"capacity" toml:"capacity"`
	NumShards          int         `yaml:"num_shards" toml:"num_shards"`
	EvictionPercentage int         `yaml:"eviction_percentage" toml:"eviction_percentage"`
	EvictionInterval   Duration    `yaml:"eviction_interval" toml:"eviction_interval"`
	MaxCost            int64       `yaml:"max_cost" toml:"max_cost"`
	SlidingExpiration  Duration    `yaml:"sliding_expiration" toml:"sliding_expiration"`
	AbsoluteExpiration Duration    `yaml:"absolute_expiration" toml:"absolute_expiration"`
	EntrySize          int64       `yaml:"entry_size" toml:"entry_size"`
	Redis              RedisConfig `yaml:"redis" toml:"redis"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr" toml:"addr"`
	Password string `yaml:"password" toml:"password"`
	DB       int    `yaml:"db" toml:"db"`
	Prefix   string `yaml:"prefix" toml:"prefix"`
}

// AccessConfig bounds the waits of the cache-aside layer. Zero disables a bound.
type AccessConfig struct {
	LockTimeout  Duration `yaml:"lock_timeout" toml:"lock_timeout"`
	FetchTimeout Duration `yaml:"fetch_timeout" toml:"fetch_timeout"`
}

// LogConfig selects the logging adapter and level.
type LogConfig struct {
	Adapter string `yaml:"adapter" toml:"adapter"`
	Level   string `yaml:"level" toml:"level"`
}

// Log adapters accepted by LogConfig.Adapter.
const (
	LogZap    = "zap"
	LogLogrus = "logrus"
	LogSlog   = "slog"
	LogNop    = "nop"
)

var (
	logAdapters = []string{LogZap, LogLogrus, LogSlog, LogNop}
	logLevels   = []string{"debug", "info", "warn", "error"}
)

// Default returns an in-memory SQLite database behind the sturdyc cache with
// zap logging at info level.
func Default() Config {
	c := cache.DefaultConfig()
	return Config{
		Database: DatabaseConfig{
			Driver:       bunstore.DriverSQLite,
			DSN:          "file:bankcache?mode=memory&cache=shared",
			MaxOpenConns: 1,
		},
		Cache: CacheConfig{
			Backend:            string(c.Backend),
			Capacity:           c.Capacity,
			NumShards:          c.NumShards,
			EvictionPercentage: c.EvictionPercentage,
			EvictionInterval:   Duration(c.EvictionInterval),
			MaxCost:            c.MaxCost,
			SlidingExpiration:  Duration(c.SlidingExpiration),
			AbsoluteExpiration: Duration(c.AbsoluteExpiration),
			EntrySize:          c.EntrySize,
			Redis: RedisConfig{
				Addr:     c.Redis.Addr,
				Password: c.Redis.Password,
				DB:       c.Redis.DB,
				Prefix:   c.Redis.Prefix,
			},
		},
		Access: AccessConfig{
			LockTimeout:  Duration(10 * time.Second),
			FetchTimeout: Duration(10 * time.Second),
		},
		Log: LogConfig{Adapter: LogZap, Level: "info"},
	}
}

// ConfigError reports an invalid configuration field.
type ConfigError = cache.ConfigError

// Validate checks every section and returns the first problem found.
func (c Config) Validate() error {
	switch c.Database.Driver {
	case bunstore.DriverSQLite, bunstore.DriverPostgres:
	default:
		return &ConfigError{Field: "database.driver", Message: fmt.Sprintf("unsupported driver %q", c.Database.Driver)}
	}
	if strings.TrimSpace(c.Database.DSN) == "" {
		return &ConfigError{Field: "database.dsn", Message: "must not be empty"}
	}
	if c.Database.MaxOpenConns < 0 {
		return &ConfigError{Field: "database.max_open_conns", Message: "must not be negative"}
	}

	if err := c.CacheConfig().Validate(); err != nil {
		return fmt.Errorf("cache: %w", err)
	}

	if c.Access.LockTimeout < 0 {
		return &ConfigError{Field: "access.lock_timeout", Message: "must not be negative"}
	}
	if c.Access.FetchTimeout < 0 {
		return &ConfigError{Field: "access.fetch_timeout", Message: "must not be negative"}
	}

	if !slices.Contains(logAdapters, c.Log.Adapter) {
		return &ConfigError{Field: "log.adapter", Message: fmt.Sprintf("must be one of %s", strings.Join(logAdapters, ", "))}
	}
	if !slices.Contains(logLevels, strings.ToLower(c.Log.Level)) {
		return &ConfigError{Field: "log.level", Message: fmt.Sprintf("must be one of %s", strings.Join(logLevels, ", "))}
	}
	return nil
}

// CacheConfig converts the cache section to cache.Config.
func (c Config) CacheConfig() cache.Config {
	return cache.Config{
		Backend:            cache.Backend(c.Cache.Backend),
		Capacity:           c.Cache.Capacity,
		NumShards:          c.Cache.NumShards,
		EvictionPercentage: c.Cache.EvictionPercentage,
		EvictionInterval:   time.Duration(c.Cache.EvictionInterval),
		MaxCost:            c.Cache.MaxCost,
		SlidingExpiration:  time.Duration(c.Cache.SlidingExpiration),
		AbsoluteExpiration: time.Duration(c.Cache.AbsoluteExpiration),
		EntrySize:          c.Cache.EntrySize,
		Redis: cache.RedisConfig{
			Addr:     c.Cache.Redis.Addr,
			Password: c.Cache.Redis.Password,
			DB:       c.Cache.Redis.DB,
			Prefix:   c.Cache.Redis.Prefix,
		},
	}
}

// DatabaseConfig converts the database section to bunstore.Config.
func (c Config) DatabaseConfig() bunstore.Config {
	return bunstore.Config{
		Driver:       c.Database.Driver,
		DSN:          c.Database.DSN,
		MaxOpenConns: c.Database.MaxOpenConns,
	}
}
