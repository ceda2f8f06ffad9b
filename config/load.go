package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "BANKCACHE_"

// Load builds a Config from Default, then the file at path when path is not
// empty, then the .env files (".env" when none are given and it exists), then
// BANKCACHE_* variables. The result is validated.
func Load(path string, envFiles ...string) (Config, error) {
	cfg := Default()

	if path != "" {
		if err := readFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if err := loadEnvFiles(envFiles); err != nil {
		return Config{}, err
	}
	if err := applyEnv(&cfg, os.LookupEnv); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func readFile(path string, cfg *Config) error {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	case ".toml":
		err = toml.Unmarshal(data, cfg)
	default:
		return fmt.Errorf("%s: unsupported config format %q", path, ext)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

// loadEnvFiles never overrides variables that are already set.
func loadEnvFiles(files []string) error {
	if len(files) == 0 {
		if _, err := os.Stat(".env"); errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		files = []string{".env"}
	}
	if err := godotenv.Load(files...); err != nil {
		return fmt.Errorf("load env files: %w", err)
	}
	return nil
}

type envBinding struct {
	name string
	set  func(*Config, string) error
}

func str(dst func(*Config) *string) func(*Config, string) error {
	return func(c *Config, v string) error {
		*dst(c) = v
		return nil
	}
}

func integer(dst func(*Config) *int) func(*Config, string) error {
	return func(c *Config, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return err
		}
		*dst(c) = n
		return nil
	}
}

func duration(dst func(*Config) *Duration) func(*Config, string) error {
	return func(c *Config, v string) error {
		return dst(c).UnmarshalText([]byte(v))
	}
}

var envBindings = []envBinding{
	{"DB_DRIVER", str(func(c *Config) *string { return &c.Database.Driver })},
	{"DB_DSN", str(func(c *Config) *string { return &c.Database.DSN })},
	{"DB_MAX_OPEN_CONNS", integer(func(c *Config) *int { return &c.Database.MaxOpenConns })},
	{"CACHE_BACKEND", str(func(c *Config) *string { return &c.Cache.Backend })},
	{"CACHE_CAPACITY", integer(func(c *Config) *int { return &c.Cache.Capacity })},
	{"CACHE_SLIDING", duration(func(c *Config) *Duration { return &c.Cache.SlidingExpiration })},
	{"CACHE_ABSOLUTE", duration(func(c *Config) *Duration { return &c.Cache.AbsoluteExpiration })},
	{"REDIS_ADDR", str(func(c *Config) *string { return &c.Cache.Redis.Addr })},
	{"REDIS_PASSWORD", str(func(c *Config) *string { return &c.Cache.Redis.Password })},
	{"REDIS_DB", integer(func(c *Config) *int { return &c.Cache.Redis.DB })},
	{"REDIS_PREFIX", str(func(c *Config) *string { return &c.Cache.Redis.Prefix })},
	{"LOCK_TIMEOUT", duration(func(c *Config) *Duration { return &c.Access.LockTimeout })},
	{"FETCH_TIMEOUT", duration(func(c *Config) *Duration { return &c.Access.FetchTimeout })},
	{"LOG_ADAPTER", str(func(c *Config) *string { return &c.Log.Adapter })},
	{"LOG_LEVEL", str(func(c *Config) *string { return &c.Log.Level })},
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	for _, b := range envBindings {
		v, ok := lookup(EnvPrefix + b.name)
		if !ok {
			continue
		}
		if err := b.set(cfg, v); err != nil {
			return &ConfigError{Field: EnvPrefix + b.name, Message: err.Error()}
		}
	}
	return nil
}
