package di

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/goliatone/go-bankcache/bank"
	"github.com/goliatone/go-bankcache/cache"
	"github.com/goliatone/go-bankcache/cacheaside"
	"github.com/goliatone/go-bankcache/config"
	"github.com/goliatone/go-bankcache/domain"
	"github.com/goliatone/go-bankcache/logging"
	"github.com/goliatone/go-bankcache/logging/logruslog"
	"github.com/goliatone/go-bankcache/logging/sloglog"
	"github.com/goliatone/go-bankcache/logging/zaplog"
	"github.com/goliatone/go-bankcache/persistence"
	"github.com/goliatone/go-bankcache/persistence/bunstore"
	"github.com/goliatone/go-bankcache/persistence/repobun"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

// Container owns the singletons the bank services share: the logger, the
// cache store, the database handle and the key serializer. Services built
// through it all read from and invalidate the same store.
type Container struct {
	config        config.Config
	logger        logging.Logger
	store         cache.Store
	db            *bun.DB
	keySerializer cache.KeySerializer
	bank          *bank.Services
}

// NewContainer validates cfg and builds every dependency it describes. The
// schema is not created; call Migrate for that.
func NewContainer(cfg config.Config) (*Container, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger, err := NewLogger(cfg.Log, os.Stderr)
	if err != nil {
		return nil, err
	}

	storeCfg := cfg.CacheConfig()
	store, err := cache.NewStore(storeCfg)
	if err != nil {
		return nil, fmt.Errorf("create cache store: %w", err)
	}

	db, err := bunstore.Open(cfg.DatabaseConfig())
	if err != nil {
		_ = store.Close(context.Background())
		return nil, fmt.Errorf("open database: %w", err)
	}

	c := &Container{
		config:        cfg,
		logger:        logger,
		store:         store,
		db:            db,
		keySerializer: cache.NewDefaultKeySerializer(),
	}
	c.bank = bank.New(db, store, logger, c.accessOptions(storeCfg.EntryOptions())...)

	logger.Info("container ready", logging.Fields{
		"cache_backend": string(storeCfg.Backend),
		"db_driver":     cfg.Database.Driver,
	})
	return c, nil
}

// NewContainerWithDefaults builds a container from config.Default.
func NewContainerWithDefaults() (*Container, error) {
	return NewContainer(config.Default())
}

// NewLogger returns the adapter named by cfg.Adapter writing to out. The zap
// adapter always writes to stderr.
func NewLogger(cfg config.LogConfig, out io.Writer) (logging.Logger, error) {
	level := strings.ToLower(cfg.Level)
	switch cfg.Adapter {
	case config.LogZap, "":
		return zaplog.New(level)
	case config.LogLogrus:
		return logruslog.New(level, out)
	case config.LogSlog:
		return sloglog.New(level, out)
	case config.LogNop:
		return logging.Nop{}, nil
	default:
		return nil, fmt.Errorf("unknown log adapter %q", cfg.Adapter)
	}
}

func (c *Container) accessOptions(entry cache.EntryOptions) []cacheaside.Option {
	return []cacheaside.Option{
		cacheaside.WithEntryOptions(entry),
		cacheaside.WithLockTimeout(time.Duration(c.config.Access.LockTimeout)),
		cacheaside.WithFetchTimeout(time.Duration(c.config.Access.FetchTimeout)),
		cacheaside.WithLogger(c.logger),
	}
}

// Migrate creates any missing tables of the bank schema.
func (c *Container) Migrate(ctx context.Context) error {
	return bunstore.CreateSchema(ctx, c.db)
}

// Bank returns the bank services.
func (c *Container) Bank() *bank.Services {
	return c.bank
}

// Store returns the shared cache store.
func (c *Container) Store() cache.Store {
	return c.store
}

// DB returns the bun database the bank services write through.
func (c *Container) DB() *bun.DB {
	return c.db
}

// Logger returns the logger selected by the log configuration.
func (c *Container) Logger() logging.Logger {
	return c.logger
}

// KeySerializer returns the serializer for callers that build their own keys
// against the shared store.
func (c *Container) KeySerializer() cache.KeySerializer {
	return c.keySerializer
}

// Config returns the configuration the container was built from.
func (c *Container) Config() config.Config {
	return c.config
}

// Close releases the store and the database.
func (c *Container) Close(ctx context.Context) error {
	var errs []error
	if err := c.store.Close(ctx); err != nil {
		errs = append(errs, fmt.Errorf("close cache store: %w", err))
	}
	if err := c.db.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close database: %w", err))
	}
	if s, ok := c.logger.(interface{ Sync() error }); ok {
		_ = s.Sync()
	}
	return errors.Join(errs...)
}

// NewCachedService builds a cache-aside service for source on the
// container's store, with the container's access settings applied before
// opts.
//
// Since Go methods cannot have type parameters, this is a package-level function.
// Example: NewCachedService[domain.Card](container, bunstore.NewSource[domain.Card](container.DB()))
func NewCachedService[T domain.Entity](c *Container, source persistence.Source[T], opts ...cacheaside.Option) *cacheaside.Service[T] {
	all := append(c.accessOptions(c.config.CacheConfig().EntryOptions()), opts...)
	return cacheaside.New(source, c.store, all...)
}

// NewRepositoryService is NewCachedService for an existing go-repository-bun
// repository. repobun.NewRepository builds one for the integer keyed models.
func NewRepositoryService[T domain.Entity, PT persistence.EntityPtr[T]](c *Container, repo repository.Repository[PT], opts ...cacheaside.Option) *cacheaside.Service[T] {
	return NewCachedService(c, repobun.NewSource[T, PT](c.db, repo), opts...)
}
