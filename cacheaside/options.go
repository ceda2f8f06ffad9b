package cacheaside

import (
	"context"
	"time"

	"github.com/goliatone/go-bankcache/cache"
	"github.com/goliatone/go-bankcache/logging"
)

const (
	// DefaultLockTimeout bounds the wait for another caller's refill.
	DefaultLockTimeout = 10 * time.Second
	// DefaultFetchTimeout bounds a single gateway read.
	DefaultFetchTimeout = 10 * time.Second
)

// Invalidator drops every cache entry a service owns. Services list the
// invalidators that derive data from their entities as dependents.
type Invalidator interface {
	InvalidateAll(ctx context.Context)
}

// Option configures a Service.
type Option func(*options)

type options struct {
	entry        cache.EntryOptions
	lockTimeout  time.Duration
	fetchTimeout time.Duration
	logger       logging.Logger
	dependents   []Invalidator
	namespace    string
	maxKeyLength int
}

func defaultOptions() options {
	return options{
		entry:        cache.DefaultEntryOptions(),
		lockTimeout:  DefaultLockTimeout,
		fetchTimeout: DefaultFetchTimeout,
		logger:       logging.Nop{},
		maxKeyLength: 250,
	}
}

// WithEntryOptions sets expiration and size weight for every entry the
// service writes. On a store with a fixed lifetime (cache.TTLCeiling) an
// Absolute above that lifetime is clamped to it when the service is built.
func WithEntryOptions(opts cache.EntryOptions) Option {
	return func(o *options) { o.entry = opts }
}

// WithLockTimeout bounds the wait for the refill lock. Zero waits until the
// caller's context ends.
func WithLockTimeout(d time.Duration) Option {
	return func(o *options) { o.lockTimeout = d }
}

// WithFetchTimeout bounds each gateway read. Zero disables the bound.
func WithFetchTimeout(d time.Duration) Option {
	return func(o *options) { o.fetchTimeout = d }
}

// WithLogger sets the logger. A nil logger discards output.
func WithLogger(l logging.Logger) Option {
	return func(o *options) { o.logger = logging.OrNop(l) }
}

// WithDependents registers invalidators to run after every successful
// mutation or explicit invalidation.
func WithDependents(deps ...Invalidator) Option {
	return func(o *options) { o.dependents = append(o.dependents, deps...) }
}

// WithNamespace overrides the key prefix derived from the entity type name.
func WithNamespace(ns string) Option {
	return func(o *options) { o.namespace = ns }
}

// WithMaxKeyLength sets the length past which query arguments are hashed.
func WithMaxKeyLength(n int) Option {
	return func(o *options) { o.maxKeyLength = n }
}
