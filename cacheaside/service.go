package cacheaside

import (
	"context"
	"errors"
	"slices"
	"strconv"
	"time"

	"github.com/goliatone/go-bankcache/cache"
	"github.com/goliatone/go-bankcache/domain"
	"github.com/goliatone/go-bankcache/logging"
	"github.com/goliatone/go-bankcache/persistence"
	"github.com/goliatone/go-bankcache/result"
	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v3"
)

type keyKind uint8

const (
	kindList keyKind = iota
	kindID
	kindQuery
)

// Service is the cache-aside access layer for one entity type. Reads are
// served from the store when possible and refilled under a per-key lock, so
// at most one gateway read per key is in flight. Writes go through a fresh
// unit of work and invalidate the affected keys only after the commit
// succeeds. Every operation returns an Outcome; nothing panics or returns a
// bare error.
type Service[T domain.Entity] struct {
	source persistence.Source[T]
	store  cache.Store
	keys   cache.KeySerializer
	opts   options
	log    logging.Logger

	entity    string
	namespace string

	locks   *keyedLocks
	tracked *xsync.MapOf[string, keyKind]
	stats   counters
}

// New builds a service reading through source and caching in store.
func New[T domain.Entity](source persistence.Source[T], store cache.Store, opts ...Option) *Service[T] {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	entity, namespace := entityNames[T]()
	if o.namespace != "" {
		namespace = o.namespace
	}
	log := logging.With(o.logger, logging.Fields{"entity": entity})

	if c, ok := store.(cache.TTLCeiling); ok {
		if ceiling := c.MaxEntryTTL(); ceiling > 0 && o.entry.Absolute > ceiling {
			log.Warn("absolute expiration clamped to store ceiling", logging.Fields{
				"requested": o.entry.Absolute.String(),
				"ceiling":   ceiling.String(),
			})
			o.entry.Absolute = ceiling
		}
	}

	return &Service[T]{
		source:    source,
		store:     store,
		keys:      cache.NewKeySerializer(cache.WithKeyPrefix(namespace), cache.WithMaxKeyLength(o.maxKeyLength)),
		opts:      o,
		log:       log,
		entity:    entity,
		namespace: namespace,
		locks:     newKeyedLocks(),
		tracked:   xsync.NewMapOf[string, keyKind](),
	}
}

// Namespace is the prefix of every key this service writes.
func (s *Service[T]) Namespace() string { return s.namespace }

// Stats returns the current counters.
func (s *Service[T]) Stats() Stats { return s.stats.snapshot() }

func (s *Service[T]) listKey() string {
	return s.keys.SerializeKey("list")
}

func (s *Service[T]) idKey(id int) string {
	return s.keys.SerializeKey("id", id)
}

// ListAll returns every entity, from cache when present.
func (s *Service[T]) ListAll(ctx context.Context) (out result.Outcome[[]T]) {
	defer recoverOutcome(s.log, "list", &out)

	o := readThrough(ctx, s, s.listKey(), kindList, "list "+s.namespace,
		func(ctx context.Context) ([]T, bool, error) {
			gw, _, err := s.source.Open(ctx)
			if err != nil {
				return nil, false, err
			}
			items, err := gw.GetAll(ctx)
			return items, err == nil, err
		})
	return result.Map(o, func(items []T) []T { return slices.Clone(items) })
}

// GetByID returns the entity with id. A missing entity is a KindNotFound
// failure and is not cached.
func (s *Service[T]) GetByID(ctx context.Context, id int) (out result.Outcome[T]) {
	defer recoverOutcome(s.log, "get", &out)

	return readThrough(ctx, s, s.idKey(id), kindID, "get "+s.entity+" "+strconv.Itoa(id),
		func(ctx context.Context) (T, bool, error) {
			gw, _, err := s.source.Open(ctx)
			if err != nil {
				var zero T
				return zero, false, err
			}
			entity, found, err := gw.GetByID(ctx, id)
			if err == nil && !found {
				err = s.notFound(id)
			}
			return entity, found, err
		})
}

// Add validates and stores entity, then drops the cached list. The returned
// entity carries its generated id.
func (s *Service[T]) Add(ctx context.Context, entity T) (out result.Outcome[T]) {
	defer recoverOutcome(s.log, "add", &out)

	if err := validate(entity); err != nil {
		return result.Failure[T](result.KindValidation, err.Error())
	}

	gw, uow, err := s.source.Open(ctx)
	if err != nil {
		return failed[T](s, "add", err)
	}
	added, err := gw.Add(ctx, &entity)
	if err != nil {
		return failed[T](s, "add", err)
	}
	if _, err := uow.Complete(ctx); err != nil {
		return failed[T](s, "add", err)
	}
	if added != nil {
		entity = *added
	}

	s.invalidate(ctx, "add", entity.EntityID())
	return result.Success(entity)
}

// Update replaces the entity with id. The id must match the entity's own.
func (s *Service[T]) Update(ctx context.Context, id int, entity T) (out result.Outcome[bool]) {
	defer recoverOutcome(s.log, "update", &out)

	if id != entity.EntityID() {
		return result.Failure[bool](result.KindValidation, "ID mismatch")
	}
	if err := validate(entity); err != nil {
		return result.Failure[bool](result.KindValidation, err.Error())
	}

	gw, uow, err := s.source.Open(ctx)
	if err != nil {
		return failed[bool](s, "update", err)
	}
	if _, err := gw.Update(ctx, id, entity); err != nil {
		return failed[bool](s, "update", err)
	}
	if _, err := uow.Complete(ctx); err != nil {
		return failed[bool](s, "update", err)
	}

	s.invalidate(ctx, "update", id)
	return result.Success(true)
}

// Delete removes the entity with id. A missing entity is a KindNotFound
// failure and nothing is staged.
func (s *Service[T]) Delete(ctx context.Context, id int) (out result.Outcome[bool]) {
	defer recoverOutcome(s.log, "delete", &out)

	gw, uow, err := s.source.Open(ctx)
	if err != nil {
		return failed[bool](s, "delete", err)
	}
	entity, found, err := gw.GetByID(ctx, id)
	if err != nil {
		return failed[bool](s, "delete", err)
	}
	if !found {
		return failure[bool](s.notFound(id))
	}
	if err := gw.Delete(ctx, entity); err != nil {
		return failed[bool](s, "delete", err)
	}
	if _, err := uow.Complete(ctx); err != nil {
		return failed[bool](s, "delete", err)
	}

	s.invalidate(ctx, "delete", id)
	return result.Success(true)
}

// Invalidate drops the list, the given ids and every cached query, then
// notifies dependents.
func (s *Service[T]) Invalidate(ctx context.Context, ids ...int) {
	s.invalidate(ctx, "invalidate", ids...)
}

// InvalidateAll drops every entry this service wrote. Dependents are not
// notified so mutually dependent services cannot loop.
func (s *Service[T]) InvalidateAll(ctx context.Context) {
	ctx = context.WithoutCancel(ctx)
	keys := []string{s.listKey()}
	s.tracked.Range(func(key string, _ keyKind) bool {
		keys = append(keys, key)
		return true
	})
	s.drop(ctx, keys)

	if pr, ok := s.store.(cache.PrefixRemover); ok {
		err := pr.RemovePrefix(ctx, s.namespace+cache.KeySeparator)
		if err != nil && !errors.Is(err, cache.ErrPrefixUnsupported) {
			s.log.Warn("prefix removal failed", logging.Fields{"error": err})
		}
	}
	s.stats.invalidations.Add(1)
	s.log.Info("cache cleared", logging.Fields{"keys": len(keys)})
}

func (s *Service[T]) invalidate(ctx context.Context, op string, ids ...int) {
	// a commit has already happened; a canceled caller must not skip this
	ctx = context.WithoutCancel(ctx)

	keys := []string{s.listKey()}
	for _, id := range ids {
		keys = append(keys, s.idKey(id))
	}
	s.tracked.Range(func(key string, kind keyKind) bool {
		if kind == kindQuery {
			keys = append(keys, key)
		}
		return true
	})
	s.drop(ctx, keys)
	s.stats.invalidations.Add(1)
	s.log.Info("cache invalidated", logging.Fields{"op": op, "keys": len(keys)})

	for _, dep := range s.opts.dependents {
		dep.InvalidateAll(ctx)
	}
}

func (s *Service[T]) drop(ctx context.Context, keys []string) {
	for _, key := range keys {
		s.tracked.Delete(key)
	}
	if err := s.store.Remove(ctx, keys...); err != nil {
		s.log.Warn("cache remove failed", logging.Fields{"keys": keys, "error": err})
	}
}

func (s *Service[T]) notFound(id int) error {
	return &persistence.NotFoundError{Entity: s.entity, ID: id}
}

// failed counts and logs err before converting it to an Outcome.
func failed[V any, T domain.Entity](s *Service[T], op string, err error) result.Outcome[V] {
	out := failure[V](err)
	s.stats.failures.Add(1)
	s.log.Error(op+" failed", logging.Fields{"kind": out.Kind().String(), "error": err})
	return out
}

func validate(entity any) error {
	if v, ok := entity.(domain.Validatable); ok {
		return v.Validate()
	}
	return nil
}

// readThrough is the double-checked refill: an unlocked lookup, then the
// per-key lock, a second lookup, and only then the guarded fetch.
func readThrough[T domain.Entity, V any](
	ctx context.Context,
	s *Service[T],
	key string,
	kind keyKind,
	op string,
	fetch func(context.Context) (V, bool, error),
) result.Outcome[V] {
	if v, ok := lookup[V](ctx, s, key); ok {
		s.stats.hits.Add(1)
		s.log.Debug("cache hit", logging.Fields{"key": key})
		return result.Success(v)
	}
	s.stats.misses.Add(1)

	release, err := s.locks.acquire(ctx, key, s.opts.lockTimeout)
	if err != nil {
		s.stats.failures.Add(1)
		s.log.Warn("refill lock not acquired", logging.Fields{"key": key, "error": err})
		return failure[V](err)
	}
	defer release()

	if v, ok := lookup[V](ctx, s, key); ok {
		s.stats.hits.Add(1)
		s.log.Debug("cache hit after wait", logging.Fields{"key": key})
		return result.Success(v)
	}

	refill := uuid.NewString()
	started := time.Now()
	s.log.Debug("refill started", logging.Fields{"key": key, "refill_id": refill})

	v, found, err := guard(ctx, op, s.opts.fetchTimeout, fetch)
	if err != nil {
		out := failure[V](err)
		if out.Kind() != result.KindNotFound {
			s.stats.failures.Add(1)
			s.log.Error("refill failed", logging.Fields{"key": key, "refill_id": refill, "kind": out.Kind().String(), "error": err})
		}
		return out
	}
	if !found {
		return result.Failure[V](result.KindNotFound, op+": not found")
	}

	if err := s.store.Insert(ctx, key, v, s.opts.entry); err != nil {
		s.log.Warn("cache insert failed", logging.Fields{"key": key, "refill_id": refill, "error": err})
	} else {
		s.tracked.Store(key, kind)
	}
	s.stats.refills.Add(1)
	s.log.Debug("refill finished", logging.Fields{"key": key, "refill_id": refill, "elapsed": time.Since(started).String()})
	return result.Success(v)
}

// lookup treats store errors as misses.
func lookup[V any, T domain.Entity](ctx context.Context, s *Service[T], key string) (V, bool) {
	v, ok, err := cache.Lookup[V](ctx, s.store, key)
	if err != nil {
		s.log.Warn("cache lookup failed", logging.Fields{"key": key, "error": err})
		var zero V
		return zero, false
	}
	return v, ok
}
