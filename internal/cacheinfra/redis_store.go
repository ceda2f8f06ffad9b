package cacheinfra

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/vmihailenco/msgpack/v5"
)

// redisEnvelope is the stored form of an entry. Deadline is unix millis,
// zero when there is no absolute expiration.
type redisEnvelope struct {
	Payload  []byte `msgpack:"p"`
	Deadline int64  `msgpack:"d"`
	Sliding  int64  `msgpack:"s"`
}

// redisStore keeps msgpack-encoded envelopes in redis. Sliding expiration is
// the key's PX TTL, refreshed on every hit; the absolute deadline travels in
// the envelope and caps each refresh.
type redisStore struct {
	client redis.UniversalClient
	prefix string
	clock  Clock
}

// NewRedisStore connects to the configured server.
func NewRedisStore(cfg Config) (*redisStore, error) {
	cfg.Backend = BackendRedis
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	return NewRedisStoreWithClient(client, cfg), nil
}

// NewRedisStoreWithClient wraps an existing client.
func NewRedisStoreWithClient(client redis.UniversalClient, cfg Config) *redisStore {
	return &redisStore{client: client, prefix: cfg.Redis.Prefix, clock: cfg.clock()}
}

func (s *redisStore) key(k string) string {
	return s.prefix + k
}

func (s *redisStore) Lookup(ctx context.Context, key string) (any, bool, error) {
	k := s.key(key)
	data, err := s.client.Get(ctx, k).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get %s: %w", k, err)
	}

	var env redisEnvelope
	if err := msgpack.Unmarshal(data, &env); err != nil {
		return nil, false, fmt.Errorf("decode envelope %s: %w", k, err)
	}

	now := s.clock.Now()
	if env.Deadline > 0 && now.UnixMilli() >= env.Deadline {
		if err := s.client.Del(ctx, k).Err(); err != nil {
			return nil, false, fmt.Errorf("redis del %s: %w", k, err)
		}
		return nil, false, nil
	}

	if env.Sliding > 0 {
		ttl := time.Duration(env.Sliding) * time.Millisecond
		if env.Deadline > 0 {
			ttl = min(ttl, time.Duration(env.Deadline-now.UnixMilli())*time.Millisecond)
		}
		if err := s.client.PExpire(ctx, k, ttl).Err(); err != nil {
			return nil, false, fmt.Errorf("redis pexpire %s: %w", k, err)
		}
	}

	return RawValue(env.Payload), true, nil
}

func (s *redisStore) Insert(ctx context.Context, key string, value any, opts EntryOptions) error {
	payload, ok := value.(RawValue)
	if !ok {
		var err error
		payload, err = msgpack.Marshal(value)
		if err != nil {
			return fmt.Errorf("encode %s: %w", key, err)
		}
	}

	now := s.clock.Now()
	env := redisEnvelope{Payload: payload, Sliding: opts.Sliding.Milliseconds()}
	if opts.Absolute > 0 {
		env.Deadline = now.Add(opts.Absolute).UnixMilli()
	}
	data, err := msgpack.Marshal(&env)
	if err != nil {
		return fmt.Errorf("encode envelope %s: %w", key, err)
	}

	k := s.key(key)
	if err := s.client.Set(ctx, k, data, redisTTL(opts)).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", k, err)
	}
	return nil
}

// redisTTL is the initial key TTL: the shorter non-zero expiration, or none.
func redisTTL(opts EntryOptions) time.Duration {
	switch {
	case opts.Sliding > 0 && opts.Absolute > 0:
		return min(opts.Sliding, opts.Absolute)
	case opts.Sliding > 0:
		return opts.Sliding
	default:
		return opts.Absolute
	}
}

func (s *redisStore) Remove(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	prefixed := make([]string, len(keys))
	for i, k := range keys {
		prefixed[i] = s.key(k)
	}
	if err := s.client.Del(ctx, prefixed...).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// RemovePrefix scans for keys under prefix and deletes them in batches.
func (s *redisStore) RemovePrefix(ctx context.Context, prefix string) error {
	var cursor uint64
	match := s.key(prefix) + "*"
	for {
		keys, next, err := s.client.Scan(ctx, cursor, match, 100).Result()
		if err != nil {
			return fmt.Errorf("redis scan %s: %w", match, err)
		}
		if len(keys) > 0 {
			if err := s.client.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("redis del: %w", err)
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}

func (s *redisStore) Close(ctx context.Context) error {
	return s.client.Close()
}
