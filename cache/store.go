package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goliatone/go-bankcache/internal/cacheinfra"
	"github.com/vmihailenco/msgpack/v5"
)

// EntryOptions sets the sliding window, absolute lifetime and size weight of
// one cached entry.
type EntryOptions = cacheinfra.EntryOptions

// RawValue is an encoded payload from a store shared across processes.
// Lookup decodes it into the requested type.
type RawValue = cacheinfra.RawValue

// Clock supplies the time used for expiration.
type Clock = cacheinfra.Clock

// ErrInvalidResultType is returned when a cached value cannot be converted to
// the type the caller asked for.
var ErrInvalidResultType = errors.New("cached value has unexpected type")

// ErrPrefixUnsupported is returned by RemovePrefix on stores that cannot list keys.
var ErrPrefixUnsupported = cacheinfra.ErrPrefixUnsupported

// DefaultEntryOptions returns a 30s sliding window, a 30s absolute lifetime
// and a size weight of 1024.
func DefaultEntryOptions() EntryOptions {
	return EntryOptions{
		Sliding:  30 * time.Second,
		Absolute: 30 * time.Second,
		Size:     1024,
	}
}

// Store is a key-value cache with per-entry expiration.
type Store interface {
	// Lookup returns the value stored under key. A miss is (nil, false, nil).
	Lookup(ctx context.Context, key string) (any, bool, error)
	Insert(ctx context.Context, key string, value any, opts EntryOptions) error
	// Remove deletes keys. Missing keys are ignored.
	Remove(ctx context.Context, keys ...string) error
	Close(ctx context.Context) error
}

// TTLCeiling is implemented by stores whose backend evicts every entry after
// one fixed lifetime. Entries asking for a longer absolute lifetime are cut
// to it.
type TTLCeiling interface {
	MaxEntryTTL() time.Duration
}

// PrefixRemover is implemented by stores that can drop every key under a prefix.
type PrefixRemover interface {
	RemovePrefix(ctx context.Context, prefix string) error
}

// Lookup reads key from store as a T. Values written by another process come
// back as RawValue and are decoded with msgpack.
func Lookup[T any](ctx context.Context, store Store, key string) (T, bool, error) {
	var zero T

	value, ok, err := store.Lookup(ctx, key)
	if err != nil || !ok {
		return zero, false, err
	}

	switch v := value.(type) {
	case T:
		return v, true, nil
	case RawValue:
		var out T
		if err := msgpack.Unmarshal(v, &out); err != nil {
			return zero, false, fmt.Errorf("%w: decode %q: %v", ErrInvalidResultType, key, err)
		}
		return out, true, nil
	case nil:
		return zero, true, nil
	default:
		return zero, false, fmt.Errorf("%w: %q holds %T", ErrInvalidResultType, key, value)
	}
}
