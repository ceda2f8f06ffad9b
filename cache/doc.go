// Package cache is the storage side of the cache-aside services.
//
// A Store holds opaque values under string keys with a sliding window, an
// absolute lifetime and a size weight per entry (EntryOptions). NewStore picks
// the backend from Config:
//
//   - sturdyc: sharded in-process cache bounded by entry count (default)
//   - ristretto: in-process cache bounded by summed entry size
//   - redis: shared store; values are msgpack-encoded and come back as RawValue
//
// Use Lookup to read a typed value regardless of backend:
//
//	accounts, ok, err := cache.Lookup[[]domain.Account](ctx, store, "accounts::list")
//
// In-process backends evaluate expiration against Config.Clock, which tests
// replace with a fake to step past the 30 second defaults without sleeping.
//
// KeySerializer builds keys as method::arg::arg. Scalars are written verbatim,
// maps and structs are reduced to an xxhash digest of their msgpack encoding,
// and keys past the length limit have their argument part hashed. Function
// arguments are keyed by pointer and are only stable within one process.
package cache
