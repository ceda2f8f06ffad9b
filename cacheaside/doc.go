// Package cacheaside puts a read-through cache in front of a persistence
// gateway.
//
// A Service serves ListAll and GetByID from the cache store when an entry is
// present. On a miss the caller takes a lock for that key, checks the store
// again and only then reads the gateway, so concurrent callers cause a single
// gateway read per key:
//
//	accounts := cacheaside.New[domain.Account](
//		bunstore.NewSource[domain.Account](db),
//		store,
//		cacheaside.WithLogger(log),
//	)
//
//	out := accounts.ListAll(ctx)
//	if !out.IsSuccess() {
//		return out.Err()
//	}
//
// # Writes
//
// Add, Update and Delete open a fresh unit of work, stage the change and
// commit it. Cached entries for the entity are removed only once the commit
// succeeds, so a failed write leaves the cache as it was. Services registered
// with WithDependents are cleared after every successful write.
//
// # Failures
//
// Nothing is returned as a bare error. Gateway failures, timeouts, canceled
// contexts and recovered panics all become a failed result.Outcome whose Kind
// says which of them happened. A missing record is KindNotFound.
//
// # Derived reads
//
// Query caches any value computed from the gateway under the same locking
// rules. Query entries are dropped on every successful write of the service
// that owns them.
package cacheaside
