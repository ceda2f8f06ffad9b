// Package persistence defines the data-access contract the cache-aside layer is
// built on.
//
// A Gateway exposes list, lookup and staged write operations for one entity
// type. Staged writes take effect only when the UnitOfWork that the gateway was
// opened with completes, so callers layering caches on top can invalidate after
// the commit succeeds rather than after staging:
//
//	gw, uow, err := source.Open(ctx)
//	if err != nil {
//		return err
//	}
//	if _, err := gw.Add(ctx, &account); err != nil {
//		return err
//	}
//	if _, err := uow.Complete(ctx); err != nil {
//		return err
//	}
//	// account.AccountID is now populated
//
// Implementations live in subpackages: bunstore runs directly on uptrace/bun,
// repobun adapts a go-repository-bun Repository.
package persistence
