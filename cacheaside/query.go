package cacheaside

import (
	"context"

	"github.com/goliatone/go-bankcache/domain"
	"github.com/goliatone/go-bankcache/result"
)

// Query caches the result of fetch under the service's namespace, keyed by
// name and args. Concurrent callers for the same key share one fetch. Cached
// query results are dropped by every successful mutation on s. A fetch that
// reports found=false gives a KindNotFound failure that is not cached.
func Query[T domain.Entity, V any](ctx context.Context, s *Service[T], name string, fetch func(context.Context) (V, bool, error), args ...any) (out result.Outcome[V]) {
	defer recoverOutcome(s.log, "query "+name, &out)

	key := s.keys.SerializeKey("query", append([]any{name}, args...)...)
	return readThrough(ctx, s, key, kindQuery, "query "+name, fetch)
}
