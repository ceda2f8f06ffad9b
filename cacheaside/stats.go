package cacheaside

import "sync/atomic"

// Stats is a snapshot of a service's cache counters.
type Stats struct {
	Hits          int64
	Misses        int64
	Refills       int64
	Invalidations int64
	Failures      int64
}

type counters struct {
	hits          atomic.Int64
	misses        atomic.Int64
	refills       atomic.Int64
	invalidations atomic.Int64
	failures      atomic.Int64
}

func (c *counters) snapshot() Stats {
	return Stats{
		Hits:          c.hits.Load(),
		Misses:        c.misses.Load(),
		Refills:       c.refills.Load(),
		Invalidations: c.invalidations.Load(),
		Failures:      c.failures.Load(),
	}
}
