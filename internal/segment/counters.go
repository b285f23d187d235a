package segment

import (
	"sync/atomic"

	"github.com/Borislavv/go-ash-segments/model"
)

// counters are atomics so telemetry can sample them from its own goroutine.
type counters struct {
	adds          atomic.Int64
	overwrites    atomic.Int64
	hits          atomic.Int64
	misses        atomic.Int64
	removals      atomic.Int64
	evictions     atomic.Int64
	invalidations atomic.Int64
	rejected      atomic.Int64
	resolveMisses atomic.Int64
	capacity      atomic.Int64
}

func newCounters(capacity int) *counters {
	c := &counters{}
	c.capacity.Store(int64(capacity))
	return c
}

func (c *counters) snapshot() model.Metrics {
	return model.Metrics{
		Adds:          c.adds.Load(),
		Overwrites:    c.overwrites.Load(),
		Hits:          c.hits.Load(),
		Misses:        c.misses.Load(),
		Removals:      c.removals.Load(),
		Evictions:     c.evictions.Load(),
		Invalidations: c.invalidations.Load(),
		Rejected:      c.rejected.Load(),
		ResolveMisses: c.resolveMisses.Load(),
		Capacity:      c.capacity.Load(),
	}
}
