package telemetry

import (
	"github.com/Borislavv/go-ash-segments/model"
)

// Sample is the state of one segment at collection time.
type Sample struct {
	Segment string
	Metrics model.Metrics
}

// Source lists the segments to report on. It must be safe to call from
// the telemetry goroutine.
type Source interface {
	Samples() []Sample
}

type sampler struct {
	src Source
}

func newSampler(src Source) sampler {
	return sampler{src: src}
}

// snapshot holds cumulative counters (monotonic) per segment.
type snapshot map[string]Sample

func (s sampler) snapshot() snapshot {
	samples := s.src.Samples()
	out := make(snapshot, len(samples))
	for _, smp := range samples {
		out[smp.Segment] = smp
	}
	return out
}

// deltaSnapshot converts cumulative snapshots to per-interval deltas.
// Segments absent from prev (new or replaced) report their totals, and
// if counters reset (cur < prev), cur is taken as the delta.
func deltaSnapshot(prev, cur snapshot) snapshot {
	out := make(snapshot, len(cur))
	for name, c := range cur {
		p := prev[name].Metrics
		d := c
		d.Metrics = model.Metrics{
			Adds:          delta(p.Adds, c.Metrics.Adds),
			Overwrites:    delta(p.Overwrites, c.Metrics.Overwrites),
			Hits:          delta(p.Hits, c.Metrics.Hits),
			Misses:        delta(p.Misses, c.Metrics.Misses),
			Removals:      delta(p.Removals, c.Metrics.Removals),
			Evictions:     delta(p.Evictions, c.Metrics.Evictions),
			Invalidations: delta(p.Invalidations, c.Metrics.Invalidations),
			Rejected:      delta(p.Rejected, c.Metrics.Rejected),
			ResolveMisses: delta(p.ResolveMisses, c.Metrics.ResolveMisses),
			Len:           c.Metrics.Len,
			Capacity:      c.Metrics.Capacity,
		}
		out[name] = d
	}
	return out
}

func delta(prev, cur int64) int64 {
	if cur >= prev {
		return cur - prev
	}
	return cur
}
