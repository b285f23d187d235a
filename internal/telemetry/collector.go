package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Collector exposes cumulative segment counters to Prometheus. Values are
// read at scrape time from the Source, so nothing is recorded on the hot path.
type Collector struct {
	src Source

	adds          *prometheus.Desc
	overwrites    *prometheus.Desc
	hits          *prometheus.Desc
	misses        *prometheus.Desc
	removals      *prometheus.Desc
	evictions     *prometheus.Desc
	invalidations *prometheus.Desc
	rejected      *prometheus.Desc
	resolveMisses *prometheus.Desc
	entries       *prometheus.Desc
	capacity      *prometheus.Desc
}

func NewCollector(namespace string, src Source) *Collector {
	labels := []string{"segment"}
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, "segment", name), help, labels, nil)
	}
	return &Collector{
		src:           src,
		adds:          desc("adds_total", "Records inserted under a new key."),
		overwrites:    desc("overwrites_total", "Records replaced through an overwriting add."),
		hits:          desc("hits_total", "Keyed reads that found a record."),
		misses:        desc("misses_total", "Keyed reads of an absent key."),
		removals:      desc("removals_total", "Records removed explicitly."),
		evictions:     desc("evictions_total", "Least recently used records evicted to admit a new one."),
		invalidations: desc("invalidations_total", "Records removed by fetch-count or predicate invalidation."),
		rejected:      desc("rejected_total", "Adds refused because the segment was full."),
		resolveMisses: desc("resolve_misses_total", "Partial references returned as raw keys."),
		entries:       desc("entries", "Records currently stored."),
		capacity:      desc("capacity", "Configured capacity, -1 when unbounded."),
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range c.descs() {
		ch <- d
	}
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	for _, smp := range c.src.Samples() {
		m := smp.Metrics
		counter := func(d *prometheus.Desc, v int64) {
			ch <- prometheus.MustNewConstMetric(d, prometheus.CounterValue, float64(v), smp.Segment)
		}
		counter(c.adds, m.Adds)
		counter(c.overwrites, m.Overwrites)
		counter(c.hits, m.Hits)
		counter(c.misses, m.Misses)
		counter(c.removals, m.Removals)
		counter(c.evictions, m.Evictions)
		counter(c.invalidations, m.Invalidations)
		counter(c.rejected, m.Rejected)
		counter(c.resolveMisses, m.ResolveMisses)
		ch <- prometheus.MustNewConstMetric(c.entries, prometheus.GaugeValue, float64(m.Len), smp.Segment)
		ch <- prometheus.MustNewConstMetric(c.capacity, prometheus.GaugeValue, float64(max(m.Capacity, -1)), smp.Segment)
	}
}

func (c *Collector) descs() []*prometheus.Desc {
	return []*prometheus.Desc{
		c.adds, c.overwrites, c.hits, c.misses, c.removals, c.evictions,
		c.invalidations, c.rejected, c.resolveMisses, c.entries, c.capacity,
	}
}
