package model

// Metrics is a point-in-time copy of a segment's cumulative counters.
type Metrics struct {
	Adds          int64
	Overwrites    int64
	Hits          int64
	Misses        int64
	Removals      int64
	Evictions     int64
	Invalidations int64
	// Rejected counts adds refused because the segment was full.
	Rejected int64
	// ResolveMisses counts partial references left as raw keys.
	ResolveMisses int64
	Len           int64
	// Capacity is the configured limit, negative when unbounded.
	Capacity int64
}

// Predicate tests a stored record before any projection or resolution.
type Predicate func(r *Record) bool
