package ashsegments

import (
	"iter"

	"github.com/Borislavv/go-ash-segments/internal/segment"
	"github.com/Borislavv/go-ash-segments/model"
	"github.com/Borislavv/go-ash-segments/schema"
)

// Segment is a named, capacity-bounded, access-ordered cache of records
// sharing one schema. The most recently used record is the first one in
// every ordered view (Iterate, Keys, Search results); the least recently
// used one is the eviction victim.
//
// A Segment is not safe for concurrent use.
type Segment interface {
	Name() string
	Schema() *schema.Handle
	Capacity() int
	EvictOnFull() bool
	Len() int

	// Add inserts or, with overwrite, replaces a record.
	Add(src model.FieldSource, overwrite bool) error
	// Get reads a record, moving it to the MRU end and counting the fetch.
	Get(key any, opts ...model.Option) (model.Result, error)
	Remove(key any, opts ...model.Option) (model.Result, error)
	Update(key any, fields model.Fields) error
	// View is Get without recency, fetch counting or target side effects.
	View(key any, opts ...model.Option) (model.Result, error)
	// Peek and Contains read without any side effect.
	Peek(key any) (*model.Record, bool)
	Contains(key any) bool

	Search(pred model.Predicate, opts ...model.Option) ([]model.Result, error)
	SearchPattern(expr string, opts ...model.Option) ([]model.Result, error)
	InvalidateAll(pred model.Predicate, limit int) []*model.Record
	Clear()

	Iterate() iter.Seq[*model.Record]
	Newest(limit int) iter.Seq[*model.Record]
	Oldest(limit int) iter.Seq[*model.Record]
	First() (*model.Record, bool)
	Last() (*model.Record, bool)
	Keys() []any
	InvalidatedLast() bool

	Configure(capacity int, evictOnFull bool)
	Metrics() model.Metrics
}

var _ Segment = (*segment.Segment)(nil)
