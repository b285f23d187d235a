// Package segment implements the segment cache engine: a named,
// capacity-bounded, access-ordered store of records sharing one schema.
//
// A Segment performs no internal locking. Every public call is a direct,
// synchronous transformation of in-memory state; hosts that need concurrent
// access must serialize calls per segment. All failure checks precede
// mutation, so a failed call leaves the segment untouched.
package segment

import (
	"container/list"
	"iter"
	"log/slog"
	"maps"

	"github.com/Borislavv/go-ash-segments/config"
	"github.com/Borislavv/go-ash-segments/model"
	"github.com/Borislavv/go-ash-segments/schema"
)

// Resolver is the narrow capability a segment uses to dereference partial
// references into sibling segments. Both lookups report false when the
// referenced record cannot be produced; the raw key is kept in that case.
type Resolver interface {
	// Resolve reads the target through its public read path, so the target's
	// recency and invalidation apply.
	Resolve(segment string, key any, p model.Projection) (model.Result, bool)
	// Peek shapes the target without moving it or counting the fetch, and
	// resolves its own references the same way.
	Peek(segment string, key any, p model.Projection) (model.Result, bool)
	// Enter marks a record as being read by the current call chain. Resolution
	// never re-enters a marked record. The returned func releases the mark.
	Enter(segment string, key any) (leave func())
}

type Segment struct {
	name        string
	schema      *schema.Handle
	capacity    int
	evictOnFull bool
	resolver    Resolver
	logger      *slog.Logger
	store       *store
	counters    *counters

	invalidatedLast bool
}

// New builds an empty segment. resolver may be nil, in which case partial
// references are always returned raw.
func New(cfg *config.SegmentCfg, h *schema.Handle, resolver Resolver, logger *slog.Logger) (*Segment, error) {
	if cfg == nil || cfg.Name == "" {
		return nil, model.Configf("segment name is empty")
	}
	if h == nil {
		return nil, model.Configf("segment %s: no schema bound", cfg.Name)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Segment{
		name:        cfg.Name,
		schema:      h,
		capacity:    cfg.Capacity,
		evictOnFull: cfg.IsEvictOnFull,
		resolver:    resolver,
		logger:      logger,
		store:       newStore(),
		counters:    newCounters(cfg.Capacity),
	}, nil
}

func (s *Segment) Name() string           { return s.name }
func (s *Segment) Schema() *schema.Handle { return s.schema }
func (s *Segment) Capacity() int          { return s.capacity }
func (s *Segment) EvictOnFull() bool      { return s.evictOnFull }
func (s *Segment) Len() int               { return int(s.store.Len()) }
func (s *Segment) InvalidatedLast() bool  { return s.invalidatedLast }
func (s *Segment) SetResolver(r Resolver) { s.resolver = r }
func (s *Segment) Metrics() model.Metrics {
	m := s.counters.snapshot()
	m.Len = s.store.Len()
	return m
}

// Bind rebinds the segment to another registered schema. Stored records are
// not re-validated against it.
func (s *Segment) Bind(h *schema.Handle) error {
	if h == nil {
		return model.Configf("segment %s: nil schema", s.name)
	}
	s.schema = h
	s.logger.Info("segment schema rebound", "segment", s.name, "schema", h.Name())
	return nil
}

// Configure changes capacity and eviction policy. Shrinking the capacity does
// not evict anything until the next insert of a new key, which evicts down
// to the new capacity (or fails when eviction is off).
func (s *Segment) Configure(capacity int, evictOnFull bool) {
	s.capacity = capacity
	s.evictOnFull = evictOnFull
	s.counters.capacity.Store(int64(capacity))
}

// Add stores a record built from src under its lookup key at the MRU end.
// An existing key fails with ErrDuplicateKey unless overwrite is set, in
// which case the record is replaced and its fetch counter reset. A new key
// on a full segment either evicts the LRU record first or fails with
// ErrCapacityExceeded, depending on the eviction policy.
func (s *Segment) Add(src model.FieldSource, overwrite bool) error {
	rec, err := s.schema.Conform(src)
	if err != nil {
		return err
	}
	raw := s.schema.Key(rec)
	k, ok := newKey(raw)
	if !ok {
		return model.Validationf("segment %s: key %v (%T) is not indexable", s.name, raw, raw)
	}

	if el, found := s.store.get(k); found {
		if !overwrite {
			return model.DuplicateKeyf("segment %s: key %v already exists", s.name, raw)
		}
		e := el.Value.(*entry)
		e.record = rec
		e.fetches = 0
		s.store.touch(el)
		s.counters.overwrites.Add(1)
		return nil
	}

	if s.isFull() {
		if !s.evictOnFull || s.capacity == 0 {
			s.counters.rejected.Add(1)
			return model.CapacityExceededf("segment %s: capacity %d reached", s.name, s.capacity)
		}
		// a shrunk capacity is restored in one go
		for s.isFull() {
			victim, evicted := s.store.popTail()
			if !evicted {
				break
			}
			s.counters.evictions.Add(1)
			s.logger.Debug("segment evicted lru record", "segment", s.name, "key", victim.raw)
		}
	}

	s.store.pushFront(&entry{key: k, raw: raw, record: rec})
	s.counters.adds.Add(1)
	return nil
}

// Get reads a record by key. On a hit its partial references are resolved,
// the projection is applied, the record moves to the MRU end and, if the
// schema sets an invalidation threshold, the fetch counter is advanced; the
// read that reaches the threshold removes the record but still returns it.
// References into this same segment are resolved without side effects, so
// only the read key moves and only its fetch is counted.
//
// On a miss the result is Defaulted when WithDefault was given, otherwise
// Missing together with an ErrNotFound error.
func (s *Segment) Get(key any, opts ...model.Option) (model.Result, error) {
	o := model.NewOptions(opts...)

	el, found := s.lookup(key)
	if !found {
		s.counters.misses.Add(1)
		return s.miss(key, o)
	}
	if err := s.checkProjection(o); err != nil {
		return model.Result{}, err
	}

	e := el.Value.(*entry)
	if s.resolver != nil && s.schema.HasPartials() {
		leave := s.resolver.Enter(s.name, e.raw)
		defer leave()
	}
	res := s.view(e.record, o.Projection, o.Exclude, false)
	s.store.touch(el)
	s.counters.hits.Add(1)

	s.invalidatedLast = false
	if threshold, enabled := s.schema.InvalidateAfter(); enabled {
		e.fetches++
		if e.fetches >= threshold && s.store.remove(el) {
			res.Invalidated = true
			s.invalidatedLast = true
			s.counters.invalidations.Add(1)
			s.logger.Debug("segment invalidated record", "segment", s.name, "key", e.raw, "fetches", e.fetches)
		}
	}

	return res, nil
}

// View reads a record like Get but without any side effect: the record is
// not moved, its fetch is not counted and references are resolved through
// side-effect-free lookups. A miss is reported like in Get.
func (s *Segment) View(key any, opts ...model.Option) (model.Result, error) {
	o := model.NewOptions(opts...)
	el, found := s.lookup(key)
	if !found {
		return s.miss(key, o)
	}
	if err := s.checkProjection(o); err != nil {
		return model.Result{}, err
	}
	return s.view(el.Value.(*entry).record, o.Projection, o.Exclude, true), nil
}

// Peek returns the stored record without any side effect: no recency move,
// no fetch counting and no partial resolution.
func (s *Segment) Peek(key any) (*model.Record, bool) {
	el, found := s.lookup(key)
	if !found {
		return nil, false
	}
	return el.Value.(*entry).record, true
}

// Contains reports key presence without side effects.
func (s *Segment) Contains(key any) bool {
	_, found := s.lookup(key)
	return found
}

// Remove deletes a record and returns it. A miss yields the default when one
// was supplied, otherwise ErrNotFound. Projection options are ignored.
func (s *Segment) Remove(key any, opts ...model.Option) (model.Result, error) {
	el, found := s.lookup(key)
	if !found {
		return s.miss(key, model.NewOptions(opts...))
	}
	e := el.Value.(*entry)
	s.store.remove(el)
	s.counters.removals.Add(1)
	return model.Result{Status: model.Found, Record: e.record}, nil
}

// Update merges fields into the stored record. It behaves as Get(key)
// (recency move and fetch counting included) followed by storing a freshly
// validated record back under the same key. The lookup key cannot change.
// Validation happens before any side effect.
func (s *Segment) Update(key any, fields model.Fields) error {
	el, found := s.lookup(key)
	if !found {
		s.counters.misses.Add(1)
		return model.NotFoundf("segment %s: key %v", s.name, key)
	}
	e := el.Value.(*entry)

	lookupField := s.schema.LookupField()
	if v, ok := fields[lookupField]; ok {
		nk, err := s.schema.NormalizeKey(v)
		if err != nil || nk != e.raw {
			return model.Validationf("segment %s: lookup field %s is immutable", s.name, lookupField)
		}
	}

	merged := e.record.Fields()
	maps.Copy(merged, fields)
	rec, err := s.schema.Conform(merged)
	if err != nil {
		return err
	}

	if _, err = s.Get(key); err != nil {
		return err
	}

	if cur, ok := s.store.get(e.key); ok && cur == el {
		e.record = rec
		return nil
	}
	// the read above consumed the last allowed fetch; store the update back as a fresh record
	s.store.pushFront(&entry{key: e.key, raw: e.raw, record: rec})
	return nil
}

// Clear drops every record and resets per-call state.
func (s *Segment) Clear() {
	items := s.store.clear()
	s.invalidatedLast = false
	s.logger.Debug("segment cleared", "segment", s.name, "items", items)
}

// Iterate yields stored records from the MRU end to the LRU end. The
// sequence is lazy and restartable. It has no recency side effects; the
// segment must not be mutated while a range over it is in progress.
func (s *Segment) Iterate() iter.Seq[*model.Record] {
	return s.Newest(-1)
}

// Newest yields up to limit records starting from the most recently used.
// A non-positive limit yields every record.
func (s *Segment) Newest(limit int) iter.Seq[*model.Record] {
	return s.records(false, limit)
}

// Oldest yields up to limit records starting from the least recently used.
// A non-positive limit yields every record.
func (s *Segment) Oldest(limit int) iter.Seq[*model.Record] {
	return s.records(true, limit)
}

// First returns the most recently used record.
func (s *Segment) First() (*model.Record, bool) {
	if e, ok := s.store.peekHead(); ok {
		return e.record, true
	}
	return nil, false
}

// Last returns the least recently used record, the next eviction victim.
func (s *Segment) Last() (*model.Record, bool) {
	if e, ok := s.store.peekTail(); ok {
		return e.record, true
	}
	return nil, false
}

// Keys returns the lookup keys in MRU->LRU order.
func (s *Segment) Keys() []any {
	keys := make([]any, 0, s.store.Len())
	s.store.walk(false, func(el *list.Element) bool {
		keys = append(keys, el.Value.(*entry).raw)
		return true
	})
	return keys
}

func (s *Segment) records(fromTail bool, limit int) iter.Seq[*model.Record] {
	return func(yield func(*model.Record) bool) {
		n := 0
		s.store.walk(fromTail, func(el *list.Element) bool {
			if limit > 0 && n >= limit {
				return false
			}
			n++
			return yield(el.Value.(*entry).record)
		})
	}
}

func (s *Segment) isFull() bool {
	return s.capacity >= 0 && s.store.Len() >= int64(s.capacity)
}

// lookup normalizes and hashes a caller key. Keys that cannot fit the lookup
// field cannot be stored either, so they are plain misses.
func (s *Segment) lookup(key any) (*list.Element, bool) {
	raw, err := s.schema.NormalizeKey(key)
	if err != nil {
		return nil, false
	}
	k, ok := newKey(raw)
	if !ok {
		return nil, false
	}
	return s.store.get(k)
}

func (s *Segment) miss(key any, o model.Options) (model.Result, error) {
	if o.HasDefault {
		return model.Result{Status: model.Defaulted, Default: o.Default}, nil
	}
	return model.Result{Status: model.Missing}, model.NotFoundf("segment %s: key %v", s.name, key)
}
