// Package ashsegments is an in-process, schema-aware record cache.
//
// Records are grouped in named segments. Every segment is bound to a
// registered schema, holds at most its capacity of records ordered by
// access, and may invalidate records after a number of reads. Reference
// fields of a schema are resolved on read against sibling segments of the
// same Manager.
package ashsegments

import (
	"context"
	"io"
	"iter"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/Borislavv/go-ash-segments/config"
	"github.com/Borislavv/go-ash-segments/driver"
	"github.com/Borislavv/go-ash-segments/internal/segment"
	"github.com/Borislavv/go-ash-segments/internal/telemetry"
	"github.com/Borislavv/go-ash-segments/model"
	"github.com/Borislavv/go-ash-segments/schema"
	"github.com/prometheus/client_golang/prometheus"
)

const defaultNamespace = "ash_segments"

type AshSegments interface {
	Segment(name string) (Segment, error)
	RegisterSchema(segment string, s schema.Schema) (*schema.Handle, error)
	PopulateFrom(ctx context.Context, name string, d driver.Driver, q driver.Query) (int, error)
	Export(ctx context.Context, name string, d driver.Driver, include, exclude []string) error
	io.Closer
}

// Manager is the registry of named segments. It also resolves partial
// references between its segments.
//
// The registry itself may be read from several goroutines (telemetry does),
// but segments are not synchronized: callers must serialize operations on a
// segment and on any segment its records reference.
type Manager struct {
	mu       sync.RWMutex
	cfg      *config.Manager
	logger   *slog.Logger
	segments map[string]*segment.Segment

	// resolving holds the records being read by the current call chain.
	rmu       sync.Mutex
	resolving map[ref]struct{}

	telemetry telemetry.Logger
	collector *telemetry.Collector
	cls       context.CancelFunc
}

type ref struct {
	segment string
	key     any
}

var _ AshSegments = (*Manager)(nil)

// New builds a Manager. Segments listed in cfg are created when their
// schema is registered. cfg may be nil.
func New(ctx context.Context, cfg *config.Manager, logger *slog.Logger) (*Manager, error) {
	if cfg == nil {
		cfg = &config.Manager{}
	}
	cfg.AdjustConfig()
	if err := cfg.Validate(); err != nil {
		return nil, model.Configf("%s", err.Error())
	}
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(ctx)
	m := &Manager{
		cfg:       cfg,
		logger:    logger,
		segments:  make(map[string]*segment.Segment, len(cfg.Segments)),
		resolving: make(map[ref]struct{}),
		cls:       cancel,
	}

	namespace := defaultNamespace
	if cfg.Telemetry.Enabled() {
		namespace = cfg.Telemetry.Namespace
	}
	m.collector = telemetry.NewCollector(namespace, samples{m})
	m.telemetry = telemetry.New(ctx, cfg.Telemetry, logger, samples{m})

	return m, nil
}

func (m *Manager) Close() error {
	m.cls()
	return m.telemetry.Close()
}

// SegmentOption overrides the configured parameters of a new segment.
type SegmentOption func(cfg *config.SegmentCfg)

// WithCapacity sets the capacity; negative means unbounded.
func WithCapacity(n int) SegmentOption {
	return func(cfg *config.SegmentCfg) { cfg.Capacity = n }
}

// WithEvictOnFull sets whether a full segment evicts its LRU record.
func WithEvictOnFull(evict bool) SegmentOption {
	return func(cfg *config.SegmentCfg) {
		cfg.EvictOnFull = &evict
		cfg.IsEvictOnFull = evict
	}
}

// segmentCfg starts from the configured entry for name, or from defaults.
func (m *Manager) segmentCfg(name string, opts []SegmentOption) *config.SegmentCfg {
	cfg := config.NewSegmentCfg(name, config.DefaultCapacity, true)
	if configured, ok := m.cfg.Segment(name); ok {
		c := *configured
		cfg = &c
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// AddSegment creates an empty segment bound to h.
func (m *Manager) AddSegment(name string, h *schema.Handle, opts ...SegmentOption) (Segment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.segments[name]; exists {
		return nil, segmentExists(name)
	}
	seg, err := m.create(name, h, opts)
	if err != nil {
		return nil, err
	}
	return seg, nil
}

// ReplaceSegment swaps the named segment for a fresh, empty one.
func (m *Manager) ReplaceSegment(name string, h *schema.Handle, opts ...SegmentOption) (Segment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.segments[name]; !exists {
		return nil, segmentNotFound(name)
	}
	seg, err := m.create(name, h, opts)
	if err != nil {
		return nil, err
	}
	return seg, nil
}

func (m *Manager) create(name string, h *schema.Handle, opts []SegmentOption) (*segment.Segment, error) {
	cfg := m.segmentCfg(name, opts)
	seg, err := segment.New(cfg, h, m, m.logger)
	if err != nil {
		return nil, err
	}
	m.segments[name] = seg
	m.logger.Info("segment created",
		"segment", name,
		"schema", h.Name(),
		"capacity", cfg.Capacity,
		"evict_on_full", cfg.IsEvictOnFull,
	)
	return seg, nil
}

func (m *Manager) RemoveSegment(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.segments[name]; !exists {
		return segmentNotFound(name)
	}
	delete(m.segments, name)
	m.logger.Info("segment removed", "segment", name)
	return nil
}

// RegisterSchema validates s and binds it to the named segment, creating
// the segment when it does not exist yet. Records already stored in an
// existing segment are not re-validated.
func (m *Manager) RegisterSchema(name string, s schema.Schema) (*schema.Handle, error) {
	h, err := schema.Register(s)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if seg, exists := m.segments[name]; exists {
		if err = seg.Bind(h); err != nil {
			return nil, err
		}
		return h, nil
	}
	if _, err = m.create(name, h, nil); err != nil {
		return nil, err
	}
	return h, nil
}

// Schema returns the schema bound to the named segment.
func (m *Manager) Schema(name string) (*schema.Handle, error) {
	seg, err := m.lookup(name)
	if err != nil {
		return nil, err
	}
	return seg.Schema(), nil
}

func (m *Manager) Segment(name string) (Segment, error) {
	seg, err := m.lookup(name)
	if err != nil {
		return nil, err
	}
	return seg, nil
}

// MustSegment panics when the segment does not exist.
func (m *Manager) MustSegment(name string) Segment {
	seg, err := m.Segment(name)
	if err != nil {
		panic(err)
	}
	return seg
}

func (m *Manager) HasSegment(name string) bool {
	_, err := m.lookup(name)
	return err == nil
}

// Names returns segment names in lexical order.
func (m *Manager) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Sorted(maps.Keys(m.segments))
}

// Segments yields segments in name order.
func (m *Manager) Segments() iter.Seq2[string, Segment] {
	return func(yield func(string, Segment) bool) {
		for _, name := range m.Names() {
			seg, err := m.lookup(name)
			if err != nil {
				continue
			}
			if !yield(name, seg) {
				return
			}
		}
	}
}

func (m *Manager) lookup(name string) (*segment.Segment, error) {
	m.mu.RLock()
	seg, ok := m.segments[name]
	m.mu.RUnlock()
	if !ok {
		return nil, segmentNotFound(name)
	}
	return seg, nil
}

// Resolve reads a referenced record through the target segment's public
// read path, so the target's recency and invalidation apply. A target
// segment that is already being read up the call chain is only peeked, and a
// record already being read is not re-entered.
func (m *Manager) Resolve(name string, key any, p model.Projection) (model.Result, bool) {
	return m.follow(name, key, p, false)
}

// Peek shapes a referenced record without side effects in its segment.
func (m *Manager) Peek(name string, key any, p model.Projection) (model.Result, bool) {
	return m.follow(name, key, p, true)
}

// Enter marks a record as being read until the returned func is called.
// Nested marks of the same record release nothing.
func (m *Manager) Enter(name string, key any) func() {
	r := ref{segment: name, key: key}
	m.rmu.Lock()
	defer m.rmu.Unlock()
	if _, busy := m.resolving[r]; busy {
		return func() {}
	}
	m.resolving[r] = struct{}{}
	return func() {
		m.rmu.Lock()
		delete(m.resolving, r)
		m.rmu.Unlock()
	}
}

func (m *Manager) follow(name string, key any, p model.Projection, peek bool) (model.Result, bool) {
	seg, err := m.lookup(name)
	if err != nil {
		return model.Result{}, false
	}
	nk, err := seg.Schema().NormalizeKey(key)
	if err != nil {
		return model.Result{}, false
	}

	r := ref{segment: name, key: nk}
	m.rmu.Lock()
	_, busy := m.resolving[r]
	peek = peek || m.reading(name)
	m.rmu.Unlock()
	if busy {
		m.logger.Debug("partial reference cycle", "segment", name, "key", key)
		return model.Result{}, false
	}
	leave := m.Enter(name, nk)
	defer leave()

	read := seg.Get
	if peek {
		read = seg.View
	}
	res, err := read(key, model.WithProjection(p))
	if err != nil {
		return model.Result{}, false
	}
	return res, true
}

// reading reports whether any record of the segment is on the call chain.
// The caller holds rmu.
func (m *Manager) reading(name string) bool {
	for r := range m.resolving {
		if r.segment == name {
			return true
		}
	}
	return false
}

// Populate adds every source to the named segment and returns how many
// were added. It stops at the first failing record.
func (m *Manager) Populate(name string, srcs ...model.FieldSource) (int, error) {
	seg, err := m.lookup(name)
	if err != nil {
		return 0, err
	}
	for i, src := range srcs {
		if err = seg.Add(src, false); err != nil {
			return i, err
		}
	}
	return len(srcs), nil
}

// PopulateFrom loads the rows stored by d at the segment's name. Rows
// replace records with the same key. It stops at the first error.
func (m *Manager) PopulateFrom(ctx context.Context, name string, d driver.Driver, q driver.Query) (int, error) {
	start := time.Now()
	seg, err := m.lookup(name)
	if err != nil {
		return 0, err
	}

	added := 0
	for row, err := range d.Fetch(ctx, name, q, seg.Schema()) {
		if err != nil {
			return added, err
		}
		if err = seg.Add(row, true); err != nil {
			return added, err
		}
		added++
	}

	m.logger.Info("segment populated",
		"segment", name,
		"added", added,
		"elapsed", time.Since(start).String(),
	)
	return added, nil
}

// Export pushes the records of the named segment, MRU first, to d.
// include limits the exported fields (all when empty); exclude drops fields.
func (m *Manager) Export(ctx context.Context, name string, d driver.Driver, include, exclude []string) error {
	seg, err := m.lookup(name)
	if err != nil {
		return err
	}
	for _, field := range slices.Concat(include, exclude) {
		if !seg.Schema().Has(field) {
			return model.Validationf("segment %s: cannot export unknown field %q", name, field)
		}
	}
	if err = d.Export(ctx, name, seg.Iterate(), include, exclude); err != nil {
		return err
	}
	m.logger.Info("segment exported", "segment", name, "items", seg.Len())
	return nil
}

// Collector exposes segment counters to Prometheus.
func (m *Manager) Collector() prometheus.Collector {
	return m.collector
}

// samples is the telemetry view of the registry.
type samples struct{ m *Manager }

func (s samples) Samples() []telemetry.Sample {
	m := s.m
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]telemetry.Sample, 0, len(m.segments))
	for name, seg := range m.segments {
		out = append(out, telemetry.Sample{Segment: name, Metrics: seg.Metrics()})
	}
	return out
}
