package model

// Options carries per-call read/search parameters. Each operation reads only
// the knobs that apply to it.
type Options struct {
	Projection Projection
	Exclude    []string
	Default    any
	HasDefault bool
	Limit      int
	Field      string
}

type Option func(*Options)

// NewOptions applies opts over the defaults: Full projection, unbounded limit.
func NewOptions(opts ...Option) Options {
	o := Options{Projection: Full{}, Limit: -1}
	for _, opt := range opts {
		opt(&o)
	}
	if o.Projection == nil {
		o.Projection = Full{}
	}
	return o
}

func WithProjection(p Projection) Option {
	return func(o *Options) { o.Projection = p }
}

// WithFields is shorthand for WithProjection(Include(names...)).
func WithFields(names ...string) Option {
	return WithProjection(Include(names...))
}

// WithAllFields is the wildcard projection.
func WithAllFields() Option {
	return WithProjection(AllFields{})
}

// WithExclude adds call-site exclusions, merged with the schema's.
func WithExclude(names ...string) Option {
	return func(o *Options) { o.Exclude = append(o.Exclude, names...) }
}

// WithDefault turns a miss into a Defaulted result instead of ErrNotFound.
func WithDefault(v any) Option {
	return func(o *Options) {
		o.Default = v
		o.HasDefault = true
	}
}

// WithLimit caps search and invalidation results; negative means unbounded.
func WithLimit(n int) Option {
	return func(o *Options) { o.Limit = n }
}

// WithField selects the field a pattern search matches against.
func WithField(name string) Option {
	return func(o *Options) { o.Field = name }
}
