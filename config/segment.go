package config

// DefaultCapacity is used when a segment config leaves capacity unset.
const DefaultCapacity = 1000

// Unbounded disables the capacity limit.
const Unbounded = -1

type SegmentCfg struct {
	// Name is the registry name of the segment.
	Name string `yaml:"name"`

	// Capacity is the maximum number of records held.
	// Negative means unbounded; zero is replaced by DefaultCapacity during AdjustConfig.
	Capacity int `yaml:"capacity"`

	// EvictOnFull makes a full segment drop its least recently used record
	// to admit a new one. When false, adding to a full segment fails.
	// Defaults to true.
	EvictOnFull *bool `yaml:"evict_on_full"`

	// IsEvictOnFull is derived from EvictOnFull during AdjustConfig and is not read from YAML.
	IsEvictOnFull bool `yaml:"-"` // virtual: computed during init
}

// NewSegmentCfg builds an already adjusted segment config.
func NewSegmentCfg(name string, capacity int, evictOnFull bool) *SegmentCfg {
	return &SegmentCfg{Name: name, Capacity: capacity, EvictOnFull: &evictOnFull, IsEvictOnFull: evictOnFull}
}

func (cfg *SegmentCfg) IsUnbounded() bool { return cfg.Capacity < 0 }

func (cfg *SegmentCfg) AdjustConfig() {
	if cfg.Capacity == 0 {
		cfg.Capacity = DefaultCapacity
	}
	cfg.IsEvictOnFull = cfg.EvictOnFull == nil || *cfg.EvictOnFull
}
