package config

// Manager groups configuration of the segment registry and its satellites.
// Each optional component is disabled by leaving it nil.
type Manager struct {
	// Segments hold per-segment parameters, applied when a segment of that
	// name is created (on schema registration or AddSegment).
	Segments []SegmentCfg `yaml:"segments"`

	// Telemetry configures periodic per-segment stats logs.
	// If nil, no background logger is started.
	Telemetry *TelemetryCfg `yaml:"telemetry"`

	// Drivers configures the persistence backends available to populate/export.
	Drivers DriversCfg `yaml:"drivers"`
}

// Segment returns the named segment config.
func (cfg *Manager) Segment(name string) (*SegmentCfg, bool) {
	for i := range cfg.Segments {
		if cfg.Segments[i].Name == name {
			return &cfg.Segments[i], true
		}
	}
	return nil, false
}
