package config

import "time"

// DefaultTelemetryInterval is used when TelemetryCfg.Interval is unset.
const DefaultTelemetryInterval = 5 * time.Second

type TelemetryCfg struct {
	// LogsEnabled turns on periodic per-segment stats logs.
	LogsEnabled bool `yaml:"logs_enabled"`

	// Interval between two stats logs. Example: "5s".
	Interval time.Duration `yaml:"interval"`

	// Namespace prefixes the exported Prometheus metric names. Defaults to "ash_segments".
	Namespace string `yaml:"namespace"`
}

func (cfg *TelemetryCfg) Enabled() bool {
	return cfg != nil
}
