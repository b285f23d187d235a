package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

func (cfg *Manager) AdjustConfig() {
	for i := range cfg.Segments {
		cfg.Segments[i].AdjustConfig()
	}

	if cfg.Telemetry.Enabled() {
		if cfg.Telemetry.Interval <= 0 {
			cfg.Telemetry.Interval = DefaultTelemetryInterval
		}
		if cfg.Telemetry.Namespace == "" {
			cfg.Telemetry.Namespace = "ash_segments"
		}
	}

	if cfg.Drivers.File.Enabled() && cfg.Drivers.File.Compression == "" {
		cfg.Drivers.File.Compression = CompressionNone
	}
	if cfg.Drivers.MinIO.Enabled() && cfg.Drivers.MinIO.Compression == "" {
		cfg.Drivers.MinIO.Compression = CompressionNone
	}
}

// Validate reports structural problems AdjustConfig cannot fix.
func (cfg *Manager) Validate() error {
	seen := make(map[string]struct{}, len(cfg.Segments))
	for i, seg := range cfg.Segments {
		if seg.Name == "" {
			return fmt.Errorf("segment #%d: empty name", i)
		}
		if _, dup := seen[seg.Name]; dup {
			return fmt.Errorf("segment %s: declared twice", seg.Name)
		}
		seen[seg.Name] = struct{}{}
	}
	for _, c := range []*Compression{fileCompression(cfg), minioCompression(cfg)} {
		if c == nil {
			continue
		}
		switch *c {
		case CompressionNone, CompressionZstd, CompressionGzip:
		default:
			return fmt.Errorf("unsupported compression %q", *c)
		}
	}
	return nil
}

func fileCompression(cfg *Manager) *Compression {
	if cfg.Drivers.File.Enabled() {
		return &cfg.Drivers.File.Compression
	}
	return nil
}

func minioCompression(cfg *Manager) *Compression {
	if cfg.Drivers.MinIO.Enabled() {
		return &cfg.Drivers.MinIO.Compression
	}
	return nil
}

func LoadConfig(path string) (*Manager, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("stat config path: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config yaml file %s: %w", path, err)
	}

	var cfg *Manager
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal yaml from %s: %w", path, err)
	}
	if cfg == nil {
		cfg = &Manager{}
	}
	cfg.AdjustConfig()

	if err = cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config %s: %w", path, err)
	}

	return cfg, nil
}
