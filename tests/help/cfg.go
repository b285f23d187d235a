package help

import (
	"time"

	"github.com/Borislavv/go-ash-segments/config"
)

func Cfg() *config.Manager {
	c := &config.Manager{
		Segments: []config.SegmentCfg{
			{Name: "users", Capacity: 100},
			{Name: "tokens", Capacity: 100},
		},
		Telemetry: &config.TelemetryCfg{
			LogsEnabled: true,
			Interval:    time.Second * 5,
		},
	}
	c.AdjustConfig()
	return c
}

// SegmentCfg returns an adjusted config of a single segment.
func SegmentCfg(name string, capacity int, evictOnFull bool) *config.SegmentCfg {
	return config.NewSegmentCfg(name, capacity, evictOnFull)
}

func UnboundedCfg(name string) *config.SegmentCfg {
	return config.NewSegmentCfg(name, config.Unbounded, true)
}

func NoTelemetryCfg() *config.Manager {
	c := Cfg()
	c.Telemetry = nil
	return c
}
