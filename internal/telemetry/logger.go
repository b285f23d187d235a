package telemetry

import (
	"context"
	"log/slog"
	"slices"
	"strconv"
	"time"

	"github.com/Borislavv/go-ash-segments/config"
)

type Logger interface {
	Interval() time.Duration
	Close() error
}

// Logs periodically writes per-segment counter deltas.
type Logs struct {
	ctx      context.Context
	cancel   context.CancelFunc
	cfg      *config.TelemetryCfg
	logger   *slog.Logger
	src      Source
	interval time.Duration
}

func New(ctx context.Context, cfg *config.TelemetryCfg, logger *slog.Logger, src Source) *Logs {
	ctx, cancel := context.WithCancel(ctx)
	interval := config.DefaultTelemetryInterval
	if cfg.Enabled() && cfg.Interval > 0 {
		interval = cfg.Interval
	}
	return (&Logs{
		ctx:      ctx,
		cancel:   cancel,
		cfg:      cfg,
		logger:   logger,
		src:      src,
		interval: interval,
	}).run()
}

func (l *Logs) Interval() time.Duration {
	return l.interval
}

func (l *Logs) Close() error {
	l.cancel()
	return nil
}

func (l *Logs) run() *Logs {
	if l.cfg.Enabled() && l.cfg.LogsEnabled {
		go l.loop()
	}
	return l
}

func (l *Logs) loop() {
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	s := newSampler(l.src)
	prev := s.snapshot()

	for {
		select {
		case <-l.ctx.Done():
			return

		case <-ticker.C:
			cur := s.snapshot()
			d := deltaSnapshot(prev, cur)
			prev = cur
			l.write(d)
		}
	}
}

func (l *Logs) write(d snapshot) {
	common := []any{"interval", l.interval.String()}

	names := make([]string, 0, len(d))
	for name := range d {
		names = append(names, name)
	}
	slices.Sort(names)

	for _, name := range names {
		smp := d[name]
		m := smp.Metrics
		capacity := "INF"
		if m.Capacity >= 0 {
			capacity = strconv.FormatInt(m.Capacity, 10)
		}

		l.logger.Info("segment",
			append(common,
				"name", name,
				"entries", m.Len,
				"capacity", capacity,
				"adds", m.Adds,
				"overwrites", m.Overwrites,
				"hits", m.Hits,
				"misses", m.Misses,
				"removals", m.Removals,
				"evictions", m.Evictions,
				"invalidations", m.Invalidations,
				"rejected", m.Rejected,
				"resolve_misses", m.ResolveMisses,
			)...,
		)
	}
}
