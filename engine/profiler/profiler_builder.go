package profiler

import (
	"log/slog"
	"time"

	"github.com/Carmen-Shannon/oxy-gl/engine/renderer"
)

// ProfilerBuilderOption is a functional option applied to a Profiler during NewProfiler.
type ProfilerBuilderOption func(*Profiler)

// WithInterval sets how often stats are reported. Non-positive values keep the default.
//
// Parameters:
//   - interval: the reporting interval
//
// Returns:
//   - ProfilerBuilderOption: option function to apply
func WithInterval(interval time.Duration) ProfilerBuilderOption {
	return func(p *Profiler) {
		if interval > 0 {
			p.updateInterval = interval
		}
	}
}

// WithLogger sets the logger stats are written to.
func WithLogger(l *slog.Logger) ProfilerBuilderOption {
	return func(p *Profiler) {
		p.logger = l
	}
}

// WithStats adds the renderer counters returned by source to every report, typically
// Renderer.Stats.
//
// Parameters:
//   - source: called once per report
//
// Returns:
//   - ProfilerBuilderOption: option function to apply
func WithStats(source func() renderer.Stats) ProfilerBuilderOption {
	return func(p *Profiler) {
		p.stats = source
	}
}
