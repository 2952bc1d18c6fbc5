package profiler

import (
	"log/slog"
	"runtime"
	"time"

	"github.com/Carmen-Shannon/oxy-gl/engine/logger"
	"github.com/Carmen-Shannon/oxy-gl/engine/renderer"
)

// Profiler tracks frame rate, memory and renderer cache statistics for performance monitoring.
// Outputs stats to the log at a configurable interval.
type Profiler struct {
	frameCount     int
	lastTime       time.Time
	updateInterval time.Duration
	memStats       runtime.MemStats
	lastGCCount    uint32
	lastTotalAlloc uint64

	logger    *slog.Logger
	stats     func() renderer.Stats
	lastStats renderer.Stats
}

// NewProfiler creates a new Profiler.
// Update interval defaults to 1 second.
//
// Parameters:
//   - options: functional options such as WithStats
//
// Returns:
//   - *Profiler: the newly created profiler instance
func NewProfiler(options ...ProfilerBuilderOption) *Profiler {
	p := &Profiler{
		frameCount:     0,
		lastTime:       time.Now(),
		updateInterval: time.Second,
		memStats:       runtime.MemStats{},
	}
	for _, opt := range options {
		opt(p)
	}
	p.logger = logger.Or(p.logger)
	return p
}

// Tick should be called once per frame to track frame timing.
// Logs performance statistics when the update interval has elapsed.
// Statistics include: FPS, heap usage, allocation rate, GC count/pause times, total memory,
// and when a stats source is set, draws per second plus cache hit and miss deltas.
//
// Returns:
//   - bool: true if stats were logged this tick, false otherwise
func (p *Profiler) Tick() bool {
	p.frameCount++
	currentTime := time.Now()
	elapsed := currentTime.Sub(p.lastTime)

	if elapsed >= p.updateInterval {
		fps := float64(p.frameCount) / elapsed.Seconds()

		runtime.ReadMemStats(&p.memStats)
		// Alloc: Bytes of allocated heap objects (live memory)
		// TotalAlloc: Cumulative bytes allocated for heap objects (increases forever, tracks churn)
		// Sys: Total bytes of memory obtained from the OS (actual process footprint)
		allocMB := float64(p.memStats.Alloc) / 1024 / 1024
		sysMB := float64(p.memStats.Sys) / 1024 / 1024

		// Calculate allocation rate (MB/sec)
		allocDelta := p.memStats.TotalAlloc - p.lastTotalAlloc
		allocRateMB := float64(allocDelta) / 1024 / 1024 / elapsed.Seconds()

		// Calculate GC pause stats (last pause and max recent pause)
		gcCount := p.memStats.NumGC
		var lastPauseUs, maxPauseUs uint64
		if gcCount > 0 {
			// PauseNs is a circular buffer of last 256 GC pauses
			lastPauseUs = p.memStats.PauseNs[(gcCount-1)%256] / 1000

			// Find max pause since last tick
			startIdx := p.lastGCCount
			if gcCount-startIdx > 256 {
				startIdx = gcCount - 256
			}
			for i := startIdx; i < gcCount; i++ {
				pause := p.memStats.PauseNs[i%256] / 1000
				if pause > maxPauseUs {
					maxPauseUs = pause
				}
			}
		}

		attrs := []any{
			"fps", fps,
			"heap_mb", allocMB,
			"alloc_rate_mb_s", allocRateMB,
			"gc", gcCount,
			"gc_last_us", lastPauseUs,
			"gc_max_us", maxPauseUs,
			"sys_mb", sysMB,
		}
		if p.stats != nil {
			attrs = append(attrs, p.rendererAttrs(elapsed)...)
		}
		p.logger.Info("[Profiler] frame stats", attrs...)

		p.frameCount = 0
		p.lastTime = currentTime
		p.lastGCCount = gcCount
		p.lastTotalAlloc = p.memStats.TotalAlloc
		return true
	}

	return false
}

// rendererAttrs reports the renderer counters accumulated since the previous report.
func (p *Profiler) rendererAttrs(elapsed time.Duration) []any {
	s := p.stats()
	prev := p.lastStats
	p.lastStats = s
	return []any{
		"draws_s", float64(s.Draws-prev.Draws) / elapsed.Seconds(),
		"program_hits", s.Programs.Hits - prev.Programs.Hits,
		"program_builds", s.Programs.Builds - prev.Programs.Builds,
		"binding_hits", s.Bindings.Hits - prev.Bindings.Hits,
		"binding_misses", s.Bindings.Misses - prev.Bindings.Misses,
		"style_changes", s.Styles.Changes - prev.Styles.Changes,
	}
}
