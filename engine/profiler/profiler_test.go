package profiler

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-gl/engine/renderer"
	"github.com/Carmen-Shannon/oxy-gl/engine/renderer/vertex_binding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTickReportsOncePerInterval(t *testing.T) {
	var out bytes.Buffer
	p := NewProfiler(
		WithLogger(slog.New(slog.NewJSONHandler(&out, nil))),
		WithInterval(time.Hour),
	)

	assert.False(t, p.Tick())
	assert.Empty(t, out.String())
}

func TestTickIncludesRendererDeltas(t *testing.T) {
	var out bytes.Buffer
	stats := renderer.Stats{Draws: 10, Bindings: vertex_binding.Stats{Hits: 4, Misses: 1}}
	p := NewProfiler(
		WithLogger(slog.New(slog.NewJSONHandler(&out, nil))),
		WithInterval(time.Nanosecond),
		WithStats(func() renderer.Stats { return stats }),
	)
	time.Sleep(time.Millisecond)
	require.True(t, p.Tick())

	stats.Bindings.Hits = 7
	out.Reset()
	time.Sleep(time.Millisecond)
	require.True(t, p.Tick())

	var record map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &record))
	assert.Equal(t, "[Profiler] frame stats", record["msg"])
	assert.Equal(t, float64(3), record["binding_hits"])
	assert.Equal(t, float64(0), record["binding_misses"])
	assert.Contains(t, record, "fps")
}
