package shader_cache

import (
	"strings"
	"sync"
	"testing"

	"github.com/Carmen-Shannon/oxy-gl/engine/renderer/buffer"
	"github.com/Carmen-Shannon/oxy-gl/engine/renderer/driver"
	"github.com/Carmen-Shannon/oxy-gl/engine/renderer/driver/recording"
	"github.com/Carmen-Shannon/oxy-gl/engine/renderer/handle"
	"github.com/Carmen-Shannon/oxy-gl/engine/renderer/lifecycle"
	"github.com/Carmen-Shannon/oxy-gl/engine/renderer/shader"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	drv      *recording.Driver
	registry handle.Registry
	bus      lifecycle.Bus
	cache    ShaderCache

	mu        sync.Mutex
	destroyed []handle.Handle
}

func newFixture(t *testing.T, options ...ShaderCacheBuilderOption) *fixture {
	t.Helper()
	f := &fixture{
		drv:      recording.New(driver.VersionGL33),
		registry: handle.NewRegistry(),
		bus:      lifecycle.NewBus(),
	}
	f.bus.Subscribe(func(ev lifecycle.Event) {
		if ev.Kind == lifecycle.ProgramDestroyed {
			f.mu.Lock()
			f.destroyed = append(f.destroyed, ev.Handle)
			f.mu.Unlock()
		}
	})
	c, err := NewShaderCache(f.drv, f.registry, f.bus, options...)
	require.NoError(t, err)
	f.cache = c
	t.Cleanup(c.Close)
	return f
}

func (f *fixture) destroyedHandles() []handle.Handle {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]handle.Handle(nil), f.destroyed...)
}

var formats = []*buffer.VertexFormat{buffer.NewVertexFormat().Position(3)}

func structureOf(fragment string) shader.ShadeStructure {
	return shader.StructureFromStyle(shader.NewShadeStyle(shader.WithFragmentTransform(fragment)), formats, nil)
}

func TestResolveTwiceBuildsOnce(t *testing.T) {
	f := newFixture(t)
	s := structureOf("x_fill = vec4(1.0);")

	first, err := f.cache.Resolve(s, false)
	require.NoError(t, err)
	second, err := f.cache.Resolve(s, false)
	require.NoError(t, err)

	assert.Equal(t, first.Handle(), second.Handle())
	assert.Equal(t, 1, f.drv.Count("CreateProgram"))
	assert.Equal(t, Stats{Hits: 1, Misses: 1, Builds: 1}, f.cache.Stats())
	assert.True(t, strings.HasPrefix(first.Name(), "shade-style-custom:"))
}

func TestForceRebuildReplacesEntry(t *testing.T) {
	f := newFixture(t)
	s := structureOf("x_fill = vec4(1.0);")

	old, err := f.cache.Resolve(s, false)
	require.NoError(t, err)
	fresh, err := f.cache.Resolve(s, true)
	require.NoError(t, err)

	assert.NotEqual(t, old.Handle(), fresh.Handle())
	assert.NotEqual(t, old.Native(), fresh.Native())
	assert.Equal(t, []handle.Handle{old.Handle()}, f.destroyedHandles())
	assert.False(t, f.registry.Live(old.Handle()))
	assert.Equal(t, 1, f.drv.LivePrograms())

	again, err := f.cache.Resolve(s, false)
	require.NoError(t, err)
	assert.Equal(t, fresh.Handle(), again.Handle())
}

func TestDefaultStructureIsPinned(t *testing.T) {
	f := newFixture(t, WithSize(1))
	def := shader.DefaultStructure(formats, nil)

	dp, err := f.cache.Resolve(def, false)
	require.NoError(t, err)
	assert.Equal(t, "shade-style-default", dp.Name())
	a, err := f.cache.Resolve(structureOf("x_fill.r = 1.0;"), false)
	require.NoError(t, err)
	_, err = f.cache.Resolve(structureOf("x_fill.g = 1.0;"), false)
	require.NoError(t, err)

	assert.True(t, f.cache.Contains(def))
	assert.Equal(t, 2, f.cache.Len())
	assert.Equal(t, []handle.Handle{a.Handle()}, f.destroyedHandles())
	assert.Equal(t, uint64(1), f.cache.Stats().Evictions)

	again, err := f.cache.Resolve(def, false)
	require.NoError(t, err)
	assert.Equal(t, dp.Handle(), again.Handle())
}

func TestDirtyStyleForcesRebuild(t *testing.T) {
	f := newFixture(t)
	style := shader.NewShadeStyle(shader.WithFragmentTransform("x_fill.b = 1.0;"))

	first, err := f.cache.ResolveStyle(style, formats, nil)
	require.NoError(t, err)
	assert.False(t, style.Dirty())

	second, err := f.cache.ResolveStyle(style, formats, nil)
	require.NoError(t, err)
	assert.Equal(t, first.Handle(), second.Handle())

	style.MarkDirty()
	third, err := f.cache.ResolveStyle(style, formats, nil)
	require.NoError(t, err)
	assert.NotEqual(t, first.Handle(), third.Handle())
	assert.Equal(t, first.Structure(), third.Structure())
	assert.Equal(t, 2, f.drv.Count("CreateProgram"))
}

func TestMarkDirtyDuringBuildKeepsStyleDirty(t *testing.T) {
	f := newFixture(t)
	style := shader.NewShadeStyle(shader.WithFragmentTransform("x_fill.g = 1.0;"))
	f.drv.FailCompile = func(stage uint32, _ string) string {
		if stage == driver.FRAGMENT_SHADER {
			style.MarkDirty()
		}
		return ""
	}

	_, err := f.cache.ResolveStyle(style, formats, nil)
	require.NoError(t, err)
	assert.True(t, style.Dirty())

	f.drv.FailCompile = nil
	_, err = f.cache.ResolveStyle(style, formats, nil)
	require.NoError(t, err)
	assert.False(t, style.Dirty())
	assert.Equal(t, 2, f.drv.Count("CreateProgram"))
}

func TestNilStyleResolvesDefault(t *testing.T) {
	f := newFixture(t)

	p, err := f.cache.ResolveStyle(nil, formats, nil)
	require.NoError(t, err)
	assert.True(t, p.Structure().Default)
}

func failBroken(stage uint32, source string) string {
	if stage == driver.FRAGMENT_SHADER && strings.Contains(source, "broken") {
		return "0:1: 'broken' : undeclared identifier"
	}
	return ""
}

func TestCompileErrorPropagates(t *testing.T) {
	f := newFixture(t)
	f.drv.FailCompile = failBroken
	style := shader.NewShadeStyle(shader.WithFragmentTransform("x_fill = broken;"))

	_, err := f.cache.ResolveStyle(style, formats, nil)
	var compileErr *shader.CompileError
	require.ErrorAs(t, err, &compileErr)
	assert.Equal(t, shader.StageFragment, compileErr.Stage)
	assert.Contains(t, compileErr.Source, "x_fill = broken;")
}

func TestFailedStructureIsNotRebuiltUntilForced(t *testing.T) {
	f := newFixture(t)
	f.drv.FailCompile = failBroken
	s := structureOf("x_fill = broken;")

	_, err := f.cache.Resolve(s, false)
	require.Error(t, err)
	shaders := f.drv.Count("CreateShader")

	_, err = f.cache.Resolve(s, false)
	require.Error(t, err)
	assert.Equal(t, shaders, f.drv.Count("CreateShader"))

	f.drv.FailCompile = nil
	p, err := f.cache.Resolve(s, true)
	require.NoError(t, err)
	assert.True(t, f.cache.Contains(s))
	assert.False(t, p.Structure().Default)
}

func TestIgnoreErrorsFallsBackToDefault(t *testing.T) {
	f := newFixture(t, WithIgnoreErrors(true))
	f.drv.FailCompile = failBroken
	style := shader.NewShadeStyle(shader.WithFragmentTransform("x_fill = broken;"))

	p, err := f.cache.ResolveStyle(style, formats, nil)
	require.NoError(t, err)
	assert.True(t, p.Structure().Default)
	assert.False(t, style.Dirty())

	again, err := f.cache.ResolveStyle(style, formats, nil)
	require.NoError(t, err)
	assert.Equal(t, p.Handle(), again.Handle())
}

func TestDestroyRemovesEntry(t *testing.T) {
	f := newFixture(t)
	s := structureOf("x_fill.a = 0.5;")
	p, err := f.cache.Resolve(s, false)
	require.NoError(t, err)

	require.NoError(t, f.cache.Destroy(p))

	assert.False(t, f.cache.Contains(s))
	assert.Equal(t, []handle.Handle{p.Handle()}, f.destroyedHandles())
	assert.Equal(t, 0, f.drv.LivePrograms())
	assert.False(t, f.registry.Live(p.Handle()))

	var stale *handle.StaleHandleError
	assert.ErrorAs(t, f.cache.Destroy(p), &stale)

	rebuilt, err := f.cache.Resolve(s, false)
	require.NoError(t, err)
	assert.NotEqual(t, p.Handle(), rebuilt.Handle())
}

func TestExternalDestroyEventDropsEntry(t *testing.T) {
	f := newFixture(t)
	s := structureOf("x_fill.a = 0.25;")
	p, err := f.cache.Resolve(s, false)
	require.NoError(t, err)

	f.bus.Publish(lifecycle.Event{Kind: lifecycle.ProgramDestroyed, Handle: p.Handle()})

	assert.False(t, f.cache.Contains(s))
	assert.Equal(t, 0, f.drv.Count("DeleteProgram"))
}

func TestConcurrentResolvesShareOneBuild(t *testing.T) {
	f := newFixture(t)
	s := structureOf("x_fill.rg = vec2(0.5);")

	var wg sync.WaitGroup
	handles := make([]handle.Handle, 8)
	for i := range handles {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p, err := f.cache.Resolve(s, false)
			if assert.NoError(t, err) {
				handles[i] = p.Handle()
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, f.drv.Count("CreateProgram"))
	for _, h := range handles {
		assert.Equal(t, handles[0], h)
	}
}

func TestPrewarm(t *testing.T) {
	f := newFixture(t, WithPrewarmWorkers(2))
	good := []shader.ShadeStructure{
		structureOf("x_fill.r = 0.1;"),
		structureOf("x_fill.r = 0.2;"),
		shader.DefaultStructure(formats, nil),
	}
	bad := structureOf("// @oxy:include nowhere")

	err := f.cache.Prewarm(append(good, bad))
	require.Error(t, err)
	var genErr *shader.GenerationError
	assert.ErrorAs(t, err, &genErr)

	for _, s := range good {
		assert.True(t, f.cache.Contains(s))
	}
	assert.False(t, f.cache.Contains(bad))
	assert.Equal(t, 3, f.drv.Count("CreateProgram"))

	require.NoError(t, f.cache.Prewarm(good))
	assert.Equal(t, 3, f.drv.Count("CreateProgram"))
}

func TestPurgeReleasesEverything(t *testing.T) {
	f := newFixture(t)
	_, err := f.cache.Resolve(shader.DefaultStructure(formats, nil), false)
	require.NoError(t, err)
	_, err = f.cache.Resolve(structureOf("x_fill.r = 0.3;"), false)
	require.NoError(t, err)

	f.cache.Purge()

	assert.Equal(t, 0, f.cache.Len())
	assert.Equal(t, 0, f.drv.LivePrograms())
	assert.Len(t, f.destroyedHandles(), 2)
	assert.Equal(t, 0, f.registry.Len(handle.KindProgram))
}
