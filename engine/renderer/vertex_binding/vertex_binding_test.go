package vertex_binding

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-gl/engine/renderer/buffer"
	"github.com/Carmen-Shannon/oxy-gl/engine/renderer/driver"
	"github.com/Carmen-Shannon/oxy-gl/engine/renderer/driver/recording"
	"github.com/Carmen-Shannon/oxy-gl/engine/renderer/gpu_context"
	"github.com/Carmen-Shannon/oxy-gl/engine/renderer/handle"
	"github.com/Carmen-Shannon/oxy-gl/engine/renderer/lifecycle"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSurface struct {
	current uintptr
}

func (s *fakeSurface) CurrentContext() uintptr     { return s.current }
func (s *fakeSurface) FramebufferSize() (int, int) { return 640, 480 }
func (s *fakeSurface) ContentScale() float64       { return 1 }

type fakeProgram struct {
	h         handle.Handle
	locations map[string]int32
}

func (p *fakeProgram) Handle() handle.Handle { return p.h }
func (p *fakeProgram) Name() string          { return "test" }

func (p *fakeProgram) AttributeLocation(name string) int32 {
	if loc, ok := p.locations[name]; ok {
		return loc
	}
	return -1
}

type fixture struct {
	drv      *recording.Driver
	dev      buffer.Device
	surface  *fakeSurface
	ctx      *gpu_context.ExecutionContext
	bindings BindingCache
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	drv := recording.New(driver.VersionGL33)
	dev := buffer.Device{Driver: drv, Registry: handle.NewRegistry(), Bus: lifecycle.NewBus()}
	surface := &fakeSurface{current: 1}
	f := &fixture{
		drv:      drv,
		dev:      dev,
		surface:  surface,
		ctx:      gpu_context.New(1, surface),
		bindings: NewBindingCache(drv, dev.Registry, dev.Bus),
	}
	t.Cleanup(f.bindings.Close)
	return f
}

func (f *fixture) program(locations map[string]int32) *fakeProgram {
	return &fakeProgram{h: f.dev.Registry.Register(handle.KindProgram, 900), locations: locations}
}

func (f *fixture) vertexBuffer(t *testing.T, format *buffer.VertexFormat) buffer.VertexBuffer {
	t.Helper()
	vb, err := buffer.NewVertexBuffer(f.dev, format, 4)
	require.NoError(t, err)
	return vb
}

func pointer(index uint32, size int32, xtype uint32, stride int32, offset int) recording.Call {
	return recording.Call{Name: "VertexAttribPointer", Args: []any{index, size, xtype, false, stride, offset}}
}

func divisor(index, d uint32) recording.Call {
	return recording.Call{Name: "VertexAttribDivisor", Args: []any{index, d}}
}

func TestResolveHitSkipsRebuild(t *testing.T) {
	f := newFixture(t)
	prog := f.program(map[string]int32{"a_position": 0, "a_color": 1})
	vb := f.vertexBuffer(t, buffer.NewVertexFormat().Position(3).Color(4))
	vbs := []buffer.VertexBuffer{vb}

	first, err := f.bindings.Resolve(f.ctx, prog, vbs, nil)
	require.NoError(t, err)
	arrays := f.drv.Count("GenVertexArray")
	second, err := f.bindings.Resolve(f.ctx, prog, vbs, nil)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 2, arrays)
	assert.Equal(t, arrays, f.drv.Count("GenVertexArray"))
	assert.Equal(t, Stats{Hits: 1, Misses: 1}, f.bindings.Stats())
	assert.Equal(t, 1, f.bindings.Len(f.ctx))
	assert.True(t, f.bindings.Contains(f.ctx, prog, vbs, nil))

	calls := f.drv.Calls()
	assert.Contains(t, calls, pointer(0, 3, driver.FLOAT, 28, 0))
	assert.Contains(t, calls, pointer(1, 4, driver.FLOAT, 28, 12))
	assert.Contains(t, calls, divisor(0, 0))

	def, err := f.bindings.DefaultBinding(f.ctx)
	require.NoError(t, err)
	defNative, err := f.dev.Registry.Native(def)
	require.NoError(t, err)
	assert.Equal(t, defNative, f.drv.BoundVertexArray())
}

func TestInstanceBuffersUseDivisorAndMatrixColumns(t *testing.T) {
	f := newFixture(t)
	prog := f.program(map[string]int32{"a_position": 0, "i_transform": 2, "i_index": 6})
	vb := f.vertexBuffer(t, buffer.NewVertexFormat().Position(2))
	ib := f.vertexBuffer(t, buffer.NewVertexFormat().
		Attribute("transform", buffer.TypeMatrix44Float32, 1).
		Padding(4).
		Attribute("index", buffer.TypeInt32, 1))

	_, err := f.bindings.Resolve(f.ctx, prog, []buffer.VertexBuffer{vb}, []buffer.VertexBuffer{ib})
	require.NoError(t, err)

	calls := f.drv.Calls()
	for col := 0; col < 4; col++ {
		index := uint32(2 + col)
		assert.Contains(t, calls, pointer(index, 4, driver.FLOAT, 72, col*16))
		assert.Contains(t, calls, divisor(index, 1))
	}
	assert.Contains(t, calls, recording.Call{Name: "VertexAttribIPointer", Args: []any{uint32(6), int32(1), driver.INT, int32(72), 68}})
	assert.Contains(t, calls, divisor(6, 1))
	assert.Contains(t, calls, divisor(0, 0))
	assert.Equal(t, 6, f.drv.Count("EnableVertexAttribArray"))
}

func TestArrayAttributesTakeConsecutiveSlots(t *testing.T) {
	f := newFixture(t)
	prog := f.program(map[string]int32{"a_weights": 3})
	vb := f.vertexBuffer(t, buffer.NewVertexFormat().Attribute("weights", buffer.TypeVector2Float32, 3))

	_, err := f.bindings.Resolve(f.ctx, prog, []buffer.VertexBuffer{vb}, nil)
	require.NoError(t, err)

	calls := f.drv.Calls()
	assert.Contains(t, calls, pointer(3, 2, driver.FLOAT, 24, 0))
	assert.Contains(t, calls, pointer(4, 2, driver.FLOAT, 24, 8))
	assert.Contains(t, calls, pointer(5, 2, driver.FLOAT, 24, 16))
}

func TestUnusedAttributesAreSkipped(t *testing.T) {
	f := newFixture(t)
	prog := f.program(map[string]int32{"a_position": 0})
	vb := f.vertexBuffer(t, buffer.NewVertexFormat().Position(3).Normal(3))

	_, err := f.bindings.Resolve(f.ctx, prog, []buffer.VertexBuffer{vb}, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, f.drv.Count("EnableVertexAttribArray"))
}

func TestAttributeLimit(t *testing.T) {
	f := newFixture(t)
	prog := f.program(map[string]int32{"i_a": 0, "i_b": 4, "i_c": 8, "i_d": 12, "i_e": 16})
	format := buffer.NewVertexFormat()
	for _, name := range []string{"a", "b", "c", "d", "e"} {
		format.Attribute(name, buffer.TypeMatrix44Float32, 1)
	}
	ib := f.vertexBuffer(t, format)
	f.drv.Reset()

	_, err := f.bindings.Resolve(f.ctx, prog, nil, []buffer.VertexBuffer{ib})
	var limitErr *AttributeLimitError
	require.ErrorAs(t, err, &limitErr)
	assert.Equal(t, 20, limitErr.Slots)
	assert.Equal(t, MaxAttributes, limitErr.Limit)
	assert.Empty(t, f.drv.Calls())
}

func TestResolveRequiresCurrentContext(t *testing.T) {
	f := newFixture(t)
	prog := f.program(map[string]int32{"a_position": 0})
	vb := f.vertexBuffer(t, buffer.NewVertexFormat().Position(3))
	f.surface.current = 2

	_, err := f.bindings.Resolve(f.ctx, prog, []buffer.VertexBuffer{vb}, nil)
	var mismatch *ContextMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, uintptr(1), mismatch.Expected)
	assert.Equal(t, uintptr(2), mismatch.Actual)
	assert.Error(t, f.bindings.BindDefault(f.ctx))
}

func TestStaleInputsAreRejected(t *testing.T) {
	f := newFixture(t)
	prog := f.program(map[string]int32{"a_position": 0})
	vb := f.vertexBuffer(t, buffer.NewVertexFormat().Position(3))
	require.NoError(t, vb.Destroy())

	var stale *handle.StaleHandleError
	_, err := f.bindings.Resolve(f.ctx, prog, []buffer.VertexBuffer{vb}, nil)
	assert.ErrorAs(t, err, &stale)

	require.NoError(t, f.dev.Registry.Retire(prog.h))
	_, err = f.bindings.Resolve(f.ctx, prog, nil, nil)
	assert.ErrorAs(t, err, &stale)
}

func TestBufferDestroySweepsBinding(t *testing.T) {
	f := newFixture(t)
	prog := f.program(map[string]int32{"a_position": 0})
	format := buffer.NewVertexFormat().Position(3)
	vb := f.vertexBuffer(t, format)
	other := f.vertexBuffer(t, format)

	old, err := f.bindings.Resolve(f.ctx, prog, []buffer.VertexBuffer{vb}, nil)
	require.NoError(t, err)
	kept, err := f.bindings.Resolve(f.ctx, prog, []buffer.VertexBuffer{other}, nil)
	require.NoError(t, err)
	oldNative, err := f.dev.Registry.Native(old)
	require.NoError(t, err)

	require.NoError(t, vb.Destroy())

	assert.False(t, f.dev.Registry.Live(old))
	assert.True(t, f.dev.Registry.Live(kept))
	assert.Contains(t, f.drv.Calls(), recording.Call{Name: "DeleteVertexArray", Args: []any{oldNative}})
	assert.Equal(t, 1, f.bindings.Len(f.ctx))
	assert.Equal(t, uint64(1), f.bindings.Stats().Swept)

	fresh := f.vertexBuffer(t, format)
	h, err := f.bindings.Resolve(f.ctx, prog, []buffer.VertexBuffer{fresh}, nil)
	require.NoError(t, err)
	assert.NotEqual(t, old, h)
}

func TestProgramDestroySweepsBinding(t *testing.T) {
	f := newFixture(t)
	prog := f.program(map[string]int32{"a_position": 0})
	vb := f.vertexBuffer(t, buffer.NewVertexFormat().Position(3))

	h, err := f.bindings.Resolve(f.ctx, prog, []buffer.VertexBuffer{vb}, nil)
	require.NoError(t, err)

	f.dev.Bus.Publish(lifecycle.Event{Kind: lifecycle.ProgramDestroyed, Handle: prog.h})

	assert.False(t, f.dev.Registry.Live(h))
	assert.Equal(t, 0, f.bindings.Len(f.ctx))
	assert.Equal(t, 1, f.drv.Count("DeleteVertexArray"))
}

func TestSweepOffThreadIsDeferred(t *testing.T) {
	f := newFixture(t)
	prog := f.program(map[string]int32{"a_position": 0})
	vb := f.vertexBuffer(t, buffer.NewVertexFormat().Position(3))

	h, err := f.bindings.Resolve(f.ctx, prog, []buffer.VertexBuffer{vb}, nil)
	require.NoError(t, err)

	f.surface.current = 0
	require.NoError(t, vb.Destroy())
	assert.False(t, f.dev.Registry.Live(h))
	assert.Equal(t, 0, f.drv.Count("DeleteVertexArray"))

	f.surface.current = 1
	require.NoError(t, f.bindings.BindDefault(f.ctx))
	assert.Equal(t, 1, f.drv.Count("DeleteVertexArray"))
}

func TestContextDestroyReleasesPartition(t *testing.T) {
	f := newFixture(t)
	prog := f.program(map[string]int32{"a_position": 0})
	vb := f.vertexBuffer(t, buffer.NewVertexFormat().Position(3))

	h, err := f.bindings.Resolve(f.ctx, prog, []buffer.VertexBuffer{vb}, nil)
	require.NoError(t, err)
	def, err := f.bindings.DefaultBinding(f.ctx)
	require.NoError(t, err)

	f.dev.Bus.Publish(lifecycle.Event{Kind: lifecycle.ContextDestroyed, Context: f.ctx.ID()})

	assert.False(t, f.dev.Registry.Live(h))
	assert.False(t, f.dev.Registry.Live(def))
	assert.Equal(t, 0, f.drv.LiveVertexArrays())
	assert.Equal(t, 0, f.dev.Registry.Len(handle.KindVertexBinding))

	_, err = f.bindings.Resolve(f.ctx, prog, []buffer.VertexBuffer{vb}, nil)
	assert.ErrorIs(t, err, ErrContextDestroyed)
}

func TestPartitionsAreIndependent(t *testing.T) {
	f := newFixture(t)
	prog := f.program(map[string]int32{"a_position": 0})
	vb := f.vertexBuffer(t, buffer.NewVertexFormat().Position(3))
	second := gpu_context.New(2, f.surface)

	a, err := f.bindings.Resolve(f.ctx, prog, []buffer.VertexBuffer{vb}, nil)
	require.NoError(t, err)
	b, err := f.bindings.Resolve(second, prog, []buffer.VertexBuffer{vb}, nil)
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	assert.Equal(t, 1, f.bindings.Len(f.ctx))
	assert.Equal(t, 1, f.bindings.Len(second))
}

func TestBindRejectsBindingOfAnotherContext(t *testing.T) {
	f := newFixture(t)
	prog := f.program(map[string]int32{"a_position": 0})
	vb := f.vertexBuffer(t, buffer.NewVertexFormat().Position(3))
	other := &fakeSurface{current: 2}
	second := gpu_context.New(2, other)

	binding, err := f.bindings.Resolve(f.ctx, prog, []buffer.VertexBuffer{vb}, nil)
	require.NoError(t, err)
	f.surface.current = 2
	f.drv.Reset()

	err = f.bindings.Bind(second, binding)
	var mismatch *ContextMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, uint64(1), mismatch.Owner)
	assert.Equal(t, uint64(2), mismatch.Context)
	assert.Zero(t, f.drv.Count("BindVertexArray"))

	def, err := f.bindings.DefaultBinding(second)
	require.NoError(t, err)
	f.drv.Reset()
	require.NoError(t, f.bindings.Bind(second, def))
	assert.Equal(t, 1, f.drv.Count("BindVertexArray"))
}

func TestBindRejectsForeignHandle(t *testing.T) {
	f := newFixture(t)
	buf := f.vertexBuffer(t, buffer.NewVertexFormat().Position(3))

	var stale *handle.StaleHandleError
	assert.ErrorAs(t, f.bindings.Bind(f.ctx, buf.Handle()), &stale)
}

func TestResolveHitRestoresDefaultBinding(t *testing.T) {
	f := newFixture(t)
	prog := f.program(map[string]int32{"a_position": 0})
	vb := f.vertexBuffer(t, buffer.NewVertexFormat().Position(3))
	def, err := f.bindings.DefaultBinding(f.ctx)
	require.NoError(t, err)
	defNative, err := f.dev.Registry.Native(def)
	require.NoError(t, err)

	binding, err := f.bindings.Resolve(f.ctx, prog, []buffer.VertexBuffer{vb}, nil)
	require.NoError(t, err)
	assert.Equal(t, defNative, f.drv.BoundVertexArray())

	require.NoError(t, f.bindings.Bind(f.ctx, binding))
	_, err = f.bindings.Resolve(f.ctx, prog, []buffer.VertexBuffer{vb}, nil)
	require.NoError(t, err)
	assert.Equal(t, defNative, f.drv.BoundVertexArray())

	f.drv.Reset()
	_, err = f.bindings.Resolve(f.ctx, prog, []buffer.VertexBuffer{vb}, nil)
	require.NoError(t, err)
	assert.Zero(t, f.drv.Count("BindVertexArray"))
}
