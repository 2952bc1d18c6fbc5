package renderer

import (
	"strings"
	"testing"

	"github.com/Carmen-Shannon/oxy-gl/engine/config"
	"github.com/Carmen-Shannon/oxy-gl/engine/renderer/buffer"
	"github.com/Carmen-Shannon/oxy-gl/engine/renderer/draw_style"
	"github.com/Carmen-Shannon/oxy-gl/engine/renderer/driver"
	"github.com/Carmen-Shannon/oxy-gl/engine/renderer/driver/recording"
	"github.com/Carmen-Shannon/oxy-gl/engine/renderer/gpu_context"
	"github.com/Carmen-Shannon/oxy-gl/engine/renderer/handle"
	"github.com/Carmen-Shannon/oxy-gl/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-gl/engine/renderer/vertex_binding"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSurface struct {
	current uintptr
}

func (s *fakeSurface) CurrentContext() uintptr     { return s.current }
func (s *fakeSurface) FramebufferSize() (int, int) { return 800, 600 }
func (s *fakeSurface) ContentScale() float64       { return 2 }

type fixture struct {
	drv     *recording.Driver
	r       Renderer
	surface *fakeSurface
	ctx     *gpu_context.ExecutionContext
}

func newFixture(t *testing.T, drv *recording.Driver, options ...RendererBuilderOption) *fixture {
	t.Helper()
	r, err := NewRenderer(BackendTypeGL, append([]RendererBuilderOption{WithDriver(drv)}, options...)...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })
	surface := &fakeSurface{current: 1}
	return &fixture{drv: drv, r: r, surface: surface, ctx: r.NewContext(surface)}
}

var positions = buffer.NewVertexFormat().Position(3)

func (f *fixture) vertexBuffer(t *testing.T) buffer.VertexBuffer {
	t.Helper()
	vb, err := f.r.CreateVertexBuffer(positions, 6)
	require.NoError(t, err)
	return vb
}

func (f *fixture) defaultNative(t *testing.T) uint32 {
	t.Helper()
	h, err := f.r.BindingCache().DefaultBinding(f.ctx)
	require.NoError(t, err)
	native, err := f.r.(*renderer).backend.Registry().Native(h)
	require.NoError(t, err)
	return native
}

func triangles(vb buffer.VertexBuffer) DrawCall {
	return DrawCall{
		DrawStyle:     draw_style.NewDrawStyle(),
		VertexBuffers: []buffer.VertexBuffer{vb},
		Primitive:     PrimitiveTriangles,
		Count:         3,
	}
}

func indexOf(names []string, name string, from int) int {
	for i := from; i < len(names); i++ {
		if names[i] == name {
			return i
		}
	}
	return -1
}

func TestDrawSequence(t *testing.T) {
	f := newFixture(t, recording.New(driver.VersionGL33))
	vb := f.vertexBuffer(t)
	f.drv.Reset()

	require.NoError(t, f.r.Draw(f.ctx, triangles(vb)))

	names := f.drv.Names()
	link := indexOf(names, "LinkProgram", 0)
	gen := indexOf(names, "GenVertexArray", link)
	use := indexOf(names, "UseProgram", gen)
	draw := indexOf(names, "DrawArrays", use)
	assert.True(t, link >= 0 && gen > link && use > gen && draw > use, "order: %v", names)

	calls := f.drv.Calls()
	assert.Equal(t, recording.Call{Name: "DrawArrays", Args: []any{driver.TRIANGLES, int32(0), int32(3)}}, calls[draw])
	assert.Equal(t, recording.Call{Name: "BindVertexArray", Args: []any{f.defaultNative(t)}}, calls[len(calls)-1])
	assert.Equal(t, f.defaultNative(t), f.drv.BoundVertexArray())
	assert.Equal(t, 3, f.drv.Count("UniformMatrix4fv"))
	assert.Equal(t, uint64(1), f.r.Stats().Draws)
}

func TestRepeatedDrawReusesProgramBindingAndState(t *testing.T) {
	f := newFixture(t, recording.New(driver.VersionGL33))
	vb := f.vertexBuffer(t)

	require.NoError(t, f.r.Draw(f.ctx, triangles(vb)))
	f.drv.Reset()
	require.NoError(t, f.r.Draw(f.ctx, triangles(vb)))

	assert.Zero(t, f.drv.Count("CreateProgram"))
	assert.Zero(t, f.drv.Count("GenVertexArray"))
	assert.Zero(t, f.drv.Count("UseProgram"))
	assert.Empty(t, f.drv.StateCalls())

	stats := f.r.Stats()
	assert.Equal(t, uint64(1), stats.Programs.Builds)
	assert.Equal(t, uint64(1), stats.Bindings.Hits)
}

func TestIndexedInstancedDrawWithBaseInstance(t *testing.T) {
	f := newFixture(t, recording.New(driver.VersionGL42))
	vb := f.vertexBuffer(t)
	ib, err := f.r.CreateIndexBuffer(buffer.IndexUint16, 12)
	require.NoError(t, err)
	native, err := f.r.(*renderer).backend.Registry().Native(ib.Handle())
	require.NoError(t, err)

	call := triangles(vb)
	call.IndexBuffer = ib
	call.Offset = 6
	call.Count = 6
	call.InstanceCount = 4
	call.InstanceOffset = 2
	require.NoError(t, f.r.Draw(f.ctx, call))

	calls := f.drv.Calls()
	assert.Contains(t, calls, recording.Call{Name: "BindBuffer", Args: []any{driver.ELEMENT_ARRAY_BUFFER, native}})
	assert.Contains(t, calls, recording.Call{
		Name: "DrawElementsInstancedBaseInstance",
		Args: []any{driver.TRIANGLES, int32(6), driver.UNSIGNED_SHORT, 12, int32(4), uint32(2)},
	})

	call.InstanceOffset = 0
	require.NoError(t, f.r.Draw(f.ctx, call))
	assert.Equal(t, 1, f.drv.Count("DrawElementsInstanced"))
}

func TestInstanceOffsetWithoutBaseInstanceFailsBeforeNativeCalls(t *testing.T) {
	f := newFixture(t, recording.New(driver.VersionGL33))
	vb := f.vertexBuffer(t)
	f.drv.Reset()

	call := triangles(vb)
	call.InstanceCount = 2
	call.InstanceOffset = 1
	err := f.r.Draw(f.ctx, call)

	var capErr *driver.CapabilityError
	require.ErrorAs(t, err, &capErr)
	assert.Equal(t, driver.CapabilityBaseInstance, capErr.Capability)
	assert.Empty(t, f.drv.Calls())
}

func TestGLESRejectsIndexedInstanceOffset(t *testing.T) {
	drv := recording.New(driver.VersionGLES32)
	caps := drv.Capabilities()
	caps.BaseInstance = true
	drv.SetCapabilities(caps)
	f := newFixture(t, drv)
	vb := f.vertexBuffer(t)
	ib, err := f.r.CreateIndexBuffer(buffer.IndexUint32, 3)
	require.NoError(t, err)
	f.drv.Reset()

	call := triangles(vb)
	call.IndexBuffer = ib
	call.InstanceCount = 2
	call.InstanceOffset = 1
	err = f.r.Draw(f.ctx, call)

	var capErr *driver.CapabilityError
	require.ErrorAs(t, err, &capErr)
	assert.Equal(t, driver.VersionGLES32, capErr.Version)
	assert.Empty(t, f.drv.Calls())
}

func TestPatchesNeedTessellation(t *testing.T) {
	f := newFixture(t, recording.New(driver.VersionGL33))
	vb := f.vertexBuffer(t)
	f.drv.Reset()

	call := triangles(vb)
	call.Primitive = PrimitivePatches
	call.VerticesPerPatch = 3
	var capErr *driver.CapabilityError
	require.ErrorAs(t, f.r.Draw(f.ctx, call), &capErr)
	assert.Equal(t, driver.CapabilityTessellation, capErr.Capability)
	assert.Empty(t, f.drv.Calls())

	g := newFixture(t, recording.New(driver.VersionGL41))
	call.VertexBuffers = []buffer.VertexBuffer{g.vertexBuffer(t)}
	require.NoError(t, g.r.Draw(g.ctx, call))
	names := g.drv.Names()
	patch := indexOf(names, "PatchParameteri", 0)
	assert.True(t, patch >= 0 && patch < indexOf(names, "DrawArrays", patch))
	assert.Contains(t, g.drv.Calls(), recording.Call{Name: "PatchParameteri", Args: []any{driver.PATCH_VERTICES, int32(3)}})
	assert.Contains(t, g.drv.Calls(), recording.Call{Name: "DrawArrays", Args: []any{driver.PATCHES, int32(0), int32(3)}})
}

func TestAsymmetricStencilFailsBeforeNativeCalls(t *testing.T) {
	f := newFixture(t, recording.New(driver.VersionGL33))
	vb := f.vertexBuffer(t)
	f.drv.Reset()

	back := draw_style.DefaultStencil()
	back.Test = draw_style.StencilEqual
	call := triangles(vb)
	call.DrawStyle = draw_style.NewDrawStyle(draw_style.WithBackStencil(back))

	var confErr *draw_style.ConfigurationError
	require.ErrorAs(t, f.r.Draw(f.ctx, call), &confErr)
	assert.Empty(t, f.drv.Calls())
}

func TestDrawRequiresCurrentContext(t *testing.T) {
	f := newFixture(t, recording.New(driver.VersionGL33))
	vb := f.vertexBuffer(t)
	f.drv.Reset()
	f.surface.current = 9

	var mismatch *vertex_binding.ContextMismatchError
	require.ErrorAs(t, f.r.Draw(f.ctx, triangles(vb)), &mismatch)
	assert.Empty(t, f.drv.Calls())
}

func TestDestroyedBufferIsNotReboundThroughOldBinding(t *testing.T) {
	drv := recording.New(driver.VersionGL33)
	drv.Recycle = true
	f := newFixture(t, drv)
	v1 := f.vertexBuffer(t)
	require.NoError(t, f.r.Draw(f.ctx, triangles(v1)))
	program, err := f.r.ShaderCache().ResolveStyle(nil, []*buffer.VertexFormat{positions}, nil)
	require.NoError(t, err)
	require.True(t, f.r.BindingCache().Contains(f.ctx, program, []buffer.VertexBuffer{v1}, nil))

	require.NoError(t, v1.Destroy())
	assert.False(t, f.r.BindingCache().Contains(f.ctx, program, []buffer.VertexBuffer{v1}, nil))

	v2 := f.vertexBuffer(t)
	f.drv.Reset()
	require.NoError(t, f.r.Draw(f.ctx, triangles(v2)))
	assert.Equal(t, 1, f.drv.Count("GenVertexArray"))
	assert.True(t, f.r.BindingCache().Contains(f.ctx, program, []buffer.VertexBuffer{v2}, nil))
}

func TestDirtyStyleRebuildsProgramAndBinding(t *testing.T) {
	f := newFixture(t, recording.New(driver.VersionGL33))
	vb := f.vertexBuffer(t)
	style := shader.NewShadeStyle(
		shader.WithParameter("tint", shader.Vec4(mgl32.Vec4{1, 0, 0, 1})),
		shader.WithFragmentTransform("x_fill *= p_tint;"),
	)
	call := triangles(vb)
	call.Style = style

	require.NoError(t, f.r.Draw(f.ctx, call))
	assert.Equal(t, 2, f.drv.Count("Uniform4fv"))

	style.MarkDirty()
	require.NoError(t, f.r.Draw(f.ctx, call))

	assert.Equal(t, 2, f.drv.Count("CreateProgram"))
	assert.Equal(t, 1, f.drv.LivePrograms())
	assert.Equal(t, 1, f.r.BindingCache().Len(f.ctx))
}

func TestDestroyProgramDropsItsBindings(t *testing.T) {
	f := newFixture(t, recording.New(driver.VersionGL33))
	vb := f.vertexBuffer(t)
	call := triangles(vb)
	call.Style = shader.NewShadeStyle(shader.WithFragmentTransform("x_fill.a = 0.5;"))
	require.NoError(t, f.r.Draw(f.ctx, call))
	program, err := f.r.ShaderCache().ResolveStyle(call.Style, []*buffer.VertexFormat{positions}, nil)
	require.NoError(t, err)
	require.Equal(t, 1, f.r.BindingCache().Len(f.ctx))

	require.NoError(t, f.r.DestroyProgram(program))

	assert.Equal(t, 0, f.r.BindingCache().Len(f.ctx))
	assert.False(t, f.r.ShaderCache().Contains(program.Structure()))
	assert.Equal(t, 0, f.drv.LivePrograms())
}

func TestDestroyContextReleasesBindings(t *testing.T) {
	f := newFixture(t, recording.New(driver.VersionGL33))
	vb := f.vertexBuffer(t)
	require.NoError(t, f.r.Draw(f.ctx, triangles(vb)))

	require.NoError(t, f.r.DestroyContext(f.ctx))

	assert.True(t, f.ctx.Destroyed())
	assert.Equal(t, 0, f.drv.LiveVertexArrays())
	assert.ErrorIs(t, f.r.Draw(f.ctx, triangles(vb)), vertex_binding.ErrContextDestroyed)
	assert.Error(t, f.r.DestroyContext(f.ctx))
}

func TestDrawMulti(t *testing.T) {
	f := newFixture(t, recording.New(driver.VersionGL33))
	vb := f.vertexBuffer(t)

	err := f.r.DrawMulti(f.ctx, MultiDrawCall{
		DrawStyle:     draw_style.NewDrawStyle(),
		VertexBuffers: []buffer.VertexBuffer{vb},
		Primitive:     PrimitiveTriangleStrip,
		Offsets:       []int{0, 3},
		Counts:        []int{3, 3},
	})
	require.NoError(t, err)
	assert.Contains(t, f.drv.Calls(), recording.Call{
		Name: "MultiDrawArrays",
		Args: []any{driver.TRIANGLE_STRIP, []int32{0, 3}, []int32{3, 3}},
	})

	err = f.r.DrawMulti(f.ctx, MultiDrawCall{VertexBuffers: []buffer.VertexBuffer{vb}, Offsets: []int{0}})
	assert.Error(t, err)
}

func TestDebugGLErrorsReportsNativeError(t *testing.T) {
	f := newFixture(t, recording.New(driver.VersionGL33), WithDebugGLErrors(true))
	vb := f.vertexBuffer(t)
	f.drv.PendingError = 0x0502

	var nativeErr *NativeError
	require.ErrorAs(t, f.r.Draw(f.ctx, triangles(vb)), &nativeErr)
	assert.Equal(t, uint32(0x0502), nativeErr.Code)
	assert.Equal(t, f.defaultNative(t), f.drv.BoundVertexArray())
}

func TestIgnoreShaderErrorsKeepsDrawing(t *testing.T) {
	drv := recording.New(driver.VersionGL33)
	drv.FailCompile = func(stage uint32, source string) string {
		if stage == driver.FRAGMENT_SHADER && strings.Contains(source, "broken") {
			return "0:1: 'broken' : undeclared identifier"
		}
		return ""
	}
	cfg := config.Default()
	cfg.IgnoreShaderErrors = true
	f := newFixture(t, drv, WithConfig(cfg))
	vb := f.vertexBuffer(t)

	call := triangles(vb)
	call.Style = shader.NewShadeStyle(shader.WithFragmentTransform("x_fill = broken;"))
	require.NoError(t, f.r.Draw(f.ctx, call))
	assert.Equal(t, 1, f.drv.Count("DrawArrays"))

	g := newFixture(t, drv)
	vb = g.vertexBuffer(t)
	call.VertexBuffers = []buffer.VertexBuffer{vb}
	var compileErr *shader.CompileError
	assert.ErrorAs(t, g.r.Draw(g.ctx, call), &compileErr)
}

func TestWriteBuffers(t *testing.T) {
	f := newFixture(t, recording.New(driver.VersionGL33))
	vb := f.vertexBuffer(t)

	require.NoError(t, f.r.WriteBuffers([]buffer.BufferWrite{{Buffer: vb, Data: make([]byte, 12)}}))
	assert.Error(t, f.r.WriteBuffers([]buffer.BufferWrite{{Buffer: vb, Offset: 70, Data: make([]byte, 12)}}))
}

func TestTextureParametersBindRegisteredTextures(t *testing.T) {
	f := newFixture(t, recording.New(driver.VersionGL33))
	vb := f.vertexBuffer(t)
	res := f.r.RegisterTexture(0, 42)
	style := shader.NewShadeStyle(
		shader.WithParameter("image", shader.Texture(res)),
		shader.WithFragmentTransform("x_fill = texture(p_image, vec2(0.5));"),
	)
	call := triangles(vb)
	call.Style = style
	bindImage := recording.Call{Name: "BindTexture", Args: []any{driver.TEXTURE_2D, uint32(42)}}

	require.NoError(t, f.r.Draw(f.ctx, call))
	assert.Contains(t, f.drv.Calls(), recording.Call{Name: "ActiveTexture", Args: []any{driver.TEXTURE0 + uint32(shader.FirstResourceUnit)}})
	assert.Contains(t, f.drv.Calls(), bindImage)

	f.drv.Reset()
	require.NoError(t, f.r.Draw(f.ctx, call))
	assert.Zero(t, f.drv.Count("BindTexture"))

	require.NoError(t, f.r.ReleaseTexture(res))
	var stale *handle.StaleHandleError
	assert.ErrorAs(t, f.r.Draw(f.ctx, call), &stale)
	assert.ErrorAs(t, f.r.ReleaseTexture(res), &stale)

	style.SetParameter("image", shader.Texture(f.r.RegisterTexture(driver.TEXTURE_2D, 42)))
	f.drv.Reset()
	require.NoError(t, f.r.Draw(f.ctx, call))
	assert.Equal(t, []recording.Call{bindImage}, callsNamed(f.drv, "BindTexture"))
}

func TestStyleStorageBuffersAreBoundBeforeDraw(t *testing.T) {
	f := newFixture(t, recording.New(driver.VersionGL43))
	vb := f.vertexBuffer(t)
	sb, err := f.r.CreateStorageBuffer(64)
	require.NoError(t, err)
	native, err := f.r.(*renderer).backend.Registry().Native(sb.Handle())
	require.NoError(t, err)

	style := shader.NewShadeStyle(
		shader.WithBuffer("lights", shader.BufferBinding{Binding: 3, ElementType: "vec4", Buffer: sb.Handle()}),
		shader.WithBuffer("declared", shader.BufferBinding{Binding: 4, ElementType: "float"}),
		shader.WithFragmentTransform("x_fill = b_lights[0];"),
	)
	call := triangles(vb)
	call.Style = style
	f.drv.Reset()

	require.NoError(t, f.r.Draw(f.ctx, call))
	names := f.drv.Names()
	bind := indexOf(names, "BindBufferBase", 0)
	draw := indexOf(names, "DrawArrays", 0)
	assert.True(t, bind >= 0 && draw > bind, "order: %v", names)
	assert.Equal(t, []recording.Call{{Name: "BindBufferBase", Args: []any{driver.SHADER_STORAGE_BUFFER, uint32(3), native}}},
		callsNamed(f.drv, "BindBufferBase"))

	require.NoError(t, sb.Destroy())
	f.drv.Reset()
	var stale *handle.StaleHandleError
	assert.ErrorAs(t, f.r.Draw(f.ctx, call), &stale)
	assert.Zero(t, f.drv.Count("DrawArrays"))
}

func callsNamed(d *recording.Driver, name string) []recording.Call {
	var out []recording.Call
	for _, c := range d.Calls() {
		if c.Name == name {
			out = append(out, c)
		}
	}
	return out
}
