package renderer

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync/atomic"

	"github.com/Carmen-Shannon/oxy-gl/common"
	"github.com/Carmen-Shannon/oxy-gl/engine/config"
	"github.com/Carmen-Shannon/oxy-gl/engine/renderer/buffer"
	"github.com/Carmen-Shannon/oxy-gl/engine/renderer/draw_style"
	"github.com/Carmen-Shannon/oxy-gl/engine/renderer/driver"
	"github.com/Carmen-Shannon/oxy-gl/engine/renderer/gpu_context"
	"github.com/Carmen-Shannon/oxy-gl/engine/renderer/handle"
	"github.com/Carmen-Shannon/oxy-gl/engine/renderer/lifecycle"
	"github.com/Carmen-Shannon/oxy-gl/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-gl/engine/renderer/shader_cache"
	"github.com/Carmen-Shannon/oxy-gl/engine/renderer/vertex_binding"
	"github.com/go-gl/mathgl/mgl32"
)

type glRendererBackendImpl struct {
	drv      driver.Driver
	registry handle.Registry
	bus      lifecycle.Bus
	logger   *slog.Logger

	shaders  shader_cache.ShaderCache
	bindings vertex_binding.BindingCache
	styles   draw_style.Engine

	debugErrors bool
	draws       atomic.Uint64
}

type glRendererBackend interface {
	Driver() driver.Driver
	Registry() handle.Registry
	Bus() lifecycle.Bus
	ShaderCache() shader_cache.ShaderCache
	BindingCache() vertex_binding.BindingCache
	StyleEngine() draw_style.Engine

	// Device returns the allocation context buffers are created against.
	Device() buffer.Device

	// Draw validates call against the driver's capabilities, then resolves the program and the
	// vertex binding, applies the draw style and issues the native draw. The default binding is
	// bound again before Draw returns, on success and on failure.
	//
	// Parameters:
	//   - ctx: the execution context current on the calling thread
	//   - call: the draw request
	//
	// Returns:
	//   - error: a capability, configuration, shader, binding or native error
	Draw(ctx *gpu_context.ExecutionContext, call DrawCall) error

	// DrawMulti issues every range of call with a single MultiDrawArrays.
	//
	// Parameters:
	//   - ctx: the execution context current on the calling thread
	//   - call: the ranges and their shared state
	//
	// Returns:
	//   - error: the same failures as Draw
	DrawMulti(ctx *gpu_context.ExecutionContext, call MultiDrawCall) error

	// Stats returns the draw count and the counters of every cache.
	Stats() Stats

	// Close releases every cached program and stops listening for lifecycle events.
	Close()
}

func newGLRendererBackend(drv driver.Driver, cfg config.Config, log *slog.Logger) (*glRendererBackendImpl, error) {
	b := &glRendererBackendImpl{
		drv:         drv,
		registry:    handle.NewRegistry(),
		bus:         lifecycle.NewBus(),
		logger:      log,
		debugErrors: cfg.DebugGLErrors,
	}

	b.bindings = vertex_binding.NewBindingCache(drv, b.registry, b.bus, vertex_binding.WithLogger(log))

	shaders, err := shader_cache.NewShaderCache(drv, b.registry, b.bus,
		shader_cache.WithSize(common.Coalesce(cfg.ShaderCacheSize, shader_cache.DefaultSize)),
		shader_cache.WithIgnoreErrors(cfg.IgnoreShaderErrors),
		shader_cache.WithPrewarmWorkers(common.Coalesce(cfg.PrewarmWorkers, shader_cache.DefaultPrewarmWorkers)),
		shader_cache.WithLogger(log),
	)
	if err != nil {
		b.bindings.Close()
		return nil, fmt.Errorf("create shader cache: %w", err)
	}
	b.shaders = shaders
	b.styles = draw_style.NewEngine(drv, draw_style.WithLogger(log))

	log.Info("[Renderer] backend ready", "version", drv.Version().String(), "glsl", drv.Version().GLSLVersion())
	return b, nil
}

func (b *glRendererBackendImpl) Driver() driver.Driver                     { return b.drv }
func (b *glRendererBackendImpl) Registry() handle.Registry                 { return b.registry }
func (b *glRendererBackendImpl) Bus() lifecycle.Bus                        { return b.bus }
func (b *glRendererBackendImpl) ShaderCache() shader_cache.ShaderCache     { return b.shaders }
func (b *glRendererBackendImpl) BindingCache() vertex_binding.BindingCache { return b.bindings }
func (b *glRendererBackendImpl) StyleEngine() draw_style.Engine            { return b.styles }

func (b *glRendererBackendImpl) Device() buffer.Device {
	return buffer.Device{Driver: b.drv, Registry: b.registry, Bus: b.bus}
}

func (b *glRendererBackendImpl) Stats() Stats {
	return Stats{
		Draws:    b.draws.Load(),
		Programs: b.shaders.Stats(),
		Bindings: b.bindings.Stats(),
		Styles:   b.styles.Stats(),
	}
}

func (b *glRendererBackendImpl) Close() {
	b.shaders.Close()
	b.bindings.Close()
}

// checkContext fails before any native call when ctx cannot take draws on this thread.
func checkContext(ctx *gpu_context.ExecutionContext) error {
	if ctx.Destroyed() {
		return vertex_binding.ErrContextDestroyed
	}
	if !ctx.IsCurrent() {
		return &vertex_binding.ContextMismatchError{Context: ctx.ID(), Expected: ctx.NativeIdentity(), Actual: ctx.CurrentIdentity()}
	}
	return nil
}

func (b *glRendererBackendImpl) checkPrimitive(p Primitive, verticesPerPatch int) error {
	if p != PrimitivePatches {
		return nil
	}
	if err := driver.Require(b.drv, driver.CapabilityTessellation, "patch primitives"); err != nil {
		return err
	}
	if verticesPerPatch < 1 {
		return fmt.Errorf("patch primitives need at least one vertex per patch, got %d", verticesPerPatch)
	}
	return nil
}

// validate runs every check that does not need a native call.
func (b *glRendererBackendImpl) validate(ctx *gpu_context.ExecutionContext, call DrawCall) error {
	if err := checkContext(ctx); err != nil {
		return err
	}
	if call.Count < 0 || call.Offset < 0 || call.InstanceCount < 0 || call.InstanceOffset < 0 {
		return fmt.Errorf("negative draw range (offset %d, count %d, instances %d at %d)",
			call.Offset, call.Count, call.InstanceCount, call.InstanceOffset)
	}
	if call.IndexBuffer != nil && call.Offset+call.Count > call.IndexBuffer.Count() {
		return fmt.Errorf("index range [%d, %d) exceeds %d indices", call.Offset, call.Offset+call.Count, call.IndexBuffer.Count())
	}
	if err := b.checkPrimitive(call.Primitive, call.VerticesPerPatch); err != nil {
		return err
	}
	if call.InstanceOffset != 0 {
		if call.InstanceCount == 0 {
			return errors.New("instance offset set on a non-instanced draw")
		}
		// GLES has no indexed base-instance entry point even where the array variant exists.
		if call.IndexBuffer != nil && b.drv.Version().IsGLES() {
			return &driver.CapabilityError{
				Capability: driver.CapabilityBaseInstance,
				Version:    b.drv.Version(),
				Detail:     "indexed draws need a zero instance offset",
			}
		}
		if err := driver.Require(b.drv, driver.CapabilityBaseInstance, "non-zero instance offset"); err != nil {
			return err
		}
	}
	return call.DrawStyle.Validate()
}

func formatsOf(buffers []buffer.VertexBuffer) []*buffer.VertexFormat {
	out := make([]*buffer.VertexFormat, len(buffers))
	for i, vb := range buffers {
		out[i] = vb.Format()
	}
	return out
}

// prepare is the shared part of Draw and DrawMulti. On success the returned binding is bound
// and the caller owes a restore of the default binding.
func (b *glRendererBackendImpl) prepare(ctx *gpu_context.ExecutionContext, style shader.ShadeStyle, ds draw_style.DrawStyle,
	vertexBuffers, instanceBuffers []buffer.VertexBuffer, transforms *Transforms, fill mgl32.Vec4) error {
	program, err := b.shaders.ResolveStyle(style, formatsOf(vertexBuffers), formatsOf(instanceBuffers))
	if err != nil {
		return fmt.Errorf("resolve program: %w", err)
	}
	binding, err := b.bindings.Resolve(ctx, program, vertexBuffers, instanceBuffers)
	if err != nil {
		return fmt.Errorf("resolve vertex binding for %q: %w", program.Name(), err)
	}
	if err := b.styles.Apply(ctx, ds); err != nil {
		return err
	}

	ctx.UseProgram(b.drv, program.Handle(), program.Native())
	if err := b.setFixedUniforms(ctx, program, transforms, fill); err != nil {
		return err
	}
	if style != nil {
		if err := program.ApplyParameters(ctx, style.Parameters()); err != nil {
			return fmt.Errorf("apply parameters of %q: %w", program.Name(), err)
		}
		if err := b.bindStorageBuffers(style.Buffers()); err != nil {
			return fmt.Errorf("bind storage buffers of %q: %w", program.Name(), err)
		}
	}
	return b.bindings.Bind(ctx, binding)
}

// bindStorageBuffers binds each declared buffer that carries a handle to its binding point,
// in name order.
func (b *glRendererBackendImpl) bindStorageBuffers(buffers map[string]shader.BufferBinding) error {
	names := make([]string, 0, len(buffers))
	for name, binding := range buffers {
		if !binding.Buffer.IsZero() {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	for _, name := range names {
		binding := buffers[name]
		native, err := b.registry.Native(binding.Buffer)
		if err != nil {
			return fmt.Errorf("buffer %q: %w", name, err)
		}
		b.drv.BindBufferBase(driver.SHADER_STORAGE_BUFFER, uint32(binding.Binding), native)
	}
	return nil
}

func (b *glRendererBackendImpl) setFixedUniforms(ctx *gpu_context.ExecutionContext, program shader.Program, transforms *Transforms, fill mgl32.Vec4) error {
	t := IdentityTransforms()
	if transforms != nil {
		t = *transforms
	}
	target := ctx.ActiveTarget()
	scale := target.ContentScale
	if scale <= 0 {
		scale = 1
	}
	view := mgl32.Vec2{float32(float64(target.Width) / scale), float32(float64(target.Height) / scale)}

	return errors.Join(
		program.SetUniform("u_modelMatrix", shader.Mat4(t.Model)),
		program.SetUniform("u_viewMatrix", shader.Mat4(t.View)),
		program.SetUniform("u_projectionMatrix", shader.Mat4(t.Projection)),
		program.SetUniform("u_viewDimensions", shader.Vec2(view)),
		program.SetUniform("u_contentScale", shader.Float(float32(scale))),
		program.SetUniform("u_fill", shader.Vec4(fill)),
	)
}

func (b *glRendererBackendImpl) restoreDefault(ctx *gpu_context.ExecutionContext) {
	if err := b.bindings.BindDefault(ctx); err != nil {
		b.logger.Warn("[Renderer] restore default binding", "context", ctx.ID(), "error", err)
	}
}

func (b *glRendererBackendImpl) checkNative(operation string) error {
	if !b.debugErrors {
		return nil
	}
	if code := b.drv.GetError(); code != driver.NO_ERROR {
		return &NativeError{Operation: operation, Code: code}
	}
	return nil
}

func (b *glRendererBackendImpl) Draw(ctx *gpu_context.ExecutionContext, call DrawCall) error {
	if err := b.validate(ctx, call); err != nil {
		return err
	}
	defer b.restoreDefault(ctx)

	if err := b.prepare(ctx, call.Style, call.DrawStyle, call.VertexBuffers, call.InstanceBuffers, call.Transforms, call.Fill); err != nil {
		return err
	}
	mode := call.Primitive.mode()
	if call.Primitive == PrimitivePatches {
		b.drv.PatchParameteri(driver.PATCH_VERTICES, int32(call.VerticesPerPatch))
	}

	count := int32(call.Count)
	instances := int32(call.InstanceCount)
	if call.IndexBuffer != nil {
		native, err := b.registry.Native(call.IndexBuffer.Handle())
		if err != nil {
			return fmt.Errorf("index buffer: %w", err)
		}
		b.drv.BindBuffer(driver.ELEMENT_ARRAY_BUFFER, native)
		indexType := call.IndexBuffer.Type()
		offset := call.Offset * indexType.Size()
		switch {
		case instances == 0:
			b.drv.DrawElements(mode, count, indexType.GLType(), offset)
		case call.InstanceOffset != 0:
			b.drv.DrawElementsInstancedBaseInstance(mode, count, indexType.GLType(), offset, instances, uint32(call.InstanceOffset))
		default:
			b.drv.DrawElementsInstanced(mode, count, indexType.GLType(), offset, instances)
		}
	} else {
		first := int32(call.Offset)
		switch {
		case instances == 0:
			b.drv.DrawArrays(mode, first, count)
		case call.InstanceOffset != 0:
			b.drv.DrawArraysInstancedBaseInstance(mode, first, count, instances, uint32(call.InstanceOffset))
		default:
			b.drv.DrawArraysInstanced(mode, first, count, instances)
		}
	}
	b.draws.Add(1)
	return b.checkNative("draw")
}

func (b *glRendererBackendImpl) DrawMulti(ctx *gpu_context.ExecutionContext, call MultiDrawCall) error {
	if err := checkContext(ctx); err != nil {
		return err
	}
	if len(call.Offsets) != len(call.Counts) {
		return fmt.Errorf("multi draw has %d offsets and %d counts", len(call.Offsets), len(call.Counts))
	}
	if err := b.checkPrimitive(call.Primitive, call.VerticesPerPatch); err != nil {
		return err
	}
	if err := call.DrawStyle.Validate(); err != nil {
		return err
	}
	if len(call.Counts) == 0 {
		return nil
	}
	first := make([]int32, len(call.Offsets))
	counts := make([]int32, len(call.Counts))
	for i := range call.Offsets {
		if call.Offsets[i] < 0 || call.Counts[i] < 0 {
			return fmt.Errorf("negative range %d (offset %d, count %d)", i, call.Offsets[i], call.Counts[i])
		}
		first[i] = int32(call.Offsets[i])
		counts[i] = int32(call.Counts[i])
	}
	defer b.restoreDefault(ctx)

	if err := b.prepare(ctx, call.Style, call.DrawStyle, call.VertexBuffers, nil, call.Transforms, call.Fill); err != nil {
		return err
	}
	if call.Primitive == PrimitivePatches {
		b.drv.PatchParameteri(driver.PATCH_VERTICES, int32(call.VerticesPerPatch))
	}
	b.drv.MultiDrawArrays(call.Primitive.mode(), first, counts)
	b.draws.Add(1)
	return b.checkNative("multi draw")
}
