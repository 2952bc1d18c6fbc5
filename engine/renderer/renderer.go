package renderer

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/Carmen-Shannon/oxy-gl/engine/config"
	"github.com/Carmen-Shannon/oxy-gl/engine/logger"
	"github.com/Carmen-Shannon/oxy-gl/engine/renderer/buffer"
	"github.com/Carmen-Shannon/oxy-gl/engine/renderer/driver"
	"github.com/Carmen-Shannon/oxy-gl/engine/renderer/gl_driver"
	"github.com/Carmen-Shannon/oxy-gl/engine/renderer/gpu_context"
	"github.com/Carmen-Shannon/oxy-gl/engine/renderer/handle"
	"github.com/Carmen-Shannon/oxy-gl/engine/renderer/lifecycle"
	"github.com/Carmen-Shannon/oxy-gl/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-gl/engine/renderer/shader/watch"
	"github.com/Carmen-Shannon/oxy-gl/engine/renderer/shader_cache"
	"github.com/Carmen-Shannon/oxy-gl/engine/renderer/vertex_binding"
)

// renderer is the implementation of the Renderer interface.
type renderer struct {
	mu *sync.Mutex

	backendType RendererBackendType
	backend     RendererBackend

	// Pre-creation config collected from builder options
	cfg    config.Config
	drv    driver.Driver
	logger *slog.Logger

	contexts    map[uint64]*gpu_context.ExecutionContext
	nextContext uint64

	watcher watch.Watcher
	watched shader.ShadeStyle
}

// Renderer defines the interface for the rendering system.
//
// The Renderer owns the shader cache, the vertex binding cache and the draw-style engine, and
// funnels every draw through them so that repeated draws with the same shape reuse compiled
// programs and vertex arrays and only emit the state transitions they need.
// Draws for one execution context must come from the thread where that context is current.
type Renderer interface {
	// NewContext creates the execution context for the native context current on surface.
	//
	// Parameters:
	//   - surface: the surface whose native context is current on the calling thread
	//
	// Returns:
	//   - *gpu_context.ExecutionContext: the new context
	NewContext(surface gpu_context.Surface) *gpu_context.ExecutionContext

	// DestroyContext purges every cache entry keyed to ctx and frees its default binding.
	// Call it before the native context is destroyed.
	//
	// Parameters:
	//   - ctx: the context to tear down
	//
	// Returns:
	//   - error: an error if ctx is unknown or already destroyed
	DestroyContext(ctx *gpu_context.ExecutionContext) error

	// CreateVertexBuffer allocates a per-vertex buffer.
	//
	// Parameters:
	//   - format: the interleaved layout of one vertex
	//   - vertexCount: the number of vertices the buffer holds
	//   - options: buffer options such as usage, label and initial data
	//
	// Returns:
	//   - buffer.VertexBuffer: the new buffer
	//   - error: an error if the size or initial data is invalid
	CreateVertexBuffer(format *buffer.VertexFormat, vertexCount int, options ...buffer.BufferBuilderOption) (buffer.VertexBuffer, error)

	// CreateInstanceBuffer allocates a per-instance buffer. Its attributes bind with the i_
	// prefix and advance once per instance.
	//
	// Parameters:
	//   - format: the interleaved layout of one instance
	//   - instanceCount: the number of instances the buffer holds
	//   - options: buffer options
	//
	// Returns:
	//   - buffer.VertexBuffer: the new buffer
	//   - error: an error if the size or initial data is invalid
	CreateInstanceBuffer(format *buffer.VertexFormat, instanceCount int, options ...buffer.BufferBuilderOption) (buffer.VertexBuffer, error)

	// CreateIndexBuffer allocates an index buffer.
	//
	// Parameters:
	//   - indexType: the index width
	//   - count: the number of indices
	//   - options: buffer options
	//
	// Returns:
	//   - buffer.IndexBuffer: the new buffer
	//   - error: an error if the size or initial data is invalid
	CreateIndexBuffer(indexType buffer.IndexType, count int, options ...buffer.BufferBuilderOption) (buffer.IndexBuffer, error)

	// CreateStorageBuffer allocates a raw buffer for a shade style's storage buffer bindings.
	//
	// Parameters:
	//   - size: the buffer size in bytes
	//   - options: buffer options
	//
	// Returns:
	//   - buffer.StorageBuffer: the new buffer
	//   - error: an error if the size or initial data is invalid
	CreateStorageBuffer(size int, options ...buffer.BufferBuilderOption) (buffer.StorageBuffer, error)

	// RegisterTexture wraps a caller-owned native texture in a resource for shader.Texture
	// parameters.
	//
	// Parameters:
	//   - target: the texture target, driver.TEXTURE_2D when zero
	//   - native: the native texture name
	//
	// Returns:
	//   - shader.Resource: the resource addressing the texture
	RegisterTexture(target, native uint32) shader.Resource

	// ReleaseTexture retires the resource's handle and clears it from every context's texture
	// units. Call it before deleting the native texture, from the render thread.
	//
	// Parameters:
	//   - res: a resource returned by RegisterTexture
	//
	// Returns:
	//   - error: *handle.StaleHandleError if the resource was already released
	ReleaseTexture(res shader.Resource) error

	// WriteBuffers performs the staged uploads in order and stops at the first failure.
	//
	// Parameters:
	//   - writes: the uploads to perform
	//
	// Returns:
	//   - error: the first failed write
	WriteBuffers(writes []buffer.BufferWrite) error

	// Draw issues one draw call on ctx. Capability and configuration errors are reported
	// before any native call is made.
	//
	// Parameters:
	//   - ctx: the execution context current on the calling thread
	//   - call: the draw request
	//
	// Returns:
	//   - error: the failure, with the default binding restored
	Draw(ctx *gpu_context.ExecutionContext, call DrawCall) error

	// DrawMulti issues several non-indexed ranges sharing one program, binding and style.
	//
	// Parameters:
	//   - ctx: the execution context current on the calling thread
	//   - call: the ranges and their shared state
	//
	// Returns:
	//   - error: the failure, with the default binding restored
	DrawMulti(ctx *gpu_context.ExecutionContext, call MultiDrawCall) error

	// DestroyProgram deletes a cached program and every vertex binding built for it.
	//
	// Parameters:
	//   - program: a program returned by the shader cache
	//
	// Returns:
	//   - error: *handle.StaleHandleError if the program was already destroyed
	DestroyProgram(program shader.Program) error

	// Prewarm builds programs for structures ahead of their first draw.
	//
	// Parameters:
	//   - structures: the structures to build
	//
	// Returns:
	//   - error: the joined failures; the remaining structures are still built
	Prewarm(structures []shader.ShadeStructure) error

	// WatchedStyle returns the style whose snippets are bound to the configured watch_styles
	// files, or nil when none are configured.
	WatchedStyle() shader.ShadeStyle

	// ShaderCache returns the structural shader cache.
	ShaderCache() shader_cache.ShaderCache

	// BindingCache returns the vertex binding cache.
	BindingCache() vertex_binding.BindingCache

	// Driver returns the native driver the renderer issues calls through.
	Driver() driver.Driver

	// Stats returns the draw count and the counters of every cache.
	Stats() Stats

	// Close releases every cached program and stops the style watcher. Contexts must be
	// destroyed first.
	//
	// Returns:
	//   - error: an error if the watcher fails to stop
	Close() error
}

var _ Renderer = &renderer{}

// NewRenderer creates a new Renderer with the specified backend type.
// Unless WithDriver is given, the GL backend loads the native driver for the context current
// on the calling thread, so a window must have made its context current first.
//
// Parameters:
//   - backendType: the type of rendering backend to use (e.g., GL)
//   - options: variadic list of RendererBuilderOption functions to configure the Renderer
//
// Returns:
//   - Renderer: a new instance of Renderer configured with the specified backend and options
//   - error: an error if the driver, the caches or the style watcher cannot be created
func NewRenderer(backendType RendererBackendType, options ...RendererBuilderOption) (Renderer, error) {
	r := &renderer{
		mu:          &sync.Mutex{},
		backendType: backendType,
		cfg:         config.Default(),
		contexts:    make(map[uint64]*gpu_context.ExecutionContext),
	}

	// Apply options first so the config is complete before the driver is loaded.
	for _, opt := range options {
		opt(r)
	}
	r.logger = logger.Or(r.logger)

	switch backendType {
	case BackendTypeGL:
		fallthrough
	default:
		if r.drv == nil {
			drv, err := gl_driver.New(r.cfg.GLVersion)
			if err != nil {
				return nil, fmt.Errorf("load native driver: %w", err)
			}
			r.drv = drv
		}
		backend, err := newGLRendererBackend(r.drv, r.cfg, r.logger)
		if err != nil {
			return nil, err
		}
		r.backend = backend
	}

	if err := r.watchConfiguredStyles(); err != nil {
		r.backend.Close()
		return nil, err
	}
	return r, nil
}

func (r *renderer) watchConfiguredStyles() error {
	if len(r.cfg.WatchStyles) == 0 {
		return nil
	}
	w, err := watch.NewWatcher(watch.WithLogger(r.logger))
	if err != nil {
		return err
	}
	style := shader.NewShadeStyle(shader.WithLabel("watched"))
	for _, entry := range r.cfg.WatchStyles {
		name, path, _ := strings.Cut(entry, "=")
		kind, err := shader.ParseSnippet(name)
		if err == nil {
			err = w.Watch(style, kind, path)
		}
		if err != nil {
			return errors.Join(fmt.Errorf("watched style %q: %w", entry, err), w.Close())
		}
	}
	r.watcher = w
	r.watched = style
	return nil
}

func (r *renderer) NewContext(surface gpu_context.Surface) *gpu_context.ExecutionContext {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextContext++
	ctx := gpu_context.New(r.nextContext, surface)
	r.contexts[ctx.ID()] = ctx
	r.logger.Debug("[Renderer] created context", "context", ctx.ID(), "native", ctx.NativeIdentity())
	return ctx
}

func (r *renderer) DestroyContext(ctx *gpu_context.ExecutionContext) error {
	r.mu.Lock()
	if _, ok := r.contexts[ctx.ID()]; !ok || ctx.Destroyed() {
		r.mu.Unlock()
		return fmt.Errorf("context %d is not live", ctx.ID())
	}
	delete(r.contexts, ctx.ID())
	r.mu.Unlock()

	r.backend.Bus().Publish(lifecycle.Event{Kind: lifecycle.ContextDestroyed, Context: ctx.ID()})
	ctx.MarkDestroyed()
	r.logger.Debug("[Renderer] destroyed context", "context", ctx.ID())
	return nil
}

func (r *renderer) CreateVertexBuffer(format *buffer.VertexFormat, vertexCount int, options ...buffer.BufferBuilderOption) (buffer.VertexBuffer, error) {
	return buffer.NewVertexBuffer(r.backend.Device(), format, vertexCount, options...)
}

func (r *renderer) CreateInstanceBuffer(format *buffer.VertexFormat, instanceCount int, options ...buffer.BufferBuilderOption) (buffer.VertexBuffer, error) {
	return buffer.NewVertexBuffer(r.backend.Device(), format, instanceCount, options...)
}

func (r *renderer) CreateIndexBuffer(indexType buffer.IndexType, count int, options ...buffer.BufferBuilderOption) (buffer.IndexBuffer, error) {
	return buffer.NewIndexBuffer(r.backend.Device(), indexType, count, options...)
}

func (r *renderer) CreateStorageBuffer(size int, options ...buffer.BufferBuilderOption) (buffer.StorageBuffer, error) {
	return buffer.NewStorageBuffer(r.backend.Device(), size, options...)
}

func (r *renderer) RegisterTexture(target, native uint32) shader.Resource {
	if target == 0 {
		target = driver.TEXTURE_2D
	}
	h := r.backend.Registry().Register(handle.KindTexture, native)
	return shader.Resource{Texture: h, Target: target}
}

func (r *renderer) ReleaseTexture(res shader.Resource) error {
	registry := r.backend.Registry()
	native, err := registry.Native(res.Texture)
	if err != nil {
		return err
	}
	if err := registry.Retire(res.Texture); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ctx := range r.contexts {
		ctx.ForgetTexture(native)
	}
	return nil
}

func (r *renderer) WriteBuffers(writes []buffer.BufferWrite) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return buffer.WriteAll(writes)
}

func (r *renderer) Draw(ctx *gpu_context.ExecutionContext, call DrawCall) error {
	return r.backend.Draw(ctx, call)
}

func (r *renderer) DrawMulti(ctx *gpu_context.ExecutionContext, call MultiDrawCall) error {
	return r.backend.DrawMulti(ctx, call)
}

func (r *renderer) DestroyProgram(program shader.Program) error {
	return r.backend.ShaderCache().Destroy(program)
}

func (r *renderer) Prewarm(structures []shader.ShadeStructure) error {
	return r.backend.ShaderCache().Prewarm(structures)
}

func (r *renderer) WatchedStyle() shader.ShadeStyle {
	return r.watched
}

func (r *renderer) ShaderCache() shader_cache.ShaderCache {
	return r.backend.ShaderCache()
}

func (r *renderer) BindingCache() vertex_binding.BindingCache {
	return r.backend.BindingCache()
}

func (r *renderer) Driver() driver.Driver {
	return r.backend.Driver()
}

func (r *renderer) Stats() Stats {
	return r.backend.Stats()
}

func (r *renderer) Close() error {
	r.mu.Lock()
	live := len(r.contexts)
	r.mu.Unlock()
	if live > 0 {
		r.logger.Warn("[Renderer] closing with live contexts", "contexts", live)
	}

	r.backend.Close()
	if r.watcher != nil {
		return r.watcher.Close()
	}
	return nil
}
