// Package gpu_context holds the per-context state the renderer threads through every call:
// the context identity, the fixed-function state tracker and the texture unit shadow.
// Nothing in this package is global; each ExecutionContext is owned by one render thread.
package gpu_context

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-gl/engine/renderer/draw_style"
	"github.com/Carmen-Shannon/oxy-gl/engine/renderer/driver"
	"github.com/Carmen-Shannon/oxy-gl/engine/renderer/handle"
)

// TextureUnits is the number of texture units shadowed per context.
const TextureUnits = 32

// Surface is the windowing side of a context.
type Surface interface {
	// CurrentContext returns the identity of the native context current on the calling thread.
	CurrentContext() uintptr

	// FramebufferSize returns the default framebuffer size in device pixels.
	FramebufferSize() (width, height int)

	// ContentScale returns device pixels per logical unit.
	ContentScale() float64
}

// RenderTarget describes an offscreen target bound in place of the default framebuffer.
type RenderTarget struct {
	Width, Height int
	ContentScale  float64
	BlendModes    []draw_style.BlendMode
}

type textureBinding struct {
	target, texture uint32
}

// ExecutionContext is one native context plus the state cached against it.
type ExecutionContext struct {
	id       uint64
	surface  Surface
	identity uintptr

	tracker  *draw_style.Tracker
	textures [TextureUnits]textureBinding
	program  handle.Handle

	target    *RenderTarget
	destroyed bool
}

var _ draw_style.Context = &ExecutionContext{}

// New creates the execution context for the native context current on surface.
//
// Parameters:
//   - id: the renderer-assigned context id
//   - surface: the surface whose context is current on the calling thread
//
// Returns:
//   - *ExecutionContext: the new context
func New(id uint64, surface Surface) *ExecutionContext {
	return &ExecutionContext{
		id:       id,
		surface:  surface,
		identity: surface.CurrentContext(),
		tracker:  draw_style.NewTracker(),
	}
}

// ID returns the renderer-assigned id.
func (c *ExecutionContext) ID() uint64 { return c.id }

// Surface returns the surface the context was created on.
func (c *ExecutionContext) Surface() Surface { return c.surface }

// NativeIdentity returns the native context identity captured at creation.
func (c *ExecutionContext) NativeIdentity() uintptr { return c.identity }

// CurrentIdentity returns the identity of the native context current right now.
func (c *ExecutionContext) CurrentIdentity() uintptr { return c.surface.CurrentContext() }

// IsCurrent reports whether this context's native context is current on the calling thread.
func (c *ExecutionContext) IsCurrent() bool {
	return c.surface.CurrentContext() == c.identity
}

// Destroyed reports whether MarkDestroyed was called.
func (c *ExecutionContext) Destroyed() bool { return c.destroyed }

// MarkDestroyed flags the context as torn down. Later draws on it fail.
func (c *ExecutionContext) MarkDestroyed() { c.destroyed = true }

// StyleTracker returns the fixed-function state tracker of this context.
func (c *ExecutionContext) StyleTracker() *draw_style.Tracker { return c.tracker }

// BindTarget redirects draws to rt until UnbindTarget. The style tracker is kept because
// fixed-function state belongs to the context, not the framebuffer.
func (c *ExecutionContext) BindTarget(rt RenderTarget) {
	c.target = &rt
}

// UnbindTarget restores the default framebuffer as the active target.
func (c *ExecutionContext) UnbindTarget() {
	c.target = nil
}

// ActiveTarget returns the dimensions and attachment blend modes draws currently land in.
func (c *ExecutionContext) ActiveTarget() draw_style.Target {
	if c.target != nil {
		return draw_style.Target{
			Width:        c.target.Width,
			Height:       c.target.Height,
			ContentScale: c.target.ContentScale,
			BlendModes:   c.target.BlendModes,
		}
	}
	w, h := c.surface.FramebufferSize()
	return draw_style.Target{Width: w, Height: h, ContentScale: c.surface.ContentScale()}
}

// BindTexture binds texture to unit, skipping the native calls when the unit already holds it.
//
// Parameters:
//   - drv: the native driver
//   - unit: the texture unit, below TextureUnits
//   - target: the texture target, such as driver.TEXTURE_2D
//   - texture: the native texture name
//
// Returns:
//   - error: error if unit is out of range
func (c *ExecutionContext) BindTexture(drv driver.Driver, unit int, target, texture uint32) error {
	if unit < 0 || unit >= TextureUnits {
		return fmt.Errorf("texture unit %d out of range [0, %d)", unit, TextureUnits)
	}
	want := textureBinding{target: target, texture: texture}
	if c.textures[unit] == want {
		return nil
	}
	drv.ActiveTexture(driver.TEXTURE0 + uint32(unit))
	drv.BindTexture(target, texture)
	c.textures[unit] = want
	return nil
}

// ForgetTexture clears every unit shadowing texture, so a later bind of a recycled name is issued.
func (c *ExecutionContext) ForgetTexture(texture uint32) {
	for unit := range c.textures {
		if c.textures[unit].texture == texture {
			c.textures[unit] = textureBinding{}
		}
	}
}

// UseProgram makes the program behind h current, skipping the native call when it already is.
// The shadow is keyed by handle so a recycled native name never aliases a destroyed program.
func (c *ExecutionContext) UseProgram(drv driver.Driver, h handle.Handle, native uint32) {
	if c.program == h {
		return
	}
	drv.UseProgram(native)
	c.program = h
}

// Invalidate drops every cached binding and forces a full state application on the next draw.
func (c *ExecutionContext) Invalidate() {
	c.tracker.Invalidate()
	c.textures = [TextureUnits]textureBinding{}
	c.program = handle.Handle{}
}
