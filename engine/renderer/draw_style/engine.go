package draw_style

import (
	"log/slog"
	"slices"
	"sync/atomic"

	"github.com/Carmen-Shannon/oxy-gl/common"
	"github.com/Carmen-Shannon/oxy-gl/engine/logger"
	"github.com/Carmen-Shannon/oxy-gl/engine/renderer/driver"
)

// Tracker is the per-context record of the fixed-function state last applied.
// A Tracker belongs to one execution context and must only be used from the thread
// that has that context current.
type Tracker struct {
	dirty   bool
	applied applied
}

type applied struct {
	scissorOn       bool
	scissor         [4]int32
	mask            ChannelMask
	depthWrite      bool
	depthTest       DepthTest
	cull            CullTest
	front, back     StencilStyle
	blend           []BlendMode
	blendValid      bool
	alphaToCoverage bool
}

// NewTracker returns a Tracker that forces a full application on first use.
func NewTracker() *Tracker {
	return &Tracker{dirty: true}
}

// Invalidate forces the next application to emit every aspect. Call it after foreign code
// changed native state behind the engine's back.
func (t *Tracker) Invalidate() {
	t.dirty = true
}

// Dirty reports whether the next application will emit every aspect.
func (t *Tracker) Dirty() bool {
	return t.dirty
}

// Target describes the render target draws currently land in.
type Target struct {
	// Width and Height are in device pixels.
	Width, Height int
	// ContentScale is device pixels per logical unit.
	ContentScale float64
	// BlendModes holds one mode per color attachment, used when a style requests BlendInherit.
	BlendModes []BlendMode
}

// Context is what the engine needs from an execution context.
type Context interface {
	StyleTracker() *Tracker
	ActiveTarget() Target
}

// Stats counts engine activity since creation.
type Stats struct {
	Applies uint64
	Changes uint64
}

// engine is the implementation of the Engine interface.
type engine struct {
	drv    driver.Driver
	logger *slog.Logger

	warnedFallback atomic.Bool
	applies        atomic.Uint64
	changes        atomic.Uint64
}

// Engine applies requested draw styles, emitting native calls only for aspects that differ
// from what the context last applied.
type Engine interface {
	// Apply makes style the active fixed-function state of ctx.
	//
	// Parameters:
	//   - ctx: the execution context the draw runs on
	//   - style: the requested style
	//
	// Returns:
	//   - error: *ConfigurationError or *driver.CapabilityError; no native call is made on error
	Apply(ctx Context, style DrawStyle) error

	// Stats returns the engine counters.
	Stats() Stats
}

var _ Engine = &engine{}

// EngineBuilderOption is a functional option used to configure an Engine during construction.
type EngineBuilderOption func(*engine)

// WithLogger sets the logger used for fallback warnings.
func WithLogger(l *slog.Logger) EngineBuilderOption {
	return func(e *engine) {
		e.logger = l
	}
}

// NewEngine creates a draw-style engine emitting through drv.
//
// Parameters:
//   - drv: the native driver
//   - options: builder options
//
// Returns:
//   - Engine: the new engine
func NewEngine(drv driver.Driver, options ...EngineBuilderOption) Engine {
	e := &engine{drv: drv}
	for _, opt := range options {
		opt(e)
	}
	e.logger = logger.Or(e.logger)
	return e
}

func (e *engine) Stats() Stats {
	return Stats{Applies: e.applies.Load(), Changes: e.changes.Load()}
}

func (e *engine) Apply(ctx Context, style DrawStyle) error {
	if err := style.Validate(); err != nil {
		return err
	}
	target := ctx.ActiveTarget()
	modes := resolveModes(style.Blend, target.BlendModes)
	if !style.AlphaToCoverage {
		for _, m := range modes {
			if m.Advanced() {
				if err := driver.Require(e.drv, driver.CapabilityAdvancedBlend, "blend mode "+m.String()); err != nil {
					return err
				}
			}
		}
	}

	t := ctx.StyleTracker()
	a := &t.applied
	full := t.dirty
	changes := uint64(0)
	e.applies.Add(1)

	if full && !e.drv.Version().IsGLES() {
		e.drv.Enable(driver.FRAMEBUFFER_SRGB)
	}

	scissorOn, box := scissorFor(style.Clip, target)
	if full || scissorOn != a.scissorOn || (scissorOn && box != a.scissor) {
		if scissorOn {
			e.drv.Enable(driver.SCISSOR_TEST)
			e.drv.Scissor(box[0], box[1], box[2], box[3])
		} else {
			e.drv.Disable(driver.SCISSOR_TEST)
		}
		a.scissorOn, a.scissor = scissorOn, box
		changes++
	}

	if full || style.ChannelMask != a.mask {
		e.drv.ColorMask(style.ChannelMask.Writes())
		a.mask = style.ChannelMask
		changes++
	}

	if full || style.DepthWrite != a.depthWrite {
		e.drv.DepthMask(style.DepthWrite)
		e.drv.Enable(driver.DEPTH_TEST)
		a.depthWrite = style.DepthWrite
		changes++
	}

	if full || style.FrontStencil != a.front || style.BackStencil != a.back {
		e.applyStencil(style)
		a.front, a.back = style.FrontStencil, style.BackStencil
		changes++
	}

	coverageChanged := full || style.AlphaToCoverage != a.alphaToCoverage
	if style.AlphaToCoverage {
		if coverageChanged {
			e.drv.Enable(driver.SAMPLE_ALPHA_TO_COVERAGE)
			e.drv.Disable(driver.BLEND)
			changes++
		}
		a.blendValid = false
	} else {
		if coverageChanged {
			e.drv.Disable(driver.SAMPLE_ALPHA_TO_COVERAGE)
			changes++
		}
		if full || !a.blendValid || !slices.Equal(modes, a.blend) {
			e.applyBlend(modes)
			a.blend, a.blendValid = modes, true
			changes++
		}
	}
	a.alphaToCoverage = style.AlphaToCoverage

	if full || style.DepthTest != a.depthTest {
		e.drv.DepthFunc(style.DepthTest.glFunc())
		a.depthTest = style.DepthTest
		changes++
	}

	if full || style.Cull != a.cull {
		e.applyCull(style.Cull)
		a.cull = style.Cull
		changes++
	}

	t.dirty = false
	e.changes.Add(changes)
	return nil
}

// resolveModes returns one blend mode per attachment, at least one.
func resolveModes(requested BlendMode, attachments []BlendMode) []BlendMode {
	modes := make([]BlendMode, max(len(attachments), 1))
	for i := range modes {
		switch {
		case requested != BlendInherit:
			modes[i] = requested
		case i < len(attachments) && attachments[i] != BlendInherit:
			modes[i] = attachments[i]
		default:
			modes[i] = BlendOver
		}
	}
	return modes
}

// scissorFor converts a top-left logical clip rectangle into a bottom-left pixel box.
func scissorFor(clip *common.Rectangle, t Target) (bool, [4]int32) {
	if clip == nil {
		return false, [4]int32{}
	}
	s := t.ContentScale
	if s <= 0 {
		s = 1
	}
	return true, [4]int32{
		common.ScaleToPixels(clip.X, s),
		int32(float64(t.Height) - clip.Y*s - clip.Height*s),
		common.ScaleToPixels(clip.Width, s),
		common.ScaleToPixels(clip.Height, s),
	}
}

func (e *engine) applyStencil(style DrawStyle) {
	front, back := style.FrontStencil, style.BackStencil
	if style.Symmetric() {
		if front.Test == StencilDisabled {
			e.drv.Disable(driver.STENCIL_TEST)
			return
		}
		e.drv.Enable(driver.STENCIL_TEST)
		e.drv.StencilFuncSeparate(driver.FRONT_AND_BACK, front.Test.glFunc(), front.Reference, front.TestMask)
		e.drv.StencilOpSeparate(driver.FRONT_AND_BACK, front.FailOp.glOp(), front.DepthFailOp.glOp(), front.DepthPassOp.glOp())
		e.drv.StencilMaskSeparate(driver.FRONT_AND_BACK, front.WriteMask)
		return
	}
	e.drv.Enable(driver.STENCIL_TEST)
	e.drv.StencilFuncSeparate(driver.FRONT, front.Test.glFunc(), front.Reference, front.TestMask)
	e.drv.StencilFuncSeparate(driver.BACK, back.Test.glFunc(), back.Reference, back.TestMask)
	e.drv.StencilOpSeparate(driver.FRONT, front.FailOp.glOp(), front.DepthFailOp.glOp(), front.DepthPassOp.glOp())
	e.drv.StencilOpSeparate(driver.BACK, back.FailOp.glOp(), back.DepthFailOp.glOp(), back.DepthPassOp.glOp())
	e.drv.StencilMaskSeparate(driver.FRONT, front.WriteMask)
	e.drv.StencilMaskSeparate(driver.BACK, back.WriteMask)
}

func (e *engine) applyBlend(modes []BlendMode) {
	if e.drv.Capabilities().PerBufferBlend {
		applyPerBuffer(e.drv, modes)
		return
	}
	for _, m := range modes[1:] {
		if m != modes[0] {
			if !e.warnedFallback.Swap(true) {
				e.logger.Warn("[DrawStyle] per-attachment blending unsupported, using attachment 0 mode for all",
					"version", e.drv.Version().String(), "mode", modes[0].String())
			}
			break
		}
	}
	applyGlobal(e.drv, modes[0])
}

func (e *engine) applyCull(c CullTest) {
	switch c {
	case CullFront:
		e.drv.Enable(driver.CULL_FACE)
		e.drv.CullFace(driver.BACK)
	case CullBack:
		e.drv.Enable(driver.CULL_FACE)
		e.drv.CullFace(driver.FRONT)
	case CullNever:
		e.drv.Enable(driver.CULL_FACE)
		e.drv.CullFace(driver.FRONT_AND_BACK)
	default:
		e.drv.Disable(driver.CULL_FACE)
	}
}
