package draw_style

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-gl/common"
	"github.com/Carmen-Shannon/oxy-gl/engine/renderer/driver"
)

// DepthTest is the depth comparison applied to incoming fragments.
type DepthTest int

const (
	DepthTestAlways DepthTest = iota
	DepthTestLess
	DepthTestLessOrEqual
	DepthTestEqual
	DepthTestGreater
	DepthTestGreaterOrEqual
	DepthTestNever
)

func (d DepthTest) glFunc() uint32 {
	switch d {
	case DepthTestLess:
		return driver.LESS
	case DepthTestLessOrEqual:
		return driver.LEQUAL
	case DepthTestEqual:
		return driver.EQUAL
	case DepthTestGreater:
		return driver.GREATER
	case DepthTestGreaterOrEqual:
		return driver.GEQUAL
	case DepthTestNever:
		return driver.NEVER
	default:
		return driver.ALWAYS
	}
}

// CullTest names which faces pass. CullFront keeps front faces and culls back faces.
type CullTest int

const (
	// CullAlways passes every face; culling is disabled.
	CullAlways CullTest = iota
	// CullFront passes front faces only.
	CullFront
	// CullBack passes back faces only.
	CullBack
	// CullNever culls every face.
	CullNever
)

// StencilTest is the stencil comparison. StencilDisabled turns the stencil test off.
type StencilTest int

const (
	StencilDisabled StencilTest = iota
	StencilNever
	StencilLess
	StencilLessOrEqual
	StencilGreater
	StencilGreaterOrEqual
	StencilEqual
	StencilNotEqual
	StencilAlways
)

func (s StencilTest) glFunc() uint32 {
	switch s {
	case StencilNever:
		return driver.NEVER
	case StencilLess:
		return driver.LESS
	case StencilLessOrEqual:
		return driver.LEQUAL
	case StencilGreater:
		return driver.GREATER
	case StencilGreaterOrEqual:
		return driver.GEQUAL
	case StencilEqual:
		return driver.EQUAL
	case StencilNotEqual:
		return driver.NOTEQUAL
	default:
		return driver.ALWAYS
	}
}

// StencilOperation is applied to the stencil buffer when a test outcome occurs.
type StencilOperation int

const (
	StencilKeep StencilOperation = iota
	StencilZero
	StencilReplace
	StencilIncrease
	StencilIncreaseWrap
	StencilDecrease
	StencilDecreaseWrap
	StencilInvert
)

func (o StencilOperation) glOp() uint32 {
	switch o {
	case StencilZero:
		return driver.ZERO
	case StencilReplace:
		return driver.REPLACE
	case StencilIncrease:
		return driver.INCR
	case StencilIncreaseWrap:
		return driver.INCR_WRAP
	case StencilDecrease:
		return driver.DECR
	case StencilDecreaseWrap:
		return driver.DECR_WRAP
	case StencilInvert:
		return driver.INVERT
	default:
		return driver.KEEP
	}
}

// StencilStyle is the stencil configuration for one face.
type StencilStyle struct {
	Test        StencilTest
	Reference   int32
	TestMask    uint32
	WriteMask   uint32
	FailOp      StencilOperation
	DepthFailOp StencilOperation
	DepthPassOp StencilOperation
}

// DefaultStencil returns a disabled stencil with full masks and keep operations.
func DefaultStencil() StencilStyle {
	return StencilStyle{Test: StencilDisabled, TestMask: 0xff, WriteMask: 0xff}
}

// ChannelMask is the set of color channels a draw leaves unwritten. The zero mask writes
// every channel.
type ChannelMask uint8

const (
	MaskRed ChannelMask = 1 << iota
	MaskGreen
	MaskBlue
	MaskAlpha
)

// Writes reports which channels are written, in ColorMask argument order.
func (m ChannelMask) Writes() (red, green, blue, alpha bool) {
	return m&MaskRed == 0, m&MaskGreen == 0, m&MaskBlue == 0, m&MaskAlpha == 0
}

// DrawStyle is the complete fixed-function configuration requested for a draw.
// It is a plain value: two styles with equal fields configure identical state.
type DrawStyle struct {
	// Clip is the clip rectangle in logical units with a top-left origin, or nil for no clipping.
	Clip *common.Rectangle

	ChannelMask ChannelMask
	DepthWrite  bool
	DepthTest   DepthTest
	Cull        CullTest

	// Blend applies to every color attachment. BlendInherit defers to the target's per-attachment modes.
	Blend BlendMode

	FrontStencil StencilStyle
	BackStencil  StencilStyle

	AlphaToCoverage bool
}

// NewDrawStyle builds a DrawStyle from the defaults and the given options. The zero
// DrawStyle differs from these defaults only in its unused stencil masks.
//
// Defaults: no clip, all channels written, depth write off, depth test always, no culling,
// over blending, stencil disabled and alpha-to-coverage off.
//
// Parameters:
//   - options: builder options applied in order
//
// Returns:
//   - DrawStyle: the built style
func NewDrawStyle(options ...DrawStyleBuilderOption) DrawStyle {
	ds := DrawStyle{
		DepthTest:    DepthTestAlways,
		Cull:         CullAlways,
		Blend:        BlendOver,
		FrontStencil: DefaultStencil(),
		BackStencil:  DefaultStencil(),
	}
	for _, opt := range options {
		opt(&ds)
	}
	return ds
}

// Symmetric reports whether both faces share one stencil configuration.
func (ds DrawStyle) Symmetric() bool {
	return ds.FrontStencil == ds.BackStencil
}

// Validate reports whether the style can be applied without emitting a partial configuration.
//
// Returns:
//   - error: *ConfigurationError for an asymmetric stencil that disables one face
func (ds DrawStyle) Validate() error {
	if ds.Symmetric() {
		return nil
	}
	if ds.FrontStencil.Test == StencilDisabled || ds.BackStencil.Test == StencilDisabled {
		return &ConfigurationError{
			Aspect: "stencil",
			Reason: "asymmetric stencil with one face disabled has no native equivalent",
		}
	}
	return nil
}

// ConfigurationError reports a style that cannot be expressed natively.
type ConfigurationError struct {
	Aspect string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("draw style %s: %s", e.Aspect, e.Reason)
}
