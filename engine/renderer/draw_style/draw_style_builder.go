package draw_style

import "github.com/Carmen-Shannon/oxy-gl/common"

// DrawStyleBuilderOption is a functional option used to configure a DrawStyle during construction.
type DrawStyleBuilderOption func(*DrawStyle)

// WithClip sets the clip rectangle in logical units with a top-left origin.
//
// Parameters:
//   - clip: the clip rectangle
//
// Returns:
//   - DrawStyleBuilderOption: a function that sets the clip rectangle
func WithClip(clip common.Rectangle) DrawStyleBuilderOption {
	return func(ds *DrawStyle) {
		ds.Clip = &clip
	}
}

// WithChannelMask sets which color channels are left unwritten.
//
// Parameters:
//   - mask: the masked channels, such as MaskAlpha
//
// Returns:
//   - DrawStyleBuilderOption: a function that sets the channel mask
func WithChannelMask(mask ChannelMask) DrawStyleBuilderOption {
	return func(ds *DrawStyle) {
		ds.ChannelMask = mask
	}
}

// WithDepthWrite sets whether depth values are written.
//
// Parameters:
//   - enabled: true to write depth
//
// Returns:
//   - DrawStyleBuilderOption: a function that sets depth writing
func WithDepthWrite(enabled bool) DrawStyleBuilderOption {
	return func(ds *DrawStyle) {
		ds.DepthWrite = enabled
	}
}

// WithDepthTest sets the depth comparison.
//
// Parameters:
//   - test: the depth comparison
//
// Returns:
//   - DrawStyleBuilderOption: a function that sets the depth test
func WithDepthTest(test DepthTest) DrawStyleBuilderOption {
	return func(ds *DrawStyle) {
		ds.DepthTest = test
	}
}

// WithCull sets which faces pass the cull test.
//
// Parameters:
//   - cull: the cull test
//
// Returns:
//   - DrawStyleBuilderOption: a function that sets the cull test
func WithCull(cull CullTest) DrawStyleBuilderOption {
	return func(ds *DrawStyle) {
		ds.Cull = cull
	}
}

// WithBlendMode sets the blend mode for every attachment. Use BlendInherit to defer to the target.
//
// Parameters:
//   - mode: the blend mode
//
// Returns:
//   - DrawStyleBuilderOption: a function that sets the blend mode
func WithBlendMode(mode BlendMode) DrawStyleBuilderOption {
	return func(ds *DrawStyle) {
		ds.Blend = mode
	}
}

// WithStencil sets the same stencil configuration for both faces.
//
// Parameters:
//   - stencil: the stencil configuration
//
// Returns:
//   - DrawStyleBuilderOption: a function that sets both stencil faces
func WithStencil(stencil StencilStyle) DrawStyleBuilderOption {
	return func(ds *DrawStyle) {
		ds.FrontStencil = stencil
		ds.BackStencil = stencil
	}
}

// WithFrontStencil sets the front face stencil configuration.
func WithFrontStencil(stencil StencilStyle) DrawStyleBuilderOption {
	return func(ds *DrawStyle) {
		ds.FrontStencil = stencil
	}
}

// WithBackStencil sets the back face stencil configuration.
func WithBackStencil(stencil StencilStyle) DrawStyleBuilderOption {
	return func(ds *DrawStyle) {
		ds.BackStencil = stencil
	}
}

// WithAlphaToCoverage sets whether fragment alpha drives multisample coverage.
// While enabled blending is off.
func WithAlphaToCoverage(enabled bool) DrawStyleBuilderOption {
	return func(ds *DrawStyle) {
		ds.AlphaToCoverage = enabled
	}
}
