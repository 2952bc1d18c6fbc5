package renderer

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-gl/engine/renderer/buffer"
	"github.com/Carmen-Shannon/oxy-gl/engine/renderer/draw_style"
	"github.com/Carmen-Shannon/oxy-gl/engine/renderer/driver"
	"github.com/Carmen-Shannon/oxy-gl/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-gl/engine/renderer/shader_cache"
	"github.com/Carmen-Shannon/oxy-gl/engine/renderer/vertex_binding"
	"github.com/go-gl/mathgl/mgl32"
)

// RendererBackendType identifies the native API implementation used by the Renderer.
type RendererBackendType int

const (
	// BackendTypeGL selects the OpenGL / OpenGL ES backend.
	BackendTypeGL RendererBackendType = iota
)

// Primitive is the topology a draw assembles its vertices into.
type Primitive int

const (
	PrimitiveTriangles Primitive = iota
	PrimitiveTriangleStrip
	PrimitiveTriangleFan
	PrimitivePoints
	PrimitiveLines
	PrimitiveLineStrip
	PrimitiveLineLoop

	// PrimitivePatches feeds tessellation and needs DrawCall.VerticesPerPatch.
	PrimitivePatches
)

func (p Primitive) mode() uint32 {
	switch p {
	case PrimitiveTriangleStrip:
		return driver.TRIANGLE_STRIP
	case PrimitiveTriangleFan:
		return driver.TRIANGLE_FAN
	case PrimitivePoints:
		return driver.POINTS
	case PrimitiveLines:
		return driver.LINES
	case PrimitiveLineStrip:
		return driver.LINE_STRIP
	case PrimitiveLineLoop:
		return driver.LINE_LOOP
	case PrimitivePatches:
		return driver.PATCHES
	default:
		return driver.TRIANGLES
	}
}

// Transforms are the matrices uploaded to u_modelMatrix, u_viewMatrix and u_projectionMatrix.
type Transforms struct {
	Model      mgl32.Mat4
	View       mgl32.Mat4
	Projection mgl32.Mat4
}

// IdentityTransforms returns transforms that leave positions untouched.
func IdentityTransforms() Transforms {
	return Transforms{Model: mgl32.Ident4(), View: mgl32.Ident4(), Projection: mgl32.Ident4()}
}

// DrawCall describes one draw request.
type DrawCall struct {
	// Style selects the program. Nil draws with the default structure.
	Style     shader.ShadeStyle
	DrawStyle draw_style.DrawStyle

	VertexBuffers   []buffer.VertexBuffer
	InstanceBuffers []buffer.VertexBuffer
	// IndexBuffer makes the draw indexed when set.
	IndexBuffer buffer.IndexBuffer

	Primitive Primitive
	// Offset is the first vertex, or the first index for indexed draws.
	Offset int
	Count  int

	// InstanceCount of zero issues a non-instanced draw.
	InstanceCount  int
	InstanceOffset int

	VerticesPerPatch int

	// Transforms defaults to identity matrices when nil.
	Transforms *Transforms
	Fill       mgl32.Vec4
}

// MultiDrawCall issues several non-indexed ranges of the same buffers in one native call.
type MultiDrawCall struct {
	Style     shader.ShadeStyle
	DrawStyle draw_style.DrawStyle

	VertexBuffers []buffer.VertexBuffer

	Primitive        Primitive
	Offsets          []int
	Counts           []int
	VerticesPerPatch int

	Transforms *Transforms
	Fill       mgl32.Vec4
}

// Stats aggregates the counters of the renderer and its caches.
type Stats struct {
	Draws    uint64
	Programs shader_cache.Stats
	Bindings vertex_binding.Stats
	Styles   draw_style.Stats
}

// NativeError reports a native error flag raised by a draw when error checking is enabled.
type NativeError struct {
	Operation string
	Code      uint32
}

func (e *NativeError) Error() string {
	return fmt.Sprintf("%s: native error %#x", e.Operation, e.Code)
}

// RendererBackend is the top-level backend interface for the Renderer.
// It embeds the concrete backend interface for the selected native API.
type RendererBackend interface {
	glRendererBackend
}
