// package common contains plain data types shared across the engine. They are not interface-wrapped structs.
package common

import "github.com/go-gl/mathgl/mgl32"

// Rectangle is an axis-aligned rectangle in top-left-origin logical pixels.
type Rectangle struct {
	// X and Y locate the top-left corner.
	X, Y float64
	// Width and Height are the extents, expected to be non-negative.
	Width, Height float64
}

// NewRectangle creates a Rectangle from its corner and size.
//
// Parameters:
//   - x, y: the top-left corner
//   - width, height: the extents
//
// Returns:
//   - Rectangle: the rectangle
func NewRectangle(x, y, width, height float64) Rectangle {
	return Rectangle{X: x, Y: y, Width: width, Height: height}
}

// ColorRGBa is a linear RGBA color with components in [0, 1].
type ColorRGBa struct {
	R, G, B, A float32
}

// Vec4 returns the color as an mgl32.Vec4 for uniform uploads.
func (c ColorRGBa) Vec4() mgl32.Vec4 {
	return mgl32.Vec4{c.R, c.G, c.B, c.A}
}

var (
	White = ColorRGBa{1, 1, 1, 1}
	Black = ColorRGBa{0, 0, 0, 1}
	Pink  = ColorRGBa{1, 0.753, 0.796, 1}
)
