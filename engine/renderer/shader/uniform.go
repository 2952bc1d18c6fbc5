package shader

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-gl/engine/renderer/driver"
	"github.com/Carmen-Shannon/oxy-gl/engine/renderer/handle"
	"github.com/go-gl/mathgl/mgl32"
)

// UniformKind is the value class of a Uniform.
type UniformKind int

const (
	UniformFloat UniformKind = iota
	UniformVector2
	UniformVector3
	UniformVector4
	UniformInt
	UniformBool
	UniformMatrix33
	UniformMatrix44
	UniformResource
)

var uniformGLSL = map[UniformKind]string{
	UniformFloat:    "float",
	UniformVector2:  "vec2",
	UniformVector3:  "vec3",
	UniformVector4:  "vec4",
	UniformInt:      "int",
	UniformBool:     "bool",
	UniformMatrix33: "mat3",
	UniformMatrix44: "mat4",
}

// Resource is a texture bound to a sampler uniform.
type Resource struct {
	Texture handle.Handle
	// Target is the texture target, driver.TEXTURE_2D when zero.
	Target uint32
	// Sampler is the GLSL sampler type, "sampler2D" when empty.
	Sampler string
}

// Uniform is a typed shader parameter value: a scalar, vector, matrix, texture resource,
// or an array of one non-resource kind.
type Uniform struct {
	kind     UniformKind
	length   int
	floats   []float32
	ints     []int32
	resource Resource
}

// Scalar, vector, matrix and texture constructors.
func Float(v float32) Uniform      { return Uniform{kind: UniformFloat, floats: []float32{v}} }
func Vec2(v mgl32.Vec2) Uniform    { return Uniform{kind: UniformVector2, floats: v[:]} }
func Vec3(v mgl32.Vec3) Uniform    { return Uniform{kind: UniformVector3, floats: v[:]} }
func Vec4(v mgl32.Vec4) Uniform    { return Uniform{kind: UniformVector4, floats: v[:]} }
func Int(v int32) Uniform          { return Uniform{kind: UniformInt, ints: []int32{v}} }
func Mat3(m mgl32.Mat3) Uniform    { return Uniform{kind: UniformMatrix33, floats: m[:]} }
func Mat4(m mgl32.Mat4) Uniform    { return Uniform{kind: UniformMatrix44, floats: m[:]} }
func Texture(res Resource) Uniform { return Uniform{kind: UniformResource, resource: res} }

// FloatArray returns a float array uniform of len(vs) elements.
func FloatArray(vs ...float32) Uniform {
	return Uniform{kind: UniformFloat, length: len(vs), floats: append([]float32(nil), vs...)}
}

// Bool returns a boolean uniform, uploaded as an integer.
func Bool(v bool) Uniform {
	i := int32(0)
	if v {
		i = 1
	}
	return Uniform{kind: UniformBool, ints: []int32{i}}
}

// Array combines scalar uniforms of one kind into an array uniform.
//
// Parameters:
//   - elems: the elements, all of the same non-resource kind
//
// Returns:
//   - Uniform: the array uniform
//   - error: error if elems is empty, mixes kinds, or holds resources or arrays
func Array(elems ...Uniform) (Uniform, error) {
	if len(elems) == 0 {
		return Uniform{}, fmt.Errorf("uniform array needs at least one element")
	}
	kind := elems[0].kind
	out := Uniform{kind: kind, length: len(elems)}
	for i, e := range elems {
		switch {
		case e.kind != kind:
			return Uniform{}, fmt.Errorf("uniform array element %d is %s, want %s", i, e.GLSLType(), elems[0].GLSLType())
		case e.kind == UniformResource:
			return Uniform{}, fmt.Errorf("uniform arrays of resources are not supported")
		case e.length != 0:
			return Uniform{}, fmt.Errorf("uniform array element %d is itself an array", i)
		}
		out.floats = append(out.floats, e.floats...)
		out.ints = append(out.ints, e.ints...)
	}
	return out, nil
}

// Kind returns the value class.
func (u Uniform) Kind() UniformKind { return u.kind }

// Len returns the array length, 0 for a non-array uniform.
func (u Uniform) Len() int { return u.length }

// Floats returns the float payload.
func (u Uniform) Floats() []float32 { return u.floats }

// Ints returns the integer payload.
func (u Uniform) Ints() []int32 { return u.ints }

// Resource returns the texture resource of a resource uniform.
func (u Uniform) Resource() Resource { return u.resource }

// GLSLType returns the GLSL type of one element.
func (u Uniform) GLSLType() string {
	if u.kind == UniformResource {
		if u.resource.Sampler == "" {
			return "sampler2D"
		}
		return u.resource.Sampler
	}
	return uniformGLSL[u.kind]
}

// SameLayout reports whether u and other declare identically.
func (u Uniform) SameLayout(other Uniform) bool {
	return u.kind == other.kind && u.length == other.length && u.GLSLType() == other.GLSLType()
}

// Declaration returns the GLSL uniform declaration for name.
func (u Uniform) Declaration(name string) string {
	if u.length > 0 {
		return fmt.Sprintf("uniform %s %s[%d];", u.GLSLType(), name, u.length)
	}
	return fmt.Sprintf("uniform %s %s;", u.GLSLType(), name)
}

// upload sends a non-resource uniform to location of the current program.
func (u Uniform) upload(drv driver.Driver, location int32) error {
	switch u.kind {
	case UniformFloat:
		drv.Uniform1fv(location, u.floats)
	case UniformVector2:
		drv.Uniform2fv(location, u.floats)
	case UniformVector3:
		drv.Uniform3fv(location, u.floats)
	case UniformVector4:
		drv.Uniform4fv(location, u.floats)
	case UniformInt, UniformBool:
		drv.Uniform1iv(location, u.ints)
	case UniformMatrix33:
		drv.UniformMatrix3fv(location, u.floats)
	case UniformMatrix44:
		drv.UniformMatrix4fv(location, u.floats)
	case UniformResource:
		return fmt.Errorf("resource uniforms are bound through a texture unit")
	default:
		return fmt.Errorf("unknown uniform kind %d", int(u.kind))
	}
	return nil
}
