package buffer

import (
	"fmt"
	"strings"

	"github.com/Carmen-Shannon/oxy-gl/engine/renderer/driver"
)

// VertexElementType is the shader-side type of one vertex attribute.
type VertexElementType int

const (
	TypeFloat32 VertexElementType = iota
	TypeVector2Float32
	TypeVector3Float32
	TypeVector4Float32
	TypeInt32
	TypeVector2Int32
	TypeVector3Int32
	TypeVector4Int32
	TypeUint32
	TypeMatrix33Float32
	TypeMatrix44Float32

	// TypePadding occupies one byte per array element and is never declared in shaders.
	TypePadding
)

type elementInfo struct {
	glsl       string
	components int32
	columns    int
	component  uint32
	size       int
}

var elementInfos = map[VertexElementType]elementInfo{
	TypeFloat32:         {"float", 1, 1, driver.FLOAT, 4},
	TypeVector2Float32:  {"vec2", 2, 1, driver.FLOAT, 8},
	TypeVector3Float32:  {"vec3", 3, 1, driver.FLOAT, 12},
	TypeVector4Float32:  {"vec4", 4, 1, driver.FLOAT, 16},
	TypeInt32:           {"int", 1, 1, driver.INT, 4},
	TypeVector2Int32:    {"ivec2", 2, 1, driver.INT, 8},
	TypeVector3Int32:    {"ivec3", 3, 1, driver.INT, 12},
	TypeVector4Int32:    {"ivec4", 4, 1, driver.INT, 16},
	TypeUint32:          {"uint", 1, 1, driver.UNSIGNED_INT, 4},
	TypeMatrix33Float32: {"mat3", 3, 3, driver.FLOAT, 36},
	TypeMatrix44Float32: {"mat4", 4, 4, driver.FLOAT, 64},
	TypePadding:         {"", 1, 1, driver.UNSIGNED_BYTE, 1},
}

// GLSLType returns the shader type name, empty for padding.
func (t VertexElementType) GLSLType() string { return elementInfos[t].glsl }

// Components returns the component count of one column.
func (t VertexElementType) Components() int32 { return elementInfos[t].components }

// Columns returns the number of attribute slots one element occupies. Matrices take one slot per column.
func (t VertexElementType) Columns() int { return elementInfos[t].columns }

// ComponentType returns the native component type.
func (t VertexElementType) ComponentType() uint32 { return elementInfos[t].component }

// SizeInBytes returns the byte size of one element.
func (t VertexElementType) SizeInBytes() int { return elementInfos[t].size }

// ColumnSize returns the byte size of one column.
func (t VertexElementType) ColumnSize() int { return t.SizeInBytes() / t.Columns() }

// IsInteger reports whether the attribute must be set up with the integer pointer call.
func (t VertexElementType) IsInteger() bool {
	c := t.ComponentType()
	return t != TypePadding && (c == driver.INT || c == driver.UNSIGNED_INT)
}

// VertexElement is one attribute of a vertex format.
type VertexElement struct {
	Attribute string
	Offset    int
	Type      VertexElementType
	ArraySize int
}

// IsPadding reports whether the element only reserves bytes.
func (e VertexElement) IsPadding() bool { return e.Type == TypePadding }

// SizeInBytes returns the byte size of the element including its array length.
func (e VertexElement) SizeInBytes() int { return e.Type.SizeInBytes() * e.ArraySize }

// VertexFormat is an ordered, interleaved attribute layout.
// The chained methods append elements and return the format.
type VertexFormat struct {
	items []VertexElement
	size  int
}

// NewVertexFormat returns an empty format.
func NewVertexFormat() *VertexFormat {
	return &VertexFormat{}
}

// Attribute appends a named attribute.
//
// Parameters:
//   - name: attribute name without prefix
//   - t: element type
//   - arraySize: number of elements, 1 for a scalar attribute
//
// Returns:
//   - *VertexFormat: the format
func (f *VertexFormat) Attribute(name string, t VertexElementType, arraySize int) *VertexFormat {
	if arraySize < 1 {
		arraySize = 1
	}
	e := VertexElement{Attribute: name, Offset: f.size, Type: t, ArraySize: arraySize}
	f.items = append(f.items, e)
	f.size += e.SizeInBytes()
	return f
}

func vectorOf(dimensions int) VertexElementType {
	switch dimensions {
	case 1:
		return TypeFloat32
	case 2:
		return TypeVector2Float32
	case 3:
		return TypeVector3Float32
	default:
		return TypeVector4Float32
	}
}

// Position appends the "position" attribute.
func (f *VertexFormat) Position(dimensions int) *VertexFormat {
	return f.Attribute("position", vectorOf(dimensions), 1)
}

// Normal appends the "normal" attribute.
func (f *VertexFormat) Normal(dimensions int) *VertexFormat {
	return f.Attribute("normal", vectorOf(dimensions), 1)
}

// TextureCoordinate appends the "texCoord<index>" attribute.
func (f *VertexFormat) TextureCoordinate(dimensions, index int) *VertexFormat {
	return f.Attribute(fmt.Sprintf("texCoord%d", index), vectorOf(dimensions), 1)
}

// Color appends the "color" attribute.
func (f *VertexFormat) Color(dimensions int) *VertexFormat {
	return f.Attribute("color", vectorOf(dimensions), 1)
}

// Padding reserves bytes without declaring an attribute.
func (f *VertexFormat) Padding(bytes int) *VertexFormat {
	return f.Attribute("_", TypePadding, bytes)
}

// Items returns the elements in declaration order.
func (f *VertexFormat) Items() []VertexElement {
	out := make([]VertexElement, len(f.items))
	copy(out, f.items)
	return out
}

// Size returns the stride of one vertex in bytes.
func (f *VertexFormat) Size() int { return f.size }

// Key returns a canonical string identifying the layout.
func (f *VertexFormat) Key() string {
	var sb strings.Builder
	for i, e := range f.items {
		if i > 0 {
			sb.WriteByte(',')
		}
		fmt.Fprintf(&sb, "%s:%d:%d@%d", e.Attribute, int(e.Type), e.ArraySize, e.Offset)
	}
	return sb.String()
}

// Equal reports whether two formats describe the same layout.
func (f *VertexFormat) Equal(other *VertexFormat) bool {
	if f == nil || other == nil {
		return f == other
	}
	return f.size == other.size && f.Key() == other.Key()
}

// FormatsKey joins the keys of several formats.
func FormatsKey(formats []*VertexFormat) string {
	keys := make([]string, len(formats))
	for i, f := range formats {
		keys[i] = f.Key()
	}
	return strings.Join(keys, "|")
}
