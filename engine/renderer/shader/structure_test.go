package shader

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-gl/engine/renderer/buffer"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func positionColor() *buffer.VertexFormat {
	return buffer.NewVertexFormat().Position(3).Color(4)
}

func TestDefaultStructureAttributes(t *testing.T) {
	instance := buffer.NewVertexFormat().Attribute("index", buffer.TypeInt32, 1).Padding(4)

	s := DefaultStructure([]*buffer.VertexFormat{positionColor()}, []*buffer.VertexFormat{instance})

	assert.True(t, s.Default)
	assert.Equal(t, "in vec3 a_position;\nin vec4 a_color;\nin int i_index;\n", s.Attributes)
	assert.Equal(t, "out vec3 va_position;\nout vec4 va_color;\nflat out int vi_index;\n", s.VaryingOut)
	assert.Equal(t, "in vec3 va_position;\nin vec4 va_color;\nflat in int vi_index;\n", s.VaryingIn)
	assert.Equal(t, "    va_position = a_position;\n    va_color = a_color;\n    vi_index = i_index;\n", s.VaryingBridge)
	assert.Empty(t, s.Uniforms)
}

func TestStructureDuplicateAttributeKeepsFirst(t *testing.T) {
	s := DefaultStructure([]*buffer.VertexFormat{
		buffer.NewVertexFormat().Position(3),
		buffer.NewVertexFormat().Position(2),
	}, nil)

	assert.Equal(t, "in vec3 a_position;\n", s.Attributes)
}

func TestStructureFromStyle(t *testing.T) {
	style := NewShadeStyle(
		WithParameter("tint", Vec4(mgl32.Vec4{1, 0, 0, 1})),
		WithParameter("radius", Float(2)),
		WithOutput("normal", OutputBinding{Location: 1, Type: "vec3"}),
		WithOutput("color", OutputBinding{Location: 0}),
		WithBuffer("lights", BufferBinding{Binding: 2, ElementType: "vec4"}),
		WithFragmentTransform("x_fill *= p_tint;"),
		WithAttributeFormat(buffer.NewVertexFormat().Attribute("offset", buffer.TypeVector2Float32, 1)),
	)

	s := StructureFromStyle(style, []*buffer.VertexFormat{positionColor()}, nil)

	assert.False(t, s.Default)
	assert.Equal(t, "uniform float p_radius;\nuniform vec4 p_tint;\n", s.Uniforms)
	assert.Equal(t, "#define OUTPUT_color\nlayout(location = 0) out vec4 o_color;\n#define OUTPUT_normal\nlayout(location = 1) out vec3 o_normal;\n", s.Outputs)
	assert.Equal(t, "layout(std430, binding = 2) buffer B_lights { vec4 b_lights[]; };\n", s.Buffers)
	assert.Contains(t, s.Attributes, "in vec2 i_offset;\n")
	assert.Equal(t, "x_fill *= p_tint;", s.FragmentTransform)
}

func TestEqualStylesShareStructure(t *testing.T) {
	formats := []*buffer.VertexFormat{positionColor()}
	a := NewShadeStyle(WithFragmentTransform("x_fill.a = 0.5;"), WithParameter("k", Float(1)))
	b := NewShadeStyle(WithFragmentTransform("x_fill.a = 0.5;"), WithParameter("k", Float(9)))

	sa := StructureFromStyle(a, formats, nil)
	sb := StructureFromStyle(b, formats, nil)
	assert.Equal(t, sa, sb)
	assert.Equal(t, sa.Hash(), sb.Hash())

	c := NewShadeStyle(WithFragmentTransform("x_fill.a = 0.25;"))
	assert.NotEqual(t, sa.Hash(), StructureFromStyle(c, formats, nil).Hash())
	assert.NotEqual(t, DefaultStructure(formats, nil).Hash(), StructureFromStyle(NewShadeStyle(), formats, nil).Hash())
}

func TestStructureNilStyleIsDefault(t *testing.T) {
	formats := []*buffer.VertexFormat{positionColor()}
	assert.Equal(t, DefaultStructure(formats, nil), StructureFromStyle(nil, formats, nil))
}

func TestStructurerMemoizesPerRevision(t *testing.T) {
	st, err := NewStructurer(16)
	require.NoError(t, err)
	formats := []*buffer.VertexFormat{positionColor()}
	style := NewShadeStyle(WithFragmentTransform("x_fill.r = 1.0;"))

	first := st.Structure(style, formats, nil)
	again := st.Structure(style, formats, nil)
	assert.Equal(t, first, again)
	assert.Equal(t, 1, st.Len())

	style.SetParameter("k", Float(1))
	changed := st.Structure(style, formats, nil)
	assert.NotEqual(t, first, changed)
	assert.Contains(t, changed.Uniforms, "p_k")
	assert.Equal(t, 2, st.Len())

	st.Structure(style, []*buffer.VertexFormat{buffer.NewVertexFormat().Position(2)}, nil)
	assert.Equal(t, 3, st.Len())

	assert.Equal(t, DefaultStructure(formats, nil), st.Structure(nil, formats, nil))
	assert.Equal(t, 3, st.Len())

	_, err = NewStructurer(0)
	assert.Error(t, err)
}
