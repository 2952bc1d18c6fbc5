package shader

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-gl/engine/renderer/buffer"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUniformDeclarations(t *testing.T) {
	assert.Equal(t, "uniform float p_x;", Float(1).Declaration("p_x"))
	assert.Equal(t, "uniform float p_x[3];", FloatArray(1, 2, 3).Declaration("p_x"))
	assert.Equal(t, "uniform mat4 p_m;", Mat4(mgl32.Ident4()).Declaration("p_m"))
	assert.Equal(t, "uniform sampler2D p_t;", Texture(Resource{}).Declaration("p_t"))
	assert.Equal(t, "uniform samplerCube p_t;", Texture(Resource{Sampler: "samplerCube"}).Declaration("p_t"))
	assert.Equal(t, "uniform bool p_b;", Bool(true).Declaration("p_b"))
	assert.Equal(t, []int32{1}, Bool(true).Ints())
}

func TestUniformArray(t *testing.T) {
	u, err := Array(Vec2(mgl32.Vec2{1, 2}), Vec2(mgl32.Vec2{3, 4}))
	require.NoError(t, err)
	assert.Equal(t, 2, u.Len())
	assert.Equal(t, []float32{1, 2, 3, 4}, u.Floats())
	assert.Equal(t, "uniform vec2 p_v[2];", u.Declaration("p_v"))

	_, err = Array()
	assert.Error(t, err)
	_, err = Array(Float(1), Int(1))
	assert.Error(t, err)
	_, err = Array(Texture(Resource{}), Texture(Resource{}))
	assert.Error(t, err)
	_, err = Array(FloatArray(1, 2))
	assert.Error(t, err)
}

func TestUniformSameLayout(t *testing.T) {
	assert.True(t, Float(1).SameLayout(Float(2)))
	assert.False(t, Float(1).SameLayout(Int(1)))
	assert.False(t, Float(1).SameLayout(FloatArray(1, 2)))
	assert.False(t, Texture(Resource{}).SameLayout(Texture(Resource{Sampler: "sampler3D"})))
}

func TestNewStyleStartsDirty(t *testing.T) {
	s := NewShadeStyle(WithFragmentTransform("x_fill = vec4(1.0);"))

	assert.True(t, s.Dirty())
	assert.Equal(t, uint64(0), s.Revision())
	assert.Equal(t, "x_fill = vec4(1.0);", s.Snippet(SnippetFragmentTransform))
}

func TestParameterValueChangeKeepsStyleClean(t *testing.T) {
	s := NewShadeStyle(WithParameter("radius", Float(1)))
	s.ClearDirty()

	s.SetParameter("radius", Float(2))
	assert.False(t, s.Dirty())
	assert.Equal(t, uint64(0), s.Revision())
	v, ok := s.Parameter("radius")
	require.True(t, ok)
	assert.Equal(t, []float32{2}, v.Floats())

	s.SetParameter("radius", Vec2(mgl32.Vec2{1, 1}))
	assert.True(t, s.Dirty())
	assert.Equal(t, uint64(1), s.Revision())

	s.ClearDirty()
	s.SetParameter("tint", Vec4(mgl32.Vec4{1, 0, 0, 1}))
	assert.True(t, s.Dirty())
	assert.Equal(t, uint64(2), s.Revision())
}

func TestStructuralChangesMarkDirty(t *testing.T) {
	s := NewShadeStyle()
	changes := []func(){
		func() { s.SetSnippet(SnippetVertexTransform, "x_position.x += 1.0;") },
		func() { s.SetStructDefinitions("struct A { float a; };") },
		func() { s.SetOutput("normal", OutputBinding{Location: 1}) },
		func() { s.SetBuffer("lights", BufferBinding{Binding: 0, ElementType: "vec4"}) },
		func() {
			s.AddAttributeFormat(buffer.NewVertexFormat().Attribute("offset", buffer.TypeVector2Float32, 1))
		},
		func() { s.SetSuppressDefaultOutput(true) },
	}
	for i, change := range changes {
		s.ClearDirty()
		change()
		assert.True(t, s.Dirty(), "change %d", i)
		assert.Equal(t, uint64(i+1), s.Revision(), "change %d", i)
	}

	s.ClearDirty()
	s.SetSnippet(SnippetVertexTransform, "x_position.x += 1.0;")
	s.SetOutput("normal", OutputBinding{Location: 1})
	s.SetSuppressDefaultOutput(true)
	assert.False(t, s.Dirty())
}

func TestParseSnippet(t *testing.T) {
	kind, err := ParseSnippet("geometry_transform")
	require.NoError(t, err)
	assert.Equal(t, SnippetGeometryTransform, kind)
	assert.Equal(t, "tess_eval_transform", SnippetTessEvalTransform.String())

	_, err = ParseSnippet("pixel_transform")
	assert.Error(t, err)
}

func TestClearDirtyAtIgnoresStaleMark(t *testing.T) {
	s := NewShadeStyle()
	mark, dirty := s.DirtyMark()
	require.True(t, dirty)

	s.MarkDirty()
	assert.False(t, s.ClearDirtyAt(mark))
	assert.True(t, s.Dirty())

	mark, _ = s.DirtyMark()
	assert.True(t, s.ClearDirtyAt(mark))
	assert.False(t, s.Dirty())

	mark, dirty = s.DirtyMark()
	assert.False(t, dirty)
	s.SetSnippet(SnippetFragmentTransform, "x_fill.r = 0.0;")
	assert.False(t, s.ClearDirtyAt(mark))
	assert.True(t, s.Dirty())
}
