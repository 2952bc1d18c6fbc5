package shader

import (
	"cmp"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"slices"
	"strings"

	"github.com/Carmen-Shannon/oxy-gl/engine/renderer/buffer"
	lru "github.com/hashicorp/golang-lru"
)

// ShadeStructure is the text-level description a program is generated from. Two styles
// producing equal structures share one program. The struct is comparable and is used
// directly as a cache key.
type ShadeStructure struct {
	Uniforms          string
	Attributes        string
	Buffers           string
	StructDefinitions string

	VertexPreamble       string
	VertexTransform      string
	TessControlTransform string
	TessEvalTransform    string
	GeometryPreamble     string
	GeometryTransform    string
	FragmentPreamble     string
	FragmentTransform    string

	VaryingOut    string
	VaryingIn     string
	VaryingBridge string
	Outputs       string

	SuppressDefaultOutput bool

	// Default marks the structure of the built-in style used when a draw has no shade style.
	Default bool
}

// Hash returns a hex digest of every field. Equal structures hash equally.
func (s ShadeStructure) Hash() string {
	h := sha256.New()
	for _, f := range []string{
		s.Uniforms, s.Attributes, s.Buffers, s.StructDefinitions,
		s.VertexPreamble, s.VertexTransform, s.TessControlTransform, s.TessEvalTransform,
		s.GeometryPreamble, s.GeometryTransform, s.FragmentPreamble, s.FragmentTransform,
		s.VaryingOut, s.VaryingIn, s.VaryingBridge, s.Outputs,
	} {
		fmt.Fprintf(h, "%d:%s;", len(f), f)
	}
	fmt.Fprintf(h, "%t;%t", s.SuppressDefaultOutput, s.Default)
	return hex.EncodeToString(h.Sum(nil))
}

// HasTessellation reports whether the structure carries tessellation stages.
func (s ShadeStructure) HasTessellation() bool {
	return s.TessControlTransform != "" || s.TessEvalTransform != ""
}

// HasGeometry reports whether the structure carries a geometry stage.
func (s ShadeStructure) HasGeometry() bool {
	return s.GeometryTransform != ""
}

type attributeText struct {
	attributes, varyingOut, varyingIn, bridge strings.Builder
	seen                                      map[string]bool
}

// add declares every attribute of formats with prefix, "a_" for vertex and "i_" for instance
// attributes. Varyings carry a "v" in front of the prefix. A name declared twice keeps its first layout.
func (t *attributeText) add(formats []*buffer.VertexFormat, prefix string) {
	for _, f := range formats {
		if f == nil {
			continue
		}
		for _, e := range f.Items() {
			if e.IsPadding() || t.seen[prefix+e.Attribute] {
				continue
			}
			t.seen[prefix+e.Attribute] = true
			name := prefix + e.Attribute
			arr := ""
			if e.ArraySize > 1 {
				arr = fmt.Sprintf("[%d]", e.ArraySize)
			}
			flat := ""
			if e.Type.IsInteger() {
				flat = "flat "
			}
			glsl := e.Type.GLSLType()
			fmt.Fprintf(&t.attributes, "in %s %s%s;\n", glsl, name, arr)
			fmt.Fprintf(&t.varyingOut, "%sout %s v%s%s;\n", flat, glsl, name, arr)
			fmt.Fprintf(&t.varyingIn, "%sin %s v%s%s;\n", flat, glsl, name, arr)
			fmt.Fprintf(&t.bridge, "    v%s = %s;\n", name, name)
		}
	}
}

func baseStructure(vertexFormats, instanceFormats []*buffer.VertexFormat) ShadeStructure {
	t := &attributeText{seen: make(map[string]bool)}
	t.add(vertexFormats, "a_")
	t.add(instanceFormats, "i_")
	return ShadeStructure{
		Attributes:    t.attributes.String(),
		VaryingOut:    t.varyingOut.String(),
		VaryingIn:     t.varyingIn.String(),
		VaryingBridge: t.bridge.String(),
	}
}

// DefaultStructure returns the structure of the built-in style for the given formats.
//
// Parameters:
//   - vertexFormats: formats of the per-vertex buffers
//   - instanceFormats: formats of the per-instance buffers
//
// Returns:
//   - ShadeStructure: the default structure
func DefaultStructure(vertexFormats, instanceFormats []*buffer.VertexFormat) ShadeStructure {
	s := baseStructure(vertexFormats, instanceFormats)
	s.Default = true
	return s
}

// StructureFromStyle derives the structure of style for the given formats. The style's own
// attribute formats are declared as instance attributes after instanceFormats.
//
// Parameters:
//   - style: the shade style, or nil for the default structure
//   - vertexFormats: formats of the per-vertex buffers
//   - instanceFormats: formats of the per-instance buffers
//
// Returns:
//   - ShadeStructure: the derived structure
func StructureFromStyle(style ShadeStyle, vertexFormats, instanceFormats []*buffer.VertexFormat) ShadeStructure {
	if style == nil {
		return DefaultStructure(vertexFormats, instanceFormats)
	}
	s := baseStructure(vertexFormats, append(slices.Clone(instanceFormats), style.AttributeFormats()...))

	params := style.Parameters()
	var uniforms strings.Builder
	for _, name := range sortedKeys(params) {
		uniforms.WriteString(params[name].Declaration("p_" + name))
		uniforms.WriteByte('\n')
	}
	s.Uniforms = uniforms.String()

	outputs := style.Outputs()
	names := sortedKeys(outputs)
	slices.SortStableFunc(names, func(a, b string) int {
		return cmp.Compare(outputs[a].Location, outputs[b].Location)
	})
	var out strings.Builder
	for _, name := range names {
		o := outputs[name]
		fmt.Fprintf(&out, "#define OUTPUT_%s\nlayout(location = %d) out %s o_%s;\n", name, o.Location, cmp.Or(o.Type, "vec4"), name)
	}
	s.Outputs = out.String()

	buffers := style.Buffers()
	var bufs strings.Builder
	for _, name := range sortedKeys(buffers) {
		b := buffers[name]
		fmt.Fprintf(&bufs, "layout(std430, binding = %d) buffer B_%s { %s b_%s[]; };\n", b.Binding, name, b.ElementType, name)
	}
	s.Buffers = bufs.String()

	s.StructDefinitions = style.StructDefinitions()
	s.VertexPreamble = style.Snippet(SnippetVertexPreamble)
	s.VertexTransform = style.Snippet(SnippetVertexTransform)
	s.TessControlTransform = style.Snippet(SnippetTessControlTransform)
	s.TessEvalTransform = style.Snippet(SnippetTessEvalTransform)
	s.GeometryPreamble = style.Snippet(SnippetGeometryPreamble)
	s.GeometryTransform = style.Snippet(SnippetGeometryTransform)
	s.FragmentPreamble = style.Snippet(SnippetFragmentPreamble)
	s.FragmentTransform = style.Snippet(SnippetFragmentTransform)
	s.SuppressDefaultOutput = style.SuppressDefaultOutput()
	return s
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

type memoKey struct {
	style    ShadeStyle
	revision uint64
	formats  string
}

// structurer is the implementation of the Structurer interface.
type structurer struct {
	memo *lru.Cache
}

// Structurer memoizes StructureFromStyle per style revision and format combination.
type Structurer interface {
	// Structure returns the structure of style for the given formats, recomputing it only
	// when the style changed structurally or the formats differ.
	//
	// Parameters:
	//   - style: the shade style, or nil for the default structure
	//   - vertexFormats: formats of the per-vertex buffers
	//   - instanceFormats: formats of the per-instance buffers
	//
	// Returns:
	//   - ShadeStructure: the structure
	Structure(style ShadeStyle, vertexFormats, instanceFormats []*buffer.VertexFormat) ShadeStructure

	// Len returns the number of memoized structures.
	Len() int
}

var _ Structurer = &structurer{}

// NewStructurer creates a Structurer remembering up to size structures.
//
// Parameters:
//   - size: the memo capacity
//
// Returns:
//   - Structurer: the new structurer
//   - error: error if size is not positive
func NewStructurer(size int) (Structurer, error) {
	memo, err := lru.New(size)
	if err != nil {
		return nil, fmt.Errorf("structure memo: %w", err)
	}
	return &structurer{memo: memo}, nil
}

func (s *structurer) Structure(style ShadeStyle, vertexFormats, instanceFormats []*buffer.VertexFormat) ShadeStructure {
	if style == nil {
		return DefaultStructure(vertexFormats, instanceFormats)
	}
	key := memoKey{
		style:    style,
		revision: style.Revision(),
		formats:  buffer.FormatsKey(vertexFormats) + "#" + buffer.FormatsKey(instanceFormats),
	}
	if v, ok := s.memo.Get(key); ok {
		return v.(ShadeStructure)
	}
	st := StructureFromStyle(style, vertexFormats, instanceFormats)
	s.memo.Add(key, st)
	return st
}

func (s *structurer) Len() int {
	return s.memo.Len()
}
