package shader

import (
	"fmt"
	"maps"
	"sync"

	"github.com/Carmen-Shannon/oxy-gl/engine/renderer/buffer"
	"github.com/Carmen-Shannon/oxy-gl/engine/renderer/handle"
)

// Snippet names one of the GLSL fragments a shade style contributes.
type Snippet int

const (
	SnippetVertexPreamble Snippet = iota
	SnippetVertexTransform
	SnippetTessControlTransform
	SnippetTessEvalTransform
	SnippetGeometryPreamble
	SnippetGeometryTransform
	SnippetFragmentPreamble
	SnippetFragmentTransform

	snippetCount
)

var snippetNames = [snippetCount]string{
	"vertex_preamble",
	"vertex_transform",
	"tess_control_transform",
	"tess_eval_transform",
	"geometry_preamble",
	"geometry_transform",
	"fragment_preamble",
	"fragment_transform",
}

func (s Snippet) String() string {
	if s >= 0 && s < snippetCount {
		return snippetNames[s]
	}
	return fmt.Sprintf("snippet(%d)", int(s))
}

// ParseSnippet maps a snippet name such as "fragment_transform" to its Snippet.
func ParseSnippet(name string) (Snippet, error) {
	for i, n := range snippetNames {
		if n == name {
			return Snippet(i), nil
		}
	}
	return 0, fmt.Errorf("unknown shade style snippet %q", name)
}

// OutputBinding is a named fragment output.
type OutputBinding struct {
	Location int
	// Type is the GLSL output type, "vec4" when empty.
	Type string
}

// BufferBinding is a shader storage buffer exposed to every stage.
type BufferBinding struct {
	Binding int
	// ElementType is the GLSL type of one array element.
	ElementType string
	// Buffer is bound to the binding point before each draw. The zero handle leaves the
	// binding point untouched.
	Buffer handle.Handle
}

// shadeStyle is the implementation of the ShadeStyle interface.
type shadeStyle struct {
	mu *sync.RWMutex

	label             string
	snippets          [snippetCount]string
	structDefinitions string
	parameters        map[string]Uniform
	outputs           map[string]OutputBinding
	buffers           map[string]BufferBinding
	attributeFormats  []*buffer.VertexFormat
	suppressOutput    bool

	// revision counts structural changes. It keys the structure memo.
	revision uint64
	// marks counts every dirtying event, structural or forced.
	marks uint64
	dirty bool
}

// ShadeStyle is a user-supplied shader customization: GLSL snippets woven into fixed stage
// templates, typed parameters, named outputs, storage buffers and extra attribute formats.
// A style starts dirty and becomes dirty again after any structural change, which forces the
// next resolution to rebuild its program. All methods are safe for concurrent use.
type ShadeStyle interface {
	// Label returns the debug label.
	Label() string

	// Snippet returns the source of one snippet, empty when unset.
	Snippet(kind Snippet) string

	// SetSnippet replaces one snippet. The style becomes dirty when the source changes.
	//
	// Parameters:
	//   - kind: the snippet to replace
	//   - source: the GLSL source
	SetSnippet(kind Snippet, source string)

	// StructDefinitions returns GLSL struct definitions shared by every stage.
	StructDefinitions() string

	// SetStructDefinitions replaces the shared struct definitions.
	SetStructDefinitions(source string)

	// Parameter returns the named parameter.
	Parameter(name string) (Uniform, bool)

	// SetParameter sets a parameter. Changing only the value keeps the style clean;
	// a new name or a different type or length makes it dirty.
	//
	// Parameters:
	//   - name: the parameter name, declared in GLSL as p_<name>
	//   - value: the typed value
	SetParameter(name string, value Uniform)

	// Parameters returns a copy of every parameter.
	Parameters() map[string]Uniform

	// SetOutput declares a fragment output named o_<name>.
	SetOutput(name string, binding OutputBinding)

	// Outputs returns a copy of the declared outputs.
	Outputs() map[string]OutputBinding

	// SetBuffer declares a storage buffer named b_<name>.
	SetBuffer(name string, binding BufferBinding)

	// Buffers returns a copy of the declared storage buffers.
	Buffers() map[string]BufferBinding

	// AddAttributeFormat adds a per-instance attribute format the style expects.
	AddAttributeFormat(format *buffer.VertexFormat)

	// AttributeFormats returns the extra per-instance formats.
	AttributeFormats() []*buffer.VertexFormat

	// SuppressDefaultOutput reports whether the default o_color output is omitted.
	SuppressDefaultOutput() bool

	// SetSuppressDefaultOutput controls whether the default o_color output is omitted.
	SetSuppressDefaultOutput(suppress bool)

	// Revision returns a counter that increases with every structural change.
	Revision() uint64

	// Dirty reports whether the style changed since its program was last built.
	Dirty() bool

	// MarkDirty forces the next resolution to rebuild the program.
	MarkDirty()

	// ClearDirty is called by the shader cache once a program for the current revision exists.
	ClearDirty()

	// DirtyMark returns a token that changes with every MarkDirty and structural change, and
	// whether the style is dirty.
	DirtyMark() (mark uint64, dirty bool)

	// ClearDirtyAt clears the dirty flag only when no change happened since mark was taken.
	//
	// Parameters:
	//   - mark: a token returned by DirtyMark
	//
	// Returns:
	//   - bool: whether the flag was cleared
	ClearDirtyAt(mark uint64) bool
}

var _ ShadeStyle = &shadeStyle{}

// NewShadeStyle creates a style from the given options. The new style is dirty.
//
// Parameters:
//   - options: builder options applied in order
//
// Returns:
//   - ShadeStyle: the new style
func NewShadeStyle(options ...ShadeStyleBuilderOption) ShadeStyle {
	s := &shadeStyle{
		mu:         &sync.RWMutex{},
		parameters: make(map[string]Uniform),
		outputs:    make(map[string]OutputBinding),
		buffers:    make(map[string]BufferBinding),
		dirty:      true,
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

// touch must be called with s.mu held.
func (s *shadeStyle) touch() {
	s.revision++
	s.marks++
	s.dirty = true
}

func (s *shadeStyle) Label() string { return s.label }

func (s *shadeStyle) Snippet(kind Snippet) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if kind < 0 || kind >= snippetCount {
		return ""
	}
	return s.snippets[kind]
}

func (s *shadeStyle) SetSnippet(kind Snippet, source string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if kind < 0 || kind >= snippetCount || s.snippets[kind] == source {
		return
	}
	s.snippets[kind] = source
	s.touch()
}

func (s *shadeStyle) StructDefinitions() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.structDefinitions
}

func (s *shadeStyle) SetStructDefinitions(source string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.structDefinitions == source {
		return
	}
	s.structDefinitions = source
	s.touch()
}

func (s *shadeStyle) Parameter(name string) (Uniform, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.parameters[name]
	return u, ok
}

func (s *shadeStyle) SetParameter(name string, value Uniform) {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.parameters[name]
	s.parameters[name] = value
	if !ok || !old.SameLayout(value) {
		s.touch()
	}
}

func (s *shadeStyle) Parameters() map[string]Uniform {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.parameters)
}

func (s *shadeStyle) SetOutput(name string, binding OutputBinding) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if old, ok := s.outputs[name]; ok && old == binding {
		return
	}
	s.outputs[name] = binding
	s.touch()
}

func (s *shadeStyle) Outputs() map[string]OutputBinding {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.outputs)
}

func (s *shadeStyle) SetBuffer(name string, binding BufferBinding) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if old, ok := s.buffers[name]; ok && old == binding {
		return
	}
	s.buffers[name] = binding
	s.touch()
}

func (s *shadeStyle) Buffers() map[string]BufferBinding {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.buffers)
}

func (s *shadeStyle) AddAttributeFormat(format *buffer.VertexFormat) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attributeFormats = append(s.attributeFormats, format)
	s.touch()
}

func (s *shadeStyle) AttributeFormats() []*buffer.VertexFormat {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*buffer.VertexFormat, len(s.attributeFormats))
	copy(out, s.attributeFormats)
	return out
}

func (s *shadeStyle) SuppressDefaultOutput() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.suppressOutput
}

func (s *shadeStyle) SetSuppressDefaultOutput(suppress bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.suppressOutput == suppress {
		return
	}
	s.suppressOutput = suppress
	s.touch()
}

func (s *shadeStyle) Revision() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.revision
}

func (s *shadeStyle) Dirty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dirty
}

func (s *shadeStyle) MarkDirty() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.marks++
	s.dirty = true
}

func (s *shadeStyle) ClearDirty() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dirty = false
}

func (s *shadeStyle) DirtyMark() (uint64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.marks, s.dirty
}

func (s *shadeStyle) ClearDirtyAt(mark uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.marks != mark {
		return false
	}
	s.dirty = false
	return true
}
