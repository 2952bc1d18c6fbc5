package shader

import "github.com/Carmen-Shannon/oxy-gl/engine/renderer/buffer"

// ShadeStyleBuilderOption is a functional option used to configure a ShadeStyle during construction.
type ShadeStyleBuilderOption func(*shadeStyle)

// WithLabel sets the debug label of the style.
//
// Parameters:
//   - label: the debug label
//
// Returns:
//   - ShadeStyleBuilderOption: a function that sets the label
func WithLabel(label string) ShadeStyleBuilderOption {
	return func(s *shadeStyle) {
		s.label = label
	}
}

// WithSnippet sets one snippet.
//
// Parameters:
//   - kind: the snippet to set
//   - source: the GLSL source
//
// Returns:
//   - ShadeStyleBuilderOption: a function that sets the snippet
func WithSnippet(kind Snippet, source string) ShadeStyleBuilderOption {
	return func(s *shadeStyle) {
		if kind >= 0 && kind < snippetCount {
			s.snippets[kind] = source
		}
	}
}

// WithVertexTransform sets the vertex transform snippet.
func WithVertexTransform(source string) ShadeStyleBuilderOption {
	return WithSnippet(SnippetVertexTransform, source)
}

// WithVertexPreamble sets the vertex preamble snippet.
func WithVertexPreamble(source string) ShadeStyleBuilderOption {
	return WithSnippet(SnippetVertexPreamble, source)
}

// WithFragmentTransform sets the fragment transform snippet.
func WithFragmentTransform(source string) ShadeStyleBuilderOption {
	return WithSnippet(SnippetFragmentTransform, source)
}

// WithFragmentPreamble sets the fragment preamble snippet.
func WithFragmentPreamble(source string) ShadeStyleBuilderOption {
	return WithSnippet(SnippetFragmentPreamble, source)
}

// WithGeometryTransform sets the geometry stage body. The snippet declares its own layout and main.
func WithGeometryTransform(source string) ShadeStyleBuilderOption {
	return WithSnippet(SnippetGeometryTransform, source)
}

// WithTessellation sets both tessellation stage bodies. Each snippet declares its own layout and main.
//
// Parameters:
//   - control: the tessellation control stage body
//   - evaluation: the tessellation evaluation stage body
//
// Returns:
//   - ShadeStyleBuilderOption: a function that sets both tessellation snippets
func WithTessellation(control, evaluation string) ShadeStyleBuilderOption {
	return func(s *shadeStyle) {
		s.snippets[SnippetTessControlTransform] = control
		s.snippets[SnippetTessEvalTransform] = evaluation
	}
}

// WithStructDefinitions sets GLSL struct definitions shared by every stage.
func WithStructDefinitions(source string) ShadeStyleBuilderOption {
	return func(s *shadeStyle) {
		s.structDefinitions = source
	}
}

// WithParameter sets an initial parameter.
//
// Parameters:
//   - name: the parameter name
//   - value: the typed value
//
// Returns:
//   - ShadeStyleBuilderOption: a function that sets the parameter
func WithParameter(name string, value Uniform) ShadeStyleBuilderOption {
	return func(s *shadeStyle) {
		s.parameters[name] = value
	}
}

// WithOutput declares a fragment output.
func WithOutput(name string, binding OutputBinding) ShadeStyleBuilderOption {
	return func(s *shadeStyle) {
		s.outputs[name] = binding
	}
}

// WithBuffer declares a storage buffer.
func WithBuffer(name string, binding BufferBinding) ShadeStyleBuilderOption {
	return func(s *shadeStyle) {
		s.buffers[name] = binding
	}
}

// WithAttributeFormat adds a per-instance attribute format.
func WithAttributeFormat(format *buffer.VertexFormat) ShadeStyleBuilderOption {
	return func(s *shadeStyle) {
		s.attributeFormats = append(s.attributeFormats, format)
	}
}

// WithSuppressDefaultOutput omits the default o_color output.
func WithSuppressDefaultOutput() ShadeStyleBuilderOption {
	return func(s *shadeStyle) {
		s.suppressOutput = true
	}
}
