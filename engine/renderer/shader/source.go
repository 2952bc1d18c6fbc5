package shader

import (
	"fmt"
	"strings"

	"github.com/Carmen-Shannon/oxy-gl/engine/renderer/driver"
)

// fixedUniforms are declared in every stage and set by the draw dispatcher.
const fixedUniforms = `uniform mat4 u_modelMatrix;
uniform mat4 u_viewMatrix;
uniform mat4 u_projectionMatrix;
uniform vec2 u_viewDimensions;
uniform float u_contentScale;
uniform vec4 u_fill;
`

// ProgramSource is the complete GLSL of every stage of one program. Empty stages are absent.
type ProgramSource struct {
	Vertex      string
	TessControl string
	TessEval    string
	Geometry    string
	Fragment    string
}

// StageSource pairs a stage with its GLSL.
type StageSource struct {
	Stage  Stage
	Source string
}

// Stages returns the present stages in pipeline order.
func (p ProgramSource) Stages() []StageSource {
	all := []StageSource{
		{StageVertex, p.Vertex},
		{StageTessControl, p.TessControl},
		{StageTessEval, p.TessEval},
		{StageGeometry, p.Geometry},
		{StageFragment, p.Fragment},
	}
	out := all[:0]
	for _, s := range all {
		if s.Source != "" {
			out = append(out, s)
		}
	}
	return out
}

// sourceProvider is the implementation of the SourceProvider interface.
type sourceProvider struct {
	version      driver.Version
	capabilities driver.Capabilities
	pp           PreProcessor
	extraHeader  string
}

// SourceProvider weaves a ShadeStructure into version-specific stage templates. Generation is
// pure and safe to run concurrently; compilation is left to the caller.
type SourceProvider interface {
	// Generate produces the GLSL of every stage of structure.
	//
	// Parameters:
	//   - structure: the structure to weave
	//
	// Returns:
	//   - ProgramSource: the generated sources
	//   - error: *GenerationError for malformed snippets, *driver.CapabilityError for stages or
	//     annotations the driver cannot run
	Generate(structure ShadeStructure) (ProgramSource, error)

	// Header returns the version and precision preamble of stage.
	Header(stage Stage) string

	// PreProcessor returns the snippet pre-processor, for registering phrases.
	PreProcessor() PreProcessor
}

var _ SourceProvider = &sourceProvider{}

// NewSourceProvider creates a provider for the language version of drv's version.
//
// Parameters:
//   - version: the driver version selecting the GLSL dialect
//   - capabilities: the driver capabilities used to gate optional stages
//   - options: builder options
//
// Returns:
//   - SourceProvider: the new provider
func NewSourceProvider(version driver.Version, capabilities driver.Capabilities, options ...SourceProviderBuilderOption) SourceProvider {
	p := &sourceProvider{version: version, capabilities: capabilities}
	for _, opt := range options {
		opt(p)
	}
	if p.pp == nil {
		p.pp = NewPreProcessor(nil)
	}
	return p
}

func (p *sourceProvider) PreProcessor() PreProcessor { return p.pp }

func (p *sourceProvider) Header(stage Stage) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "#version %s\n#define OR_IN_OUT\n", p.version.GLSLVersion())
	if p.version.IsGLES() {
		sb.WriteString("#define OR_GLES\nprecision highp float;\nprecision highp int;\nprecision highp sampler2D;\n")
	} else {
		sb.WriteString("#define OR_GL\n")
	}
	if stage == StageFragment && p.capabilities.AdvancedBlend {
		sb.WriteString("#extension GL_KHR_blend_equation_advanced : enable\n")
	}
	if p.extraHeader != "" {
		sb.WriteString(p.extraHeader)
		sb.WriteByte('\n')
	}
	return sb.String()
}

func (p *sourceProvider) require(capability driver.Capability, detail string) error {
	if p.capabilities.Has(capability) {
		return nil
	}
	return &driver.CapabilityError{Capability: capability, Version: p.version, Detail: detail}
}

// expanded holds the pre-processed snippets of one structure.
type expanded struct {
	structs, vertexPreamble, vertexTransform, tessControl, tessEval          string
	geometryPreamble, geometryTransform, fragmentPreamble, fragmentTransform string
}

func (p *sourceProvider) expand(s ShadeStructure) (expanded, error) {
	var e expanded
	fields := []struct {
		snippet string
		name    string
		dst     *string
	}{
		{s.StructDefinitions, "struct_definitions", &e.structs},
		{s.VertexPreamble, SnippetVertexPreamble.String(), &e.vertexPreamble},
		{s.VertexTransform, SnippetVertexTransform.String(), &e.vertexTransform},
		{s.TessControlTransform, SnippetTessControlTransform.String(), &e.tessControl},
		{s.TessEvalTransform, SnippetTessEvalTransform.String(), &e.tessEval},
		{s.GeometryPreamble, SnippetGeometryPreamble.String(), &e.geometryPreamble},
		{s.GeometryTransform, SnippetGeometryTransform.String(), &e.geometryTransform},
		{s.FragmentPreamble, SnippetFragmentPreamble.String(), &e.fragmentPreamble},
		{s.FragmentTransform, SnippetFragmentTransform.String(), &e.fragmentTransform},
	}
	for _, f := range fields {
		if f.snippet == "" {
			continue
		}
		out, requires, err := p.pp.Process(f.snippet)
		if err != nil {
			return e, &GenerationError{Snippet: f.name, Err: err}
		}
		for _, a := range requires {
			if err := p.require(a.Capability(), f.name+" requires it"); err != nil {
				return e, err
			}
		}
		*f.dst = out
	}
	return e, nil
}

func (p *sourceProvider) Generate(s ShadeStructure) (ProgramSource, error) {
	if (s.TessControlTransform == "") != (s.TessEvalTransform == "") {
		return ProgramSource{}, &GenerationError{Snippet: "tessellation", Err: fmt.Errorf("control and evaluation stages must be given together")}
	}
	if s.HasTessellation() {
		if err := p.require(driver.CapabilityTessellation, "tessellation stages"); err != nil {
			return ProgramSource{}, err
		}
	}
	if s.HasGeometry() {
		if err := p.require(driver.CapabilityGeometry, "geometry stage"); err != nil {
			return ProgramSource{}, err
		}
	}
	if s.Buffers != "" {
		if err := p.require(driver.CapabilityCompute, "shader storage buffers"); err != nil {
			return ProgramSource{}, err
		}
	}
	e, err := p.expand(s)
	if err != nil {
		return ProgramSource{}, err
	}

	src := ProgramSource{
		Vertex:   p.vertex(s, e),
		Fragment: p.fragment(s, e),
	}
	if s.HasTessellation() {
		src.TessControl = p.passThroughStage(StageTessControl, s, e, "", e.tessControl)
		src.TessEval = p.passThroughStage(StageTessEval, s, e, "", e.tessEval)
	}
	if s.HasGeometry() {
		src.Geometry = p.passThroughStage(StageGeometry, s, e, e.geometryPreamble, e.geometryTransform)
	}
	return src, nil
}

// positionInit initializes x_position from a_position when the vertex format declares one.
func positionInit(attributes string) string {
	switch {
	case strings.Contains(attributes, "in vec4 a_position;"):
		return "    vec4 x_position = a_position;\n"
	case strings.Contains(attributes, "in vec3 a_position;"):
		return "    vec4 x_position = vec4(a_position, 1.0);\n"
	case strings.Contains(attributes, "in vec2 a_position;"):
		return "    vec4 x_position = vec4(a_position, 0.0, 1.0);\n"
	default:
		return "    vec4 x_position = vec4(0.0, 0.0, 0.0, 1.0);\n"
	}
}

func (p *sourceProvider) vertex(s ShadeStructure, e expanded) string {
	var sb strings.Builder
	sb.WriteString(p.Header(StageVertex))
	sb.WriteString(e.structs)
	sb.WriteString("\n")
	sb.WriteString(fixedUniforms)
	sb.WriteString(s.Uniforms)
	sb.WriteString(s.Attributes)
	sb.WriteString(s.Buffers)
	sb.WriteString(s.VaryingOut)
	sb.WriteString(e.vertexPreamble)
	sb.WriteString("\nvoid main() {\n")
	sb.WriteString(s.VaryingBridge)
	sb.WriteString(positionInit(s.Attributes))
	sb.WriteString("    mat4 x_modelMatrix = u_modelMatrix;\n")
	sb.WriteString("    mat4 x_viewMatrix = u_viewMatrix;\n")
	sb.WriteString("    mat4 x_projectionMatrix = u_projectionMatrix;\n")
	sb.WriteString("    {\n")
	sb.WriteString(e.vertexTransform)
	sb.WriteString("\n    }\n")
	sb.WriteString("    gl_Position = x_projectionMatrix * x_viewMatrix * x_modelMatrix * x_position;\n")
	sb.WriteString("}\n")
	return sb.String()
}

func (p *sourceProvider) fragment(s ShadeStructure, e expanded) string {
	var sb strings.Builder
	sb.WriteString(p.Header(StageFragment))
	if p.capabilities.AdvancedBlend {
		sb.WriteString("layout(blend_support_all_equations) out;\n")
	}
	sb.WriteString(e.structs)
	sb.WriteString("\n")
	sb.WriteString(fixedUniforms)
	sb.WriteString(s.Uniforms)
	sb.WriteString(s.Buffers)
	sb.WriteString(s.VaryingIn)
	sb.WriteString(s.Outputs)
	defaultOutput := !s.SuppressDefaultOutput
	if defaultOutput && !strings.Contains(s.Outputs, " o_color;") {
		sb.WriteString("layout(location = 0) out vec4 o_color;\n")
	}
	sb.WriteString(e.fragmentPreamble)
	sb.WriteString("\nvoid main() {\n")
	sb.WriteString("    vec4 x_fill = u_fill;\n")
	sb.WriteString("    {\n")
	sb.WriteString(e.fragmentTransform)
	sb.WriteString("\n    }\n")
	if defaultOutput {
		sb.WriteString("    o_color = x_fill;\n")
	}
	sb.WriteString("}\n")
	return sb.String()
}

// passThroughStage emits header, shared declarations and the snippet verbatim. The snippet
// supplies the stage layout qualifiers and main.
func (p *sourceProvider) passThroughStage(stage Stage, s ShadeStructure, e expanded, preamble, body string) string {
	var sb strings.Builder
	sb.WriteString(p.Header(stage))
	sb.WriteString(e.structs)
	sb.WriteString("\n")
	sb.WriteString(fixedUniforms)
	sb.WriteString(s.Uniforms)
	sb.WriteString(s.Buffers)
	sb.WriteString(preamble)
	sb.WriteString("\n")
	sb.WriteString(body)
	sb.WriteString("\n")
	return sb.String()
}

// SourceProviderBuilderOption is a functional option used to configure a SourceProvider during construction.
type SourceProviderBuilderOption func(*sourceProvider)

// WithPreProcessor sets the snippet pre-processor.
func WithPreProcessor(pp PreProcessor) SourceProviderBuilderOption {
	return func(p *sourceProvider) {
		p.pp = pp
	}
}

// WithExtraHeader appends GLSL lines after the version preamble of every stage.
func WithExtraHeader(header string) SourceProviderBuilderOption {
	return func(p *sourceProvider) {
		p.extraHeader = header
	}
}
