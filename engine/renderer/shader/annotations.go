// annotations.go defines the annotation grammar of the GLSL snippet pre-processor.
// Annotations are single-line GLSL comments prefixed with @oxy: that either inject a
// registered phrase (a reusable GLSL function) or declare a capability the snippet needs.
package shader

import (
	"fmt"
	"strings"

	"github.com/Carmen-Shannon/oxy-gl/engine/renderer/driver"
)

// annotationPrefix is the marker that identifies an annotation within a GLSL comment line.
const annotationPrefix = "@oxy:"

// AnnotationType identifies the kind of annotation parsed from a comment line.
type AnnotationType string

const (
	// AnnotationTypeInclude injects the source of a registered phrase at the annotation site.
	// A phrase is injected at most once per snippet.
	//
	// Syntax: // @oxy:include <phrase>
	//
	// Example: // @oxy:include linear_to_srgb
	AnnotationTypeInclude AnnotationType = "include"

	// AnnotationTypeRequire declares that the snippet needs a driver capability. Generation
	// fails with a capability error when the driver lacks it. It produces no GLSL output.
	//
	// Syntax: // @oxy:require <capability>
	//
	// Example: // @oxy:require tessellation
	AnnotationTypeRequire AnnotationType = "require"
)

// Annotation is a single parsed annotation.
type Annotation struct {
	Type AnnotationType

	// Arg is the phrase name for include annotations and the capability name for require annotations.
	Arg string

	// Line is the 1-based line number within the processed source.
	Line int
}

// Capability returns the capability named by a require annotation.
func (a Annotation) Capability() driver.Capability {
	return driver.Capability(a.Arg)
}

var knownCapabilities = map[driver.Capability]bool{
	driver.CapabilityBaseInstance:   true,
	driver.CapabilityTessellation:   true,
	driver.CapabilityGeometry:       true,
	driver.CapabilityPerBufferBlend: true,
	driver.CapabilityAdvancedBlend:  true,
	driver.CapabilityProgramUniform: true,
	driver.CapabilityCompute:        true,
	driver.CapabilityTextureStorage: true,
}

// parseAnnotation attempts to parse a single line of GLSL source as an annotation.
// Returns nil with no error for lines that do not carry the prefix.
//
// Parameters:
//   - line: the raw source line to parse
//   - lineNum: the 1-based line number for error reporting
//
// Returns:
//   - *Annotation: the parsed annotation, or nil if the line is not an annotation
//   - error: a descriptive error if the annotation is malformed
func parseAnnotation(line string, lineNum int) (*Annotation, error) {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "//") {
		return nil, nil
	}
	_, after, ok := strings.Cut(trimmed, annotationPrefix)
	if !ok {
		return nil, nil
	}

	args := strings.Fields(after)
	if len(args) == 0 {
		return nil, fmt.Errorf("line %d: empty @oxy annotation", lineNum)
	}

	switch AnnotationType(args[0]) {
	case AnnotationTypeInclude:
		if len(args) != 2 {
			return nil, fmt.Errorf("line %d: @oxy include annotation requires exactly one argument", lineNum)
		}
		return &Annotation{Type: AnnotationTypeInclude, Arg: args[1], Line: lineNum}, nil
	case AnnotationTypeRequire:
		if len(args) != 2 {
			return nil, fmt.Errorf("line %d: @oxy require annotation requires exactly one argument", lineNum)
		}
		if !knownCapabilities[driver.Capability(args[1])] {
			return nil, fmt.Errorf("line %d: unknown capability %q in @oxy require annotation", lineNum, args[1])
		}
		return &Annotation{Type: AnnotationTypeRequire, Arg: args[1], Line: lineNum}, nil
	default:
		return nil, fmt.Errorf("line %d: unknown @oxy annotation type %q", lineNum, args[0])
	}
}
