// pre_processor.go implements the snippet pre-processor. It scans GLSL snippets for @oxy:
// annotations, replaces include annotations with registered phrase sources and collects
// require annotations so the source provider can check capabilities before compiling.
package shader

import (
	"fmt"
	"strings"
	"sync"
)

// maxIncludeDepth bounds nested phrase includes.
const maxIncludeDepth = 8

// preProcessor is the implementation of the PreProcessor interface.
type preProcessor struct {
	mu *sync.RWMutex

	// phrases maps phrase names to their GLSL source.
	phrases map[string]string
}

// PreProcessor expands @oxy: annotations in GLSL snippets. It holds no per-call state and
// is safe for concurrent use.
type PreProcessor interface {
	// Process replaces include annotations with phrase sources and strips require annotations.
	// Each phrase is injected at most once even when included repeatedly or transitively.
	//
	// Parameters:
	//   - source: the raw snippet
	//
	// Returns:
	//   - string: the processed snippet
	//   - []Annotation: the require annotations found, in source order
	//   - error: an error if an annotation is malformed, names an unknown phrase or nests too deeply
	Process(source string) (string, []Annotation, error)

	// Register adds or replaces a phrase.
	//
	// Parameters:
	//   - name: the phrase name used in include annotations
	//   - source: the GLSL source injected for the phrase
	Register(name, source string)

	// Phrases returns the registered phrase names.
	Phrases() []string
}

var _ PreProcessor = &preProcessor{}

// NewPreProcessor creates a PreProcessor with the built-in phrases plus extra.
//
// Parameters:
//   - extra: additional phrases keyed by name, overriding built-ins of the same name
//
// Returns:
//   - PreProcessor: a ready-to-use pre-processor
func NewPreProcessor(extra map[string]string) PreProcessor {
	p := &preProcessor{mu: &sync.RWMutex{}, phrases: make(map[string]string, len(builtinPhrases)+len(extra))}
	for name, src := range builtinPhrases {
		p.phrases[name] = src
	}
	for name, src := range extra {
		p.phrases[name] = src
	}
	return p
}

func (p *preProcessor) Register(name, source string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.phrases[name] = source
}

func (p *preProcessor) Phrases() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	names := make([]string, 0, len(p.phrases))
	for name := range p.phrases {
		names = append(names, name)
	}
	return names
}

func (p *preProcessor) Process(source string) (string, []Annotation, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	var requires []Annotation
	out, err := p.expand(source, 0, make(map[string]bool), &requires)
	if err != nil {
		return "", nil, err
	}
	return out, requires, nil
}

// expand must be called with p.mu held for reading.
func (p *preProcessor) expand(source string, depth int, included map[string]bool, requires *[]Annotation) (string, error) {
	if depth > maxIncludeDepth {
		return "", fmt.Errorf("phrase includes nested deeper than %d", maxIncludeDepth)
	}
	lines := strings.Split(source, "\n")
	out := make([]string, 0, len(lines))

	for i, line := range lines {
		a, err := parseAnnotation(line, i+1)
		if err != nil {
			return "", err
		}
		if a == nil {
			out = append(out, line)
			continue
		}

		switch a.Type {
		case AnnotationTypeInclude:
			if included[a.Arg] {
				continue
			}
			src, ok := p.phrases[a.Arg]
			if !ok {
				return "", fmt.Errorf("line %d: unknown phrase %q in @oxy include annotation", a.Line, a.Arg)
			}
			included[a.Arg] = true
			expanded, err := p.expand(src, depth+1, included, requires)
			if err != nil {
				return "", fmt.Errorf("phrase %q: %w", a.Arg, err)
			}
			out = append(out, expanded)
		case AnnotationTypeRequire:
			*requires = append(*requires, *a)
		default:
			return "", fmt.Errorf("line %d: unknown annotation type %q", a.Line, a.Type)
		}
	}
	return strings.Join(out, "\n"), nil
}
