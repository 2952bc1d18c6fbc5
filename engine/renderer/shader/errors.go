package shader

import "fmt"

// CompileError reports a stage that failed to compile. It carries the generated source so
// the failing line can be located.
type CompileError struct {
	Stage  Stage
	Name   string
	Source string
	Log    string
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("compile %s stage of %q: %s", e.Stage, e.Name, e.Log)
}

// LinkError reports a program whose stages compiled but failed to link.
type LinkError struct {
	Name string
	Log  string
}

func (e *LinkError) Error() string {
	return fmt.Sprintf("link %q: %s", e.Name, e.Log)
}

// GenerationError reports a snippet that could not be woven into a stage template.
type GenerationError struct {
	Snippet string
	Err     error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generate %s: %v", e.Snippet, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }
