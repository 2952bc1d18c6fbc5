package shader

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/Carmen-Shannon/oxy-gl/engine/renderer/driver"
	"github.com/Carmen-Shannon/oxy-gl/engine/renderer/handle"
)

// Stage identifies a programmable pipeline stage.
type Stage int

const (
	StageVertex Stage = iota
	StageTessControl
	StageTessEval
	StageGeometry
	StageFragment
)

func (s Stage) String() string {
	switch s {
	case StageVertex:
		return "vertex"
	case StageTessControl:
		return "tess-control"
	case StageTessEval:
		return "tess-eval"
	case StageGeometry:
		return "geometry"
	case StageFragment:
		return "fragment"
	default:
		return fmt.Sprintf("stage(%d)", int(s))
	}
}

// GLEnum returns the native shader type of the stage.
func (s Stage) GLEnum() uint32 {
	switch s {
	case StageTessControl:
		return driver.TESS_CONTROL_SHADER
	case StageTessEval:
		return driver.TESS_EVALUATION_SHADER
	case StageGeometry:
		return driver.GEOMETRY_SHADER
	case StageFragment:
		return driver.FRAGMENT_SHADER
	default:
		return driver.VERTEX_SHADER
	}
}

// FirstResourceUnit is the texture unit bound to the first resource parameter. Lower units
// are left to the caller.
const FirstResourceUnit = 2

// TextureBinder binds textures to units, skipping redundant binds.
type TextureBinder interface {
	BindTexture(drv driver.Driver, unit int, target, texture uint32) error
}

// program is the implementation of the Program interface.
type program struct {
	mu *sync.Mutex

	drv      driver.Driver
	registry handle.Registry
	logger   *slog.Logger

	handle    handle.Handle
	native    uint32
	name      string
	structure ShadeStructure
	source    ProgramSource

	attributes map[string]int32
	uniforms   map[string]int32
	missing    map[string]bool
}

// Program is a linked shader program built from one ShadeStructure.
type Program interface {
	// Handle returns the registry handle of the program.
	//
	// Returns:
	//   - handle.Handle: the program handle
	Handle() handle.Handle

	// Native returns the native program name.
	Native() uint32

	// Name returns the debug name, derived from the structure hash.
	Name() string

	// Structure returns the structure the program was built from.
	Structure() ShadeStructure

	// Source returns the generated GLSL.
	Source() ProgramSource

	// AttributeLocation returns the location of a vertex attribute, -1 when the program does not use it.
	//
	// Parameters:
	//   - name: the prefixed attribute name, such as "a_position"
	//
	// Returns:
	//   - int32: the location or -1
	AttributeLocation(name string) int32

	// UniformLocation returns the location of a uniform, -1 when the program does not use it.
	UniformLocation(name string) int32

	// SetUniform uploads a non-resource uniform to the program, which must be current.
	// Uniforms the linker removed are skipped.
	//
	// Parameters:
	//   - name: the full uniform name, such as "u_fill" or "p_radius"
	//   - value: the value
	//
	// Returns:
	//   - error: error for resource uniforms
	SetUniform(name string, value Uniform) error

	// ApplyParameters uploads shade style parameters, binding resource parameters to texture
	// units in name order starting at FirstResourceUnit.
	//
	// Parameters:
	//   - binder: the context texture binder
	//   - params: parameters keyed by name without the p_ prefix
	//
	// Returns:
	//   - error: *handle.StaleHandleError for destroyed textures, or a binder error
	ApplyParameters(binder TextureBinder, params map[string]Uniform) error
}

var _ Program = &program{}

// Compile builds and links a program from generated source. It must be called with
// driver.ObjectCreationLock held.
//
// Parameters:
//   - drv: the native driver
//   - registry: issues the program handle
//   - name: debug name
//   - structure: the structure the source was generated from
//   - src: the generated source
//   - logger: logger for compile diagnostics
//
// Returns:
//   - Program: the linked program
//   - error: *CompileError or *LinkError
func Compile(drv driver.Driver, registry handle.Registry, name string, structure ShadeStructure, src ProgramSource, logger *slog.Logger) (Program, error) {
	var shaders []uint32
	cleanup := func() {
		for _, sh := range shaders {
			drv.DeleteShader(sh)
		}
	}

	for _, st := range src.Stages() {
		sh := drv.CreateShader(st.Stage.GLEnum())
		shaders = append(shaders, sh)
		drv.ShaderSource(sh, st.Source)
		drv.CompileShader(sh)
		if !drv.ShaderCompiled(sh) {
			log := drv.ShaderInfoLog(sh)
			cleanup()
			logger.Error("[Shader] compile failed", "program", name, "stage", st.Stage.String(), "log", log)
			return nil, &CompileError{Stage: st.Stage, Name: name, Source: st.Source, Log: log}
		}
	}

	native := drv.CreateProgram()
	for _, sh := range shaders {
		drv.AttachShader(native, sh)
	}
	drv.LinkProgram(native)
	if !drv.ProgramLinked(native) {
		log := drv.ProgramInfoLog(native)
		drv.DeleteProgram(native)
		cleanup()
		logger.Error("[Shader] link failed", "program", name, "log", log)
		return nil, &LinkError{Name: name, Log: log}
	}
	cleanup()

	p := &program{
		mu:         &sync.Mutex{},
		drv:        drv,
		registry:   registry,
		logger:     logger,
		handle:     registry.Register(handle.KindProgram, native),
		native:     native,
		name:       name,
		structure:  structure,
		source:     src,
		attributes: make(map[string]int32),
		uniforms:   make(map[string]int32),
		missing:    make(map[string]bool),
	}
	logger.Debug("[Shader] program linked", "program", name, "native", native)
	return p, nil
}

func (p *program) Handle() handle.Handle     { return p.handle }
func (p *program) Native() uint32            { return p.native }
func (p *program) Name() string              { return p.name }
func (p *program) Structure() ShadeStructure { return p.structure }
func (p *program) Source() ProgramSource     { return p.source }

func (p *program) AttributeLocation(name string) int32 {
	p.mu.Lock()
	defer p.mu.Unlock()
	if loc, ok := p.attributes[name]; ok {
		return loc
	}
	loc := p.drv.AttribLocation(p.native, name)
	p.attributes[name] = loc
	return loc
}

func (p *program) UniformLocation(name string) int32 {
	p.mu.Lock()
	defer p.mu.Unlock()
	if loc, ok := p.uniforms[name]; ok {
		return loc
	}
	loc := p.drv.UniformLocation(p.native, name)
	p.uniforms[name] = loc
	return loc
}

// skip reports whether name has no location, logging the first miss per name.
func (p *program) skip(name string, loc int32) bool {
	if loc >= 0 {
		return false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.missing[name] {
		p.missing[name] = true
		p.logger.Debug("[Shader] uniform not active", "program", p.name, "uniform", name)
	}
	return true
}

func (p *program) SetUniform(name string, value Uniform) error {
	loc := p.UniformLocation(name)
	if p.skip(name, loc) {
		return nil
	}
	return value.upload(p.drv, loc)
}

func (p *program) ApplyParameters(binder TextureBinder, params map[string]Uniform) error {
	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)

	unit := FirstResourceUnit
	for _, name := range names {
		value := params[name]
		full := "p_" + name
		if value.Kind() != UniformResource {
			if err := p.SetUniform(full, value); err != nil {
				return fmt.Errorf("parameter %q: %w", name, err)
			}
			continue
		}
		res := value.Resource()
		texture, err := p.registry.Native(res.Texture)
		if err != nil {
			return fmt.Errorf("parameter %q: %w", name, err)
		}
		target := res.Target
		if target == 0 {
			target = driver.TEXTURE_2D
		}
		if err := binder.BindTexture(p.drv, unit, target, texture); err != nil {
			return fmt.Errorf("parameter %q: %w", name, err)
		}
		if loc := p.UniformLocation(full); !p.skip(full, loc) {
			p.drv.Uniform1i(loc, int32(unit))
		}
		unit++
	}
	return nil
}
