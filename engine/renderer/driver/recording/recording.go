// Package recording provides an in-memory driver.Driver that records every native call.
// It models just enough of the object model (shaders, programs, buffers, vertex arrays)
// for cache and state tests to assert on the exact call sequences they cause.
package recording

import (
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"sync"

	"github.com/Carmen-Shannon/oxy-gl/engine/renderer/driver"
)

// Call is one recorded native call.
type Call struct {
	Name string
	Args []any
}

func (c Call) String() string {
	return fmt.Sprintf("%s%v", c.Name, c.Args)
}

type shaderObject struct {
	stage  uint32
	source string
}

type programObject struct {
	shaders  []uint32
	linked   bool
	log      string
	attribs  map[string]int32
	uniforms map[string]int32
}

// Driver is the recording implementation of driver.Driver.
type Driver struct {
	mu *sync.Mutex

	version      driver.Version
	capabilities driver.Capabilities

	calls []Call

	nextName uint32
	// Recycle makes Gen* and Create* hand out the most recently deleted name first,
	// the way real drivers do.
	Recycle bool
	freed   []uint32

	shaders  map[uint32]*shaderObject
	programs map[uint32]*programObject
	buffers  map[uint32]bool
	arrays   map[uint32]bool

	boundArray uint32

	// FailCompile, when set, is consulted on CompileShader. A non-empty log fails the compile.
	FailCompile func(stage uint32, source string) string
	// FailLink, when set, is consulted on LinkProgram. A non-empty log fails the link.
	FailLink func(program uint32) string
	// PendingError is returned once by the next GetError call.
	PendingError uint32
}

var _ driver.Driver = &Driver{}

// New creates a recording driver that reports version and the capabilities derived from
// version and extensions.
//
// Parameters:
//   - version: the version to report
//   - extensions: extension names used to derive capabilities
//
// Returns:
//   - *Driver: the new recording driver
func New(version driver.Version, extensions ...string) *Driver {
	return &Driver{
		mu:           &sync.Mutex{},
		version:      version,
		capabilities: driver.CapabilitiesFor(version, extensions),
		shaders:      make(map[uint32]*shaderObject),
		programs:     make(map[uint32]*programObject),
		buffers:      make(map[uint32]bool),
		arrays:       make(map[uint32]bool),
	}
}

// SetCapabilities overrides the derived capability set.
func (d *Driver) SetCapabilities(c driver.Capabilities) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.capabilities = c
}

// Calls returns a copy of every call recorded since the last Reset.
func (d *Driver) Calls() []Call {
	d.mu.Lock()
	defer d.mu.Unlock()
	return slices.Clone(d.calls)
}

// Names returns just the names of the recorded calls, in order.
func (d *Driver) Names() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]string, len(d.calls))
	for i, c := range d.calls {
		out[i] = c.Name
	}
	return out
}

// Count returns how many times the named call was recorded since the last Reset.
func (d *Driver) Count(name string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, c := range d.calls {
		if c.Name == name {
			n++
		}
	}
	return n
}

var stateCalls = map[string]bool{
	"Enable": true, "Disable": true, "Scissor": true, "ColorMask": true, "DepthMask": true,
	"DepthFunc": true, "CullFace": true, "StencilFuncSeparate": true, "StencilOpSeparate": true,
	"StencilMaskSeparate": true, "BlendEquation": true, "BlendEquationSeparate": true,
	"BlendFunc": true, "BlendFuncSeparate": true, "BlendEquationi": true,
	"BlendEquationSeparatei": true, "BlendFunci": true, "BlendFuncSeparatei": true,
}

// StateCalls returns the recorded calls that change fixed-function state.
func (d *Driver) StateCalls() []Call {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []Call
	for _, c := range d.calls {
		if stateCalls[c.Name] {
			out = append(out, c)
		}
	}
	return out
}

// Reset forgets the recorded calls. Object state is kept.
func (d *Driver) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = nil
}

// LivePrograms returns the number of programs not yet deleted.
func (d *Driver) LivePrograms() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.programs)
}

// LiveVertexArrays returns the number of vertex arrays not yet deleted.
func (d *Driver) LiveVertexArrays() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.arrays)
}

// LiveBuffers returns the number of buffers not yet deleted.
func (d *Driver) LiveBuffers() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.buffers)
}

// BoundVertexArray returns the vertex array bound most recently.
func (d *Driver) BoundVertexArray() uint32 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.boundArray
}

// record must be called with d.mu held.
func (d *Driver) record(name string, args ...any) {
	d.calls = append(d.calls, Call{Name: name, Args: args})
}

// allocate must be called with d.mu held.
func (d *Driver) allocate() uint32 {
	if d.Recycle && len(d.freed) > 0 {
		n := d.freed[len(d.freed)-1]
		d.freed = d.freed[:len(d.freed)-1]
		return n
	}
	d.nextName++
	return d.nextName
}

func (d *Driver) release(name uint32) {
	d.freed = append(d.freed, name)
}

func (d *Driver) Version() driver.Version { return d.version }

func (d *Driver) Capabilities() driver.Capabilities {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.capabilities
}

func (d *Driver) CreateShader(stage uint32) uint32 {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := d.allocate()
	d.shaders[n] = &shaderObject{stage: stage}
	d.record("CreateShader", stage)
	return n
}

func (d *Driver) ShaderSource(shader uint32, source string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if s, ok := d.shaders[shader]; ok {
		s.source = source
	}
	d.record("ShaderSource", shader)
}

func (d *Driver) CompileShader(shader uint32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("CompileShader", shader)
}

func (d *Driver) compileLog(shader uint32) string {
	s, ok := d.shaders[shader]
	if !ok {
		return "invalid shader name"
	}
	if d.FailCompile != nil {
		return d.FailCompile(s.stage, s.source)
	}
	return ""
}

func (d *Driver) ShaderCompiled(shader uint32) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.compileLog(shader) == ""
}

func (d *Driver) ShaderInfoLog(shader uint32) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.compileLog(shader)
}

func (d *Driver) DeleteShader(shader uint32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.shaders, shader)
	d.release(shader)
	d.record("DeleteShader", shader)
}

func (d *Driver) CreateProgram() uint32 {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := d.allocate()
	d.programs[n] = &programObject{}
	d.record("CreateProgram")
	return n
}

func (d *Driver) AttachShader(program, shader uint32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if p, ok := d.programs[program]; ok {
		p.shaders = append(p.shaders, shader)
	}
	d.record("AttachShader", program, shader)
}

var (
	attributeDecl = regexp.MustCompile(`(?m)^\s*(?:layout\s*\([^)]*\)\s*)?in\s+(\w+)\s+(\w+)\s*(?:\[(\d+)\])?\s*;`)
	uniformDecl   = regexp.MustCompile(`(?m)^\s*uniform\s+(?:highp\s+|mediump\s+|lowp\s+)?(\w+)\s+(\w+)\s*(?:\[(\d+)\])?\s*;`)
)

func slots(glslType string) int32 {
	switch glslType {
	case "mat4":
		return 4
	case "mat3":
		return 3
	default:
		return 1
	}
}

func arrayLen(s string) int32 {
	if s == "" {
		return 1
	}
	n, _ := strconv.Atoi(s)
	return int32(n)
}

func (d *Driver) LinkProgram(program uint32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("LinkProgram", program)

	p, ok := d.programs[program]
	if !ok {
		return
	}
	p.attribs = make(map[string]int32)
	p.uniforms = make(map[string]int32)
	if d.FailLink != nil {
		p.log = d.FailLink(program)
	}
	var attribLoc, uniformLoc int32
	for _, sh := range p.shaders {
		s, ok := d.shaders[sh]
		if !ok {
			continue
		}
		if s.stage == driver.VERTEX_SHADER {
			for _, m := range attributeDecl.FindAllStringSubmatch(s.source, -1) {
				p.attribs[m[2]] = attribLoc
				attribLoc += slots(m[1]) * arrayLen(m[3])
			}
		}
		for _, m := range uniformDecl.FindAllStringSubmatch(s.source, -1) {
			if _, seen := p.uniforms[m[2]]; seen {
				continue
			}
			p.uniforms[m[2]] = uniformLoc
			uniformLoc += arrayLen(m[3])
		}
	}
	p.linked = p.log == ""
}

func (d *Driver) ProgramLinked(program uint32) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	p, ok := d.programs[program]
	return ok && p.linked
}

func (d *Driver) ProgramInfoLog(program uint32) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	if p, ok := d.programs[program]; ok {
		return p.log
	}
	return "invalid program name"
}

func (d *Driver) UseProgram(program uint32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("UseProgram", program)
}

func (d *Driver) DeleteProgram(program uint32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.programs, program)
	d.release(program)
	d.record("DeleteProgram", program)
}

func (d *Driver) AttribLocation(program uint32, name string) int32 {
	d.mu.Lock()
	defer d.mu.Unlock()
	if p, ok := d.programs[program]; ok {
		if loc, ok := p.attribs[name]; ok {
			return loc
		}
	}
	return -1
}

func (d *Driver) UniformLocation(program uint32, name string) int32 {
	d.mu.Lock()
	defer d.mu.Unlock()
	if p, ok := d.programs[program]; ok {
		if loc, ok := p.uniforms[name]; ok {
			return loc
		}
	}
	return -1
}

func (d *Driver) Uniform1i(location int32, v int32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("Uniform1i", location, v)
}

func (d *Driver) Uniform1iv(location int32, v []int32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("Uniform1iv", location, slices.Clone(v))
}

func (d *Driver) Uniform1fv(location int32, v []float32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("Uniform1fv", location, slices.Clone(v))
}

func (d *Driver) Uniform2fv(location int32, v []float32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("Uniform2fv", location, slices.Clone(v))
}

func (d *Driver) Uniform3fv(location int32, v []float32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("Uniform3fv", location, slices.Clone(v))
}

func (d *Driver) Uniform4fv(location int32, v []float32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("Uniform4fv", location, slices.Clone(v))
}

func (d *Driver) UniformMatrix3fv(location int32, v []float32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("UniformMatrix3fv", location, slices.Clone(v))
}

func (d *Driver) UniformMatrix4fv(location int32, v []float32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("UniformMatrix4fv", location, slices.Clone(v))
}

func (d *Driver) GenBuffer() uint32 {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := d.allocate()
	d.buffers[n] = true
	d.record("GenBuffer")
	return n
}

func (d *Driver) BindBuffer(target, buffer uint32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("BindBuffer", target, buffer)
}

func (d *Driver) BindBufferBase(target, index, buffer uint32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("BindBufferBase", target, index, buffer)
}

func (d *Driver) BufferData(target uint32, size int, data []byte, usage uint32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("BufferData", target, size, usage)
}

func (d *Driver) BufferSubData(target uint32, offset int, data []byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("BufferSubData", target, offset, len(data))
}

func (d *Driver) DeleteBuffer(buffer uint32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.buffers, buffer)
	d.release(buffer)
	d.record("DeleteBuffer", buffer)
}

func (d *Driver) GenVertexArray() uint32 {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := d.allocate()
	d.arrays[n] = true
	d.record("GenVertexArray")
	return n
}

func (d *Driver) BindVertexArray(array uint32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.boundArray = array
	d.record("BindVertexArray", array)
}

func (d *Driver) DeleteVertexArray(array uint32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.arrays, array)
	d.release(array)
	d.record("DeleteVertexArray", array)
}

func (d *Driver) EnableVertexAttribArray(index uint32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("EnableVertexAttribArray", index)
}

func (d *Driver) VertexAttribPointer(index uint32, size int32, xtype uint32, normalized bool, stride int32, offset int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("VertexAttribPointer", index, size, xtype, normalized, stride, offset)
}

func (d *Driver) VertexAttribIPointer(index uint32, size int32, xtype uint32, stride int32, offset int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("VertexAttribIPointer", index, size, xtype, stride, offset)
}

func (d *Driver) VertexAttribDivisor(index, divisor uint32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("VertexAttribDivisor", index, divisor)
}

func (d *Driver) ActiveTexture(unit uint32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("ActiveTexture", unit)
}

func (d *Driver) BindTexture(target, texture uint32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("BindTexture", target, texture)
}

func (d *Driver) Enable(capability uint32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("Enable", capability)
}

func (d *Driver) Disable(capability uint32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("Disable", capability)
}

func (d *Driver) Scissor(x, y, width, height int32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("Scissor", x, y, width, height)
}

func (d *Driver) ColorMask(red, green, blue, alpha bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("ColorMask", red, green, blue, alpha)
}

func (d *Driver) DepthMask(flag bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("DepthMask", flag)
}

func (d *Driver) DepthFunc(fn uint32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("DepthFunc", fn)
}

func (d *Driver) CullFace(mode uint32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("CullFace", mode)
}

func (d *Driver) StencilFuncSeparate(face, fn uint32, ref int32, mask uint32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("StencilFuncSeparate", face, fn, ref, mask)
}

func (d *Driver) StencilOpSeparate(face, sfail, dpfail, dppass uint32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("StencilOpSeparate", face, sfail, dpfail, dppass)
}

func (d *Driver) StencilMaskSeparate(face, mask uint32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("StencilMaskSeparate", face, mask)
}

func (d *Driver) BlendEquation(mode uint32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("BlendEquation", mode)
}

func (d *Driver) BlendEquationSeparate(modeRGB, modeAlpha uint32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("BlendEquationSeparate", modeRGB, modeAlpha)
}

func (d *Driver) BlendFunc(src, dst uint32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("BlendFunc", src, dst)
}

func (d *Driver) BlendFuncSeparate(srcRGB, dstRGB, srcAlpha, dstAlpha uint32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("BlendFuncSeparate", srcRGB, dstRGB, srcAlpha, dstAlpha)
}

func (d *Driver) BlendEquationi(buf, mode uint32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("BlendEquationi", buf, mode)
}

func (d *Driver) BlendEquationSeparatei(buf, modeRGB, modeAlpha uint32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("BlendEquationSeparatei", buf, modeRGB, modeAlpha)
}

func (d *Driver) BlendFunci(buf, src, dst uint32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("BlendFunci", buf, src, dst)
}

func (d *Driver) BlendFuncSeparatei(buf, srcRGB, dstRGB, srcAlpha, dstAlpha uint32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("BlendFuncSeparatei", buf, srcRGB, dstRGB, srcAlpha, dstAlpha)
}

func (d *Driver) PatchParameteri(pname uint32, value int32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("PatchParameteri", pname, value)
}

func (d *Driver) DrawArrays(mode uint32, first, count int32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("DrawArrays", mode, first, count)
}

func (d *Driver) DrawArraysInstanced(mode uint32, first, count, instances int32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("DrawArraysInstanced", mode, first, count, instances)
}

func (d *Driver) DrawArraysInstancedBaseInstance(mode uint32, first, count, instances int32, baseInstance uint32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("DrawArraysInstancedBaseInstance", mode, first, count, instances, baseInstance)
}

func (d *Driver) DrawElements(mode uint32, count int32, xtype uint32, offset int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("DrawElements", mode, count, xtype, offset)
}

func (d *Driver) DrawElementsInstanced(mode uint32, count int32, xtype uint32, offset int, instances int32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("DrawElementsInstanced", mode, count, xtype, offset, instances)
}

func (d *Driver) DrawElementsInstancedBaseInstance(mode uint32, count int32, xtype uint32, offset int, instances int32, baseInstance uint32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("DrawElementsInstancedBaseInstance", mode, count, xtype, offset, instances, baseInstance)
}

func (d *Driver) MultiDrawArrays(mode uint32, first, count []int32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("MultiDrawArrays", mode, slices.Clone(first), slices.Clone(count))
}

func (d *Driver) GetError() uint32 {
	d.mu.Lock()
	defer d.mu.Unlock()
	e := d.PendingError
	d.PendingError = driver.NO_ERROR
	return e
}
