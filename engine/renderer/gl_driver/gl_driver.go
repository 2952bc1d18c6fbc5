// Package gl_driver implements driver.Driver on desktop OpenGL through go-gl.
//
// Reference: https://pkg.go.dev/github.com/go-gl/gl/all-core/gl
package gl_driver

import (
	"fmt"
	"strings"

	"github.com/Carmen-Shannon/oxy-gl/engine/renderer/driver"
	"github.com/go-gl/gl/all-core/gl"
)

// glDriver forwards every call to the go-gl bindings of the context current on the calling thread.
type glDriver struct {
	version      driver.Version
	capabilities driver.Capabilities
}

var _ driver.Driver = &glDriver{}

// New loads the GL function pointers for the current context and detects its version and
// extensions. A context must be current on the calling thread.
//
// Parameters:
//   - forced: a version string from configuration ("gl-4.1"), or empty to detect
//
// Returns:
//   - driver.Driver: the native driver
//   - error: an error if loading fails or the context is too old
func New(forced string) (driver.Driver, error) {
	if err := gl.Init(); err != nil {
		return nil, fmt.Errorf("initialize gl: %w", err)
	}

	var count int32
	gl.GetIntegerv(gl.NUM_EXTENSIONS, &count)
	extensions := make([]string, 0, count)
	for i := int32(0); i < count; i++ {
		extensions = append(extensions, gl.GoStr(gl.GetStringi(gl.EXTENSIONS, uint32(i))))
	}

	return detect(gl.GoStr(gl.GetString(gl.VERSION)), forced, extensions)
}

// detect builds the driver for a reported version string. Entry points newer than the
// detected version stay unloaded, so their features are gated through the capabilities.
func detect(reported, forced string, extensions []string) (*glDriver, error) {
	if forced != "" {
		reported = forced
	}
	version, err := driver.ParseVersion(reported)
	if err != nil {
		return nil, err
	}
	return &glDriver{
		version:      version,
		capabilities: driver.CapabilitiesFor(version, extensions),
	}, nil
}

func (d *glDriver) Version() driver.Version           { return d.version }
func (d *glDriver) Capabilities() driver.Capabilities { return d.capabilities }

func (d *glDriver) CreateShader(stage uint32) uint32 { return gl.CreateShader(stage) }

func (d *glDriver) ShaderSource(shader uint32, source string) {
	csources, free := gl.Strs(source + "\x00")
	defer free()
	gl.ShaderSource(shader, 1, csources, nil)
}

func (d *glDriver) CompileShader(shader uint32) { gl.CompileShader(shader) }

func (d *glDriver) ShaderCompiled(shader uint32) bool {
	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	return status == gl.TRUE
}

func (d *glDriver) ShaderInfoLog(shader uint32) string {
	var length int32
	gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &length)
	if length == 0 {
		return ""
	}
	log := strings.Repeat("\x00", int(length+1))
	gl.GetShaderInfoLog(shader, length, nil, gl.Str(log))
	return strings.TrimRight(log, "\x00")
}

func (d *glDriver) DeleteShader(shader uint32) { gl.DeleteShader(shader) }

func (d *glDriver) CreateProgram() uint32               { return gl.CreateProgram() }
func (d *glDriver) AttachShader(program, shader uint32) { gl.AttachShader(program, shader) }
func (d *glDriver) LinkProgram(program uint32)          { gl.LinkProgram(program) }

func (d *glDriver) ProgramLinked(program uint32) bool {
	var status int32
	gl.GetProgramiv(program, gl.LINK_STATUS, &status)
	return status == gl.TRUE
}

func (d *glDriver) ProgramInfoLog(program uint32) string {
	var length int32
	gl.GetProgramiv(program, gl.INFO_LOG_LENGTH, &length)
	if length == 0 {
		return ""
	}
	log := strings.Repeat("\x00", int(length+1))
	gl.GetProgramInfoLog(program, length, nil, gl.Str(log))
	return strings.TrimRight(log, "\x00")
}

func (d *glDriver) UseProgram(program uint32)    { gl.UseProgram(program) }
func (d *glDriver) DeleteProgram(program uint32) { gl.DeleteProgram(program) }

func (d *glDriver) AttribLocation(program uint32, name string) int32 {
	return gl.GetAttribLocation(program, gl.Str(name+"\x00"))
}

func (d *glDriver) UniformLocation(program uint32, name string) int32 {
	return gl.GetUniformLocation(program, gl.Str(name+"\x00"))
}

func (d *glDriver) Uniform1i(location int32, v int32) { gl.Uniform1i(location, v) }

func (d *glDriver) Uniform1iv(location int32, v []int32) {
	if len(v) > 0 {
		gl.Uniform1iv(location, int32(len(v)), &v[0])
	}
}

func (d *glDriver) Uniform1fv(location int32, v []float32) {
	if len(v) > 0 {
		gl.Uniform1fv(location, int32(len(v)), &v[0])
	}
}

func (d *glDriver) Uniform2fv(location int32, v []float32) {
	if len(v) >= 2 {
		gl.Uniform2fv(location, int32(len(v)/2), &v[0])
	}
}

func (d *glDriver) Uniform3fv(location int32, v []float32) {
	if len(v) >= 3 {
		gl.Uniform3fv(location, int32(len(v)/3), &v[0])
	}
}

func (d *glDriver) Uniform4fv(location int32, v []float32) {
	if len(v) >= 4 {
		gl.Uniform4fv(location, int32(len(v)/4), &v[0])
	}
}

func (d *glDriver) UniformMatrix3fv(location int32, v []float32) {
	if len(v) >= 9 {
		gl.UniformMatrix3fv(location, int32(len(v)/9), false, &v[0])
	}
}

func (d *glDriver) UniformMatrix4fv(location int32, v []float32) {
	if len(v) >= 16 {
		gl.UniformMatrix4fv(location, int32(len(v)/16), false, &v[0])
	}
}

func (d *glDriver) GenBuffer() uint32 {
	var b uint32
	gl.GenBuffers(1, &b)
	return b
}

func (d *glDriver) BindBuffer(target, buffer uint32) { gl.BindBuffer(target, buffer) }

func (d *glDriver) BindBufferBase(target, index, buffer uint32) {
	gl.BindBufferBase(target, index, buffer)
}

func (d *glDriver) BufferData(target uint32, size int, data []byte, usage uint32) {
	if len(data) > 0 {
		gl.BufferData(target, size, gl.Ptr(data), usage)
		return
	}
	gl.BufferData(target, size, nil, usage)
}

func (d *glDriver) BufferSubData(target uint32, offset int, data []byte) {
	if len(data) > 0 {
		gl.BufferSubData(target, offset, len(data), gl.Ptr(data))
	}
}

func (d *glDriver) DeleteBuffer(buffer uint32) { gl.DeleteBuffers(1, &buffer) }

func (d *glDriver) GenVertexArray() uint32 {
	var a uint32
	gl.GenVertexArrays(1, &a)
	return a
}

func (d *glDriver) BindVertexArray(array uint32)         { gl.BindVertexArray(array) }
func (d *glDriver) DeleteVertexArray(array uint32)       { gl.DeleteVertexArrays(1, &array) }
func (d *glDriver) EnableVertexAttribArray(index uint32) { gl.EnableVertexAttribArray(index) }

func (d *glDriver) VertexAttribPointer(index uint32, size int32, xtype uint32, normalized bool, stride int32, offset int) {
	gl.VertexAttribPointerWithOffset(index, size, xtype, normalized, stride, uintptr(offset))
}

func (d *glDriver) VertexAttribIPointer(index uint32, size int32, xtype uint32, stride int32, offset int) {
	gl.VertexAttribIPointer(index, size, xtype, stride, gl.PtrOffset(offset))
}

func (d *glDriver) VertexAttribDivisor(index, divisor uint32) { gl.VertexAttribDivisor(index, divisor) }

func (d *glDriver) ActiveTexture(unit uint32)          { gl.ActiveTexture(unit) }
func (d *glDriver) BindTexture(target, texture uint32) { gl.BindTexture(target, texture) }

func (d *glDriver) Enable(capability uint32)               { gl.Enable(capability) }
func (d *glDriver) Disable(capability uint32)              { gl.Disable(capability) }
func (d *glDriver) Scissor(x, y, width, height int32)      { gl.Scissor(x, y, width, height) }
func (d *glDriver) ColorMask(red, green, blue, alpha bool) { gl.ColorMask(red, green, blue, alpha) }
func (d *glDriver) DepthMask(flag bool)                    { gl.DepthMask(flag) }
func (d *glDriver) DepthFunc(fn uint32)                    { gl.DepthFunc(fn) }
func (d *glDriver) CullFace(mode uint32)                   { gl.CullFace(mode) }

func (d *glDriver) StencilFuncSeparate(face, fn uint32, ref int32, mask uint32) {
	gl.StencilFuncSeparate(face, fn, ref, mask)
}

func (d *glDriver) StencilOpSeparate(face, sfail, dpfail, dppass uint32) {
	gl.StencilOpSeparate(face, sfail, dpfail, dppass)
}

func (d *glDriver) StencilMaskSeparate(face, mask uint32) { gl.StencilMaskSeparate(face, mask) }

func (d *glDriver) BlendEquation(mode uint32) { gl.BlendEquation(mode) }

func (d *glDriver) BlendEquationSeparate(modeRGB, modeAlpha uint32) {
	gl.BlendEquationSeparate(modeRGB, modeAlpha)
}

func (d *glDriver) BlendFunc(src, dst uint32) { gl.BlendFunc(src, dst) }

func (d *glDriver) BlendFuncSeparate(srcRGB, dstRGB, srcAlpha, dstAlpha uint32) {
	gl.BlendFuncSeparate(srcRGB, dstRGB, srcAlpha, dstAlpha)
}

func (d *glDriver) BlendEquationi(buf, mode uint32) { gl.BlendEquationi(buf, mode) }

func (d *glDriver) BlendEquationSeparatei(buf, modeRGB, modeAlpha uint32) {
	gl.BlendEquationSeparatei(buf, modeRGB, modeAlpha)
}

func (d *glDriver) BlendFunci(buf, src, dst uint32) { gl.BlendFunci(buf, src, dst) }

func (d *glDriver) BlendFuncSeparatei(buf, srcRGB, dstRGB, srcAlpha, dstAlpha uint32) {
	gl.BlendFuncSeparatei(buf, srcRGB, dstRGB, srcAlpha, dstAlpha)
}

func (d *glDriver) PatchParameteri(pname uint32, value int32) { gl.PatchParameteri(pname, value) }

func (d *glDriver) DrawArrays(mode uint32, first, count int32) { gl.DrawArrays(mode, first, count) }

func (d *glDriver) DrawArraysInstanced(mode uint32, first, count, instances int32) {
	gl.DrawArraysInstanced(mode, first, count, instances)
}

func (d *glDriver) DrawArraysInstancedBaseInstance(mode uint32, first, count, instances int32, baseInstance uint32) {
	gl.DrawArraysInstancedBaseInstance(mode, first, count, instances, baseInstance)
}

func (d *glDriver) DrawElements(mode uint32, count int32, xtype uint32, offset int) {
	gl.DrawElements(mode, count, xtype, gl.PtrOffset(offset))
}

func (d *glDriver) DrawElementsInstanced(mode uint32, count int32, xtype uint32, offset int, instances int32) {
	gl.DrawElementsInstanced(mode, count, xtype, gl.PtrOffset(offset), instances)
}

func (d *glDriver) DrawElementsInstancedBaseInstance(mode uint32, count int32, xtype uint32, offset int, instances int32, baseInstance uint32) {
	gl.DrawElementsInstancedBaseInstance(mode, count, xtype, gl.PtrOffset(offset), instances, baseInstance)
}

func (d *glDriver) MultiDrawArrays(mode uint32, first, count []int32) {
	if len(first) == 0 || len(first) != len(count) {
		return
	}
	gl.MultiDrawArrays(mode, &first[0], &count[0], int32(len(first)))
}

func (d *glDriver) GetError() uint32 { return gl.GetError() }
