// Package driver defines the native graphics call surface the renderer is written against.
// The gl_driver package implements it on top of go-gl, and the recording package
// implements it in memory for tests.
package driver

// Driver is the subset of the OpenGL / OpenGL ES API used by the caches, the draw-style
// diff engine and the draw dispatcher. Method names and argument order follow the native
// entry points. Object names are raw native names; callers wrap them in handles.
type Driver interface {
	// Version returns the API version of the context the driver was created on.
	Version() Version

	// Capabilities returns the gated features of the context.
	Capabilities() Capabilities

	CreateShader(stage uint32) uint32
	ShaderSource(shader uint32, source string)
	CompileShader(shader uint32)
	// ShaderCompiled reports the COMPILE_STATUS of shader.
	ShaderCompiled(shader uint32) bool
	ShaderInfoLog(shader uint32) string
	DeleteShader(shader uint32)

	CreateProgram() uint32
	AttachShader(program, shader uint32)
	LinkProgram(program uint32)
	// ProgramLinked reports the LINK_STATUS of program.
	ProgramLinked(program uint32) bool
	ProgramInfoLog(program uint32) string
	UseProgram(program uint32)
	DeleteProgram(program uint32)
	// AttribLocation returns -1 when the program does not declare name.
	AttribLocation(program uint32, name string) int32
	// UniformLocation returns -1 when the program does not declare name.
	UniformLocation(program uint32, name string) int32

	Uniform1i(location int32, v int32)
	Uniform1iv(location int32, v []int32)
	Uniform1fv(location int32, v []float32)
	Uniform2fv(location int32, v []float32)
	Uniform3fv(location int32, v []float32)
	Uniform4fv(location int32, v []float32)
	UniformMatrix3fv(location int32, v []float32)
	UniformMatrix4fv(location int32, v []float32)

	GenBuffer() uint32
	BindBuffer(target, buffer uint32)
	// BindBufferBase binds buffer to an indexed binding point of target.
	BindBufferBase(target, index, buffer uint32)
	// BufferData allocates size bytes and uploads data when data is non-nil.
	BufferData(target uint32, size int, data []byte, usage uint32)
	BufferSubData(target uint32, offset int, data []byte)
	DeleteBuffer(buffer uint32)

	GenVertexArray() uint32
	BindVertexArray(array uint32)
	DeleteVertexArray(array uint32)
	EnableVertexAttribArray(index uint32)
	VertexAttribPointer(index uint32, size int32, xtype uint32, normalized bool, stride int32, offset int)
	VertexAttribIPointer(index uint32, size int32, xtype uint32, stride int32, offset int)
	VertexAttribDivisor(index, divisor uint32)

	ActiveTexture(unit uint32)
	BindTexture(target, texture uint32)

	Enable(capability uint32)
	Disable(capability uint32)
	Scissor(x, y, width, height int32)
	ColorMask(red, green, blue, alpha bool)
	DepthMask(flag bool)
	DepthFunc(fn uint32)
	CullFace(mode uint32)
	StencilFuncSeparate(face, fn uint32, ref int32, mask uint32)
	StencilOpSeparate(face, sfail, dpfail, dppass uint32)
	StencilMaskSeparate(face, mask uint32)

	BlendEquation(mode uint32)
	BlendEquationSeparate(modeRGB, modeAlpha uint32)
	BlendFunc(src, dst uint32)
	BlendFuncSeparate(srcRGB, dstRGB, srcAlpha, dstAlpha uint32)
	BlendEquationi(buf, mode uint32)
	BlendEquationSeparatei(buf, modeRGB, modeAlpha uint32)
	BlendFunci(buf, src, dst uint32)
	BlendFuncSeparatei(buf, srcRGB, dstRGB, srcAlpha, dstAlpha uint32)

	PatchParameteri(pname uint32, value int32)
	DrawArrays(mode uint32, first, count int32)
	DrawArraysInstanced(mode uint32, first, count, instances int32)
	DrawArraysInstancedBaseInstance(mode uint32, first, count, instances int32, baseInstance uint32)
	// DrawElements reads count indices starting at byte offset into the bound index buffer.
	DrawElements(mode uint32, count int32, xtype uint32, offset int)
	DrawElementsInstanced(mode uint32, count int32, xtype uint32, offset int, instances int32)
	DrawElementsInstancedBaseInstance(mode uint32, count int32, xtype uint32, offset int, instances int32, baseInstance uint32)
	MultiDrawArrays(mode uint32, first, count []int32)

	GetError() uint32
}
