package driver

// Native enum values shared by OpenGL 3.3+ and OpenGL ES 3.0+. The names follow the
// GL_ constant they mirror so call sites read like the native API.
const (
	NO_ERROR uint32 = 0

	// primitives
	POINTS         uint32 = 0x0000
	LINES          uint32 = 0x0001
	LINE_LOOP      uint32 = 0x0002
	LINE_STRIP     uint32 = 0x0003
	TRIANGLES      uint32 = 0x0004
	TRIANGLE_STRIP uint32 = 0x0005
	TRIANGLE_FAN   uint32 = 0x0006
	PATCHES        uint32 = 0x000E

	// component types
	BYTE           uint32 = 0x1400
	UNSIGNED_BYTE  uint32 = 0x1401
	SHORT          uint32 = 0x1402
	UNSIGNED_SHORT uint32 = 0x1403
	INT            uint32 = 0x1404
	UNSIGNED_INT   uint32 = 0x1405
	FLOAT          uint32 = 0x1406

	// shader stages
	FRAGMENT_SHADER        uint32 = 0x8B30
	VERTEX_SHADER          uint32 = 0x8B31
	GEOMETRY_SHADER        uint32 = 0x8DD9
	TESS_EVALUATION_SHADER uint32 = 0x8E87
	TESS_CONTROL_SHADER    uint32 = 0x8E88

	// buffers
	ARRAY_BUFFER          uint32 = 0x8892
	ELEMENT_ARRAY_BUFFER  uint32 = 0x8893
	SHADER_STORAGE_BUFFER uint32 = 0x90D2
	STREAM_DRAW           uint32 = 0x88E0
	STATIC_DRAW           uint32 = 0x88E4
	DYNAMIC_DRAW          uint32 = 0x88E8

	// capabilities toggled through Enable/Disable
	CULL_FACE                uint32 = 0x0B44
	DEPTH_TEST               uint32 = 0x0B71
	STENCIL_TEST             uint32 = 0x0B90
	BLEND                    uint32 = 0x0BE2
	SCISSOR_TEST             uint32 = 0x0C11
	SAMPLE_ALPHA_TO_COVERAGE uint32 = 0x809E
	FRAMEBUFFER_SRGB         uint32 = 0x8DB9

	// faces
	FRONT          uint32 = 0x0404
	BACK           uint32 = 0x0405
	FRONT_AND_BACK uint32 = 0x0408

	// comparison functions
	NEVER    uint32 = 0x0200
	LESS     uint32 = 0x0201
	EQUAL    uint32 = 0x0202
	LEQUAL   uint32 = 0x0203
	GREATER  uint32 = 0x0204
	NOTEQUAL uint32 = 0x0205
	GEQUAL   uint32 = 0x0206
	ALWAYS   uint32 = 0x0207

	// stencil operations
	KEEP      uint32 = 0x1E00
	REPLACE   uint32 = 0x1E01
	INCR      uint32 = 0x1E02
	DECR      uint32 = 0x1E03
	INVERT    uint32 = 0x150A
	INCR_WRAP uint32 = 0x8507
	DECR_WRAP uint32 = 0x8508

	// blend equations
	FUNC_ADD              uint32 = 0x8006
	MIN                   uint32 = 0x8007
	MAX                   uint32 = 0x8008
	FUNC_SUBTRACT         uint32 = 0x800A
	FUNC_REVERSE_SUBTRACT uint32 = 0x800B

	// blend factors
	ZERO                uint32 = 0
	ONE                 uint32 = 1
	SRC_COLOR           uint32 = 0x0300
	ONE_MINUS_SRC_COLOR uint32 = 0x0301
	SRC_ALPHA           uint32 = 0x0302
	ONE_MINUS_SRC_ALPHA uint32 = 0x0303
	DST_ALPHA           uint32 = 0x0304
	ONE_MINUS_DST_ALPHA uint32 = 0x0305
	DST_COLOR           uint32 = 0x0306
	ONE_MINUS_DST_COLOR uint32 = 0x0307

	// KHR_blend_equation_advanced
	MULTIPLY_KHR       uint32 = 0x9294
	SCREEN_KHR         uint32 = 0x9295
	OVERLAY_KHR        uint32 = 0x9296
	DARKEN_KHR         uint32 = 0x9297
	LIGHTEN_KHR        uint32 = 0x9298
	COLORDODGE_KHR     uint32 = 0x9299
	COLORBURN_KHR      uint32 = 0x929A
	HARDLIGHT_KHR      uint32 = 0x929B
	SOFTLIGHT_KHR      uint32 = 0x929C
	DIFFERENCE_KHR     uint32 = 0x929E
	EXCLUSION_KHR      uint32 = 0x92A0
	HSL_HUE_KHR        uint32 = 0x92AD
	HSL_SATURATION_KHR uint32 = 0x92AE
	HSL_COLOR_KHR      uint32 = 0x92AF
	HSL_LUMINOSITY_KHR uint32 = 0x92B0

	// misc
	PATCH_VERTICES   uint32 = 0x8E72
	TEXTURE0         uint32 = 0x84C0
	TEXTURE_2D       uint32 = 0x0DE1
	TEXTURE_3D       uint32 = 0x806F
	TEXTURE_CUBE_MAP uint32 = 0x8513
)
