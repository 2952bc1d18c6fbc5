package driver

import (
	"fmt"
	"slices"
	"sync"
)

// Capability names a version or extension gated feature.
type Capability string

const (
	CapabilityBaseInstance   Capability = "base-instance"
	CapabilityTessellation   Capability = "tessellation"
	CapabilityGeometry       Capability = "geometry"
	CapabilityPerBufferBlend Capability = "per-buffer-blend"
	CapabilityAdvancedBlend  Capability = "advanced-blend"
	CapabilityProgramUniform Capability = "program-uniform"
	CapabilityCompute        Capability = "compute"
	CapabilityTextureStorage Capability = "texture-storage"
)

// Capabilities records which gated features the active driver offers.
type Capabilities struct {
	BaseInstance   bool
	Tessellation   bool
	Geometry       bool
	PerBufferBlend bool
	AdvancedBlend  bool
	ProgramUniform bool
	Compute        bool
	TextureStorage bool
}

// CapabilitiesFor derives the capability set for a version and its extension list.
//
// Parameters:
//   - v: the driver version
//   - extensions: the GL_EXTENSIONS names reported by the context
//
// Returns:
//   - Capabilities: the derived capabilities
func CapabilitiesFor(v Version, extensions []string) Capabilities {
	return Capabilities{
		BaseInstance:   !v.IsGLES() && v.IsAtLeast(VersionGL42, VersionGLES32),
		Tessellation:   v.IsAtLeast(VersionGL41, VersionGLES32),
		Geometry:       v.IsAtLeast(VersionGL33, VersionGLES32),
		PerBufferBlend: v.IsAtLeast(VersionGL41, VersionGLES32),
		AdvancedBlend: slices.Contains(extensions, "GL_KHR_blend_equation_advanced") ||
			slices.Contains(extensions, "GL_NV_blend_equation_advanced"),
		ProgramUniform: v.IsAtLeast(VersionGL41, VersionGLES31),
		Compute:        v.IsAtLeast(VersionGL43, VersionGLES31),
		TextureStorage: v.IsAtLeast(VersionGL42, VersionGLES30),
	}
}

// Has reports whether the named capability is present.
func (c Capabilities) Has(capability Capability) bool {
	switch capability {
	case CapabilityBaseInstance:
		return c.BaseInstance
	case CapabilityTessellation:
		return c.Tessellation
	case CapabilityGeometry:
		return c.Geometry
	case CapabilityPerBufferBlend:
		return c.PerBufferBlend
	case CapabilityAdvancedBlend:
		return c.AdvancedBlend
	case CapabilityProgramUniform:
		return c.ProgramUniform
	case CapabilityCompute:
		return c.Compute
	case CapabilityTextureStorage:
		return c.TextureStorage
	default:
		return false
	}
}

// CapabilityError reports a request that needs a feature the driver lacks.
// It is never downgraded to a silent no-op.
type CapabilityError struct {
	Capability Capability
	Version    Version
	Detail     string
}

func (e *CapabilityError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("capability %q not available on %s: %s", e.Capability, e.Version, e.Detail)
	}
	return fmt.Sprintf("capability %q not available on %s", e.Capability, e.Version)
}

// Require returns a *CapabilityError when drv lacks capability.
//
// Parameters:
//   - drv: the driver to check
//   - capability: the required capability
//   - detail: context for the error message
//
// Returns:
//   - error: nil when the capability is present
func Require(drv Driver, capability Capability, detail string) error {
	if drv.Capabilities().Has(capability) {
		return nil
	}
	return &CapabilityError{Capability: capability, Version: drv.Version(), Detail: detail}
}

var objectCreationLock sync.Mutex

// ObjectCreationLock returns the process-wide lock that serializes native object creation
// (program linking, vertex array construction) across every context and thread.
// It is held only while objects are created, never around state changes or draws.
//
// Returns:
//   - sync.Locker: the shared lock
func ObjectCreationLock() sync.Locker {
	return &objectCreationLock
}
