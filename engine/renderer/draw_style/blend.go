package draw_style

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-gl/engine/renderer/driver"
)

// BlendMode selects how fragments combine with the color already in an attachment.
type BlendMode int

const (
	BlendOver BlendMode = iota
	BlendBlend
	BlendAdd
	BlendReplace
	BlendSubtract
	BlendMultiply
	BlendRemove
	BlendMin
	BlendMax

	// advanced modes need KHR_blend_equation_advanced

	BlendScreen
	BlendOverlay
	BlendDarken
	BlendLighten
	BlendColorDodge
	BlendColorBurn
	BlendHardLight
	BlendSoftLight
	BlendDifference
	BlendExclusion
	BlendHue
	BlendSaturation
	BlendColor
	BlendLuminosity

	// BlendInherit uses each attachment's own blend mode from the active render target.
	BlendInherit
)

var blendNames = map[BlendMode]string{
	BlendOver: "over", BlendBlend: "blend", BlendAdd: "add", BlendReplace: "replace",
	BlendSubtract: "subtract", BlendMultiply: "multiply", BlendRemove: "remove",
	BlendMin: "min", BlendMax: "max", BlendScreen: "screen", BlendOverlay: "overlay",
	BlendDarken: "darken", BlendLighten: "lighten", BlendColorDodge: "color-dodge",
	BlendColorBurn: "color-burn", BlendHardLight: "hard-light", BlendSoftLight: "soft-light",
	BlendDifference: "difference", BlendExclusion: "exclusion", BlendHue: "hue",
	BlendSaturation: "saturation", BlendColor: "color", BlendLuminosity: "luminosity",
	BlendInherit: "inherit",
}

func (m BlendMode) String() string {
	if name, ok := blendNames[m]; ok {
		return name
	}
	return fmt.Sprintf("blend(%d)", int(m))
}

var advancedEquations = map[BlendMode]uint32{
	BlendScreen:     driver.SCREEN_KHR,
	BlendOverlay:    driver.OVERLAY_KHR,
	BlendDarken:     driver.DARKEN_KHR,
	BlendLighten:    driver.LIGHTEN_KHR,
	BlendColorDodge: driver.COLORDODGE_KHR,
	BlendColorBurn:  driver.COLORBURN_KHR,
	BlendHardLight:  driver.HARDLIGHT_KHR,
	BlendSoftLight:  driver.SOFTLIGHT_KHR,
	BlendDifference: driver.DIFFERENCE_KHR,
	BlendExclusion:  driver.EXCLUSION_KHR,
	BlendHue:        driver.HSL_HUE_KHR,
	BlendSaturation: driver.HSL_SATURATION_KHR,
	BlendColor:      driver.HSL_COLOR_KHR,
	BlendLuminosity: driver.HSL_LUMINOSITY_KHR,
}

// Advanced reports whether m needs the advanced blend equation extension.
func (m BlendMode) Advanced() bool {
	_, ok := advancedEquations[m]
	return ok
}

// blendSetup is the native equation and factor set for one mode.
type blendSetup struct {
	disable        bool
	eqRGB, eqAlpha uint32
	srcRGB, dstRGB uint32
	srcA, dstA     uint32
}

func (b blendSetup) separateEquation() bool { return b.eqRGB != b.eqAlpha }
func (b blendSetup) separateFactors() bool  { return b.srcRGB != b.srcA || b.dstRGB != b.dstA }

func factors(eq, src, dst uint32) blendSetup {
	return blendSetup{eqRGB: eq, eqAlpha: eq, srcRGB: src, dstRGB: dst, srcA: src, dstA: dst}
}

func setupFor(m BlendMode) blendSetup {
	if eq, ok := advancedEquations[m]; ok {
		return factors(eq, driver.ONE, driver.ONE)
	}
	switch m {
	case BlendBlend:
		return factors(driver.FUNC_ADD, driver.SRC_ALPHA, driver.ONE_MINUS_SRC_ALPHA)
	case BlendAdd:
		return factors(driver.FUNC_ADD, driver.ONE, driver.ONE)
	case BlendReplace:
		return blendSetup{disable: true}
	case BlendSubtract:
		return blendSetup{
			eqRGB: driver.FUNC_REVERSE_SUBTRACT, eqAlpha: driver.FUNC_ADD,
			srcRGB: driver.SRC_ALPHA, dstRGB: driver.ONE, srcA: driver.ONE, dstA: driver.ONE,
		}
	case BlendMultiply:
		return factors(driver.FUNC_ADD, driver.DST_COLOR, driver.ONE_MINUS_SRC_ALPHA)
	case BlendRemove:
		return factors(driver.FUNC_ADD, driver.ZERO, driver.ONE_MINUS_SRC_ALPHA)
	case BlendMin:
		return factors(driver.MIN, driver.ONE, driver.ONE)
	case BlendMax:
		return factors(driver.MAX, driver.ONE, driver.ONE)
	default:
		return factors(driver.FUNC_ADD, driver.ONE, driver.ONE_MINUS_SRC_ALPHA)
	}
}

// applyGlobal emits the single-attachment form for m.
func applyGlobal(drv driver.Driver, m BlendMode) {
	b := setupFor(m)
	if b.disable {
		drv.Disable(driver.BLEND)
		return
	}
	drv.Enable(driver.BLEND)
	if b.separateEquation() {
		drv.BlendEquationSeparate(b.eqRGB, b.eqAlpha)
	} else {
		drv.BlendEquation(b.eqRGB)
	}
	if b.separateFactors() {
		drv.BlendFuncSeparate(b.srcRGB, b.dstRGB, b.srcA, b.dstA)
	} else {
		drv.BlendFunc(b.srcRGB, b.dstRGB)
	}
}

// applyPerBuffer emits the indexed form for every attachment. The blend enable is a single
// switch, so replace attachments are expressed as an additive one-zero blend when any
// other attachment blends.
func applyPerBuffer(drv driver.Driver, modes []BlendMode) {
	blending := false
	for _, m := range modes {
		if m != BlendReplace {
			blending = true
			break
		}
	}
	if !blending {
		drv.Disable(driver.BLEND)
		return
	}
	drv.Enable(driver.BLEND)
	for i, m := range modes {
		buf := uint32(i)
		b := setupFor(m)
		if b.disable {
			b = factors(driver.FUNC_ADD, driver.ONE, driver.ZERO)
		}
		if b.separateEquation() {
			drv.BlendEquationSeparatei(buf, b.eqRGB, b.eqAlpha)
		} else {
			drv.BlendEquationi(buf, b.eqRGB)
		}
		if b.separateFactors() {
			drv.BlendFuncSeparatei(buf, b.srcRGB, b.dstRGB, b.srcA, b.dstA)
		} else {
			drv.BlendFunci(buf, b.srcRGB, b.dstRGB)
		}
	}
}
