package gpu_context

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-gl/engine/renderer/draw_style"
	"github.com/Carmen-Shannon/oxy-gl/engine/renderer/driver"
	"github.com/Carmen-Shannon/oxy-gl/engine/renderer/driver/recording"
	"github.com/Carmen-Shannon/oxy-gl/engine/renderer/handle"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSurface struct {
	current       uintptr
	width, height int
	scale         float64
}

func (s *fakeSurface) CurrentContext() uintptr     { return s.current }
func (s *fakeSurface) FramebufferSize() (int, int) { return s.width, s.height }
func (s *fakeSurface) ContentScale() float64       { return s.scale }

func TestIsCurrentFollowsSurface(t *testing.T) {
	s := &fakeSurface{current: 7, width: 10, height: 10, scale: 1}
	ctx := New(1, s)

	assert.True(t, ctx.IsCurrent())
	assert.Equal(t, uintptr(7), ctx.NativeIdentity())

	s.current = 8
	assert.False(t, ctx.IsCurrent())
	assert.Equal(t, uintptr(8), ctx.CurrentIdentity())
}

func TestActiveTargetDefaultsToSurface(t *testing.T) {
	s := &fakeSurface{current: 1, width: 1280, height: 720, scale: 2}
	ctx := New(1, s)

	assert.Equal(t, draw_style.Target{Width: 1280, Height: 720, ContentScale: 2}, ctx.ActiveTarget())

	ctx.BindTarget(RenderTarget{Width: 64, Height: 32, ContentScale: 1, BlendModes: []draw_style.BlendMode{draw_style.BlendAdd}})
	got := ctx.ActiveTarget()
	assert.Equal(t, 32, got.Height)
	assert.Equal(t, []draw_style.BlendMode{draw_style.BlendAdd}, got.BlendModes)

	ctx.UnbindTarget()
	assert.Equal(t, 720, ctx.ActiveTarget().Height)
}

func TestBindTextureSkipsRedundantBinds(t *testing.T) {
	d := recording.New(driver.VersionGL33)
	ctx := New(1, &fakeSurface{current: 1})

	require.NoError(t, ctx.BindTexture(d, 3, driver.TEXTURE_2D, 42))
	require.NoError(t, ctx.BindTexture(d, 3, driver.TEXTURE_2D, 42))
	assert.Equal(t, []string{"ActiveTexture", "BindTexture"}, d.Names())

	require.NoError(t, ctx.BindTexture(d, 3, driver.TEXTURE_2D, 43))
	assert.Equal(t, 2, d.Count("BindTexture"))

	assert.Error(t, ctx.BindTexture(d, TextureUnits, driver.TEXTURE_2D, 1))
}

func TestUseProgramIsKeyedByHandle(t *testing.T) {
	d := recording.New(driver.VersionGL33)
	reg := handle.NewRegistry()
	ctx := New(1, &fakeSurface{current: 1})
	first := reg.Register(handle.KindProgram, 5)
	require.NoError(t, reg.Retire(first))
	second := reg.Register(handle.KindProgram, 5)

	ctx.UseProgram(d, first, 5)
	ctx.UseProgram(d, first, 5)
	ctx.UseProgram(d, second, 5)

	assert.Equal(t, 2, d.Count("UseProgram"))
}

func TestInvalidateResetsShadows(t *testing.T) {
	d := recording.New(driver.VersionGL33)
	ctx := New(1, &fakeSurface{current: 1})
	require.NoError(t, ctx.BindTexture(d, 0, driver.TEXTURE_2D, 9))

	ctx.Invalidate()
	require.NoError(t, ctx.BindTexture(d, 0, driver.TEXTURE_2D, 9))

	assert.Equal(t, 2, d.Count("BindTexture"))
	assert.True(t, ctx.StyleTracker().Dirty())
}

func TestMarkDestroyed(t *testing.T) {
	ctx := New(4, &fakeSurface{})
	assert.False(t, ctx.Destroyed())
	ctx.MarkDestroyed()
	assert.True(t, ctx.Destroyed())
	assert.Equal(t, uint64(4), ctx.ID())
}
