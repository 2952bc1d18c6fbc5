package renderer

import (
	"log/slog"

	"github.com/Carmen-Shannon/oxy-gl/engine/config"
	"github.com/Carmen-Shannon/oxy-gl/engine/renderer/driver"
)

// RendererBuilderOption is a functional option applied to a renderer during construction via NewRenderer.
type RendererBuilderOption func(*renderer)

// WithConfig replaces the renderer configuration. Options applied after it override single fields.
//
// Parameters:
//   - cfg: the configuration, typically from config.Load
//
// Returns:
//   - RendererBuilderOption: a function that applies the configuration to a renderer
func WithConfig(cfg config.Config) RendererBuilderOption {
	return func(r *renderer) {
		r.cfg = cfg
	}
}

// WithDriver makes the renderer issue native calls through drv instead of loading the GL driver.
//
// Parameters:
//   - drv: the driver to use
//
// Returns:
//   - RendererBuilderOption: a function that applies the driver to a renderer
func WithDriver(drv driver.Driver) RendererBuilderOption {
	return func(r *renderer) {
		r.drv = drv
	}
}

// WithLogger sets the logger handed to every cache. The installed engine logger is used when unset.
//
// Parameters:
//   - l: the logger
//
// Returns:
//   - RendererBuilderOption: a function that applies the logger to a renderer
func WithLogger(l *slog.Logger) RendererBuilderOption {
	return func(r *renderer) {
		r.logger = l
	}
}

// WithIgnoreShaderErrors makes styles whose program fails to build draw with the default
// structure instead of failing the draw.
//
// Parameters:
//   - ignore: true to fall back on shader errors
//
// Returns:
//   - RendererBuilderOption: a function that applies the flag to a renderer
func WithIgnoreShaderErrors(ignore bool) RendererBuilderOption {
	return func(r *renderer) {
		r.cfg.IgnoreShaderErrors = ignore
	}
}

// WithShaderCacheSize bounds the number of non-default programs kept alive.
//
// Parameters:
//   - size: the cache capacity; values below 1 keep the default
//
// Returns:
//   - RendererBuilderOption: a function that applies the capacity to a renderer
func WithShaderCacheSize(size int) RendererBuilderOption {
	return func(r *renderer) {
		if size > 0 {
			r.cfg.ShaderCacheSize = size
		}
	}
}

// WithDebugGLErrors checks the native error flag after every draw.
func WithDebugGLErrors(enabled bool) RendererBuilderOption {
	return func(r *renderer) {
		r.cfg.DebugGLErrors = enabled
	}
}
