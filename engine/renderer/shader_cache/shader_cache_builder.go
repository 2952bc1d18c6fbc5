package shader_cache

import (
	"log/slog"

	"github.com/Carmen-Shannon/oxy-gl/engine/renderer/shader"
)

const (
	// DefaultSize is the number of non-default programs kept when no size is configured.
	DefaultSize = 1000

	// DefaultPrewarmWorkers is the number of goroutines generating sources during Prewarm.
	DefaultPrewarmWorkers = 4
)

// ShaderCacheBuilderOption is a functional option used to configure a ShaderCache during construction.
type ShaderCacheBuilderOption func(*shaderCache)

// WithSize bounds the number of non-default programs. Values below 1 keep the default.
//
// Parameters:
//   - size: the LRU capacity
//
// Returns:
//   - ShaderCacheBuilderOption: a function that sets the capacity
func WithSize(size int) ShaderCacheBuilderOption {
	return func(c *shaderCache) {
		if size > 0 {
			c.size = size
		}
	}
}

// WithIgnoreErrors makes ResolveStyle fall back to the default structure when a style fails to build.
func WithIgnoreErrors(ignore bool) ShaderCacheBuilderOption {
	return func(c *shaderCache) {
		c.ignoreErrors = ignore
	}
}

// WithLogger sets the logger. The installed engine logger is used when unset.
func WithLogger(l *slog.Logger) ShaderCacheBuilderOption {
	return func(c *shaderCache) {
		c.logger = l
	}
}

// WithSourceProvider replaces the source provider derived from the driver.
func WithSourceProvider(p shader.SourceProvider) ShaderCacheBuilderOption {
	return func(c *shaderCache) {
		c.provider = p
	}
}

// WithStructurer replaces the structure memo.
func WithStructurer(s shader.Structurer) ShaderCacheBuilderOption {
	return func(c *shaderCache) {
		c.structurer = s
	}
}

// WithPrewarmWorkers sets the number of goroutines generating sources during Prewarm.
func WithPrewarmWorkers(n int) ShaderCacheBuilderOption {
	return func(c *shaderCache) {
		if n > 0 {
			c.workers = n
		}
	}
}
