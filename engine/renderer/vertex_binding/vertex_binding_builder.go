package vertex_binding

import "log/slog"

// BindingCacheBuilderOption is a functional option used to configure a BindingCache during construction.
type BindingCacheBuilderOption func(*bindingCache)

// WithLogger sets the logger. The installed engine logger is used when unset.
func WithLogger(l *slog.Logger) BindingCacheBuilderOption {
	return func(c *bindingCache) {
		c.logger = l
	}
}
