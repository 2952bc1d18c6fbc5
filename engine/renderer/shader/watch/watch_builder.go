package watch

import "log/slog"

// WatcherBuilderOption is a functional option used to configure a Watcher during construction.
type WatcherBuilderOption func(*watcher)

// WithLogger sets the logger. The installed engine logger is used when unset.
func WithLogger(l *slog.Logger) WatcherBuilderOption {
	return func(w *watcher) {
		w.logger = l
	}
}

// WithOnReload registers a callback run on the watcher goroutine after a snippet file was
// reloaded into its styles.
//
// Parameters:
//   - fn: receives the reloaded path
//
// Returns:
//   - WatcherBuilderOption: a function that sets the callback
func WithOnReload(fn func(path string)) WatcherBuilderOption {
	return func(w *watcher) {
		w.onReload = fn
	}
}
