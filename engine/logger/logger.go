// Package logger holds the shared slog.Logger used by the engine and its renderer
// sub-packages. The engine is silent until a logger is installed with SetLogger.
package logger

import (
	"context"
	"log/slog"
	"strings"
	"sync/atomic"
)

// nopHandler discards every record. Enabled reports false so callers skip formatting.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

var current atomic.Pointer[slog.Logger]

func init() {
	current.Store(slog.New(nopHandler{}))
}

// SetLogger installs the logger used by every engine component that was not given
// its own logger through a builder option. Passing nil restores silent logging.
//
// Parameters:
//   - l: the logger to install, or nil to disable logging
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.New(nopHandler{})
	}
	current.Store(l)
}

// Logger returns the currently installed logger. Safe for concurrent use.
//
// Returns:
//   - *slog.Logger: the active logger, never nil
func Logger() *slog.Logger {
	return current.Load()
}

// Or returns l when it is non-nil, otherwise the installed logger.
//
// Parameters:
//   - l: an optional component-specific logger
//
// Returns:
//   - *slog.Logger: l or the installed logger
func Or(l *slog.Logger) *slog.Logger {
	if l != nil {
		return l
	}
	return Logger()
}

// ParseLevel maps a config level name to a slog.Level. Unknown names map to Info.
//
// Parameters:
//   - name: one of "debug", "info", "warn", "error" (case insensitive)
//
// Returns:
//   - slog.Level: the matching level
func ParseLevel(name string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
