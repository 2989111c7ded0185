// Package obs provides the engine's structured logging and resource
// sampling. Logging defaults to discarding all output; callers opt in
// with Init.
package obs

import (
	"io"
	"log/slog"
)

// L is the package-level logger. It discards everything until Init is
// called, so importing the engine never produces surprise log output.
var L = slog.New(slog.NewTextHandler(io.Discard, nil))

// Options configures Init.
type Options struct {
	Handler slog.Handler // if nil, Init is a no-op (logging stays discarded)
}

// Init installs a real handler. Call it once during process startup,
// before opening a DB, if log output is wanted.
func Init(opts Options) {
	if opts.Handler == nil {
		return
	}
	L = slog.New(opts.Handler)
}

// Debug logs a debug-level message with structured key-value pairs.
func Debug(msg string, args ...any) { L.Debug(msg, args...) }

// Info logs an info-level message with structured key-value pairs.
func Info(msg string, args ...any) { L.Info(msg, args...) }

// Warn logs a warning-level message with structured key-value pairs.
func Warn(msg string, args ...any) { L.Warn(msg, args...) }

// Error logs an error-level message with structured key-value pairs.
func Error(msg string, args ...any) { L.Error(msg, args...) }
