package common

import "log"

// Logger is the minimal logging surface used by engine components.
// *log.Logger satisfies it, which keeps the stdlib logger as the default sink.
type Logger interface {
	Printf(format string, args ...any)
}

// DefaultLogger returns the process-wide stdlib logger.
//
// Returns:
//   - Logger: log.Default()
func DefaultLogger() Logger {
	return log.Default()
}

// NopLogger discards everything. Useful in tests and headless benchmarks.
type NopLogger struct{}

func (NopLogger) Printf(string, ...any) {}
