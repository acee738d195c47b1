package logger

import (
	"io"
	"os"

	"go.uber.org/zap/zapcore"
)

// Log levels used across the application.
const (
	DebugLevel = "debug"
	InfoLevel  = "info"
	WarnLevel  = "warn"
	ErrorLevel = "error"
)

// Output formats.
const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

// New returns a logger writing to stdout at the given level and format.
// Unknown levels fall back to debug, unknown formats to console.
func New(level, format string) *Logger {
	return newZapLogger(level, format, zapcore.AddSync(os.Stdout))
}

// NewWriter is New with a custom destination.
func NewWriter(w io.Writer, level, format string) *Logger {
	return newZapLogger(level, format, zapcore.AddSync(w))
}
