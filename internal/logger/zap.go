package logger

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger wraps zap's SugaredLogger.
type Logger struct {
	*zap.SugaredLogger
}

// parseLevel maps a configured level name to a zap level. Names zap does not
// know log everything.
func parseLevel(name string) zapcore.Level {
	lvl, err := zapcore.ParseLevel(strings.TrimSpace(name))
	if err != nil {
		return zapcore.DebugLevel
	}
	return lvl
}

// encoderFor returns the JSON encoder for log collectors and the console
// encoder otherwise. Both put the event name under "event".
func encoderFor(format string) zapcore.Encoder {
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "ts"
	cfg.MessageKey = "event"
	cfg.EncodeTime = zapcore.RFC3339TimeEncoder
	cfg.EncodeDuration = zapcore.MillisDurationEncoder

	if strings.EqualFold(strings.TrimSpace(format), FormatJSON) {
		cfg.EncodeLevel = zapcore.LowercaseLevelEncoder
		return zapcore.NewJSONEncoder(cfg)
	}
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	return zapcore.NewConsoleEncoder(cfg)
}

func newZapLogger(level, format string, out zapcore.WriteSyncer) *Logger {
	core := zapcore.NewCore(encoderFor(format), zapcore.Lock(out), zap.NewAtomicLevelAt(parseLevel(level)))
	return &Logger{SugaredLogger: zap.New(core).Sugar()}
}

// Nop returns a logger that discards everything. Used by tests.
func Nop() *Logger {
	return &Logger{SugaredLogger: zap.NewNop().Sugar()}
}
