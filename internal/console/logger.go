package console

import (
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger builds a console logger writing to w (stderr when nil) whose
// level can be changed at runtime through the returned AtomicLevel.
func NewLogger(level string, w io.Writer) (*zap.Logger, *zap.AtomicLevel) {
	if w == nil {
		w = os.Stderr
	}

	atomicLevel := zap.NewAtomicLevel()
	atomicLevel.SetLevel(MapLogLevel(level))

	logger := zap.New(zapcore.NewCore(
		zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
		zapcore.Lock(zapcore.AddSync(w)),
		atomicLevel,
	))

	return logger, &atomicLevel
}

// MapLogLevel maps a config level name to a zap level. Unknown names map to
// error so a typo never makes a tool noisier.
func MapLogLevel(level string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	default:
		return zapcore.ErrorLevel
	}
}
