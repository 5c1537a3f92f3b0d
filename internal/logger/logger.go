// Package logger builds the service's zap logger: JSON lines on stdout with
// ISO8601 timestamps and a fixed service field.
package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns a logger for service at the given level ("debug", "info",
// "warn", "error").  Unknown levels fall back to info.
func New(service, level string) *zap.Logger {
	return NewWithSyncer(service, level, zapcore.AddSync(os.Stdout))
}

// NewWithSyncer is New writing to ws instead of stdout.
func NewWithSyncer(service, level string, ws zapcore.WriteSyncer) *zap.Logger {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = zap.InfoLevel
	}

	enc := zap.NewProductionEncoderConfig()
	enc.EncodeTime = zapcore.ISO8601TimeEncoder
	enc.EncodeLevel = zapcore.LowercaseLevelEncoder
	enc.MessageKey = "msg"

	core := zapcore.NewCore(zapcore.NewJSONEncoder(enc), ws, lvl)
	return zap.New(core, zap.AddCaller()).With(zap.String("service", service))
}
