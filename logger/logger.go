// Package logger builds the zap loggers used by the compiler and its
// command-line driver.
package logger

import (
	"io"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns a console logger writing to w at debug level.
func New(w io.Writer) *zap.Logger {
	return NewWithConfig(w, Config{Format: "console", Level: zapcore.DebugLevel})
}

// NewWithConfig returns a logger writing to w in the configured format,
// dropping entries below the configured level.
func NewWithConfig(w io.Writer, c Config) *zap.Logger {
	config := zap.NewProductionEncoderConfig()
	config.EncodeTime = func(ts time.Time, encoder zapcore.PrimitiveArrayEncoder) {
		encoder.AppendString(ts.UTC().Format(time.RFC3339))
	}
	config.EncodeDuration = func(d time.Duration, encoder zapcore.PrimitiveArrayEncoder) {
		encoder.AppendString(d.String())
	}
	var enc zapcore.Encoder
	if c.Format == "json" {
		enc = zapcore.NewJSONEncoder(config)
	} else {
		enc = zapcore.NewConsoleEncoder(config)
	}
	return zap.New(zapcore.NewCore(
		enc,
		zapcore.Lock(zapcore.AddSync(w)),
		c.Level,
	))
}
