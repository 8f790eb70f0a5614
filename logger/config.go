package logger

import (
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap/zapcore"
)

type Config struct {
	Format string        `toml:"format"`
	Level  zapcore.Level `toml:"level"`
}

// NewConfig returns a new instance of Config with defaults.
func NewConfig() Config {
	return Config{
		Format: "console",
		Level:  zapcore.InfoLevel,
	}
}

// Levels lists the level names accepted by ParseLevel, most verbose first.
var Levels = []string{"debug", "info", "warn", "error"}

// ParseLevel returns the level named s, ignoring case. "warning" is
// accepted for warn.
func ParseLevel(s string) (zapcore.Level, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if name == "warning" {
		name = "warn"
	}
	for _, l := range Levels {
		if l == name {
			var level zapcore.Level
			err := level.UnmarshalText([]byte(name))
			return level, err
		}
	}
	return zapcore.InfoLevel, errors.Errorf("unknown log level %q, want one of %s", s, strings.Join(Levels, ", "))
}
