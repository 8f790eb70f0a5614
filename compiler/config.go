package compiler

import (
	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"

	"lispc/expand"
	"lispc/logger"
	"lispc/lower"
)

// Config holds the compiler settings. Zero values select the defaults.
type Config struct {
	// Trace writes expansion and lowering decisions to the trace writer.
	Trace bool `toml:"trace" yaml:"trace"`
	// TraceFilters restricts tracing to operators matching one of these
	// glob patterns.
	TraceFilters []string `toml:"trace-filters" yaml:"trace_filters"`
	// MaxFixpointPasses bounds the externals computation of a function.
	MaxFixpointPasses int `toml:"max-fixpoint-passes" yaml:"max_fixpoint_passes"`
	// Instrument makes every compiled function report entry to the
	// runtime.
	Instrument bool `toml:"instrument" yaml:"instrument"`
	// MaxExpandDepth bounds nested macro expansion.
	MaxExpandDepth int `toml:"max-expand-depth" yaml:"max_expand_depth"`
	// Standalone makes the unit bind the functions it references but does
	// not define.
	Standalone bool `toml:"standalone" yaml:"standalone"`

	Log logger.Config `toml:"log" yaml:"log"`
}

// NewConfig returns a new instance of Config with defaults.
func NewConfig() Config {
	return Config{
		MaxFixpointPasses: lower.DefaultMaxFixpointPasses,
		MaxExpandDepth:    expand.DefaultMaxDepth,
		Log:               logger.NewConfig(),
	}
}

// LoadConfig reads a TOML config file over the defaults.
func LoadConfig(path string) (Config, error) {
	c := NewConfig()
	if _, err := toml.DecodeFile(path, &c); err != nil {
		return Config{}, errors.Wrapf(err, "reading config %s", path)
	}
	return c, nil
}
