package logger

import (
	"bytes"
	"context"
	"testing"

	"github.com/BurntSushi/toml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithConfig(&buf, Config{Format: "console", Level: zapcore.WarnLevel})
	log.Info("hidden")
	log.Warn("shown", zap.String("form", "(f)"))
	require.NoError(t, log.Sync())

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
	assert.Contains(t, buf.String(), "(f)")
}

func TestJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithConfig(&buf, Config{Format: "json", Level: zapcore.DebugLevel})
	log.Debug("compiled", zap.Int("forms", 3))
	assert.Contains(t, buf.String(), `"forms":3`)
}

func TestContext(t *testing.T) {
	log := New(&bytes.Buffer{})
	ctx := NewContextWithLogger(context.Background(), log)
	assert.Same(t, log, FromContext(ctx))
	assert.NotNil(t, FromContext(context.Background()))
}

func TestConfigDecodesFromTOML(t *testing.T) {
	c := NewConfig()
	_, err := toml.Decode("format = \"json\"\nlevel = \"warn\"\n", &c)
	require.NoError(t, err)
	assert.Equal(t, "json", c.Format)
	assert.Equal(t, zapcore.WarnLevel, c.Level)
}

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		"Info":    zapcore.InfoLevel,
		"warning": zapcore.WarnLevel,
		" error ": zapcore.ErrorLevel,
	} {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	for _, in := range []string{"", "panic", "loud"} {
		_, err := ParseLevel(in)
		assert.Error(t, err, in)
	}
}
