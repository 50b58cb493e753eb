package logging

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]zerolog.Level{
		"":        zerolog.InfoLevel,
		"trace":   zerolog.TraceLevel,
		"DEBUG":   zerolog.DebugLevel,
		" warn ":  zerolog.WarnLevel,
		"warning": zerolog.WarnLevel,
		"error":   zerolog.ErrorLevel,
		"off":     zerolog.Disabled,
		"loud":    zerolog.InfoLevel,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), "level %q", in)
	}
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("DEBUG", "1")
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("LOG_FIELDS", "service=archivesync, region = eu,broken")

	cfg := ConfigFromEnv()
	assert.Equal(t, "debug", cfg.Level)
	assert.Equal(t, "json", cfg.Format)
	assert.Equal(t, "stderr", cfg.Output)
	assert.Equal(t, map[string]any{"service": "archivesync", "region": "eu"}, cfg.Fields)

	t.Setenv("LOG_LEVEL", "error")
	assert.Equal(t, "error", ConfigFromEnv().Level)
}

func TestTimeFormat(t *testing.T) {
	assert.Equal(t, time.Kitchen, timeFormat(""))
	assert.Equal(t, time.RFC3339, timeFormat("RFC3339"))
	assert.Equal(t, "", timeFormat("unix"))
	assert.Equal(t, "2006-01-02 15:04", timeFormat("2006-01-02 15:04"))
	assert.Equal(t, time.Kitchen, timeFormat("nonsense"))
}

func TestNewWriter(t *testing.T) {
	_, console := newWriter(&Config{Output: "discard", Format: "auto"}).(zerolog.ConsoleWriter)
	assert.False(t, console, "auto on a non-terminal is json")

	_, console = newWriter(&Config{Output: "discard", Format: "console"}).(zerolog.ConsoleWriter)
	assert.True(t, console)

	path := filepath.Join(t.TempDir(), "archivesync.log")
	f, ok := newWriter(&Config{Output: path, Format: "json"}).(*os.File)
	require.True(t, ok)
	assert.NoError(t, f.Close())
}

func TestNewLoggerFromConfig(t *testing.T) {
	prev := zerolog.GlobalLevel()
	t.Cleanup(func() { zerolog.SetGlobalLevel(prev) })

	logger := NewLoggerFromConfig(nil)
	assert.Equal(t, zerolog.InfoLevel, logger.GetLevel())

	path := filepath.Join(t.TempDir(), "fields.log")
	logger = NewLoggerFromConfig(&Config{Level: "warn", Format: "json", Output: path, Fields: map[string]any{"service": "archivesync"}})
	assert.Equal(t, zerolog.WarnLevel, zerolog.GlobalLevel())
	logger.Warn().Msg("written")
	logger.Info().Msg("dropped")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"service":"archivesync"`)
	assert.Contains(t, string(data), "written")
	assert.NotContains(t, string(data), "dropped")
}

func TestDefaultAndOrDefault(t *testing.T) {
	original := *Default()
	t.Cleanup(func() { SetDefault(original) })

	tl := NewTestLogger(t)
	SetDefault(*tl.Logger)
	Default().Info().Msg("through default")
	tl.AssertContains(t, "through default")

	nop := NewNopLogger()
	assert.Same(t, nop, OrDefault(nop))
	assert.NotNil(t, OrDefault(nil))
}

func TestContextLogger(t *testing.T) {
	assert.Same(t, Default(), FromContext(context.Background()))

	tl := NewTestLogger(t)
	ctx := WithLogger(context.Background(), tl.Logger)
	ctx = WithChannel(ctx, "scheduled-archival")
	ctx = WithConnection(ctx, "conn-1")

	FromContext(ctx).Info().Msg("frame")

	require.Len(t, tl.Lines(), 1)
	tl.AssertContains(t, `"channel":"scheduled-archival"`)
	tl.AssertContains(t, `"connection_id":"conn-1"`)
}
