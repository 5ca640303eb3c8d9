package lgr

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/xerrors"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range cases {
		assert.Equal(t, want, ParseLevel(in), in)
	}
}

func TestConsoleOutput(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Options{Level: slog.LevelInfo, Console: &buf})

	logger.Debug("hidden")
	logger.With(slog.String("camera", "front")).Info("frame dropped", slog.Int("frames", 3))

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "frame dropped")
	assert.Contains(t, out, `"camera": "front"`)
	assert.Contains(t, out, `"frames": 3`)
}

func TestErrorsCarryStack(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Options{Level: slog.LevelInfo, Console: &buf})

	logger.Error("load failed", slog.Any("error", WithStack(xerrors.New("bad model"))))

	out := buf.String()
	require.Contains(t, out, "bad model")
	assert.Contains(t, out, "trace")
	assert.Contains(t, out, "lgr_test.go")
}

func TestWithStackNil(t *testing.T) {
	assert.NoError(t, WithStack(nil))
}
