package logging

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"":        slog.LevelInfo,
		"INFO":    slog.LevelInfo,
		"warning": slog.LevelWarn,
		" error ": slog.LevelError,
	}
	for in, want := range tests {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseLevel("verbose")
	assert.Error(t, err)
}

func TestNew_FiltersByLevelAndTagsSubsystem(t *testing.T) {
	orig := slog.Default()
	t.Cleanup(func() { slog.SetDefault(orig) })

	var buf bytes.Buffer
	logger := New(slog.LevelWarn, &buf)

	Subsystem(logger, "wikis").Info("hidden")
	Subsystem(logger, "wikis").Warn("page conflict", "path", "/Home")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "subsystem=wikis")
	assert.Contains(t, out, "path=/Home")
	assert.Same(t, logger, slog.Default())
}
