package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"debug", LevelDebug, false},
		{"INFO", LevelInfo, false},
		{"warning", LevelWarn, false},
		{" error ", LevelError, false},
		{"loud", LevelInfo, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.want, got)
		})
	}
	assert.Equal(t, "UNKNOWN", Level(9).String())
}

// openTemp starts logging to a fresh file and returns a reader for it
func openTemp(t *testing.T, level string) func() string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "stride.log")
	require.NoError(t, Open(level, path))
	t.Cleanup(func() { _ = Close() })
	return func() string {
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		return string(data)
	}
}

func TestLevelFiltering(t *testing.T) {
	read := openTemp(t, "warn")

	Info("hidden %d", 1)
	Warn("shown %d", 2)
	Error("shown %d", 3)

	out := read()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "[WARN] shown 2")
	assert.Contains(t, out, "[ERROR] shown 3")
	assert.Equal(t, 2, strings.Count(out, "\n"))
}

func TestOpenAppendsAndCloseStops(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stride.log")
	require.NoError(t, os.WriteFile(path, []byte("earlier\n"), 0o644))

	require.NoError(t, Open("debug", path))
	Debug("task %s patched", "A")
	require.NoError(t, Close())
	Error("after close")
	require.NoError(t, Close(), "closing twice is fine")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)
	assert.True(t, strings.HasPrefix(out, "earlier\n"))
	assert.Contains(t, out, "[DEBUG] task A patched")
	assert.NotContains(t, out, "after close")
}

func TestOpenWithoutFileStaysOff(t *testing.T) {
	require.NoError(t, Open("debug", ""))
	Warn("nowhere")
	assert.Nil(t, sink.file)
}

func TestOpenRejectsBadLevel(t *testing.T) {
	assert.Error(t, Open("shout", filepath.Join(t.TempDir(), "x.log")))
	assert.Nil(t, sink.file, "nothing is opened")
}
