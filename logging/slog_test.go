package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel(""))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}

func TestNewWriter(t *testing.T) {
	t.Run("json output carries key-value pairs", func(t *testing.T) {
		var buf bytes.Buffer
		l := NewWriter(&buf, "info", "json")

		l.Info("worker deactivated", "worker", "U9", "moved", 7)

		var line map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
		assert.Equal(t, "worker deactivated", line["msg"])
		assert.Equal(t, "U9", line["worker"])
		assert.EqualValues(t, 7, line["moved"])
	})

	t.Run("level filters lower messages", func(t *testing.T) {
		var buf bytes.Buffer
		l := NewWriter(&buf, "warn", "text")

		l.Debug("hidden")
		l.Info("hidden")
		assert.Empty(t, buf.String())

		l.Error("shown", "error", "boom")
		assert.Contains(t, buf.String(), "shown")
		assert.Contains(t, buf.String(), "error=boom")
	})
}
