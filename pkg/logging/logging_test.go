package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewHandlerJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewHandler(&buf, slog.LevelInfo, "JSON"))

	logger.Debug("hidden")
	logger.Info("Chit created", "chit_name", "january")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "Chit created", entry["msg"])
	assert.Equal(t, "january", entry["chit_name"])
}

func TestNewHandlerText(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewHandler(&buf, slog.LevelWarn, ""))

	logger.Info("hidden")
	logger.Warn("Allocation failed", "slot_id", 3)

	assert.Contains(t, buf.String(), "Allocation failed")
	assert.NotContains(t, buf.String(), "hidden")
}

func TestLevelFromEnv(t *testing.T) {
	for env, want := range map[string]slog.Level{
		"debug": slog.LevelDebug,
		"WARN":  slog.LevelWarn,
		"error": slog.LevelError,
		"":      slog.LevelInfo,
		"loud":  slog.LevelInfo,
	} {
		t.Setenv("LOG_LEVEL", env)
		assert.Equal(t, want, levelFromEnv(), "LOG_LEVEL=%q", env)
	}
}
