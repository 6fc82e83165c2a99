package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerFormatsAndFilters(t *testing.T) {
	var buf bytes.Buffer
	log := newLogger(&Config{Level: "info"}, &buf).With("component", "chifumi")

	log.Debug("hidden %d", 1)
	log.Info("match %s accepted", "ABC123")

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "match ABC123 accepted", record["msg"])
	assert.Equal(t, "INFO", record["level"])
	assert.Equal(t, "chifumi", record["component"])
}

func TestGetLoggerLevel(t *testing.T) {
	assert.Equal(t, slog.LevelWarn, getLoggerLevel("WARN"))
	assert.Equal(t, slog.LevelError, getLoggerLevel("error"))
	assert.Equal(t, slog.LevelDebug, getLoggerLevel("nonsense"))
}
