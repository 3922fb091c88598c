package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureJSON(t *testing.T, level string) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	cfg := DefaultConfig()
	cfg.Level = level
	cfg.JSONFormat = true
	cfg.Writer = &buf
	Initialize(cfg)
	t.Cleanup(func() { Initialize(DefaultConfig()) })
	return &buf
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var entries []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(line), &entry), line)
		entries = append(entries, entry)
	}
	return entries
}

func TestLogger_JSONFields(t *testing.T) {
	buf := captureJSON(t, "debug")

	Info("Signal loaded",
		String("title", "tone"),
		Int("samples", 8000),
		Float64("sample_rate", 8000.5),
		Bool("audio", true),
		Duration("elapsed", 1500*time.Millisecond),
		Error(errors.New("boom")),
	)

	entries := decodeLines(t, buf)
	require.Len(t, entries, 1)
	e := entries[0]
	assert.Equal(t, "info", e["level"])
	assert.Equal(t, "Signal loaded", e["message"])
	assert.Equal(t, "tone", e["title"])
	assert.Equal(t, 8000.0, e["samples"])
	assert.Equal(t, 8000.5, e["sample_rate"])
	assert.Equal(t, true, e["audio"])
	assert.Equal(t, "1.5s", e["elapsed"])
	assert.Equal(t, "boom", e["error"])
	assert.Contains(t, e, "time")
}

func TestLogger_LevelFilter(t *testing.T) {
	buf := captureJSON(t, "warn")

	Debug("hidden")
	Info("hidden")
	Warn("shown")
	ErrorLog("also shown")

	entries := decodeLines(t, buf)
	require.Len(t, entries, 2)
	assert.Equal(t, "warn", entries[0]["level"])
	assert.Equal(t, "error", entries[1]["level"])
	assert.Equal(t, "warn", Get().GetLevel())

	require.NoError(t, Get().SetLevel("debug"))
	Debug("now visible")
	assert.Len(t, decodeLines(t, buf), 3)

	assert.Error(t, Get().SetLevel("loud"))
}

func TestLogger_InvalidLevelFallsBackToInfo(t *testing.T) {
	captureJSON(t, "chatty")
	assert.Equal(t, "info", Get().GetLevel())
}

func TestLogger_WithFields(t *testing.T) {
	buf := captureJSON(t, "info")

	WithField("mode", "ecg").Info("Mode changed")
	WithFields(map[string]interface{}{"band": 2, "gain": 0.5}).Warn("Gain clipped")

	entries := decodeLines(t, buf)
	require.Len(t, entries, 2)
	assert.Equal(t, "ecg", entries[0]["mode"])
	assert.Equal(t, 2.0, entries[1]["band"])
	assert.Equal(t, 0.5, entries[1]["gain"])
}

func TestLogger_FileSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "eqstudio.log")
	cfg := DefaultConfig()
	cfg.Console = false
	cfg.File = true
	cfg.FilePath = path
	Initialize(cfg)
	t.Cleanup(func() { Initialize(DefaultConfig()) })

	Info("to disk")
	require.NoError(t, Get().Close())
	assert.FileExists(t, path)
}
