package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger_TextFormat(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(&Config{Level: "info", Format: "text", Output: &buf})

	log.Info(context.Background(), "page ready", "page", "index.gsp")

	out := buf.String()
	assert.Contains(t, out, "page ready")
	assert.Contains(t, out, "page=index.gsp")
}

func TestNewLogger_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(&Config{Level: "info", Format: "json", Output: &buf})

	log.Info(context.Background(), "built", "key", "abc123")

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "built", record["msg"])
	assert.Equal(t, "abc123", record["key"])
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(&Config{Level: "warn", Format: "text", Output: &buf})

	log.Debug(context.Background(), "debug message")
	log.Info(context.Background(), "info message")
	assert.Empty(t, buf.String())

	log.Warn(context.Background(), nil, "warn message")
	assert.Contains(t, buf.String(), "warn message")
}

func TestErrorFieldAppended(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(&Config{Level: "info", Format: "json", Output: &buf})

	log.Error(context.Background(), errors.New("boom"), "render failed", "page", "x.gsp")

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "boom", record["error"])
	assert.Equal(t, "x.gsp", record["page"])
}

func TestWithComponent(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(&Config{Level: "info", Format: "json", Output: &buf})

	log.WithComponent("engine").Info(context.Background(), "msg")

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "engine", record["component"])
}

func TestWith(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(&Config{Level: "info", Format: "json", Output: &buf})

	log.With("request_id", "r1").Info(context.Background(), "handled")

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "r1", record["request_id"])
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("debug"))
	assert.Equal(t, slog.LevelInfo, parseLevel("info"))
	assert.Equal(t, slog.LevelWarn, parseLevel("WARN"))
	assert.Equal(t, slog.LevelError, parseLevel("error"))
	assert.Equal(t, slog.LevelInfo, parseLevel("bogus"))
}
