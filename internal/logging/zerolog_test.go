package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func captureLogger() (*ZerologLogger, *bytes.Buffer) {
	var buf bytes.Buffer
	return NewZerologLogger(zerolog.New(&buf)), &buf
}

func TestZerologLogger_KeyValueArgs(t *testing.T) {
	log, buf := captureLogger()

	log.Info(context.Background(), "hello", "provider", "docstore")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	require.Equal(t, "hello", entry["message"])
	require.Equal(t, "docstore", entry["provider"])
}

func TestZerologLogger_With(t *testing.T) {
	log, buf := captureLogger()

	child := log.With("component", "facade")
	child.Warn(context.Background(), "cache replaced")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	require.Equal(t, "facade", entry["component"])
	require.Equal(t, "warn", entry["level"])
}

func TestNewLogger_Development(t *testing.T) {
	log := NewLogger("development")
	require.NotNil(t, log)
	// must not panic on all levels
	log.Info(context.Background(), "info")
	log.Error(context.Background(), "error", "err", "boom")
}
