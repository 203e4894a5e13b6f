package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNew_WritesStructuredEntries(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log, err := New(Options{Level: "debug", Writer: &buf})
	require.NoError(t, err)

	log.WithFields(map[string]any{"seq": 3}).Info("patch dispatched")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	require.Equal(t, "patch dispatched", entry["message"])
	require.Equal(t, float64(3), entry["seq"])
	require.Equal(t, "info", entry["level"])
}

func TestNew_RespectsLevelFilter(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log, err := New(Options{Level: "warn", Writer: &buf})
	require.NoError(t, err)

	log.Debug("stale response discarded")
	log.Info("snapshot loaded")
	require.Zero(t, buf.Len())

	log.Warn("contract version mismatch")
	require.NotZero(t, buf.Len())
}

func TestNew_RejectsUnknownLevel(t *testing.T) {
	t.Parallel()

	_, err := New(Options{Level: "loud"})
	require.Error(t, err)
}

func TestNilLoggerIsSafe(t *testing.T) {
	t.Parallel()

	var log *Logger
	log.Info("ignored")
	log.Error(nil, "ignored")
	require.Nil(t, log.WithFields(map[string]any{"k": "v"}))
}
