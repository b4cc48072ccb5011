package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []LogEntry {
	t.Helper()
	var entries []LogEntry
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var e LogEntry
		require.NoError(t, json.Unmarshal([]byte(line), &e))
		entries = append(entries, e)
	}
	return entries
}

func TestStructuredLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := NewStructuredLogger("fertility-api", "1.0.0", WarnLevel)
	logger.SetOutput(&buf)

	ctx := WithRequestID(context.Background(), "req-1")
	logger.Info(ctx, "[RATES] hidden", nil)
	logger.Warn(ctx, "[RATES] Unmatched keys dropped", Fields{"count": 2})
	logger.Error(ctx, "[RATES] Failed", nil, errors.New("boom"))

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 2)

	assert.Equal(t, "WARN", entries[0].Level)
	assert.Equal(t, "req-1", entries[0].RequestID)
	assert.Equal(t, float64(2), entries[0].Fields["count"])

	assert.Equal(t, "ERROR", entries[1].Level)
	assert.Equal(t, "boom", entries[1].Error)
	assert.NotEmpty(t, entries[1].File)
}

func TestContextLoggerMergesFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewStructuredLogger("fertility-ingester", "1.0.0", DebugLevel)
	logger.SetOutput(&buf)

	ctx := WithOperation(context.Background(), "ingest")
	logger.WithFields(Fields{"data_dir": "/data", "table": "births"}).
		Debug(ctx, "[INGEST] Loaded", Fields{"table": "population"})

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "/data", entries[0].Fields["data_dir"])
	assert.Equal(t, "population", entries[0].Fields["table"])
	assert.Equal(t, "ingest", entries[0].Operation)
}

func TestFatalExits(t *testing.T) {
	var buf bytes.Buffer
	logger := NewStructuredLogger("svc", "v", InfoLevel)
	logger.SetOutput(&buf)
	code := -1
	logger.exit = func(c int) { code = c }

	logger.Fatal(context.Background(), "[STARTUP] Failed", nil, errors.New("no config"))
	assert.Equal(t, 1, code)

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 1)
	assert.NotEmpty(t, entries[0].StackTrace)
}

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]LogLevel{
		"debug":   DebugLevel,
		"":        InfoLevel,
		"Warning": WarnLevel,
		"ERROR":   ErrorLevel,
	} {
		got, err := ParseLevel(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := ParseLevel("verbose")
	assert.Error(t, err)
}

func TestRequestIDFromEmptyContext(t *testing.T) {
	assert.Equal(t, "", RequestIDFrom(context.Background()))
}
