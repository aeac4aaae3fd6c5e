package log

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerAddsComponent(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: slog.LevelDebug, Format: "json", Component: ComponentLedger, Output: &buf})

	l.Info("record added", FieldRecordID, 7)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "record added", entry["msg"])
	assert.Equal(t, ComponentLedger, entry[FieldComponent])
	assert.EqualValues(t, 7, entry[FieldRecordID])
}

func TestWithComponentSwitchesName(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Format: "json", Output: &buf}).WithComponent(ComponentAuth)
	assert.Equal(t, ComponentAuth, l.Component())

	l.Warn("login failed")
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, ComponentAuth, entry[FieldComponent])
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: slog.LevelWarn, Output: &buf})
	l.Info("hidden")
	assert.Empty(t, buf.String())
	l.Error("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("WARN"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("nonsense"))
}

func TestLogFields(t *testing.T) {
	f := NewFields().WithOperation(OpCreate).WithUser(3).WithError(errors.New("boom"), ErrorTypeDatabase)
	s := f.ToSlice()
	assert.Len(t, s, 8)
	assert.Equal(t, "boom", f[FieldError])
	assert.Equal(t, ErrorTypeDatabase, f[FieldErrorType])
}
