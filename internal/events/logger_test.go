package events_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TheMichaelB/schoolctl/internal/events"
)

func TestLoggerLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := events.NewTestLogger(events.WarnLevel, "text", &buf)

	logger.Debug("debug message")
	logger.Info("info message")
	logger.Warn("warn message")
	logger.Error("error message")

	out := buf.String()
	assert.NotContains(t, out, "debug message")
	assert.NotContains(t, out, "info message")
	assert.Contains(t, out, "warn message")
	assert.Contains(t, out, "error message")
}

func TestLoggerJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := events.NewTestLogger(events.DebugLevel, "json", &buf)

	logger.WithField("record_id", "rec-1").Info("Submitting attachment diff")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "Submitting attachment diff", entry["msg"])
	assert.Equal(t, "rec-1", entry["record_id"])
	assert.NotEmpty(t, entry["time"])
}

func TestLoggerFieldsAreImmutable(t *testing.T) {
	var buf bytes.Buffer
	base := events.NewTestLogger(events.DebugLevel, "text", &buf)

	derived := base.WithField("component", "staging")
	derived.WithField("slot", "curriculum_pdf")

	base.Info("from base")
	require.Equal(t, 1, strings.Count(buf.String(), "\n"))
	assert.NotContains(t, buf.String(), "component=")

	buf.Reset()
	derived.Info("from derived")
	assert.Contains(t, buf.String(), "component=staging")
	assert.NotContains(t, buf.String(), "slot=", "WithField must not mutate its receiver")
}

func TestLoggerTextFieldOrderIsSorted(t *testing.T) {
	var buf bytes.Buffer
	logger := events.NewTestLogger(events.DebugLevel, "text", &buf)

	logger.WithFields(map[string]interface{}{
		"zebra": 1,
		"alpha": 2,
		"mid":   3,
	}).Info("ordered")

	out := buf.String()
	assert.Less(t, strings.Index(out, "alpha="), strings.Index(out, "mid="))
	assert.Less(t, strings.Index(out, "mid="), strings.Index(out, "zebra="))
}

func TestLoggerWithError(t *testing.T) {
	var buf bytes.Buffer
	logger := events.NewTestLogger(events.DebugLevel, "json", &buf)

	logger.WithError(errors.New("disk full")).Error("Save failed")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "disk full", entry["error"])
}
