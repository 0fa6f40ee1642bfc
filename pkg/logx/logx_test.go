package logx

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZeroLoggerIsNoop(t *testing.T) {
	var l Logger
	assert.True(t, l.IsZero())
	assert.NotPanics(t, func() { l.Info("hello", String("k", "v")) })
	assert.False(t, Nop().IsZero())
}

func TestJSONOutputCarriesFields(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriter(Config{Level: "debug", Format: "json"}, &buf).With(String("rotation", "widget"))
	l.Info("advanced", String("item", "2.47"), Int("cursor", 3), Err(errors.New("boom")))

	var m map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &m))
	assert.Equal(t, "advanced", m["message"])
	assert.Equal(t, "widget", m["rotation"])
	assert.Equal(t, "2.47", m["item"])
	assert.Equal(t, float64(3), m["cursor"])
	assert.Equal(t, "boom", m["err"])
	assert.Equal(t, "info", m["level"])
	assert.Contains(t, m["caller"], "logx_test.go:")
}

func TestTimeAndDurationFields(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriter(Config{Level: "debug", Format: "json"}, &buf)
	next := time.Date(2024, 1, 2, 4, 0, 0, 0, time.UTC)
	l.Debug("reconciled", Time("next", next), Duration("schedule_poll", time.Minute), Any("hours", []int{4, 16}))

	var m map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &m))
	assert.Equal(t, next.Format(zerolog.TimeFieldFormat), m["next"])
	assert.Contains(t, m, "schedule_poll")
	assert.Equal(t, []any{float64(4), float64(16)}, m["hours"])
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriter(Config{Level: "warn", Format: "json"}, &buf)
	l.Debug("hidden")
	l.Info("hidden")
	assert.Zero(t, buf.Len())
	l.Warn("shown")
	assert.Contains(t, buf.String(), "shown")
	assert.False(t, l.Enabled(zerolog.InfoLevel))
	assert.True(t, l.Enabled(zerolog.ErrorLevel))
}

func TestConsoleFormatHasNoColorOffTTY(t *testing.T) {
	var buf bytes.Buffer
	NewWriter(Config{Level: "info"}, &buf).Info("plain", String("k", "v"))
	assert.Contains(t, buf.String(), "plain")
	assert.Contains(t, buf.String(), "k=v")
	assert.NotContains(t, buf.String(), "\x1b[")
}

func TestWithDoesNotAlias(t *testing.T) {
	base := Nop().With(String("a", "1"))
	x := base.With(String("b", "2"))
	y := base.With(String("c", "3"))
	assert.Len(t, x.fields, 2)
	assert.Len(t, y.fields, 2)
	assert.Len(t, base.fields, 1)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, ParseLevel(" DEBUG ", zerolog.InfoLevel))
	assert.Equal(t, zerolog.WarnLevel, ParseLevel("warning", zerolog.InfoLevel))
	assert.Equal(t, zerolog.Disabled, ParseLevel("off", zerolog.InfoLevel))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel("bogus", zerolog.InfoLevel))
}
