// FILE: src/internal/normalize/normalizer_test.go
package normalize

import (
	"testing"
	"time"

	"logsieve/src/internal/core"

	"github.com/lixenwraith/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger() *log.Logger {
	return log.NewLogger()
}

func TestNormalize_NilEvent(t *testing.T) {
	n := New(newTestLogger())

	err := n.Normalize(nil)
	require.Error(t, err)
	assert.True(t, core.IsKind(err, core.KindNormalization))
}

func TestNormalize_Level(t *testing.T) {
	n := New(newTestLogger())

	testCases := []struct {
		name  string
		field string
		value any
		want  core.Level
	}{
		{"Warn", "level", "warn", core.LevelWarning},
		{"Warning", "level", "WARNING", core.LevelWarning},
		{"Fatal", "level", "fatal", core.LevelCritical},
		{"Severity", "severity", "error", core.LevelError},
		{"Unknown", "level", "verbose", ""},
		{"NonString", "level", 3, ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			event := core.NewEvent()
			event.RawMessage = "msg"
			event.ExtractedFields[tc.field] = tc.value

			require.NoError(t, n.Normalize(event))
			assert.Equal(t, tc.want, event.Level)
		})
	}
}

func TestNormalize_LevelNotOverwritten(t *testing.T) {
	n := New(newTestLogger())

	event := core.NewEvent()
	event.RawMessage = "msg"
	event.Level = core.LevelDebug
	event.ExtractedFields["level"] = "error"

	require.NoError(t, n.Normalize(event))
	assert.Equal(t, core.LevelDebug, event.Level)
}

func TestNormalize_Timestamp(t *testing.T) {
	n := New(newTestLogger())

	t.Run("FromString", func(t *testing.T) {
		event := core.NewEvent()
		event.RawMessage = "msg"
		event.ExtractedFields["timestamp"] = "2024-01-02 03:04:05"

		require.NoError(t, n.Normalize(event))
		require.NotNil(t, event.Timestamp)
		assert.Equal(t, 2024, event.Timestamp.Year())
	})

	t.Run("FromEpochInt", func(t *testing.T) {
		event := core.NewEvent()
		event.RawMessage = "msg"
		event.ExtractedFields["timestamp"] = int64(1704164645)

		require.NoError(t, n.Normalize(event))
		require.NotNil(t, event.Timestamp)
		assert.Equal(t, int64(1704164645), event.Timestamp.Unix())
	})

	t.Run("FromTime", func(t *testing.T) {
		ts := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
		event := core.NewEvent()
		event.RawMessage = "msg"
		event.ExtractedFields["timestamp"] = ts

		require.NoError(t, n.Normalize(event))
		require.NotNil(t, event.Timestamp)
		assert.True(t, ts.Equal(*event.Timestamp))
	})

	t.Run("FromStringFractionalSeconds", func(t *testing.T) {
		// Fractional precision varies by producer; any digit count parses
		for _, raw := range []string{
			"2024-01-02T03:04:05.1Z",
			"2024-01-02T03:04:05.123Z",
			"2024-01-02T03:04:05.123456Z",
		} {
			event := core.NewEvent()
			event.RawMessage = "msg"
			event.ExtractedFields["timestamp"] = raw

			require.NoError(t, n.Normalize(event))
			require.NotNil(t, event.Timestamp, "timestamp %q", raw)
			assert.Equal(t, 5, event.Timestamp.Second(), "timestamp %q", raw)
		}
	})

	t.Run("UnparseableStringLeftAlone", func(t *testing.T) {
		event := core.NewEvent()
		event.RawMessage = "msg"
		event.ExtractedFields["timestamp"] = "next tuesday"

		require.NoError(t, n.Normalize(event))
		assert.Nil(t, event.Timestamp)
	})

	t.Run("ExistingNotOverwritten", func(t *testing.T) {
		existing := time.Date(2020, 6, 1, 0, 0, 0, 0, time.UTC)
		event := core.NewEvent()
		event.RawMessage = "msg"
		event.Timestamp = &existing
		event.ExtractedFields["timestamp"] = "2024-01-02 03:04:05"

		require.NoError(t, n.Normalize(event))
		assert.True(t, existing.Equal(*event.Timestamp))
	})
}

func TestNormalize_MessageCleanup(t *testing.T) {
	n := New(newTestLogger())

	t.Run("StripAnsiAndCollapse", func(t *testing.T) {
		event := core.NewEvent()
		event.RawMessage = "\x1b[31mERROR\x1b[0m   disk    full  "

		require.NoError(t, n.Normalize(event))
		assert.Equal(t, "ERROR disk full", event.ParsedMessage)
		assert.Equal(t, "\x1b[31mERROR\x1b[0m   disk    full  ", event.RawMessage)
	})

	t.Run("CleanPassThrough", func(t *testing.T) {
		event := core.NewEvent()
		event.RawMessage = "already clean"

		require.NoError(t, n.Normalize(event))
		assert.Equal(t, "already clean", event.ParsedMessage)
	})

	t.Run("ControlCharsRemoved", func(t *testing.T) {
		event := core.NewEvent()
		event.RawMessage = "null\x00byte"

		require.NoError(t, n.Normalize(event))
		assert.Equal(t, "nullbyte", event.ParsedMessage)
	})
}

func TestNormalize_CoerceFields(t *testing.T) {
	n := New(newTestLogger())

	event := core.NewEvent()
	event.RawMessage = "msg"
	event.ExtractedFields["pid"] = "1234"
	event.ExtractedFields["host"] = "web01"
	event.ExtractedFields["huge"] = "99999999999999999999999999"
	event.ExtractedFields["mixed"] = "12ab"

	require.NoError(t, n.Normalize(event))
	assert.Equal(t, int64(1234), event.ExtractedFields["pid"])
	assert.Equal(t, "web01", event.ExtractedFields["host"])
	assert.Equal(t, "99999999999999999999999999", event.ExtractedFields["huge"])
	assert.Equal(t, "12ab", event.ExtractedFields["mixed"])
}

func TestNormalize_Stats(t *testing.T) {
	n := New(newTestLogger())

	event := core.NewEvent()
	event.RawMessage = "  spaced   out  "
	event.ExtractedFields["level"] = "warn"
	event.ExtractedFields["timestamp"] = "2024-01-02 03:04:05"

	require.NoError(t, n.Normalize(event))

	stats := n.Stats()
	assert.Equal(t, uint64(1), stats.Normalized)
	assert.Equal(t, uint64(1), stats.Levels)
	assert.Equal(t, uint64(1), stats.Timestamps)
	assert.Equal(t, uint64(1), stats.Messages)

	n.ResetStats()
	assert.Equal(t, Stats{}, n.Stats())
}
