// FILE: src/internal/normalize/normalizer.go
package normalize

import (
	"regexp"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"logsieve/src/internal/core"

	"github.com/lixenwraith/log"
)

// severityMap translates common severity mnemonics to canonical levels.
var severityMap = map[string]core.Level{
	"debug":    core.LevelDebug,
	"info":     core.LevelInfo,
	"warn":     core.LevelWarning,
	"warning":  core.LevelWarning,
	"error":    core.LevelError,
	"fatal":    core.LevelCritical,
	"critical": core.LevelCritical,
}

var (
	ansiEscapes  = regexp.MustCompile(`\x1b\[[0-9;]*m`)
	controlChars = regexp.MustCompile(`[\x00-\x1f\x7f-\x9f]`)
	multiSpace   = regexp.MustCompile(`\s+`)
)

// timestampLayouts is the short ordered list tried against an extracted
// "timestamp" string.
var timestampLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	// Accepts 1-9 fractional digits, not a fixed width
	time.RFC3339Nano,
}

// Normalizer fills in missing canonical fields on an event: level,
// timestamp, cleaned message, coerced field types. Steps run in a fixed
// order and only ever fill fields that are still empty - an already-set
// canonical value is never overwritten.
type Normalizer struct {
	logger *log.Logger

	// Statistics
	normalized atomic.Uint64
	levels     atomic.Uint64
	timestamps atomic.Uint64
	messages   atomic.Uint64
}

// Stats is a snapshot of the normalizer's running counters.
type Stats struct {
	Normalized uint64
	Levels     uint64
	Timestamps uint64
	Messages   uint64
}

// New creates a normalizer.
func New(logger *log.Logger) *Normalizer {
	return &Normalizer{logger: logger}
}

// Normalize mutates the event in place. On failure the error wraps the
// original cause with the normalization kind; mutations made by steps
// before the failing one remain on the event.
func (n *Normalizer) Normalize(event *core.Event) error {
	if event == nil {
		return core.NewError(core.KindNormalization, nil, "nil event")
	}

	n.normalizeLevel(event)
	if err := n.normalizeTimestamp(event); err != nil {
		return core.NewError(core.KindNormalization, err, "timestamp normalization failed")
	}
	n.cleanMessage(event)
	n.coerceFields(event)

	n.normalized.Add(1)
	return nil
}

// Stats returns a snapshot of the running counters.
func (n *Normalizer) Stats() Stats {
	return Stats{
		Normalized: n.normalized.Load(),
		Levels:     n.levels.Load(),
		Timestamps: n.timestamps.Load(),
		Messages:   n.messages.Load(),
	}
}

// ResetStats zeroes the running counters.
func (n *Normalizer) ResetStats() {
	n.normalized.Store(0)
	n.levels.Store(0)
	n.timestamps.Store(0)
	n.messages.Store(0)
}

func (n *Normalizer) normalizeLevel(event *core.Event) {
	if event.Level != "" {
		return
	}

	raw, ok := event.ExtractedFields["level"]
	if !ok {
		raw, ok = event.ExtractedFields["severity"]
	}
	if !ok {
		return
	}

	s, ok := raw.(string)
	if !ok {
		return
	}
	if level, ok := severityMap[strings.ToLower(s)]; ok {
		event.Level = level
		n.levels.Add(1)
	}
}

func (n *Normalizer) normalizeTimestamp(event *core.Event) error {
	if event.Timestamp != nil {
		return nil
	}

	raw, ok := event.ExtractedFields["timestamp"]
	if !ok || raw == nil {
		return nil
	}

	switch v := raw.(type) {
	case time.Time:
		event.Timestamp = &v
		n.timestamps.Add(1)
	case *time.Time:
		event.Timestamp = v
		n.timestamps.Add(1)
	case int:
		t := time.Unix(int64(v), 0).UTC()
		event.Timestamp = &t
		n.timestamps.Add(1)
	case int64:
		t := time.Unix(v, 0).UTC()
		event.Timestamp = &t
		n.timestamps.Add(1)
	case float64:
		sec := int64(v)
		nsec := int64((v - float64(sec)) * float64(time.Second))
		t := time.Unix(sec, nsec).UTC()
		event.Timestamp = &t
		n.timestamps.Add(1)
	case string:
		for _, layout := range timestampLayouts {
			if t, err := time.Parse(layout, v); err == nil {
				event.Timestamp = &t
				n.timestamps.Add(1)
				return nil
			}
		}
		// An unparseable string is left alone rather than treated as an
		// error: the field may simply not be a timestamp.
	}

	return nil
}

func (n *Normalizer) cleanMessage(event *core.Event) {
	if event.RawMessage == "" {
		return
	}

	msg := ansiEscapes.ReplaceAllString(event.RawMessage, "")
	msg = controlChars.ReplaceAllString(msg, "")
	msg = multiSpace.ReplaceAllString(msg, " ")
	msg = strings.TrimSpace(msg)

	if msg != event.RawMessage {
		event.ParsedMessage = msg
		n.messages.Add(1)
	} else if event.ParsedMessage == "" {
		event.ParsedMessage = event.RawMessage
	}
}

// coerceFields converts extracted string fields of only digits to integers.
func (n *Normalizer) coerceFields(event *core.Event) {
	for k, v := range event.ExtractedFields {
		s, ok := v.(string)
		if !ok || s == "" {
			continue
		}
		if !isDigits(s) {
			continue
		}
		// Values too large for int64 stay strings
		if out, err := strconv.ParseInt(s, 10, 64); err == nil {
			event.ExtractedFields[k] = out
		}
	}
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
