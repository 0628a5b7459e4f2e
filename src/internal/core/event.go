// FILE: src/internal/core/event.go
package core

import (
	"fmt"
	"time"
)

// ParserVersion is stamped on every event produced by this build of the
// pipeline.
const ParserVersion = "1.0.0"

// Event is the canonical parsed log record flowing through the pipeline.
// Created by a detector (or directly by the processor for structured
// records), mutated in place by the normalizer, then handed to the caller
// as a finished value. Nothing downstream of the normalizer mutates it.
type Event struct {
	// Identity
	EventID  *int64
	SourceID *int64

	// Time
	Timestamp *time.Time
	CreatedAt time.Time

	// Content
	RawMessage    string
	ParsedMessage string
	Level         Level // empty = not yet known

	// Parsing metadata
	EventType     string // "json", "heuristic", ...
	Confidence    float64
	ParserVersion string

	// Source context
	FileName   string
	LineNumber int
	LoggerName string

	// Execution context (best effort, may be absent)
	ProcessID  int
	ThreadName string

	// Extracted data
	ExtractedFields map[string]any
	StructuredData  map[string]any
}

// NewEvent creates an event with the creation timestamp and parser version
// set. Confidence defaults to 1.0 until a detector says otherwise.
func NewEvent() *Event {
	return &Event{
		CreatedAt:       time.Now().UTC(),
		Confidence:      1.0,
		ParserVersion:   ParserVersion,
		ExtractedFields: make(map[string]any),
		StructuredData:  make(map[string]any),
	}
}

// IsStructured reports whether the event carries decoded structured data.
func (e *Event) IsStructured() bool {
	return len(e.StructuredData) > 0
}

// ToWire serializes the event into the flat wire shape used for
// persistence and IPC. Timestamps are ISO-8601 strings, absent optionals
// are nil. Round-trips exactly through EventFromWire.
func (e *Event) ToWire() map[string]any {
	w := map[string]any{
		"event_id":         nilOrInt(e.EventID),
		"source_id":        nilOrInt(e.SourceID),
		"timestamp":        nilOrTime(e.Timestamp),
		"created_at":       e.CreatedAt.Format(time.RFC3339Nano),
		"raw_message":      e.RawMessage,
		"parsed_message":   e.ParsedMessage,
		"level":            nil,
		"event_type":       e.EventType,
		"confidence":       e.Confidence,
		"parser_version":   e.ParserVersion,
		"file_name":        e.FileName,
		"line_number":      e.LineNumber,
		"logger_name":      e.LoggerName,
		"process_id":       e.ProcessID,
		"thread_name":      e.ThreadName,
		"extracted_fields": e.ExtractedFields,
		"structured_data":  e.StructuredData,
	}
	if e.Level != "" {
		w["level"] = string(e.Level)
	}
	return w
}

// EventFromWire deserializes an event from its wire shape.
func EventFromWire(w map[string]any) (*Event, error) {
	e := NewEvent()

	var err error
	if e.EventID, err = wireInt(w["event_id"]); err != nil {
		return nil, fmt.Errorf("event_id: %w", err)
	}
	if e.SourceID, err = wireInt(w["source_id"]); err != nil {
		return nil, fmt.Errorf("source_id: %w", err)
	}
	if e.Timestamp, err = wireTime(w["timestamp"]); err != nil {
		return nil, fmt.Errorf("timestamp: %w", err)
	}
	if created, err := wireTime(w["created_at"]); err != nil {
		return nil, fmt.Errorf("created_at: %w", err)
	} else if created != nil {
		e.CreatedAt = *created
	}

	e.RawMessage, _ = w["raw_message"].(string)
	e.ParsedMessage, _ = w["parsed_message"].(string)
	if s, ok := w["level"].(string); ok {
		if lvl, ok := ParseLevel(s); ok {
			e.Level = lvl
		}
	}
	e.EventType, _ = w["event_type"].(string)
	if c, ok := wireFloat(w["confidence"]); ok {
		e.Confidence = c
	}
	if v, ok := w["parser_version"].(string); ok && v != "" {
		e.ParserVersion = v
	}
	e.FileName, _ = w["file_name"].(string)
	if n, ok := wireFloat(w["line_number"]); ok {
		e.LineNumber = int(n)
	}
	e.LoggerName, _ = w["logger_name"].(string)
	if n, ok := wireFloat(w["process_id"]); ok {
		e.ProcessID = int(n)
	}
	e.ThreadName, _ = w["thread_name"].(string)
	if m, ok := w["extracted_fields"].(map[string]any); ok {
		e.ExtractedFields = m
	}
	if m, ok := w["structured_data"].(map[string]any); ok {
		e.StructuredData = m
	}

	return e, nil
}

func nilOrInt(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}

func nilOrTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format(time.RFC3339Nano)
}

// wireInt accepts the numeric encodings a wire map can carry after a trip
// through JSON (float64) or direct construction (int, int64).
func wireInt(v any) (*int64, error) {
	switch n := v.(type) {
	case nil:
		return nil, nil
	case int64:
		return &n, nil
	case int:
		i := int64(n)
		return &i, nil
	case float64:
		i := int64(n)
		return &i, nil
	}
	return nil, fmt.Errorf("unexpected numeric type %T", v)
}

func wireFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

func wireTime(v any) (*time.Time, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case time.Time:
		return &t, nil
	case string:
		parsed, err := time.Parse(time.RFC3339Nano, t)
		if err != nil {
			return nil, fmt.Errorf("invalid timestamp %q: %w", t, err)
		}
		return &parsed, nil
	}
	return nil, fmt.Errorf("unexpected timestamp type %T", v)
}
