// FILE: src/internal/detect/heuristic.go
package detect

import (
	"encoding/json"
	"fmt"

	"logsieve/src/internal/core"

	"github.com/lixenwraith/log"
)

// maxParsedMessage caps the parsed message stored on a detected event.
const maxParsedMessage = 300

const (
	jsonConfidence      = 0.9
	heuristicConfidence = 0.6
)

// Heuristic is the reference detector: a JSON fast path plus a fixed
// pattern table. No persistence, no learning.
type Heuristic struct {
	counters

	patterns []core.PatternDef
	logger   *log.Logger
}

// NewHeuristic creates the detector with the given ordered pattern table.
// maxPatterns truncates oversized tables; zero means no limit.
func NewHeuristic(patterns []core.PatternDef, maxPatterns int, logger *log.Logger) (*Heuristic, error) {
	if patterns == nil {
		patterns = core.DefaultPatterns()
	}
	if maxPatterns > 0 && len(patterns) > maxPatterns {
		return nil, fmt.Errorf("pattern table exceeds max_patterns: %d > %d", len(patterns), maxPatterns)
	}
	for i, p := range patterns {
		if p.Regex == nil {
			return nil, fmt.Errorf("pattern[%d] '%s' has no matcher", i, p.Name)
		}
	}

	return &Heuristic{patterns: patterns, logger: logger}, nil
}

// Detect analyzes one line. The JSON fast path wins when the whole line
// parses as a JSON object; otherwise every registered pattern runs and the
// matches become extracted fields. A line matching nothing yields nil.
func (h *Heuristic) Detect(line string) *core.Event {
	h.processed.Add(1)

	if event := h.detectJSON(line); event != nil {
		h.matched.Add(1)
		return event
	}

	extracted := make(map[string]any)
	for _, p := range h.patterns {
		if m := p.Regex.FindString(line); m != "" {
			extracted[p.Name] = m
		}
	}

	if len(extracted) > 0 {
		h.matched.Add(1)
		event := core.NewEvent()
		event.RawMessage = line
		event.ParsedMessage = truncate(line, maxParsedMessage)
		event.ExtractedFields = extracted
		event.Confidence = heuristicConfidence
		event.EventType = "heuristic"
		return event
	}

	h.failed.Add(1)
	return nil
}

// Flush implements Detector. The heuristic variant holds no state between
// lines.
func (h *Heuristic) Flush() *core.Event { return nil }

func (h *Heuristic) detectJSON(line string) *core.Event {
	var data map[string]any
	if err := json.Unmarshal([]byte(line), &data); err != nil {
		return nil
	}

	event := core.NewEvent()
	event.RawMessage = line
	event.StructuredData = data
	event.EventType = "json"
	event.Confidence = jsonConfidence

	if msg, ok := data["message"]; ok {
		event.ParsedMessage = truncate(fmt.Sprintf("%v", msg), maxParsedMessage)
	}

	if levelStr, ok := data["level"].(string); ok {
		if level, ok := core.ParseLevel(levelStr); ok {
			event.Level = level
		}
	}

	return event
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
