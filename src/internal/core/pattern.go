// FILE: src/internal/core/pattern.go
package core

import "regexp"

// PatternDef is an immutable (name, matcher, prior confidence) triple used
// by the heuristic detector. The pattern set is an ordered list loaded once
// at construction and never mutated during matching; order is insertion
// order and does not affect the outcome since every matching pattern
// contributes independently.
type PatternDef struct {
	Name       string
	Regex      *regexp.Regexp
	Confidence float64
}

// DefaultPatterns returns the built-in pattern table.
func DefaultPatterns() []PatternDef {
	return []PatternDef{
		{
			Name:       "iso_timestamp",
			Regex:      regexp.MustCompile(`\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}`),
			Confidence: 0.8,
		},
		{
			Name:       "log_level",
			Regex:      regexp.MustCompile(`\b(DEBUG|INFO|WARN|ERROR|CRITICAL)\b`),
			Confidence: 0.7,
		},
		{
			Name:       "ipv4",
			Regex:      regexp.MustCompile(`\b\d{1,3}(\.\d{1,3}){3}\b`),
			Confidence: 0.6,
		},
	}
}
