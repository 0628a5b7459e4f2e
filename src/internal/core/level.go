// FILE: src/internal/core/level.go
package core

import "strings"

// Level is a canonical log severity. The set is closed: every detector and
// normalizer in the pipeline agrees on these five values.
type Level string

const (
	LevelDebug    Level = "DEBUG"
	LevelInfo     Level = "INFO"
	LevelWarning  Level = "WARNING"
	LevelError    Level = "ERROR"
	LevelCritical Level = "CRITICAL"
)

// ParseLevel matches a string against the closed level set, case-insensitively.
// Returns false for anything outside the set, including severity mnemonics
// like "warn" or "fatal" - mapping those is the normalizer's job.
func ParseLevel(s string) (Level, bool) {
	switch Level(strings.ToUpper(s)) {
	case LevelDebug:
		return LevelDebug, true
	case LevelInfo:
		return LevelInfo, true
	case LevelWarning:
		return LevelWarning, true
	case LevelError:
		return LevelError, true
	case LevelCritical:
		return LevelCritical, true
	}
	return "", false
}

// Valid reports whether l belongs to the closed level set.
func (l Level) Valid() bool {
	_, ok := ParseLevel(string(l))
	return ok
}
