// FILE: src/internal/core/source.go
package core

import "time"

// LogSource describes where logs originate. Not part of the streaming path
// itself - it is the canonical record of an input origin that an event's
// SourceID may reference.
type LogSource struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	Path       string `json:"path"`
	SourceType string `json:"source_type"` // file, stream, syslog, socket

	Encoding string `json:"encoding"`
	Enabled  bool   `json:"enabled"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewLogSource creates an enabled utf-8 source with both timestamps set.
func NewLogSource(id int64, name, path, sourceType string) *LogSource {
	now := time.Now().UTC()
	return &LogSource{
		ID:         id,
		Name:       name,
		Path:       path,
		SourceType: sourceType,
		Encoding:   "utf-8",
		Enabled:    true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// Touch updates the modification timestamp.
func (s *LogSource) Touch() {
	s.UpdatedAt = time.Now().UTC()
}
