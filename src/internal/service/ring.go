// FILE: src/internal/service/ring.go
package service

import (
	"sync"

	"logsieve/src/internal/core"
)

// EventRing is a fixed-capacity buffer holding the most recent events.
// Oldest entries are overwritten once the ring is full.
type EventRing struct {
	mu     sync.RWMutex
	events []*core.Event
	next   int
	full   bool
}

func NewEventRing(capacity int) *EventRing {
	if capacity < 1 {
		capacity = 1
	}
	return &EventRing{
		events: make([]*core.Event, capacity),
	}
}

// Append stores an event, evicting the oldest when full.
func (r *EventRing) Append(event *core.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.events[r.next] = event
	r.next++
	if r.next == len(r.events) {
		r.next = 0
		r.full = true
	}
}

// Snapshot returns up to limit events, oldest first. A limit of 0 or
// less returns everything.
func (r *EventRing) Snapshot(limit int) []*core.Event {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*core.Event
	if r.full {
		out = append(out, r.events[r.next:]...)
		out = append(out, r.events[:r.next]...)
	} else {
		out = append(out, r.events[:r.next]...)
	}

	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out
}

// Len returns the number of stored events.
func (r *EventRing) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.full {
		return len(r.events)
	}
	return r.next
}
