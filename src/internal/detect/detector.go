// FILE: src/internal/detect/detector.go
package detect

import (
	"sync/atomic"

	"logsieve/src/internal/core"
)

// Detector turns one line into a candidate event. A nil return from Detect
// is a miss, not an error: the line simply produced nothing. Flush is the
// hook for variants that need end-of-stream emission. Variants are selected
// by explicit construction, never by runtime type inspection.
type Detector interface {
	Detect(line string) *core.Event
	Flush() *core.Event
	Stats() Stats
	ResetStats()
}

// Stats is a snapshot of a detector's running counters.
type Stats struct {
	Processed uint64
	Matched   uint64
	Failed    uint64
}

// counters is the shared stats implementation embedded by variants.
type counters struct {
	processed atomic.Uint64
	matched   atomic.Uint64
	failed    atomic.Uint64
}

func (c *counters) Stats() Stats {
	return Stats{
		Processed: c.processed.Load(),
		Matched:   c.matched.Load(),
		Failed:    c.failed.Load(),
	}
}

func (c *counters) ResetStats() {
	c.processed.Store(0)
	c.matched.Store(0)
	c.failed.Store(0)
}
