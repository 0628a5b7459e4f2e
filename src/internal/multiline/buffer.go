// FILE: src/internal/multiline/buffer.go
package multiline

import (
	"regexp"
	"strings"
	"time"
)

// Buffer coalesces a start line and its continuation lines into one logical
// block. A two-state machine: idle while nothing is buffered, buffering
// once a start pattern matched. Not safe for concurrent use.
type Buffer struct {
	enabled bool

	startPatterns    []*regexp.Regexp
	continuePatterns []*regexp.Regexp

	buffer    []string
	startedAt time.Time
}

// Result reports what Feed did with a line. When a block flushes, the line
// that triggered the flush was not part of the block: Consumed is false and
// the caller re-dispatches the line through its normal single-line path.
type Result struct {
	// Block is the coalesced text, joined by single newlines. Empty unless
	// Flushed.
	Block   string
	Flushed bool

	// Consumed is true when the line was absorbed by the buffer and needs
	// no further handling.
	Consumed bool
}

// DefaultStartPatterns matches lines that open a multiline block.
func DefaultStartPatterns() []*regexp.Regexp {
	return []*regexp.Regexp{
		regexp.MustCompile(`^Traceback \(most recent call last\):`),
		regexp.MustCompile(`^Exception in thread ".+"`),
	}
}

// DefaultContinuePatterns matches indented and stack-frame lines.
func DefaultContinuePatterns() []*regexp.Regexp {
	return []*regexp.Regexp{
		regexp.MustCompile(`^\s+`),
		regexp.MustCompile(`^\s+at `),
		regexp.MustCompile(`^\s+File "`),
	}
}

// New creates a buffer with the given matchers. Nil slices select the
// defaults. A disabled buffer passes every line through untouched.
func New(enabled bool, start, cont []*regexp.Regexp) *Buffer {
	if start == nil {
		start = DefaultStartPatterns()
	}
	if cont == nil {
		cont = DefaultContinuePatterns()
	}
	return &Buffer{
		enabled:          enabled,
		startPatterns:    start,
		continuePatterns: cont,
	}
}

// Enabled reports whether the buffer is coalescing at all.
func (b *Buffer) Enabled() bool { return b.enabled }

// Pending reports whether lines are buffered awaiting continuation.
func (b *Buffer) Pending() bool { return len(b.buffer) > 0 }

// Feed runs one line through the state machine.
func (b *Buffer) Feed(line string) Result {
	if !b.enabled {
		return Result{}
	}

	if b.shouldStart(line) {
		b.push(line)
		return Result{Consumed: true}
	}

	if b.Pending() {
		if b.shouldContinue(line) {
			b.push(line)
			return Result{Consumed: true}
		}
		// The non-continuation line ends the block but is not part of it;
		// the caller handles it separately.
		return Result{Block: b.flush(), Flushed: true}
	}

	return Result{}
}

// Flush returns the pending block, if any, and resets to idle. Called at
// end of stream so a trailing block is not lost.
func (b *Buffer) Flush() (string, bool) {
	if !b.Pending() {
		return "", false
	}
	return b.flush(), true
}

func (b *Buffer) shouldStart(line string) bool {
	for _, p := range b.startPatterns {
		if p.MatchString(line) {
			return true
		}
	}
	return false
}

func (b *Buffer) shouldContinue(line string) bool {
	for _, p := range b.continuePatterns {
		if p.MatchString(line) {
			return true
		}
	}
	return false
}

func (b *Buffer) push(line string) {
	if len(b.buffer) == 0 {
		b.startedAt = time.Now()
	}
	b.buffer = append(b.buffer, line)
}

func (b *Buffer) flush() string {
	text := strings.Join(b.buffer, "\n")
	b.buffer = b.buffer[:0]
	b.startedAt = time.Time{}
	return text
}
