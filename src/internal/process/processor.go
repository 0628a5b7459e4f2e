// FILE: src/internal/process/processor.go
package process

import (
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"logsieve/src/internal/config"
	"logsieve/src/internal/core"
	"logsieve/src/internal/detect"
	"logsieve/src/internal/multiline"
	"logsieve/src/internal/normalize"
	"logsieve/src/internal/reader"

	"github.com/lixenwraith/log"
)

// Normalizer is what the processor needs from a normalizer. Satisfied by
// *normalize.Normalizer; tests substitute their own.
type Normalizer interface {
	Normalize(event *core.Event) error
	Stats() normalize.Stats
	ResetStats()
}

// Processor orchestrates reader, optional detection and normalization into
// a canonical event stream. A failure on one record is caught here, counted
// and logged, and the stream continues: partial-failure isolation is
// guaranteed only at this boundary. Reader-level failures (file missing,
// unknown format, a mid-file text/csv decode error) still terminate the
// stream and surface to the caller.
type Processor struct {
	normalizer Normalizer
	detector   detect.Detector // nil = no detection pass
	buffer     *multiline.Buffer
	cfg        config.ParsingConfig
	detection  config.DetectionConfig
	logger     *log.Logger

	// Input origin registry, keyed by file path or surface name
	sources      map[string]*core.LogSource
	sourceMu     sync.Mutex
	nextSourceID int64

	// Statistics
	events     atomic.Uint64
	normalized atomic.Uint64
	failed     atomic.Uint64
	startedAt  atomic.Value // time.Time
}

// Stats bundles the processor's counters with a nested view of the
// normalizer's own.
type Stats struct {
	Events     uint64
	Normalized uint64
	Failed     uint64
	StartedAt  time.Time

	Normalizer normalize.Stats
}

// Option tweaks a processor at construction.
type Option func(*Processor)

// WithDetector routes text lines through a detector (and the multiline
// buffer, when enabled) instead of wrapping them directly.
func WithDetector(d detect.Detector, buf *multiline.Buffer) Option {
	return func(p *Processor) {
		p.detector = d
		p.buffer = buf
	}
}

// New creates a processor. A nil normalizer gets a fresh default instance;
// shared instances are passed in explicitly, never pulled from a global.
func New(normalizer Normalizer, parsing config.ParsingConfig, detection config.DetectionConfig, logger *log.Logger, opts ...Option) *Processor {
	p := &Processor{
		normalizer: normalizer,
		cfg:        parsing,
		detection:  detection,
		logger:     logger,
		sources:    make(map[string]*core.LogSource),
	}
	if p.normalizer == nil {
		p.normalizer = normalize.New(logger)
	}
	p.startedAt.Store(time.Time{})
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// EventStream is a pull-based iterator over canonical events, following the
// same rows contract as the reader: Next / Event / Err.
type EventStream struct {
	p       *Processor
	stream  *reader.Stream
	rd      *reader.Reader
	src     *core.LogSource
	pending []*core.Event
	cur     *core.Event
	err     error
	drained bool
}

// ProcessFile opens path and returns a lazy stream of normalized events.
// Construction fails for a missing file or unsupported format.
func (p *Processor) ProcessFile(path string) (*EventStream, error) {
	rd, err := reader.New(path, p.cfg, p.logger)
	if err != nil {
		return nil, err
	}

	stream, err := rd.Read()
	if err != nil {
		return nil, err
	}

	p.startedAt.Store(time.Now().UTC())

	src := p.registerSource(path, filepath.Base(path), path, "file", rd.Encoding())

	return &EventStream{p: p, stream: stream, rd: rd, src: src}, nil
}

// registerSource returns the canonical origin record for key, creating it
// on first use.
func (p *Processor) registerSource(key, name, path, sourceType, encoding string) *core.LogSource {
	p.sourceMu.Lock()
	defer p.sourceMu.Unlock()

	if src, ok := p.sources[key]; ok {
		src.Touch()
		return src
	}

	p.nextSourceID++
	src := core.NewLogSource(p.nextSourceID, name, path, sourceType)
	if encoding != "" {
		src.Encoding = encoding
	}
	p.sources[key] = src
	return src
}

// Sources returns a snapshot of the registered input origins, ordered by
// ID. Copies are returned so callers never observe a concurrent Touch.
func (p *Processor) Sources() []core.LogSource {
	p.sourceMu.Lock()
	defer p.sourceMu.Unlock()

	out := make([]core.LogSource, 0, len(p.sources))
	for _, src := range p.sources {
		out = append(out, *src)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// touchSource updates a source's modification time. All LogSource writes
// happen under sourceMu; readers go through the Sources snapshot.
func (p *Processor) touchSource(src *core.LogSource) {
	p.sourceMu.Lock()
	src.Touch()
	p.sourceMu.Unlock()
}

// Next advances to the next canonical event.
func (s *EventStream) Next() bool {
	for {
		if len(s.pending) > 0 {
			s.cur = s.pending[0]
			s.pending = s.pending[1:]
			return true
		}

		if s.drained {
			return false
		}

		if !s.stream.Next() {
			s.err = s.stream.Err()
			s.drained = true
			// End of input: a buffered multiline block and any detector
			// state still need to drain.
			s.flushTail()
			continue
		}

		rec := s.stream.Record()
		for _, event := range s.p.consume(rec) {
			if out := s.p.finish(event, s.src, s.rd.Path(), rec.LineNumber); out != nil {
				s.pending = append(s.pending, out)
			}
		}
	}
}

// Event returns the event produced by the last successful Next.
func (s *EventStream) Event() *core.Event { return s.cur }

// Err returns the terminal failure, or nil after a clean end of input.
func (s *EventStream) Err() error { return s.err }

// Close releases the underlying file handle.
func (s *EventStream) Close() error { return s.stream.Close() }

// ProcessLine runs a single line through detection and normalization,
// outside of any file stream. Used by the network ingest surfaces. The
// multiline buffer is bypassed since lines arrive independently.
func (p *Processor) ProcessLine(line, source string) *core.Event {
	var event *core.Event
	if p.detector != nil {
		event = p.detectLine(line)
		if event == nil {
			return nil
		}
	} else {
		event = core.NewEvent()
		event.RawMessage = line
	}

	surface, sourceType := source, "stream"
	if i := strings.Index(source, ":"); i > 0 {
		surface = source[:i]
	}
	if surface == "tcp" {
		sourceType = "socket"
	}
	src := p.registerSource(surface, surface, "", sourceType, "")

	return p.finish(event, src, source, 0)
}

// consume turns one raw record into zero or more candidate events, before
// normalization.
func (p *Processor) consume(rec reader.Record) []*core.Event {
	if rec.Structured() {
		event := core.NewEvent()
		event.RawMessage = reader.StringifyRecord(rec.Data)
		event.StructuredData = rec.Data
		return []*core.Event{event}
	}

	if p.detector == nil {
		event := core.NewEvent()
		event.RawMessage = rec.Text
		return []*core.Event{event}
	}

	var out []*core.Event

	line := rec.Text
	if p.buffer != nil && p.buffer.Enabled() {
		res := p.buffer.Feed(line)
		if res.Flushed {
			if event := p.detectLine(res.Block); event != nil {
				out = append(out, event)
			}
			// The triggering line was not part of the block; it goes
			// through the normal single-line path below.
		} else if res.Consumed {
			return out
		}
	}

	if event := p.detectLine(line); event != nil {
		out = append(out, event)
	}
	return out
}

// detectLine runs the detector and applies the confidence floor.
func (p *Processor) detectLine(line string) *core.Event {
	event := p.detector.Detect(line)
	if event == nil {
		return nil
	}
	if event.Confidence < p.detection.MinConfidence {
		p.logger.Debug("msg", "Event below confidence floor",
			"component", "processor",
			"confidence", event.Confidence,
			"min_confidence", p.detection.MinConfidence)
		return nil
	}
	return event
}

// finish normalizes one candidate event, converting a normalization
// failure into a skip.
func (p *Processor) finish(event *core.Event, src *core.LogSource, path string, lineNumber int) *core.Event {
	event.FileName = path
	if event.LineNumber == 0 {
		event.LineNumber = lineNumber
	}
	if src != nil {
		event.SourceID = &src.ID
		p.touchSource(src)
	}

	p.events.Add(1)

	if err := p.normalizer.Normalize(event); err != nil {
		p.failed.Add(1)
		p.logger.Debug("msg", "Failed to normalize event",
			"component", "processor",
			"file", path,
			"line", lineNumber,
			"error", err)
		return nil
	}

	p.normalized.Add(1)
	return event
}

// flushTail drains the multiline buffer and detector at end of stream.
func (s *EventStream) flushTail() {
	if s.p.detector == nil {
		return
	}

	if s.p.buffer != nil {
		if block, ok := s.p.buffer.Flush(); ok {
			if event := s.p.detectLine(block); event != nil {
				if out := s.p.finish(event, s.src, s.rd.Path(), 0); out != nil {
					s.pending = append(s.pending, out)
				}
			}
		}
	}

	if event := s.p.detector.Flush(); event != nil {
		if out := s.p.finish(event, s.src, s.rd.Path(), 0); out != nil {
			s.pending = append(s.pending, out)
		}
	}
}

// Stats returns the processor's counters plus the nested normalizer view.
func (p *Processor) Stats() Stats {
	startedAt, _ := p.startedAt.Load().(time.Time)
	return Stats{
		Events:     p.events.Load(),
		Normalized: p.normalized.Load(),
		Failed:     p.failed.Load(),
		StartedAt:  startedAt,
		Normalizer: p.normalizer.Stats(),
	}
}

// ResetStats zeroes the processor's and the normalizer's counters.
func (p *Processor) ResetStats() {
	p.events.Store(0)
	p.normalized.Store(0)
	p.failed.Store(0)
	p.normalizer.ResetStats()
}
