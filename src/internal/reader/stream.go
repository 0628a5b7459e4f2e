// FILE: src/internal/reader/stream.go
package reader

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"errors"
	"io"
	"os"
	"strings"

	"logsieve/src/internal/core"
)

// Record is one item pulled from a stream: a stripped text line, or a
// structured field mapping for csv/json/jsonl input. Exactly one of the two
// shapes is populated.
type Record struct {
	Text       string
	Data       map[string]any
	LineNumber int
}

// Structured reports whether the record carries a field mapping.
func (r Record) Structured() bool { return r.Data != nil }

// Stream is a forward-only iterator over a file's records. Usage follows
// the rows contract: Next advances, Record returns the current item, Err
// reports the terminal failure after Next returns false. The underlying
// file handle is released when the stream is exhausted or Closed.
type Stream struct {
	r    *Reader
	file *os.File

	scanner *bufio.Scanner
	csvr    *csv.Reader
	header  []string
	jsonBuf []any // pre-decoded records for whole-file json
	jsonPos int

	mode   Format
	cur    Record
	lineNo int
	err    error
	closed bool
}

func newStream(r *Reader, f *os.File) *Stream {
	s := &Stream{r: r, file: f, mode: r.format}

	decoded := decoderFor(r.encoding).Reader(f)

	switch r.format {
	case FormatText, FormatJSONL:
		sc := bufio.NewScanner(decoded)
		sc.Buffer(make([]byte, int(r.opts.BufferSize)), scannerMaxLine)
		s.scanner = sc
	case FormatCSV:
		s.csvr = csv.NewReader(decoded)
		s.csvr.FieldsPerRecord = 0
	case FormatJSON:
		s.prepareJSON(decoded)
	}

	return s
}

// scannerMaxLine caps a single physical line. Larger lines surface as a
// terminal decode failure rather than silent truncation.
const scannerMaxLine = 1 * 1024 * 1024

// Next advances to the next record. It returns false at end of input or on
// a terminal failure; Err distinguishes the two.
func (s *Stream) Next() bool {
	if s.err != nil || s.closed {
		return false
	}

	var ok bool
	switch s.mode {
	case FormatText:
		ok = s.nextText()
	case FormatCSV:
		ok = s.nextCSV()
	case FormatJSON:
		ok = s.nextJSON()
	case FormatJSONL:
		ok = s.nextJSONL()
	}

	if !ok {
		s.Close()
	}
	return ok
}

// Record returns the item produced by the last successful Next.
func (s *Stream) Record() Record { return s.cur }

// Err returns the terminal failure, or nil after a clean end of input.
func (s *Stream) Err() error { return s.err }

// Close releases the file handle. Safe to call more than once and safe to
// call before exhaustion: early termination by the consumer needs no other
// cleanup.
func (s *Stream) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.file.Close()
}

func (s *Stream) nextText() bool {
	for s.scanner.Scan() {
		s.lineNo++
		text := strings.TrimRight(s.scanner.Text(), " \t\r\n")
		if text == "" {
			s.r.recordsSkipped.Add(1)
			continue
		}
		s.r.recordsRead.Add(1)
		s.cur = Record{Text: text, LineNumber: s.lineNo}
		return true
	}
	if err := s.scanner.Err(); err != nil {
		s.err = core.NewError(core.KindDecode, err, "failed to read text file: %s", s.r.path)
	}
	return false
}

func (s *Stream) nextCSV() bool {
	for {
		if s.header == nil {
			hdr, err := s.csvr.Read()
			if err == io.EOF {
				return false
			}
			if err != nil {
				s.err = core.NewError(core.KindDecode, err, "failed to read CSV file: %s", s.r.path)
				return false
			}
			s.header = hdr
			continue
		}

		s.lineNo++
		row, err := s.csvr.Read()
		if err == io.EOF {
			return false
		}
		if err != nil {
			// Row-level shape problems are skipped; anything else aborts
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				s.r.decodeErrors.Add(1)
				s.r.recordsSkipped.Add(1)
				s.r.logger.Debug("msg", "CSV row parse error",
					"component", "reader",
					"path", s.r.path,
					"line", s.lineNo,
					"error", err)
				continue
			}
			s.err = core.NewError(core.KindDecode, err, "failed to read CSV file: %s", s.r.path)
			return false
		}

		data := make(map[string]any, len(s.header))
		for i, name := range s.header {
			if i < len(row) {
				data[name] = row[i]
			}
		}
		s.r.recordsRead.Add(1)
		s.cur = Record{Data: data, LineNumber: s.lineNo}
		return true
	}
}

// prepareJSON decodes the whole file up front. If that fails the stream
// falls back to line-by-line JSONL parsing over a fresh handle.
func (s *Stream) prepareJSON(decoded io.Reader) {
	raw, err := io.ReadAll(decoded)
	if err != nil {
		s.err = core.NewError(core.KindDecode, err, "failed to read JSON file: %s", s.r.path)
		return
	}

	var value any
	if err := json.Unmarshal(raw, &value); err != nil {
		s.r.logger.Info("msg", "JSON decode failed, falling back to JSONL",
			"component", "reader",
			"path", s.r.path)
		s.fallbackToJSONL()
		return
	}

	switch v := value.(type) {
	case []any:
		s.jsonBuf = v
	default:
		s.jsonBuf = []any{v}
	}
}

func (s *Stream) fallbackToJSONL() {
	f, err := os.Open(s.r.path)
	if err != nil {
		s.err = core.NewError(core.KindResource, err, "cannot reopen %s", s.r.path)
		return
	}
	s.file.Close()
	s.file = f
	s.mode = FormatJSONL
	sc := bufio.NewScanner(decoderFor(s.r.encoding).Reader(f))
	sc.Buffer(make([]byte, int(s.r.opts.BufferSize)), scannerMaxLine)
	s.scanner = sc
}

func (s *Stream) nextJSON() bool {
	for s.jsonPos < len(s.jsonBuf) {
		item := s.jsonBuf[s.jsonPos]
		s.jsonPos++
		s.lineNo++
		s.r.recordsRead.Add(1)
		if m, ok := item.(map[string]any); ok {
			s.cur = Record{Data: m, LineNumber: s.lineNo}
		} else {
			text, _ := json.Marshal(item)
			s.cur = Record{Text: string(text), LineNumber: s.lineNo}
		}
		return true
	}
	return false
}

func (s *Stream) nextJSONL() bool {
	for s.scanner.Scan() {
		s.lineNo++
		raw := strings.TrimSpace(s.scanner.Text())
		if raw == "" {
			s.r.recordsSkipped.Add(1)
			continue
		}

		var value any
		if err := json.Unmarshal([]byte(raw), &value); err != nil {
			s.r.decodeErrors.Add(1)
			s.r.recordsSkipped.Add(1)
			s.r.logger.Debug("msg", "JSONL parse error",
				"component", "reader",
				"path", s.r.path,
				"line", s.lineNo,
				"error", err)
			continue
		}

		s.r.recordsRead.Add(1)
		// Any well-formed JSON value is a record; only objects carry fields
		if m, ok := value.(map[string]any); ok {
			s.cur = Record{Data: m, LineNumber: s.lineNo}
		} else {
			text, _ := json.Marshal(value)
			s.cur = Record{Text: string(text), LineNumber: s.lineNo}
		}
		return true
	}
	if err := s.scanner.Err(); err != nil {
		s.err = core.NewError(core.KindDecode, err, "failed to read JSONL file: %s", s.r.path)
	}
	return false
}
