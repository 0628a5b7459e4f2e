// FILE: src/internal/reader/reader.go
package reader

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"unicode/utf8"

	"logsieve/src/internal/config"
	"logsieve/src/internal/core"

	"github.com/lixenwraith/log"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

// Format identifies how a log file is structured on disk.
type Format string

const (
	FormatText    Format = "text"
	FormatCSV     Format = "csv"
	FormatJSON    Format = "json"
	FormatJSONL   Format = "jsonl"
	FormatUnknown Format = "unknown"
)

// encodingProbeSize is how much of the file the encoding probe inspects.
const encodingProbeSize = 1024

// Reader streams raw lines or structured records from a single log file.
// Format is classified from the file extension at construction, encoding by
// trial-decoding the first 1KB. Each call to Read reopens the file, so the
// stream is restartable.
type Reader struct {
	path     string
	format   Format
	encoding string
	opts     config.ParsingConfig
	logger   *log.Logger

	// Statistics
	recordsRead    atomic.Uint64
	recordsSkipped atomic.Uint64
	decodeErrors   atomic.Uint64
}

// Stats is a snapshot of the reader's running counters.
type Stats struct {
	RecordsRead    uint64
	RecordsSkipped uint64
	DecodeErrors   uint64
}

// New constructs a reader for path. Fails immediately if the path does not
// exist or cannot be opened.
func New(path string, opts config.ParsingConfig, logger *log.Logger) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, core.NewError(core.KindResource, err, "cannot open %s", path)
	}
	defer f.Close()

	r := &Reader{
		path:   path,
		format: DetectFormat(path),
		opts:   opts,
		logger: logger,
	}

	if opts.Encoding != "" {
		r.encoding = opts.Encoding
	} else {
		r.encoding = probeEncoding(f)
	}

	logger.Debug("msg", "Reader initialized",
		"component", "reader",
		"path", path,
		"format", string(r.format),
		"encoding", r.encoding)

	return r, nil
}

// DetectFormat classifies a path by its extension, case-insensitively.
func DetectFormat(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".log", ".txt":
		return FormatText
	case ".csv":
		return FormatCSV
	case ".json":
		return FormatJSON
	case ".jsonl":
		return FormatJSONL
	default:
		return FormatUnknown
	}
}

// Format returns the classified file format.
func (r *Reader) Format() Format { return r.format }

// Encoding returns the detected or configured text encoding name.
func (r *Reader) Encoding() string { return r.encoding }

// Path returns the file path the reader was constructed from.
func (r *Reader) Path() string { return r.path }

// Stats returns a snapshot of the running counters.
func (r *Reader) Stats() Stats {
	return Stats{
		RecordsRead:    r.recordsRead.Load(),
		RecordsSkipped: r.recordsSkipped.Load(),
		DecodeErrors:   r.decodeErrors.Load(),
	}
}

// ResetStats zeroes the running counters.
func (r *Reader) ResetStats() {
	r.recordsRead.Store(0)
	r.recordsSkipped.Store(0)
	r.decodeErrors.Store(0)
}

// Read opens the file and returns a lazy, single-pass, forward-only stream
// of records. An unknown format fails here, not at construction. The caller
// owns the stream and must drain or Close it; abandoning it after Close is
// always safe.
func (r *Reader) Read() (*Stream, error) {
	if r.format == FormatUnknown {
		return nil, core.NewError(core.KindUnsupportedFormat, nil,
			"unsupported file format: %s", filepath.Ext(r.path))
	}

	f, err := os.Open(r.path)
	if err != nil {
		return nil, core.NewError(core.KindResource, err, "cannot open %s", r.path)
	}

	return newStream(r, f), nil
}

// probeEncoding trial-decodes the first 1KB against the ordered candidate
// list and keeps the first clean decode. Single-byte charmaps decode any
// byte sequence, so in practice utf-8 wins for valid utf-8 input and
// latin-1 catches the rest; the full ladder is kept so a future candidate
// with stricter validation slots in unchanged.
func probeEncoding(f *os.File) string {
	buf := make([]byte, encodingProbeSize)
	n, err := f.Read(buf)
	if err != nil && err != io.EOF {
		return "utf-8"
	}
	buf = buf[:n]

	for _, name := range []string{"utf-8", "latin-1", "cp1252", "iso-8859-1"} {
		if decodesCleanly(buf, name) {
			return name
		}
	}
	return "utf-8"
}

func decodesCleanly(buf []byte, name string) bool {
	switch name {
	case "utf-8":
		// Tolerate a rune split by the probe window
		trimmed := buf
		for len(trimmed) > 0 && !utf8.Valid(trimmed) {
			last, _ := utf8.DecodeLastRune(trimmed)
			if last != utf8.RuneError {
				break
			}
			trimmed = trimmed[:len(trimmed)-1]
			if len(buf)-len(trimmed) > utf8.UTFMax {
				return false
			}
		}
		return utf8.Valid(trimmed)
	case "latin-1", "cp1252", "iso-8859-1":
		// Single-byte charmaps accept every byte
		return true
	default:
		return false
	}
}

// decoderFor maps an encoding name to its decoder. Unknown names and utf-8
// both get the utf-8 decoder, which substitutes U+FFFD for undecodable
// bytes rather than failing.
func decoderFor(name string) *encoding.Decoder {
	switch name {
	case "latin-1", "iso-8859-1":
		return charmap.ISO8859_1.NewDecoder()
	case "cp1252":
		return charmap.Windows1252.NewDecoder()
	default:
		return unicode.UTF8.NewDecoder()
	}
}

// StringifyRecord renders a structured record as compact JSON for use as a
// raw message. Keys come out in encoding/json's sorted order so the form is
// stable across runs.
func StringifyRecord(data map[string]any) string {
	b, err := json.Marshal(data)
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(b)
}
