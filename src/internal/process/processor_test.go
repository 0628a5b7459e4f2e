// FILE: src/internal/process/processor_test.go
package process

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"logsieve/src/internal/config"
	"logsieve/src/internal/core"
	"logsieve/src/internal/detect"
	"logsieve/src/internal/multiline"
	"logsieve/src/internal/normalize"

	"github.com/lixenwraith/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger() *log.Logger {
	return log.NewLogger()
}

func testParsing() config.ParsingConfig {
	return config.ParsingConfig{BufferSize: 8192}
}

func testDetection() config.DetectionConfig {
	return config.DetectionConfig{
		Enabled:         true,
		MinConfidence:   0.3,
		EnableMultiline: true,
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// failingNormalizer fails on selected invocations to exercise per-record
// fault isolation.
type failingNormalizer struct {
	inner  *normalize.Normalizer
	calls  int
	failOn map[int]bool
}

func (f *failingNormalizer) Normalize(event *core.Event) error {
	f.calls++
	if f.failOn[f.calls] {
		return fmt.Errorf("synthetic failure on record %d", f.calls)
	}
	return f.inner.Normalize(event)
}

func (f *failingNormalizer) Stats() normalize.Stats { return f.inner.Stats() }
func (f *failingNormalizer) ResetStats()            { f.inner.ResetStats() }

func TestProcessFile_FaultIsolation(t *testing.T) {
	logger := newTestLogger()
	path := writeFile(t, "app.log", "line one\nline two\nline three\n")

	norm := &failingNormalizer{
		inner:  normalize.New(logger),
		failOn: map[int]bool{2: true},
	}
	p := New(norm, testParsing(), testDetection(), logger)

	stream, err := p.ProcessFile(path)
	require.NoError(t, err)
	defer stream.Close()

	var events []*core.Event
	for stream.Next() {
		events = append(events, stream.Event())
	}
	require.NoError(t, stream.Err())

	// One record failed normalization; the stream kept going
	assert.Len(t, events, 2)
	assert.Equal(t, "line one", events[0].RawMessage)
	assert.Equal(t, "line three", events[1].RawMessage)

	stats := p.Stats()
	assert.Equal(t, uint64(3), stats.Events)
	assert.Equal(t, uint64(1), stats.Failed)
	assert.Equal(t, uint64(2), stats.Normalized)
}

func TestProcessFile_PlainLines(t *testing.T) {
	logger := newTestLogger()
	path := writeFile(t, "app.log", "first\nsecond\n")

	p := New(nil, testParsing(), testDetection(), logger)

	stream, err := p.ProcessFile(path)
	require.NoError(t, err)
	defer stream.Close()

	var events []*core.Event
	for stream.Next() {
		events = append(events, stream.Event())
	}
	require.NoError(t, stream.Err())

	require.Len(t, events, 2)
	assert.Equal(t, "first", events[0].RawMessage)
	assert.Equal(t, path, events[0].FileName)
	assert.Equal(t, 1, events[0].LineNumber)
	assert.Equal(t, 2, events[1].LineNumber)
}

func TestProcessFile_WithDetector(t *testing.T) {
	logger := newTestLogger()
	content := `{"level": "ERROR", "message": "boom"}
2024-01-02T03:04:05 INFO started
nothing to see here
`
	path := writeFile(t, "app.log", content)

	detector, err := detect.NewHeuristic(nil, 0, logger)
	require.NoError(t, err)
	buffer := multiline.New(true, nil, nil)

	p := New(nil, testParsing(), testDetection(), logger,
		WithDetector(detector, buffer))

	stream, err := p.ProcessFile(path)
	require.NoError(t, err)
	defer stream.Close()

	var events []*core.Event
	for stream.Next() {
		events = append(events, stream.Event())
	}
	require.NoError(t, stream.Err())

	// The unmatched line is dropped by the detector
	require.Len(t, events, 2)
	assert.Equal(t, "json", events[0].EventType)
	assert.Equal(t, core.LevelError, events[0].Level)
	assert.Equal(t, "heuristic", events[1].EventType)

	dstats := detector.Stats()
	assert.Equal(t, uint64(3), dstats.Processed)
	assert.Equal(t, uint64(1), dstats.Failed)
}

func TestProcessFile_MultilineBlock(t *testing.T) {
	logger := newTestLogger()
	content := "Traceback (most recent call last):\n" +
		"  File \"app.py\", line 10, in main\n" +
		"  ValueError: ERROR in handler\n" +
		"2024-01-02T03:04:05 ERROR recovered\n"
	path := writeFile(t, "app.log", content)

	detector, err := detect.NewHeuristic(nil, 0, logger)
	require.NoError(t, err)
	buffer := multiline.New(true, nil, nil)

	p := New(nil, testParsing(), testDetection(), logger,
		WithDetector(detector, buffer))

	stream, err := p.ProcessFile(path)
	require.NoError(t, err)
	defer stream.Close()

	var events []*core.Event
	for stream.Next() {
		events = append(events, stream.Event())
	}
	require.NoError(t, stream.Err())

	// The flushing line is processed in its own right after the block
	require.Len(t, events, 2)
	assert.Contains(t, events[0].RawMessage, "Traceback")
	assert.Contains(t, events[0].RawMessage, "app.py")
	assert.Contains(t, events[1].RawMessage, "recovered")
}

func TestProcessFile_MultilineTailFlush(t *testing.T) {
	logger := newTestLogger()
	content := "Traceback (most recent call last):\n" +
		"  File \"app.py\", line 10, in main\n" +
		"  ValueError: ERROR in handler\n"
	path := writeFile(t, "app.log", content)

	detector, err := detect.NewHeuristic(nil, 0, logger)
	require.NoError(t, err)
	buffer := multiline.New(true, nil, nil)

	p := New(nil, testParsing(), testDetection(), logger,
		WithDetector(detector, buffer))

	stream, err := p.ProcessFile(path)
	require.NoError(t, err)
	defer stream.Close()

	var events []*core.Event
	for stream.Next() {
		events = append(events, stream.Event())
	}
	require.NoError(t, stream.Err())

	// The unterminated block drains at end of stream
	require.Len(t, events, 1)
	assert.Contains(t, events[0].RawMessage, "Traceback")
}

func TestProcessFile_ConfidenceFloor(t *testing.T) {
	logger := newTestLogger()
	path := writeFile(t, "app.log", "2024-01-02T03:04:05 INFO fine\n")

	detector, err := detect.NewHeuristic(nil, 0, logger)
	require.NoError(t, err)

	detection := testDetection()
	detection.MinConfidence = 0.95

	p := New(nil, testParsing(), detection, logger,
		WithDetector(detector, nil))

	stream, err := p.ProcessFile(path)
	require.NoError(t, err)
	defer stream.Close()

	count := 0
	for stream.Next() {
		count++
	}
	require.NoError(t, stream.Err())
	assert.Equal(t, 0, count, "heuristic confidence 0.6 is below the floor")
}

func TestProcessFile_StructuredRecords(t *testing.T) {
	logger := newTestLogger()
	content := `{"level": "INFO", "message": "structured"}
`
	path := writeFile(t, "events.jsonl", content)

	p := New(nil, testParsing(), testDetection(), logger)

	stream, err := p.ProcessFile(path)
	require.NoError(t, err)
	defer stream.Close()

	require.True(t, stream.Next())
	event := stream.Event()
	assert.True(t, event.IsStructured())
	assert.Equal(t, "structured", event.StructuredData["message"])
	assert.False(t, stream.Next())
	require.NoError(t, stream.Err())
}

func TestProcessFile_MissingFile(t *testing.T) {
	p := New(nil, testParsing(), testDetection(), newTestLogger())

	_, err := p.ProcessFile("/nonexistent/app.log")
	require.Error(t, err)
	assert.True(t, core.IsKind(err, core.KindResource))
}

func TestProcessLine(t *testing.T) {
	logger := newTestLogger()

	detector, err := detect.NewHeuristic(nil, 0, logger)
	require.NoError(t, err)

	p := New(nil, testParsing(), testDetection(), logger,
		WithDetector(detector, nil))

	event := p.ProcessLine(`{"level": "ERROR", "message": "net"}`, "tcp:10.0.0.1:9000")
	require.NotNil(t, event)
	assert.Equal(t, "json", event.EventType)
	assert.Equal(t, "tcp:10.0.0.1:9000", event.FileName)

	assert.Nil(t, p.ProcessLine("nothing matches", "tcp:10.0.0.1:9000"))

	stats := p.Stats()
	assert.Equal(t, uint64(1), stats.Events)
	assert.Equal(t, uint64(1), stats.Normalized)
}

func TestProcessor_ResetStats(t *testing.T) {
	logger := newTestLogger()
	path := writeFile(t, "app.log", "one\n")

	p := New(nil, testParsing(), testDetection(), logger)

	stream, err := p.ProcessFile(path)
	require.NoError(t, err)
	for stream.Next() {
	}
	stream.Close()

	p.ResetStats()
	stats := p.Stats()
	assert.Equal(t, uint64(0), stats.Events)
	assert.Equal(t, uint64(0), stats.Normalized)
	assert.Equal(t, uint64(0), stats.Failed)
}

func TestProcessor_SourceRegistry(t *testing.T) {
	logger := newTestLogger()
	path := writeFile(t, "app.log", "2024-01-02T03:04:05 INFO hello\n")

	detector, err := detect.NewHeuristic(nil, 0, logger)
	require.NoError(t, err)

	p := New(nil, testParsing(), testDetection(), logger,
		WithDetector(detector, nil))

	stream, err := p.ProcessFile(path)
	require.NoError(t, err)
	var events []*core.Event
	for stream.Next() {
		events = append(events, stream.Event())
	}
	stream.Close()

	require.Len(t, events, 1)
	require.NotNil(t, events[0].SourceID)

	sources := p.Sources()
	require.Len(t, sources, 1)
	assert.Equal(t, *events[0].SourceID, sources[0].ID)
	assert.Equal(t, "file", sources[0].SourceType)
	assert.Equal(t, path, sources[0].Path)

	// Network lines register one origin per surface
	event := p.ProcessLine(`{"level": "INFO", "message": "net"}`, "tcp:10.0.0.1:9000")
	require.NotNil(t, event)

	sources = p.Sources()
	require.Len(t, sources, 2)
	assert.Equal(t, "socket", sources[1].SourceType)
	assert.Equal(t, "tcp", sources[1].Name)

	// Re-processing the same file reuses its origin
	stream, err = p.ProcessFile(path)
	require.NoError(t, err)
	for stream.Next() {
	}
	stream.Close()
	assert.Len(t, p.Sources(), 2)
}

func TestProcessLine_Concurrent(t *testing.T) {
	logger := newTestLogger()

	detector, err := detect.NewHeuristic(nil, 0, logger)
	require.NoError(t, err)

	p := New(nil, testParsing(), testDetection(), logger,
		WithDetector(detector, nil))

	// Network surfaces call ProcessLine from multiple goroutines; the
	// race detector must stay quiet over the shared source registry.
	const workers = 4
	const linesPerWorker = 50

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < linesPerWorker; i++ {
				p.ProcessLine(`{"level": "INFO", "message": "net"}`, "tcp:10.0.0.1:9000")
			}
		}()
	}
	wg.Wait()

	stats := p.Stats()
	assert.Equal(t, uint64(workers*linesPerWorker), stats.Events)
	assert.Equal(t, uint64(workers*linesPerWorker), stats.Normalized)
	require.Len(t, p.Sources(), 1)
}
