// FILE: src/internal/source/tcp.go
package source

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"logsieve/src/internal/config"
	"logsieve/src/internal/core"
	"logsieve/src/internal/limit"
	"logsieve/src/internal/process"

	"github.com/lixenwraith/log"
	"github.com/lixenwraith/log/compat"
	"github.com/panjf2000/gnet/v2"
)

const (
	maxClientBufferSize = 10 * 1024 * 1024 // 10MB max per client
	maxLineLength       = 1 * 1024 * 1024  // 1MB max per log line
)

// Sink receives the events a source produces.
type Sink func(*core.Event)

// TCPSource accepts newline-delimited log lines over TCP and runs each
// through the processor.
type TCPSource struct {
	host       string
	port       int64
	processor  *process.Processor
	sink       Sink
	server     *tcpServer
	done       chan struct{}
	engine     *gnet.Engine
	engineMu   sync.Mutex
	wg         sync.WaitGroup
	netLimiter *limit.NetLimiter
	logger     *log.Logger

	// Statistics
	totalLines    atomic.Uint64
	droppedLines  atomic.Uint64
	invalidLines  atomic.Uint64
	activeConns   atomic.Int64
	startTime     time.Time
	lastLineTime  atomic.Value // time.Time
}

// Stats is a point-in-time view of the source counters.
type Stats struct {
	TotalLines        uint64
	DroppedLines      uint64
	InvalidLines      uint64
	ActiveConnections int64
	StartTime         time.Time
	LastLineTime      time.Time
}

// NewTCP creates a TCP line-ingest source. Events that survive the
// pipeline are handed to sink.
func NewTCP(cfg *config.IngestConfig, processor *process.Processor, sink Sink, logger *log.Logger) (*TCPSource, error) {
	if cfg == nil {
		return nil, fmt.Errorf("ingest options cannot be nil")
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return nil, fmt.Errorf("tcp source requires valid port, got %d", cfg.Port)
	}
	if processor == nil {
		return nil, fmt.Errorf("processor cannot be nil")
	}
	if sink == nil {
		sink = func(*core.Event) {}
	}

	host := cfg.Host
	if host == "" {
		host = "0.0.0.0"
	}

	t := &TCPSource{
		host:      host,
		port:      cfg.Port,
		processor: processor,
		sink:      sink,
		done:      make(chan struct{}),
		startTime: time.Now(),
		logger:    logger,
	}
	t.lastLineTime.Store(time.Time{})

	if cfg.NetLimit != nil && cfg.NetLimit.Enabled {
		t.netLimiter = limit.NewNetLimiter(cfg.NetLimit, logger)
	}

	return t, nil
}

func (t *TCPSource) Start() error {
	t.server = &tcpServer{
		source:  t,
		clients: make(map[gnet.Conn]*tcpClient),
	}

	addr := fmt.Sprintf("tcp://%s:%d", t.host, t.port)

	gnetLogger := compat.NewGnetAdapter(t.logger)

	errChan := make(chan error, 1)
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		t.logger.Info("msg", "TCP ingest server starting",
			"component", "tcp_source",
			"port", t.port)

		err := gnet.Run(t.server, addr,
			gnet.WithLogger(gnetLogger),
			gnet.WithMulticore(true),
			gnet.WithReusePort(true),
		)
		if err != nil {
			t.logger.Error("msg", "TCP ingest server failed",
				"component", "tcp_source",
				"port", t.port,
				"error", err)
		}
		errChan <- err
	}()

	// Wait briefly for server to start or fail
	select {
	case err := <-errChan:
		close(t.done)
		t.wg.Wait()
		return err
	case <-time.After(100 * time.Millisecond):
		t.logger.Info("msg", "TCP ingest server started", "port", t.port)
		return nil
	}
}

func (t *TCPSource) Stop() {
	t.logger.Info("msg", "Stopping TCP ingest source")
	close(t.done)

	t.engineMu.Lock()
	engine := t.engine
	t.engineMu.Unlock()

	if engine != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		(*engine).Stop(ctx)
	}

	t.wg.Wait()

	t.logger.Info("msg", "TCP ingest source stopped")
}

// GetStats returns the source counters.
func (t *TCPSource) GetStats() Stats {
	lastLine, _ := t.lastLineTime.Load().(time.Time)

	return Stats{
		TotalLines:        t.totalLines.Load(),
		DroppedLines:      t.droppedLines.Load(),
		InvalidLines:      t.invalidLines.Load(),
		ActiveConnections: t.activeConns.Load(),
		StartTime:         t.startTime,
		LastLineTime:      lastLine,
	}
}

// ingest runs one line through the pipeline. Lines the detector rejects
// or the normalizer fails count as dropped.
func (t *TCPSource) ingest(line, remoteAddr string) {
	t.totalLines.Add(1)
	t.lastLineTime.Store(time.Now())

	event := t.processor.ProcessLine(line, fmt.Sprintf("tcp:%s", remoteAddr))
	if event == nil {
		t.droppedLines.Add(1)
		return
	}
	t.sink(event)
}

// Per-connection read state.
type tcpClient struct {
	conn          gnet.Conn
	buffer        bytes.Buffer
	maxBufferSeen int
}

// Handles gnet events.
type tcpServer struct {
	gnet.BuiltinEventEngine
	source  *TCPSource
	clients map[gnet.Conn]*tcpClient
	mu      sync.RWMutex
}

func (s *tcpServer) OnBoot(eng gnet.Engine) gnet.Action {
	// Store engine reference for shutdown
	s.source.engineMu.Lock()
	s.source.engine = &eng
	s.source.engineMu.Unlock()

	s.source.logger.Debug("msg", "TCP ingest server booted",
		"component", "tcp_source",
		"port", s.source.port)
	return gnet.None
}

func (s *tcpServer) OnOpen(c gnet.Conn) (out []byte, action gnet.Action) {
	remoteAddr := c.RemoteAddr().String()

	if s.source.netLimiter != nil {
		if err := s.source.netLimiter.AddConnection(remoteAddr); err != nil {
			s.source.logger.Warn("msg", "TCP connection net limited",
				"component", "tcp_source",
				"remote_addr", remoteAddr,
				"error", err)
			return nil, gnet.Close
		}
	}

	s.mu.Lock()
	s.clients[c] = &tcpClient{conn: c}
	s.mu.Unlock()

	newCount := s.source.activeConns.Add(1)
	s.source.logger.Debug("msg", "TCP connection opened",
		"component", "tcp_source",
		"remote_addr", remoteAddr,
		"active_connections", newCount)

	return nil, gnet.None
}

func (s *tcpServer) OnClose(c gnet.Conn, err error) gnet.Action {
	remoteAddr := c.RemoteAddr().String()

	s.mu.Lock()
	delete(s.clients, c)
	s.mu.Unlock()

	if s.source.netLimiter != nil {
		s.source.netLimiter.RemoveConnection(remoteAddr)
	}

	newCount := s.source.activeConns.Add(-1)
	s.source.logger.Debug("msg", "TCP connection closed",
		"component", "tcp_source",
		"remote_addr", remoteAddr,
		"active_connections", newCount,
		"error", err)
	return gnet.None
}

func (s *tcpServer) OnTraffic(c gnet.Conn) gnet.Action {
	s.mu.RLock()
	client, exists := s.clients[c]
	s.mu.RUnlock()

	if !exists {
		return gnet.Close
	}

	data, err := c.Next(-1)
	if err != nil {
		s.source.logger.Error("msg", "Error reading from connection",
			"component", "tcp_source",
			"error", err)
		return gnet.Close
	}

	if client.buffer.Len()+len(data) > maxClientBufferSize {
		s.source.logger.Warn("msg", "Client buffer limit exceeded, closing connection",
			"component", "tcp_source",
			"remote_addr", c.RemoteAddr().String(),
			"buffer_size", client.buffer.Len(),
			"incoming_size", len(data))
		s.source.invalidLines.Add(1)
		return gnet.Close
	}

	client.buffer.Write(data)

	if client.buffer.Len() > client.maxBufferSeen {
		client.maxBufferSeen = client.buffer.Len()
	}

	// A buffer past the line limit with no newline in sight is abuse
	if client.buffer.Len() > maxLineLength &&
		bytes.IndexByte(client.buffer.Bytes(), '\n') < 0 {
		s.source.logger.Warn("msg", "Line too long without newline",
			"component", "tcp_source",
			"remote_addr", c.RemoteAddr().String(),
			"buffer_size", client.buffer.Len())
		s.source.invalidLines.Add(1)
		return gnet.Close
	}

	// Process complete lines, keeping any trailing partial line buffered
	for {
		if bytes.IndexByte(client.buffer.Bytes(), '\n') < 0 {
			break
		}
		line, _ := client.buffer.ReadBytes('\n')

		line = bytes.TrimRight(line, "\r\n")
		if len(line) == 0 {
			continue
		}

		s.source.ingest(string(line), c.RemoteAddr().String())
	}

	return gnet.None
}
