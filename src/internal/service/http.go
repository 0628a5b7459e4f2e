// FILE: src/internal/service/http.go
package service

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"logsieve/src/internal/auth"
	"logsieve/src/internal/config"
	"logsieve/src/internal/limit"
	"logsieve/src/internal/process"
	"logsieve/src/internal/version"

	"github.com/lixenwraith/log"
	"github.com/lixenwraith/log/compat"
	"github.com/valyala/fasthttp"
)

// HTTPService exposes the pipeline over HTTP: line ingest, recent event
// retrieval, and a status endpoint.
type HTTPService struct {
	// Configuration reference (NOT a copy)
	config *config.ServeConfig

	processor *process.Processor
	ring      *EventRing
	server    *fasthttp.Server
	logger    *log.Logger
	startTime time.Time

	authenticator *auth.Authenticator
	netLimiter    *limit.NetLimiter

	// Statistics
	ingestRequests atomic.Uint64
	ingestLines    atomic.Uint64
	authFailures   atomic.Uint64
	authSuccesses  atomic.Uint64
}

// NewHTTP creates the HTTP service around an existing processor.
func NewHTTP(cfg *config.ServeConfig, processor *process.Processor, logger *log.Logger) (*HTTPService, error) {
	if cfg == nil {
		return nil, fmt.Errorf("serve options cannot be nil")
	}
	if processor == nil {
		return nil, fmt.Errorf("processor cannot be nil")
	}

	s := &HTTPService{
		config:    cfg,
		processor: processor,
		ring:      NewEventRing(int(cfg.RingSize)),
		logger:    logger,
		startTime: time.Now(),
	}

	if cfg.NetLimit != nil && cfg.NetLimit.Enabled {
		s.netLimiter = limit.NewNetLimiter(cfg.NetLimit, logger)
	}

	if cfg.Auth != nil && cfg.Auth.Type != "none" {
		authenticator, err := auth.New(cfg.Auth, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create authenticator: %w", err)
		}
		s.authenticator = authenticator
		logger.Info("msg", "Authentication enabled",
			"component", "http_service",
			"type", cfg.Auth.Type)
	}

	return s, nil
}

// Start binds the listener and serves until ctx is cancelled.
func (s *HTTPService) Start(ctx context.Context) error {
	fasthttpLogger := compat.NewFastHTTPAdapter(s.logger)

	s.server = &fasthttp.Server{
		Name:         fmt.Sprintf("LogSieve/%s", version.Short()),
		Handler:      s.requestHandler,
		Logger:       fasthttpLogger,
		WriteTimeout: time.Duration(s.config.WriteTimeoutMS) * time.Millisecond,
	}

	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("msg", "HTTP service started",
			"component", "http_service",
			"host", s.config.Host,
			"port", s.config.Port,
			"ingest_path", s.config.IngestPath,
			"events_path", s.config.EventsPath,
			"status_path", s.config.StatusPath)

		if err := s.server.ListenAndServe(addr); err != nil {
			errChan <- err
		}
	}()

	go func() {
		<-ctx.Done()
		if s.server != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			s.server.ShutdownWithContext(shutdownCtx)
		}
	}()

	// Check if server started successfully
	select {
	case err := <-errChan:
		return err
	case <-time.After(100 * time.Millisecond):
		return nil
	}
}

// Stop shuts the server down.
func (s *HTTPService) Stop() {
	s.logger.Info("msg", "Stopping HTTP service",
		"component", "http_service")

	if s.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		s.server.ShutdownWithContext(ctx)
	}
}

// Ring exposes the event buffer for other surfaces to append into.
func (s *HTTPService) Ring() *EventRing {
	return s.ring
}

func (s *HTTPService) requestHandler(ctx *fasthttp.RequestCtx) {
	remoteAddr := ctx.RemoteAddr().String()

	if s.netLimiter != nil {
		if allowed, message := s.netLimiter.Check(remoteAddr); !allowed {
			ctx.SetStatusCode(fasthttp.StatusTooManyRequests)
			ctx.SetContentType("application/json")
			s.logger.Warn("msg", "Net limited",
				"component", "http_service",
				"remote_addr", remoteAddr,
				"error", message)
			json.NewEncoder(ctx).Encode(map[string]any{
				"error": "Too many requests",
			})
			return
		}
	}

	path := string(ctx.Path())

	// Status endpoint doesn't require auth
	if path == s.config.StatusPath {
		s.handleStatus(ctx)
		return
	}

	if s.authenticator != nil {
		authHeader := string(ctx.Request.Header.Peek("Authorization"))
		if _, err := s.authenticator.AuthenticateHTTP(authHeader, remoteAddr); err != nil {
			s.authFailures.Add(1)
			s.logger.Warn("msg", "Authentication failed",
				"component", "http_service",
				"remote_addr", remoteAddr,
				"error", err)

			ctx.SetStatusCode(fasthttp.StatusUnauthorized)
			if s.config.Auth.Type == "basic" && s.config.Auth.BasicAuth != nil {
				realm := s.config.Auth.BasicAuth.Realm
				if realm == "" {
					realm = "Restricted"
				}
				ctx.Response.Header.Set("WWW-Authenticate", fmt.Sprintf("Basic realm=%q", realm))
			} else if s.config.Auth.Type == "bearer" {
				ctx.Response.Header.Set("WWW-Authenticate", "Bearer")
			}

			ctx.SetContentType("application/json")
			json.NewEncoder(ctx).Encode(map[string]string{
				"error": "Unauthorized",
			})
			return
		}
		s.authSuccesses.Add(1)
	}

	switch path {
	case s.config.IngestPath:
		s.handleIngest(ctx)
	case s.config.EventsPath:
		s.handleEvents(ctx)
	default:
		ctx.SetStatusCode(fasthttp.StatusNotFound)
		ctx.SetContentType("application/json")
		json.NewEncoder(ctx).Encode(map[string]any{
			"error": "Not Found",
		})
	}
}

// handleIngest accepts newline-delimited log lines in the request body
// and runs each through detection and normalization.
func (s *HTTPService) handleIngest(ctx *fasthttp.RequestCtx) {
	if !ctx.IsPost() {
		ctx.SetStatusCode(fasthttp.StatusMethodNotAllowed)
		ctx.SetContentType("application/json")
		json.NewEncoder(ctx).Encode(map[string]string{
			"error": "Method Not Allowed",
		})
		return
	}

	s.ingestRequests.Add(1)

	source := fmt.Sprintf("http:%s", ctx.RemoteAddr())
	accepted := 0
	dropped := 0

	scanner := bufio.NewScanner(strings.NewReader(string(ctx.PostBody())))
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), " \t\r")
		if line == "" {
			continue
		}
		s.ingestLines.Add(1)

		if event := s.processor.ProcessLine(line, source); event != nil {
			s.ring.Append(event)
			accepted++
		} else {
			dropped++
		}
	}

	s.logger.Debug("msg", "Ingested lines",
		"component", "http_service",
		"remote_addr", ctx.RemoteAddr().String(),
		"accepted", accepted,
		"dropped", dropped)

	ctx.SetStatusCode(fasthttp.StatusAccepted)
	ctx.SetContentType("application/json")
	json.NewEncoder(ctx).Encode(map[string]any{
		"accepted": accepted,
		"dropped":  dropped,
	})
}

// handleEvents returns the most recent events, newest last. An optional
// "limit" query parameter caps the result.
func (s *HTTPService) handleEvents(ctx *fasthttp.RequestCtx) {
	limitParam := 0
	if raw := string(ctx.QueryArgs().Peek("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			ctx.SetStatusCode(fasthttp.StatusBadRequest)
			ctx.SetContentType("application/json")
			json.NewEncoder(ctx).Encode(map[string]string{
				"error": "invalid limit parameter",
			})
			return
		}
		limitParam = n
	}

	events := s.ring.Snapshot(limitParam)
	wire := make([]map[string]any, 0, len(events))
	for _, event := range events {
		wire = append(wire, event.ToWire())
	}

	ctx.SetContentType("application/json")
	json.NewEncoder(ctx).Encode(map[string]any{
		"count":  len(wire),
		"events": wire,
	})
}

func (s *HTTPService) handleStatus(ctx *fasthttp.RequestCtx) {
	ctx.SetContentType("application/json")

	var netLimitStats any
	if s.netLimiter != nil {
		netLimitStats = s.netLimiter.GetStats()
	} else {
		netLimitStats = map[string]any{"enabled": false}
	}

	authStats := s.authenticator.GetStats()
	if s.authenticator != nil {
		authStats["failures"] = s.authFailures.Load()
		authStats["successes"] = s.authSuccesses.Load()
	}

	procStats := s.processor.Stats()

	sources := make([]map[string]any, 0)
	for _, src := range s.processor.Sources() {
		sources = append(sources, map[string]any{
			"id":          src.ID,
			"name":        src.Name,
			"source_type": src.SourceType,
			"updated_at":  src.UpdatedAt.Format(time.RFC3339),
		})
	}

	status := map[string]any{
		"service": "LogSieve",
		"version": version.Short(),
		"server": map[string]any{
			"type":           "http",
			"port":           s.config.Port,
			"uptime_seconds": int(time.Since(s.startTime).Seconds()),
		},
		"endpoints": map[string]string{
			"ingest": s.config.IngestPath,
			"events": s.config.EventsPath,
			"status": s.config.StatusPath,
		},
		"features": map[string]any{
			"auth":      authStats,
			"net_limit": netLimitStats,
		},
		"sources": sources,
		"statistics": map[string]any{
			"ingest_requests":   s.ingestRequests.Load(),
			"ingest_lines":      s.ingestLines.Load(),
			"buffered_events":   s.ring.Len(),
			"events_processed":  procStats.Events,
			"events_normalized": procStats.Normalized,
			"events_failed":     procStats.Failed,
		},
	}

	data, _ := json.Marshal(status)
	ctx.SetBody(data)
}
