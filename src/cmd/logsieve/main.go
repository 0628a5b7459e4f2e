// FILE: src/cmd/logsieve/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"logsieve/src/internal/config"
	"logsieve/src/internal/console"
	"logsieve/src/internal/core"
	"logsieve/src/internal/export"
	"logsieve/src/internal/process"
	"logsieve/src/internal/service"
	"logsieve/src/internal/source"
	"logsieve/src/internal/version"

	"github.com/lixenwraith/log"
)

var logger *log.Logger

func main() {
	if err := parseFlags(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	InitOutputHandler(*quiet)

	if *showVersion {
		fmt.Println(version.String())
		os.Exit(0)
	}

	// Set config file environment if specified
	if *configFile != "" {
		os.Setenv("LOGSIEVE_CONFIG_FILE", *configFile)
	}

	var cfg *config.Config
	var err error
	switch strings.ToLower(filepath.Ext(*configFile)) {
	case ".yaml", ".yml":
		// YAML snapshots bypass the builder; env and CLI overrides do not apply
		cfg, err = config.LoadYAML(*configFile)
	default:
		cfg, err = config.Load(os.Args[1:])
	}
	if err != nil {
		if *configFile != "" && strings.Contains(err.Error(), "not found") {
			FatalError(2, "Config file not found: %s\n", *configFile)
		}
		FatalError(1, "Failed to load config: %v\n", err)
	}

	if err := initializeLogger(cfg); err != nil {
		FatalError(1, "Failed to initialize logger: %v\n", err)
	}
	defer shutdownLogger()

	if *saveConfig != "" {
		if err := writeConfigSnapshot(cfg, *saveConfig); err != nil {
			FatalError(1, "Failed to save config: %v\n", err)
		}
		Print("Configuration written to %s\n", *saveConfig)
		return
	}

	logger.Info("msg", "LogSieve starting",
		"version", version.String(),
		"config_file", *configFile)

	processor, err := buildProcessor(cfg)
	if err != nil {
		FatalError(1, "Failed to build pipeline: %v\n", err)
	}

	files := flag.Args()
	var collected []*core.Event

	for _, path := range files {
		events, err := processFile(processor, path)
		if err != nil {
			logger.Error("msg", "Failed to process file",
				"file", path,
				"error", err)
			Error("%s %v\n", console.Error(path+":"), err)
			continue
		}
		collected = append(collected, events...)
	}

	if len(files) > 0 {
		printSummary(processor, len(files), len(collected))

		if path := exportTarget(cfg); path != "" {
			if err := exportEvents(cfg, collected, path); err != nil {
				FatalError(1, "Export failed: %v\n", err)
			}
			Print("Exported %d events to %s\n", len(collected), path)
		}
	}

	serveEnabled := *serve || (cfg.Serve != nil && cfg.Serve.Enabled)
	ingestEnabled := cfg.Ingest != nil && cfg.Ingest.Enabled

	if !serveEnabled && !ingestEnabled {
		if len(files) == 0 {
			Error("No input files and no network surfaces enabled. See -help.\n")
			os.Exit(2)
		}
		return
	}

	runServe(cfg, processor, collected, serveEnabled, ingestEnabled)
}

// processFile streams one file through the pipeline, returning the
// surviving events.
func processFile(processor *process.Processor, path string) ([]*core.Event, error) {
	stream, err := processor.ProcessFile(path)
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	var events []*core.Event
	for stream.Next() {
		events = append(events, stream.Event())
	}
	if err := stream.Err(); err != nil {
		return events, err
	}
	return events, nil
}

// runServe starts the enabled network surfaces and blocks until a
// shutdown signal arrives.
func runServe(cfg *config.Config, processor *process.Processor, seed []*core.Event, serveEnabled, ingestEnabled bool) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	var httpSvc *service.HTTPService
	var tcpSrc *source.TCPSource
	var sink source.Sink = func(*core.Event) {}

	if serveEnabled {
		svc, err := service.NewHTTP(cfg.Serve, processor, logger)
		if err != nil {
			FatalError(1, "Failed to create HTTP service: %v\n", err)
		}
		if err := svc.Start(ctx); err != nil {
			FatalError(1, "Failed to start HTTP service: %v\n", err)
		}
		httpSvc = svc

		// Pre-populate the ring with events from the file pass
		for _, event := range seed {
			svc.Ring().Append(event)
		}
		sink = svc.Ring().Append

		Print("HTTP service listening on %s:%d\n", cfg.Serve.Host, cfg.Serve.Port)
	}

	if ingestEnabled {
		src, err := source.NewTCP(cfg.Ingest, processor, sink, logger)
		if err != nil {
			FatalError(1, "Failed to create TCP ingest: %v\n", err)
		}
		if err := src.Start(); err != nil {
			FatalError(1, "Failed to start TCP ingest: %v\n", err)
		}
		tcpSrc = src

		Print("TCP ingest listening on %s:%d\n", cfg.Ingest.Host, cfg.Ingest.Port)
	}

	<-sigChan
	logger.Info("msg", "Shutdown signal received, starting graceful shutdown...")
	cancel()

	done := make(chan struct{})
	go func() {
		if tcpSrc != nil {
			tcpSrc.Stop()
		}
		if httpSvc != nil {
			httpSvc.Stop()
		}
		close(done)
	}()

	select {
	case <-done:
		logger.Info("msg", "Shutdown complete")
	case <-time.After(10 * time.Second):
		logger.Error("msg", "Shutdown timeout exceeded - forcing exit")
		os.Exit(1)
	}
}

// printSummary writes the end-of-run pipeline counters to the console.
func printSummary(processor *process.Processor, fileCount, eventCount int) {
	stats := processor.Stats()

	failed := console.OK(fmt.Sprintf("%d", stats.Failed))
	if stats.Failed > 0 {
		failed = console.Error(fmt.Sprintf("%d", stats.Failed))
	}

	Print("Processed %d file(s)\n", fileCount)
	Print("  %s %d\n", console.Label("events:    "), stats.Events)
	Print("  %s %d\n", console.Label("normalized:"), stats.Normalized)
	Print("  %s %s\n", console.Label("failed:    "), failed)
	Print("  %s %d\n", console.Label("collected: "), eventCount)
}

// exportTarget resolves the export destination from flag or config.
func exportTarget(cfg *config.Config) string {
	if *exportPath != "" {
		return *exportPath
	}
	return cfg.Export.Path
}

// exportEvents writes the wire form of the collected events.
func exportEvents(cfg *config.Config, events []*core.Event, path string) error {
	format := cfg.Export.Format
	if *exportFormat != "" {
		format = *exportFormat
	}
	if format == "" {
		format = strings.TrimPrefix(filepath.Ext(path), ".")
	}

	rows := make([]map[string]any, 0, len(events))
	for _, event := range events {
		rows = append(rows, event.ToWire())
	}

	return export.New(rows).Export(path, format)
}

// writeConfigSnapshot saves the effective config, choosing the codec by
// file extension.
func writeConfigSnapshot(cfg *config.Config, path string) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return cfg.SaveYAML(path)
	default:
		return cfg.SaveToFile(path)
	}
}

func shutdownLogger() {
	if logger != nil {
		if err := logger.Shutdown(2 * time.Second); err != nil {
			// Best effort - can't log the shutdown error
			Error("Logger shutdown error: %v\n", err)
		}
	}
}
