// FILE: src/cmd/logsieve/bootstrap.go
package main

import (
	"fmt"
	"strings"

	"logsieve/src/internal/config"
	"logsieve/src/internal/detect"
	"logsieve/src/internal/multiline"
	"logsieve/src/internal/normalize"
	"logsieve/src/internal/process"

	"github.com/lixenwraith/log"
)

// buildProcessor assembles the detection and normalization pipeline from
// configuration.
func buildProcessor(cfg *config.Config) (*process.Processor, error) {
	normalizer := normalize.New(logger)

	var opts []process.Option
	if cfg.Detection.Enabled {
		detector, err := detect.NewHeuristic(nil, int(cfg.Detection.MaxPatterns), logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create detector: %w", err)
		}
		buffer := multiline.New(cfg.Detection.EnableMultiline, nil, nil)
		opts = append(opts, process.WithDetector(detector, buffer))
	}

	return process.New(normalizer, cfg.Parsing, cfg.Detection, logger, opts...), nil
}

// initializeLogger sets up the logger based on configuration
func initializeLogger(cfg *config.Config) error {
	logger = log.NewLogger()

	lc := cfg.Logging
	if lc == nil {
		lc = config.DefaultLogConfig()
	}

	outputMode := lc.Output
	if *logOutput != "" {
		outputMode = *logOutput
	}
	level := lc.Level
	if *logLevel != "" {
		level = *logLevel
	}

	levelValue, err := parseLogLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}

	configArgs := []string{fmt.Sprintf("level=%d", levelValue)}

	switch outputMode {
	case "none":
		configArgs = append(configArgs, "disable_file=true", "enable_stdout=false")

	case "stdout":
		configArgs = append(configArgs,
			"disable_file=true",
			"enable_stdout=true",
			"stdout_target=stdout")

	case "stderr":
		configArgs = append(configArgs,
			"disable_file=true",
			"enable_stdout=true",
			"stdout_target=stderr")

	case "file":
		configArgs = append(configArgs, "enable_stdout=false")
		configureFileLogging(&configArgs, lc)

	case "both":
		configArgs = append(configArgs, "enable_stdout=true")
		configureFileLogging(&configArgs, lc)
		configureConsoleTarget(&configArgs, lc)

	default:
		return fmt.Errorf("invalid log output mode: %s", outputMode)
	}

	if lc.Console != nil && lc.Console.Format != "" {
		configArgs = append(configArgs, fmt.Sprintf("format=%s", lc.Console.Format))
	}

	return logger.ApplyConfigString(configArgs...)
}

// configureFileLogging sets up file-based logging parameters
func configureFileLogging(configArgs *[]string, lc *config.LogConfig) {
	if lc.File != nil {
		*configArgs = append(*configArgs,
			fmt.Sprintf("directory=%s", lc.File.Directory),
			fmt.Sprintf("name=%s", lc.File.Name),
			fmt.Sprintf("max_size_mb=%d", lc.File.MaxSizeMB),
			fmt.Sprintf("max_total_size_mb=%d", lc.File.MaxTotalSizeMB))

		if lc.File.RetentionHours > 0 {
			*configArgs = append(*configArgs,
				fmt.Sprintf("retention_period_hrs=%.1f", lc.File.RetentionHours))
		}
	}
}

// configureConsoleTarget sets up console output parameters
func configureConsoleTarget(configArgs *[]string, lc *config.LogConfig) {
	target := "stderr" // default

	if lc.Console != nil && lc.Console.Target != "" {
		target = lc.Console.Target
	}

	if target == "split" {
		*configArgs = append(*configArgs, "stdout_split_mode=true")
		*configArgs = append(*configArgs, "stdout_target=split")
	} else {
		*configArgs = append(*configArgs, fmt.Sprintf("stdout_target=%s", target))
	}
}

func parseLogLevel(level string) (int, error) {
	switch strings.ToLower(level) {
	case "debug":
		return int(log.LevelDebug), nil
	case "info":
		return int(log.LevelInfo), nil
	case "warn", "warning":
		return int(log.LevelWarn), nil
	case "error":
		return int(log.LevelError), nil
	default:
		return 0, fmt.Errorf("unknown log level: %s", level)
	}
}
