// FILE: src/cmd/logsieve/flags.go
package main

import (
	"flag"
	"fmt"
	"os"
)

// Command-line flags
var (
	// General flags
	configFile  = flag.String("config", "", "Config file path")
	showVersion = flag.Bool("version", false, "Show version information")
	quiet       = flag.Bool("quiet", false, "Suppress console output")
	serve       = flag.Bool("serve", false, "Start the HTTP service and TCP ingest instead of exiting after file processing")
	saveConfig  = flag.String("save-config", "", "Write the effective configuration to a file and exit (.toml or .yaml)")

	// Export flags
	exportPath   = flag.String("export", "", "Export processed events to a file")
	exportFormat = flag.String("export-format", "", "Export format: csv, json, html, md, txt (overrides config)")

	// Logging flags
	logOutput = flag.String("log-output", "", "Log output: file, stdout, stderr, both, none (overrides config)")
	logLevel  = flag.String("log-level", "", "Log level: debug, info, warn, error (overrides config)")
)

func init() {
	flag.Usage = customUsage
}

func customUsage() {
	fmt.Fprintf(os.Stderr, "LogSieve - Log Ingestion and Normalization Pipeline\n\n")
	fmt.Fprintf(os.Stderr, "Usage: %s [options] [file ...]\n\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "Options:\n")

	fmt.Fprintf(os.Stderr, "\nGeneral:\n")
	fmt.Fprintf(os.Stderr, "  -config string\n\tConfig file path\n")
	fmt.Fprintf(os.Stderr, "  -version\n\tShow version information\n")
	fmt.Fprintf(os.Stderr, "  -quiet\n\tSuppress console output\n")
	fmt.Fprintf(os.Stderr, "  -serve\n\tStart the HTTP service and TCP ingest\n")
	fmt.Fprintf(os.Stderr, "  -save-config string\n\tWrite the effective configuration to a file and exit\n")

	fmt.Fprintf(os.Stderr, "\nExport:\n")
	fmt.Fprintf(os.Stderr, "  -export string\n\tExport processed events to a file\n")
	fmt.Fprintf(os.Stderr, "  -export-format string\n\tExport format: csv, json, html, md, txt\n")

	fmt.Fprintf(os.Stderr, "\nLogging:\n")
	fmt.Fprintf(os.Stderr, "  -log-output string\n\tLog output: file, stdout, stderr, both, none (overrides config)\n")
	fmt.Fprintf(os.Stderr, "  -log-level string\n\tLog level: debug, info, warn, error (overrides config)\n")

	fmt.Fprintf(os.Stderr, "\nExamples:\n")
	fmt.Fprintf(os.Stderr, "  # Process log files and print a summary\n")
	fmt.Fprintf(os.Stderr, "  %s app.log errors.jsonl\n\n", os.Args[0])

	fmt.Fprintf(os.Stderr, "  # Process and export normalized events\n")
	fmt.Fprintf(os.Stderr, "  %s --export events.csv app.log\n\n", os.Args[0])

	fmt.Fprintf(os.Stderr, "  # Run the network surfaces\n")
	fmt.Fprintf(os.Stderr, "  %s --serve --config /etc/logsieve.toml\n\n", os.Args[0])

	fmt.Fprintf(os.Stderr, "Environment Variables:\n")
	fmt.Fprintf(os.Stderr, "  LOGSIEVE_CONFIG_FILE  Config file path\n")
	fmt.Fprintf(os.Stderr, "  LOGSIEVE_CONFIG_DIR   Config directory\n")
}

func parseFlags() error {
	flag.Parse()

	if *logOutput != "" {
		validOutputs := map[string]bool{
			"file": true, "stdout": true, "stderr": true,
			"both": true, "none": true,
		}
		if !validOutputs[*logOutput] {
			return fmt.Errorf("invalid log-output: %s (valid: file, stdout, stderr, both, none)", *logOutput)
		}
	}

	if *logLevel != "" {
		if _, err := parseLogLevel(*logLevel); err != nil {
			return fmt.Errorf("invalid log-level: %s (valid: debug, info, warn, error)", *logLevel)
		}
	}

	if *exportFormat != "" {
		valid := map[string]bool{
			"csv": true, "json": true, "html": true, "md": true, "txt": true,
		}
		if !valid[*exportFormat] {
			return fmt.Errorf("invalid export-format: %s (valid: csv, json, html, md, txt)", *exportFormat)
		}
	}

	return nil
}
