// FILE: src/internal/config/config.go
package config

// Config is the full logsieve configuration tree.
type Config struct {
	Logging *LogConfig `toml:"logging" yaml:"logging"`

	// Pipeline knobs
	Detection DetectionConfig `toml:"detection" yaml:"detection"`
	Parsing   ParsingConfig   `toml:"parsing" yaml:"parsing"`

	// Optional network surfaces
	Ingest *IngestConfig `toml:"ingest" yaml:"ingest"`
	Serve  *ServeConfig  `toml:"serve" yaml:"serve"`

	Export ExportConfig `toml:"export" yaml:"export"`
}

// DetectionConfig holds the heuristic detection knobs.
type DetectionConfig struct {
	Enabled       bool    `toml:"enabled" yaml:"enabled"`
	MinConfidence float64 `toml:"min_confidence" yaml:"min_confidence"`
	MaxPatterns   int64   `toml:"max_patterns" yaml:"max_patterns"`

	EnableMultiline bool `toml:"enable_multiline" yaml:"enable_multiline"`
	// Seconds a multiline block may stay buffered. Accepted but not yet
	// enforced; see ParsingConfig.Timeout.
	MultilineTimeout float64 `toml:"multiline_timeout" yaml:"multiline_timeout"`
}

// ParsingConfig holds the reader knobs.
//
// TODO: Timeout, MaxLineLength and ChunkSize are accepted and carried
// through to the reader but not enforced yet. They are kept as explicit
// no-ops rather than dropped so existing config files keep validating.
type ParsingConfig struct {
	// Preferred encoding. Empty means probe (utf-8, latin-1, cp1252,
	// iso-8859-1 in order).
	Encoding      string  `toml:"encoding" yaml:"encoding"`
	BufferSize    int64   `toml:"buffer_size" yaml:"buffer_size"`
	MaxLineLength int64   `toml:"max_line_length" yaml:"max_line_length"`
	Timeout       float64 `toml:"timeout" yaml:"timeout"`
	ChunkSize     int64   `toml:"chunk_size" yaml:"chunk_size"`
}

// IngestConfig configures the TCP line-ingest source.
type IngestConfig struct {
	Enabled    bool   `toml:"enabled" yaml:"enabled"`
	Host       string `toml:"host" yaml:"host"`
	Port       int64  `toml:"port" yaml:"port"`
	BufferSize int64  `toml:"buffer_size" yaml:"buffer_size"`

	NetLimit *NetLimitConfig `toml:"net_limit" yaml:"net_limit"`
}

// ServeConfig configures the HTTP service.
type ServeConfig struct {
	Enabled bool   `toml:"enabled" yaml:"enabled"`
	Host    string `toml:"host" yaml:"host"`
	Port    int64  `toml:"port" yaml:"port"`

	IngestPath string `toml:"ingest_path" yaml:"ingest_path"`
	EventsPath string `toml:"events_path" yaml:"events_path"`
	StatusPath string `toml:"status_path" yaml:"status_path"`

	// Number of recent events kept for GET events_path
	RingSize       int64 `toml:"ring_size" yaml:"ring_size"`
	WriteTimeoutMS int64 `toml:"write_timeout_ms" yaml:"write_timeout_ms"`

	Auth     *AuthConfig     `toml:"auth" yaml:"auth"`
	NetLimit *NetLimitConfig `toml:"net_limit" yaml:"net_limit"`
}

// NetLimitConfig limits request rate and connection counts per client IP.
type NetLimitConfig struct {
	Enabled             bool    `toml:"enabled" yaml:"enabled"`
	RequestsPerSecond   float64 `toml:"requests_per_second" yaml:"requests_per_second"`
	BurstSize           int64   `toml:"burst_size" yaml:"burst_size"`
	MaxConnectionsPerIP int64   `toml:"max_connections_per_ip" yaml:"max_connections_per_ip"`
	MaxConnectionsTotal int64   `toml:"max_connections_total" yaml:"max_connections_total"`
}

// ExportConfig configures tabular export of processed events.
type ExportConfig struct {
	// One of: csv, json, html, md, txt
	Format string `toml:"format" yaml:"format"`
	Path   string `toml:"path" yaml:"path"`
}

func defaults() *Config {
	return &Config{
		Logging: DefaultLogConfig(),
		Detection: DetectionConfig{
			Enabled:          true,
			MinConfidence:    0.3,
			MaxPatterns:      1000,
			EnableMultiline:  true,
			MultilineTimeout: 2.0,
		},
		Parsing: ParsingConfig{
			Encoding:      "",
			BufferSize:    8192,
			MaxLineLength: 10000,
			Timeout:       30.0,
			ChunkSize:     1000,
		},
		Ingest: &IngestConfig{
			Enabled:    false,
			Host:       "0.0.0.0",
			Port:       9514,
			BufferSize: 1000,
		},
		Serve: &ServeConfig{
			Enabled:        false,
			Host:           "0.0.0.0",
			Port:           8080,
			IngestPath:     "/ingest",
			EventsPath:     "/events",
			StatusPath:     "/status",
			RingSize:       1000,
			WriteTimeoutMS: 5000,
		},
		Export: ExportConfig{
			Format: "json",
		},
	}
}
