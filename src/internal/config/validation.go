// FILE: src/internal/config/validation.go
package config

import (
	"fmt"

	lconfig "github.com/lixenwraith/config"
)

// Validate checks the configuration tree for structural problems.
func (c *Config) Validate() error {
	if c.Detection.MinConfidence < 0 || c.Detection.MinConfidence > 1 {
		return fmt.Errorf("detection: min_confidence must be in [0,1], got %v", c.Detection.MinConfidence)
	}
	if c.Detection.MaxPatterns < 1 {
		return fmt.Errorf("detection: max_patterns must be positive, got %d", c.Detection.MaxPatterns)
	}

	if c.Parsing.BufferSize < 1 {
		return fmt.Errorf("parsing: buffer_size must be positive, got %d", c.Parsing.BufferSize)
	}
	switch c.Parsing.Encoding {
	case "", "utf-8", "latin-1", "cp1252", "iso-8859-1":
	default:
		return fmt.Errorf("parsing: unsupported encoding: %s", c.Parsing.Encoding)
	}

	if c.Ingest != nil && c.Ingest.Enabled {
		if err := lconfig.Port(c.Ingest.Port); err != nil {
			return fmt.Errorf("ingest: invalid port: %w", err)
		}
		if c.Ingest.Host != "" && c.Ingest.Host != "0.0.0.0" {
			if err := lconfig.IPAddress(c.Ingest.Host); err != nil {
				return fmt.Errorf("ingest: invalid host: %w", err)
			}
		}
	}

	if c.Serve != nil && c.Serve.Enabled {
		if err := lconfig.Port(c.Serve.Port); err != nil {
			return fmt.Errorf("serve: invalid port: %w", err)
		}
		if err := validateAuth("serve", c.Serve.Auth); err != nil {
			return err
		}
		if c.Serve.RingSize < 1 {
			return fmt.Errorf("serve: ring_size must be positive, got %d", c.Serve.RingSize)
		}
	}

	switch c.Export.Format {
	case "", "csv", "json", "html", "md", "txt":
	default:
		return fmt.Errorf("export: unsupported format: %s", c.Export.Format)
	}

	return nil
}
