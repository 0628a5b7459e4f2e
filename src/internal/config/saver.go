// FILE: src/internal/config/saver.go
package config

import (
	"fmt"
	"os"

	lconfig "github.com/lixenwraith/config"
	"gopkg.in/yaml.v3"
)

// SaveToFile saves the configuration to the specified TOML file path.
func (c *Config) SaveToFile(path string) error {
	if path == "" {
		return fmt.Errorf("cannot save config: path is empty")
	}

	// A temporary lconfig instance just for saving avoids tracking lconfig
	// throughout the application
	lcfg, err := lconfig.NewBuilder().
		WithFile(path).
		WithTarget(c).
		WithFileFormat("toml").
		Build()
	if err != nil {
		return fmt.Errorf("failed to create config builder: %w", err)
	}

	if err := lcfg.Save(path); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	return nil
}

// SaveYAML writes the configuration as a YAML snapshot, the interchange
// shape tooling outside logsieve consumes.
func (c *Config) SaveYAML(path string) error {
	if path == "" {
		return fmt.Errorf("cannot save config: path is empty")
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// LoadYAML reads a YAML snapshot on top of defaults. A missing file is not
// an error: the defaults are returned as-is.
func LoadYAML(path string) (*Config, error) {
	cfg := defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return cfg, cfg.Validate()
}
