package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ConfigLoader defines the interface for loading configuration files
type ConfigLoader interface {
	// Load loads the configuration from a YAML file
	Load(path string) (*FileConfig, error)
	// Validate validates the configuration
	Validate(config *FileConfig) error
}

// Loader handles loading configuration files
type Loader struct{}

// Ensure Loader implements ConfigLoader
var _ ConfigLoader = (*Loader)(nil)

// NewLoader creates a new configuration loader
func NewLoader() *Loader {
	return &Loader{}
}

// Load loads the configuration from a YAML file. Unknown keys are rejected.
func (l *Loader) Load(path string) (*FileConfig, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	defer f.Close()

	var config FileConfig
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return &config, nil
}

// Validate validates the configuration. An unknown cycle is not an error, it
// falls back to week when the options are resolved.
func (l *Loader) Validate(config *FileConfig) error {
	if config.Tracing.Enabled && config.Tracing.OutputDir == "" {
		return fmt.Errorf("tracing: outputDir is required when tracing is enabled")
	}
	return nil
}
