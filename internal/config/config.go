package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"github.com/mitchellh/go-homedir"
	"gopkg.in/yaml.v3"
)

// Config holds all mcscales configuration.
type Config struct {
	// Parent directory of newly built sets
	OutputDir string `yaml:"output_dir" env:"MCSCALES_OUTPUT_DIR"`

	// Directories searched for a set given by bare name
	SearchPaths []string `yaml:"search_paths" env:"LHAPDF_DATA_PATH" envSeparator:":"`

	// Maximum concurrent replica reads and copies
	Workers int `yaml:"workers" env:"MCSCALES_WORKERS"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// Valid values for LoggingConfig fields.
var (
	ValidLevels  = []string{"debug", "info", "warn", "error"}
	ValidFormats = []string{"console", "json"}
)

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		OutputDir: ".",
		Workers:   4,
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// DefaultConfigPath returns ~/.config/mcscales/config.yaml.
func DefaultConfigPath() string {
	home, err := homedir.Dir()
	if err != nil {
		return filepath.Join(".mcscales", "config.yaml")
	}
	return filepath.Join(home, ".config", "mcscales", "config.yaml")
}

// Load loads configuration from a YAML file. A missing file yields the
// defaults. Environment variables override both.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	case !os.IsNotExist(err):
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
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

func (c *Config) applyEnvOverrides() error {
	if err := env.Parse(c); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.OutputDir == "" {
		return fmt.Errorf("output_dir must not be empty")
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	if !contains(ValidLevels, c.Logging.Level) {
		return fmt.Errorf("invalid log level: %s (valid: %v)", c.Logging.Level, ValidLevels)
	}
	if !contains(ValidFormats, c.Logging.Format) {
		return fmt.Errorf("invalid log format: %s (valid: %v)", c.Logging.Format, ValidFormats)
	}
	return nil
}

// ResolvedOutputDir returns OutputDir with a leading ~ expanded.
func (c *Config) ResolvedOutputDir() (string, error) {
	return homedir.Expand(c.OutputDir)
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
