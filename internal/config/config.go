// Package config holds all axiomind configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all axiomind configuration.
type Config struct {
	// Core settings
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	// Pipeline tunables
	Engine EngineConfig `yaml:"engine"`

	// SQLite persistence
	Storage StorageConfig `yaml:"storage"`

	// HTTP API
	Server ServerConfig `yaml:"server"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// EngineConfig configures the reasoning pipeline.
type EngineConfig struct {
	MaxReasoningDepth int     `yaml:"max_reasoning_depth"`
	InitialLambda     float64 `yaml:"initial_lambda"`
}

// StorageConfig configures the SQLite path sink.
type StorageConfig struct {
	Enabled      bool   `yaml:"enabled"`
	DatabasePath string `yaml:"database_path"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr            string `yaml:"addr"`
	MaxQueryLength  int    `yaml:"max_query_length"`
	ShutdownTimeout string `yaml:"shutdown_timeout"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
	File   string `yaml:"file"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name:    "axiomind",
		Version: "1.0.0",

		Engine: EngineConfig{
			MaxReasoningDepth: 10,
			InitialLambda:     10.0,
		},

		Storage: StorageConfig{
			Enabled:      true,
			DatabasePath: "data/axiomind.db",
		},

		Server: ServerConfig{
			Addr:            ":8090",
			MaxQueryLength:  4096,
			ShutdownTimeout: "10s",
		},

		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load loads configuration from a YAML file. A missing file yields the
// defaults; environment variables override either way.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()

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

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if path := os.Getenv("AXIOMIND_DB"); path != "" {
		c.Storage.DatabasePath = path
	}
	if addr := os.Getenv("AXIOMIND_ADDR"); addr != "" {
		c.Server.Addr = addr
	}
	if level := os.Getenv("AXIOMIND_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
}

// GetShutdownTimeout returns the server shutdown timeout as a duration.
func (c *Config) GetShutdownTimeout() time.Duration {
	d, err := time.ParseDuration(c.Server.ShutdownTimeout)
	if err != nil {
		return 10 * time.Second
	}
	return d
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Engine.MaxReasoningDepth < 1 || c.Engine.MaxReasoningDepth > 10 {
		return fmt.Errorf("max_reasoning_depth must be in [1, 10], got %d", c.Engine.MaxReasoningDepth)
	}
	if c.Engine.InitialLambda <= 0 {
		return fmt.Errorf("initial_lambda must be positive, got %g", c.Engine.InitialLambda)
	}
	if c.Server.MaxQueryLength <= 0 {
		return fmt.Errorf("max_query_length must be positive, got %d", c.Server.MaxQueryLength)
	}
	return nil
}
