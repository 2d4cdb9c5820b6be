// Package config holds the eradata settings. Every default reproduces the
// fixed file layout of the refinement scripts, so an empty config runs them unchanged.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is read from the working directory when --config is not given
const DefaultConfigFile = "eradata.yaml"

// Config is the root configuration
type Config struct {
	Normalize NormalizeConfig `yaml:"normalize"`
	Aggregate AggregateConfig `yaml:"aggregate"`
	Storage   StorageConfig   `yaml:"storage"`
	Server    ServerConfig    `yaml:"server"`
}

// NormalizeConfig configures the normalize job
type NormalizeConfig struct {
	// BaseDir anchors Input and Output; empty means the executable's directory
	BaseDir string `yaml:"base_dir"`
	Input   string `yaml:"input"`
	Output  string `yaml:"output"`
}

// AggregateConfig configures the aggregate job. Paths are relative to the working directory.
type AggregateConfig struct {
	Input       string `yaml:"input"`
	Output      string `yaml:"output"`
	PreviewRows int    `yaml:"preview_rows"`
	Strict      bool   `yaml:"strict"`
}

// StorageConfig configures the PocketBase results store.
// An empty DataDir disables publishing.
type StorageConfig struct {
	DataDir string `yaml:"data_dir"`
}

// ServerConfig configures the results API
type ServerConfig struct {
	Port int `yaml:"port"`
}

// DefaultConfig returns the built-in settings
func DefaultConfig() *Config {
	return &Config{
		Normalize: NormalizeConfig{
			Input:  "test1.csv",
			Output: "test1_cleaned.csv",
		},
		Aggregate: AggregateConfig{
			Input:       filepath.Join("data-refinement", "og.csv"),
			Output:      "transformed_dataset.csv",
			PreviewRows: 5,
		},
		Server: ServerConfig{
			Port: 8080,
		},
	}
}

// Load reads path over the defaults and applies environment overrides.
// A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		path = DefaultConfigFile
	}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("decode config: %w", err)
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides honours PORT and DATA_DIR
func (c *Config) applyEnvOverrides() error {
	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PORT %q: %w", v, err)
		}
		c.Server.Port = port
	}
	if v := os.Getenv("DATA_DIR"); v != "" {
		c.Storage.DataDir = v
	}
	return nil
}

// Validate ensures all required fields are present and valid
func (c *Config) Validate() error {
	if c.Normalize.Input == "" || c.Normalize.Output == "" {
		return fmt.Errorf("normalize input and output are required")
	}
	if c.Aggregate.Input == "" || c.Aggregate.Output == "" {
		return fmt.Errorf("aggregate input and output are required")
	}
	if c.Aggregate.PreviewRows < 0 {
		return fmt.Errorf("aggregate preview_rows must not be negative")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	return nil
}

// Save writes the config as YAML
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
