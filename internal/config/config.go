// Package config holds the consultai configuration: storage backend
// selection, LLM settings for the assistant, and logging. Loaded from a YAML
// file with environment overrides applied on top.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Backend names accepted by Storage.Backend.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
)

// Config holds all consultai configuration.
type Config struct {
	Name string `yaml:"name"`

	// Storage selects and parameterizes the persistence backend.
	Storage StorageConfig `yaml:"storage"`

	// LLM configures the AI assistant.
	LLM LLMConfig `yaml:"llm"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// StorageConfig selects the store implementation. The memory backend keeps
// everything in process and loses state on restart; sqlite persists to Path.
type StorageConfig struct {
	Backend string `yaml:"backend"` // memory, sqlite
	Path    string `yaml:"path"`
}

// LLMConfig configures the assistant's model.
type LLMConfig struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
}

// LoggingConfig controls log verbosity.
type LoggingConfig struct {
	Verbose bool `yaml:"verbose"`
}

// DefaultConfig returns the baseline configuration: durable sqlite storage
// under the user's home directory and the default assistant model.
func DefaultConfig() *Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return &Config{
		Name: "consultai",
		Storage: StorageConfig{
			Backend: BackendSQLite,
			Path:    filepath.Join(home, ".consultai", "consultai.db"),
		},
		LLM: LLMConfig{
			Model: "gemini-2.0-flash",
		},
	}
}

// Load reads the config file at path, falling back to defaults when the file
// does not exist, then applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save writes the config as YAML, creating parent directories as needed.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// applyEnvOverrides lets the environment win over the file.
func (c *Config) applyEnvOverrides() {
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		c.LLM.APIKey = key
	}
	if backend := os.Getenv("CONSULTAI_BACKEND"); backend != "" {
		c.Storage.Backend = backend
	}
	if path := os.Getenv("CONSULTAI_DB_PATH"); path != "" {
		c.Storage.Path = path
	}
}

// Validate checks the config for contradictions before anything starts.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case BackendMemory:
	case BackendSQLite:
		if c.Storage.Path == "" {
			return fmt.Errorf("storage.path required for the sqlite backend")
		}
	default:
		return fmt.Errorf("unknown storage backend %q (want %s or %s)",
			c.Storage.Backend, BackendMemory, BackendSQLite)
	}
	if c.LLM.Model == "" {
		return fmt.Errorf("llm.model must not be empty")
	}
	return nil
}
