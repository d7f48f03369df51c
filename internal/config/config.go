// Package config loads the daemon configuration. Files may be JSON or
// YAML (by extension); a default file is written on first run. The
// storage path and embedding dimension are fixed for the process
// lifetime and cannot be altered through the request surface.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config represents the daemon configuration.
type Config struct {
	Port       int              `json:"port" yaml:"port"`
	DataPath   string           `json:"data_path" yaml:"data_path"`
	Collection CollectionConfig `json:"collection" yaml:"collection"`
}

// CollectionConfig fixes the single collection's identity.
type CollectionConfig struct {
	Name      string `json:"name" yaml:"name"`
	Dimension int    `json:"dimension" yaml:"dimension"`
}

// Default returns a default configuration.
func Default() *Config {
	return &Config{
		Port:     8000,
		DataPath: "./zvec_data",
		Collection: CollectionConfig{
			Name:      "default",
			Dimension: 128,
		},
	}
}

// StorageLocation returns the on-disk location of the collection store.
func (c *Config) StorageLocation() string {
	return filepath.Join(c.DataPath, c.Collection.Name+".db")
}

// Load loads configuration from a file, creating a default one if the
// file does not exist. Environment variables override file values:
// ZVEC_DATA_PATH, ZVEC_DIMENSION and PORT.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := Default()
		cfg.applyEnv()
		if err := cfg.Save(path); err != nil {
			return nil, fmt.Errorf("failed to save default config: %w", err)
		}
		fmt.Printf("Created default configuration at %s\n", path)
		return cfg, cfg.Validate()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	default:
		err = json.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Expand ${ENV_VAR} placeholders in path fields.
	cfg.DataPath = os.ExpandEnv(cfg.DataPath)

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// Save saves the configuration to a file, JSON or YAML by extension.
func (c *Config) Save(path string) error {
	var data []byte
	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(c)
	default:
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// applyEnv overrides config fields from the environment.
func (c *Config) applyEnv() {
	if v := os.Getenv("ZVEC_DATA_PATH"); v != "" {
		c.DataPath = v
	}
	if v := os.Getenv("ZVEC_DIMENSION"); v != "" {
		if dim, err := strconv.Atoi(v); err == nil {
			c.Collection.Dimension = dim
		}
	}
	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Port = port
		}
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("port must be in 1..65535, got %d", c.Port)
	}
	if c.DataPath == "" {
		return fmt.Errorf("data_path must not be empty")
	}
	if c.Collection.Name == "" {
		return fmt.Errorf("collection name must not be empty")
	}
	if c.Collection.Dimension <= 0 {
		return fmt.Errorf("collection dimension must be positive, got %d", c.Collection.Dimension)
	}
	return nil
}
