// Package config provides configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/multierr"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultConfigDir is the directory name for relmap configuration.
	DefaultConfigDir = ".relmap"
	// DefaultConfigFile is the default config file name.
	DefaultConfigFile = "config.yaml"
	// DefaultDatabaseFile is the database file name used when sqlite.path is empty.
	DefaultDatabaseFile = "relmap.db"
)

// Environment variables that override the config file.
const (
	EnvDBPath   = "RELMAP_DB_PATH"
	EnvLogLevel = "RELMAP_LOG_LEVEL"
)

// Config holds static infrastructure configuration (read-only after init).
type Config struct {
	SQLite  SQLiteConfig  `yaml:"sqlite,omitempty"`
	Logging LoggingConfig `yaml:"logging,omitempty"`
	Mapping MappingConfig `yaml:"mapping,omitempty"`
}

// SQLiteConfig holds configuration for the SQLite relational database.
type SQLiteConfig struct {
	// Path is the file path to the SQLite database. Relative paths are resolved
	// against the project directory; empty means .relmap/relmap.db.
	Path string `yaml:"path,omitempty"`
}

// LoggingConfig holds configuration for the zap logger.
type LoggingConfig struct {
	Level       string `yaml:"level,omitempty"`
	Development bool   `yaml:"development,omitempty"`
}

// MappingConfig tunes the relation mapping engine.
type MappingConfig struct {
	// NullValue is "clear" or "ignore": what an absent relations-only picker value means.
	NullValue string `yaml:"null_value,omitempty"`
	// Duplicates is "preserve" or "dedupe": how repeated picked ids are handled.
	Duplicates string `yaml:"duplicates,omitempty"`
	// Workers bounds concurrent reconciles per save batch.
	Workers int `yaml:"workers,omitempty"`
	// PickerEditors overrides the editor aliases treated as pickers.
	PickerEditors []string `yaml:"picker_editors,omitempty"`
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level: "info",
		},
		Mapping: MappingConfig{
			NullValue:  "clear",
			Duplicates: "preserve",
			Workers:    1,
		},
	}
}

// Load loads configuration from the .relmap directory in the given path.
func Load(basePath string) (*Config, error) {
	configFile := ConfigFilePath(basePath)

	data, err := os.ReadFile(configFile)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s (run 'relmap init' first)", configFile)
	}
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Start with defaults
	cfg := Default()

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Apply environment variable overrides
	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", configFile, err)
	}
	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if path := os.Getenv(EnvDBPath); path != "" {
		c.SQLite.Path = path
	}
	if level := os.Getenv(EnvLogLevel); level != "" {
		c.Logging.Level = level
	}
}

// Validate reports every invalid setting.
func (c *Config) Validate() error {
	var errs error
	if _, err := zapcore.ParseLevel(c.Logging.Level); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("logging.level: %w", err))
	}
	switch c.Mapping.NullValue {
	case "clear", "ignore":
	default:
		errs = multierr.Append(errs, fmt.Errorf("mapping.null_value: must be clear or ignore, got %q", c.Mapping.NullValue))
	}
	switch c.Mapping.Duplicates {
	case "preserve", "dedupe":
	default:
		errs = multierr.Append(errs, fmt.Errorf("mapping.duplicates: must be preserve or dedupe, got %q", c.Mapping.Duplicates))
	}
	if c.Mapping.Workers < 0 {
		errs = multierr.Append(errs, errors.New("mapping.workers: must not be negative"))
	}
	for _, alias := range c.Mapping.PickerEditors {
		if strings.TrimSpace(alias) == "" {
			errs = multierr.Append(errs, errors.New("mapping.picker_editors: empty alias"))
			break
		}
	}
	return errs
}

// DatabasePath returns the SQLite database path for a project.
func (c *Config) DatabasePath(basePath string) string {
	switch {
	case c.SQLite.Path == "":
		return filepath.Join(basePath, DefaultConfigDir, DefaultDatabaseFile)
	case c.SQLite.Path == ":memory:", filepath.IsAbs(c.SQLite.Path):
		return c.SQLite.Path
	default:
		return filepath.Join(basePath, c.SQLite.Path)
	}
}

// ConfigDir returns the path to the .relmap config directory.
func ConfigDir(basePath string) string {
	return filepath.Join(basePath, DefaultConfigDir)
}

// ConfigFilePath returns the path to the config file.
func ConfigFilePath(basePath string) string {
	return filepath.Join(basePath, DefaultConfigDir, DefaultConfigFile)
}

// Exists checks if a relmap config exists in the given path.
func Exists(basePath string) bool {
	_, err := os.Stat(ConfigFilePath(basePath))
	return err == nil
}
