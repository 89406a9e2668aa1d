package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "info", cfg.Logging.Level)
	assert.False(t, cfg.Logging.Development)
	assert.Equal(t, "clear", cfg.Mapping.NullValue)
	assert.Equal(t, "preserve", cfg.Mapping.Duplicates)
	assert.Equal(t, 1, cfg.Mapping.Workers)
	assert.Empty(t, cfg.Mapping.PickerEditors)
	assert.NoError(t, cfg.Validate())
}

func TestConfigDir(t *testing.T) {
	result := ConfigDir("/home/user/project")
	assert.Equal(t, "/home/user/project/.relmap", result)
}

func TestConfigFilePath(t *testing.T) {
	result := ConfigFilePath("/home/user/project")
	assert.Equal(t, "/home/user/project/.relmap/config.yaml", result)
}

func TestDatabasePath(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		expected string
	}{
		{name: "empty uses default file", path: "", expected: "/p/.relmap/relmap.db"},
		{name: "relative joined to project", path: "data/x.db", expected: "/p/data/x.db"},
		{name: "absolute kept", path: "/var/db/x.db", expected: "/var/db/x.db"},
		{name: "memory kept", path: ":memory:", expected: ":memory:"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.SQLite.Path = tt.path
			assert.Equal(t, tt.expected, cfg.DatabasePath("/p"))
		})
	}
}

func TestWriteDefaultAndLoad(t *testing.T) {
	dir := t.TempDir()

	assert.False(t, Exists(dir))
	require.NoError(t, WriteDefault(dir))
	assert.True(t, Exists(dir))

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	err = WriteDefault(dir)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}

func TestLoad_NotFound(t *testing.T) {
	_, err := Load(t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "relmap init")
}

func TestLoad_FileValues(t *testing.T) {
	dir := t.TempDir()
	content := `
sqlite:
  path: custom.db
logging:
  level: debug
  development: true
mapping:
  null_value: ignore
  duplicates: dedupe
  workers: 4
  picker_editors:
    - My.Picker
`
	require.NoError(t, os.MkdirAll(ConfigDir(dir), 0755))
	require.NoError(t, os.WriteFile(ConfigFilePath(dir), []byte(content), 0644))

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "custom.db"), cfg.DatabasePath(dir))
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, cfg.Logging.Development)
	assert.Equal(t, "ignore", cfg.Mapping.NullValue)
	assert.Equal(t, "dedupe", cfg.Mapping.Duplicates)
	assert.Equal(t, 4, cfg.Mapping.Workers)
	assert.Equal(t, []string{"My.Picker"}, cfg.Mapping.PickerEditors)
}

func TestLoad_EnvOverrides(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, WriteDefault(dir))

	t.Setenv(EnvDBPath, "/tmp/override.db")
	t.Setenv(EnvLogLevel, "warn")

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/override.db", cfg.DatabasePath(dir))
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "bad level", mutate: func(c *Config) { c.Logging.Level = "loud" }, wantErr: "logging.level"},
		{name: "bad null value", mutate: func(c *Config) { c.Mapping.NullValue = "skip" }, wantErr: "mapping.null_value"},
		{name: "bad duplicates", mutate: func(c *Config) { c.Mapping.Duplicates = "merge" }, wantErr: "mapping.duplicates"},
		{name: "negative workers", mutate: func(c *Config) { c.Mapping.Workers = -1 }, wantErr: "mapping.workers"},
		{name: "blank editor", mutate: func(c *Config) { c.Mapping.PickerEditors = []string{" "} }, wantErr: "mapping.picker_editors"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestWrite(t *testing.T) {
	dir := t.TempDir()
	cfg := Default()
	cfg.Mapping.Workers = 3

	require.NoError(t, Write(dir, cfg))

	loaded, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, 3, loaded.Mapping.Workers)
}
