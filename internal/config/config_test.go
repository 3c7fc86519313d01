package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/mitchellh/go-homedir"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, ".", cfg.OutputDir)
	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Format)
	assert.NoError(t, cfg.Validate())
}

func TestConfig_SaveLoad(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "nested", "config.yaml")

	cfg := DefaultConfig()
	cfg.OutputDir = "/data/grids"
	cfg.SearchPaths = []string{"/usr/share/LHAPDF", "~/lhapdf"}
	cfg.Workers = 8
	cfg.Logging.Categories = map[string]bool{"build": false}

	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("logging:\n  level: debug\n"), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Format)
	assert.Equal(t, 4, cfg.Workers)
}

func TestLoad_Errors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("workers: [1, 2\n"), 0644))
	_, err := Load(path)
	assert.ErrorContains(t, err, "failed to parse config")

	_, err = Load(t.TempDir())
	assert.ErrorContains(t, err, "failed to read config")
}

func TestEnvOverrides(t *testing.T) {
	t.Run("env wins over file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte("output_dir: from-file\nworkers: 2\n"), 0644))
		t.Setenv("MCSCALES_OUTPUT_DIR", "from-env")
		t.Setenv("MCSCALES_WORKERS", "16")
		t.Setenv("MCSCALES_LOG_LEVEL", "warn")
		t.Setenv("MCSCALES_LOG_FORMAT", "json")

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, "from-env", cfg.OutputDir)
		assert.Equal(t, 16, cfg.Workers)
		assert.Equal(t, "warn", cfg.Logging.Level)
		assert.Equal(t, "json", cfg.Logging.Format)
	})

	t.Run("LHAPDF_DATA_PATH splits on colon", func(t *testing.T) {
		t.Setenv("LHAPDF_DATA_PATH", "/a/share:/b/share")

		cfg := DefaultConfig()
		require.NoError(t, cfg.applyEnvOverrides())
		assert.Equal(t, []string{"/a/share", "/b/share"}, cfg.SearchPaths)
	})

	t.Run("malformed value is an error", func(t *testing.T) {
		t.Setenv("MCSCALES_WORKERS", "many")

		_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
		assert.ErrorContains(t, err, "parse env:")
	})
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		errMsg string
	}{
		{"empty output dir", func(c *Config) { c.OutputDir = "" }, "output_dir"},
		{"no workers", func(c *Config) { c.Workers = 0 }, "workers must be at least 1"},
		{"bad level", func(c *Config) { c.Logging.Level = "chatty" }, "invalid log level: chatty"},
		{"bad format", func(c *Config) { c.Logging.Format = "xml" }, "invalid log format: xml"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			assert.ErrorContains(t, cfg.Validate(), tt.errMsg)
		})
	}
}

func TestPaths(t *testing.T) {
	t.Setenv("HOME", "/home/tester")
	homedir.DisableCache = true
	t.Cleanup(func() { homedir.DisableCache = false })

	assert.Equal(t, filepath.Join("/home/tester", ".config", "mcscales", "config.yaml"), DefaultConfigPath())

	cfg := DefaultConfig()
	cfg.OutputDir = "~/grids"
	dir, err := cfg.ResolvedOutputDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/home/tester", "grids"), dir)
}

func TestLoggingConfig_IsCategoryEnabled(t *testing.T) {
	cfg := LoggingConfig{}
	assert.True(t, cfg.IsCategoryEnabled("build"))

	cfg.Categories = map[string]bool{"build": false, "codec": true}
	assert.False(t, cfg.IsCategoryEnabled("build"))
	assert.True(t, cfg.IsCategoryEnabled("codec"))
	assert.True(t, cfg.IsCategoryEnabled("validate"))
}
