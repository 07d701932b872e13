package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "refcrop.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{EnvConfigPath, EnvLogLevel, EnvOutputPrefix, EnvMaxNameLength, EnvMetricsAddr} {
		t.Setenv(k, "")
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()
	require.Equal(t, "CR_", cfg.OutputPrefix)
	require.Equal(t, 63, cfg.MaxNameLength)
	require.Equal(t, "info", cfg.LogLevel)
	require.True(t, cfg.AutoUpdate)
	require.Empty(t, cfg.MetricsAddr)
	require.NoError(t, Validate(cfg))
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
output_prefix: "REF_"
log_level: debug
auto_update: false
metrics_addr: "127.0.0.1:9464"
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "REF_", cfg.OutputPrefix)
	require.Equal(t, "debug", cfg.LogLevel)
	require.False(t, cfg.AutoUpdate)
	require.Equal(t, "127.0.0.1:9464", cfg.MetricsAddr)
	require.Equal(t, 63, cfg.MaxNameLength, "unset keys keep their defaults")
}

func TestLoad_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		require.Error(t, err)
	})

	t.Run("bad yaml", func(t *testing.T) {
		_, err := Load(writeConfig(t, "output_prefix: [unterminated"))
		require.Error(t, err)
	})

	t.Run("invalid values", func(t *testing.T) {
		_, err := Load(writeConfig(t, "log_level: loud\n"))
		require.ErrorIs(t, err, ErrInvalidConfig)
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"empty prefix", func(c *Config) { c.OutputPrefix = "" }, true},
		{"name limit too short", func(c *Config) { c.MaxNameLength = 5 }, true},
		{"name limit just fits", func(c *Config) { c.MaxNameLength = 6 }, false},
		{"unknown level", func(c *Config) { c.LogLevel = "verbose" }, true},
		{"upper case level", func(c *Config) { c.LogLevel = "WARN" }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := Validate(cfg)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidConfig)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestFromEnv(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		clearEnv(t)
		cfg, err := FromEnv("")
		require.NoError(t, err)
		require.Equal(t, Default(), cfg)
	})

	t.Run("env overrides file", func(t *testing.T) {
		clearEnv(t)
		t.Setenv(EnvConfigPath, writeConfig(t, "output_prefix: FILE_\nlog_level: warn\n"))
		t.Setenv(EnvLogLevel, "error")
		t.Setenv(EnvMaxNameLength, "40")

		cfg, err := FromEnv("")
		require.NoError(t, err)
		require.Equal(t, "FILE_", cfg.OutputPrefix)
		require.Equal(t, "error", cfg.LogLevel)
		require.Equal(t, 40, cfg.MaxNameLength)
	})

	t.Run("explicit path wins over env path", func(t *testing.T) {
		clearEnv(t)
		t.Setenv(EnvConfigPath, filepath.Join(t.TempDir(), "missing.yaml"))
		cfg, err := FromEnv(writeConfig(t, "output_prefix: ARG_\n"))
		require.NoError(t, err)
		require.Equal(t, "ARG_", cfg.OutputPrefix)
	})

	t.Run("prefix override", func(t *testing.T) {
		clearEnv(t)
		t.Setenv(EnvOutputPrefix, "X_")
		t.Setenv(EnvMetricsAddr, ":9464")
		cfg, err := FromEnv("")
		require.NoError(t, err)
		require.Equal(t, "X_", cfg.OutputPrefix)
		require.Equal(t, ":9464", cfg.MetricsAddr)
	})

	t.Run("bad name length", func(t *testing.T) {
		clearEnv(t)
		t.Setenv(EnvMaxNameLength, "lots")
		_, err := FromEnv("")
		require.ErrorIs(t, err, ErrInvalidConfig)
	})
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"", slog.LevelInfo},
		{"INFO", slog.LevelInfo},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		require.NoError(t, err, tt.in)
		require.Equal(t, tt.want, got, tt.in)
	}

	_, err := ParseLevel("trace")
	require.Error(t, err)
}
