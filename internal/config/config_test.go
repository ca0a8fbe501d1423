package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	// Test loading config (will use defaults if file doesn't exist)
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg == nil {
		t.Fatal("expected config, got nil")
	}

	if cfg.Logging.Level == "" {
		t.Error("expected default log level, got empty")
	}

	if cfg.Paths.DataDir == "" {
		t.Error("expected default data_dir, got empty")
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := load(viper.New(), []string{t.TempDir()})
	require.NoError(t, err)

	assert.Equal(t, "auto", cfg.Host.Backend)
	assert.Equal(t, "dnf", cfg.Host.DNFBinary)
	assert.Equal(t, "pacman", cfg.Host.PacmanBinary)
	assert.False(t, cfg.Host.UseSudo)
	assert.True(t, cfg.Lock.Wait)
	assert.Equal(t, 250*time.Millisecond, cfg.Lock.PollInterval)
	assert.Equal(t, 3, cfg.Output.FD)
	assert.True(t, cfg.History.Enabled)
	assert.Equal(t, filepath.Join(os.TempDir(), "pkgtx.lock"), cfg.Paths.LockFile)
	assert.Equal(t, filepath.Join(cfg.Paths.DataDir, "history.db"), cfg.Paths.HistoryDB)
	assert.Equal(t, filepath.Join(cfg.Paths.DataDir, "pkgtx.log"), cfg.Paths.LogFile)
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	content := `
[paths]
data_dir = "/srv/pkgtx"

[host]
backend = "pacman"
use_sudo = true

[lock]
wait = false
poll_interval = "1s"

[output]
fd = 4
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(content), 0o644))

	cfg, err := load(viper.New(), []string{dir})
	require.NoError(t, err)

	assert.Equal(t, "pacman", cfg.Host.Backend)
	assert.True(t, cfg.Host.UseSudo)
	assert.False(t, cfg.Lock.Wait)
	assert.Equal(t, time.Second, cfg.Lock.PollInterval)
	assert.Equal(t, 4, cfg.Output.FD)
	assert.Equal(t, "/srv/pkgtx/history.db", cfg.Paths.HistoryDB)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("PKGTX_HOST_BACKEND", "dnf")
	t.Setenv("PKGTX_HISTORY_ENABLED", "false")
	t.Setenv("PKGTX_PATHS_HISTORY_DB", "$HOME/custom.db")

	cfg, err := load(viper.New(), []string{t.TempDir()})
	require.NoError(t, err)

	assert.Equal(t, "dnf", cfg.Host.Backend)
	assert.False(t, cfg.History.Enabled)
	assert.Equal(t, filepath.Join(os.Getenv("HOME"), "custom.db"), cfg.Paths.HistoryDB)
}

func TestLoad_InvalidFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte("[host\nbackend ="), 0o644))

	_, err := load(viper.New(), []string{dir})
	assert.ErrorContains(t, err, "read config")
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Host:    HostConfig{Backend: "auto"},
			Lock:    LockConfig{PollInterval: time.Second},
			Output:  OutputConfig{FD: 3},
			Logging: LoggingConfig{Color: "auto"},
		}
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "unknown backend", mutate: func(c *Config) { c.Host.Backend = "apt" }, errMsg: "host.backend"},
		{name: "stdout fd", mutate: func(c *Config) { c.Output.FD = 1 }, errMsg: "output.fd"},
		{name: "zero poll", mutate: func(c *Config) { c.Lock.PollInterval = 0 }, errMsg: "lock.poll_interval"},
		{name: "bad color", mutate: func(c *Config) { c.Logging.Color = "rainbow" }, errMsg: "logging.color"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			var builder *errbuilder.ErrBuilder
			require.True(t, errors.As(err, &builder))
			assert.Contains(t, builder.Msg, tt.errMsg)
			assert.Equal(t, errbuilder.CodeInvalidArgument, errbuilder.CodeOf(err))
		})
	}
}

func TestLoad_ExpandsPaths(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("TEST_PKGTX_ROOT", dir)
	content := `[paths]
data_dir = "$TEST_PKGTX_ROOT/data"
lock_file = "~/pkgtx.lock"
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(content), 0o644))

	cfg, err := load(viper.New(), []string{dir})
	require.NoError(t, err)

	homeDir, _ := os.UserHomeDir()
	assert.Equal(t, filepath.Join(dir, "data"), cfg.Paths.DataDir)
	assert.Equal(t, filepath.Join(dir, "data", "history.db"), cfg.Paths.HistoryDB)
	if homeDir != "" {
		assert.Equal(t, filepath.Join(homeDir, "pkgtx.lock"), cfg.Paths.LockFile)
	}
}
