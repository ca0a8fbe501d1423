package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/quantmind-br/pkgtx/internal/paths"
	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	Paths   PathsConfig   `mapstructure:"paths"`
	Host    HostConfig    `mapstructure:"host"`
	Lock    LockConfig    `mapstructure:"lock"`
	Output  OutputConfig  `mapstructure:"output"`
	History HistoryConfig `mapstructure:"history"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// PathsConfig contains path-related configuration
type PathsConfig struct {
	DataDir   string `mapstructure:"data_dir"`
	HistoryDB string `mapstructure:"history_db"`
	LogFile   string `mapstructure:"log_file"`
	LockFile  string `mapstructure:"lock_file"`
}

// HostConfig selects and configures the host package manager
type HostConfig struct {
	Backend      string `mapstructure:"backend"`
	DNFBinary    string `mapstructure:"dnf_binary"`
	PacmanBinary string `mapstructure:"pacman_binary"`
	UseSudo      bool   `mapstructure:"use_sudo"`
}

// LockConfig controls waiting for the package database lock
type LockConfig struct {
	Wait         bool          `mapstructure:"wait"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
}

// OutputConfig selects where the result document is written
type OutputConfig struct {
	FD int `mapstructure:"fd"`
}

// HistoryConfig contains transaction history configuration
type HistoryConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level string `mapstructure:"level"`
	Color string `mapstructure:"color"`
}

// Backends accepted by host.backend
var Backends = []string{"auto", "dnf", "pacman"}

// Load loads configuration from file and environment
func Load() (*Config, error) {
	return load(viper.New(), paths.NewResolver().ConfigSearchPaths())
}

func load(v *viper.Viper, searchPaths []string) (*Config, error) {
	resolver := paths.NewResolver()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	for _, p := range searchPaths {
		v.AddConfigPath(p)
	}

	setDefaults(v, resolver)

	// Environment variable overrides
	v.SetEnvPrefix("PKGTX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
		// Config file not found - use defaults
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.Paths.DataDir = resolver.Expand(cfg.Paths.DataDir)
	if cfg.Paths.HistoryDB == "" {
		cfg.Paths.HistoryDB = filepath.Join(cfg.Paths.DataDir, "history.db")
	}
	if cfg.Paths.LogFile == "" {
		cfg.Paths.LogFile = filepath.Join(cfg.Paths.DataDir, "pkgtx.log")
	}
	cfg.Paths.HistoryDB = resolver.Expand(cfg.Paths.HistoryDB)
	cfg.Paths.LogFile = resolver.Expand(cfg.Paths.LogFile)
	cfg.Paths.LockFile = resolver.Expand(cfg.Paths.LockFile)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks values that cannot be corrected silently
func (c *Config) Validate() error {
	backendOK := false
	for _, b := range Backends {
		if c.Host.Backend == b {
			backendOK = true
		}
	}
	if !backendOK {
		return invalid(fmt.Sprintf("host.backend must be one of %s, got %q", strings.Join(Backends, ", "), c.Host.Backend))
	}

	// 0, 1 and 2 are the standard streams; the document never goes there
	if c.Output.FD < 3 {
		return invalid(fmt.Sprintf("output.fd must be 3 or higher, got %d", c.Output.FD))
	}

	if c.Lock.PollInterval <= 0 {
		return invalid(fmt.Sprintf("lock.poll_interval must be positive, got %s", c.Lock.PollInterval))
	}

	switch c.Logging.Color {
	case "auto", "always", "never":
	default:
		return invalid(fmt.Sprintf("logging.color must be auto, always or never, got %q", c.Logging.Color))
	}

	return nil
}

func invalid(msg string) error {
	return errbuilder.New().
		WithCode(errbuilder.CodeInvalidArgument).
		WithMsg("invalid configuration: " + msg)
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper, r *paths.Resolver) {
	v.SetDefault("paths.data_dir", r.DataDir())
	v.SetDefault("paths.history_db", "")
	v.SetDefault("paths.log_file", "")
	v.SetDefault("paths.lock_file", r.LockFile())

	v.SetDefault("host.backend", "auto")
	v.SetDefault("host.dnf_binary", "dnf")
	v.SetDefault("host.pacman_binary", "pacman")
	v.SetDefault("host.use_sudo", false)

	v.SetDefault("lock.wait", true)
	v.SetDefault("lock.poll_interval", 250*time.Millisecond)

	v.SetDefault("output.fd", 3)

	v.SetDefault("history.enabled", true)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.color", "auto")
}
