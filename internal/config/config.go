package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/maloquacious/count/internal/logger"
	"gopkg.in/yaml.v3"
)

// Default values for configuration fields.
const (
	DefaultStorePath  = "."
	DefaultBackupDir  = "backups"
	DefaultLogLevel   = "info"
	DefaultLogFormat  = "console"
	DefaultMaxSizeMB  = 10
	DefaultMaxBackups = 3
	DefaultMaxAgeDays = 28
)

// Config holds the application configuration loaded from file, environment, and flags.
type Config struct {
	StorePath string    `yaml:"store_path"`
	BackupDir string    `yaml:"backup_dir"`
	Log       LogConfig `yaml:"log"`
}

// LogConfig selects log level, format, and optional rotating file output.
type LogConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// New returns a Config populated with default values.
func New() *Config {
	return &Config{
		StorePath: DefaultStorePath,
		BackupDir: DefaultBackupDir,
		Log: LogConfig{
			Level:      DefaultLogLevel,
			Format:     DefaultLogFormat,
			MaxSizeMB:  DefaultMaxSizeMB,
			MaxBackups: DefaultMaxBackups,
			MaxAgeDays: DefaultMaxAgeDays,
		},
	}
}

// Load reads a YAML configuration file over the defaults.
// If allowMissing is true and the file does not exist, defaults are returned.
func Load(path string, allowMissing bool) (*Config, error) {
	cfg := New()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && allowMissing {
			return cfg, nil
		}

		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}

	return cfg, nil
}

// MergeEnv overrides config fields from COUNT_* environment variables.
// A numeric variable that does not parse is an error.
func MergeEnv(cfg *Config) error {
	if v := os.Getenv("COUNT_STORE_PATH"); v != "" {
		cfg.StorePath = v
	}

	if v := os.Getenv("COUNT_BACKUP_DIR"); v != "" {
		cfg.BackupDir = v
	}

	if v := os.Getenv("COUNT_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}

	if v := os.Getenv("COUNT_LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}

	if v := os.Getenv("COUNT_LOG_FILE"); v != "" {
		cfg.Log.File = v
	}

	ints := []struct {
		name string
		dst  *int
	}{
		{"COUNT_LOG_MAX_SIZE_MB", &cfg.Log.MaxSizeMB},
		{"COUNT_LOG_MAX_BACKUPS", &cfg.Log.MaxBackups},
		{"COUNT_LOG_MAX_AGE_DAYS", &cfg.Log.MaxAgeDays},
	}
	for _, e := range ints {
		v := os.Getenv(e.name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parsing %s %q: %w", e.name, v, err)
		}
		*e.dst = n
	}

	return nil
}

// Validate rejects values the application cannot act on.
func (c *Config) Validate() error {
	switch c.Log.Format {
	case "console", "json":
	default:
		return fmt.Errorf("log.format must be console or json, got %q", c.Log.Format)
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be debug, info, warn or error, got %q", c.Log.Level)
	}

	if c.Log.MaxSizeMB < 0 || c.Log.MaxBackups < 0 || c.Log.MaxAgeDays < 0 {
		return fmt.Errorf("log rotation limits must not be negative")
	}

	return nil
}

// LoggerOptions converts the log section for the logger package.
func (c *Config) LoggerOptions() logger.Options {
	return logger.Options{
		Level:      c.Log.Level,
		Format:     c.Log.Format,
		File:       c.Log.File,
		MaxSizeMB:  c.Log.MaxSizeMB,
		MaxBackups: c.Log.MaxBackups,
		MaxAgeDays: c.Log.MaxAgeDays,
	}
}
