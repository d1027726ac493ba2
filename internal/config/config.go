// Package config loads the datainit YAML configuration.
//
// Loading follows a fixed order: .env files, ${VAR} expansion, YAML decode,
// normalization of enumerated fields, defaults, validation.
package config

import (
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/datainit/internal/foundation/errors"
)

// CurrentVersion is the configuration format version this build reads.
const CurrentVersion = "1"

// Config is the root configuration.
type Config struct {
	Version string        `yaml:"version"`
	Storage StorageConfig `yaml:"storage"`
	Backup  BackupConfig  `yaml:"backup"`
	Confirm ConfirmConfig `yaml:"confirm"`
	Journal JournalConfig `yaml:"journal"`
	NATS    NATSConfig    `yaml:"nats"`
	Logging LoggingConfig `yaml:"logging"`
	Daemon  DaemonConfig  `yaml:"daemon"`
}

// StorageConfig selects the persistence gateway. Path is a directory for the
// json driver and a database file for sqlite.
type StorageConfig struct {
	Driver StorageDriver `yaml:"driver"`
	Path   string        `yaml:"path"`
}

// BackupConfig controls the backup-if-empty check.
type BackupConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Dir       string `yaml:"dir"`
	MaxSizeMB int64  `yaml:"max_size_mb"`
}

// ConfirmConfig decides how operator questions are answered.
type ConfirmConfig struct {
	Mode ConfirmMode `yaml:"mode"`
}

// JournalConfig locates the bootstrap journal. An empty path disables it.
type JournalConfig struct {
	Path string `yaml:"path"`
}

// NATSConfig enables remote publication when URL is set.
type NATSConfig struct {
	URL           string        `yaml:"url"`
	SubjectPrefix string        `yaml:"subject_prefix"`
	JetStream     bool          `yaml:"jetstream"`
	Timeout       time.Duration `yaml:"timeout"`
	Retry         RetryConfig   `yaml:"retry"`
}

// RetryConfig controls reconnect attempts when the broker is unreachable at
// startup. MaxRetries of zero means a single attempt.
type RetryConfig struct {
	Backoff    RetryBackoffMode `yaml:"backoff"`
	Initial    time.Duration    `yaml:"initial"`
	Max        time.Duration    `yaml:"max"`
	MaxRetries int              `yaml:"max_retries"`
}

// LoggingConfig configures the slog handler.
type LoggingConfig struct {
	Level  LogLevel  `yaml:"level"`
	Format LogFormat `yaml:"format"`
}

// DaemonConfig configures the long-running mode.
type DaemonConfig struct {
	Listen         string        `yaml:"listen"`
	ReloadInterval time.Duration `yaml:"reload_interval"`
	Watch          bool          `yaml:"watch"`
	StallWarning   time.Duration `yaml:"stall_warning"`
}

// Load reads, normalizes, defaults and validates the file at path.
func Load(path string) (*Config, error) {
	loadEnvFiles()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.ConfigError("configuration file not found").
				WithContext("path", path).Build()
		}
		return nil, errors.WrapError(err, errors.CategoryConfig, "failed to read config file").
			WithContext("path", path).Build()
	}
	return Parse(data)
}

// Parse is Load without the file system: data is expanded, decoded and
// checked the same way.
func Parse(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, errors.WrapError(err, errors.CategoryConfig, "failed to unmarshal config").Fatal().Build()
	}

	if cfg.Version != "" && cfg.Version != CurrentVersion {
		return nil, errors.ConfigError("unsupported configuration version").
			WithContext("version", cfg.Version).
			WithContext("expected", CurrentVersion).Build()
	}

	res := Normalize(&cfg)
	for _, w := range res.Warnings {
		slog.Warn("Config normalization", "detail", w)
	}
	ApplyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Init writes an example configuration to path. It refuses to overwrite an
// existing file unless force is set.
func Init(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return errors.ConfigError("configuration file already exists (use --force to overwrite)").
			WithContext("path", path).Build()
	}

	example := Default()
	example.NATS.URL = "${NATS_URL}"
	example.NATS.Retry = RetryConfig{Backoff: RetryBackoffLinear, Initial: time.Second, Max: 30 * time.Second, MaxRetries: 3}
	out, err := yaml.Marshal(example)
	if err != nil {
		return errors.WrapError(err, errors.CategoryInternal, "failed to marshal config").Build()
	}
	if err := os.WriteFile(path, out, 0o600); err != nil {
		return errors.WrapError(err, errors.CategoryConfig, "failed to write config file").
			WithContext("path", path).Build()
	}
	return nil
}
