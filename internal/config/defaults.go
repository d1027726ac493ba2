package config

import (
	"time"

	"git.home.luguber.info/inful/datainit/internal/backup"
)

// Default values.
const (
	DefaultStoragePath    = "./data"
	DefaultBackupDir      = "./backups"
	DefaultSubjectPrefix  = "datainit"
	DefaultNATSTimeout    = 5 * time.Second
	DefaultListen         = ":8090"
	DefaultReloadInterval = 15 * time.Minute
	DefaultStallWarning   = 30 * time.Second
)

// Default returns a fully defaulted configuration.
func Default() *Config {
	c := &Config{Version: CurrentVersion, Backup: BackupConfig{Enabled: true}, Daemon: DaemonConfig{Watch: true}}
	ApplyDefaults(c)
	return c
}

// ApplyDefaults fills unset fields. It runs after Normalize. A negative
// reload interval disables periodic reloads and is kept as zero.
func ApplyDefaults(c *Config) {
	if c.Version == "" {
		c.Version = CurrentVersion
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = StorageJSON
	}
	if c.Storage.Path == "" {
		c.Storage.Path = DefaultStoragePath
		if c.Storage.Driver == StorageSQLite {
			c.Storage.Path = DefaultStoragePath + "/datainit.db"
		}
	}
	if c.Backup.Dir == "" {
		c.Backup.Dir = DefaultBackupDir
	}
	if c.Backup.MaxSizeMB <= 0 {
		c.Backup.MaxSizeMB = backup.DefaultMaxSize >> 20
	}
	if c.Confirm.Mode == "" {
		c.Confirm.Mode = ConfirmPrompt
	}
	if c.NATS.SubjectPrefix == "" {
		c.NATS.SubjectPrefix = DefaultSubjectPrefix
	}
	if c.NATS.Timeout <= 0 {
		c.NATS.Timeout = DefaultNATSTimeout
	}
	if c.Logging.Level == "" {
		c.Logging.Level = LogLevelInfo
	}
	if c.Logging.Format == "" {
		c.Logging.Format = LogFormatText
	}
	if c.Daemon.Listen == "" {
		c.Daemon.Listen = DefaultListen
	}
	switch {
	case c.Daemon.ReloadInterval < 0:
		c.Daemon.ReloadInterval = 0
	case c.Daemon.ReloadInterval == 0:
		c.Daemon.ReloadInterval = DefaultReloadInterval
	}
	if c.Daemon.StallWarning <= 0 {
		c.Daemon.StallWarning = DefaultStallWarning
	}
}

// BackupMaxBytes is the backup read limit in bytes.
func (c *Config) BackupMaxBytes() int64 {
	return c.Backup.MaxSizeMB << 20
}
