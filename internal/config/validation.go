package config

import (
	"net"
	"net/url"
	"time"

	"git.home.luguber.info/inful/datainit/internal/foundation/errors"
)

// minReloadInterval keeps periodic reloads from hammering the store.
const minReloadInterval = 10 * time.Second

// Validate checks a normalized, defaulted configuration.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case StorageJSON, StorageSQLite:
	default:
		return invalid("storage.driver", c.Storage.Driver, "must be json or sqlite")
	}
	switch c.Confirm.Mode {
	case ConfirmPrompt, ConfirmAlways, ConfirmNever:
	default:
		return invalid("confirm.mode", c.Confirm.Mode, "must be prompt, always or never")
	}
	if c.Backup.Enabled && c.Backup.Dir == "" {
		return invalid("backup.dir", "", "required when backups are enabled")
	}
	if c.NATS.URL != "" {
		u, err := url.Parse(c.NATS.URL)
		if err != nil || u.Host == "" {
			return invalid("nats.url", c.NATS.URL, "must be an absolute URL such as nats://host:4222")
		}
	}
	if c.NATS.Retry.MaxRetries < 0 {
		return invalid("nats.retry.max_retries", c.NATS.Retry.MaxRetries, "cannot be negative")
	}
	if c.Daemon.ReloadInterval != 0 && c.Daemon.ReloadInterval < minReloadInterval {
		return invalid("daemon.reload_interval", c.Daemon.ReloadInterval, "must be at least 10s or 0 to disable")
	}
	if _, _, err := net.SplitHostPort(c.Daemon.Listen); err != nil {
		return invalid("daemon.listen", c.Daemon.Listen, "must be host:port")
	}
	return nil
}

func invalid(field string, value any, reason string) error {
	return errors.ConfigError("invalid configuration: "+field+" "+reason).
		WithContext("field", field).
		WithContext("value", value).
		Build()
}
