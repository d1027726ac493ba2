package config

import (
	"fmt"
	"strings"
)

// NormalizationResult captures coercions made by Normalize.
type NormalizationResult struct {
	Warnings []string
}

// Normalize canonicalizes enumerated fields in place. Storage driver and
// confirm mode are left alone when unknown so Validate can reject them; log
// settings fall back to safe values.
func Normalize(c *Config) *NormalizationResult {
	res := &NormalizationResult{}
	if c == nil {
		return res
	}

	if d := NormalizeStorageDriver(string(c.Storage.Driver)); d != "" && d != c.Storage.Driver {
		res.Warnings = append(res.Warnings, warnChanged("storage.driver", c.Storage.Driver, d))
		c.Storage.Driver = d
	}
	if m := NormalizeConfirmMode(string(c.Confirm.Mode)); m != "" && m != c.Confirm.Mode {
		res.Warnings = append(res.Warnings, warnChanged("confirm.mode", c.Confirm.Mode, m))
		c.Confirm.Mode = m
	}

	if lvl := NormalizeLogLevel(string(c.Logging.Level)); lvl != "" {
		if c.Logging.Level != lvl {
			res.Warnings = append(res.Warnings, warnChanged("logging.level", c.Logging.Level, lvl))
			c.Logging.Level = lvl
		}
	} else if strings.TrimSpace(string(c.Logging.Level)) != "" {
		res.Warnings = append(res.Warnings, warnUnknown("logging.level", string(c.Logging.Level), string(LogLevelInfo)))
		c.Logging.Level = LogLevelInfo
	}
	if f := NormalizeLogFormat(string(c.Logging.Format)); f != "" {
		if c.Logging.Format != f {
			res.Warnings = append(res.Warnings, warnChanged("logging.format", c.Logging.Format, f))
			c.Logging.Format = f
		}
	} else if strings.TrimSpace(string(c.Logging.Format)) != "" {
		res.Warnings = append(res.Warnings, warnUnknown("logging.format", string(c.Logging.Format), string(LogFormatText)))
		c.Logging.Format = LogFormatText
	}

	if b := NormalizeRetryBackoff(string(c.NATS.Retry.Backoff)); b != "" {
		c.NATS.Retry.Backoff = b
	} else if strings.TrimSpace(string(c.NATS.Retry.Backoff)) != "" {
		res.Warnings = append(res.Warnings, warnUnknown("nats.retry.backoff", string(c.NATS.Retry.Backoff), string(RetryBackoffLinear)))
		c.NATS.Retry.Backoff = RetryBackoffLinear
	}

	c.NATS.URL = strings.TrimSpace(c.NATS.URL)
	c.NATS.SubjectPrefix = strings.Trim(strings.TrimSpace(c.NATS.SubjectPrefix), ".")
	return res
}

func warnChanged(field string, from, to any) string {
	return fmt.Sprintf("normalized %s from '%v' to '%v'", field, from, to)
}

func warnUnknown(field, value, def string) string {
	return fmt.Sprintf("unknown %s '%s', defaulting to %s", field, value, def)
}
