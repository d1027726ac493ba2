package config

import "strings"

// StorageDriver names a persistence gateway implementation.
type StorageDriver string

const (
	StorageJSON   StorageDriver = "json"
	StorageSQLite StorageDriver = "sqlite"
)

// ConfirmMode decides how operator confirmations are obtained.
type ConfirmMode string

const (
	// ConfirmPrompt asks on the terminal.
	ConfirmPrompt ConfirmMode = "prompt"
	// ConfirmAlways answers yes without asking.
	ConfirmAlways ConfirmMode = "always"
	// ConfirmNever answers no without asking.
	ConfirmNever ConfirmMode = "never"
)

// LogLevel enumerates supported logging levels.
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// LogFormat enumerates supported log output formats.
type LogFormat string

const (
	LogFormatJSON LogFormat = "json"
	LogFormatText LogFormat = "text"
)

// RetryBackoffMode enumerates retry backoff strategies.
type RetryBackoffMode string

const (
	RetryBackoffFixed       RetryBackoffMode = "fixed"
	RetryBackoffLinear      RetryBackoffMode = "linear"
	RetryBackoffExponential RetryBackoffMode = "exponential"
)

// normalizer maps case-insensitive spellings onto canonical enum values.
type normalizer[T ~string] struct {
	values map[string]T
}

func newNormalizer[T ~string](values map[string]T) normalizer[T] {
	return normalizer[T]{values: values}
}

// normalize returns the canonical value, or "" when raw is unknown.
func (n normalizer[T]) normalize(raw string) T {
	return n.values[strings.ToLower(strings.TrimSpace(raw))]
}

var (
	storageDrivers = newNormalizer(map[string]StorageDriver{
		"json":    StorageJSON,
		"file":    StorageJSON,
		"sqlite":  StorageSQLite,
		"sqlite3": StorageSQLite,
	})
	confirmModes = newNormalizer(map[string]ConfirmMode{
		"prompt": ConfirmPrompt,
		"ask":    ConfirmPrompt,
		"always": ConfirmAlways,
		"yes":    ConfirmAlways,
		"never":  ConfirmNever,
		"no":     ConfirmNever,
	})
	logLevels = newNormalizer(map[string]LogLevel{
		"debug":   LogLevelDebug,
		"info":    LogLevelInfo,
		"warn":    LogLevelWarn,
		"warning": LogLevelWarn,
		"error":   LogLevelError,
	})
	retryBackoffs = newNormalizer(map[string]RetryBackoffMode{
		"fixed":       RetryBackoffFixed,
		"constant":    RetryBackoffFixed,
		"linear":      RetryBackoffLinear,
		"exponential": RetryBackoffExponential,
		"exp":         RetryBackoffExponential,
	})
	logFormats = newNormalizer(map[string]LogFormat{
		"json": LogFormatJSON,
		"text": LogFormatText,
	})
)

// NormalizeStorageDriver returns the canonical driver or "" when unknown.
func NormalizeStorageDriver(raw string) StorageDriver { return storageDrivers.normalize(raw) }

// NormalizeConfirmMode returns the canonical mode or "" when unknown.
func NormalizeConfirmMode(raw string) ConfirmMode { return confirmModes.normalize(raw) }

// NormalizeLogLevel returns the canonical level or "" when unknown.
func NormalizeLogLevel(raw string) LogLevel { return logLevels.normalize(raw) }

// NormalizeLogFormat returns the canonical format or "" when unknown.
func NormalizeLogFormat(raw string) LogFormat { return logFormats.normalize(raw) }

// NormalizeRetryBackoff returns the canonical backoff mode or "" when unknown.
func NormalizeRetryBackoff(raw string) RetryBackoffMode { return retryBackoffs.normalize(raw) }
