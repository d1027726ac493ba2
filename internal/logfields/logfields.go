package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyRunID      = "run_id"
	KeyStage      = "stage"
	KeyOutcome    = "outcome"
	KeyOmitTokens = "omit_tokens"
	KeyBackupPath = "backup_path"
	KeyDurationMS = "duration_ms"
	KeyVersion    = "schema_version"
	KeyTasks      = "tasks"
	KeyArchived   = "archived_tasks"
	KeyProject    = "project_id"
	KeyStore      = "store"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func RunID(id string) slog.Attr       { return slog.String(KeyRunID, id) }
func Stage(name string) slog.Attr     { return slog.String(KeyStage, name) }
func Outcome(o string) slog.Attr      { return slog.String(KeyOutcome, o) }
func OmitTokens(b bool) slog.Attr     { return slog.Bool(KeyOmitTokens, b) }
func BackupPath(p string) slog.Attr   { return slog.String(KeyBackupPath, p) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }
func Version(v int) slog.Attr         { return slog.Int(KeyVersion, v) }
func Tasks(n int) slog.Attr           { return slog.Int(KeyTasks, n) }
func Archived(n int) slog.Attr        { return slog.Int(KeyArchived, n) }
func Project(id string) slog.Attr     { return slog.String(KeyProject, id) }
func Store(name string) slog.Attr     { return slog.String(KeyStore, name) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
