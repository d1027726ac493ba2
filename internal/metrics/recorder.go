package metrics

import "time"

// ResultLabel enumerates stage result categories for counters.
type ResultLabel string

const (
	ResultSuccess  ResultLabel = "success"
	ResultWarning  ResultLabel = "warning"
	ResultFatal    ResultLabel = "fatal"
	ResultCanceled ResultLabel = "canceled"
)

// ReinitOutcome is what a single Reinitialize call did with the loaded data.
type ReinitOutcome string

const (
	ReinitPublished ReinitOutcome = "published"
	ReinitRepaired  ReinitOutcome = "repaired"
	ReinitDiscarded ReinitOutcome = "discarded"
	ReinitFailed    ReinitOutcome = "failed"
)

// BackupResult is how a backup-if-empty check ended.
type BackupResult string

const (
	BackupSkipped BackupResult = "skipped"
	BackupNone    BackupResult = "none"
	BackupDenied  BackupResult = "denied"
	BackupRead    BackupResult = "read"
	BackupFailed  BackupResult = "failed"
)

// Recorder defines observability hooks for the bootstrap pipeline. Implementations
// may forward to Prometheus or keep counts in memory.
type Recorder interface {
	ObserveStageDuration(stage string, d time.Duration)
	IncStageResult(stage string, result ResultLabel)
	ObserveBootstrapDuration(d time.Duration)
	IncReinitOutcome(outcome ReinitOutcome)
	IncBackupCheck(result BackupResult)
	SetReady(ready bool)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveStageDuration(string, time.Duration) {}
func (NoopRecorder) IncStageResult(string, ResultLabel)         {}
func (NoopRecorder) ObserveBootstrapDuration(time.Duration)     {}
func (NoopRecorder) IncReinitOutcome(ReinitOutcome)             {}
func (NoopRecorder) IncBackupCheck(BackupResult)                {}
func (NoopRecorder) SetReady(bool)                              {}
