package metrics

import (
	"maps"
	"sync"
	"time"
)

// MemoryRecorder counts observations in memory. Safe for concurrent use.
type MemoryRecorder struct {
	mu             sync.Mutex
	stageDurations map[string]int
	stageResults   map[string]map[ResultLabel]int
	bootstraps     int
	reinit         map[ReinitOutcome]int
	backup         map[BackupResult]int
	ready          bool
}

// NewMemoryRecorder returns an empty recorder.
func NewMemoryRecorder() *MemoryRecorder {
	return &MemoryRecorder{
		stageDurations: map[string]int{},
		stageResults:   map[string]map[ResultLabel]int{},
		reinit:         map[ReinitOutcome]int{},
		backup:         map[BackupResult]int{},
	}
}

func (m *MemoryRecorder) ObserveStageDuration(stage string, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stageDurations[stage]++
}

func (m *MemoryRecorder) IncStageResult(stage string, result ResultLabel) {
	m.mu.Lock()
	defer m.mu.Unlock()
	byResult, ok := m.stageResults[stage]
	if !ok {
		byResult = map[ResultLabel]int{}
		m.stageResults[stage] = byResult
	}
	byResult[result]++
}

func (m *MemoryRecorder) ObserveBootstrapDuration(time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bootstraps++
}

func (m *MemoryRecorder) IncReinitOutcome(outcome ReinitOutcome) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reinit[outcome]++
}

func (m *MemoryRecorder) IncBackupCheck(result BackupResult) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.backup[result]++
}

func (m *MemoryRecorder) SetReady(ready bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ready = ready
}

// ReinitOutcomes returns a copy of the reinitialize outcome counts.
func (m *MemoryRecorder) ReinitOutcomes() map[ReinitOutcome]int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return maps.Clone(m.reinit)
}

// BackupChecks returns a copy of the backup check counts.
func (m *MemoryRecorder) BackupChecks() map[BackupResult]int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return maps.Clone(m.backup)
}

// StageResults returns the result counts for one stage.
func (m *MemoryRecorder) StageResults(stage string) map[ResultLabel]int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return maps.Clone(m.stageResults[stage])
}

// StageObservations returns how many durations were recorded for stage.
func (m *MemoryRecorder) StageObservations(stage string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stageDurations[stage]
}

// Bootstraps returns how many bootstrap durations were recorded.
func (m *MemoryRecorder) Bootstraps() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.bootstraps
}

// Ready returns the last readiness value set.
func (m *MemoryRecorder) Ready() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ready
}
