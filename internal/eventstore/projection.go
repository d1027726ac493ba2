package eventstore

import (
	"context"
	"encoding/json"
	"slices"
	"strings"
	"sync"
	"time"
)

// Run kinds and statuses reported by RunSummary.
const (
	KindBootstrap = "bootstrap"
	KindReinit    = "reinit"

	StatusRunning   = "running"
	StatusReady     = "ready"
	StatusFailed    = "failed"
	StatusPublished = "published"
	StatusRepaired  = "repaired"
	StatusDiscarded = "discarded"
)

// RunSummary is a read model of one bootstrap or reinitialize run.
type RunSummary struct {
	RunID       string     `json:"run_id"`
	Kind        string     `json:"kind"`
	Status      string     `json:"status"`
	Reason      string     `json:"reason,omitempty"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Tasks       int        `json:"tasks"`
	Archived    int        `json:"archived"`
	OmitTokens  bool       `json:"omit_tokens,omitempty"`
	BackupPath  string     `json:"backup_path,omitempty"`
	Problems    []string   `json:"problems,omitempty"`
	Error       string     `json:"error,omitempty"`
}

// RunHistoryProjection rebuilds run summaries from journal events.
type RunHistoryProjection struct {
	mu      sync.RWMutex
	store   Store
	runs    map[string]*RunSummary
	order   []string
	maxSize int
}

// NewRunHistoryProjection creates a projection backed by store, keeping at
// most maxHistorySize runs.
func NewRunHistoryProjection(store Store, maxHistorySize int) *RunHistoryProjection {
	if maxHistorySize <= 0 {
		maxHistorySize = 100
	}
	return &RunHistoryProjection{
		store:   store,
		runs:    make(map[string]*RunSummary),
		maxSize: maxHistorySize,
	}
}

// Rebuild reconstructs the projection from the newest journal events.
func (p *RunHistoryProjection) Rebuild(ctx context.Context) error {
	events, err := p.store.Recent(ctx, p.maxSize*8)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.runs = make(map[string]*RunSummary)
	p.order = nil
	for _, e := range events {
		p.applyLocked(e)
	}
	return nil
}

// Apply processes a single event.
func (p *RunHistoryProjection) Apply(e Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.applyLocked(e)
}

func (p *RunHistoryProjection) applyLocked(e Event) {
	runID := e.RunID()
	if runID == "" {
		return
	}

	summary, ok := p.runs[runID]
	if !ok {
		summary = &RunSummary{RunID: runID, Status: StatusRunning, StartedAt: e.Timestamp()}
		if strings.HasPrefix(e.Type(), "bootstrap.") {
			summary.Kind = KindBootstrap
		} else {
			summary.Kind = KindReinit
		}
		p.runs[runID] = summary
		p.order = append(p.order, runID)
		p.pruneLocked()
	}

	complete := func(status string) {
		ts := e.Timestamp()
		summary.CompletedAt = &ts
		summary.Status = status
	}

	switch e.Type() {
	case TypeBootstrapStarted:
		summary.StartedAt = e.Timestamp()
	case TypeBootstrapReady:
		complete(StatusReady)
	case TypeBootstrapFailed:
		complete(StatusFailed)
		var payload BootstrapPayload
		if err := json.Unmarshal(e.Payload(), &payload); err == nil {
			summary.Error = payload.Error
		}
	case TypeReinitPublished, TypeReinitRepaired, TypeReinitDiscarded, TypeReinitFailed:
		var payload ReinitPayload
		if err := json.Unmarshal(e.Payload(), &payload); err == nil {
			summary.Reason = payload.Reason
			summary.OmitTokens = payload.OmitTokens
			summary.Tasks = payload.Summary.Tasks
			summary.Archived = payload.Summary.Archived
			summary.Problems = payload.Problems
			summary.Error = payload.Error
		}
		complete(strings.TrimPrefix(e.Type(), "reinit."))
	case TypeBackupRead:
		var payload BackupPayload
		if err := json.Unmarshal(e.Payload(), &payload); err == nil {
			summary.BackupPath = payload.Path
		}
	}
}

func (p *RunHistoryProjection) pruneLocked() {
	for len(p.order) > p.maxSize {
		delete(p.runs, p.order[0])
		p.order = p.order[1:]
	}
}

// History returns run summaries, newest first.
func (p *RunHistoryProjection) History() []RunSummary {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]RunSummary, 0, len(p.order))
	for _, id := range slices.Backward(p.order) {
		out = append(out, *p.runs[id])
	}
	return out
}

// Run returns the summary for runID.
func (p *RunHistoryProjection) Run(runID string) (RunSummary, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	s, ok := p.runs[runID]
	if !ok {
		return RunSummary{}, false
	}
	return *s, true
}
