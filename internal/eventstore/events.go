package eventstore

import (
	"encoding/json"
	"time"

	"git.home.luguber.info/inful/datainit/internal/appdata"
	"git.home.luguber.info/inful/datainit/internal/foundation/errors"
)

// Journal event types.
const (
	TypeBootstrapStarted = "bootstrap.started"
	TypeBootstrapReady   = "bootstrap.ready"
	TypeBootstrapFailed  = "bootstrap.failed"
	TypeReinitPublished  = "reinit.published"
	TypeReinitRepaired   = "reinit.repaired"
	TypeReinitDiscarded  = "reinit.discarded"
	TypeReinitFailed     = "reinit.failed"
	TypeBackupRead       = "backup.read"
)

// ReinitPayload is the payload of every reinit.* event.
type ReinitPayload struct {
	Reason     string          `json:"reason,omitempty"`
	OmitTokens bool            `json:"omit_tokens"`
	Summary    appdata.Summary `json:"summary"`
	Problems   []string        `json:"problems,omitempty"`
	Error      string          `json:"error,omitempty"`
}

// BootstrapPayload is the payload of bootstrap.* events.
type BootstrapPayload struct {
	DurationMS int64  `json:"duration_ms,omitempty"`
	Stage      string `json:"stage,omitempty"`
	Error      string `json:"error,omitempty"`
}

// BackupPayload is the payload of backup.read.
type BackupPayload struct {
	Path  string `json:"path"`
	Bytes int    `json:"bytes"`
}

func newEvent(runID, eventType string, payload any) (*BaseEvent, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryEventStore, ErrMarshalPayloadFailed.Message()).
			WithContext("run_id", runID).
			WithContext("event_type", eventType).
			Build()
	}
	return &BaseEvent{
		EventRunID:     runID,
		EventType:      eventType,
		EventTimestamp: time.Now(),
		EventPayload:   raw,
	}, nil
}

// NewBootstrapStarted marks the start of the one-time initial load.
func NewBootstrapStarted(runID string) (Event, error) {
	return newEvent(runID, TypeBootstrapStarted, BootstrapPayload{})
}

// NewBootstrapReady marks the initial load as resolved.
func NewBootstrapReady(runID string, d time.Duration) (Event, error) {
	return newEvent(runID, TypeBootstrapReady, BootstrapPayload{DurationMS: d.Milliseconds()})
}

// NewBootstrapFailed marks the initial load as failed at stage.
func NewBootstrapFailed(runID, stage string, cause error) (Event, error) {
	p := BootstrapPayload{Stage: stage}
	if cause != nil {
		p.Error = cause.Error()
	}
	return newEvent(runID, TypeBootstrapFailed, p)
}

// NewReinitEvent records what a reinitialize run did. eventType is one of the
// reinit.* types.
func NewReinitEvent(runID, eventType string, p ReinitPayload) (Event, error) {
	return newEvent(runID, eventType, p)
}

// NewBackupRead records that a confirmed backup was read.
func NewBackupRead(runID, path string, n int) (Event, error) {
	return newEvent(runID, TypeBackupRead, BackupPayload{Path: path, Bytes: n})
}
