// Package events defines the notifications bootstrap publishes and the
// in-process bus that carries them.
package events

import "git.home.luguber.info/inful/datainit/internal/appdata"

// Event is implemented by everything published on the Bus.
type Event interface {
	EventName() string
}

// Event names, also used as NATS subject suffixes.
const (
	NameLoadAllData      = "load_all_data"
	NameAllDataWasLoaded = "all_data_was_loaded"
	NameBackupRead       = "backup_read"
)

// LoadAllData replaces the downstream application state with Data. When
// OmitTokens is set, receivers keep the sync credentials they already hold.
type LoadAllData struct {
	Data       *appdata.Complete `json:"data"`
	OmitTokens bool              `json:"omit_tokens"`
	RunID      string            `json:"run_id"`
}

// EventName implements Event.
func (LoadAllData) EventName() string { return NameLoadAllData }

// AllDataWasLoaded is fired once per process, after initial readiness resolves.
type AllDataWasLoaded struct{}

// EventName implements Event.
func (AllDataWasLoaded) EventName() string { return NameAllDataWasLoaded }

// BackupRead reports that an operator-confirmed backup was read. The content
// is not imported.
type BackupRead struct {
	Path  string `json:"path"`
	Bytes int    `json:"bytes"`
	RunID string `json:"run_id"`
}

// EventName implements Event.
func (BackupRead) EventName() string { return NameBackupRead }
