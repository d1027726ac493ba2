package state

import (
	"context"
	"time"

	"git.home.luguber.info/inful/datainit/internal/appdata"
)

// Document keys shared by all drivers.
const (
	DocLegacy   = "project"
	DocComplete = "complete"
)

// LegacyLoader loads the versioned legacy project state.
type LegacyLoader interface {
	// LoadLegacyState reads the legacy document. Unless skipMigrationCheck is
	// set, a document older than appdata.CurrentSchemaVersion is rejected with
	// ErrMigrationRequired.
	LoadLegacyState(ctx context.Context, skipMigrationCheck bool) (*appdata.LegacyState, error)
}

// LegacyWriter persists a (migrated) legacy project state.
type LegacyWriter interface {
	SaveLegacyState(ctx context.Context, s *appdata.LegacyState) error
}

// CompleteLoader loads the complete dataset.
type CompleteLoader interface {
	LoadComplete(ctx context.Context) (*appdata.Complete, error)
}

// CompleteWriter persists the complete dataset.
type CompleteWriter interface {
	SaveComplete(ctx context.Context, data *appdata.Complete) error
}

// Store aggregates every persistence concern a driver provides.
type Store interface {
	LegacyLoader
	LegacyWriter
	CompleteLoader
	CompleteWriter

	// Name identifies the driver in logs.
	Name() string
	Health(ctx context.Context) StoreHealth
	Close() error
}

// StoreHealth represents the health status of the state store.
type StoreHealth struct {
	Status      string     `json:"status"`
	Message     string     `json:"message,omitempty"`
	LastSaved   *time.Time `json:"last_saved,omitempty"`
	StorageSize *int64     `json:"storage_size_bytes,omitempty"`
	CheckedAt   time.Time  `json:"checked_at"`
}

const (
	HealthStatusHealthy   = "healthy"
	HealthStatusUnhealthy = "unhealthy"
)
