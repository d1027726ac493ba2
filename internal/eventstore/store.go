// Package eventstore is the durable journal of bootstrap runs: when the
// initial load started and resolved, and what every reinitialize did with the
// data it loaded.
package eventstore

import (
	"context"
	"time"
)

// Appender writes journal events.
type Appender interface {
	Append(ctx context.Context, runID, eventType string, payload []byte, metadata map[string]string) error
}

// Store defines the interface for persisting and retrieving journal events.
type Store interface {
	Appender

	// GetByRunID retrieves all events for a run, oldest first.
	GetByRunID(ctx context.Context, runID string) ([]Event, error)

	// GetRange retrieves events within a time range, oldest first.
	GetRange(ctx context.Context, start, end time.Time) ([]Event, error)

	// Recent retrieves the newest limit events, oldest first.
	Recent(ctx context.Context, limit int) ([]Event, error)

	// Close closes the store and releases resources.
	Close() error
}

// AppendEvent stores a typed event.
func AppendEvent(ctx context.Context, a Appender, e Event) error {
	return a.Append(ctx, e.RunID(), e.Type(), e.Payload(), e.Metadata())
}
