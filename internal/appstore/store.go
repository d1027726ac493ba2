// Package appstore is the in-memory application state fed by bootstrap
// notifications. It is the reference consumer of events.LoadAllData.
package appstore

import (
	"context"
	"log/slog"
	"sync"

	"git.home.luguber.info/inful/datainit/internal/appdata"
	"git.home.luguber.info/inful/datainit/internal/events"
	"git.home.luguber.info/inful/datainit/internal/logfields"
)

// Store holds the latest dataset delivered on the bus.
type Store struct {
	mu         sync.RWMutex
	data       *appdata.Complete
	loads      int
	lastRunID  string
	allLoaded  bool
	loadedOnce chan struct{}
	onceClose  sync.Once
}

// New returns an empty store.
func New() *Store {
	return &Store{data: appdata.NewComplete(), loadedOnce: make(chan struct{})}
}

// Apply replaces the held dataset. With OmitTokens the sync credentials
// already held survive the replacement.
func (s *Store) Apply(evt events.LoadAllData) {
	next := evt.Data.Clone()
	if next == nil {
		next = appdata.NewComplete()
	}

	s.mu.Lock()
	if evt.OmitTokens && s.data != nil {
		next.GlobalConfig.Sync.AccessToken = s.data.GlobalConfig.Sync.AccessToken
		next.GlobalConfig.Sync.RefreshToken = s.data.GlobalConfig.Sync.RefreshToken
	}
	s.data = next
	s.loads++
	s.lastRunID = evt.RunID
	s.mu.Unlock()

	slog.Debug("Application state replaced",
		logfields.RunID(evt.RunID),
		logfields.OmitTokens(evt.OmitTokens),
		logfields.Tasks(next.CurrentCount()))
}

// MarkAllLoaded records the one-time all-data-loaded notification.
func (s *Store) MarkAllLoaded() {
	s.mu.Lock()
	s.allLoaded = true
	s.mu.Unlock()
	s.onceClose.Do(func() { close(s.loadedOnce) })
}

// Snapshot returns a copy of the held dataset.
func (s *Store) Snapshot() *appdata.Complete {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.Clone()
}

// Stats summarizes what the store has received.
type Stats struct {
	Loads     int             `json:"loads"`
	LastRunID string          `json:"last_run_id,omitempty"`
	AllLoaded bool            `json:"all_loaded"`
	Summary   appdata.Summary `json:"summary"`
}

// Stats returns counters and collection sizes.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Stats{Loads: s.loads, LastRunID: s.lastRunID, AllLoaded: s.allLoaded, Summary: s.data.Summarize()}
}

// AllLoaded is closed once the all-data-loaded notification arrives.
func (s *Store) AllLoaded() <-chan struct{} {
	return s.loadedOnce
}

// Run consumes bus events until ctx is done or the bus closes. It subscribes
// before returning control to the bus, so callers should start Run (or call
// Attach) before bootstrap publishes.
func (s *Store) Run(ctx context.Context, bus *events.Bus) {
	s.Attach(bus)(ctx)
}

// Attach subscribes to bus immediately and returns the consume loop.
func (s *Store) Attach(bus *events.Bus) func(ctx context.Context) {
	loads, unsubLoads := events.Subscribe[events.LoadAllData](bus, 4)
	loaded, unsubLoaded := events.Subscribe[events.AllDataWasLoaded](bus, 1)

	return func(ctx context.Context) {
		defer unsubLoads()
		defer unsubLoaded()
		for {
			select {
			case <-ctx.Done():
				return
			case evt, ok := <-loads:
				if !ok {
					return
				}
				s.Apply(evt)
			case _, ok := <-loaded:
				if !ok {
					return
				}
				// Loads published before the notification are already buffered.
				drain(loads, s.Apply)
				s.MarkAllLoaded()
			}
		}
	}
}

func drain[T any](ch <-chan T, fn func(T)) {
	for {
		select {
		case v, ok := <-ch:
			if !ok {
				return
			}
			fn(v)
		default:
			return
		}
	}
}
