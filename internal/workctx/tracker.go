// Package workctx tracks which work context (project or tag) is active and
// whether its related data has finished loading.
package workctx

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"git.home.luguber.info/inful/datainit/internal/foundation/errors"
	"git.home.luguber.info/inful/datainit/internal/logfields"
)

// Kind is the type of the active work context.
type Kind string

const (
	KindNone    Kind = ""
	KindProject Kind = "project"
	KindTag     Kind = "tag"
)

// DefaultStallWarning is how long WaitReady waits before logging that the
// active project's data has still not loaded.
const DefaultStallWarning = 30 * time.Second

// Status is a snapshot of the tracked state.
type Status struct {
	Kind          Kind      `json:"kind"`
	ID            string    `json:"id,omitempty"`
	RelatedLoaded bool      `json:"related_loaded"`
	ChangedAt     time.Time `json:"changed_at"`
}

// Ready reports whether the active context needs nothing further. Only a
// project context waits for related data.
func (s Status) Ready() bool {
	return s.Kind != KindProject || s.RelatedLoaded
}

// Tracker holds the live work-context status.
type Tracker struct {
	mu        sync.Mutex
	kind      Kind
	id        string
	loaded    map[string]bool
	changedAt time.Time
	changed   chan struct{}

	clock        clockwork.Clock
	stallWarning time.Duration
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithClock sets the clock used for timestamps and stall warnings.
func WithClock(c clockwork.Clock) Option {
	return func(t *Tracker) { t.clock = c }
}

// WithStallWarning sets the stall warning delay. Zero disables it.
func WithStallWarning(d time.Duration) Option {
	return func(t *Tracker) { t.stallWarning = d }
}

// NewTracker returns a Tracker with no active context.
func NewTracker(opts ...Option) *Tracker {
	t := &Tracker{
		loaded:       map[string]bool{},
		changed:      make(chan struct{}),
		clock:        clockwork.NewRealClock(),
		stallWarning: DefaultStallWarning,
	}
	for _, opt := range opts {
		opt(t)
	}
	t.changedAt = t.clock.Now()
	return t
}

// SetActive switches the active work context.
func (t *Tracker) SetActive(kind Kind, id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.kind == kind && t.id == id {
		return
	}
	t.kind, t.id = kind, id
	t.notifyLocked()
}

// SetRelatedDataLoaded records whether a project's related data is loaded.
func (t *Tracker) SetRelatedDataLoaded(projectID string, loaded bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.loaded[projectID] == loaded {
		return
	}
	if loaded {
		t.loaded[projectID] = true
	} else {
		delete(t.loaded, projectID)
	}
	t.notifyLocked()
}

// Status returns the current snapshot.
func (t *Tracker) Status() Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	st, _ := t.snapshotLocked()
	return st
}

// Changes returns a channel closed on the next change.
func (t *Tracker) Changes() <-chan struct{} {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.changed
}

// WaitReady blocks until the active context is ready. Every change re-checks
// the then-active context, so switching away from a loading project releases
// the wait.
func (t *Tracker) WaitReady(ctx context.Context) error {
	var stall <-chan time.Time
	if t.stallWarning > 0 {
		timer := t.clock.NewTimer(t.stallWarning)
		defer timer.Stop()
		stall = timer.Chan()
	}

	for {
		t.mu.Lock()
		st, changed := t.snapshotLocked()
		t.mu.Unlock()

		if st.Ready() {
			return nil
		}

		select {
		case <-ctx.Done():
			return errors.WrapError(ctx.Err(), errors.CategoryReadiness, "gave up waiting for work context").
				WithContext("kind", string(st.Kind)).
				WithContext("id", st.ID).
				Build()
		case <-changed:
		case <-stall:
			slog.Warn("Still waiting for project data to load", logfields.Project(st.ID))
			stall = nil
		}
	}
}

func (t *Tracker) snapshotLocked() (Status, <-chan struct{}) {
	return Status{
		Kind:          t.kind,
		ID:            t.id,
		RelatedLoaded: t.kind == KindProject && t.loaded[t.id],
		ChangedAt:     t.changedAt,
	}, t.changed
}

func (t *Tracker) notifyLocked() {
	t.changedAt = t.clock.Now()
	close(t.changed)
	t.changed = make(chan struct{})
}
