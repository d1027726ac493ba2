package bootstrap

import (
	"context"
	"sync"

	"git.home.luguber.info/inful/datainit/internal/foundation/errors"
)

// State is the externally visible phase of a Readiness cell.
type State string

const (
	StateIdle    State = "idle"
	StateLoading State = "loading"
	StateReady   State = "ready"
	StateFailed  State = "failed"
)

// Readiness is a one-shot signal that resolves after the initial load. The
// first Wait or Start runs the load; later observers share its result. Once
// resolved the result never changes.
type Readiness struct {
	once    sync.Once
	started chan struct{}
	done    chan struct{}
	settled chan struct{}
	load    func(ctx context.Context) error
	after   func(ctx context.Context, err error)
	err     error
}

func newReadiness(load func(ctx context.Context) error, after func(ctx context.Context, err error)) *Readiness {
	return &Readiness{
		started: make(chan struct{}),
		done:    make(chan struct{}),
		settled: make(chan struct{}),
		load:    load,
		after:   after,
	}
}

// Start triggers the initial load without waiting for it. The load runs
// detached from ctx's cancellation but keeps its values.
func (r *Readiness) Start(ctx context.Context) {
	r.once.Do(func() {
		close(r.started)
		go func() {
			defer close(r.settled)
			detached := context.WithoutCancel(ctx)
			r.err = r.load(detached)
			close(r.done)
			if r.after != nil {
				r.after(detached, r.err)
			}
		}()
	})
}

// Wait triggers the initial load if nobody has yet, then blocks until it
// resolves or ctx ends. It reports true when the data is loaded. Abandoning a
// wait does not stop the load.
func (r *Readiness) Wait(ctx context.Context) (bool, error) {
	r.Start(ctx)
	select {
	case <-r.done:
		return r.err == nil, r.err
	case <-ctx.Done():
		return false, errors.WrapError(ctx.Err(), errors.CategoryReadiness, ErrWaitAbandoned.Message()).Build()
	}
}

// Done is closed once the cell resolves. It does not trigger the load.
func (r *Readiness) Done() <-chan struct{} {
	return r.done
}

// Result returns the outcome without blocking. resolved is false while the
// load is still pending.
func (r *Readiness) Result() (resolved, loaded bool, err error) {
	select {
	case <-r.done:
		return true, r.err == nil, r.err
	default:
		return false, false, nil
	}
}

// wait blocks until the load and its follow-up have both finished. It returns
// immediately when the load was never started.
func (r *Readiness) wait(ctx context.Context) error {
	select {
	case <-r.started:
	default:
		return nil
	}
	select {
	case <-r.settled:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// State reports the current phase.
func (r *Readiness) State() State {
	select {
	case <-r.done:
		if r.err != nil {
			return StateFailed
		}
		return StateReady
	default:
	}
	select {
	case <-r.started:
		return StateLoading
	default:
		return StateIdle
	}
}
