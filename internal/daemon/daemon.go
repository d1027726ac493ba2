package daemon

import (
	"context"
	stderrors "errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/jonboulle/clockwork"
	prom "github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"git.home.luguber.info/inful/datainit/internal/appstore"
	"git.home.luguber.info/inful/datainit/internal/bootstrap"
	"git.home.luguber.info/inful/datainit/internal/config"
	"git.home.luguber.info/inful/datainit/internal/eventstore"
	"git.home.luguber.info/inful/datainit/internal/foundation/errors"
	"git.home.luguber.info/inful/datainit/internal/logfields"
	"git.home.luguber.info/inful/datainit/internal/state"
)

// Reasons recorded for daemon-driven reloads.
const (
	ReasonFileChange = "file-change"
	ReasonInterval   = "interval"
	ReasonHTTP       = "http"
)

const shutdownTimeout = 10 * time.Second

// HealthChecker reports the health of the persistence gateway.
type HealthChecker interface {
	Health(ctx context.Context) state.StoreHealth
}

// Options wires a Daemon.
type Options struct {
	Config       config.DaemonConfig
	Orchestrator *bootstrap.Orchestrator
	Store        HealthChecker
	// WatchFiles are reloaded on change when Config.Watch is set.
	WatchFiles []string
	Registry   *prom.Registry
	// History and AppStore are optional and back /journal and /status.
	History  *eventstore.RunHistoryProjection
	AppStore *appstore.Store
	Clock    clockwork.Clock
}

// Daemon runs the initial load and keeps the dataset fresh afterwards.
type Daemon struct {
	opts      Options
	startedAt time.Time
}

// New validates opts and creates a Daemon.
func New(opts Options) (*Daemon, error) {
	if opts.Orchestrator == nil {
		return nil, errors.InternalError("daemon requires an orchestrator").Build()
	}
	if opts.Store == nil {
		return nil, errors.InternalError("daemon requires a store").Build()
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	return &Daemon{opts: opts, startedAt: opts.Clock.Now()}, nil
}

// Run starts the initial load, the HTTP server, the file watcher and the
// periodic reload, and blocks until ctx ends or one of them fails. Detached
// backup checks are drained before it returns.
func (d *Daemon) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", d.opts.Config.Listen)
	if err != nil {
		return errors.WrapError(err, errors.CategoryRuntime, "failed to listen").
			WithContext("addr", d.opts.Config.Listen).Build()
	}
	return d.serve(ctx, ln)
}

func (d *Daemon) serve(ctx context.Context, ln net.Listener) error {
	g, gctx := errgroup.WithContext(ctx)
	d.opts.Orchestrator.Readiness().Start(gctx)

	srv := &http.Server{Handler: d.Handler(), ReadHeaderTimeout: 5 * time.Second}
	slog.Info("HTTP server listening", "addr", ln.Addr().String())
	g.Go(func() error {
		if err := srv.Serve(ln); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			return errors.WrapError(err, errors.CategoryRuntime, "http server failed").Build()
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if d.opts.Config.Watch && len(d.opts.WatchFiles) > 0 {
		w, err := NewStateWatcher(d.opts.WatchFiles, d.reload(ReasonFileChange), d.opts.Clock, DefaultDebounce)
		if err != nil {
			return err
		}
		g.Go(func() error { return w.Run(gctx) })
	}

	if d.opts.Config.ReloadInterval > 0 {
		s, err := NewScheduler(nil)
		if err != nil {
			return err
		}
		if _, err := s.SchedulePeriodicReload(gctx, d.opts.Config.ReloadInterval, d.reload(ReasonInterval)); err != nil {
			return err
		}
		s.Start()
		g.Go(func() error {
			<-gctx.Done()
			return s.Stop()
		})
	}

	err := g.Wait()

	drainCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if derr := d.opts.Orchestrator.WaitIdle(drainCtx); derr != nil {
		slog.Warn("Detached work still running at shutdown", logfields.Error(derr))
	}
	slog.Info("Daemon stopped")
	return err
}

// reload returns a callback that reinitializes keeping held credentials.
// Reloads before the initial load has resolved are skipped.
func (d *Daemon) reload(reason string) func(ctx context.Context) {
	return func(ctx context.Context) {
		if resolved, _, _ := d.opts.Orchestrator.Readiness().Result(); !resolved {
			slog.Debug("Reload skipped, initial load pending", "reason", reason)
			return
		}
		res, err := d.opts.Orchestrator.Reinitialize(ctx, bootstrap.ReinitOptions{OmitTokens: true, Reason: reason})
		if err != nil {
			slog.Error("Reload failed", "reason", reason, logfields.Error(err))
			return
		}
		slog.Info("Reload finished", "reason", reason,
			logfields.RunID(res.RunID), logfields.Outcome(string(res.Outcome)))
	}
}
