package commands

import (
	"context"
	stderrors "errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"git.home.luguber.info/inful/datainit/internal/appstore"
	"git.home.luguber.info/inful/datainit/internal/backup"
	"git.home.luguber.info/inful/datainit/internal/bootstrap"
	"git.home.luguber.info/inful/datainit/internal/config"
	"git.home.luguber.info/inful/datainit/internal/confirm"
	"git.home.luguber.info/inful/datainit/internal/dispatch"
	"git.home.luguber.info/inful/datainit/internal/events"
	"git.home.luguber.info/inful/datainit/internal/eventstore"
	"git.home.luguber.info/inful/datainit/internal/foundation/errors"
	"git.home.luguber.info/inful/datainit/internal/metrics"
	"git.home.luguber.info/inful/datainit/internal/migration"
	"git.home.luguber.info/inful/datainit/internal/repair"
	"git.home.luguber.info/inful/datainit/internal/retry"
	"git.home.luguber.info/inful/datainit/internal/state"
	"git.home.luguber.info/inful/datainit/internal/validate"
	"git.home.luguber.info/inful/datainit/internal/workctx"
)

// app is the wired object graph shared by the subcommands.
type app struct {
	cfg          *config.Config
	store        state.Store
	bus          *events.Bus
	apps         *appstore.Store
	tracker      *workctx.Tracker
	validator    *validate.Validator
	orchestrator *bootstrap.Orchestrator
	journal      eventstore.Store
	history      *eventstore.RunHistoryProjection
	registry     *prom.Registry
	nats         *dispatch.NATSPublisher

	consumers []func(ctx context.Context)
}

// wireOptions tunes wiring per subcommand.
type wireOptions struct {
	// project, when set, is the active work context the initial load waits on.
	project string
}

func wire(cfg *config.Config, g *Global, opts wireOptions) (_ *app, err error) {
	a := &app{cfg: cfg, bus: events.NewBus(), apps: appstore.New(), validator: validate.New()}
	defer func() {
		if err != nil {
			a.close()
		}
	}()

	store, err := openStore(cfg.Storage)
	if err != nil {
		return nil, err
	}
	a.store = store
	if cfg.Journal.Path != "" {
		if err := ensureParent(cfg.Journal.Path); err != nil {
			return nil, err
		}
		journal, err := eventstore.NewSQLiteStore(cfg.Journal.Path)
		if err != nil {
			return nil, err
		}
		a.journal = journal
		a.history = eventstore.NewRunHistoryProjection(journal, 50)
	}

	busPublisher := dispatch.NewBusPublisher(a.bus)
	var publisher bootstrap.Publisher = busPublisher
	if cfg.NATS.URL != "" {
		a.nats, err = dispatch.NewNATSPublisher(dispatch.NATSConfig{
			URL:           cfg.NATS.URL,
			SubjectPrefix: cfg.NATS.SubjectPrefix,
			JetStream:     cfg.NATS.JetStream,
			Timeout:       cfg.NATS.Timeout,
			Retry:         retry.FromConfig(cfg.NATS.Retry),
		})
		if err != nil {
			return nil, err
		}
		publisher = dispatch.Multi{busPublisher, a.nats}
	}

	a.registry = prom.NewRegistry()
	a.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	recorder := metrics.NewPrometheusRecorder(a.registry)

	a.tracker = workctx.NewTracker(workctx.WithStallWarning(cfg.Daemon.StallWarning))
	if opts.project != "" {
		a.tracker.SetActive(workctx.KindProject, opts.project)
	}

	confirmer := newConfirmer(cfg.Confirm.Mode, g)
	locator := backup.NewFSLocator(cfg.Backup.Dir)
	locator.Enabled = cfg.Backup.Enabled
	locator.MaxSize = cfg.BackupMaxBytes()

	bopts := []bootstrap.Option{bootstrap.WithRecorder(recorder)}
	if a.journal != nil {
		bopts = append(bopts, bootstrap.WithJournal(a.journal))
	}
	a.orchestrator, err = bootstrap.New(bootstrap.Deps{
		Gateway:     a.store,
		Migrator:    migration.New(a.store),
		Validator:   a.validator,
		Repairer:    repair.NewEngine(a.validator, confirmer),
		Publisher:   publisher,
		Backup:      locator,
		Confirmer:   confirmer,
		WorkContext: a.tracker,
	}, bopts...)
	if err != nil {
		return nil, err
	}

	// Subscriptions are made now so nothing published before start is missed.
	a.consumers = append(a.consumers, a.apps.Attach(a.bus), a.feedTracker())
	return a, nil
}

// start runs the in-process consumers until ctx ends.
func (a *app) start(ctx context.Context) {
	for _, c := range a.consumers {
		go c(ctx)
	}
}

// feedTracker marks a project's related data loaded once a published dataset
// contains it.
func (a *app) feedTracker() func(ctx context.Context) {
	loads, unsubscribe := events.Subscribe[events.LoadAllData](a.bus, 4)
	return func(ctx context.Context) {
		defer unsubscribe()
		for {
			select {
			case <-ctx.Done():
				return
			case evt, ok := <-loads:
				if !ok {
					return
				}
				st := a.tracker.Status()
				if st.Kind == workctx.KindProject && evt.Data != nil && evt.Data.Project.Has(st.ID) {
					a.tracker.SetRelatedDataLoaded(st.ID, true)
				}
			}
		}
	}
}

// watchFiles lists the files whose change means the complete dataset changed.
func (a *app) watchFiles() []string {
	if js, ok := a.store.(*state.JSONStore); ok {
		return []string{js.Path(state.DocComplete)}
	}
	if a.cfg.Storage.Path == ":memory:" {
		return nil
	}
	return []string{a.cfg.Storage.Path, a.cfg.Storage.Path + "-wal"}
}

func (a *app) close() {
	if a.nats != nil {
		a.nats.Close()
	}
	if a.bus != nil {
		a.bus.Close()
	}
	var errs []error
	if a.journal != nil {
		errs = append(errs, a.journal.Close())
	}
	if a.store != nil {
		errs = append(errs, a.store.Close())
	}
	if err := stderrors.Join(errs...); err != nil {
		slog.Warn("Error during shutdown", "error", err)
	}
}

func openStore(cfg config.StorageConfig) (state.Store, error) {
	switch cfg.Driver {
	case config.StorageSQLite:
		if cfg.Path != ":memory:" {
			if err := ensureParent(cfg.Path); err != nil {
				return nil, err
			}
		}
		s, err := state.NewSQLiteStore(cfg.Path)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.StorageJSON:
		s, err := state.NewJSONStore(cfg.Path)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, errors.ConfigError("unknown storage driver").WithContext("driver", cfg.Driver).Build()
	}
}

func newConfirmer(mode config.ConfirmMode, g *Global) confirm.Confirmer {
	switch mode {
	case config.ConfirmAlways:
		return confirm.Static{Answer: true}
	case config.ConfirmNever:
		return confirm.Static{}
	default:
		var in io.Reader = os.Stdin
		var out io.Writer = os.Stderr
		if g != nil && g.Stdin != nil {
			in = g.Stdin
		}
		if g != nil && g.Stderr != nil {
			out = g.Stderr
		}
		return confirm.NewPrompt(in, out)
	}
}

func ensureParent(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.WrapError(err, errors.CategoryPersistence, "failed to create directory").
			WithContext("path", filepath.Dir(path)).Build()
	}
	return nil
}
