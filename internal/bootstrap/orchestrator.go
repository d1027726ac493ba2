package bootstrap

import (
	"context"
	stderrors "errors"
	"log/slog"
	"sync"

	"github.com/jonboulle/clockwork"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"git.home.luguber.info/inful/datainit/internal/appdata"
	"git.home.luguber.info/inful/datainit/internal/eventstore"
	"git.home.luguber.info/inful/datainit/internal/events"
	"git.home.luguber.info/inful/datainit/internal/foundation/errors"
	"git.home.luguber.info/inful/datainit/internal/logfields"
	"git.home.luguber.info/inful/datainit/internal/metrics"
)

// Stage names used in logs, spans and metrics.
const (
	StageLoadLegacy   = "load_legacy"
	StageMigrate      = "migrate"
	StageReinitialize = "reinitialize"
	StageWorkContext  = "work_context"
	StageLoadComplete = "load_complete"
	StagePublish      = "publish"
	StageBackupCheck  = "backup_check"
)

// ReasonBootstrap is the Reason of the Reinitialize run made by the initial load.
const ReasonBootstrap = "bootstrap"

// ReinitOptions controls a single Reinitialize run.
type ReinitOptions struct {
	// OmitTokens asks receivers to keep the sync credentials they hold.
	OmitTokens bool
	// Reason is recorded in logs and the journal.
	Reason string
}

// ReinitResult describes what a Reinitialize run did.
type ReinitResult struct {
	RunID   string
	Outcome metrics.ReinitOutcome
	Summary appdata.Summary
}

// Orchestrator runs the initial load and explicit reinitializations.
type Orchestrator struct {
	deps      Deps
	readiness *Readiness

	recorder metrics.Recorder
	journal  eventstore.Appender
	clock    clockwork.Clock
	tracer   trace.Tracer
	newRunID func() string
	onBackup BackupHandler

	tasks tasks
}

// New creates an Orchestrator. Nothing runs until the first observer waits on
// Readiness or Reinitialize is called.
func New(deps Deps, opts ...Option) (*Orchestrator, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	o := &Orchestrator{deps: deps}
	defaults(o)
	for _, opt := range opts {
		opt(o)
	}
	o.readiness = newReadiness(o.bootstrap, o.afterBootstrap)
	return o, nil
}

// Readiness returns the one-shot initial load signal.
func (o *Orchestrator) Readiness() *Readiness {
	return o.readiness
}

// WaitIdle blocks until the initial load, its follow-up notification and every
// detached backup check have finished.
func (o *Orchestrator) WaitIdle(ctx context.Context) error {
	if err := o.readiness.wait(ctx); err != nil {
		return err
	}
	return o.tasks.wait(ctx)
}

// bootstrap is the initial load pipeline. It runs once, on a context that is
// never canceled.
func (o *Orchestrator) bootstrap(ctx context.Context) error {
	runID := o.newRunID()
	ctx = events.WithRunID(ctx, runID)
	ctx, span := o.tracer.Start(ctx, "datainit.bootstrap")
	defer span.End()
	span.SetAttributes(attribute.String("datainit.run_id", runID))

	start := o.clock.Now()
	slog.InfoContext(ctx, "Initial data load started", logfields.RunID(runID))
	o.recordStarted(ctx, runID)

	var legacy *appdata.LegacyState
	steps := []struct {
		name string
		fn   func(ctx context.Context) error
	}{
		{StageLoadLegacy, func(ctx context.Context) error {
			var err error
			legacy, err = o.deps.Gateway.LoadLegacyState(ctx, true)
			return classify(err, errors.CategoryPersistence, "load legacy state")
		}},
		{StageMigrate, func(ctx context.Context) error {
			_, err := o.deps.Migrator.MigrateIfNecessary(ctx, legacy)
			return classify(err, errors.CategoryMigration, "migrate legacy state")
		}},
		{StageReinitialize, func(ctx context.Context) error {
			_, err := o.Reinitialize(ctx, ReinitOptions{Reason: ReasonBootstrap})
			return err
		}},
		{StageWorkContext, func(ctx context.Context) error {
			if o.deps.WorkContext == nil {
				return nil
			}
			return classify(o.deps.WorkContext.WaitReady(ctx), errors.CategoryReadiness, "wait for work context")
		}},
	}

	for _, st := range steps {
		if err := o.stage(ctx, st.name, st.fn); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "initial data load failed")
			slog.ErrorContext(ctx, "Initial data load failed",
				logfields.RunID(runID), logfields.Stage(st.name), logfields.Error(err))
			o.recordFailed(ctx, runID, st.name, err)
			o.recorder.SetReady(false)
			return err
		}
	}

	d := o.clock.Since(start)
	o.recorder.ObserveBootstrapDuration(d)
	o.recorder.SetReady(true)
	span.SetStatus(codes.Ok, "")
	slog.InfoContext(ctx, "Initial data load complete",
		logfields.RunID(runID), logfields.DurationMS(float64(d.Milliseconds())))
	o.recordReady(ctx, runID, d)
	return nil
}

// afterBootstrap fires the all-data-loaded notification after a successful
// resolution. It runs at most once because the readiness cell does.
func (o *Orchestrator) afterBootstrap(ctx context.Context, err error) {
	if err != nil {
		return
	}
	if perr := o.deps.Publisher.PublishAllDataLoaded(ctx); perr != nil {
		slog.ErrorContext(ctx, "Failed to publish all-data-loaded", logfields.Error(perr))
	}
}

// Reinitialize loads the complete dataset and publishes it at most once:
// as loaded when valid, repaired when the operator agrees, or not at all.
// Discarding invalid data is not an error. Concurrent calls run independently.
func (o *Orchestrator) Reinitialize(ctx context.Context, opts ReinitOptions) (ReinitResult, error) {
	runID := o.newRunID()
	if opts.Reason == "" {
		opts.Reason = "manual"
	}
	ctx = events.WithRunID(ctx, runID)
	ctx, span := o.tracer.Start(ctx, "datainit.reinitialize")
	defer span.End()
	span.SetAttributes(
		attribute.String("datainit.run_id", runID),
		attribute.String("datainit.reason", opts.Reason),
		attribute.Bool("datainit.omit_tokens", opts.OmitTokens),
	)

	res := ReinitResult{RunID: runID}
	fail := func(err error) (ReinitResult, error) {
		res.Outcome = metrics.ReinitFailed
		span.RecordError(err)
		span.SetStatus(codes.Error, "reinitialize failed")
		o.recorder.IncReinitOutcome(metrics.ReinitFailed)
		slog.ErrorContext(ctx, "Reinitialize failed", logfields.RunID(runID), logfields.Error(err))
		o.recordReinit(ctx, runID, eventstore.TypeReinitFailed, opts, res.Summary, err)
		return res, err
	}

	var data *appdata.Complete
	if err := o.stage(ctx, StageLoadComplete, func(ctx context.Context) error {
		var err error
		data, err = o.deps.Gateway.LoadComplete(ctx)
		return classify(err, errors.CategoryPersistence, "load complete dataset")
	}); err != nil {
		return fail(err)
	}
	res.Summary = data.Summarize()

	valid := o.deps.Validator.IsValid(data)
	switch {
	case valid:
		res.Outcome = metrics.ReinitPublished
	case o.deps.Repairer.IsRepairPossibleAndConfirmed(ctx, data):
		data = o.deps.Repairer.Repair(data)
		res.Summary = data.Summarize()
		res.Outcome = metrics.ReinitRepaired
	default:
		res.Outcome = metrics.ReinitDiscarded
		span.SetAttributes(attribute.String("datainit.outcome", string(res.Outcome)))
		o.recorder.IncReinitOutcome(metrics.ReinitDiscarded)
		slog.WarnContext(ctx, "Invalid data discarded, nothing published",
			logfields.RunID(runID), slog.String("reason", opts.Reason))
		o.recordReinit(ctx, runID, eventstore.TypeReinitDiscarded, opts, res.Summary, nil)
		return res, nil
	}

	if err := o.stage(ctx, StagePublish, func(ctx context.Context) error {
		err := o.deps.Publisher.PublishLoadAllData(ctx, data, opts.OmitTokens)
		return classify(err, errors.CategoryPublish, "publish load-all-data")
	}); err != nil {
		return fail(err)
	}

	span.SetAttributes(attribute.String("datainit.outcome", string(res.Outcome)))
	span.SetStatus(codes.Ok, "")
	o.recorder.IncReinitOutcome(res.Outcome)
	slog.InfoContext(ctx, "Data published",
		logfields.RunID(runID),
		logfields.Outcome(string(res.Outcome)),
		logfields.OmitTokens(opts.OmitTokens),
		logfields.Tasks(res.Summary.Tasks),
		logfields.Archived(res.Summary.Archived))

	if res.Outcome == metrics.ReinitRepaired {
		o.recordReinit(ctx, runID, eventstore.TypeReinitRepaired, opts, res.Summary, nil)
		return res, nil
	}
	o.recordReinit(ctx, runID, eventstore.TypeReinitPublished, opts, res.Summary, nil)
	o.maybeCheckBackup(ctx, runID, data)
	return res, nil
}

// stage runs fn inside a span and records its duration and result.
func (o *Orchestrator) stage(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	ctx, span := o.tracer.Start(ctx, "datainit."+name)
	defer span.End()

	start := o.clock.Now()
	err := fn(ctx)
	o.recorder.ObserveStageDuration(name, o.clock.Since(start))

	switch {
	case err == nil:
		o.recorder.IncStageResult(name, metrics.ResultSuccess)
		span.SetStatus(codes.Ok, "")
	case stderrors.Is(err, context.Canceled), stderrors.Is(err, context.DeadlineExceeded):
		o.recorder.IncStageResult(name, metrics.ResultCanceled)
		span.SetStatus(codes.Error, "canceled")
	default:
		o.recorder.IncStageResult(name, metrics.ResultFatal)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

// tasks counts detached work so WaitIdle can wait for it.
type tasks struct {
	mu   sync.Mutex
	n    int
	idle chan struct{}
}

func (t *tasks) add() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.n == 0 {
		t.idle = make(chan struct{})
	}
	t.n++
}

func (t *tasks) done() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.n--
	if t.n == 0 {
		close(t.idle)
	}
}

func (t *tasks) wait(ctx context.Context) error {
	t.mu.Lock()
	if t.n == 0 {
		t.mu.Unlock()
		return nil
	}
	idle := t.idle
	t.mu.Unlock()
	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
