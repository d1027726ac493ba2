package bootstrap

import (
	"context"
	"log/slog"
	"time"

	"git.home.luguber.info/inful/datainit/internal/appdata"
	"git.home.luguber.info/inful/datainit/internal/eventstore"
	"git.home.luguber.info/inful/datainit/internal/logfields"
)

func (o *Orchestrator) recordStarted(ctx context.Context, runID string) {
	evt, err := eventstore.NewBootstrapStarted(runID)
	o.append(ctx, evt, err)
}

func (o *Orchestrator) recordReady(ctx context.Context, runID string, d time.Duration) {
	evt, err := eventstore.NewBootstrapReady(runID, d)
	o.append(ctx, evt, err)
}

func (o *Orchestrator) recordFailed(ctx context.Context, runID, stage string, cause error) {
	evt, err := eventstore.NewBootstrapFailed(runID, stage, cause)
	o.append(ctx, evt, err)
}

func (o *Orchestrator) recordReinit(ctx context.Context, runID, eventType string, opts ReinitOptions, sum appdata.Summary, cause error) {
	p := eventstore.ReinitPayload{Reason: opts.Reason, OmitTokens: opts.OmitTokens, Summary: sum}
	if cause != nil {
		p.Error = cause.Error()
	}
	evt, err := eventstore.NewReinitEvent(runID, eventType, p)
	o.append(ctx, evt, err)
}

func (o *Orchestrator) recordBackupRead(ctx context.Context, runID, path string, n int) {
	evt, err := eventstore.NewBackupRead(runID, path, n)
	o.append(ctx, evt, err)
}

// append writes evt to the journal, if any. Failures are logged and dropped.
func (o *Orchestrator) append(ctx context.Context, evt eventstore.Event, err error) {
	if o.journal == nil {
		return
	}
	if err == nil {
		err = eventstore.AppendEvent(context.WithoutCancel(ctx), o.journal, evt)
	}
	if err != nil {
		slog.WarnContext(ctx, "Journal write failed", logfields.Error(err))
	}
}
