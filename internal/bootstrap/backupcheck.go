package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"git.home.luguber.info/inful/datainit/internal/appdata"
	"git.home.luguber.info/inful/datainit/internal/backup"
	"git.home.luguber.info/inful/datainit/internal/logfields"
	"git.home.luguber.info/inful/datainit/internal/metrics"
)

// maybeCheckBackup starts a detached backup check when backups are supported
// and the published dataset has neither current nor archived tasks.
func (o *Orchestrator) maybeCheckBackup(ctx context.Context, runID string, data *appdata.Complete) {
	if o.deps.Backup == nil || !o.deps.Backup.Supported() || !data.HasNoTasks() {
		o.recorder.IncBackupCheck(metrics.BackupSkipped)
		return
	}

	ctx = context.WithoutCancel(ctx)
	o.tasks.add()
	go func() {
		defer o.tasks.done()
		defer func() {
			if r := recover(); r != nil {
				o.recorder.IncBackupCheck(metrics.BackupFailed)
				slog.ErrorContext(ctx, "Backup check panicked", logfields.RunID(runID), slog.Any("panic", r))
			}
		}()
		result := o.checkBackup(ctx, runID)
		o.recorder.IncBackupCheck(result)
	}()
}

// checkBackup offers the newest backup to the operator and reads it when they
// agree. Every failure is logged and swallowed.
func (o *Orchestrator) checkBackup(ctx context.Context, runID string) metrics.BackupResult {
	ctx, span := o.tracer.Start(ctx, "datainit."+StageBackupCheck)
	defer span.End()

	result, err := o.offerBackup(ctx, runID)
	span.SetAttributes(attribute.String("datainit.backup_result", string(result)))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "backup check failed")
		slog.WarnContext(ctx, "Backup check failed", logfields.RunID(runID), logfields.Error(err))
		return result
	}
	span.SetStatus(codes.Ok, "")
	return result
}

func (o *Orchestrator) offerBackup(ctx context.Context, runID string) (metrics.BackupResult, error) {
	found, err := o.deps.Backup.IsBackupAvailable(ctx)
	if err != nil {
		return metrics.BackupFailed, err
	}
	meta, ok := found.Get()
	if !ok {
		slog.DebugContext(ctx, "No tasks and no backup", logfields.RunID(runID))
		return metrics.BackupNone, nil
	}

	if o.deps.Confirmer == nil {
		slog.InfoContext(ctx, "Backup found but no operator to confirm", logfields.BackupPath(meta.Path))
		return metrics.BackupDenied, nil
	}
	question := fmt.Sprintf("No tasks found, but a backup exists at %s. Read it?", meta.Path)
	yes, err := o.deps.Confirmer.Confirm(ctx, question)
	if err != nil {
		return metrics.BackupFailed, err
	}
	if !yes {
		slog.InfoContext(ctx, "Backup declined", logfields.RunID(runID), logfields.BackupPath(meta.Path))
		return metrics.BackupDenied, nil
	}

	content, err := o.deps.Backup.LoadBackup(ctx, meta.Path)
	if err != nil {
		return metrics.BackupFailed, err
	}
	o.recordBackupRead(ctx, runID, meta.Path, len(content))
	if p, ok := o.deps.Publisher.(BackupReadPublisher); ok {
		if err := p.PublishBackupRead(ctx, meta.Path, len(content)); err != nil {
			slog.WarnContext(ctx, "Failed to announce backup read", logfields.Error(err))
		}
	}
	o.onBackup(ctx, backup.Candidate{Meta: meta, Content: content})
	return metrics.BackupRead, nil
}
