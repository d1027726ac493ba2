package bootstrap

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"git.home.luguber.info/inful/datainit/internal/backup"
	"git.home.luguber.info/inful/datainit/internal/eventstore"
	"git.home.luguber.info/inful/datainit/internal/logfields"
	"git.home.luguber.info/inful/datainit/internal/metrics"
)

// BackupHandler receives the content of a backup the operator agreed to read.
type BackupHandler func(ctx context.Context, c backup.Candidate)

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithRecorder sets the metrics recorder. Defaults to metrics.NoopRecorder.
func WithRecorder(r metrics.Recorder) Option {
	return func(o *Orchestrator) {
		if r != nil {
			o.recorder = r
		}
	}
}

// WithJournal records bootstrap and reinitialize runs. Journal writes are
// best effort; a failing journal never fails a run.
func WithJournal(a eventstore.Appender) Option {
	return func(o *Orchestrator) { o.journal = a }
}

// WithClock sets the clock used for durations.
func WithClock(c clockwork.Clock) Option {
	return func(o *Orchestrator) {
		if c != nil {
			o.clock = c
		}
	}
}

// WithTracer sets the tracer used for stage spans. Defaults to the global provider.
func WithTracer(t trace.Tracer) Option {
	return func(o *Orchestrator) {
		if t != nil {
			o.tracer = t
		}
	}
}

// WithBackupHandler sets what happens with a confirmed backup. The default
// handler logs its location and size.
func WithBackupHandler(h BackupHandler) Option {
	return func(o *Orchestrator) {
		if h != nil {
			o.onBackup = h
		}
	}
}

// WithRunIDs overrides the run ID generator.
func WithRunIDs(next func() string) Option {
	return func(o *Orchestrator) {
		if next != nil {
			o.newRunID = next
		}
	}
}

func defaults(o *Orchestrator) {
	o.recorder = metrics.NoopRecorder{}
	o.clock = clockwork.NewRealClock()
	o.tracer = otel.Tracer("datainit/bootstrap")
	o.newRunID = uuid.NewString
	o.onBackup = logBackup
}

func logBackup(ctx context.Context, c backup.Candidate) {
	slog.InfoContext(ctx, "Backup read, not imported",
		logfields.BackupPath(c.Path),
		slog.Int("bytes", len(c.Content)),
		slog.Bool("compressed", c.Compressed))
}
