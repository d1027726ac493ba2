package eventstore

import (
	"errors"
	"testing"
	"time"

	"git.home.luguber.info/inful/datainit/internal/appdata"
)

// mustEvent unwraps an event constructor result: mustEvent(t)(NewX(...)).
func mustEvent(t *testing.T) func(Event, error) Event {
	t.Helper()
	return func(e Event, err error) Event {
		t.Helper()
		if err != nil {
			t.Fatalf("failed to create event: %v", err)
		}
		return e
	}
}

func TestRunHistoryProjection_Apply(t *testing.T) {
	projection := NewRunHistoryProjection(newTestStore(t), 10)

	projection.Apply(mustEvent(t)(NewBootstrapStarted("boot")))
	run, ok := projection.Run("boot")
	if !ok {
		t.Fatal("expected run to exist")
	}
	if run.Kind != KindBootstrap || run.Status != StatusRunning {
		t.Errorf("unexpected run %+v", run)
	}

	projection.Apply(mustEvent(t)(NewReinitEvent("r1", TypeReinitRepaired, ReinitPayload{
		Reason:   "bootstrap",
		Summary:  appdata.Summary{Tasks: 3, Archived: 1},
		Problems: []string{"ids_mismatch"},
	})))
	projection.Apply(mustEvent(t)(NewBackupRead("r1", "/backups/x", 42)))
	projection.Apply(mustEvent(t)(NewBootstrapReady("boot", time.Second)))

	run, _ = projection.Run("r1")
	if run.Kind != KindReinit || run.Status != StatusRepaired {
		t.Errorf("unexpected reinit run %+v", run)
	}
	if run.Tasks != 3 || run.Archived != 1 || run.BackupPath != "/backups/x" {
		t.Errorf("payload not projected: %+v", run)
	}
	if run.CompletedAt == nil {
		t.Error("expected completed_at")
	}

	boot, _ := projection.Run("boot")
	if boot.Status != StatusReady {
		t.Errorf("expected ready, got %s", boot.Status)
	}

	history := projection.History()
	if len(history) != 2 || history[0].RunID != "r1" {
		t.Fatalf("expected newest first, got %+v", history)
	}
}

func TestRunHistoryProjection_Failed(t *testing.T) {
	projection := NewRunHistoryProjection(newTestStore(t), 10)
	projection.Apply(mustEvent(t)(NewBootstrapFailed("boot", "migrate", errors.New("disk gone"))))

	run, _ := projection.Run("boot")
	if run.Status != StatusFailed || run.Error != "disk gone" {
		t.Errorf("unexpected %+v", run)
	}
}

func TestRunHistoryProjection_BoundedAndRebuild(t *testing.T) {
	store := newTestStore(t)
	ctx := t.Context()

	for _, id := range []string{"a", "b", "c"} {
		e := mustEvent(t)(NewReinitEvent(id, TypeReinitPublished, ReinitPayload{}))
		if err := AppendEvent(ctx, store, e); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	projection := NewRunHistoryProjection(store, 2)
	if err := projection.Rebuild(ctx); err != nil {
		t.Fatalf("rebuild: %v", err)
	}
	history := projection.History()
	if len(history) != 2 || history[0].RunID != "c" || history[1].RunID != "b" {
		t.Fatalf("unexpected history %+v", history)
	}
	if _, ok := projection.Run("a"); ok {
		t.Error("expected oldest run pruned")
	}
	if history[0].Status != StatusPublished {
		t.Errorf("unexpected status %s", history[0].Status)
	}
}
