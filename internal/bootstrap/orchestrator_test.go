package bootstrap

import (
	"context"
	stderrors "errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/datainit/internal/backup"
	"git.home.luguber.info/inful/datainit/internal/eventstore"
	"git.home.luguber.info/inful/datainit/internal/foundation/errors"
	"git.home.luguber.info/inful/datainit/internal/metrics"
	"git.home.luguber.info/inful/datainit/internal/workctx"
)

type harness struct {
	gateway   *fakeGateway
	migrator  *fakeMigrator
	repairer  *fakeRepairer
	publisher *fakePublisher
	locator   *fakeLocator
	confirmer *recordingConfirmer
	journal   *fakeJournal
	recorder  *metrics.MemoryRecorder
	valid     bool
	workctx   ContextReadiness
	handler   BackupHandler
}

func newHarness() *harness {
	return &harness{
		gateway:   &fakeGateway{data: withTasks(1, 0)},
		migrator:  &fakeMigrator{},
		repairer:  &fakeRepairer{},
		publisher: &fakePublisher{},
		locator:   &fakeLocator{},
		confirmer: &recordingConfirmer{},
		journal:   &fakeJournal{},
		recorder:  metrics.NewMemoryRecorder(),
		valid:     true,
	}
}

func (h *harness) build(t *testing.T) *Orchestrator {
	t.Helper()
	opts := []Option{WithRecorder(h.recorder), WithJournal(h.journal)}
	if h.handler != nil {
		opts = append(opts, WithBackupHandler(h.handler))
	}
	o, err := New(Deps{
		Gateway:     h.gateway,
		Migrator:    h.migrator,
		Validator:   fakeValidator{valid: h.valid},
		Repairer:    h.repairer,
		Publisher:   h.publisher,
		Backup:      h.locator,
		Confirmer:   h.confirmer,
		WorkContext: h.workctx,
	}, opts...)
	require.NoError(t, err)
	return o
}

func waitIdle(t *testing.T, o *Orchestrator) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, o.WaitIdle(ctx))
}

func TestNew_RequiresCollaborators(t *testing.T) {
	_, err := New(Deps{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingDependency)
	assert.True(t, errors.HasCategory(err, errors.CategoryInternal))
}

func TestReadiness_ManyObserversShareOneRun(t *testing.T) {
	h := newHarness()
	h.gateway.gate = make(chan struct{})
	o := h.build(t)
	assert.Equal(t, StateIdle, o.Readiness().State())

	const observers = 8
	var wg sync.WaitGroup
	results := make([]bool, observers)
	errs := make([]error, observers)
	for i := range observers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = o.Readiness().Wait(context.Background())
		}()
	}

	require.Eventually(t, func() bool { return o.Readiness().State() == StateLoading }, time.Second, 5*time.Millisecond)
	close(h.gateway.gate)
	wg.Wait()

	for i := range observers {
		require.NoError(t, errs[i])
		assert.True(t, results[i])
	}
	waitIdle(t, o)

	assert.Equal(t, int32(1), h.gateway.legacyCalls.Load())
	assert.Equal(t, int32(1), h.migrator.calls.Load())
	assert.Equal(t, int32(1), h.gateway.completeCalls.Load())
	loads, allLoaded := h.publisher.snapshot()
	assert.Len(t, loads, 1)
	assert.False(t, loads[0].omitTokens)
	assert.Equal(t, 1, allLoaded)
	assert.Equal(t, StateReady, o.Readiness().State())
	assert.True(t, h.recorder.Ready())
	assert.Equal(t, 1, h.recorder.Bootstraps())
}

func TestReadiness_LateObserverGetsCachedResult(t *testing.T) {
	h := newHarness()
	o := h.build(t)

	ok, err := o.Readiness().Wait(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	waitIdle(t, o)

	ok, err = o.Readiness().Wait(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)

	assert.Equal(t, int32(1), h.gateway.legacyCalls.Load())
	_, allLoaded := h.publisher.snapshot()
	assert.Equal(t, 1, allLoaded)
}

func TestReadiness_AbandonedWaitDoesNotStopLoad(t *testing.T) {
	h := newHarness()
	h.gateway.gate = make(chan struct{})
	o := h.build(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	ok, err := o.Readiness().Wait(ctx)
	require.Error(t, err)
	assert.False(t, ok)
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, err, ErrWaitAbandoned)

	close(h.gateway.gate)
	ok, err = o.Readiness().Wait(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int32(1), h.gateway.legacyCalls.Load())
}

func TestReadiness_DoneDoesNotTriggerLoad(t *testing.T) {
	h := newHarness()
	o := h.build(t)

	select {
	case <-o.Readiness().Done():
		t.Fatal("readiness resolved without an observer")
	case <-time.After(20 * time.Millisecond):
	}
	resolved, _, _ := o.Readiness().Result()
	assert.False(t, resolved)
	assert.Equal(t, int32(0), h.gateway.legacyCalls.Load())

	o.Readiness().Start(context.Background())
	<-o.Readiness().Done()
	resolved, loaded, err := o.Readiness().Result()
	assert.True(t, resolved)
	assert.True(t, loaded)
	assert.NoError(t, err)
}

func TestReadiness_FailuresReachEveryObserver(t *testing.T) {
	tests := []struct {
		name     string
		setup    func(h *harness)
		category errors.ErrorCategory
		stage    string
	}{
		{
			name:     "legacy load",
			setup:    func(h *harness) { h.gateway.legacyErr = stderrors.New("disk gone") },
			category: errors.CategoryPersistence,
			stage:    StageLoadLegacy,
		},
		{
			name:     "migration",
			setup:    func(h *harness) { h.migrator.err = errors.MigrationError("no step").Build() },
			category: errors.CategoryMigration,
			stage:    StageMigrate,
		},
		{
			name:     "complete load",
			setup:    func(h *harness) { h.gateway.completeErr = errors.PersistenceError("corrupt").Build() },
			category: errors.CategoryPersistence,
			stage:    StageReinitialize,
		},
		{
			name:     "publish",
			setup:    func(h *harness) { h.publisher.publishErr = stderrors.New("bus closed") },
			category: errors.CategoryPublish,
			stage:    StageReinitialize,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness()
			tt.setup(h)
			o := h.build(t)

			var wg sync.WaitGroup
			errs := make([]error, 3)
			for i := range errs {
				wg.Add(1)
				go func() {
					defer wg.Done()
					var ok bool
					ok, errs[i] = o.Readiness().Wait(context.Background())
					assert.False(t, ok)
				}()
			}
			wg.Wait()
			waitIdle(t, o)

			for _, err := range errs {
				require.Error(t, err)
				assert.True(t, errors.HasCategory(err, tt.category), "got %v", err)
				assert.Same(t, errs[0], err)
			}
			assert.Equal(t, StateFailed, o.Readiness().State())
			_, allLoaded := h.publisher.snapshot()
			assert.Zero(t, allLoaded)
			assert.False(t, h.recorder.Ready())
			assert.Equal(t, 1, h.recorder.StageResults(tt.stage)[metrics.ResultFatal])

			journal := h.journal.recorded()
			assert.Equal(t, eventstore.TypeBootstrapStarted, journal[0])
			assert.Equal(t, eventstore.TypeBootstrapFailed, journal[len(journal)-1])
		})
	}
}

func TestReadiness_WaitsForWorkContext(t *testing.T) {
	h := newHarness()
	tracker := workctx.NewTracker()
	tracker.SetActive(workctx.KindProject, "p1")
	h.workctx = tracker
	o := h.build(t)

	o.Readiness().Start(context.Background())
	require.Eventually(t, func() bool {
		loads, _ := h.publisher.snapshot()
		return len(loads) == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, StateLoading, o.Readiness().State())

	tracker.SetRelatedDataLoaded("p1", true)
	ok, err := o.Readiness().Wait(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)

	// Later context changes do not reopen readiness.
	tracker.SetActive(workctx.KindProject, "p2")
	assert.False(t, tracker.Status().Ready())
	assert.Equal(t, StateReady, o.Readiness().State())
	waitIdle(t, o)
	_, allLoaded := h.publisher.snapshot()
	assert.Equal(t, 1, allLoaded)
}

func TestReinitialize_Outcomes(t *testing.T) {
	tests := []struct {
		name        string
		valid       bool
		confirm     bool
		wantOutcome metrics.ReinitOutcome
		wantLoads   int
		wantRepairs int32
		wantJournal string
	}{
		{"valid publishes as loaded", true, false, metrics.ReinitPublished, 1, 0, eventstore.TypeReinitPublished},
		{"invalid and declined is discarded", false, false, metrics.ReinitDiscarded, 0, 0, eventstore.TypeReinitDiscarded},
		{"invalid and confirmed publishes repaired", false, true, metrics.ReinitRepaired, 1, 1, eventstore.TypeReinitRepaired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness()
			h.valid = tt.valid
			h.repairer.confirm = tt.confirm
			o := h.build(t)

			res, err := o.Reinitialize(context.Background(), ReinitOptions{OmitTokens: true, Reason: "sync"})
			require.NoError(t, err)
			waitIdle(t, o)

			assert.Equal(t, tt.wantOutcome, res.Outcome)
			assert.NotEmpty(t, res.RunID)
			loads, allLoaded := h.publisher.snapshot()
			require.Len(t, loads, tt.wantLoads)
			assert.Zero(t, allLoaded, "reinitialize never fires all-data-loaded")
			assert.Equal(t, tt.wantRepairs, h.repairer.repairCalls.Load())
			if tt.valid {
				assert.Zero(t, h.repairer.asked.Load())
			}
			if tt.wantLoads == 1 {
				assert.True(t, loads[0].omitTokens)
			}
			if tt.wantOutcome == metrics.ReinitRepaired {
				assert.True(t, loads[0].data.Note.Has("repaired"))
			}
			assert.Equal(t, 1, h.recorder.ReinitOutcomes()[tt.wantOutcome])
			assert.Equal(t, []string{tt.wantJournal}, h.journal.recorded())
			assert.Equal(t, StateIdle, o.Readiness().State(), "reinitialize leaves readiness alone")
		})
	}
}

func TestReinitialize_ConcurrentCallsRunIndependently(t *testing.T) {
	h := newHarness()
	o := h.build(t)

	var wg sync.WaitGroup
	ids := make([]string, 2)
	for i := range ids {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := o.Reinitialize(context.Background(), ReinitOptions{})
			assert.NoError(t, err)
			ids[i] = res.RunID
		}()
	}
	wg.Wait()
	waitIdle(t, o)

	assert.Equal(t, int32(2), h.gateway.completeCalls.Load())
	loads, _ := h.publisher.snapshot()
	assert.Len(t, loads, 2)
	assert.NotEqual(t, ids[0], ids[1])
}

func TestReinitialize_LoadFailureIsReturned(t *testing.T) {
	h := newHarness()
	h.gateway.completeErr = stderrors.New("read failed")
	o := h.build(t)

	res, err := o.Reinitialize(context.Background(), ReinitOptions{})
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryPersistence))
	assert.Equal(t, metrics.ReinitFailed, res.Outcome)
	assert.Equal(t, []string{eventstore.TypeReinitFailed}, h.journal.recorded())
	loads, _ := h.publisher.snapshot()
	assert.Empty(t, loads)
}

func TestReinitialize_JournalFailureIsNotFatal(t *testing.T) {
	h := newHarness()
	h.journal.err = stderrors.New("journal offline")
	o := h.build(t)

	res, err := o.Reinitialize(context.Background(), ReinitOptions{})
	require.NoError(t, err)
	assert.Equal(t, metrics.ReinitPublished, res.Outcome)
}

func TestBackupCheck_Gate(t *testing.T) {
	tests := []struct {
		name      string
		supported bool
		current   int
		archived  int
		wantCheck bool
	}{
		{"both empty and supported", true, 0, 0, true},
		{"current tasks present", true, 1, 0, false},
		{"archived tasks present", true, 0, 1, false},
		{"backups unsupported", false, 0, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness()
			h.gateway.data = withTasks(tt.current, tt.archived)
			h.locator.supported = tt.supported
			o := h.build(t)

			_, err := o.Reinitialize(context.Background(), ReinitOptions{})
			require.NoError(t, err)
			waitIdle(t, o)

			if tt.wantCheck {
				assert.Equal(t, int32(1), h.locator.availableCalls.Load())
				assert.Equal(t, 1, h.recorder.BackupChecks()[metrics.BackupNone])
				return
			}
			assert.Zero(t, h.locator.availableCalls.Load())
			assert.Equal(t, 1, h.recorder.BackupChecks()[metrics.BackupSkipped])
		})
	}
}

func TestBackupCheck_ConfirmedBackupIsReadOnce(t *testing.T) {
	h := newHarness()
	h.gateway.data = withTasks(0, 0)
	h.locator.supported = true
	h.locator.path = "/backups/x"
	h.locator.content = []byte(`{"task":{}}`)
	h.confirmer.answer = true
	var got []backup.Candidate
	var mu sync.Mutex
	h.handler = func(_ context.Context, c backup.Candidate) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, c)
	}
	o := h.build(t)

	_, err := o.Reinitialize(context.Background(), ReinitOptions{})
	require.NoError(t, err)
	waitIdle(t, o)

	questions := h.confirmer.asked()
	require.Len(t, questions, 1)
	assert.True(t, strings.Contains(questions[0], "/backups/x"))
	assert.Equal(t, int32(1), h.locator.loadCalls.Load())

	mu.Lock()
	require.Len(t, got, 1)
	assert.Equal(t, "/backups/x", got[0].Path)
	assert.Equal(t, h.locator.content, got[0].Content)
	mu.Unlock()

	assert.Equal(t, []string{"/backups/x"}, h.publisher.backups)
	assert.Contains(t, h.journal.recorded(), eventstore.TypeBackupRead)
	assert.Equal(t, 1, h.recorder.BackupChecks()[metrics.BackupRead])
}

func TestBackupCheck_DeclinedBackupIsNotRead(t *testing.T) {
	h := newHarness()
	h.gateway.data = withTasks(0, 0)
	h.locator.supported = true
	h.locator.path = "/backups/x"
	o := h.build(t)

	_, err := o.Reinitialize(context.Background(), ReinitOptions{})
	require.NoError(t, err)
	waitIdle(t, o)

	assert.Len(t, h.confirmer.asked(), 1)
	assert.Zero(t, h.locator.loadCalls.Load())
	assert.Equal(t, 1, h.recorder.BackupChecks()[metrics.BackupDenied])
}

func TestBackupCheck_FailuresNeverReachCaller(t *testing.T) {
	tests := []struct {
		name    string
		locator *fakeLocator
	}{
		{"lookup error", &fakeLocator{supported: true, lookupErr: errors.BackupError("unreadable").Build()}},
		{"panic", &fakeLocator{supported: true, panics: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness()
			h.gateway.data = withTasks(0, 0)
			h.locator = tt.locator
			o := h.build(t)

			ok, err := o.Readiness().Wait(context.Background())
			require.NoError(t, err)
			assert.True(t, ok)
			waitIdle(t, o)

			assert.Equal(t, 1, h.recorder.BackupChecks()[metrics.BackupFailed])
			assert.Empty(t, h.confirmer.asked())
		})
	}
}

func TestBackupCheck_NoConfirmerDeclines(t *testing.T) {
	h := newHarness()
	h.gateway.data = withTasks(0, 0)
	h.locator.supported = true
	h.locator.path = "/backups/x"
	o, err := New(Deps{
		Gateway:   h.gateway,
		Migrator:  h.migrator,
		Validator: fakeValidator{valid: true},
		Repairer:  h.repairer,
		Publisher: h.publisher,
		Backup:    h.locator,
	}, WithRecorder(h.recorder))
	require.NoError(t, err)

	_, err = o.Reinitialize(context.Background(), ReinitOptions{})
	require.NoError(t, err)
	waitIdle(t, o)

	assert.Zero(t, h.locator.loadCalls.Load())
	assert.Equal(t, 1, h.recorder.BackupChecks()[metrics.BackupDenied])
}

func TestBootstrap_JournalSequence(t *testing.T) {
	h := newHarness()
	o := h.build(t)

	ok, err := o.Readiness().Wait(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	waitIdle(t, o)

	assert.Equal(t, []string{
		eventstore.TypeBootstrapStarted,
		eventstore.TypeReinitPublished,
		eventstore.TypeBootstrapReady,
	}, h.journal.recorded())
	for _, stage := range []string{StageLoadLegacy, StageMigrate, StageReinitialize, StageWorkContext, StageLoadComplete, StagePublish} {
		assert.Equal(t, 1, h.recorder.StageResults(stage)[metrics.ResultSuccess], stage)
	}
}
