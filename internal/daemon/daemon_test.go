package daemon

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/datainit/internal/appdata"
	"git.home.luguber.info/inful/datainit/internal/appstore"
	"git.home.luguber.info/inful/datainit/internal/bootstrap"
	"git.home.luguber.info/inful/datainit/internal/config"
	"git.home.luguber.info/inful/datainit/internal/confirm"
	"git.home.luguber.info/inful/datainit/internal/dispatch"
	"git.home.luguber.info/inful/datainit/internal/events"
	"git.home.luguber.info/inful/datainit/internal/metrics"
	"git.home.luguber.info/inful/datainit/internal/migration"
	"git.home.luguber.info/inful/datainit/internal/repair"
	"git.home.luguber.info/inful/datainit/internal/state"
	"git.home.luguber.info/inful/datainit/internal/validate"
)

type fixture struct {
	store *state.JSONStore
	orch  *bootstrap.Orchestrator
	apps  *appstore.Store
	reg   *prom.Registry
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store, err := state.NewJSONStore(t.TempDir())
	require.NoError(t, err)

	data := appdata.NewComplete()
	data.Task = appdata.NewEntityState(appdata.TaskID, appdata.Task{ID: "t1", SubTaskIDs: []string{}, TagIDs: []string{}})
	require.NoError(t, store.SaveComplete(t.Context(), data))

	bus := events.NewBus()
	t.Cleanup(bus.Close)
	apps := appstore.New()
	consume := apps.Attach(bus)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go consume(ctx)

	reg := prom.NewRegistry()
	v := validate.New()
	orch, err := bootstrap.New(bootstrap.Deps{
		Gateway:   store,
		Migrator:  migration.New(store),
		Validator: v,
		Repairer:  repair.NewEngine(v, confirm.Static{}),
		Publisher: dispatch.NewBusPublisher(bus),
	}, bootstrap.WithRecorder(metrics.NewPrometheusRecorder(reg)))
	require.NoError(t, err)
	// Runs before the bus is closed: let the initial load finish publishing.
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = orch.WaitIdle(ctx)
	})

	return &fixture{store: store, orch: orch, apps: apps, reg: reg}
}

func (f *fixture) daemon(t *testing.T, cfg config.DaemonConfig) *Daemon {
	t.Helper()
	d, err := New(Options{
		Config:       cfg,
		Orchestrator: f.orch,
		Store:        f.store,
		WatchFiles:   []string{f.store.Path(state.DocComplete)},
		Registry:     f.reg,
		AppStore:     f.apps,
	})
	require.NoError(t, err)
	return d
}

func TestNew_RequiresOrchestratorAndStore(t *testing.T) {
	_, err := New(Options{})
	require.Error(t, err)
}

func TestHandler_ReadyzFollowsReadiness(t *testing.T) {
	f := newFixture(t)
	srv := httptest.NewServer(f.daemon(t, config.DaemonConfig{}).Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/readyz")
	require.NoError(t, err)
	var body ReadyResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, bootstrap.StateIdle, body.State, "probing readiness does not start the load")

	ok, err := f.orch.Readiness().Wait(t.Context())
	require.NoError(t, err)
	require.True(t, ok)

	resp, err = http.Get(srv.URL + "/readyz")
	require.NoError(t, err)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, bootstrap.StateReady, body.State)
}

func TestHandler_Healthz(t *testing.T) {
	f := newFixture(t)
	srv := httptest.NewServer(f.daemon(t, config.DaemonConfig{}).Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	var body HealthResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, HealthStatusHealthy, body.Status)
	assert.Equal(t, state.HealthStatusHealthy, body.Storage.Status)
}

func TestHandler_ReinitializeAndStatus(t *testing.T) {
	f := newFixture(t)
	srv := httptest.NewServer(f.daemon(t, config.DaemonConfig{}).Handler())
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/reinitialize?omit_tokens=false", "application/json", nil)
	require.NoError(t, err)
	var res bootstrap.ReinitResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&res))
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, metrics.ReinitPublished, res.Outcome)
	assert.Equal(t, 1, res.Summary.Tasks)

	require.Eventually(t, func() bool { return f.apps.Stats().Loads == 1 }, time.Second, 5*time.Millisecond)

	resp, err = http.Get(srv.URL + "/status")
	require.NoError(t, err)
	var stats appstore.Stats
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&stats))
	_ = resp.Body.Close()
	assert.Equal(t, res.RunID, stats.LastRunID)

	resp, err = http.Post(srv.URL+"/reinitialize?omit_tokens=perhaps", "application/json", nil)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHandler_Metrics(t *testing.T) {
	f := newFixture(t)
	srv := httptest.NewServer(f.daemon(t, config.DaemonConfig{}).Handler())
	defer srv.Close()

	_, err := f.orch.Reinitialize(t.Context(), bootstrap.ReinitOptions{})
	require.NoError(t, err)

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRun_StopsOnCancel(t *testing.T) {
	f := newFixture(t)
	d := f.daemon(t, config.DaemonConfig{Listen: "127.0.0.1:0", Watch: true})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	require.Eventually(t, func() bool {
		return f.orch.Readiness().State() == bootstrap.StateReady
	}, 2*time.Second, 10*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("daemon did not stop")
	}
}

func TestStateWatcher_DebouncesWrites(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "complete.json")
	other := filepath.Join(dir, "project.json")
	clock := clockwork.NewFakeClock()

	var calls atomic.Int32
	w, err := NewStateWatcher([]string{target}, func(context.Context) { calls.Add(1) }, clock, time.Second)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Run(ctx) }()

	require.NoError(t, os.WriteFile(other, []byte("{}"), 0o600))
	require.NoError(t, os.WriteFile(target, []byte("{}"), 0o600))

	waitCtx, waitCancel := context.WithTimeout(ctx, 2*time.Second)
	defer waitCancel()
	require.NoError(t, clock.BlockUntilContext(waitCtx, 1))
	assert.Zero(t, calls.Load(), "nothing fires before the debounce elapses")

	clock.Advance(time.Second)
	require.Eventually(t, func() bool { return calls.Load() >= 1 }, time.Second, 5*time.Millisecond)
}

func TestScheduler_RunsPeriodically(t *testing.T) {
	s, err := NewScheduler(nil)
	require.NoError(t, err)

	var calls atomic.Int32
	id, err := s.SchedulePeriodicReload(t.Context(), 50*time.Millisecond, func(context.Context) { calls.Add(1) })
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	s.Start()
	require.Eventually(t, func() bool { return calls.Load() >= 2 }, 2*time.Second, 10*time.Millisecond)
	require.NoError(t, s.Stop())
}

func TestReload_SkippedBeforeInitialLoad(t *testing.T) {
	f := newFixture(t)
	d := f.daemon(t, config.DaemonConfig{})

	d.reload(ReasonInterval)(t.Context())
	assert.Zero(t, f.apps.Stats().Loads)
	assert.Equal(t, bootstrap.StateIdle, f.orch.Readiness().State())

	ok, err := f.orch.Readiness().Wait(t.Context())
	require.NoError(t, err)
	require.True(t, ok)
	d.reload(ReasonInterval)(t.Context())
	require.Eventually(t, func() bool { return f.apps.Stats().Loads == 2 }, time.Second, 5*time.Millisecond)
}
