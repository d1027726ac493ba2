package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusRecorder(t *testing.T) {
	reg := prom.NewRegistry()
	pr := NewPrometheusRecorder(reg)
	pr.ObserveStageDuration("migrate", 150*time.Millisecond)
	pr.IncStageResult("migrate", ResultSuccess)
	pr.ObserveBootstrapDuration(500 * time.Millisecond)
	pr.IncReinitOutcome(ReinitPublished)
	pr.IncReinitOutcome(ReinitPublished)
	pr.IncBackupCheck(BackupDenied)
	pr.SetReady(true)

	body := scrape(t, reg)
	assert.Contains(t, body, `datainit_reinitialize_outcomes_total{outcome="published"} 2`)
	assert.Contains(t, body, `datainit_backup_checks_total{result="denied"} 1`)
	assert.Contains(t, body, "datainit_ready 1")

	pr.SetReady(false)
	assert.Contains(t, scrape(t, reg), "datainit_ready 0")

	mfs, err := reg.Gather()
	require.NoError(t, err)
	assert.Len(t, mfs, 6)
}

func scrape(t *testing.T, reg *prom.Registry) string {
	t.Helper()
	rec := httptest.NewRecorder()
	HTTPHandler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	return rec.Body.String()
}

func TestPrometheusRecorderNilSafe(t *testing.T) {
	var pr *PrometheusRecorder
	pr.IncReinitOutcome(ReinitFailed)
	pr.SetReady(true)
	pr.ObserveStageDuration("load", time.Second)
}

func TestHTTPHandler(t *testing.T) {
	reg := prom.NewRegistry()
	NewPrometheusRecorder(reg).IncReinitOutcome(ReinitRepaired)

	srv := httptest.NewServer(HTTPHandler(reg))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), `datainit_reinitialize_outcomes_total{outcome="repaired"} 1`))
	assert.Contains(t, scrape(t, reg), "datainit_reinitialize_outcomes_total")
}

func TestHTTPHandler_RuntimeMetricsStayOffPipelineRegistry(t *testing.T) {
	reg := prom.NewRegistry()
	NewPrometheusRecorder(reg)

	body := scrape(t, reg)
	assert.Contains(t, body, "go_goroutines")
	assert.Contains(t, body, "promhttp_metric_handler_requests_total")

	mfs, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range mfs {
		assert.True(t, strings.HasPrefix(mf.GetName(), "datainit_"), mf.GetName())
	}

	assert.Contains(t, scrape(t, nil), "go_goroutines")
}
