package metrics

import (
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	promhttp "github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "datainit"

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	stageDuration     *prom.HistogramVec
	stageResults      *prom.CounterVec
	bootstrapDuration prom.Histogram
	reinitOutcomes    *prom.CounterVec
	backupChecks      *prom.CounterVec
	ready             prom.Gauge
}

// NewPrometheusRecorder constructs the collectors and registers them on reg.
// A nil reg gets a fresh private registry.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		stageDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of individual bootstrap stages",
			Buckets:   prom.DefBuckets,
		}, []string{"stage"}),
		stageResults: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "stage_results_total",
			Help:      "Stage result counts by outcome",
		}, []string{"stage", "result"}),
		bootstrapDuration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "bootstrap_duration_seconds",
			Help:      "Time from first readiness observer to resolution",
			Buckets:   prom.DefBuckets,
		}),
		reinitOutcomes: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "reinitialize_outcomes_total",
			Help:      "Reinitialize calls by what was done with the loaded data",
		}, []string{"outcome"}),
		backupChecks: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "backup_checks_total",
			Help:      "Backup-if-empty checks by result",
		}, []string{"result"}),
		ready: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "ready",
			Help:      "1 once the initial dataset is available to consumers",
		}),
	}
	reg.MustRegister(pr.stageDuration, pr.stageResults, pr.bootstrapDuration, pr.reinitOutcomes, pr.backupChecks, pr.ready)
	return pr
}

func (p *PrometheusRecorder) ObserveStageDuration(stage string, d time.Duration) {
	if p == nil || p.stageDuration == nil {
		return
	}
	p.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncStageResult(stage string, result ResultLabel) {
	if p == nil || p.stageResults == nil {
		return
	}
	p.stageResults.WithLabelValues(stage, string(result)).Inc()
}

func (p *PrometheusRecorder) ObserveBootstrapDuration(d time.Duration) {
	if p == nil || p.bootstrapDuration == nil {
		return
	}
	p.bootstrapDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncReinitOutcome(outcome ReinitOutcome) {
	if p == nil || p.reinitOutcomes == nil {
		return
	}
	p.reinitOutcomes.WithLabelValues(string(outcome)).Inc()
}

func (p *PrometheusRecorder) IncBackupCheck(result BackupResult) {
	if p == nil || p.backupChecks == nil {
		return
	}
	p.backupChecks.WithLabelValues(string(result)).Inc()
}

func (p *PrometheusRecorder) SetReady(ready bool) {
	if p == nil || p.ready == nil {
		return
	}
	if ready {
		p.ready.Set(1)
		return
	}
	p.ready.Set(0)
}

// HTTPHandler serves the pipeline collectors on reg together with Go runtime
// and process metrics kept on a private registry, so reg stays limited to
// datainit series. Scrapes keep going when a single collector fails.
func HTTPHandler(reg *prom.Registry) http.Handler {
	runtime := prom.NewRegistry()
	runtime.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	gatherers := prom.Gatherers{runtime}
	if reg != nil {
		gatherers = append(gatherers, reg)
	}
	return promhttp.InstrumentMetricHandler(runtime, promhttp.HandlerFor(gatherers, promhttp.HandlerOpts{
		ErrorHandling:     promhttp.ContinueOnError,
		EnableOpenMetrics: true,
	}))
}
