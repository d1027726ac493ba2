// Package metrics provides observability hooks for the bootstrap pipeline.
//
// Components receive a Recorder through dependency injection and default to
// NoopRecorder, so metrics never need nil checks:
//
//	orch := bootstrap.New(deps, bootstrap.WithRecorder(metrics.NewPrometheusRecorder(reg)))
//
// PrometheusRecorder registers its collectors on the given registry and
// HTTPHandler serves that registry. MemoryRecorder keeps counts in memory for
// tests and CLI summaries.
package metrics
