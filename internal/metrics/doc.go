// Package metrics provides observability hooks for sync runs.
//
// # Architecture
//
// The package follows the Null Object pattern: components receive a Recorder
// through dependency injection and default to NoopRecorder, so call sites
// never nil-check. A Prometheus-backed implementation is activated by watch
// mode, which also exposes the registry over HTTP.
//
//	recorder := metrics.NewPrometheusRecorder(registry)
//	runner := pipeline.NewRunner(opts).WithRecorder(recorder)
//
// One-shot sync runs keep the noop default; a single CLI invocation has
// nothing to scrape anyway.
package metrics
