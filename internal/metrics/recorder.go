package metrics

import "time"

// ResultLabel enumerates stage result categories for counters.
type ResultLabel string

const (
	ResultSuccess  ResultLabel = "success"
	ResultWarning  ResultLabel = "warning"
	ResultFatal    ResultLabel = "fatal"
	ResultCanceled ResultLabel = "canceled"
)

// OutcomeLabel carries the final run outcome (success|warning|failed|canceled).
type OutcomeLabel string

// DispositionLabel classifies what the materializer did with a source file.
type DispositionLabel string

const (
	DispositionCopied      DispositionLabel = "copied"
	DispositionTransformed DispositionLabel = "transformed"
	DispositionSkipped     DispositionLabel = "skipped"
	DispositionFailed      DispositionLabel = "failed"
)

// Recorder defines observability hooks for run and stage metrics.
// Implementations may forward to Prometheus, OpenTelemetry, etc.
type Recorder interface {
	ObserveStageDuration(stage string, d time.Duration)
	ObserveRunDuration(d time.Duration)
	IncStageResult(stage string, result ResultLabel)
	IncRunOutcome(outcome OutcomeLabel)
	AddFiles(disposition DispositionLabel, n int)
	SetNavigationPages(n int)
	SetBrokenLinks(n int)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveStageDuration(string, time.Duration) {}
func (NoopRecorder) ObserveRunDuration(time.Duration)           {}
func (NoopRecorder) IncStageResult(string, ResultLabel)         {}
func (NoopRecorder) IncRunOutcome(OutcomeLabel)                 {}
func (NoopRecorder) AddFiles(DispositionLabel, int)             {}
func (NoopRecorder) SetNavigationPages(int)                     {}
func (NoopRecorder) SetBrokenLinks(int)                         {}
