// Package pipeline runs a sync as an ordered sequence of named stages over
// shared state.
//
// Each stage returns a classified error: fatal stops the sequence, warnings
// accumulate on the run report, and cancellation is recognized so an
// interrupted run reports as canceled rather than failed. Stage durations
// are timed individually and land in the report and the metrics recorder.
//
// The Runner owns the surrounding lifecycle: it builds the stage list from
// its options, executes it, then records metrics and run history in an
// epilogue that runs whether the stage sequence finished or aborted.
package pipeline
