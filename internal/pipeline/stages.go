package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"git.home.luguber.info/inful/docsync/internal/logfields"
	"git.home.luguber.info/inful/docsync/internal/metrics"
)

// Stage is a discrete unit of work in the sync run.
type Stage func(ctx context.Context, st *SyncState) error

// StageName is a strongly-typed identifier for a sync stage.
type StageName string

// Canonical stage names.
const (
	StagePrepareOutput StageName = "prepare_output"
	StageLoadConfig    StageName = "load_config"
	StageLoadPositions StageName = "load_positions"
	StageMaterialize   StageName = "materialize_content"
	StageSynthesizeNav StageName = "synthesize_navigation"
	StageWriteConfig   StageName = "write_config"
	StageSavePositions StageName = "save_positions"
	StageVerifyLinks   StageName = "verify_links"
)

// StageErrorKind classifies the outcome of a stage.
type StageErrorKind string

const (
	StageErrorFatal    StageErrorKind = "fatal"    // Run must abort.
	StageErrorWarning  StageErrorKind = "warning"  // Non-fatal; record and continue.
	StageErrorCanceled StageErrorKind = "canceled" // Context cancellation.
)

// StageError is a structured error carrying category and underlying cause.
type StageError struct {
	Kind  StageErrorKind
	Stage StageName
	Err   error
}

func (e *StageError) Error() string { return fmt.Sprintf("%s stage %s: %v", e.Kind, e.Stage, e.Err) }
func (e *StageError) Unwrap() error { return e.Err }

// Helpers to classify errors.
func newFatalStageError(stage StageName, err error) *StageError {
	return &StageError{Kind: StageErrorFatal, Stage: stage, Err: err}
}
func newWarnStageError(stage StageName, err error) *StageError {
	return &StageError{Kind: StageErrorWarning, Stage: stage, Err: err}
}
func newCanceledStageError(stage StageName, err error) *StageError {
	return &StageError{Kind: StageErrorCanceled, Stage: stage, Err: err}
}

// StageDef pairs a stage name with its executing function.
type StageDef struct {
	Name StageName
	Fn   Stage
}

// Pipeline is a fluent builder for ordered stage definitions.
type Pipeline struct{ Defs []StageDef }

// NewPipeline creates an empty pipeline.
func NewPipeline() *Pipeline { return &Pipeline{Defs: make([]StageDef, 0, 8)} }

// Add appends a stage unconditionally.
func (p *Pipeline) Add(name StageName, fn Stage) *Pipeline {
	p.Defs = append(p.Defs, StageDef{Name: name, Fn: fn})
	return p
}

// AddIf appends a stage only if cond is true.
func (p *Pipeline) AddIf(cond bool, name StageName, fn Stage) *Pipeline {
	if cond {
		p.Add(name, fn)
	}
	return p
}

// Build returns the stage definitions as a new slice; later Add calls do not
// affect it.
func (p *Pipeline) Build() []StageDef {
	out := make([]StageDef, len(p.Defs))
	copy(out, p.Defs)
	return out
}

// runStages executes stages in order, recording timing and stopping on the
// first fatal or canceled error. Warnings accumulate on the report and do not
// interrupt the sequence.
func runStages(ctx context.Context, st *SyncState, stages []StageDef) error {
	for _, def := range stages {
		select {
		case <-ctx.Done():
			se := newCanceledStageError(def.Name, ctx.Err())
			st.Report.Errors = append(st.Report.Errors, se)
			st.Report.StageErrorKinds[def.Name] = se.Kind
			st.recorder.IncStageResult(string(def.Name), metrics.ResultCanceled)
			return se
		default:
		}

		t0 := time.Now()
		err := def.Fn(ctx, st)
		dur := time.Since(t0)
		st.Report.StageDurations[string(def.Name)] = dur
		st.recorder.ObserveStageDuration(string(def.Name), dur)

		if err == nil {
			st.recorder.IncStageResult(string(def.Name), metrics.ResultSuccess)
			continue
		}

		var se *StageError
		if !errors.As(err, &se) {
			// Wrap unknown errors as fatal by default.
			se = newFatalStageError(def.Name, err)
		}
		st.Report.StageErrorKinds[def.Name] = se.Kind
		switch se.Kind {
		case StageErrorWarning:
			st.Report.Warnings = append(st.Report.Warnings, se)
			st.recorder.IncStageResult(string(def.Name), metrics.ResultWarning)
			slog.Warn("Stage completed with warning", logfields.Stage(string(def.Name)), logfields.Error(se.Err))
			continue
		case StageErrorCanceled:
			st.Report.Errors = append(st.Report.Errors, se)
			st.recorder.IncStageResult(string(def.Name), metrics.ResultCanceled)
			return se
		default:
			st.Report.Errors = append(st.Report.Errors, se)
			st.recorder.IncStageResult(string(def.Name), metrics.ResultFatal)
			return se
		}
	}
	return nil
}
