package pipeline

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/docsync/internal/linkverify"
)

// RunOutcome classifies the overall result of a sync run.
type RunOutcome string

const (
	OutcomeSuccess  RunOutcome = "success"
	OutcomeWarning  RunOutcome = "warning"
	OutcomeFailed   RunOutcome = "failed"
	OutcomeCanceled RunOutcome = "canceled"
)

// Report captures counters and timings for one sync run. It lives in memory
// only; durable per-run records go to the history store.
type Report struct {
	RunID string
	Start time.Time
	End   time.Time

	FilesSeen        int
	FilesCopied      int
	FilesTransformed int
	FilesSkipped     int
	FilesFailed      int
	NavigationPages  int
	ConfigWritten    bool
	PositionsWritten bool

	Broken          []linkverify.Problem
	Errors          []error // fatal errors causing run abortion (at most one today)
	Warnings        []error // non-fatal issues
	StageDurations  map[string]time.Duration
	StageErrorKinds map[StageName]StageErrorKind
	Outcome         RunOutcome
}

func newReport() *Report {
	return &Report{
		RunID:           uuid.NewString(),
		Start:           time.Now(),
		StageDurations:  make(map[string]time.Duration),
		StageErrorKinds: make(map[StageName]StageErrorKind),
	}
}

func (r *Report) finish() { r.End = time.Now() }

// deriveOutcome sets the Outcome field based on recorded errors and warnings.
func (r *Report) deriveOutcome() {
	if len(r.Errors) > 0 {
		for _, e := range r.Errors {
			if se, ok := e.(*StageError); ok && se.Kind == StageErrorCanceled {
				r.Outcome = OutcomeCanceled
				return
			}
		}
		r.Outcome = OutcomeFailed
		return
	}
	if len(r.Warnings) > 0 {
		r.Outcome = OutcomeWarning
		return
	}
	r.Outcome = OutcomeSuccess
}

// Summary returns a human-readable single-line summary.
func (r *Report) Summary() string {
	dur := r.End.Sub(r.Start)
	return fmt.Sprintf("files=%d transformed=%d copied=%d skipped=%d failed=%d pages=%d config_written=%t broken_links=%d warnings=%d duration=%s outcome=%s",
		r.FilesSeen, r.FilesTransformed, r.FilesCopied, r.FilesSkipped, r.FilesFailed,
		r.NavigationPages, r.ConfigWritten, len(r.Broken), len(r.Warnings),
		dur.Truncate(time.Millisecond), r.Outcome)
}
