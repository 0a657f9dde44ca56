package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"git.home.luguber.info/inful/docsync/internal/config"
	"git.home.luguber.info/inful/docsync/internal/content"
	"git.home.luguber.info/inful/docsync/internal/gitinfo"
	"git.home.luguber.info/inful/docsync/internal/history"
	"git.home.luguber.info/inful/docsync/internal/linkverify"
	"git.home.luguber.info/inful/docsync/internal/logfields"
	"git.home.luguber.info/inful/docsync/internal/metrics"
	"git.home.luguber.info/inful/docsync/internal/nav"
	"git.home.luguber.info/inful/docsync/internal/poscache"
)

// Options configures a sync run.
type Options struct {
	BasePath  string // navigation seed document
	SourceDir string // authored content root
	OutputDir string // materialized tree root
	Clean     bool   // empty the output tree before materializing
	Verify    bool   // resolve internal links after writing
	Annotate  bool   // stamp pages with VCS last-modified times
}

// Runner executes the sync pipeline. Collaborators are optional; a plain
// NewRunner result performs a run with no metrics and no history.
type Runner struct {
	opts     Options
	recorder metrics.Recorder
	store    *history.Store
}

func NewRunner(opts Options) *Runner {
	return &Runner{opts: opts, recorder: metrics.NoopRecorder{}}
}

// WithRecorder injects a metrics recorder. Returns the runner for chaining.
func (r *Runner) WithRecorder(rec metrics.Recorder) *Runner {
	if rec == nil {
		rec = metrics.NoopRecorder{}
	}
	r.recorder = rec
	return r
}

// WithHistory injects the run history store. Returns the runner for chaining.
func (r *Runner) WithHistory(store *history.Store) *Runner {
	r.store = store
	return r
}

// SyncState carries mutable state across stages.
type SyncState struct {
	Options   Options
	Report    *Report
	Base      *config.Document
	Nav       nav.Navigation
	Positions *poscache.Cache

	navFound bool
	recorder metrics.Recorder
}

// Run executes the stage sequence. The report is returned also on failure,
// carrying whatever counters accumulated before the abort.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	report := newReport()
	st := &SyncState{
		Options:  r.opts,
		Report:   report,
		recorder: r.recorder,
	}

	slog.Info("Starting sync run",
		logfields.RunID(report.RunID),
		logfields.Source(r.opts.SourceDir),
		logfields.Dest(r.opts.OutputDir))

	stages := NewPipeline().
		Add(StagePrepareOutput, stagePrepareOutput).
		Add(StageLoadConfig, stageLoadConfig).
		Add(StageLoadPositions, stageLoadPositions).
		Add(StageMaterialize, stageMaterializeContent).
		Add(StageSynthesizeNav, stageSynthesizeNavigation).
		Add(StageWriteConfig, stageWriteConfig).
		Add(StageSavePositions, stageSavePositions).
		AddIf(r.opts.Verify, StageVerifyLinks, stageVerifyLinks).
		Build()

	err := runStages(ctx, st, stages)
	report.finish()
	report.deriveOutcome()

	r.recorder.ObserveRunDuration(report.End.Sub(report.Start))
	r.recorder.IncRunOutcome(metrics.OutcomeLabel(report.Outcome))
	r.recorder.AddFiles(metrics.DispositionCopied, report.FilesCopied)
	r.recorder.AddFiles(metrics.DispositionTransformed, report.FilesTransformed)
	r.recorder.AddFiles(metrics.DispositionSkipped, report.FilesSkipped)
	r.recorder.AddFiles(metrics.DispositionFailed, report.FilesFailed)
	r.recorder.SetNavigationPages(report.NavigationPages)
	r.recorder.SetBrokenLinks(len(report.Broken))

	r.persistHistory(report)

	if err != nil {
		slog.Error("Sync run failed",
			logfields.RunID(report.RunID),
			logfields.Outcome(string(report.Outcome)),
			logfields.Error(err))
		return report, err
	}

	slog.Info("Sync run completed",
		logfields.RunID(report.RunID),
		logfields.Outcome(string(report.Outcome)),
		logfields.DurationMS(float64(report.End.Sub(report.Start))/float64(time.Millisecond)),
		logfields.Count(report.FilesSeen))
	return report, nil
}

// persistHistory records the run outside the stage sequence so aborted runs
// land in history too. The run context may already be canceled here, hence
// the fresh background context. Recording failures are logged, not escalated.
func (r *Runner) persistHistory(report *Report) {
	if r.store == nil {
		return
	}
	rec := history.RunRecord{
		ID:               report.RunID,
		Start:            report.Start,
		Duration:         report.End.Sub(report.Start),
		Outcome:          string(report.Outcome),
		FilesSeen:        report.FilesSeen,
		FilesTransformed: report.FilesTransformed,
		FilesCopied:      report.FilesCopied,
		FilesSkipped:     report.FilesSkipped,
		FilesFailed:      report.FilesFailed,
		Pages:            report.NavigationPages,
		BrokenLinks:      len(report.Broken),
		ConfigWritten:    report.ConfigWritten,
		Warnings:         len(report.Warnings),
	}
	if len(report.Errors) > 0 {
		rec.Error = errors.Join(report.Errors...).Error()
	}
	if err := r.store.RecordRun(context.Background(), rec); err != nil {
		slog.Warn("Failed to record run history", logfields.RunID(report.RunID), logfields.Error(err))
	}
}

// stagePrepareOutput ensures the output root exists, emptying it first on a
// clean run. The history database survives cleaning: it holds operational
// records, not derived content, and may be open in this process.
func stagePrepareOutput(_ context.Context, st *SyncState) error {
	out := st.Options.OutputDir
	if st.Options.Clean {
		entries, err := os.ReadDir(out)
		if err != nil && !os.IsNotExist(err) {
			return newFatalStageError(StagePrepareOutput, fmt.Errorf("read output tree: %w", err))
		}
		for _, entry := range entries {
			if entry.Name() == history.FileName {
				continue
			}
			if err := os.RemoveAll(filepath.Join(out, entry.Name())); err != nil {
				return newFatalStageError(StagePrepareOutput, fmt.Errorf("clean output tree: %w", err))
			}
		}
	}
	if err := os.MkdirAll(out, 0o755); err != nil {
		return newFatalStageError(StagePrepareOutput, fmt.Errorf("create output tree: %w", err))
	}
	return nil
}

func stageLoadConfig(_ context.Context, st *SyncState) error {
	doc, err := config.Load(st.Options.BasePath)
	if err != nil {
		return newFatalStageError(StageLoadConfig, err)
	}
	st.Base = doc

	raw, ok := doc.Get(config.NavigationKey)
	if !ok {
		return newWarnStageError(StageLoadConfig,
			fmt.Errorf("%w: %s: no %q key", config.ErrDocumentInvalid, st.Options.BasePath, config.NavigationKey))
	}
	n, err := nav.Parse(raw)
	if err != nil {
		return newFatalStageError(StageLoadConfig,
			fmt.Errorf("%w: %s: %w", config.ErrDocumentInvalid, st.Options.BasePath, err))
	}
	st.Nav = n
	st.navFound = true
	return nil
}

func stageLoadPositions(_ context.Context, st *SyncState) error {
	st.Positions = poscache.Load(filepath.Join(st.Options.OutputDir, poscache.FileName))
	return nil
}

func stageMaterializeContent(ctx context.Context, st *SyncState) error {
	m := content.NewMaterializer(st.Positions)
	if st.Options.Annotate {
		if a := gitinfo.Discover(st.Options.SourceDir); a != nil {
			m = m.WithAnnotator(a.LastModified)
		}
	}

	stats, err := m.Run(ctx, st.Options.SourceDir, st.Options.OutputDir)
	st.Report.FilesSeen = stats.Seen
	st.Report.FilesCopied = stats.Copied
	st.Report.FilesTransformed = stats.Transformed
	st.Report.FilesSkipped = stats.Skipped
	st.Report.FilesFailed = stats.Failed
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return newCanceledStageError(StageMaterialize, err)
		}
		return newFatalStageError(StageMaterialize, err)
	}
	if stats.Failed > 0 {
		return newWarnStageError(StageMaterialize,
			fmt.Errorf("%d of %d files could not be materialized", stats.Failed, stats.Seen))
	}
	return nil
}

func stageSynthesizeNavigation(_ context.Context, st *SyncState) error {
	if !st.navFound {
		return nil
	}
	expanded, err := nav.NewSynthesizer(st.Options.OutputDir, st.Positions).Expand(st.Nav, "")
	if err != nil {
		return newFatalStageError(StageSynthesizeNav, err)
	}
	st.Nav = expanded
	st.Report.NavigationPages = expanded.PageCount()
	return nil
}

func stageWriteConfig(_ context.Context, st *SyncState) error {
	if st.navFound {
		raw, err := json.Marshal(st.Nav)
		if err != nil {
			return newFatalStageError(StageWriteConfig, fmt.Errorf("encode navigation: %w", err))
		}
		st.Base.Set(config.NavigationKey, raw)
	}

	target := filepath.Join(st.Options.OutputDir, nav.DocumentName)
	written, err := config.WriteIfChanged(target, st.Base)
	if err != nil {
		return newFatalStageError(StageWriteConfig, err)
	}
	st.Report.ConfigWritten = written
	if written {
		slog.Info("Navigation document written", logfields.Path(target), logfields.Count(st.Report.NavigationPages))
	} else {
		slog.Debug("Navigation document unchanged", logfields.Path(target))
	}
	return nil
}

func stageSavePositions(_ context.Context, st *SyncState) error {
	written, err := st.Positions.Save()
	if err != nil {
		return newWarnStageError(StageSavePositions, err)
	}
	st.Report.PositionsWritten = written
	return nil
}

func stageVerifyLinks(ctx context.Context, st *SyncState) error {
	problems, err := linkverify.NewChecker(st.Options.OutputDir).Check(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return newCanceledStageError(StageVerifyLinks, err)
		}
		return newWarnStageError(StageVerifyLinks, err)
	}
	st.Report.Broken = problems
	if len(problems) > 0 {
		for _, p := range problems {
			slog.Warn("Broken internal link",
				logfields.Page(p.Page), logfields.Target(p.Target), slog.String("reason", p.Reason))
		}
		return newWarnStageError(StageVerifyLinks, fmt.Errorf("%d broken internal links", len(problems)))
	}
	return nil
}
