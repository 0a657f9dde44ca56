package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/alecthomas/kong"
	"github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/docsync/internal/config"
	"git.home.luguber.info/inful/docsync/internal/history"
	"git.home.luguber.info/inful/docsync/internal/linkverify"
	"git.home.luguber.info/inful/docsync/internal/logfields"
	"git.home.luguber.info/inful/docsync/internal/metrics"
	"git.home.luguber.info/inful/docsync/internal/nav"
	"git.home.luguber.info/inful/docsync/internal/notify"
	"git.home.luguber.info/inful/docsync/internal/pipeline"
	"git.home.luguber.info/inful/docsync/internal/version"
	"git.home.luguber.info/inful/docsync/internal/watch"
)

var CLI struct {
	Base    string `short:"b" help:"Base document seeding the navigation" default:"docs.base.json" env:"DOCSYNC_BASE"`
	Source  string `short:"s" help:"Authored content root" default:"sources" env:"DOCSYNC_SOURCE"`
	Out     string `short:"o" help:"Output tree consumed by the docs platform" default:"docs" env:"DOCSYNC_OUT"`
	Verbose bool   `short:"v" help:"Enable verbose logging"`

	Sync struct {
		Clean       bool   `help:"Empty the output tree before materializing"`
		Annotate    bool   `help:"Stamp pages with VCS last-modified times"`
		VerifyLinks bool   `help:"Resolve internal links after writing"`
		NoHistory   bool   `help:"Skip recording the run in the history database"`
		NatsURL     string `help:"Publish the run event to this NATS server" env:"DOCSYNC_NATS_URL"`
		NatsSubject string `help:"Subject for run events" env:"DOCSYNC_NATS_SUBJECT"`
	} `cmd:"" help:"Materialize content and synthesize navigation once"`

	Check struct{} `cmd:"" help:"Verify internal links in an existing output tree"`

	Watch struct {
		Clean       bool          `help:"Empty the output tree before the first run"`
		Annotate    bool          `help:"Stamp pages with VCS last-modified times"`
		VerifyLinks bool          `help:"Resolve internal links after every run"`
		NoHistory   bool          `help:"Skip recording runs in the history database"`
		Debounce    time.Duration `help:"Quiet period before a change triggers a run" default:"2s"`
		Resync      time.Duration `help:"Periodic full resync interval, 0 disables"`
		Ignore      []string      `help:"Additional glob patterns that never trigger runs"`
		MetricsAddr string        `help:"Serve Prometheus metrics on this address" env:"DOCSYNC_METRICS_ADDR"`
		NatsURL     string        `help:"Publish run events to this NATS server" env:"DOCSYNC_NATS_URL"`
		NatsSubject string        `help:"Subject for run events" env:"DOCSYNC_NATS_SUBJECT"`
	} `cmd:"" help:"Run continuously, re-syncing when sources change"`

	History struct {
		Limit int `short:"n" help:"Number of runs to show" default:"20"`
	} `cmd:"" help:"Show recent sync runs"`

	Init struct {
		Force bool `help:"Overwrite an existing base document"`
	} `cmd:"" help:"Create a starter base document"`

	Version struct{} `cmd:"" help:"Print version information"`
}

func main() {
	config.LoadEnvFiles()
	ctx := kong.Parse(&CLI)

	logLevel := slog.LevelInfo
	if CLI.Verbose {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))

	switch ctx.Command() {
	case "sync":
		if err := runSync(); err != nil {
			slog.Error("Sync failed", logfields.Error(err))
			os.Exit(1)
		}
	case "check":
		if err := runCheck(); err != nil {
			slog.Error("Check failed", logfields.Error(err))
			os.Exit(1)
		}
	case "watch":
		if err := runWatch(); err != nil {
			slog.Error("Watch failed", logfields.Error(err))
			os.Exit(1)
		}
	case "history":
		if err := runHistory(); err != nil {
			slog.Error("History failed", logfields.Error(err))
			os.Exit(1)
		}
	case "init":
		if err := config.Init(CLI.Base, CLI.Init.Force); err != nil {
			slog.Error("Init failed", logfields.Error(err))
			os.Exit(1)
		}
		slog.Info("Base document created", logfields.Path(CLI.Base))
	case "version":
		fmt.Println(version.String())
	}
}

func runSync() error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	runner := pipeline.NewRunner(pipeline.Options{
		BasePath:  CLI.Base,
		SourceDir: CLI.Source,
		OutputDir: CLI.Out,
		Clean:     CLI.Sync.Clean,
		Verify:    CLI.Sync.VerifyLinks,
		Annotate:  CLI.Sync.Annotate,
	})

	if !CLI.Sync.NoHistory {
		if store := openHistory(CLI.Out); store != nil {
			defer store.Close()
			runner = runner.WithHistory(store)
		}
	}

	var pub *notify.Publisher
	if CLI.Sync.NatsURL != "" {
		var err error
		if pub, err = notify.NewPublisher(CLI.Sync.NatsURL, CLI.Sync.NatsSubject); err != nil {
			slog.Warn("NATS unavailable, run event will not be published", logfields.Error(err))
		} else {
			defer pub.Close()
		}
	}

	report, err := runner.Run(ctx)
	if report != nil {
		if pubErr := pub.PublishRun(eventFromReport(report)); pubErr != nil {
			slog.Warn("Failed to publish run event", logfields.Error(pubErr))
		}
		fmt.Println(report.Summary())
	}
	return err
}

func runCheck() error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if _, err := os.Stat(filepath.Join(CLI.Out, nav.DocumentName)); err != nil {
		return fmt.Errorf("no generated tree at %s, run sync first", CLI.Out)
	}

	problems, err := linkverify.NewChecker(CLI.Out).Check(ctx)
	if err != nil {
		return err
	}
	if len(problems) == 0 {
		slog.Info("All internal links resolve", logfields.Path(CLI.Out))
		return nil
	}
	for _, p := range problems {
		fmt.Printf("%s: %s (%s)\n", p.Page, p.Target, p.Reason)
	}
	return fmt.Errorf("%d broken internal links", len(problems))
}

func runWatch() error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var store *history.Store
	if !CLI.Watch.NoHistory {
		if store = openHistory(CLI.Out); store != nil {
			defer store.Close()
		}
	}

	var pub *notify.Publisher
	if CLI.Watch.NatsURL != "" {
		var err error
		if pub, err = notify.NewPublisher(CLI.Watch.NatsURL, CLI.Watch.NatsSubject); err != nil {
			slog.Warn("NATS unavailable, run events will not be published", logfields.Error(err))
		} else {
			defer pub.Close()
		}
	}

	registry := prometheus.NewRegistry()
	recorder := metrics.NewPrometheusRecorder(registry)

	onSync := func(runCtx context.Context, reason string) error {
		opts := pipeline.Options{
			BasePath:  CLI.Base,
			SourceDir: CLI.Source,
			OutputDir: CLI.Out,
			Clean:     CLI.Watch.Clean && reason == watch.ReasonStartup,
			Verify:    CLI.Watch.VerifyLinks,
			Annotate:  CLI.Watch.Annotate,
		}
		runner := pipeline.NewRunner(opts).WithRecorder(recorder)
		if store != nil {
			runner = runner.WithHistory(store)
		}
		report, err := runner.Run(runCtx)
		if report != nil {
			if pubErr := pub.PublishRun(eventFromReport(report)); pubErr != nil {
				slog.Warn("Failed to publish run event", logfields.Error(pubErr))
			}
		}
		return err
	}

	svc, err := watch.New(watch.Config{
		SourceDir:      CLI.Source,
		BasePath:       CLI.Base,
		Debounce:       CLI.Watch.Debounce,
		Resync:         CLI.Watch.Resync,
		Ignore:         CLI.Watch.Ignore,
		MetricsAddr:    CLI.Watch.MetricsAddr,
		MetricsHandler: metrics.HTTPHandler(registry),
		OnSync:         onSync,
	})
	if err != nil {
		return err
	}
	if err := svc.Start(ctx); err != nil {
		return err
	}

	<-ctx.Done()
	slog.Info("Shutdown signal received, stopping watch")
	return svc.Stop()
}

func runHistory() error {
	store, err := history.Open(filepath.Join(CLI.Out, history.FileName))
	if err != nil {
		return fmt.Errorf("open history database: %w", err)
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	runs, err := store.RecentRuns(ctx, CLI.History.Limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no recorded runs")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "STARTED\tOUTCOME\tFILES\tTRANSFORMED\tSKIPPED\tFAILED\tPAGES\tBROKEN\tWARN\tDURATION")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%d\t%d\t%d\t%d\t%s\n",
			r.Start.Format(time.RFC3339), r.Outcome,
			r.FilesSeen, r.FilesTransformed, r.FilesSkipped, r.FilesFailed,
			r.Pages, r.BrokenLinks, r.Warnings,
			r.Duration.Truncate(time.Millisecond))
	}
	return w.Flush()
}

// openHistory opens the run history database under the output root, creating
// the directory if this is the first run. Failures degrade to an unrecorded
// run rather than aborting.
func openHistory(outDir string) *history.Store {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		slog.Warn("Cannot create output directory for history database", logfields.Error(err))
		return nil
	}
	store, err := history.Open(filepath.Join(outDir, history.FileName))
	if err != nil {
		slog.Warn("History database unavailable, runs will not be recorded", logfields.Error(err))
		return nil
	}
	return store
}

func eventFromReport(r *pipeline.Report) *notify.RunCompleted {
	return &notify.RunCompleted{
		RunID:            r.RunID,
		Outcome:          string(r.Outcome),
		SourceDir:        CLI.Source,
		OutputDir:        CLI.Out,
		FilesSeen:        r.FilesSeen,
		FilesTransformed: r.FilesTransformed,
		FilesCopied:      r.FilesCopied,
		FilesSkipped:     r.FilesSkipped,
		FilesFailed:      r.FilesFailed,
		Pages:            r.NavigationPages,
		BrokenLinks:      len(r.Broken),
		ConfigWritten:    r.ConfigWritten,
		Warnings:         len(r.Warnings),
		DurationMS:       r.End.Sub(r.Start).Milliseconds(),
	}
}
