// Package watch re-runs the sync pipeline when authored sources change.
//
// Filesystem events are debounced so editor write bursts collapse into one
// run, and an optional periodic resync catches changes that never produce
// events, such as clock-skewed network mounts. Syncs run serially; triggers
// arriving while a run is in flight are queued and retried after the
// debounce window.
package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
	"github.com/go-co-op/gocron/v2"

	"git.home.luguber.info/inful/docsync/internal/logfields"
)

// Sync trigger reasons, passed through to the OnSync callback.
const (
	ReasonStartup    = "startup"
	ReasonFileChange = "file_change"
	ReasonSchedule   = "schedule"
)

const defaultDebounce = 2 * time.Second

// defaultIgnores excludes paths that generate high-frequency noise: VCS
// metadata, dependency caches, editor swap files and OS metadata files.
// Directory patterns appear in both bare and descendant form so the
// directory entry itself is also ignored.
var defaultIgnores = []string{
	"**/.git",
	"**/.git/**",
	"**/node_modules",
	"**/node_modules/**",
	"**/*.swp",
	"**/*.swo",
	"**/*~",
	"**/.DS_Store",
}

// Config holds the parameters for a watch Service.
type Config struct {
	// SourceDir is the authored content root, watched recursively.
	SourceDir string

	// BasePath is the navigation seed document. Edits to it trigger a sync
	// just like content changes. Empty disables seed watching.
	BasePath string

	// Debounce is the quiet period after the last trigger before a sync
	// runs. Zero or negative falls back to defaultDebounce.
	Debounce time.Duration

	// Resync is the periodic full resync interval. Zero disables the
	// schedule.
	Resync time.Duration

	// Ignore are additional doublestar patterns for paths that never
	// trigger syncs, merged with the built-in defaults.
	Ignore []string

	// MetricsAddr is the listen address for the metrics endpoint. Empty
	// disables the HTTP server.
	MetricsAddr string

	// MetricsHandler serves GET /metrics when MetricsAddr is set.
	MetricsHandler http.Handler

	// OnSync runs one sync pass. Invocations are serialized.
	OnSync func(ctx context.Context, reason string) error
}

// Service watches the source tree and drives debounced sync runs.
type Service struct {
	cfg        Config
	watcher    *fsnotify.Watcher
	scheduler  gocron.Scheduler
	httpServer *http.Server
	ignores    []string
	sourceRoot string
	basePath   string
	debounce   time.Duration

	syncChan chan string
	stopChan chan struct{}
	stopOnce sync.Once
	running  atomic.Bool
}

// New validates cfg and prepares the service. Start must be called to begin
// watching.
func New(cfg Config) (*Service, error) {
	if cfg.OnSync == nil {
		return nil, errors.New("watch: sync callback is required")
	}

	sourceRoot, err := filepath.Abs(cfg.SourceDir)
	if err != nil {
		return nil, fmt.Errorf("watch: resolve source directory: %w", err)
	}
	basePath := ""
	if cfg.BasePath != "" {
		if basePath, err = filepath.Abs(cfg.BasePath); err != nil {
			return nil, fmt.Errorf("watch: resolve base document path: %w", err)
		}
	}

	// Invalid globs fail here rather than silently never matching.
	for _, pat := range cfg.Ignore {
		if _, err := doublestar.Match(pat, ""); err != nil {
			return nil, fmt.Errorf("watch: invalid ignore pattern %q: %w", pat, err)
		}
	}
	ignores := make([]string, 0, len(defaultIgnores)+len(cfg.Ignore))
	ignores = append(ignores, defaultIgnores...)
	ignores = append(ignores, cfg.Ignore...)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: create file watcher: %w", err)
	}

	debounce := cfg.Debounce
	if debounce <= 0 {
		debounce = defaultDebounce
	}

	s := &Service{
		cfg:        cfg,
		watcher:    watcher,
		ignores:    ignores,
		sourceRoot: sourceRoot,
		basePath:   basePath,
		debounce:   debounce,
		syncChan:   make(chan string, 1),
		stopChan:   make(chan struct{}),
	}

	if cfg.Resync > 0 {
		sched, err := gocron.NewScheduler()
		if err != nil {
			watcher.Close()
			return nil, fmt.Errorf("watch: create scheduler: %w", err)
		}
		s.scheduler = sched
	}

	return s, nil
}

// Start registers watches, launches the event loops and queues the initial
// sync. It returns immediately; the service runs until Stop or context
// cancellation.
func (s *Service) Start(ctx context.Context) error {
	if err := s.addTree(s.sourceRoot); err != nil {
		return err
	}
	if s.basePath != "" {
		// Watching the containing directory survives editors that replace
		// the file via rename.
		if err := s.watcher.Add(filepath.Dir(s.basePath)); err != nil {
			return fmt.Errorf("watch: watch base document directory: %w", err)
		}
	}

	if s.scheduler != nil {
		_, err := s.scheduler.NewJob(
			gocron.DurationJob(s.cfg.Resync),
			gocron.NewTask(func() { s.trigger(ReasonSchedule) }),
			gocron.WithName("periodic-resync"),
		)
		if err != nil {
			return fmt.Errorf("watch: schedule periodic resync: %w", err)
		}
		s.scheduler.Start()
		slog.Info("Periodic resync scheduled", slog.Duration("interval", s.cfg.Resync))
	}

	if s.cfg.MetricsAddr != "" && s.cfg.MetricsHandler != nil {
		s.startMetricsServer()
	}

	go s.watchLoop(ctx)
	go s.syncLoop(ctx)

	slog.Info("Watching for changes",
		logfields.Source(s.sourceRoot),
		slog.Duration("debounce", s.debounce))
	s.trigger(ReasonStartup)
	return nil
}

// Stop shuts the service down. Safe to call more than once.
func (s *Service) Stop() error {
	var errs []error
	s.stopOnce.Do(func() {
		close(s.stopChan)
		if err := s.watcher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close file watcher: %w", err))
		}
		if s.scheduler != nil {
			if err := s.scheduler.Shutdown(); err != nil {
				errs = append(errs, fmt.Errorf("shut down scheduler: %w", err))
			}
		}
		if s.httpServer != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := s.httpServer.Shutdown(ctx); err != nil {
				errs = append(errs, fmt.Errorf("shut down metrics server: %w", err))
			}
		}
	})
	return errors.Join(errs...)
}

func (s *Service) startMetricsServer() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", s.cfg.MetricsHandler)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})
	s.httpServer = &http.Server{
		Addr:              s.cfg.MetricsAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		slog.Info("Metrics endpoint listening", slog.String("addr", s.cfg.MetricsAddr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Metrics server failed", logfields.Error(err))
		}
	}()
}

// addTree registers every non-ignored directory under root. Inaccessible
// subdirectories are skipped with a warning rather than aborting the walk.
func (s *Service) addTree(root string) error {
	walkErr := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			slog.Warn("Skipping unwatchable path", logfields.Path(path), logfields.Error(err))
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return nil
		}
		if rel != "." && s.isIgnored(rel) {
			return filepath.SkipDir
		}
		if addErr := s.watcher.Add(path); addErr != nil {
			return fmt.Errorf("watch: watch directory %q: %w", path, addErr)
		}
		return nil
	})
	if walkErr != nil {
		return fmt.Errorf("watch: walk source tree: %w", walkErr)
	}
	return nil
}

func (s *Service) watchLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopChan:
			return
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			s.handleEvent(event)
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			slog.Error("File watcher error", logfields.Error(err))
		}
	}
}

func (s *Service) handleEvent(event fsnotify.Event) {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
		!event.Has(fsnotify.Rename) && !event.Has(fsnotify.Remove) {
		return
	}

	abs, err := filepath.Abs(event.Name)
	if err != nil {
		return
	}

	if s.basePath != "" && abs == s.basePath {
		if event.Has(fsnotify.Remove) {
			slog.Warn("Base document removed", logfields.Path(abs))
			return
		}
		slog.Debug("Base document changed", logfields.Path(abs))
		s.trigger(ReasonFileChange)
		return
	}

	rel, err := filepath.Rel(s.sourceRoot, abs)
	if err != nil || strings.HasPrefix(rel, "..") {
		// Unrelated sibling of the base document's directory.
		return
	}
	if s.isIgnored(rel) {
		return
	}

	// Directories created after startup extend the recursive watch.
	if event.Has(fsnotify.Create) {
		s.maybeAddDir(abs, rel)
	}

	slog.Debug("Source change detected", logfields.Path(rel), slog.String("op", event.Op.String()))
	s.trigger(ReasonFileChange)
}

func (s *Service) maybeAddDir(abs, rel string) {
	info, err := os.Stat(abs)
	if err != nil || !info.IsDir() {
		return
	}
	if s.isIgnored(rel) {
		return
	}
	if err := s.watcher.Add(abs); err != nil {
		slog.Warn("Failed to watch new directory", logfields.Path(abs), logfields.Error(err))
	}
}

func (s *Service) isIgnored(rel string) bool {
	normalized := filepath.ToSlash(rel)
	for _, pat := range s.ignores {
		if matched, err := doublestar.Match(pat, normalized); err == nil && matched {
			return true
		}
	}
	return false
}

// trigger queues a sync without blocking. A full channel means a sync is
// already pending and the trigger folds into it.
func (s *Service) trigger(reason string) {
	select {
	case s.syncChan <- reason:
	default:
	}
}

// syncLoop debounces queued triggers. Each trigger restarts the timer, so a
// sync runs only after the filesystem has been quiet for the debounce period.
func (s *Service) syncLoop(ctx context.Context) {
	var timer *time.Timer

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return
		case <-s.stopChan:
			if timer != nil {
				timer.Stop()
			}
			return
		case reason := <-s.syncChan:
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(s.debounce, func() { s.runSync(ctx, reason) })
		}
	}
}

// runSync executes one sync pass. A pass that finds the previous one still
// running re-queues itself so the trigger is retried, not lost.
func (s *Service) runSync(ctx context.Context, reason string) {
	if ctx.Err() != nil {
		return
	}
	if !s.running.CompareAndSwap(false, true) {
		slog.Debug("Sync in progress, re-queueing trigger", slog.String("reason", reason))
		s.trigger(reason)
		return
	}
	defer s.running.Store(false)

	slog.Info("Sync triggered", slog.String("reason", reason))
	if err := s.cfg.OnSync(ctx, reason); err != nil {
		slog.Error("Sync failed", slog.String("reason", reason), logfields.Error(err))
	}
}
