package content

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"time"

	"git.home.luguber.info/inful/docsync/internal/logfields"
	"git.home.luguber.info/inful/docsync/internal/poscache"
)

// ErrSourceUnreadable indicates the source tree (or a directory within it)
// could not be read. This aborts the run.
var ErrSourceUnreadable = errors.New("source tree unreadable")

// Stats accumulates per-run materialization counts.
type Stats struct {
	Seen        int
	Copied      int
	Transformed int
	Skipped     int
	Failed      int
}

// AnnotateFunc resolves a last-modification timestamp for a source file,
// ok=false when history is unavailable.
type AnnotateFunc func(srcPath string) (time.Time, bool)

// Materializer mirrors a source tree into an output tree.
type Materializer struct {
	positions *poscache.Cache
	annotate  AnnotateFunc

	stats   Stats
	visited map[string]struct{}
}

func NewMaterializer(positions *poscache.Cache) *Materializer {
	return &Materializer{positions: positions}
}

// WithAnnotator enables history annotation of transformed markup.
func (m *Materializer) WithAnnotator(fn AnnotateFunc) *Materializer {
	m.annotate = fn
	return m
}

// Run walks srcRoot and materializes it under dstRoot. Traversal errors are
// fatal; per-file transform failures degrade to a warning and an unmodified
// copy.
func (m *Materializer) Run(ctx context.Context, srcRoot, dstRoot string) (Stats, error) {
	m.stats = Stats{}
	m.visited = make(map[string]struct{})

	if info, err := os.Stat(srcRoot); err != nil {
		return m.stats, fmt.Errorf("%w: %s: %w", ErrSourceUnreadable, srcRoot, err)
	} else if !info.IsDir() {
		return m.stats, fmt.Errorf("%w: %s: not a directory", ErrSourceUnreadable, srcRoot)
	}
	if err := os.MkdirAll(dstRoot, 0o755); err != nil {
		return m.stats, fmt.Errorf("create output root: %w", err)
	}

	if err := m.walk(ctx, srcRoot, dstRoot, ""); err != nil {
		return m.stats, err
	}
	return m.stats, nil
}

func (m *Materializer) walk(ctx context.Context, srcDir, dstDir, relDir string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	// Guard against symlink loops: track resolved directories on the
	// current walk path.
	if resolved, err := filepath.EvalSymlinks(srcDir); err == nil {
		if _, onPath := m.visited[resolved]; onPath {
			slog.Warn("symlink cycle detected, skipping directory", logfields.Source(srcDir))
			return nil
		}
		m.visited[resolved] = struct{}{}
		defer delete(m.visited, resolved)
	}

	entries, err := os.ReadDir(srcDir)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrSourceUnreadable, srcDir, err)
	}

	for _, entry := range entries {
		srcPath := filepath.Join(srcDir, entry.Name())

		// Stat (not Lstat) so symlinked entries look like their targets.
		info, err := os.Stat(srcPath)
		if err != nil {
			slog.Warn("skipping unreadable entry", logfields.Source(srcPath), logfields.Error(err))
			m.stats.Failed++
			continue
		}

		if info.IsDir() {
			subDst := filepath.Join(dstDir, entry.Name())
			if err := os.MkdirAll(subDst, 0o755); err != nil {
				return fmt.Errorf("create directory %s: %w", subDst, err)
			}
			if err := m.walk(ctx, srcPath, subDst, path.Join(relDir, entry.Name())); err != nil {
				return err
			}
			continue
		}

		m.stats.Seen++
		if err := m.materializeFile(srcPath, dstDir, relDir, entry.Name(), info); err != nil {
			return err
		}
	}
	return nil
}

func (m *Materializer) materializeFile(srcPath, dstDir, relDir, name string, info os.FileInfo) error {
	dstName, markup := destinationName(name)
	dstPath := filepath.Join(dstDir, dstName)

	if dstInfo, err := os.Stat(dstPath); err == nil && dstInfo.ModTime().Equal(info.ModTime()) {
		m.stats.Skipped++
		return nil
	}

	if markup {
		data, err := os.ReadFile(srcPath)
		if err != nil {
			return fmt.Errorf("%w: %s: %w", ErrSourceUnreadable, srcPath, err)
		}
		page := path.Join(relDir, trimExt(dstName))
		out, failed := m.transformMarkup(data, page, srcPath)
		if err := os.WriteFile(dstPath, out, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", dstPath, err)
		}
		if failed {
			m.stats.Failed++
		} else {
			m.stats.Transformed++
		}
	} else {
		if err := copyFile(srcPath, dstPath); err != nil {
			return fmt.Errorf("copy %s: %w", srcPath, err)
		}
		m.stats.Copied++
	}

	// Destination mtime mirrors the source; this is the skip key above.
	if err := os.Chtimes(dstPath, info.ModTime(), info.ModTime()); err != nil {
		return fmt.Errorf("set timestamps %s: %w", dstPath, err)
	}

	slog.Debug("materialized file", logfields.Source(srcPath), logfields.Dest(dstPath))
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
