// Package gitinfo resolves per-file modification timestamps from version
// control history. The materializer uses it to stamp generated pages with
// the time of the newest commit touching their source file, which is more
// stable than filesystem mtimes across fresh clones.
package gitinfo

import (
	"errors"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"git.home.luguber.info/inful/docsync/internal/logfields"
)

var errFound = errors.New("stop iteration")

// Annotator answers last-modified queries against the history of a single
// repository. A nil Annotator is valid and reports no timestamps.
type Annotator struct {
	repo *git.Repository
	head plumbing.Hash
	root string
	memo map[string]time.Time
}

// Discover opens the repository that contains dir, searching parent
// directories for the .git folder like the git CLI does. It returns nil when
// dir is not inside a work tree or the repository has no commits yet; sync
// runs fine without history, pages just carry no timestamp.
func Discover(dir string) *Annotator {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		slog.Debug("No repository found for source tree", logfields.Path(dir), logfields.Error(err))
		return nil
	}

	ref, err := repo.Head()
	if err != nil {
		slog.Debug("Repository has no resolvable HEAD", logfields.Path(dir), logfields.Error(err))
		return nil
	}

	wt, err := repo.Worktree()
	if err != nil {
		slog.Debug("Repository has no work tree", logfields.Path(dir), logfields.Error(err))
		return nil
	}

	return &Annotator{
		repo: repo,
		head: ref.Hash(),
		root: wt.Filesystem.Root(),
		memo: make(map[string]time.Time),
	}
}

// LastModified returns the committer time of the newest commit that touched
// path. The boolean is false for files outside the work tree, files never
// committed, and nil receivers.
func (a *Annotator) LastModified(path string) (time.Time, bool) {
	if a == nil {
		return time.Time{}, false
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return time.Time{}, false
	}
	rel, err := filepath.Rel(a.root, abs)
	if err != nil || strings.HasPrefix(rel, "..") {
		return time.Time{}, false
	}
	rel = filepath.ToSlash(rel)

	// Negative results are memoized as the zero time so untracked files
	// cost one history walk, not one per run.
	if when, ok := a.memo[rel]; ok {
		return when, !when.IsZero()
	}

	when := a.lookup(rel)
	a.memo[rel] = when
	return when, !when.IsZero()
}

func (a *Annotator) lookup(rel string) time.Time {
	iter, err := a.repo.Log(&git.LogOptions{From: a.head, FileName: &rel})
	if err != nil {
		slog.Debug("History lookup failed", logfields.Path(rel), logfields.Error(err))
		return time.Time{}
	}
	defer iter.Close()

	var when time.Time
	err = iter.ForEach(func(c *object.Commit) error {
		when = c.Committer.When
		return errFound
	})
	if err != nil && !errors.Is(err, errFound) {
		slog.Debug("History lookup failed", logfields.Path(rel), logfields.Error(err))
		return time.Time{}
	}

	return when
}
