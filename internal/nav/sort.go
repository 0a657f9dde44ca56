package nav

import (
	"fmt"
	"math"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// suppressPrefix marks files and folders excluded from navigation listings
// (snippet/partial convention). The materializer still copies them.
const suppressPrefix = "_"

const markupExt = ".mdx"

// listFolder derives sorted entries from a materialized folder: markup files
// first, then subdirectories as nested groups. Empty subtrees are omitted.
func (s *Synthesizer) listFolder(folderRel string) ([]Entry, error) {
	abs := filepath.Join(s.root, filepath.FromSlash(folderRel))
	dirents, err := os.ReadDir(abs)
	if err != nil {
		return nil, fmt.Errorf("list auto-generate folder %s: %w", abs, err)
	}

	files := make([]string, 0, len(dirents))
	dirs := make([]string, 0)
	for _, de := range dirents {
		name := de.Name()
		if strings.HasPrefix(name, ".") || strings.HasPrefix(name, suppressPrefix) {
			continue
		}
		if de.IsDir() {
			dirs = append(dirs, name)
			continue
		}
		if name == DocumentName {
			continue
		}
		if strings.EqualFold(filepath.Ext(name), markupExt) {
			files = append(files, name)
		}
	}

	s.sortPages(files, folderRel)
	sort.Strings(dirs)

	entries := make([]Entry, 0, len(files)+len(dirs))
	for _, f := range files {
		entries = append(entries, PageEntry(pagePath(folderRel, f)))
	}
	for _, d := range dirs {
		sub, err := s.listFolder(path.Join(folderRel, d))
		if err != nil {
			return nil, err
		}
		if len(sub) == 0 {
			continue
		}
		entries = append(entries, GroupEntry(Group{Group: displayName(d), Pages: sub}))
	}
	return entries, nil
}

// sortPages orders file names: readme/index first, then by cached ordering
// hint (absent sorts last), ties alphabetical.
func (s *Synthesizer) sortPages(files []string, folderRel string) {
	sort.SliceStable(files, func(i, j int) bool {
		a, b := files[i], files[j]
		ra, rb := rootRank(a), rootRank(b)
		if ra != rb {
			return ra < rb
		}
		pa, pb := s.position(folderRel, a), s.position(folderRel, b)
		if pa != pb {
			return pa < pb
		}
		return a < b
	})
}

func rootRank(name string) int {
	base := strings.ToLower(strings.TrimSuffix(name, filepath.Ext(name)))
	if base == "readme" || base == "index" {
		return 0
	}
	return 1
}

func (s *Synthesizer) position(folderRel, name string) int {
	if s.positions == nil {
		return math.MaxInt
	}
	if pos, ok := s.positions.Get(pagePath(folderRel, name)); ok {
		return pos
	}
	return math.MaxInt
}

// pagePath builds the navigation page string for a file: output-relative,
// extensionless, forward slashes.
func pagePath(folderRel, name string) string {
	return path.Join(folderRel, strings.TrimSuffix(name, filepath.Ext(name)))
}

// displayName humanizes a directory name for use as a group label. Existing
// capitals survive (NoLower), so acronym directories keep their casing.
func displayName(dir string) string {
	spaced := strings.NewReplacer("-", " ", "_", " ").Replace(dir)
	return cases.Title(language.English, cases.NoLower).String(spaced)
}
