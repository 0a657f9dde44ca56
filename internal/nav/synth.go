package nav

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"

	"git.home.luguber.info/inful/docsync/internal/config"
	"git.home.luguber.info/inful/docsync/internal/logfields"
	"git.home.luguber.info/inful/docsync/internal/poscache"
)

// DocumentName is the per-folder configuration document consulted when a
// directive folder hosts its own navigation.
const DocumentName = "docs.json"

// Synthesizer expands auto-generate directives against the materialized
// output tree.
type Synthesizer struct {
	root      string
	positions *poscache.Cache
}

func NewSynthesizer(root string, positions *poscache.Cache) *Synthesizer {
	return &Synthesizer{root: root, positions: positions}
}

// Expand returns the navigation with every directive node replaced. prefix is
// the output-relative path the tree is mounted under ("" at the document
// root); page strings gain it, and directive folders are resolved below it
// first.
func (s *Synthesizer) Expand(n Navigation, prefix string) (Navigation, error) {
	out := n

	if len(n.Tabs) > 0 {
		out.Tabs = make([]Tab, len(n.Tabs))
		for i, t := range n.Tabs {
			et, err := s.expandTab(t, prefix)
			if err != nil {
				return Navigation{}, err
			}
			out.Tabs[i] = et
		}
	}
	if len(n.Groups) > 0 {
		out.Groups = make([]Group, len(n.Groups))
		for i, g := range n.Groups {
			eg, err := s.expandGroup(g, prefix)
			if err != nil {
				return Navigation{}, err
			}
			out.Groups[i] = eg
		}
	}
	pages, err := s.expandEntries(n.Pages, prefix)
	if err != nil {
		return Navigation{}, err
	}
	out.Pages = pages
	return out, nil
}

func (s *Synthesizer) expandEntries(entries []Entry, prefix string) ([]Entry, error) {
	if entries == nil {
		return nil, nil
	}
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if e.Group == nil {
			out = append(out, PageEntry(prefixPage(prefix, e.Page)))
			continue
		}
		eg, err := s.expandGroup(*e.Group, prefix)
		if err != nil {
			return nil, err
		}
		out = append(out, GroupEntry(eg))
	}
	return out, nil
}

func (s *Synthesizer) expandGroup(g Group, prefix string) (Group, error) {
	if g.AutoGenerate == "" {
		pages, err := s.expandEntries(g.Pages, prefix)
		if err != nil {
			return Group{}, err
		}
		g.Pages = pages
		return g, nil
	}

	directive := g.AutoGenerate
	g.AutoGenerate = ""

	folderRel, ok := s.resolveFolder(directive, prefix)
	if !ok {
		g.Pages = nil
		return g, nil
	}

	sub, found, err := s.loadSubDocument(folderRel)
	if err != nil {
		slog.Warn("Nested navigation document unusable, listing folder instead",
			logfields.Folder(folderRel), logfields.Error(err))
		found = false
	}
	if found {
		return s.mergeSubDocument(g, sub, folderRel)
	}

	pages, err := s.listFolder(folderRel)
	if err != nil {
		return Group{}, err
	}
	g.Pages = pages
	return g, nil
}

func (s *Synthesizer) expandTab(t Tab, prefix string) (Tab, error) {
	if t.AutoGenerate == "" {
		if len(t.Groups) > 0 {
			groups := make([]Group, len(t.Groups))
			for i, g := range t.Groups {
				eg, err := s.expandGroup(g, prefix)
				if err != nil {
					return Tab{}, err
				}
				groups[i] = eg
			}
			t.Groups = groups
		}
		pages, err := s.expandEntries(t.Pages, prefix)
		if err != nil {
			return Tab{}, err
		}
		t.Pages = pages
		return t, nil
	}

	directive := t.AutoGenerate
	t.AutoGenerate = ""

	folderRel, ok := s.resolveFolder(directive, prefix)
	if !ok {
		return t, nil
	}

	sub, found, err := s.loadSubDocument(folderRel)
	if err != nil {
		slog.Warn("Nested navigation document unusable, listing folder instead",
			logfields.Folder(folderRel), logfields.Error(err))
		found = false
	}
	if found {
		expanded, err := s.Expand(sub, folderRel)
		if err != nil {
			return Tab{}, err
		}
		groups, loose := collectGroups(expanded)
		t.Groups = groups
		t.Pages = loose
		return t, nil
	}

	pages, err := s.listFolder(folderRel)
	if err != nil {
		return Tab{}, err
	}
	t.Pages = pages
	return t, nil
}

// resolveFolder locates a directive folder under the output root, preferring
// the prefixed location. The order matters: an external tree mounted under
// prefix shadows a same-named folder at the root.
func (s *Synthesizer) resolveFolder(folder, prefix string) (string, bool) {
	candidates := make([]string, 0, 2)
	if prefix != "" {
		candidates = append(candidates, path.Join(prefix, folder))
	}
	candidates = append(candidates, folder)

	for _, rel := range candidates {
		abs := filepath.Join(s.root, filepath.FromSlash(rel))
		if info, err := os.Stat(abs); err == nil && info.IsDir() {
			return rel, true
		}
		slog.Debug("auto-generate candidate missing", logfields.Folder(rel))
	}
	slog.Warn("auto-generate folder not found, emitting empty node",
		logfields.Folder(folder), logfields.Path(prefix))
	return "", false
}

// loadSubDocument reads a nested configuration document's navigation when the
// folder carries one.
func (s *Synthesizer) loadSubDocument(folderRel string) (Navigation, bool, error) {
	docPath := filepath.Join(s.root, filepath.FromSlash(folderRel), DocumentName)
	data, err := os.ReadFile(docPath)
	if err != nil {
		if os.IsNotExist(err) {
			return Navigation{}, false, nil
		}
		return Navigation{}, false, fmt.Errorf("read nested document %s: %w", docPath, err)
	}

	doc, err := config.ParseDocument(data)
	if err != nil {
		return Navigation{}, false, fmt.Errorf("%w: %s: %w", config.ErrDocumentInvalid, docPath, err)
	}
	raw, ok := doc.Get(config.NavigationKey)
	if !ok {
		return Navigation{}, true, nil
	}
	var n Navigation
	if err := json.Unmarshal(raw, &n); err != nil {
		return Navigation{}, false, fmt.Errorf("%w: %s: %w", config.ErrDocumentInvalid, docPath, err)
	}
	if err := n.Validate(); err != nil {
		return Navigation{}, false, fmt.Errorf("%s: %w", docPath, err)
	}
	return n, true, nil
}

// mergeSubDocument splices an external tree's expanded navigation into the
// host group. A single top-level group lifts in place of the host; several
// are concatenated under it.
func (s *Synthesizer) mergeSubDocument(host Group, sub Navigation, folderRel string) (Group, error) {
	expanded, err := s.Expand(sub, folderRel)
	if err != nil {
		return Group{}, err
	}

	groups, loose := collectGroups(expanded)
	switch {
	case len(groups) == 0:
		host.Pages = loose
		return host, nil
	case len(groups) == 1 && len(loose) == 0:
		lifted := groups[0]
		if lifted.Group == "" {
			lifted.Group = host.Group
		}
		if lifted.Icon == "" {
			lifted.Icon = host.Icon
		}
		if lifted.Tag == "" {
			lifted.Tag = host.Tag
		}
		return lifted, nil
	default:
		entries := make([]Entry, 0, len(groups)+len(loose))
		for _, g := range groups {
			entries = append(entries, GroupEntry(g))
		}
		entries = append(entries, loose...)
		host.Pages = entries
		return host, nil
	}
}

// collectGroups flattens an expanded navigation's top level into groups plus
// loose page entries. Tabs contribute their groups; a tab holding only loose
// pages becomes a group named after it.
func collectGroups(n Navigation) ([]Group, []Entry) {
	groups := make([]Group, 0, len(n.Groups)+len(n.Tabs))
	for _, t := range n.Tabs {
		if len(t.Groups) > 0 {
			groups = append(groups, t.Groups...)
			continue
		}
		if len(t.Pages) > 0 {
			groups = append(groups, Group{Group: t.Tab, Icon: t.Icon, Pages: t.Pages})
		}
	}
	groups = append(groups, n.Groups...)
	return groups, n.Pages
}

func prefixPage(prefix, page string) string {
	if prefix == "" {
		return page
	}
	return path.Join(prefix, page)
}
