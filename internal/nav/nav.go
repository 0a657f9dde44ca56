package nav

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrDirectiveConflict indicates a node that carries both an auto-generate
// directive and authored children. The synthesizer owns population of a
// directive node exactly once, so such documents are rejected up front.
var ErrDirectiveConflict = errors.New("auto-generate node also carries authored children")

// Entry is one navigation item: either a page path or a nested group.
// Exactly one of the two fields is set.
type Entry struct {
	Page  string
	Group *Group
}

func PageEntry(page string) Entry { return Entry{Page: page} }
func GroupEntry(g Group) Entry    { return Entry{Group: &g} }
func (e Entry) IsGroup() bool     { return e.Group != nil }

func (e Entry) MarshalJSON() ([]byte, error) {
	if e.Group != nil {
		return json.Marshal(e.Group)
	}
	return json.Marshal(e.Page)
}

func (e *Entry) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '"' {
		return json.Unmarshal(data, &e.Page)
	}
	var g Group
	if err := json.Unmarshal(data, &g); err != nil {
		return err
	}
	e.Group = &g
	return nil
}

// Group is a named collection of entries. AutoGenerate names a folder whose
// listing replaces the node during synthesis.
type Group struct {
	Group        string  `json:"group"`
	Icon         string  `json:"icon,omitempty"`
	Tag          string  `json:"tag,omitempty"`
	AutoGenerate string  `json:"autogenerate,omitempty"`
	Pages        []Entry `json:"pages,omitempty"`
}

// Tab is a top-level navigation division holding groups or loose pages.
type Tab struct {
	Tab          string  `json:"tab"`
	Icon         string  `json:"icon,omitempty"`
	AutoGenerate string  `json:"autogenerate,omitempty"`
	Groups       []Group `json:"groups,omitempty"`
	Pages        []Entry `json:"pages,omitempty"`
}

// Navigation is the document-root navigation value. The platform accepts an
// object with tabs/groups/pages or a raw entry list; the parsed shape is
// remembered so output mirrors input.
type Navigation struct {
	Tabs   []Tab
	Groups []Group
	Pages  []Entry

	rawList bool
}

func (n *Navigation) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		n.rawList = true
		return json.Unmarshal(data, &n.Pages)
	}
	var obj struct {
		Tabs   []Tab   `json:"tabs,omitempty"`
		Groups []Group `json:"groups,omitempty"`
		Pages  []Entry `json:"pages,omitempty"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	n.Tabs, n.Groups, n.Pages = obj.Tabs, obj.Groups, obj.Pages
	return nil
}

func (n Navigation) MarshalJSON() ([]byte, error) {
	if n.rawList {
		return json.Marshal(n.Pages)
	}
	obj := struct {
		Tabs   []Tab   `json:"tabs,omitempty"`
		Groups []Group `json:"groups,omitempty"`
		Pages  []Entry `json:"pages,omitempty"`
	}{n.Tabs, n.Groups, n.Pages}
	return json.Marshal(obj)
}

// PageCount reports how many page references the navigation holds, nested
// groups included.
func (n Navigation) PageCount() int {
	total := countEntryPages(n.Pages)
	for _, t := range n.Tabs {
		for _, g := range t.Groups {
			total += countEntryPages(g.Pages)
		}
		total += countEntryPages(t.Pages)
	}
	for _, g := range n.Groups {
		total += countEntryPages(g.Pages)
	}
	return total
}

func countEntryPages(entries []Entry) int {
	total := 0
	for _, e := range entries {
		if e.Group != nil {
			total += countEntryPages(e.Group.Pages)
			continue
		}
		total++
	}
	return total
}

// Parse decodes and validates a navigation value.
func Parse(raw []byte) (Navigation, error) {
	var n Navigation
	if err := json.Unmarshal(raw, &n); err != nil {
		return Navigation{}, err
	}
	if err := n.Validate(); err != nil {
		return Navigation{}, err
	}
	return n, nil
}

// Validate rejects directive nodes that also carry authored children.
func (n Navigation) Validate() error {
	for _, t := range n.Tabs {
		if t.AutoGenerate != "" && (len(t.Groups) > 0 || len(t.Pages) > 0) {
			return fmt.Errorf("%w: tab %q", ErrDirectiveConflict, t.Tab)
		}
		for _, g := range t.Groups {
			if err := validateGroup(g); err != nil {
				return err
			}
		}
		if err := validateEntries(t.Pages); err != nil {
			return err
		}
	}
	for _, g := range n.Groups {
		if err := validateGroup(g); err != nil {
			return err
		}
	}
	return validateEntries(n.Pages)
}

func validateGroup(g Group) error {
	if g.AutoGenerate != "" && len(g.Pages) > 0 {
		return fmt.Errorf("%w: group %q", ErrDirectiveConflict, g.Group)
	}
	return validateEntries(g.Pages)
}

func validateEntries(entries []Entry) error {
	for _, e := range entries {
		if e.Group != nil {
			if err := validateGroup(*e.Group); err != nil {
				return err
			}
		}
	}
	return nil
}
