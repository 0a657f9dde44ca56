// Package poscache persists page ordering hints between runs.
//
// Files skipped by the incremental copy are never re-read, so their ordering
// hints must survive outside the content itself. The cache is deliberately
// disposable: losing it only degrades sort stability for unchanged files
// until they are next transformed.
package poscache

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"git.home.luguber.info/inful/docsync/internal/logfields"
)

// FileName is the cache's location relative to the output root.
const FileName = ".positions.json"

// Cache maps a page path (destination-relative, extensionless, forward
// slashes) to its integer sort key.
type Cache struct {
	path    string
	entries map[string]int
}

// Load reads the cache at path. A missing or corrupt file yields an empty
// cache and a warning, never an error.
func Load(path string) *Cache {
	c := &Cache{path: path, entries: make(map[string]int)}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("position cache unreadable, starting empty", logfields.Path(path), logfields.Error(err))
		}
		return c
	}

	if err := json.Unmarshal(data, &c.entries); err != nil {
		slog.Warn("position cache corrupt, starting empty", logfields.Path(path), logfields.Error(err))
		c.entries = make(map[string]int)
	}
	return c
}

func (c *Cache) Get(page string) (int, bool) {
	pos, ok := c.entries[page]
	return pos, ok
}

func (c *Cache) Set(page string, pos int) {
	c.entries[page] = pos
}

func (c *Cache) Len() int { return len(c.entries) }

// Save writes the cache back to its file, skipping the write entirely when
// the serialized bytes match what is already on disk. The write itself is
// atomic (temp file + rename). Returns whether a write happened.
func (c *Cache) Save() (bool, error) {
	data, err := json.MarshalIndent(c.entries, "", "  ")
	if err != nil {
		return false, fmt.Errorf("marshal position cache: %w", err)
	}
	data = append(data, '\n')

	if existing, err := os.ReadFile(c.path); err == nil && bytes.Equal(existing, data) {
		return false, nil
	}

	tempPath := c.path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0o644); err != nil {
		return false, fmt.Errorf("write position cache: %w", err)
	}
	if err := os.Rename(tempPath, c.path); err != nil {
		return false, fmt.Errorf("replace position cache: %w", err)
	}
	return true, nil
}
