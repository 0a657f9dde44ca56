package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// Init writes a starter base document with one authored group and one
// auto-generated folder as a working example.
func Init(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("base document already exists: %s (use --force to overwrite)", path)
	}

	doc := NewDocument()
	doc.Set("$schema", json.RawMessage(`"https://mintlify.com/docs.json"`))
	doc.Set("theme", json.RawMessage(`"mint"`))
	doc.Set("name", json.RawMessage(`"My Documentation"`))
	doc.Set("colors", json.RawMessage(`{"primary": "#16A34A"}`))
	doc.Set(NavigationKey, json.RawMessage(
		`{"groups": [{"group": "Getting Started", "pages": ["index"]}, {"group": "Guides", "autogenerate": "guides"}]}`))

	data, err := doc.MarshalIndent()
	if err != nil {
		return fmt.Errorf("serialize starter document: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write starter document: %w", err)
	}
	return nil
}
