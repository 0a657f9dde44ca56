// Package config loads, edits and writes the platform configuration document
// (docs.json shaped): an ordered JSON object whose navigation key this tool
// owns and whose remaining keys pass through untouched.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
)

var (
	// ErrDocumentNotFound indicates the base document is missing.
	ErrDocumentNotFound = errors.New("base document not found")
	// ErrDocumentInvalid indicates the base document could not be parsed.
	ErrDocumentInvalid = errors.New("base document invalid")
)

// Only ${VAR} references are expanded. Bare $key forms stay verbatim so
// platform keys like $schema survive the round trip.
var bracedEnvRe = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Load reads, env-expands and parses the base configuration document.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrDocumentNotFound, path)
		}
		return nil, fmt.Errorf("%w: %s: %w", ErrDocumentNotFound, path, err)
	}

	doc, err := ParseDocument(expandBracedEnv(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrDocumentInvalid, path, err)
	}
	return doc, nil
}

func expandBracedEnv(data []byte) []byte {
	return bracedEnvRe.ReplaceAllFunc(data, func(m []byte) []byte {
		name := string(m[2 : len(m)-1])
		if v, ok := os.LookupEnv(name); ok {
			return []byte(v)
		}
		return m
	})
}

// WriteIfChanged serializes doc to path, skipping the write entirely when the
// bytes already on disk are identical. Returns whether a write happened.
func WriteIfChanged(path string, doc *Document) (bool, error) {
	data, err := doc.MarshalIndent()
	if err != nil {
		return false, fmt.Errorf("serialize document: %w", err)
	}

	if existing, err := os.ReadFile(path); err == nil && bytes.Equal(existing, data) {
		return false, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return false, fmt.Errorf("create output directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return false, fmt.Errorf("write document: %w", err)
	}
	return true, nil
}
