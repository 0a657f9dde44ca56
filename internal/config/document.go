package config

import (
	"bytes"
	"encoding/json"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// NavigationKey is the top-level document key holding the navigation tree.
const NavigationKey = "navigation"

// Document is an insertion-ordered view of the platform configuration file.
//
// Keys other than navigation are opaque raw JSON: parsing then serializing an
// untouched document keeps the author's key order. A plain map would sort on
// output and churn the file.
type Document struct {
	fields *orderedmap.OrderedMap[string, json.RawMessage]
}

func NewDocument() *Document {
	return &Document{fields: orderedmap.New[string, json.RawMessage]()}
}

// ParseDocument decodes a JSON object while recording key order.
func ParseDocument(data []byte) (*Document, error) {
	om := orderedmap.New[string, json.RawMessage]()
	if err := json.Unmarshal(data, om); err != nil {
		return nil, err
	}
	return &Document{fields: om}, nil
}

func (d *Document) Get(key string) (json.RawMessage, bool) {
	return d.fields.Get(key)
}

// Set replaces key's value keeping its original position; a new key is
// appended at the end.
func (d *Document) Set(key string, value json.RawMessage) {
	d.fields.Set(key, value)
}

func (d *Document) Has(key string) bool {
	_, ok := d.fields.Get(key)
	return ok
}

func (d *Document) Len() int { return d.fields.Len() }

// Keys returns the document's keys in insertion order.
func (d *Document) Keys() []string {
	keys := make([]string, 0, d.fields.Len())
	for pair := d.fields.Oldest(); pair != nil; pair = pair.Next() {
		keys = append(keys, pair.Key)
	}
	return keys
}

// StringValue decodes key as a JSON string, returning "" when absent or of
// another type. Convenience for logging and reporting.
func (d *Document) StringValue(key string) string {
	raw, ok := d.fields.Get(key)
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

// MarshalIndent serializes the document deterministically: insertion order,
// two-space indent, trailing newline.
func (d *Document) MarshalIndent() ([]byte, error) {
	raw, err := json.Marshal(d.fields)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return nil, err
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}
