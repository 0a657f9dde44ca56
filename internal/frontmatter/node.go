package frontmatter

import (
	"bytes"
	"errors"

	"gopkg.in/yaml.v3"
)

// ErrMetadataShape indicates the metadata block parsed but is not a
// key/value mapping at the top level.
var ErrMetadataShape = errors.New("metadata block is not a key/value mapping")

// mapping is an editable view over a YAML mapping node. Working on the node
// tree instead of a map keeps the author's key order, comments and scalar
// styles intact across a rewrite.
type mapping struct {
	node *yaml.Node
}

func newMapping() mapping {
	return mapping{node: &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}}
}

// parseMapping decodes raw YAML into an editable mapping. Empty input yields
// an empty mapping.
func parseMapping(meta []byte) (mapping, error) {
	if len(bytes.TrimSpace(meta)) == 0 {
		return newMapping(), nil
	}

	var root yaml.Node
	if err := yaml.Unmarshal(meta, &root); err != nil {
		return mapping{}, err
	}
	if len(root.Content) == 0 {
		return newMapping(), nil
	}
	top := root.Content[0]
	if top.Kind != yaml.MappingNode {
		return mapping{}, ErrMetadataShape
	}
	return mapping{node: top}, nil
}

func (m mapping) len() int { return len(m.node.Content) / 2 }

// index returns the position of key's key-node in Content, or -1.
func (m mapping) index(key string) int {
	for i := 0; i+1 < len(m.node.Content); i += 2 {
		if m.node.Content[i].Value == key {
			return i
		}
	}
	return -1
}

func (m mapping) value(key string) *yaml.Node {
	if i := m.index(key); i >= 0 {
		return m.node.Content[i+1]
	}
	return nil
}

// rename changes a key in place, keeping its value and position.
func (m mapping) rename(from, to string) bool {
	i := m.index(from)
	if i < 0 {
		return false
	}
	m.node.Content[i] = scalarNode(to)
	return true
}

func (m mapping) remove(key string) bool {
	i := m.index(key)
	if i < 0 {
		return false
	}
	m.node.Content = append(m.node.Content[:i], m.node.Content[i+2:]...)
	return true
}

func (m mapping) prepend(key, value string) {
	m.node.Content = append([]*yaml.Node{scalarNode(key), scalarNode(value)}, m.node.Content...)
}

func (m mapping) append(key, value string) {
	m.node.Content = append(m.node.Content, scalarNode(key), scalarNode(value))
}

// serialize encodes the mapping back into raw YAML bytes in the given newline
// style, without delimiters.
func (m mapping) serialize(style Style) ([]byte, error) {
	if m.len() == 0 {
		return []byte{}, nil
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(m.node); err != nil {
		_ = enc.Close()
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}

	out := buf.Bytes()
	if nl := style.Newline; nl != "" && nl != "\n" {
		out = bytes.ReplaceAll(out, []byte("\n"), []byte(nl))
	}
	return out, nil
}

func scalarNode(v string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: v}
}
