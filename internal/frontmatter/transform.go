package frontmatter

import (
	"bytes"
	"strconv"
)

// Metadata keys the transform acts on. Everything else passes through.
const (
	keyTitle        = "title"
	keyLegacyLabel  = "sidebar_label"
	keySidebarTitle = "sidebarTitle"
	keyPosition     = "sidebar_position"
)

// Result is the outcome of a Transform call.
//
// Content is byte-identical to the input when Changed is false, so callers
// can detect no-ops. Position carries the ordering hint found in the
// metadata, valid only when HasPosition is true.
type Result struct {
	Content     []byte
	Changed     bool
	Position    int
	HasPosition bool
}

// Transform applies the metadata normalization rules to a markup document:
//
//   - When the metadata lacks a title, the first top-level heading line is
//     promoted into one and removed from the body (a metadata block is
//     created if none existed).
//   - The legacy sidebar_label key is renamed to sidebarTitle, unless
//     sidebarTitle is already present, in which case the legacy key is
//     dropped.
//
// All other keys keep their order, values and formatting. A malformed
// metadata block is an error; callers decide how to degrade.
func Transform(content []byte) (Result, error) {
	doc, err := Parse(content)
	if err != nil {
		return Result{}, err
	}

	meta, err := parseMapping(doc.Meta)
	if err != nil {
		return Result{}, err
	}

	res := Result{Content: content}
	if n := meta.value(keyPosition); n != nil {
		if pos, err := strconv.Atoi(n.Value); err == nil {
			res.Position = pos
			res.HasPosition = true
		}
	}

	changed := false
	body := doc.Body

	if meta.value(keyTitle) == nil {
		if title, rest, found := extractHeading(body, doc.Style.Newline); found {
			meta.prepend(keyTitle, title)
			body = rest
			changed = true
		}
	}

	if meta.index(keyLegacyLabel) >= 0 {
		if meta.value(keySidebarTitle) == nil {
			meta.rename(keyLegacyLabel, keySidebarTitle)
		} else {
			meta.remove(keyLegacyLabel)
		}
		changed = true
	}

	if !changed {
		return res, nil
	}

	raw, err := meta.serialize(doc.Style)
	if err != nil {
		return Result{}, err
	}
	out := Document{Meta: raw, Body: body, Has: true, Style: doc.Style}
	res.Content = out.Bytes()
	res.Changed = true
	return res, nil
}

// Annotate inserts key with the given scalar value at the end of the
// document's metadata. Documents that already carry the key are returned
// untouched; documents without a metadata block get one.
func Annotate(content []byte, key, value string) ([]byte, bool, error) {
	doc, err := Parse(content)
	if err != nil {
		return nil, false, err
	}

	meta, err := parseMapping(doc.Meta)
	if err != nil {
		return nil, false, err
	}
	if meta.value(key) != nil {
		return content, false, nil
	}

	meta.append(key, value)
	raw, err := meta.serialize(doc.Style)
	if err != nil {
		return nil, false, err
	}
	out := Document{Meta: raw, Body: doc.Body, Has: true, Style: doc.Style}
	return out.Bytes(), true, nil
}

// extractHeading finds the first top-level (`# `) heading line, returning its
// text and the body with that line plus immediately following blank lines
// removed.
func extractHeading(body []byte, nl string) (string, []byte, bool) {
	if nl == "" {
		nl = "\n"
	}
	sep := []byte(nl)
	lines := bytes.Split(body, sep)
	for i, line := range lines {
		if len(line) < 2 || line[0] != '#' || (line[1] != ' ' && line[1] != '\t') {
			continue
		}
		title := string(bytes.TrimSpace(line[1:]))
		j := i + 1
		for j < len(lines) && len(bytes.TrimSpace(lines[j])) == 0 {
			j++
		}
		rest := make([][]byte, 0, len(lines)-(j-i))
		rest = append(rest, lines[:i]...)
		rest = append(rest, lines[j:]...)
		return title, bytes.Join(rest, sep), true
	}
	return "", body, false
}
