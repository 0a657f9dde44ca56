package frontmatter

import (
	"bytes"
	"errors"
)

// Style captures formatting details needed for stable rewriting.
//
// It intentionally focuses on newline/trailing newline shape and does not
// attempt to preserve original YAML formatting.
type Style struct {
	Newline            string
	HasTrailingNewline bool
}

// Document is a markup file split into its metadata block and body.
//
// Meta holds the raw YAML between the `---` delimiters (empty when Has is
// false). Body is everything after the closing delimiter, or the full input
// when no block was present.
type Document struct {
	Meta  []byte
	Body  []byte
	Has   bool
	Style Style
}

// ErrUnterminatedBlock indicates the document started with a metadata
// delimiter but did not contain a closing delimiter.
var ErrUnterminatedBlock = errors.New("metadata block opened but never closed")

// Parse splits YAML frontmatter (`---` delimited) from the markup body.
func Parse(content []byte) (Document, error) {
	style := detectStyle(content)

	nl := style.Newline
	open := []byte("---" + nl)
	if !bytes.HasPrefix(content, open) {
		return Document{Body: content, Style: style}, nil
	}

	metaStart := len(open)
	closeLine := []byte("---" + nl)
	if bytes.HasPrefix(content[metaStart:], closeLine) {
		bodyStart := metaStart + len(closeLine)
		return Document{Meta: []byte{}, Body: content[bodyStart:], Has: true, Style: style}, nil
	}

	closeSeq := []byte(nl + "---" + nl)
	idx := bytes.Index(content[metaStart:], closeSeq)
	if idx < 0 {
		// A closing delimiter on the last line may lack the trailing newline.
		if bytes.HasSuffix(content, []byte(nl+"---")) {
			metaEnd := len(content) - 3
			return Document{Meta: content[metaStart:metaEnd], Body: content[len(content):], Has: true, Style: style}, nil
		}
		return Document{}, ErrUnterminatedBlock
	}

	metaEnd := metaStart + idx + len(nl)
	bodyStart := metaStart + idx + len(closeSeq)
	return Document{Meta: content[metaStart:metaEnd], Body: content[bodyStart:], Has: true, Style: style}, nil
}

// Bytes reassembles the document. When Has is false the body is returned
// as-is; otherwise the metadata block is emitted with `---` delimiters in the
// captured newline style.
func (d Document) Bytes() []byte {
	if !d.Has {
		return d.Body
	}

	nl := d.Style.Newline
	if nl == "" {
		nl = "\n"
	}

	delim := []byte("---" + nl)
	out := make([]byte, 0, 2*len(delim)+len(d.Meta)+len(d.Body))
	out = append(out, delim...)
	out = append(out, d.Meta...)
	out = append(out, delim...)
	out = append(out, d.Body...)
	return out
}

func detectStyle(content []byte) Style {
	newline := "\n"
	for i := 0; i+1 < len(content); i++ {
		if content[i] == '\r' && content[i+1] == '\n' {
			newline = "\r\n"
			break
		}
		if content[i] == '\n' {
			newline = "\n"
			break
		}
	}

	hasTrailingNewline := len(content) > 0 && (content[len(content)-1] == '\n')

	return Style{
		Newline:            newline,
		HasTrailingNewline: hasTrailingNewline,
	}
}
