package content

import (
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"git.home.luguber.info/inful/docsync/internal/frontmatter"
	"git.home.luguber.info/inful/docsync/internal/logfields"
	"git.home.luguber.info/inful/docsync/internal/markdown"
)

// TargetExt is the markup extension every destination markup file carries.
const TargetExt = ".mdx"

// AnnotationKey is the metadata key carrying the history timestamp.
const AnnotationKey = "lastUpdated"

var convertibleExts = map[string]bool{".md": true, ".markdown": true}

// destinationName maps a source file name to its output name and reports
// whether the transform chain applies.
func destinationName(name string) (string, bool) {
	ext := strings.ToLower(filepath.Ext(name))
	if convertibleExts[ext] {
		return name[:len(name)-len(ext)] + TargetExt, true
	}
	if ext == TargetExt {
		return name, true
	}
	return name, false
}

func trimExt(name string) string {
	return strings.TrimSuffix(name, filepath.Ext(name))
}

// transformMarkup runs the per-file chain: metadata normalization, link
// rewriting, optional history annotation. A failed transform falls back to
// the original bytes and reports failed=true; the file still materializes.
func (m *Materializer) transformMarkup(data []byte, page, srcPath string) (out []byte, failed bool) {
	res, err := frontmatter.Transform(data)
	if err != nil {
		slog.Warn("transform failed, copying original content",
			logfields.Source(srcPath), logfields.Error(err))
		return data, true
	}
	if res.HasPosition && m.positions != nil {
		m.positions.Set(page, res.Position)
	}

	out = []byte(markdown.RewriteRelativeLinks(string(res.Content)))

	if m.annotate != nil {
		if ts, ok := m.annotate(srcPath); ok {
			annotated, _, err := frontmatter.Annotate(out, AnnotationKey, ts.UTC().Format(time.RFC3339))
			if err != nil {
				slog.Warn("annotation failed", logfields.Source(srcPath), logfields.Error(err))
			} else {
				out = annotated
			}
		}
	}
	return out, false
}
