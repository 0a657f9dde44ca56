package markdown

import (
	"fmt"
	"regexp"
	"strings"
)

var inlineLinkRe = regexp.MustCompile(`\[(?P<text>[^\]]+)\]\((?P<link>[^)]+)\)`)

// markupExts are the suffixes stripped from local link targets, longest first
// so .md never shadows the longer variants.
var markupExts = []string{".markdown", ".mdx", ".md"}

// RewriteRelativeLinks rewrites inline markdown links that point at local
// markup files into extensionless, explicitly-relative page references.
// Rules:
//   - Targets with a scheme prefix (http://, https://, mailto:) or a query
//     marker (?) are left untouched.
//   - A markup extension suffix is stripped; a trailing #anchor survives.
//   - Targets not already qualified with ./, ../ or / gain a ./ prefix.
//
// The rewrite is idempotent: running it over already-rewritten content is
// the identity.
func RewriteRelativeLinks(content string) string {
	return inlineLinkRe.ReplaceAllStringFunc(content, func(m string) string {
		matches := inlineLinkRe.FindStringSubmatch(m)
		if len(matches) != 3 {
			return m
		}
		text := matches[1]
		link := matches[2]

		low := strings.ToLower(link)
		if strings.HasPrefix(low, "http://") || strings.HasPrefix(low, "https://") ||
			strings.HasPrefix(low, "mailto:") || strings.Contains(link, "?") {
			return m
		}

		anchor := ""
		if idx := strings.IndexByte(link, '#'); idx >= 0 {
			anchor = link[idx:]
			link = link[:idx]
		}

		trimmed := trimMarkupExt(link)
		if trimmed == "" && anchor == "" {
			return m
		}
		if !strings.HasPrefix(trimmed, "./") && !strings.HasPrefix(trimmed, "../") && !strings.HasPrefix(trimmed, "/") {
			trimmed = "./" + trimmed
		}
		return fmt.Sprintf("[%s](%s%s)", text, trimmed, anchor)
	})
}

func trimMarkupExt(link string) string {
	low := strings.ToLower(link)
	for _, ext := range markupExts {
		if strings.HasSuffix(low, ext) {
			return link[:len(link)-len(ext)]
		}
	}
	return link
}
