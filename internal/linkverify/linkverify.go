// Package linkverify resolves internal references in a materialized output
// tree. Pages are scanned twice: markdown constructs through the goldmark
// AST, and embedded HTML or component tags (href/src attributes) through an
// HTML parse of the body. External URLs are never contacted.
package linkverify

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"golang.org/x/net/html"

	"git.home.luguber.info/inful/docsync/internal/frontmatter"
	"git.home.luguber.info/inful/docsync/internal/markdown"
)

// Problem is one unresolvable internal reference.
type Problem struct {
	Page   string // output-relative page holding the reference
	Target string // reference as written
	Reason string
}

// Checker resolves internal links against the output tree.
type Checker struct {
	root string
}

func NewChecker(root string) *Checker { return &Checker{root: root} }

// Check walks every page under the root and resolves its internal
// references. Problems are findings, not errors; the error return covers
// tree traversal failures and cancellation only.
func (c *Checker) Check(ctx context.Context) ([]Problem, error) {
	var problems []Problem

	err := filepath.WalkDir(c.root, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(d.Name()), ".mdx") {
			return nil
		}

		rel, err := filepath.Rel(c.root, p)
		if err != nil {
			return err
		}
		found, err := c.checkPage(p, filepath.ToSlash(rel))
		if err != nil {
			return err
		}
		problems = append(problems, found...)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("verify links: %w", err)
	}
	return problems, nil
}

func (c *Checker) checkPage(absPath, pageRel string) ([]Problem, error) {
	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, err
	}

	body := data
	if doc, err := frontmatter.Parse(data); err == nil {
		body = doc.Body
	}

	targets := make([]string, 0, 8)
	for _, l := range markdown.ExtractLinks(body) {
		targets = append(targets, l.Destination)
	}
	targets = append(targets, htmlRefs(stripCodeFences(body))...)

	var problems []Problem
	seen := make(map[string]struct{}, len(targets))
	for _, target := range targets {
		if _, dup := seen[target]; dup {
			continue
		}
		seen[target] = struct{}{}
		if reason, broken := c.resolve(pageRel, target); broken {
			problems = append(problems, Problem{Page: pageRel, Target: target, Reason: reason})
		}
	}
	return problems, nil
}

// htmlRefs collects href and src attribute values from tags embedded in the
// page body. Matching any element, not just anchors, also covers component
// tags like <Card href="/page">.
func htmlRefs(body []byte) []string {
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return nil
	}

	var refs []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			for _, attr := range n.Attr {
				if (attr.Key == "href" || attr.Key == "src") && attr.Val != "" {
					refs = append(refs, attr.Val)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return refs
}

// stripCodeFences blanks fenced block contents so sample markup inside code
// examples is not scanned for references.
func stripCodeFences(body []byte) []byte {
	lines := bytes.Split(body, []byte("\n"))
	inFence := false
	for i, line := range lines {
		trimmed := bytes.TrimSpace(line)
		if bytes.HasPrefix(trimmed, []byte("```")) || bytes.HasPrefix(trimmed, []byte("~~~")) {
			inFence = !inFence
			lines[i] = nil
			continue
		}
		if inFence {
			lines[i] = nil
		}
	}
	return bytes.Join(lines, []byte("\n"))
}

// resolve reports whether target fails to resolve inside the tree. External
// schemes, other hosts, and anchor-only references never fail.
func (c *Checker) resolve(pageRel, target string) (string, bool) {
	if target == "" {
		return "", false
	}
	u, err := url.Parse(target)
	if err != nil {
		return "unparseable reference", true
	}
	if u.Scheme != "" || u.Host != "" {
		return "", false
	}
	p := u.Path
	if p == "" {
		return "", false
	}

	var rel string
	if strings.HasPrefix(p, "/") {
		rel = strings.TrimPrefix(path.Clean(p), "/")
	} else {
		rel = path.Join(path.Dir(pageRel), p)
	}
	if rel == "" {
		rel = "."
	}
	if rel == ".." || strings.HasPrefix(rel, "../") {
		return "outside output tree", true
	}

	if path.Ext(rel) != "" {
		if c.exists(rel) {
			return "", false
		}
		return "file not found", true
	}
	if c.exists(rel+".mdx") || c.exists(path.Join(rel, "index.mdx")) {
		return "", false
	}
	return "page not found", true
}

func (c *Checker) exists(rel string) bool {
	_, err := os.Stat(filepath.Join(c.root, filepath.FromSlash(rel)))
	return err == nil
}
