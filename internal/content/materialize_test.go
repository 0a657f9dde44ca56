package content

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/docsync/internal/poscache"
)

func newTestCache(t *testing.T) *poscache.Cache {
	t.Helper()
	return poscache.Load(filepath.Join(t.TempDir(), "positions.json"))
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestRun_ConvertsMarkupExtensionsOnly(t *testing.T) {
	src, dst := t.TempDir(), t.TempDir()
	writeFile(t, filepath.Join(src, "a.md"), "alpha\n")
	writeFile(t, filepath.Join(src, "b.markdown"), "bravo\n")
	writeFile(t, filepath.Join(src, "c.mdx"), "charlie\n")
	writeFile(t, filepath.Join(src, "logo.png"), "binary")
	writeFile(t, filepath.Join(src, "_snippet.mdx"), "snip\n")

	m := NewMaterializer(newTestCache(t))
	stats, err := m.Run(context.Background(), src, dst)
	require.NoError(t, err)
	require.Equal(t, 5, stats.Seen)
	require.Equal(t, 4, stats.Transformed)
	require.Equal(t, 1, stats.Copied)

	for _, name := range []string{"a.mdx", "b.mdx", "c.mdx", "logo.png", "_snippet.mdx"} {
		_, err := os.Stat(filepath.Join(dst, name))
		require.NoError(t, err, name)
	}
	_, err = os.Stat(filepath.Join(dst, "a.md"))
	require.True(t, os.IsNotExist(err))
}

func TestRun_DestinationMtimeMirrorsSource(t *testing.T) {
	src, dst := t.TempDir(), t.TempDir()
	srcFile := filepath.Join(src, "page.md")
	writeFile(t, srcFile, "# T\nbody\n")
	stamp := time.Date(2024, 3, 5, 10, 30, 0, 0, time.UTC)
	require.NoError(t, os.Chtimes(srcFile, stamp, stamp))

	_, err := NewMaterializer(newTestCache(t)).Run(context.Background(), src, dst)
	require.NoError(t, err)

	srcInfo, err := os.Stat(srcFile)
	require.NoError(t, err)
	dstInfo, err := os.Stat(filepath.Join(dst, "page.mdx"))
	require.NoError(t, err)
	require.True(t, dstInfo.ModTime().Equal(srcInfo.ModTime()))
}

func TestRun_SecondRun_SkipsUnchangedFiles(t *testing.T) {
	src, dst := t.TempDir(), t.TempDir()
	writeFile(t, filepath.Join(src, "one.md"), "# One\n")
	writeFile(t, filepath.Join(src, "sub", "two.md"), "# Two\n")
	writeFile(t, filepath.Join(src, "img.png"), "png")

	m := NewMaterializer(newTestCache(t))
	first, err := m.Run(context.Background(), src, dst)
	require.NoError(t, err)
	require.Equal(t, 0, first.Skipped)

	second, err := m.Run(context.Background(), src, dst)
	require.NoError(t, err)
	require.Equal(t, 3, second.Skipped)
	require.Equal(t, 0, second.Transformed)
	require.Equal(t, 0, second.Copied)
}

func TestRun_ModifiedSource_Rematerialized(t *testing.T) {
	src, dst := t.TempDir(), t.TempDir()
	srcFile := filepath.Join(src, "page.md")
	writeFile(t, srcFile, "# Old\n")

	m := NewMaterializer(newTestCache(t))
	_, err := m.Run(context.Background(), src, dst)
	require.NoError(t, err)

	// Give the rewrite a distinct mtime.
	writeFile(t, srcFile, "# New\n")
	later := time.Now().Add(2 * time.Second)
	require.NoError(t, os.Chtimes(srcFile, later, later))

	stats, err := m.Run(context.Background(), src, dst)
	require.NoError(t, err)
	require.Equal(t, 1, stats.Transformed)

	data, err := os.ReadFile(filepath.Join(dst, "page.mdx"))
	require.NoError(t, err)
	require.Contains(t, string(data), "title: New")
}

func TestRun_SymlinkedDirectory_MaterializesAsRegularFiles(t *testing.T) {
	external := t.TempDir()
	writeFile(t, filepath.Join(external, "guide.md"), "# Linked\n")

	src, dst := t.TempDir(), t.TempDir()
	require.NoError(t, os.Symlink(external, filepath.Join(src, "mounted")))

	_, err := NewMaterializer(newTestCache(t)).Run(context.Background(), src, dst)
	require.NoError(t, err)

	out := filepath.Join(dst, "mounted", "guide.mdx")
	info, err := os.Lstat(out)
	require.NoError(t, err)
	require.True(t, info.Mode().IsRegular())

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	require.Contains(t, string(data), "title: Linked")
}

func TestRun_SymlinkedFile_ContentMatchesTarget(t *testing.T) {
	external := t.TempDir()
	target := filepath.Join(external, "shared.png")
	writeFile(t, target, "pixels")

	src, dst := t.TempDir(), t.TempDir()
	require.NoError(t, os.Symlink(target, filepath.Join(src, "shared.png")))

	_, err := NewMaterializer(newTestCache(t)).Run(context.Background(), src, dst)
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dst, "shared.png"))
	require.NoError(t, err)
	require.Equal(t, "pixels", string(data))
}

func TestRun_SymlinkCycle_TerminatesWithWarning(t *testing.T) {
	src, dst := t.TempDir(), t.TempDir()
	writeFile(t, filepath.Join(src, "ok.md"), "# Fine\n")
	require.NoError(t, os.Symlink(src, filepath.Join(src, "loop")))

	stats, err := NewMaterializer(newTestCache(t)).Run(context.Background(), src, dst)
	require.NoError(t, err)
	require.Equal(t, 1, stats.Transformed)
}

func TestRun_BrokenSymlink_SkippedWithWarning(t *testing.T) {
	src, dst := t.TempDir(), t.TempDir()
	writeFile(t, filepath.Join(src, "ok.md"), "# Fine\n")
	require.NoError(t, os.Symlink(filepath.Join(src, "gone"), filepath.Join(src, "dangling")))

	stats, err := NewMaterializer(newTestCache(t)).Run(context.Background(), src, dst)
	require.NoError(t, err)
	require.Equal(t, 1, stats.Failed)
	require.Equal(t, 1, stats.Transformed)
}

func TestRun_MalformedMetadata_OriginalContentMaterialized(t *testing.T) {
	src, dst := t.TempDir(), t.TempDir()
	original := "---\ntitle: broken\nBody without closing delimiter\n"
	writeFile(t, filepath.Join(src, "bad.md"), original)

	stats, err := NewMaterializer(newTestCache(t)).Run(context.Background(), src, dst)
	require.NoError(t, err)
	require.Equal(t, 1, stats.Failed)

	data, err := os.ReadFile(filepath.Join(dst, "bad.mdx"))
	require.NoError(t, err)
	require.Equal(t, original, string(data))
}

func TestRun_PositionHints_RecordedUnderPagePath(t *testing.T) {
	src, dst := t.TempDir(), t.TempDir()
	writeFile(t, filepath.Join(src, "sub", "page.md"), "---\ntitle: T\nsidebar_position: 4\n---\nBody\n")

	cache := newTestCache(t)
	_, err := NewMaterializer(cache).Run(context.Background(), src, dst)
	require.NoError(t, err)

	pos, ok := cache.Get("sub/page")
	require.True(t, ok)
	require.Equal(t, 4, pos)
}

func TestRun_LinkRewriteApplied(t *testing.T) {
	src, dst := t.TempDir(), t.TempDir()
	writeFile(t, filepath.Join(src, "page.md"), "---\ntitle: T\n---\nSee [reference](reference.md#intro).\n")

	_, err := NewMaterializer(newTestCache(t)).Run(context.Background(), src, dst)
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dst, "page.mdx"))
	require.NoError(t, err)
	require.Contains(t, string(data), "[reference](./reference#intro)")
}

func TestRun_Annotator_InsertsLastUpdated(t *testing.T) {
	src, dst := t.TempDir(), t.TempDir()
	writeFile(t, filepath.Join(src, "page.md"), "---\ntitle: T\n---\nBody\n")

	when := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	m := NewMaterializer(newTestCache(t)).WithAnnotator(func(string) (time.Time, bool) {
		return when, true
	})
	_, err := m.Run(context.Background(), src, dst)
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dst, "page.mdx"))
	require.NoError(t, err)
	require.Contains(t, string(data), "lastUpdated: \"2026-01-02T03:04:05Z\"")
}

func TestRun_MissingSourceRoot_Fatal(t *testing.T) {
	_, err := NewMaterializer(newTestCache(t)).Run(context.Background(), filepath.Join(t.TempDir(), "absent"), t.TempDir())
	require.True(t, errors.Is(err, ErrSourceUnreadable))
}

func TestDestinationName_Mapping(t *testing.T) {
	cases := []struct {
		in     string
		out    string
		markup bool
	}{
		{"a.md", "a.mdx", true},
		{"b.markdown", "b.mdx", true},
		{"c.mdx", "c.mdx", true},
		{"d.MD", "d.mdx", true},
		{"logo.png", "logo.png", false},
		{"README", "README", false},
	}
	for _, tc := range cases {
		name, markup := destinationName(tc.in)
		require.Equal(t, tc.out, name, tc.in)
		require.Equal(t, tc.markup, markup, tc.in)
	}
}
