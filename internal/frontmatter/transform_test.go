package frontmatter

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTransform_HeadingPromotion_ExtractsTitleAndStripsHeading(t *testing.T) {
	res, err := Transform([]byte("# Hello\nBody"))
	require.NoError(t, err)
	require.True(t, res.Changed)
	require.Equal(t, "---\ntitle: Hello\n---\nBody", string(res.Content))
}

func TestTransform_HeadingWithBlankLines_RemovesThemToo(t *testing.T) {
	res, err := Transform([]byte("---\nicon: book\n---\n# Getting Started\n\n\nFirst paragraph.\n"))
	require.NoError(t, err)
	require.True(t, res.Changed)
	require.Equal(t, "---\ntitle: Getting Started\nicon: book\n---\nFirst paragraph.\n", string(res.Content))
}

func TestTransform_ExistingTitle_LeavesHeadingAlone(t *testing.T) {
	input := []byte("---\ntitle: Kept\n---\n# Not promoted\nBody\n")
	res, err := Transform(input)
	require.NoError(t, err)
	require.False(t, res.Changed)
	require.Equal(t, input, res.Content)
}

func TestTransform_NoHeadingNoLegacyKeys_IsIdentity(t *testing.T) {
	input := []byte("---\ntitle: T\ndescription: D\n---\nJust text.\n")
	res, err := Transform(input)
	require.NoError(t, err)
	require.False(t, res.Changed)
	require.Equal(t, input, res.Content)
}

func TestTransform_SecondLevelHeading_IsNotPromoted(t *testing.T) {
	input := []byte("## Section\nBody\n")
	res, err := Transform(input)
	require.NoError(t, err)
	require.False(t, res.Changed)
	require.Equal(t, input, res.Content)
}

func TestTransform_LegacyLabel_RenamedInPlace(t *testing.T) {
	res, err := Transform([]byte("---\ntitle: T\nsidebar_label: Short\nicon: x\n---\nBody\n"))
	require.NoError(t, err)
	require.True(t, res.Changed)
	require.Equal(t, "---\ntitle: T\nsidebarTitle: Short\nicon: x\n---\nBody\n", string(res.Content))
}

func TestTransform_LegacyLabelWithExistingSidebarTitle_DropsLegacyKey(t *testing.T) {
	res, err := Transform([]byte("---\ntitle: T\nsidebarTitle: Keep\nsidebar_label: Drop\n---\nBody\n"))
	require.NoError(t, err)
	require.True(t, res.Changed)
	require.Equal(t, "---\ntitle: T\nsidebarTitle: Keep\n---\nBody\n", string(res.Content))
}

func TestTransform_PositionHint_SurfacedWithoutChange(t *testing.T) {
	input := []byte("---\ntitle: T\nsidebar_position: 3\n---\nBody\n")
	res, err := Transform(input)
	require.NoError(t, err)
	require.False(t, res.Changed)
	require.True(t, res.HasPosition)
	require.Equal(t, 3, res.Position)
}

func TestTransform_MalformedPositionHint_Ignored(t *testing.T) {
	res, err := Transform([]byte("---\ntitle: T\nsidebar_position: soon\n---\nBody\n"))
	require.NoError(t, err)
	require.False(t, res.HasPosition)
}

func TestTransform_UnterminatedBlock_ReturnsError(t *testing.T) {
	_, err := Transform([]byte("---\ntitle: broken\nBody\n"))
	require.ErrorIs(t, err, ErrUnterminatedBlock)
}

func TestTransform_NonMappingMetadata_ReturnsError(t *testing.T) {
	_, err := Transform([]byte("---\n- just\n- a list\n---\nBody\n"))
	require.ErrorIs(t, err, ErrMetadataShape)
}

func TestTransform_CRLFDocument_KeepsNewlineStyle(t *testing.T) {
	res, err := Transform([]byte("# Hi\r\nBody\r\n"))
	require.NoError(t, err)
	require.True(t, res.Changed)
	require.Equal(t, "---\r\ntitle: Hi\r\n---\r\nBody\r\n", string(res.Content))
}

func TestTransform_PreservesUnknownKeysAndOrder(t *testing.T) {
	res, err := Transform([]byte("---\nzeta: 1\nalpha: two\nsidebar_label: L\n---\nBody\n"))
	require.NoError(t, err)
	require.Equal(t, "---\nzeta: 1\nalpha: two\nsidebarTitle: L\n---\nBody\n", string(res.Content))
}

func TestAnnotate_MissingKey_AppendsToMetadata(t *testing.T) {
	out, changed, err := Annotate([]byte("---\ntitle: T\n---\nBody\n"), "lastUpdated", "2026-01-02T03:04:05Z")
	require.NoError(t, err)
	require.True(t, changed)
	require.Equal(t, "---\ntitle: T\nlastUpdated: \"2026-01-02T03:04:05Z\"\n---\nBody\n", string(out))
}

func TestAnnotate_ExistingKey_IsIdentity(t *testing.T) {
	input := []byte("---\ntitle: T\nlastUpdated: \"2020-01-01T00:00:00Z\"\n---\nBody\n")
	out, changed, err := Annotate(input, "lastUpdated", "2026-01-02T03:04:05Z")
	require.NoError(t, err)
	require.False(t, changed)
	require.Equal(t, input, out)
}

func TestAnnotate_NoMetadataBlock_CreatesOne(t *testing.T) {
	out, changed, err := Annotate([]byte("Body only\n"), "lastUpdated", "2026-01-02T03:04:05Z")
	require.NoError(t, err)
	require.True(t, changed)
	require.Equal(t, "---\nlastUpdated: \"2026-01-02T03:04:05Z\"\n---\nBody only\n", string(out))
}
