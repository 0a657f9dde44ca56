package frontmatter

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParse_NoMetadata_ReturnsBodyOnly(t *testing.T) {
	input := []byte("# Title\n\nHello\n")

	doc, err := Parse(input)
	require.NoError(t, err)
	require.False(t, doc.Has)
	require.Empty(t, doc.Meta)
	require.Equal(t, input, doc.Body)
}

func TestParse_YAMLMetadata_SplitsMetaAndBody(t *testing.T) {
	input := []byte("---\nkey: value\n---\n# Title\n")

	doc, err := Parse(input)
	require.NoError(t, err)
	require.True(t, doc.Has)
	require.Equal(t, []byte("key: value\n"), doc.Meta)
	require.Equal(t, []byte("# Title\n"), doc.Body)
}

func TestParse_MissingClosingDelimiter_ReturnsError(t *testing.T) {
	input := []byte("---\nkey: value\n# Title\n")

	_, err := Parse(input)
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrUnterminatedBlock))
}

func TestParse_ClosingDelimiterAtEOF_SplitsWithEmptyBody(t *testing.T) {
	input := []byte("---\nkey: value\n---")

	doc, err := Parse(input)
	require.NoError(t, err)
	require.True(t, doc.Has)
	require.Equal(t, []byte("key: value\n"), doc.Meta)
	require.Empty(t, doc.Body)
}

func TestParse_CRLF_SplitsMetaAndBody(t *testing.T) {
	input := []byte("---\r\nkey: value\r\n---\r\n# Title\r\n")

	doc, err := Parse(input)
	require.NoError(t, err)
	require.True(t, doc.Has)
	require.Equal(t, []byte("key: value\r\n"), doc.Meta)
	require.Equal(t, []byte("# Title\r\n"), doc.Body)
	require.Equal(t, "\r\n", doc.Style.Newline)
}

func TestParse_EmptyMetadataBlock_SplitsAsHadWithEmptyMeta(t *testing.T) {
	input := []byte("---\n---\n# Title\n")

	doc, err := Parse(input)
	require.NoError(t, err)
	require.True(t, doc.Has)
	require.Empty(t, doc.Meta)
	require.Equal(t, []byte("# Title\n"), doc.Body)
}

func TestBytes_RoundTrip_PreservesDocument(t *testing.T) {
	input := []byte("---\nkey: value\nother: 2\n---\nBody text\n")

	doc, err := Parse(input)
	require.NoError(t, err)
	require.Equal(t, input, doc.Bytes())
}

func TestBytes_NoMetadata_ReturnsBodyAsIs(t *testing.T) {
	doc := Document{Body: []byte("plain body")}
	require.Equal(t, []byte("plain body"), doc.Bytes())
}
