package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseDocument_RoundTrip_PreservesKeyOrder(t *testing.T) {
	input := []byte(`{"zeta":1,"name":"Docs","$schema":"https://example.com/schema.json","alpha":{"b":2,"a":1}}`)

	doc, err := ParseDocument(input)
	require.NoError(t, err)
	require.Equal(t, []string{"zeta", "name", "$schema", "alpha"}, doc.Keys())

	out, err := doc.MarshalIndent()
	require.NoError(t, err)
	expected := `{
  "zeta": 1,
  "name": "Docs",
  "$schema": "https://example.com/schema.json",
  "alpha": {
    "b": 2,
    "a": 1
  }
}
`
	require.Equal(t, expected, string(out))
}

func TestDocumentSet_ExistingKey_KeepsPosition(t *testing.T) {
	doc, err := ParseDocument([]byte(`{"first":1,"navigation":[],"last":3}`))
	require.NoError(t, err)

	doc.Set(NavigationKey, []byte(`{"pages":["intro"]}`))
	require.Equal(t, []string{"first", "navigation", "last"}, doc.Keys())

	raw, ok := doc.Get(NavigationKey)
	require.True(t, ok)
	require.JSONEq(t, `{"pages":["intro"]}`, string(raw))
}

func TestDocumentSet_NewKey_Appends(t *testing.T) {
	doc := NewDocument()
	doc.Set("name", []byte(`"Docs"`))
	doc.Set(NavigationKey, []byte(`[]`))
	require.Equal(t, []string{"name", "navigation"}, doc.Keys())
}

func TestLoad_MissingFile_ReturnsNotFound(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "docs.base.json"))
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrDocumentNotFound))
}

func TestLoad_Unparseable_ReturnsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "docs.base.json")
	require.NoError(t, os.WriteFile(path, []byte("{broken"), 0o644))

	_, err := Load(path)
	require.True(t, errors.Is(err, ErrDocumentInvalid))
}

func TestLoad_BracedEnvExpanded_BareDollarSurvives(t *testing.T) {
	t.Setenv("DOCSYNC_SITE_NAME", "Expanded")
	path := filepath.Join(t.TempDir(), "docs.base.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"$schema":"https://example.com/s.json","name":"${DOCSYNC_SITE_NAME}","other":"${DOCSYNC_UNSET_VAR}"}`), 0o644))

	doc, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "Expanded", doc.StringValue("name"))
	require.Equal(t, "https://example.com/s.json", doc.StringValue("$schema"))
	require.Equal(t, "${DOCSYNC_UNSET_VAR}", doc.StringValue("other"))
}

func TestWriteIfChanged_SecondWrite_Skipped(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "docs.json")
	doc, err := ParseDocument([]byte(`{"name":"Docs"}`))
	require.NoError(t, err)

	wrote, err := WriteIfChanged(path, doc)
	require.NoError(t, err)
	require.True(t, wrote)

	wrote, err = WriteIfChanged(path, doc)
	require.NoError(t, err)
	require.False(t, wrote)
}

func TestWriteIfChanged_ChangedDocument_Rewrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "docs.json")
	doc, err := ParseDocument([]byte(`{"name":"Docs"}`))
	require.NoError(t, err)

	_, err = WriteIfChanged(path, doc)
	require.NoError(t, err)

	doc.Set("name", []byte(`"Renamed"`))
	wrote, err := WriteIfChanged(path, doc)
	require.NoError(t, err)
	require.True(t, wrote)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), `"Renamed"`)
}
