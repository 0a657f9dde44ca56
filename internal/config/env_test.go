package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadEnvFiles_LoadsDotEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	require.NoError(t, os.WriteFile(".env", []byte("DOCSYNC_ENV_TEST=from-file\n"), 0o644))
	t.Setenv("DOCSYNC_ENV_TEST", "")
	require.NoError(t, os.Unsetenv("DOCSYNC_ENV_TEST"))

	LoadEnvFiles()
	require.Equal(t, "from-file", os.Getenv("DOCSYNC_ENV_TEST"))
}

func TestLoadEnvFiles_ExistingEnvironmentWins(t *testing.T) {
	t.Chdir(t.TempDir())
	require.NoError(t, os.WriteFile(".env", []byte("DOCSYNC_ENV_TEST=from-file\n"), 0o644))
	t.Setenv("DOCSYNC_ENV_TEST", "exported")

	LoadEnvFiles()
	require.Equal(t, "exported", os.Getenv("DOCSYNC_ENV_TEST"))
}

func TestLoadEnvFiles_MissingFilesAreFine(t *testing.T) {
	t.Chdir(t.TempDir())
	LoadEnvFiles()
}

func TestInit_WritesStarterDocument(t *testing.T) {
	path := t.TempDir() + "/docs.base.json"
	require.NoError(t, Init(path, false))

	doc, err := Load(path)
	require.NoError(t, err)
	require.True(t, doc.Has(NavigationKey))
	require.Equal(t, "My Documentation", doc.StringValue("name"))
	require.Equal(t, "$schema", doc.Keys()[0])
}

func TestInit_RefusesOverwriteWithoutForce(t *testing.T) {
	path := t.TempDir() + "/docs.base.json"
	require.NoError(t, Init(path, false))
	require.Error(t, Init(path, false))
	require.NoError(t, Init(path, true))
}
