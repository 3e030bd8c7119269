package project

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitThenFindRootFromNestedFile(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, Init(root))

	nested := filepath.Join(root, "src", "sub")
	require.NoError(t, os.MkdirAll(nested, 0o755))
	nestedFile := filepath.Join(nested, "a.cpp")
	require.NoError(t, os.WriteFile(nestedFile, []byte("// "), 0o644))

	found, err := FindRoot(nestedFile)
	require.NoError(t, err)
	assert.Equal(t, root, found)
}

func TestFindRootFailsWithoutMarker(t *testing.T) {
	dir := t.TempDir()
	_, err := FindRoot(dir)
	assert.Error(t, err)
}

func TestInitRejectsReinitialization(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, Init(root))
	assert.Error(t, Init(root))
}

func TestDBAndConfigPaths(t *testing.T) {
	assert.Equal(t, filepath.Join("/proj", ".yacbi", "index.db"), DBPath("/proj"))
	assert.Equal(t, filepath.Join("/proj", ".yacbi", "config.json"), ConfigPath("/proj"))
}
