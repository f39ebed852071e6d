package dirhelper

import (
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureDirectory_CreatesIntermediateSegments(t *testing.T) {
	fs := afero.NewMemMapFs()
	target := filepath.Join("a", "b", "c")

	require.NoError(t, EnsureDirectory(fs, target))

	for _, dir := range []string{"a", filepath.Join("a", "b"), target} {
		exists, err := afero.DirExists(fs, dir)
		require.NoError(t, err)
		assert.True(t, exists, dir)
	}
}

func TestEnsureDirectory_Idempotent(t *testing.T) {
	fs := afero.NewMemMapFs()
	target := filepath.Join("a", "b")
	require.NoError(t, fs.MkdirAll(target, 0o755))
	require.NoError(t, afero.WriteFile(fs, filepath.Join(target, "keep.txt"), []byte("x"), 0o644))

	require.NoError(t, EnsureDirectory(fs, target))
	require.NoError(t, EnsureDirectory(fs, target))

	data, err := afero.ReadFile(fs, filepath.Join(target, "keep.txt"))
	require.NoError(t, err)
	assert.Equal(t, []byte("x"), data)
}

func TestEnsureDirectory_EmptyAndCurrent(t *testing.T) {
	fs := afero.NewReadOnlyFs(afero.NewMemMapFs())

	assert.NoError(t, EnsureDirectory(fs, ""))
	assert.NoError(t, EnsureDirectory(fs, "."))
}

func TestEnsureDirectory_FilesystemError(t *testing.T) {
	fs := afero.NewReadOnlyFs(afero.NewMemMapFs())

	err := EnsureDirectory(fs, "new")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "create directory new")
}

func TestNormalizePath(t *testing.T) {
	sep := string(filepath.Separator)

	assert.Equal(t, "a"+sep+"b"+sep+"c.bin", NormalizePath(`a\b\c.bin`))
	assert.Equal(t, "a"+sep+"b"+sep+"c.bin", NormalizePath("a/b/c.bin"))
	assert.Equal(t, "a"+sep+"c.bin", NormalizePath("a//b/../c.bin"))
	assert.Equal(t, "", NormalizePath(""))
}
