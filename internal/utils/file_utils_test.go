package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteJSONAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "ids.json")

	require.NoError(t, WriteJSONAtomic(path, []string{"a", "b"}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "[\n  \"a\",\n  \"b\"\n]\n", string(data))

	// Replacing keeps a single, complete document.
	require.NoError(t, WriteJSONAtomic(path, []string{"c"}))
	var got []string
	require.NoError(t, ReadJSON(path, &got))
	assert.Equal(t, []string{"c"}, got)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temporary files should be left behind")
}

func TestReadJSON(t *testing.T) {
	dir := t.TempDir()

	t.Run("missing file", func(t *testing.T) {
		var v []string
		err := ReadJSON(filepath.Join(dir, "missing.json"), &v)
		assert.True(t, os.IsNotExist(err))
	})

	t.Run("empty file", func(t *testing.T) {
		path := filepath.Join(dir, "empty.json")
		require.NoError(t, os.WriteFile(path, []byte("  \n"), 0644))
		var v []string
		assert.Error(t, ReadJSON(path, &v))
	})

	t.Run("corrupt file", func(t *testing.T) {
		path := filepath.Join(dir, "corrupt.json")
		require.NoError(t, os.WriteFile(path, []byte("[\"a\","), 0644))
		var v []string
		assert.Error(t, ReadJSON(path, &v))
	})
}

func TestFileExists(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f")
	assert.False(t, FileExists(path))
	require.NoError(t, os.WriteFile(path, nil, 0644))
	assert.True(t, FileExists(path))
	assert.False(t, FileExists(dir))
}
