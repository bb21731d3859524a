package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDisk_BasicOperations(t *testing.T) {
	root := t.TempDir()
	disk, err := New([]string{root})
	require.NoError(t, err)

	t.Run("mkdir and stat", func(t *testing.T) {
		dir := filepath.Join(root, "nested", "dir")
		require.NoError(t, disk.MkdirAll(dir, 0o755))

		info, err := disk.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	})

	t.Run("rename within root", func(t *testing.T) {
		src := filepath.Join(root, "src.txt")
		dst := filepath.Join(root, "moved", "dst.txt")
		require.NoError(t, os.WriteFile(src, []byte("payload"), 0o644))

		require.NoError(t, disk.Rename(src, dst))

		_, err := os.Stat(src)
		assert.True(t, os.IsNotExist(err))
		data, err := os.ReadFile(dst)
		require.NoError(t, err)
		assert.Equal(t, "payload", string(data))
	})

	t.Run("rename outside root fails", func(t *testing.T) {
		src := filepath.Join(root, "keep.txt")
		require.NoError(t, os.WriteFile(src, []byte("x"), 0o644))

		err := disk.Rename(src, "/tmp/escape.txt")
		assert.Error(t, err)
		_, statErr := os.Stat(src)
		assert.NoError(t, statErr)
	})

	t.Run("remove all", func(t *testing.T) {
		dir := filepath.Join(root, "prune")
		require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub"), 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "sub", "f"), []byte("x"), 0o644))

		require.NoError(t, disk.RemoveAll(dir))
		_, err := os.Stat(dir)
		assert.True(t, os.IsNotExist(err))
	})
}

func TestNew_CreatesRoots(t *testing.T) {
	base := t.TempDir()
	root := filepath.Join(base, "fresh-root")

	_, err := New([]string{root})
	require.NoError(t, err)

	info, err := os.Stat(root)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}
