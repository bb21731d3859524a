package storage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPathValidator_ResolvePath(t *testing.T) {
	root := t.TempDir()
	other := t.TempDir()

	validator, err := NewPathValidator([]string{root, other})
	require.NoError(t, err)

	t.Run("accepts path inside first root", func(t *testing.T) {
		resolved, err := validator.ResolvePath(filepath.Join(root, "docs", "a.txt"))
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(root, "docs", "a.txt"), resolved)
	})

	t.Run("accepts path inside second root", func(t *testing.T) {
		resolved, err := validator.ResolvePath(filepath.Join(other, "b.txt"))
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(other, "b.txt"), resolved)
	})

	t.Run("accepts root itself", func(t *testing.T) {
		resolved, err := validator.ResolvePath(root)
		require.NoError(t, err)
		assert.Equal(t, root, resolved)
	})

	t.Run("rejects empty path", func(t *testing.T) {
		_, err := validator.ResolvePath("   ")
		assert.Error(t, err)
	})

	t.Run("rejects relative path", func(t *testing.T) {
		_, err := validator.ResolvePath("docs/a.txt")
		assert.Error(t, err)
	})

	t.Run("rejects traversal segments", func(t *testing.T) {
		_, err := validator.ResolvePath(filepath.Join(root, "..", "escape"))
		assert.Error(t, err)
	})

	t.Run("rejects control characters", func(t *testing.T) {
		_, err := validator.ResolvePath(root + "/bad\x00name")
		assert.Error(t, err)
	})

	t.Run("rejects path outside every root", func(t *testing.T) {
		_, err := validator.ResolvePath("/etc/passwd")
		assert.Error(t, err)
	})

	t.Run("rejects sibling with root prefix", func(t *testing.T) {
		_, err := validator.ResolvePath(root + "-sibling/file")
		assert.Error(t, err)
	})
}

func TestPathValidator_RootFor(t *testing.T) {
	root := t.TempDir()
	validator, err := NewPathValidator([]string{root})
	require.NoError(t, err)

	found, err := validator.RootFor(filepath.Join(root, "x"))
	require.NoError(t, err)
	assert.Equal(t, root, found)

	_, err = validator.RootFor("/nowhere")
	assert.Error(t, err)
}

func TestNewPathValidator_Invalid(t *testing.T) {
	_, err := NewPathValidator(nil)
	assert.Error(t, err)

	_, err = NewPathValidator([]string{"  "})
	assert.Error(t, err)
}
