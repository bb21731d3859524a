package service

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-file-guard/internal/model"
	"go-file-guard/internal/storage"
)

func newTestTrash(t *testing.T, sizeCap int64) (*TrashService, *memTrashIndex, string) {
	t.Helper()

	root := t.TempDir()
	store, err := storage.New([]string{root})
	require.NoError(t, err)

	index := newMemTrashIndex()
	trash, err := NewTrashService(store, t.TempDir(), index, sizeCap)
	require.NoError(t, err)

	return trash, index, root
}

func TestTrash_DisplaceAndRestore(t *testing.T) {
	trash, index, root := newTestTrash(t, 1<<30)
	ctx := context.Background()

	path := filepath.Join(root, "doc.txt")
	writeFile(t, path, "contents")

	entry, err := trash.Displace(ctx, 1, path)
	require.NoError(t, err)
	assert.Equal(t, path, entry.OriginalPath)
	assert.Equal(t, int64(8), entry.Size)
	assert.NotEmpty(t, entry.Checksum)
	assert.False(t, entry.IsDir)

	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	// Sidecar holds the full entry as JSON.
	data, err := os.ReadFile(sidecarPath(entry.StoredPath))
	require.NoError(t, err)
	var sidecar model.TrashEntry
	require.NoError(t, json.Unmarshal(data, &sidecar))
	assert.Equal(t, entry.ID, sidecar.ID)

	require.NoError(t, trash.Restore(ctx, entry))

	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "contents", string(data))

	_, err = index.FindByID(ctx, entry.ID)
	assert.ErrorIs(t, err, model.ErrTrashEntryNotFound)
	_, err = os.Stat(sidecarPath(entry.StoredPath))
	assert.True(t, os.IsNotExist(err))
}

func TestTrash_RestoreReappliesModeAndModTime(t *testing.T) {
	trash, _, root := newTestTrash(t, 1<<30)
	ctx := context.Background()

	path := filepath.Join(root, "secret.txt")
	writeFile(t, path, "contents")
	require.NoError(t, os.Chmod(path, 0o600))
	recorded := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, os.Chtimes(path, recorded, recorded))

	entry, err := trash.Displace(ctx, 7, path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), entry.Mode.Perm())

	require.NoError(t, trash.Restore(ctx, entry))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
	assert.WithinDuration(t, recorded, info.ModTime(), time.Second)
}

func TestTrash_DisplaceDirectoryRecordsRecursiveSize(t *testing.T) {
	trash, _, root := newTestTrash(t, 1<<30)

	dir := filepath.Join(root, "bundle")
	writeFile(t, filepath.Join(dir, "a.txt"), "aaaa")
	writeFile(t, filepath.Join(dir, "sub", "b.txt"), "bb")

	entry, err := trash.Displace(context.Background(), 2, dir)
	require.NoError(t, err)
	assert.True(t, entry.IsDir)
	assert.Equal(t, int64(6), entry.Size)
	assert.Empty(t, entry.Checksum)
}

func TestTrash_CapacityCheckedBeforeMoving(t *testing.T) {
	trash, _, root := newTestTrash(t, 4)

	path := filepath.Join(root, "big.txt")
	writeFile(t, path, "five!")

	_, err := trash.Displace(context.Background(), 1, path)
	require.ErrorIs(t, err, model.ErrTrashCapacityExceeded)

	// Nothing moved.
	data, readErr := os.ReadFile(path)
	require.NoError(t, readErr)
	assert.Equal(t, "five!", string(data))
}

func TestTrash_RestoreConflict(t *testing.T) {
	trash, _, root := newTestTrash(t, 1<<30)
	ctx := context.Background()

	path := filepath.Join(root, "doc.txt")
	writeFile(t, path, "original")

	entry, err := trash.Displace(ctx, 1, path)
	require.NoError(t, err)

	// Someone recreated the path while the entry sat in trash.
	writeFile(t, path, "squatter")

	err = trash.Restore(ctx, entry)
	require.ErrorIs(t, err, model.ErrRestoreConflict)

	// The squatter and the trash copy are both intact.
	data, readErr := os.ReadFile(path)
	require.NoError(t, readErr)
	assert.Equal(t, "squatter", string(data))
	_, statErr := os.Stat(entry.StoredPath)
	assert.NoError(t, statErr)
}

func TestTrash_RestoreDetectsCorruptedCopy(t *testing.T) {
	trash, index, root := newTestTrash(t, 1<<30)
	ctx := context.Background()

	path := filepath.Join(root, "doc.txt")
	writeFile(t, path, "original")

	entry, err := trash.Displace(ctx, 1, path)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(entry.StoredPath, []byte("tampered"), 0o644))

	err = trash.Restore(ctx, entry)
	require.ErrorIs(t, err, model.ErrIntegrityFailure)

	// Entry stays indexed so the corruption is not silently discarded.
	_, err = index.FindByID(ctx, entry.ID)
	assert.NoError(t, err)
}

func TestTrash_Purge(t *testing.T) {
	trash, index, root := newTestTrash(t, 1<<30)
	ctx := context.Background()

	path := filepath.Join(root, "doc.txt")
	writeFile(t, path, "contents")

	entry, err := trash.Displace(ctx, 1, path)
	require.NoError(t, err)

	freed, err := trash.Purge(ctx, entry)
	require.NoError(t, err)
	assert.Equal(t, int64(8), freed)

	_, err = os.Stat(entry.StoredPath)
	assert.True(t, os.IsNotExist(err))
	_, err = index.FindByID(ctx, entry.ID)
	assert.ErrorIs(t, err, model.ErrTrashEntryNotFound)
}

func TestTrash_NamespaceRemovedWhenEmpty(t *testing.T) {
	trash, _, root := newTestTrash(t, 1<<30)
	ctx := context.Background()

	path := filepath.Join(root, "doc.txt")
	writeFile(t, path, "x")

	entry, err := trash.Displace(ctx, 9, path)
	require.NoError(t, err)

	namespace := filepath.Dir(entry.StoredPath)
	_, err = os.Stat(namespace)
	require.NoError(t, err)

	require.NoError(t, trash.Restore(ctx, entry))

	_, err = os.Stat(namespace)
	assert.True(t, os.IsNotExist(err))
}
