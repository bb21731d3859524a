package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-file-guard/internal/model"
	"go-file-guard/internal/storage"
)

type executorFixture struct {
	store    storage.Storage
	index    *memTrashIndex
	trash    *TrashService
	executor *Executor
	roots    []string
}

func newExecutorFixture(t *testing.T, rootCount int) *executorFixture {
	t.Helper()

	roots := make([]string, rootCount)
	for i := range roots {
		roots[i] = t.TempDir()
	}

	store, err := storage.New(roots)
	require.NoError(t, err)

	index := newMemTrashIndex()
	trash, err := NewTrashService(store, t.TempDir(), index, 1<<30)
	require.NoError(t, err)

	return &executorFixture{
		store:    store,
		index:    index,
		trash:    trash,
		executor: NewExecutor(store, trash),
		roots:    roots,
	}
}

func writeFile(t *testing.T, path string, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestExecutor_RequiresApprovedTransaction(t *testing.T) {
	fx := newExecutorFixture(t, 1)
	root := fx.roots[0]

	src := filepath.Join(root, "src.txt")
	dst := filepath.Join(root, "dst.txt")
	writeFile(t, src, "payload")

	for _, status := range []model.TransactionStatus{
		model.StatusPending, model.StatusDenied, model.StatusCompleted,
	} {
		tx := &model.Transaction{
			Kind:     model.KindCopy,
			Status:   status,
			Metadata: model.TransactionMetadata{SourcePath: src, DestPath: dst},
		}
		err := fx.executor.Execute(context.Background(), tx)
		assert.ErrorIs(t, err, model.ErrNotApproved, "status %s", status)
		_, statErr := os.Stat(dst)
		assert.True(t, os.IsNotExist(statErr), "status %s must not write anything", status)
	}
}

func TestExecutor_CopySingleFile(t *testing.T) {
	fx := newExecutorFixture(t, 1)
	root := fx.roots[0]

	src := filepath.Join(root, "src.txt")
	dst := filepath.Join(root, "dst.txt")
	writeFile(t, src, "payload")

	tx := &model.Transaction{
		Kind:     model.KindCopy,
		Status:   model.StatusApproved,
		Metadata: model.TransactionMetadata{SourcePath: src, DestPath: dst},
	}
	require.NoError(t, fx.executor.Execute(context.Background(), tx))

	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))

	// Source untouched.
	_, err = os.Stat(src)
	assert.NoError(t, err)

	require.Len(t, tx.Metadata.Files, 1)
	rec := tx.Metadata.Files[0]
	assert.Equal(t, model.FileStateVerified, rec.State)
	assert.NotEmpty(t, rec.Checksum)
	assert.Equal(t, rec.Checksum, rec.DestChecksum)
	assert.Equal(t, []string{dst}, tx.RollbackInfo.CreatedPaths)
}

func TestExecutor_CopyDirectoryTree(t *testing.T) {
	fx := newExecutorFixture(t, 1)
	root := fx.roots[0]

	src := filepath.Join(root, "tree")
	dst := filepath.Join(root, "copy")
	writeFile(t, filepath.Join(src, "a.txt"), "aaa")
	writeFile(t, filepath.Join(src, "sub", "b.txt"), "bbbb")

	tx := &model.Transaction{
		Kind:     model.KindCopy,
		Status:   model.StatusApproved,
		Metadata: model.TransactionMetadata{SourcePath: src, DestPath: dst},
	}
	require.NoError(t, fx.executor.Execute(context.Background(), tx))

	data, err := os.ReadFile(filepath.Join(dst, "sub", "b.txt"))
	require.NoError(t, err)
	assert.Equal(t, "bbbb", string(data))
	assert.Len(t, tx.Metadata.Files, 2)
	for _, rec := range tx.Metadata.Files {
		assert.Equal(t, model.FileStateVerified, rec.State)
	}
}

func TestExecutor_CopyCorruptionFailsIntegrity(t *testing.T) {
	fx := newExecutorFixture(t, 1)
	root := fx.roots[0]

	src := filepath.Join(root, "tree")
	dst := filepath.Join(root, "copy")
	writeFile(t, filepath.Join(src, "a.txt"), "good")
	writeFile(t, filepath.Join(src, "z.txt"), "doomed")

	// Corrupt the second file mid-transfer; WalkDir visits names in order.
	fx.executor.copyOne = func(source string, destination string, mode os.FileMode) error {
		if filepath.Base(source) == "z.txt" {
			return os.WriteFile(destination, []byte("garbage"), mode.Perm())
		}
		return copyFileContents(source, destination, mode)
	}

	tx := &model.Transaction{
		Kind:     model.KindCopy,
		Status:   model.StatusApproved,
		Metadata: model.TransactionMetadata{SourcePath: src, DestPath: dst},
	}
	err := fx.executor.Execute(context.Background(), tx)
	require.ErrorIs(t, err, model.ErrIntegrityFailure)

	// The verified file survives, the corrupted one is gone.
	_, statErr := os.Stat(filepath.Join(dst, "a.txt"))
	assert.NoError(t, statErr)
	_, statErr = os.Stat(filepath.Join(dst, "z.txt"))
	assert.True(t, os.IsNotExist(statErr))

	require.Len(t, tx.Metadata.Files, 2)
	assert.Equal(t, model.FileStateVerified, tx.Metadata.Files[0].State)
	assert.Equal(t, model.FileStateFailed, tx.Metadata.Files[1].State)
}

func TestExecutor_MoveSameRoot(t *testing.T) {
	fx := newExecutorFixture(t, 1)
	root := fx.roots[0]

	src := filepath.Join(root, "src.txt")
	dst := filepath.Join(root, "moved", "dst.txt")
	writeFile(t, src, "payload")

	tx := &model.Transaction{
		Kind:     model.KindMove,
		Status:   model.StatusApproved,
		Metadata: model.TransactionMetadata{SourcePath: src, DestPath: dst},
	}
	require.NoError(t, fx.executor.Execute(context.Background(), tx))

	_, err := os.Stat(src)
	assert.True(t, os.IsNotExist(err))
	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))

	require.Len(t, tx.RollbackInfo.MovedFiles, 1)
	assert.Equal(t, src, tx.RollbackInfo.MovedFiles[0].From)
	assert.Equal(t, dst, tx.RollbackInfo.MovedFiles[0].To)
	require.Len(t, tx.Metadata.Files, 1)
	assert.Equal(t, model.FileStateVerified, tx.Metadata.Files[0].State)
}

func TestExecutor_MoveAcrossRoots(t *testing.T) {
	fx := newExecutorFixture(t, 2)

	src := filepath.Join(fx.roots[0], "dir")
	dst := filepath.Join(fx.roots[1], "dir")
	writeFile(t, filepath.Join(src, "f.txt"), "across")

	tx := &model.Transaction{
		Kind:     model.KindMove,
		Status:   model.StatusApproved,
		Metadata: model.TransactionMetadata{SourcePath: src, DestPath: dst},
	}
	require.NoError(t, fx.executor.Execute(context.Background(), tx))

	_, err := os.Stat(src)
	assert.True(t, os.IsNotExist(err))
	data, err := os.ReadFile(filepath.Join(dst, "f.txt"))
	require.NoError(t, err)
	assert.Equal(t, "across", string(data))
}

func TestExecutor_MoveAcrossRootsCorruptionKeepsSource(t *testing.T) {
	fx := newExecutorFixture(t, 2)

	src := filepath.Join(fx.roots[0], "f.txt")
	dst := filepath.Join(fx.roots[1], "f.txt")
	writeFile(t, src, "precious")

	fx.executor.copyOne = func(source string, destination string, mode os.FileMode) error {
		return os.WriteFile(destination, []byte("garbage"), mode.Perm())
	}

	tx := &model.Transaction{
		Kind:     model.KindMove,
		Status:   model.StatusApproved,
		Metadata: model.TransactionMetadata{SourcePath: src, DestPath: dst},
	}
	err := fx.executor.Execute(context.Background(), tx)
	require.ErrorIs(t, err, model.ErrIntegrityFailure)

	// Source survives, partial destination is cleaned up.
	data, readErr := os.ReadFile(src)
	require.NoError(t, readErr)
	assert.Equal(t, "precious", string(data))
	_, statErr := os.Stat(dst)
	assert.True(t, os.IsNotExist(statErr))
}

func TestExecutor_DeleteDisplacesToTrash(t *testing.T) {
	fx := newExecutorFixture(t, 1)
	root := fx.roots[0]

	src := filepath.Join(root, "victim")
	writeFile(t, filepath.Join(src, "f.txt"), "keep me")

	tx := &model.Transaction{
		ID:       42,
		Kind:     model.KindDelete,
		Status:   model.StatusApproved,
		Metadata: model.TransactionMetadata{SourcePath: src},
	}
	require.NoError(t, fx.executor.Execute(context.Background(), tx))

	_, err := os.Stat(src)
	assert.True(t, os.IsNotExist(err))

	require.Len(t, tx.RollbackInfo.TrashEntryIDs, 1)
	entry, err := fx.index.FindByID(context.Background(), tx.RollbackInfo.TrashEntryIDs[0])
	require.NoError(t, err)
	assert.Equal(t, int64(42), entry.TransactionID)
	assert.Equal(t, src, entry.OriginalPath)
	assert.True(t, entry.IsDir)

	// The displaced tree and its sidecar exist in the trash.
	data, err := os.ReadFile(filepath.Join(entry.StoredPath, "f.txt"))
	require.NoError(t, err)
	assert.Equal(t, "keep me", string(data))
	_, err = os.Stat(sidecarPath(entry.StoredPath))
	assert.NoError(t, err)

	// Checksum evidence recorded before displacement.
	require.Len(t, tx.Metadata.Files, 1)
	assert.NotEmpty(t, tx.Metadata.Files[0].Checksum)
	assert.Equal(t, model.FileStateVerified, tx.Metadata.Files[0].State)
}

func TestExecutor_Mkdir(t *testing.T) {
	fx := newExecutorFixture(t, 1)
	root := fx.roots[0]

	existing := filepath.Join(root, "existing")
	require.NoError(t, os.MkdirAll(existing, 0o755))

	dest := filepath.Join(existing, "a", "b", "c")
	tx := &model.Transaction{
		Kind:     model.KindMkdir,
		Status:   model.StatusApproved,
		Metadata: model.TransactionMetadata{DestPath: dest},
	}
	require.NoError(t, fx.executor.Execute(context.Background(), tx))

	info, err := os.Stat(dest)
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	// Rollback must remove only what the transaction created.
	assert.Equal(t, []string{filepath.Join(existing, "a")}, tx.RollbackInfo.CreatedPaths)
}

func TestExecutor_MkdirExistingPathFails(t *testing.T) {
	fx := newExecutorFixture(t, 1)
	root := fx.roots[0]

	dest := filepath.Join(root, "taken")
	require.NoError(t, os.MkdirAll(dest, 0o755))

	tx := &model.Transaction{
		Kind:     model.KindMkdir,
		Status:   model.StatusApproved,
		Metadata: model.TransactionMetadata{DestPath: dest},
	}
	err := fx.executor.Execute(context.Background(), tx)
	assert.ErrorIs(t, err, model.ErrInvalidRequest)
}
