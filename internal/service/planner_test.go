package service

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-file-guard/internal/model"
	"go-file-guard/internal/storage"
)

func newTestPlanner(t *testing.T, roots ...string) *Planner {
	t.Helper()
	if len(roots) == 0 {
		roots = []string{t.TempDir()}
	}
	store, err := storage.New(roots)
	require.NoError(t, err)
	return NewPlanner(store)
}

func TestPlan_RejectsMalformedRequests(t *testing.T) {
	root := t.TempDir()
	planner := newTestPlanner(t, root)

	cases := []struct {
		name string
		req  model.OperationRequest
	}{
		{"unknown kind", model.OperationRequest{Kind: "truncate", SourcePath: filepath.Join(root, "a")}},
		{"unknown mode", model.OperationRequest{Kind: model.KindDelete, SourcePath: filepath.Join(root, "a"), ConfirmationMode: "maybe"}},
		{"missing source", model.OperationRequest{Kind: model.KindCopy, DestPath: filepath.Join(root, "b")}},
		{"missing destination", model.OperationRequest{Kind: model.KindMove, SourcePath: filepath.Join(root, "a")}},
		{"source outside roots", model.OperationRequest{Kind: model.KindDelete, SourcePath: "/etc/passwd"}},
		{"destination outside roots", model.OperationRequest{
			Kind:       model.KindCopy,
			SourcePath: filepath.Join(root, "a"),
			DestPath:   "/tmp/escape",
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := planner.Plan(tc.req)
			assert.ErrorIs(t, err, model.ErrInvalidRequest)
		})
	}
}

func TestPlan_MissingSourceIsFatal(t *testing.T) {
	root := t.TempDir()
	planner := newTestPlanner(t, root)

	pv, err := planner.Plan(model.OperationRequest{
		Kind:       model.KindDelete,
		SourcePath: filepath.Join(root, "nope.txt"),
	})
	require.NoError(t, err)
	assert.True(t, pv.Fatal)
	assert.NotEmpty(t, pv.Warnings)
	assert.Zero(t, pv.FileCount)
}

func TestPlan_WalksDirectoryTree(t *testing.T) {
	root := t.TempDir()
	planner := newTestPlanner(t, root)

	src := filepath.Join(root, "tree")
	require.NoError(t, os.MkdirAll(filepath.Join(src, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "one.txt"), []byte("aaaa"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(src, "sub", "two.txt"), []byte("bbbbbb"), 0o644))

	pv, err := planner.Plan(model.OperationRequest{
		Kind:       model.KindCopy,
		SourcePath: src,
		DestPath:   filepath.Join(root, "copy"),
	})
	require.NoError(t, err)
	assert.False(t, pv.Fatal)
	assert.Equal(t, 2, pv.FileCount)
	assert.Equal(t, int64(10), pv.TotalBytes)
	assert.Len(t, pv.Files, 2)
}

func TestPlan_SingleFileSource(t *testing.T) {
	root := t.TempDir()
	planner := newTestPlanner(t, root)

	src := filepath.Join(root, "single.txt")
	require.NoError(t, os.WriteFile(src, []byte("hello"), 0o644))

	pv, err := planner.Plan(model.OperationRequest{Kind: model.KindDelete, SourcePath: src})
	require.NoError(t, err)
	assert.Equal(t, 1, pv.FileCount)
	assert.Equal(t, int64(5), pv.TotalBytes)
}

func TestPlan_OccupiedDestinationWarns(t *testing.T) {
	root := t.TempDir()
	planner := newTestPlanner(t, root)

	src := filepath.Join(root, "src.txt")
	dst := filepath.Join(root, "dst.txt")
	require.NoError(t, os.WriteFile(src, []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(dst, []byte("y"), 0o644))

	pv, err := planner.Plan(model.OperationRequest{Kind: model.KindCopy, SourcePath: src, DestPath: dst})
	require.NoError(t, err)
	assert.False(t, pv.Fatal, "an occupied destination is the user's call, not an abort")
	require.Len(t, pv.Warnings, 1)
	assert.Contains(t, pv.Warnings[0], "destination already exists")
}

func TestPlan_DestinationInsideSourceIsFatal(t *testing.T) {
	root := t.TempDir()
	planner := newTestPlanner(t, root)

	src := filepath.Join(root, "dir")
	require.NoError(t, os.MkdirAll(src, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "f"), []byte("x"), 0o644))

	pv, err := planner.Plan(model.OperationRequest{
		Kind:       model.KindMove,
		SourcePath: src,
		DestPath:   filepath.Join(src, "inner"),
	})
	require.NoError(t, err)
	assert.True(t, pv.Fatal)
}

func TestPlan_CrossRootMoveWarns(t *testing.T) {
	rootA := t.TempDir()
	rootB := t.TempDir()
	planner := newTestPlanner(t, rootA, rootB)

	src := filepath.Join(rootA, "src.txt")
	require.NoError(t, os.WriteFile(src, []byte("x"), 0o644))

	pv, err := planner.Plan(model.OperationRequest{
		Kind:       model.KindMove,
		SourcePath: src,
		DestPath:   filepath.Join(rootB, "dst.txt"),
	})
	require.NoError(t, err)
	assert.False(t, pv.Fatal)
	require.Len(t, pv.Warnings, 1)
	assert.Contains(t, pv.Warnings[0], "different roots")
}

func TestPlan_UnreadableSourceIsFatal(t *testing.T) {
	store := new(storage.MockStorage)
	store.On("Resolve", "/data/locked").Return("/data/locked", nil)
	store.On("Stat", "/data/locked").Return(nil, os.ErrPermission)

	planner := NewPlanner(store)
	pv, err := planner.Plan(model.OperationRequest{
		Kind:       model.KindDelete,
		SourcePath: "/data/locked",
	})
	require.NoError(t, err)
	assert.True(t, pv.Fatal)
	require.Len(t, pv.Warnings, 1)
	assert.Contains(t, pv.Warnings[0], "cannot inspect source")
	store.AssertExpectations(t)
}

func TestPlan_UnreadableSubdirectoryWarns(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permission bits do not apply to root")
	}

	root := t.TempDir()
	planner := newTestPlanner(t, root)

	src := filepath.Join(root, "tree")
	locked := filepath.Join(src, "locked")
	require.NoError(t, os.MkdirAll(locked, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "ok.txt"), []byte("x"), 0o644))
	require.NoError(t, os.Chmod(locked, 0o000))
	t.Cleanup(func() { _ = os.Chmod(locked, 0o755) })

	pv, err := planner.Plan(model.OperationRequest{Kind: model.KindDelete, SourcePath: src})
	require.NoError(t, err)
	assert.False(t, pv.Fatal)
	assert.Equal(t, 1, pv.FileCount)
	require.NotEmpty(t, pv.Warnings)
	assert.Contains(t, pv.Warnings[0], "unreadable directory")
}

func TestPlan_Mkdir(t *testing.T) {
	root := t.TempDir()
	planner := newTestPlanner(t, root)

	t.Run("new path", func(t *testing.T) {
		pv, err := planner.Plan(model.OperationRequest{
			Kind:     model.KindMkdir,
			DestPath: filepath.Join(root, "new", "dir"),
		})
		require.NoError(t, err)
		assert.False(t, pv.Fatal)
		assert.Equal(t, 1, pv.FileCount)
	})

	t.Run("existing path is fatal", func(t *testing.T) {
		existing := filepath.Join(root, "taken")
		require.NoError(t, os.MkdirAll(existing, 0o755))

		pv, err := planner.Plan(model.OperationRequest{Kind: model.KindMkdir, DestPath: existing})
		require.NoError(t, err)
		assert.True(t, pv.Fatal)
	})
}
