package service

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"go-file-guard/internal/model"
	"go-file-guard/internal/storage"
	"go-file-guard/internal/util"
)

// Executor performs approved operations and records the evidence needed to
// undo them. Every written file is checksummed against its source before it
// counts as done; a mismatch fails the transaction rather than letting a
// silently corrupted copy stand in for the original.
type Executor struct {
	store storage.Storage
	trash *TrashService

	// copyOne is the single-file copy primitive, swappable in tests to
	// simulate corruption mid-transfer.
	copyOne func(src string, dst string, mode os.FileMode) error
}

func NewExecutor(store storage.Storage, trash *TrashService) *Executor {
	return &Executor{store: store, trash: trash, copyOne: copyFileContents}
}

// Execute runs the operation the transaction describes, filling in
// tx.Metadata.Files and tx.RollbackInfo. Only approved transactions may
// touch the filesystem. The caller owns the terminal status transition: a
// nil return means every file verified.
func (e *Executor) Execute(ctx context.Context, tx *model.Transaction) error {
	if tx.Status != model.StatusApproved {
		return fmt.Errorf("%w: transaction %d is %s", model.ErrNotApproved, tx.ID, tx.Status)
	}

	switch tx.Kind {
	case model.KindMkdir:
		return e.execMkdir(tx)
	case model.KindCopy:
		return e.execCopy(tx)
	case model.KindMove:
		return e.execMove(tx)
	case model.KindDelete:
		return e.execDelete(ctx, tx)
	}
	return fmt.Errorf("%w: unknown operation kind %q", model.ErrInvalidRequest, tx.Kind)
}

func (e *Executor) execMkdir(tx *model.Transaction) error {
	dest := tx.Metadata.DestPath
	resolved, err := e.store.Resolve(dest)
	if err != nil {
		return err
	}

	// Record the highest ancestor that does not exist yet: rollback removes
	// from there down, never a directory that predates the transaction.
	created := topMissingAncestor(resolved)
	if created == "" {
		return fmt.Errorf("%w: path already exists: %s", model.ErrInvalidRequest, dest)
	}

	if err := os.MkdirAll(resolved, 0o755); err != nil {
		return fmt.Errorf("mkdir %q: %w", dest, err)
	}

	tx.RollbackInfo.CreatedPaths = []string{created}
	tx.Metadata.Files = []model.FileRecord{{Path: dest, State: model.FileStateVerified}}
	return nil
}

func (e *Executor) execCopy(tx *model.Transaction) error {
	srcResolved, err := e.store.Resolve(tx.Metadata.SourcePath)
	if err != nil {
		return err
	}
	dstResolved, err := e.store.Resolve(tx.Metadata.DestPath)
	if err != nil {
		return err
	}

	records, err := e.copyTreeVerified(srcResolved, dstResolved)
	tx.Metadata.Files = records
	if err != nil {
		return err
	}

	tx.RollbackInfo.CreatedPaths = []string{tx.Metadata.DestPath}
	return nil
}

func (e *Executor) execMove(tx *model.Transaction) error {
	srcResolved, err := e.store.Resolve(tx.Metadata.SourcePath)
	if err != nil {
		return err
	}
	dstResolved, err := e.store.Resolve(tx.Metadata.DestPath)
	if err != nil {
		return err
	}

	srcRoot, _ := e.store.RootFor(srcResolved)
	dstRoot, _ := e.store.RootFor(dstResolved)

	if srcRoot == dstRoot {
		// Checksum the evidence first: after the rename the source is gone.
		records, err := checksumTree(srcResolved, tx.Metadata.SourcePath)
		if err != nil {
			return err
		}
		if err := movePath(srcResolved, dstResolved); err != nil {
			return fmt.Errorf("move %q: %w", tx.Metadata.SourcePath, err)
		}
		for i := range records {
			records[i].DestChecksum = records[i].Checksum
			records[i].State = model.FileStateVerified
		}
		tx.Metadata.Files = records
	} else {
		// Different roots: copy with verification, delete the source only
		// after every file checked out.
		records, err := e.copyTreeVerified(srcResolved, dstResolved)
		tx.Metadata.Files = records
		if err != nil {
			_ = os.RemoveAll(dstResolved)
			return err
		}
		if err := os.RemoveAll(srcResolved); err != nil {
			return fmt.Errorf("remove source after move %q: %w", tx.Metadata.SourcePath, err)
		}
	}

	tx.RollbackInfo.MovedFiles = []model.MovedFile{{
		From: tx.Metadata.SourcePath,
		To:   tx.Metadata.DestPath,
	}}
	return nil
}

func (e *Executor) execDelete(ctx context.Context, tx *model.Transaction) error {
	srcResolved, err := e.store.Resolve(tx.Metadata.SourcePath)
	if err != nil {
		return err
	}

	records, err := checksumTree(srcResolved, tx.Metadata.SourcePath)
	if err != nil {
		return err
	}
	for i := range records {
		records[i].State = model.FileStateVerified
	}
	tx.Metadata.Files = records

	entry, err := e.trash.Displace(ctx, tx.ID, tx.Metadata.SourcePath)
	if err != nil {
		return err
	}

	tx.RollbackInfo.TrashEntryIDs = []string{entry.ID}
	return nil
}

// copyTreeVerified copies src to dst file by file, checksumming each side.
// Already-verified files survive a mid-tree failure; only the file that
// failed is removed.
func (e *Executor) copyTreeVerified(srcResolved string, dstResolved string) ([]model.FileRecord, error) {
	info, err := os.Stat(srcResolved)
	if err != nil {
		return nil, err
	}

	if !info.IsDir() {
		rec, err := e.copyOneVerified(srcResolved, dstResolved, info.Mode())
		return []model.FileRecord{rec}, err
	}

	if err := os.MkdirAll(dstResolved, info.Mode().Perm()); err != nil {
		return nil, err
	}

	var records []model.FileRecord
	err = filepath.WalkDir(srcResolved, func(current string, entry os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}

		rel, relErr := filepath.Rel(srcResolved, current)
		if relErr != nil {
			return relErr
		}
		if rel == "." {
			return nil
		}

		target := filepath.Join(dstResolved, rel)
		entryInfo, infoErr := entry.Info()
		if infoErr != nil {
			return infoErr
		}

		if entry.IsDir() {
			return os.MkdirAll(target, entryInfo.Mode().Perm())
		}

		rec, copyErr := e.copyOneVerified(current, target, entryInfo.Mode())
		records = append(records, rec)
		return copyErr
	})

	return records, err
}

func (e *Executor) copyOneVerified(src string, dst string, mode fs.FileMode) (model.FileRecord, error) {
	rec := model.FileRecord{Path: src, DestPath: dst, State: model.FileStatePending}

	info, err := os.Stat(src)
	if err != nil {
		rec.State = model.FileStateFailed
		return rec, err
	}
	rec.Size = info.Size()

	srcSum, err := util.ChecksumFile(src)
	if err != nil {
		rec.State = model.FileStateFailed
		return rec, err
	}
	rec.Checksum = srcSum

	if err := e.copyOne(src, dst, mode); err != nil {
		rec.State = model.FileStateFailed
		_ = os.Remove(dst)
		return rec, err
	}

	dstSum, err := util.ChecksumFile(dst)
	if err != nil {
		rec.State = model.FileStateFailed
		_ = os.Remove(dst)
		return rec, err
	}
	rec.DestChecksum = dstSum

	if dstSum != srcSum {
		rec.State = model.FileStateFailed
		_ = os.Remove(dst)
		return rec, fmt.Errorf("%w: %s", model.ErrIntegrityFailure, src)
	}

	rec.State = model.FileStateVerified
	return rec, nil
}

// checksumTree records path, size and checksum for every regular file under
// resolved, reporting paths relative to the client-visible base.
func checksumTree(resolved string, base string) ([]model.FileRecord, error) {
	info, err := os.Stat(resolved)
	if err != nil {
		return nil, err
	}

	if !info.IsDir() {
		sum, err := util.ChecksumFile(resolved)
		if err != nil {
			return nil, err
		}
		return []model.FileRecord{{Path: base, Size: info.Size(), Checksum: sum}}, nil
	}

	var records []model.FileRecord
	err = filepath.WalkDir(resolved, func(current string, entry os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if entry.IsDir() {
			return nil
		}

		entryInfo, infoErr := entry.Info()
		if infoErr != nil {
			return infoErr
		}

		sum, sumErr := util.ChecksumFile(current)
		if sumErr != nil {
			return sumErr
		}

		rel, relErr := filepath.Rel(resolved, current)
		if relErr != nil {
			return relErr
		}

		records = append(records, model.FileRecord{
			Path:     filepath.Join(base, rel),
			Size:     entryInfo.Size(),
			Checksum: sum,
		})
		return nil
	})
	return records, err
}

// topMissingAncestor returns the highest path component under an existing
// directory that does not exist yet, or "" when the full path already exists.
func topMissingAncestor(resolved string) string {
	if _, err := os.Stat(resolved); err == nil {
		return ""
	}

	missing := resolved
	for {
		parent := filepath.Dir(missing)
		if parent == missing {
			return missing
		}
		if _, err := os.Stat(parent); err == nil {
			return missing
		}
		missing = parent
	}
}
