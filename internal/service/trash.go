package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"go-file-guard/internal/model"
	"go-file-guard/internal/storage"
	"go-file-guard/internal/util"
)

// TrashService physically displaces paths instead of destroying them. Each
// transaction gets its own namespace under the trash root, so stored paths
// never collide across transactions. A JSON sidecar next to every stored item
// makes the trash recoverable even if the index is lost.
type TrashService struct {
	store     storage.Storage
	trashRoot string
	index     TrashIndex
	sizeCap   int64
}

func NewTrashService(store storage.Storage, trashRoot string, index TrashIndex, sizeCap int64) (*TrashService, error) {
	abs, err := filepath.Abs(trashRoot)
	if err != nil {
		return nil, fmt.Errorf("resolve trash root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("prepare trash directory: %w", err)
	}

	return &TrashService{store: store, trashRoot: abs, index: index, sizeCap: sizeCap}, nil
}

// Displace moves the path into the transaction's trash namespace and records
// the entry. The capacity check happens before anything moves, so a full
// trash never leaves a half-displaced tree behind.
func (s *TrashService) Displace(ctx context.Context, txID int64, originalPath string) (model.TrashEntry, error) {
	resolved, err := s.store.Resolve(originalPath)
	if err != nil {
		return model.TrashEntry{}, err
	}

	info, err := os.Stat(resolved)
	if err != nil {
		return model.TrashEntry{}, err
	}

	size := info.Size()
	if info.IsDir() {
		size, err = dirSize(resolved)
		if err != nil {
			return model.TrashEntry{}, fmt.Errorf("measure %q: %w", originalPath, err)
		}
	}

	used, err := s.index.TotalSize(ctx)
	if err != nil {
		return model.TrashEntry{}, err
	}
	if used+size > s.sizeCap {
		return model.TrashEntry{}, fmt.Errorf("%w: %s needed, %s free",
			model.ErrTrashCapacityExceeded,
			util.FormatBytes(size), util.FormatBytes(s.sizeCap-used))
	}

	entry := model.TrashEntry{
		ID:            uuid.NewString(),
		TransactionID: txID,
		OriginalPath:  originalPath,
		Size:          size,
		Mode:          info.Mode(),
		ModTime:       info.ModTime().UTC(),
		IsDir:         info.IsDir(),
		DeletedAt:     time.Now().UTC(),
	}
	if !info.IsDir() {
		sum, err := util.ChecksumFile(resolved)
		if err != nil {
			return model.TrashEntry{}, err
		}
		entry.Checksum = sum
	}

	storedName := entry.ID + "_" + filepath.Base(originalPath)
	entry.StoredPath = filepath.Join(s.trashRoot, strconv.FormatInt(txID, 10), storedName)

	if err := movePath(resolved, entry.StoredPath); err != nil {
		return model.TrashEntry{}, fmt.Errorf("move to trash %q: %w", originalPath, err)
	}

	if err := s.writeSidecar(entry); err != nil {
		_ = movePath(entry.StoredPath, resolved)
		return model.TrashEntry{}, err
	}

	if err := s.index.Create(ctx, entry); err != nil {
		_ = os.Remove(sidecarPath(entry.StoredPath))
		_ = movePath(entry.StoredPath, resolved)
		return model.TrashEntry{}, err
	}

	return entry, nil
}

// Restore moves a trash entry back to its original path. The target must be
// vacant; a file entry is checksummed before the index row is dropped so a
// corrupted trash copy surfaces as ErrIntegrityFailure instead of silently
// restoring bad bytes.
func (s *TrashService) Restore(ctx context.Context, entry model.TrashEntry) error {
	target, err := s.store.Resolve(entry.OriginalPath)
	if err != nil {
		return err
	}

	if _, err := os.Stat(target); err == nil {
		return fmt.Errorf("%w: %s", model.ErrRestoreConflict, entry.OriginalPath)
	} else if !os.IsNotExist(err) {
		return err
	}

	if !entry.IsDir && entry.Checksum != "" {
		sum, err := util.ChecksumFile(entry.StoredPath)
		if err != nil {
			return err
		}
		if sum != entry.Checksum {
			return fmt.Errorf("%w: trash copy of %s does not match recorded checksum",
				model.ErrIntegrityFailure, entry.OriginalPath)
		}
	}

	if err := movePath(entry.StoredPath, target); err != nil {
		return fmt.Errorf("restore %q: %w", entry.OriginalPath, err)
	}

	// Re-apply the recorded metadata: the cross-device copy fallback loses
	// the mtime, and a failure here must not strand the restored file.
	if entry.Mode != 0 {
		_ = os.Chmod(target, entry.Mode.Perm())
	}
	if !entry.ModTime.IsZero() {
		_ = os.Chtimes(target, entry.ModTime, entry.ModTime)
	}

	_ = os.Remove(sidecarPath(entry.StoredPath))
	s.cleanupNamespace(entry.TransactionID)

	if err := s.index.Delete(ctx, entry.ID); err != nil {
		return err
	}

	return nil
}

// Purge permanently removes a trash entry and returns the bytes freed.
func (s *TrashService) Purge(ctx context.Context, entry model.TrashEntry) (int64, error) {
	if err := os.RemoveAll(entry.StoredPath); err != nil && !os.IsNotExist(err) {
		return 0, fmt.Errorf("purge trash entry %q: %w", entry.ID, err)
	}
	_ = os.Remove(sidecarPath(entry.StoredPath))
	s.cleanupNamespace(entry.TransactionID)

	if err := s.index.Delete(ctx, entry.ID); err != nil {
		return 0, err
	}

	return entry.Size, nil
}

func (s *TrashService) List(ctx context.Context, q model.TrashQuery) ([]model.TrashEntry, error) {
	return s.index.List(ctx, q)
}

func (s *TrashService) TotalSize(ctx context.Context) (int64, error) {
	return s.index.TotalSize(ctx)
}

func (s *TrashService) writeSidecar(entry model.TrashEntry) error {
	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal trash sidecar: %w", err)
	}
	return os.WriteFile(sidecarPath(entry.StoredPath), data, 0o600)
}

// cleanupNamespace removes the per-transaction directory once it is empty.
func (s *TrashService) cleanupNamespace(txID int64) {
	dir := filepath.Join(s.trashRoot, strconv.FormatInt(txID, 10))
	entries, err := os.ReadDir(dir)
	if err == nil && len(entries) == 0 {
		_ = os.Remove(dir)
	}
}

func sidecarPath(storedPath string) string {
	return filepath.Join(filepath.Dir(storedPath), "."+filepath.Base(storedPath)+".metadata.json")
}

func dirSize(resolved string) (int64, error) {
	var total int64
	err := filepath.WalkDir(resolved, func(current string, entry os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if entry.IsDir() {
			return nil
		}
		info, err := entry.Info()
		if err != nil {
			return err
		}
		total += info.Size()
		return nil
	})
	return total, err
}

// movePath renames, falling back to copy-and-delete when source and
// destination sit on different devices.
func movePath(source string, destination string) error {
	if err := os.MkdirAll(filepath.Dir(destination), 0o755); err != nil {
		return err
	}

	if err := os.Rename(source, destination); err == nil {
		return nil
	} else if !isCrossDeviceRenameError(err) {
		return err
	}

	if err := copyPathRecursive(source, destination); err != nil {
		return err
	}

	return os.RemoveAll(source)
}

func isCrossDeviceRenameError(err error) bool {
	var linkErr *os.LinkError
	if errors.As(err, &linkErr) {
		return strings.Contains(strings.ToLower(linkErr.Err.Error()), "cross-device")
	}
	return strings.Contains(strings.ToLower(err.Error()), "cross-device")
}

func copyPathRecursive(source string, destination string) error {
	info, err := os.Stat(source)
	if err != nil {
		return err
	}

	if !info.IsDir() {
		return copyFileContents(source, destination, info.Mode())
	}

	if err := os.MkdirAll(destination, info.Mode().Perm()); err != nil {
		return err
	}

	return filepath.WalkDir(source, func(current string, entry os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}

		rel, relErr := filepath.Rel(source, current)
		if relErr != nil {
			return relErr
		}
		if rel == "." {
			return nil
		}

		target := filepath.Join(destination, rel)
		entryInfo, infoErr := entry.Info()
		if infoErr != nil {
			return infoErr
		}

		if entry.IsDir() {
			return os.MkdirAll(target, entryInfo.Mode().Perm())
		}

		return copyFileContents(current, target, entryInfo.Mode())
	})
}

func copyFileContents(source string, destination string, mode os.FileMode) error {
	input, err := os.Open(source)
	if err != nil {
		return err
	}
	defer input.Close()

	if err := os.MkdirAll(filepath.Dir(destination), 0o755); err != nil {
		return err
	}

	output, err := os.OpenFile(destination, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode.Perm())
	if err != nil {
		return err
	}

	_, copyErr := io.Copy(output, input)
	closeErr := output.Close()
	if copyErr != nil {
		return copyErr
	}
	return closeErr
}
