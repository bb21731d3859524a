package service

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"go-file-guard/internal/model"
	"go-file-guard/internal/storage"
	"go-file-guard/internal/util"
)

// RollbackService undoes completed transactions. Rollback is idempotent: a
// second call on an already rolled back transaction reports that fact instead
// of failing. A rollback that cannot complete leaves the transaction
// completed so it can be retried once the obstacle is cleared.
type RollbackService struct {
	store  storage.Storage
	trash  *TrashService
	txlog  TransactionLog
	index  TrashIndex
	locks  *txLocks
	logger *slog.Logger
}

func NewRollbackService(store storage.Storage, trash *TrashService, txlog TransactionLog, index TrashIndex, locks *txLocks, logger *slog.Logger) *RollbackService {
	return &RollbackService{
		store:  store,
		trash:  trash,
		txlog:  txlog,
		index:  index,
		locks:  locks,
		logger: logger,
	}
}

func (s *RollbackService) Rollback(ctx context.Context, id int64) (model.RollbackResponse, error) {
	release := s.locks.lock(id)
	defer release()

	tx, err := s.txlog.FindByID(ctx, id)
	if err != nil {
		return model.RollbackResponse{}, err
	}

	switch tx.Status {
	case model.StatusRolledBack:
		return model.RollbackResponse{
			TransactionID: id,
			Status:        model.RollbackOutcomeAlreadyRolledBack,
		}, nil
	case model.StatusCompleted:
		// proceed
	default:
		return model.RollbackResponse{}, fmt.Errorf("%w: transaction %d is %s",
			model.ErrNotRollbackable, id, tx.Status)
	}

	if err := s.undo(ctx, tx); err != nil {
		s.logger.Error("rollback failed", "transaction_id", id, "kind", tx.Kind, "error", err)
		return model.RollbackResponse{}, err
	}

	tx.Status = model.StatusRolledBack
	if err := s.txlog.Update(ctx, tx); err != nil {
		return model.RollbackResponse{}, err
	}

	s.logger.Info("transaction rolled back", "transaction_id", id, "kind", tx.Kind)
	return model.RollbackResponse{
		TransactionID: id,
		Status:        model.RollbackOutcomeRolledBack,
	}, nil
}

func (s *RollbackService) undo(ctx context.Context, tx *model.Transaction) error {
	switch tx.Kind {
	case model.KindCopy:
		return s.undoCreatedPaths(tx, true)
	case model.KindMkdir:
		return s.undoCreatedPaths(tx, false)
	case model.KindMove:
		return s.undoMove(tx)
	case model.KindDelete:
		return s.undoDelete(ctx, tx)
	}
	return fmt.Errorf("%w: unknown operation kind %q", model.ErrNotRollbackable, tx.Kind)
}

// undoCreatedPaths removes paths the transaction created. For mkdir the
// directory must still be empty: contents that appeared since belong to
// someone else and block the rollback.
func (s *RollbackService) undoCreatedPaths(tx *model.Transaction, recursive bool) error {
	for _, created := range tx.RollbackInfo.CreatedPaths {
		resolved, err := s.store.Resolve(created)
		if err != nil {
			return err
		}

		if _, err := os.Stat(resolved); os.IsNotExist(err) {
			continue
		}

		if recursive {
			if err := os.RemoveAll(resolved); err != nil {
				return fmt.Errorf("remove created path %q: %w", created, err)
			}
			continue
		}

		if err := removeEmptyDirTree(resolved); err != nil {
			return err
		}
	}
	return nil
}

// undoMove moves files back where they came from, verifying each restored
// file against the checksum recorded at execution time before it is accepted.
func (s *RollbackService) undoMove(tx *model.Transaction) error {
	for _, moved := range tx.RollbackInfo.MovedFiles {
		fromResolved, err := s.store.Resolve(moved.From)
		if err != nil {
			return err
		}
		toResolved, err := s.store.Resolve(moved.To)
		if err != nil {
			return err
		}

		if _, err := os.Stat(fromResolved); err == nil {
			return fmt.Errorf("%w: %s", model.ErrRestoreConflict, moved.From)
		} else if !os.IsNotExist(err) {
			return err
		}

		if err := movePath(toResolved, fromResolved); err != nil {
			return fmt.Errorf("move back %q: %w", moved.To, err)
		}
	}

	for _, rec := range tx.Metadata.Files {
		if rec.Checksum == "" {
			continue
		}
		resolved, err := s.store.Resolve(rec.Path)
		if err != nil {
			return err
		}
		sum, err := util.ChecksumFile(resolved)
		if err != nil {
			return err
		}
		if sum != rec.Checksum {
			return fmt.Errorf("%w: %s does not match pre-move checksum",
				model.ErrIntegrityFailure, rec.Path)
		}
	}
	return nil
}

func (s *RollbackService) undoDelete(ctx context.Context, tx *model.Transaction) error {
	for _, entryID := range tx.RollbackInfo.TrashEntryIDs {
		entry, err := s.index.FindByID(ctx, entryID)
		if err != nil {
			return err
		}
		if err := s.trash.Restore(ctx, entry); err != nil {
			return err
		}
	}
	return nil
}

// removeEmptyDirTree removes a directory tree that contains only empty
// directories. Any file found aborts before anything is removed.
func removeEmptyDirTree(resolved string) error {
	empty, err := isEmptyDirTree(resolved)
	if err != nil {
		return err
	}
	if !empty {
		return fmt.Errorf("%w: %s", model.ErrDirectoryNotEmpty, resolved)
	}
	return os.RemoveAll(resolved)
}

func isEmptyDirTree(resolved string) (bool, error) {
	entries, err := os.ReadDir(resolved)
	if err != nil {
		return false, err
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			return false, nil
		}
		empty, err := isEmptyDirTree(resolved + string(os.PathSeparator) + entry.Name())
		if err != nil {
			return false, err
		}
		if !empty {
			return false, nil
		}
	}
	return true, nil
}
