package service

import (
	"context"
	"log/slog"
	"time"

	"go-file-guard/internal/event"
	"go-file-guard/internal/metrics"
	"go-file-guard/internal/model"
)

// Sweeper enforces the trash retention window and size cap. Entries past the
// window are purged first; if the trash is still over the cap the oldest
// entries go next. Entries whose owning transaction has not reached a
// terminal status are never purged: their files may still be needed for a
// rollback.
type Sweeper struct {
	trash    *TrashService
	index    TrashIndex
	txlog    TransactionLog
	locks    *txLocks
	bus      event.Bus
	logger   *slog.Logger
	window   time.Duration
	sizeCap  int64
	interval time.Duration
}

type SweepResult struct {
	Purged     int   `json:"purged"`
	BytesFreed int64 `json:"bytes_freed"`
	Skipped    int   `json:"skipped"`
}

func NewSweeper(trash *TrashService, index TrashIndex, txlog TransactionLog, locks *txLocks, bus event.Bus, logger *slog.Logger, window time.Duration, sizeCap int64, interval time.Duration) *Sweeper {
	return &Sweeper{
		trash:    trash,
		index:    index,
		txlog:    txlog,
		locks:    locks,
		bus:      bus,
		logger:   logger,
		window:   window,
		sizeCap:  sizeCap,
		interval: interval,
	}
}

// Start runs the sweep on a ticker until the context is cancelled.
func (s *Sweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.RunOnce(ctx); err != nil {
				s.logger.Error("trash sweep failed", "error", err)
			}
		}
	}
}

// RunOnce performs a single sweep pass.
func (s *Sweeper) RunOnce(ctx context.Context) (SweepResult, error) {
	var result SweepResult

	cutoff := time.Now().UTC().Add(-s.window)
	expired, err := s.index.List(ctx, model.TrashQuery{OlderThan: cutoff})
	if err != nil {
		return result, err
	}

	for _, entry := range expired {
		s.purgeOne(ctx, entry, &result)
	}

	// Size pressure: evict oldest-first until under the cap.
	total, err := s.index.TotalSize(ctx)
	if err != nil {
		return result, err
	}
	if total <= s.sizeCap {
		s.report(result)
		return result, nil
	}

	entries, err := s.index.List(ctx, model.TrashQuery{})
	if err != nil {
		return result, err
	}

	for _, entry := range entries {
		if total <= s.sizeCap {
			break
		}
		if s.purgeOne(ctx, entry, &result) {
			total -= entry.Size
		}
	}

	s.report(result)
	return result, nil
}

// purgeOne removes a single entry under its transaction's lock, re-checking
// the owning transaction's status after the lock is held.
func (s *Sweeper) purgeOne(ctx context.Context, entry model.TrashEntry, result *SweepResult) bool {
	release := s.locks.lock(entry.TransactionID)
	defer release()

	// The entry may have been restored or purged while we waited.
	entry, err := s.index.FindByID(ctx, entry.ID)
	if err != nil {
		return false
	}

	tx, err := s.txlog.FindByID(ctx, entry.TransactionID)
	if err != nil {
		s.logger.Error("sweep: transaction lookup failed",
			"transaction_id", entry.TransactionID, "error", err)
		return false
	}
	if !tx.Status.Terminal() {
		result.Skipped++
		return false
	}

	freed, err := s.trash.Purge(ctx, entry)
	if err != nil {
		s.logger.Error("sweep: purge failed", "trash_entry_id", entry.ID, "error", err)
		return false
	}

	result.Purged++
	result.BytesFreed += freed
	metrics.TrashEntriesPurged.Inc()
	metrics.TrashBytesFreed.Add(float64(freed))
	s.bus.Publish(event.Event{
		Type:          event.TypeTrashPurged,
		TransactionID: entry.TransactionID,
		Payload:       entry,
	})
	return true
}

func (s *Sweeper) report(result SweepResult) {
	if result.Purged == 0 && result.Skipped == 0 {
		return
	}
	s.logger.Info("trash sweep finished",
		"purged", result.Purged,
		"bytes_freed", result.BytesFreed,
		"skipped", result.Skipped)
}
