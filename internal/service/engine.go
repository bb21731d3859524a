package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go-file-guard/internal/event"
	"go-file-guard/internal/metrics"
	"go-file-guard/internal/model"
	"go-file-guard/internal/storage"
)

// Confirmer resolves an interactive approval request. It receives the
// preview and returns the user's verdict; blocking is expected (a CLI prompt
// blocks on stdin).
type Confirmer func(pv model.Preview) (bool, error)

// Engine is the entry point for every operation. It owns the submit →
// confirm → execute → rollback lifecycle and guarantees that no filesystem
// mutation happens outside a logged, approved transaction.
type Engine struct {
	store     storage.Storage
	planner   *Planner
	gate      *Gate
	executor  *Executor
	rollback  *RollbackService
	trash     *TrashService
	sweeper   *Sweeper
	txlog     TransactionLog
	index     TrashIndex
	pathLocks *PathLockManager
	txLocks   *txLocks
	confirmer Confirmer
	bus       event.Bus
	logger    *slog.Logger

	approvalTimeout time.Duration

	// heldMu guards held: the parked path-lock releases of transactions
	// still awaiting approval. The lock is acquired before planning and
	// stays claimed until the transaction completes, is denied or times
	// out, so nothing can mutate previewed paths under a pending preview.
	heldMu sync.Mutex
	held   map[int64]func()
}

// EngineConfig carries the policy knobs the engine needs.
type EngineConfig struct {
	AutoApproveBytes   int64
	AlwaysConfirmKinds []string
	ApprovalTimeout    time.Duration
	RetentionWindow    time.Duration
	TrashSizeCap       int64
	SweepInterval      time.Duration
}

func NewEngine(store storage.Storage, trash *TrashService, txlog TransactionLog, index TrashIndex, bus event.Bus, logger *slog.Logger, cfg EngineConfig) *Engine {
	locks := newTxLocks()
	e := &Engine{
		store:           store,
		planner:         NewPlanner(store),
		gate:            NewGate(cfg.AutoApproveBytes, cfg.AlwaysConfirmKinds),
		trash:           trash,
		txlog:           txlog,
		index:           index,
		pathLocks:       NewPathLockManager(),
		txLocks:         locks,
		bus:             bus,
		logger:          logger,
		approvalTimeout: cfg.ApprovalTimeout,
		held:            make(map[int64]func()),
	}
	e.executor = NewExecutor(store, trash)
	e.rollback = NewRollbackService(store, trash, txlog, index, locks, logger)
	e.sweeper = NewSweeper(trash, index, txlog, locks, bus, logger,
		cfg.RetentionWindow, cfg.TrashSizeCap, cfg.SweepInterval)
	return e
}

// SetConfirmer installs the interactive approval callback. Without one,
// interactive submissions degrade to awaiting approval.
func (e *Engine) SetConfirmer(c Confirmer) {
	e.confirmer = c
}

// Sweeper exposes the retention sweeper for the app to run on its ticker.
func (e *Engine) Sweeper() *Sweeper {
	return e.sweeper
}

// Submit previews the request, records it, and lets the gate decide what
// happens next. Every submission leaves a transaction row behind, including
// ones denied on the spot. The path lock is claimed before planning and held
// through execution; for awaiting-approval transactions it stays claimed
// until the confirm call, denial or timeout resolves them.
func (e *Engine) Submit(ctx context.Context, req model.OperationRequest) (model.OperationResponse, error) {
	release := e.pathLocks.Acquire(req.SourcePath, req.DestPath)
	kept := false
	defer func() {
		if !kept {
			release()
		}
	}()

	pv, err := e.planner.Plan(req)
	if err != nil {
		return model.OperationResponse{}, err
	}

	decision := e.gate.Decide(pv, req.ConfirmationMode)
	metrics.OperationsSubmitted.WithLabelValues(string(req.Kind), string(decision)).Inc()

	tx := &model.Transaction{
		Kind:        req.Kind,
		Status:      model.StatusPending,
		RequestedBy: req.RequestedBy,
		Metadata:    metadataFromPreview(pv),
	}
	if err := e.txlog.Create(ctx, tx); err != nil {
		return model.OperationResponse{}, err
	}
	e.publish(event.TypeOperationSubmitted, tx)

	if pv.Fatal {
		if err := e.deny(ctx, tx, "preview found no viable operation"); err != nil {
			return model.OperationResponse{}, err
		}
		return model.OperationResponse{TransactionID: tx.ID, Status: tx.Status, Preview: pv}, nil
	}

	switch decision {
	case model.DecisionAutoApproved:
		if err := e.approve(ctx, tx, false); err != nil {
			return model.OperationResponse{}, err
		}
		execErr := e.execute(ctx, tx)
		return model.OperationResponse{TransactionID: tx.ID, Status: tx.Status, Preview: pv}, execErr

	case model.DecisionAwaitingApproval:
		if req.ConfirmationMode == model.ModeInteractive && e.confirmer != nil {
			return e.resolveInteractively(ctx, tx, pv)
		}
		e.keepLock(tx.ID, release)
		kept = true
		return model.OperationResponse{TransactionID: tx.ID, Status: tx.Status, Preview: pv}, nil
	}

	return model.OperationResponse{}, fmt.Errorf("unhandled gate decision %q", decision)
}

// Confirm resolves a transaction that is awaiting approval. Approving sets
// user_approved and executes; anything not pending is rejected.
func (e *Engine) Confirm(ctx context.Context, id int64, approve bool) (model.OperationResponse, error) {
	release := e.txLocks.lock(id)
	defer release()

	tx, err := e.txlog.FindByID(ctx, id)
	if err != nil {
		return model.OperationResponse{}, err
	}
	if tx.Status != model.StatusPending {
		return model.OperationResponse{}, fmt.Errorf("%w: transaction %d is %s",
			model.ErrNotAwaiting, id, tx.Status)
	}

	// Reclaim the path lock parked at submit time. A transaction surviving a
	// process restart has no parked release, so acquire fresh.
	pathRelease := e.takeLock(id)
	if pathRelease == nil {
		pathRelease = e.pathLocks.Acquire(tx.Metadata.SourcePath, tx.Metadata.DestPath)
	}
	defer pathRelease()

	if !approve {
		if err := e.deny(ctx, tx, "denied by user"); err != nil {
			return model.OperationResponse{}, err
		}
		return model.OperationResponse{TransactionID: id, Status: tx.Status}, nil
	}

	if err := e.approve(ctx, tx, true); err != nil {
		return model.OperationResponse{}, err
	}
	execErr := e.execute(ctx, tx)
	return model.OperationResponse{TransactionID: id, Status: tx.Status}, execErr
}

// Rollback undoes a completed transaction.
func (e *Engine) Rollback(ctx context.Context, id int64) (model.RollbackResponse, error) {
	resp, err := e.rollback.Rollback(ctx, id)
	outcome := "error"
	var kind model.OperationKind
	if tx, findErr := e.txlog.FindByID(ctx, id); findErr == nil {
		kind = tx.Kind
		if err == nil {
			outcome = resp.Status
			e.publish(event.TypeOperationRolledBack, tx)
		}
	}
	metrics.Rollbacks.WithLabelValues(string(kind), outcome).Inc()
	if err != nil && errors.Is(err, model.ErrIntegrityFailure) {
		metrics.IntegrityFailures.Inc()
	}
	return resp, err
}

// RestoreTrashEntry brings one displaced item back without rolling back the
// whole transaction. When it was the transaction's last remaining entry, the
// owning delete is marked rolled back.
func (e *Engine) RestoreTrashEntry(ctx context.Context, entryID string) (model.TrashEntry, error) {
	entry, err := e.index.FindByID(ctx, entryID)
	if err != nil {
		return model.TrashEntry{}, err
	}

	release := e.txLocks.lock(entry.TransactionID)
	defer release()

	// Re-read under the lock: a concurrent rollback may have restored it.
	entry, err = e.index.FindByID(ctx, entryID)
	if err != nil {
		return model.TrashEntry{}, err
	}

	if err := e.trash.Restore(ctx, entry); err != nil {
		return model.TrashEntry{}, err
	}
	e.publish(event.TypeTrashRestored, &model.Transaction{ID: entry.TransactionID})

	remaining, err := e.index.ListByTransaction(ctx, entry.TransactionID)
	if err != nil {
		return entry, err
	}
	if len(remaining) > 0 {
		return entry, nil
	}

	tx, err := e.txlog.FindByID(ctx, entry.TransactionID)
	if err != nil {
		return entry, err
	}
	if tx.Status == model.StatusCompleted {
		tx.Status = model.StatusRolledBack
		if err := e.txlog.Update(ctx, tx); err != nil {
			return entry, err
		}
		e.publish(event.TypeOperationRolledBack, tx)
	}
	return entry, nil
}

// RestoreTransaction restores every trash entry a completed delete left
// behind, keyed by the owning transaction instead of individual entry ids.
func (e *Engine) RestoreTransaction(ctx context.Context, id int64) (model.RollbackResponse, error) {
	tx, err := e.txlog.FindByID(ctx, id)
	if err != nil {
		return model.RollbackResponse{}, err
	}
	if tx.Kind != model.KindDelete {
		return model.RollbackResponse{}, fmt.Errorf(
			"%w: %s transactions have no trash entries to restore", model.ErrNotRollbackable, tx.Kind)
	}
	return e.Rollback(ctx, id)
}

// ExpirePending denies transactions that have waited for approval longer
// than the configured timeout.
func (e *Engine) ExpirePending(ctx context.Context) (int, error) {
	cutoff := time.Now().UTC().Add(-e.approvalTimeout)
	stale, err := e.txlog.FindStaleAwaiting(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, tx := range stale {
		release := e.txLocks.lock(tx.ID)
		current, err := e.txlog.FindByID(ctx, tx.ID)
		if err != nil || current.Status != model.StatusPending {
			release()
			continue
		}
		if err := e.deny(ctx, current, "approval timed out"); err != nil {
			release()
			return expired, err
		}
		if pathRelease := e.takeLock(tx.ID); pathRelease != nil {
			pathRelease()
		}
		release()
		expired++
	}

	if expired > 0 {
		e.logger.Info("expired pending transactions", "count", expired)
	}
	return expired, nil
}

func (e *Engine) GetTransaction(ctx context.Context, id int64) (*model.Transaction, error) {
	return e.txlog.FindByID(ctx, id)
}

func (e *Engine) ListTransactions(ctx context.Context, q model.TransactionQuery) ([]*model.Transaction, error) {
	return e.txlog.List(ctx, q)
}

func (e *Engine) ListTrash(ctx context.Context, q model.TrashQuery) ([]model.TrashEntry, error) {
	return e.trash.List(ctx, q)
}

func (e *Engine) Sweep(ctx context.Context) (SweepResult, error) {
	return e.sweeper.RunOnce(ctx)
}

func (e *Engine) resolveInteractively(ctx context.Context, tx *model.Transaction, pv *model.Preview) (model.OperationResponse, error) {
	approved, err := e.confirmer(*pv)
	if err != nil {
		return model.OperationResponse{}, fmt.Errorf("confirmation prompt: %w", err)
	}

	if !approved {
		if err := e.deny(ctx, tx, "denied by user"); err != nil {
			return model.OperationResponse{}, err
		}
		return model.OperationResponse{TransactionID: tx.ID, Status: tx.Status, Preview: pv}, nil
	}

	if err := e.approve(ctx, tx, true); err != nil {
		return model.OperationResponse{}, err
	}
	execErr := e.execute(ctx, tx)
	return model.OperationResponse{TransactionID: tx.ID, Status: tx.Status, Preview: pv}, execErr
}

func (e *Engine) approve(ctx context.Context, tx *model.Transaction, byUser bool) error {
	if err := e.transition(tx, model.StatusApproved); err != nil {
		return err
	}
	tx.UserApproved = byUser
	if err := e.txlog.Update(ctx, tx); err != nil {
		return err
	}
	e.publish(event.TypeOperationApproved, tx)
	return nil
}

func (e *Engine) deny(ctx context.Context, tx *model.Transaction, reason string) error {
	if err := e.transition(tx, model.StatusDenied); err != nil {
		return err
	}
	tx.Metadata.Warnings = append(tx.Metadata.Warnings, reason)
	if err := e.txlog.Update(ctx, tx); err != nil {
		return err
	}
	e.logger.Info("transaction denied", "transaction_id", tx.ID, "reason", reason)
	e.publish(event.TypeOperationDenied, tx)
	return nil
}

// keepLock parks a path-lock release for a transaction left awaiting
// approval, so the paths stay reserved until the approval resolves.
func (e *Engine) keepLock(id int64, release func()) {
	e.heldMu.Lock()
	e.held[id] = release
	e.heldMu.Unlock()
}

// takeLock removes and returns the parked release for a transaction, or nil
// when none was parked.
func (e *Engine) takeLock(id int64) func() {
	e.heldMu.Lock()
	defer e.heldMu.Unlock()
	release := e.held[id]
	delete(e.held, id)
	return release
}

// execute runs an approved transaction and records the terminal status.
// Callers hold the transaction's path locks.
func (e *Engine) execute(ctx context.Context, tx *model.Transaction) error {
	start := time.Now()
	execErr := e.executor.Execute(ctx, tx)
	if errors.Is(execErr, model.ErrTrashCapacityExceeded) {
		// Try to free space before refusing the delete. Entries pinned by
		// non-terminal transactions stay put, so this can still come up short.
		if _, sweepErr := e.sweeper.RunOnce(ctx); sweepErr == nil {
			execErr = e.executor.Execute(ctx, tx)
		}
	}
	metrics.ExecutionDuration.WithLabelValues(string(tx.Kind)).Observe(time.Since(start).Seconds())

	if execErr != nil {
		tx.Metadata.Error = execErr.Error()
		if errors.Is(execErr, model.ErrIntegrityFailure) {
			metrics.IntegrityFailures.Inc()
		}
		if err := e.transition(tx, model.StatusFailed); err != nil {
			return err
		}
		if err := e.txlog.Update(ctx, tx); err != nil {
			return err
		}
		metrics.OperationsExecuted.WithLabelValues(string(tx.Kind), string(tx.Status)).Inc()
		e.logger.Error("transaction failed",
			"transaction_id", tx.ID, "kind", tx.Kind, "error", execErr)
		e.publish(event.TypeOperationFailed, tx)
		return execErr
	}

	if err := e.transition(tx, model.StatusCompleted); err != nil {
		return err
	}
	if err := e.txlog.Update(ctx, tx); err != nil {
		return err
	}
	metrics.OperationsExecuted.WithLabelValues(string(tx.Kind), string(tx.Status)).Inc()
	e.logger.Info("transaction completed",
		"transaction_id", tx.ID, "kind", tx.Kind,
		"files", tx.Metadata.FileCount, "bytes", tx.Metadata.TotalBytes)
	e.publish(event.TypeOperationCompleted, tx)
	return nil
}

func (e *Engine) transition(tx *model.Transaction, next model.TransactionStatus) error {
	if !tx.Status.CanTransitionTo(next) {
		return fmt.Errorf("%w: %s -> %s", model.ErrIllegalTransition, tx.Status, next)
	}
	tx.Status = next
	return nil
}

func (e *Engine) publish(t event.Type, tx *model.Transaction) {
	e.bus.Publish(event.Event{
		Type:          t,
		TransactionID: tx.ID,
		Payload:       tx,
		ActorID:       tx.RequestedBy,
	})
}

func metadataFromPreview(pv *model.Preview) model.TransactionMetadata {
	files := make([]model.FileRecord, 0, len(pv.Files))
	for _, f := range pv.Files {
		files = append(files, model.FileRecord{
			Path:  f.Path,
			Size:  f.Size,
			State: model.FileStatePending,
		})
	}
	return model.TransactionMetadata{
		SourcePath: pv.SourcePath,
		DestPath:   pv.DestPath,
		FileCount:  pv.FileCount,
		TotalBytes: pv.TotalBytes,
		Files:      files,
		Warnings:   pv.Warnings,
	}
}
