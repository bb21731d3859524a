package model

import "time"

// OperationKind identifies the kind of filesystem mutation a transaction
// performs. The set is closed: Executor and the rollback dispatch switch on it
// exhaustively, so adding a kind is a compile-time-checked extension point.
type OperationKind string

const (
	KindCopy   OperationKind = "copy"
	KindMove   OperationKind = "move"
	KindDelete OperationKind = "delete"
	KindMkdir  OperationKind = "mkdir"
)

func (k OperationKind) Valid() bool {
	switch k {
	case KindCopy, KindMove, KindDelete, KindMkdir:
		return true
	}
	return false
}

// NeedsDestination reports whether the kind requires a destination path.
func (k OperationKind) NeedsDestination() bool {
	return k == KindCopy || k == KindMove || k == KindMkdir
}

// TransactionStatus is the lifecycle state of a transaction. Transitions form
// a strict DAG: pending → approved|denied, approved → completed|failed,
// completed → rolled_back. Everything else is terminal.
type TransactionStatus string

const (
	StatusPending    TransactionStatus = "pending"
	StatusApproved   TransactionStatus = "approved"
	StatusDenied     TransactionStatus = "denied"
	StatusCompleted  TransactionStatus = "completed"
	StatusFailed     TransactionStatus = "failed"
	StatusRolledBack TransactionStatus = "rolled_back"
)

// CanTransitionTo reports whether moving from s to next is a legal step in the
// lifecycle DAG. No transition skips a state.
func (s TransactionStatus) CanTransitionTo(next TransactionStatus) bool {
	switch s {
	case StatusPending:
		return next == StatusApproved || next == StatusDenied
	case StatusApproved:
		return next == StatusCompleted || next == StatusFailed
	case StatusCompleted:
		return next == StatusRolledBack
	}
	return false
}

// Terminal reports whether the status is final for execution purposes.
// rolled_back, denied and failed can never change again; completed can still
// move to rolled_back but will never execute again.
func (s TransactionStatus) Terminal() bool {
	switch s {
	case StatusDenied, StatusCompleted, StatusFailed, StatusRolledBack:
		return true
	}
	return false
}

// FileRecord captures the per-file evidence a transaction records before and
// after mutating the filesystem.
type FileRecord struct {
	Path         string `json:"path"`
	Size         int64  `json:"size"`
	Checksum     string `json:"checksum,omitempty"`
	DestPath     string `json:"dest_path,omitempty"`
	DestChecksum string `json:"dest_checksum,omitempty"`
	State        string `json:"state,omitempty"` // pending | verified | failed | skipped
}

const (
	FileStatePending  = "pending"
	FileStateVerified = "verified"
	FileStateFailed   = "failed"
	FileStateSkipped  = "skipped"
)

// TransactionMetadata is persisted as JSON alongside the transaction row. It
// must hold enough to verify integrity and reconstruct the operation after
// the fact without touching the filesystem.
type TransactionMetadata struct {
	SourcePath string       `json:"source_path,omitempty"`
	DestPath   string       `json:"dest_path,omitempty"`
	FileCount  int          `json:"file_count"`
	TotalBytes int64        `json:"total_bytes"`
	Files      []FileRecord `json:"files,omitempty"`
	Warnings   []string     `json:"warnings,omitempty"`
	Error      string       `json:"error,omitempty"`
}

// MovedFile is one reversible unit of a completed move.
type MovedFile struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// RollbackInfo holds the undo instructions written when a transaction reaches
// completed. Delete transactions reference trash entries by id, never raw
// paths, so execution and rollback share one displacement mechanism.
type RollbackInfo struct {
	CreatedPaths  []string    `json:"created_paths,omitempty"`
	MovedFiles    []MovedFile `json:"moved_files,omitempty"`
	TrashEntryIDs []string    `json:"trash_entry_ids,omitempty"`
}

func (ri RollbackInfo) Empty() bool {
	return len(ri.CreatedPaths) == 0 && len(ri.MovedFiles) == 0 && len(ri.TrashEntryIDs) == 0
}

// Transaction is the persisted audit record of one attempted operation. Rows
// are never deleted; status updates are the only mutation.
type Transaction struct {
	ID           int64               `json:"id"`
	CreatedAt    time.Time           `json:"created_at"`
	Kind         OperationKind       `json:"kind"`
	Status       TransactionStatus   `json:"status"`
	RequestedBy  string              `json:"requested_by,omitempty"`
	UserApproved bool                `json:"user_approved"`
	Metadata     TransactionMetadata `json:"metadata"`
	RollbackInfo RollbackInfo        `json:"rollback_info"`
}

// TransactionQuery filters ListTransactions.
type TransactionQuery struct {
	Kind   OperationKind
	Status TransactionStatus
	Since  time.Time
	Limit  int
	Offset int
}
