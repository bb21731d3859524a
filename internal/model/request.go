package model

// ConfirmationMode controls how the gate resolves an operation that requires
// approval.
type ConfirmationMode string

const (
	// ModeInteractive blocks the submitting call on an explicit yes/no
	// supplied through the engine's confirmer.
	ModeInteractive ConfirmationMode = "interactive"
	// ModeAutoDecide applies the gate policy and never prompts: the
	// operation is either auto-approved or left awaiting approval.
	ModeAutoDecide ConfirmationMode = "auto"
	// ModePreviewOnly never executes on submit: the caller receives the
	// preview and must confirm by transaction id in a second call.
	ModePreviewOnly ConfirmationMode = "preview_only"
)

func (m ConfirmationMode) Valid() bool {
	switch m {
	case ModeInteractive, ModeAutoDecide, ModePreviewOnly:
		return true
	}
	return false
}

// OperationRequest is the input value object submitted by a dispatcher.
// Immutable once constructed; discarded after it produces a transaction.
type OperationRequest struct {
	Kind             OperationKind    `json:"kind"`
	SourcePath       string           `json:"source_path,omitempty"`
	DestPath         string           `json:"dest_path,omitempty"`
	RequestedBy      string           `json:"requested_by,omitempty"`
	ConfirmationMode ConfirmationMode `json:"confirmation_mode,omitempty"`
}

// Decision is the confirmation gate's verdict for a previewed request.
type Decision string

const (
	DecisionAutoApproved     Decision = "auto_approved"
	DecisionAwaitingApproval Decision = "awaiting_approval"
	DecisionDenied           Decision = "denied"
)

// OperationResponse is returned for submit and confirm calls.
type OperationResponse struct {
	TransactionID int64             `json:"transaction_id"`
	Status        TransactionStatus `json:"status"`
	Preview       *Preview          `json:"preview,omitempty"`
}

// ConfirmRequest resolves an awaiting-approval transaction.
type ConfirmRequest struct {
	Approve bool `json:"approve"`
}

// RollbackResponse reports the outcome of a rollback or restore call.
type RollbackResponse struct {
	TransactionID int64  `json:"transaction_id"`
	Status        string `json:"status"` // rolled_back | already_rolled_back
}

const (
	RollbackOutcomeRolledBack        = "rolled_back"
	RollbackOutcomeAlreadyRolledBack = "already_rolled_back"
)
