package event

import "time"

type Type string

const (
	TypeOperationSubmitted  Type = "operation.submitted"
	TypeOperationApproved   Type = "operation.approved"
	TypeOperationDenied     Type = "operation.denied"
	TypeOperationCompleted  Type = "operation.completed"
	TypeOperationFailed     Type = "operation.failed"
	TypeOperationRolledBack Type = "operation.rolled_back"
	TypeTrashRestored       Type = "trash.restored"
	TypeTrashPurged         Type = "trash.purged"
)

type Event struct {
	ID            string    `json:"id"`
	Type          Type      `json:"type"`
	TransactionID int64     `json:"transaction_id,omitempty"`
	Payload       any       `json:"payload,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
	ActorID       string    `json:"actor_id,omitempty"`
}

type Bus interface {
	Publish(e Event)
	Subscribe() (<-chan Event, func())
}
