package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusTransitions(t *testing.T) {
	tests := []struct {
		from    TransactionStatus
		to      TransactionStatus
		allowed bool
	}{
		{StatusPending, StatusApproved, true},
		{StatusPending, StatusDenied, true},
		{StatusPending, StatusCompleted, false},
		{StatusPending, StatusRolledBack, false},
		{StatusApproved, StatusCompleted, true},
		{StatusApproved, StatusFailed, true},
		{StatusApproved, StatusDenied, false},
		{StatusApproved, StatusRolledBack, false},
		{StatusCompleted, StatusRolledBack, true},
		{StatusCompleted, StatusFailed, false},
		{StatusDenied, StatusApproved, false},
		{StatusFailed, StatusRolledBack, false},
		{StatusRolledBack, StatusCompleted, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"_to_"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.allowed, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestStatusTerminal(t *testing.T) {
	assert.False(t, StatusPending.Terminal())
	assert.False(t, StatusApproved.Terminal())
	assert.True(t, StatusDenied.Terminal())
	assert.True(t, StatusCompleted.Terminal())
	assert.True(t, StatusFailed.Terminal())
	assert.True(t, StatusRolledBack.Terminal())
}

func TestOperationKind(t *testing.T) {
	assert.True(t, KindCopy.Valid())
	assert.False(t, OperationKind("truncate").Valid())

	assert.True(t, KindCopy.NeedsDestination())
	assert.True(t, KindMove.NeedsDestination())
	assert.True(t, KindMkdir.NeedsDestination())
	assert.False(t, KindDelete.NeedsDestination())
}

func TestRollbackInfoEmpty(t *testing.T) {
	assert.True(t, RollbackInfo{}.Empty())
	assert.False(t, RollbackInfo{CreatedPaths: []string{"/a"}}.Empty())
	assert.False(t, RollbackInfo{TrashEntryIDs: []string{"x"}}.Empty())
}
