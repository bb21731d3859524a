package model

import "errors"

var (
	// Request validation errors
	ErrInvalidRequest = errors.New("invalid request")

	// Transaction lifecycle errors
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrNotApproved         = errors.New("transaction is not approved for execution")
	ErrNotAwaiting         = errors.New("transaction is not awaiting approval")
	ErrIllegalTransition   = errors.New("illegal status transition")

	// Rollback errors
	ErrAlreadyRolledBack = errors.New("transaction already rolled back")
	ErrNotRollbackable   = errors.New("transaction cannot be rolled back")
	ErrRestoreConflict   = errors.New("restore target is occupied")
	ErrDirectoryNotEmpty = errors.New("directory not empty")

	// Executor errors
	ErrIntegrityFailure = errors.New("checksum verification failed")

	// Trash errors
	ErrTrashEntryNotFound    = errors.New("trash entry not found")
	ErrTrashCapacityExceeded = errors.New("trash capacity exceeded")

	// Auth errors
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
	ErrTokenNotFound      = errors.New("refresh token not found")
	ErrUserNotFound       = errors.New("user not found")
)
