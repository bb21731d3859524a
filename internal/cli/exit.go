package cli

import (
	"errors"
	"os"

	"go-file-guard/internal/model"
)

// Exit codes scripts can branch on.
const (
	exitError     = 1
	exitDenied    = 2
	exitNotFound  = 3
	exitConflict  = 4
	exitIntegrity = 5
)

// errDenied marks a submission that ended denied (by the user, the gate, or
// a fatal preview).
var errDenied = errors.New("operation denied")

func exitCodeFor(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, errDenied):
		return exitDenied
	case errors.Is(err, model.ErrIntegrityFailure):
		return exitIntegrity
	case errors.Is(err, model.ErrTransactionNotFound),
		errors.Is(err, model.ErrTrashEntryNotFound),
		errors.Is(err, os.ErrNotExist):
		return exitNotFound
	case errors.Is(err, model.ErrNotAwaiting),
		errors.Is(err, model.ErrNotApproved),
		errors.Is(err, model.ErrNotRollbackable),
		errors.Is(err, model.ErrAlreadyRolledBack),
		errors.Is(err, model.ErrRestoreConflict),
		errors.Is(err, model.ErrDirectoryNotEmpty),
		errors.Is(err, model.ErrIllegalTransition),
		errors.Is(err, model.ErrTrashCapacityExceeded):
		return exitConflict
	}
	return exitError
}
