package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"

	"go-file-guard/internal/model"
	"go-file-guard/pkg/apierror"
)

func writeSuccess(w http.ResponseWriter, status int, data any, meta *model.Meta) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(model.APIResponse{
		Success: true,
		Data:    data,
		Meta:    meta,
	})
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	body := &model.APIError{
		Code:    "INTERNAL_ERROR",
		Message: "Unexpected server error",
	}

	var apiErr *apierror.APIError
	if errors.As(err, &apiErr) {
		status = apiErr.HTTPStatus
		body.Code = apiErr.Code
		body.Message = apiErr.Message
		body.Details = apiErr.Details
	} else if errors.Is(err, model.ErrInvalidRequest) {
		status = http.StatusBadRequest
		body.Code = "BAD_REQUEST"
		body.Message = "Invalid operation request"
		body.Details = err.Error()
	} else if errors.Is(err, model.ErrTransactionNotFound) {
		status = http.StatusNotFound
		body.Code = "NOT_FOUND"
		body.Message = "Transaction not found"
	} else if errors.Is(err, model.ErrTrashEntryNotFound) {
		status = http.StatusNotFound
		body.Code = "NOT_FOUND"
		body.Message = "Trash entry not found"
	} else if errors.Is(err, model.ErrNotAwaiting) {
		status = http.StatusConflict
		body.Code = "CONFLICT"
		body.Message = "Transaction is not awaiting approval"
		body.Details = err.Error()
	} else if errors.Is(err, model.ErrNotApproved) {
		status = http.StatusConflict
		body.Code = "CONFLICT"
		body.Message = "Transaction is not approved for execution"
		body.Details = err.Error()
	} else if errors.Is(err, model.ErrNotRollbackable) {
		status = http.StatusConflict
		body.Code = "CONFLICT"
		body.Message = "Transaction cannot be rolled back"
		body.Details = err.Error()
	} else if errors.Is(err, model.ErrAlreadyRolledBack) {
		status = http.StatusConflict
		body.Code = "CONFLICT"
		body.Message = "Transaction already rolled back"
	} else if errors.Is(err, model.ErrRestoreConflict) {
		status = http.StatusConflict
		body.Code = "CONFLICT"
		body.Message = "Restore target is occupied"
		body.Details = err.Error()
	} else if errors.Is(err, model.ErrDirectoryNotEmpty) {
		status = http.StatusConflict
		body.Code = "CONFLICT"
		body.Message = "Directory is not empty"
		body.Details = err.Error()
	} else if errors.Is(err, model.ErrIllegalTransition) {
		status = http.StatusConflict
		body.Code = "CONFLICT"
		body.Message = "Illegal status transition"
		body.Details = err.Error()
	} else if errors.Is(err, model.ErrIntegrityFailure) {
		status = http.StatusUnprocessableEntity
		body.Code = "INTEGRITY_FAILURE"
		body.Message = "Checksum verification failed"
		body.Details = err.Error()
	} else if errors.Is(err, model.ErrTrashCapacityExceeded) {
		status = http.StatusInsufficientStorage
		body.Code = "TRASH_FULL"
		body.Message = "Trash capacity exceeded"
		body.Details = err.Error()
	} else if errors.Is(err, model.ErrTokenNotFound) || errors.Is(err, model.ErrInvalidToken) {
		status = http.StatusUnauthorized
		body.Code = "UNAUTHORIZED"
		body.Message = "Invalid or expired token"
	} else if errors.Is(err, model.ErrInvalidCredentials) {
		status = http.StatusUnauthorized
		body.Code = "UNAUTHORIZED"
		body.Message = "Invalid credentials"
	} else if errors.Is(err, model.ErrUserNotFound) {
		status = http.StatusNotFound
		body.Code = "NOT_FOUND"
		body.Message = "User not found"
	} else if errors.Is(err, os.ErrPermission) {
		status = http.StatusForbidden
		body.Code = "PERMISSION_DENIED"
		body.Message = "Permission denied on the filesystem"
		body.Details = err.Error()
	} else if errors.Is(err, os.ErrNotExist) {
		status = http.StatusNotFound
		body.Code = "NOT_FOUND"
		body.Message = "Path not found"
		body.Details = err.Error()
	} else {
		// Log unclassified errors so they are visible in container logs.
		slog.Error("unhandled error in writeError", "error", err.Error())
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(model.APIResponse{
		Success: false,
		Error:   body,
	})
}
