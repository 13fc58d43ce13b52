package domain

import (
	"fmt"
	"net/http"

	"github.com/boxscan/scan-service/pkg/errors"
)

// Scan error taxonomy. Constructors wrap these in *errors.AppError, so
// callers match with errors.Is and the HTTP layer still gets a status.
var (
	ErrInvalidBoxCode  = errors.New("INVALID_BOX_CODE", "malformed box code", http.StatusBadRequest)
	ErrBoxNotFound     = errors.New("BOX_NOT_FOUND", "box not found", http.StatusNotFound)
	ErrLookupFailed    = errors.New("LOOKUP_FAILED", "remote lookup failed", http.StatusBadGateway)
	ErrMissingContext  = errors.New("MISSING_CONTEXT", "no store selected", http.StatusUnprocessableEntity)
	ErrEmptyBox        = errors.New("EMPTY_BOX", "box has no contents", http.StatusUnprocessableEntity)
	ErrRemoteWrite     = errors.New("REMOTE_WRITE_FAILED", "remote write failed", http.StatusBadGateway)
	ErrNothingPending  = errors.New("NOTHING_PENDING", "no stock-out awaiting confirmation", http.StatusConflict)
	ErrSessionNotFound = errors.New("SESSION_NOT_FOUND", "scan session not found", http.StatusNotFound)
	ErrSessionBusy     = errors.New("SESSION_BUSY", "scan session is busy", http.StatusConflict)
)

func wrap(sentinel *errors.AppError, message string, cause error) *errors.AppError {
	err := error(sentinel)
	if cause != nil {
		err = fmt.Errorf("%w: %w", sentinel, cause)
	}
	return &errors.AppError{
		Err:        err,
		Code:       sentinel.Code,
		Message:    message,
		StatusCode: sentinel.StatusCode,
	}
}

// ValidationError reports a scanned code that is not BOX-YYYY-NNNN
func ValidationError(raw string) *errors.AppError {
	return wrap(ErrInvalidBoxCode, fmt.Sprintf("%q is not a box code (expected BOX-YYYY-NNNN)", raw), nil)
}

// NotFoundError reports a well-formed code with no exact directory match
func NotFoundError(code string) *errors.AppError {
	return wrap(ErrBoxNotFound, fmt.Sprintf("box %s not found", code), nil)
}

// LookupError reports a failed remote read
func LookupError(what string, cause error) *errors.AppError {
	return wrap(ErrLookupFailed, "failed to look up "+what, cause)
}

// MissingContextError reports a scan issued without a selected store
func MissingContextError() *errors.AppError {
	return wrap(ErrMissingContext, "select a store before scanning", nil)
}

// EmptyBoxError reports a resolved box with no content lines
func EmptyBoxError(code string) *errors.AppError {
	return wrap(ErrEmptyBox, fmt.Sprintf("box %s has no contents", code), nil)
}

// RemoteWriteError reports a failed check-in or transaction append
func RemoteWriteError(what string, cause error) *errors.AppError {
	return wrap(ErrRemoteWrite, what+" failed", cause)
}
