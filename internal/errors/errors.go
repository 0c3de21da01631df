package errors

import (
	"errors"
	"net/http"
)

// Pipeline error taxonomy. RepoCheck and Committing failures are fatal to a
// pipeline run; branch and push failures degrade the run without failing it.
var (
	ErrNotARepository     = errors.New("path is not a git repository")
	ErrInitFailed         = errors.New("repository initialization failed")
	ErrCommitFailed       = errors.New("commit failed")
	ErrNoChanges          = errors.New("no changes to commit")
	ErrBranchCreateFailed = errors.New("branch creation failed")
	ErrPushFailed         = errors.New("push failed")
	ErrNoRemote           = errors.New("no remote configured")
)

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool { return errors.Is(err, target) }

// Fatal reports whether err aborts a pipeline run. Non-fatal errors are
// swallowed at the pipeline boundary and only logged.
func Fatal(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, ErrNoChanges),
		errors.Is(err, ErrBranchCreateFailed),
		errors.Is(err, ErrPushFailed),
		errors.Is(err, ErrNoRemote):
		return false
	}
	return true
}

type ErrorType string

const (
	ErrorTypeNotFound   ErrorType = "NOT_FOUND"
	ErrorTypeValidation ErrorType = "VALIDATION"
	ErrorTypeInternal   ErrorType = "INTERNAL"
)

// Error is the HTTP-facing error shape used by the API layer.
type Error struct {
	Type    ErrorType `json:"type"`
	Message string    `json:"message"`
	Code    int       `json:"code"`
	Details any       `json:"details,omitempty"`
}

func (e *Error) Error() string {
	return e.Message
}

func NotFound(message string) *Error {
	return &Error{
		Type:    ErrorTypeNotFound,
		Message: message,
		Code:    http.StatusNotFound,
	}
}

func ValidationError(message string, details any) *Error {
	return &Error{
		Type:    ErrorTypeValidation,
		Message: message,
		Code:    http.StatusBadRequest,
		Details: details,
	}
}

func Internal(message string) *Error {
	return &Error{
		Type:    ErrorTypeInternal,
		Message: message,
		Code:    http.StatusInternalServerError,
	}
}
