package common

import (
	"errors"
	"net/http"
)

// AppError represents an error with an attached code and HTTP status.
type AppError struct {
	Code       string
	Message    string
	HTTPStatus int
	Err        error
	Details    any
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

// Unwrap allows errors.Is/As to inspect the underlying error.
func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewAppError constructs an AppError.
func NewAppError(code, message string, status int, err error) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: status, Err: err}
}

// WriteAppError renders err with the status and code carried by an AppError,
// or as an opaque 500 otherwise.
func WriteAppError(w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		status := appErr.HTTPStatus
		if status == 0 {
			status = http.StatusInternalServerError
		}
		details := map[string]any{"code": appErr.Code, "status": status}
		if appErr.Details != nil {
			details["info"] = appErr.Details
		}
		Failure(w, status, appErr.Message, details)
		return
	}
	Failure(w, http.StatusInternalServerError, "internal error", map[string]any{"code": "INTERNAL", "status": http.StatusInternalServerError})
}
