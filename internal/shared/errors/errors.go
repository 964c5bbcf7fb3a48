package errors

import (
	"errors"
	"fmt"
)

// AppError represents an application error with a stable code for clients.
type AppError struct {
	Code    string // Error code for client
	Message string // Human-readable message
	Err     error  // Underlying error
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Err
}

// ErrCodeConsistencyFault marks ledger corruption. Callers cannot repair it
// with changed input; posting against the affected account halts until an
// operator resolves it.
const ErrCodeConsistencyFault = "CONSISTENCY_FAULT"

// ConsistencyFault creates a consistency fault error. These are hard faults:
// they signal ledger corruption, not bad caller input.
func ConsistencyFault(message string, err error) *AppError {
	return &AppError{
		Code:    ErrCodeConsistencyFault,
		Message: message,
		Err:     err,
	}
}

// GetAppError extracts an AppError from an error
func GetAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return nil
}
