package study

import (
	"errors"
	"fmt"
)

// ErrSessionNotFound indicates that no live session or checkpoint exists.
var ErrSessionNotFound = errors.New("session not found")

// ServiceError wraps errors from the study service with the failed operation.
type ServiceError struct {
	// Operation is the operation that failed (e.g., "review", "answer")
	Operation string
	// Message is a human-readable description of the error
	Message string
	// Err is the underlying error that caused the failure
	Err error
}

// Error implements the error interface for ServiceError.
func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s operation failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("%s operation failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *ServiceError) Unwrap() error {
	return e.Err
}

func newServiceError(operation, message string, err error) *ServiceError {
	return &ServiceError{Operation: operation, Message: message, Err: err}
}
