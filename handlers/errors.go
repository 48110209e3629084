package handlers

import "fmt"

// NotFoundError indicates that a referenced entity or user no longer exists.
type NotFoundError struct {
	message string
}

// Error returns the error message for a NotFoundError.
func (e NotFoundError) Error() string {
	return e.message
}

// NewNotFoundError returns a new error indicating that something couldn't be found.
func NewNotFoundError(formatString string, a ...interface{}) NotFoundError {
	return NotFoundError{message: fmt.Sprintf(formatString, a...)}
}

// ValidationError indicates that a change set was rejected before anything was modified.
type ValidationError struct {
	message string
}

// Error returns the error message for a ValidationError.
func (e ValidationError) Error() string {
	return e.message
}

// NewValidationError returns a new error describing an invalid change set.
func NewValidationError(formatString string, a ...interface{}) ValidationError {
	return ValidationError{message: fmt.Sprintf(formatString, a...)}
}

// PermissionError indicates that the actor isn't allowed to perform an operation.
type PermissionError struct {
	message string
}

// Error returns the error message for a PermissionError.
func (e PermissionError) Error() string {
	return e.message
}

// NewPermissionError returns a new error indicating that an operation isn't permitted.
func NewPermissionError(formatString string, a ...interface{}) PermissionError {
	return PermissionError{message: fmt.Sprintf(formatString, a...)}
}

// PersistenceError indicates that the database or file store failed. When a PersistenceError is returned from a
// workflow, nothing that the workflow wrote to the database was committed.
type PersistenceError struct {
	message string
	cause   error
}

// Error returns the error message for a PersistenceError.
func (e PersistenceError) Error() string {
	return fmt.Sprintf("%s: %s", e.message, e.cause)
}

// Cause returns the underlying error.
func (e PersistenceError) Cause() error {
	return e.cause
}

// Unwrap returns the underlying error.
func (e PersistenceError) Unwrap() error {
	return e.cause
}

// NewPersistenceError returns a new error wrapping a database or storage failure.
func NewPersistenceError(cause error, formatString string, a ...interface{}) PersistenceError {
	return PersistenceError{message: fmt.Sprintf(formatString, a...), cause: cause}
}
