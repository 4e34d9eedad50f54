package services

import (
	"errors"

	"github.com/username/finflow/backend/src/docstore"
	"github.com/username/finflow/backend/src/security"
)

// Error kinds surfaced by the services. Handlers map them to HTTP statuses with errors.Is / errors.As.
var (
	ErrUnauthenticated  = security.ErrUnauthenticated
	ErrValidation       = errors.New("validation failed")
	ErrQuoteUnavailable = errors.New("quote unavailable")
	ErrStorage          = errors.New("storage error")
	ErrNotFound         = errors.New("not found")
	ErrConflict         = errors.New("already exists")
)

// ValidationError carries a client-facing message and matches ErrValidation.
type ValidationError struct {
	Message string
}

func NewValidationError(msg string) *ValidationError {
	return &ValidationError{Message: msg}
}

func (e *ValidationError) Error() string { return e.Message }

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// storageError wraps a backend failure so it matches ErrStorage while keeping the cause for logs.
type storageError struct {
	op  string
	err error
}

func (e *storageError) Error() string { return e.op + ": " + e.err.Error() }

func (e *storageError) Unwrap() []error { return []error{ErrStorage, e.err} }

func wrapStorage(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, docstore.ErrNotFound) {
		return err
	}
	return &storageError{op: op, err: err}
}
