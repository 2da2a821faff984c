package domain

import "errors"

var (
	ErrPersistence        = errors.New("persistence failure")
	ErrInvariantViolation = errors.New("pool invariant violation")
	ErrInvalidPolicy      = errors.New("invalid pool policy")
	ErrUnsupportedBackend = errors.New("unsupported store backend")
)

// PersistenceError reports a failed read or write of the preference store.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return e.Op + ": " + ErrPersistence.Error() + ": " + e.Err.Error()
}

func (e *PersistenceError) Unwrap() []error {
	return []error{ErrPersistence, e.Err}
}
