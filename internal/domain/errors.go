package domain

import "errors"

var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrValidation indicates input that fails domain validation.
	ErrValidation = errors.New("validation failed")
	// ErrConflict indicates a state transition rejected by current state.
	ErrConflict = errors.New("conflict")
)
