package domain

import "errors"

var (
	// ErrValidation marks request or transition validation failures.
	ErrValidation = errors.New("validation error")
	// ErrNotFound marks lookups for entities that do not exist.
	ErrNotFound = errors.New("not found")
	// ErrDuplicateBatch marks a resubmitted batch id rejected by the dedup ledger.
	ErrDuplicateBatch = errors.New("duplicate batch")
)
