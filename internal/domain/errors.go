package domain

import "errors"

var (
	// ErrNotFound is returned when no entry exists for the given id.
	ErrNotFound = errors.New("entry not found")

	// ErrAlreadyExists is returned when another entry already holds the
	// same (name, producer) pair.
	ErrAlreadyExists = errors.New("an entry with this name already exists for this producer")

	// ErrInvalidEntry wraps field validation failures.
	ErrInvalidEntry = errors.New("invalid entry")
)
