package domain

import "errors"

// Errors returned by store implementations.
var (
	// ErrVersionConflict means the stored instance changed since it was read.
	ErrVersionConflict = errors.New("instance version conflict")

	// ErrAlreadyExists means an entity with the same id is already stored.
	ErrAlreadyExists = errors.New("already exists")
)
