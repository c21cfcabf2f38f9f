package repository

import "errors"

var (
	// ErrNotFound is returned when a requested record doesn't exist
	ErrNotFound = errors.New("not found")

	// ErrAmbiguousID is returned when an ID prefix matches more than one record
	ErrAmbiguousID = errors.New("ambiguous id prefix")

	// ErrInvalidInput is returned when input validation fails
	ErrInvalidInput = errors.New("invalid input")
)
