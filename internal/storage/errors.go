package storage

import "errors"

// Sentinel errors shared by every store implementation. Drivers map their
// native errors onto these so callers can test with errors.Is.
var (
	// ErrNotFound is returned when a product or session has no rows.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey is returned when a product id or history entry id is
	// already stored. History is append-only.
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrInvalidInput is returned for records that cannot be stored, such as
	// history for an unknown product.
	ErrInvalidInput = errors.New("invalid input")
)
