package oocvec

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidState is returned when an operation is not permitted in
	// the store's current phase, e.g. Insert after CombineWeights or a
	// normalization pass on a Writable store.
	ErrInvalidState = errors.New("operation not permitted in current store phase")

	// ErrEmptyStore is returned by CombineWeights when nothing was
	// inserted.
	ErrEmptyStore = errors.New("empty store: no insertions recorded")

	// ErrDegenerateVector is returned when a normalization pass meets a
	// zero vector (row pass) or a zero column sum (column pass), where
	// division would silently produce Inf or NaN.
	ErrDegenerateVector = errors.New("degenerate zero vector")

	// ErrStoreExists is returned by Open when the path holds content
	// that is not a valid finalized store layout.
	ErrStoreExists = errors.New("path exists and is not a finalized store")

	// ErrInvalidWeight is returned by Insert for weights that are not
	// positive finite numbers.
	ErrInvalidWeight = errors.New("weight must be positive")

	// ErrNotFound is returned by Lookup for labels without a stored
	// vector.
	ErrNotFound = errors.New("label not found")
)

// DuplicateFileError indicates the suffix allocation invariant was
// violated: a freshly allocated shard filename was already occupied.
// This points at external interference with the store directory.
type DuplicateFileError struct {
	Path string
}

func (e *DuplicateFileError) Error() string {
	return fmt.Sprintf("duplicate shard file: %s", e.Path)
}
