// Package sentinel holds the storage-level facts that stores report and
// services translate into domain errors.
package sentinel

import "errors"

var (
	// ErrNotFound means no row matched the lookup.
	ErrNotFound = errors.New("not found")
	// ErrConflict means a uniqueness constraint or a compare-and-swap
	// precondition did not hold, so another writer got there first.
	ErrConflict = errors.New("conflict")
)
