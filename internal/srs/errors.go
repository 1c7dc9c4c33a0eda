package srs

import "errors"

// Sentinel errors returned by the scheduling engine.
// Check with errors.Is: errors.Is(err, srs.ErrUnknownItem)
var (
	// ErrUnknownItem means a review referenced an item id that is not in the
	// catalog. No state is mutated.
	ErrUnknownItem = errors.New("srs: unknown item")
	// ErrInvalidRating means the rating is outside the ordinal range of the
	// configured policy. No state is mutated.
	ErrInvalidRating = errors.New("srs: invalid rating")
	// ErrConcurrentModification means an optimistic state update lost a race
	// with another writer. The caller must retry the whole operation.
	ErrConcurrentModification = errors.New("srs: concurrent modification")
	// ErrStorageUnavailable wraps storage collaborator failures. The engine
	// performs no retries; retry policy belongs to the caller.
	ErrStorageUnavailable = errors.New("srs: storage unavailable")
)
