package persistence

import "errors"

var (
	// ErrNotFound is returned when no reservation matches the lookup.
	ErrNotFound = errors.New("persistence: reservation not found")
	// ErrDuplicateCallSID is returned by Save when another record already
	// holds the same (restaurant_id, call_sid) deduplication key.
	ErrDuplicateCallSID = errors.New("persistence: duplicate call sid for restaurant")
)
