// Package persistence defines the storage capability consumed by the
// reservation service, together with the data shapes stored there. Concrete
// backends live in the memory, sqlite, and postgres subpackages.
package persistence

import (
	"context"
	"time"
)

// Reservation is a persisted reservation record. CallSID is the telephony
// session identifier; together with RestaurantID it forms the deduplication
// key for idempotent creation. Records with an empty CallSID never
// deduplicate.
type Reservation struct {
	ID           string
	RestaurantID int64
	Source       string
	CallSID      string
	Name         string
	Phone        string
	Date         string
	Time         string
	People       int
	Items        []string
	Notes        string
	Timezone     string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ReservationRepository is the storage contract for reservations.
//
// Save must enforce the (restaurant_id, call_sid) uniqueness for non-empty
// call SIDs and report ErrDuplicateCallSID when a racing creation got there
// first; the caller resolves that conflict by re-fetching.
type ReservationRepository interface {
	Save(ctx context.Context, reservation Reservation) error
	Update(ctx context.Context, reservation Reservation) error
	FindByID(ctx context.Context, id string) (Reservation, error)
	FindByDedupKey(ctx context.Context, restaurantID int64, callSID string) (Reservation, error)
	ListByRestaurant(ctx context.Context, restaurantID int64) ([]Reservation, error)
	DeleteByID(ctx context.Context, id string) error
}
