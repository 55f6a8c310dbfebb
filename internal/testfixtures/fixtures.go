package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/xalexyi/ristorante-api/internal/persistence"
)

var reservationCounter uint64

var referenceTime = time.Date(2025, time.June, 1, 10, 0, 0, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// ReservationOption configures the generated reservation fixture.
type ReservationOption func(*persistence.Reservation)

// NewReservation returns a deterministic reservation with optional overrides.
// Each invocation yields a distinct identifier and call SID, so fixtures can
// be persisted side by side without dedup collisions.
func NewReservation(opts ...ReservationOption) persistence.Reservation {
	idx := atomic.AddUint64(&reservationCounter, 1)
	created := referenceTime.Add(time.Duration(idx) * time.Minute)
	reservation := persistence.Reservation{
		ID:           fmt.Sprintf("res-%04d", idx),
		RestaurantID: 1,
		Source:       "twilio",
		CallSID:      fmt.Sprintf("CA%04d", idx),
		Name:         fmt.Sprintf("Guest %04d", idx),
		Phone:        fmt.Sprintf("+39 055 000%04d", idx),
		Date:         "2025-06-10",
		Time:         "20:00",
		People:       2,
		Items:        []string{},
		Timezone:     "Europe/Rome",
		CreatedAt:    created,
		UpdatedAt:    created,
	}
	for _, opt := range opts {
		opt(&reservation)
	}
	return reservation
}

// WithID overrides the generated reservation identifier.
func WithID(id string) ReservationOption {
	return func(r *persistence.Reservation) { r.ID = id }
}

// WithRestaurant overrides the restaurant the reservation belongs to.
func WithRestaurant(id int64) ReservationOption {
	return func(r *persistence.Reservation) { r.RestaurantID = id }
}

// WithCallSID overrides the generated call SID. An empty SID produces a
// record that never deduplicates.
func WithCallSID(callSID string) ReservationOption {
	return func(r *persistence.Reservation) { r.CallSID = callSID }
}

// WithGuest overrides the customer name and phone together.
func WithGuest(name, phone string) ReservationOption {
	return func(r *persistence.Reservation) {
		r.Name = name
		r.Phone = phone
	}
}

// WithSlot overrides the reserved date, time, and party size.
func WithSlot(date, timeOfDay string, people int) ReservationOption {
	return func(r *persistence.Reservation) {
		r.Date = date
		r.Time = timeOfDay
		r.People = people
	}
}

// WithItems overrides the pre-ordered items.
func WithItems(items ...string) ReservationOption {
	return func(r *persistence.Reservation) { r.Items = items }
}

// WithNotes overrides the free-form notes.
func WithNotes(notes string) ReservationOption {
	return func(r *persistence.Reservation) { r.Notes = notes }
}

// WithTimestamps sets both created and updated timestamps on the fixture.
func WithTimestamps(created, updated time.Time) ReservationOption {
	return func(r *persistence.Reservation) {
		r.CreatedAt = created
		r.UpdatedAt = updated
	}
}
