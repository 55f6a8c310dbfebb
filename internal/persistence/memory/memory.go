// Package memory provides the in-memory reference implementation of the
// reservation repository. State is process-local and lost on restart.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/xalexyi/ristorante-api/internal/persistence"
)

// Repository stores reservations in process memory. It keeps a dedup index
// from (restaurant_id, call_sid) to record id in lockstep with the records
// themselves.
type Repository struct {
	mu           sync.RWMutex
	reservations map[string]persistence.Reservation
	dedup        map[string]string
}

// NewRepository returns an empty in-memory repository.
func NewRepository() *Repository {
	return &Repository{
		reservations: make(map[string]persistence.Reservation),
		dedup:        make(map[string]string),
	}
}

func dedupKey(restaurantID int64, callSID string) string {
	return fmt.Sprintf("%d::%s", restaurantID, callSID)
}

// Save stores a new reservation. Non-empty call SIDs are registered in the
// dedup index; a key collision reports ErrDuplicateCallSID without storing.
func (r *Repository) Save(_ context.Context, reservation persistence.Reservation) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.reservations[reservation.ID]; exists {
		return fmt.Errorf("memory: reservation %s already exists", reservation.ID)
	}

	if reservation.CallSID != "" {
		key := dedupKey(reservation.RestaurantID, reservation.CallSID)
		if _, taken := r.dedup[key]; taken {
			return persistence.ErrDuplicateCallSID
		}
		r.dedup[key] = reservation.ID
	}

	r.reservations[reservation.ID] = clone(reservation)
	return nil
}

// Update replaces an existing reservation by id.
func (r *Repository) Update(_ context.Context, reservation persistence.Reservation) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.reservations[reservation.ID]; !exists {
		return persistence.ErrNotFound
	}
	r.reservations[reservation.ID] = clone(reservation)
	return nil
}

// FindByID fetches one reservation by its identifier.
func (r *Repository) FindByID(_ context.Context, id string) (persistence.Reservation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	reservation, ok := r.reservations[id]
	if !ok {
		return persistence.Reservation{}, persistence.ErrNotFound
	}
	return clone(reservation), nil
}

// FindByDedupKey fetches the reservation registered under the deduplication
// key, if any. An empty call SID never matches.
func (r *Repository) FindByDedupKey(_ context.Context, restaurantID int64, callSID string) (persistence.Reservation, error) {
	if callSID == "" {
		return persistence.Reservation{}, persistence.ErrNotFound
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.dedup[dedupKey(restaurantID, callSID)]
	if !ok {
		return persistence.Reservation{}, persistence.ErrNotFound
	}
	reservation, ok := r.reservations[id]
	if !ok {
		return persistence.Reservation{}, persistence.ErrNotFound
	}
	return clone(reservation), nil
}

// ListByRestaurant returns the restaurant's reservations ordered by creation
// time, newest first.
func (r *Repository) ListByRestaurant(_ context.Context, restaurantID int64) ([]persistence.Reservation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []persistence.Reservation
	for _, reservation := range r.reservations {
		if reservation.RestaurantID == restaurantID {
			out = append(out, clone(reservation))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// DeleteByID removes a reservation and its dedup index entry.
func (r *Repository) DeleteByID(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	reservation, ok := r.reservations[id]
	if !ok {
		return persistence.ErrNotFound
	}
	delete(r.reservations, id)
	if reservation.CallSID != "" {
		delete(r.dedup, dedupKey(reservation.RestaurantID, reservation.CallSID))
	}
	return nil
}

func clone(reservation persistence.Reservation) persistence.Reservation {
	out := reservation
	if reservation.Items != nil {
		out.Items = make([]string, len(reservation.Items))
		copy(out.Items, reservation.Items)
	}
	return out
}
