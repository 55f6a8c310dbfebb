// Package ratelimit caps the reservation request rate per restaurant. It is
// a secondary safeguard next to the admission gate: the gate bounds
// concurrent calls, this bounds request volume per minute.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Store keeps one token-bucket limiter per restaurant, with idle entries
// evicted by a janitor goroutine.
type Store struct {
	mu      sync.Mutex
	entries map[int64]*storeEntry

	limit        rate.Limit
	burst        int
	idleTTL      time.Duration
	cleanupEvery time.Duration
}

type storeEntry struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// Option customises a Store.
type Option func(*Store)

// WithIdleTTL overrides how long an unused limiter is retained.
func WithIdleTTL(d time.Duration) Option {
	return func(s *Store) { s.idleTTL = d }
}

// WithCleanupEvery overrides the janitor interval.
func WithCleanupEvery(d time.Duration) Option {
	return func(s *Store) { s.cleanupEvery = d }
}

// NewStore builds a per-restaurant limiter store allowing perMinute requests
// each minute with a burst of the same size. A perMinute of zero disables
// limiting entirely.
func NewStore(perMinute int, opts ...Option) *Store {
	s := &Store{
		entries:      make(map[int64]*storeEntry),
		idleTTL:      15 * time.Minute,
		cleanupEvery: 2 * time.Minute,
	}
	if perMinute > 0 {
		s.limit = rate.Every(time.Minute / time.Duration(perMinute))
		s.burst = perMinute
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Allow reports whether one more request for the restaurant fits under the
// configured rate. A disabled store always allows.
func (s *Store) Allow(restaurantID int64) bool {
	if s == nil || s.burst == 0 {
		return true
	}
	return s.limiter(restaurantID).Allow()
}

func (s *Store) limiter(restaurantID int64) *rate.Limiter {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	if ent, ok := s.entries[restaurantID]; ok {
		ent.lastSeen = now
		return ent.lim
	}

	lim := rate.NewLimiter(s.limit, s.burst)
	s.entries[restaurantID] = &storeEntry{lim: lim, lastSeen: now}
	return lim
}

// Cleanup drops limiters that have not been used within the idle TTL.
func (s *Store) Cleanup() {
	cutoff := time.Now().Add(-s.idleTTL)

	s.mu.Lock()
	defer s.mu.Unlock()

	for id, ent := range s.entries {
		if ent.lastSeen.Before(cutoff) {
			delete(s.entries, id)
		}
	}
}

// StartJanitor runs Cleanup periodically until the context is cancelled.
func (s *Store) StartJanitor(ctx context.Context) {
	if s == nil || s.cleanupEvery <= 0 {
		return
	}

	t := time.NewTicker(s.cleanupEvery)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				s.Cleanup()
			}
		}
	}()
}

// Len reports how many restaurants currently hold a limiter.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
