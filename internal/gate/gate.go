// Package gate bounds the number of concurrent in-flight calls per
// restaurant. It is a cooperative semaphore: each slot is keyed by the
// telephony call SID and expires on its own after a TTL, so a caller that
// crashes without releasing cannot leak a slot for good.
package gate

import (
	"sync"
	"time"
)

const (
	// DefaultMaxParallel is the per-restaurant cap on concurrent calls.
	DefaultMaxParallel = 3
	// DefaultTTL is how long an unrenewed slot stays live.
	DefaultTTL = 5 * time.Minute
)

// Status reports the outcome of an admission operation together with the
// restaurant's live slot count.
type Status struct {
	Allowed bool
	Current int
	Maximum int
}

// Gate tracks in-flight call slots per restaurant.
//
// Locking is per restaurant: a map-level mutex guards bucket lookup and
// creation, each bucket carries its own mutex for the purge-check-mutate
// sequence, so restaurants never contend with each other.
type Gate struct {
	mu      sync.Mutex
	buckets map[int64]*bucket

	maximum int
	ttl     time.Duration
	now     func() time.Time
}

type bucket struct {
	mu      sync.Mutex
	entries map[string]time.Time

	// dead marks a bucket that was removed from the map while a reader
	// still held a reference; the reader must re-fetch.
	dead bool
}

// New constructs a gate with the given per-restaurant cap and default TTL.
// Non-positive arguments fall back to the package defaults.
func New(maximum int, ttl time.Duration) *Gate {
	return NewWithClock(maximum, ttl, nil)
}

// NewWithClock constructs a gate with an injected time source for tests.
func NewWithClock(maximum int, ttl time.Duration, now func() time.Time) *Gate {
	if maximum <= 0 {
		maximum = DefaultMaxParallel
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if now == nil {
		now = time.Now
	}
	return &Gate{
		buckets: make(map[int64]*bucket),
		maximum: maximum,
		ttl:     ttl,
		now:     now,
	}
}

// Maximum returns the configured per-restaurant cap.
func (g *Gate) Maximum() int {
	return g.maximum
}

// Acquire claims a slot for the given call. Expired slots are purged first.
// A call that already holds a slot has its TTL renewed and is always
// admitted; a new call is admitted only while the restaurant is under its
// cap. A non-positive ttl selects the gate default.
func (g *Gate) Acquire(restaurantID int64, callSID string, ttl time.Duration) Status {
	if ttl <= 0 {
		ttl = g.ttl
	}

	for {
		b := g.fetchOrCreate(restaurantID)

		b.mu.Lock()
		if b.dead {
			b.mu.Unlock()
			continue
		}

		now := g.now()
		purgeLocked(b, now)

		if _, held := b.entries[callSID]; held {
			b.entries[callSID] = now.Add(ttl)
			st := Status{Allowed: true, Current: len(b.entries), Maximum: g.maximum}
			b.mu.Unlock()
			return st
		}

		if len(b.entries) >= g.maximum {
			st := Status{Allowed: false, Current: len(b.entries), Maximum: g.maximum}
			b.mu.Unlock()
			return st
		}

		b.entries[callSID] = now.Add(ttl)
		st := Status{Allowed: true, Current: len(b.entries), Maximum: g.maximum}
		b.mu.Unlock()
		return st
	}
}

// Release drops the call's slot if it holds one. Releasing an unknown or
// already-released call is a no-op; release never fails. A bucket left
// empty is removed so idle restaurants cost no memory.
func (g *Gate) Release(restaurantID int64, callSID string) Status {
	g.mu.Lock()
	defer g.mu.Unlock()

	b, ok := g.buckets[restaurantID]
	if !ok {
		return Status{Allowed: true, Current: 0, Maximum: g.maximum}
	}

	b.mu.Lock()
	delete(b.entries, callSID)
	purgeLocked(b, g.now())
	current := len(b.entries)
	if current == 0 {
		b.dead = true
		delete(g.buckets, restaurantID)
	}
	b.mu.Unlock()

	return Status{Allowed: true, Current: current, Maximum: g.maximum}
}

// Live returns the number of unexpired slots currently held for the
// restaurant.
func (g *Gate) Live(restaurantID int64) int {
	g.mu.Lock()
	b, ok := g.buckets[restaurantID]
	g.mu.Unlock()
	if !ok {
		return 0
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.dead {
		return 0
	}
	purgeLocked(b, g.now())
	return len(b.entries)
}

func (g *Gate) fetchOrCreate(restaurantID int64) *bucket {
	g.mu.Lock()
	defer g.mu.Unlock()

	b, ok := g.buckets[restaurantID]
	if !ok {
		b = &bucket{entries: make(map[string]time.Time)}
		g.buckets[restaurantID] = b
	}
	return b
}

func purgeLocked(b *bucket, now time.Time) {
	for sid, expiry := range b.entries {
		if !expiry.After(now) {
			delete(b.entries, sid)
		}
	}
}
