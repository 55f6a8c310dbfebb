package gate

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/xalexyi/ristorante-api/internal/testfixtures"
)

func TestGate_Acquire(t *testing.T) {
	t.Run("admits up to the cap and rejects beyond it", func(t *testing.T) {
		g := New(3, time.Minute)

		for i := 1; i <= 3; i++ {
			st := g.Acquire(1, fmt.Sprintf("CA%d", i), 0)
			if !st.Allowed {
				t.Fatalf("expected call %d to be admitted", i)
			}
			if st.Current != i {
				t.Fatalf("expected current %d after call %d, got %d", i, i, st.Current)
			}
		}

		st := g.Acquire(1, "CA4", 0)
		if st.Allowed {
			t.Fatalf("expected fourth call to be rejected")
		}
		if st.Current != 3 || st.Maximum != 3 {
			t.Fatalf("expected current=3 maximum=3, got %+v", st)
		}

		// Rejection must not consume a slot.
		if got := g.Live(1); got != 3 {
			t.Fatalf("expected live count 3 after rejection, got %d", got)
		}
	})

	t.Run("re-acquire renews the slot and never decreases the count", func(t *testing.T) {
		clock := testfixtures.NewClock(time.Time{})
		g := NewWithClock(3, time.Minute, clock.Now)

		if st := g.Acquire(1, "CA1", 0); !st.Allowed || st.Current != 1 {
			t.Fatalf("unexpected first acquire status: %+v", st)
		}

		clock.Advance(45 * time.Second)
		if st := g.Acquire(1, "CA1", 0); !st.Allowed || st.Current != 1 {
			t.Fatalf("unexpected re-acquire status: %+v", st)
		}

		// The renewal pushed expiry past the original deadline.
		clock.Advance(45 * time.Second)
		if got := g.Live(1); got != 1 {
			t.Fatalf("expected renewed slot to still be live, got %d", got)
		}
	})

	t.Run("expired slots are purged before the capacity check", func(t *testing.T) {
		clock := testfixtures.NewClock(time.Time{})
		g := NewWithClock(3, time.Minute, clock.Now)

		g.Acquire(1, "CA1", time.Second)
		g.Acquire(1, "CA2", time.Minute)
		g.Acquire(1, "CA3", time.Minute)

		clock.Advance(2 * time.Second)

		st := g.Acquire(1, "CA4", 0)
		if !st.Allowed {
			t.Fatalf("expected admission after CA1 expired, got %+v", st)
		}
		if st.Current != 3 {
			t.Fatalf("expected current 3 after purge and insert, got %d", st.Current)
		}
	})

	t.Run("restaurants do not share capacity", func(t *testing.T) {
		g := New(1, time.Minute)

		if st := g.Acquire(1, "CA1", 0); !st.Allowed {
			t.Fatalf("expected restaurant 1 admission: %+v", st)
		}
		if st := g.Acquire(2, "CA1", 0); !st.Allowed {
			t.Fatalf("expected restaurant 2 admission: %+v", st)
		}
		if st := g.Acquire(1, "CA2", 0); st.Allowed {
			t.Fatalf("expected restaurant 1 to be full: %+v", st)
		}
	})
}

func TestGate_Release(t *testing.T) {
	t.Run("frees the slot for the next call", func(t *testing.T) {
		g := New(1, time.Minute)

		g.Acquire(1, "CA1", 0)
		if st := g.Acquire(1, "CA2", 0); st.Allowed {
			t.Fatalf("expected CA2 to be rejected while CA1 holds the slot")
		}

		st := g.Release(1, "CA1")
		if !st.Allowed || st.Current != 0 {
			t.Fatalf("unexpected release status: %+v", st)
		}

		if st := g.Acquire(1, "CA2", 0); !st.Allowed {
			t.Fatalf("expected CA2 to be admitted after release: %+v", st)
		}
	})

	t.Run("is idempotent", func(t *testing.T) {
		g := New(3, time.Minute)

		g.Acquire(1, "CA1", 0)
		first := g.Release(1, "CA1")
		second := g.Release(1, "CA1")

		if !first.Allowed || !second.Allowed {
			t.Fatalf("release must always report allowed")
		}
		if first.Current != 0 || second.Current != 0 {
			t.Fatalf("expected current 0 on both releases, got %d then %d", first.Current, second.Current)
		}
	})

	t.Run("unknown restaurant is a no-op", func(t *testing.T) {
		g := New(3, time.Minute)

		st := g.Release(42, "CA1")
		if !st.Allowed || st.Current != 0 || st.Maximum != 3 {
			t.Fatalf("unexpected status for unknown restaurant: %+v", st)
		}
	})

	t.Run("empty buckets are removed and recreated safely", func(t *testing.T) {
		g := New(2, time.Minute)

		g.Acquire(1, "CA1", 0)
		g.Release(1, "CA1")

		// A fresh acquire after the bucket was dropped must work.
		if st := g.Acquire(1, "CA2", 0); !st.Allowed || st.Current != 1 {
			t.Fatalf("unexpected status after bucket removal: %+v", st)
		}
	})
}

func TestGate_ConcurrentAcquireNeverExceedsCap(t *testing.T) {
	const (
		workers  = 32
		maxSlots = 3
	)
	g := New(maxSlots, time.Minute)

	var wg sync.WaitGroup
	admitted := make(chan string, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sid := fmt.Sprintf("CA%03d", i)
			if st := g.Acquire(1, sid, 0); st.Allowed {
				admitted <- sid
				if st.Current > maxSlots {
					t.Errorf("live count %d exceeded cap %d", st.Current, maxSlots)
				}
			}
		}(i)
	}
	wg.Wait()
	close(admitted)

	var count int
	for range admitted {
		count++
	}
	if count != maxSlots {
		t.Fatalf("expected exactly %d admissions, got %d", maxSlots, count)
	}
	if got := g.Live(1); got != maxSlots {
		t.Fatalf("expected live count %d, got %d", maxSlots, got)
	}
}

func TestGate_ConcurrentAcquireReleaseIsConsistent(t *testing.T) {
	g := New(3, time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sid := fmt.Sprintf("CA%03d", i)
			for j := 0; j < 50; j++ {
				if st := g.Acquire(int64(i%2), sid, 0); st.Allowed {
					g.Release(int64(i%2), sid)
				}
			}
		}(i)
	}
	wg.Wait()

	if got := g.Live(0); got != 0 {
		t.Fatalf("expected restaurant 0 to drain to zero, got %d", got)
	}
	if got := g.Live(1); got != 0 {
		t.Fatalf("expected restaurant 1 to drain to zero, got %d", got)
	}
}
