package application

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/xalexyi/ristorante-api/internal/persistence"
	"github.com/xalexyi/ristorante-api/internal/persistence/memory"
)

func testIDGenerator() func() string {
	var mu sync.Mutex
	var counter int
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		counter++
		return fmt.Sprintf("res-%04d", counter)
	}
}

func fixedNow() time.Time {
	return time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)
}

func validPayload() map[string]any {
	return map[string]any{
		"restaurant_id": float64(1),
		"call_sid":      "CA123",
		"name":          "Mario",
		"phone":         "+391234567",
		"people":        float64(2),
		"date":          "2025-06-01",
		"time":          "20:00",
	}
}

func newTestService(t *testing.T) (*ReservationService, *memory.Repository) {
	t.Helper()
	repo := memory.NewRepository()
	svc := NewReservationService(repo, testRegistry(t), testIDGenerator(), fixedNow)
	return svc, repo
}

func TestReservationService_Upsert_Creates(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	result, err := svc.Upsert(ctx, validPayload())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Created {
		t.Fatalf("expected a created result")
	}

	r := result.Reservation
	if r.ID != "res-0001" {
		t.Fatalf("unexpected id %q", r.ID)
	}
	if r.RestaurantID != 1 || r.CallSID != "CA123" || r.Name != "Mario" || r.People != 2 {
		t.Fatalf("unexpected record: %+v", r)
	}
	if r.Source != "twilio" {
		t.Fatalf("expected default source, got %q", r.Source)
	}
	if r.Timezone != "Europe/Rome" {
		t.Fatalf("expected policy timezone, got %q", r.Timezone)
	}
	if !r.CreatedAt.Equal(fixedNow()) || !r.UpdatedAt.Equal(fixedNow()) {
		t.Fatalf("unexpected timestamps: %+v", r)
	}

	// Round-trip: the stored record matches what was returned.
	fetched, err := svc.Get(ctx, r.ID)
	if err != nil {
		t.Fatalf("unexpected get error: %v", err)
	}
	if fetched.Name != r.Name || fetched.Phone != r.Phone || fetched.Date != r.Date ||
		fetched.Time != r.Time || fetched.People != r.People {
		t.Fatalf("round-trip mismatch: %+v vs %+v", fetched, r)
	}
}

func TestReservationService_Upsert_TimezoneResolution(t *testing.T) {
	ctx := context.Background()

	t.Run("explicit request value wins", func(t *testing.T) {
		svc, _ := newTestService(t)
		payload := validPayload()
		payload["tz"] = "America/New_York"

		result, err := svc.Upsert(ctx, payload)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Reservation.Timezone != "America/New_York" {
			t.Fatalf("expected request timezone, got %q", result.Reservation.Timezone)
		}
	})

	t.Run("falls back to the restaurant policy", func(t *testing.T) {
		svc, _ := newTestService(t)

		result, err := svc.Upsert(ctx, validPayload())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Reservation.Timezone != "Europe/Rome" {
			t.Fatalf("expected policy timezone, got %q", result.Reservation.Timezone)
		}
	})
}

func TestReservationService_Upsert_DuplicateCall(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	first, err := svc.Upsert(ctx, validPayload())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	payload := validPayload()
	payload["notes"] = "window table"
	payload["people"] = float64(4)

	second, err := svc.Upsert(ctx, payload)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if second.Created {
		t.Fatalf("expected duplicate resolution, got a creation")
	}
	if second.Reservation.ID != first.Reservation.ID {
		t.Fatalf("expected the same record id, got %q and %q", first.Reservation.ID, second.Reservation.ID)
	}
	if second.Reservation.Notes != "window table" || second.Reservation.People != 4 {
		t.Fatalf("expected enrichment to merge, got %+v", second.Reservation)
	}
	if !second.Reservation.UpdatedAt.Equal(fixedNow()) {
		t.Fatalf("expected refreshed update timestamp")
	}

	// Enrichment must not blank fields the repeat omitted.
	if second.Reservation.Name != "Mario" {
		t.Fatalf("expected original name to survive, got %q", second.Reservation.Name)
	}
}

func TestReservationService_Upsert_EmptyCallSIDNeverDeduplicates(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	payload := validPayload()
	delete(payload, "call_sid")

	first, err := svc.Upsert(ctx, payload)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := svc.Upsert(ctx, payload)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !first.Created || !second.Created {
		t.Fatalf("expected both submissions to create")
	}
	if first.Reservation.ID == second.Reservation.ID {
		t.Fatalf("expected distinct records, both got %q", first.Reservation.ID)
	}
}

func TestReservationService_Upsert_Rejections(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	payload := validPayload()
	payload["date"] = "2025-12-25"

	_, err := svc.Upsert(ctx, payload)
	var rejection *RejectionError
	if !errors.As(err, &rejection) {
		t.Fatalf("expected RejectionError, got %v", err)
	}
	if rejection.Reason != "restaurant closed on this date" {
		t.Fatalf("unexpected reason %q", rejection.Reason)
	}
}

func TestReservationService_Upsert_UnknownField(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	payload := validPayload()
	payload["drop_table"] = true

	_, err := svc.Upsert(ctx, payload)
	if !errors.Is(err, ErrUnrecognizedField) {
		t.Fatalf("expected ErrUnrecognizedField, got %v", err)
	}
}

func TestReservationService_Upsert_ConcurrentIdenticalCalls(t *testing.T) {
	const workers = 16

	ctx := context.Background()
	svc, _ := newTestService(t)

	var wg sync.WaitGroup
	results := make([]UpsertResult, workers)
	errs := make([]error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = svc.Upsert(ctx, validPayload())
		}(i)
	}
	wg.Wait()

	var created int
	firstID := ""
	for i := 0; i < workers; i++ {
		if errs[i] != nil {
			t.Fatalf("worker %d failed: %v", i, errs[i])
		}
		if results[i].Created {
			created++
		}
		if firstID == "" {
			firstID = results[i].Reservation.ID
		}
		if results[i].Reservation.ID != firstID {
			t.Fatalf("expected all workers to share one record, got %q and %q", firstID, results[i].Reservation.ID)
		}
	}
	if created != 1 {
		t.Fatalf("expected exactly one creation, got %d", created)
	}
}

// conflictRepo simulates a second process winning the creation race: the
// dedup lookup misses, then Save reports a duplicate-key conflict.
type conflictRepo struct {
	memory.Repository
	existing persistence.Reservation
	saves    int
}

func (r *conflictRepo) Save(context.Context, persistence.Reservation) error {
	r.saves++
	return persistence.ErrDuplicateCallSID
}

func (r *conflictRepo) FindByDedupKey(_ context.Context, restaurantID int64, callSID string) (persistence.Reservation, error) {
	if r.saves == 0 {
		return persistence.Reservation{}, persistence.ErrNotFound
	}
	return r.existing, nil
}

func TestReservationService_Upsert_PersistenceConflictResolvesToDuplicate(t *testing.T) {
	ctx := context.Background()

	existing := persistence.Reservation{
		ID:           "res-race",
		RestaurantID: 1,
		CallSID:      "CA123",
		Name:         "Mario",
	}
	repo := &conflictRepo{existing: existing}
	svc := NewReservationService(repo, testRegistry(t), testIDGenerator(), fixedNow)

	result, err := svc.Upsert(ctx, validPayload())
	if err != nil {
		t.Fatalf("expected conflict to be resolved, got %v", err)
	}
	if result.Created {
		t.Fatalf("expected a duplicate resolution")
	}
	if result.Reservation.ID != "res-race" {
		t.Fatalf("expected the racing record, got %q", result.Reservation.ID)
	}
}

func TestReservationService_GetListDelete(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	if _, err := svc.Get(ctx, "ghost"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := svc.Delete(ctx, "ghost"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	result, err := svc.Upsert(ctx, validPayload())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	listed, err := svc.List(ctx, 1)
	if err != nil {
		t.Fatalf("unexpected list error: %v", err)
	}
	if len(listed) != 1 || listed[0].ID != result.Reservation.ID {
		t.Fatalf("unexpected listing: %+v", listed)
	}

	if err := svc.Delete(ctx, result.Reservation.ID); err != nil {
		t.Fatalf("unexpected delete error: %v", err)
	}
	if _, err := svc.Get(ctx, result.Reservation.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected record to be gone, got %v", err)
	}
}
