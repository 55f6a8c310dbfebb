package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/xalexyi/ristorante-api/internal/persistence"
	"github.com/xalexyi/ristorante-api/internal/policy"
)

// UpsertResult is the outcome of a reservation submission. Created is false
// when the call had already produced a record and the existing one was
// returned instead.
type UpsertResult struct {
	Reservation persistence.Reservation
	Created     bool
}

// ReservationService turns untrusted reservation payloads into at most one
// persisted record per (restaurant, call) pair, honoring restaurant policy.
type ReservationService struct {
	reservations persistence.ReservationRepository
	policies     *policy.Registry
	idGenerator  func() string
	now          func() time.Time
	logger       *slog.Logger
	keys         *keyedMutex
}

// NewReservationService constructs a reservation service with the provided
// dependencies.
func NewReservationService(reservations persistence.ReservationRepository, policies *policy.Registry, idGenerator func() string, now func() time.Time) *ReservationService {
	return NewReservationServiceWithLogger(reservations, policies, idGenerator, now, nil)
}

// NewReservationServiceWithLogger constructs a reservation service with a
// specified logger.
func NewReservationServiceWithLogger(reservations persistence.ReservationRepository, policies *policy.Registry, idGenerator func() string, now func() time.Time, logger *slog.Logger) *ReservationService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &ReservationService{
		reservations: reservations,
		policies:     policies,
		idGenerator:  idGenerator,
		now:          now,
		logger:       defaultLogger(logger),
		keys:         newKeyedMutex(),
	}
}

func (s *ReservationService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "ReservationService", operation, attrs...)
}

// Upsert normalizes and validates the payload, then creates a reservation or
// returns the existing one when the call already submitted. The
// check-then-create sequence is serialized per deduplication key, so two
// racing first submissions for the same call cannot both create.
func (s *ReservationService) Upsert(ctx context.Context, payload map[string]any) (result UpsertResult, err error) {
	if s == nil {
		err = fmt.Errorf("ReservationService is nil")
		return
	}

	logger := s.loggerWith(ctx, "Upsert")
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to upsert reservation", "error", err, "error_kind", ErrorKind(err))
			return
		}
		if result.Created {
			logger.With("reservation_id", result.Reservation.ID).InfoContext(ctx, "reservation created")
		} else {
			logger.With("reservation_id", result.Reservation.ID).InfoContext(ctx, "duplicate call resolved to existing reservation")
		}
	}()

	req, err := Normalize(payload)
	if err != nil {
		return
	}

	restaurant, rejection := Validate(req, s.policies)
	if rejection != nil {
		err = rejection
		return
	}

	timezone := req.Timezone
	if timezone == "" {
		timezone = restaurant.Timezone
	}
	if timezone == "" {
		timezone = policy.DefaultTimezone
	}
	req.Timezone = timezone

	restaurantID := *req.RestaurantID
	logger = logger.With("restaurant_id", restaurantID, "call_sid", req.CallSID)

	// Serialize per dedup key; distinct keys stay fully concurrent.
	unlock := s.keys.lock(fmt.Sprintf("%d::%s", restaurantID, req.CallSID))
	defer unlock()

	if req.CallSID != "" {
		existing, findErr := s.reservations.FindByDedupKey(ctx, restaurantID, req.CallSID)
		switch {
		case findErr == nil:
			result, err = s.enrich(ctx, existing, req)
			return
		case !errors.Is(findErr, persistence.ErrNotFound):
			err = fmt.Errorf("lookup existing reservation: %w", findErr)
			return
		}
	}

	now := s.now()
	record := persistence.Reservation{
		ID:           s.idGenerator(),
		RestaurantID: restaurantID,
		Source:       req.Source,
		CallSID:      req.CallSID,
		Name:         req.Name,
		Phone:        req.Phone,
		Date:         req.Date,
		Time:         req.Time,
		People:       *req.People,
		Items:        req.Items,
		Notes:        req.Notes,
		Timezone:     req.Timezone,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	saveErr := s.reservations.Save(ctx, record)
	if saveErr == nil {
		result = UpsertResult{Reservation: record, Created: true}
		return
	}

	// A racing creation for the same key reached the store first (e.g. a
	// second process sharing the database). Resolve by returning theirs.
	if errors.Is(saveErr, persistence.ErrDuplicateCallSID) && req.CallSID != "" {
		existing, findErr := s.reservations.FindByDedupKey(ctx, restaurantID, req.CallSID)
		if findErr != nil {
			err = fmt.Errorf("resolve duplicate reservation: %w", findErr)
			return
		}
		result = UpsertResult{Reservation: existing, Created: false}
		return
	}

	err = fmt.Errorf("save reservation: %w", saveErr)
	return
}

// enrich merges newly supplied fields of a repeated submission into the
// existing record and refreshes its update timestamp.
func (s *ReservationService) enrich(ctx context.Context, existing persistence.Reservation, req NormalizedRequest) (UpsertResult, error) {
	merged := existing
	if req.Name != "" {
		merged.Name = req.Name
	}
	if req.Phone != "" {
		merged.Phone = req.Phone
	}
	if req.Date != "" {
		merged.Date = req.Date
	}
	if req.Time != "" {
		merged.Time = req.Time
	}
	if req.Notes != "" {
		merged.Notes = req.Notes
	}
	if req.Source != "" {
		merged.Source = req.Source
	}
	if req.Timezone != "" {
		merged.Timezone = req.Timezone
	}
	if req.People != nil {
		merged.People = *req.People
	}
	if len(req.Items) > 0 {
		merged.Items = req.Items
	}
	merged.UpdatedAt = s.now()

	if err := s.reservations.Update(ctx, merged); err != nil {
		return UpsertResult{}, fmt.Errorf("update existing reservation: %w", err)
	}
	return UpsertResult{Reservation: merged, Created: false}, nil
}

// Get fetches a reservation by identifier.
func (s *ReservationService) Get(ctx context.Context, id string) (persistence.Reservation, error) {
	reservation, err := s.reservations.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return persistence.Reservation{}, ErrNotFound
		}
		return persistence.Reservation{}, fmt.Errorf("find reservation: %w", err)
	}
	return reservation, nil
}

// List returns a restaurant's reservations, newest first.
func (s *ReservationService) List(ctx context.Context, restaurantID int64) ([]persistence.Reservation, error) {
	reservations, err := s.reservations.ListByRestaurant(ctx, restaurantID)
	if err != nil {
		return nil, fmt.Errorf("list reservations: %w", err)
	}
	return reservations, nil
}

// Delete removes a reservation. This is the administrative escape hatch;
// the core flow never deletes.
func (s *ReservationService) Delete(ctx context.Context, id string) (err error) {
	logger := s.loggerWith(ctx, "Delete", "reservation_id", id)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to delete reservation", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "reservation deleted")
	}()

	if err = s.reservations.DeleteByID(ctx, id); err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			err = ErrNotFound
		}
		return
	}
	return nil
}
