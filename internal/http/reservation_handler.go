package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/xalexyi/ristorante-api/internal/application"
	"github.com/xalexyi/ristorante-api/internal/persistence"
	"github.com/xalexyi/ristorante-api/internal/ratelimit"
)

type reservationService interface {
	Upsert(ctx context.Context, payload map[string]any) (application.UpsertResult, error)
	Get(ctx context.Context, id string) (persistence.Reservation, error)
	List(ctx context.Context, restaurantID int64) ([]persistence.Reservation, error)
	Delete(ctx context.Context, id string) error
}

type reservationDTO struct {
	ID           string    `json:"id"`
	RestaurantID int64     `json:"restaurant_id"`
	Source       string    `json:"source"`
	CallSID      string    `json:"call_sid"`
	Name         string    `json:"name"`
	Phone        string    `json:"phone"`
	Date         string    `json:"date"`
	Time         string    `json:"time"`
	People       int       `json:"people"`
	Items        []string  `json:"items"`
	Notes        string    `json:"notes"`
	Timezone     string    `json:"tz"`
	Duplicate    bool      `json:"duplicate"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type upsertResponse struct {
	OK          bool           `json:"ok"`
	Status      string         `json:"status"`
	Reservation reservationDTO `json:"reservation"`
}

type listReservationsResponse struct {
	OK           bool             `json:"ok"`
	Reservations []reservationDTO `json:"reservations"`
}

// ReservationHandler exposes idempotent reservation creation plus the
// administrative read and delete surface.
type ReservationHandler struct {
	service   reservationService
	limiter   *ratelimit.Store
	responder responder
	logger    *slog.Logger
}

// NewReservationHandler constructs a reservation handler. The limiter may be
// nil to disable the per-restaurant request budget.
func NewReservationHandler(service reservationService, limiter *ratelimit.Store, logger *slog.Logger) *ReservationHandler {
	return &ReservationHandler{
		service:   service,
		limiter:   limiter,
		responder: newResponder(logger),
		logger:    defaultLogger(logger),
	}
}

// Create accepts the loose reservation payload and answers 201 on creation,
// 200 when the call already produced a record, 422 on policy rejection.
func (h *ReservationHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var payload map[string]any
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	// The per-minute budget is checked before any engine work; it needs
	// only the restaurant id, whichever spelling the payload used.
	if id, ok := payloadRestaurantID(payload); ok && !h.limiter.Allow(id) {
		h.responder.writeError(r.Context(), w, http.StatusTooManyRequests, errRateLimited)
		return
	}

	result, err := h.service.Upsert(r.Context(), payload)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	status := http.StatusCreated
	label := "created"
	if !result.Created {
		status = http.StatusOK
		label = "duplicate"
	}
	h.responder.writeJSON(r.Context(), w, status, upsertResponse{
		OK:          true,
		Status:      label,
		Reservation: toReservationDTO(result.Reservation, !result.Created),
	})
}

// Get fetches one reservation by the identifier in the request path.
func (h *ReservationHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := ReservationIDFromContext(r.Context())
	if !ok || id == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidReservationID)
		return
	}

	reservation, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, upsertResponse{
		OK:          true,
		Status:      "found",
		Reservation: toReservationDTO(reservation, false),
	})
}

// List returns a restaurant's reservations, newest first.
func (h *ReservationHandler) List(w http.ResponseWriter, r *http.Request) {
	restaurantID, ok := parseRestaurantID(r.URL.Query().Get("restaurant_id"))
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errMissingRestaurantID)
		return
	}

	reservations, err := h.service.List(r.Context(), restaurantID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	dtos := make([]reservationDTO, 0, len(reservations))
	for _, reservation := range reservations {
		dtos = append(dtos, toReservationDTO(reservation, false))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listReservationsResponse{OK: true, Reservations: dtos})
}

// Delete removes a reservation by identifier.
func (h *ReservationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := ReservationIDFromContext(r.Context())
	if !ok || id == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidReservationID)
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

func toReservationDTO(reservation persistence.Reservation, duplicate bool) reservationDTO {
	items := reservation.Items
	if items == nil {
		items = []string{}
	}
	return reservationDTO{
		ID:           reservation.ID,
		RestaurantID: reservation.RestaurantID,
		Source:       reservation.Source,
		CallSID:      reservation.CallSID,
		Name:         reservation.Name,
		Phone:        reservation.Phone,
		Date:         reservation.Date,
		Time:         reservation.Time,
		People:       reservation.People,
		Items:        items,
		Notes:        reservation.Notes,
		Timezone:     reservation.Timezone,
		Duplicate:    duplicate,
		CreatedAt:    reservation.CreatedAt,
		UpdatedAt:    reservation.UpdatedAt,
	}
}

func payloadRestaurantID(payload map[string]any) (int64, bool) {
	if id, ok := parseRestaurantID(payload["restaurant_id"]); ok {
		return id, true
	}
	return parseRestaurantID(payload["restaurantId"])
}
