package http

import (
	"log/slog"
	"net/http"
	"sort"

	"github.com/xalexyi/ristorante-api/internal/policy"
)

type restaurantDTO struct {
	ID          int64    `json:"id"`
	Name        string   `json:"name"`
	Timezone    string   `json:"timezone"`
	MinPeople   int      `json:"min_people"`
	MaxPeople   int      `json:"max_people"`
	ClosedDates []string `json:"closed_dates"`
	Windows     []string `json:"windows"`
}

type listRestaurantsResponse struct {
	OK          bool            `json:"ok"`
	Restaurants []restaurantDTO `json:"restaurants"`
}

// RestaurantHandler exposes the read-only policy surface.
type RestaurantHandler struct {
	policies  *policy.Registry
	responder responder
}

// NewRestaurantHandler constructs a restaurant handler.
func NewRestaurantHandler(policies *policy.Registry, logger *slog.Logger) *RestaurantHandler {
	return &RestaurantHandler{policies: policies, responder: newResponder(logger)}
}

// List returns every registered restaurant policy.
func (h *RestaurantHandler) List(w http.ResponseWriter, r *http.Request) {
	restaurants := h.policies.All()
	dtos := make([]restaurantDTO, 0, len(restaurants))
	for _, restaurant := range restaurants {
		dtos = append(dtos, toRestaurantDTO(restaurant))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listRestaurantsResponse{OK: true, Restaurants: dtos})
}

// Get returns one restaurant policy by the identifier in the request path.
func (h *RestaurantHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := RestaurantIDFromContext(r.Context())
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidRestaurantID)
		return
	}

	restaurant, found := h.policies.Lookup(id)
	if !found {
		h.responder.writeJSON(r.Context(), w, http.StatusNotFound, errorResponse{Error: "unknown restaurant"})
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toRestaurantDTO(restaurant))
}

func toRestaurantDTO(restaurant policy.Restaurant) restaurantDTO {
	closed := make([]string, 0, len(restaurant.ClosedDates))
	for date := range restaurant.ClosedDates {
		closed = append(closed, date)
	}
	// Map iteration order is random; keep the DTO stable.
	sort.Strings(closed)

	windows := make([]string, 0, len(restaurant.Windows))
	for _, w := range restaurant.Windows {
		windows = append(windows, w.String())
	}

	return restaurantDTO{
		ID:          restaurant.ID,
		Name:        restaurant.Name,
		Timezone:    restaurant.Timezone,
		MinPeople:   restaurant.MinPeople,
		MaxPeople:   restaurant.MaxPeople,
		ClosedDates: closed,
		Windows:     windows,
	}
}
