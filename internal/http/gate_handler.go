package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/xalexyi/ristorante-api/internal/gate"
)

type gateRequest struct {
	RestaurantID any    `json:"restaurant_id"`
	CallSID      string `json:"call_sid"`
	TTLSeconds   int    `json:"ttl_seconds"`
}

type gateStatusResponse struct {
	Allowed bool   `json:"allowed"`
	Current int    `json:"current"`
	Maximum int    `json:"maximum"`
	Error   string `json:"error,omitempty"`
}

// GateHandler exposes the admission gate's acquire/release contract to the
// voice pipeline.
type GateHandler struct {
	gate      *gate.Gate
	responder responder
	logger    *slog.Logger
}

// NewGateHandler constructs a gate handler.
func NewGateHandler(g *gate.Gate, logger *slog.Logger) *GateHandler {
	return &GateHandler{gate: g, responder: newResponder(logger), logger: defaultLogger(logger)}
}

// Acquire claims a call slot. A missing restaurant_id or call_sid is an
// input error, not an admission decision.
func (h *GateHandler) Acquire(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.gate == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	restaurantID, callSID, ttl, err := h.decode(r)
	if err != nil {
		h.writeInputError(w, r, err)
		return
	}

	st := h.gate.Acquire(restaurantID, callSID, ttl)
	handlerLogger(r.Context(), h.logger, "GateHandler", "Acquire",
		"restaurant_id", restaurantID,
		"call_sid", callSID,
	).InfoContext(r.Context(), "admission decided", "allowed", st.Allowed, "current", st.Current)

	h.responder.writeJSON(r.Context(), w, http.StatusOK, gateStatusResponse{
		Allowed: st.Allowed,
		Current: st.Current,
		Maximum: st.Maximum,
	})
}

// Release frees a call slot. Always reports allowed=true; releasing an
// unknown call is a no-op.
func (h *GateHandler) Release(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.gate == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	restaurantID, callSID, _, err := h.decode(r)
	if err != nil {
		h.writeInputError(w, r, err)
		return
	}

	st := h.gate.Release(restaurantID, callSID)
	handlerLogger(r.Context(), h.logger, "GateHandler", "Release",
		"restaurant_id", restaurantID,
		"call_sid", callSID,
	).InfoContext(r.Context(), "slot released", "current", st.Current)

	h.responder.writeJSON(r.Context(), w, http.StatusOK, gateStatusResponse{
		Allowed: st.Allowed,
		Current: st.Current,
		Maximum: st.Maximum,
	})
}

func (h *GateHandler) decode(r *http.Request) (restaurantID int64, callSID string, ttl time.Duration, err error) {
	var req gateRequest
	if decodeErr := json.NewDecoder(r.Body).Decode(&req); decodeErr != nil {
		err = errBadRequestBody
		return
	}

	id, ok := parseRestaurantID(req.RestaurantID)
	if !ok {
		err = errMissingRestaurantID
		return
	}
	callSID = strings.TrimSpace(req.CallSID)
	if callSID == "" {
		err = errMissingCallSID
		return
	}

	restaurantID = id
	if req.TTLSeconds > 0 {
		ttl = time.Duration(req.TTLSeconds) * time.Second
	}
	return
}

func (h *GateHandler) writeInputError(w http.ResponseWriter, r *http.Request, err error) {
	h.responder.loggerFor(r.Context()).WarnContext(r.Context(), "gate input error", "error", err)
	h.responder.writeJSON(r.Context(), w, http.StatusBadRequest, gateStatusResponse{
		Allowed: false,
		Maximum: h.gate.Maximum(),
		Error:   err.Error(),
	})
}

// parseRestaurantID tolerates JSON numbers and numeric strings.
func parseRestaurantID(value any) (int64, bool) {
	switch v := value.(type) {
	case float64:
		id := int64(v)
		if float64(id) != v || id <= 0 {
			return 0, false
		}
		return id, true
	case string:
		id, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil || id <= 0 {
			return 0, false
		}
		return id, true
	default:
		return 0, false
	}
}
