package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/xalexyi/ristorante-api/internal/application"
)

type sessionService interface {
	Fetch(ctx context.Context, callSID string) application.Session
	Apply(ctx context.Context, callSID string, update map[string]any) application.Session
}

type sessionResponse struct {
	Session application.Session `json:"session"`
}

type sessionUpdateRequest struct {
	Update  map[string]any `json:"update"`
	Session map[string]any `json:"session"`
}

// SessionHandler exposes per-call field accumulation for the voice pipeline.
// A session is transient scratch space; the reservation endpoint is what
// persists anything.
type SessionHandler struct {
	service   sessionService
	responder responder
}

// NewSessionHandler constructs a session handler.
func NewSessionHandler(service sessionService, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{service: service, responder: newResponder(logger)}
}

// Get returns the call's session, creating a blank one on first access.
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	callSID, ok := CallSIDFromContext(r.Context())
	if !ok || callSID == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errMissingCallSID)
		return
	}

	session := h.service.Fetch(r.Context(), callSID)
	h.responder.writeJSON(r.Context(), w, http.StatusOK, sessionResponse{Session: session})
}

// Put merges update fields into the call's session. The body may wrap the
// fields under "update" or "session"; both historical shapes are accepted.
func (h *SessionHandler) Put(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	callSID, ok := CallSIDFromContext(r.Context())
	if !ok || callSID == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errMissingCallSID)
		return
	}

	var req sessionUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}
	update := req.Update
	if update == nil {
		update = req.Session
	}
	if update == nil {
		update = map[string]any{}
	}

	session := h.service.Apply(r.Context(), callSID, update)
	h.responder.writeJSON(r.Context(), w, http.StatusOK, sessionResponse{Session: session})
}
