package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/xalexyi/ristorante-api/internal/application"
)

var (
	errBadRequestBody       = errors.New("invalid request body")
	errMissingRestaurantID  = errors.New("restaurant_id is required")
	errMissingCallSID       = errors.New("call_sid is required")
	errInvalidReservationID = errors.New("invalid reservation id")
	errInvalidRestaurantID  = errors.New("invalid restaurant id")
	errRateLimited          = errors.New("rate limit exceeded, retry later")
)

type errorResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

type responder struct {
	logger *slog.Logger
}

func newResponder(logger *slog.Logger) responder {
	if logger == nil {
		logger = slog.Default()
	}
	return responder{logger: logger}
}

func (r responder) writeJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	if w == nil {
		return
	}

	if status == http.StatusNoContent || payload == nil {
		w.WriteHeader(status)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		r.loggerFor(ctx).ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func (r responder) writeError(ctx context.Context, w http.ResponseWriter, status int, err error) {
	message := http.StatusText(status)
	if err != nil {
		if msg := strings.TrimSpace(err.Error()); msg != "" {
			message = msg
		}
		r.loggerFor(ctx).WarnContext(ctx, "request failed", "status", status, "error", err)
	}

	r.writeJSON(ctx, w, status, errorResponse{Error: message})
}

// handleServiceError maps application errors onto the response taxonomy:
// rejections are 422 with the rule's reason verbatim, unrecognized payload
// fields are 400, missing resources are 404, everything else is a 500.
func (r responder) handleServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		r.writeError(ctx, w, http.StatusInternalServerError, errors.New("unknown error"))
		return
	}

	var rejection *application.RejectionError
	switch {
	case errors.As(err, &rejection):
		r.writeJSON(ctx, w, http.StatusUnprocessableEntity, errorResponse{Error: rejection.Reason})
	case errors.Is(err, application.ErrUnrecognizedField):
		r.writeJSON(ctx, w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, application.ErrNotFound):
		r.writeJSON(ctx, w, http.StatusNotFound, errorResponse{Error: "reservation not found"})
	default:
		r.loggerFor(ctx).ErrorContext(ctx, "request failed", "error", err, "error_kind", application.ErrorKind(err))
		r.writeJSON(ctx, w, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
	}
}

func (r responder) loggerFor(ctx context.Context) *slog.Logger {
	if logger := LoggerFromContext(ctx); logger != nil {
		return logger
	}
	return r.logger
}
