package http

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/xalexyi/ristorante-api/internal/application"
)

var errMissingAdminToken = errors.New("admin token required")

// RequestLogger attaches a request-scoped logger carrying a ULID request id
// and logs request start and completion.
func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	if base == nil {
		base = slog.Default()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// ulid.Make uses the package's locked entropy source;
			// requests are handled on concurrent goroutines.
			id := ulid.Make()
			logger := base.With(
				"request_id", id.String(),
				"method", r.Method,
				"path", r.URL.Path,
			)

			ctx := ContextWithLogger(r.Context(), logger)
			start := time.Now()
			logger.InfoContext(ctx, "request started")
			next.ServeHTTP(w, r.WithContext(ctx))
			logger.InfoContext(ctx, "request completed", "duration", time.Since(start))
		})
	}
}

// CORS answers preflight requests and stamps the allowed origin on every
// response. The browser dashboard that consumes the API runs on another
// origin.
func CORS(origin string) func(http.Handler) http.Handler {
	if origin == "" {
		origin = "*"
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := w.Header()
			header.Set("Access-Control-Allow-Origin", origin)
			header.Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			header.Set("Access-Control-Allow-Headers", "Content-Type, X-Admin-Token")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAdminToken guards administrative endpoints with the shared secret
// carried in the X-Admin-Token header. With no token configured the
// endpoints are disabled outright.
func RequireAdminToken(token *application.AdminToken, logger *slog.Logger) func(http.Handler) http.Handler {
	responder := newResponder(logger)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token == nil {
				responder.writeJSON(r.Context(), w, http.StatusForbidden, errorResponse{Error: "admin endpoints disabled"})
				return
			}

			candidate := r.Header.Get("X-Admin-Token")
			if candidate == "" {
				responder.writeError(r.Context(), w, http.StatusUnauthorized, errMissingAdminToken)
				return
			}
			if !token.Verify(candidate) {
				responder.writeJSON(r.Context(), w, http.StatusUnauthorized, errorResponse{Error: "invalid admin token"})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
