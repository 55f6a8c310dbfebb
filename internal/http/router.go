package http

import (
	"net/http"
	"strconv"
	"strings"
)

type RouterConfig struct {
	Gate         *GateHandler
	Reservations *ReservationHandler
	Sessions     *SessionHandler
	Restaurants  *RestaurantHandler
	AdminGuard   func(http.Handler) http.Handler
	Middleware   []func(http.Handler) http.Handler
}

func NewRouter(cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			methodNotAllowed(w, http.MethodGet)
			return
		}
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.Write([]byte(`{"ok":true}` + "\n"))
	})

	if cfg.Gate != nil {
		mux.HandleFunc("/api/lock/acquire", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			cfg.Gate.Acquire(w, r)
		})
		mux.HandleFunc("/api/lock/release", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			cfg.Gate.Release(w, r)
		})
	}

	if cfg.Reservations != nil {
		adminOnly := adminGuard(cfg.AdminGuard)

		mux.HandleFunc("/api/reservations", func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodPost:
				cfg.Reservations.Create(w, r)
			case http.MethodGet:
				adminOnly(http.HandlerFunc(cfg.Reservations.List)).ServeHTTP(w, r)
			default:
				methodNotAllowed(w, http.MethodPost, http.MethodGet)
			}
		})
		mux.HandleFunc("/api/reservations/", func(w http.ResponseWriter, r *http.Request) {
			id := strings.TrimPrefix(r.URL.Path, "/api/reservations/")
			if id == "" || strings.Contains(id, "/") {
				http.NotFound(w, r)
				return
			}
			ctx := ContextWithReservationID(r.Context(), id)
			r = r.WithContext(ctx)
			switch r.Method {
			case http.MethodGet:
				cfg.Reservations.Get(w, r)
			case http.MethodDelete:
				adminOnly(http.HandlerFunc(cfg.Reservations.Delete)).ServeHTTP(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodDelete)
			}
		})
	}

	if cfg.Sessions != nil {
		mux.HandleFunc("/api/sessions/", func(w http.ResponseWriter, r *http.Request) {
			callSID := strings.TrimPrefix(r.URL.Path, "/api/sessions/")
			if callSID == "" || strings.Contains(callSID, "/") {
				http.NotFound(w, r)
				return
			}
			ctx := ContextWithCallSID(r.Context(), callSID)
			r = r.WithContext(ctx)
			switch r.Method {
			case http.MethodGet:
				cfg.Sessions.Get(w, r)
			case http.MethodPut:
				cfg.Sessions.Put(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPut)
			}
		})
	}

	if cfg.Restaurants != nil {
		mux.HandleFunc("/api/restaurants", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				methodNotAllowed(w, http.MethodGet)
				return
			}
			cfg.Restaurants.List(w, r)
		})
		mux.HandleFunc("/api/restaurants/", func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimPrefix(r.URL.Path, "/api/restaurants/")
			if raw == "" || strings.Contains(raw, "/") {
				http.NotFound(w, r)
				return
			}
			if r.Method != http.MethodGet {
				methodNotAllowed(w, http.MethodGet)
				return
			}
			id, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				http.NotFound(w, r)
				return
			}
			ctx := ContextWithRestaurantID(r.Context(), id)
			cfg.Restaurants.Get(w, r.WithContext(ctx))
		})
	}

	var handler http.Handler = mux
	for i := len(cfg.Middleware) - 1; i >= 0; i-- {
		if cfg.Middleware[i] != nil {
			handler = cfg.Middleware[i](handler)
		}
	}

	return handler
}

// adminGuard returns the configured guard, or a pass-through when none is
// configured so handlers stay reachable in tests.
func adminGuard(guard func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	if guard != nil {
		return guard
	}
	return func(next http.Handler) http.Handler { return next }
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	if len(allowed) > 0 {
		w.Header().Set("Allow", strings.Join(allowed, ", "))
	}
	http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
}
