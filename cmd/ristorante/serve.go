package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/xalexyi/ristorante-api/internal/application"
	"github.com/xalexyi/ristorante-api/internal/config"
	"github.com/xalexyi/ristorante-api/internal/gate"
	httptransport "github.com/xalexyi/ristorante-api/internal/http"
	"github.com/xalexyi/ristorante-api/internal/logging"
	"github.com/xalexyi/ristorante-api/internal/persistence"
	"github.com/xalexyi/ristorante-api/internal/persistence/memory"
	"github.com/xalexyi/ristorante-api/internal/persistence/postgres"
	"github.com/xalexyi/ristorante-api/internal/persistence/sqlite"
	"github.com/xalexyi/ristorante-api/internal/policy"
	"github.com/xalexyi/ristorante-api/internal/ratelimit"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the reservation API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}
}

func runServe() error {
	logger := logging.New(os.Stdout, slog.LevelInfo)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		return err
	}

	policies, err := loadPolicies(cfg)
	if err != nil {
		logger.Error("failed to load restaurant policies", "error", err)
		return err
	}

	repo, closeRepo, err := openRepository(ctx, cfg)
	if err != nil {
		logger.Error("failed to open storage", "error", err, "storage", cfg.Storage)
		return err
	}
	defer func() {
		if cerr := closeRepo(); cerr != nil {
			logger.Error("failed to close storage", "error", cerr)
		}
	}()

	adminToken, err := application.NewAdminToken(cfg.AdminToken)
	if err != nil {
		logger.Error("failed to derive admin token verifier", "error", err)
		return err
	}
	if adminToken == nil {
		logger.Info("admin endpoints disabled, no admin token configured")
	}

	now := time.Now
	reservationService := application.NewReservationServiceWithLogger(repo, policies, uuid.NewString, now, logger)
	sessionService := application.NewSessionService(application.DefaultSessionTTL, now, logger)
	admissions := gate.New(cfg.MaxParallelCalls, cfg.LockTTL)

	limiter := ratelimit.NewStore(cfg.RatePerMinute)
	limiter.StartJanitor(ctx)

	router := httptransport.NewRouter(httptransport.RouterConfig{
		Gate:         httptransport.NewGateHandler(admissions, logger),
		Reservations: httptransport.NewReservationHandler(reservationService, limiter, logger),
		Sessions:     httptransport.NewSessionHandler(sessionService, logger),
		Restaurants:  httptransport.NewRestaurantHandler(policies, logger),
		AdminGuard:   httptransport.RequireAdminToken(adminToken, logger),
		Middleware: []func(http.Handler) http.Handler{
			httptransport.RequestLogger(logger),
			httptransport.CORS(cfg.CORSOrigin),
		},
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
	}()

	logger.Info("reservation API listening",
		"addr", server.Addr,
		"storage", cfg.Storage,
		"max_parallel_calls", cfg.MaxParallelCalls,
		"lock_ttl", cfg.LockTTL,
	)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server encountered error", "error", err)
		return err
	}
	return nil
}

func loadPolicies(cfg config.Config) (*policy.Registry, error) {
	if cfg.RestaurantsFile == "" {
		return policy.DefaultSeed(), nil
	}
	return policy.LoadFile(cfg.RestaurantsFile)
}

// openRepository selects the reservation store from configuration and runs
// migrations for the SQL backends.
func openRepository(ctx context.Context, cfg config.Config) (persistence.ReservationRepository, func() error, error) {
	switch cfg.Storage {
	case config.StorageMemory:
		return memory.NewRepository(), func() error { return nil }, nil

	case config.StorageSQLite:
		storage, err := sqlite.Open(cfg.SQLiteDSN)
		if err != nil {
			return nil, nil, err
		}
		if err := storage.Migrate(ctx); err != nil {
			_ = storage.Close()
			return nil, nil, err
		}
		return storage, storage.Close, nil

	case config.StoragePostgres:
		storage, err := postgres.Open(ctx, cfg.PostgresURL)
		if err != nil {
			return nil, nil, err
		}
		if err := storage.Migrate(ctx); err != nil {
			_ = storage.Close()
			return nil, nil, err
		}
		return storage, storage.Close, nil

	default:
		return nil, nil, fmt.Errorf("unsupported storage backend %q", cfg.Storage)
	}
}
