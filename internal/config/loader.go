package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Storage backends supported by the reservation repository.
const (
	StorageMemory   = "memory"
	StorageSQLite   = "sqlite"
	StoragePostgres = "postgres"
)

// Config captures environment driven configuration values for the reservation service.
type Config struct {
	HTTPPort         int
	Storage          string
	SQLiteDSN        string
	PostgresURL      string
	RestaurantsFile  string
	MaxParallelCalls int
	LockTTL          time.Duration
	RatePerMinute    int
	AdminToken       string
	CORSOrigin       string
}

// Load parses configuration values from the current process environment.
//
// Optional fields fall back to sensible defaults; required values and
// malformed entries are accumulated so a single error reports everything
// that needs fixing.
func Load() (Config, error) {
	cfg := Config{
		HTTPPort:         8080,
		Storage:          StorageMemory,
		SQLiteDSN:        "file:ristorante.db?_pragma=journal_mode(wal)&_pragma=foreign_keys(on)",
		MaxParallelCalls: 3,
		LockTTL:          5 * time.Minute,
		RatePerMinute:    60,
		CORSOrigin:       "*",
	}

	missing := make([]string, 0, 1)
	invalid := make([]string, 0, 2)

	if portValue := strings.TrimSpace(os.Getenv("RISTORANTE_HTTP_PORT")); portValue != "" {
		port, err := strconv.Atoi(portValue)
		if err != nil || port <= 0 {
			invalid = append(invalid, "RISTORANTE_HTTP_PORT")
		} else {
			cfg.HTTPPort = port
		}
	}

	if storage := strings.TrimSpace(os.Getenv("RISTORANTE_STORAGE")); storage != "" {
		switch storage {
		case StorageMemory, StorageSQLite, StoragePostgres:
			cfg.Storage = storage
		default:
			invalid = append(invalid, "RISTORANTE_STORAGE")
		}
	}

	if dsn := strings.TrimSpace(os.Getenv("RISTORANTE_SQLITE_DSN")); dsn != "" {
		cfg.SQLiteDSN = dsn
	}

	cfg.PostgresURL = strings.TrimSpace(os.Getenv("RISTORANTE_POSTGRES_URL"))
	if cfg.Storage == StoragePostgres && cfg.PostgresURL == "" {
		missing = append(missing, "RISTORANTE_POSTGRES_URL")
	}

	cfg.RestaurantsFile = strings.TrimSpace(os.Getenv("RISTORANTE_RESTAURANTS_FILE"))

	if maxValue := strings.TrimSpace(os.Getenv("RISTORANTE_MAX_PARALLEL_CALLS")); maxValue != "" {
		max, err := strconv.Atoi(maxValue)
		if err != nil || max <= 0 {
			invalid = append(invalid, "RISTORANTE_MAX_PARALLEL_CALLS")
		} else {
			cfg.MaxParallelCalls = max
		}
	}

	if ttlValue := strings.TrimSpace(os.Getenv("RISTORANTE_LOCK_TTL")); ttlValue != "" {
		ttl, err := time.ParseDuration(ttlValue)
		if err != nil || ttl <= 0 {
			invalid = append(invalid, "RISTORANTE_LOCK_TTL")
		} else {
			cfg.LockTTL = ttl
		}
	}

	if rateValue := strings.TrimSpace(os.Getenv("RISTORANTE_RATE_PER_MINUTE")); rateValue != "" {
		perMinute, err := strconv.Atoi(rateValue)
		if err != nil || perMinute < 0 {
			invalid = append(invalid, "RISTORANTE_RATE_PER_MINUTE")
		} else {
			cfg.RatePerMinute = perMinute
		}
	}

	cfg.AdminToken = strings.TrimSpace(os.Getenv("RISTORANTE_ADMIN_TOKEN"))

	if origin := strings.TrimSpace(os.Getenv("RISTORANTE_CORS_ORIGIN")); origin != "" {
		cfg.CORSOrigin = origin
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("invalid environment variable values: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}
