// Package postgres implements the reservation repository on PostgreSQL via
// pgx. It is the production substitution for the in-memory and SQLite
// backends; the dedup invariant is enforced by a partial unique index.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xalexyi/ristorante-api/internal/persistence"
)

const uniqueViolation = "23505"

// Storage is a PostgreSQL-backed reservation repository.
type Storage struct {
	pool *pgxpool.Pool
}

// Open connects to PostgreSQL using the given URL.
func Open(ctx context.Context, databaseURL string) (*Storage, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("postgres: parse config: %w", err)
	}
	cfg.MaxConnLifetime = 5 * time.Minute
	cfg.MaxConnIdleTime = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres: connect: %w", err)
	}
	return &Storage{pool: pool}, nil
}

// Close releases the connection pool.
func (s *Storage) Close() error {
	if s != nil && s.pool != nil {
		s.pool.Close()
	}
	return nil
}

// Ping verifies the database connection.
func (s *Storage) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return s.pool.Ping(ctx)
}

// Migrate creates the schema when missing.
func (s *Storage) Migrate(ctx context.Context) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS reservations (
		id TEXT PRIMARY KEY,
		restaurant_id BIGINT NOT NULL,
		source TEXT NOT NULL DEFAULT '',
		call_sid TEXT NOT NULL DEFAULT '',
		customer_name TEXT NOT NULL DEFAULT '',
		customer_phone TEXT NOT NULL DEFAULT '',
		reservation_date TEXT NOT NULL DEFAULT '',
		reservation_time TEXT NOT NULL DEFAULT '',
		people INT NOT NULL DEFAULT 0,
		items TEXT[] NOT NULL DEFAULT '{}',
		notes TEXT NOT NULL DEFAULT '',
		timezone TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_reservations_dedup
		ON reservations(restaurant_id, call_sid) WHERE call_sid <> '';
	CREATE INDEX IF NOT EXISTS idx_reservations_restaurant
		ON reservations(restaurant_id, created_at);
	`
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("postgres: migrate: %w", err)
	}
	return nil
}

// Save inserts a new reservation, mapping the unique index violation to
// persistence.ErrDuplicateCallSID.
func (s *Storage) Save(ctx context.Context, reservation persistence.Reservation) error {
	const query = `
		INSERT INTO reservations (
			id, restaurant_id, source, call_sid, customer_name, customer_phone,
			reservation_date, reservation_time, people, items, notes, timezone,
			created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
	`
	_, err := s.pool.Exec(ctx, query,
		reservation.ID,
		reservation.RestaurantID,
		reservation.Source,
		reservation.CallSID,
		reservation.Name,
		reservation.Phone,
		reservation.Date,
		reservation.Time,
		reservation.People,
		itemsOrEmpty(reservation.Items),
		reservation.Notes,
		reservation.Timezone,
		reservation.CreatedAt.UTC(),
		reservation.UpdatedAt.UTC(),
	)
	if err != nil {
		// Only the dedup index signals a call-SID duplicate; an id
		// primary-key collision is a different failure.
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation && pgErr.ConstraintName == "idx_reservations_dedup" {
			return persistence.ErrDuplicateCallSID
		}
		return fmt.Errorf("postgres: save reservation: %w", err)
	}
	return nil
}

// Update rewrites the mutable fields of an existing reservation.
func (s *Storage) Update(ctx context.Context, reservation persistence.Reservation) error {
	const query = `
		UPDATE reservations
		SET source=$2, customer_name=$3, customer_phone=$4, reservation_date=$5,
			reservation_time=$6, people=$7, items=$8, notes=$9, timezone=$10,
			updated_at=$11
		WHERE id=$1
	`
	tag, err := s.pool.Exec(ctx, query,
		reservation.ID,
		reservation.Source,
		reservation.Name,
		reservation.Phone,
		reservation.Date,
		reservation.Time,
		reservation.People,
		itemsOrEmpty(reservation.Items),
		reservation.Notes,
		reservation.Timezone,
		reservation.UpdatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("postgres: update reservation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

const selectColumns = `
	id, restaurant_id, source, call_sid, customer_name, customer_phone,
	reservation_date, reservation_time, people, items, notes, timezone,
	created_at, updated_at
`

// FindByID fetches one reservation by identifier.
func (s *Storage) FindByID(ctx context.Context, id string) (persistence.Reservation, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+selectColumns+` FROM reservations WHERE id=$1`, id)
	return scanReservation(row)
}

// FindByDedupKey fetches the reservation holding the deduplication key.
func (s *Storage) FindByDedupKey(ctx context.Context, restaurantID int64, callSID string) (persistence.Reservation, error) {
	if callSID == "" {
		return persistence.Reservation{}, persistence.ErrNotFound
	}
	row := s.pool.QueryRow(ctx,
		`SELECT `+selectColumns+` FROM reservations WHERE restaurant_id=$1 AND call_sid=$2`,
		restaurantID, callSID)
	return scanReservation(row)
}

// ListByRestaurant returns the restaurant's reservations, newest first.
func (s *Storage) ListByRestaurant(ctx context.Context, restaurantID int64) ([]persistence.Reservation, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+selectColumns+` FROM reservations WHERE restaurant_id=$1 ORDER BY created_at DESC, id`,
		restaurantID)
	if err != nil {
		return nil, fmt.Errorf("postgres: list reservations: %w", err)
	}
	defer rows.Close()

	var out []persistence.Reservation
	for rows.Next() {
		reservation, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, reservation)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list reservations: %w", err)
	}
	return out, nil
}

// DeleteByID removes a reservation.
func (s *Storage) DeleteByID(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM reservations WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("postgres: delete reservation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReservation(row rowScanner) (persistence.Reservation, error) {
	var reservation persistence.Reservation
	err := row.Scan(
		&reservation.ID,
		&reservation.RestaurantID,
		&reservation.Source,
		&reservation.CallSID,
		&reservation.Name,
		&reservation.Phone,
		&reservation.Date,
		&reservation.Time,
		&reservation.People,
		&reservation.Items,
		&reservation.Notes,
		&reservation.Timezone,
		&reservation.CreatedAt,
		&reservation.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return persistence.Reservation{}, persistence.ErrNotFound
		}
		return persistence.Reservation{}, fmt.Errorf("postgres: scan reservation: %w", err)
	}
	return reservation, nil
}

func itemsOrEmpty(items []string) []string {
	if items == nil {
		return []string{}
	}
	return items
}
