// Package sqlite implements the reservation repository on SQLite using the
// pure-Go modernc.org driver.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/xalexyi/ristorante-api/internal/persistence"
)

// Storage is a SQLite-backed reservation repository.
type Storage struct {
	db *sql.DB
}

// Open connects to the SQLite database at the given DSN.
func Open(dsn string) (*Storage, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	// modernc.org/sqlite serializes writes; a single connection avoids
	// SQLITE_BUSY churn under concurrent request load.
	db.SetMaxOpenConns(1)
	return &Storage{db: db}, nil
}

// Close releases the database handle.
func (s *Storage) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Migrate creates the schema when missing. The partial unique index is what
// enforces the (restaurant_id, call_sid) deduplication invariant at the
// storage layer; empty call SIDs stay outside it.
func (s *Storage) Migrate(ctx context.Context) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS reservations (
		id TEXT PRIMARY KEY,
		restaurant_id INTEGER NOT NULL,
		source TEXT NOT NULL DEFAULT '',
		call_sid TEXT NOT NULL DEFAULT '',
		customer_name TEXT NOT NULL DEFAULT '',
		customer_phone TEXT NOT NULL DEFAULT '',
		reservation_date TEXT NOT NULL DEFAULT '',
		reservation_time TEXT NOT NULL DEFAULT '',
		people INTEGER NOT NULL DEFAULT 0,
		items TEXT NOT NULL DEFAULT '[]',
		notes TEXT NOT NULL DEFAULT '',
		timezone TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_reservations_dedup
		ON reservations(restaurant_id, call_sid) WHERE call_sid <> '';
	CREATE INDEX IF NOT EXISTS idx_reservations_restaurant
		ON reservations(restaurant_id, created_at);
	`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("sqlite: migrate: %w", err)
	}
	return nil
}

// Ping verifies the database connection.
func (s *Storage) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Save inserts a new reservation, mapping the unique index violation to
// persistence.ErrDuplicateCallSID.
func (s *Storage) Save(ctx context.Context, reservation persistence.Reservation) error {
	items, err := encodeItems(reservation.Items)
	if err != nil {
		return err
	}

	const query = `
		INSERT INTO reservations (
			id, restaurant_id, source, call_sid, customer_name, customer_phone,
			reservation_date, reservation_time, people, items, notes, timezone,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = s.db.ExecContext(ctx, query,
		reservation.ID,
		reservation.RestaurantID,
		reservation.Source,
		reservation.CallSID,
		reservation.Name,
		reservation.Phone,
		reservation.Date,
		reservation.Time,
		reservation.People,
		items,
		reservation.Notes,
		reservation.Timezone,
		reservation.CreatedAt.UTC().Format(time.RFC3339Nano),
		reservation.UpdatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		if isDedupViolation(err) {
			return persistence.ErrDuplicateCallSID
		}
		return fmt.Errorf("sqlite: save reservation: %w", err)
	}
	return nil
}

// isDedupViolation matches only the idx_reservations_dedup unique index.
// The driver spells violations by column list, so the call_sid column is
// what distinguishes a dedup conflict from, say, an id primary-key
// collision.
func isDedupViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") &&
		strings.Contains(msg, "reservations.call_sid")
}

// Update rewrites the mutable fields of an existing reservation.
func (s *Storage) Update(ctx context.Context, reservation persistence.Reservation) error {
	items, err := encodeItems(reservation.Items)
	if err != nil {
		return err
	}

	const query = `
		UPDATE reservations
		SET source = ?, customer_name = ?, customer_phone = ?,
			reservation_date = ?, reservation_time = ?, people = ?, items = ?,
			notes = ?, timezone = ?, updated_at = ?
		WHERE id = ?
	`
	result, err := s.db.ExecContext(ctx, query,
		reservation.Source,
		reservation.Name,
		reservation.Phone,
		reservation.Date,
		reservation.Time,
		reservation.People,
		items,
		reservation.Notes,
		reservation.Timezone,
		reservation.UpdatedAt.UTC().Format(time.RFC3339Nano),
		reservation.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: update reservation: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: update reservation: %w", err)
	}
	if affected == 0 {
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
	row := s.db.QueryRowContext(ctx,
		`SELECT `+selectColumns+` FROM reservations WHERE id = ?`, id)
	return scanReservation(row)
}

// FindByDedupKey fetches the reservation holding the deduplication key.
func (s *Storage) FindByDedupKey(ctx context.Context, restaurantID int64, callSID string) (persistence.Reservation, error) {
	if callSID == "" {
		return persistence.Reservation{}, persistence.ErrNotFound
	}
	row := s.db.QueryRowContext(ctx,
		`SELECT `+selectColumns+` FROM reservations WHERE restaurant_id = ? AND call_sid = ?`,
		restaurantID, callSID)
	return scanReservation(row)
}

// ListByRestaurant returns the restaurant's reservations, newest first.
func (s *Storage) ListByRestaurant(ctx context.Context, restaurantID int64) ([]persistence.Reservation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+selectColumns+` FROM reservations WHERE restaurant_id = ? ORDER BY created_at DESC, id`,
		restaurantID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list reservations: %w", err)
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
		return nil, fmt.Errorf("sqlite: list reservations: %w", err)
	}
	return out, nil
}

// DeleteByID removes a reservation.
func (s *Storage) DeleteByID(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM reservations WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: delete reservation: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: delete reservation: %w", err)
	}
	if affected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReservation(row rowScanner) (persistence.Reservation, error) {
	var (
		reservation          persistence.Reservation
		items                string
		createdAt, updatedAt string
	)
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
		&items,
		&reservation.Notes,
		&reservation.Timezone,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.Reservation{}, persistence.ErrNotFound
		}
		return persistence.Reservation{}, fmt.Errorf("sqlite: scan reservation: %w", err)
	}

	if err := json.Unmarshal([]byte(items), &reservation.Items); err != nil {
		return persistence.Reservation{}, fmt.Errorf("sqlite: decode items: %w", err)
	}
	if reservation.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return persistence.Reservation{}, fmt.Errorf("sqlite: parse created_at: %w", err)
	}
	if reservation.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
		return persistence.Reservation{}, fmt.Errorf("sqlite: parse updated_at: %w", err)
	}
	return reservation, nil
}

func encodeItems(items []string) (string, error) {
	if items == nil {
		items = []string{}
	}
	encoded, err := json.Marshal(items)
	if err != nil {
		return "", fmt.Errorf("sqlite: encode items: %w", err)
	}
	return string(encoded), nil
}
