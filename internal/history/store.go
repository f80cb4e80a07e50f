// Package history records warden operations in a local SQLite database so
// operators can see what was done to the stack, when, and whether it worked.
package history

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver registration
)

// ErrNotFound is returned when an event doesn't exist.
var ErrNotFound = errors.New("event not found")

// Store persists operation events in SQLite.
type Store struct {
	db *sql.DB
}

// Open opens or creates an event store at the given path, creating parent
// directories as needed.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating history dir: %w", err)
	}
	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := createTables(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func createTables(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS events (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			created_at TEXT NOT NULL,
			kind       TEXT NOT NULL,
			target     TEXT NOT NULL DEFAULT '',
			ok         INTEGER NOT NULL,
			latency_ms INTEGER NOT NULL DEFAULT 0,
			detail     TEXT NOT NULL DEFAULT ''
		);
		CREATE INDEX IF NOT EXISTS idx_events_kind ON events(kind);
		CREATE INDEX IF NOT EXISTS idx_events_created_at ON events(created_at);
	`)
	if err != nil {
		return fmt.Errorf("creating tables: %w", err)
	}
	return nil
}

// Append records a new event. A zero CreatedAt is filled with the current
// time.
func (s *Store) Append(e Event) (*Event, error) {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	res, err := s.db.Exec(`
		INSERT INTO events (created_at, kind, target, ok, latency_ms, detail)
		VALUES (?, ?, ?, ?, ?, ?)
	`, e.CreatedAt.Format(time.RFC3339Nano), string(e.Kind), e.Target, e.OK, e.LatencyMS, e.Detail)
	if err != nil {
		return nil, fmt.Errorf("inserting event: %w", err)
	}
	e.ID, err = res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("inserting event: %w", err)
	}
	return &e, nil
}

// Recent returns up to limit events, newest first. A kind of "" matches all
// kinds.
func (s *Store) Recent(kind Kind, limit int) ([]Event, error) {
	query := `
		SELECT id, created_at, kind, target, ok, latency_ms, detail
		FROM events
	`
	args := []any{}
	if kind != "" {
		query += ` WHERE kind = ?`
		args = append(args, string(kind))
	}
	query += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// Get retrieves an event by ID.
func (s *Store) Get(id int64) (*Event, error) {
	row := s.db.QueryRow(`
		SELECT id, created_at, kind, target, ok, latency_ms, detail
		FROM events WHERE id = ?
	`, id)

	var e Event
	var tsStr string
	err := row.Scan(&e.ID, &tsStr, &e.Kind, &e.Target, &e.OK, &e.LatencyMS, &e.Detail)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning event: %w", err)
	}
	e.CreatedAt, _ = time.Parse(time.RFC3339Nano, tsStr)
	return &e, nil
}

// Count returns the total number of recorded events.
func (s *Store) Count() int64 {
	var count int64
	s.db.QueryRow(`SELECT COUNT(*) FROM events`).Scan(&count)
	return count
}

// Prune deletes events older than the cutoff and returns how many were
// removed.
func (s *Store) Prune(cutoff time.Time) (int64, error) {
	res, err := s.db.Exec(`DELETE FROM events WHERE created_at < ?`,
		cutoff.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return 0, fmt.Errorf("pruning events: %w", err)
	}
	return res.RowsAffected()
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func scanEvent(rows *sql.Rows) (Event, error) {
	var e Event
	var tsStr string
	err := rows.Scan(&e.ID, &tsStr, &e.Kind, &e.Target, &e.OK, &e.LatencyMS, &e.Detail)
	if err != nil {
		return Event{}, fmt.Errorf("scanning event: %w", err)
	}
	e.CreatedAt, _ = time.Parse(time.RFC3339Nano, tsStr)
	return e, nil
}
