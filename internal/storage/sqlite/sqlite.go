// Package sqlite provides a SQLite-backed implementation of the storage.Store interface.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"github.com/ayazawa/kintore/internal/models"
	"github.com/ayazawa/kintore/internal/storage"
)

// Ensure SQLiteStore implements storage.Store
var _ storage.Store = (*SQLiteStore)(nil)

// SQLiteStore implements storage.Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// New creates a new SQLiteStore with the given database path.
// It creates the parent directories and runs migrations automatically.
func New(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Single-writer: serializes read-modify-write across the ledger and
	// fingerprint tables, which is what keeps the per-day credit invariant
	// intact under concurrent events.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Members returns the roster ordered by position.
func (s *SQLiteStore) Members(ctx context.Context) ([]models.Member, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, display_name, position FROM members ORDER BY position",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query members: %w", err)
	}
	defer rows.Close()

	var members []models.Member
	for rows.Next() {
		var m models.Member
		if err := rows.Scan(&m.ID, &m.DisplayName, &m.Position); err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate members: %w", err)
	}

	return members, nil
}

// ImportMembers inserts the given members only when the roster table is empty.
func (s *SQLiteStore) ImportMembers(ctx context.Context, members []models.Member) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var count int
	if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM members").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count members: %w", err)
	}
	if count > 0 {
		return 0, nil
	}

	for _, m := range members {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO members (id, display_name, position) VALUES (?, ?, ?)",
			m.ID, m.DisplayName, m.Position,
		)
		if err != nil {
			return 0, fmt.Errorf("failed to insert member %s: %w", m.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return len(members), nil
}

// AppendEvent persists a new ledger event.
func (s *SQLiteStore) AppendEvent(ctx context.Context, event *models.AttendanceEvent) error {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}

	var dupOf interface{}
	if event.DuplicateOf != "" {
		dupOf = event.DuplicateOf
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO attendance_events (id, member_id, kind, recorded_at, duplicate_of)
		 VALUES (?, ?, ?, ?, ?)`,
		event.ID, event.MemberID, string(event.Kind), event.RecordedAt, dupOf,
	)
	if err != nil {
		return fmt.Errorf("failed to insert event: %w", err)
	}

	return nil
}

// EventsByMember returns all ledger events for a member, oldest first.
func (s *SQLiteStore) EventsByMember(ctx context.Context, memberID string) ([]models.AttendanceEvent, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, member_id, kind, recorded_at, duplicate_of
		 FROM attendance_events WHERE member_id = ? ORDER BY recorded_at`,
		memberID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []models.AttendanceEvent
	for rows.Next() {
		var e models.AttendanceEvent
		var kind string
		var dupOf sql.NullString
		if err := rows.Scan(&e.ID, &e.MemberID, &kind, &e.RecordedAt, &dupOf); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		e.Kind = models.EventKind(kind)
		if dupOf.Valid {
			e.DuplicateOf = dupOf.String
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate events: %w", err)
	}

	return events, nil
}

// CreditExistsOn reports whether a credit exists for the member on the given
// day. Events written by this system carry home-timezone RFC 3339 timestamps,
// so the date is the first 10 characters.
func (s *SQLiteStore) CreditExistsOn(ctx context.Context, memberID, day string) (bool, error) {
	var exists int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM attendance_events
		 WHERE member_id = ? AND kind = 'credit' AND substr(recorded_at, 1, 10) = ?
		 LIMIT 1`,
		memberID, day,
	).Scan(&exists)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check credit: %w", err)
	}
	return true, nil
}

// FingerprintFirstSeen returns the first-seen date for a fingerprint.
func (s *SQLiteStore) FingerprintFirstSeen(ctx context.Context, memberID, fingerprint string) (string, error) {
	var firstSeen string
	err := s.db.QueryRowContext(ctx,
		"SELECT first_seen FROM fingerprints WHERE member_id = ? AND fingerprint = ?",
		memberID, fingerprint,
	).Scan(&firstSeen)
	if err == sql.ErrNoRows {
		return "", storage.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to get fingerprint: %w", err)
	}
	return firstSeen, nil
}

// RecordFingerprint stores the first-seen date for a fingerprint. A repeated
// call keeps the original date.
func (s *SQLiteStore) RecordFingerprint(ctx context.Context, memberID, fingerprint, day string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO fingerprints (member_id, fingerprint, first_seen) VALUES (?, ?, ?)",
		memberID, fingerprint, day,
	)
	if err != nil {
		return fmt.Errorf("failed to record fingerprint: %w", err)
	}
	return nil
}
