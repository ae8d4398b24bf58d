// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"errors"

	"github.com/ayazawa/kintore/internal/models"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// Store defines the interface over the three logical stores: roster, ledger
// (events + fingerprint index), and attendance matrix. This abstraction allows
// swapping storage backends (SQLite, PostgreSQL, etc.) without changing the
// service layer.
type Store interface {
	// Members returns the full roster in roster order.
	Members(ctx context.Context) ([]models.Member, error)

	// ImportMembers inserts the given members if the roster is empty.
	// Returns the number of members inserted (0 if the roster already
	// has entries).
	ImportMembers(ctx context.Context, members []models.Member) (int, error)

	// AppendEvent persists a new ledger event. The event.ID field will be
	// populated by the store if empty.
	AppendEvent(ctx context.Context, event *models.AttendanceEvent) error

	// EventsByMember returns all ledger events for a member, oldest first.
	EventsByMember(ctx context.Context, memberID string) ([]models.AttendanceEvent, error)

	// CreditExistsOn reports whether a credit event exists for the member
	// on the given calendar day (YYYY-MM-DD, home timezone).
	CreditExistsOn(ctx context.Context, memberID, day string) (bool, error)

	// FingerprintFirstSeen returns the first-seen date for a member's
	// content fingerprint, or ErrNotFound.
	FingerprintFirstSeen(ctx context.Context, memberID, fingerprint string) (string, error)

	// RecordFingerprint stores the first-seen date for a fingerprint.
	// Idempotent: a second call with the same member and fingerprint is a
	// no-op and keeps the original date.
	RecordFingerprint(ctx context.Context, memberID, fingerprint, day string) error

	// AppendRow appends one matrix row. Returns an error if a row for the
	// same day already exists.
	AppendRow(ctx context.Context, row *models.MatrixRow) error

	// RowExists reports whether a matrix row exists for the given day.
	RowExists(ctx context.Context, day string) (bool, error)

	// Rows returns all matrix rows of the current settlement period,
	// ordered by day.
	Rows(ctx context.Context) ([]models.MatrixRow, error)

	// UpdateRowMarks replaces the marks of an existing row. Used only for
	// the manual excused override. Returns ErrNotFound for unknown days.
	UpdateRowMarks(ctx context.Context, day string, marks []int) error

	// TruncateMatrix deletes all matrix rows, starting a fresh settlement
	// period.
	TruncateMatrix(ctx context.Context) error

	// Close releases any resources held by the store.
	Close() error
}
