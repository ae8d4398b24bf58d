// Package scanner converts the attendance ledger into daily matrix rows.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ayazawa/kintore/internal/models"
)

// ErrAlreadyScanned is returned when a matrix row for the requested day
// already exists. The existing row is left untouched.
var ErrAlreadyScanned = errors.New("matrix row already recorded for day")

// Store is the storage surface the scanner needs.
type Store interface {
	Members(ctx context.Context) ([]models.Member, error)
	EventsByMember(ctx context.Context, memberID string) ([]models.AttendanceEvent, error)
	RowExists(ctx context.Context, day string) (bool, error)
	AppendRow(ctx context.Context, row *models.MatrixRow) error
}

// Scanner emits one presence/absence row per day from the ledger.
type Scanner struct {
	store Store
	loc   *time.Location
}

// New creates a Scanner. loc is the home timezone; the day window and all
// timestamp comparisons are evaluated in it.
func New(store Store, loc *time.Location) *Scanner {
	return &Scanner{store: store, loc: loc}
}

// Scan builds and appends the matrix row for the given calendar day.
// A member is present when the ledger holds at least one credit inside
// [00:00, 24:00) of that day in the home timezone. The scanner emits only
// present(0) and absent(1); excused(2) is a manual override applied to stored
// rows later.
//
// Scanning a day that already has a row is a no-op returning ErrAlreadyScanned,
// so a double-fired schedule cannot produce duplicate rows.
func (s *Scanner) Scan(ctx context.Context, day time.Time) (models.MatrixRow, error) {
	dayKey := day.In(s.loc).Format("2006-01-02")

	exists, err := s.store.RowExists(ctx, dayKey)
	if err != nil {
		return models.MatrixRow{}, fmt.Errorf("failed to check existing row: %w", err)
	}
	if exists {
		return models.MatrixRow{}, fmt.Errorf("%w: %s", ErrAlreadyScanned, dayKey)
	}

	members, err := s.store.Members(ctx)
	if err != nil {
		return models.MatrixRow{}, fmt.Errorf("failed to load roster: %w", err)
	}

	local := day.In(s.loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, s.loc)
	end := start.AddDate(0, 0, 1)

	marks := make([]int, len(members))
	for i, m := range members {
		events, err := s.store.EventsByMember(ctx, m.ID)
		if err != nil {
			return models.MatrixRow{}, fmt.Errorf("failed to load events for %s: %w", m.ID, err)
		}

		marks[i] = models.MarkAbsent
		for _, e := range events {
			if e.Kind != models.EventCredit {
				continue
			}
			ts, err := parseTimestamp(e.RecordedAt, s.loc)
			if err != nil {
				slog.Warn("Skipping malformed ledger timestamp",
					"member_id", m.ID, "recorded_at", e.RecordedAt, "error", err)
				continue
			}
			if !ts.Before(start) && ts.Before(end) {
				marks[i] = models.MarkPresent
				break
			}
		}
	}

	row := models.MatrixRow{Day: dayKey, Marks: marks}
	if err := s.store.AppendRow(ctx, &row); err != nil {
		return models.MatrixRow{}, fmt.Errorf("failed to append row: %w", err)
	}

	slog.Info("Matrix row appended", "day", dayKey, "marks", marks)
	return row, nil
}

// parseTimestamp accepts RFC 3339 timestamps plus the naive legacy form
// without a zone offset; naive timestamps are interpreted in the home
// timezone, zoned ones are converted into it.
func parseTimestamp(raw string, loc *time.Location) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, raw); err == nil {
		return ts.In(loc), nil
	}
	if ts, err := time.ParseInLocation("2006-01-02T15:04:05", raw, loc); err == nil {
		return ts, nil
	}
	if ts, err := time.ParseInLocation("2006-01-02T15:04:05.999999", raw, loc); err == nil {
		return ts, nil
	}
	return time.Time{}, fmt.Errorf("unparseable timestamp %q", raw)
}
