package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/ayazawa/kintore/internal/models"
	"github.com/ayazawa/kintore/internal/storage"
)

// Marks are stored as a comma-joined vector ("0,1,0"), the same row encoding
// the legacy daily.csv used.

func encodeMarks(marks []int) string {
	parts := make([]string, len(marks))
	for i, m := range marks {
		parts[i] = strconv.Itoa(m)
	}
	return strings.Join(parts, ",")
}

func decodeMarks(raw string) ([]int, error) {
	if raw == "" {
		return nil, fmt.Errorf("empty marks")
	}
	parts := strings.Split(raw, ",")
	marks := make([]int, len(parts))
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("bad mark %q: %w", p, err)
		}
		marks[i] = v
	}
	return marks, nil
}

// AppendRow appends one matrix row. A second row for the same day is an error.
func (s *SQLiteStore) AppendRow(ctx context.Context, row *models.MatrixRow) error {
	if row.CreatedAt == 0 {
		row.CreatedAt = time.Now().Unix()
	}

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO matrix_rows (day, marks, created_at) VALUES (?, ?, ?)",
		row.Day, encodeMarks(row.Marks), row.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert matrix row: %w", err)
	}

	return nil
}

// RowExists reports whether a matrix row exists for the given day.
func (s *SQLiteStore) RowExists(ctx context.Context, day string) (bool, error) {
	var exists int
	err := s.db.QueryRowContext(ctx,
		"SELECT 1 FROM matrix_rows WHERE day = ?", day,
	).Scan(&exists)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check matrix row: %w", err)
	}
	return true, nil
}

// Rows returns all matrix rows ordered by day. A row whose marks cannot be
// decoded is returned with nil Marks so consumers can skip it; this mirrors
// the corrupt-row tolerance of the settlement engine.
func (s *SQLiteStore) Rows(ctx context.Context) ([]models.MatrixRow, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT day, marks, created_at FROM matrix_rows ORDER BY day",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query matrix rows: %w", err)
	}
	defer rows.Close()

	var result []models.MatrixRow
	for rows.Next() {
		var r models.MatrixRow
		var raw string
		if err := rows.Scan(&r.Day, &raw, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan matrix row: %w", err)
		}
		marks, err := decodeMarks(raw)
		if err != nil {
			slog.Warn("Skipping undecodable matrix row", "day", r.Day, "error", err)
		} else {
			r.Marks = marks
		}
		result = append(result, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate matrix rows: %w", err)
	}

	return result, nil
}

// UpdateRowMarks replaces the marks of an existing row (manual excused override).
func (s *SQLiteStore) UpdateRowMarks(ctx context.Context, day string, marks []int) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE matrix_rows SET marks = ? WHERE day = ?",
		encodeMarks(marks), day,
	)
	if err != nil {
		return fmt.Errorf("failed to update matrix row: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// TruncateMatrix deletes all matrix rows, starting a fresh settlement period.
func (s *SQLiteStore) TruncateMatrix(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM matrix_rows"); err != nil {
		return fmt.Errorf("failed to truncate matrix: %w", err)
	}
	return nil
}
