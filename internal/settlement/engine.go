package settlement

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ayazawa/kintore/internal/models"
)

// ErrNoData is returned when there is nothing to settle (empty roster or no
// matrix rows).
var ErrNoData = errors.New("no data available")

// Store is the storage surface the engine needs.
type Store interface {
	Members(ctx context.Context) ([]models.Member, error)
	Rows(ctx context.Context) ([]models.MatrixRow, error)
	TruncateMatrix(ctx context.Context) error
}

// Broadcaster delivers the settlement report to the group.
type Broadcaster interface {
	Push(ctx context.Context, text string) error
}

// Engine orchestrates a settlement run: load roster and matrix, calculate,
// broadcast the report, and in automatic mode reset the matrix for the next
// period.
type Engine struct {
	store       Store
	broadcaster Broadcaster
	fee         decimal.Decimal
	loc         *time.Location

	now func() time.Time
}

// NewEngine creates a settlement engine. broadcaster may be nil, in which
// case the report is only returned, never pushed.
func NewEngine(store Store, broadcaster Broadcaster, fee decimal.Decimal, loc *time.Location) *Engine {
	return &Engine{
		store:       store,
		broadcaster: broadcaster,
		fee:         fee,
		loc:         loc,
		now:         time.Now,
	}
}

// Run performs one settlement. In auto mode the report is prefixed with the
// previous calendar month's label and the matrix is truncated afterwards;
// manual runs never touch the matrix. A broadcast failure is logged and does
// not abort the run; a store failure does.
func (e *Engine) Run(ctx context.Context, auto bool) ([]models.Balance, string, error) {
	roster, err := e.store.Members(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("failed to load roster: %w", err)
	}
	if len(roster) == 0 {
		return nil, "", fmt.Errorf("%w: empty roster", ErrNoData)
	}

	rows, err := e.store.Rows(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("failed to load matrix: %w", err)
	}
	if len(rows) == 0 {
		return nil, "", fmt.Errorf("%w: no matrix rows", ErrNoData)
	}

	balances := Calculate(roster, rows, e.fee)
	report := e.formatReport(balances, auto)

	if e.broadcaster != nil {
		if err := e.broadcaster.Push(ctx, report); err != nil {
			slog.Error("Failed to broadcast settlement report", "error", err)
		}
	}

	if auto {
		if err := e.store.TruncateMatrix(ctx); err != nil {
			return nil, "", fmt.Errorf("failed to reset matrix: %w", err)
		}
		slog.Info("Matrix reset for new settlement period", "rows_settled", len(rows))
	}

	return balances, report, nil
}

// formatReport renders the multi-line report, one "name: amount円" line per
// member in roster order. Auto runs carry the previous month's label on top.
func (e *Engine) formatReport(balances []models.Balance, auto bool) string {
	lines := make([]string, 0, len(balances)+1)
	if auto {
		lines = append(lines, e.previousMonthLabel())
	}
	for _, b := range balances {
		lines = append(lines, fmt.Sprintf("%s: %s円", b.DisplayName, b.Amount.StringFixed(2)))
	}
	return strings.Join(lines, "\n")
}

// previousMonthLabel returns e.g. "7月総計" when run in August.
func (e *Engine) previousMonthLabel() string {
	now := e.now().In(e.loc)
	firstOfMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, e.loc)
	last := firstOfMonth.AddDate(0, 0, -1)
	return fmt.Sprintf("%d月総計", int(last.Month()))
}
