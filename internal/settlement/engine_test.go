package settlement

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ayazawa/kintore/internal/models"
)

var jst = time.FixedZone("JST", 9*60*60)

// fakeEngineStore is an in-memory engine store.
type fakeEngineStore struct {
	members   []models.Member
	rows      []models.MatrixRow
	truncated bool
}

func (f *fakeEngineStore) Members(_ context.Context) ([]models.Member, error) {
	return f.members, nil
}

func (f *fakeEngineStore) Rows(_ context.Context) ([]models.MatrixRow, error) {
	return f.rows, nil
}

func (f *fakeEngineStore) TruncateMatrix(_ context.Context) error {
	f.truncated = true
	f.rows = nil
	return nil
}

// fakeBroadcaster records pushes and optionally fails.
type fakeBroadcaster struct {
	pushed []string
	err    error
}

func (f *fakeBroadcaster) Push(_ context.Context, text string) error {
	if f.err != nil {
		return f.err
	}
	f.pushed = append(f.pushed, text)
	return nil
}

func newTestEngine(store *fakeEngineStore, b Broadcaster) *Engine {
	e := NewEngine(store, b, decimal.NewFromInt(200), jst)
	e.now = func() time.Time { return time.Date(2025, 8, 1, 9, 0, 0, 0, jst) }
	return e
}

func TestRunManualMode(t *testing.T) {
	store := &fakeEngineStore{
		members: roster3(),
		rows:    []models.MatrixRow{row("2025-07-03", 0, 1, 0)},
	}
	b := &fakeBroadcaster{}

	balances, report, err := newTestEngine(store, b).Run(context.Background(), false)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(balances) != 3 {
		t.Fatalf("balance count = %d, want 3", len(balances))
	}
	want := "Alice: 100.00円\nBob: -200.00円\nCarol: 100.00円"
	if report != want {
		t.Errorf("report = %q, want %q", report, want)
	}
	if strings.Contains(report, "総計") {
		t.Error("manual report must not carry a month label")
	}
	if store.truncated {
		t.Error("manual run must not truncate the matrix")
	}
	if len(b.pushed) != 1 || b.pushed[0] != report {
		t.Errorf("broadcast = %v, want exactly the report", b.pushed)
	}
}

func TestRunAutoMode(t *testing.T) {
	store := &fakeEngineStore{
		members: roster3(),
		rows:    []models.MatrixRow{row("2025-07-03", 0, 1, 0)},
	}
	b := &fakeBroadcaster{}

	_, report, err := newTestEngine(store, b).Run(context.Background(), true)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	// Run on Aug 1 reports July's total.
	if !strings.HasPrefix(report, "7月総計\n") {
		t.Errorf("auto report = %q, want previous-month label prefix", report)
	}
	if !store.truncated {
		t.Error("auto run must truncate the matrix")
	}
}

func TestRunBroadcastFailureIsNotFatal(t *testing.T) {
	store := &fakeEngineStore{
		members: roster3(),
		rows:    []models.MatrixRow{row("2025-07-03", 0, 1, 0)},
	}
	b := &fakeBroadcaster{err: errors.New("push endpoint down")}

	_, _, err := newTestEngine(store, b).Run(context.Background(), true)
	if err != nil {
		t.Fatalf("Run failed on broadcast error: %v", err)
	}
	if !store.truncated {
		t.Error("auto run should still truncate after a failed broadcast")
	}
}

func TestRunNoData(t *testing.T) {
	t.Run("empty roster", func(t *testing.T) {
		store := &fakeEngineStore{}
		_, _, err := newTestEngine(store, nil).Run(context.Background(), false)
		if !errors.Is(err, ErrNoData) {
			t.Errorf("error = %v, want ErrNoData", err)
		}
	})

	t.Run("no matrix rows", func(t *testing.T) {
		store := &fakeEngineStore{members: roster3()}
		_, _, err := newTestEngine(store, nil).Run(context.Background(), false)
		if !errors.Is(err, ErrNoData) {
			t.Errorf("error = %v, want ErrNoData", err)
		}
	})
}

func TestPreviousMonthLabelAcrossYearBoundary(t *testing.T) {
	store := &fakeEngineStore{
		members: roster3(),
		rows:    []models.MatrixRow{row("2024-12-31", 0, 0, 0)},
	}
	e := NewEngine(store, nil, decimal.NewFromInt(200), jst)
	e.now = func() time.Time { return time.Date(2025, 1, 1, 9, 0, 0, 0, jst) }

	_, report, err := e.Run(context.Background(), true)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !strings.HasPrefix(report, "12月総計\n") {
		t.Errorf("report = %q, want December label when run on Jan 1", report)
	}
}
