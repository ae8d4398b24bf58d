package scanner

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ayazawa/kintore/internal/models"
)

var jst = time.FixedZone("JST", 9*60*60)

// fakeStore is an in-memory scanner store.
type fakeStore struct {
	members []models.Member
	events  map[string][]models.AttendanceEvent
	rows    []models.MatrixRow
}

func newFakeStore(members ...models.Member) *fakeStore {
	return &fakeStore{
		members: members,
		events:  make(map[string][]models.AttendanceEvent),
	}
}

func (f *fakeStore) addEvent(memberID string, kind models.EventKind, recordedAt string) {
	f.events[memberID] = append(f.events[memberID], models.AttendanceEvent{
		MemberID:   memberID,
		Kind:       kind,
		RecordedAt: recordedAt,
	})
}

func (f *fakeStore) Members(_ context.Context) ([]models.Member, error) {
	return f.members, nil
}

func (f *fakeStore) EventsByMember(_ context.Context, memberID string) ([]models.AttendanceEvent, error) {
	return f.events[memberID], nil
}

func (f *fakeStore) RowExists(_ context.Context, day string) (bool, error) {
	for _, r := range f.rows {
		if r.Day == day {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) AppendRow(_ context.Context, row *models.MatrixRow) error {
	f.rows = append(f.rows, *row)
	return nil
}

func roster3() []models.Member {
	return []models.Member{
		{ID: "U1", DisplayName: "Alice", Position: 0},
		{ID: "U2", DisplayName: "Bob", Position: 1},
		{ID: "U3", DisplayName: "Carol", Position: 2},
	}
}

func TestScan(t *testing.T) {
	day := time.Date(2025, 8, 9, 0, 0, 0, 0, jst)

	tests := []struct {
		name      string
		setup     func(store *fakeStore)
		wantMarks []int
	}{
		{
			name: "credits inside the day window mark present",
			setup: func(store *fakeStore) {
				store.addEvent("U1", models.EventCredit, "2025-08-09T07:30:00+09:00")
				store.addEvent("U3", models.EventCredit, "2025-08-09T23:59:59+09:00")
			},
			wantMarks: []int{0, 1, 0},
		},
		{
			name:      "no events marks everyone absent",
			setup:     func(store *fakeStore) {},
			wantMarks: []int{1, 1, 1},
		},
		{
			name: "credits outside the window do not count",
			setup: func(store *fakeStore) {
				store.addEvent("U1", models.EventCredit, "2025-08-08T23:59:59+09:00")
				store.addEvent("U2", models.EventCredit, "2025-08-10T00:00:00+09:00")
			},
			wantMarks: []int{1, 1, 1},
		},
		{
			name: "foreign-zone timestamps are normalized before comparing",
			setup: func(store *fakeStore) {
				// 16:30 UTC on Aug 9 is 01:30 JST on Aug 10: outside.
				store.addEvent("U1", models.EventCredit, "2025-08-09T16:30:00Z")
				// 20:00 UTC on Aug 8 is 05:00 JST on Aug 9: inside.
				store.addEvent("U2", models.EventCredit, "2025-08-08T20:00:00Z")
			},
			wantMarks: []int{1, 0, 1},
		},
		{
			name: "naive legacy timestamps are read in the home timezone",
			setup: func(store *fakeStore) {
				store.addEvent("U2", models.EventCredit, "2025-08-09T12:00:00")
			},
			wantMarks: []int{1, 0, 1},
		},
		{
			name: "duplicate markers never count as presence",
			setup: func(store *fakeStore) {
				store.addEvent("U1", models.EventDuplicate, "2025-08-09T12:00:00+09:00")
			},
			wantMarks: []int{1, 1, 1},
		},
		{
			name: "malformed timestamps are skipped, not fatal",
			setup: func(store *fakeStore) {
				store.addEvent("U1", models.EventCredit, "not-a-timestamp")
				store.addEvent("U1", models.EventCredit, "2025-08-09T08:00:00+09:00")
			},
			wantMarks: []int{0, 1, 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeStore(roster3()...)
			tt.setup(store)

			row, err := New(store, jst).Scan(context.Background(), day)
			if err != nil {
				t.Fatalf("Scan failed: %v", err)
			}

			if row.Day != "2025-08-09" {
				t.Errorf("row day = %q, want 2025-08-09", row.Day)
			}
			if len(row.Marks) != len(store.members) {
				t.Fatalf("row width = %d, want roster size %d", len(row.Marks), len(store.members))
			}
			for i, want := range tt.wantMarks {
				if row.Marks[i] != want {
					t.Errorf("marks[%d] = %d, want %d (full row %v)", i, row.Marks[i], want, row.Marks)
				}
			}
			if len(store.rows) != 1 {
				t.Errorf("appended %d rows, want 1", len(store.rows))
			}
		})
	}
}

func TestScanRowWidthMatchesRosterSize(t *testing.T) {
	// Width tracks the roster regardless of how many ledger entries exist.
	for _, size := range []int{1, 2, 5} {
		members := make([]models.Member, size)
		for i := range members {
			members[i] = models.Member{ID: string(rune('A' + i)), Position: i}
		}
		store := newFakeStore(members...)

		row, err := New(store, jst).Scan(context.Background(), time.Date(2025, 8, 9, 0, 0, 0, 0, jst))
		if err != nil {
			t.Fatalf("Scan failed: %v", err)
		}
		if len(row.Marks) != size {
			t.Errorf("roster size %d: row width = %d", size, len(row.Marks))
		}
	}
}

func TestScanIsIdempotentPerDay(t *testing.T) {
	store := newFakeStore(roster3()...)
	sc := New(store, jst)
	day := time.Date(2025, 8, 9, 0, 0, 0, 0, jst)

	if _, err := sc.Scan(context.Background(), day); err != nil {
		t.Fatalf("first Scan failed: %v", err)
	}
	_, err := sc.Scan(context.Background(), day)
	if !errors.Is(err, ErrAlreadyScanned) {
		t.Fatalf("second Scan error = %v, want ErrAlreadyScanned", err)
	}
	if len(store.rows) != 1 {
		t.Errorf("row count after double scan = %d, want 1", len(store.rows))
	}
}
