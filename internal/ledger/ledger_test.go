package ledger

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ayazawa/kintore/internal/models"
)

var jst = time.FixedZone("JST", 9*60*60)

// fakeStore is an in-memory ledger store.
type fakeStore struct {
	mu     sync.Mutex
	events []models.AttendanceEvent
}

func (f *fakeStore) AppendEvent(_ context.Context, event *models.AttendanceEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if event.ID == "" {
		event.ID = "evt"
	}
	f.events = append(f.events, *event)
	return nil
}

func (f *fakeStore) EventsByMember(_ context.Context, memberID string) ([]models.AttendanceEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.AttendanceEvent
	for _, e := range f.events {
		if e.MemberID == memberID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeStore) CreditExistsOn(_ context.Context, memberID, day string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.events {
		if e.MemberID == memberID && e.Kind == models.EventCredit && strings.HasPrefix(e.RecordedAt, day) {
			return true, nil
		}
	}
	return false, nil
}

func TestRecordAttendanceIdempotentPerDay(t *testing.T) {
	ctx := context.Background()
	store := &fakeStore{}
	l := New(store, jst)

	morning := time.Date(2025, 8, 9, 7, 30, 0, 0, jst)
	evening := time.Date(2025, 8, 9, 22, 15, 0, 0, jst)

	outcome, err := l.RecordAttendance(ctx, "U1", morning)
	if err != nil {
		t.Fatalf("RecordAttendance failed: %v", err)
	}
	if outcome != models.Credited {
		t.Errorf("first record outcome = %v, want Credited", outcome)
	}

	outcome, err = l.RecordAttendance(ctx, "U1", evening)
	if err != nil {
		t.Fatalf("RecordAttendance failed: %v", err)
	}
	if outcome != models.AlreadyCreditedToday {
		t.Errorf("second record outcome = %v, want AlreadyCreditedToday", outcome)
	}

	events, _ := l.Events(ctx, "U1")
	if len(events) != 1 {
		t.Errorf("event count = %d, want 1 (no second credit for the same day)", len(events))
	}

	// A new day starts fresh.
	nextDay := time.Date(2025, 8, 10, 7, 30, 0, 0, jst)
	outcome, err = l.RecordAttendance(ctx, "U1", nextDay)
	if err != nil {
		t.Fatalf("RecordAttendance failed: %v", err)
	}
	if outcome != models.Credited {
		t.Errorf("next-day record outcome = %v, want Credited", outcome)
	}
}

func TestRecordAttendanceNormalizesZones(t *testing.T) {
	ctx := context.Background()
	store := &fakeStore{}
	l := New(store, jst)

	// 20:00 UTC on Aug 1 is already Aug 2 in JST.
	utcEvening := time.Date(2025, 8, 1, 20, 0, 0, 0, time.UTC)
	if _, err := l.RecordAttendance(ctx, "U1", utcEvening); err != nil {
		t.Fatalf("RecordAttendance failed: %v", err)
	}

	events, _ := l.Events(ctx, "U1")
	if len(events) != 1 {
		t.Fatalf("event count = %d, want 1", len(events))
	}
	if !strings.HasPrefix(events[0].RecordedAt, "2025-08-02") {
		t.Errorf("stored timestamp %q, want home-timezone day 2025-08-02", events[0].RecordedAt)
	}

	// The JST-morning equivalent of the same day collides with it.
	jstMorning := time.Date(2025, 8, 2, 9, 0, 0, 0, jst)
	outcome, err := l.RecordAttendance(ctx, "U1", jstMorning)
	if err != nil {
		t.Fatalf("RecordAttendance failed: %v", err)
	}
	if outcome != models.AlreadyCreditedToday {
		t.Errorf("outcome = %v, want AlreadyCreditedToday across zone representations", outcome)
	}
}

func TestRecordAttendanceConcurrentSameMember(t *testing.T) {
	ctx := context.Background()
	store := &fakeStore{}
	l := New(store, jst)

	ts := time.Date(2025, 8, 9, 12, 0, 0, 0, jst)
	const workers = 16

	var wg sync.WaitGroup
	credits := make(chan models.RecordOutcome, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			outcome, err := l.RecordAttendance(ctx, "U1", ts)
			if err != nil {
				t.Errorf("RecordAttendance failed: %v", err)
				return
			}
			credits <- outcome
		}()
	}
	wg.Wait()
	close(credits)

	credited := 0
	for outcome := range credits {
		if outcome == models.Credited {
			credited++
		}
	}
	if credited != 1 {
		t.Errorf("credited %d times under concurrency, want exactly 1", credited)
	}

	events, _ := l.Events(ctx, "U1")
	if len(events) != 1 {
		t.Errorf("event count = %d, want 1", len(events))
	}
}

func TestRecordDuplicate(t *testing.T) {
	ctx := context.Background()
	store := &fakeStore{}
	l := New(store, jst)

	if _, err := l.RecordAttendance(ctx, "U1", time.Date(2025, 8, 9, 7, 0, 0, 0, jst)); err != nil {
		t.Fatalf("RecordAttendance failed: %v", err)
	}
	if err := l.RecordDuplicate(ctx, "U1", "2025-08-09"); err != nil {
		t.Fatalf("RecordDuplicate failed: %v", err)
	}

	events, _ := l.Events(ctx, "U1")
	if len(events) != 2 {
		t.Fatalf("event count = %d, want 2", len(events))
	}
	dup := events[1]
	if dup.Kind != models.EventDuplicate {
		t.Errorf("second event kind = %s, want duplicate", dup.Kind)
	}
	if dup.DuplicateOf != "2025-08-09" {
		t.Errorf("DuplicateOf = %q, want 2025-08-09", dup.DuplicateOf)
	}

	// A member with only a duplicate marker has no credit for any day.
	if err := l.RecordDuplicate(ctx, "U2", "2025-08-09"); err != nil {
		t.Fatalf("RecordDuplicate failed: %v", err)
	}
	markerEvents, _ := l.Events(ctx, "U2")
	markerDay := markerEvents[0].RecordedAt[:10]
	exists, _ := store.CreditExistsOn(ctx, "U2", markerDay)
	if exists {
		t.Error("duplicate marker was counted as a credit")
	}
}
