// Package ledger maintains the append-only attendance record per member.
package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ayazawa/kintore/internal/models"
)

// Store is the storage surface the ledger needs.
type Store interface {
	AppendEvent(ctx context.Context, event *models.AttendanceEvent) error
	EventsByMember(ctx context.Context, memberID string) ([]models.AttendanceEvent, error)
	CreditExistsOn(ctx context.Context, memberID, day string) (bool, error)
}

// Ledger records attendance credits and duplicate markers.
//
// Recording is serialized per member: two near-simultaneous posts by the same
// member go through the check-then-append sequence one at a time, so a day can
// never end up with two credits. Different members do not contend.
type Ledger struct {
	store Store
	loc   *time.Location

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New creates a Ledger. loc is the home timezone used for calendar-day
// comparisons.
func New(store Store, loc *time.Location) *Ledger {
	return &Ledger{
		store: store,
		loc:   loc,
		locks: make(map[string]*sync.Mutex),
	}
}

func (l *Ledger) memberLock(memberID string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	lock, ok := l.locks[memberID]
	if !ok {
		lock = &sync.Mutex{}
		l.locks[memberID] = lock
	}
	return lock
}

// RecordAttendance records one attendance credit for the member at ts.
// If a credit already exists for the member on ts's calendar day (in the home
// timezone), nothing is written and AlreadyCreditedToday is returned.
func (l *Ledger) RecordAttendance(ctx context.Context, memberID string, ts time.Time) (models.RecordOutcome, error) {
	lock := l.memberLock(memberID)
	lock.Lock()
	defer lock.Unlock()

	local := ts.In(l.loc)
	day := local.Format("2006-01-02")

	exists, err := l.store.CreditExistsOn(ctx, memberID, day)
	if err != nil {
		return 0, fmt.Errorf("failed to check existing credit: %w", err)
	}
	if exists {
		return models.AlreadyCreditedToday, nil
	}

	event := &models.AttendanceEvent{
		MemberID:   memberID,
		Kind:       models.EventCredit,
		RecordedAt: local.Format(time.RFC3339),
	}
	if err := l.store.AppendEvent(ctx, event); err != nil {
		return 0, fmt.Errorf("failed to append credit: %w", err)
	}

	return models.Credited, nil
}

// RecordDuplicate appends a duplicate-marker entry referencing the date the
// content was first seen. The marker never counts as presence but stays
// retrievable through Events.
func (l *Ledger) RecordDuplicate(ctx context.Context, memberID, firstSeen string) error {
	event := &models.AttendanceEvent{
		MemberID:    memberID,
		Kind:        models.EventDuplicate,
		RecordedAt:  time.Now().In(l.loc).Format(time.RFC3339),
		DuplicateOf: firstSeen,
	}
	if err := l.store.AppendEvent(ctx, event); err != nil {
		return fmt.Errorf("failed to append duplicate marker: %w", err)
	}
	return nil
}

// Events returns the member's full ledger, oldest first.
func (l *Ledger) Events(ctx context.Context, memberID string) ([]models.AttendanceEvent, error) {
	return l.store.EventsByMember(ctx, memberID)
}
