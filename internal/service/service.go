// Package service orchestrates inbound chat events over the ledger, the
// fingerprint index, and the matrix stores.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ayazawa/kintore/internal/command"
	"github.com/ayazawa/kintore/internal/dedup"
	"github.com/ayazawa/kintore/internal/ledger"
	"github.com/ayazawa/kintore/internal/metrics"
	"github.com/ayazawa/kintore/internal/models"
)

var (
	// ErrNotRegistered is returned for display names missing from the roster.
	ErrNotRegistered = errors.New("not registered")

	// ErrNoData is returned when the requested data does not exist yet.
	ErrNoData = errors.New("no data available")
)

// Replies sent back to the group chat.
const (
	replyReceived = "受け取りました！"
	replyNoData   = "まだ記録がありません"
)

// Store is the storage surface the service needs beyond the ledger and index.
type Store interface {
	Members(ctx context.Context) ([]models.Member, error)
	Rows(ctx context.Context) ([]models.MatrixRow, error)
	UpdateRowMarks(ctx context.Context, day string, marks []int) error
}

// RecorderClient forwards attendance records to the external recorder.
type RecorderClient interface {
	Notify(ctx context.Context, memberID, date string, duplicate bool, duplicateWith string) error
}

// AttendanceService handles media and text events from the chat transport.
type AttendanceService struct {
	ledger   *ledger.Ledger
	index    *dedup.Index
	store    Store
	recorder RecorderClient
	metrics  *metrics.Metrics
	loc      *time.Location

	notifyTimeout time.Duration
	now           func() time.Time
}

// New creates an AttendanceService. recorder may be nil to disable outbound
// notifications.
func New(l *ledger.Ledger, index *dedup.Index, store Store, recorder RecorderClient, m *metrics.Metrics, loc *time.Location) *AttendanceService {
	return &AttendanceService{
		ledger:        l,
		index:         index,
		store:         store,
		recorder:      recorder,
		metrics:       m,
		loc:           loc,
		notifyTimeout: 5 * time.Second,
		now:           time.Now,
	}
}

// OnMediaEvent processes one media post: size gate, fingerprint, duplicate
// check, ledger write, best-effort recorder notification. The returned string
// is the user-facing reply. The caller has already confirmed the event comes
// from the authorized group.
func (s *AttendanceService) OnMediaEvent(ctx context.Context, memberID string, content []byte, messageID string) (string, error) {
	s.metrics.MediaEvents.Inc()

	fp, err := dedup.Fingerprint(content)
	if err != nil {
		if errors.Is(err, dedup.ErrMediaTooSmall) {
			s.metrics.MediaRejected.Inc()
			slog.Warn("Rejected undersized media",
				"member_id", memberID, "message_id", messageID, "bytes", len(content))
		}
		return "", err
	}

	now := s.now().In(s.loc)
	day := now.Format("2006-01-02")

	firstSeen, found, err := s.index.FirstSeen(ctx, memberID, fp)
	if err != nil {
		return "", err
	}

	if found {
		if err := s.ledger.RecordDuplicate(ctx, memberID, firstSeen); err != nil {
			return "", err
		}
		s.metrics.DuplicatesFlagged.Inc()
		s.notifyRecorder(memberID, day, true, firstSeen)
		slog.Info("Duplicate media flagged",
			"member_id", memberID, "message_id", messageID, "first_seen", firstSeen)
		return fmt.Sprintf("この投稿は %s に受け取り済みです", firstSeen), nil
	}

	outcome, err := s.ledger.RecordAttendance(ctx, memberID, now)
	if err != nil {
		return "", err
	}
	if err := s.index.Record(ctx, memberID, fp, day); err != nil {
		return "", err
	}

	if outcome == models.Credited {
		s.metrics.CreditsRecorded.Inc()
	}
	s.notifyRecorder(memberID, day, false, "")
	slog.Info("Media event recorded",
		"member_id", memberID, "message_id", messageID, "outcome", outcome.String())

	return replyReceived, nil
}

// notifyRecorder forwards the record with a bounded timeout. The ledger write
// already succeeded, so a failed notification is logged and swallowed.
func (s *AttendanceService) notifyRecorder(memberID, day string, duplicate bool, duplicateWith string) {
	if s.recorder == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.notifyTimeout)
	defer cancel()
	if err := s.recorder.Notify(ctx, memberID, day, duplicate, duplicateWith); err != nil {
		s.metrics.NotifyFailures.Inc()
		slog.Error("Recorder notification failed", "member_id", memberID, "error", err)
	}
}

// OnTextEvent processes one text message. Unrecognized text yields an empty
// reply and no error.
func (s *AttendanceService) OnTextEvent(ctx context.Context, memberID, text string) (string, error) {
	cmd := command.Parse(text)
	switch cmd.Kind {
	case command.Progress:
		count, err := s.ReportAbsences(ctx, cmd.Name)
		if errors.Is(err, ErrNotRegistered) {
			return fmt.Sprintf("%s は未登録です", cmd.Name), nil
		}
		if errors.Is(err, ErrNoData) {
			return replyNoData, nil
		}
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s: 欠席 %d 回", cmd.Name, count), nil
	default:
		return "", nil
	}
}

// ReportAbsences counts a member's absence marks in the current unsettled
// period. Rows whose width does not match the roster are ignored.
func (s *AttendanceService) ReportAbsences(ctx context.Context, displayName string) (int, error) {
	member, size, err := s.findByName(ctx, displayName)
	if err != nil {
		return 0, err
	}

	rows, err := s.store.Rows(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load matrix: %w", err)
	}
	if len(rows) == 0 {
		return 0, fmt.Errorf("%w: no matrix rows", ErrNoData)
	}

	count := 0
	for _, row := range rows {
		if len(row.Marks) != size {
			continue
		}
		if row.Marks[member.Position] == models.MarkAbsent {
			count++
		}
	}
	return count, nil
}

// Excuse applies the manual excused(2) override to one member's mark on the
// stored row for day.
func (s *AttendanceService) Excuse(ctx context.Context, day, memberID string) error {
	members, err := s.store.Members(ctx)
	if err != nil {
		return fmt.Errorf("failed to load roster: %w", err)
	}

	position := -1
	for _, m := range members {
		if m.ID == memberID {
			position = m.Position
			break
		}
	}
	if position < 0 {
		return fmt.Errorf("%w: %s", ErrNotRegistered, memberID)
	}

	rows, err := s.store.Rows(ctx)
	if err != nil {
		return fmt.Errorf("failed to load matrix: %w", err)
	}

	for _, row := range rows {
		if row.Day != day {
			continue
		}
		if position >= len(row.Marks) {
			return fmt.Errorf("row for %s is too narrow for member %s", day, memberID)
		}
		row.Marks[position] = models.MarkExcused
		if err := s.store.UpdateRowMarks(ctx, day, row.Marks); err != nil {
			return fmt.Errorf("failed to store excused mark: %w", err)
		}
		slog.Info("Excused override applied", "day", day, "member_id", memberID)
		return nil
	}

	return fmt.Errorf("%w: no row for %s", ErrNoData, day)
}

// findByName resolves a display name to a roster member, also returning the
// roster size.
func (s *AttendanceService) findByName(ctx context.Context, displayName string) (models.Member, int, error) {
	members, err := s.store.Members(ctx)
	if err != nil {
		return models.Member{}, 0, fmt.Errorf("failed to load roster: %w", err)
	}
	for _, m := range members {
		if m.DisplayName == displayName {
			return m, len(members), nil
		}
	}
	return models.Member{}, 0, fmt.Errorf("%w: %s", ErrNotRegistered, displayName)
}
