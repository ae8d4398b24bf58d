package models

// EventKind distinguishes the two ledger entry types.
type EventKind string

const (
	// EventCredit is a normal attendance credit.
	EventCredit EventKind = "credit"

	// EventDuplicate marks a re-submission of already-seen content. It never
	// counts as presence, but stays visible in the ledger.
	EventDuplicate EventKind = "duplicate"
)

// AttendanceEvent is one append-only ledger entry for a member.
type AttendanceEvent struct {
	// ID is the unique identifier for the event (UUID format).
	ID string

	// MemberID is the stable id of the member the event belongs to.
	MemberID string

	// Kind is credit or duplicate.
	Kind EventKind

	// RecordedAt is the event timestamp, RFC 3339 with zone offset. Legacy
	// entries may hold naive or otherwise non-conforming strings; readers
	// must tolerate and skip what they cannot parse.
	RecordedAt string

	// DuplicateOf holds the first-seen date (YYYY-MM-DD) for duplicate
	// markers; empty for credits.
	DuplicateOf string
}

// RecordOutcome is the result of an attendance recording attempt.
type RecordOutcome int

const (
	// Credited means a new attendance credit was written.
	Credited RecordOutcome = iota

	// AlreadyCreditedToday means a credit for that member and calendar day
	// already exists; nothing was written.
	AlreadyCreditedToday
)

func (o RecordOutcome) String() string {
	switch o {
	case Credited:
		return "credited"
	case AlreadyCreditedToday:
		return "already_credited_today"
	default:
		return "unknown"
	}
}
