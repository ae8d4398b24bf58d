package models

// Presence marks used in matrix rows.
const (
	MarkPresent = 0
	MarkAbsent  = 1
	MarkExcused = 2
)

// MatrixRow is one day's attendance vector, one mark per roster member in
// roster order.
type MatrixRow struct {
	// Day is the calendar day the row covers (YYYY-MM-DD, home timezone).
	Day string

	// Marks holds one of MarkPresent/MarkAbsent/MarkExcused per member.
	// Nil when the stored row could not be decoded; consumers skip such
	// rows rather than failing.
	Marks []int

	// CreatedAt is the Unix timestamp when the row was appended.
	CreatedAt int64
}
