package models

// Member represents one roster participant.
type Member struct {
	// ID is the stable opaque identifier assigned by the chat platform.
	ID string

	// DisplayName is the human-readable name used in reports and progress
	// queries. Uniqueness is enforced at roster load time.
	DisplayName string

	// Position is the member's index in roster order. Matrix rows are laid
	// out in this order.
	Position int
}
