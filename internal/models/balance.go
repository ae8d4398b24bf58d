package models

import "github.com/shopspring/decimal"

// Balance is one member's net settlement amount for a period.
// Positive = receives redistribution, negative = owes fines.
type Balance struct {
	MemberID    string
	DisplayName string

	// Amount is the signed net balance, rounded to 2 decimal places.
	Amount decimal.Decimal
}
