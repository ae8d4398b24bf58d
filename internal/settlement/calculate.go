// Package settlement computes the periodic zero-sum fine redistribution.
package settlement

import (
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/ayazawa/kintore/internal/models"
)

// Calculate computes each roster member's net balance over the given matrix
// rows. fee is the flat fine charged per absence.
//
// Per row: every absent member pays the full fee, and the collected total is
// split evenly among the present members (fee × absent / present each), so
// each day transfers exactly what it collects. Excused members neither pay
// nor receive. A day with nobody present collects nothing. Rows whose width
// does not match the roster are skipped, not corrected.
//
// Balances are rounded to 2 decimal places at the end and returned in roster
// order.
func Calculate(roster []models.Member, rows []models.MatrixRow, fee decimal.Decimal) []models.Balance {
	n := len(roster)
	totals := make([]decimal.Decimal, n)

	for _, row := range rows {
		if len(row.Marks) != n {
			slog.Warn("Skipping matrix row with mismatched width",
				"day", row.Day, "got", len(row.Marks), "want", n)
			continue
		}

		absent, excused := 0, 0
		for _, mark := range row.Marks {
			switch mark {
			case models.MarkAbsent:
				absent++
			case models.MarkExcused:
				excused++
			}
		}

		present := n - absent - excused
		share := decimal.Zero
		if present > 0 {
			share = fee.Mul(decimal.NewFromInt(int64(absent))).
				Div(decimal.NewFromInt(int64(present)))
		}

		for j, mark := range row.Marks {
			switch mark {
			case models.MarkPresent:
				totals[j] = totals[j].Add(share)
			case models.MarkAbsent:
				totals[j] = totals[j].Sub(fee)
			}
		}
	}

	balances := make([]models.Balance, n)
	for i, m := range roster {
		balances[i] = models.Balance{
			MemberID:    m.ID,
			DisplayName: m.DisplayName,
			Amount:      totals[i].Round(2),
		}
	}
	return balances
}
