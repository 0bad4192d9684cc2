package sheets

import (
	"context"

	"fintrack/internal/recap"
)

// RecapWriter is the outbound port for spreadsheet exports.
type RecapWriter interface {
	// AppendRecap appends one row per bucket and returns the written range.
	AppendRecap(ctx context.Context, userID string, r recap.Result) (rowRef string, err error)
}

// Header is the column layout of exported recap rows.
var Header = []any{"User", "Period", "Label", "Start", "End", "Transactions", "Total"}

// RecapRows flattens r into one row per bucket, in bucket order.
func RecapRows(userID string, r recap.Result) [][]any {
	rows := make([][]any, 0, len(r.Data))
	for _, b := range r.Data {
		rows = append(rows, []any{
			userID,
			r.Period.String(),
			b.Label,
			b.PeriodStart.String(),
			b.PeriodEnd.String(),
			len(b.Transactions),
			b.TotalAmount.StringFixed(2),
		})
	}
	return rows
}
