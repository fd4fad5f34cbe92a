// Package export defines the outbound port for the spreadsheet backup:
// budget lines are appended as rows to an external sheet. The google
// subpackage talks to the Sheets API; the memory subpackage backs
// tests.
package export

import (
	"context"
	"time"

	"finanzapp/internal/core"
)

// Budget-line kinds as they appear in sync messages and sheet rows.
const (
	KindIncome  = "income"
	KindExpense = "expense"
)

// Row is one appended line of the backup sheet. Expenses carry a
// negative amount so the sheet column sums to the running balance.
type Row struct {
	Kind   string
	Date   time.Time
	Name   string
	Amount core.Money
	UserID int64
}

// RowAppender appends a row and returns an opaque reference to where it
// landed (a range, a synthetic id).
type RowAppender interface {
	Append(ctx context.Context, row Row) (ref string, err error)
}
