package sqlite

import (
	"context"
	"fmt"
	"time"

	"finanzapp/internal/core"
	"finanzapp/internal/export"
)

// Budget-line kinds, shared with the sync queue and the sheet rows.
const (
	KindIncome  = export.KindIncome
	KindExpense = export.KindExpense
)

// PendingLine identifies a budget line that has not been appended to
// the backup sheet yet.
type PendingLine struct {
	Kind string
	ID   int64
}

// PendingExports returns up to limit unsynced budget lines, oldest
// first, across both kinds. synced = -1 marks lines that failed a sync
// attempt; they are retried too.
func (s *Store) PendingExports(ctx context.Context, limit int) ([]PendingLine, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT kind, id FROM (
		    SELECT 'income' AS kind, id, id AS ord FROM Income WHERE synced <= 0
		    UNION ALL
		    SELECT 'expense' AS kind, id, id AS ord FROM Expense WHERE synced <= 0
		 ) ORDER BY ord ASC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending exports: %w", err)
	}
	defer rows.Close()

	var out []PendingLine
	for rows.Next() {
		var p PendingLine
		if err := rows.Scan(&p.Kind, &p.ID); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// ExportRow loads the sheet row for a budget line, or nil when the line
// no longer exists (deleted before the worker got to it).
func (s *Store) ExportRow(ctx context.Context, kind string, id int64) (*export.Row, error) {
	switch kind {
	case KindIncome:
		in, err := s.IncomeByID(ctx, id)
		if err != nil || in == nil {
			return nil, err
		}
		return incomeRow(in), nil
	case KindExpense:
		ex, err := s.ExpenseByID(ctx, id)
		if err != nil || ex == nil {
			return nil, err
		}
		return expenseRow(ex), nil
	default:
		return nil, fmt.Errorf("unknown line kind %q", kind)
	}
}

func (s *Store) MarkSynced(ctx context.Context, kind string, id int64) error {
	return s.setSyncFlag(ctx, kind, id, 1)
}

func (s *Store) MarkSyncError(ctx context.Context, kind string, id int64) error {
	return s.setSyncFlag(ctx, kind, id, -1)
}

func (s *Store) setSyncFlag(ctx context.Context, kind string, id int64, flag int) error {
	table, err := tableForKind(kind)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		fmt.Sprintf("UPDATE %s SET synced = ? WHERE id = ?", table), flag, id)
	if err != nil {
		return fmt.Errorf("mark %s %d synced=%d: %w", kind, id, flag, err)
	}
	return nil
}

func tableForKind(kind string) (string, error) {
	switch kind {
	case KindIncome:
		return "Income", nil
	case KindExpense:
		return "Expense", nil
	default:
		return "", fmt.Errorf("unknown line kind %q", kind)
	}
}

func incomeRow(in *core.Income) *export.Row {
	date := in.Date
	if date.IsZero() {
		date = time.Now()
	}
	return &export.Row{
		Kind:   KindIncome,
		Date:   date,
		Name:   in.Name,
		Amount: in.Amount,
		UserID: in.UserID,
	}
}

func expenseRow(ex *core.Expense) *export.Row {
	date := ex.Date
	if date.IsZero() {
		date = time.Now()
	}
	return &export.Row{
		Kind:   KindExpense,
		Date:   date,
		Name:   ex.Name,
		Amount: core.Money{Cents: -ex.Amount.Cents},
		UserID: ex.UserID,
	}
}
