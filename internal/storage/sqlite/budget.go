package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"finanzapp/internal/core"
)

func (s *Store) ListIncomes(ctx context.Context, userID int64) ([]core.Income, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, name, amount, is_fixed, COALESCE(date,'')
		   FROM Income WHERE user_id = ? ORDER BY id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list incomes: %w", err)
	}
	defer rows.Close()

	var out []core.Income
	for rows.Next() {
		in, err := scanIncome(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *in)
	}
	return out, rows.Err()
}

func (s *Store) IncomeByID(ctx context.Context, id int64) (*core.Income, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, name, amount, is_fixed, COALESCE(date,'')
		   FROM Income WHERE id = ?`, id)
	in, err := scanIncome(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return in, err
}

func (s *Store) InsertIncome(ctx context.Context, in *core.Income) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO Income (user_id, name, amount, is_fixed, date, synced)
		 VALUES (?, ?, ?, ?, ?, 0)`,
		in.UserID, in.Name, in.Amount.Cents, boolToInt(in.Fixed), timeToISO(in.Date))
	if err != nil {
		return 0, fmt.Errorf("insert income: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert income id: %w", err)
	}
	in.ID = id
	return id, nil
}

// UpdateIncome rewrites the line. A zero Date keeps the stored date;
// a set one replaces it.
func (s *Store) UpdateIncome(ctx context.Context, in *core.Income) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE Income SET name = ?, amount = ?, is_fixed = ?, date = COALESCE(?, date), synced = 0 WHERE id = ?`,
		in.Name, in.Amount.Cents, boolToInt(in.Fixed), timeToISO(in.Date), in.ID)
	if err != nil {
		return fmt.Errorf("update income %d: %w", in.ID, err)
	}
	return nil
}

func (s *Store) DeleteIncome(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM Income WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete income %d: %w", id, err)
	}
	return nil
}

func (s *Store) ListExpenses(ctx context.Context, userID int64) ([]core.Expense, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, name, amount, day, is_fixed, COALESCE(date,'')
		   FROM Expense WHERE user_id = ? ORDER BY id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	var out []core.Expense
	for rows.Next() {
		ex, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *ex)
	}
	return out, rows.Err()
}

func (s *Store) ExpenseByID(ctx context.Context, id int64) (*core.Expense, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, name, amount, day, is_fixed, COALESCE(date,'')
		   FROM Expense WHERE id = ?`, id)
	ex, err := scanExpense(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return ex, err
}

func (s *Store) InsertExpense(ctx context.Context, ex *core.Expense) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO Expense (user_id, name, amount, day, is_fixed, date, synced)
		 VALUES (?, ?, ?, ?, ?, ?, 0)`,
		ex.UserID, ex.Name, ex.Amount.Cents, ex.Day, boolToInt(ex.Fixed), timeToISO(ex.Date))
	if err != nil {
		return 0, fmt.Errorf("insert expense: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert expense id: %w", err)
	}
	ex.ID = id
	return id, nil
}

// UpdateExpense rewrites the line. A zero Date keeps the stored date;
// a set one replaces it.
func (s *Store) UpdateExpense(ctx context.Context, ex *core.Expense) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE Expense SET name = ?, amount = ?, day = ?, is_fixed = ?, date = COALESCE(?, date), synced = 0 WHERE id = ?`,
		ex.Name, ex.Amount.Cents, ex.Day, boolToInt(ex.Fixed), timeToISO(ex.Date), ex.ID)
	if err != nil {
		return fmt.Errorf("update expense %d: %w", ex.ID, err)
	}
	return nil
}

func (s *Store) DeleteExpense(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM Expense WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete expense %d: %w", id, err)
	}
	return nil
}

func scanIncome(row rowScanner) (*core.Income, error) {
	var (
		in    core.Income
		fixed int
		date  string
	)
	err := row.Scan(&in.ID, &in.UserID, &in.Name, &in.Amount.Cents, &fixed, &date)
	if err != nil {
		return nil, err
	}
	in.Fixed = fixed != 0
	in.Date = isoToTime(date)
	return &in, nil
}

func scanExpense(row rowScanner) (*core.Expense, error) {
	var (
		ex    core.Expense
		fixed int
		date  string
	)
	err := row.Scan(&ex.ID, &ex.UserID, &ex.Name, &ex.Amount.Cents, &ex.Day, &fixed, &date)
	if err != nil {
		return nil, err
	}
	ex.Fixed = fixed != 0
	ex.Date = isoToTime(date)
	return &ex, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func timeToISO(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}

func isoToTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
