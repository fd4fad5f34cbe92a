package core

import "time"

// BalanceSummary aggregates a user's budget lines for the report view.
// Totals are computed on read from the authoritative rows; nothing here
// is persisted.
type BalanceSummary struct {
	IncomeTotal      Money
	ExpenseTotal     Money
	Balance          Money
	FixedExpenses    Money
	VariableExpenses Money
	IncomeCount      int
	ExpenseCount     int
}

// Summarize folds budget lines into a BalanceSummary.
func Summarize(incomes []Income, expenses []Expense) BalanceSummary {
	var s BalanceSummary
	for _, in := range incomes {
		s.IncomeTotal = s.IncomeTotal.Add(in.Amount)
	}
	for _, ex := range expenses {
		s.ExpenseTotal = s.ExpenseTotal.Add(ex.Amount)
		if ex.Fixed {
			s.FixedExpenses = s.FixedExpenses.Add(ex.Amount)
		} else {
			s.VariableExpenses = s.VariableExpenses.Add(ex.Amount)
		}
	}
	s.Balance = s.IncomeTotal.Sub(s.ExpenseTotal)
	s.IncomeCount = len(incomes)
	s.ExpenseCount = len(expenses)
	return s
}

// SavingsPlan is the suggestion shown next to a goal: how much is still
// missing and what saving it evenly until the deadline would take per
// month.
type SavingsPlan struct {
	Remaining    Money
	Months       int
	MonthlyQuota Money
}

// MonthsUntil counts calendar months from now to the deadline, rounding
// partial months up. A past or same-month deadline counts as one month:
// the suggestion is always something the user can still act on.
func MonthsUntil(now time.Time, deadline time.Time) int {
	months := (deadline.Year()-now.Year())*12 + int(deadline.Month()) - int(now.Month())
	if deadline.Day() > now.Day() {
		months++
	}
	if months < 1 {
		return 1
	}
	return months
}

// PlanForGoal computes the savings suggestion for a goal. A completed
// goal, or one already fully saved, yields a zero plan. Without a
// deadline the quota defaults to a twelve-month spread.
func PlanForGoal(g Goal, now time.Time) SavingsPlan {
	remaining := g.Target.Sub(g.Saved)
	if g.Completed || remaining.Cents <= 0 {
		return SavingsPlan{}
	}
	months := 12
	if !g.Deadline.IsEmpty() {
		months = MonthsUntil(now, g.Deadline.Time)
	}
	return SavingsPlan{
		Remaining:    remaining,
		Months:       months,
		MonthlyQuota: Money{Cents: ceilDiv(remaining.Cents, int64(months))},
	}
}

func ceilDiv(a, b int64) int64 {
	return (a + b - 1) / b
}
