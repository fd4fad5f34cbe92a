package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"finanzapp/internal/apperror"
	"finanzapp/internal/core"
	"finanzapp/internal/storage"
)

func TestSummary(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store storage.Store) {
		e := newEnv(t, store)
		ctx := context.Background()
		u := e.registerUser(t, "Ana", "ana@mail.com")

		if _, err := e.budget.AddIncome(ctx, core.Income{
			UserID: u.ID, Name: "Salary", Amount: core.Money{Cents: 300000}, Fixed: true,
		}); err != nil {
			t.Fatalf("add income: %v", err)
		}
		if _, err := e.budget.AddExpense(ctx, core.Expense{
			UserID: u.ID, Name: "Rent", Amount: core.Money{Cents: 90000}, Day: 1, Fixed: true,
		}); err != nil {
			t.Fatalf("add expense: %v", err)
		}
		if _, err := e.budget.AddExpense(ctx, core.Expense{
			UserID: u.ID, Name: "Groceries", Amount: core.Money{Cents: 40000}, Day: 10,
		}); err != nil {
			t.Fatalf("add expense: %v", err)
		}

		s, err := e.reports.Summary(ctx, u.ID)
		if err != nil {
			t.Fatalf("summary: %v", err)
		}
		if s.Balance.Cents != 170000 {
			t.Errorf("balance = %d, want 170000", s.Balance.Cents)
		}
		if s.FixedExpenses.Cents != 90000 || s.VariableExpenses.Cents != 40000 {
			t.Errorf("fixed/variable = %d/%d", s.FixedExpenses.Cents, s.VariableExpenses.Cents)
		}
	})
}

func TestSummaryCacheInvalidatedByWrites(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store storage.Store) {
		e := newEnv(t, store)
		ctx := context.Background()
		u := e.registerUser(t, "Ana", "ana@mail.com")

		if _, err := e.budget.AddIncome(ctx, core.Income{
			UserID: u.ID, Name: "Salary", Amount: core.Money{Cents: 100000},
		}); err != nil {
			t.Fatalf("add: %v", err)
		}

		first, err := e.reports.Summary(ctx, u.ID)
		if err != nil {
			t.Fatalf("summary: %v", err)
		}
		if first.IncomeTotal.Cents != 100000 {
			t.Fatalf("first total = %d", first.IncomeTotal.Cents)
		}

		// A write through the budget service must drop the cached value.
		if _, err := e.budget.AddIncome(ctx, core.Income{
			UserID: u.ID, Name: "Bonus", Amount: core.Money{Cents: 50000},
		}); err != nil {
			t.Fatalf("add: %v", err)
		}

		second, err := e.reports.Summary(ctx, u.ID)
		if err != nil {
			t.Fatalf("summary: %v", err)
		}
		if second.IncomeTotal.Cents != 150000 {
			t.Errorf("total after write = %d, want 150000", second.IncomeTotal.Cents)
		}
	})
}

func TestSummaryServedFromCache(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store storage.Store) {
		e := newEnv(t, store)
		ctx := context.Background()
		u := e.registerUser(t, "Ana", "ana@mail.com")

		if _, err := e.budget.AddIncome(ctx, core.Income{
			UserID: u.ID, Name: "Salary", Amount: core.Money{Cents: 100000},
		}); err != nil {
			t.Fatalf("add: %v", err)
		}
		if _, err := e.reports.Summary(ctx, u.ID); err != nil {
			t.Fatalf("summary: %v", err)
		}

		// Writing behind the service's back is not visible until the
		// cache is invalidated or expires.
		if _, err := store.InsertIncome(ctx, &core.Income{
			UserID: u.ID, Name: "Hidden", Amount: core.Money{Cents: 999},
		}); err != nil {
			t.Fatalf("raw insert: %v", err)
		}
		cached, _ := e.reports.Summary(ctx, u.ID)
		if cached.IncomeTotal.Cents != 100000 {
			t.Errorf("cached total = %d, want 100000", cached.IncomeTotal.Cents)
		}

		e.reports.Invalidate(u.ID)
		fresh, _ := e.reports.Summary(ctx, u.ID)
		if fresh.IncomeTotal.Cents != 100999 {
			t.Errorf("fresh total = %d, want 100999", fresh.IncomeTotal.Cents)
		}
	})
}

func TestGoalPlan(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store storage.Store) {
		e := newEnv(t, store)
		e.reports.now = func() time.Time {
			return time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
		}
		ctx := context.Background()
		u := e.registerUser(t, "Ana", "ana@mail.com")

		g, err := e.wishlist.AddGoal(ctx, u.ID, core.Goal{
			Name:     "Trip",
			Target:   core.Money{Cents: 600000},
			Deadline: core.NewDate(2026, 6, 15),
		})
		if err != nil {
			t.Fatalf("add: %v", err)
		}
		if _, err := e.wishlist.UpdateProgress(ctx, u.ID, g.ID, core.Money{Cents: 100000}, false); err != nil {
			t.Fatalf("progress: %v", err)
		}

		plan, err := e.reports.GoalPlan(ctx, u.ID, g.ID)
		if err != nil {
			t.Fatalf("plan: %v", err)
		}
		if plan.Remaining.Cents != 500000 || plan.Months != 5 || plan.MonthlyQuota.Cents != 100000 {
			t.Errorf("plan = %+v", plan)
		}

		// Foreign goals are invisible.
		bob := e.registerUser(t, "Bob", "bob@mail.com")
		if _, err := e.reports.GoalPlan(ctx, bob.ID, g.ID); !errors.Is(err, apperror.ErrNotFound) {
			t.Errorf("foreign plan error = %v, want ErrNotFound", err)
		}
	})
}
