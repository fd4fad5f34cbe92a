// Package storage defines the ports every persistence backend must
// satisfy. Two implementations exist: sqlite (the native relational
// store) and kv (the web-style JSON blob store). Business rules — the
// wishlist total recompute, ownership scoping, day clamping — live in
// the services layer and are written once against these interfaces,
// never per backend.
package storage

import (
	"context"

	"finanzapp/internal/core"
)

type (
	// UserStore persists identity records. Lookups return (nil, nil)
	// when no row matches; callers translate that into their own
	// not-found signalling.
	UserStore interface {
		UserByID(ctx context.Context, id int64) (*core.User, error)
		// UserByEmail matches against the normalized (trimmed,
		// lowercased) email. The snapshot row never matches.
		UserByEmail(ctx context.Context, email string) (*core.User, error)
		InsertUser(ctx context.Context, u *core.User) (int64, error)
		UpdateUser(ctx context.Context, u *core.User) error
		// SaveSnapshot mirrors display fields into the reserved
		// snapshot row (core.SnapshotUserID). Email and credential
		// are never written there.
		SaveSnapshot(ctx context.Context, u *core.User) error
		ClearSnapshot(ctx context.Context) error
	}

	// SessionStore persists the singleton "who is logged in" pointer.
	SessionStore interface {
		// CurrentUserID returns 0 when no session is active.
		CurrentUserID(ctx context.Context) (int64, error)
		SetCurrentUser(ctx context.Context, userID int64) error
		ClearCurrentUser(ctx context.Context) error
	}

	// BudgetStore persists income and expense lines. Lists come back
	// newest first.
	BudgetStore interface {
		ListIncomes(ctx context.Context, userID int64) ([]core.Income, error)
		IncomeByID(ctx context.Context, id int64) (*core.Income, error)
		InsertIncome(ctx context.Context, in *core.Income) (int64, error)
		UpdateIncome(ctx context.Context, in *core.Income) error
		DeleteIncome(ctx context.Context, id int64) error

		ListExpenses(ctx context.Context, userID int64) ([]core.Expense, error)
		ExpenseByID(ctx context.Context, id int64) (*core.Expense, error)
		InsertExpense(ctx context.Context, ex *core.Expense) (int64, error)
		UpdateExpense(ctx context.Context, ex *core.Expense) error
		DeleteExpense(ctx context.Context, id int64) error
	}

	// WishlistStore persists wishlists and their goals. It only moves
	// rows; recomputing the denormalized Total is the caller's job.
	WishlistStore interface {
		WishlistByID(ctx context.Context, id int64) (*core.Wishlist, error)
		WishlistByUser(ctx context.Context, userID int64) (*core.Wishlist, error)
		CreateWishlist(ctx context.Context, userID int64) (int64, error)
		SetWishlistTotal(ctx context.Context, wishlistID int64, total core.Money) error
		// SumGoalTargets sums the target amounts over all goals that
		// currently exist for the wishlist.
		SumGoalTargets(ctx context.Context, wishlistID int64) (core.Money, error)

		ListGoals(ctx context.Context, wishlistID int64) ([]core.Goal, error)
		GoalByID(ctx context.Context, id int64) (*core.Goal, error)
		InsertGoal(ctx context.Context, g *core.Goal) (int64, error)
		UpdateGoal(ctx context.Context, g *core.Goal) error
		UpdateGoalProgress(ctx context.Context, id int64, saved core.Money, completed bool) error
		DeleteGoal(ctx context.Context, id int64) error
	}

	// Store is the full backend surface the application is built on.
	Store interface {
		UserStore
		SessionStore
		BudgetStore
		WishlistStore
		Close() error
	}
)
