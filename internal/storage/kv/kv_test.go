package kv

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"finanzapp/internal/core"
)

func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	dir := t.TempDir()
	s, err := Open(dir)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	return s, dir
}

func TestUserRoundTripAndPersistence(t *testing.T) {
	s, dir := newTestStore(t)
	ctx := context.Background()

	u := &core.User{Name: "Ana", Surname: "Ruiz", Email: "ana@mail.com", Credential: "hash"}
	id, err := s.InsertUser(ctx, u)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if id <= core.SnapshotUserID {
		t.Fatalf("id = %d, must be above the reserved snapshot id", id)
	}

	// Everything is re-serialized on write, so a fresh open must see it.
	s2, err := Open(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	got, err := s2.UserByID(ctx, id)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if got == nil || got.Email != "ana@mail.com" || got.Credential != "hash" {
		t.Fatalf("lookup after reopen = %+v", got)
	}

	// Ids keep counting up after a reload.
	second := &core.User{Name: "Bob", Email: "bob@mail.com"}
	id2, err := s2.InsertUser(ctx, second)
	if err != nil {
		t.Fatalf("second insert: %v", err)
	}
	if id2 <= id {
		t.Errorf("id2 = %d, want > %d", id2, id)
	}
}

func TestUserByEmailCaseInsensitiveAndSkipsSnapshot(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	u := &core.User{Name: "Ana", Email: "Ana@Mail.com"}
	if _, err := s.InsertUser(ctx, u); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := s.SaveSnapshot(ctx, u); err != nil {
		t.Fatalf("snapshot: %v", err)
	}

	got, err := s.UserByEmail(ctx, "ANA@MAIL.COM")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if got == nil || got.ID != u.ID {
		t.Fatalf("lookup = %+v, want user %d", got, u.ID)
	}

	snap, _ := s.UserByID(ctx, core.SnapshotUserID)
	if snap == nil {
		t.Fatal("snapshot row missing")
	}
	if snap.Email != "" || snap.Credential != "" {
		t.Errorf("snapshot carries credentials: %+v", snap)
	}
}

func TestUpdateUserMissingIsNoOp(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	// A SQL UPDATE on a missing row changes nothing; same here.
	if err := s.UpdateUser(ctx, &core.User{ID: 42, Name: "Ghost"}); err != nil {
		t.Fatalf("update missing user: %v", err)
	}
	got, err := s.UserByID(ctx, 42)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if got != nil {
		t.Errorf("update of missing user inserted a record: %+v", got)
	}
}

func TestSessionPointerPersists(t *testing.T) {
	s, dir := newTestStore(t)
	ctx := context.Background()

	if err := s.SetCurrentUser(ctx, 7); err != nil {
		t.Fatalf("set: %v", err)
	}

	s2, _ := Open(dir)
	id, err := s2.CurrentUserID(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if id != 7 {
		t.Errorf("current user = %d, want 7", id)
	}

	if err := s2.ClearCurrentUser(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if id, _ := s2.CurrentUserID(ctx); id != 0 {
		t.Errorf("after clear = %d, want 0", id)
	}
}

func TestBudgetBucketsAreScopedPerUser(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	if _, err := s.InsertIncome(ctx, &core.Income{UserID: 2, Name: "ana", Amount: core.Money{Cents: 100}}); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if _, err := s.InsertIncome(ctx, &core.Income{UserID: 3, Name: "bob", Amount: core.Money{Cents: 200}}); err != nil {
		t.Fatalf("insert: %v", err)
	}

	ana, err := s.ListIncomes(ctx, 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(ana) != 1 || ana[0].Name != "ana" || ana[0].UserID != 2 {
		t.Fatalf("ana's incomes = %+v", ana)
	}

	bob, _ := s.ListIncomes(ctx, 3)
	if len(bob) != 1 || bob[0].Name != "bob" {
		t.Fatalf("bob's incomes = %+v", bob)
	}
}

func TestBudgetListsNewestFirst(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	for _, name := range []string{"first", "second", "third"} {
		if _, err := s.InsertExpense(ctx, &core.Expense{
			UserID: 2, Name: name, Amount: core.Money{Cents: 100}, Day: 1,
		}); err != nil {
			t.Fatalf("insert %s: %v", name, err)
		}
	}

	expenses, err := s.ListExpenses(ctx, 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(expenses) != 3 {
		t.Fatalf("len = %d, want 3", len(expenses))
	}
	if expenses[0].Name != "third" || expenses[2].Name != "first" {
		t.Errorf("order = %s..%s, want third..first", expenses[0].Name, expenses[2].Name)
	}
}

func TestWishlistGoalLifecycle(t *testing.T) {
	s, dir := newTestStore(t)
	ctx := context.Background()

	wlID, err := s.CreateWishlist(ctx, 2)
	if err != nil {
		t.Fatalf("create wishlist: %v", err)
	}
	// Creating again returns the existing wishlist.
	again, err := s.CreateWishlist(ctx, 2)
	if err != nil {
		t.Fatalf("create again: %v", err)
	}
	if again != wlID {
		t.Errorf("second create = %d, want %d", again, wlID)
	}

	g := &core.Goal{
		WishlistID: wlID,
		Name:       "Trip",
		Target:     core.Money{Cents: 1500000},
		Deadline:   core.NewDate(2027, 6, 1),
	}
	goalID, err := s.InsertGoal(ctx, g)
	if err != nil {
		t.Fatalf("insert goal: %v", err)
	}

	sum, err := s.SumGoalTargets(ctx, wlID)
	if err != nil {
		t.Fatalf("sum: %v", err)
	}
	if sum.Cents != 1500000 {
		t.Errorf("sum = %d, want 1500000", sum.Cents)
	}
	if err := s.SetWishlistTotal(ctx, wlID, sum); err != nil {
		t.Fatalf("set total: %v", err)
	}

	if err := s.UpdateGoalProgress(ctx, goalID, core.Money{Cents: 250000}, false); err != nil {
		t.Fatalf("progress: %v", err)
	}

	// Reopen and check everything survived the blob rewrite.
	s2, _ := Open(dir)
	got, err := s2.GoalByID(ctx, goalID)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if got == nil || got.Saved.Cents != 250000 || got.Deadline.ISO() != "2027-06-01" {
		t.Fatalf("goal after reopen = %+v", got)
	}
	wl, _ := s2.WishlistByUser(ctx, 2)
	if wl == nil || wl.Total.Cents != 1500000 {
		t.Fatalf("wishlist after reopen = %+v", wl)
	}

	if err := s2.DeleteGoal(ctx, goalID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if got, _ := s2.GoalByID(ctx, goalID); got != nil {
		t.Errorf("goal survived delete: %+v", got)
	}
}

func TestInsertGoalWithoutWishlistFails(t *testing.T) {
	s, _ := newTestStore(t)
	g := &core.Goal{WishlistID: 42, Name: "Orphan", Target: core.Money{Cents: 100}}
	if _, err := s.InsertGoal(context.Background(), g); err == nil {
		t.Fatal("expected error inserting goal into a missing wishlist")
	}
}

func TestCorruptBlobStartsEmpty(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "budget_v2.json"), []byte("{not json"), 0644); err != nil {
		t.Fatalf("write corrupt blob: %v", err)
	}

	s, err := Open(dir)
	if err != nil {
		t.Fatalf("open over corrupt blob: %v", err)
	}
	incomes, err := s.ListIncomes(context.Background(), 1)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(incomes) != 0 {
		t.Errorf("expected empty store, got %+v", incomes)
	}
}
