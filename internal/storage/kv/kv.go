// Package kv implements the storage ports the way the web build
// persists data: JSON blobs under fixed keys, one bucket per user,
// fully re-serialized on every write. Each key is a file in the data
// directory (usuario_v1.json, session_v1.json, budget_v2.json,
// wishlist_v1.json).
package kv

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"
	"time"

	"finanzapp/internal/core"
	"finanzapp/internal/storage"
)

const (
	keyUsers    = "usuario_v1.json"
	keySession  = "session_v1.json"
	keyBudget   = "budget_v2.json"
	keyWishlist = "wishlist_v1.json"
)

type (
	userBlob struct {
		NextID int64                 `json:"next_id"`
		Users  map[string]*core.User `json:"users"`
	}

	sessionBlob struct {
		RealUserID int64 `json:"real_user_id"`
	}

	budgetBucket struct {
		Incomes  []incomeRec  `json:"incomes"`
		Expenses []expenseRec `json:"expenses"`
	}

	budgetBlob struct {
		NextID  int64                    `json:"next_id"`
		Buckets map[string]*budgetBucket `json:"buckets"`
	}

	incomeRec struct {
		ID     int64  `json:"id"`
		Name   string `json:"name"`
		Amount int64  `json:"amount"`
		Fixed  bool   `json:"isFixed"`
		Date   string `json:"date,omitempty"`
	}

	expenseRec struct {
		ID     int64  `json:"id"`
		Name   string `json:"name"`
		Amount int64  `json:"amount"`
		Day    int    `json:"day"`
		Fixed  bool   `json:"isFixed"`
		Date   string `json:"date,omitempty"`
	}

	wishlistBucket struct {
		WishlistID int64     `json:"wishlist_id"`
		Total      int64     `json:"total"`
		Items      []goalRec `json:"items"`
	}

	wishlistBlob struct {
		NextID  int64                      `json:"next_id"`
		Buckets map[string]*wishlistBucket `json:"buckets"`
	}

	goalRec struct {
		ID          int64  `json:"id"`
		Name        string `json:"name"`
		Target      int64  `json:"amount"`
		Deadline    string `json:"deadline,omitempty"`
		Description string `json:"description,omitempty"`
		Saved       int64  `json:"saved"`
		Completed   bool   `json:"completed"`
	}
)

// Store keeps everything in memory and rewrites the whole blob file on
// each mutation, mirroring how the web build rewrites localStorage
// entries. A single mutex serializes access; write volumes are
// human-interactive.
type Store struct {
	mu      sync.Mutex
	dir     string
	users   userBlob
	session sessionBlob
	budget  budgetBlob
	wishes  wishlistBlob
}

var _ storage.Store = (*Store)(nil)

// Open loads existing blobs from dir, creating it if needed. Missing or
// unreadable blobs start empty, like a fresh browser profile.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	s := &Store{
		dir:     dir,
		users:   userBlob{NextID: core.SnapshotUserID + 1, Users: map[string]*core.User{}},
		budget:  budgetBlob{NextID: 1, Buckets: map[string]*budgetBucket{}},
		wishes:  wishlistBlob{NextID: 1, Buckets: map[string]*wishlistBucket{}},
		session: sessionBlob{},
	}
	loadJSON(filepath.Join(dir, keyUsers), &s.users)
	loadJSON(filepath.Join(dir, keySession), &s.session)
	loadJSON(filepath.Join(dir, keyBudget), &s.budget)
	loadJSON(filepath.Join(dir, keyWishlist), &s.wishes)
	if s.users.Users == nil {
		s.users.Users = map[string]*core.User{}
	}
	if s.budget.Buckets == nil {
		s.budget.Buckets = map[string]*budgetBucket{}
	}
	if s.wishes.Buckets == nil {
		s.wishes.Buckets = map[string]*wishlistBucket{}
	}
	return s, nil
}

func (s *Store) Close() error { return nil }

func loadJSON(path string, v any) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return
	}
	// A corrupt blob is treated as absent rather than fatal.
	_ = json.Unmarshal(raw, v)
}

func (s *Store) saveLocked(key string, v any) error {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	path := filepath.Join(s.dir, key)
	if err := os.WriteFile(path, raw, 0644); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}

func userKey(id int64) string { return strconv.FormatInt(id, 10) }

/* ---------- UserStore ---------- */

func (s *Store) UserByID(_ context.Context, id int64) (*core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users.Users[userKey(id)]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (s *Store) UserByEmail(_ context.Context, email string) (*core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	norm := core.NormalizeEmail(email)
	for _, u := range s.users.Users {
		if u.ID == core.SnapshotUserID {
			continue
		}
		if u.Email != "" && core.NormalizeEmail(u.Email) == norm {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *Store) InsertUser(_ context.Context, u *core.User) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.users.NextID <= core.SnapshotUserID {
		s.users.NextID = core.SnapshotUserID + 1
	}
	u.ID = s.users.NextID
	s.users.NextID++
	cp := *u
	s.users.Users[userKey(u.ID)] = &cp
	return u.ID, s.saveLocked(keyUsers, &s.users)
}

func (s *Store) UpdateUser(_ context.Context, u *core.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := userKey(u.ID)
	// Like a SQL UPDATE, a missing row is a silent no-op, not an insert.
	if _, ok := s.users.Users[key]; !ok {
		return nil
	}
	cp := *u
	s.users.Users[key] = &cp
	return s.saveLocked(keyUsers, &s.users)
}

func (s *Store) SaveSnapshot(_ context.Context, u *core.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users.Users[userKey(core.SnapshotUserID)] = &core.User{
		ID:        core.SnapshotUserID,
		Name:      u.Name,
		Surname:   u.Surname,
		BirthDate: u.BirthDate,
		Avatar:    u.Avatar,
	}
	return s.saveLocked(keyUsers, &s.users)
}

func (s *Store) ClearSnapshot(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users.Users[userKey(core.SnapshotUserID)] = &core.User{
		ID:   core.SnapshotUserID,
		Name: "__SESSION__",
	}
	return s.saveLocked(keyUsers, &s.users)
}

/* ---------- SessionStore ---------- */

func (s *Store) CurrentUserID(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session.RealUserID, nil
}

func (s *Store) SetCurrentUser(_ context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session.RealUserID = userID
	return s.saveLocked(keySession, &s.session)
}

func (s *Store) ClearCurrentUser(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session.RealUserID = 0
	return s.saveLocked(keySession, &s.session)
}

/* ---------- BudgetStore ---------- */

func (s *Store) budgetBucketLocked(userID int64) *budgetBucket {
	key := userKey(userID)
	b, ok := s.budget.Buckets[key]
	if !ok {
		b = &budgetBucket{}
		s.budget.Buckets[key] = b
	}
	return b
}

func (s *Store) ListIncomes(_ context.Context, userID int64) ([]core.Income, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b := s.budgetBucketLocked(userID)
	out := make([]core.Income, 0, len(b.Incomes))
	for _, r := range b.Incomes {
		out = append(out, incomeFromRec(r, userID))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (s *Store) IncomeByID(_ context.Context, id int64) (*core.Income, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, b := range s.budget.Buckets {
		uid, _ := strconv.ParseInt(key, 10, 64)
		for _, r := range b.Incomes {
			if r.ID == id {
				in := incomeFromRec(r, uid)
				return &in, nil
			}
		}
	}
	return nil, nil
}

func (s *Store) InsertIncome(_ context.Context, in *core.Income) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	in.ID = s.budget.NextID
	s.budget.NextID++
	b := s.budgetBucketLocked(in.UserID)
	b.Incomes = append([]incomeRec{incomeToRec(in)}, b.Incomes...)
	return in.ID, s.saveLocked(keyBudget, &s.budget)
}

// UpdateIncome rewrites the line. A zero Date keeps the stored date;
// a set one replaces it.
func (s *Store) UpdateIncome(_ context.Context, in *core.Income) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b := s.budgetBucketLocked(in.UserID)
	for i, r := range b.Incomes {
		if r.ID == in.ID {
			rec := incomeToRec(in)
			if rec.Date == "" {
				rec.Date = r.Date
			}
			b.Incomes[i] = rec
			return s.saveLocked(keyBudget, &s.budget)
		}
	}
	return nil
}

func (s *Store) DeleteIncome(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range s.budget.Buckets {
		kept := b.Incomes[:0]
		for _, r := range b.Incomes {
			if r.ID != id {
				kept = append(kept, r)
			}
		}
		b.Incomes = kept
	}
	return s.saveLocked(keyBudget, &s.budget)
}

func (s *Store) ListExpenses(_ context.Context, userID int64) ([]core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b := s.budgetBucketLocked(userID)
	out := make([]core.Expense, 0, len(b.Expenses))
	for _, r := range b.Expenses {
		out = append(out, expenseFromRec(r, userID))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (s *Store) ExpenseByID(_ context.Context, id int64) (*core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, b := range s.budget.Buckets {
		uid, _ := strconv.ParseInt(key, 10, 64)
		for _, r := range b.Expenses {
			if r.ID == id {
				ex := expenseFromRec(r, uid)
				return &ex, nil
			}
		}
	}
	return nil, nil
}

func (s *Store) InsertExpense(_ context.Context, ex *core.Expense) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ex.ID = s.budget.NextID
	s.budget.NextID++
	b := s.budgetBucketLocked(ex.UserID)
	b.Expenses = append([]expenseRec{expenseToRec(ex)}, b.Expenses...)
	return ex.ID, s.saveLocked(keyBudget, &s.budget)
}

// UpdateExpense rewrites the line. A zero Date keeps the stored date;
// a set one replaces it.
func (s *Store) UpdateExpense(_ context.Context, ex *core.Expense) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b := s.budgetBucketLocked(ex.UserID)
	for i, r := range b.Expenses {
		if r.ID == ex.ID {
			rec := expenseToRec(ex)
			if rec.Date == "" {
				rec.Date = r.Date
			}
			b.Expenses[i] = rec
			return s.saveLocked(keyBudget, &s.budget)
		}
	}
	return nil
}

func (s *Store) DeleteExpense(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range s.budget.Buckets {
		kept := b.Expenses[:0]
		for _, r := range b.Expenses {
			if r.ID != id {
				kept = append(kept, r)
			}
		}
		b.Expenses = kept
	}
	return s.saveLocked(keyBudget, &s.budget)
}

/* ---------- WishlistStore ---------- */

func (s *Store) WishlistByID(_ context.Context, id int64) (*core.Wishlist, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, b := range s.wishes.Buckets {
		if b.WishlistID == id {
			uid, _ := strconv.ParseInt(key, 10, 64)
			return &core.Wishlist{ID: id, UserID: uid, Total: core.Money{Cents: b.Total}}, nil
		}
	}
	return nil, nil
}

func (s *Store) WishlistByUser(_ context.Context, userID int64) (*core.Wishlist, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.wishes.Buckets[userKey(userID)]
	if !ok {
		return nil, nil
	}
	return &core.Wishlist{ID: b.WishlistID, UserID: userID, Total: core.Money{Cents: b.Total}}, nil
}

func (s *Store) CreateWishlist(_ context.Context, userID int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := userKey(userID)
	if existing, ok := s.wishes.Buckets[key]; ok {
		return existing.WishlistID, nil
	}
	id := s.wishes.NextID
	s.wishes.NextID++
	s.wishes.Buckets[key] = &wishlistBucket{WishlistID: id}
	return id, s.saveLocked(keyWishlist, &s.wishes)
}

func (s *Store) SetWishlistTotal(_ context.Context, wishlistID int64, total core.Money) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b := s.wishlistBucketLocked(wishlistID)
	if b == nil {
		return nil
	}
	b.Total = total.Cents
	return s.saveLocked(keyWishlist, &s.wishes)
}

func (s *Store) SumGoalTargets(_ context.Context, wishlistID int64) (core.Money, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b := s.wishlistBucketLocked(wishlistID)
	if b == nil {
		return core.Money{}, nil
	}
	var cents int64
	for _, g := range b.Items {
		cents += g.Target
	}
	return core.Money{Cents: cents}, nil
}

func (s *Store) ListGoals(_ context.Context, wishlistID int64) ([]core.Goal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b := s.wishlistBucketLocked(wishlistID)
	if b == nil {
		return nil, nil
	}
	out := make([]core.Goal, 0, len(b.Items))
	for _, r := range b.Items {
		out = append(out, goalFromRec(r, wishlistID))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (s *Store) GoalByID(_ context.Context, id int64) (*core.Goal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range s.wishes.Buckets {
		for _, r := range b.Items {
			if r.ID == id {
				g := goalFromRec(r, b.WishlistID)
				return &g, nil
			}
		}
	}
	return nil, nil
}

func (s *Store) InsertGoal(_ context.Context, g *core.Goal) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b := s.wishlistBucketLocked(g.WishlistID)
	if b == nil {
		return 0, fmt.Errorf("wishlist %d does not exist", g.WishlistID)
	}
	g.ID = s.wishes.NextID
	s.wishes.NextID++
	b.Items = append([]goalRec{goalToRec(g)}, b.Items...)
	return g.ID, s.saveLocked(keyWishlist, &s.wishes)
}

func (s *Store) UpdateGoal(_ context.Context, g *core.Goal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range s.wishes.Buckets {
		for i, r := range b.Items {
			if r.ID == g.ID {
				// Base fields only; progress stays as stored.
				b.Items[i].Name = g.Name
				b.Items[i].Target = g.Target.Cents
				b.Items[i].Deadline = g.Deadline.ISO()
				b.Items[i].Description = g.Description
				return s.saveLocked(keyWishlist, &s.wishes)
			}
		}
	}
	return nil
}

func (s *Store) UpdateGoalProgress(_ context.Context, id int64, saved core.Money, completed bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range s.wishes.Buckets {
		for i, r := range b.Items {
			if r.ID == id {
				b.Items[i].Saved = saved.Cents
				b.Items[i].Completed = completed
				return s.saveLocked(keyWishlist, &s.wishes)
			}
		}
	}
	return nil
}

func (s *Store) DeleteGoal(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range s.wishes.Buckets {
		kept := b.Items[:0]
		for _, r := range b.Items {
			if r.ID != id {
				kept = append(kept, r)
			}
		}
		b.Items = kept
	}
	return s.saveLocked(keyWishlist, &s.wishes)
}

func (s *Store) wishlistBucketLocked(wishlistID int64) *wishlistBucket {
	for _, b := range s.wishes.Buckets {
		if b.WishlistID == wishlistID {
			return b
		}
	}
	return nil
}

/* ---------- record conversions ---------- */

func incomeToRec(in *core.Income) incomeRec {
	return incomeRec{
		ID:     in.ID,
		Name:   in.Name,
		Amount: in.Amount.Cents,
		Fixed:  in.Fixed,
		Date:   formatTime(in.Date),
	}
}

func incomeFromRec(r incomeRec, userID int64) core.Income {
	return core.Income{
		ID:     r.ID,
		UserID: userID,
		Name:   r.Name,
		Amount: core.Money{Cents: r.Amount},
		Fixed:  r.Fixed,
		Date:   parseTime(r.Date),
	}
}

func expenseToRec(ex *core.Expense) expenseRec {
	return expenseRec{
		ID:     ex.ID,
		Name:   ex.Name,
		Amount: ex.Amount.Cents,
		Day:    ex.Day,
		Fixed:  ex.Fixed,
		Date:   formatTime(ex.Date),
	}
}

func expenseFromRec(r expenseRec, userID int64) core.Expense {
	return core.Expense{
		ID:     r.ID,
		UserID: userID,
		Name:   r.Name,
		Amount: core.Money{Cents: r.Amount},
		Day:    core.ClampDay(r.Day),
		Fixed:  r.Fixed,
		Date:   parseTime(r.Date),
	}
}

func goalToRec(g *core.Goal) goalRec {
	return goalRec{
		ID:          g.ID,
		Name:        g.Name,
		Target:      g.Target.Cents,
		Deadline:    g.Deadline.ISO(),
		Description: g.Description,
		Saved:       g.Saved.Cents,
		Completed:   g.Completed,
	}
}

func goalFromRec(r goalRec, wishlistID int64) core.Goal {
	deadline, _ := core.ParseDate(r.Deadline)
	return core.Goal{
		ID:          r.ID,
		WishlistID:  wishlistID,
		Name:        r.Name,
		Target:      core.Money{Cents: r.Target},
		Deadline:    deadline,
		Description: r.Description,
		Saved:       core.Money{Cents: r.Saved},
		Completed:   r.Completed,
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
