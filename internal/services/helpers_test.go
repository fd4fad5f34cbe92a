package services

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"finanzapp/internal/core"
	"finanzapp/internal/log"
	"finanzapp/internal/session"
	"finanzapp/internal/storage"
	"finanzapp/internal/storage/kv"
	"finanzapp/internal/storage/sqlite"
)

// forEachBackend runs fn once per storage backend. The business rules
// live above the ports, so every property must hold on both.
func forEachBackend(t *testing.T, fn func(t *testing.T, store storage.Store)) {
	t.Helper()

	t.Run("sqlite", func(t *testing.T) {
		s, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"), nil)
		if err != nil {
			t.Fatalf("open sqlite store: %v", err)
		}
		t.Cleanup(func() { s.Close() })
		fn(t, s)
	})

	t.Run("kv", func(t *testing.T) {
		s, err := kv.Open(t.TempDir())
		if err != nil {
			t.Fatalf("open kv store: %v", err)
		}
		t.Cleanup(func() { s.Close() })
		fn(t, s)
	})
}

type env struct {
	store    storage.Store
	sessions *session.Manager
	users    *UserService
	budget   *BudgetService
	wishlist *WishlistService
	reports  *ReportService
	queue    *fakePublisher
}

func newEnv(t *testing.T, store storage.Store) *env {
	t.Helper()
	logger := log.New(log.DefaultConfig())
	sessions := session.NewManager(store, logger)
	reports := NewReportService(store, logger)
	queue := &fakePublisher{}
	return &env{
		store:    store,
		sessions: sessions,
		users:    NewUserService(store, sessions, logger).WithHashCost(bcrypt.MinCost),
		budget:   NewBudgetService(store, queue, reports, logger),
		wishlist: NewWishlistService(store, logger),
		reports:  reports,
		queue:    queue,
	}
}

func (e *env) registerUser(t *testing.T, name, email string) *core.User {
	t.Helper()
	u, err := e.users.Register(context.Background(), core.User{Name: name, Email: email}, "secret")
	if err != nil {
		t.Fatalf("register %s: %v", email, err)
	}
	return u
}

// fakePublisher records sync publishes; Err makes every publish fail.
type fakePublisher struct {
	mu    sync.Mutex
	calls []publishedLine
	err   error
}

type publishedLine struct {
	kind string
	id   int64
}

func (f *fakePublisher) PublishBudgetSync(_ context.Context, kind string, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.calls = append(f.calls, publishedLine{kind: kind, id: id})
	return nil
}

func (f *fakePublisher) published() []publishedLine {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]publishedLine(nil), f.calls...)
}
