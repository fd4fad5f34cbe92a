package session

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"finanzapp/internal/apperror"
	"finanzapp/internal/core"
	"finanzapp/internal/storage"
	"finanzapp/internal/storage/kv"
	"finanzapp/internal/storage/sqlite"
)

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

func TestSessionLifecycle(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store storage.Store) {
		m := NewManager(store, nil)
		ctx := context.Background()

		u := &core.User{Name: "Ana", Surname: "Ruiz", Email: "ana@mail.com", Credential: "hash"}
		if _, err := store.InsertUser(ctx, u); err != nil {
			t.Fatalf("insert user: %v", err)
		}

		// No session yet.
		id, err := m.Current(ctx)
		if err != nil {
			t.Fatalf("current: %v", err)
		}
		if id != 0 {
			t.Fatalf("fresh session = %d, want 0", id)
		}
		if _, err := m.CurrentUser(ctx); !errors.Is(err, apperror.ErrNoSession) {
			t.Errorf("current user error = %v, want ErrNoSession", err)
		}

		if err := m.Start(ctx, u); err != nil {
			t.Fatalf("start: %v", err)
		}
		got, err := m.CurrentUser(ctx)
		if err != nil {
			t.Fatalf("current user: %v", err)
		}
		if got.ID != u.ID || got.Email != "ana@mail.com" {
			t.Errorf("current user = %+v", got)
		}

		// Snapshot mirrors the display fields without credentials.
		snap, err := store.UserByID(ctx, core.SnapshotUserID)
		if err != nil {
			t.Fatalf("snapshot: %v", err)
		}
		if snap.Name != "Ana" || snap.Surname != "Ruiz" {
			t.Errorf("snapshot = %+v", snap)
		}
		if snap.Email != "" || snap.Credential != "" {
			t.Errorf("snapshot carries credentials: %+v", snap)
		}

		if err := m.End(ctx); err != nil {
			t.Fatalf("end: %v", err)
		}
		if id, _ := m.Current(ctx); id != 0 {
			t.Errorf("session survived End: %d", id)
		}
		snap, _ = store.UserByID(ctx, core.SnapshotUserID)
		if snap.Name != "__SESSION__" {
			t.Errorf("snapshot after End = %q, want __SESSION__", snap.Name)
		}
	})
}

func TestStartReplacesPreviousSession(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store storage.Store) {
		m := NewManager(store, nil)
		ctx := context.Background()

		ana := &core.User{Name: "Ana", Email: "ana@mail.com"}
		bob := &core.User{Name: "Bob", Email: "bob@mail.com"}
		store.InsertUser(ctx, ana)
		store.InsertUser(ctx, bob)

		if err := m.Start(ctx, ana); err != nil {
			t.Fatalf("start ana: %v", err)
		}
		if err := m.Start(ctx, bob); err != nil {
			t.Fatalf("start bob: %v", err)
		}

		id, _ := m.Current(ctx)
		if id != bob.ID {
			t.Errorf("current = %d, want %d", id, bob.ID)
		}
		snap, _ := store.UserByID(ctx, core.SnapshotUserID)
		if snap.Name != "Bob" {
			t.Errorf("snapshot name = %q, want Bob", snap.Name)
		}
	})
}

func TestCurrentUserWithDanglingPointer(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store storage.Store) {
		m := NewManager(store, nil)
		ctx := context.Background()

		// Pointer at a user that does not exist.
		if err := store.SetCurrentUser(ctx, 999); err != nil {
			t.Fatalf("set: %v", err)
		}
		if _, err := m.CurrentUser(ctx); !errors.Is(err, apperror.ErrNoSession) {
			t.Errorf("dangling pointer error = %v, want ErrNoSession", err)
		}
	})
}
