package services

import (
	"context"
	"errors"
	"testing"

	"finanzapp/internal/apperror"
	"finanzapp/internal/core"
	"finanzapp/internal/storage"
)

func TestRegisterStartsSession(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store storage.Store) {
		e := newEnv(t, store)
		ctx := context.Background()

		u := e.registerUser(t, "Ana", "Ana@Mail.com")

		if u.Email != "ana@mail.com" {
			t.Errorf("stored email = %q, want normalized ana@mail.com", u.Email)
		}
		if u.Credential == "" || u.Credential == "secret" {
			t.Errorf("credential must be a hash, got %q", u.Credential)
		}

		id, err := e.sessions.Current(ctx)
		if err != nil {
			t.Fatalf("current: %v", err)
		}
		if id != u.ID {
			t.Errorf("session user = %d, want %d", id, u.ID)
		}

		// Snapshot row mirrors display fields, never credentials.
		snap, err := store.UserByID(ctx, core.SnapshotUserID)
		if err != nil {
			t.Fatalf("snapshot: %v", err)
		}
		if snap.Name != "Ana" {
			t.Errorf("snapshot name = %q, want Ana", snap.Name)
		}
		if snap.Email != "" || snap.Credential != "" {
			t.Errorf("snapshot leaked credentials: %+v", snap)
		}
	})
}

func TestRegisterDuplicateEmail(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store storage.Store) {
		e := newEnv(t, store)
		ctx := context.Background()

		e.registerUser(t, "Ana", "ana@mail.com")

		_, err := e.users.Register(ctx, core.User{Name: "Impostor", Email: "ANA@mail.com"}, "pw")
		if !errors.Is(err, apperror.ErrDuplicate) {
			t.Fatalf("error = %v, want ErrDuplicate", err)
		}
		var appErr *apperror.AppError
		if !errors.As(err, &appErr) || appErr.Field != "email" {
			t.Errorf("error field = %+v, want email", err)
		}
	})
}

func TestRegisterValidation(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store storage.Store) {
		e := newEnv(t, store)
		ctx := context.Background()

		cases := []struct {
			name     string
			user     core.User
			password string
		}{
			{"missing name", core.User{Email: "x@mail.com"}, "pw"},
			{"missing email", core.User{Name: "Ana"}, "pw"},
			{"missing password", core.User{Name: "Ana", Email: "x@mail.com"}, ""},
			{"bad email", core.User{Name: "Ana", Email: "nope"}, "pw"},
		}
		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				_, err := e.users.Register(ctx, tc.user, tc.password)
				if !errors.Is(err, apperror.ErrValidation) {
					t.Errorf("error = %v, want ErrValidation", err)
				}
			})
		}
	})
}

func TestLoginAndLogout(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store storage.Store) {
		e := newEnv(t, store)
		ctx := context.Background()

		u := e.registerUser(t, "Ana", "ana@mail.com")
		if err := e.users.Logout(ctx); err != nil {
			t.Fatalf("logout: %v", err)
		}
		if id, _ := e.sessions.Current(ctx); id != 0 {
			t.Fatalf("session survived logout: %d", id)
		}

		got, err := e.users.Login(ctx, "  ANA@mail.com ", "secret")
		if err != nil {
			t.Fatalf("login: %v", err)
		}
		if got.ID != u.ID {
			t.Errorf("logged in as %d, want %d", got.ID, u.ID)
		}
		if id, _ := e.sessions.Current(ctx); id != u.ID {
			t.Errorf("session user = %d, want %d", id, u.ID)
		}
	})
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store storage.Store) {
		e := newEnv(t, store)
		ctx := context.Background()

		e.registerUser(t, "Ana", "ana@mail.com")
		e.users.Logout(ctx)

		// Wrong password and unknown email fail the same way.
		if _, err := e.users.Login(ctx, "ana@mail.com", "wrong"); !errors.Is(err, apperror.ErrValidation) {
			t.Errorf("wrong password error = %v, want ErrValidation", err)
		}
		if _, err := e.users.Login(ctx, "ghost@mail.com", "secret"); !errors.Is(err, apperror.ErrValidation) {
			t.Errorf("unknown email error = %v, want ErrValidation", err)
		}
		if id, _ := e.sessions.Current(ctx); id != 0 {
			t.Errorf("failed login started a session: %d", id)
		}
	})
}

func TestUpdateProfileKeepsCredential(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store storage.Store) {
		e := newEnv(t, store)
		ctx := context.Background()

		u := e.registerUser(t, "Ana", "ana@mail.com")
		originalHash := u.Credential

		updated, err := e.users.UpdateProfile(ctx, core.User{
			Name:      "Ana Maria",
			Surname:   "Ruiz",
			BirthDate: "1995-04-02",
		})
		if err != nil {
			t.Fatalf("update profile: %v", err)
		}
		if updated.Name != "Ana Maria" || updated.Surname != "Ruiz" {
			t.Errorf("updated = %+v", updated)
		}
		if updated.Credential != originalHash {
			t.Error("profile update clobbered the credential")
		}
		if updated.Email != "ana@mail.com" {
			t.Errorf("profile update changed the email: %q", updated.Email)
		}

		// Login still works after the profile edit.
		if _, err := e.users.Login(ctx, "ana@mail.com", "secret"); err != nil {
			t.Errorf("login after profile update: %v", err)
		}
	})
}

func TestUpdateProfileNeedsSession(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store storage.Store) {
		e := newEnv(t, store)
		ctx := context.Background()

		_, err := e.users.UpdateProfile(ctx, core.User{Name: "Nobody"})
		if !errors.Is(err, apperror.ErrNoSession) {
			t.Errorf("error = %v, want ErrNoSession", err)
		}
	})
}

func TestChangePassword(t *testing.T) {
	forEachBackend(t, func(t *testing.T, store storage.Store) {
		e := newEnv(t, store)
		ctx := context.Background()

		e.registerUser(t, "Ana", "ana@mail.com")
		if err := e.users.ChangePassword(ctx, "newsecret"); err != nil {
			t.Fatalf("change password: %v", err)
		}
		e.users.Logout(ctx)

		if _, err := e.users.Login(ctx, "ana@mail.com", "secret"); err == nil {
			t.Error("old password still accepted")
		}
		if _, err := e.users.Login(ctx, "ana@mail.com", "newsecret"); err != nil {
			t.Errorf("new password rejected: %v", err)
		}
	})
}
