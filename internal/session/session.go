// Package session tracks which user is logged in. The pointer lives in
// the store's singleton session record; display fields of the current
// user are mirrored into the reserved snapshot row so legacy call
// sites that read "user 1" keep working. The snapshot never carries an
// email or a credential.
package session

import (
	"context"

	"finanzapp/internal/apperror"
	"finanzapp/internal/core"
	"finanzapp/internal/log"
	"finanzapp/internal/storage"
)

type Manager struct {
	store  storage.Store
	logger *log.Logger
}

func NewManager(store storage.Store, logger *log.Logger) *Manager {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &Manager{
		store:  store,
		logger: logger.WithComponent(log.ComponentSession),
	}
}

// Start makes u the current user: sets the session pointer and mirrors
// the display fields into the snapshot row.
func (m *Manager) Start(ctx context.Context, u *core.User) error {
	if err := m.store.SetCurrentUser(ctx, u.ID); err != nil {
		return err
	}
	if err := m.store.SaveSnapshot(ctx, u); err != nil {
		return err
	}
	m.logger.InfoContext(ctx, "Session started", log.FieldUserID, u.ID)
	return nil
}

// Current returns the logged-in user's id, or 0 when nobody is.
func (m *Manager) Current(ctx context.Context) (int64, error) {
	return m.store.CurrentUserID(ctx)
}

// CurrentUser loads the logged-in user's full record. Returns
// apperror.ErrNoSession when nobody is logged in or the pointed-at
// user no longer exists.
func (m *Manager) CurrentUser(ctx context.Context) (*core.User, error) {
	id, err := m.store.CurrentUserID(ctx)
	if err != nil {
		return nil, err
	}
	if id == 0 {
		return nil, apperror.NoSession()
	}
	u, err := m.store.UserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, apperror.NoSession()
	}
	return u, nil
}

// End clears the session pointer and resets the snapshot row.
func (m *Manager) End(ctx context.Context) error {
	if err := m.store.ClearCurrentUser(ctx); err != nil {
		return err
	}
	if err := m.store.ClearSnapshot(ctx); err != nil {
		return err
	}
	m.logger.InfoContext(ctx, "Session ended")
	return nil
}
