package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"finanzapp/internal/core"
)

// CurrentUserID reads the singleton session pointer; 0 means nobody is
// logged in.
func (s *Store) CurrentUserID(ctx context.Context) (int64, error) {
	var id sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		`SELECT real_user_id FROM Session WHERE id = ?`, core.SessionRowID,
	).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read session: %w", err)
	}
	if !id.Valid {
		return 0, nil
	}
	return id.Int64, nil
}

func (s *Store) SetCurrentUser(ctx context.Context, userID int64) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO Session (id, real_user_id) VALUES (?, ?)
		 ON CONFLICT(id) DO UPDATE SET real_user_id = excluded.real_user_id`,
		core.SessionRowID, userID)
	if err != nil {
		return fmt.Errorf("set session: %w", err)
	}
	return nil
}

func (s *Store) ClearCurrentUser(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE Session SET real_user_id = NULL WHERE id = ?`, core.SessionRowID)
	if err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}
