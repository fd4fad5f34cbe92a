package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"finanzapp/internal/core"
)

func (s *Store) UserByID(ctx context.Context, id int64) (*core.User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id_usuario, Nombre, COALESCE(Apellido,''), COALESCE(Correo,''),
		        COALESCE(Contra,''), COALESCE(FechaNacim,''), COALESCE(Avatar,'')
		   FROM Usuario WHERE id_usuario = ?`, id)
	return scanUser(row)
}

// UserByEmail matches case-insensitively (the Correo column collates
// NOCASE); the caller passes the normalized email. The snapshot row is
// excluded because it never holds an email.
func (s *Store) UserByEmail(ctx context.Context, email string) (*core.User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id_usuario, Nombre, COALESCE(Apellido,''), COALESCE(Correo,''),
		        COALESCE(Contra,''), COALESCE(FechaNacim,''), COALESCE(Avatar,'')
		   FROM Usuario
		  WHERE Correo = ? COLLATE NOCASE AND id_usuario != ?
		  LIMIT 1`, email, core.SnapshotUserID)
	return scanUser(row)
}

func (s *Store) InsertUser(ctx context.Context, u *core.User) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO Usuario (Nombre, Apellido, Correo, Contra, FechaNacim, Avatar)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		u.Name, nullable(u.Surname), nullable(u.Email), nullable(u.Credential),
		nullable(u.BirthDate), nullable(u.Avatar))
	if err != nil {
		return 0, fmt.Errorf("insert user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert user id: %w", err)
	}
	u.ID = id
	return id, nil
}

func (s *Store) UpdateUser(ctx context.Context, u *core.User) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE Usuario
		    SET Nombre = ?, Apellido = ?, Correo = ?, Contra = ?, FechaNacim = ?, Avatar = ?
		  WHERE id_usuario = ?`,
		u.Name, nullable(u.Surname), nullable(u.Email), nullable(u.Credential),
		nullable(u.BirthDate), nullable(u.Avatar), u.ID)
	if err != nil {
		return fmt.Errorf("update user %d: %w", u.ID, err)
	}
	return nil
}

// SaveSnapshot mirrors display fields into the reserved row. Email and
// credential are deliberately left NULL there so the snapshot can never
// satisfy a login or collide with the unique email constraint.
func (s *Store) SaveSnapshot(ctx context.Context, u *core.User) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO Usuario (id_usuario, Nombre, Apellido, Correo, Contra, FechaNacim, Avatar)
		 VALUES (?, ?, ?, NULL, NULL, ?, ?)
		 ON CONFLICT(id_usuario) DO UPDATE SET
		   Nombre = excluded.Nombre,
		   Apellido = excluded.Apellido,
		   Correo = NULL,
		   Contra = NULL,
		   FechaNacim = excluded.FechaNacim,
		   Avatar = excluded.Avatar`,
		core.SnapshotUserID, u.Name, nullable(u.Surname), nullable(u.BirthDate), nullable(u.Avatar))
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

func (s *Store) ClearSnapshot(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE Usuario
		    SET Nombre = '__SESSION__', Apellido = NULL, Correo = NULL,
		        Contra = NULL, FechaNacim = NULL, Avatar = NULL
		  WHERE id_usuario = ?`, core.SnapshotUserID)
	if err != nil {
		return fmt.Errorf("clear snapshot: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*core.User, error) {
	var u core.User
	err := row.Scan(&u.ID, &u.Name, &u.Surname, &u.Email, &u.Credential, &u.BirthDate, &u.Avatar)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return &u, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
