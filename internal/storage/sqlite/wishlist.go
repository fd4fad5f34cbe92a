package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"finanzapp/internal/core"
)

func (s *Store) WishlistByID(ctx context.Context, id int64) (*core.Wishlist, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id_wishlist, id_usuario, Total FROM Wishlist WHERE id_wishlist = ?`, id)
	return scanWishlist(row)
}

func (s *Store) WishlistByUser(ctx context.Context, userID int64) (*core.Wishlist, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id_wishlist, id_usuario, Total FROM Wishlist WHERE id_usuario = ? LIMIT 1`, userID)
	return scanWishlist(row)
}

// CreateWishlist inserts the user's wishlist row. The UNIQUE constraint
// on id_usuario enforces one wishlist per user at the schema level.
func (s *Store) CreateWishlist(ctx context.Context, userID int64) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO Wishlist (id_usuario, Total) VALUES (?, 0)`, userID)
	if err != nil {
		return 0, fmt.Errorf("create wishlist: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("create wishlist id: %w", err)
	}
	return id, nil
}

func (s *Store) SetWishlistTotal(ctx context.Context, wishlistID int64, total core.Money) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE Wishlist SET Total = ? WHERE id_wishlist = ?`, total.Cents, wishlistID)
	if err != nil {
		return fmt.Errorf("set wishlist total: %w", err)
	}
	return nil
}

func (s *Store) SumGoalTargets(ctx context.Context, wishlistID int64) (core.Money, error) {
	var cents int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(Monto), 0) FROM WishListDetalle WHERE id_wishlist = ?`,
		wishlistID,
	).Scan(&cents)
	if err != nil {
		return core.Money{}, fmt.Errorf("sum goal targets: %w", err)
	}
	return core.Money{Cents: cents}, nil
}

func (s *Store) ListGoals(ctx context.Context, wishlistID int64) ([]core.Goal, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id_wishlistDetalle, id_wishlist, Nombre, Monto, COALESCE(FechaLimite,''),
		        COALESCE(Descripcion,''), Ahorrado, Completado
		   FROM WishListDetalle
		  WHERE id_wishlist = ?
		  ORDER BY id_wishlistDetalle DESC`, wishlistID)
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	defer rows.Close()

	var out []core.Goal
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *g)
	}
	return out, rows.Err()
}

func (s *Store) GoalByID(ctx context.Context, id int64) (*core.Goal, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id_wishlistDetalle, id_wishlist, Nombre, Monto, COALESCE(FechaLimite,''),
		        COALESCE(Descripcion,''), Ahorrado, Completado
		   FROM WishListDetalle WHERE id_wishlistDetalle = ?`, id)
	g, err := scanGoal(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return g, err
}

func (s *Store) InsertGoal(ctx context.Context, g *core.Goal) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO WishListDetalle (id_wishlist, Nombre, Monto, FechaLimite, Descripcion, Ahorrado, Completado)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		g.WishlistID, g.Name, g.Target.Cents, nullable(g.Deadline.ISO()),
		nullable(g.Description), g.Saved.Cents, boolToInt(g.Completed))
	if err != nil {
		return 0, fmt.Errorf("insert goal: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert goal id: %w", err)
	}
	g.ID = id
	return id, nil
}

// UpdateGoal writes the base fields only; saved amount and completed
// flag move through UpdateGoalProgress.
func (s *Store) UpdateGoal(ctx context.Context, g *core.Goal) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE WishListDetalle
		    SET Nombre = ?, Monto = ?, FechaLimite = ?, Descripcion = ?
		  WHERE id_wishlistDetalle = ?`,
		g.Name, g.Target.Cents, nullable(g.Deadline.ISO()), nullable(g.Description), g.ID)
	if err != nil {
		return fmt.Errorf("update goal %d: %w", g.ID, err)
	}
	return nil
}

func (s *Store) UpdateGoalProgress(ctx context.Context, id int64, saved core.Money, completed bool) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE WishListDetalle SET Ahorrado = ?, Completado = ? WHERE id_wishlistDetalle = ?`,
		saved.Cents, boolToInt(completed), id)
	if err != nil {
		return fmt.Errorf("update goal progress %d: %w", id, err)
	}
	return nil
}

func (s *Store) DeleteGoal(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM WishListDetalle WHERE id_wishlistDetalle = ?`, id)
	if err != nil {
		return fmt.Errorf("delete goal %d: %w", id, err)
	}
	return nil
}

func scanWishlist(row rowScanner) (*core.Wishlist, error) {
	var w core.Wishlist
	err := row.Scan(&w.ID, &w.UserID, &w.Total.Cents)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan wishlist: %w", err)
	}
	return &w, nil
}

func scanGoal(row rowScanner) (*core.Goal, error) {
	var (
		g         core.Goal
		deadline  string
		completed int
	)
	err := row.Scan(&g.ID, &g.WishlistID, &g.Name, &g.Target.Cents,
		&deadline, &g.Description, &g.Saved.Cents, &completed)
	if err != nil {
		return nil, err
	}
	g.Completed = completed != 0
	if deadline != "" {
		d, err := core.ParseDate(deadline)
		if err == nil {
			g.Deadline = d
		}
	}
	return &g, nil
}
