// Package sqlite implements the storage ports on an embedded SQLite
// database (modernc.org/sqlite, no cgo). Base tables come from embedded
// versioned migrations; column-level drift from older database files is
// repaired at open time with additive ALTERs, falling back to a
// rebuild-and-copy when a column cannot be added in place.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"

	"finanzapp/internal/log"
	"finanzapp/internal/storage"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store implements storage.Store on a single SQLite file.
type Store struct {
	db     *sql.DB
	logger *log.Logger
}

var _ storage.Store = (*Store)(nil)

// New opens (creating if needed) the database at dbPath, runs the
// embedded migrations once and repairs legacy column drift. The handle
// is a shared connection pool; callers own its lifecycle and must Close.
func New(dbPath string, logger *log.Logger) (*Store, error) {
	if logger == nil {
		logger = log.New(log.DefaultConfig()).WithComponent(log.ComponentStorage)
	}
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}

	if err := runMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	s := &Store{db: db, logger: logger}
	if err := s.ensureSchema(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	return s, nil
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func runMigrations(dbPath string) error {
	// Separate connection so the migration driver does not interfere
	// with the main pool.
	migrateDB, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return fmt.Errorf("open migration database: %w", err)
	}
	defer migrateDB.Close()

	driver, err := migratesqlite.WithInstance(migrateDB, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("create sqlite driver: %w", err)
	}

	d, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("create iofs source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", d, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

// column describes a column the current code expects to exist.
type column struct {
	name       string
	definition string // type + constraints, must be addable via ALTER
}

// tableSchema is the shape the current code expects a table to have:
// the columns that may be missing from older files, plus the full
// CREATE statement used when the table has to be rebuilt.
type tableSchema struct {
	table     string
	columns   []column
	createSQL string
}

var schemaTables = []tableSchema{
	{
		table: "Usuario",
		columns: []column{
			{"Apellido", "TEXT NULL"},
			{"Correo", "TEXT NULL"},
			{"Contra", "TEXT NULL"},
			{"FechaNacim", "TEXT NULL"},
			{"Avatar", "TEXT NULL"},
		},
		createSQL: `CREATE TABLE %s (
			id_usuario INTEGER PRIMARY KEY AUTOINCREMENT,
			Nombre     TEXT NOT NULL,
			Apellido   TEXT NULL,
			Correo     TEXT NULL UNIQUE COLLATE NOCASE,
			Contra     TEXT NULL,
			FechaNacim TEXT NULL,
			Avatar     TEXT NULL
		)`,
	},
	{
		table: "WishListDetalle",
		columns: []column{
			{"Ahorrado", "INTEGER NOT NULL DEFAULT 0"},
			{"Completado", "INTEGER NOT NULL DEFAULT 0"},
		},
		createSQL: `CREATE TABLE %s (
			id_wishlistDetalle INTEGER PRIMARY KEY AUTOINCREMENT,
			id_wishlist        INTEGER NOT NULL REFERENCES Wishlist(id_wishlist) ON DELETE CASCADE,
			Nombre             TEXT NOT NULL,
			Monto              INTEGER NOT NULL DEFAULT 0,
			FechaLimite        TEXT NULL,
			Descripcion        TEXT NULL,
			Ahorrado           INTEGER NOT NULL DEFAULT 0,
			Completado         INTEGER NOT NULL DEFAULT 0
		)`,
	},
	{
		table: "Income",
		columns: []column{
			{"is_fixed", "INTEGER NOT NULL DEFAULT 0"},
			{"date", "TEXT NULL"},
			{"synced", "INTEGER NOT NULL DEFAULT 0"},
		},
		createSQL: `CREATE TABLE %s (
			id       INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id  INTEGER NOT NULL REFERENCES Usuario(id_usuario) ON DELETE CASCADE,
			name     TEXT NOT NULL,
			amount   INTEGER NOT NULL DEFAULT 0,
			is_fixed INTEGER NOT NULL DEFAULT 0,
			date     TEXT NULL,
			synced   INTEGER NOT NULL DEFAULT 0
		)`,
	},
	{
		table: "Expense",
		columns: []column{
			{"day", "INTEGER NOT NULL DEFAULT 1"},
			{"is_fixed", "INTEGER NOT NULL DEFAULT 0"},
			{"date", "TEXT NULL"},
			{"synced", "INTEGER NOT NULL DEFAULT 0"},
		},
		createSQL: `CREATE TABLE %s (
			id       INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id  INTEGER NOT NULL REFERENCES Usuario(id_usuario) ON DELETE CASCADE,
			name     TEXT NOT NULL,
			amount   INTEGER NOT NULL DEFAULT 0,
			day      INTEGER NOT NULL DEFAULT 1,
			is_fixed INTEGER NOT NULL DEFAULT 0,
			date     TEXT NULL,
			synced   INTEGER NOT NULL DEFAULT 0
		)`,
	},
}

// ensureSchema brings tables written by earlier releases up to the
// current column set without touching their data. Database files that
// predate a column get it added; if SQLite refuses the ALTER the table
// is rebuilt through a shadow copy.
func (s *Store) ensureSchema(ctx context.Context) error {
	for _, w := range schemaTables {
		if err := s.ensureColumns(ctx, w.table, w.columns, w.createSQL); err != nil {
			return fmt.Errorf("table %s: %w", w.table, err)
		}
	}
	return nil
}

// ensureColumns adds any missing columns additively. When an ALTER is
// rejected the whole table is rebuilt to the desired shape instead.
func (s *Store) ensureColumns(ctx context.Context, table string, cols []column, createSQL string) error {
	existing, err := s.tableColumns(ctx, table)
	if err != nil {
		return err
	}

	var missing []column
	for _, c := range cols {
		if _, ok := existing[strings.ToLower(c.name)]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) == 0 {
		return nil
	}

	for _, c := range missing {
		_, err := s.db.ExecContext(ctx, fmt.Sprintf(
			"ALTER TABLE %s ADD COLUMN %s %s", table, c.name, c.definition,
		))
		if err != nil {
			s.logger.WarnContext(ctx, "additive migration rejected, rebuilding table",
				"table", table, "column", c.name, log.FieldError, err.Error())
			return s.rebuildTable(ctx, table, createSQL)
		}
		s.logger.InfoContext(ctx, "added missing column", "table", table, "column", c.name)
	}
	return nil
}

// rebuildTable creates a shadow table with the desired shape, copies all
// rows over (absent columns become NULL or their defaults), drops the
// old table and renames the shadow into place, all in one transaction.
func (s *Store) rebuildTable(ctx context.Context, table, createSQL string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin rebuild: %w", err)
	}
	defer tx.Rollback()

	shadow := "_" + table + "_new"
	if _, err := tx.ExecContext(ctx, fmt.Sprintf(createSQL, shadow)); err != nil {
		return fmt.Errorf("create shadow table: %w", err)
	}

	oldCols, err := columnsInTx(ctx, tx, table)
	if err != nil {
		return err
	}
	newCols, err := columnsInTx(ctx, tx, shadow)
	if err != nil {
		return err
	}

	// Copy only the intersection; everything else falls back to the
	// shadow table's defaults.
	var shared []string
	for _, c := range newCols {
		if contains(oldCols, c) {
			shared = append(shared, c)
		}
	}
	if len(shared) > 0 {
		colList := strings.Join(shared, ", ")
		if _, err := tx.ExecContext(ctx, fmt.Sprintf(
			"INSERT INTO %s (%s) SELECT %s FROM %s", shadow, colList, colList, table,
		)); err != nil {
			return fmt.Errorf("copy rows: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx, "DROP TABLE "+table); err != nil {
		return fmt.Errorf("drop old table: %w", err)
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("ALTER TABLE %s RENAME TO %s", shadow, table)); err != nil {
		return fmt.Errorf("rename shadow table: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit rebuild: %w", err)
	}
	s.logger.InfoContext(ctx, "rebuilt table to current shape", "table", table)
	return nil
}

func (s *Store) tableColumns(ctx context.Context, table string) (map[string]struct{}, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT name FROM pragma_table_info(?)", table)
	if err != nil {
		return nil, fmt.Errorf("inspect columns: %w", err)
	}
	defer rows.Close()

	cols := make(map[string]struct{})
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		cols[strings.ToLower(name)] = struct{}{}
	}
	return cols, rows.Err()
}

func columnsInTx(ctx context.Context, tx *sql.Tx, table string) ([]string, error) {
	rows, err := tx.QueryContext(ctx, "SELECT name FROM pragma_table_info(?)", table)
	if err != nil {
		return nil, fmt.Errorf("inspect columns of %s: %w", table, err)
	}
	defer rows.Close()

	var cols []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		cols = append(cols, name)
	}
	return cols, rows.Err()
}

func contains(haystack []string, needle string) bool {
	for _, h := range haystack {
		if strings.EqualFold(h, needle) {
			return true
		}
	}
	return false
}
