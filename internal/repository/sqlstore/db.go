// Package sqlstore implements the domain repositories on bun, over SQLite
// (modernc, the default) or Postgres (pgdriver).
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/pgdriver"
	_ "modernc.org/sqlite"

	"github.com/msomdec/recipe-box/internal/domain"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config selects and locates the database.
type Config struct {
	Driver string
	Path   string
	DSN    string
}

// DB owns the connection pool and hands out repositories.
type DB struct {
	bun    *bun.DB
	driver string
}

var _ domain.Database = (*DB)(nil)

// Open connects to the configured database and verifies the connection.
// SQLite runs in WAL mode with foreign keys enforced on a single connection.
func Open(ctx context.Context, cfg Config) (*DB, error) {
	var (
		bdb *bun.DB
		err error
	)
	switch cfg.Driver {
	case DriverSQLite, "":
		cfg.Driver = DriverSQLite
		bdb, err = openSQLite(cfg.Path)
	case DriverPostgres:
		bdb = openPostgres(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}

	if err := bdb.PingContext(ctx); err != nil {
		bdb.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	bdb.RegisterModel((*favoriteModel)(nil))
	return &DB{bun: bdb, driver: cfg.Driver}, nil
}

func openSQLite(path string) (*bun.DB, error) {
	if path == "" {
		return nil, errors.New("sqlite path is required")
	}
	q := url.Values{}
	q.Add("_pragma", "foreign_keys(1)")
	q.Add("_pragma", "journal_mode(WAL)")
	q.Add("_pragma", "busy_timeout(5000)")

	sqldb, err := sql.Open("sqlite", "file:"+path+"?"+q.Encode())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	sqldb.SetMaxOpenConns(1)
	return bun.NewDB(sqldb, sqlitedialect.New()), nil
}

func openPostgres(dsn string) *bun.DB {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	return bun.NewDB(sqldb, pgdialect.New())
}

// Driver returns DriverSQLite or DriverPostgres.
func (db *DB) Driver() string { return db.driver }

func (db *DB) Ping(ctx context.Context) error {
	return db.bun.PingContext(ctx)
}

func (db *DB) Close() error {
	return db.bun.Close()
}

// Users returns the user repository.
func (db *DB) Users() *UserRepository {
	return NewUserRepository(db)
}

// Recipes returns the recipe repository.
func (db *DB) Recipes() *RecipeRepository {
	return NewRecipeRepository(db)
}

// Migrate creates the tables and indexes that do not exist yet.
func (db *DB) Migrate(ctx context.Context) error {
	models := []any{
		(*userModel)(nil),
		(*recipeModel)(nil),
	}
	for _, m := range models {
		if _, err := db.bun.NewCreateTable().Model(m).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}

	_, err := db.bun.NewCreateTable().
		Model((*favoriteModel)(nil)).
		IfNotExists().
		ForeignKey(`("user_id") REFERENCES "users" ("id") ON DELETE CASCADE`).
		ForeignKey(`("recipe_id") REFERENCES "recipes" ("id") ON DELETE CASCADE`).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("create table user_favorites: %w", err)
	}

	indexes := []struct {
		name   string
		model  any
		column string
	}{
		{"idx_user_favorites_recipe_id", (*favoriteModel)(nil), "recipe_id"},
		{"idx_users_role", (*userModel)(nil), "role"},
		{"idx_recipes_country", (*recipeModel)(nil), "country"},
	}
	for _, idx := range indexes {
		_, err := db.bun.NewCreateIndex().
			Model(idx.model).
			Index(idx.name).
			Column(idx.column).
			IfNotExists().
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("create index %s: %w", idx.name, err)
		}
	}
	return nil
}

// Reset deletes every row and restarts the id sequences. It exists for
// tests and local resets.
func (db *DB) Reset(ctx context.Context) error {
	if db.driver == DriverPostgres {
		_, err := db.bun.ExecContext(ctx, `TRUNCATE TABLE user_favorites, recipes, users RESTART IDENTITY CASCADE`)
		if err != nil {
			return fmt.Errorf("truncate tables: %w", err)
		}
		return nil
	}

	return db.bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		for _, m := range []any{(*favoriteModel)(nil), (*recipeModel)(nil), (*userModel)(nil)} {
			if _, err := tx.NewDelete().Model(m).Where("1 = 1").Exec(ctx); err != nil {
				return fmt.Errorf("delete rows: %w", err)
			}
		}
		_, err := tx.ExecContext(ctx, `DELETE FROM sqlite_sequence WHERE name IN ('users', 'recipes')`)
		if err != nil && !strings.Contains(err.Error(), "no such table") {
			return fmt.Errorf("reset sequences: %w", err)
		}
		return nil
	})
}

// VacuumInto writes a consistent copy of a SQLite database to dest.
func (db *DB) VacuumInto(ctx context.Context, dest string) error {
	if db.driver != DriverSQLite {
		return fmt.Errorf("vacuum into is only supported on sqlite, not %s", db.driver)
	}
	if _, err := db.bun.ExecContext(ctx, "VACUUM INTO ?", dest); err != nil {
		return fmt.Errorf("vacuum into %s: %w", dest, err)
	}
	return nil
}

// isUniqueViolation reports whether err is a unique constraint failure on
// either backend.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var pgErr pgdriver.Error
	if errors.As(err, &pgErr) {
		return pgErr.Field('C') == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func checkAffected(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}
