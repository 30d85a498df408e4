package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
)

// EnsureDatabase opens dsn with database/sql and checks that the server answers
// and that the role may create tables in the current schema, so migration
// failures surface with a clear message.
func EnsureDatabase(ctx context.Context, dsn string) error {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return fmt.Errorf("open: %w", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	var canCreate bool
	err = db.QueryRowContext(ctx,
		`SELECT has_schema_privilege(current_schema(), 'CREATE')`,
	).Scan(&canCreate)
	if err != nil {
		return fmt.Errorf("check schema privilege: %w", err)
	}
	if !canCreate {
		return fmt.Errorf("database user lacks CREATE on the current schema; " +
			"ask your database admin to grant it or run migrations with a privileged role")
	}
	return nil
}

// RunMigrations runs SQL migrations from the given directory (e.g. "file://migrations") against the DSN.
func RunMigrations(dsn string, migrationsPath string) error {
	m, err := migrate.New(migrationsPath, dsn)
	if err != nil {
		return fmt.Errorf("migrate.New: %w", err)
	}
	defer m.Close()
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate.Up: %w", err)
	}
	return nil
}
