// Package postgres is the PostgreSQL store driver, using pgx through
// database/sql and goose migrations.
package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/aussiebroadwan/taskflow/internal/taskflow/store/drivers/postgres/migrations"
	"github.com/aussiebroadwan/taskflow/internal/taskflow/store/drivers/sqlstore"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

type Store struct {
	*sqlstore.Store
}

func NewStore(dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}
	return New(db), nil
}

// New wraps an existing pool.
func New(db *sql.DB) *Store {
	return &Store{Store: sqlstore.New(db, sqlstore.Postgres)}
}

// gooseUp is swapped out in tests.
var gooseUp = func(ctx context.Context, db *sql.DB, dir string) error {
	return goose.UpContext(ctx, db, dir)
}

// ApplyMigrations runs the embedded goose migrations.
func (s *Store) ApplyMigrations(ctx context.Context) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}

	if err := gooseUp(ctx, s.DB(), "."); err != nil {
		return fmt.Errorf("migration error: %w", err)
	}
	return nil
}
