// Package sqlite is the default store driver, backed by modernc.org/sqlite.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/aussiebroadwan/taskflow/internal/taskflow/store/drivers/sqlstore"
	_ "modernc.org/sqlite"
)

type Store struct {
	*sqlstore.Store
	dsn string
}

// DSN builds a connection string for a database file with the pragmas the
// store relies on.
func DSN(path string) string {
	if path == ":memory:" {
		return path
	}
	return fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)", path)
}

func NewStore(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	// One writer at a time; this also keeps an in-memory database on a
	// single connection.
	db.SetMaxOpenConns(1)

	// Enforce FKs
	if _, err := db.ExecContext(context.Background(), `PRAGMA foreign_keys = ON;`); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{
		Store: sqlstore.New(db, sqlstore.SQLite),
		dsn:   dsn,
	}, nil
}
