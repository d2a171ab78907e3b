// Package sqlstore implements the store repositories on database/sql. The
// sqlite and postgres drivers share these queries and differ only in their
// Dialect, connection setup and migrations.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/aussiebroadwan/taskflow/internal/taskflow/store"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type Dialect int

const (
	SQLite Dialect = iota
	Postgres
)

// Rebind rewrites ? placeholders into the dialect's form. Queries in this
// package never contain a literal question mark.
func (d Dialect) Rebind(query string) string {
	if d != Postgres {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 16)

	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (d Dialect) isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if d == Postgres {
		var pgErr *pgconn.PgError
		return errors.As(err, &pgErr) && pgErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// queries binds a DBTX to a dialect; every repository embeds one.
type queries struct {
	db      DBTX
	dialect Dialect
}

func (q queries) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	res, err := q.db.ExecContext(ctx, q.dialect.Rebind(query), args...)
	if q.dialect.isUniqueViolation(err) {
		return nil, store.ErrAlreadyExists
	}
	return res, err
}

func (q queries) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return q.db.QueryContext(ctx, q.dialect.Rebind(query), args...)
}

func (q queries) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return q.db.QueryRowContext(ctx, q.dialect.Rebind(query), args...)
}

// execOne runs a statement that must touch exactly one row.
func (q queries) execOne(ctx context.Context, query string, args ...any) error {
	res, err := q.exec(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (q queries) execCount(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := q.exec(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (q queries) count(ctx context.Context, query string, args ...any) (int, error) {
	var n int
	if err := q.queryRow(ctx, query, args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// Store is the shared root store. Drivers embed it and add ApplyMigrations.
type Store struct {
	db      *sql.DB
	dialect Dialect
	q       queries
}

func New(db *sql.DB, dialect Dialect) *Store {
	return &Store{db: db, dialect: dialect, q: queries{db: db, dialect: dialect}}
}

// DB exposes the pool for migration tooling.
func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) Close() error { return s.db.Close() }

// Ping verifies the database connection is still alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Tx starts a read/write transaction and returns a Tx-scoped Store.
func (s *Store) Tx(ctx context.Context) (store.Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &txStore{tx: tx, q: queries{db: tx, dialect: s.dialect}}, nil
}

// WithTx executes fn within a transaction, automatically handling commit/rollback.
func (s *Store) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	tx, err := s.Tx(ctx)
	if err != nil {
		return err
	}

	// Rollback after Commit is a harmless ErrTxDone.
	defer func() {
		_ = tx.Rollback()
	}()

	if err := fn(tx); err != nil {
		return err
	}

	return tx.Commit()
}

func (s *Store) Users() store.Users                   { return &usersRepo{s.q} }
func (s *Store) Categories() store.Categories         { return &categoriesRepo{s.q} }
func (s *Store) Tasks() store.Tasks                   { return &tasksRepo{s.q} }
func (s *Store) SubTasks() store.SubTasks             { return &subTasksRepo{s.q} }
func (s *Store) LoginAttempts() store.LoginAttempts   { return &loginAttemptsRepo{s.q} }
func (s *Store) RememberTokens() store.RememberTokens { return &rememberTokensRepo{s.q} }
func (s *Store) PasswordResets() store.PasswordResets { return &passwordResetsRepo{s.q} }
func (s *Store) Sessions() store.Sessions             { return &sessionsRepo{s.q} }

type txStore struct {
	tx *sql.Tx
	q  queries
}

func (t *txStore) Commit() error   { return t.tx.Commit() }
func (t *txStore) Rollback() error { return t.tx.Rollback() }

// Close is a no-op; the caller commits or rolls back and the pool stays open.
func (t *txStore) Close() error { return nil }

func (t *txStore) Ping(context.Context) error { return nil }

func (t *txStore) Tx(context.Context) (store.Tx, error) {
	return nil, sql.ErrTxDone
}

func (t *txStore) WithTx(context.Context, func(tx store.Tx) error) error {
	return sql.ErrTxDone
}

// ApplyMigrations is a no-op; migrations run before any transaction.
func (t *txStore) ApplyMigrations(context.Context) error { return nil }

func (t *txStore) Users() store.Users                   { return &usersRepo{t.q} }
func (t *txStore) Categories() store.Categories         { return &categoriesRepo{t.q} }
func (t *txStore) Tasks() store.Tasks                   { return &tasksRepo{t.q} }
func (t *txStore) SubTasks() store.SubTasks             { return &subTasksRepo{t.q} }
func (t *txStore) LoginAttempts() store.LoginAttempts   { return &loginAttemptsRepo{t.q} }
func (t *txStore) RememberTokens() store.RememberTokens { return &rememberTokensRepo{t.q} }
func (t *txStore) PasswordResets() store.PasswordResets { return &passwordResetsRepo{t.q} }
func (t *txStore) Sessions() store.Sessions             { return &sessionsRepo{t.q} }

type rowScanner interface {
	Scan(dest ...any) error
}

func mapNotFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	return err
}

func mapNullString(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}

func mapStringNull(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func mapNullStringPtr(ns sql.NullString) *string {
	if ns.Valid {
		v := ns.String
		return &v
	}
	return nil
}

func mapOptionalString(s *string) sql.NullString {
	if s == nil || *s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func mapNullTimePtr(nt sql.NullTime) *time.Time {
	if nt.Valid {
		v := nt.Time.UTC()
		return &v
	}
	return nil
}

func mapOptionalTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}
