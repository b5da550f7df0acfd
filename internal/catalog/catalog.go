package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "modernc.org/sqlite"

	"github.com/yomiyougu/core/internal/yomerr"
)

// Store wraps the catalog's SQLite connection pool. Every other package
// reaches persistence exclusively through Store's exported methods.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens (creating if absent) the SQLite database at path, applies
// pending migrations, and configures it per the concurrency requirements:
// WAL journaling, a busy timeout of at least 10s, foreign keys on, and a
// pool sized >1 so a sync transaction can coexist with UI reads.
func Open(ctx context.Context, path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	dsn := fmt.Sprintf(
		"file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(10000)&_pragma=foreign_keys(ON)&_pragma=synchronous(NORMAL)",
		path,
	)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, yomerr.Wrap(yomerr.CodeDatabaseConnFailed, err, "opening catalog database at %s", path)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, yomerr.Wrap(yomerr.CodeDatabaseConnFailed, err, "connecting to catalog database at %s", path)
	}

	if err := runMigrations(ctx, db, logger); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db, logger: logger}, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// WithTx runs fn inside one transaction. Any error returned by fn, or any
// panic, rolls the transaction back; a nil return commits. Every merge
// engine write happens inside a single WithTx call so a failed sync
// leaves the local store untouched.
func (s *Store) WithTx(ctx context.Context, fn func(tx *sql.Tx) error) (err error) {
	tx, beginErr := s.db.BeginTx(ctx, nil)
	if beginErr != nil {
		return yomerr.Wrap(yomerr.CodeDatabaseQueryFailed, beginErr, "beginning transaction")
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err = fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err = tx.Commit(); err != nil {
		return yomerr.Wrap(yomerr.CodeDatabaseQueryFailed, err, "committing transaction")
	}

	return nil
}

// querier is satisfied by both *sql.DB and *sql.Tx, letting every CRUD
// method accept either a bare connection or a transaction handed in by
// WithTx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Store) q(tx *sql.Tx) querier {
	if tx != nil {
		return tx
	}
	return s.db
}
