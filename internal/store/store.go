// Package store persists users, articles and bookmarks in SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Observer receives the duration of every store operation.
type Observer interface {
	ObserveQuery(ctx context.Context, op string, d time.Duration)
}

type Store struct {
	db       *sql.DB
	now      func() time.Time
	observer Observer
}

type Option func(*Store)

// WithClock overrides the time source used for created/updated timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func WithObserver(o Observer) Option {
	return func(s *Store) { s.observer = o }
}

// Open opens (creating if needed) the database at path. Foreign keys are
// enforced on every pooled connection and write transactions take the
// database lock up front.
func Open(path string, opts ...Option) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating database dir: %w", err)
	}

	dsn := "file:" + path +
		"?_pragma=foreign_keys(1)" +
		"&_pragma=busy_timeout(5000)" +
		"&_pragma=journal_mode(WAL)" +
		"&_txlock=immediate"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return classify(err)
	}
	return nil
}

func (s *Store) timestamp() time.Time {
	return s.now().UTC()
}

func (s *Store) observe(ctx context.Context, op string, started time.Time) {
	if s.observer != nil {
		s.observer.ObserveQuery(ctx, op, time.Since(started))
	}
}

// withTx runs fn inside a transaction, committing only if fn succeeds.
func (s *Store) withTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return classify(err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return classify(err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
