package store

import (
	"context"
	"database/sql"
	"fmt"
)

// migrations are applied in order; PRAGMA user_version records how many
// have run.
var migrations = []string{
	`
	CREATE TABLE IF NOT EXISTS users (
		id            INTEGER PRIMARY KEY AUTOINCREMENT,
		email         TEXT NOT NULL UNIQUE,
		name          TEXT,
		password_hash TEXT NOT NULL,
		created_at    DATETIME NOT NULL,
		updated_at    DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS articles (
		id           INTEGER PRIMARY KEY AUTOINCREMENT,
		title        TEXT NOT NULL,
		content      TEXT NOT NULL,
		summary      TEXT,
		url          TEXT NOT NULL UNIQUE,
		published_at DATETIME NOT NULL,
		source       TEXT NOT NULL,
		category     TEXT,
		is_processed BOOLEAN NOT NULL DEFAULT 0,
		created_at   DATETIME NOT NULL,
		updated_at   DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_articles_published ON articles(published_at DESC);

	CREATE TABLE IF NOT EXISTS bookmarks (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id    INTEGER NOT NULL REFERENCES users(id),
		article_id INTEGER NOT NULL REFERENCES articles(id) ON DELETE CASCADE,
		created_at DATETIME NOT NULL,
		UNIQUE (user_id, article_id)
	);
	CREATE INDEX IF NOT EXISTS idx_bookmarks_user ON bookmarks(user_id);
	`,
}

// Migrate brings the schema up to date. It is safe to call on every start.
func (s *Store) Migrate(ctx context.Context) error {
	var version int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("reading schema version: %w", classify(err))
	}

	for i := version; i < len(migrations); i++ {
		err := s.withTx(ctx, func(tx *sql.Tx) error {
			if _, err := tx.ExecContext(ctx, migrations[i]); err != nil {
				return classify(err)
			}
			// PRAGMA does not accept bound parameters.
			if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", i+1)); err != nil {
				return classify(err)
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("applying migration %d: %w", i+1, err)
		}
	}
	return nil
}

// SchemaVersion reports the number of applied migrations.
func (s *Store) SchemaVersion(ctx context.Context) (int, error) {
	var version int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return 0, classify(err)
	}
	return version, nil
}
