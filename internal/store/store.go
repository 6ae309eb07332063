// Package store persists post records, scheduled posts and analytics
// snapshots in a local SQLite database.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

const (
	// DefaultPingTimeout is the default timeout for pinging the database
	DefaultPingTimeout = 5 * time.Second
)

// schema is applied on every open; all statements are idempotent.
const schema = `
CREATE TABLE IF NOT EXISTS posts (
	id TEXT PRIMARY KEY,
	urn TEXT NOT NULL DEFAULT '',
	content TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMP NULL,
	likes INTEGER NOT NULL DEFAULT 0,
	comments INTEGER NOT NULL DEFAULT 0,
	shares INTEGER NOT NULL DEFAULT 0,
	views INTEGER NOT NULL DEFAULT 0,
	saves INTEGER NOT NULL DEFAULT 0,
	sends INTEGER NOT NULL DEFAULT 0,
	link_clicks INTEGER NOT NULL DEFAULT 0,
	media TEXT NOT NULL DEFAULT '[]',
	url TEXT NOT NULL DEFAULT '',
	source TEXT NOT NULL DEFAULT '',
	extracted_at TIMESTAMP NOT NULL,
	position INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS scheduled_posts (
	id TEXT PRIMARY KEY,
	content TEXT NOT NULL,
	media TEXT NOT NULL DEFAULT '[]',
	scheduled_at TIMESTAMP NOT NULL,
	status TEXT NOT NULL DEFAULT 'scheduled',
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL,
	first_comment TEXT NOT NULL DEFAULT '',
	last_error TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_scheduled_posts_due
	ON scheduled_posts (status, scheduled_at);

CREATE TABLE IF NOT EXISTS analytics_snapshots (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	total_impressions INTEGER NOT NULL DEFAULT 0,
	total_interactions INTEGER NOT NULL DEFAULT 0,
	total_followers INTEGER NOT NULL DEFAULT 0,
	connections INTEGER NOT NULL DEFAULT 0,
	profile_views INTEGER NOT NULL DEFAULT 0,
	unique_viewers INTEGER NOT NULL DEFAULT 0,
	new_followers INTEGER NOT NULL DEFAULT 0,
	fetched_at TIMESTAMP NOT NULL
);
`

// Store is the SQLite-backed repository for everything the harvester keeps.
type Store struct {
	db *sqlx.DB
}

// Open connects to the SQLite database at path, creating it and its schema
// as needed. Use ":memory:" for an ephemeral database.
func Open(path string) (*Store, error) {
	db, err := sqlx.Connect("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite serializes writers; a second connection would only add
	// SQLITE_BUSY errors.
	db.SetMaxOpenConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), DefaultPingTimeout)
	defer cancel()
	if pingErr := db.PingContext(ctx); pingErr != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", pingErr)
	}

	if _, execErr := db.ExecContext(ctx, schema); execErr != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", execErr)
	}

	return &Store{db: db}, nil
}

// Close releases the underlying database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
