package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"time"

	_ "modernc.org/sqlite"
)

// schemaVersion is stored in SQLite's user_version pragma.
// Increment this whenever the schema changes.
const schemaVersion = 1

// sqliteBusyTimeout is the time SQLite waits when the database is locked.
const sqliteBusyTimeout = 10000 // milliseconds

// openSQLite opens the database with pragmas applied on every connection.
func openSQLite(ctx context.Context, path string) (*sql.DB, error) {
	if path == "" {
		return nil, errors.New("open sqlite: path is empty")
	}

	q := url.Values{}
	q.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", sqliteBusyTimeout))
	q.Add("_pragma", "journal_mode(WAL)")
	q.Add("_pragma", "synchronous(FULL)")
	q.Add("_pragma", "foreign_keys(1)")
	q.Add("_pragma", "temp_store(MEMORY)")

	db, err := sql.Open("sqlite", "file:"+path+"?"+q.Encode())
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// Single writer per device: every caller funnels through one connection.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	return db, nil
}

func userVersion(ctx context.Context, db *sql.DB) (int, error) {
	var version int
	if err := db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("read user_version: %w", err)
	}
	return version, nil
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS items (
	id                TEXT PRIMARY KEY,
	kind              TEXT NOT NULL,
	text              TEXT NOT NULL,
	created_at        INTEGER NOT NULL,
	bookmarked        INTEGER NOT NULL DEFAULT 0,
	bookmarked_at     INTEGER NOT NULL DEFAULT 0,
	review_stage      INTEGER NOT NULL DEFAULT 0,
	interaction_score INTEGER NOT NULL DEFAULT 0,
	updated_at        INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS records (
	id               TEXT PRIMARY KEY,
	item_id          TEXT NOT NULL REFERENCES items(id) ON DELETE CASCADE,
	item_kind        TEXT NOT NULL,
	content_snapshot TEXT NOT NULL,
	scheduled_at     INTEGER NOT NULL,
	status           TEXT NOT NULL,
	created_at       INTEGER NOT NULL,
	label            TEXT NOT NULL,
	claimed_at       INTEGER NOT NULL DEFAULT 0,
	settled_at       INTEGER NOT NULL DEFAULT 0,
	dismissed_at     INTEGER NOT NULL DEFAULT 0
);

CREATE UNIQUE INDEX IF NOT EXISTS records_item_scheduled ON records(item_id, scheduled_at);
CREATE INDEX IF NOT EXISTS records_status_scheduled ON records(status, scheduled_at);

CREATE TABLE IF NOT EXISTS relations (
	a          TEXT NOT NULL REFERENCES items(id) ON DELETE CASCADE,
	b          TEXT NOT NULL REFERENCES items(id) ON DELETE CASCADE,
	created_at INTEGER NOT NULL,
	PRIMARY KEY (a, b)
);
`

// migrate creates the schema in one transaction and stamps the version.
func migrate(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("migrate: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("migrate: create schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", schemaVersion)); err != nil {
		return fmt.Errorf("migrate: set user_version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("migrate: commit: %w", err)
	}
	return nil
}

// Timestamps are stored as unix milliseconds; zero means unset.
func toMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}

// Normalize truncates t to the precision the store keeps.
func Normalize(t time.Time) time.Time {
	return fromMillis(toMillis(t))
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
