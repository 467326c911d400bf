// Package store provides the SQLite-backed persistence for memories and reminders.
package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// reminders.memory_id carries the idempotency guard: at most one reminder per
// memory, enforced by SQLite so concurrent derivations across processes cannot
// both insert. Standalone reminders keep memory_id NULL, which UNIQUE ignores.
const schemaSQL = `
CREATE TABLE IF NOT EXISTS memories (
	id              TEXT PRIMARY KEY,
	owner_id        TEXT NOT NULL,
	full_text       TEXT NOT NULL,
	summary         TEXT NOT NULL,
	category        TEXT NOT NULL DEFAULT 'note',
	date            DATETIME,
	reminder_needed INTEGER NOT NULL DEFAULT 0,
	audio_ref       TEXT NOT NULL DEFAULT '',
	is_favorite     INTEGER NOT NULL DEFAULT 0,
	created_at      DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_memories_owner_created ON memories(owner_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_memories_category ON memories(category);

CREATE TABLE IF NOT EXISTS reminders (
	id           TEXT PRIMARY KEY,
	owner_id     TEXT NOT NULL,
	memory_id    TEXT REFERENCES memories(id) ON DELETE CASCADE,
	description  TEXT NOT NULL,
	due_date     DATETIME NOT NULL,
	is_completed INTEGER NOT NULL DEFAULT 0,
	created_at   DATETIME NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_reminders_memory ON reminders(memory_id);
CREATE INDEX IF NOT EXISTS idx_reminders_owner_due ON reminders(owner_id, is_completed, due_date);
`

// DB wraps a sql.DB with memory and reminder operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("store: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: apply schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping checks the database is reachable.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}
