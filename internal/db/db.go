// Package db provides SQLite persistence for lotline's offline snapshot.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// DB wraps the sqlite handle.
type DB struct {
	conn *sql.DB
}

const defaultBusyTimeoutMs = 5000

// Open opens (creating if needed) the snapshot database at path.
// busyTimeoutMs <= 0 falls back to the default.
func Open(path string, busyTimeoutMs int) (*DB, error) {
	if path == "" {
		return nil, fmt.Errorf("database path required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create database dir: %w", err)
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// A single client process; one writer is plenty.
	conn.SetMaxOpenConns(1)

	if busyTimeoutMs <= 0 {
		busyTimeoutMs = defaultBusyTimeoutMs
	}

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		fmt.Sprintf("PRAGMA busy_timeout = %d", busyTimeoutMs),
		"PRAGMA foreign_keys = ON",
	} {
		if _, err := conn.Exec(pragma); err != nil {
			conn.Close()
			return nil, fmt.Errorf("apply %q: %w", pragma, err)
		}
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, err
	}
	return db, nil
}

// Close closes the underlying handle.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS conversations (
			id              TEXT PRIMARY KEY,
			buyer_id        TEXT NOT NULL,
			buyer_name      TEXT NOT NULL DEFAULT '',
			seller_id       TEXT NOT NULL,
			seller_name     TEXT NOT NULL DEFAULT '',
			vehicle_id      TEXT NOT NULL DEFAULT '',
			subject         TEXT NOT NULL DEFAULT '',
			last_content    TEXT,
			last_sender_id  TEXT,
			last_created_at TEXT,
			unread_count    INTEGER NOT NULL DEFAULT 0,
			archived        INTEGER NOT NULL DEFAULT 0,
			created_at      TEXT NOT NULL,
			updated_at      TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS messages (
			id              TEXT PRIMARY KEY,
			conversation_id TEXT NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
			sender_id       TEXT NOT NULL,
			sender_name     TEXT NOT NULL DEFAULT '',
			content         TEXT NOT NULL DEFAULT '',
			attachment_name TEXT,
			attachment_url  TEXT,
			attachment_size INTEGER,
			is_read         INTEGER NOT NULL DEFAULT 0,
			read_at         TEXT,
			is_system       INTEGER NOT NULL DEFAULT 0,
			created_at      TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_messages_conversation
			ON messages(conversation_id, created_at, id);
	`)
	if err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}
	return nil
}

// Transaction runs fn inside a transaction, rolling back on error.
func (db *DB) Transaction(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}
