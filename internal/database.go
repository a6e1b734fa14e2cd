package internal

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// schema is applied idempotently on every open. The unique index on
// external_id is the authority for "already seen".
var schema = []string{
	`CREATE TABLE IF NOT EXISTS sitrep_items (
		id           INTEGER PRIMARY KEY AUTOINCREMENT,
		source_kind  TEXT    NOT NULL CHECK (source_kind IN ('code_host', 'relay_network')),
		external_id  TEXT    NOT NULL CHECK (external_id <> ''),
		title        TEXT    NOT NULL CHECK (title <> ''),
		body         TEXT    NOT NULL DEFAULT '',
		url          TEXT    NOT NULL CHECK (url <> ''),
		published_at INTEGER NOT NULL,
		metadata     TEXT    NOT NULL DEFAULT '{}',
		created_at   INTEGER NOT NULL,
		updated_at   INTEGER NOT NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_sitrep_items_external_id ON sitrep_items (external_id)`,
	`CREATE INDEX IF NOT EXISTS idx_sitrep_items_source_kind ON sitrep_items (source_kind)`,
	`CREATE INDEX IF NOT EXISTS idx_sitrep_items_published_at ON sitrep_items (published_at)`,
}

// OpenDatabase opens (creating if needed) the SQLite database at path and
// applies the schema
func OpenDatabase(path string) (*sql.DB, error) {
	dsn := path
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		dsn += "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// one connection keeps :memory: databases coherent
	db.SetMaxOpenConns(1)

	// Test connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}

	if err := Migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

// OpenDatabaseReadOnly opens an existing database without creating or migrating it
func OpenDatabaseReadOnly(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", "file:"+path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}

	return db, nil
}

// Migrate applies the item schema
func Migrate(db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return &StoreError{Op: "migrate", Err: err}
		}
	}
	return nil
}
