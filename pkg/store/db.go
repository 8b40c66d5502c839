// Package store persists companies and their statistics in SQLite and
// serves KPI aggregates from them.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// OpenDB opens a SQLite database at the given path.
// If path is ":memory:", uses an in-memory database.
// Sets WAL mode and enables foreign keys.
// Runs migrations automatically.
func OpenDB(path string) (*sql.DB, error) {
	if path != MemoryPath {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("creating db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// Pragmas are per connection and every connection to :memory: is a
	// separate database, so the pool is kept to one.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	if err := Migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return db, nil
}

// Migrate applies the schema. It is safe to run repeatedly.
func Migrate(db *sql.DB) error {
	for i, stmt := range migrations {
		if _, err := db.Exec(stmt); err != nil {
			if strings.Contains(err.Error(), "duplicate column name") {
				continue
			}
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return nil
}

// parent_id carries no foreign key: orphaned references are valid input and
// are resolved by the tree builder.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS companies (
		id                INTEGER PRIMARY KEY,
		name              TEXT NOT NULL,
		relationship_type TEXT NOT NULL DEFAULT '',
		role              TEXT NOT NULL DEFAULT '',
		parent_id         INTEGER,
		event_count       INTEGER NOT NULL DEFAULT 0,
		form_count        INTEGER NOT NULL DEFAULT 0,
		is_primary        INTEGER NOT NULL DEFAULT 0,
		position          INTEGER NOT NULL DEFAULT 0
	)`,

	`CREATE INDEX IF NOT EXISTS idx_companies_parent ON companies(parent_id)`,

	`CREATE TABLE IF NOT EXISTS company_stats (
		company_id    INTEGER PRIMARY KEY REFERENCES companies(id) ON DELETE CASCADE,
		total_forms   INTEGER NOT NULL DEFAULT 0 CHECK(total_forms >= 0),
		total_leads   INTEGER NOT NULL DEFAULT 0 CHECK(total_leads >= 0),
		active_events INTEGER NOT NULL DEFAULT 0 CHECK(active_events >= 0),
		updated_at    TEXT NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS active_switches (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		company_id  INTEGER NOT NULL,
		switched_at TEXT NOT NULL
	)`,

	`CREATE INDEX IF NOT EXISTS idx_active_switches_time ON active_switches(switched_at)`,
}
