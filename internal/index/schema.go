// Package index provides the SQLite-backed content index: a queryable
// mirror of entry metadata. The index is strictly derived from the entry
// files; any divergence is repaired by a vault reconcile pass, never by
// trusting the index over the file.
package index

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const coreSchemaSQL = `
CREATE TABLE IF NOT EXISTS entries (
	date           TEXT PRIMARY KEY,
	file_path      TEXT NOT NULL,
	title          TEXT NOT NULL DEFAULT '',
	word_count     INTEGER NOT NULL DEFAULT 0,
	created_at     DATETIME,
	modified_at    DATETIME,
	tags           TEXT NOT NULL DEFAULT '[]',
	mood_rating    INTEGER,
	has_reflection INTEGER NOT NULL DEFAULT 0,
	content_hash   TEXT NOT NULL DEFAULT '',
	version        INTEGER NOT NULL DEFAULT 1,
	body           TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_entries_modified ON entries(modified_at);
`

// DB wraps a sql.DB with index-specific operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("index: open db: %w", err)
	}
	// The index is a single-writer store; serializing all access through
	// one connection avoids SQLITE_BUSY between writer goroutines.
	conn.SetMaxOpenConns(1)
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: ping: %w", err)
	}
	if _, err := conn.Exec(coreSchemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: apply core schema: %w", err)
	}
	if err := initFTS(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: apply fts schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}
