//go:build sqlite_fts5

package index

import (
	"database/sql"
	"fmt"

	"github.com/halvard/skriva/internal/entry"
	"strings"
)

func initFTS(conn *sql.DB) error {
	_, err := conn.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS entries_fts USING fts5(
			date UNINDEXED,
			title,
			body,
			tags,
			tokenize = 'unicode61 remove_diacritics 2'
		);
	`)
	return err
}

func ftsUpsert(tx *sql.Tx, date, title, body string, tags []string) error {
	_, _ = tx.Exec(`DELETE FROM entries_fts WHERE date = ?`, date)
	_, err := tx.Exec(`INSERT INTO entries_fts (date, title, body, tags) VALUES (?, ?, ?, ?)`,
		date, title, body, strings.Join(tags, " "))
	if err != nil {
		return fmt.Errorf("index: upsert fts: %w", err)
	}
	return nil
}

func ftsDelete(tx *sql.Tx, date string) {
	_, _ = tx.Exec(`DELETE FROM entries_fts WHERE date = ?`, date)
}

// Search performs an FTS5 full-text search ranked by relevance.
func (db *DB) Search(query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.conn.Query(`
		SELECT date,
		       title,
		       snippet(entries_fts, 2, '', '', '...', 32)
		FROM entries_fts
		WHERE entries_fts MATCH ?
		ORDER BY rank
		LIMIT ?
	`, query, limit)
	if err != nil {
		return nil, fmt.Errorf("index: search: %w", err)
	}
	defer rows.Close()

	var out []SearchResult
	for rows.Next() {
		var r SearchResult
		var dateStr string
		if err := rows.Scan(&dateStr, &r.Title, &r.Snippet); err != nil {
			return nil, err
		}
		d, err := entry.ParseDate(dateStr)
		if err != nil {
			continue
		}
		r.Date = d
		out = append(out, r)
	}
	return out, rows.Err()
}
