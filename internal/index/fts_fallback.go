//go:build !sqlite_fts5

package index

import (
	"database/sql"
	"fmt"

	"github.com/halvard/skriva/internal/entry"
)

func initFTS(_ *sql.DB) error {
	// FTS5 not compiled in; search uses a LIKE scan over the plain-text
	// body column instead.
	return nil
}

func ftsUpsert(_ *sql.Tx, _, _, _ string, _ []string) error {
	// Body is already stored in the entries table; nothing extra to do.
	return nil
}

func ftsDelete(_ *sql.Tx, _ string) {}

// Search performs a LIKE-based substring search over title, body, and
// tags, ordered by recency.
func (db *DB) Search(query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}
	like := "%" + query + "%"
	rows, err := db.conn.Query(`
		SELECT date, title, substr(body, 1, 200)
		FROM entries
		WHERE title LIKE ? OR body LIKE ? OR tags LIKE ?
		ORDER BY modified_at DESC
		LIMIT ?
	`, like, like, like, limit)
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
