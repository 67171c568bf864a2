package index

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/halvard/skriva/internal/entry"
)

// EntryRow mirrors the metadata of one entry file. Rows are derived, never
// authoritative.
type EntryRow struct {
	Date          entry.Date
	FilePath      string
	Title         string
	WordCount     int
	CreatedAt     time.Time
	ModifiedAt    time.Time
	Tags          []string
	MoodRating    int // 0 when unset
	HasReflection bool
	ContentHash   string
	Version       int
}

// SearchResult represents one search hit.
type SearchResult struct {
	Date    entry.Date
	Title   string
	Snippet string
}

// Stats aggregates the whole index for the statistics view.
type Stats struct {
	TotalEntries   int
	TotalWords     int
	AvgWords       float64
	FirstDate      entry.Date // zero when the vault is empty
	LastDate       entry.Date
	WithReflection int
}

// Upsert inserts or replaces a row by date, together with its FTS entry.
// plainBody is the markdown-stripped body used for full-text search.
func (db *DB) Upsert(row EntryRow, plainBody string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	tagsJSON, _ := json.Marshal(row.Tags)
	var mood any
	if row.MoodRating != 0 {
		mood = row.MoodRating
	}

	_, err = tx.Exec(`
		INSERT INTO entries (date, file_path, title, word_count, created_at, modified_at,
		                     tags, mood_rating, has_reflection, content_hash, version, body)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(date) DO UPDATE SET
			file_path      = excluded.file_path,
			title          = excluded.title,
			word_count     = excluded.word_count,
			created_at     = excluded.created_at,
			modified_at    = excluded.modified_at,
			tags           = excluded.tags,
			mood_rating    = excluded.mood_rating,
			has_reflection = excluded.has_reflection,
			content_hash   = excluded.content_hash,
			version        = excluded.version,
			body           = excluded.body
	`, row.Date.String(), row.FilePath, row.Title, row.WordCount, row.CreatedAt, row.ModifiedAt,
		string(tagsJSON), mood, row.HasReflection, row.ContentHash, row.Version, plainBody)
	if err != nil {
		return fmt.Errorf("index: upsert entry: %w", err)
	}

	// FTS upsert (no-op when the FTS5 tag is absent).
	if err := ftsUpsert(tx, row.Date.String(), row.Title, plainBody, row.Tags); err != nil {
		return err
	}

	return tx.Commit()
}

// Delete removes a row and its FTS entry. Deleting an absent date is a
// no-op, not an error.
func (db *DB) Delete(d entry.Date) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	ftsDelete(tx, d.String())
	if _, err := tx.Exec(`DELETE FROM entries WHERE date = ?`, d.String()); err != nil {
		return fmt.Errorf("index: delete entry: %w", err)
	}

	return tx.Commit()
}

const rowColumns = `date, file_path, title, word_count, created_at, modified_at,
	tags, mood_rating, has_reflection, content_hash, version`

func scanRow(s interface{ Scan(...any) error }) (EntryRow, error) {
	var (
		row      EntryRow
		dateStr  string
		tagsJSON string
		mood     sql.NullInt64
		created  sql.NullTime
		modified sql.NullTime
	)
	err := s.Scan(&dateStr, &row.FilePath, &row.Title, &row.WordCount, &created, &modified,
		&tagsJSON, &mood, &row.HasReflection, &row.ContentHash, &row.Version)
	if err != nil {
		return EntryRow{}, err
	}
	d, err := entry.ParseDate(dateStr)
	if err != nil {
		return EntryRow{}, fmt.Errorf("index: bad date key %q: %w", dateStr, err)
	}
	row.Date = d
	row.CreatedAt = created.Time
	row.ModifiedAt = modified.Time
	if mood.Valid {
		row.MoodRating = int(mood.Int64)
	}
	if err := json.Unmarshal([]byte(tagsJSON), &row.Tags); err != nil {
		row.Tags = []string{}
	}
	if row.Tags == nil {
		row.Tags = []string{}
	}
	return row, nil
}

// Get returns the row for a date, or nil when absent.
func (db *DB) Get(d entry.Date) (*EntryRow, error) {
	r := db.conn.QueryRow(`SELECT `+rowColumns+` FROM entries WHERE date = ?`, d.String())
	row, err := scanRow(r)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("index: get: %w", err)
	}
	return &row, nil
}

// Range returns rows with start <= date <= end, ordered by date ascending.
func (db *DB) Range(start, end entry.Date) ([]EntryRow, error) {
	rows, err := db.conn.Query(`
		SELECT `+rowColumns+`
		FROM entries
		WHERE date BETWEEN ? AND ?
		ORDER BY date
	`, start.String(), end.String())
	if err != nil {
		return nil, fmt.Errorf("index: range: %w", err)
	}
	defer rows.Close()

	var out []EntryRow
	for rows.Next() {
		row, err := scanRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// Dates returns every indexed date. Backed by the primary key, so this
// stays cheap even for large vaults.
func (db *DB) Dates() (map[entry.Date]struct{}, error) {
	rows, err := db.conn.Query(`SELECT date FROM entries`)
	if err != nil {
		return nil, fmt.Errorf("index: dates: %w", err)
	}
	defer rows.Close()

	out := make(map[entry.Date]struct{})
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		d, err := entry.ParseDate(s)
		if err != nil {
			continue
		}
		out[d] = struct{}{}
	}
	return out, rows.Err()
}

// AllHashes returns content_hash per date, used by reconcile to decide
// which files need re-deriving.
func (db *DB) AllHashes() (map[entry.Date]string, error) {
	rows, err := db.conn.Query(`SELECT date, content_hash FROM entries`)
	if err != nil {
		return nil, fmt.Errorf("index: all hashes: %w", err)
	}
	defer rows.Close()

	out := make(map[entry.Date]string)
	for rows.Next() {
		var s, h string
		if err := rows.Scan(&s, &h); err != nil {
			return nil, err
		}
		d, err := entry.ParseDate(s)
		if err != nil {
			continue
		}
		out[d] = h
	}
	return out, rows.Err()
}

// Stats aggregates entry counts and word totals.
func (db *DB) Stats() (Stats, error) {
	var (
		st    Stats
		avg   sql.NullFloat64
		words sql.NullInt64
		first sql.NullString
		last  sql.NullString
	)
	err := db.conn.QueryRow(`
		SELECT COUNT(*),
		       SUM(word_count),
		       AVG(word_count),
		       MIN(date),
		       MAX(date),
		       COUNT(CASE WHEN has_reflection THEN 1 END)
		FROM entries
	`).Scan(&st.TotalEntries, &words, &avg, &first, &last, &st.WithReflection)
	if err != nil {
		return Stats{}, fmt.Errorf("index: stats: %w", err)
	}
	st.TotalWords = int(words.Int64)
	st.AvgWords = avg.Float64
	if first.Valid {
		if d, err := entry.ParseDate(first.String); err == nil {
			st.FirstDate = d
		}
	}
	if last.Valid {
		if d, err := entry.ParseDate(last.String); err == nil {
			st.LastDate = d
		}
	}
	return st, nil
}
