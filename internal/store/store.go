// Package store implements the entry storage engine: the only component
// callers use for entry CRUD. It enforces the consistency contract
// between the filesystem and the content index — the file is
// authoritative, the index is a best-effort accelerator.
package store

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/halvard/skriva/internal/apperr"
	"github.com/halvard/skriva/internal/checksum"
	"github.com/halvard/skriva/internal/entry"
	"github.com/halvard/skriva/internal/index"
	"github.com/halvard/skriva/internal/layout"
	"github.com/halvard/skriva/internal/storage"
)

const previewLen = 160

// Store coordinates the layout manager, entry codec, and content index.
type Store struct {
	fs     storage.Provider
	idx    index.EntryIndex
	logger *slog.Logger

	now func() time.Time
}

// New creates a Store over the given provider and index.
func New(fs storage.Provider, idx index.EntryIndex, logger *slog.Logger) *Store {
	return &Store{fs: fs, idx: idx, logger: logger, now: time.Now}
}

// Load returns the entry for a date, or nil when the date has no entry
// (most calendar dates do not — that is not an error).
//
// A file whose header is malformed loads as a degraded entry carrying the
// raw text as body; journal data never becomes inaccessible because of a
// formatting quirk.
func (s *Store) Load(d entry.Date) (*entry.Entry, error) {
	rel := layout.PathFor(d)
	data, err := s.fs.Read(rel)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("store: load %s: %w", d, err)
	}

	e, err := entry.Decode(data, d)
	if err != nil {
		if errors.Is(err, entry.ErrMalformedHeader) {
			s.logger.Warn("store: malformed header, loading raw body",
				slog.String("date", d.String()), slog.String("error", err.Error()))
			raw := entry.New(d, string(data))
			raw.WordCount = entry.CountWords(raw.Body)
			return raw, nil
		}
		return nil, fmt.Errorf("store: decode %s: %w", d, err)
	}
	return e, nil
}

// Save persists the entry: derives word count, content hash, and
// timestamps, writes the file atomically, then upserts the index row.
//
// An index failure after a successful file write is logged and absorbed —
// the file persisted, which is the durability guarantee that matters, and
// a reconcile pass repairs the row.
func (s *Store) Save(e *entry.Entry) error {
	if err := e.Validate(); err != nil {
		return fmt.Errorf("store: save %s: %w: %w", e.Date, apperr.ErrInvalid, err)
	}

	now := s.now()
	e.WordCount = entry.CountWords(e.Body)
	e.ModifiedAt = now
	if e.Title == "" {
		e.Title = entry.DefaultTitle(e.Date)
	}
	if e.Version == 0 {
		e.Version = entry.SchemaVersion
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.firstCreatedAt(e.Date, now)
	}

	data, err := entry.Encode(e)
	if err != nil {
		return fmt.Errorf("store: save %s: %w", e.Date, err)
	}

	rel := layout.PathFor(e.Date)
	if err := s.fs.Write(rel, data); err != nil {
		return fmt.Errorf("store: save %s: %w", e.Date, err)
	}

	if err := s.idx.Upsert(rowFor(e, rel), entry.PlainText(e.Body)); err != nil {
		s.logger.Warn("store: index upsert failed after write",
			slog.String("date", e.Date.String()), slog.String("error", err.Error()))
	}
	return nil
}

// firstCreatedAt resolves created_at for an entry that has not carried one
// yet: the existing index row wins, then the existing file header, then
// now.
func (s *Store) firstCreatedAt(d entry.Date, now time.Time) time.Time {
	if row, err := s.idx.Get(d); err == nil && row != nil && !row.CreatedAt.IsZero() {
		return row.CreatedAt
	}
	if data, err := s.fs.Read(layout.PathFor(d)); err == nil {
		if prev, err := entry.Decode(data, d); err == nil && !prev.CreatedAt.IsZero() {
			return prev.CreatedAt
		}
	}
	return now
}

// Delete removes the index row, then the file. Deleting a date with no
// entry succeeds. The index row goes first: if the process dies between
// the two steps, the orphaned file is re-discovered and re-indexed by the
// next reconcile, whereas the reverse order could leave a row pointing at
// nothing.
func (s *Store) Delete(d entry.Date) error {
	if err := s.idx.Delete(d); err != nil {
		return fmt.Errorf("store: delete %s: %w", d, err)
	}
	if err := s.fs.Delete(layout.PathFor(d)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("store: delete %s: %w", d, err)
	}
	return nil
}

// Rename moves an entry to a different date. The title is re-derived from
// the new date, matching how new entries are titled.
func (s *Store) Rename(from, to entry.Date) error {
	e, err := s.Load(from)
	if err != nil {
		return err
	}
	if e == nil {
		return fmt.Errorf("store: rename %s: %w", from, apperr.ErrNotFound)
	}
	e.Date = to
	e.Title = entry.DefaultTitle(to)
	if err := s.Save(e); err != nil {
		return err
	}
	return s.Delete(from)
}

// Search delegates to the content index. When the index errors, it falls
// back to a direct directory scan — slower, but index staleness must stay
// cosmetic, never data-losing.
func (s *Store) Search(query string, limit int) ([]index.SearchResult, error) {
	results, err := s.idx.Search(query, limit)
	if err != nil {
		s.logger.Warn("store: index search failed, scanning vault",
			slog.String("error", err.Error()))
		return s.scanSearch(query, limit)
	}
	return results, nil
}

// scanSearch is the degraded path: read every entry file and substring
// match over title and plain-text body.
func (s *Store) scanSearch(query string, limit int) ([]index.SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}
	metas, err := s.fs.List(layout.EntriesDir)
	if err != nil {
		return nil, fmt.Errorf("store: scan search: %w", err)
	}
	needle := strings.ToLower(query)

	var out []index.SearchResult
	for _, m := range metas {
		d, ok := layout.DateFor(m.Path)
		if !ok {
			continue
		}
		e, err := s.Load(d)
		if err != nil || e == nil {
			continue
		}
		plain := entry.PlainText(e.Body)
		if !strings.Contains(strings.ToLower(e.Title), needle) &&
			!strings.Contains(strings.ToLower(plain), needle) {
			continue
		}
		out = append(out, index.SearchResult{
			Date:    d,
			Title:   e.Title,
			Snippet: entry.Preview(e.Body, previewLen),
		})
	}
	// Most recent first, mirroring the index fallback ordering.
	sort.Slice(out, func(i, j int) bool { return out[j].Date.Before(out[i].Date) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Dates returns every date that has an entry.
func (s *Store) Dates() (map[entry.Date]struct{}, error) {
	return s.idx.Dates()
}

// DatesIn returns the dates with entries inside one calendar month, for
// calendar indicators.
func (s *Store) DatesIn(year int, month time.Month) (map[entry.Date]struct{}, error) {
	first := entry.Date{Year: year, Month: month, Day: 1}
	lastDay := time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
	last := entry.Date{Year: year, Month: month, Day: lastDay}

	rows, err := s.idx.Range(first, last)
	if err != nil {
		return nil, fmt.Errorf("store: dates in %04d-%02d: %w", year, int(month), err)
	}
	out := make(map[entry.Date]struct{}, len(rows))
	for _, r := range rows {
		out[r.Date] = struct{}{}
	}
	return out, nil
}

// Stats aggregates the index.
func (s *Store) Stats() (index.Stats, error) {
	return s.idx.Stats()
}

// Reindex re-derives the index row for a date from raw file bytes. Used
// by the watcher and reconcile; malformed files are indexed in their
// degraded raw-body form so they still show up in search.
func (s *Store) Reindex(d entry.Date, data []byte) error {
	e, err := entry.Decode(data, d)
	if err != nil {
		if !errors.Is(err, entry.ErrMalformedHeader) {
			return fmt.Errorf("store: reindex %s: %w", d, err)
		}
		e = entry.New(d, string(data))
		e.WordCount = entry.CountWords(e.Body)
	}
	return s.idx.Upsert(rowFor(e, layout.PathFor(d)), entry.PlainText(e.Body))
}

// Index exposes the underlying index for read-side consumers.
func (s *Store) Index() index.EntryIndex { return s.idx }

// FS exposes the underlying storage provider.
func (s *Store) FS() storage.Provider { return s.fs }

func rowFor(e *entry.Entry, rel string) index.EntryRow {
	return index.EntryRow{
		Date:          e.Date,
		FilePath:      rel,
		Title:         e.Title,
		WordCount:     e.WordCount,
		CreatedAt:     e.CreatedAt,
		ModifiedAt:    e.ModifiedAt,
		Tags:          e.Tags,
		MoodRating:    e.MoodRating,
		HasReflection: len(e.Reflection) > 0,
		ContentHash:   checksum.Sum([]byte(e.Body)),
		Version:       e.Version,
	}
}
