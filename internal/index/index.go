package index

import "github.com/halvard/skriva/internal/entry"

// EntryIndex defines the interface for content index operations.
// Consumers should depend on this interface rather than the concrete *DB
// type to facilitate testing with fakes.
type EntryIndex interface {
	Upsert(row EntryRow, plainBody string) error
	Delete(d entry.Date) error
	Get(d entry.Date) (*EntryRow, error)
	Range(start, end entry.Date) ([]EntryRow, error)
	Dates() (map[entry.Date]struct{}, error)
	AllHashes() (map[entry.Date]string, error)
	Search(query string, limit int) ([]SearchResult, error)
	Stats() (Stats, error)
	Close() error
}

// Verify *DB satisfies EntryIndex at compile time.
var _ EntryIndex = (*DB)(nil)
