// Package entry defines the journal entry model and its on-disk codec.
package entry

import (
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// SchemaVersion is written into every serialized entry header.
const SchemaVersion = 1

// Entry is one journal record, keyed by calendar date. At most one entry
// exists per date.
type Entry struct {
	Date  Date
	Title string
	Body  string

	CreatedAt  time.Time
	ModifiedAt time.Time

	Tags       []string
	WordCount  int
	MoodRating int // 0 means unset; valid range is 1..10

	// Reflection is an opaque payload owned by the AI collaborator. The
	// engine round-trips it without interpreting its contents.
	Reflection map[string]any

	Version int
}

// New returns an entry for date with a date-derived title and the current
// schema version. Timestamps are left zero until the first persist.
func New(d Date, body string) *Entry {
	return &Entry{
		Date:    d,
		Title:   DefaultTitle(d),
		Body:    body,
		Tags:    []string{},
		Version: SchemaVersion,
	}
}

// DefaultTitle is the title used when none was set, e.g. "Jan 15, 2025".
func DefaultTitle(d Date) string {
	return d.Time().Format("Jan 2, 2006")
}

// Validate checks user-settable fields before persisting.
func (e *Entry) Validate() error {
	return validation.ValidateStruct(e,
		validation.Field(&e.Date, validation.By(func(any) error {
			if e.Date.IsZero() {
				return validation.NewError("validation_required", "date is required")
			}
			return nil
		})),
		validation.Field(&e.MoodRating, validation.Min(0), validation.Max(10)),
	)
}

// CountWords returns the number of whitespace-separated words in body.
func CountWords(body string) int {
	return len(strings.Fields(body))
}
