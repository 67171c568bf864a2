// Package journal coordinates the entry store, the autosave scheduler,
// and vault maintenance behind one service surface shared by the HTTP
// API and the MCP server.
package journal

import (
	"context"
	"sort"
	"time"

	"github.com/halvard/skriva/internal/apperr"
	"github.com/halvard/skriva/internal/autosave"
	"github.com/halvard/skriva/internal/checksum"
	"github.com/halvard/skriva/internal/entry"
	"github.com/halvard/skriva/internal/index"
	"github.com/halvard/skriva/internal/store"
	"github.com/halvard/skriva/internal/vault"
)

// EntryDetail is the full representation of a journal entry.
type EntryDetail struct {
	Date        string         `json:"date"`
	Title       string         `json:"title"`
	Body        string         `json:"body"`
	Tags        []string       `json:"tags"`
	WordCount   int            `json:"word_count"`
	MoodRating  int            `json:"mood_rating,omitempty"`
	Reflection  map[string]any `json:"ai_reflection,omitempty"`
	ContentHash string         `json:"content_hash"`
	CreatedAt   time.Time      `json:"created_at"`
	ModifiedAt  time.Time      `json:"modified_at"`
	Version     int            `json:"version"`
	Dirty       bool           `json:"dirty"`
}

// EntryInput carries the writable fields of an entry. Nil optional fields
// keep the stored value.
type EntryInput struct {
	Body       string
	Title      *string
	Tags       []string
	MoodRating *int
}

// Service coordinates store, scheduler, and vault operations.
type Service struct {
	store *store.Store
	sched *autosave.Scheduler
	vault *vault.Vault
}

// NewService creates a new journal service.
func NewService(st *store.Store, sched *autosave.Scheduler, v *vault.Vault) *Service {
	return &Service{store: st, sched: sched, vault: v}
}

// Get returns the entry for a date, or apperr.ErrNotFound.
func (s *Service) Get(_ context.Context, d entry.Date) (*EntryDetail, error) {
	e, err := s.store.Load(d)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, apperr.ErrNotFound
	}
	return s.detail(e), nil
}

// Put saves an entry immediately, superseding any pending autosave draft
// for the same date.
func (s *Service) Put(ctx context.Context, d entry.Date, in EntryInput) (*EntryDetail, error) {
	e, err := s.resolve(ctx, d, in)
	if err != nil {
		return nil, err
	}
	s.sched.Cancel(d)
	if err := s.store.Save(e); err != nil {
		return nil, err
	}
	return s.detail(e), nil
}

// QueueDraft hands an edited entry to the autosave scheduler instead of
// writing it straight through.
func (s *Service) QueueDraft(ctx context.Context, d entry.Date, in EntryInput) error {
	e, err := s.resolve(ctx, d, in)
	if err != nil {
		return err
	}
	s.sched.Queue(e)
	return nil
}

// Flush forces the pending draft for a date to disk, if any.
func (s *Service) Flush(_ context.Context, d entry.Date) error {
	return s.sched.Flush(d)
}

// FlushAll drains every pending draft.
func (s *Service) FlushAll(_ context.Context) error {
	return s.sched.FlushAll()
}

// Dirty reports whether a date has unsaved draft state.
func (s *Service) Dirty(d entry.Date) bool {
	return s.sched.Dirty(d)
}

// Delete removes an entry from index and disk, dropping any pending
// draft first. Deleting an absent entry is not an error.
func (s *Service) Delete(_ context.Context, d entry.Date) error {
	s.sched.Cancel(d)
	return s.store.Delete(d)
}

// Rename moves an entry to another date. The source draft is flushed
// first so the move covers the latest content.
func (s *Service) Rename(_ context.Context, from, to entry.Date) (*EntryDetail, error) {
	if err := s.sched.Flush(from); err != nil {
		return nil, err
	}
	if e, err := s.store.Load(to); err != nil {
		return nil, err
	} else if e != nil {
		return nil, apperr.ErrConflict
	}
	if err := s.store.Rename(from, to); err != nil {
		return nil, err
	}
	moved, err := s.store.Load(to)
	if err != nil {
		return nil, err
	}
	return s.detail(moved), nil
}

// AttachReflection stores an AI reflection document on an entry.
func (s *Service) AttachReflection(_ context.Context, d entry.Date, reflection map[string]any) (*EntryDetail, error) {
	e, err := s.store.Load(d)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, apperr.ErrNotFound
	}
	e.Reflection = reflection
	if err := s.store.Save(e); err != nil {
		return nil, err
	}
	return s.detail(e), nil
}

// Search queries the content index.
func (s *Service) Search(_ context.Context, query string, limit int) ([]index.SearchResult, error) {
	return s.store.Search(query, limit)
}

// Calendar returns the dates within one month that have entries, sorted
// ascending.
func (s *Service) Calendar(_ context.Context, year int, month time.Month) ([]entry.Date, error) {
	set, err := s.store.DatesIn(year, month)
	if err != nil {
		return nil, err
	}
	dates := make([]entry.Date, 0, len(set))
	for d := range set {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates, nil
}

// Dates returns every date that has an entry, sorted ascending.
func (s *Service) Dates(_ context.Context) ([]entry.Date, error) {
	set, err := s.store.Dates()
	if err != nil {
		return nil, err
	}
	dates := make([]entry.Date, 0, len(set))
	for d := range set {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates, nil
}

// Stats returns vault-wide aggregates from the index.
func (s *Service) Stats(_ context.Context) (index.Stats, error) {
	return s.store.Stats()
}

// Reconcile converges the index on the files currently on disk.
func (s *Service) Reconcile(_ context.Context) (vault.ReconcileResult, error) {
	return s.vault.Reconcile()
}

// resolve merges in onto the stored entry for d, creating a fresh entry
// when none exists.
func (s *Service) resolve(_ context.Context, d entry.Date, in EntryInput) (*entry.Entry, error) {
	e, err := s.store.Load(d)
	if err != nil {
		return nil, err
	}
	if e == nil {
		e = entry.New(d, in.Body)
	} else {
		e.Body = in.Body
	}
	if in.Title != nil {
		e.Title = *in.Title
	}
	if in.Tags != nil {
		e.Tags = in.Tags
	}
	if in.MoodRating != nil {
		e.MoodRating = *in.MoodRating
	}
	return e, nil
}

func (s *Service) detail(e *entry.Entry) *EntryDetail {
	return &EntryDetail{
		Date:        e.Date.String(),
		Title:       e.Title,
		Body:        e.Body,
		Tags:        nonNilSlice(e.Tags),
		WordCount:   e.WordCount,
		MoodRating:  e.MoodRating,
		Reflection:  e.Reflection,
		ContentHash: checksum.Sum([]byte(e.Body)),
		CreatedAt:   e.CreatedAt,
		ModifiedAt:  e.ModifiedAt,
		Version:     e.Version,
		Dirty:       s.sched.Dirty(e.Date),
	}
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
