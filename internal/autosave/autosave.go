// Package autosave debounces entry writes so rapid editing produces few
// disk saves. Each date keeps at most one pending draft; re-queueing a
// date replaces its draft and restarts the debounce timer, bounded by a
// max-wait deadline measured from the first unsaved edit.
package autosave

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/halvard/skriva/internal/entry"
)

// Saver persists a finished draft. It is satisfied by *store.Store.
type Saver interface {
	Save(e *entry.Entry) error
}

// Config controls scheduler timing.
type Config struct {
	// Debounce is the quiet period after the last edit before a save fires.
	Debounce time.Duration
	// MaxWait caps how long a continuously edited draft may stay unsaved.
	MaxWait time.Duration
	// MinLength drops drafts whose body is shorter than this many runes so
	// an accidental keystroke never creates an entry file.
	MinLength int
	// Enabled gates the scheduler entirely; Queue becomes a no-op when false.
	Enabled bool
}

// DefaultConfig matches a comfortable typing cadence.
func DefaultConfig() Config {
	return Config{
		Debounce:  2 * time.Second,
		MaxWait:   30 * time.Second,
		MinLength: 1,
		Enabled:   true,
	}
}

// SavedCallback runs after the scheduler persists a draft. err is non-nil
// when the save failed; the draft is kept pending in that case.
type SavedCallback func(d entry.Date, err error)

type pending struct {
	draft    *entry.Entry
	timer    *time.Timer
	deadline time.Time // first-edit time plus MaxWait
	saving   bool      // a flush for this date is in flight
	queued   bool      // a draft arrived while saving
	canceled bool      // Cancel was called while saving
}

// Scheduler coalesces queued drafts into timed saves. All methods are
// safe for concurrent use.
type Scheduler struct {
	cfg     Config
	saver   Saver
	logger  *slog.Logger
	onSaved SavedCallback

	mu      sync.Mutex
	pending map[entry.Date]*pending
	closed  bool
	wg      sync.WaitGroup
}

// New returns a scheduler writing through saver. onSaved may be nil.
func New(cfg Config, saver Saver, logger *slog.Logger, onSaved SavedCallback) *Scheduler {
	return &Scheduler{
		cfg:     cfg,
		saver:   saver,
		logger:  logger,
		onSaved: onSaved,
		pending: make(map[entry.Date]*pending),
	}
}

// Queue records e as the pending draft for its date, replacing any earlier
// draft for that date, and (re)starts the debounce timer. The draft is a
// snapshot: the caller may keep mutating its own copy afterwards.
func (s *Scheduler) Queue(e *entry.Entry) {
	if !s.cfg.Enabled {
		return
	}
	snapshot := *e
	if snapshot.Tags != nil {
		snapshot.Tags = append([]string(nil), e.Tags...)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	now := time.Now()
	p, ok := s.pending[e.Date]
	if !ok {
		p = &pending{deadline: now.Add(s.cfg.MaxWait)}
		s.pending[e.Date] = p
	}
	p.draft = &snapshot
	if p.saving {
		// Re-armed once the in-flight save finishes.
		p.queued = true
		return
	}
	s.armLocked(e.Date, p, now)
}

// armLocked starts or restarts the debounce timer for p, never past the
// max-wait deadline. Caller holds s.mu.
func (s *Scheduler) armLocked(d entry.Date, p *pending, now time.Time) {
	delay := s.cfg.Debounce
	if remaining := p.deadline.Sub(now); remaining < delay {
		delay = remaining
	}
	if delay < 0 {
		delay = 0
	}
	if p.timer != nil {
		p.timer.Stop()
	}
	p.timer = time.AfterFunc(delay, func() { s.fire(d) })
}

// fire is the timer body: it claims the pending draft and flushes it.
func (s *Scheduler) fire(d entry.Date) {
	s.mu.Lock()
	p, ok := s.pending[d]
	if !ok || p.saving || p.draft == nil {
		s.mu.Unlock()
		return
	}
	draft := p.claimLocked()
	s.wg.Add(1)
	s.mu.Unlock()

	s.flush(d, draft)
}

// claimLocked marks p as saving and takes its draft. Caller holds s.mu.
func (p *pending) claimLocked() *entry.Entry {
	draft := p.draft
	p.draft = nil
	p.saving = true
	p.queued = false
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
	return draft
}

// flush writes one claimed draft and settles the date's pending state.
// The caller must have incremented s.wg.
func (s *Scheduler) flush(d entry.Date, draft *entry.Entry) {
	defer s.wg.Done()

	var err error
	if len([]rune(draft.Body)) < s.cfg.MinLength {
		s.logger.Debug("autosave: draft below min length, skipped",
			slog.String("date", d.String()))
	} else if err = s.saver.Save(draft); err != nil {
		s.logger.Warn("autosave: save failed",
			slog.String("date", d.String()), slog.Any("error", err))
	}

	s.mu.Lock()
	p := s.pending[d]
	if p != nil {
		p.saving = false
		if p.canceled {
			p.canceled = false
			err = nil
		} else if err != nil && p.draft == nil {
			// Keep the failed draft pending so a later flush retries it.
			p.draft = draft
			p.queued = true
		}
		if p.queued && !s.closed {
			p.queued = false
			p.deadline = time.Now().Add(s.cfg.MaxWait)
			s.armLocked(d, p, time.Now())
		} else if p.draft == nil {
			delete(s.pending, d)
		}
	}
	s.mu.Unlock()

	if s.onSaved != nil {
		s.onSaved(d, err)
	}
}

// Flush saves the pending draft for d immediately, if any. Used when the
// user switches to a different date or the UI demands durability. A draft
// queued while another save for d is in flight is picked up once that save
// settles, so Flush never returns with an unsaved draft left behind.
func (s *Scheduler) Flush(d entry.Date) error {
	for {
		s.mu.Lock()
		p, ok := s.pending[d]
		if !ok {
			s.mu.Unlock()
			return nil
		}
		if p.saving {
			s.mu.Unlock()
			s.wg.Wait()
			// The settled save may have left a queued or re-pended draft.
			continue
		}
		if p.draft == nil {
			s.mu.Unlock()
			return nil
		}
		draft := p.claimLocked()
		s.wg.Add(1)
		s.mu.Unlock()

		s.flush(d, draft)

		s.mu.Lock()
		p, ok = s.pending[d]
		failed := ok && p.draft != nil && !p.saving
		s.mu.Unlock()
		if failed {
			return fmt.Errorf("autosave: flush %s: draft still pending after failed save", d)
		}
		return nil
	}
}

// FlushAll drains every pending draft and waits for in-flight saves.
func (s *Scheduler) FlushAll() error {
	s.mu.Lock()
	dates := make([]entry.Date, 0, len(s.pending))
	for d := range s.pending {
		dates = append(dates, d)
	}
	s.mu.Unlock()

	var firstErr error
	for _, d := range dates {
		if err := s.Flush(d); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	s.wg.Wait()
	return firstErr
}

// Cancel drops the pending draft for d without saving it. An in-flight
// save is not interrupted, but its retry-on-failure is suppressed.
func (s *Scheduler) Cancel(d entry.Date) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pending[d]
	if !ok {
		return
	}
	p.draft = nil
	p.queued = false
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
	if p.saving {
		p.canceled = true
	} else {
		delete(s.pending, d)
	}
}

// Dirty reports whether d has an unsaved draft or an in-flight save.
func (s *Scheduler) Dirty(d entry.Date) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pending[d]
	return ok && (p.draft != nil || p.saving)
}

// Close flushes everything and stops accepting new drafts.
func (s *Scheduler) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	return s.FlushAll()
}
