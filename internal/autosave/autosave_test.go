package autosave

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/halvard/skriva/internal/entry"
)

// recordingSaver captures every Save call.
type recordingSaver struct {
	mu       sync.Mutex
	saved    []entry.Entry
	failures int
}

func (r *recordingSaver) Save(e *entry.Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failures > 0 {
		r.failures--
		return errors.New("disk full")
	}
	r.saved = append(r.saved, *e)
	return nil
}

func (r *recordingSaver) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.saved)
}

func (r *recordingSaver) last() (entry.Entry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.saved) == 0 {
		return entry.Entry{}, false
	}
	return r.saved[len(r.saved)-1], true
}

// blockingSaver holds every Save until release is closed, so tests can
// queue drafts while a save is in flight.
type blockingSaver struct {
	recordingSaver
	entered chan struct{}
	release chan struct{}
}

func newBlockingSaver() *blockingSaver {
	return &blockingSaver{
		entered: make(chan struct{}, 8),
		release: make(chan struct{}),
	}
}

func (b *blockingSaver) Save(e *entry.Entry) error {
	b.entered <- struct{}{}
	<-b.release
	return b.recordingSaver.Save(e)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func testDate(t *testing.T, iso string) entry.Date {
	t.Helper()
	d, err := entry.ParseDate(iso)
	if err != nil {
		t.Fatal(err)
	}
	return d
}

func waitFor(t *testing.T, timeout time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

func TestScheduler_CoalescesEdits(t *testing.T) {
	saver := &recordingSaver{}
	cfg := Config{Debounce: 40 * time.Millisecond, MaxWait: time.Second, MinLength: 1, Enabled: true}
	s := New(cfg, saver, testLogger(), nil)
	t.Cleanup(func() { s.Close() })

	d := testDate(t, "2025-04-01")
	for i := 1; i <= 10; i++ {
		s.Queue(entry.New(d, fmt.Sprintf("draft revision %d", i)))
		time.Sleep(2 * time.Millisecond)
	}

	waitFor(t, time.Second, func() bool { return saver.count() == 1 },
		"burst of edits did not collapse into one save")

	got, _ := saver.last()
	if got.Body != "draft revision 10" {
		t.Fatalf("saved body = %q, want final revision", got.Body)
	}
	if saver.count() != 1 {
		t.Fatalf("save count = %d, want 1", saver.count())
	}
}

func TestScheduler_MaxWaitBoundsContinuousEditing(t *testing.T) {
	saver := &recordingSaver{}
	cfg := Config{Debounce: 50 * time.Millisecond, MaxWait: 150 * time.Millisecond, MinLength: 1, Enabled: true}
	s := New(cfg, saver, testLogger(), nil)
	t.Cleanup(func() { s.Close() })

	d := testDate(t, "2025-04-02")

	// Re-queue faster than the debounce so the quiet period never elapses.
	start := time.Now()
	stop := start.Add(400 * time.Millisecond)
	for time.Now().Before(stop) && saver.count() == 0 {
		s.Queue(entry.New(d, "still typing"))
		time.Sleep(10 * time.Millisecond)
	}

	if saver.count() == 0 {
		t.Fatal("continuous editing starved the save past max wait")
	}
	if elapsed := time.Since(start); elapsed > 350*time.Millisecond {
		t.Fatalf("first save after %v, want within max wait", elapsed)
	}
}

func TestScheduler_FlushSavesImmediately(t *testing.T) {
	saver := &recordingSaver{}
	cfg := Config{Debounce: time.Hour, MaxWait: 2 * time.Hour, MinLength: 1, Enabled: true}
	s := New(cfg, saver, testLogger(), nil)
	t.Cleanup(func() { s.Close() })

	d := testDate(t, "2025-04-03")
	s.Queue(entry.New(d, "switching dates now"))

	if !s.Dirty(d) {
		t.Fatal("queued date should be dirty")
	}
	if err := s.Flush(d); err != nil {
		t.Fatal(err)
	}
	if saver.count() != 1 {
		t.Fatalf("save count = %d, want 1", saver.count())
	}
	if s.Dirty(d) {
		t.Fatal("flushed date should be clean")
	}

	// Flushing a clean date is a no-op.
	if err := s.Flush(d); err != nil {
		t.Fatal(err)
	}
	if saver.count() != 1 {
		t.Fatalf("save count after no-op flush = %d, want 1", saver.count())
	}
}

func TestScheduler_IndependentDates(t *testing.T) {
	saver := &recordingSaver{}
	cfg := Config{Debounce: time.Hour, MaxWait: 2 * time.Hour, MinLength: 1, Enabled: true}
	s := New(cfg, saver, testLogger(), nil)
	t.Cleanup(func() { s.Close() })

	d1 := testDate(t, "2025-04-04")
	d2 := testDate(t, "2025-04-05")
	s.Queue(entry.New(d1, "first date"))
	s.Queue(entry.New(d2, "second date"))

	if err := s.Flush(d1); err != nil {
		t.Fatal(err)
	}
	if saver.count() != 1 {
		t.Fatalf("save count = %d, want 1 (only d1 flushed)", saver.count())
	}
	if s.Dirty(d1) || !s.Dirty(d2) {
		t.Fatal("flush of one date disturbed the other")
	}

	if err := s.FlushAll(); err != nil {
		t.Fatal(err)
	}
	if saver.count() != 2 {
		t.Fatalf("save count = %d, want 2", saver.count())
	}
}

func TestScheduler_SkipsShortDrafts(t *testing.T) {
	saver := &recordingSaver{}
	cfg := Config{Debounce: time.Hour, MaxWait: 2 * time.Hour, MinLength: 5, Enabled: true}
	s := New(cfg, saver, testLogger(), nil)
	t.Cleanup(func() { s.Close() })

	d := testDate(t, "2025-04-06")
	s.Queue(entry.New(d, "hi"))
	if err := s.Flush(d); err != nil {
		t.Fatal(err)
	}
	if saver.count() != 0 {
		t.Fatal("draft below min length should not reach the saver")
	}
}

func TestScheduler_DisabledIsInert(t *testing.T) {
	saver := &recordingSaver{}
	cfg := Config{Debounce: time.Millisecond, MaxWait: time.Millisecond, MinLength: 1, Enabled: false}
	s := New(cfg, saver, testLogger(), nil)
	t.Cleanup(func() { s.Close() })

	d := testDate(t, "2025-04-07")
	s.Queue(entry.New(d, "never saved"))
	time.Sleep(50 * time.Millisecond)

	if saver.count() != 0 || s.Dirty(d) {
		t.Fatal("disabled scheduler should ignore queued drafts")
	}
}

func TestScheduler_FailedSaveStaysPending(t *testing.T) {
	saver := &recordingSaver{failures: 1}
	cfg := Config{Debounce: time.Hour, MaxWait: 2 * time.Hour, MinLength: 1, Enabled: true}

	var mu sync.Mutex
	var cbErrs []error
	s := New(cfg, saver, testLogger(), func(d entry.Date, err error) {
		mu.Lock()
		cbErrs = append(cbErrs, err)
		mu.Unlock()
	})
	t.Cleanup(func() { s.Close() })

	d := testDate(t, "2025-04-08")
	s.Queue(entry.New(d, "flaky disk"))

	if err := s.Flush(d); err == nil {
		t.Fatal("flush should report the failed save")
	}
	if !s.Dirty(d) {
		t.Fatal("failed draft should stay pending")
	}

	// The retry succeeds.
	if err := s.FlushAll(); err != nil {
		t.Fatal(err)
	}
	if saver.count() != 1 {
		t.Fatalf("save count = %d, want 1 after retry", saver.count())
	}
	if s.Dirty(d) {
		t.Fatal("retried draft should be clean")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(cbErrs) != 2 || cbErrs[0] == nil || cbErrs[1] != nil {
		t.Fatalf("callback errors = %v, want one failure then one success", cbErrs)
	}
}

func TestScheduler_EditDuringSaveSupersedes(t *testing.T) {
	saver := newBlockingSaver()
	cfg := Config{Debounce: 5 * time.Millisecond, MaxWait: time.Hour, MinLength: 1, Enabled: true}
	s := New(cfg, saver, testLogger(), nil)
	t.Cleanup(func() { s.Close() })

	d := testDate(t, "2025-04-10")
	s.Queue(entry.New(d, "first version"))
	<-saver.entered // first save is now in flight

	// Both arrive while the save is blocked; only the newer one survives.
	s.Queue(entry.New(d, "stale replacement"))
	s.Queue(entry.New(d, "final replacement"))
	close(saver.release)

	waitFor(t, time.Second, func() bool { return saver.count() == 2 },
		"replacement draft was not saved after the in-flight write settled")

	got, _ := saver.last()
	if got.Body != "final replacement" {
		t.Fatalf("second saved body = %q, want the newest draft", got.Body)
	}
	saver.mu.Lock()
	defer saver.mu.Unlock()
	for _, e := range saver.saved {
		if e.Body == "stale replacement" {
			t.Fatal("superseded draft reached the saver")
		}
	}
}

func TestScheduler_DraftQueuedMidSaveSurvivesClose(t *testing.T) {
	saver := newBlockingSaver()
	cfg := Config{Debounce: 5 * time.Millisecond, MaxWait: time.Hour, MinLength: 1, Enabled: true}
	s := New(cfg, saver, testLogger(), nil)

	d := testDate(t, "2025-04-11")
	s.Queue(entry.New(d, "first version"))
	<-saver.entered // first save is now in flight
	s.Queue(entry.New(d, "typed during the save"))

	done := make(chan error, 1)
	go func() { done <- s.Close() }()
	// Let Close reach its wait on the blocked save before releasing it.
	time.Sleep(30 * time.Millisecond)
	close(saver.release)

	if err := <-done; err != nil {
		t.Fatal(err)
	}
	if saver.count() != 2 {
		t.Fatalf("save count = %d, want 2 (close must drain the queued draft)", saver.count())
	}
	got, _ := saver.last()
	if got.Body != "typed during the save" {
		t.Fatalf("last saved body = %q, want the draft queued mid-save", got.Body)
	}
	if s.Dirty(d) {
		t.Fatal("closed scheduler should have nothing pending")
	}
}

func TestScheduler_QueueSnapshotsDraft(t *testing.T) {
	saver := &recordingSaver{}
	cfg := Config{Debounce: time.Hour, MaxWait: 2 * time.Hour, MinLength: 1, Enabled: true}
	s := New(cfg, saver, testLogger(), nil)
	t.Cleanup(func() { s.Close() })

	d := testDate(t, "2025-04-09")
	e := entry.New(d, "original text")
	s.Queue(e)
	e.Body = "mutated after queue"

	if err := s.Flush(d); err != nil {
		t.Fatal(err)
	}
	got, ok := saver.last()
	if !ok || got.Body != "original text" {
		t.Fatalf("saved body = %q, want queued snapshot", got.Body)
	}
}
