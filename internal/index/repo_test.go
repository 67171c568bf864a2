package index

import (
	"os"
	"testing"
	"time"

	"github.com/halvard/skriva/internal/entry"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	f, err := os.CreateTemp("", "skriva-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })

	db, err := Open(f.Name())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func date(y int, m time.Month, d int) entry.Date {
	return entry.Date{Year: y, Month: m, Day: d}
}

func row(d entry.Date) EntryRow {
	return EntryRow{
		Date:       d,
		FilePath:   "entries/2025/01/" + d.String() + ".md",
		Title:      "Title " + d.String(),
		WordCount:  5,
		CreatedAt:  time.Date(2025, 1, 10, 8, 0, 0, 0, time.UTC),
		ModifiedAt: time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC),
		Tags:       []string{"daily"},
		ContentHash: "h-" + d.String(),
		Version:    1,
	}
}

func TestUpsertAndGet(t *testing.T) {
	db := testDB(t)
	d := date(2025, time.January, 15)
	r := row(d)
	r.MoodRating = 7
	r.HasReflection = true
	if err := db.Upsert(r, "five words of body text"); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	got, err := db.Get(d)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got == nil {
		t.Fatal("Get returned nil for existing row")
	}
	if got.Title != r.Title || got.MoodRating != 7 || !got.HasReflection {
		t.Errorf("row = %+v", got)
	}
	if len(got.Tags) != 1 || got.Tags[0] != "daily" {
		t.Errorf("tags = %v", got.Tags)
	}
	if got.ContentHash != r.ContentHash {
		t.Errorf("hash = %q", got.ContentHash)
	}
}

func TestGet_Absent(t *testing.T) {
	db := testDB(t)
	got, err := db.Get(date(2025, time.January, 1))
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != nil {
		t.Errorf("got = %+v, want nil", got)
	}
}

func TestUpsert_ReplacesByDate(t *testing.T) {
	db := testDB(t)
	d := date(2025, time.January, 15)
	_ = db.Upsert(row(d), "old body")
	r := row(d)
	r.Title = "Updated"
	r.ContentHash = "h2"
	if err := db.Upsert(r, "new body"); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	got, _ := db.Get(d)
	if got.Title != "Updated" || got.ContentHash != "h2" {
		t.Errorf("row = %+v", got)
	}
	dates, _ := db.Dates()
	if len(dates) != 1 {
		t.Errorf("len(dates) = %d, want 1", len(dates))
	}
}

func TestDelete_Idempotent(t *testing.T) {
	db := testDB(t)
	d := date(2025, time.January, 15)
	_ = db.Upsert(row(d), "body")

	if err := db.Delete(d); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := db.Delete(d); err != nil {
		t.Fatalf("second Delete: %v", err)
	}
	if err := db.Delete(date(1990, time.June, 1)); err != nil {
		t.Fatalf("Delete of never-indexed date: %v", err)
	}
}

func TestRange_OrderedAscending(t *testing.T) {
	db := testDB(t)
	for _, d := range []entry.Date{
		date(2025, time.January, 20),
		date(2025, time.January, 5),
		date(2025, time.February, 1),
		date(2024, time.December, 31),
	} {
		_ = db.Upsert(row(d), "body")
	}

	got, err := db.Range(date(2025, time.January, 1), date(2025, time.January, 31))
	if err != nil {
		t.Fatalf("Range: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].Date != date(2025, time.January, 5) || got[1].Date != date(2025, time.January, 20) {
		t.Errorf("order = %v, %v", got[0].Date, got[1].Date)
	}
}

func TestAllHashes(t *testing.T) {
	db := testDB(t)
	d1 := date(2025, time.January, 1)
	d2 := date(2025, time.January, 2)
	_ = db.Upsert(row(d1), "a")
	_ = db.Upsert(row(d2), "b")

	hashes, err := db.AllHashes()
	if err != nil {
		t.Fatalf("AllHashes: %v", err)
	}
	if hashes[d1] != "h-2025-01-01" || hashes[d2] != "h-2025-01-02" {
		t.Errorf("hashes = %v", hashes)
	}
}

func TestSearch_Basic(t *testing.T) {
	db := testDB(t)
	d := date(2025, time.January, 15)
	_ = db.Upsert(row(d), "an uncommonword appears here")
	_ = db.Upsert(row(date(2025, time.January, 16)), "nothing relevant")

	results, err := db.Search("uncommonword", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].Date != d {
		t.Errorf("results = %+v, want 1 hit for %v", results, d)
	}
	if results[0].Snippet == "" {
		t.Error("snippet empty")
	}
}

func TestStats(t *testing.T) {
	db := testDB(t)

	st, err := db.Stats()
	if err != nil {
		t.Fatalf("Stats on empty index: %v", err)
	}
	if st.TotalEntries != 0 || !st.FirstDate.IsZero() {
		t.Errorf("empty stats = %+v", st)
	}

	r1 := row(date(2025, time.January, 1))
	r1.WordCount = 10
	r1.HasReflection = true
	r2 := row(date(2025, time.January, 3))
	r2.WordCount = 30
	_ = db.Upsert(r1, "a")
	_ = db.Upsert(r2, "b")

	st, err = db.Stats()
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if st.TotalEntries != 2 || st.TotalWords != 40 || st.AvgWords != 20 {
		t.Errorf("stats = %+v", st)
	}
	if st.FirstDate != date(2025, time.January, 1) || st.LastDate != date(2025, time.January, 3) {
		t.Errorf("date span = %v .. %v", st.FirstDate, st.LastDate)
	}
	if st.WithReflection != 1 {
		t.Errorf("with reflection = %d", st.WithReflection)
	}
}
