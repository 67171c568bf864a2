package layout

import (
	"testing"
	"time"

	"github.com/halvard/skriva/internal/entry"
)

func TestPathFor(t *testing.T) {
	d := entry.Date{Year: 2025, Month: time.January, Day: 15}
	got := PathFor(d)
	want := "entries/2025/01/2025-01-15.md"
	if got != want {
		t.Errorf("PathFor = %q, want %q", got, want)
	}
}

func TestDateFor_Foreign(t *testing.T) {
	cases := []string{
		"entries/2025/01/notes.md",
		"entries/2025/01/2025-01-15.txt",
		"entries/2025/2025-01-15.md",
		"attachments/2025/01/2025-01-15.md",
		"entries/2025/02/2025-01-15.md", // wrong month bucket
		"entries/25/01/2025-01-15.md",
		"entries/2025/01/2025-02-30.md", // impossible date
		"README.md",
	}
	for _, p := range cases {
		if _, ok := DateFor(p); ok {
			t.Errorf("DateFor(%q) matched, want skip", p)
		}
	}
}

func TestDateFor_Windows(t *testing.T) {
	d, ok := DateFor(`entries\2024\06\2024-06-01.md`)
	if !ok {
		t.Fatal("backslash path not recognized")
	}
	if d != (entry.Date{Year: 2024, Month: time.June, Day: 1}) {
		t.Errorf("d = %v", d)
	}
}

func TestBijection_WideRange(t *testing.T) {
	// Every day across a span that includes leap years and year
	// boundaries must survive the round trip.
	start := time.Date(1999, time.December, 25, 0, 0, 0, 0, time.UTC)
	end := time.Date(2004, time.January, 5, 0, 0, 0, 0, time.UTC)
	for ts := start; ts.Before(end); ts = ts.AddDate(0, 0, 1) {
		d := entry.DateOf(ts)
		got, ok := DateFor(PathFor(d))
		if !ok {
			t.Fatalf("DateFor(PathFor(%v)) did not match", d)
		}
		if got != d {
			t.Fatalf("round trip %v -> %v", d, got)
		}
	}

	leap := entry.Date{Year: 2024, Month: time.February, Day: 29}
	if got, ok := DateFor(PathFor(leap)); !ok || got != leap {
		t.Errorf("leap day round trip failed: %v %v", got, ok)
	}
}
