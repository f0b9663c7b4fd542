package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/roach88/rollcall/internal/ledger"
)

// createTestStore opens a SQLite store in a temp dir.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// sampleBook has an open record, a closed record and an empty day.
func sampleBook(t *testing.T) ledger.Book {
	t.Helper()
	in := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	out := time.Date(2026, 3, 2, 11, 30, 0, 0, time.UTC)
	later := time.Date(2026, 3, 3, 8, 15, 0, 0, time.UTC)

	return ledger.Book{
		"2026-03-01": ledger.Day{},
		"2026-03-02": ledger.Day{
			"04 A1 B2 C3": {SignInTime: &in, SignOutTime: &out, Hours: 2.5},
		},
		"2026-03-03": ledger.Day{
			"04 A1 B2 C3": {SignInTime: &later, SignedIn: true},
			"04 00 00 01": {SignedIn: true},
		},
	}
}

// assertBooksEqual compares books using time.Equal for timestamps.
func assertBooksEqual(t *testing.T, want, got ledger.Book) {
	t.Helper()
	if len(want) != len(got) {
		t.Fatalf("book has %d days, want %d", len(got), len(want))
	}
	for day, wantDay := range want {
		gotDay, ok := got[day]
		if !ok {
			t.Fatalf("day %s missing", day)
		}
		if len(gotDay) != len(wantDay) {
			t.Fatalf("day %s has %d records, want %d", day, len(gotDay), len(wantDay))
		}
		for uid, w := range wantDay {
			g, ok := gotDay[uid]
			if !ok {
				t.Fatalf("%s/%s missing", day, uid)
			}
			if g.SignedIn != w.SignedIn || g.Hours != w.Hours {
				t.Errorf("%s/%s = %+v, want %+v", day, uid, g, w)
			}
			if !timesEqual(g.SignInTime, w.SignInTime) || !timesEqual(g.SignOutTime, w.SignOutTime) {
				t.Errorf("%s/%s timestamps = (%v, %v), want (%v, %v)",
					day, uid, g.SignInTime, g.SignOutTime, w.SignInTime, w.SignOutTime)
			}
		}
	}
}

func timesEqual(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}
