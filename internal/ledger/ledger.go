// Package ledger owns the day-keyed attendance records.
//
// The ledger is pure data plus invariant-preserving mutators. Every mutation
// is a full load-modify-save of the Book under the ledger's mutex, so the
// detector goroutine and request handlers never lose each other's updates.
// The store's own durability is the store's concern.
package ledger

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/roach88/rollcall/internal/fault"
)

// Store loads and saves the whole attendance book.
type Store interface {
	LoadAttendance(ctx context.Context) (Book, error)
	SaveAttendance(ctx context.Context, b Book) error
}

// Ledger serializes access to a Store.
type Ledger struct {
	store Store
	mu    sync.Mutex
}

// New creates a ledger over the given store.
func New(s Store) *Ledger {
	return &Ledger{store: s}
}

// update runs fn against a freshly loaded book and saves it if fn reports a
// change. The mutex is held across load and save.
func (l *Ledger) update(ctx context.Context, op string, fn func(Book) (bool, error)) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	book, err := l.store.LoadAttendance(ctx)
	if err != nil {
		return fault.Storage(op, err)
	}
	if book == nil {
		book = Book{}
	}

	changed, err := fn(book)
	if err != nil || !changed {
		return err
	}

	if err := l.store.SaveAttendance(ctx, book); err != nil {
		return fault.Storage(op, err)
	}
	return nil
}

// read loads a book under the mutex for a consistent snapshot.
func (l *Ledger) read(ctx context.Context, op string) (Book, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	book, err := l.store.LoadAttendance(ctx)
	if err != nil {
		return nil, fault.Storage(op, err)
	}
	if book == nil {
		book = Book{}
	}
	return book, nil
}

// RecordSignIn opens today's record for uid.
//
// If an open record already exists only SignInTime is refreshed. Otherwise a
// fresh record replaces whatever was there. The only failure is a storage
// fault.
func (l *Ledger) RecordSignIn(ctx context.Context, uid string, now time.Time) (Record, error) {
	now = now.Round(0)
	date := DateKey(now)

	var out Record
	err := l.update(ctx, "ledger.sign_in", func(b Book) (bool, error) {
		day := b[date]
		if day == nil {
			day = Day{}
			b[date] = day
		}

		rec, ok := day[uid]
		if ok && rec.SignedIn {
			rec.SignInTime = &now
		} else {
			rec = Record{SignInTime: &now, SignedIn: true}
		}
		day[uid] = rec
		out = rec.Clone()
		return true, nil
	})
	if err != nil {
		return Record{}, err
	}

	slog.Debug("sign-in recorded", "uid", uid, "date", date)
	return out, nil
}

// RecordSignOut closes today's open record for uid.
//
// Returns false without touching the ledger when there is no record today,
// the record is not open, or the record is malformed (no sign-in time, or a
// sign-in time after now).
func (l *Ledger) RecordSignOut(ctx context.Context, uid string, now time.Time) (Record, bool, error) {
	now = now.Round(0)
	date := DateKey(now)

	var (
		out    Record
		closed bool
	)
	err := l.update(ctx, "ledger.sign_out", func(b Book) (bool, error) {
		rec, ok := b[date][uid]
		if !ok || !rec.SignedIn {
			return false, nil
		}

		if rec.SignInTime == nil {
			slog.Warn("skipping sign-out: record has no sign-in time",
				"uid", uid,
				"date", date,
			)
			return false, nil
		}

		elapsed := now.Sub(*rec.SignInTime)
		if elapsed < 0 {
			slog.Warn("skipping sign-out: sign-in time is after sign-out time",
				"uid", uid,
				"date", date,
				"sign_in_time", rec.SignInTime.Format(time.RFC3339),
			)
			return false, nil
		}

		rec.SignOutTime = &now
		rec.SignedIn = false
		rec.Hours = RoundHours(elapsed.Hours())
		b[date][uid] = rec

		out = rec.Clone()
		closed = true
		return true, nil
	})
	if err != nil {
		return Record{}, false, err
	}

	if closed {
		slog.Debug("sign-out recorded", "uid", uid, "date", date, "hours", out.Hours)
	}
	return out, closed, nil
}

// Day returns a copy of the records for one date. Unknown dates yield an
// empty day.
func (l *Ledger) Day(ctx context.Context, date string) (Day, error) {
	book, err := l.read(ctx, "ledger.day")
	if err != nil {
		return nil, err
	}
	day := book[date].Clone()
	if day == nil {
		day = Day{}
	}
	return day, nil
}

// Book returns a copy of the whole ledger.
func (l *Ledger) Book(ctx context.Context) (Book, error) {
	book, err := l.read(ctx, "ledger.book")
	if err != nil {
		return nil, err
	}
	return book.Clone(), nil
}
