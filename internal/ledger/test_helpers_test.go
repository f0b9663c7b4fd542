package ledger

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// fakeStore is an in-memory Store that counts saves and can be told to fail.
type fakeStore struct {
	mu      sync.Mutex
	book    Book
	saves   int
	loadErr error
	saveErr error
}

func newFakeStore(b Book) *fakeStore {
	if b == nil {
		b = Book{}
	}
	return &fakeStore{book: b.Clone()}
}

func (s *fakeStore) LoadAttendance(ctx context.Context) (Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	return s.book.Clone(), nil
}

func (s *fakeStore) SaveAttendance(ctx context.Context, b Book) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	s.book = b.Clone()
	s.saves++
	return nil
}

func (s *fakeStore) snapshot() Book {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.book.Clone()
}

func (s *fakeStore) saveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

var errDiskFull = errors.New("disk full")

// at builds a local timestamp on the given date.
func at(t *testing.T, date, clock string) time.Time {
	t.Helper()
	ts, err := time.ParseInLocation("2006-01-02 15:04:05", date+" "+clock, time.Local)
	if err != nil {
		t.Fatalf("bad timestamp %s %s: %v", date, clock, err)
	}
	return ts
}

func tp(t time.Time) *time.Time { return &t }
