package store

import (
	"context"
	"sync"

	"github.com/roach88/rollcall/internal/ledger"
	"github.com/roach88/rollcall/internal/registry"
)

// Memory is an in-process backend. Loads and saves deep-copy, so callers
// never share maps with the store.
type Memory struct {
	mu    sync.Mutex
	book  ledger.Book
	names registry.Names
}

// NewMemory returns an empty in-memory backend.
func NewMemory() *Memory {
	return &Memory{book: ledger.Book{}, names: registry.Names{}}
}

// Close is a no-op.
func (m *Memory) Close() error { return nil }

func (m *Memory) LoadAttendance(ctx context.Context) (ledger.Book, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.book.Clone(), nil
}

func (m *Memory) SaveAttendance(ctx context.Context, b ledger.Book) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.book = b.Clone()
	if m.book == nil {
		m.book = ledger.Book{}
	}
	return nil
}

func (m *Memory) LoadNames(ctx context.Context) (registry.Names, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.names.Clone(), nil
}

func (m *Memory) SaveNames(ctx context.Context, n registry.Names) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.names = n.Clone()
	return nil
}
