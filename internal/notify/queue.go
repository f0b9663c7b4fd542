// Package notify hands status events from the detector goroutine to pollers.
//
// The queue is FIFO with one producer and any number of racing consumers.
// Each event is delivered to at most one TryPop caller.
package notify

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/roach88/rollcall/internal/reader"
)

// DefaultMaxPending bounds the queue when no limit is configured.
const DefaultMaxPending = 1024

// Status values carried by events.
const (
	StatusCardDetected   = "card_detected"
	StatusCardRemoved    = "card_removed"
	StatusCardReadFailed = "card_read_failed"
)

// Action values describing what the engine did with a detected card.
const (
	ActionSignedIn      = "signed_in"
	ActionSignedOut     = "signed_out"
	ActionSignOutFailed = "sign_out_failed"

	// ActionSaveFailed marks a registered card whose sign-in or sign-out
	// could not be written. Message says which.
	ActionSaveFailed = "save_failed"
)

// Event is one presence or attendance change.
type Event struct {
	ID        string           `json:"id"`
	Status    string           `json:"status"`
	UID       string           `json:"uid,omitempty"`
	Name      string           `json:"name,omitempty"`
	Info      *reader.CardInfo `json:"info,omitempty"`
	Action    string           `json:"action,omitempty"`
	Message   string           `json:"message,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
}

// IDGenerator produces event IDs.
// Implemented by UUIDv7Generator (production) and testutil.SequenceIDGenerator.
type IDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 event IDs.
//
// Thread-safety: stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate creates a new UUIDv7 as a hyphenated string.
// Panics if UUID generation fails (should never happen in practice).
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// Queue is a thread-safe FIFO of events.
//
// The queue uses a buffered channel of size 1 to signal availability, so
// consumers can select on Wait() alongside ctx.Done().
type Queue struct {
	mu         sync.Mutex
	events     []Event
	closed     bool
	maxPending int
	dropped    int
	ids        IDGenerator
	signal     chan struct{}
}

// QueueOption configures a Queue.
type QueueOption func(*Queue)

// WithMaxPending bounds the queue. When full, the oldest event is dropped.
// Zero means unbounded.
func WithMaxPending(n int) QueueOption {
	return func(q *Queue) {
		if n >= 0 {
			q.maxPending = n
		}
	}
}

// WithIDGenerator replaces the UUIDv7 generator.
func WithIDGenerator(g IDGenerator) QueueOption {
	return func(q *Queue) { q.ids = g }
}

// NewQueue creates an empty queue.
func NewQueue(opts ...QueueOption) *Queue {
	q := &Queue{
		events:     make([]Event, 0, 64),
		maxPending: DefaultMaxPending,
		ids:        UUIDv7Generator{},
		signal:     make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Push appends e, assigning an ID if it has none. Returns false if the
// queue is closed.
func (q *Queue) Push(e Event) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}
	if e.ID == "" {
		e.ID = q.ids.Generate()
	}

	if q.maxPending > 0 && len(q.events) >= q.maxPending {
		oldest := q.events[0]
		q.events[0] = Event{}
		q.events = q.events[1:]
		q.dropped++
		slog.Warn("status queue full, dropping oldest event",
			"dropped_id", oldest.ID,
			"dropped_status", oldest.Status,
			"max_pending", q.maxPending,
		)
	}
	q.events = append(q.events, e)

	// Non-blocking: the buffer of 1 coalesces signals.
	select {
	case q.signal <- struct{}{}:
	default:
	}
	return true
}

// TryPop removes and returns the oldest event without blocking.
func (q *Queue) TryPop() (Event, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.events) == 0 {
		return Event{}, false
	}

	e := q.events[0]
	q.events[0] = Event{} // release Info pointer
	if len(q.events) == 1 {
		q.events = q.events[:0]
	} else {
		q.events = q.events[1:]
	}
	return e, true
}

// Wait returns a channel that signals when events may be available.
//
//	select {
//	case <-ctx.Done():
//	    return ctx.Err()
//	case <-q.Wait():
//	    // TryPop
//	}
func (q *Queue) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the number of pending events.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events)
}

// Dropped returns how many events were discarded because the queue was full.
func (q *Queue) Dropped() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}

// Close stops further pushes and wakes waiters. Pending events can still
// be popped.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	close(q.signal)
}
