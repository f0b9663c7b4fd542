// Package detector runs the card-presence polling loop.
//
// The detector owns the tracked presence state (none, or one card) and turns
// raw presence answers into edges: a rising edge reads the card and calls
// Handler.CardPresented, a falling edge calls Handler.CardRemoved. Ticks
// with no change are no-ops.
package detector

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/roach88/rollcall/internal/clock"
	"github.com/roach88/rollcall/internal/fault"
	"github.com/roach88/rollcall/internal/reader"
)

// Defaults for the polling loop.
const (
	DefaultInterval     = 500 * time.Millisecond
	DefaultReadAttempts = 3
	DefaultRetryDelay   = 100 * time.Millisecond
	DefaultErrorBackoff = time.Second
)

// Source answers the three questions asked on every tick.
// *reader.Reader is the production implementation.
type Source interface {
	CheckPresent() (bool, error)
	ReadUID() (string, error)
	ReadInfo() (reader.CardInfo, error)
}

// Handler receives presence edges. Calls are made from the detector
// goroutine, one at a time.
type Handler interface {
	CardPresented(ctx context.Context, card Card)
	CardRemoved(ctx context.Context)
	CardReadFailed(ctx context.Context, err error)
}

// Card is the card currently tracked as present.
type Card struct {
	UID  string
	Info *reader.CardInfo // nil if the ATR could not be read
	Seen time.Time
}

// Detector polls a Source while active.
//
// Thread-safety: Start, Stop, Active and Current are safe from any
// goroutine. Only one polling loop ever runs; each Start bumps a generation
// counter and a loop exits as soon as its generation is no longer current.
type Detector struct {
	source  Source
	handler Handler
	clock   clock.Clock

	interval     time.Duration
	attempts     int
	retryDelay   time.Duration
	errorBackoff time.Duration

	mu      sync.Mutex
	active  bool
	gen     uint64
	current *Card
	done    chan struct{}
}

// Option configures a Detector.
type Option func(*Detector)

// WithInterval sets the poll interval.
func WithInterval(d time.Duration) Option {
	return func(det *Detector) { det.interval = d }
}

// WithReadAttempts sets how many UID reads a rising edge tries.
func WithReadAttempts(n int) Option {
	return func(det *Detector) {
		if n > 0 {
			det.attempts = n
		}
	}
}

// WithRetryDelay sets the pause between UID read attempts.
func WithRetryDelay(d time.Duration) Option {
	return func(det *Detector) { det.retryDelay = d }
}

// WithErrorBackoff sets the sleep after a hardware error.
func WithErrorBackoff(d time.Duration) Option {
	return func(det *Detector) { det.errorBackoff = d }
}

// WithClock replaces the wall clock.
func WithClock(c clock.Clock) Option {
	return func(det *Detector) { det.clock = c }
}

// New creates a stopped detector.
func New(src Source, h Handler, opts ...Option) *Detector {
	d := &Detector{
		source:       src,
		handler:      h,
		clock:        clock.Real(),
		interval:     DefaultInterval,
		attempts:     DefaultReadAttempts,
		retryDelay:   DefaultRetryDelay,
		errorBackoff: DefaultErrorBackoff,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Start launches the polling loop. Returns false if it was already running.
//
// The loop runs on a context detached from ctx's cancellation so that a
// request-scoped caller does not stop detection when its request ends.
func (d *Detector) Start(ctx context.Context) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.active {
		return false
	}
	d.active = true
	d.gen++
	d.current = nil
	d.done = make(chan struct{})

	go d.run(context.WithoutCancel(ctx), d.gen, d.done)
	slog.Info("card detection started", "generation", d.gen)
	return true
}

// Stop asks the loop to exit. Returns false if it was not running. The loop
// notices at its next check, so Stop does not wait for it.
func (d *Detector) Stop() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.active {
		return false
	}
	d.active = false
	d.gen++
	slog.Info("card detection stopped")
	return true
}

// Done returns a channel closed when the most recently started loop exits.
// It is nil before the first Start.
func (d *Detector) Done() <-chan struct{} {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.done
}

// Active reports whether detection is on.
func (d *Detector) Active() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.active
}

// Current returns the tracked card, if any.
func (d *Detector) Current() (Card, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.current == nil {
		return Card{}, false
	}
	c := *d.current
	if c.Info != nil {
		info := *c.Info
		c.Info = &info
	}
	return c, true
}

func (d *Detector) running(gen uint64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.active && d.gen == gen
}

func (d *Detector) run(ctx context.Context, gen uint64, done chan struct{}) {
	defer close(done)
	for d.running(gen) {
		wait := d.tick(ctx, gen)
		if !d.running(gen) {
			break
		}
		d.clock.Sleep(wait)
	}
	slog.Debug("card detection loop exited", "generation", gen)
}

// tick runs one poll and returns how long to sleep before the next.
func (d *Detector) tick(ctx context.Context, gen uint64) time.Duration {
	wait := d.interval

	present, err := d.source.CheckPresent()
	if err != nil {
		slog.Warn("card presence check failed", "error", err)
		present = false
		wait = d.errorBackoff
	}

	d.mu.Lock()
	tracked := d.current
	d.mu.Unlock()

	switch {
	case present && tracked == nil:
		d.cardArrived(ctx, gen)
	case !present && tracked != nil:
		d.cardLeft(ctx, gen, tracked)
	}
	return wait
}

// cardLeft clears presence only if gen is current and d.current is still the
// card this loop saw.
func (d *Detector) cardLeft(ctx context.Context, gen uint64, tracked *Card) {
	d.mu.Lock()
	if !d.active || d.gen != gen || d.current != tracked {
		d.mu.Unlock()
		return
	}
	d.current = nil
	d.mu.Unlock()

	slog.Debug("card removed")
	d.handler.CardRemoved(ctx)
}

func (d *Detector) cardArrived(ctx context.Context, gen uint64) {
	var (
		uid string
		err error
	)
	for attempt := 1; attempt <= d.attempts; attempt++ {
		uid, err = d.source.ReadUID()
		if err == nil {
			break
		}
		slog.Debug("uid read failed", "attempt", attempt, "error", err)
		if attempt < d.attempts {
			if !d.running(gen) {
				return
			}
			d.clock.Sleep(d.retryDelay)
		}
	}
	if err != nil {
		if !d.running(gen) {
			return
		}
		// Presence stays none so the next tick is a fresh rising edge.
		rf := fault.ReadFailed("detector.read_uid", d.attempts, err)
		slog.Warn("card read failed", "error", rf)
		d.handler.CardReadFailed(ctx, rf)
		return
	}

	card := Card{UID: uid, Seen: d.clock.Now()}
	if info, err := d.source.ReadInfo(); err != nil {
		slog.Warn("card info read failed", "uid", uid, "error", err)
	} else {
		card.Info = &info
	}

	d.mu.Lock()
	if !d.active || d.gen != gen {
		d.mu.Unlock()
		return
	}
	d.current = &card
	d.mu.Unlock()

	slog.Debug("card detected", "uid", uid)
	d.handler.CardPresented(ctx, card)
}
