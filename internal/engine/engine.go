package engine

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/roach88/rollcall/internal/clock"
	"github.com/roach88/rollcall/internal/detector"
	"github.com/roach88/rollcall/internal/fault"
	"github.com/roach88/rollcall/internal/ledger"
	"github.com/roach88/rollcall/internal/mode"
	"github.com/roach88/rollcall/internal/notify"
	"github.com/roach88/rollcall/internal/reader"
	"github.com/roach88/rollcall/internal/registry"
	"github.com/roach88/rollcall/internal/remotesync"
)

// Publisher replicates ledger changes. *remotesync.Publisher implements it.
type Publisher interface {
	Enabled() bool
	Publish(ctx context.Context, pl remotesync.Payload) error
	PublishAsync(pl remotesync.Payload)
}

// namedReader is implemented by sources that know about the attached reader.
type namedReader interface {
	Name() string
	Connected() bool
}

// Engine is the attendance engine.
//
// Thread-safety: every exported method is safe from any goroutine.
type Engine struct {
	ledger    *ledger.Ledger
	registry  *registry.Registry
	mode      *mode.Controller
	queue     *notify.Queue
	publisher Publisher
	clock     clock.Clock
	source    detector.Source
	detector  *detector.Detector

	detectorOpts []detector.Option
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock replaces the wall clock for the engine and its detector.
func WithClock(c clock.Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithQueue replaces the default status queue.
func WithQueue(q *notify.Queue) Option {
	return func(e *Engine) { e.queue = q }
}

// WithPublisher enables remote replication.
func WithPublisher(p Publisher) Option {
	return func(e *Engine) { e.publisher = p }
}

// WithMode sets the initial mode.
func WithMode(m mode.Mode) Option {
	return func(e *Engine) { e.mode.Set(m) }
}

// WithDetectorOptions passes options through to the detector.
func WithDetectorOptions(opts ...detector.Option) Option {
	return func(e *Engine) { e.detectorOpts = append(e.detectorOpts, opts...) }
}

// New wires an engine over the given ledger, registry and card source.
func New(l *ledger.Ledger, r *registry.Registry, src detector.Source, opts ...Option) *Engine {
	e := &Engine{
		ledger:    l,
		registry:  r,
		mode:      mode.NewController(mode.SignIn),
		queue:     notify.NewQueue(),
		publisher: remotesync.New(remotesync.Config{}),
		clock:     clock.Real(),
		source:    src,
	}
	for _, opt := range opts {
		opt(e)
	}

	dopts := append([]detector.Option{detector.WithClock(e.clock)}, e.detectorOpts...)
	e.detector = detector.New(src, e, dopts...)
	return e
}

// Queue returns the status queue.
func (e *Engine) Queue() *notify.Queue {
	return e.queue
}

// StartDetection starts the polling loop. Returns a hardware fault when no
// reader is attached.
func (e *Engine) StartDetection(ctx context.Context) (bool, error) {
	if err := e.requireReader("engine.start_detection"); err != nil {
		return false, err
	}
	return e.detector.Start(ctx), nil
}

// StopDetection stops the polling loop.
func (e *Engine) StopDetection() bool {
	return e.detector.Stop()
}

// DetectionActive reports whether the polling loop is on.
func (e *Engine) DetectionActive() bool {
	return e.detector.Active()
}

// SetMode switches between sign-in and sign-out.
func (e *Engine) SetMode(m mode.Mode) {
	e.mode.Set(m)
	slog.Info("mode changed", "mode", m)
}

// Mode returns the current mode.
func (e *Engine) Mode() mode.Mode {
	return e.mode.Get()
}

// PollUpdate pops the oldest pending status event, or nil if none.
func (e *Engine) PollUpdate() *notify.Event {
	ev, ok := e.queue.TryPop()
	if !ok {
		return nil
	}
	return &ev
}

// Snapshot is the status of the reader, card and detector.
type Snapshot struct {
	ReaderConnected bool             `json:"readerConnected"`
	ReaderName      string           `json:"readerName,omitempty"`
	CardPresent     bool             `json:"cardPresent"`
	CardUID         string           `json:"cardUid,omitempty"`
	CardName        string           `json:"cardName,omitempty"`
	CardInfo        *reader.CardInfo `json:"cardInfo,omitempty"`
	DetectionActive bool             `json:"detectionActive"`
	Mode            mode.Mode        `json:"mode"`
	PendingEvents   int              `json:"pendingEvents"`
}

// Status reports the current snapshot. While detection runs the tracked card
// is reported; otherwise the reader is probed once.
func (e *Engine) Status(ctx context.Context) Snapshot {
	snap := Snapshot{
		ReaderConnected: true,
		DetectionActive: e.detector.Active(),
		Mode:            e.mode.Get(),
		PendingEvents:   e.queue.Len(),
	}
	if nr, ok := e.source.(namedReader); ok {
		snap.ReaderConnected = nr.Connected()
		snap.ReaderName = nr.Name()
	}

	if snap.DetectionActive {
		if card, ok := e.detector.Current(); ok {
			snap.CardPresent = true
			snap.CardUID = card.UID
			snap.CardInfo = card.Info
		}
	} else if snap.ReaderConnected {
		present, err := e.source.CheckPresent()
		if err != nil {
			slog.Debug("status probe failed", "error", err)
		}
		if present {
			snap.CardPresent = true
			if uid, err := e.source.ReadUID(); err == nil {
				snap.CardUID = uid
			}
			if info, err := e.source.ReadInfo(); err == nil {
				snap.CardInfo = &info
			}
		}
	}

	if snap.CardUID != "" {
		snap.CardName = e.nameOf(ctx, snap.CardUID)
	}
	return snap
}

// ReadCardUID reads the UID of the card on the reader right now, whether or
// not detection is running.
func (e *Engine) ReadCardUID() (string, error) {
	if err := e.requireReader("engine.read_uid"); err != nil {
		return "", err
	}
	uid, err := e.source.ReadUID()
	if err != nil {
		if fault.IsHardwareUnavailable(err) {
			return "", err
		}
		return "", fault.ReadFailed("engine.read_uid", 1, err)
	}
	return uid, nil
}

// ReadCardInfo reads and decodes the ATR of the card on the reader.
func (e *Engine) ReadCardInfo() (reader.CardInfo, error) {
	if err := e.requireReader("engine.read_info"); err != nil {
		return reader.CardInfo{}, err
	}
	info, err := e.source.ReadInfo()
	if err != nil {
		if fault.IsHardwareUnavailable(err) {
			return reader.CardInfo{}, err
		}
		return reader.CardInfo{}, fault.ReadFailed("engine.read_info", 1, err)
	}
	return info, nil
}

func (e *Engine) requireReader(op string) error {
	if nr, ok := e.source.(namedReader); ok && !nr.Connected() {
		return fault.Hardware(op, errors.New("no readers available"))
	}
	return nil
}

// nameOf returns uid's registered name, or "" if it has none or the registry
// cannot be read.
func (e *Engine) nameOf(ctx context.Context, uid string) string {
	name, _, err := e.registry.Get(ctx, uid)
	if err != nil {
		slog.Warn("registry lookup failed", "uid", uid, "error", err)
		return ""
	}
	return name
}

// Shutdown stops detection, waits for the polling loop to exit, closes the
// status queue and waits for in-flight publishes. Each wait ends early if ctx
// does.
//
// The loop must be gone before the publisher wait starts: a tick still in
// flight can queue one more publish.
func (e *Engine) Shutdown(ctx context.Context) {
	e.detector.Stop()
	if loop := e.detector.Done(); loop != nil {
		select {
		case <-loop:
		case <-ctx.Done():
			slog.Warn("shutdown: card detection loop still running")
		}
	}
	e.queue.Close()

	type waiter interface{ Wait() }
	w, ok := e.publisher.(waiter)
	if !ok {
		return
	}
	done := make(chan struct{})
	go func() {
		w.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		slog.Warn("shutdown: abandoning in-flight remote syncs")
	}
}

func (e *Engine) now() time.Time {
	return e.clock.Now()
}
