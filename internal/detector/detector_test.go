package detector

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/rollcall/internal/fault"
	"github.com/roach88/rollcall/internal/reader"
	"github.com/roach88/rollcall/internal/testutil"
)

type recordingHandler struct {
	mu     sync.Mutex
	events []string
	cards  []Card
	errs   []error
}

func (h *recordingHandler) CardPresented(_ context.Context, c Card) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, "presented:"+c.UID)
	h.cards = append(h.cards, c)
}

func (h *recordingHandler) CardRemoved(context.Context) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, "removed")
}

func (h *recordingHandler) CardReadFailed(_ context.Context, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, "read_failed")
	h.errs = append(h.errs, err)
}

func (h *recordingHandler) Events() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.events...)
}

var classic = reader.CardInfo{CardName: "MIFARE Classic 1K", T0Supported: true, T1Supported: true}

// newArmed builds a detector whose tick can be driven directly.
func newArmed(t *testing.T, src Source) (*Detector, *recordingHandler, *testutil.ManualClock) {
	t.Helper()
	h := &recordingHandler{}
	clk := testutil.NewManualClock(time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC))
	d := New(src, h, WithClock(clk))
	d.active = true
	d.gen = 1
	return d, h, clk
}

func TestTick_RisingEdgePresentsCardOnce(t *testing.T) {
	src := testutil.NewScriptedReader().
		QueuePresence(true, true, true).
		QueueUID("04 A1 B2 C3", nil).
		SetInfo(classic, nil)
	d, h, _ := newArmed(t, src)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		assert.Equal(t, DefaultInterval, d.tick(ctx, 1))
	}

	assert.Equal(t, []string{"presented:04 A1 B2 C3"}, h.Events())
	assert.Equal(t, 1, src.UIDReads())

	card, ok := d.Current()
	require.True(t, ok)
	assert.Equal(t, "04 A1 B2 C3", card.UID)
	require.NotNil(t, card.Info)
	assert.Equal(t, classic, *card.Info)
}

func TestTick_FallingEdge(t *testing.T) {
	src := testutil.NewScriptedReader().
		QueuePresence(true, false, false).
		QueueUID("04 A1", nil)
	d, h, _ := newArmed(t, src)
	ctx := context.Background()

	d.tick(ctx, 1)
	d.tick(ctx, 1)
	d.tick(ctx, 1)

	assert.Equal(t, []string{"presented:04 A1", "removed"}, h.Events())
	_, ok := d.Current()
	assert.False(t, ok)
}

func TestTick_RetriesUIDRead(t *testing.T) {
	flaky := errors.New("flaky")
	src := testutil.NewScriptedReader().
		QueuePresence(true).
		QueueUID("", flaky).
		QueueUID("04 A1", nil)
	d, h, clk := newArmed(t, src)

	d.tick(context.Background(), 1)

	assert.Equal(t, []string{"presented:04 A1"}, h.Events())
	assert.Equal(t, 2, src.UIDReads())
	assert.Equal(t, []time.Duration{DefaultRetryDelay}, clk.Sleeps())
}

func TestTick_FailedReadEmitsOnceAndResetsPresence(t *testing.T) {
	bad := errors.New("bad read")
	src := testutil.NewScriptedReader().
		QueuePresence(true).
		QueueUID("", bad).QueueUID("", bad).QueueUID("", bad)
	d, h, clk := newArmed(t, src)

	d.tick(context.Background(), 1)

	assert.Equal(t, []string{"read_failed"}, h.Events())
	assert.Equal(t, DefaultReadAttempts, src.UIDReads())
	assert.Equal(t, []time.Duration{DefaultRetryDelay, DefaultRetryDelay}, clk.Sleeps())
	require.Len(t, h.errs, 1)
	assert.True(t, fault.IsCardReadFailed(h.errs[0]))
	assert.ErrorIs(t, h.errs[0], bad)

	_, ok := d.Current()
	assert.False(t, ok, "presence must be none after a failed read")

	// Card still there: the next tick is a fresh rising edge.
	src.QueueUID("04 A1", nil)
	d.tick(context.Background(), 1)
	assert.Equal(t, []string{"read_failed", "presented:04 A1"}, h.Events())
}

func TestTick_HardwareErrorBacksOffAndCountsAsAbsent(t *testing.T) {
	src := testutil.NewScriptedReader().
		QueuePresence(true).
		QueueUID("04 A1", nil).
		QueuePresenceError(fault.Hardware("reader", errors.New("unplugged")))
	d, h, _ := newArmed(t, src)
	ctx := context.Background()

	assert.Equal(t, DefaultInterval, d.tick(ctx, 1))
	assert.Equal(t, DefaultErrorBackoff, d.tick(ctx, 1))

	assert.Equal(t, []string{"presented:04 A1", "removed"}, h.Events())
}

func TestTick_InfoFailureStillPresents(t *testing.T) {
	src := testutil.NewScriptedReader().
		QueuePresence(true).
		QueueUID("04 A1", nil).
		SetInfo(reader.CardInfo{}, errors.New("no atr"))
	d, h, _ := newArmed(t, src)

	d.tick(context.Background(), 1)

	require.Len(t, h.cards, 1)
	assert.Nil(t, h.cards[0].Info)
}

func TestTick_StopDuringRetryAbandonsRead(t *testing.T) {
	src := testutil.NewScriptedReader().
		QueuePresence(true).
		QueueUID("", errors.New("bad"))
	d, h, _ := newArmed(t, src)
	d.active = false

	d.tick(context.Background(), 1)

	assert.Empty(t, h.Events())
	assert.Equal(t, 1, src.UIDReads())
}

func TestStartStop_Idempotent(t *testing.T) {
	sim := reader.NewSimulated("")
	h := &recordingHandler{}
	d := New(reader.New(sim), h, WithInterval(time.Millisecond))

	assert.False(t, d.Stop(), "stop before start")
	assert.True(t, d.Start(context.Background()))
	assert.False(t, d.Start(context.Background()), "second start is a no-op")
	assert.True(t, d.Active())

	require.NoError(t, sim.Place("04 A1 B2 C3", nil))
	require.Eventually(t, func() bool {
		_, ok := d.Current()
		return ok
	}, time.Second, time.Millisecond)

	done := d.Done()
	assert.True(t, d.Stop())
	assert.False(t, d.Stop())
	assert.False(t, d.Active())

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("loop did not exit after Stop")
	}
	assert.Equal(t, []string{"presented:04 A1 B2 C3"}, h.Events())
}

func TestRestart_OldLoopExits(t *testing.T) {
	d := New(reader.New(reader.NewSimulated("")), &recordingHandler{}, WithInterval(time.Millisecond))

	require.True(t, d.Start(context.Background()))
	first := d.Done()
	require.True(t, d.Stop())
	require.True(t, d.Start(context.Background()))
	second := d.Done()

	select {
	case <-first:
	case <-time.After(time.Second):
		t.Fatal("first loop still running after restart")
	}
	select {
	case <-second:
		t.Fatal("second loop exited early")
	default:
	}

	d.Stop()
	<-second
}

// gatedSource reports a card on every check except the second, which blocks
// until released and then reports an empty field.
type gatedSource struct {
	mu      sync.Mutex
	checks  int
	blocked chan struct{}
	release chan struct{}
}

func newGatedSource() *gatedSource {
	return &gatedSource{blocked: make(chan struct{}), release: make(chan struct{})}
}

func (s *gatedSource) CheckPresent() (bool, error) {
	s.mu.Lock()
	s.checks++
	n := s.checks
	s.mu.Unlock()
	if n == 2 {
		close(s.blocked)
		<-s.release
		return false, nil
	}
	return true, nil
}

func (s *gatedSource) ReadUID() (string, error) { return "04 A1", nil }

func (s *gatedSource) ReadInfo() (reader.CardInfo, error) { return classic, nil }

func TestRestart_StaleAnswerDoesNotRemoveCard(t *testing.T) {
	src := newGatedSource()
	h := &recordingHandler{}
	d := New(src, h, WithInterval(time.Millisecond))

	require.True(t, d.Start(context.Background()))
	first := d.Done()
	<-src.blocked

	require.True(t, d.Stop())
	require.True(t, d.Start(context.Background()))
	second := d.Done()
	require.Eventually(t, func() bool {
		_, ok := d.Current()
		return ok
	}, time.Second, time.Millisecond)

	close(src.release)
	select {
	case <-first:
	case <-time.After(time.Second):
		t.Fatal("first loop still running after restart")
	}
	time.Sleep(20 * time.Millisecond)

	_, ok := d.Current()
	assert.True(t, ok, "card must stay tracked")
	d.Stop()
	<-second
	assert.Equal(t, []string{"presented:04 A1", "presented:04 A1"}, h.Events())
}

func TestTick_StaleLoopDropsReadFailure(t *testing.T) {
	src := testutil.NewScriptedReader().
		QueuePresence(true).
		QueueUID("", errors.New("bad"))
	d, h, _ := newArmed(t, src)
	d.attempts = 1
	d.gen = 2

	d.tick(context.Background(), 1)

	assert.Empty(t, h.Events())
	_, ok := d.Current()
	assert.False(t, ok)
}

func TestTick_StaleLoopKeepsNewerCard(t *testing.T) {
	src := testutil.NewScriptedReader().QueuePresence(false)
	d, h, _ := newArmed(t, src)
	newer := &Card{UID: "04 A1"}
	d.current = newer
	d.gen = 3

	d.tick(context.Background(), 1)

	assert.Empty(t, h.Events())
	card, ok := d.Current()
	require.True(t, ok)
	assert.Equal(t, "04 A1", card.UID)
}
