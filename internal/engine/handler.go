package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/roach88/rollcall/internal/detector"
	"github.com/roach88/rollcall/internal/ledger"
	"github.com/roach88/rollcall/internal/mode"
	"github.com/roach88/rollcall/internal/notify"
	"github.com/roach88/rollcall/internal/remotesync"
)

var _ detector.Handler = (*Engine)(nil)

// CardPresented applies the current mode to a newly detected card.
func (e *Engine) CardPresented(ctx context.Context, card detector.Card) {
	now := e.now()
	ev := notify.Event{
		Status:    notify.StatusCardDetected,
		UID:       card.UID,
		Info:      card.Info,
		Timestamp: now,
	}

	name, known, err := e.registry.Get(ctx, card.UID)
	if err != nil {
		slog.Error("registry lookup failed", "uid", card.UID, "error", err)
	}
	if !known {
		e.queue.Push(ev)
		return
	}
	ev.Name = name

	switch e.mode.Get() {
	case mode.SignOut:
		_, closed, err := e.ledger.RecordSignOut(ctx, card.UID, now)
		switch {
		case err != nil:
			slog.Error("sign-out not saved", "uid", card.UID, "error", err)
			ev.Action = notify.ActionSaveFailed
			ev.Message = "sign-out could not be saved"
		case !closed:
			ev.Action = notify.ActionSignOutFailed
			ev.Message = "no open sign-in today"
		default:
			ev.Action = notify.ActionSignedOut
			e.publishDelta(ctx, now)
		}
	default:
		if _, err := e.ledger.RecordSignIn(ctx, card.UID, now); err != nil {
			slog.Error("sign-in not saved", "uid", card.UID, "error", err)
			ev.Action = notify.ActionSaveFailed
			ev.Message = "sign-in could not be saved"
		} else {
			ev.Action = notify.ActionSignedIn
			e.publishDelta(ctx, now)
		}
	}

	slog.Info("card processed",
		"uid", card.UID,
		"name", name,
		"mode", e.mode.Get(),
		"action", ev.Action,
	)
	e.queue.Push(ev)
}

// CardRemoved reports a removal. Removal does not sign anyone out.
func (e *Engine) CardRemoved(ctx context.Context) {
	e.queue.Push(notify.Event{
		Status:    notify.StatusCardRemoved,
		Timestamp: e.now(),
	})
}

// CardReadFailed reports a card whose UID could not be read.
func (e *Engine) CardReadFailed(ctx context.Context, err error) {
	e.queue.Push(notify.Event{
		Status:    notify.StatusCardReadFailed,
		Message:   err.Error(),
		Timestamp: e.now(),
	})
}

// publishDelta sends the day containing now and the registry, without
// waiting for the remote.
func (e *Engine) publishDelta(ctx context.Context, now time.Time) {
	if e.publisher == nil || !e.publisher.Enabled() {
		return
	}
	date := ledger.DateKey(now)
	day, err := e.ledger.Day(ctx, date)
	if err != nil {
		slog.Warn("remote sync skipped: cannot read day", "date", date, "error", err)
		return
	}
	names, err := e.registry.All(ctx)
	if err != nil {
		slog.Warn("remote sync skipped: cannot read registry", "error", err)
		return
	}
	e.publisher.PublishAsync(remotesync.DeltaPayload(date, day, names))
}
