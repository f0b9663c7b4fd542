package engine

import (
	"context"
	"errors"

	"github.com/roach88/rollcall/internal/fault"
	"github.com/roach88/rollcall/internal/ledger"
	"github.com/roach88/rollcall/internal/registry"
	"github.com/roach88/rollcall/internal/remotesync"
)

// ManualResult is the outcome of a manual sign-in or sign-out.
type ManualResult struct {
	UID    string        `json:"uid"`
	Name   string        `json:"name,omitempty"`
	Record ledger.Record `json:"record"`
}

// RecordSignIn signs uid in now. Any valid UID is accepted, registered or not.
func (e *Engine) RecordSignIn(ctx context.Context, uid string) (ManualResult, error) {
	canonical, err := registry.NormalizeUID(uid)
	if err != nil {
		return ManualResult{}, err
	}
	now := e.now()

	rec, err := e.ledger.RecordSignIn(ctx, canonical, now)
	if err != nil {
		return ManualResult{}, err
	}
	e.publishDelta(ctx, now)

	return ManualResult{UID: canonical, Name: e.nameOf(ctx, canonical), Record: rec}, nil
}

// RecordSignOut signs uid out now. Without an open sign-in today it returns
// a validation fault.
func (e *Engine) RecordSignOut(ctx context.Context, uid string) (ManualResult, error) {
	canonical, err := registry.NormalizeUID(uid)
	if err != nil {
		return ManualResult{}, err
	}
	now := e.now()

	rec, closed, err := e.ledger.RecordSignOut(ctx, canonical, now)
	if err != nil {
		return ManualResult{}, err
	}
	if !closed {
		return ManualResult{}, fault.Validation("engine.sign_out", "no open sign-in today for "+canonical)
	}
	e.publishDelta(ctx, now)

	return ManualResult{UID: canonical, Name: e.nameOf(ctx, canonical), Record: rec}, nil
}

// AttendanceStatus reports today's status for every registered UID.
func (e *Engine) AttendanceStatus(ctx context.Context) ([]ledger.Status, error) {
	names, err := e.registry.All(ctx)
	if err != nil {
		return nil, err
	}
	return e.ledger.StatusForAll(ctx, names, e.now())
}

// Profile summarizes uid across every day on record.
func (e *Engine) Profile(ctx context.Context, uid string) (ledger.Profile, error) {
	canonical, err := registry.NormalizeUID(uid)
	if err != nil {
		return ledger.Profile{}, err
	}
	name, _, err := e.registry.Get(ctx, canonical)
	if err != nil {
		return ledger.Profile{}, err
	}
	return e.ledger.Profile(ctx, canonical, name)
}

// SetCardName registers a display name for uid.
func (e *Engine) SetCardName(ctx context.Context, uid, name string) error {
	return e.registry.Set(ctx, uid, name)
}

// CardName returns the name registered for uid.
func (e *Engine) CardName(ctx context.Context, uid string) (string, bool, error) {
	return e.registry.Get(ctx, uid)
}

// CardNames returns every registration.
func (e *Engine) CardNames(ctx context.Context) (registry.Names, error) {
	return e.registry.All(ctx)
}

// FullSnapshot builds a payload with the whole ledger and registry.
func (e *Engine) FullSnapshot(ctx context.Context) (remotesync.Payload, error) {
	book, err := e.ledger.Book(ctx)
	if err != nil {
		return remotesync.Payload{}, err
	}
	names, err := e.registry.All(ctx)
	if err != nil {
		return remotesync.Payload{}, err
	}
	return remotesync.SnapshotPayload(book, names), nil
}

// ErrSyncDisabled is returned by SyncNow when no remote is configured.
var ErrSyncDisabled = errors.New("remote sync is not configured")

// SyncNow publishes a full snapshot and waits for the result.
func (e *Engine) SyncNow(ctx context.Context) error {
	if e.publisher == nil || !e.publisher.Enabled() {
		return ErrSyncDisabled
	}
	pl, err := e.FullSnapshot(ctx)
	if err != nil {
		return err
	}
	return e.publisher.Publish(ctx, pl)
}
