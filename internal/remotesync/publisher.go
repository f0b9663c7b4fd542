// Package remotesync replicates the attendance ledger to a remote endpoint.
//
// Replication is best-effort: failures are logged and never retried, and a
// failed publish never undoes the local write that triggered it.
package remotesync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/roach88/rollcall/internal/fault"
	"github.com/roach88/rollcall/internal/ledger"
	"github.com/roach88/rollcall/internal/registry"
)

// DefaultTimeout bounds a single publish.
const DefaultTimeout = 10 * time.Second

// Payload is the request body.
//
// Attendance is a ledger.Day (uid to record) for a delta publish and a
// ledger.Book (date to day) for a full snapshot.
type Payload struct {
	Date       string         `json:"date,omitempty"`
	Attendance any            `json:"attendance"`
	CardNames  registry.Names `json:"card_names"`
}

// DeltaPayload carries one day's records and the full registry.
func DeltaPayload(date string, day ledger.Day, names registry.Names) Payload {
	if day == nil {
		day = ledger.Day{}
	}
	if names == nil {
		names = registry.Names{}
	}
	return Payload{Date: date, Attendance: day, CardNames: names}
}

// SnapshotPayload carries the whole ledger and registry.
func SnapshotPayload(book ledger.Book, names registry.Names) Payload {
	if book == nil {
		book = ledger.Book{}
	}
	if names == nil {
		names = registry.Names{}
	}
	return Payload{Attendance: book, CardNames: names}
}

// SnapshotFunc builds the payload for a periodic full sync.
type SnapshotFunc func(ctx context.Context) (Payload, error)

// Config configures a Publisher. An empty URL disables publishing.
type Config struct {
	URL     string
	Token   string
	Timeout time.Duration
}

// Publisher sends payloads to the configured endpoint.
//
// Thread-safety: safe for concurrent use.
type Publisher struct {
	cfg Config
	wg  sync.WaitGroup
}

// New creates a publisher.
func New(cfg Config) *Publisher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Publisher{cfg: cfg}
}

// Enabled reports whether a remote URL is configured.
func (p *Publisher) Enabled() bool {
	return p.cfg.URL != ""
}

// Publish sends pl and waits for the response. A disabled publisher returns
// nil without sending. Transport errors and non-2xx responses are
// fault.RemoteSync errors.
func (p *Publisher) Publish(ctx context.Context, pl Payload) error {
	if !p.Enabled() {
		slog.Debug("remote sync disabled, skipping publish")
		return nil
	}
	if err := ctx.Err(); err != nil {
		return fault.RemoteSync("remotesync.publish", err)
	}

	timeout := p.cfg.Timeout
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); left < timeout {
			timeout = left
		}
	}

	agent := fiber.Post(p.cfg.URL)
	agent.JSON(pl)
	agent.Timeout(timeout)
	if p.cfg.Token != "" {
		agent.Set(fiber.HeaderAuthorization, "Bearer "+p.cfg.Token)
	}
	if err := agent.Parse(); err != nil {
		fiber.ReleaseAgent(agent)
		return fault.RemoteSync("remotesync.publish", err)
	}

	code, body, errs := agent.Bytes()
	if len(errs) > 0 {
		return fault.RemoteSync("remotesync.publish", errors.Join(errs...))
	}
	if code < 200 || code > 299 {
		return fault.RemoteSync("remotesync.publish",
			fmt.Errorf("remote returned %d: %s", code, truncate(body, 200)))
	}
	return nil
}

// PublishAsync publishes pl on its own goroutine and logs the outcome. The
// goroutine is not tied to any request context.
func (p *Publisher) PublishAsync(pl Payload) {
	if !p.Enabled() {
		return
	}
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		if err := p.Publish(context.Background(), pl); err != nil {
			slog.Warn("remote sync failed", "date", pl.Date, "error", err)
			return
		}
		slog.Debug("remote sync delivered", "date", pl.Date)
	}()
}

// Wait blocks until in-flight async publishes finish.
func (p *Publisher) Wait() {
	p.wg.Wait()
}

// RunPeriodic publishes a full snapshot every interval until ctx is done.
// A non-positive interval or a disabled publisher returns immediately.
func (p *Publisher) RunPeriodic(ctx context.Context, interval time.Duration, snapshot SnapshotFunc) {
	if interval <= 0 || !p.Enabled() {
		return
	}

	slog.Info("periodic remote sync started", "interval", interval)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("periodic remote sync stopped")
			return
		case <-ticker.C:
			pl, err := snapshot(ctx)
			if err != nil {
				slog.Warn("periodic sync snapshot failed", "error", err)
				continue
			}
			if err := p.Publish(ctx, pl); err != nil {
				slog.Warn("periodic remote sync failed", "error", err)
				continue
			}
			slog.Debug("periodic remote sync delivered")
		}
	}
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
