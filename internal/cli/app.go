package cli

import (
	"fmt"
	"log/slog"

	"github.com/roach88/rollcall/internal/config"
	"github.com/roach88/rollcall/internal/detector"
	"github.com/roach88/rollcall/internal/engine"
	"github.com/roach88/rollcall/internal/ledger"
	"github.com/roach88/rollcall/internal/mode"
	"github.com/roach88/rollcall/internal/notify"
	"github.com/roach88/rollcall/internal/reader"
	"github.com/roach88/rollcall/internal/registry"
	"github.com/roach88/rollcall/internal/remotesync"
	"github.com/roach88/rollcall/internal/store"
)

// app is everything a command needs, built from the loaded config.
type app struct {
	cfg       config.Config
	store     store.Backend
	ledger    *ledger.Ledger
	registry  *registry.Registry
	publisher *remotesync.Publisher
	sim       *reader.Simulated
	engine    *engine.Engine
}

// openApp loads the config and opens the store. Callers must Close it.
func openApp(opts *RootOptions) (*app, error) {
	cfg, err := config.Load(opts.ConfigPath, opts.EnvFile)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}

	location := cfg.Storage.Path
	slog.Debug("opening store", "driver", cfg.Storage.Driver, "location", location)
	st, err := store.OpenBackend(cfg.Storage.Driver, location)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open store", err)
	}

	initial, err := mode.Parse(cfg.Mode)
	if err != nil {
		_ = st.Close()
		return nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}

	a := &app{
		cfg:      cfg,
		store:    st,
		ledger:   ledger.New(st),
		registry: registry.New(st),
		publisher: remotesync.New(remotesync.Config{
			URL:     cfg.Sync.URL,
			Token:   cfg.Sync.Token,
			Timeout: cfg.Sync.Timeout.Duration,
		}),
	}

	r, err := a.reader()
	if err != nil {
		_ = st.Close()
		return nil, WrapExitError(ExitCommandError, "failed to open reader", err)
	}

	a.engine = engine.New(a.ledger, a.registry, r,
		engine.WithClock(opts.wallClock()),
		engine.WithMode(initial),
		engine.WithPublisher(a.publisher),
		engine.WithQueue(notify.NewQueue(notify.WithMaxPending(cfg.Notify.MaxPending))),
		engine.WithDetectorOptions(
			detector.WithInterval(cfg.Detector.Interval.Duration),
			detector.WithReadAttempts(cfg.Detector.ReadAttempts),
			detector.WithRetryDelay(cfg.Detector.RetryDelay.Duration),
			detector.WithErrorBackoff(cfg.Detector.ErrorBackoff.Duration),
		),
	)
	return a, nil
}

func (a *app) reader() (*reader.Reader, error) {
	switch a.cfg.Reader.Driver {
	case "none", "":
		return reader.New(reader.Unavailable{}), nil
	case "simulated":
		a.sim = reader.NewSimulated(a.cfg.Reader.Name)
		return reader.New(a.sim), nil
	default:
		return nil, fmt.Errorf("unknown reader driver %q", a.cfg.Reader.Driver)
	}
}

// Close releases the store.
func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		slog.Error("error closing store", "error", err)
	}
}
