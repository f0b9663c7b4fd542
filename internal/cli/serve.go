package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/rollcall/internal/api"
)

const shutdownTimeout = 10 * time.Second

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Listen string
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the kiosk HTTP API and card detector",
		Long: `Start the rollcall HTTP API.

The store is opened (and migrated) from the configured driver, the card
detector is wired to the configured reader, and periodic remote sync runs
when sync.url and sync.interval are set.

Example:
  rollcall serve --config rollcall.yaml
  rollcall serve --listen 127.0.0.1:8080 --verbose`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Listen, "listen", "", "listen address (overrides config)")

	return cmd
}

func runServe(opts *ServeOptions, cmd *cobra.Command) error {
	a, err := openApp(opts.RootOptions)
	if err != nil {
		return err
	}
	defer a.Close()

	listen := a.cfg.Listen
	if opts.Listen != "" {
		listen = opts.Listen
	}

	var srvOpts []api.Option
	if a.sim != nil {
		srvOpts = append(srvOpts, api.WithSimulator(a.sim))
	}
	srv := api.New(a.engine, srvOpts...)

	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			slog.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	go a.publisher.RunPeriodic(ctx, a.cfg.Sync.Interval.Duration, a.engine.FullSnapshot)

	if a.cfg.Detector.AutoStart {
		if _, err := a.engine.StartDetection(ctx); err != nil {
			slog.Warn("card detection not started", "error", err)
		}
	}

	serveErr := make(chan error, 1)
	go func() { serveErr <- srv.Listen(listen) }()

	slog.Info("rollcall started",
		"listen", listen,
		"storage", a.cfg.Storage.Driver,
		"reader", a.cfg.Reader.Driver,
		"sync", a.publisher.Enabled(),
	)
	fmt.Fprintf(cmd.OutOrStdout(), "rollcall listening on %s\n", listen)
	fmt.Fprintln(cmd.OutOrStdout(), "Press Ctrl-C to stop.")

	var runErr error
	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			runErr = WrapExitError(ExitFailure, "http server error", err)
		}
		cancel()
	}

	shutdownCtx, done := context.WithTimeout(context.Background(), shutdownTimeout)
	defer done()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("http shutdown failed", "error", err)
	}
	a.engine.Shutdown(shutdownCtx)

	slog.Info("rollcall stopped gracefully")
	return runErr
}
