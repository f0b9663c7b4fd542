package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/rollcall/internal/ledger"
)

// SweepOptions holds flags for the sweep command.
type SweepOptions struct {
	*RootOptions
	Hours  float64
	DryRun bool
}

// NewSweepCommand creates the sweep command.
func NewSweepCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SweepOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Close sign-ins left open on previous days",
		Long: `Close every sign-in still open on a day before today.

Each abandoned record is signed out --hours after its sign-in and credited
exactly that many hours. Today's records are never touched.

Example:
  rollcall sweep --dry-run
  rollcall sweep --hours 4`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSweep(opts, cmd)
		},
	}

	cmd.Flags().Float64Var(&opts.Hours, "hours", ledger.DefaultAbandonedDuration.Hours(), "hours credited to each abandoned sign-in")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "report what would be closed without saving")

	return cmd
}

func runSweep(opts *SweepOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	if opts.Hours <= 0 || opts.Hours > 24 {
		return formatter.Fail(ExitCommandError, "invalid --hours", fmt.Errorf("%v is not in (0, 24]", opts.Hours))
	}

	a, err := openApp(opts.RootOptions)
	if err != nil {
		return err
	}
	defer a.Close()

	today := opts.wallClock().Now()
	d := time.Duration(opts.Hours * float64(time.Hour))
	formatter.VerboseLog("Sweeping days before %s, crediting %s", ledger.DateKey(today), d)

	report, err := a.ledger.CloseAbandoned(cmd.Context(), today, d, opts.DryRun)
	if err != nil {
		return formatter.Fail(ExitCommandError, "sweep failed", err)
	}

	if formatter.JSON() {
		return formatter.Success(report)
	}
	writeSweepReport(formatter.Writer, ledger.DateKey(today), report)
	return nil
}

func writeSweepReport(w io.Writer, today string, r ledger.SweepReport) {
	suffix := ""
	if r.DryRun {
		suffix = " (dry run)"
	}
	fmt.Fprintf(w, "Scanned %d day(s) before %s%s\n", r.DaysScanned, today, suffix)
	if len(r.Closed) == 0 && len(r.Skipped) == 0 {
		fmt.Fprintln(w, "✓ Nothing to close")
		return
	}
	for _, c := range r.Closed {
		fmt.Fprintf(w, "  closed   %s  %s  %s -> %s  %.2fh\n",
			c.Date, c.UID, c.SignInTime.Format("15:04"), c.SignOutTime.Format("15:04"), c.Hours)
	}
	for _, s := range r.Skipped {
		fmt.Fprintf(w, "  skipped  %s  %s  %s\n", s.Date, s.UID, s.Reason)
	}
}

// NewVerifyCommand creates the verify command.
func NewVerifyCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check for sign-ins left open on previous days",
		Long: `List every sign-in still open on a day before today.

Exits 1 when any are found, so it can gate a cron job that runs sweep.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerify(rootOpts, cmd)
		},
	}
	return cmd
}

type verifyResult struct {
	Today string              `json:"today"`
	Open  []ledger.OpenRecord `json:"open"`
}

func runVerify(opts *RootOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	a, err := openApp(opts)
	if err != nil {
		return err
	}
	defer a.Close()

	today := opts.wallClock().Now()
	open, err := a.ledger.OpenBefore(cmd.Context(), today)
	if err != nil {
		return formatter.Fail(ExitCommandError, "verify failed", err)
	}
	res := verifyResult{Today: ledger.DateKey(today), Open: open}

	if formatter.JSON() {
		if len(open) > 0 {
			_ = formatter.Error(ErrCodeOpenRecord, "open sign-ins found", res)
		} else {
			_ = formatter.Success(res)
		}
	} else {
		writeVerifyResult(formatter.Writer, res)
	}

	if len(open) > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d open sign-in(s) before %s", len(open), res.Today))
	}
	return nil
}

func writeVerifyResult(w io.Writer, r verifyResult) {
	if len(r.Open) == 0 {
		fmt.Fprintf(w, "✓ No open sign-ins before %s\n", r.Today)
		return
	}
	fmt.Fprintf(w, "✗ %d open sign-in(s) before %s\n", len(r.Open), r.Today)
	for _, o := range r.Open {
		at := "unknown"
		if o.SignInTime != nil {
			at = o.SignInTime.Format("15:04")
		}
		fmt.Fprintf(w, "  %s  %s  signed in %s\n", o.Date, o.UID, at)
	}
}
