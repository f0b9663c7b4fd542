package cli

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/rollcall/internal/ledger"
	"github.com/roach88/rollcall/internal/registry"
)

// NewProfileCommand creates the profile command.
func NewProfileCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "profile <uid>",
		Short: "Show one card's attendance summary and history",
		Example: `  rollcall profile "04 A1 B2 C3"
  rollcall profile 04a1b2c3 --format json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(rootOpts, cmd)
			a, err := openApp(rootOpts)
			if err != nil {
				return err
			}
			defer a.Close()

			p, err := a.engine.Profile(cmd.Context(), args[0])
			if err != nil {
				return formatter.Fail(ExitCommandError, "profile failed", err)
			}
			if formatter.JSON() {
				return formatter.Success(p)
			}
			writeProfile(formatter.Writer, p)
			return nil
		},
	}
}

func writeProfile(w io.Writer, p ledger.Profile) {
	fmt.Fprintf(w, "%s  %s\n", p.UID, p.Name)
	fmt.Fprintf(w, "  attended %d of %d day(s), missed %d (%.1f%%)\n",
		p.DaysAttended, p.TotalDays, p.DaysMissed, p.AttendanceRate)
	fmt.Fprintf(w, "  total %.2fh, average %.2fh per attended day\n", p.TotalHours, p.AverageHours)
	for _, h := range p.History {
		switch {
		case !h.Attended:
			fmt.Fprintf(w, "  %s  absent\n", h.Date)
		case h.SignedIn:
			fmt.Fprintf(w, "  %s  %s -> (open)\n", h.Date, clockTime(h.SignInTime))
		default:
			fmt.Fprintf(w, "  %s  %s -> %s  %.2fh\n", h.Date, clockTime(h.SignInTime), clockTime(h.SignOutTime), h.Hours)
		}
	}
}

// NewStatusCommand creates the status command.
func NewStatusCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show today's attendance for every registered card",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(rootOpts, cmd)
			a, err := openApp(rootOpts)
			if err != nil {
				return err
			}
			defer a.Close()

			list, err := a.engine.AttendanceStatus(cmd.Context())
			if err != nil {
				return formatter.Fail(ExitCommandError, "status failed", err)
			}
			if formatter.JSON() {
				return formatter.Success(list)
			}
			writeStatus(formatter.Writer, list)
			return nil
		},
	}
}

func writeStatus(w io.Writer, list []ledger.Status) {
	if len(list) == 0 {
		fmt.Fprintln(w, "No registered cards")
		return
	}
	for _, s := range list {
		state := "absent"
		switch {
		case s.SignedIn:
			state = "in since " + clockTime(s.SignInTime)
		case s.SignOutTime != nil:
			state = fmt.Sprintf("out at %s (%.2fh)", clockTime(s.SignOutTime), s.Hours)
		}
		fmt.Fprintf(w, "%s  %-20s  %s\n", s.UID, s.Name, state)
	}
}

// NewNamesCommand creates the names command group.
func NewNamesCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "names",
		Short: "Manage card display names",
	}

	cmd.AddCommand(&cobra.Command{
		Use:     "set <uid> <name>",
		Short:   "Register or rename a card",
		Example: `  rollcall names set "04 A1 B2 C3" "Alice Example"`,
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(rootOpts, cmd)
			a, err := openApp(rootOpts)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.engine.SetCardName(cmd.Context(), args[0], args[1]); err != nil {
				return formatter.Fail(ExitCommandError, "save name failed", err)
			}
			uid, _ := registry.NormalizeUID(args[0])
			name := registry.NormalizeName(args[1])
			if formatter.JSON() {
				return formatter.Success(map[string]string{"uid": uid, "name": name})
			}
			fmt.Fprintf(formatter.Writer, "✓ %s is now %q\n", uid, name)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List every registered card",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(rootOpts, cmd)
			a, err := openApp(rootOpts)
			if err != nil {
				return err
			}
			defer a.Close()

			names, err := a.engine.CardNames(cmd.Context())
			if err != nil {
				return formatter.Fail(ExitCommandError, "list names failed", err)
			}
			if formatter.JSON() {
				return formatter.Success(names)
			}
			writeNames(formatter.Writer, names)
			return nil
		},
	})

	return cmd
}

func writeNames(w io.Writer, names registry.Names) {
	if len(names) == 0 {
		fmt.Fprintln(w, "No registered cards")
		return
	}
	uids := make([]string, 0, len(names))
	for uid := range names {
		uids = append(uids, uid)
	}
	sort.Strings(uids)
	for _, uid := range uids {
		fmt.Fprintf(w, "%s  %s\n", uid, names[uid])
	}
}

// NewSyncCommand creates the sync command.
func NewSyncCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Push the full ledger and registry to the remote endpoint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(rootOpts, cmd)
			a, err := openApp(rootOpts)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.engine.SyncNow(cmd.Context()); err != nil {
				return formatter.Fail(ExitFailure, "sync failed", err)
			}
			if formatter.JSON() {
				return formatter.Success(map[string]string{"url": a.cfg.Sync.URL})
			}
			fmt.Fprintf(formatter.Writer, "✓ Synced to %s\n", a.cfg.Sync.URL)
			return nil
		},
	}
}

func clockTime(t *time.Time) string {
	if t == nil {
		return "--:--"
	}
	return t.Format("15:04")
}
