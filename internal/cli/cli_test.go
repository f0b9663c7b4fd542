package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/rollcall/internal/ledger"
	"github.com/roach88/rollcall/internal/registry"
	"github.com/roach88/rollcall/internal/store"
	"github.com/roach88/rollcall/internal/testutil"
)

const (
	uidAlice = "04 A1 B2 C3"
	uidBob   = "04 00 00 01"
)

func at(day, hour, minute int) time.Time {
	return time.Date(2026, 3, day, hour, minute, 0, 0, time.UTC)
}

// seedLedger writes a small history into a fresh SQLite database and returns
// a config file pointing at it.
//
//	2026-03-02  Alice 09:00 open, Bob 08:30-12:15
//	2026-03-03  Bob 13:05 open
//	2026-03-04  Alice 08:45 open (today)
func seedLedger(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "rollcall.db")

	st, err := store.Open(dbPath)
	require.NoError(t, err)
	ctx := context.Background()
	l := ledger.New(st)
	r := registry.New(st)

	require.NoError(t, r.Set(ctx, uidAlice, "Alice"))
	require.NoError(t, r.Set(ctx, uidBob, "Bob"))

	_, err = l.RecordSignIn(ctx, uidAlice, at(2, 9, 0))
	require.NoError(t, err)
	_, err = l.RecordSignIn(ctx, uidBob, at(2, 8, 30))
	require.NoError(t, err)
	_, closed, err := l.RecordSignOut(ctx, uidBob, at(2, 12, 15))
	require.NoError(t, err)
	require.True(t, closed)
	_, err = l.RecordSignIn(ctx, uidBob, at(3, 13, 5))
	require.NoError(t, err)
	_, err = l.RecordSignIn(ctx, uidAlice, at(4, 8, 45))
	require.NoError(t, err)
	require.NoError(t, st.Close())

	cfgPath := filepath.Join(dir, "rollcall.yaml")
	cfg := fmt.Sprintf("storage:\n  driver: sqlite\n  path: %q\n", dbPath)
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0o644))
	return cfgPath
}

// execute runs the CLI at 2026-03-04 10:00 UTC.
func execute(t *testing.T, cfgPath string, args ...string) (string, error) {
	t.Helper()
	opts := &RootOptions{Clock: testutil.NewManualClock(at(4, 10, 0))}
	cmd := newRootCommand(opts)

	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(append([]string{"--config", cfgPath, "--env-file="}, args...))

	err := cmd.Execute()
	return buf.String(), err
}

func newGoldie(t *testing.T) *goldie.Goldie {
	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}

func TestInvalidFormat(t *testing.T) {
	cfg := seedLedger(t)
	_, err := execute(t, cfg, "--format", "xml", "status")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "invalid format")
}

func TestBadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rollcall.yaml")
	require.NoError(t, os.WriteFile(path, []byte("storage:\n  driver: postgres\n"), 0o644))

	_, err := execute(t, path, "status")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "failed to load config")
}

func TestVerifyThenSweep(t *testing.T) {
	cfg := seedLedger(t)
	g := newGoldie(t)

	out, err := execute(t, cfg, "verify")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	g.Assert(t, "verify_open", []byte(out))

	out, err = execute(t, cfg, "sweep", "--dry-run")
	require.NoError(t, err)
	g.Assert(t, "sweep_dry_run", []byte(out))

	_, err = execute(t, cfg, "verify")
	require.Error(t, err, "dry run must not close anything")

	_, err = execute(t, cfg, "sweep")
	require.NoError(t, err)

	out, err = execute(t, cfg, "verify")
	require.NoError(t, err)
	assert.Equal(t, "✓ No open sign-ins before 2026-03-04\n", out)

	out, err = execute(t, cfg, "sweep")
	require.NoError(t, err)
	assert.Contains(t, out, "Nothing to close")
}

func TestSweep_InvalidHours(t *testing.T) {
	cfg := seedLedger(t)
	out, err := execute(t, cfg, "sweep", "--hours", "0")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E001]")
}

func TestSweep_JSON(t *testing.T) {
	cfg := seedLedger(t)
	out, err := execute(t, cfg, "--format", "json", "sweep", "--hours", "1.5")
	require.NoError(t, err)

	var resp struct {
		Status string             `json:"status"`
		Data   ledger.SweepReport `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 2, resp.Data.DaysScanned)
	require.Len(t, resp.Data.Closed, 2)
	assert.Equal(t, 1.5, resp.Data.Closed[0].Hours)
	assert.False(t, resp.Data.DryRun)
}

func TestVerify_JSON(t *testing.T) {
	cfg := seedLedger(t)
	out, err := execute(t, cfg, "--format", "json", "verify")
	require.Error(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeOpenRecord, resp.Error.Code)
}

func TestProfile(t *testing.T) {
	cfg := seedLedger(t)
	_, err := execute(t, cfg, "sweep")
	require.NoError(t, err)

	out, err := execute(t, cfg, "profile", "04a1b2c3")
	require.NoError(t, err)
	newGoldie(t).Assert(t, "profile_alice", []byte(out))
}

func TestProfile_InvalidUID(t *testing.T) {
	cfg := seedLedger(t)
	out, err := execute(t, cfg, "profile", "nope")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E103]")
}

func TestStatus(t *testing.T) {
	cfg := seedLedger(t)
	out, err := execute(t, cfg, "status")
	require.NoError(t, err)
	newGoldie(t).Assert(t, "status_today", []byte(out))
}

func TestNames(t *testing.T) {
	cfg := seedLedger(t)

	out, err := execute(t, cfg, "names", "set", "04:00:00:02", "  Carol ")
	require.NoError(t, err)
	assert.Equal(t, "✓ 04 00 00 02 is now \"Carol\"\n", out)

	out, err = execute(t, cfg, "--format", "json", "names", "list")
	require.NoError(t, err)
	var resp struct {
		Status string            `json:"status"`
		Data   map[string]string `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, map[string]string{
		uidBob:        "Bob",
		"04 00 00 02": "Carol",
		uidAlice:      "Alice",
	}, resp.Data)

	out, err = execute(t, cfg, "names", "list")
	require.NoError(t, err)
	assert.Equal(t, "04 00 00 01  Bob\n04 00 00 02  Carol\n04 A1 B2 C3  Alice\n", out)

	_, err = execute(t, cfg, "names", "set", "xyz", "Dave")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestSync_Disabled(t *testing.T) {
	cfg := seedLedger(t)
	out, err := execute(t, cfg, "sync")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Error [E104]")
}
