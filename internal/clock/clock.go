// Package clock abstracts wall time so the detector loop and the ledger can
// be driven deterministically in tests.
package clock

import "time"

// Clock provides the current time and blocking sleeps.
//
// Production code uses Real(); tests use testutil.ManualClock.
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

type realClock struct{}

// Real returns a Clock backed by the time package.
func Real() Clock { return realClock{} }

func (realClock) Now() time.Time { return time.Now() }

func (realClock) Sleep(d time.Duration) { time.Sleep(d) }
