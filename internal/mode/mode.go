// Package mode holds the process-wide sign-in/sign-out flag.
package mode

import (
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/roach88/rollcall/internal/fault"
)

// Mode selects what a detected, registered card records.
type Mode string

const (
	SignIn  Mode = "sign_in"
	SignOut Mode = "sign_out"
)

// Parse accepts "sign_in"/"sign_out" and the hyphenated or compact forms.
func Parse(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sign_in", "sign-in", "signin", "in":
		return SignIn, nil
	case "sign_out", "sign-out", "signout", "out":
		return SignOut, nil
	default:
		return "", fault.Validation("mode.parse", fmt.Sprintf("unknown mode %q", s))
	}
}

// Controller is a single atomic flag. Any transition is allowed at any time;
// the engine reads it once per detection event.
//
// The zero value is in SignIn mode.
type Controller struct {
	signOut atomic.Bool
}

// NewController returns a controller starting in the given mode.
func NewController(initial Mode) *Controller {
	c := &Controller{}
	c.Set(initial)
	return c
}

// Set switches the mode. Values other than SignOut select SignIn.
func (c *Controller) Set(m Mode) {
	c.signOut.Store(m == SignOut)
}

// Get returns the current mode.
func (c *Controller) Get() Mode {
	if c.signOut.Load() {
		return SignOut
	}
	return SignIn
}
