package workflow

import (
	"errors"
	"sync/atomic"
)

// ErrBusy is returned when a run is started while another is in flight.
var ErrBusy = errors.New("a transaction is already in progress")

// Control is the submit switch of a session. It is held for the whole run
// of a workflow, so at most one transaction is in flight at a time.
type Control struct {
	busy atomic.Bool
}

// Acquire claims the control or fails fast with ErrBusy.
func (c *Control) Acquire() error {
	if !c.busy.CompareAndSwap(false, true) {
		return ErrBusy
	}
	return nil
}

// Release frees the control.
func (c *Control) Release() { c.busy.Store(false) }

// Busy reports whether a run holds the control, i.e. submit is disabled.
func (c *Control) Busy() bool { return c.busy.Load() }
