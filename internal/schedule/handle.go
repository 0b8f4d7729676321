// Package schedule provides a cancellable one-shot scheduled task.
package schedule

import (
	"sync"
	"time"
)

type State int

const (
	Scheduled State = iota
	Fired
	Cancelled
)

func (s State) String() string {
	switch s {
	case Scheduled:
		return "scheduled"
	case Fired:
		return "fired"
	case Cancelled:
		return "cancelled"
	}
	return "unknown"
}

// Handle owns one pending invocation. A handle moves from Scheduled to exactly one
// of Fired or Cancelled and never leaves that state.
type Handle struct {
	mu    sync.Mutex
	state State
	timer *time.Timer
}

// After schedules fn to run once after d.
func After(d time.Duration, fn func()) *Handle {
	h := &Handle{state: Scheduled}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.timer = time.AfterFunc(d, func() {
		h.mu.Lock()
		if h.state != Scheduled {
			h.mu.Unlock()
			return
		}
		h.state = Fired
		h.mu.Unlock()
		fn()
	})
	return h
}

// Cancel prevents fn from running. It reports whether the call did so; cancelling a
// fired or already cancelled handle returns false.
func (h *Handle) Cancel() bool {
	if h == nil {
		return false
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.state != Scheduled {
		return false
	}
	h.state = Cancelled
	h.timer.Stop()
	return true
}

func (h *Handle) State() State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}
