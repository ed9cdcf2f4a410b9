// Package throttle enforces the minimum spacing between query rounds of a
// discovery session.
package throttle

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// Throttle is Idle until the first Mark, then Active with the time of the
// last permitted send. It is safe for concurrent use.
type Throttle struct {
	interval time.Duration
	clock    clock.Clock

	mu       sync.Mutex
	lastSent time.Time
	active   bool
}

// New returns an idle Throttle allowing at most one send per interval. A nil
// clock uses the wall clock.
func New(interval time.Duration, clk clock.Clock) *Throttle {
	if clk == nil {
		clk = clock.New()
	}
	return &Throttle{interval: interval, clock: clk}
}

// Interval returns the configured minimum spacing.
func (t *Throttle) Interval() time.Duration {
	return t.interval
}

// Allow reports whether a send is permitted now. An idle throttle always
// permits.
func (t *Throttle) Allow() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.allowLocked(t.clock.Now())
}

// Mark records a send at the current time.
func (t *Throttle) Mark() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lastSent = t.clock.Now()
	t.active = true
}

// TryAcquire marks a send and returns true when one is permitted, otherwise
// it leaves the state unchanged and returns false.
func (t *Throttle) TryAcquire() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.clock.Now()
	if !t.allowLocked(now) {
		return false
	}
	t.lastSent = now
	t.active = true
	return true
}

// LastSent returns the time of the last marked send, and false while idle.
func (t *Throttle) LastSent() (time.Time, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastSent, t.active
}

func (t *Throttle) allowLocked(now time.Time) bool {
	if !t.active {
		return true
	}
	return now.Sub(t.lastSent) >= t.interval
}
