// Package clock provides the monotonic time source used by the drivers.
//
// Drivers measure intervals and poll with timeouts; both go through a Clock so that
// tests and the simulator can run on virtual time.
package clock

import (
	"sync"
	"time"
)

// Clock is a monotonic time source.
type Clock interface {
	// Now returns the time elapsed since an arbitrary fixed epoch.
	Now() time.Duration
	// Sleep blocks for d.
	Sleep(d time.Duration)
}

type system struct {
	start time.Time
}

// System returns a Clock backed by the runtime monotonic clock.
func System() Clock {
	return &system{start: time.Now()}
}

func (s *system) Now() time.Duration    { return time.Since(s.start) }
func (s *system) Sleep(d time.Duration) { time.Sleep(d) }

// Fake is a manually driven Clock. Sleep advances virtual time instead of blocking,
// so polling loops terminate deterministically.
type Fake struct {
	mu  sync.Mutex
	now time.Duration
}

// NewFake returns a Fake clock starting at start.
func NewFake(start time.Duration) *Fake {
	return &Fake{now: start}
}

// Now returns the current virtual time.
func (f *Fake) Now() time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// Sleep advances virtual time by d.
func (f *Fake) Sleep(d time.Duration) {
	f.Advance(d)
}

// Advance moves virtual time forward by d.
func (f *Fake) Advance(d time.Duration) {
	if d <= 0 {
		return
	}
	f.mu.Lock()
	f.now += d
	f.mu.Unlock()
}
