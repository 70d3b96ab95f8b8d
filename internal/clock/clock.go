// Package clock abstracts the current time so expiry logic can be tested
// without sleeping.
package clock

import (
	"sync"
	"time"
)

// System reads the wall clock.
var System TimeSource = systemTimeSource{}

// TimeSource can provide the current time.
type TimeSource interface {
	Now() time.Time
}

type systemTimeSource struct{}

func (systemTimeSource) Now() time.Time {
	return time.Now()
}

// Fake is a TimeSource that only moves when told to.
type Fake struct {
	mu  sync.RWMutex
	now time.Time
}

// NewFake returns a Fake set to t.
func NewFake(t time.Time) *Fake {
	return &Fake{now: t}
}

func (f *Fake) Now() time.Time {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.now
}

// Set moves the clock to t.
func (f *Fake) Set(t time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = t
}

// Advance moves the clock forward by d.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}
