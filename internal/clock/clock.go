// Package clock is the time source for run stamps and durations. Tests swap
// in a MockClock with SetDefault.
package clock

import (
	"sync"
	"sync/atomic"
	"time"
)

// StampLayout is the layout used in run directory names.
const StampLayout = "2006-01-02_15-04-05"

// Clock reports the current time.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// System is the wall clock.
var System Clock = systemClock{}

// MockClock is a manually driven clock.
type MockClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewMockClock creates a mock clock stopped at t.
func NewMockClock(t time.Time) *MockClock {
	return &MockClock{now: t}
}

func (c *MockClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Set moves the clock to t.
func (c *MockClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

// Advance moves the clock forward by d.
func (c *MockClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type holder struct{ c Clock }

var active atomic.Pointer[holder]

func init() {
	active.Store(&holder{System})
}

// SetDefault installs c as the package clock and returns a func restoring
// the previous one.
func SetDefault(c Clock) (restore func()) {
	prev := active.Swap(&holder{c})
	return func() { active.Store(prev) }
}

// Now returns the package clock's time.
func Now() time.Time {
	return active.Load().c.Now()
}

// Since returns the package clock's time elapsed since t.
func Since(t time.Time) time.Duration {
	return Now().Sub(t)
}

// Stamp formats t for use in directory names.
func Stamp(t time.Time) string {
	return t.Format(StampLayout)
}
