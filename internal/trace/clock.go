package trace

import "sync/atomic"

// Clock is a monotonic logical clock for ordering trace events.
//
// It is independent of simulation time: several events can share one
// simulation timestamp but never one sequence number.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a clock starting at 0. The first Next returns 1.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a clock positioned at start.
// Used to continue numbering after events already stored.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next increments the clock and returns the new value.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the last value handed out.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}

// Reset moves the clock back to 0.
func (c *Clock) Reset() {
	c.seq.Store(0)
}
