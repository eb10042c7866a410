package core

import "time"

// MonotonicClock measures time since it was created. It satisfies
// protocol.Clock on both TinyGo and regular Go.
type MonotonicClock struct {
	start time.Time
}

// NewMonotonicClock starts a clock at zero
func NewMonotonicClock() *MonotonicClock {
	return &MonotonicClock{start: time.Now()}
}

// Now returns the time elapsed since the clock was created
func (c *MonotonicClock) Now() time.Duration {
	return time.Since(c.start)
}

// millis converts a clock reading for event records
func millis(d time.Duration) uint32 {
	return uint32(d / time.Millisecond)
}
