package tether

import (
	"time"
)

// Clock measures the render loop's frame delta. Bridge.TickAuto steps
// with one internally; hosts with their own timing pass dt to Tick
// directly.
type Clock struct {
	last time.Time
}

func NewClock() *Clock {
	return &Clock{last: time.Now()}
}

// Delta returns the seconds elapsed since the previous call (or since
// construction for the first call).
func (c *Clock) Delta() float32 {
	now := time.Now()
	dt := now.Sub(c.last)
	c.last = now
	return float32(dt.Seconds())
}
