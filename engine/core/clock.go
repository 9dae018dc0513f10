package core

import "time"

// Clock measures frame time in seconds.
type Clock struct {
	start   time.Time
	elapsed time.Duration
	running bool
	now     func() time.Time
}

func NewClock() *Clock {
	return &Clock{now: time.Now}
}

// Update refreshes the elapsed time. Has no effect on stopped clocks.
func (c *Clock) Update() {
	if c.running {
		c.elapsed = c.now().Sub(c.start)
	}
}

// Start resets the elapsed time and starts counting.
func (c *Clock) Start() {
	c.start = c.now()
	c.elapsed = 0
	c.running = true
}

// Stop halts the clock without resetting the elapsed time.
func (c *Clock) Stop() {
	c.running = false
}

// Elapsed returns the seconds between Start and the last Update.
func (c *Clock) Elapsed() float64 {
	return c.elapsed.Seconds()
}
