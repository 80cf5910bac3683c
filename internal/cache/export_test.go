package cache

import "time"

// SetClock replaces the clock Cleanup uses to find today
func (c *Coordinator) SetClock(now func() time.Time) {
	c.now = now
}
