package main

import "time"

// clickWindow tracks the most recent accepted button presses so the
// translator can recognize a triple click.
//
// Storage is a fixed array: recording a press is constant time and never
// allocates, which keeps it usable from the button edge handler.
//
// Not thread-safe: only the edge handler goroutine calls addClick.
type clickWindow struct {
	recent [3]time.Duration // offsets from the translator epoch
	n      int
}

// addClick records a press at offset at and returns the number of presses
// (including this one) that fall within window of it. When the count reaches
// the array size the history is reset, so the next press starts a new gesture.
func (c *clickWindow) addClick(at, window time.Duration) int {
	// Keep only presses still inside the window
	kept := 0
	for i := 0; i < c.n; i++ {
		if at-c.recent[i] <= window {
			c.recent[kept] = c.recent[i]
			kept++
		}
	}
	c.n = kept

	c.recent[c.n] = at
	c.n++

	count := c.n
	if count == len(c.recent) {
		c.n = 0
	}
	return count
}
