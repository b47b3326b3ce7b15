package com

import "sync/atomic"

// Counter is a simple, goroutine-safe counter that also tracks the sum of all values
// ever added to it, i.e. its total does not decrease when Val() is reset.
//
// Used by the streaming executor to report rows-streamed-so-far independently of
// the per-batch reset of the "current" value.
type Counter struct {
	val   atomic.Uint64
	total atomic.Uint64
}

// Add adds delta to the counter and returns the new value.
func (c *Counter) Add(delta uint64) uint64 {
	c.total.Add(delta)
	return c.val.Add(delta)
}

// Val returns the counter's current value.
func (c *Counter) Val() uint64 {
	return c.val.Load()
}

// Reset resets the counter's current value to 0 and returns the value from before the reset.
func (c *Counter) Reset() uint64 {
	return c.val.Swap(0)
}

// Total returns the counter's total value.
func (c *Counter) Total() uint64 {
	return c.total.Load()
}
