package util

import (
	"sync/atomic"
)

// SafeCounter defines a thread safe counter.
type SafeCounter struct {
	val atomic.Int64
}

// Get returns value of the counter.
func (c *SafeCounter) Get() int {
	return int(c.val.Load())
}

// Set sets value of the counter.
func (c *SafeCounter) Set(v int) {
	c.val.Store(int64(v))
}

// Add adds delta to current counter and returns the new value.
func (c *SafeCounter) Add(delta int) int {
	return int(c.val.Add(int64(delta)))
}
