package engine

import "sync/atomic"

// LogicalClock stamps observer events with a strictly increasing sequence
// number. Event order is defined by these numbers, never by wall-clock time,
// so a replayed scenario yields identical sequences.
//
// LogicalClock is safe for concurrent use, although the scheduler only ever
// calls it from the task that currently runs.
type LogicalClock struct {
	seq atomic.Int64
}

// NewLogicalClock creates a clock whose first Next returns 1.
func NewLogicalClock() *LogicalClock {
	return &LogicalClock{}
}

// Next returns the next sequence number.
func (c *LogicalClock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the last sequence number handed out.
func (c *LogicalClock) Current() int64 {
	return c.seq.Load()
}
