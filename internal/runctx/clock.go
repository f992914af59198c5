package runctx

import "sync/atomic"

// Sequencer issues the Seq stamps of trace entries.
type Sequencer interface {
	Next() int64
}

// Clock is a monotonic logical clock. Entries are stamped with Next() when
// they begin, which orders a run's entries without wall-clock time.
//
// Safe for concurrent use.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// Next returns the next sequence number.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the last issued sequence number.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
