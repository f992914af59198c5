// Package testutil builds deterministic environments for tree tests.
package testutil

import (
	"sync"

	"github.com/roach88/pipetree/internal/runctx"
)

var _ runctx.Sequencer = (*DeterministicClock)(nil)

// DeterministicClock stamps trace entries with 1, 2, 3... Unlike
// runctx.Clock it can be reset, so a test can replay the same tree and
// compare Seq values.
type DeterministicClock struct {
	mu  sync.Mutex
	seq int64
}

// NewDeterministicClock creates a clock whose first Next returns 1.
func NewDeterministicClock() *DeterministicClock {
	return &DeterministicClock{}
}

// Next increments and returns the sequence number.
func (c *DeterministicClock) Next() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	return c.seq
}

// Current returns the last issued number without advancing.
func (c *DeterministicClock) Current() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seq
}

// Reset rewinds the clock to 0.
func (c *DeterministicClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq = 0
}
