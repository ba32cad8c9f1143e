package engine

import "sync/atomic"

// Sequencer generates strictly monotonic, gap-tolerant IDs shared by all
// brokers. It backs order IDs, arrival sequence numbers and trade sequences.
type Sequencer struct {
	next atomic.Uint64
}

// NewSequencer creates a sequencer whose first Next() returns start+1.
func NewSequencer(start uint64) *Sequencer {
	s := &Sequencer{}
	s.next.Store(start)
	return s
}

// Next returns the next sequence value.
func (s *Sequencer) Next() uint64 {
	return s.next.Add(1)
}

// Current returns the last issued value.
func (s *Sequencer) Current() uint64 {
	return s.next.Load()
}
