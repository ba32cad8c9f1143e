package engine

import (
	"sync/atomic"

	"stock_go/internal/domain"
)

// bookState is one committed version of an instrument's book. It is
// immutable once published through InstrumentBook.state.
type bookState struct {
	version uint64
	buys    PriceTimeQueue
	sells   PriceTimeQueue
}

// InstrumentBook pairs the buy and sell queues of one instrument with the
// OCC version counter. The committed state sits behind a single atomic
// pointer, so a commit swaps version and both queues in one step.
type InstrumentBook struct {
	id    int
	state atomic.Pointer[bookState]
}

func (b *InstrumentBook) init(id int) {
	b.id = id
	b.state.Store(&bookState{
		buys:  NewPriceTimeQueue(domain.Buy),
		sells: NewPriceTimeQueue(domain.Sell),
	})
}

// ID returns the instrument slot of the book.
func (b *InstrumentBook) ID() int {
	return b.id
}

// SnapshotVersion returns the current committed version.
func (b *InstrumentBook) SnapshotVersion() uint64 {
	return b.state.Load().version
}

func (b *InstrumentBook) snapshot() *bookState {
	return b.state.Load()
}

// TryCommit installs buys and sells as version expectedVersion+1 if the
// committed version is still expectedVersion. On mismatch nothing changes.
// The queues must have been derived from the state at expectedVersion.
func (b *InstrumentBook) TryCommit(expectedVersion uint64, buys, sells PriceTimeQueue) bool {
	cur := b.state.Load()
	if cur.version != expectedVersion {
		return false
	}
	next := &bookState{version: expectedVersion + 1, buys: buys, sells: sells}
	return b.state.CompareAndSwap(cur, next)
}

// Depth returns the committed orders of both sides in priority order.
func (b *InstrumentBook) Depth() (buys, sells []domain.Order) {
	s := b.snapshot()
	return s.buys.Orders(), s.sells.Orders()
}

// Verify checks both queues of the committed state.
func (b *InstrumentBook) Verify() error {
	s := b.snapshot()
	if err := s.buys.Verify(); err != nil {
		return err
	}
	return s.sells.Verify()
}
