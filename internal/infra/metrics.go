package infra

import (
	"errors"
	"sync/atomic"
	"time"

	"stock_go/internal/domain"
	"stock_go/internal/event"
)

// Metrics provides lightweight observability without external dependencies.
// Uses atomic operations for thread-safety. It doubles as an engine event sink.
type Metrics struct {
	// Engine counters
	ordersAdded    atomic.Uint64
	ordersRejected atomic.Uint64
	trades         atomic.Uint64
	tradedQty      atomic.Int64
	commits        atomic.Uint64
	retries        atomic.Uint64

	// Failures
	contentionFailures  atomic.Uint64
	consistencyFailures atomic.Uint64
	sinkErrors          atomic.Uint64

	// Gauges
	activeConnections atomic.Int32
}

// GlobalMetrics is the singleton metrics instance.
var GlobalMetrics = &Metrics{}

// OnEvent implements event.Sink.
func (m *Metrics) OnEvent(ev event.Event) {
	switch e := ev.(type) {
	case *event.OrderInsertedEvent:
		m.ordersAdded.Add(1)
		m.commits.Add(1)
	case *event.OrderRejectedEvent:
		m.ordersRejected.Add(1)
	case *event.RetryEvent:
		m.retries.Add(1)
	case *event.TradeEvent:
		m.trades.Add(1)
		m.tradedQty.Add(e.Trade.Quantity)
	case *event.MatchCommittedEvent:
		m.commits.Add(1)
	}
}

// RecordError classifies a failed engine call.
func (m *Metrics) RecordError(err error) {
	switch {
	case errors.Is(err, domain.ErrContention):
		m.contentionFailures.Add(1)
	case errors.Is(err, domain.ErrInternalConsistency):
		m.consistencyFailures.Add(1)
	}
}

// RecordSinkError records a failed downstream delivery.
func (m *Metrics) RecordSinkError() {
	m.sinkErrors.Add(1)
}

// IncrementConnections increments active connections by 1.
func (m *Metrics) IncrementConnections() {
	m.activeConnections.Add(1)
}

// DecrementConnections decrements active connections by 1.
func (m *Metrics) DecrementConnections() {
	m.activeConnections.Add(-1)
}

// MetricsSnapshot is a point-in-time view of all metrics.
type MetricsSnapshot struct {
	OrdersAdded         uint64
	OrdersRejected      uint64
	Trades              uint64
	TradedQuantity      int64
	Commits             uint64
	Retries             uint64
	ContentionFailures  uint64
	ConsistencyFailures uint64
	SinkErrors          uint64
	ActiveConnections   int32
	Timestamp           time.Time
}

// Snapshot returns current metrics as a snapshot.
func (m *Metrics) Snapshot() MetricsSnapshot {
	return MetricsSnapshot{
		OrdersAdded:         m.ordersAdded.Load(),
		OrdersRejected:      m.ordersRejected.Load(),
		Trades:              m.trades.Load(),
		TradedQuantity:      m.tradedQty.Load(),
		Commits:             m.commits.Load(),
		Retries:             m.retries.Load(),
		ContentionFailures:  m.contentionFailures.Load(),
		ConsistencyFailures: m.consistencyFailures.Load(),
		SinkErrors:          m.sinkErrors.Load(),
		ActiveConnections:   m.activeConnections.Load(),
		Timestamp:           time.Now(),
	}
}

// Reset clears all metrics (for testing).
func (m *Metrics) Reset() {
	m.ordersAdded.Store(0)
	m.ordersRejected.Store(0)
	m.trades.Store(0)
	m.tradedQty.Store(0)
	m.commits.Store(0)
	m.retries.Store(0)
	m.contentionFailures.Store(0)
	m.consistencyFailures.Store(0)
	m.sinkErrors.Store(0)
	m.activeConnections.Store(0)
}

var _ event.Sink = (*Metrics)(nil)
