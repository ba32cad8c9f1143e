package event

import "stock_go/internal/domain"

// Type identifies an engine event.
type Type uint8

const (
	TypeOrderInserted Type = iota + 1
	TypeOrderRejected
	TypeRetry
	TypeTrade
	TypeMatchCommitted
)

func (t Type) String() string {
	switch t {
	case TypeOrderInserted:
		return "ORDER_INSERTED"
	case TypeOrderRejected:
		return "ORDER_REJECTED"
	case TypeRetry:
		return "RETRY"
	case TypeTrade:
		return "TRADE"
	case TypeMatchCommitted:
		return "MATCH_COMMITTED"
	default:
		return "UNKNOWN"
	}
}

// Event is emitted by the matching engine after the fact it describes.
type Event interface {
	GetType() Type
	GetInstrument() int
}

// BaseEvent carries the book an event belongs to and the version it observed or produced.
type BaseEvent struct {
	Instrument int
	Version    uint64
}

func (b *BaseEvent) GetInstrument() int { return b.Instrument }

// OrderInsertedEvent: an order was committed into a queue at Version.
type OrderInsertedEvent struct {
	BaseEvent
	Order domain.Order
}

func (e *OrderInsertedEvent) GetType() Type { return TypeOrderInserted }

// OrderRejectedEvent: AddOrder failed validation. Nothing was attempted.
type OrderRejectedEvent struct {
	BaseEvent
	Err error
}

func (e *OrderRejectedEvent) GetType() Type { return TypeOrderRejected }

// RetryEvent: a commit attempt lost against a concurrent writer. Version is the stale base.
type RetryEvent struct {
	BaseEvent
	Op      string
	Attempt int
}

func (e *RetryEvent) GetType() Type { return TypeRetry }

// TradeEvent: one trade from a committed matching pass.
type TradeEvent struct {
	BaseEvent
	Trade domain.Trade
}

func (e *TradeEvent) GetType() Type { return TypeTrade }

// MatchCommittedEvent: a matching pass committed Trades trades at Version.
type MatchCommittedEvent struct {
	BaseEvent
	Trades int
}

func (e *MatchCommittedEvent) GetType() Type { return TypeMatchCommitted }

var (
	_ Event = (*OrderInsertedEvent)(nil)
	_ Event = (*OrderRejectedEvent)(nil)
	_ Event = (*RetryEvent)(nil)
	_ Event = (*TradeEvent)(nil)
	_ Event = (*MatchCommittedEvent)(nil)
)

// Sink receives engine events synchronously on the calling goroutine.
// Pooled events are released when OnEvent returns, so sinks must copy what they keep.
type Sink interface {
	OnEvent(ev Event)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ev Event)

func (f SinkFunc) OnEvent(ev Event) { f(ev) }

// MultiSink fans an event out to every non-nil sink in order.
type MultiSink []Sink

func (m MultiSink) OnEvent(ev Event) {
	for _, s := range m {
		if s != nil {
			s.OnEvent(ev)
		}
	}
}
