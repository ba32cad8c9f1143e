package event

import (
	"sync"

	"stock_go/internal/domain"
)

// Inserts and trades are emitted on every successful commit, so they come from pools.
//
// Usage:
//
//	ev := AcquireTradeEvent()
//	ev.Trade = t
//	sink.OnEvent(ev)
//	ReleaseTradeEvent(ev)
var orderInsertedPool = sync.Pool{
	New: func() interface{} {
		return &OrderInsertedEvent{}
	},
}

// AcquireOrderInsertedEvent gets an OrderInsertedEvent from the pool.
// The returned event has zero values and must be initialized.
func AcquireOrderInsertedEvent() *OrderInsertedEvent {
	return orderInsertedPool.Get().(*OrderInsertedEvent)
}

// ReleaseOrderInsertedEvent resets the event and returns it to the pool.
func ReleaseOrderInsertedEvent(ev *OrderInsertedEvent) {
	if ev == nil {
		return
	}
	ev.BaseEvent = BaseEvent{}
	ev.Order = domain.Order{}

	orderInsertedPool.Put(ev)
}

var tradePool = sync.Pool{
	New: func() interface{} {
		return &TradeEvent{}
	},
}

// AcquireTradeEvent gets a TradeEvent from the pool.
func AcquireTradeEvent() *TradeEvent {
	return tradePool.Get().(*TradeEvent)
}

// ReleaseTradeEvent returns a TradeEvent to the pool.
func ReleaseTradeEvent(ev *TradeEvent) {
	if ev == nil {
		return
	}
	ev.BaseEvent = BaseEvent{}
	ev.Trade = domain.Trade{}

	tradePool.Put(ev)
}

// Warmup pre-allocates event objects to reduce GC pressure at startup.
func Warmup() {
	const batchSize = 1000

	inserted := make([]*OrderInsertedEvent, 0, batchSize)
	for i := 0; i < batchSize; i++ {
		inserted = append(inserted, AcquireOrderInsertedEvent())
	}
	for _, ev := range inserted {
		ReleaseOrderInsertedEvent(ev)
	}

	trades := make([]*TradeEvent, 0, batchSize)
	for i := 0; i < batchSize; i++ {
		trades = append(trades, AcquireTradeEvent())
	}
	for _, ev := range trades {
		ReleaseTradeEvent(ev)
	}
}
