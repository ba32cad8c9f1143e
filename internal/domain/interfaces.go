package domain

import "context"

// TradeSink consumes settled trades downstream of the engine (ledger, feed, bus).
type TradeSink interface {
	HandleTrades(ctx context.Context, trades []SettledTrade) error
}

// SymbolNamer maps an instrument slot back to its symbol.
type SymbolNamer interface {
	Symbol(instrumentID int) string
}
