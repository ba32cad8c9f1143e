package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"stock_go/internal/domain"

	"github.com/shopspring/decimal"
)

// ErrSettlementClosed is returned by Submit after Close.
var ErrSettlementClosed = errors.New("settlement closed")

// SinkErrorRecorder counts failed downstream deliveries.
type SinkErrorRecorder interface {
	RecordSinkError()
}

// Stats summarises every trade settled so far.
type Stats struct {
	TotalTrades      int64
	TotalQuantity    int64
	AveragePrice     decimal.Decimal // unweighted mean of execution prices
	VWAP             decimal.Decimal
	MostActiveSymbol string
	MostActiveQty    int64
}

// Settlement receives executed trades from the brokers, tags them with
// symbols, keeps running statistics and fans them out to downstream sinks.
// Sink failures are logged and counted, never propagated to the engine.
type Settlement struct {
	namer    domain.SymbolNamer
	sinks    []domain.TradeSink
	logger   *slog.Logger
	recorder SinkErrorRecorder

	tradeChan chan []domain.Trade
	closeMu   sync.RWMutex
	closed    bool
	wg        sync.WaitGroup

	mu         sync.RWMutex
	totalTrade int64
	totalQty   int64
	priceSum   decimal.Decimal
	notional   decimal.Decimal
	volume     [domain.MaxInstruments]int64
}

// NewSettlement creates a settlement service. recorder may be nil.
func NewSettlement(namer domain.SymbolNamer, logger *slog.Logger, recorder SinkErrorRecorder, buffer int, sinks ...domain.TradeSink) *Settlement {
	if logger == nil {
		logger = slog.Default()
	}
	return &Settlement{
		namer:     namer,
		sinks:     sinks,
		logger:    logger,
		recorder:  recorder,
		tradeChan: make(chan []domain.Trade, buffer),
		priceSum:  decimal.Zero,
		notional:  decimal.Zero,
	}
}

// Start launches the background processor. It runs until Close drains the channel.
func (s *Settlement) Start(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for trades := range s.tradeChan {
			s.Process(ctx, trades)
		}
	}()
}

// Submit queues one matching pass worth of trades.
func (s *Settlement) Submit(ctx context.Context, trades []domain.Trade) error {
	if len(trades) == 0 {
		return nil
	}
	s.closeMu.RLock()
	defer s.closeMu.RUnlock()
	if s.closed {
		return ErrSettlementClosed
	}

	select {
	case s.tradeChan <- trades:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Process settles trades synchronously on the calling goroutine.
func (s *Settlement) Process(ctx context.Context, trades []domain.Trade) {
	if len(trades) == 0 {
		return
	}
	settled := make([]domain.SettledTrade, len(trades))
	for i, t := range trades {
		settled[i] = domain.SettledTrade{Trade: t, Symbol: s.symbol(t.InstrumentID)}
	}

	s.record(trades)

	for _, sink := range s.sinks {
		if err := sink.HandleTrades(ctx, settled); err != nil {
			s.logger.Warn("trade sink failed",
				slog.Any("error", err),
				slog.Int("trades", len(settled)),
				slog.Uint64("first_seq", settled[0].Sequence))
			if s.recorder != nil {
				s.recorder.RecordSinkError()
			}
		}
	}
}

func (s *Settlement) symbol(instrumentID int) string {
	if s.namer == nil {
		return ""
	}
	return s.namer.Symbol(instrumentID)
}

func (s *Settlement) record(trades []domain.Trade) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, t := range trades {
		px := t.Price.Decimal()
		s.totalTrade++
		s.totalQty += t.Quantity
		s.priceSum = s.priceSum.Add(px)
		s.notional = s.notional.Add(px.Mul(decimal.NewFromInt(t.Quantity)))
		if t.InstrumentID >= 0 && t.InstrumentID < domain.MaxInstruments {
			s.volume[t.InstrumentID] += t.Quantity
		}
	}
}

// Stats returns a snapshot of the running statistics.
func (s *Settlement) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Stats{
		TotalTrades:   s.totalTrade,
		TotalQuantity: s.totalQty,
		AveragePrice:  decimal.Zero,
		VWAP:          decimal.Zero,
	}
	if s.totalTrade > 0 {
		st.AveragePrice = s.priceSum.Div(decimal.NewFromInt(s.totalTrade))
	}
	if s.totalQty > 0 {
		st.VWAP = s.notional.Div(decimal.NewFromInt(s.totalQty))
	}

	// Linear scan; ties go to the lower slot.
	best := -1
	for i, q := range s.volume {
		if q > 0 && (best < 0 || q > s.volume[best]) {
			best = i
		}
	}
	if best >= 0 {
		st.MostActiveSymbol = s.symbol(best)
		st.MostActiveQty = s.volume[best]
	}
	return st
}

// Close stops accepting trades and waits for queued ones to settle.
func (s *Settlement) Close() {
	s.closeMu.Lock()
	if s.closed {
		s.closeMu.Unlock()
		return
	}
	s.closed = true
	close(s.tradeChan)
	s.closeMu.Unlock()

	s.wg.Wait()
}
