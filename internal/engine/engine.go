package engine

import (
	"encoding/json"
	"io"
	"time"

	"stock_go/internal/domain"
	"stock_go/internal/event"
	"stock_go/pkg/quant"
)

// Options configures an Engine.
type Options struct {
	// MaxRetries caps optimistic commit attempts per call. Zero retries forever.
	MaxRetries int
	// Sink receives engine events. Nil disables instrumentation.
	Sink event.Sink
	// Clock stamps trades. Defaults to time.Now.
	Clock func() time.Time
}

// Engine matches orders on a BookTable using optimistic concurrency.
// Callers on different instruments never contend; callers on the same
// instrument race on that book's version and the loser retries.
type Engine struct {
	table      *BookTable
	orderIDs   *Sequencer
	arrivals   *Sequencer
	tradeSeq   *Sequencer
	maxRetries int
	sink       event.Sink
	clock      func() time.Time

	// beforeCommit runs between the speculative pass and TryCommit (tests only).
	beforeCommit func(instrumentID int)
}

// NewEngine creates an engine with a fresh table of empty books.
func NewEngine(opts Options) *Engine {
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	maxRetries := opts.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &Engine{
		table:      NewBookTable(),
		orderIDs:   NewSequencer(0),
		arrivals:   NewSequencer(0),
		tradeSeq:   NewSequencer(0),
		maxRetries: maxRetries,
		sink:       opts.Sink,
		clock:      clock,
	}
}

// AddOrder validates and inserts a limit order, returning its ID.
// It never matches; call MatchOrder (or Submit) to execute crossing orders.
func (e *Engine) AddOrder(side domain.Side, instrumentID int, quantity int64, price quant.PriceTicks) (domain.OrderID, error) {
	if err := validateOrder(side, instrumentID, quantity, price); err != nil {
		if e.sink != nil {
			e.sink.OnEvent(&event.OrderRejectedEvent{BaseEvent: event.BaseEvent{Instrument: instrumentID}, Err: err})
		}
		return 0, err
	}
	book := &e.table.books[instrumentID]
	id := domain.OrderID(e.orderIDs.Next())

	for attempt := 1; ; attempt++ {
		base := book.snapshot()
		order := domain.Order{
			ID:           id,
			Side:         side,
			InstrumentID: instrumentID,
			Quantity:     quantity,
			Price:        price,
			Seq:          e.arrivals.Next(),
			Status:       domain.OrderStatusActive,
		}

		buys, sells := base.buys, base.sells
		if side == domain.Buy {
			buys = buys.Insert(order)
		} else {
			sells = sells.Insert(order)
		}

		if e.beforeCommit != nil {
			e.beforeCommit(instrumentID)
		}
		if book.TryCommit(base.version, buys, sells) {
			e.emitInserted(order, base.version+1)
			return id, nil
		}

		e.emitRetry("add", instrumentID, base.version, attempt)
		if e.maxRetries > 0 && attempt >= e.maxRetries {
			return 0, domain.NewContentionError("add", instrumentID, attempt)
		}
	}
}

// MatchOrder executes every crossing pair on instrumentID and returns the
// trades in execution order. A book with nothing crossing returns no trades
// and keeps its version.
func (e *Engine) MatchOrder(instrumentID int) ([]domain.Trade, error) {
	book, err := e.table.Book(instrumentID)
	if err != nil {
		return nil, err
	}

	for attempt := 1; ; attempt++ {
		base := book.snapshot()
		buys, sells, trades, err := matchPass(instrumentID, base.buys, base.sells)
		if err != nil {
			return nil, err
		}
		if len(trades) == 0 {
			return nil, nil
		}

		// Stamp before the commit: every number drawn here comes after the
		// base version was published, so a later version always carries
		// higher sequences. A lost attempt leaves a gap.
		version := base.version + 1
		ts := e.clock().UnixMicro()
		for i := range trades {
			trades[i].Sequence = e.tradeSeq.Next()
			trades[i].Version = version
			trades[i].Timestamp = ts
		}

		if e.beforeCommit != nil {
			e.beforeCommit(instrumentID)
		}
		if book.TryCommit(base.version, buys, sells) {
			e.emitTrades(trades, version)
			return trades, nil
		}

		e.emitRetry("match", instrumentID, base.version, attempt)
		if e.maxRetries > 0 && attempt >= e.maxRetries {
			return nil, domain.NewContentionError("match", instrumentID, attempt)
		}
	}
}

// Submit adds an order and immediately runs a matching pass on its book.
// The order ID is returned even when the matching pass fails.
func (e *Engine) Submit(side domain.Side, instrumentID int, quantity int64, price quant.PriceTicks) (domain.OrderID, []domain.Trade, error) {
	id, err := e.AddOrder(side, instrumentID, quantity, price)
	if err != nil {
		return 0, nil, err
	}
	trades, err := e.MatchOrder(instrumentID)
	return id, trades, err
}

// matchPass repeatedly crosses the heads of buys and sells. It only builds
// new queue values; the inputs stay untouched, so an abandoned pass leaves
// nothing behind.
func matchPass(instrumentID int, buys, sells PriceTimeQueue) (PriceTimeQueue, PriceTimeQueue, []domain.Trade, error) {
	var trades []domain.Trade
	for {
		bestBuy, ok := buys.PeekBest()
		if !ok {
			break
		}
		bestSell, ok := sells.PeekBest()
		if !ok {
			break
		}
		buy, sell := bestBuy.Order(), bestSell.Order()
		if buy.Price < sell.Price {
			break
		}

		qty := min(buy.Quantity, sell.Quantity)
		// The order that arrived first sets the price.
		price := sell.Price
		if buy.Seq < sell.Seq {
			price = buy.Price
		}

		var err error
		if buys, _, err = buys.fillBest(qty); err != nil {
			return buys, sells, nil, err
		}
		if sells, _, err = sells.fillBest(qty); err != nil {
			return buys, sells, nil, err
		}

		trades = append(trades, domain.Trade{
			BuyOrderID:   buy.ID,
			SellOrderID:  sell.ID,
			InstrumentID: instrumentID,
			Quantity:     qty,
			Price:        price,
		})
	}
	return buys, sells, trades, nil
}

func validateOrder(side domain.Side, instrumentID int, quantity int64, price quant.PriceTicks) error {
	if !side.Valid() {
		return domain.NewInvalidOrderError("side", "unknown side %d", side)
	}
	if err := checkInstrument(instrumentID); err != nil {
		return err
	}
	if quantity <= 0 {
		return domain.NewInvalidOrderError("quantity", "must be positive, got %d", quantity)
	}
	if price <= 0 {
		return domain.NewInvalidOrderError("price", "must be positive, got %s", price)
	}
	return nil
}

// Depth returns the committed orders of instrumentID, best first on each side.
func (e *Engine) Depth(instrumentID int) (buys, sells []domain.Order, err error) {
	book, err := e.table.Book(instrumentID)
	if err != nil {
		return nil, nil, err
	}
	buys, sells = book.Depth()
	return buys, sells, nil
}

// Version returns the committed version of instrumentID's book.
func (e *Engine) Version(instrumentID int) (uint64, error) {
	book, err := e.table.Book(instrumentID)
	if err != nil {
		return 0, err
	}
	return book.SnapshotVersion(), nil
}

// Verify checks the ordering invariants of every book.
func (e *Engine) Verify() error {
	var firstErr error
	e.table.forEach(func(b *InstrumentBook) bool {
		firstErr = b.Verify()
		return firstErr == nil
	})
	return firstErr
}

type bookDump struct {
	Instrument int            `json:"instrument"`
	Version    uint64         `json:"version"`
	Buys       []domain.Order `json:"buys"`
	Sells      []domain.Order `json:"sells"`
}

// DumpState writes every non-empty book as JSON (for post-mortem).
func (e *Engine) DumpState(w io.Writer) error {
	data := struct {
		LastOrderID  uint64     `json:"last_order_id"`
		LastTradeSeq uint64     `json:"last_trade_seq"`
		Books        []bookDump `json:"books"`
	}{
		LastOrderID:  e.orderIDs.Current(),
		LastTradeSeq: e.tradeSeq.Current(),
	}

	e.table.forEach(func(b *InstrumentBook) bool {
		s := b.snapshot()
		if s.buys.Len() == 0 && s.sells.Len() == 0 {
			return true
		}
		data.Books = append(data.Books, bookDump{
			Instrument: b.ID(),
			Version:    s.version,
			Buys:       s.buys.Orders(),
			Sells:      s.sells.Orders(),
		})
		return true
	})

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

func (e *Engine) emitInserted(o domain.Order, version uint64) {
	if e.sink == nil {
		return
	}
	ev := event.AcquireOrderInsertedEvent()
	ev.Instrument = o.InstrumentID
	ev.Version = version
	ev.Order = o
	e.sink.OnEvent(ev)
	event.ReleaseOrderInsertedEvent(ev)
}

func (e *Engine) emitRetry(op string, instrumentID int, staleVersion uint64, attempt int) {
	if e.sink == nil {
		return
	}
	e.sink.OnEvent(&event.RetryEvent{
		BaseEvent: event.BaseEvent{Instrument: instrumentID, Version: staleVersion},
		Op:        op,
		Attempt:   attempt,
	})
}

func (e *Engine) emitTrades(trades []domain.Trade, version uint64) {
	if e.sink == nil {
		return
	}
	for _, t := range trades {
		ev := event.AcquireTradeEvent()
		ev.Instrument = t.InstrumentID
		ev.Version = version
		ev.Trade = t
		e.sink.OnEvent(ev)
		event.ReleaseTradeEvent(ev)
	}
	e.sink.OnEvent(&event.MatchCommittedEvent{
		BaseEvent: event.BaseEvent{Instrument: trades[0].InstrumentID, Version: version},
		Trades:    len(trades),
	})
}
