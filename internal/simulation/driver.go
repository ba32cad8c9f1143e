package simulation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"stock_go/internal/domain"
	"stock_go/pkg/quant"
)

// OrderSubmitter places an order and runs a matching pass on its book.
type OrderSubmitter interface {
	Submit(side domain.Side, instrumentID int, quantity int64, price quant.PriceTicks) (domain.OrderID, []domain.Trade, error)
}

// SymbolResolver maps ticker symbols to book slots.
type SymbolResolver interface {
	Resolve(symbol string) (int, error)
	Symbol(instrumentID int) string
}

// TradeForwarder receives the trades of each matching pass.
type TradeForwarder interface {
	Submit(ctx context.Context, trades []domain.Trade) error
}

// Config describes the simulated order flow.
type Config struct {
	Brokers           int
	Orders            int // total, split evenly across brokers
	ActiveInstruments int
	MinQty, MaxQty    int64
	MinPrice          quant.PriceTicks
	MaxPrice          quant.PriceTicks
	MinThink          time.Duration
	MaxThink          time.Duration
	Seed              uint64 // 0 = time based
}

// Report summarises a finished run.
type Report struct {
	Submitted   int64
	Accepted    int64
	Rejected    int64
	Contention  int64
	Trades      int64
	TradedQty   int64
	Elapsed     time.Duration
	Consistency error // first internal consistency failure, if any
}

// Driver runs concurrent brokers against the engine.
type Driver struct {
	engine  OrderSubmitter
	symbols SymbolResolver
	trades  TradeForwarder
	cfg     Config
	logger  *slog.Logger

	submitted  atomic.Int64
	accepted   atomic.Int64
	rejected   atomic.Int64
	contention atomic.Int64
	tradeCount atomic.Int64
	tradedQty  atomic.Int64
}

// NewDriver creates a driver. trades may be nil.
func NewDriver(engine OrderSubmitter, symbols SymbolResolver, trades TradeForwarder, cfg Config, logger *slog.Logger) *Driver {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Seed == 0 {
		cfg.Seed = uint64(time.Now().UnixNano())
	}
	return &Driver{engine: engine, symbols: symbols, trades: trades, cfg: cfg, logger: logger}
}

// Run starts every broker and waits for them. An internal consistency
// failure stops all brokers and is reported in Report.Consistency.
// The returned error is non-nil only for context cancellation.
func (d *Driver) Run(ctx context.Context) (Report, error) {
	if d.cfg.Brokers <= 0 {
		return Report{}, fmt.Errorf("simulation: brokers must be positive, got %d", d.cfg.Brokers)
	}
	start := time.Now()
	perBroker := d.cfg.Orders / d.cfg.Brokers

	g, gctx := errgroup.WithContext(ctx)
	for b := 0; b < d.cfg.Brokers; b++ {
		g.Go(func() error {
			return d.broker(gctx, b, perBroker)
		})
	}
	err := g.Wait()

	report := Report{
		Submitted:  d.submitted.Load(),
		Accepted:   d.accepted.Load(),
		Rejected:   d.rejected.Load(),
		Contention: d.contention.Load(),
		Trades:     d.tradeCount.Load(),
		TradedQty:  d.tradedQty.Load(),
		Elapsed:    time.Since(start),
	}
	if errors.Is(err, domain.ErrInternalConsistency) {
		report.Consistency = err
		return report, nil
	}
	return report, err
}

func (d *Driver) broker(ctx context.Context, id, orders int) error {
	rng := rand.New(rand.NewPCG(d.cfg.Seed, uint64(id)))
	log := d.logger.With(slog.Int("broker", id))

	for i := 0; i < orders; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		side := domain.Buy
		if rng.IntN(2) == 1 {
			side = domain.Sell
		}
		symbol := d.symbols.Symbol(rng.IntN(d.cfg.ActiveInstruments))
		qty := d.cfg.MinQty + rng.Int64N(d.cfg.MaxQty-d.cfg.MinQty+1)
		price := d.cfg.MinPrice + quant.PriceTicks(rng.Int64N(int64(d.cfg.MaxPrice-d.cfg.MinPrice)+1))

		d.submitted.Add(1)
		if err := d.place(ctx, side, symbol, qty, price); err != nil {
			if errors.Is(err, domain.ErrInternalConsistency) {
				log.Error("engine consistency failure", slog.Any("error", err), slog.String("symbol", symbol))
				return fmt.Errorf("broker %d: %w", id, err)
			}
			log.Warn("order failed", slog.Any("error", err), slog.String("symbol", symbol))
		}

		if err := d.think(ctx, rng); err != nil {
			return err
		}
	}
	return nil
}

func (d *Driver) place(ctx context.Context, side domain.Side, symbol string, qty int64, price quant.PriceTicks) error {
	instrumentID, err := d.symbols.Resolve(symbol)
	if err != nil {
		d.rejected.Add(1)
		return err
	}

	_, trades, err := d.engine.Submit(side, instrumentID, qty, price)
	switch {
	case errors.Is(err, domain.ErrInvalidOrder):
		d.rejected.Add(1)
		return err
	case errors.Is(err, domain.ErrContention):
		// The order may be resting even if its matching pass gave up.
		d.contention.Add(1)
		return err
	case err != nil:
		return err
	}

	d.accepted.Add(1)
	if len(trades) == 0 {
		return nil
	}
	d.tradeCount.Add(int64(len(trades)))
	for _, t := range trades {
		d.tradedQty.Add(t.Quantity)
	}
	if d.trades != nil {
		if err := d.trades.Submit(ctx, trades); err != nil {
			return fmt.Errorf("forward trades: %w", err)
		}
	}
	return nil
}

func (d *Driver) think(ctx context.Context, rng *rand.Rand) error {
	if d.cfg.MaxThink <= 0 {
		return nil
	}
	pause := d.cfg.MinThink
	if span := d.cfg.MaxThink - d.cfg.MinThink; span > 0 {
		pause += time.Duration(rng.Int64N(int64(span) + 1))
	}
	timer := time.NewTimer(pause)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
