package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"stock_go/internal/domain"
	"stock_go/pkg/quant"

	"github.com/shopspring/decimal"
)

type namer struct{}

func (namer) Symbol(id int) string { return fmt.Sprintf("SYM%d", id) }

type captureSink struct {
	mu     sync.Mutex
	trades []domain.SettledTrade
	err    error
}

func (c *captureSink) HandleTrades(_ context.Context, trades []domain.SettledTrade) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.trades = append(c.trades, trades...)
	return c.err
}

type counter struct{ n atomic.Int64 }

func (c *counter) RecordSinkError() { c.n.Add(1) }

func tr(inst int, qty int64, price quant.PriceTicks) domain.Trade {
	return domain.Trade{InstrumentID: inst, Quantity: qty, Price: price}
}

func TestSettlement_ProcessStats(t *testing.T) {
	sink := &captureSink{}
	s := NewSettlement(namer{}, nil, nil, 0, sink)

	s.Process(context.Background(), []domain.Trade{
		tr(1, 10, 10000), // 100.00
		tr(2, 30, 20000), // 200.00
	})
	s.Process(context.Background(), []domain.Trade{tr(1, 5, 15000)})

	st := s.Stats()
	if st.TotalTrades != 3 || st.TotalQuantity != 45 {
		t.Fatalf("totals = %d trades, %d qty", st.TotalTrades, st.TotalQuantity)
	}
	if !st.AveragePrice.Equal(decimal.NewFromInt(150)) {
		t.Errorf("average price = %s, want 150", st.AveragePrice)
	}
	// (100*10 + 200*30 + 150*5) / 45 = 7750 / 45
	wantVWAP := decimal.NewFromInt(7750).Div(decimal.NewFromInt(45))
	if !st.VWAP.Equal(wantVWAP) {
		t.Errorf("VWAP = %s, want %s", st.VWAP, wantVWAP)
	}
	if st.MostActiveSymbol != "SYM2" || st.MostActiveQty != 30 {
		t.Errorf("most active = %s/%d, want SYM2/30", st.MostActiveSymbol, st.MostActiveQty)
	}

	if len(sink.trades) != 3 || sink.trades[0].Symbol != "SYM1" || sink.trades[1].Symbol != "SYM2" {
		t.Errorf("sink got %+v", sink.trades)
	}
}

func TestSettlement_EmptyStats(t *testing.T) {
	s := NewSettlement(namer{}, nil, nil, 0)
	st := s.Stats()
	if st.TotalTrades != 0 || !st.AveragePrice.IsZero() || st.MostActiveSymbol != "" {
		t.Errorf("empty stats = %+v", st)
	}
}

func TestSettlement_SinkErrorsAreCounted(t *testing.T) {
	failing := &captureSink{err: errors.New("disk full")}
	healthy := &captureSink{}
	rec := &counter{}
	s := NewSettlement(namer{}, nil, rec, 0, failing, healthy)

	s.Process(context.Background(), []domain.Trade{tr(0, 1, 100)})

	if rec.n.Load() != 1 {
		t.Errorf("sink errors = %d, want 1", rec.n.Load())
	}
	if len(healthy.trades) != 1 {
		t.Error("healthy sink should still receive trades after another sink fails")
	}
	if s.Stats().TotalTrades != 1 {
		t.Error("stats must not depend on sink success")
	}
}

func TestSettlement_AsyncDrainOnClose(t *testing.T) {
	sink := &captureSink{}
	s := NewSettlement(namer{}, nil, nil, 16, sink)
	s.Start(context.Background())

	const producers, batches = 4, 50
	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < batches; i++ {
				if err := s.Submit(context.Background(), []domain.Trade{tr(p, 1, 100)}); err != nil {
					t.Errorf("Submit: %v", err)
					return
				}
			}
		}(p)
	}
	wg.Wait()
	s.Close()

	if got := s.Stats().TotalTrades; got != producers*batches {
		t.Errorf("settled %d trades, want %d", got, producers*batches)
	}
	if len(sink.trades) != producers*batches {
		t.Errorf("sink received %d trades", len(sink.trades))
	}

	if err := s.Submit(context.Background(), []domain.Trade{tr(0, 1, 100)}); !errors.Is(err, ErrSettlementClosed) {
		t.Errorf("Submit after Close = %v, want ErrSettlementClosed", err)
	}
	s.Close() // idempotent
}
