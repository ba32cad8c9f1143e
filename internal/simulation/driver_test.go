package simulation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"stock_go/internal/domain"
	"stock_go/internal/engine"
	"stock_go/pkg/quant"
)

type collector struct {
	mu     sync.Mutex
	trades []domain.Trade
}

func (c *collector) Submit(_ context.Context, trades []domain.Trade) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.trades = append(c.trades, trades...)
	return nil
}

func testConfig() Config {
	return Config{
		Brokers:           4,
		Orders:            2000,
		ActiveInstruments: 4,
		MinQty:            1,
		MaxQty:            10,
		MinPrice:          100,
		MaxPrice:          110,
		Seed:              42,
	}
}

func TestDriver_RunAgainstEngine(t *testing.T) {
	eng := engine.NewEngine(engine.Options{})
	symbols := engine.NewSymbolTable("STOCK", domain.MaxInstruments)
	sink := &collector{}

	report, err := NewDriver(eng, symbols, sink, testConfig(), nil).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Consistency != nil {
		t.Fatalf("consistency failure: %v", report.Consistency)
	}
	if report.Submitted != 2000 || report.Accepted != 2000 {
		t.Errorf("submitted %d, accepted %d, want 2000 each", report.Submitted, report.Accepted)
	}
	if report.Trades == 0 {
		t.Error("overlapping price range should produce trades")
	}
	if int64(len(sink.trades)) != report.Trades {
		t.Errorf("forwarded %d trades, report says %d", len(sink.trades), report.Trades)
	}

	if err := eng.Verify(); err != nil {
		t.Fatalf("Verify: %v", err)
	}
	for inst := 0; inst < 4; inst++ {
		buys, sells, _ := eng.Depth(inst)
		if len(buys) > 0 && len(sells) > 0 && buys[0].Price >= sells[0].Price {
			t.Errorf("instrument %d left crossed: %s >= %s", inst, buys[0].Price, sells[0].Price)
		}
	}
	for inst := 4; inst < 8; inst++ {
		if v, _ := eng.Version(inst); v != 0 {
			t.Errorf("inactive instrument %d has version %d", inst, v)
		}
	}
}

type brokenEngine struct{}

func (brokenEngine) Submit(domain.Side, int, int64, quant.PriceTicks) (domain.OrderID, []domain.Trade, error) {
	return 0, nil, domain.NewConsistencyError("fill", "broken on purpose")
}

func TestDriver_StopsOnConsistencyFailure(t *testing.T) {
	cfg := testConfig()
	cfg.MaxThink = time.Millisecond

	report, err := NewDriver(brokenEngine{}, engine.NewSymbolTable("S", 4), nil, cfg, nil).Run(context.Background())
	if err != nil {
		t.Fatalf("Run returned %v, want report", err)
	}
	if !errors.Is(report.Consistency, domain.ErrInternalConsistency) {
		t.Fatalf("Consistency = %v", report.Consistency)
	}
	if report.Submitted >= 2000 {
		t.Errorf("brokers kept going after the failure: %d submitted", report.Submitted)
	}
}

type rejectingResolver struct{}

func (rejectingResolver) Resolve(string) (int, error) {
	return -1, domain.NewInvalidOrderError("symbol", "unknown")
}

func (rejectingResolver) Symbol(int) string { return "" }

func TestDriver_CountsRejections(t *testing.T) {
	cfg := testConfig()
	cfg.Orders = 40

	report, err := NewDriver(engine.NewEngine(engine.Options{}), rejectingResolver{}, nil, cfg, nil).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Rejected != 40 || report.Accepted != 0 {
		t.Errorf("rejected %d, accepted %d", report.Rejected, report.Accepted)
	}
}

func TestDriver_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewDriver(engine.NewEngine(engine.Options{}), engine.NewSymbolTable("S", 4), nil, testConfig(), nil).Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}
