package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"stock_go/internal/domain"
)

func setupTestDB(t *testing.T) *Storage {
	t.Helper()
	s, err := NewStorage(filepath.Join(t.TempDir(), "ledger", "trades.db"))
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func settled(seq uint64, symbol string, qty int64) domain.SettledTrade {
	return domain.SettledTrade{
		Trade: domain.Trade{
			BuyOrderID:  domain.OrderID(seq * 2),
			SellOrderID: domain.OrderID(seq*2 + 1),
			Quantity:    qty,
			Price:       10050,
			Sequence:    seq,
			Version:     seq,
			Timestamp:   time.Unix(1700000000, 0).UnixMicro(),
		},
		Symbol: symbol,
	}
}

func TestSaveAndCountTrades(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	batch := []domain.SettledTrade{settled(1, "STOCK0001", 5), settled(2, "STOCK0002", 7)}
	if err := s.HandleTrades(ctx, batch); err != nil {
		t.Fatalf("HandleTrades failed: %v", err)
	}

	n, err := s.CountTrades(ctx)
	if err != nil {
		t.Fatalf("CountTrades failed: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 trades, got %d", n)
	}
}

func TestSaveTrades_ReplayIsIdempotent(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	batch := []domain.SettledTrade{settled(1, "A", 1), settled(2, "A", 1)}
	for i := 0; i < 2; i++ {
		if err := s.SaveTrades(ctx, batch); err != nil {
			t.Fatalf("SaveTrades #%d failed: %v", i, err)
		}
	}

	n, _ := s.CountTrades(ctx)
	if n != 2 {
		t.Errorf("expected 2 trades after replay, got %d", n)
	}
}

func TestVolumeBySymbol(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	batch := []domain.SettledTrade{
		settled(1, "AAA", 5),
		settled(2, "BBB", 2),
		settled(3, "AAA", 4),
	}
	if err := s.SaveTrades(ctx, batch); err != nil {
		t.Fatalf("SaveTrades failed: %v", err)
	}

	vol, err := s.VolumeBySymbol(ctx)
	if err != nil {
		t.Fatalf("VolumeBySymbol failed: %v", err)
	}
	if vol["AAA"] != 9 || vol["BBB"] != 2 {
		t.Errorf("unexpected volume: %v", vol)
	}
}

func TestRecentTrades(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	batch := []domain.SettledTrade{settled(1, "AAA", 1), settled(2, "AAA", 2), settled(3, "AAA", 3), settled(4, "BBB", 4)}
	if err := s.SaveTrades(ctx, batch); err != nil {
		t.Fatalf("SaveTrades failed: %v", err)
	}

	recent, err := s.RecentTrades(ctx, "AAA", 2)
	if err != nil {
		t.Fatalf("RecentTrades failed: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("expected 2 trades, got %d", len(recent))
	}
	if recent[0].Sequence != 3 || recent[1].Sequence != 2 {
		t.Errorf("expected newest first, got %d then %d", recent[0].Sequence, recent[1].Sequence)
	}
	if recent[0].PriceTicks != 10050 || recent[0].Symbol != "AAA" {
		t.Errorf("unexpected record: %+v", recent[0])
	}
}

func TestSaveTrades_Empty(t *testing.T) {
	s := setupTestDB(t)
	if err := s.SaveTrades(context.Background(), nil); err != nil {
		t.Errorf("empty batch should be a no-op, got %v", err)
	}
}
