package domain

import (
	"time"
)

// TradeRecord is the ledger row for one settled trade
type TradeRecord struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Sequence     uint64    `gorm:"uniqueIndex" json:"seq"`
	InstrumentID int       `gorm:"index" json:"instrument"`
	Symbol       string    `gorm:"index" json:"symbol"`
	BuyOrderID   uint64    `json:"buy_order_id"`
	SellOrderID  uint64    `json:"sell_order_id"`
	Quantity     int64     `json:"qty"`
	PriceTicks   int64     `json:"price_ticks"`
	BookVersion  uint64    `json:"book_version"`
	ExecutedAt   time.Time `gorm:"index" json:"executed_at"`
	CreatedAt    time.Time `json:"created_at"`
}

// NewTradeRecord flattens a settled trade into its ledger row.
func NewTradeRecord(t SettledTrade) TradeRecord {
	return TradeRecord{
		Sequence:     t.Sequence,
		InstrumentID: t.InstrumentID,
		Symbol:       t.Symbol,
		BuyOrderID:   uint64(t.BuyOrderID),
		SellOrderID:  uint64(t.SellOrderID),
		Quantity:     t.Quantity,
		PriceTicks:   int64(t.Price),
		BookVersion:  t.Version,
		ExecutedAt:   time.UnixMicro(t.Timestamp),
	}
}
