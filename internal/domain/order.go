package domain

import "stock_go/pkg/quant"

// MaxInstruments is the fixed number of instrument slots on the venue.
const MaxInstruments = 1024

// OrderID identifies an order for its whole lifetime. IDs are unique and increasing.
type OrderID uint64

// Side is the direction of an order.
type Side uint8

const (
	Buy Side = iota + 1
	Sell
)

// String returns the string representation of Side
func (s Side) String() string {
	switch s {
	case Buy:
		return "BUY"
	case Sell:
		return "SELL"
	default:
		return "UNKNOWN"
	}
}

// Valid reports whether s is Buy or Sell.
func (s Side) Valid() bool {
	return s == Buy || s == Sell
}

// MarshalText renders the side as BUY/SELL in JSON dumps.
func (s Side) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// OrderStatus is the lifecycle state of an order.
type OrderStatus uint8

const (
	OrderStatusActive OrderStatus = iota
	OrderStatusFilled
	// OrderStatusCancelled is reserved; no cancel path exists yet.
	OrderStatusCancelled
)

func (s OrderStatus) String() string {
	switch s {
	case OrderStatusActive:
		return "ACTIVE"
	case OrderStatusFilled:
		return "FILLED"
	case OrderStatusCancelled:
		return "CANCELLED"
	default:
		return "UNKNOWN"
	}
}

func (s OrderStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Order represents a resting limit order.
// Price and Seq never change after creation; Quantity only decreases.
type Order struct {
	ID           OrderID          `json:"id"`
	Side         Side             `json:"side"`
	InstrumentID int              `json:"instrument"`
	Quantity     int64            `json:"qty"`
	Price        quant.PriceTicks `json:"price"`
	Seq          uint64           `json:"seq"`
	Status       OrderStatus      `json:"status"`
}

// IsOpen checks if the order is still eligible for matching.
func (o *Order) IsOpen() bool {
	return o.Status == OrderStatusActive && o.Quantity > 0
}

// Trade is a single execution between the best buy and the best sell.
type Trade struct {
	BuyOrderID   OrderID          `json:"buy_order_id"`
	SellOrderID  OrderID          `json:"sell_order_id"`
	InstrumentID int              `json:"instrument"`
	Quantity     int64            `json:"qty"`
	Price        quant.PriceTicks `json:"price"`
	Sequence     uint64           `json:"seq"`     // unique; increases with Version on one book
	Version      uint64           `json:"version"` // book version that committed this trade
	Timestamp    int64            `json:"ts"`      // Unix Microseconds
}

// SettledTrade is a Trade enriched with the instrument symbol for downstream consumers.
type SettledTrade struct {
	Trade
	Symbol string `json:"symbol"`
}
