package quant

import "github.com/shopspring/decimal"

// TickScale is the number of decimal places carried by a PriceTicks value (cents).
const TickScale = 2

// PriceTicks is a fixed-point price in units of 10^-TickScale.
// All prices inside the engine are strictly int64 to keep comparisons exact.
type PriceTicks int64

// ToPriceTicks converts a decimal price, rounding half away from zero to the nearest tick.
func ToPriceTicks(d decimal.Decimal) PriceTicks {
	return PriceTicks(d.Shift(TickScale).Round(0).IntPart())
}

// ParsePrice parses a decimal string such as "101.25" into ticks.
func ParsePrice(s string) (PriceTicks, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, err
	}
	return ToPriceTicks(d), nil
}

// Decimal returns the price as a decimal with TickScale places.
func (p PriceTicks) Decimal() decimal.Decimal {
	return decimal.New(int64(p), -TickScale)
}

// String formats the price with exactly TickScale decimals.
func (p PriceTicks) String() string {
	return p.Decimal().StringFixed(TickScale)
}

// MarshalText lets prices appear as "101.25" in JSON dumps and logs.
func (p PriceTicks) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText parses a decimal string, the inverse of MarshalText.
func (p *PriceTicks) UnmarshalText(b []byte) error {
	v, err := ParsePrice(string(b))
	if err != nil {
		return err
	}
	*p = v
	return nil
}
