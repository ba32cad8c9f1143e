package infra

import (
	"context"
	"log/slog"

	"stock_go/internal/event"
)

// Tracer logs every engine event at debug level.
type Tracer struct {
	logger *slog.Logger
}

// NewTracer creates a tracer writing to logger.
func NewTracer(logger *slog.Logger) *Tracer {
	return &Tracer{logger: logger}
}

// OnEvent implements event.Sink. Disabled debug level costs one Enabled check.
func (t *Tracer) OnEvent(ev event.Event) {
	if !t.logger.Enabled(context.Background(), slog.LevelDebug) {
		return
	}

	attrs := []slog.Attr{
		slog.String("type", ev.GetType().String()),
		slog.Int("instrument", ev.GetInstrument()),
	}
	switch e := ev.(type) {
	case *event.OrderInsertedEvent:
		attrs = append(attrs,
			slog.Uint64("version", e.Version),
			slog.Uint64("order_id", uint64(e.Order.ID)),
			slog.String("side", e.Order.Side.String()),
			slog.Int64("qty", e.Order.Quantity),
			slog.String("price", e.Order.Price.String()),
			slog.Uint64("seq", e.Order.Seq))
	case *event.OrderRejectedEvent:
		attrs = append(attrs, slog.String("error", e.Err.Error()))
	case *event.RetryEvent:
		attrs = append(attrs,
			slog.String("op", e.Op),
			slog.Uint64("stale_version", e.Version),
			slog.Int("attempt", e.Attempt))
	case *event.TradeEvent:
		attrs = append(attrs,
			slog.Uint64("version", e.Version),
			slog.Uint64("buy_id", uint64(e.Trade.BuyOrderID)),
			slog.Uint64("sell_id", uint64(e.Trade.SellOrderID)),
			slog.Int64("qty", e.Trade.Quantity),
			slog.String("price", e.Trade.Price.String()))
	case *event.MatchCommittedEvent:
		attrs = append(attrs,
			slog.Uint64("version", e.Version),
			slog.Int("trades", e.Trades))
	}
	t.logger.LogAttrs(context.Background(), slog.LevelDebug, "engine event", attrs...)
}

var _ event.Sink = (*Tracer)(nil)
