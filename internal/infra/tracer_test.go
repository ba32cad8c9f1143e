package infra

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"stock_go/internal/domain"
	"stock_go/internal/event"
)

func TestTracer_LogsAtDebug(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	tr := NewTracer(logger)

	tr.OnEvent(&event.TradeEvent{
		BaseEvent: event.BaseEvent{Instrument: 3, Version: 9},
		Trade:     domain.Trade{BuyOrderID: 1, SellOrderID: 2, Quantity: 4, Price: 1050},
	})
	tr.OnEvent(&event.OrderRejectedEvent{Err: errors.New("bad price")})

	out := buf.String()
	for _, want := range []string{`"type":"TRADE"`, `"instrument":3`, `"price":"10.50"`, `"error":"bad price"`} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %s:\n%s", want, out)
		}
	}
}

func TestTracer_SilentAboveDebug(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))

	NewTracer(logger).OnEvent(&event.RetryEvent{Op: "add", Attempt: 1})
	if buf.Len() != 0 {
		t.Errorf("expected no output at info level, got %s", buf.String())
	}
}
