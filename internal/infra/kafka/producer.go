package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"

	"stock_go/internal/domain"
)

// messageWriter is the part of *kafka.Writer the producer uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer publishes settled trades, keyed by symbol so one instrument's
// trades stay ordered within a partition.
type Producer struct {
	writer messageWriter
}

func NewProducer(brokers []string, topic string, batchTimeout time.Duration) *Producer {
	if batchTimeout <= 0 {
		batchTimeout = 10 * time.Millisecond
	}
	return &Producer{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			Async:        false,
			BatchTimeout: batchTimeout,
		},
	}
}

// HandleTrades implements domain.TradeSink.
func (p *Producer) HandleTrades(ctx context.Context, trades []domain.SettledTrade) error {
	if len(trades) == 0 {
		return nil
	}
	msgs, err := buildMessages(trades)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("kafka: publish %d trades: %w", len(msgs), err)
	}
	return nil
}

func buildMessages(trades []domain.SettledTrade) ([]kafka.Message, error) {
	msgs := make([]kafka.Message, 0, len(trades))
	for _, t := range trades {
		value, err := json.Marshal(t)
		if err != nil {
			return nil, fmt.Errorf("kafka: encode trade %d: %w", t.Sequence, err)
		}
		msgs = append(msgs, kafka.Message{
			Key:   []byte(t.Symbol),
			Value: value,
			Headers: []kafka.Header{
				{Key: "seq", Value: []byte(strconv.FormatUint(t.Sequence, 10))},
			},
			Time: time.UnixMicro(t.Timestamp),
		})
	}
	return msgs, nil
}

func (p *Producer) Close() error {
	return p.writer.Close()
}

var _ domain.TradeSink = (*Producer)(nil)
