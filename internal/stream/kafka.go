// Package stream publishes the engine event stream to Kafka for downstream
// indexers outside this process.
package stream

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/agora-market/agora/internal/market/types"
	"github.com/agora-market/agora/pkg/logger"
)

// Producer writes engine events to a Kafka topic, keyed by event type so
// consumers can partition by kind.
type Producer struct {
	writer *kafka.Writer
	log    *logger.Logger
}

// NewProducer creates a synchronous producer requiring acks from all replicas.
func NewProducer(brokers []string, topic string, log *logger.Logger) *Producer {
	return &Producer{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			RequiredAcks: kafka.RequireAll,
			Async:        false,
			BatchTimeout: 10 * time.Millisecond,
		},
		log: log,
	}
}

// Send publishes one event.
func (p *Producer) Send(ctx context.Context, event types.Event) error {
	value, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.Type),
		Value: value,
	})
}

// Run consumes events from the bus channel until it closes or ctx is
// cancelled. Publish failures are logged and skipped; Kafka consumers are
// secondary mirrors and resynchronize through the engine's read operations.
func (p *Producer) Run(ctx context.Context, events <-chan types.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			if err := p.Send(ctx, event); err != nil {
				p.log.Warn("kafka publish failed", "type", event.Type, "error", err.Error())
			}
		}
	}
}

// Close flushes and closes the writer.
func (p *Producer) Close() error {
	return p.writer.Close()
}
