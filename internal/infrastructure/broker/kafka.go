// Package broker publishes lifecycle events to kafka. Events are the
// notification side effect of the engines; delivery failures are logged
// by the caller and never fail the originating operation.
package broker

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"github.com/creditojus/creditojus/internal/domain/event"
)

// Publisher implements event.Publisher on a kafka topic. Messages are
// keyed by process id so all events of one process stay ordered within
// a partition.
type Publisher struct {
	writer *kafka.Writer
	logger zerolog.Logger
}

// NewPublisher creates a kafka-backed publisher.
func NewPublisher(brokers []string, topic string, logger zerolog.Logger) *Publisher {
	return &Publisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.LeastBytes{},
			RequiredAcks: kafka.RequireAll,
		},
		logger: logger.With().Str("component", "broker").Logger(),
	}
}

func (p *Publisher) Publish(ctx context.Context, ev event.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	msg := kafka.Message{
		Key:   []byte(ev.ProcessID.String()),
		Value: payload,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return err
	}
	p.logger.Debug().Str("type", string(ev.Type)).Str("processId", ev.ProcessID.String()).Msg("event published")
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}
