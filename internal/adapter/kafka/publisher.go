package kafka

import (
	"context"
	"fmt"
	"time"

	json "github.com/goccy/go-json"
	"github.com/segmentio/kafka-go"

	"marketpulse/internal/domain"
)

// Config holds the cycle event producer configuration
type Config struct {
	Enabled      bool          `yaml:"enabled"`
	Brokers      []string      `yaml:"brokers"`
	Topic        string        `yaml:"topic" default:"marketpulse.cycles"`
	RequiredAcks int           `yaml:"required_acks" default:"1"`
	WriteTimeout time.Duration `yaml:"write_timeout" default:"5s"`
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher publishes cycle events keyed by cycle kind
type Publisher struct {
	writer messageWriter
}

// NewPublisher creates a Kafka-backed publisher
func NewPublisher(cfg Config) (*Publisher, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka brokers are required")
	}
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequiredAcks(cfg.RequiredAcks),
		WriteTimeout: cfg.WriteTimeout,
	}
	return &Publisher{writer: writer}, nil
}

// PublishCycle writes one event. Events of the same kind share a partition.
func (p *Publisher) PublishCycle(ctx context.Context, event domain.CycleEvent) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal cycle event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(event.Kind),
		Value: value,
		Time:  event.FinishedAt,
		Headers: []kafka.Header{
			{Key: "cycle_id", Value: []byte(event.CycleID.String())},
			{Key: "status", Value: []byte(event.Status)},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish cycle event: %w", err)
	}
	return nil
}

// Close flushes and closes the writer
func (p *Publisher) Close() error {
	return p.writer.Close()
}

// NoopPublisher discards events when no broker is configured
type NoopPublisher struct{}

func (NoopPublisher) PublishCycle(context.Context, domain.CycleEvent) error { return nil }
func (NoopPublisher) Close() error                                          { return nil }
