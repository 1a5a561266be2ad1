// Package kafka forwards committed order events to a Kafka topic.
package kafka

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/coursepay/server/internal/infra/events"
	"go.uber.org/zap"
)

// envelope is the message value written for every event.
type envelope struct {
	ID         string       `json:"id"`
	Type       string       `json:"type"`
	OccurredAt time.Time    `json:"occurred_at"`
	Key        string       `json:"key"`
	Payload    events.Event `json:"payload"`
}

// Forwarder is an event bus handler that publishes every event to Kafka.
type Forwarder struct {
	producer sarama.SyncProducer
	topic    string
	logger   *zap.Logger
}

// NewProducerConfig returns the producer settings the forwarder expects.
func NewProducerConfig() *sarama.Config {
	cfg := sarama.NewConfig()
	cfg.ClientID = "coursepay"
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 5
	cfg.Producer.Return.Successes = true
	cfg.Producer.Idempotent = true
	cfg.Net.MaxOpenRequests = 1
	cfg.Version = sarama.V2_8_0_0
	return cfg
}

// NewSyncProducer connects a producer to brokers.
func NewSyncProducer(brokers []string) (sarama.SyncProducer, error) {
	producer, err := sarama.NewSyncProducer(brokers, NewProducerConfig())
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}
	return producer, nil
}

// NewForwarder creates a forwarder writing to topic.
func NewForwarder(producer sarama.SyncProducer, topic string, logger *zap.Logger) *Forwarder {
	return &Forwarder{
		producer: producer,
		topic:    topic,
		logger:   logger,
	}
}

// Handles subscribes the forwarder to every event.
func (f *Forwarder) Handles() []string {
	return []string{events.Wildcard}
}

// Handle writes the event under its key, so the events of one
// order stay in one partition.
func (f *Forwarder) Handle(event events.Event) error {
	value, err := json.Marshal(envelope{
		ID:         event.EventID().String(),
		Type:       event.EventType(),
		OccurredAt: event.OccurredAt(),
		Key:        event.Key(),
		Payload:    event,
	})
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic: f.topic,
		Key:   sarama.StringEncoder(event.Key()),
		Value: sarama.ByteEncoder(value),
		Headers: []sarama.RecordHeader{
			{Key: []byte("event_type"), Value: []byte(event.EventType())},
		},
	}

	partition, offset, err := f.producer.SendMessage(msg)
	if err != nil {
		return fmt.Errorf("send event %s: %w", event.EventID(), err)
	}

	f.logger.Debug("event forwarded",
		zap.String("event_type", event.EventType()),
		zap.Int32("partition", partition),
		zap.Int64("offset", offset),
	)
	return nil
}

// Close closes the producer.
func (f *Forwarder) Close() error {
	return f.producer.Close()
}

// Compile-time check
var _ events.Handler = (*Forwarder)(nil)
