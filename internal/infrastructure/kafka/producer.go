package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/IBM/sarama"
	"github.com/rs/zerolog"

	"github.com/Conte777/media-relay/internal/domain/relay/deps"
	"github.com/Conte777/media-relay/internal/domain/relay/entities"
	"github.com/Conte777/media-relay/internal/infrastructure/metrics"
)

// Producer publishes relay events with a sarama SyncProducer
type Producer struct {
	producer     sarama.SyncProducer
	topic        string
	metrics      *metrics.Metrics
	logger       zerolog.Logger
	successCount atomic.Uint64
	errorCount   atomic.Uint64
}

// NewKafkaProducer connects a SyncProducer to brokers
func NewKafkaProducer(brokers []string, topic string, logger zerolog.Logger) (*Producer, error) {
	config := sarama.NewConfig()
	config.Producer.Return.Successes = true
	config.Producer.Retry.Max = 5
	config.Producer.Retry.Backoff = 500 * time.Millisecond
	config.Producer.Timeout = 10 * time.Second
	config.Producer.RequiredAcks = sarama.WaitForAll

	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		logger.Error().Err(err).Msg("failed to create Kafka SyncProducer")
		return nil, err
	}

	logger.Info().Strs("brokers", brokers).Str("topic", topic).Msg("Kafka SyncProducer initialized")

	return newProducer(producer, topic, logger), nil
}

func newProducer(producer sarama.SyncProducer, topic string, logger zerolog.Logger) *Producer {
	return &Producer{
		producer: producer,
		topic:    topic,
		metrics:  metrics.GetDefaultMetrics(),
		logger:   logger.With().Str("component", "kafka-producer").Logger(),
	}
}

// PublishRelayCompleted sends one relay.completed event keyed by the requesting user
func (p *Producer) PublishRelayCompleted(ctx context.Context, event entities.RelayEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(event)
	if err != nil {
		p.errorCount.Add(1)
		return fmt.Errorf("failed to marshal relay event: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(strconv.FormatInt(event.UserID, 10)),
		Value: sarama.ByteEncoder(data),
	}

	start := time.Now()
	partition, offset, err := p.producer.SendMessage(msg)
	latency := time.Since(start)
	p.metrics.RecordEvent(err)

	if err != nil {
		n := p.errorCount.Add(1)
		p.logger.Error().
			Err(err).
			Str("event_id", event.ID).
			Dur("latency", latency).
			Uint64("error_count", n).
			Msg("failed to send relay event")
		return fmt.Errorf("failed to send relay event: %w", err)
	}

	n := p.successCount.Add(1)
	p.logger.Debug().
		Str("event_id", event.ID).
		Int32("partition", partition).
		Int64("offset", offset).
		Dur("latency", latency).
		Uint64("success_count", n).
		Msg("relay event sent")

	return nil
}

// Close flushes and closes the producer
func (p *Producer) Close() error {
	if p.producer == nil {
		return nil
	}
	if err := p.producer.Close(); err != nil {
		p.logger.Error().Err(err).Msg("failed to close Kafka producer")
		return err
	}
	p.logger.Info().Msg("Kafka producer closed")
	return nil
}

// NoopPublisher drops events when no brokers are configured
type NoopPublisher struct{}

func (NoopPublisher) PublishRelayCompleted(context.Context, entities.RelayEvent) error {
	return nil
}

var (
	_ deps.EventPublisher = (*Producer)(nil)
	_ deps.EventPublisher = NoopPublisher{}
)
