package kafka

import (
	"context"

	"github.com/rs/zerolog"
	"go.uber.org/fx"

	"github.com/Conte777/media-relay/config"
	"github.com/Conte777/media-relay/internal/domain/relay/deps"
)

// Module provides the relay event publisher for fx DI
var Module = fx.Module("kafka",
	fx.Provide(NewPublisher),
)

// NewPublisher returns a Kafka producer when brokers are configured and a no-op otherwise
func NewPublisher(lc fx.Lifecycle, cfg *config.KafkaConfig, log zerolog.Logger) (deps.EventPublisher, error) {
	if !cfg.Enabled() {
		log.Info().Msg("KAFKA_BROKERS not set, relay events are not published")
		return NoopPublisher{}, nil
	}

	producer, err := NewKafkaProducer(cfg.Brokers, cfg.TopicRelayEvents, log)
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			log.Info().Msg("closing kafka producer...")
			return producer.Close()
		},
	})

	return producer, nil
}
