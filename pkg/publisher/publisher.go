// Package publisher delivers observations to the Sintegrate message bus.
// The Kafka implementation is used when the pub/sub flow is enabled; the
// null implementation keeps connectors runnable without a broker.
package publisher

import (
	"context"

	"go.uber.org/zap"

	"github.com/sintegrate/connector-sdk/pkg/config"
)

// Publisher publishes a message to a topic. Data is the observation payload;
// extra carries transport attributes (observation type, integration ID...).
type Publisher interface {
	Publish(ctx context.Context, topic string, data map[string]interface{}, extra map[string]string) error
	Close() error
}

// NullPublisher discards everything. Used when the pub/sub flow is disabled.
type NullPublisher struct{}

// Publish implements Publisher
func (NullPublisher) Publish(ctx context.Context, topic string, data map[string]interface{}, extra map[string]string) error {
	return nil
}

// Close implements Publisher
func (NullPublisher) Close() error { return nil }

// New returns the publisher selected by the settings: a Kafka publisher
// when the pub/sub flow is enabled, the null publisher otherwise.
func New(cfg *config.PubSubConfig, logger *zap.Logger) (Publisher, error) {
	if !cfg.Enabled {
		return NullPublisher{}, nil
	}
	return NewKafkaPublisher(cfg, logger)
}
