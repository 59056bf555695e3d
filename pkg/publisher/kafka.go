package publisher

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sintegrate/connector-sdk/pkg/config"
	"github.com/sintegrate/connector-sdk/pkg/errors"
)

// envelope is the wire format consumed by the downstream routing services.
type envelope struct {
	Attributes map[string]string      `json:"attributes"`
	Data       map[string]interface{} `json:"data"`
}

// KafkaPublisher publishes observation messages to Kafka. With key ordering
// enabled, messages from the same integration and device share a partition
// so downstream consumers see them in order.
type KafkaPublisher struct {
	producer    sarama.SyncProducer
	keyOrdering bool
	logger      *zap.Logger
}

// NewKafkaPublisher connects a synchronous producer to the configured
// brokers. Hosted clusters get SASL/PLAIN over TLS.
func NewKafkaPublisher(cfg *config.PubSubConfig, logger *zap.Logger) (*KafkaPublisher, error) {
	saramaCfg := sarama.NewConfig()
	saramaCfg.ClientID = cfg.ClientID
	saramaCfg.Producer.Return.Successes = true
	saramaCfg.Producer.RequiredAcks = sarama.WaitForAll
	saramaCfg.Producer.Retry.Max = 3
	saramaCfg.Producer.Retry.Backoff = 250 * time.Millisecond

	if cfg.HostedEnabled {
		saramaCfg.Net.SASL.Enable = true
		saramaCfg.Net.SASL.Mechanism = sarama.SASLTypePlaintext
		saramaCfg.Net.SASL.User = cfg.Username
		saramaCfg.Net.SASL.Password = cfg.Password
		saramaCfg.Net.TLS.Enable = true
		saramaCfg.Net.TLS.Config = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	producer, err := sarama.NewSyncProducer(cfg.Brokers, saramaCfg)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConnection, "failed to create kafka producer")
	}

	return newKafkaPublisher(producer, cfg.KeyOrderingEnabled, logger), nil
}

// newKafkaPublisher wires a publisher onto an existing producer. Split out
// so tests can inject a mock producer.
func newKafkaPublisher(producer sarama.SyncProducer, keyOrdering bool, logger *zap.Logger) *KafkaPublisher {
	return &KafkaPublisher{
		producer:    producer,
		keyOrdering: keyOrdering,
		logger:      logger.With(zap.String("component", "kafka_publisher")),
	}
}

// Publish sends one observation message to the topic.
func (p *KafkaPublisher) Publish(ctx context.Context, topic string, data map[string]interface{}, extra map[string]string) error {
	if err := ctx.Err(); err != nil {
		return errors.Wrap(err, errors.ErrorTypePublish, "context cancelled before publish")
	}

	if extra == nil {
		extra = map[string]string{}
	}
	if _, ok := extra["message_id"]; !ok {
		extra["message_id"] = uuid.NewString()
	}

	value, err := json.Marshal(envelope{Attributes: extra, Data: data})
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeData, "failed to marshal message envelope")
	}

	msg := &sarama.ProducerMessage{
		Topic: topic,
		Value: sarama.ByteEncoder(value),
	}

	if p.keyOrdering {
		if key := MessageKey(data); key != "" {
			msg.Key = sarama.StringEncoder(key)
		}
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypePublish, "failed to publish message")
	}

	p.logger.Debug("message delivered",
		zap.String("topic", topic),
		zap.Int32("partition", partition),
		zap.Int64("offset", offset))

	return nil
}

// Close flushes and shuts down the producer.
func (p *KafkaPublisher) Close() error {
	if err := p.producer.Close(); err != nil {
		return errors.Wrap(err, errors.ErrorTypePublish, "failed to close kafka producer")
	}
	return nil
}

// MessageKey builds the partition key from the integration and device IDs.
// Returns "" when either is missing, which leaves messages unkeyed.
func MessageKey(data map[string]interface{}) string {
	integrationID, _ := data["integration_id"].(string)
	deviceID, _ := data["device_id"].(string)
	if integrationID == "" || deviceID == "" {
		return ""
	}
	return fmt.Sprintf("%s.%s", integrationID, deviceID)
}
