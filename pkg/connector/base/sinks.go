package base

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"time"

	json "github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/sintegrate/connector-sdk/pkg/config"
	"github.com/sintegrate/connector-sdk/pkg/errors"
	"github.com/sintegrate/connector-sdk/pkg/metrics"
	"github.com/sintegrate/connector-sdk/pkg/portal"
	"github.com/sintegrate/connector-sdk/pkg/publisher"
	"github.com/sintegrate/connector-sdk/pkg/routing"
	"github.com/sintegrate/connector-sdk/pkg/schemas"
)

// httpPoster is the slice of the HTTP client the API sink needs.
type httpPoster interface {
	Post(ctx context.Context, url string, body io.Reader, headers map[string]string) (*http.Response, error)
}

// APISink posts observation batches directly to the portal's sensors API.
// This is the delivery path when the pub/sub flow is disabled.
type APISink struct {
	cfg        *config.PortalConfig
	portal     *portal.Client
	httpClient httpPoster
	collector  *metrics.Collector
	logger     *zap.Logger
}

// NewAPISink creates a sink that posts to cfg.APIEndpoint using the
// portal client's credentials.
func NewAPISink(cfg *config.PortalConfig, portalClient *portal.Client, httpClient httpPoster, collector *metrics.Collector, logger *zap.Logger) *APISink {
	return &APISink{
		cfg:        cfg,
		portal:     portalClient,
		httpClient: httpClient,
		collector:  collector,
		logger:     logger.With(zap.String("sink", "api")),
	}
}

// Deliver posts the batch as a JSON array. A 401 invalidates the cached
// token and retries once with a fresh one.
func (s *APISink) Deliver(ctx context.Context, integration *schemas.IntegrationInformation, batch []schemas.Observation) error {
	if len(batch) == 0 {
		return nil
	}

	payload, err := json.Marshal(batch)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeData, "failed to marshal observation batch")
	}

	timer := metrics.NewTimer()
	reauthorized := false
	for {
		headers, err := s.portal.AuthHeaders(ctx)
		if err != nil {
			return err
		}
		headers["Content-Type"] = "application/json"

		resp, err := s.httpClient.Post(ctx, s.cfg.APIEndpoint, bytes.NewReader(payload), headers)
		if err != nil {
			return errors.Wrap(err, errors.ErrorTypeConnection, "failed to post observations")
		}
		status := resp.StatusCode
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()

		switch {
		case status >= 200 && status < 300:
			if s.collector != nil {
				s.collector.Delivered(integration.ID, "api", len(batch))
				s.collector.ObserveDelivery("api", timer.Stop())
			}
			s.logger.Debug("batch delivered",
				zap.String("integration_id", integration.ID),
				zap.Int("observations", len(batch)))
			return nil
		case status == http.StatusUnauthorized && !reauthorized:
			s.logger.Info("token rejected, refreshing and retrying once",
				zap.String("integration_id", integration.ID))
			s.portal.InvalidateToken()
			reauthorized = true
		case status == http.StatusTooManyRequests:
			return errors.Newf(errors.ErrorTypeRateLimit, "sensors API throttled delivery (status %d)", status)
		case status >= 500:
			return errors.Newf(errors.ErrorTypeConnection, "sensors API unavailable (status %d)", status)
		default:
			return errors.Newf(errors.ErrorTypePortal, "sensors API rejected batch (status %d)", status)
		}
	}
}

// Close is a no-op; the HTTP client is owned by the connector.
func (s *APISink) Close() error { return nil }

// PublisherSink routes each observation to its stream topic on the
// message bus. Used when the pub/sub flow is enabled.
type PublisherSink struct {
	pub       publisher.Publisher
	collector *metrics.Collector
	logger    *zap.Logger
}

// NewPublisherSink wraps a publisher as a delivery sink.
func NewPublisherSink(pub publisher.Publisher, collector *metrics.Collector, logger *zap.Logger) *PublisherSink {
	return &PublisherSink{
		pub:       pub,
		collector: collector,
		logger:    logger.With(zap.String("sink", "publisher")),
	}
}

// Deliver publishes each observation to the unprocessed topic for its
// stream type. Delivery stops at the first failure so the batch can be
// retried without skipping messages.
func (s *PublisherSink) Deliver(ctx context.Context, integration *schemas.IntegrationInformation, batch []schemas.Observation) error {
	start := time.Now()
	for _, obs := range batch {
		data, err := observationPayload(obs)
		if err != nil {
			return err
		}

		extra := map[string]string{
			"observation_type": string(obs.ObservationType()),
			"integration_id":   integration.ID,
		}

		topic := routing.TopicForStream(obs.ObservationType())
		if err := s.pub.Publish(ctx, topic, data, extra); err != nil {
			return err
		}
	}

	if s.collector != nil {
		s.collector.Delivered(integration.ID, "publisher", len(batch))
		s.collector.ObserveDelivery("publisher", time.Since(start))
	}
	return nil
}

// Close flushes and closes the underlying publisher.
func (s *PublisherSink) Close() error { return s.pub.Close() }

// observationPayload flattens an observation into the generic map the
// message envelope carries.
func observationPayload(obs schemas.Observation) (map[string]interface{}, error) {
	raw, err := json.Marshal(obs)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to marshal observation")
	}
	var data map[string]interface{}
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to flatten observation")
	}
	return data, nil
}
