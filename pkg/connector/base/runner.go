package base

import (
	"context"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/sintegrate/connector-sdk/pkg/config"
	"github.com/sintegrate/connector-sdk/pkg/connector/core"
	"github.com/sintegrate/connector-sdk/pkg/errors"
	"github.com/sintegrate/connector-sdk/pkg/logger"
	"github.com/sintegrate/connector-sdk/pkg/metrics"
	"github.com/sintegrate/connector-sdk/pkg/observability"
	"github.com/sintegrate/connector-sdk/pkg/portal"
	"github.com/sintegrate/connector-sdk/pkg/schemas"
)

// PortalAPI is the slice of the portal client the runner uses. Tests
// substitute a fake.
type PortalAPI interface {
	GetIntegrationsForType(ctx context.Context, typeSlug string) ([]schemas.IntegrationInformation, error)
	FetchDeviceStates(ctx context.Context, integrationID string) (map[string]schemas.DeviceState, error)
	UpdateState(ctx context.Context, integration *schemas.IntegrationInformation) error
}

var _ PortalAPI = (*portal.Client)(nil)

// Runner drives the extract-load loop: it asks the portal for the
// integrations assigned to an extractor's type, runs the extractor
// against each one concurrently, delivers observation batches to the
// sink, and persists cursor state after every delivered batch.
type Runner struct {
	extractor   core.Extractor
	portal      PortalAPI
	sink        core.Sink
	cfg         *config.RunnerConfig
	collector   *metrics.Collector
	onDelivered DeliveredFunc
	logger      *zap.Logger
}

// DeliveredFunc is invoked once per observation after the batch containing
// it has been accepted by the sink. Connectors use it to acknowledge items
// back to the provider.
type DeliveredFunc func(ctx context.Context, integration *schemas.IntegrationInformation, obs schemas.Observation)

// NewRunner wires an extractor to the portal and a delivery sink.
func NewRunner(extractor core.Extractor, portalClient PortalAPI, sink core.Sink, cfg *config.RunnerConfig, collector *metrics.Collector) *Runner {
	return &Runner{
		extractor: extractor,
		portal:    portalClient,
		sink:      sink,
		cfg:       cfg,
		collector: collector,
		logger: logger.Get().With(
			zap.String("component", "runner"),
			zap.String("connector", extractor.Name()),
		),
	}
}

// SetDeliveredCallback registers fn to run for each observation after its
// batch is delivered, before the cursor update. Must be set before Run.
func (r *Runner) SetDeliveredCallback(fn DeliveredFunc) {
	r.onDelivered = fn
}

// Run executes one pass: fetch integrations, extract and deliver each.
// Per-integration failures are recorded in the summary and do not stop
// the other integrations.
func (r *Runner) Run(ctx context.Context) (*core.ExecutionSummary, error) {
	if r.collector != nil {
		r.collector.Invoked()
	}

	ctx, span := observability.StartSpan(ctx,
		fmt.Sprintf("integrations.%s.execute", r.extractor.Name()),
		attribute.String("connector.type_slug", r.extractor.TypeSlug()),
	)
	defer span.End()

	if hc, ok := r.extractor.(core.HealthChecker); ok {
		if err := hc.HealthCheck(ctx); err != nil {
			err = errors.Wrap(err, errors.ErrorTypeHealth, "provider health check failed")
			r.recordError(span, err)
			return nil, err
		}
	}

	integrations, err := r.portal.GetIntegrationsForType(ctx, r.extractor.TypeSlug())
	if err != nil {
		r.recordError(span, err)
		return nil, err
	}

	summary := &core.ExecutionSummary{Connector: r.extractor.Name()}
	if len(integrations) == 0 {
		r.logger.Info("no enabled integrations for type",
			zap.String("type_slug", r.extractor.TypeSlug()))
		return summary, nil
	}

	maxConcurrency := r.cfg.MaxConcurrency
	if maxConcurrency <= 0 {
		maxConcurrency = config.DefaultMaxConcurrency
	}
	sem := make(chan struct{}, maxConcurrency)

	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	for i := range integrations {
		integration := &integrations[i]
		if !integration.Enabled {
			continue
		}

		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()

			extracted, delivered, err := r.runIntegration(ctx, integration)

			mu.Lock()
			summary.ObservationsExtracted += extracted
			summary.ObservationsDelivered += delivered
			if err != nil {
				summary.IntegrationsFailed++
			} else {
				summary.IntegrationsProcessed++
			}
			mu.Unlock()

			if r.collector != nil {
				r.collector.IntegrationDone(err == nil)
			}
			if err != nil {
				r.logger.Error("integration failed",
					zap.String("integration_id", integration.ID),
					zap.Error(err))
				observability.RecordError(span, err)
				if r.collector != nil {
					r.collector.Errored(string(errors.TypeOf(err)))
				}
			}
		}()
	}
	wg.Wait()

	r.logger.Info("execution finished",
		zap.Int("integrations_processed", summary.IntegrationsProcessed),
		zap.Int("integrations_failed", summary.IntegrationsFailed),
		zap.Int("observations_extracted", summary.ObservationsExtracted),
		zap.Int("observations_delivered", summary.ObservationsDelivered))

	return summary, nil
}

// runIntegration extracts one integration and delivers its observations
// in batches. Cursor state is persisted after each delivered batch, so a
// crash costs at most one batch of re-extraction.
func (r *Runner) runIntegration(ctx context.Context, integration *schemas.IntegrationInformation) (extracted, delivered int, err error) {
	log := r.logger.With(zap.String("integration_id", integration.ID))

	states, err := r.portal.FetchDeviceStates(ctx, integration.ID)
	if err != nil {
		return 0, 0, err
	}
	integration.DeviceStates = states

	stream, err := r.extractor.Extract(ctx, integration)
	if err != nil {
		return 0, 0, errors.Wrap(err, errors.ErrorTypeExtract, "extractor failed to start")
	}

	batchSize := r.cfg.BatchSize
	if batchSize <= 0 {
		batchSize = config.DefaultBatchSize
	}
	pending := make([]schemas.Observation, 0, batchSize)

	flush := func() error {
		if len(pending) == 0 {
			return nil
		}
		if err := r.sink.Deliver(ctx, integration, pending); err != nil {
			return err
		}
		if r.onDelivered != nil {
			for _, obs := range pending {
				r.onDelivered(ctx, integration, obs)
			}
		}
		delivered += len(pending)
		pending = pending[:0]
		if err := r.portal.UpdateState(ctx, integration); err != nil {
			return err
		}
		return nil
	}

	for batch := range stream.Observations {
		valid := batch[:0]
		for _, obs := range batch {
			if verr := obs.Validate(); verr != nil {
				log.Warn("dropping invalid observation",
					zap.String("device_id", obs.Source()),
					zap.Error(verr))
				if r.collector != nil {
					r.collector.Errored(string(errors.ErrorTypeValidation))
				}
				continue
			}
			valid = append(valid, obs)
		}

		extracted += len(valid)
		if r.collector != nil {
			r.collector.FromProvider(integration.ID, len(valid))
		}

		for _, obs := range valid {
			pending = append(pending, obs)
			if len(pending) >= batchSize {
				if err := flush(); err != nil {
					return extracted, delivered, err
				}
			}
		}
	}

	if streamErr := <-stream.Errors; streamErr != nil {
		return extracted, delivered, errors.Wrap(streamErr, errors.ErrorTypeExtract, "extraction failed")
	}

	if err := flush(); err != nil {
		return extracted, delivered, err
	}

	log.Info("integration processed",
		zap.Int("extracted", extracted),
		zap.Int("delivered", delivered))
	return extracted, delivered, nil
}

func (r *Runner) recordError(span trace.Span, err error) {
	observability.RecordError(span, err)
	if r.collector != nil {
		r.collector.Errored(string(errors.TypeOf(err)))
	}
}
