// Package core defines the contracts between extractors, sinks, and the
// runner. Connector authors implement Extractor; the rest of the SDK
// supplies everything around it.
package core

import (
	"context"

	"github.com/sintegrate/connector-sdk/pkg/schemas"
)

// Extractor pulls observations from an external provider for one
// integration. Implementations stream batches through the returned
// ObservationStream and close both channels when extraction ends.
type Extractor interface {
	// Name is the connector name used in logs, metrics, and trace spans.
	Name() string

	// TypeSlug is the integration type this extractor serves. The runner
	// asks the portal for all enabled integrations of this type.
	TypeSlug() string

	// Extract starts pulling observations for the integration. The
	// integration carries provider credentials and per-device cursors.
	// Extraction stops when ctx is cancelled.
	Extract(ctx context.Context, integration *schemas.IntegrationInformation) (*ObservationStream, error)
}

// Sink delivers a batch of observations downstream: the portal's sensors
// API, or the message bus when the pub/sub flow is enabled.
type Sink interface {
	// Deliver sends one batch. Batches are delivered in the order the
	// extractor produced them for a given integration.
	Deliver(ctx context.Context, integration *schemas.IntegrationInformation, batch []schemas.Observation) error

	// Close flushes buffered messages and releases resources.
	Close() error
}

// HealthChecker reports whether a connector's provider is reachable.
// Extractors may implement it; the runner probes it before extraction.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// ObservationStream carries extracted observation batches from an
// extractor to the runner. The producing side closes both channels when
// done; a terminal failure is reported on Errors before closing.
type ObservationStream struct {
	Observations <-chan []schemas.Observation
	Errors       <-chan error
}

// StreamWriter is the producing side of an ObservationStream. Extractors
// create one with NewStream, send batches with Send, and finish with
// CloseWith.
type StreamWriter struct {
	observations chan []schemas.Observation
	errors       chan error
}

// NewStream creates a stream and its writer. buffer bounds how many
// batches may be in flight before the extractor blocks on the runner.
func NewStream(buffer int) (*ObservationStream, *StreamWriter) {
	if buffer < 0 {
		buffer = 0
	}
	w := &StreamWriter{
		observations: make(chan []schemas.Observation, buffer),
		errors:       make(chan error, 1),
	}
	return &ObservationStream{Observations: w.observations, Errors: w.errors}, w
}

// Send delivers one batch, or gives up when ctx is cancelled. Empty
// batches are dropped.
func (w *StreamWriter) Send(ctx context.Context, batch []schemas.Observation) error {
	if len(batch) == 0 {
		return nil
	}
	select {
	case w.observations <- batch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// CloseWith ends the stream, reporting err (if non-nil) as the terminal
// failure. Call exactly once.
func (w *StreamWriter) CloseWith(err error) {
	if err != nil {
		w.errors <- err
	}
	close(w.observations)
	close(w.errors)
}

// ExecutionSummary reports what one runner pass did.
type ExecutionSummary struct {
	Connector             string `json:"connector"`
	IntegrationsProcessed int    `json:"integrations_processed"`
	IntegrationsFailed    int    `json:"integrations_failed"`
	ObservationsExtracted int    `json:"observations_extracted"`
	ObservationsDelivered int    `json:"observations_delivered"`
}
