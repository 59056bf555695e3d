// Package metrics provides Prometheus metrics for connector runs: how many
// observations were pulled from providers, how many were delivered, and how
// long deliveries took.
//
// # Basic Usage
//
//	collector := metrics.NewCollector("savannah-tracker")
//	collector.Invoked()
//	collector.FromProvider(integrationID, len(batch))
//	timer := metrics.NewTimer()
//	// ... deliver batch ...
//	collector.ObserveDelivery("api", timer.Stop())
//	collector.Delivered(integrationID, "api", len(batch))
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ConnectorInvocations tracks connector run invocations.
	// Labels: connector (connector name)
	ConnectorInvocations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sintegrate_connector_invocations_total",
			Help: "Total number of connector run invocations",
		},
		[]string{"connector"},
	)

	// ConnectorErrors tracks errors by type.
	// Labels: connector, error_type
	ConnectorErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sintegrate_connector_errors_total",
			Help: "Total number of connector errors",
		},
		[]string{"connector", "error_type"},
	)

	// ObservationsFromProvider tracks observations extracted from providers.
	// Labels: connector, integration
	ObservationsFromProvider = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sintegrate_observations_from_provider_total",
			Help: "Total number of observations extracted from providers",
		},
		[]string{"connector", "integration"},
	)

	// ObservationsDelivered tracks observations delivered downstream.
	// Labels: connector, integration, sink (api/pubsub)
	ObservationsDelivered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sintegrate_observations_delivered_total",
			Help: "Total number of observations delivered to the platform",
		},
		[]string{"connector", "integration", "sink"},
	)

	// DeliveryLatency tracks batch delivery latency in seconds.
	// Labels: connector, sink
	DeliveryLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sintegrate_delivery_latency_seconds",
			Help:    "Batch delivery latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"connector", "sink"},
	)

	// IntegrationsProcessed tracks per-run integration counts.
	// Labels: connector, status (success/failure)
	IntegrationsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sintegrate_integrations_processed_total",
			Help: "Total number of integrations processed",
		},
		[]string{"connector", "status"},
	)
)

// Collector records metrics for a single connector, labeling every series
// with the connector name.
type Collector struct {
	connector string
	startTime time.Time
}

// NewCollector creates a metrics collector for the named connector.
func NewCollector(connector string) *Collector {
	return &Collector{
		connector: connector,
		startTime: time.Now(),
	}
}

// StartTime returns when the collector was created.
func (c *Collector) StartTime() time.Time {
	return c.startTime
}

// Invoked counts a connector run.
func (c *Collector) Invoked() {
	ConnectorInvocations.WithLabelValues(c.connector).Inc()
}

// Errored counts an error of the given type.
func (c *Collector) Errored(errorType string) {
	ConnectorErrors.WithLabelValues(c.connector, errorType).Inc()
}

// FromProvider counts observations extracted for an integration.
func (c *Collector) FromProvider(integration string, n int) {
	if n > 0 {
		ObservationsFromProvider.WithLabelValues(c.connector, integration).Add(float64(n))
	}
}

// Delivered counts observations delivered through a sink.
func (c *Collector) Delivered(integration, sink string, n int) {
	if n > 0 {
		ObservationsDelivered.WithLabelValues(c.connector, integration, sink).Add(float64(n))
	}
}

// ObserveDelivery records the latency of one batch delivery.
func (c *Collector) ObserveDelivery(sink string, d time.Duration) {
	DeliveryLatency.WithLabelValues(c.connector, sink).Observe(d.Seconds())
}

// IntegrationDone counts a completed integration with its outcome.
func (c *Collector) IntegrationDone(success bool) {
	status := "success"
	if !success {
		status = "failure"
	}
	IntegrationsProcessed.WithLabelValues(c.connector, status).Inc()
}

// Timer measures operation durations.
type Timer struct {
	start time.Time
}

// NewTimer starts timing immediately.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Stop returns the elapsed time since the timer started.
func (t *Timer) Stop() time.Duration {
	return time.Since(t.start)
}
