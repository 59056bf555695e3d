// Package connectorsdk is the base library for building Sintegrate data
// source connectors: programs that extract observations (GPS positions,
// geo-events, camera-trap imagery, text messages) from field-monitoring
// providers and deliver them to the Sintegrate ingestion platform.
//
// The SDK supplies everything a connector needs except the provider-specific
// extraction logic:
//
//   - pkg/connector/core: the Extractor interface and stream types
//   - pkg/connector/base: the BaseConnector and the extract-load Runner
//   - pkg/connector/registry: extractor registration by type slug
//   - pkg/portal: authenticated client for the Sintegrate portal API
//   - pkg/publisher: Kafka publishing of observations to the message bus
//   - pkg/storage: cloud storage for camera-trap attachments
//   - pkg/schemas: the common observation schema
//   - pkg/config, pkg/logger, pkg/errors, pkg/metrics, pkg/observability:
//     settings, structured logging, typed errors, Prometheus metrics and
//     OpenTelemetry tracing
//
// A minimal connector registers an Extractor and hands control to the
// Runner:
//
//	type trackerExtractor struct{}
//
//	func (e *trackerExtractor) Extract(ctx context.Context, integration *schemas.IntegrationInformation) (*core.ObservationStream, error) {
//	    // provider-specific pull, transform to schemas.Position et al.
//	}
//
// See examples/skeleton for a complete template.
package connectorsdk
