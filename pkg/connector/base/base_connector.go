// Package base provides the foundational BaseConnector that extractor
// implementations embed, plus the Runner that drives the extract-load loop
// against the portal.
//
// BaseConnector carries the production features every connector needs:
// circuit breaker protection, provider rate limiting, retry with backoff,
// health monitoring, metrics, and structured logging. Connector authors
// embed it and implement core.Extractor on top:
//
//	type MyConnector struct {
//	    *base.BaseConnector
//	}
//
//	func NewMyConnector(settings *config.Settings) (*MyConnector, error) {
//	    bc, err := base.NewBaseConnector("my-connector", "my_type", settings)
//	    if err != nil {
//	        return nil, err
//	    }
//	    return &MyConnector{BaseConnector: bc}, nil
//	}
package base

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sintegrate/connector-sdk/pkg/clients"
	"github.com/sintegrate/connector-sdk/pkg/config"
	"github.com/sintegrate/connector-sdk/pkg/errors"
	"github.com/sintegrate/connector-sdk/pkg/logger"
	"github.com/sintegrate/connector-sdk/pkg/metrics"
)

// BaseConnector provides common functionality for extractors: circuit
// breaker, rate limiting, retry policy, health monitoring, metrics, and
// an HTTP client tuned for provider APIs.
type BaseConnector struct {
	name     string
	typeSlug string
	settings *config.Settings
	logger   *zap.Logger

	circuitBreaker *clients.CircuitBreaker
	rateLimiter    clients.RateLimiter
	retryPolicy    *RetryPolicy
	healthChecker  *HealthChecker
	collector      *metrics.Collector
	httpClient     *clients.HTTPClient

	closed     bool
	closeMutex sync.Mutex
}

// NewBaseConnector creates a base connector. name appears in logs,
// metrics and trace spans; typeSlug is the integration type the portal
// knows this connector by.
func NewBaseConnector(name, typeSlug string, settings *config.Settings) (*BaseConnector, error) {
	bc := &BaseConnector{
		name:     name,
		typeSlug: typeSlug,
		settings: settings,
		logger: logger.Get().With(
			zap.String("connector", name),
			zap.String("type_slug", typeSlug),
		),
		retryPolicy: NewRetryPolicy(&settings.Reliability),
		collector:   metrics.NewCollector(name),
	}

	if settings.Reliability.CircuitBreaker {
		bc.circuitBreaker = clients.NewCircuitBreaker(clients.CircuitBreakerConfig{}, bc.logger)
	}
	if limit := settings.Reliability.RateLimitPerSec; limit > 0 {
		bc.rateLimiter = clients.NewRateLimiter(limit, limit)
	}

	httpCfg := clients.DefaultHTTPConfig()
	httpCfg.RequestTimeout = settings.Runner.RequestTimeout
	httpClient, err := clients.NewHTTPClient(httpCfg, bc.logger)
	if err != nil {
		return nil, err
	}
	bc.httpClient = httpClient

	return bc, nil
}

// Name returns the connector name.
func (bc *BaseConnector) Name() string { return bc.name }

// TypeSlug returns the integration type slug.
func (bc *BaseConnector) TypeSlug() string { return bc.typeSlug }

// Settings returns the SDK settings the connector was built with.
func (bc *BaseConnector) Settings() *config.Settings { return bc.settings }

// Logger returns the connector-scoped logger.
func (bc *BaseConnector) Logger() *zap.Logger { return bc.logger }

// Metrics returns the connector's metrics collector.
func (bc *BaseConnector) Metrics() *metrics.Collector { return bc.collector }

// HTTPClient returns the pooled HTTP client for provider requests.
func (bc *BaseConnector) HTTPClient() *clients.HTTPClient { return bc.httpClient }

// StartHealthChecks begins periodic provider health probes using fn.
func (bc *BaseConnector) StartHealthChecks(ctx context.Context, interval time.Duration, fn func(ctx context.Context) error) {
	if bc.healthChecker != nil {
		return
	}
	bc.healthChecker = NewHealthChecker(bc.name, interval, fn)
	bc.healthChecker.Start(ctx)
}

// Health returns the latest health snapshot, or a healthy default when
// no checks are running.
func (bc *BaseConnector) Health() HealthStatus {
	if bc.healthChecker == nil {
		return HealthStatus{Status: "healthy", Timestamp: time.Now()}
	}
	return bc.healthChecker.Status()
}

// ExecuteWithResilience runs fn with rate limiting, circuit breaker
// protection, and retries. Provider calls inside Extract should go
// through this.
func (bc *BaseConnector) ExecuteWithResilience(ctx context.Context, fn func() error) error {
	return bc.retryPolicy.Execute(ctx, func() error {
		if bc.rateLimiter != nil {
			if err := bc.rateLimiter.Wait(ctx); err != nil {
				return errors.Wrap(err, errors.ErrorTypeRateLimit, "rate limit wait cancelled")
			}
		}
		if bc.circuitBreaker != nil {
			return bc.circuitBreaker.Execute(fn)
		}
		return fn()
	})
}

// Close releases connector resources. Safe to call more than once.
func (bc *BaseConnector) Close() error {
	bc.closeMutex.Lock()
	defer bc.closeMutex.Unlock()
	if bc.closed {
		return nil
	}
	bc.closed = true

	if bc.healthChecker != nil {
		bc.healthChecker.Stop()
	}
	if bc.httpClient != nil {
		bc.httpClient.CloseIdleConnections()
	}
	bc.logger.Debug("connector closed")
	return nil
}
