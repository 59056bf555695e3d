package base

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/sintegrate/connector-sdk/pkg/logger"
)

// HealthStatus is a point-in-time view of a connector's provider health.
type HealthStatus struct {
	Status       string    `json:"status"`
	LastError    string    `json:"last_error,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
	CheckCount   int64     `json:"check_count"`
	FailureCount int64     `json:"failure_count"`
}

// HealthChecker probes a connector's provider on an interval. Three
// consecutive failures mark the connector unhealthy.
type HealthChecker struct {
	name      string
	interval  time.Duration
	checkFunc func(ctx context.Context) error
	logger    *zap.Logger

	mu               sync.RWMutex
	status           HealthStatus
	consecutiveFails int

	checkCount   atomic.Int64
	failureCount atomic.Int64

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

const unhealthyThreshold = 3

// NewHealthChecker creates a checker that runs fn every interval.
func NewHealthChecker(name string, interval time.Duration, fn func(ctx context.Context) error) *HealthChecker {
	return &HealthChecker{
		name:      name,
		interval:  interval,
		checkFunc: fn,
		status: HealthStatus{
			Status:    "healthy",
			Timestamp: time.Now(),
		},
		logger: logger.Get().With(zap.String("component", "health_checker"), zap.String("connector", name)),
		stopCh: make(chan struct{}),
	}
}

// Start begins periodic checks. Returns immediately.
func (hc *HealthChecker) Start(ctx context.Context) {
	hc.wg.Add(1)
	go func() {
		defer hc.wg.Done()
		ticker := time.NewTicker(hc.interval)
		defer ticker.Stop()

		hc.performCheck(ctx)

		for {
			select {
			case <-ctx.Done():
				return
			case <-hc.stopCh:
				return
			case <-ticker.C:
				hc.performCheck(ctx)
			}
		}
	}()
}

// Stop halts the checker and waits for the loop to exit.
func (hc *HealthChecker) Stop() {
	hc.stopOnce.Do(func() { close(hc.stopCh) })
	hc.wg.Wait()
}

// Status returns the latest health snapshot.
func (hc *HealthChecker) Status() HealthStatus {
	hc.mu.RLock()
	defer hc.mu.RUnlock()
	s := hc.status
	s.CheckCount = hc.checkCount.Load()
	s.FailureCount = hc.failureCount.Load()
	return s
}

func (hc *HealthChecker) performCheck(ctx context.Context) {
	if hc.checkFunc == nil {
		return
	}
	hc.checkCount.Add(1)

	checkCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	err := hc.checkFunc(checkCtx)
	cancel()

	hc.mu.Lock()
	defer hc.mu.Unlock()
	hc.status.Timestamp = time.Now()

	if err != nil {
		hc.failureCount.Add(1)
		hc.consecutiveFails++
		hc.status.LastError = err.Error()
		if hc.consecutiveFails >= unhealthyThreshold {
			hc.status.Status = "unhealthy"
		} else {
			hc.status.Status = "degraded"
		}
		hc.logger.Warn("health check failed",
			zap.Error(err),
			zap.Int("consecutive_failures", hc.consecutiveFails))
		return
	}

	hc.consecutiveFails = 0
	hc.status.Status = "healthy"
	hc.status.LastError = ""
}
