package base

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sintegrate/connector-sdk/pkg/errors"
)

func TestHealthCheckerHealthy(t *testing.T) {
	var checks atomic.Int64
	hc := NewHealthChecker("test", 10*time.Millisecond, func(ctx context.Context) error {
		checks.Add(1)
		return nil
	})

	hc.Start(context.Background())
	defer hc.Stop()

	require.Eventually(t, func() bool { return checks.Load() >= 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, "healthy", hc.Status().Status)
}

func TestHealthCheckerDegradesThenFails(t *testing.T) {
	hc := NewHealthChecker("test", 5*time.Millisecond, func(ctx context.Context) error {
		return errors.New(errors.ErrorTypeConnection, "provider down")
	})

	hc.Start(context.Background())
	defer hc.Stop()

	require.Eventually(t, func() bool {
		return hc.Status().Status == "unhealthy"
	}, time.Second, 5*time.Millisecond)

	status := hc.Status()
	assert.Contains(t, status.LastError, "provider down")
	assert.GreaterOrEqual(t, status.FailureCount, int64(3))
}

func TestHealthCheckerRecovers(t *testing.T) {
	var failing atomic.Bool
	failing.Store(true)

	hc := NewHealthChecker("test", 5*time.Millisecond, func(ctx context.Context) error {
		if failing.Load() {
			return errors.New(errors.ErrorTypeConnection, "down")
		}
		return nil
	})

	hc.Start(context.Background())
	defer hc.Stop()

	require.Eventually(t, func() bool {
		return hc.Status().Status != "healthy"
	}, time.Second, time.Millisecond)

	failing.Store(false)
	require.Eventually(t, func() bool {
		return hc.Status().Status == "healthy"
	}, time.Second, time.Millisecond)

	assert.Empty(t, hc.Status().LastError)
}

func TestHealthCheckerStopIsIdempotent(t *testing.T) {
	hc := NewHealthChecker("test", time.Millisecond, func(ctx context.Context) error { return nil })
	hc.Start(context.Background())
	hc.Stop()
	hc.Stop()
}
